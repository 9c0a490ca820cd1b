package operation

import "math"

// maxFactorial is the largest integer whose factorial fits in a float64.
const maxFactorial = 170

// degToRad converts degrees to radians.
// The trigonometric operations accept degrees, matching keypad input.
func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// registerScientific installs the unary scientific table.
func registerScientific(r *Registry) {
	r.mustRegister(StrategyScientific, "sin", 1, func(operands ...float64) (float64, error) {
		return math.Sin(degToRad(operands[0])), nil
	})

	r.mustRegister(StrategyScientific, "cos", 1, func(operands ...float64) (float64, error) {
		return math.Cos(degToRad(operands[0])), nil
	})

	r.mustRegister(StrategyScientific, "tan", 1, func(operands ...float64) (float64, error) {
		return math.Tan(degToRad(operands[0])), nil
	})

	r.mustRegister(StrategyScientific, "log", 1, func(operands ...float64) (float64, error) {
		if operands[0] <= 0 {
			return 0, ErrDomain
		}
		return math.Log10(operands[0]), nil
	})

	r.mustRegister(StrategyScientific, "ln", 1, func(operands ...float64) (float64, error) {
		if operands[0] <= 0 {
			return 0, ErrDomain
		}
		return math.Log(operands[0]), nil
	})

	r.mustRegister(StrategyScientific, "sqrt", 1, func(operands ...float64) (float64, error) {
		if operands[0] < 0 {
			return 0, ErrDomain
		}
		return math.Sqrt(operands[0]), nil
	})

	r.mustRegister(StrategyScientific, "power", 1, func(operands ...float64) (float64, error) {
		return operands[0] * operands[0], nil
	})

	r.mustRegister(StrategyScientific, "factorial", 1, func(operands ...float64) (float64, error) {
		return factorial(operands[0])
	})
}

// factorial computes n! for integral n in [0, 170].
func factorial(n float64) (float64, error) {
	if n < 0 || n != math.Trunc(n) || n > maxFactorial {
		return 0, ErrDomain
	}

	result := 1.0
	for i := 2.0; i <= n; i++ {
		result *= i
	}
	return result, nil
}
