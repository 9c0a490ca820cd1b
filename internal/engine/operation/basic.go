package operation

import "math"

// Basic binary operator tokens.
const (
	OpAdd      = "+"
	OpSubtract = "-"
	OpMultiply = "*"
	OpDivide   = "/"
	OpModulo   = "%"
)

// IsBasicOperator returns true for the fixed set of binary operator tokens.
func IsBasicOperator(token string) bool {
	switch token {
	case OpAdd, OpSubtract, OpMultiply, OpDivide, OpModulo:
		return true
	default:
		return false
	}
}

// registerBasic installs the binary arithmetic table.
func registerBasic(r *Registry) {
	r.mustRegister(StrategyBasic, OpAdd, 2, func(operands ...float64) (float64, error) {
		return operands[0] + operands[1], nil
	})

	r.mustRegister(StrategyBasic, OpSubtract, 2, func(operands ...float64) (float64, error) {
		return operands[0] - operands[1], nil
	})

	r.mustRegister(StrategyBasic, OpMultiply, 2, func(operands ...float64) (float64, error) {
		return operands[0] * operands[1], nil
	})

	r.mustRegister(StrategyBasic, OpDivide, 2, func(operands ...float64) (float64, error) {
		if operands[1] == 0 {
			return 0, ErrDivisionByZero
		}
		return operands[0] / operands[1], nil
	})

	r.mustRegister(StrategyBasic, OpModulo, 2, func(operands ...float64) (float64, error) {
		if operands[1] == 0 {
			return 0, ErrDivisionByZero
		}
		return math.Mod(operands[0], operands[1]), nil
	})
}
