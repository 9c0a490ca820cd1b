package calc

import "github.com/dshills/calcstorm/internal/event/topic"

// Change bus topics published by the engine.
// Subscribe to "engine.*.*" to observe every engine mutation.
const (
	// TopicValueChanged carries the new CurrentValue string.
	TopicValueChanged = topic.Topic("engine.value.changed")

	// TopicMemoryChanged carries the new memory register value (float64).
	TopicMemoryChanged = topic.Topic("engine.memory.changed")

	// TopicHistoryUpdated carries a copy of the calculation log
	// ([]store.LogEntry, newest first).
	TopicHistoryUpdated = topic.Topic("engine.history.updated")

	// TopicStateReset carries the prior State, captured before the reset.
	TopicStateReset = topic.Topic("engine.state.reset")
)
