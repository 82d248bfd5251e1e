package core

// Well-known state field names. StateKeyMessages is always present;
// StateKeyStopAgent is merged like any other field but interpreted only by
// the loop driver, never by the engine itself.
const (
	StateKeyMessages  = "messages"
	StateKeyStopAgent = "stop_agent"
)

// State is the agent's working state: a mapping from declared field names to
// values. The field set is fixed at composition time as the union of all
// middleware state field declarations plus the base fields.
//
// Within one lifecycle phase the state passed to hooks is single-writer;
// hooks receive the result of all earlier merges in the same phase.
type State map[string]any

// Clone returns a shallow copy of the state map. Field values are shared, so
// callers must not mutate them in place; merge policies always produce fresh
// values instead.
func (s State) Clone() State {
	cp := make(State, len(s))
	for k, v := range s {
		cp[k] = v
	}
	return cp
}

// Messages returns the conversation history stored under StateKeyMessages,
// or nil when the field is absent or has an unexpected type.
func (s State) Messages() []Message {
	msgs, _ := s[StateKeyMessages].([]Message)
	return msgs
}

// StopRequested reports whether a hook or tool has set the stop flag. The
// engine only transports this field; acting on it is the driver's job.
func (s State) StopRequested() bool {
	stop, _ := s[StateKeyStopAgent].(bool)
	return stop
}

// StateUpdate is a partial state update produced by a lifecycle hook or a
// tool. Each entry is either a raw value, combined with the existing value
// via the field's declared merge policy, or a Replace marker that assigns
// the wrapped value outright.
type StateUpdate map[string]any

// Replace is the full-replace marker: it bypasses the target field's merge
// policy and sets the field to Value unconditionally.
type Replace struct {
	Value any
}

// ReplaceWith wraps a value in a full-replace marker.
func ReplaceWith(v any) Replace {
	return Replace{Value: v}
}
