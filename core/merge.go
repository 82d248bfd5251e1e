package core

import (
	"fmt"
	"reflect"
)

// PolicyKind selects how a field's stored value combines with an incoming
// update value.
type PolicyKind int

const (
	// PolicyReplace overwrites the stored value with the incoming one.
	PolicyReplace PolicyKind = iota
	// PolicyAppend appends the incoming element(s) to the stored sequence.
	PolicyAppend
	// PolicyAccumulate adds the incoming numeric value to the stored one.
	PolicyAccumulate
	// PolicyCustom delegates to the field's Combine function. Custom
	// combinators are free-form and must document their own associativity.
	PolicyCustom
)

// String returns the policy name for diagnostics.
func (p PolicyKind) String() string {
	switch p {
	case PolicyReplace:
		return "replace"
	case PolicyAppend:
		return "append"
	case PolicyAccumulate:
		return "accumulate"
	case PolicyCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Combinator merges the stored and incoming values for a custom policy.
type Combinator func(old, incoming any) (any, error)

// FieldSpec declares one state field together with its merge policy.
// Middleware contribute field specs; the registry resolves them into a single
// policy table at composition time.
type FieldSpec struct {
	Name    string
	Policy  PolicyKind
	Combine Combinator // required when Policy == PolicyCustom
	Default any        // seeded into state when the field is absent
}

// Merger resolves partial state updates against the declared policy table.
// It is built once at composition time and is immutable afterwards, so it is
// safe for concurrent use.
type Merger struct {
	fields map[string]FieldSpec
}

// NewMerger builds the policy table from all declared field specs. Duplicate
// declarations for the same field are rejected unless they carry the same
// non-custom policy; conflicting duplicates fail fast here, before any turn
// executes.
func NewMerger(specs ...FieldSpec) (*Merger, error) {
	fields := make(map[string]FieldSpec, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("state field with empty name")
		}
		if spec.Policy == PolicyCustom && spec.Combine == nil {
			return nil, fmt.Errorf("state field %q: custom policy without combinator", spec.Name)
		}
		prev, exists := fields[spec.Name]
		if !exists {
			fields[spec.Name] = spec
			continue
		}
		if prev.Policy != spec.Policy || spec.Policy == PolicyCustom {
			return nil, fmt.Errorf(
				"conflicting merge policies for state field %q: %s vs %s",
				spec.Name, prev.Policy, spec.Policy,
			)
		}
	}
	return &Merger{fields: fields}, nil
}

// Spec returns the declared field spec for a name.
func (m *Merger) Spec(name string) (FieldSpec, bool) {
	spec, ok := m.fields[name]
	return spec, ok
}

// Seed returns a copy of the state with defaults filled in for all declared
// fields that are absent.
func (m *Merger) Seed(state State) State {
	out := state.Clone()
	if out == nil {
		out = State{}
	}
	for name, spec := range m.fields {
		if _, ok := out[name]; !ok && spec.Default != nil {
			out[name] = spec.Default
		}
	}
	return out
}

// Apply merges a partial update into state and returns the new state. The
// input state is not mutated. Updates for undeclared fields are an error:
// the field set is fixed at composition time.
func (m *Merger) Apply(state State, update StateUpdate) (State, error) {
	if len(update) == 0 {
		return state, nil
	}
	out := state.Clone()
	if out == nil {
		out = State{}
	}
	for name, incoming := range update {
		spec, ok := m.fields[name]
		if !ok {
			return nil, fmt.Errorf("update for undeclared state field %q", name)
		}
		if rep, isReplace := incoming.(Replace); isReplace {
			out[name] = rep.Value
			continue
		}
		merged, err := m.combine(spec, out[name], incoming)
		if err != nil {
			return nil, fmt.Errorf("merge state field %q: %w", name, err)
		}
		out[name] = merged
	}
	return out, nil
}

// Fold combines two partial updates into one, such that applying the folded
// update equals applying them in sequence. A Replace marker in the later
// update swallows whatever was accumulated; a Replace in the accumulator is
// kept as a Replace of the combined value. Folding is associative for
// append, accumulate and replace policies.
func (m *Merger) Fold(acc, update StateUpdate) (StateUpdate, error) {
	if len(update) == 0 {
		return acc, nil
	}
	out := make(StateUpdate, len(acc)+len(update))
	for k, v := range acc {
		out[k] = v
	}
	for name, incoming := range update {
		spec, ok := m.fields[name]
		if !ok {
			return nil, fmt.Errorf("update for undeclared state field %q", name)
		}
		if _, isReplace := incoming.(Replace); isReplace {
			out[name] = incoming
			continue
		}
		prev, exists := out[name]
		if !exists {
			out[name] = incoming
			continue
		}
		if rep, isReplace := prev.(Replace); isReplace {
			merged, err := m.combine(spec, rep.Value, incoming)
			if err != nil {
				return nil, fmt.Errorf("fold state field %q: %w", name, err)
			}
			out[name] = Replace{Value: merged}
			continue
		}
		merged, err := m.combine(spec, prev, incoming)
		if err != nil {
			return nil, fmt.Errorf("fold state field %q: %w", name, err)
		}
		out[name] = merged
	}
	return out, nil
}

func (m *Merger) combine(spec FieldSpec, old, incoming any) (any, error) {
	switch spec.Policy {
	case PolicyReplace:
		return incoming, nil
	case PolicyAppend:
		return appendValues(old, incoming)
	case PolicyAccumulate:
		return addNumeric(old, incoming)
	case PolicyCustom:
		return spec.Combine(old, incoming)
	default:
		return nil, fmt.Errorf("unknown merge policy %d", spec.Policy)
	}
}

// appendValues appends incoming (a single element or a slice of the same
// type) to the stored slice, always into a fresh backing array so shared
// state snapshots stay untouched.
func appendValues(old, incoming any) (any, error) {
	if old == nil {
		iv := reflect.ValueOf(incoming)
		if iv.Kind() == reflect.Slice {
			return incoming, nil
		}
		slice := reflect.MakeSlice(reflect.SliceOf(iv.Type()), 0, 1)
		return reflect.Append(slice, iv).Interface(), nil
	}

	ov := reflect.ValueOf(old)
	if ov.Kind() != reflect.Slice {
		return nil, fmt.Errorf("append policy on non-sequence value %T", old)
	}

	out := reflect.MakeSlice(ov.Type(), 0, ov.Len()+1)
	out = reflect.AppendSlice(out, ov)

	iv := reflect.ValueOf(incoming)
	switch {
	case iv.Kind() == reflect.Slice && iv.Type() == ov.Type():
		out = reflect.AppendSlice(out, iv)
	case iv.Type().AssignableTo(ov.Type().Elem()):
		out = reflect.Append(out, iv)
	default:
		return nil, fmt.Errorf("cannot append %T to %T", incoming, old)
	}
	return out.Interface(), nil
}

// addNumeric adds two numeric values, keeping int arithmetic when both sides
// are integers.
func addNumeric(old, incoming any) (any, error) {
	if old == nil {
		return incoming, nil
	}
	oi, oIsInt := asInt64(old)
	ii, iIsInt := asInt64(incoming)
	if oIsInt && iIsInt {
		return int(oi + ii), nil
	}
	of, oOK := asFloat64(old)
	nf, iOK := asFloat64(incoming)
	if !oOK || !iOK {
		return nil, fmt.Errorf("accumulate policy on non-numeric values %T and %T", old, incoming)
	}
	return of + nf, nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
