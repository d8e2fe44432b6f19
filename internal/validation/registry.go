// Package validation decides whether a structured response solves an activity.
//
// Each activity type registers a Strategy (the correctness check plus the
// public payload shown to learners) and an InputShape (the structure a
// response must decode into). The Registry is built once at startup and then
// only read.
package validation

import (
	"apart_backend/internal/model"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var ErrUnsupportedActivityType = errors.New("unsupported activity type")

// Input is a decoded, shape-validated response (one of the *XxxInput types).
type Input interface{}

// InputShape returns a pointer to an empty input value to decode into.
type InputShape func() Input

// Strategy is a pure correctness check for one activity type. Validate must
// not touch storage and gives no partial credit.
type Strategy interface {
	Validate(activity *model.Activity, input Input) bool
	// Payload is what a learner sees of the activity, without the answers
	// where the type allows hiding them.
	Payload(activity *model.Activity) map[string]interface{}
}

type registration struct {
	strategy Strategy
	shape    InputShape
}

type Registry struct {
	entries map[model.ActivityType]registration
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[model.ActivityType]registration)}
}

// NewDefaultRegistry registers the four built-in activity types.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.mustRegister(model.ActivityChoice, ChoiceStrategy{}, func() Input { return &ChoiceInput{} })
	r.mustRegister(model.ActivityFillInBlank, FillInTheBlankStrategy{}, func() Input { return &FillInTheBlankInput{} })
	r.mustRegister(model.ActivityMatching, MatchingStrategy{}, func() Input { return &MatchingInput{} })
	r.mustRegister(model.ActivityWordOrdering, WordOrderingStrategy{}, func() Input { return &WordOrderingInput{} })
	return r
}

func (r *Registry) Register(t model.ActivityType, s Strategy, shape InputShape) error {
	if s == nil || shape == nil {
		return fmt.Errorf("register %q: strategy and input shape are required", t)
	}
	if _, exists := r.entries[t]; exists {
		return fmt.Errorf("register %q: already registered", t)
	}
	r.entries[t] = registration{strategy: s, shape: shape}
	return nil
}

func (r *Registry) mustRegister(t model.ActivityType, s Strategy, shape InputShape) {
	if err := r.Register(t, s, shape); err != nil {
		panic(err)
	}
}

func (r *Registry) Resolve(t model.ActivityType) (Strategy, InputShape, error) {
	entry, ok := r.entries[t]
	if !ok {
		return nil, nil, fmt.Errorf("%w: no strategy for type %q", ErrUnsupportedActivityType, t)
	}
	return entry.strategy, entry.shape, nil
}

// Types lists the registered activity types in a stable order.
func (r *Registry) Types() []model.ActivityType {
	out := make([]model.ActivityType, 0, len(r.entries))
	for t := range r.entries {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Decode resolves the shape for t and decodes raw into it.
func (r *Registry) Decode(t model.ActivityType, raw json.RawMessage) (Input, error) {
	_, shape, err := r.Resolve(t)
	if err != nil {
		return nil, err
	}
	return DecodeInput(shape, raw)
}

// Check decodes raw for the activity's type and runs its strategy.
func (r *Registry) Check(activity *model.Activity, raw json.RawMessage) (Input, bool, error) {
	strategy, shape, err := r.Resolve(activity.Type)
	if err != nil {
		return nil, false, err
	}
	input, err := DecodeInput(shape, raw)
	if err != nil {
		return nil, false, err
	}
	return input, strategy.Validate(activity, input), nil
}

func (r *Registry) Payload(activity *model.Activity) (map[string]interface{}, error) {
	strategy, _, err := r.Resolve(activity.Type)
	if err != nil {
		return nil, err
	}
	return strategy.Payload(activity), nil
}
