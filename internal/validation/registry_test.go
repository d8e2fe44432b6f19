package validation

import (
	"apart_backend/internal/model"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_ResolvesBuiltinTypes(t *testing.T) {
	r := NewDefaultRegistry()
	assert.Equal(t, []model.ActivityType{"choice", "fill_in", "matching", "order"}, r.Types())

	for _, typ := range r.Types() {
		s, shape, err := r.Resolve(typ)
		require.NoError(t, err)
		assert.NotNil(t, s)
		assert.NotNil(t, shape())
	}
}

func TestRegistry_UnknownType(t *testing.T) {
	r := NewDefaultRegistry()
	_, _, err := r.Resolve("essay")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedActivityType))
	assert.Contains(t, err.Error(), `no strategy for type "essay"`)

	_, err = r.Payload(&model.Activity{Type: "essay"})
	assert.ErrorIs(t, err, ErrUnsupportedActivityType)
}

func TestRegistry_RegisterTwice(t *testing.T) {
	r := NewRegistry()
	shape := func() Input { return &ChoiceInput{} }
	require.NoError(t, r.Register(model.ActivityChoice, ChoiceStrategy{}, shape))
	assert.Error(t, r.Register(model.ActivityChoice, ChoiceStrategy{}, shape))
	assert.Error(t, r.Register(model.ActivityMatching, nil, shape))
}

func TestRegistry_Check(t *testing.T) {
	r := NewDefaultRegistry()
	a := model.NewWordOrderingActivity(model.ActivityInfo{}, "I like tea")

	in, ok, err := r.Check(a, json.RawMessage(`{"words":["I","like","tea"]}`))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, &WordOrderingInput{Words: []string{"I", "like", "tea"}}, in)

	_, ok, err = r.Check(a, json.RawMessage(`{"words":["tea","like","I"]}`))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeInput_Errors(t *testing.T) {
	r := NewDefaultRegistry()

	tests := []struct {
		name  string
		typ   model.ActivityType
		raw   string
		field string
	}{
		{"missing body", model.ActivityChoice, ``, "input_data"},
		{"null body", model.ActivityChoice, `null`, "input_data"},
		{"empty selection", model.ActivityChoice, `{"selected_ids":[]}`, "selected_ids"},
		{"missing selection", model.ActivityChoice, `{}`, "selected_ids"},
		{"zero id", model.ActivityChoice, `{"selected_ids":[0]}`, "selected_ids[0]"},
		{"wrong element type", model.ActivityChoice, `{"selected_ids":["a"]}`, "selected_ids"},
		{"answers not a map", model.ActivityFillInBlank, `{"answers":["x"]}`, "answers"},
		{"empty words", model.ActivityWordOrdering, `{"words":[]}`, "words"},
		{"malformed", model.ActivityMatching, `{"pairs":`, "input_data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Decode(tt.typ, json.RawMessage(tt.raw))
			require.Error(t, err)
			ie, ok := IsInputError(err)
			require.True(t, ok, "expected *InputError, got %v", err)
			assert.Contains(t, ie.Fields, tt.field)
		})
	}
}

func TestDecodeInput_Valid(t *testing.T) {
	r := NewDefaultRegistry()
	in, err := r.Decode(model.ActivityMatching, json.RawMessage(`{"pairs":{"cat":"gato"}}`))
	require.NoError(t, err)
	assert.Equal(t, &MatchingInput{Pairs: map[string]string{"cat": "gato"}}, in)
}
