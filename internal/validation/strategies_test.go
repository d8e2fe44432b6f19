package validation

import (
	"apart_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
)

func choiceActivity(multiple bool) *model.Activity {
	a := model.NewChoiceActivity(model.ActivityInfo{Title: "pick"}, multiple,
		model.Choice{ID: 1, Text: "a", IsCorrect: true},
		model.Choice{ID: 2, Text: "b"},
		model.Choice{ID: 3, Text: "c", IsCorrect: multiple},
	)
	return a
}

func TestChoiceStrategy_Single(t *testing.T) {
	a := choiceActivity(false)
	s := ChoiceStrategy{}

	assert.True(t, s.Validate(a, &ChoiceInput{SelectedIDs: []uint{1}}))
	assert.False(t, s.Validate(a, &ChoiceInput{SelectedIDs: []uint{2}}))
	assert.False(t, s.Validate(a, &ChoiceInput{SelectedIDs: []uint{1, 2}}))
	assert.False(t, s.Validate(a, &ChoiceInput{SelectedIDs: []uint{1, 1}}))
}

func TestChoiceStrategy_Multiple(t *testing.T) {
	a := choiceActivity(true)
	s := ChoiceStrategy{}

	tests := []struct {
		name     string
		selected []uint
		want     bool
	}{
		{"exact set", []uint{1, 3}, true},
		{"order does not matter", []uint{3, 1}, true},
		{"duplicates collapse", []uint{1, 3, 3}, true},
		{"subset", []uint{1}, false},
		{"superset", []uint{1, 2, 3}, false},
		{"wrong choice", []uint{2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Validate(a, &ChoiceInput{SelectedIDs: tt.selected}))
		})
	}
}

func TestChoiceStrategy_WrongInputType(t *testing.T) {
	assert.False(t, ChoiceStrategy{}.Validate(choiceActivity(false), &WordOrderingInput{Words: []string{"a"}}))
}

func TestFillInTheBlankStrategy(t *testing.T) {
	a := model.NewFillInTheBlankActivity(model.ActivityInfo{}, "I {{blank}} to {{blank}}",
		map[string]string{"0": "Went", "1": "school"})
	s := FillInTheBlankStrategy{}

	tests := []struct {
		name    string
		answers map[string]string
		want    bool
	}{
		{"exact", map[string]string{"0": "Went", "1": "school"}, true},
		{"case and whitespace are ignored", map[string]string{"0": "  went ", "1": "SCHOOL"}, true},
		{"subset of blanks", map[string]string{"0": "went"}, false},
		{"extra blank", map[string]string{"0": "went", "1": "school", "2": "x"}, false},
		{"wrong key", map[string]string{"0": "went", "2": "school"}, false},
		{"wrong answer", map[string]string{"0": "go", "1": "school"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Validate(a, &FillInTheBlankInput{Answers: tt.answers}))
		})
	}
}

func TestMatchingStrategy(t *testing.T) {
	a := model.NewMatchingActivity(model.ActivityInfo{},
		model.MatchingPair{Left: "cat", Right: "gato"},
		model.MatchingPair{Left: "dog", Right: "perro"},
	)
	s := MatchingStrategy{}

	assert.True(t, s.Validate(a, &MatchingInput{Pairs: map[string]string{"dog": "perro", "cat": "gato"}}))
	assert.False(t, s.Validate(a, &MatchingInput{Pairs: map[string]string{"cat": "gato"}}))
	assert.False(t, s.Validate(a, &MatchingInput{Pairs: map[string]string{"cat": "perro", "dog": "gato"}}))
	// 精确匹配，不做大小写归一
	assert.False(t, s.Validate(a, &MatchingInput{Pairs: map[string]string{"cat": "Gato", "dog": "perro"}}))
}

func TestWordOrderingStrategy(t *testing.T) {
	a := model.NewWordOrderingActivity(model.ActivityInfo{}, "  the quick   brown fox ")
	s := WordOrderingStrategy{}

	assert.True(t, s.Validate(a, &WordOrderingInput{Words: []string{"the", "quick", "brown", "fox"}}))
	assert.False(t, s.Validate(a, &WordOrderingInput{Words: []string{"quick", "the", "brown", "fox"}}))
	assert.False(t, s.Validate(a, &WordOrderingInput{Words: []string{"the", "quick", "brown"}}))
	assert.False(t, s.Validate(a, &WordOrderingInput{Words: []string{"The", "quick", "brown", "fox"}}))
}

func TestPayloads(t *testing.T) {
	p := ChoiceStrategy{}.Payload(choiceActivity(false))
	assert.Equal(t, false, p["is_multiple"])
	choices := p["choices"].([]map[string]interface{})
	assert.Len(t, choices, 3)
	assert.NotContains(t, choices[0], "is_correct")

	fill := model.NewFillInTheBlankActivity(model.ActivityInfo{}, "a {{blank}}", map[string]string{"0": "x"})
	assert.Equal(t, map[string]interface{}{"text": "a {{blank}}", "blanks": 1}, FillInTheBlankStrategy{}.Payload(fill))

	order := model.NewWordOrderingActivity(model.ActivityInfo{}, "hello  world")
	assert.Equal(t, []string{"hello", "world"}, WordOrderingStrategy{}.Payload(order)["words"])
}
