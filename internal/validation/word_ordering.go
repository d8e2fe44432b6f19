package validation

import (
	"apart_backend/internal/model"
	"slices"
	"strings"
)

type WordOrderingStrategy struct{}

func (WordOrderingStrategy) Validate(activity *model.Activity, in Input) bool {
	input, ok := in.(*WordOrderingInput)
	if !ok || activity.WordOrdering == nil {
		return false
	}
	return slices.Equal(strings.Fields(activity.WordOrdering.Sentence), input.Words)
}

func (WordOrderingStrategy) Payload(activity *model.Activity) map[string]interface{} {
	words := []string{}
	if activity.WordOrdering != nil {
		words = strings.Fields(activity.WordOrdering.Sentence)
	}
	return map[string]interface{}{"words": words}
}
