package validation

import (
	"apart_backend/internal/model"
	"strings"
)

type FillInTheBlankStrategy struct{}

// Validate 空位集合必须完全一致，答案忽略首尾空白与大小写
func (FillInTheBlankStrategy) Validate(activity *model.Activity, in Input) bool {
	input, ok := in.(*FillInTheBlankInput)
	if !ok || activity.FillInTheBlank == nil {
		return false
	}
	expected := activity.FillInTheBlank.Answers()
	if len(expected) != len(input.Answers) {
		return false
	}
	for key, want := range expected {
		got, present := input.Answers[key]
		if !present || normalize(got) != normalize(want) {
			return false
		}
	}
	return true
}

func (FillInTheBlankStrategy) Payload(activity *model.Activity) map[string]interface{} {
	text := ""
	blanks := 0
	if activity.FillInTheBlank != nil {
		text = activity.FillInTheBlank.Text
		blanks = len(activity.FillInTheBlank.BlankKeys())
	}
	return map[string]interface{}{
		"text":   text,
		"blanks": blanks,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
