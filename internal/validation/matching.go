package validation

import (
	"apart_backend/internal/model"
	"maps"
)

type MatchingStrategy struct{}

func (MatchingStrategy) Validate(activity *model.Activity, in Input) bool {
	input, ok := in.(*MatchingInput)
	if !ok || activity.Matching == nil {
		return false
	}
	correct := make(map[string]string, len(activity.Matching.Pairs))
	for _, p := range activity.Matching.Pairs {
		correct[p.Left] = p.Right
	}
	return maps.Equal(correct, input.Pairs)
}

// Payload 配对原样返回，前端负责打乱右侧
func (MatchingStrategy) Payload(activity *model.Activity) map[string]interface{} {
	pairs := make([]map[string]string, 0)
	if activity.Matching != nil {
		for _, p := range activity.Matching.Pairs {
			pairs = append(pairs, map[string]string{"left": p.Left, "right": p.Right})
		}
	}
	return map[string]interface{}{"pairs": pairs}
}
