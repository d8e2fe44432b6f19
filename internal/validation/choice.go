package validation

import "apart_backend/internal/model"

type ChoiceStrategy struct{}

func (ChoiceStrategy) Validate(activity *model.Activity, in Input) bool {
	input, ok := in.(*ChoiceInput)
	if !ok || activity.Choice == nil {
		return false
	}
	correct := make(map[uint]struct{})
	for _, id := range activity.Choice.CorrectIDs() {
		correct[id] = struct{}{}
	}

	if !activity.Choice.IsMultiple {
		if len(input.SelectedIDs) != 1 {
			return false
		}
		_, hit := correct[input.SelectedIDs[0]]
		return hit
	}

	selected := make(map[uint]struct{}, len(input.SelectedIDs))
	for _, id := range input.SelectedIDs {
		selected[id] = struct{}{}
	}
	if len(selected) != len(correct) {
		return false
	}
	for id := range selected {
		if _, hit := correct[id]; !hit {
			return false
		}
	}
	return true
}

func (ChoiceStrategy) Payload(activity *model.Activity) map[string]interface{} {
	choices := make([]map[string]interface{}, 0)
	isMultiple := false
	if activity.Choice != nil {
		isMultiple = activity.Choice.IsMultiple
		for _, c := range activity.Choice.Choices {
			choices = append(choices, map[string]interface{}{"id": c.ID, "text": c.Text})
		}
	}
	return map[string]interface{}{
		"is_multiple": isMultiple,
		"choices":     choices,
	}
}
