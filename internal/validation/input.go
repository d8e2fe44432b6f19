package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ChoiceInput struct {
	SelectedIDs []uint `json:"selected_ids" validate:"required,min=1,dive,gt=0"`
}

type FillInTheBlankInput struct {
	Answers map[string]string `json:"answers" validate:"required,min=1"`
}

type MatchingInput struct {
	Pairs map[string]string `json:"pairs" validate:"required,min=1"`
}

type WordOrderingInput struct {
	Words []string `json:"words" validate:"required,min=1"`
}

// InputError carries field-level messages for a response that does not match
// the expected input shape.
type InputError struct {
	Fields map[string]string
}

func (e *InputError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func NewInputError(field, message string) *InputError {
	return &InputError{Fields: map[string]string{field: message}}
}

// IsInputError reports whether err (or anything it wraps) is an *InputError.
func IsInputError(err error) (*InputError, bool) {
	var ie *InputError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeInput decodes raw into a fresh value of shape and checks its
// structural constraints.
func DecodeInput(shape InputShape, raw json.RawMessage) (Input, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, NewInputError("input_data", "this field is required")
	}

	in := shape()
	if err := json.Unmarshal(raw, in); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "input_data"
			}
			return nil, NewInputError(field, fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value))
		}
		return nil, NewInputError("input_data", "malformed JSON object")
	}

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fieldPath(fe)] = describe(fe)
		}
		return nil, &InputError{Fields: fields}
	}
	return in, nil
}

// fieldPath drops the struct name prefix: "ChoiceInput.selected_ids[0]" -> "selected_ids[0]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return "must contain at least " + fe.Param() + " item(s)"
	case "gt":
		return "must be greater than " + fe.Param()
	}
	return "failed on " + fe.Tag()
}
