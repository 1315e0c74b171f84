package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	ConstraintRequired = "required"
	ConstraintType     = "type"
	ConstraintEnum     = "enum"
	ConstraintRange    = "range"
	ConstraintLength   = "length"
	ConstraintFormat   = "format"
)

// Violation describes one broken constraint at a dotted path.
type Violation struct {
	Path       string `json:"path"`
	Constraint string `json:"constraint"`
	Message    string `json:"message"`
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + ": " + v.Message
}

// Validate проверяет значение, полученное из encoding/json, и возвращает все нарушения.
func (s *Schema) Validate(value any) []Violation {
	var out []Violation
	root := s.Root()
	validateField(root, "", value, true, &out)
	return out
}

func validateField(field Field, path string, value any, present bool, out *[]Violation) {
	if !present || value == nil {
		if field.Required {
			*out = append(*out, Violation{Path: path, Constraint: ConstraintRequired, Message: "is required"})
		}
		return
	}

	switch field.Kind {
	case KindString:
		str, ok := value.(string)
		if !ok {
			*out = append(*out, typeViolation(path, "string", value))
			return
		}
		validateString(field, path, str, out)
	case KindEnum:
		str, ok := value.(string)
		if !ok {
			*out = append(*out, typeViolation(path, "string", value))
			return
		}
		if !contains(field.Enum, str) {
			*out = append(*out, Violation{
				Path:       path,
				Constraint: ConstraintEnum,
				Message:    fmt.Sprintf("must be one of %s, got %q", strings.Join(field.Enum, ", "), str),
			})
		}
	case KindNumber, KindInteger:
		num, ok := value.(float64)
		if !ok {
			*out = append(*out, typeViolation(path, string(field.Kind), value))
			return
		}
		if field.Kind == KindInteger && num != math.Trunc(num) {
			*out = append(*out, typeViolation(path, "integer", value))
			return
		}
		validateRange(field, path, num, out)
	case KindObject:
		obj, ok := value.(map[string]any)
		if !ok {
			*out = append(*out, typeViolation(path, "object", value))
			return
		}
		for _, child := range field.Fields {
			childValue, childPresent := obj[child.Name]
			validateField(child, join(path, child.Name), childValue, childPresent, out)
		}
	case KindArray:
		items, ok := value.([]any)
		if !ok {
			*out = append(*out, typeViolation(path, "array", value))
			return
		}
		if field.Items == nil {
			return
		}
		for i, item := range items {
			validateField(*field.Items, path+"["+strconv.Itoa(i)+"]", item, true, out)
		}
	default:
		*out = append(*out, Violation{Path: path, Constraint: ConstraintType, Message: fmt.Sprintf("unsupported kind %q", field.Kind)})
	}
}

func validateString(field Field, path, value string, out *[]Violation) {
	if field.MinLength > 0 && len([]rune(strings.TrimSpace(value))) < field.MinLength {
		msg := fmt.Sprintf("must be at least %d characters", field.MinLength)
		if field.MinLength == 1 {
			msg = "must not be empty"
		}
		*out = append(*out, Violation{Path: path, Constraint: ConstraintLength, Message: msg})
		return
	}

	if field.Format != nil && field.Format.Check != nil {
		if err := field.Format.Check(value); err != nil {
			*out = append(*out, Violation{Path: path, Constraint: ConstraintFormat, Message: err.Error()})
		}
	}
}

func validateRange(field Field, path string, value float64, out *[]Violation) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		*out = append(*out, Violation{Path: path, Constraint: ConstraintRange, Message: "must be a finite number"})
		return
	}

	switch {
	case field.Min != nil && field.Max != nil && (value < *field.Min || value > *field.Max):
		*out = append(*out, Violation{
			Path:       path,
			Constraint: ConstraintRange,
			Message:    fmt.Sprintf("must be between %s and %s, got %s", formatNumber(*field.Min), formatNumber(*field.Max), formatNumber(value)),
		})
	case field.Min != nil && value < *field.Min:
		*out = append(*out, Violation{
			Path:       path,
			Constraint: ConstraintRange,
			Message:    fmt.Sprintf("must be at least %s, got %s", formatNumber(*field.Min), formatNumber(value)),
		})
	case field.Max != nil && value > *field.Max:
		*out = append(*out, Violation{
			Path:       path,
			Constraint: ConstraintRange,
			Message:    fmt.Sprintf("must be at most %s, got %s", formatNumber(*field.Max), formatNumber(value)),
		})
	}
}

func typeViolation(path, want string, got any) Violation {
	return Violation{
		Path:       path,
		Constraint: ConstraintType,
		Message:    fmt.Sprintf("must be %s, got %s", article(want), jsonKind(got)),
	}
}

func jsonKind(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func article(kind string) string {
	switch kind {
	case "integer", "object", "array":
		return "an " + kind
	default:
		return "a " + kind
	}
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func contains(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
