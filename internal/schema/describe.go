package schema

import (
	"strconv"
	"strings"
)

// Describe renders the field tree as a JSON-like outline with types,
// constraints and descriptions. It is appended to prompts as output guidance.
func (s *Schema) Describe() string {
	var b strings.Builder
	b.WriteString("{\n")
	describeFields(&b, s.Fields, 1)
	b.WriteString("}")
	return b.String()
}

func describeFields(b *strings.Builder, fields []Field, depth int) {
	indent := strings.Repeat("  ", depth)
	for i, field := range fields {
		b.WriteString(indent)
		b.WriteString(strconv.Quote(field.Name))
		b.WriteString(": ")

		switch field.Kind {
		case KindObject:
			b.WriteString("{")
			writeNote(b, field)
			b.WriteString("\n")
			describeFields(b, field.Fields, depth+1)
			b.WriteString(indent)
			b.WriteString("}")
		case KindArray:
			b.WriteString("[")
			writeNote(b, field)
			b.WriteString("\n")
			if field.Items != nil {
				item := *field.Items
				b.WriteString(indent + "  ")
				if item.Kind == KindObject {
					b.WriteString("{\n")
					describeFields(b, item.Fields, depth+2)
					b.WriteString(indent + "  }")
				} else {
					b.WriteString(typeLabel(item))
				}
				b.WriteString("\n")
			}
			b.WriteString(indent)
			b.WriteString("]")
		default:
			b.WriteString(typeLabel(field))
			writeNote(b, field)
		}

		if i < len(fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
}

func typeLabel(field Field) string {
	switch field.Kind {
	case KindEnum:
		quoted := make([]string, 0, len(field.Enum))
		for _, value := range field.Enum {
			quoted = append(quoted, strconv.Quote(value))
		}
		return strings.Join(quoted, " | ")
	case KindString:
		if field.Format != nil {
			return "string, " + field.Format.Name
		}
		return "string"
	case KindNumber, KindInteger:
		label := string(field.Kind)
		switch {
		case field.Min != nil && field.Max != nil:
			label += " " + formatNumber(*field.Min) + ".." + formatNumber(*field.Max)
		case field.Min != nil:
			label += " >= " + formatNumber(*field.Min)
		case field.Max != nil:
			label += " <= " + formatNumber(*field.Max)
		}
		return label
	default:
		return string(field.Kind)
	}
}

func writeNote(b *strings.Builder, field Field) {
	var parts []string
	if !field.Required {
		parts = append(parts, "optional")
	}
	if field.Description != "" {
		parts = append(parts, field.Description)
	}
	if len(parts) == 0 {
		return
	}
	b.WriteString(" // ")
	b.WriteString(strings.Join(parts, "; "))
}
