// Package schema описывает форму входов и выходов AI-флоу.
//
// Одна и та же декларация используется для структурной проверки значений
// и как текстовая подсказка модели (см. Describe).
package schema

import (
	"fmt"
	"time"
)

type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindEnum    Kind = "enum"
	KindObject  Kind = "object"
	KindArray   Kind = "array"
)

// Format is a named check applied to string values after the type check.
type Format struct {
	Name  string
	Check func(string) error
}

// Date accepts calendar dates in YYYY-MM-DD form.
var Date = Format{
	Name: "date (YYYY-MM-DD)",
	Check: func(value string) error {
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return fmt.Errorf("must be a date in YYYY-MM-DD format")
		}
		return nil
	},
}

type Field struct {
	Name        string
	Kind        Kind
	Description string
	Required    bool
	Enum        []string
	Min         *float64
	Max         *float64
	// MinLength считает длину строки без пробелов по краям.
	MinLength int
	Format    *Format
	Fields    []Field
	Items     *Field
}

type Schema struct {
	Name        string
	Description string
	Fields      []Field
}

// Root возвращает схему как поле-объект верхнего уровня.
func (s *Schema) Root() Field {
	return Field{
		Name:        s.Name,
		Kind:        KindObject,
		Description: s.Description,
		Required:    true,
		Fields:      s.Fields,
	}
}

// Lookup ищет поле по точечному пути, например "personalInfo.age".
func (s *Schema) Lookup(path ...string) (Field, bool) {
	fields := s.Fields
	var found Field
	for _, name := range path {
		ok := false
		for _, field := range fields {
			if field.Name == name {
				found = field
				fields = field.Fields
				ok = true
				break
			}
		}
		if !ok {
			return Field{}, false
		}
	}
	return found, len(path) > 0
}

// Ptr возвращает указатель на число для Min/Max.
func Ptr(value float64) *float64 {
	return &value
}

// Object строит обязательное поле-объект.
func Object(name, description string, fields ...Field) Field {
	return Field{Name: name, Kind: KindObject, Description: description, Required: true, Fields: fields}
}

// String строит обязательное строковое поле.
func String(name, description string) Field {
	return Field{Name: name, Kind: KindString, Description: description, Required: true}
}

// Number строит обязательное числовое поле.
func Number(name, description string) Field {
	return Field{Name: name, Kind: KindNumber, Description: description, Required: true}
}

// Integer строит обязательное целочисленное поле.
func Integer(name, description string) Field {
	return Field{Name: name, Kind: KindInteger, Description: description, Required: true}
}

// Enum строит обязательное поле с закрытым набором значений.
func Enum(name, description string, values ...string) Field {
	return Field{Name: name, Kind: KindEnum, Description: description, Required: true, Enum: values}
}

// Array строит обязательный массив элементов item.
func Array(name, description string, item Field) Field {
	return Field{Name: name, Kind: KindArray, Description: description, Required: true, Items: &item}
}

// Optional снимает признак обязательности.
func (f Field) Optional() Field {
	f.Required = false
	return f
}

// AtLeast задает нижнюю границу числа.
func (f Field) AtLeast(min float64) Field {
	f.Min = Ptr(min)
	return f
}

// Between задает диапазон числа.
func (f Field) Between(min, max float64) Field {
	f.Min = Ptr(min)
	f.Max = Ptr(max)
	return f
}

// NonBlank требует непустую строку.
func (f Field) NonBlank() Field {
	f.MinLength = 1
	return f
}

// WithFormat добавляет проверку формата строки.
func (f Field) WithFormat(format Format) Field {
	f.Format = &format
	return f
}
