package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiptSchema() *Schema {
	return &Schema{
		Name: "receipt",
		Fields: []Field{
			String("vendor", "Vendor name"),
			String("date", "Purchase date").WithFormat(Date),
			Number("total", "Total amount").AtLeast(0),
			Enum("kind", "Receipt kind", "Essential", "Other"),
			Integer("score", "Score").Between(300, 850).Optional(),
			Array("items", "Purchased items", Object("item", "",
				String("description", "Line description"),
				Number("amount", "Line amount").AtLeast(0),
			)),
		},
	}
}

func decode(t *testing.T, raw string) any {
	t.Helper()
	var value any
	require.NoError(t, json.Unmarshal([]byte(raw), &value))
	return value
}

func paths(violations []Violation) []string {
	out := make([]string, 0, len(violations))
	for _, v := range violations {
		out = append(out, v.Path+"/"+v.Constraint)
	}
	return out
}

// TestValidateAcceptsConformingValue проверяет успешную валидацию.
func TestValidateAcceptsConformingValue(t *testing.T) {
	value := decode(t, `{"vendor":"ABC Store","date":"2024-03-15","total":450,"kind":"Essential","items":[{"description":"Electricity","amount":450}]}`)

	assert.Empty(t, receiptSchema().Validate(value))
}

// TestValidateAcceptsEmptyArray проверяет, что пустой список позиций допустим.
func TestValidateAcceptsEmptyArray(t *testing.T) {
	value := decode(t, `{"vendor":"ABC","date":"2024-03-15","total":0,"kind":"Other","items":[]}`)

	assert.Empty(t, receiptSchema().Validate(value))
}

// TestValidateReportsEveryViolation проверяет, что собираются все нарушения.
func TestValidateReportsEveryViolation(t *testing.T) {
	value := decode(t, `{"date":"15/03/2024","total":-1,"kind":"Luxury","score":299.5,"items":[{"description":"x"},{"description":1,"amount":2}]}`)

	got := paths(receiptSchema().Validate(value))
	assert.ElementsMatch(t, []string{
		"vendor/required",
		"date/format",
		"total/range",
		"kind/enum",
		"score/type",
		"items[0].amount/required",
		"items[1].description/type",
	}, got)
}

// TestValidateRange проверяет границы диапазона.
func TestValidateRange(t *testing.T) {
	s := &Schema{Name: "score", Fields: []Field{Number("creditScore", "").Between(300, 850)}}

	assert.Empty(t, s.Validate(decode(t, `{"creditScore":300}`)))
	assert.Empty(t, s.Validate(decode(t, `{"creditScore":850}`)))

	violations := s.Validate(decode(t, `{"creditScore":851}`))
	require.Len(t, violations, 1)
	assert.Equal(t, ConstraintRange, violations[0].Constraint)
	assert.Equal(t, "must be between 300 and 850, got 851", violations[0].Message)
}

// TestValidateNonObjectRoot проверяет отказ для не-объекта.
func TestValidateNonObjectRoot(t *testing.T) {
	violations := receiptSchema().Validate(decode(t, `[1,2]`))
	require.Len(t, violations, 1)
	assert.Equal(t, ConstraintType, violations[0].Constraint)

	violations = receiptSchema().Validate(nil)
	require.Len(t, violations, 1)
	assert.Equal(t, ConstraintRequired, violations[0].Constraint)
}

// TestValidateNonBlank проверяет, что строка из пробелов считается пустой.
func TestValidateNonBlank(t *testing.T) {
	s := &Schema{Name: "q", Fields: []Field{String("question", "").NonBlank()}}

	violations := s.Validate(decode(t, `{"question":"   "}`))
	require.Len(t, violations, 1)
	assert.Equal(t, "question: must not be empty", violations[0].String())
}

// TestDateFormatRejectsImpossibleDate проверяет календарную проверку даты.
func TestDateFormatRejectsImpossibleDate(t *testing.T) {
	assert.NoError(t, Date.Check("2024-02-29"))
	assert.Error(t, Date.Check("2023-02-29"))
	assert.Error(t, Date.Check("2024-3-5"))
}

// TestDescribe проверяет текстовое описание схемы для промпта.
func TestDescribe(t *testing.T) {
	out := receiptSchema().Describe()

	assert.Contains(t, out, `"vendor": string // Vendor name`)
	assert.Contains(t, out, `"kind": "Essential" | "Other"`)
	assert.Contains(t, out, `"score": integer 300..850 // optional; Score`)
	assert.Contains(t, out, `"amount": number >= 0`)
	assert.Contains(t, out, `"date": string, date (YYYY-MM-DD)`)
}

// TestLookup проверяет поиск вложенного поля.
func TestLookup(t *testing.T) {
	s := &Schema{Name: "x", Fields: []Field{Object("personalInfo", "", Integer("age", "Age"))}}

	field, ok := s.Lookup("personalInfo", "age")
	require.True(t, ok)
	assert.Equal(t, KindInteger, field.Kind)

	_, ok = s.Lookup("personalInfo", "missing")
	assert.False(t, ok)
}
