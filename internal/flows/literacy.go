package flows

import (
	"text/template"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/ai"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/schema"
)

const FinancialLiteracyName = "financial_literacy"

type LiteracyQuestion struct {
	Question string `json:"question"`
}

type LiteracyAnswer struct {
	Answer string `json:"answer"`
}

var LiteracyInput = &schema.Schema{
	Name: "FinancialLiteracyInput",
	Fields: []schema.Field{
		schema.String("question", "The user question about financial literacy").NonBlank(),
	},
}

var LiteracyOutput = &schema.Schema{
	Name: "FinancialLiteracyOutput",
	Fields: []schema.Field{
		schema.String("answer", "The answer to the user question").NonBlank(),
	},
}

var literacyTemplate = template.Must(template.New(FinancialLiteracyName).Parse(`
You are Nidhi, an assistant that helps users with financial literacy questions.
Give a clear, concise and helpful answer.

Question: {{.Input.Question}}

Return JSON with exactly these fields:
{{.OutputSchema}}
`))

type FinancialLiteracy = Flow[LiteracyQuestion, LiteracyAnswer]

// NewFinancialLiteracy создает флоу ассистента. История чата модели не передается.
func NewFinancialLiteracy(client ai.Client, opts Options) *FinancialLiteracy {
	return New(Definition[LiteracyQuestion, LiteracyAnswer]{
		Name:     FinancialLiteracyName,
		Input:    LiteracyInput,
		Output:   LiteracyOutput,
		Template: literacyTemplate,
	}, client, opts)
}

// Set groups the three flows behind one client.
type Set struct {
	CreditScoring     *CreditScoring
	BillParsing       *BillParsing
	FinancialLiteracy *FinancialLiteracy
}

// NewSet создает все флоу с общими опциями.
func NewSet(client ai.Client, opts Options) *Set {
	return &Set{
		CreditScoring:     NewCreditScoring(client, opts),
		BillParsing:       NewBillParsing(client, opts),
		FinancialLiteracy: NewFinancialLiteracy(client, opts),
	}
}
