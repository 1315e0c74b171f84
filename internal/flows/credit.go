package flows

import (
	"text/template"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/ai"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/schema"
)

const CreditScoringName = "credit_scoring"

const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

type PersonalInfo struct {
	Age        int    `json:"age"`
	Location   string `json:"location"`
	Occupation string `json:"occupation"`
}

// SpendingCategory is the total of confirmed bills in one category.
type SpendingCategory struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

type FinancialInfo struct {
	Income          float64            `json:"income"`
	CreditHistory   string             `json:"creditHistory"`
	LoanAmount      float64            `json:"loanAmount"`
	SpendingSummary []SpendingCategory `json:"spendingSummary,omitempty"`
}

type CreditScoreRequest struct {
	PersonalInfo  PersonalInfo  `json:"personalInfo"`
	FinancialInfo FinancialInfo `json:"financialInfo"`
}

type CreditScoreResult struct {
	CreditScore float64 `json:"creditScore"`
	RiskLevel   string  `json:"riskLevel"`
	Insights    string  `json:"insights"`
}

var CreditScoreInput = &schema.Schema{
	Name:        "CreditScoreRequest",
	Description: "Personal and financial information of a loan beneficiary",
	Fields: []schema.Field{
		schema.Object("personalInfo", "Personal information of the beneficiary",
			schema.Integer("age", "Age of the beneficiary").AtLeast(0),
			schema.String("location", "Location of the beneficiary"),
			schema.String("occupation", "Occupation of the beneficiary"),
		),
		schema.Object("financialInfo", "Financial information of the beneficiary",
			schema.Number("income", "Monthly income of the beneficiary").AtLeast(0),
			schema.String("creditHistory", "Credit history of the beneficiary"),
			schema.Number("loanAmount", "Requested loan amount").AtLeast(0),
			schema.Array("spendingSummary", "Totals of confirmed bills per category",
				schema.Object("", "",
					schema.String("category", "Bill category"),
					schema.Number("total", "Total amount spent").AtLeast(0),
				),
			).Optional(),
		),
	},
}

var CreditScoreOutput = &schema.Schema{
	Name:        "CreditScoreResult",
	Description: "Composite credit score of the beneficiary",
	Fields: []schema.Field{
		schema.Number("creditScore", "The composite credit score calculated by the AI").Between(300, 850),
		schema.Enum("riskLevel", "The risk level associated with the credit score", RiskLow, RiskMedium, RiskHigh),
		schema.String("insights", "Insights and recommendations based on the credit score"),
	},
}

var creditScoreTemplate = template.Must(template.New(CreditScoringName).Parse(`
You are an AI-powered credit scoring system for NBCFDC beneficiaries.
Calculate a composite credit score based on the personal and financial information provided.

Personal Information:
Age: {{.Input.PersonalInfo.Age}}
Location: {{.Input.PersonalInfo.Location}}
Occupation: {{.Input.PersonalInfo.Occupation}}

Financial Information:
Income: {{.Input.FinancialInfo.Income}}
Credit History: {{.Input.FinancialInfo.CreditHistory}}
Loan Amount: {{.Input.FinancialInfo.LoanAmount}}
{{- with .Input.FinancialInfo.SpendingSummary}}

Confirmed bill spending by category:
{{- range .}}
- {{.Category}}: {{.Total}}
{{- end}}
{{- end}}

Determine the credit score, the risk level (Low, Medium, High) and provide clear, concise insights.
creditScore must be a number between 300 and 850.

Return JSON with exactly these fields:
{{.OutputSchema}}
`))

type CreditScoring = Flow[CreditScoreRequest, CreditScoreResult]

// NewCreditScoring создает флоу композитного кредитного скоринга.
func NewCreditScoring(client ai.Client, opts Options) *CreditScoring {
	return New(Definition[CreditScoreRequest, CreditScoreResult]{
		Name:     CreditScoringName,
		Input:    CreditScoreInput,
		Output:   CreditScoreOutput,
		Template: creditScoreTemplate,
	}, client, opts)
}
