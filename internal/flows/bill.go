package flows

import (
	"fmt"
	"text/template"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/ai"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/datauri"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/schema"
)

const BillParsingName = "bill_parsing"

const (
	CategoryEssential     = "Essential"
	CategoryDiscretionary = "Discretionary"
	CategoryUtilities     = "Utilities"
	CategoryHealthcare    = "Healthcare"
	CategoryEducation     = "Education"
	CategoryOther         = "Other"
)

// BillCategories lists the closed set of bill categories in display order.
var BillCategories = []string{
	CategoryEssential,
	CategoryDiscretionary,
	CategoryUtilities,
	CategoryHealthcare,
	CategoryEducation,
	CategoryOther,
}

// IsBillCategory сообщает, входит ли значение в набор категорий.
func IsBillCategory(value string) bool {
	for _, category := range BillCategories {
		if category == value {
			return true
		}
	}
	return false
}

type BillParseRequest struct {
	PhotoDataURI string `json:"photoDataUri"`
}

type LineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

type BillParseResult struct {
	VendorName      string     `json:"vendorName"`
	TransactionDate string     `json:"transactionDate"`
	TotalAmount     float64    `json:"totalAmount"`
	Category        string     `json:"category"`
	LineItems       []LineItem `json:"lineItems"`
}

// DataURI checks the data:<mime>;base64,<payload> shape and the image payload.
var DataURI = schema.Format{Name: "data URI (data:<mime>;base64,<payload>)", Check: datauri.Validate}

var BillParseInput = &schema.Schema{
	Name:        "BillParseRequest",
	Description: "A photo of a bill or receipt",
	Fields: []schema.Field{
		schema.String("photoDataUri", "A photo of a bill or receipt as a base64 data URI (PNG, JPEG or WEBP)").WithFormat(DataURI),
	},
}

var BillParseOutput = &schema.Schema{
	Name:        "BillParseResult",
	Description: "Structured data extracted from a bill",
	Fields: []schema.Field{
		schema.String("vendorName", "The name of the vendor or store"),
		schema.String("transactionDate", "The date of the transaction").WithFormat(schema.Date),
		schema.Number("totalAmount", "The total amount of the bill").AtLeast(0),
		schema.Enum("category", "The primary category of the expenditure", BillCategories...),
		schema.Array("lineItems", "The items purchased, in bill order",
			schema.Object("", "",
				schema.String("description", "The description of the line item"),
				schema.Number("amount", "The amount for the line item").AtLeast(0),
			),
		),
	},
}

var billParseTemplate = template.Must(template.New(BillParsingName).Parse(`
You are an expert OCR system for parsing Indian receipts and bills.
Analyze the attached image of a bill and extract:
- Vendor name
- Transaction date (YYYY-MM-DD)
- Total amount
- All line items with their descriptions and amounts
- A primary category for the overall purchase (Essential, Discretionary, Utilities, Healthcare, Education, Other)

Return JSON with exactly these fields:
{{.OutputSchema}}
`))

type BillParsing = Flow[BillParseRequest, BillParseResult]

// NewBillParsing создает флоу распознавания чеков. Фото передается модели как вложение.
func NewBillParsing(client ai.Client, opts Options) *BillParsing {
	return New(Definition[BillParseRequest, BillParseResult]{
		Name:     BillParsingName,
		Input:    BillParseInput,
		Output:   BillParseOutput,
		Template: billParseTemplate,
		Media: func(in BillParseRequest) ([]ai.Media, error) {
			uri, err := datauri.Parse(in.PhotoDataURI)
			if err != nil {
				return nil, err
			}
			return []ai.Media{{MIMEType: uri.MIMEType, Data: uri.Data}}, nil
		},
		Redact: func(in BillParseRequest) BillParseRequest {
			uri, err := datauri.Parse(in.PhotoDataURI)
			if err != nil {
				return BillParseRequest{PhotoDataURI: "<invalid>"}
			}
			return BillParseRequest{PhotoDataURI: fmt.Sprintf("data:%s;base64,<%d bytes>", uri.MIMEType, len(uri.Data))}
		},
	}, client, opts)
}
