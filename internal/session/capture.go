package session

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/datauri"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/flows"
)

type State string

const (
	StateIdle          State = "idle"
	StateImageSelected State = "image_selected"
	StateParsing       State = "parsing"
	StatePendingReview State = "pending_review"
)

var (
	ErrInvalidTransition = errors.New("action is not allowed in the current bill state")
	ErrInvalidCategory   = errors.New("unknown bill category")
	ErrCategoryRequired  = errors.New("please select a category before parsing")
	ErrConsentRequired   = errors.New("please consent to bill analysis before parsing")
	ErrFileTooLarge      = datauri.ErrFileTooLarge
	ErrUnsupportedMedia  = datauri.ErrUnsupportedMedia
)

// Upload is a bill image as received from the client.
type Upload struct {
	Name string
	Size int64
	Data []byte
}

// CaptureOptions selects the guards of the capture variant: registration
// requires a category, the dashboard variant requires consent.
type CaptureOptions struct {
	RequireCategory bool
	RequireConsent  bool
	MaxImageBytes   int64
}

// ConfirmedBill is a parsed bill accepted by the user. It is never modified after confirmation.
type ConfirmedBill struct {
	ID uuid.UUID `json:"id"`
	flows.BillParseResult
	DetectedCategory string    `json:"detectedCategory"`
	ConfirmedAt      time.Time `json:"confirmedAt"`
}

type selectedImage struct {
	name     string
	mimeType string
	data     []byte
}

// Capture is the bill capture state machine:
// Idle -> ImageSelected -> Parsing -> PendingReview -> Idle.
type Capture struct {
	opts     CaptureOptions
	state    State
	image    *selectedImage
	category string
	consent  bool
	pending  *flows.BillParseResult
	lastErr  string
	bills    []ConfirmedBill
	now      func() time.Time
}

// NewCapture создает пустой автомат в состоянии Idle.
func NewCapture(opts CaptureOptions) *Capture {
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = datauri.MaxImageBytes
	}
	return &Capture{opts: opts, state: StateIdle, now: time.Now}
}

func (c *Capture) State() State {
	return c.state
}

// Select принимает изображение. Отказ по размеру или типу не меняет состояние.
// В ImageSelected новое изображение заменяет прежнее.
func (c *Capture) Select(upload Upload, category string) error {
	switch c.state {
	case StateParsing:
		return ErrBusy
	case StatePendingReview:
		return ErrInvalidTransition
	}

	category = strings.TrimSpace(category)
	if category != "" && !flows.IsBillCategory(category) {
		return ErrInvalidCategory
	}

	mimeType, err := datauri.CheckUpload(upload.Size, c.opts.MaxImageBytes, upload.Data)
	if err != nil {
		return err
	}

	c.image = &selectedImage{name: upload.Name, mimeType: mimeType, data: upload.Data}
	if category != "" {
		c.category = category
	}
	c.lastErr = ""
	c.state = StateImageSelected
	return nil
}

// SetCategory задает категорию до распознавания.
func (c *Capture) SetCategory(category string) error {
	switch c.state {
	case StateParsing:
		return ErrBusy
	case StatePendingReview:
		return ErrInvalidTransition
	}

	category = strings.TrimSpace(category)
	if category != "" && !flows.IsBillCategory(category) {
		return ErrInvalidCategory
	}
	c.category = category
	return nil
}

// SetConsent фиксирует согласие пользователя на анализ чека.
func (c *Capture) SetConsent(consent bool) error {
	if c.state == StateParsing {
		return ErrBusy
	}
	c.consent = consent
	return nil
}

// BeginParse переводит автомат в Parsing и возвращает data URI изображения.
func (c *Capture) BeginParse() (string, error) {
	switch c.state {
	case StateParsing:
		return "", ErrBusy
	case StateImageSelected:
	default:
		return "", ErrInvalidTransition
	}

	if c.opts.RequireCategory && c.category == "" {
		return "", ErrCategoryRequired
	}
	if c.opts.RequireConsent && !c.consent {
		return "", ErrConsentRequired
	}

	c.state = StateParsing
	c.lastErr = ""
	return datauri.Encode(c.image.mimeType, c.image.data), nil
}

// CompleteParse сохраняет результат распознавания для проверки пользователем.
func (c *Capture) CompleteParse(result flows.BillParseResult) error {
	if c.state != StateParsing {
		return ErrInvalidTransition
	}
	c.pending = &result
	c.state = StatePendingReview
	return nil
}

// FailParse возвращает автомат в ImageSelected, изображение и категория сохраняются.
func (c *Capture) FailParse(cause error) error {
	if c.state != StateParsing {
		return ErrInvalidTransition
	}
	if cause != nil {
		c.lastErr = cause.Error()
	}
	c.state = StateImageSelected
	return nil
}

// Confirm добавляет проверенный чек в список. Категория: override, затем выбранная заранее, затем распознанная.
func (c *Capture) Confirm(override string) (ConfirmedBill, error) {
	if c.state != StatePendingReview {
		return ConfirmedBill{}, ErrInvalidTransition
	}

	override = strings.TrimSpace(override)
	if override != "" && !flows.IsBillCategory(override) {
		return ConfirmedBill{}, ErrInvalidCategory
	}

	result := *c.pending
	result.LineItems = append([]flows.LineItem(nil), result.LineItems...)
	detected := result.Category
	switch {
	case override != "":
		result.Category = override
	case c.category != "":
		result.Category = c.category
	}

	bill := ConfirmedBill{
		ID:               uuid.New(),
		BillParseResult:  result,
		DetectedCategory: detected,
		ConfirmedAt:      c.now().UTC(),
	}
	c.bills = append(c.bills, bill)
	c.reset()
	return bill, nil
}

// Cancel сбрасывает выбранное изображение и ожидающий результат.
func (c *Capture) Cancel() error {
	if c.state == StateParsing {
		return ErrBusy
	}
	c.reset()
	return nil
}

func (c *Capture) reset() {
	c.state = StateIdle
	c.image = nil
	c.category = ""
	c.consent = false
	c.pending = nil
	c.lastErr = ""
}

// Bills возвращает копию подтвержденных чеков в порядке подтверждения.
func (c *Capture) Bills() []ConfirmedBill {
	out := make([]ConfirmedBill, len(c.bills))
	for i, bill := range c.bills {
		bill.LineItems = append([]flows.LineItem(nil), bill.LineItems...)
		out[i] = bill
	}
	return out
}

// CaptureView is the client-facing snapshot of the capture state.
type CaptureView struct {
	State      State                  `json:"state"`
	FileName   string                 `json:"fileName,omitempty"`
	MIMEType   string                 `json:"mimeType,omitempty"`
	Category   string                 `json:"category,omitempty"`
	Consent    bool                   `json:"consent"`
	Pending    *flows.BillParseResult `json:"pending,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Bills      []ConfirmedBill        `json:"bills"`
	Categories []string               `json:"categories"`
}

// View возвращает снимок состояния для ответа клиенту.
func (c *Capture) View() CaptureView {
	view := CaptureView{
		State:      c.state,
		Category:   c.category,
		Consent:    c.consent,
		Error:      c.lastErr,
		Bills:      c.Bills(),
		Categories: flows.BillCategories,
	}
	if c.image != nil {
		view.FileName = c.image.name
		view.MIMEType = c.image.mimeType
	}
	if c.pending != nil {
		pending := *c.pending
		view.Pending = &pending
	}
	return view
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
}

type BillSummary struct {
	Count      int             `json:"count"`
	Total      decimal.Decimal `json:"total"`
	Categories []CategoryTotal `json:"categories"`
}

// Summary суммирует подтвержденные чеки по категориям в порядке списка категорий.
func (c *Capture) Summary() BillSummary {
	totals := make(map[string]*CategoryTotal, len(flows.BillCategories))
	summary := BillSummary{Total: decimal.Zero}

	for _, bill := range c.bills {
		amount := decimal.NewFromFloat(bill.TotalAmount)
		entry, ok := totals[bill.Category]
		if !ok {
			entry = &CategoryTotal{Category: bill.Category, Total: decimal.Zero}
			totals[bill.Category] = entry
		}
		entry.Count++
		entry.Total = entry.Total.Add(amount)
		summary.Count++
		summary.Total = summary.Total.Add(amount)
	}

	for _, category := range flows.BillCategories {
		if entry, ok := totals[category]; ok {
			summary.Categories = append(summary.Categories, *entry)
		}
	}
	return summary
}

// SpendingSummary переводит сводку в вход флоу кредитного скоринга.
func (s BillSummary) SpendingSummary() []flows.SpendingCategory {
	if len(s.Categories) == 0 {
		return nil
	}
	out := make([]flows.SpendingCategory, 0, len(s.Categories))
	for _, entry := range s.Categories {
		total, _ := entry.Total.Float64()
		out = append(out, flows.SpendingCategory{Category: entry.Category, Total: total})
	}
	return out
}
