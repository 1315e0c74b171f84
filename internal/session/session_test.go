package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/datauri"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/flows"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/models"
)

var (
	samplePNG  = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	sampleJPEG = append([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 32)...)
)

var abcStore = flows.BillParseResult{
	VendorName:      "ABC Store",
	TransactionDate: "2024-03-15",
	TotalAmount:     450,
	Category:        flows.CategoryUtilities,
	LineItems:       []flows.LineItem{{Description: "Electricity", Amount: 450}},
}

func pngUpload() Upload {
	return Upload{Name: "bill.png", Size: int64(len(samplePNG)), Data: samplePNG}
}

type fakeParser struct {
	result flows.BillParseResult
	err    error
	calls  int
	inputs []flows.BillParseRequest
	during func()
}

func (f *fakeParser) Invoke(ctx context.Context, input flows.BillParseRequest) (flows.BillParseResult, error) {
	f.calls++
	f.inputs = append(f.inputs, input)
	if f.during != nil {
		f.during()
	}
	return f.result, f.err
}

type fakeAssistant struct {
	answer string
	err    error
	during func()
}

func (f *fakeAssistant) Invoke(ctx context.Context, input flows.LiteracyQuestion) (flows.LiteracyAnswer, error) {
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return flows.LiteracyAnswer{}, f.err
	}
	return flows.LiteracyAnswer{Answer: f.answer}, nil
}

func pendingCapture(t *testing.T, opts CaptureOptions) *Capture {
	t.Helper()
	c := NewCapture(opts)
	require.NoError(t, c.Select(pngUpload(), flows.CategoryUtilities))
	_, err := c.BeginParse()
	require.NoError(t, err)
	require.NoError(t, c.CompleteParse(abcStore))
	require.Equal(t, StatePendingReview, c.State())
	return c
}

// TestConfirmAppendsExactlyOneBill проверяет подтверждение из PendingReview.
func TestConfirmAppendsExactlyOneBill(t *testing.T) {
	c := pendingCapture(t, CaptureOptions{RequireCategory: true})
	before := len(c.Bills())

	bill, err := c.Confirm("")
	require.NoError(t, err)

	assert.Equal(t, StateIdle, c.State())
	require.Len(t, c.Bills(), before+1)
	assert.Equal(t, abcStore, bill.BillParseResult)
	assert.Equal(t, flows.CategoryUtilities, bill.DetectedCategory)
	assert.Equal(t, bill, c.Bills()[0])
}

// TestConfirmOverrideCategory проверяет приоритет категории, выбранной при проверке.
func TestConfirmOverrideCategory(t *testing.T) {
	c := pendingCapture(t, CaptureOptions{})

	bill, err := c.Confirm(flows.CategoryEssential)
	require.NoError(t, err)
	assert.Equal(t, flows.CategoryEssential, bill.Category)
	assert.Equal(t, flows.CategoryUtilities, bill.DetectedCategory)

	c = pendingCapture(t, CaptureOptions{})
	_, err = c.Confirm("Groceries")
	assert.ErrorIs(t, err, ErrInvalidCategory)
	assert.Equal(t, StatePendingReview, c.State())
}

// TestConfirmUsesPreselectedCategory проверяет, что заранее выбранная категория важнее распознанной.
func TestConfirmUsesPreselectedCategory(t *testing.T) {
	c := NewCapture(CaptureOptions{RequireCategory: true})
	require.NoError(t, c.Select(pngUpload(), flows.CategoryHealthcare))
	_, err := c.BeginParse()
	require.NoError(t, err)
	require.NoError(t, c.CompleteParse(abcStore))

	bill, err := c.Confirm("")
	require.NoError(t, err)
	assert.Equal(t, flows.CategoryHealthcare, bill.Category)
}

// TestCancelFromPendingReviewKeepsBills проверяет отмену без изменения списка.
func TestCancelFromPendingReviewKeepsBills(t *testing.T) {
	c := pendingCapture(t, CaptureOptions{})
	_, err := c.Confirm("")
	require.NoError(t, err)

	require.NoError(t, c.Select(pngUpload(), ""))
	_, err = c.BeginParse()
	require.NoError(t, err)
	require.NoError(t, c.CompleteParse(abcStore))

	require.NoError(t, c.Cancel())
	assert.Equal(t, StateIdle, c.State())
	assert.Len(t, c.Bills(), 1)

	view := c.View()
	assert.Empty(t, view.FileName)
	assert.Nil(t, view.Pending)
}

// TestSelectRejectsLargeAndUnsupportedFiles проверяет, что отказ не меняет состояние.
func TestSelectRejectsLargeAndUnsupportedFiles(t *testing.T) {
	c := NewCapture(CaptureOptions{})

	err := c.Select(Upload{Name: "big.png", Size: 5 << 20, Data: samplePNG}, "")
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, StateIdle, c.State())

	err = c.Select(Upload{Name: "bill.gif", Size: 10, Data: []byte("GIF89a....")}, "")
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
	assert.Equal(t, StateIdle, c.State())

	require.NoError(t, c.Select(pngUpload(), ""))
	err = c.Select(Upload{Name: "big.jpg", Size: datauri.MaxImageBytes + 1, Data: sampleJPEG}, "")
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, "bill.png", c.View().FileName)
}

// TestSelectReplacesImage проверяет замену изображения в ImageSelected и запрет в PendingReview.
func TestSelectReplacesImage(t *testing.T) {
	c := NewCapture(CaptureOptions{})
	require.NoError(t, c.Select(pngUpload(), flows.CategoryOther))
	require.NoError(t, c.Select(Upload{Name: "bill.jpg", Size: int64(len(sampleJPEG)), Data: sampleJPEG}, ""))

	view := c.View()
	assert.Equal(t, "bill.jpg", view.FileName)
	assert.Equal(t, datauri.MIMEJPEG, view.MIMEType)
	assert.Equal(t, flows.CategoryOther, view.Category)

	c = pendingCapture(t, CaptureOptions{})
	assert.ErrorIs(t, c.Select(pngUpload(), ""), ErrInvalidTransition)
}

// TestBeginParseGuards проверяет обязательную категорию и согласие.
func TestBeginParseGuards(t *testing.T) {
	c := NewCapture(CaptureOptions{RequireCategory: true})
	_, err := c.BeginParse()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, c.Select(pngUpload(), ""))
	_, err = c.BeginParse()
	assert.ErrorIs(t, err, ErrCategoryRequired)
	assert.Equal(t, StateImageSelected, c.State())

	require.NoError(t, c.SetCategory(flows.CategoryEducation))
	uri, err := c.BeginParse()
	require.NoError(t, err)
	assert.Equal(t, datauri.Encode(datauri.MIMEPNG, samplePNG), uri)

	_, err = c.BeginParse()
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, c.Cancel(), ErrBusy)

	c = NewCapture(CaptureOptions{RequireConsent: true})
	require.NoError(t, c.Select(pngUpload(), ""))
	_, err = c.BeginParse()
	assert.ErrorIs(t, err, ErrConsentRequired)
	require.NoError(t, c.SetConsent(true))
	_, err = c.BeginParse()
	assert.NoError(t, err)
}

// TestFailParseRetainsSelection проверяет сохранение изображения и категории после ошибки.
func TestFailParseRetainsSelection(t *testing.T) {
	c := NewCapture(CaptureOptions{RequireCategory: true})
	require.NoError(t, c.Select(pngUpload(), flows.CategoryUtilities))
	_, err := c.BeginParse()
	require.NoError(t, err)

	require.NoError(t, c.FailParse(errors.New("could not read the document")))

	view := c.View()
	assert.Equal(t, StateImageSelected, view.State)
	assert.Equal(t, "bill.png", view.FileName)
	assert.Equal(t, flows.CategoryUtilities, view.Category)
	assert.Equal(t, "could not read the document", view.Error)
	assert.Empty(t, view.Bills)

	_, err = c.BeginParse()
	assert.NoError(t, err)
}

// TestBillsKeepConfirmationOrder проверяет порядок подтверждения и неизменность чеков.
func TestBillsKeepConfirmationOrder(t *testing.T) {
	c := NewCapture(CaptureOptions{})
	vendors := []string{"First", "Second", "Third"}
	for _, vendor := range vendors {
		require.NoError(t, c.Select(pngUpload(), ""))
		_, err := c.BeginParse()
		require.NoError(t, err)
		result := abcStore
		result.VendorName = vendor
		require.NoError(t, c.CompleteParse(result))
		_, err = c.Confirm("")
		require.NoError(t, err)
	}

	bills := c.Bills()
	require.Len(t, bills, 3)
	for i, vendor := range vendors {
		assert.Equal(t, vendor, bills[i].VendorName)
	}

	bills[0].VendorName = "Changed"
	bills[0].LineItems[0].Amount = 1
	assert.Equal(t, "First", c.Bills()[0].VendorName)
	assert.Equal(t, float64(450), c.Bills()[0].LineItems[0].Amount)
	assert.Equal(t, float64(450), abcStore.LineItems[0].Amount)
}

// TestSummary проверяет суммирование по категориям.
func TestSummary(t *testing.T) {
	c := NewCapture(CaptureOptions{})
	amounts := []struct {
		amount   float64
		category string
	}{
		{0.1, flows.CategoryEssential},
		{0.2, flows.CategoryEssential},
		{450, flows.CategoryUtilities},
	}
	for _, entry := range amounts {
		require.NoError(t, c.Select(pngUpload(), ""))
		_, err := c.BeginParse()
		require.NoError(t, err)
		result := abcStore
		result.TotalAmount = entry.amount
		require.NoError(t, c.CompleteParse(result))
		_, err = c.Confirm(entry.category)
		require.NoError(t, err)
	}

	summary := c.Summary()
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, "450.3", summary.Total.String())
	require.Len(t, summary.Categories, 2)
	assert.Equal(t, flows.CategoryEssential, summary.Categories[0].Category)
	assert.Equal(t, "0.3", summary.Categories[0].Total.String())

	spending := summary.SpendingSummary()
	assert.Equal(t, []flows.SpendingCategory{
		{Category: flows.CategoryEssential, Total: 0.3},
		{Category: flows.CategoryUtilities, Total: 450},
	}, spending)
}

// TestSessionParseBill проверяет полный цикл через сессию.
func TestSessionParseBill(t *testing.T) {
	store := NewStore(StoreOptions{})
	sess := store.Create(KindRegistration, nil)

	require.NoError(t, sess.WithCapture(func(c *Capture) error {
		return c.Select(pngUpload(), flows.CategoryUtilities)
	}))

	parser := &fakeParser{result: abcStore}
	result, err := sess.ParseBill(context.Background(), parser)
	require.NoError(t, err)
	assert.Equal(t, abcStore, result)
	assert.Equal(t, StatePendingReview, sess.CaptureView().State)
	assert.Equal(t, datauri.Encode(datauri.MIMEPNG, samplePNG), parser.inputs[0].PhotoDataURI)

	require.NoError(t, sess.WithCapture(func(c *Capture) error {
		_, err := c.Confirm("")
		return err
	}))
	assert.Len(t, sess.Bills(), 1)
}

// TestSessionParseBillFailure проверяет возврат в ImageSelected после ошибки флоу.
func TestSessionParseBillFailure(t *testing.T) {
	store := NewStore(StoreOptions{})
	sess := store.Create(KindRegistration, nil)
	require.NoError(t, sess.WithCapture(func(c *Capture) error {
		return c.Select(pngUpload(), flows.CategoryUtilities)
	}))

	upstream := &flows.UpstreamUnavailableError{Flow: flows.BillParsingName, Cause: errors.New("timeout")}
	_, err := sess.ParseBill(context.Background(), &fakeParser{err: upstream})
	assert.ErrorAs(t, err, &upstream)

	view := sess.CaptureView()
	assert.Equal(t, StateImageSelected, view.State)
	assert.Equal(t, flows.CategoryUtilities, view.Category)
	assert.Empty(t, view.Bills)
}

// TestSessionBusyGuard проверяет запрет второго вызова модели во время первого.
func TestSessionBusyGuard(t *testing.T) {
	store := NewStore(StoreOptions{})
	sess := store.Create(KindUser, &models.User{Name: "Aarav"})
	require.NoError(t, sess.WithCapture(func(c *Capture) error {
		if err := c.SetConsent(true); err != nil {
			return err
		}
		return c.Select(pngUpload(), "")
	}))

	var askErr, cancelErr error
	parser := &fakeParser{result: abcStore, during: func() {
		_, askErr = sess.Ask(context.Background(), &fakeAssistant{answer: "hi"}, "What is EMI?")
		cancelErr = sess.WithCapture(func(c *Capture) error { return c.Cancel() })
	}}

	_, err := sess.ParseBill(context.Background(), parser)
	require.NoError(t, err)
	assert.ErrorIs(t, askErr, ErrBusy)
	assert.ErrorIs(t, cancelErr, ErrBusy)

	release, err := sess.Acquire()
	require.NoError(t, err)
	_, err = sess.Acquire()
	assert.ErrorIs(t, err, ErrBusy)
	release()
	release2, err := sess.Acquire()
	require.NoError(t, err)
	release2()
}

// TestChatTranscript проверяет приветствие, ответ и извинение при ошибке.
func TestChatTranscript(t *testing.T) {
	store := NewStore(StoreOptions{})
	sess := store.Create(KindUser, nil)

	turns := sess.Transcript()
	require.Len(t, turns, 1)
	assert.Equal(t, RoleAssistant, turns[0].Role)
	assert.Equal(t, Greeting, turns[0].Content)

	turn, err := sess.Ask(context.Background(), &fakeAssistant{answer: "An EMI is a fixed monthly payment."}, "What is EMI?")
	require.NoError(t, err)
	assert.Equal(t, "An EMI is a fixed monthly payment.", turn.Content)

	_, err = sess.Ask(context.Background(), &fakeAssistant{err: errors.New("down")}, "And interest?")
	assert.Error(t, err)

	_, err = sess.Ask(context.Background(), &fakeAssistant{answer: "x"}, "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	turns = sess.Transcript()
	require.Len(t, turns, 5)
	assert.Equal(t, []ChatRole{RoleAssistant, RoleUser, RoleAssistant, RoleUser, RoleAssistant}, []ChatRole{
		turns[0].Role, turns[1].Role, turns[2].Role, turns[3].Role, turns[4].Role,
	})
	assert.Equal(t, Apology, turns[4].Content)
}

// TestStoreExpiry проверяет истечение и очистку сессий.
func TestStoreExpiry(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	store := NewStore(StoreOptions{TTL: time.Minute})
	store.now = func() time.Time { return now }

	first := store.Create(KindUser, nil)
	second := store.Create(KindRegistration, nil)
	assert.Equal(t, 2, store.Len())

	now = now.Add(30 * time.Second)
	_, err := store.Get(first.ID)
	require.NoError(t, err)

	now = now.Add(45 * time.Second)
	_, err = store.Get(second.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 0, store.Sweep())
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 0, store.Len())

	store.Delete(first.ID)
	_, err = store.Get(first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
