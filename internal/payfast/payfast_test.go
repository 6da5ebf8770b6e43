package payfast

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheoDuToit1/sella/pkg/logger"
)

func newTestService() *Service {
	log := logger.New(logger.Config{Level: logger.LevelError, Format: "text", Output: "stderr"})
	return NewService(Config{
		MerchantID:  "10000100",
		MerchantKey: "46f0cd694581a",
		Passphrase:  "secret passphrase",
		Sandbox:     true,
	}, log)
}

func TestCreatePaymentFields(t *testing.T) {
	svc := newTestService()

	data := svc.CreatePayment(PaymentRequest{
		OrderID:       "ord-42",
		Amount:        150,
		CustomerEmail: "jane@example.com",
		CustomerName:  "Jane van der Merwe",
		ItemName:      "Order #ord-42",
		ReturnURL:     "https://shop.test/success",
		CancelURL:     "https://shop.test/cancel",
		NotifyURL:     "https://shop.test/notify",
	})

	assert.Equal(t, "ord-42", data["m_payment_id"])
	assert.Equal(t, "ord-42", data["custom_str1"])
	assert.Equal(t, "sella", data["custom_str2"])
	assert.Equal(t, "150.00", data["amount"])
	assert.Equal(t, "Jane", data["name_first"])
	assert.Equal(t, "van der Merwe", data["name_last"])

	// ItemDescription was empty: stripped, not sent as an empty pair.
	_, present := data["item_description"]
	assert.False(t, present)

	require.NotEmpty(t, data["signature"])
	assert.True(t, svc.ValidateSignature(data))
}

func TestCreatePaymentAmountFormatting(t *testing.T) {
	svc := newTestService()

	data := svc.CreatePayment(PaymentRequest{OrderID: "o1", Amount: 49.4945})
	assert.Equal(t, "49.49", data["amount"])

	data = svc.CreatePayment(PaymentRequest{OrderID: "o1", Amount: 7})
	assert.Equal(t, "7.00", data["amount"])
}

func TestPaymentURL(t *testing.T) {
	svc := newTestService()
	assert.Equal(t, "https://sandbox.payfast.co.za/eng/process", svc.PaymentURL())

	log := logger.New(logger.Config{Level: logger.LevelError, Format: "text", Output: "stderr"})
	live := NewService(Config{MerchantID: "1", MerchantKey: "k", Sandbox: false}, log)
	assert.Equal(t, "https://www.payfast.co.za/eng/process", live.PaymentURL())
}

func TestCreatePaymentLink(t *testing.T) {
	svc := newTestService()

	link := svc.CreatePaymentLink(PaymentRequest{OrderID: "ord-1", Amount: 25})
	assert.True(t, strings.HasPrefix(link, "https://sandbox.payfast.co.za/eng/process?"))
	assert.Contains(t, link, "m_payment_id=ord-1")
	assert.Contains(t, link, "signature=")
}

func TestValidatePayment(t *testing.T) {
	svc := newTestService()

	fields := map[string]string{
		"merchant_id":    "10000100",
		"m_payment_id":   "ord-9",
		"payment_status": "COMPLETE",
		"amount_gross":   "150.00",
		"pf_payment_id":  "1089250",
	}
	fields["signature"] = Sign(fields, "secret passphrase")

	v := svc.ValidatePayment(fields)
	require.True(t, v.IsValid)
	assert.Equal(t, "ord-9", v.OrderID)
	assert.Equal(t, "COMPLETE", v.PaymentStatus)
	assert.InDelta(t, 150.00, v.Amount, 0.001)
}

func TestValidatePaymentInvalidSignature(t *testing.T) {
	svc := newTestService()

	fields := map[string]string{
		"merchant_id":    "10000100",
		"m_payment_id":   "ord-9",
		"payment_status": "COMPLETE",
		"amount_gross":   "150.00",
	}
	fields["signature"] = Sign(fields, "secret passphrase")
	fields["amount_gross"] = "999.00"

	v := svc.ValidatePayment(fields)
	assert.False(t, v.IsValid)
	assert.Equal(t, "invalid signature", v.Err)
}

func TestValidatePaymentMissingSignature(t *testing.T) {
	svc := newTestService()

	v := svc.ValidatePayment(map[string]string{"merchant_id": "10000100"})
	assert.False(t, v.IsValid)
	assert.Equal(t, "invalid signature", v.Err)
}

func TestValidatePaymentMerchantMismatch(t *testing.T) {
	svc := newTestService()

	fields := map[string]string{
		"merchant_id":  "20000200",
		"m_payment_id": "ord-9",
	}
	fields["signature"] = Sign(fields, "secret passphrase")

	v := svc.ValidatePayment(fields)
	assert.False(t, v.IsValid)
	assert.Equal(t, "invalid merchant ID", v.Err)
}

func TestValidatePaymentOrderIDFallback(t *testing.T) {
	svc := newTestService()

	fields := map[string]string{
		"merchant_id": "10000100",
		"custom_str1": "ord-fallback",
	}
	fields["signature"] = Sign(fields, "secret passphrase")

	v := svc.ValidatePayment(fields)
	require.True(t, v.IsValid)
	assert.Equal(t, "ord-fallback", v.OrderID)
	assert.Zero(t, v.Amount)
}

func TestCreateDeltaPayment(t *testing.T) {
	svc := newTestService()

	data := svc.CreateDeltaPayment(DeltaRequest{
		OriginalOrderID: "ord-7",
		DeltaAmount:     -4.4995,
		CustomerEmail:   "jane@example.com",
		CustomerName:    "Jane",
	})

	// Charged amount is the absolute delta regardless of direction.
	assert.Equal(t, "4.50", data["amount"])

	deltaID := data["m_payment_id"]
	require.True(t, strings.HasPrefix(deltaID, "ord-7-DELTA-"))

	suffix := strings.TrimPrefix(deltaID, "ord-7-DELTA-")
	_, err := strconv.ParseInt(suffix, 10, 64)
	assert.NoError(t, err, "delta suffix should be a millisecond timestamp")

	assert.Equal(t, "Weight Adjustment - Order #ord-7", data["item_name"])
	assert.True(t, svc.ValidateSignature(data))
}

func TestIsDeltaOrderID(t *testing.T) {
	original, isDelta := IsDeltaOrderID("ord-7-DELTA-1756600000000")
	assert.True(t, isDelta)
	assert.Equal(t, "ord-7", original)

	original, isDelta = IsDeltaOrderID("ord-7")
	assert.False(t, isDelta)
	assert.Equal(t, "ord-7", original)
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		full  string
		first string
		last  string
	}{
		{"Jane van der Merwe", "Jane", "van der Merwe"},
		{"Sipho Dlamini", "Sipho", "Dlamini"},
		{"Cher", "Cher", "Cher"},
		{"  padded name  ", "padded", "name"},
		{"", "", ""},
	}

	for _, tt := range tests {
		first, last := splitName(tt.full)
		assert.Equal(t, tt.first, first, "input %q", tt.full)
		assert.Equal(t, tt.last, last, "input %q", tt.full)
	}
}
