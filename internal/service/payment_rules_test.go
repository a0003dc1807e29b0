package service

import (
	"testing"

	"freightops/internal/apperr"
	"freightops/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBank() *BankDetails {
	return &BankDetails{
		HolderName:    "Ramesh Transport Co",
		AccountNumber: "001234567890",
		IFSC:          "HDFC0001234",
		BankName:      "HDFC Bank",
	}
}

func TestValidateBankDetails(t *testing.T) {
	assert.NoError(t, validateBankDetails(validBank()))

	t.Run("missing holder", func(t *testing.T) {
		d := validBank()
		d.HolderName = "  "
		err := validateBankDetails(d)
		assert.Equal(t, "bank_holder_required", apperr.CodeOf(err))
	})

	t.Run("short account number", func(t *testing.T) {
		d := validBank()
		d.AccountNumber = "12345"
		err := validateBankDetails(d)
		assert.Equal(t, "bank_account_invalid", apperr.CodeOf(err))
	})

	t.Run("account number with letters", func(t *testing.T) {
		d := validBank()
		d.AccountNumber = "12345ABC90"
		err := validateBankDetails(d)
		assert.Equal(t, "bank_account_invalid", apperr.CodeOf(err))
	})

	t.Run("bad ifsc", func(t *testing.T) {
		for _, ifsc := range []string{"HDFC1001234", "HDF00012345", "hdfc0001234", "HDFC000123"} {
			d := validBank()
			d.IFSC = ifsc
			err := validateBankDetails(d)
			assert.Equal(t, "bank_ifsc_invalid", apperr.CodeOf(err), ifsc)
		}
	})

	t.Run("nil details", func(t *testing.T) {
		err := validateBankDetails(nil)
		assert.Equal(t, "bank_details_required", apperr.CodeOf(err))
	})
}

func TestValidateUPIDetails(t *testing.T) {
	assert.NoError(t, validateUPIDetails(&UPIDetails{UpiID: "ramesh.transport@okhdfc"}))
	assert.NoError(t, validateUPIDetails(&UPIDetails{
		QRObjectKey:   "payments/qr/abc.png",
		QRFileName:    "qr.png",
		QRContentType: "image/png",
		QRSizeBytes:   2048,
	}))

	t.Run("empty", func(t *testing.T) {
		err := validateUPIDetails(&UPIDetails{})
		assert.Equal(t, "upi_details_required", apperr.CodeOf(err))
	})

	t.Run("bad handle", func(t *testing.T) {
		err := validateUPIDetails(&UPIDetails{UpiID: "not a handle"})
		assert.Equal(t, "upi_id_invalid", apperr.CodeOf(err))
	})

	t.Run("qr without metadata", func(t *testing.T) {
		err := validateUPIDetails(&UPIDetails{QRObjectKey: "payments/qr/abc.png"})
		assert.Equal(t, "upi_qr_metadata_required", apperr.CodeOf(err))
	})
}

func TestValidatePaymentDetailsDisjoint(t *testing.T) {
	upi := &UPIDetails{UpiID: "vendor@upi"}

	t.Run("bank with upi details", func(t *testing.T) {
		err := validatePaymentDetails(model.PaymentMethodBank, validBank(), upi)
		assert.Equal(t, "method_details_mismatch", apperr.CodeOf(err))
	})

	t.Run("upi with bank details", func(t *testing.T) {
		err := validatePaymentDetails(model.PaymentMethodUPI, validBank(), upi)
		assert.Equal(t, "method_details_mismatch", apperr.CodeOf(err))
	})

	t.Run("unknown method", func(t *testing.T) {
		err := validatePaymentDetails("cash", nil, nil)
		assert.Equal(t, "payment_method_invalid", apperr.CodeOf(err))
	})

	assert.NoError(t, validatePaymentDetails(model.PaymentMethodBank, validBank(), nil))
	assert.NoError(t, validatePaymentDetails(model.PaymentMethodUPI, nil, upi))
}

func TestReconcileFinalAmount(t *testing.T) {
	trip := decimal.NewFromInt(100000)
	advance := decimal.NewFromInt(30000)

	assert.NoError(t, reconcileFinalAmount(trip, advance, decimal.NewFromInt(70000)))

	t.Run("under balance", func(t *testing.T) {
		err := reconcileFinalAmount(trip, advance, decimal.NewFromInt(69999))
		require.Error(t, err)
		assert.Equal(t, "final_amount_invalid", apperr.CodeOf(err))
		assert.Equal(t, apperr.KindPrecondition, apperr.KindOf(err))
	})

	t.Run("over balance", func(t *testing.T) {
		err := reconcileFinalAmount(trip, advance, decimal.NewFromInt(70001))
		assert.Equal(t, "final_amount_invalid", apperr.CodeOf(err))
	})

	t.Run("non positive requested", func(t *testing.T) {
		err := reconcileFinalAmount(trip, advance, decimal.Zero)
		assert.Equal(t, "amount_invalid", apperr.CodeOf(err))
	})

	t.Run("advance covers whole amount", func(t *testing.T) {
		err := reconcileFinalAmount(trip, trip, decimal.NewFromInt(1))
		assert.Equal(t, "final_amount_invalid", apperr.CodeOf(err))
	})

	t.Run("fractional paise reconcile exactly", func(t *testing.T) {
		tripAmt := decimal.RequireFromString("84500.50")
		adv := decimal.RequireFromString("25350.15")
		assert.NoError(t, reconcileFinalAmount(tripAmt, adv, decimal.RequireFromString("59150.35")))
	})
}
