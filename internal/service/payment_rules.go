package service

import (
	"regexp"
	"strings"

	"freightops/internal/apperr"
	"freightops/internal/model"

	"github.com/shopspring/decimal"
)

var (
	accountNumberRe = regexp.MustCompile(`^[0-9]{6,34}$`)
	ifscRe          = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	upiHandleRe     = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z]{2,64}$`)
)

// BankDetails is the bank payout detail set. All fields are required.
type BankDetails struct {
	HolderName    string `json:"holder_name"`
	AccountNumber string `json:"account_number"`
	IFSC          string `json:"ifsc"`
	BankName      string `json:"bank_name"`
}

// UPIDetails is the UPI payout detail set: a validated handle or an uploaded
// QR object reference with file metadata.
type UPIDetails struct {
	UpiID         string `json:"upi_id"`
	QRObjectKey   string `json:"qr_object_key"`
	QRFileName    string `json:"qr_file_name"`
	QRContentType string `json:"qr_content_type"`
	QRSizeBytes   int64  `json:"qr_size_bytes"`
}

func validateBankDetails(d *BankDetails) error {
	if d == nil {
		return apperr.Validation("bank_details_required", "bank method requires bank details")
	}
	if strings.TrimSpace(d.HolderName) == "" {
		return apperr.Validation("bank_holder_required", "account holder name is required")
	}
	if !accountNumberRe.MatchString(d.AccountNumber) {
		return apperr.Validation("bank_account_invalid", "account number must be 6-34 digits")
	}
	if !ifscRe.MatchString(d.IFSC) {
		return apperr.Validation("bank_ifsc_invalid", "IFSC must match AAAA0XXXXXX")
	}
	if strings.TrimSpace(d.BankName) == "" {
		return apperr.Validation("bank_name_required", "bank name is required")
	}
	return nil
}

func validateUPIDetails(d *UPIDetails) error {
	if d == nil {
		return apperr.Validation("upi_details_required", "upi method requires upi details")
	}
	hasHandle := d.UpiID != ""
	hasQR := d.QRObjectKey != ""
	if !hasHandle && !hasQR {
		return apperr.Validation("upi_details_required", "either a upi id or an uploaded QR reference is required")
	}
	if hasHandle && !upiHandleRe.MatchString(d.UpiID) {
		return apperr.Validation("upi_id_invalid", "upi id is not a valid handle")
	}
	if hasQR {
		if d.QRFileName == "" || d.QRContentType == "" || d.QRSizeBytes <= 0 {
			return apperr.Validation("upi_qr_metadata_required", "QR upload reference needs file name, content type and size")
		}
	}
	return nil
}

// validatePaymentDetails checks that the method's detail set is fully
// populated and the other method's set is absent.
func validatePaymentDetails(method string, bank *BankDetails, upi *UPIDetails) error {
	switch method {
	case model.PaymentMethodBank:
		if upi != nil {
			return apperr.Validation("method_details_mismatch", "bank method must not carry upi details")
		}
		return validateBankDetails(bank)
	case model.PaymentMethodUPI:
		if bank != nil {
			return apperr.Validation("method_details_mismatch", "upi method must not carry bank details")
		}
		return validateUPIDetails(upi)
	default:
		return apperr.Validation("payment_method_invalid", "payment method must be bank or upi")
	}
}

// reconcileFinalAmount checks the requested final amount against the trip
// amount minus the paid advance. Anything that does not reconcile exactly is
// rejected.
func reconcileFinalAmount(tripAmount, advancePaid, requested decimal.Decimal) error {
	if requested.LessThanOrEqual(decimal.Zero) {
		return apperr.Validation("amount_invalid", "amount must be positive")
	}
	balance := tripAmount.Sub(advancePaid)
	if balance.LessThanOrEqual(decimal.Zero) || !requested.Equal(balance) {
		return apperr.Precondition("final_amount_invalid", "final amount does not reconcile with trip amount minus paid advance")
	}
	return nil
}
