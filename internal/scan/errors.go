package scan

import "errors"

// User-facing messages shown when local validation rejects an input.
const (
	MessageUnitNumberInvalid    = "Unit Number is invalid."
	MessageProductCodeInvalid   = "Product Code is invalid."
	MessageManualEntryForbidden = "Manual Entry Not Allowed."
	MessageCheckDigitRequired   = "Check digit is required"
	MessageCheckDigitInvalid    = "Invalid check digit"
	MessageEmptyInput           = "Scan or enter a value"
)

var (
	ErrEmptyInput         = errors.New("empty input")
	ErrInvalidUnitNumber  = errors.New("invalid unit number")
	ErrInvalidProductCode = errors.New("invalid product code")
	ErrManualEntry        = errors.New("manual entry not allowed")
	ErrCheckDigitRequired = errors.New("check digit required")
	ErrInvalidCheckDigit  = errors.New("invalid check digit format")
	ErrNoBarcode          = errors.New("no barcode found")
	ErrUnsupportedBarcode = errors.New("unsupported barcode content")
)

// InputError is a rejected input together with the field the operator should correct.
type InputError struct {
	Field   string
	Message string
	Err     error
}

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Unwrap() error { return e.Err }

func inputError(field, message string, err error) *InputError {
	return &InputError{Field: field, Message: message, Err: err}
}
