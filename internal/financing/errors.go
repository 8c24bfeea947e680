package financing

import "errors"

// ErrorKind classifies a domain error for callers: validation errors are
// caller-correctable, state conflicts require a re-query before retry,
// arithmetic errors are bugs, authorization errors are fatal for the
// operation, and external errors are safe to retry whole since no partial
// state was persisted.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindStateConflict ErrorKind = "state_conflict"
	KindArithmetic    ErrorKind = "arithmetic"
	KindAuthorization ErrorKind = "authorization"
	KindExternal      ErrorKind = "external_dependency"
)

// DomainError is a taxonomy-tagged error returned by the financing service.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func newErr(kind ErrorKind, code, msg string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: msg}
}

// KindOf returns the taxonomy kind of err, or KindExternal for errors that
// did not originate in this package (repository failures, collaborator
// failures).
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindExternal
}

var (
	// Validation
	ErrInvalidName             = newErr(KindValidation, "INVALID_NAME", "name must be 1-32 characters")
	ErrInvalidURI              = newErr(KindValidation, "INVALID_URI", "uri must be 1-200 characters")
	ErrInvalidPrice            = newErr(KindValidation, "INVALID_PRICE", "price must be greater than zero")
	ErrInvalidDuration         = newErr(KindValidation, "INVALID_DURATION", "duration must be greater than zero")
	ErrInvalidAmount           = newErr(KindValidation, "INVALID_AMOUNT", "total amount must exceed the deposit")
	ErrInvalidFrequency        = newErr(KindValidation, "INVALID_FREQUENCY", "installment frequency must be positive")
	ErrInvalidInsurancePremium = newErr(KindValidation, "INVALID_INSURANCE_PREMIUM", "insurance premium must be greater than zero when present")
	ErrInvalidPaymentAmount    = newErr(KindValidation, "INVALID_PAYMENT_AMOUNT", "payment amount must be greater than zero")
	ErrInvalidQuantity         = newErr(KindValidation, "INVALID_QUANTITY", "quantity must be greater than zero")
	ErrInvalidFunderPrice      = newErr(KindValidation, "INVALID_FUNDER_PRICE", "funder price must not be below the listing price")
	ErrDepositBelowMinimum     = newErr(KindValidation, "DEPOSIT_BELOW_MINIMUM", "deposit is below the minimum set by the payee")
	ErrTooManyInstallments     = newErr(KindValidation, "TOO_MANY_INSTALLMENTS", "installment count exceeds the supported range")

	// State conflicts
	ErrOutOfStock               = newErr(KindStateConflict, "OUT_OF_STOCK", "no vendor-addressable units remain")
	ErrNoFundedUnitsAvailable   = newErr(KindStateConflict, "NO_FUNDED_UNITS_AVAILABLE", "all funder-committed units are sold")
	ErrNoAvailableFunder        = newErr(KindStateConflict, "NO_AVAILABLE_FUNDER", "no funding offer from this funder has remaining quantity")
	ErrInsufficientQuantity     = newErr(KindStateConflict, "INSUFFICIENT_QUANTITY", "not enough uncommitted units to fund")
	ErrEquipmentNotAvailable    = newErr(KindStateConflict, "EQUIPMENT_NOT_AVAILABLE", "equipment is not available for this operation")
	ErrInvalidPaymentPreference = newErr(KindStateConflict, "INVALID_PAYMENT_PREFERENCE", "equipment does not accept funder commitments")
	ErrContractCompleted        = newErr(KindStateConflict, "CONTRACT_ALREADY_COMPLETED", "the contract is already completed")
	ErrOverpayment              = newErr(KindStateConflict, "OVERPAYMENT", "payment exceeds the remaining balance")
	ErrFundsAlreadyReleased     = newErr(KindStateConflict, "FUNDS_ALREADY_RELEASED", "escrow funds were already released")
	ErrInvalidDeliveryStatus    = newErr(KindStateConflict, "INVALID_DELIVERY_STATUS", "equipment delivery is not pending")
	ErrInvalidEscrow            = newErr(KindStateConflict, "INVALID_ESCROW", "escrow is not linked to a funding offer")
	ErrBorrowerExists           = newErr(KindStateConflict, "BORROWER_EXISTS", "borrower is already onboarded")

	// Arithmetic
	ErrMathOverflow = newErr(KindArithmetic, "MATH_OVERFLOW", "math operation resulted in overflow")

	// Authorization
	ErrInvalidPayee       = newErr(KindAuthorization, "INVALID_PAYEE", "payee does not match the resolved payee")
	ErrUnauthorized       = newErr(KindAuthorization, "UNAUTHORIZED", "caller is not permitted to perform this operation")
	ErrUnauthorizedBuyer  = newErr(KindAuthorization, "UNAUTHORIZED_BUYER", "caller is not the contract borrower")

	// External dependencies
	ErrClockUnavailable = newErr(KindExternal, "CLOCK_UNAVAILABLE", "trusted clock is unavailable")
	ErrTransferFailed   = newErr(KindExternal, "TRANSFER_FAILED", "value transfer failed")

	// Lookups
	ErrEquipmentNotFound = newErr(KindStateConflict, "EQUIPMENT_NOT_FOUND", "equipment not found")
	ErrContractNotFound  = newErr(KindStateConflict, "CONTRACT_NOT_FOUND", "contract not found")
	ErrBorrowerNotFound  = newErr(KindStateConflict, "BORROWER_NOT_FOUND", "borrower not found")
	ErrEscrowNotFound    = newErr(KindStateConflict, "ESCROW_NOT_FOUND", "escrow not found")
)

// checked arithmetic over the uint64 monetary domain

func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrMathOverflow
	}
	return sum, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrMathOverflow
	}
	return a - b, nil
}

func checkedMul(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	prod := a * b
	if prod/a != b {
		return 0, ErrMathOverflow
	}
	return prod, nil
}

func checkedAddI64(a, b int64) (int64, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, ErrMathOverflow
	}
	return sum, nil
}

func checkedSubI64(a, b int64) (int64, error) {
	diff := a - b
	if (b > 0 && diff > a) || (b < 0 && diff < a) {
		return 0, ErrMathOverflow
	}
	return diff, nil
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
