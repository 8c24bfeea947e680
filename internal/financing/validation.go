package financing

// Field bounds enforced on listings. Names mirror what the marketplace UI
// allows; URIs point at the asset metadata document.
const (
	maxNameLength = 32
	maxURILength  = 200
)

// ValidateName checks the equipment/vendor display name bounds.
func ValidateName(name string) error {
	if len(name) == 0 || len(name) > maxNameLength {
		return ErrInvalidName
	}
	return nil
}

// ValidateURI checks the metadata URI bounds.
func ValidateURI(uri string) error {
	if len(uri) == 0 || len(uri) > maxURILength {
		return ErrInvalidURI
	}
	return nil
}

// ValidatePrice rejects zero prices and deposits.
func ValidatePrice(price uint64) error {
	if price == 0 {
		return ErrInvalidPrice
	}
	return nil
}

// ValidateDuration rejects non-positive financing durations.
func ValidateDuration(seconds int64) error {
	if seconds <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

// ValidateInsurancePremium rejects a present-but-zero premium. A nil premium
// means the contract is uninsured, which is always valid; zero is not a
// legitimate premium.
func ValidateInsurancePremium(premium *uint64) error {
	if premium != nil && *premium == 0 {
		return ErrInvalidInsurancePremium
	}
	return nil
}

// ValidateQuantity rejects zero unit counts.
func ValidateQuantity(quantity uint64) error {
	if quantity == 0 {
		return ErrInvalidQuantity
	}
	return nil
}
