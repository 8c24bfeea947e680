package financing

import "github.com/google/uuid"

// Inventory operations mutate an Equipment snapshot in memory; the service
// persists the snapshot only after every fallible step of the surrounding
// operation (including the external transfer) has succeeded. The host's
// per-record serialization guarantees no two operations interleave on the
// same equipment record.

// reserveVendorUnit allocates one unit from the vendor-addressable partition
// and returns the vendor terms that govern the resulting contract.
func reserveVendorUnit(e *Equipment) (minDeposit uint64, durationSeconds int64, err error) {
	if e.SoldQuantity >= e.VendorAddressableQuantity() {
		return 0, 0, ErrOutOfStock
	}
	e.SoldQuantity++
	return e.MinimumDeposit, e.MaxDurationSeconds, nil
}

// reserveFunderUnit allocates one unit against the given funder's offer and
// returns the matched offer, whose terms are authoritative for the contract.
// The first offer in insertion order with remaining quantity wins.
func reserveFunderUnit(e *Equipment, funderID uuid.UUID) (*FunderOffer, error) {
	if e.FundedQuantity <= e.FundedSoldQuantity {
		return nil, ErrNoFundedUnitsAvailable
	}
	for i := range e.Funders {
		offer := &e.Funders[i]
		if offer.FunderID == funderID && offer.Quantity > 0 {
			e.FundedSoldQuantity++
			return offer, nil
		}
	}
	return nil, ErrNoAvailableFunder
}

// commitFunding reserves uncommitted inventory for a funder. The committed
// units leave the vendor-addressable partition.
func commitFunding(e *Equipment, quantity uint64) error {
	if err := ValidateQuantity(quantity); err != nil {
		return err
	}
	available := e.TotalQuantity - e.FundedQuantity - e.SoldQuantity
	if quantity > available {
		return ErrInsufficientQuantity
	}
	switch e.Status {
	case EquipmentStatusAvailable, EquipmentStatusReserved, EquipmentStatusFunded:
	default:
		return ErrEquipmentNotAvailable
	}
	e.FundedQuantity += quantity
	return nil
}

// recomputeSaleStatus updates equipment status after a unit sale. Fully sold
// vendor capacity with open funder capacity yields PartiallySold; exhausting
// every unit yields Sold.
func recomputeSaleStatus(e *Equipment) {
	switch {
	case e.SoldQuantity+e.FundedSoldQuantity == e.TotalQuantity:
		e.Status = EquipmentStatusSold
	case e.SoldQuantity == e.VendorAddressableQuantity() && e.FundedQuantity > e.FundedSoldQuantity:
		e.Status = EquipmentStatusPartiallySold
	}
}
