package financing

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"partpay/financing-portal/financing-portal-backend/internal/treasury"
	"partpay/financing-portal/financing-portal-backend/pkg/derive"
)

// FundEquipmentRequest is a funder buyout of unsold inventory. The funder
// pays the vendor up front and the units are then sold on installments under
// the funder's terms.
type FundEquipmentRequest struct {
	FunderID        uuid.UUID `json:"funder_id"`
	EquipmentID     uuid.UUID `json:"equipment_id"`
	Quantity        uint64    `json:"quantity"`
	MinimumDeposit  uint64    `json:"minimum_deposit"`
	DurationSeconds int64     `json:"duration_seconds"`
	FunderPrice     uint64    `json:"funder_price"`
}

// FundEquipment pays the vendor directly for a block of units and records the
// funder's resale terms. A listing accepts at most one buyout; afterwards it
// only sells on installments.
func (s *service) FundEquipment(ctx context.Context, req FundEquipmentRequest) (*Equipment, error) {
	equipment, err := s.repo.GetEquipment(ctx, req.EquipmentID)
	if err != nil {
		return nil, err
	}

	if equipment.FundedQuantity != 0 || equipment.PaymentPreference == PreferenceVendorOnly {
		return nil, ErrInvalidPaymentPreference
	}
	if req.FunderPrice < equipment.Price {
		return nil, ErrInvalidFunderPrice
	}
	if err := commitFunding(equipment, req.Quantity); err != nil {
		return nil, err
	}

	totalPayment, err := checkedMul(equipment.Price, req.Quantity)
	if err != nil {
		return nil, err
	}

	if err := s.transfer.Transfer(ctx, treasury.TransferRequest{
		From:   req.FunderID,
		To:     equipment.VendorID,
		Mint:   s.cfg.StablecoinMint,
		Amount: totalPayment,
	}); err != nil {
		s.logger.Error("funding transfer failed",
			zap.String("equipment_id", equipment.ID.String()),
			zap.Uint64("amount", totalPayment),
			zap.Error(err))
		return nil, ErrTransferFailed
	}

	offer := &FunderOffer{
		ID:              uuid.New(),
		EquipmentID:     equipment.ID,
		FunderID:        req.FunderID,
		Quantity:        req.Quantity,
		MinimumDeposit:  req.MinimumDeposit,
		DurationSeconds: req.DurationSeconds,
		FunderPrice:     req.FunderPrice,
		Position:        len(equipment.Funders),
	}
	equipment.Status = EquipmentStatusFunded
	equipment.PaymentPreference = PreferenceVendorOnly

	err = s.repo.Transact(ctx, func(tx Repository) error {
		if err := tx.CreateFunderOffer(ctx, offer); err != nil {
			return err
		}
		return tx.SaveEquipment(ctx, equipment)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("equipment funded",
		zap.String("equipment_id", equipment.ID.String()),
		zap.String("funder_id", req.FunderID.String()),
		zap.Uint64("quantity", req.Quantity),
		zap.Uint64("total_payment", totalPayment))
	s.publish(Event{
		Type:        EventEquipmentFunded,
		EquipmentID: equipment.ID,
		Amount:      totalPayment,
		At:          s.eventTime(ctx),
	})
	equipment.Funders = append(equipment.Funders, *offer)
	return equipment, nil
}

// FundForBorrowerRequest escrows a funder's full payment for units reserved
// for a specific borrower. Zero MinimumDeposit and DurationSeconds express an
// outright purchase on the borrower's behalf rather than resale terms.
type FundForBorrowerRequest struct {
	FunderID        uuid.UUID `json:"funder_id"`
	EquipmentID     uuid.UUID `json:"equipment_id"`
	BorrowerID      uuid.UUID `json:"borrower_id"`
	UniqueID        uuid.UUID `json:"unique_id"`
	Quantity        uint64    `json:"quantity"`
	MinimumDeposit  uint64    `json:"minimum_deposit"`
	DurationSeconds int64     `json:"duration_seconds"`
}

func (s *service) FundEquipmentForBorrower(ctx context.Context, req FundForBorrowerRequest) (*Equipment, error) {
	return s.fundIntoEscrow(ctx, escrowFunding{
		funderID:        req.FunderID,
		equipmentID:     req.EquipmentID,
		borrowerID:      &req.BorrowerID,
		uniqueID:        req.UniqueID,
		quantity:        req.Quantity,
		minimumDeposit:  req.MinimumDeposit,
		durationSeconds: req.DurationSeconds,
		resultingStatus: EquipmentStatusReserved,
	})
}

// FundForListingRequest escrows a funder's full payment for units that stay
// on the open market under the funder's installment terms.
type FundForListingRequest struct {
	FunderID        uuid.UUID `json:"funder_id"`
	EquipmentID     uuid.UUID `json:"equipment_id"`
	UniqueID        uuid.UUID `json:"unique_id"`
	Quantity        uint64    `json:"quantity"`
	MinimumDeposit  uint64    `json:"minimum_deposit"`
	DurationSeconds int64     `json:"duration_seconds"`
}

func (s *service) FundEquipmentForListing(ctx context.Context, req FundForListingRequest) (*Equipment, error) {
	return s.fundIntoEscrow(ctx, escrowFunding{
		funderID:        req.FunderID,
		equipmentID:     req.EquipmentID,
		uniqueID:        req.UniqueID,
		quantity:        req.Quantity,
		minimumDeposit:  req.MinimumDeposit,
		durationSeconds: req.DurationSeconds,
		resultingStatus: EquipmentStatusFunded,
	})
}

type escrowFunding struct {
	funderID        uuid.UUID
	equipmentID     uuid.UUID
	borrowerID      *uuid.UUID
	uniqueID        uuid.UUID
	quantity        uint64
	minimumDeposit  uint64
	durationSeconds int64
	resultingStatus EquipmentStatus
}

// fundIntoEscrow is the shared path for escrowed funder commitments: the full
// payment for the committed units moves into a fresh escrow, released to the
// vendor only when the funder confirms delivery.
func (s *service) fundIntoEscrow(ctx context.Context, f escrowFunding) (*Equipment, error) {
	equipment, err := s.repo.GetEquipment(ctx, f.equipmentID)
	if err != nil {
		return nil, err
	}
	if err := commitFunding(equipment, f.quantity); err != nil {
		return nil, err
	}

	totalPayment, err := checkedMul(equipment.Price, f.quantity)
	if err != nil {
		return nil, err
	}

	escrowOwner := f.funderID
	if f.borrowerID != nil {
		escrowOwner = *f.borrowerID
	}
	escrow := &Escrow{
		ID:          derive.ScopedKey(derive.SeedEscrow, equipment.ID, escrowOwner, f.uniqueID),
		EquipmentID: equipment.ID,
		DepositorID: f.funderID,
		VendorID:    equipment.VendorID,
		Amount:      totalPayment,
		IsReleased:  false,
	}

	if err := s.transfer.Transfer(ctx, treasury.TransferRequest{
		From:   f.funderID,
		To:     escrow.ID,
		Mint:   s.cfg.StablecoinMint,
		Amount: totalPayment,
	}); err != nil {
		s.logger.Error("escrowed funding transfer failed",
			zap.String("equipment_id", equipment.ID.String()),
			zap.Uint64("amount", totalPayment),
			zap.Error(err))
		return nil, ErrTransferFailed
	}

	escrowID := escrow.ID
	offer := &FunderOffer{
		ID:              uuid.New(),
		EquipmentID:     equipment.ID,
		FunderID:        f.funderID,
		Quantity:        f.quantity,
		MinimumDeposit:  f.minimumDeposit,
		DurationSeconds: f.durationSeconds,
		BorrowerID:      f.borrowerID,
		EscrowID:        &escrowID,
		Position:        len(equipment.Funders),
	}
	equipment.Status = f.resultingStatus
	equipment.DeliveryStatus = DeliveryStatusPending

	err = s.repo.Transact(ctx, func(tx Repository) error {
		if err := tx.CreateEscrow(ctx, escrow); err != nil {
			return err
		}
		if err := tx.CreateFunderOffer(ctx, offer); err != nil {
			return err
		}
		return tx.SaveEquipment(ctx, equipment)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("escrowed funding committed",
		zap.String("equipment_id", equipment.ID.String()),
		zap.String("funder_id", f.funderID.String()),
		zap.String("escrow_id", escrow.ID.String()),
		zap.Uint64("quantity", f.quantity),
		zap.Uint64("total_payment", totalPayment))
	s.publish(Event{
		Type:        EventEquipmentFunded,
		EquipmentID: equipment.ID,
		Amount:      totalPayment,
		At:          s.eventTime(ctx),
	})
	equipment.Funders = append(equipment.Funders, *offer)
	return equipment, nil
}
