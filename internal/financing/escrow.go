package financing

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"partpay/financing-portal/financing-portal-backend/internal/treasury"
)

// ConfirmDeliveryRequest is the borrower's acknowledgement that contracted
// equipment arrived, releasing the escrowed deposit to the contract payee.
type ConfirmDeliveryRequest struct {
	ContractID  uuid.UUID `json:"contract_id"`
	ConfirmerID uuid.UUID `json:"confirmer_id"`
}

// ConfirmDelivery releases the contract's escrow to the payee stored on the
// contract. Exactly one release per escrow; a second confirmation fails with
// ErrFundsAlreadyReleased and moves no money.
func (s *service) ConfirmDelivery(ctx context.Context, req ConfirmDeliveryRequest) error {
	contract, err := s.repo.GetContract(ctx, req.ContractID)
	if err != nil {
		return err
	}
	if contract.BorrowerID != req.ConfirmerID {
		return ErrUnauthorized
	}

	equipment, err := s.repo.GetEquipment(ctx, contract.EquipmentID)
	if err != nil {
		return err
	}
	escrow, err := s.repo.GetEscrow(ctx, contract.EscrowID)
	if err != nil {
		return err
	}

	if equipment.DeliveryStatus != DeliveryStatusPending {
		return ErrInvalidDeliveryStatus
	}
	if escrow.IsReleased {
		return ErrFundsAlreadyReleased
	}

	return s.releaseEscrow(ctx, equipment, escrow, contract.PayeeID)
}

// ConfirmFundedDeliveryRequest acknowledges delivery of funder-committed
// units. Either the funder or the bound borrower may confirm.
type ConfirmFundedDeliveryRequest struct {
	EscrowID    uuid.UUID `json:"escrow_id"`
	ConfirmerID uuid.UUID `json:"confirmer_id"`
}

// ConfirmFundedDelivery releases a funding escrow. When the funder confirms,
// the vendor is paid. When the bound borrower confirms, the payee depends on
// the offer: offers carrying resale terms repay the funder, outright
// purchases (zero deposit, zero duration) pay the vendor.
func (s *service) ConfirmFundedDelivery(ctx context.Context, req ConfirmFundedDeliveryRequest) error {
	escrow, err := s.repo.GetEscrow(ctx, req.EscrowID)
	if err != nil {
		return err
	}
	offer, err := s.repo.GetFunderOfferByEscrow(ctx, req.EscrowID)
	if err != nil {
		return err
	}
	equipment, err := s.repo.GetEquipment(ctx, escrow.EquipmentID)
	if err != nil {
		return err
	}

	isFunder := escrow.DepositorID == req.ConfirmerID
	isBoundBorrower := offer.BorrowerID != nil && *offer.BorrowerID == req.ConfirmerID
	if !isFunder && !isBoundBorrower {
		return ErrUnauthorized
	}
	if equipment.DeliveryStatus != DeliveryStatusPending {
		return ErrInvalidDeliveryStatus
	}
	if escrow.IsReleased {
		return ErrFundsAlreadyReleased
	}

	payeeID := escrow.VendorID
	if !isFunder && (offer.MinimumDeposit > 0 || offer.DurationSeconds > 0) {
		payeeID = escrow.DepositorID
	}

	return s.releaseEscrow(ctx, equipment, escrow, payeeID)
}

// releaseEscrow performs the single permitted release: transfer first, then
// persist the released flag and the delivery transition in one transaction.
func (s *service) releaseEscrow(ctx context.Context, equipment *Equipment, escrow *Escrow, payeeID uuid.UUID) error {
	if err := s.transfer.Transfer(ctx, treasury.TransferRequest{
		From:   escrow.ID,
		To:     payeeID,
		Mint:   s.cfg.StablecoinMint,
		Amount: escrow.Amount,
	}); err != nil {
		s.logger.Error("escrow release transfer failed",
			zap.String("escrow_id", escrow.ID.String()),
			zap.Uint64("amount", escrow.Amount),
			zap.Error(err))
		return ErrTransferFailed
	}

	equipment.DeliveryStatus = DeliveryStatusDelivered
	escrow.IsReleased = true

	err := s.repo.Transact(ctx, func(tx Repository) error {
		if err := tx.SaveEscrow(ctx, escrow); err != nil {
			return err
		}
		return tx.SaveEquipment(ctx, equipment)
	})
	if err != nil {
		return err
	}

	s.logger.Info("delivery confirmed",
		zap.String("equipment_id", equipment.ID.String()),
		zap.String("escrow_id", escrow.ID.String()),
		zap.String("payee_id", payeeID.String()),
		zap.Uint64("amount", escrow.Amount))
	s.publish(Event{
		Type:        EventDeliveryConfirmed,
		EquipmentID: equipment.ID,
		Amount:      escrow.Amount,
		At:          s.eventTime(ctx),
	})
	return nil
}

// UpdateDeliveryStatusRequest moves a listing's delivery state along the
// shipping workflow without touching escrow.
type UpdateDeliveryStatusRequest struct {
	EquipmentID uuid.UUID      `json:"equipment_id"`
	VendorID    uuid.UUID      `json:"vendor_id"`
	Status      DeliveryStatus `json:"status"`
}

// UpdateDeliveryStatus records shipping progress reported by the vendor.
// Transitions are constrained by the delivery workflow; the Delivered state
// is reachable only through escrow-releasing confirmation.
func (s *service) UpdateDeliveryStatus(ctx context.Context, req UpdateDeliveryStatusRequest) (*Equipment, error) {
	equipment, err := s.repo.GetEquipment(ctx, req.EquipmentID)
	if err != nil {
		return nil, err
	}
	if equipment.VendorID != req.VendorID {
		return nil, ErrUnauthorized
	}
	if req.Status == DeliveryStatusDelivered ||
		!s.delivery.CanTransition(string(equipment.DeliveryStatus), string(req.Status)) {
		return nil, ErrInvalidDeliveryStatus
	}

	equipment.DeliveryStatus = req.Status
	if err := s.repo.SaveEquipment(ctx, equipment); err != nil {
		return nil, err
	}
	return equipment, nil
}
