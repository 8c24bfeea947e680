package financing

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"partpay/financing-portal/financing-portal-backend/internal/treasury"
	"partpay/financing-portal/financing-portal-backend/pkg/derive"
)

// CreateContractRequest opens a BNPL contract for one equipment unit.
// FunderID selects the funder-financed path; when nil the vendor finances
// the sale directly.
type CreateContractRequest struct {
	BorrowerID       uuid.UUID            `json:"borrower_id"`
	EquipmentID      uuid.UUID            `json:"equipment_id"`
	UniqueID         uuid.UUID            `json:"unique_id"`
	TotalAmount      uint64               `json:"total_amount"`
	Deposit          uint64               `json:"deposit"`
	Frequency        InstallmentFrequency `json:"installment_frequency"`
	CustomFrequency  int64                `json:"custom_frequency_seconds,omitempty"`
	InsurancePremium *uint64              `json:"insurance_premium,omitempty"`
	FunderID         *uuid.UUID           `json:"funder_id,omitempty"`
}

// CreateContract resolves the payee, reserves a unit, escrows the deposit
// and opens the installment schedule. The deposit counts as the first paid
// installment. Nothing is persisted if the deposit transfer fails.
func (s *service) CreateContract(ctx context.Context, req CreateContractRequest) (*Contract, error) {
	if req.TotalAmount <= req.Deposit {
		return nil, ErrInvalidAmount
	}
	if err := ValidateInsurancePremium(req.InsurancePremium); err != nil {
		return nil, err
	}
	freqSeconds := frequencySeconds(req.Frequency, req.CustomFrequency)
	if freqSeconds <= 0 {
		return nil, ErrInvalidFrequency
	}

	equipment, err := s.repo.GetEquipment(ctx, req.EquipmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetBorrower(ctx, req.BorrowerID); err != nil {
		return nil, err
	}

	var (
		payeeID     uuid.UUID
		payeeType   PayeeType
		offerID     *uuid.UUID
		minDeposit  uint64
		duration    int64
	)
	if req.FunderID != nil {
		offer, err := reserveFunderUnit(equipment, *req.FunderID)
		if err != nil {
			return nil, err
		}
		payeeID = offer.FunderID
		payeeType = PayeeFunder
		id := offer.ID
		offerID = &id
		minDeposit = offer.MinimumDeposit
		duration = offer.DurationSeconds
	} else {
		if equipment.PaymentPreference == PreferenceFunderOnly {
			return nil, ErrInvalidPaymentPreference
		}
		minDeposit, duration, err = reserveVendorUnit(equipment)
		if err != nil {
			return nil, err
		}
		payeeID = equipment.VendorID
		payeeType = PayeeVendor
	}

	if req.Deposit < minDeposit {
		return nil, ErrDepositBelowMinimum
	}
	count, err := installmentCount(duration, freqSeconds)
	if err != nil {
		return nil, err
	}

	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, ErrClockUnavailable
	}
	startDate := now.Unix()
	endDate, err := checkedAddI64(startDate, duration)
	if err != nil {
		return nil, err
	}

	contractID := derive.ScopedKey(derive.SeedContract, req.BorrowerID, req.EquipmentID, req.UniqueID)
	escrow := &Escrow{
		ID:          derive.ScopedKey(derive.SeedEscrow, equipment.ID, req.BorrowerID, req.UniqueID),
		EquipmentID: equipment.ID,
		DepositorID: req.BorrowerID,
		VendorID:    equipment.VendorID,
		Amount:      req.Deposit,
		IsReleased:  false,
	}

	if err := s.transfer.Transfer(ctx, treasury.TransferRequest{
		From:   req.BorrowerID,
		To:     escrow.ID,
		Mint:   s.cfg.StablecoinMint,
		Amount: req.Deposit,
	}); err != nil {
		s.logger.Error("deposit transfer failed",
			zap.String("borrower_id", req.BorrowerID.String()),
			zap.Uint64("deposit", req.Deposit),
			zap.Error(err))
		return nil, ErrTransferFailed
	}

	contract := &Contract{
		ID:                 contractID,
		BorrowerID:         req.BorrowerID,
		PayeeID:            payeeID,
		PayeeType:          payeeType,
		FunderOfferID:      offerID,
		EquipmentID:        equipment.ID,
		EquipmentUnitIndex: equipment.SoldQuantity + equipment.FundedSoldQuantity - 1,
		TotalAmount:        req.TotalAmount,
		AmountPaid:         req.Deposit,
		Deposit:            req.Deposit,
		StartDate:          startDate,
		EndDate:            endDate,
		UniqueID:           req.UniqueID,
		LastPaymentDate:    startDate,
		InstallmentCount:   count,
		PaidInstallments:   1,
		Frequency:          req.Frequency,
		CustomFrequency:    req.CustomFrequency,
		InsurancePremium:   req.InsurancePremium,
		IsInsured:          req.InsurancePremium != nil,
		StablecoinMint:     s.cfg.StablecoinMint,
		EscrowID:           escrow.ID,
	}

	equipment.DeliveryStatus = DeliveryStatusPending
	recomputeSaleStatus(equipment)

	err = s.repo.Transact(ctx, func(tx Repository) error {
		if err := tx.CreateEscrow(ctx, escrow); err != nil {
			return err
		}
		if err := tx.CreateContract(ctx, contract); err != nil {
			return err
		}
		return tx.SaveEquipment(ctx, equipment)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("contract created",
		zap.String("contract_id", contract.ID.String()),
		zap.String("payee_type", string(payeeType)),
		zap.Uint64("total_amount", req.TotalAmount),
		zap.Uint8("installments", count))
	s.publish(Event{
		Type:        EventContractCreated,
		EquipmentID: equipment.ID,
		ContractID:  contract.ID,
		BorrowerID:  req.BorrowerID,
		Amount:      req.TotalAmount,
		At:          startDate,
	})
	return contract, nil
}
