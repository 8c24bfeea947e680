package financing

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"partpay/financing-portal/financing-portal-backend/internal/treasury"
)

// MakePaymentRequest records one installment payment by the borrower.
type MakePaymentRequest struct {
	ContractID uuid.UUID `json:"contract_id"`
	BorrowerID uuid.UUID `json:"borrower_id"`
	Amount     uint64    `json:"amount"`
}

// MakePayment transfers an installment to the contract's stored payee and
// advances the schedule. A payment that would exceed the remaining balance
// is rejected whole; the payment that brings amount_paid to total_amount
// completes the contract.
func (s *service) MakePayment(ctx context.Context, req MakePaymentRequest) (*Contract, error) {
	if req.Amount == 0 {
		return nil, ErrInvalidPaymentAmount
	}

	contract, err := s.repo.GetContract(ctx, req.ContractID)
	if err != nil {
		return nil, err
	}
	if contract.BorrowerID != req.BorrowerID {
		return nil, ErrUnauthorizedBuyer
	}
	if contract.IsCompleted {
		return nil, ErrContractCompleted
	}

	remaining, err := checkedSub(contract.TotalAmount, contract.AmountPaid)
	if err != nil {
		return nil, err
	}
	if req.Amount > remaining {
		return nil, ErrOverpayment
	}

	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, ErrClockUnavailable
	}

	newPaid, err := checkedAdd(contract.AmountPaid, req.Amount)
	if err != nil {
		return nil, err
	}
	nextAnchor, err := advanceLastPaymentDate(contract, now.Unix())
	if err != nil {
		return nil, err
	}

	if err := s.transfer.Transfer(ctx, treasury.TransferRequest{
		From:   contract.BorrowerID,
		To:     contract.PayeeID,
		Mint:   contract.StablecoinMint,
		Amount: req.Amount,
	}); err != nil {
		s.logger.Error("installment transfer failed",
			zap.String("contract_id", contract.ID.String()),
			zap.Uint64("amount", req.Amount),
			zap.Error(err))
		return nil, ErrTransferFailed
	}

	contract.AmountPaid = newPaid
	contract.PaidInstallments++
	contract.LastPaymentDate = nextAnchor

	completed := contract.AmountPaid >= contract.TotalAmount
	if completed {
		contract.IsCompleted = true
		contract.CreditScoreDelta += s.cfg.CompletionScoreDelta
	}

	if err := s.repo.SaveContract(ctx, contract); err != nil {
		return nil, err
	}

	s.logger.Info("payment recorded",
		zap.String("contract_id", contract.ID.String()),
		zap.Uint64("amount", req.Amount),
		zap.Uint8("paid_installments", contract.PaidInstallments),
		zap.Bool("completed", completed))
	s.publish(Event{
		Type:       EventPaymentRecorded,
		ContractID: contract.ID,
		BorrowerID: contract.BorrowerID,
		Amount:     req.Amount,
		At:         now.Unix(),
	})
	if completed {
		s.publish(Event{
			Type:       EventContractCompleted,
			ContractID: contract.ID,
			BorrowerID: contract.BorrowerID,
			Amount:     contract.AmountPaid,
			At:         now.Unix(),
		})
	}
	return contract, nil
}
