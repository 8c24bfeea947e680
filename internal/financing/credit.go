package financing

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"partpay/financing-portal/financing-portal-backend/pkg/derive"
)

// InitializeBorrower onboards a buyer and opens an empty credit history.
// Onboarding is idempotent-hostile on purpose: a second call for the same
// authority fails rather than resetting the history.
func (s *service) InitializeBorrower(ctx context.Context, authorityID uuid.UUID) (*Borrower, error) {
	if existing, err := s.repo.GetBorrowerByAuthority(ctx, authorityID); err == nil && existing != nil {
		return nil, ErrBorrowerExists
	}

	borrowerID := derive.Key(derive.SeedBorrower, authorityID, authorityID)
	score := &CreditScore{
		ID:         derive.Key(derive.SeedCreditScore, borrowerID, borrowerID),
		BorrowerID: borrowerID,
	}
	borrower := &Borrower{
		ID:            borrowerID,
		AuthorityID:   authorityID,
		CreditScoreID: score.ID,
	}

	err := s.repo.Transact(ctx, func(tx Repository) error {
		if err := tx.CreateBorrower(ctx, borrower); err != nil {
			return err
		}
		return tx.CreateCreditScore(ctx, score)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("borrower onboarded",
		zap.String("borrower_id", borrowerID.String()),
		zap.String("authority_id", authorityID.String()))
	return borrower, nil
}

// TrackRepaymentRequest folds a repayment into the borrower's credit history.
type TrackRepaymentRequest struct {
	AuthorityID uuid.UUID `json:"authority_id"`
	ContractID  uuid.UUID `json:"contract_id"`
	Amount      uint64    `json:"amount"`
}

// TrackRepayment updates the borrower's running totals and credit score.
// The payment is on time when it lands at or before the next due date
// implied by the contract's cadence. Credit points are the payment amount
// divided by the configured point scale; a late payment subtracts the same
// points, saturating at zero.
func (s *service) TrackRepayment(ctx context.Context, req TrackRepaymentRequest) (*CreditScore, error) {
	if req.Amount == 0 {
		return nil, ErrInvalidAmount
	}

	borrower, err := s.repo.GetBorrowerByAuthority(ctx, req.AuthorityID)
	if err != nil {
		return nil, err
	}
	contract, err := s.repo.GetContract(ctx, req.ContractID)
	if err != nil {
		return nil, err
	}
	if contract.BorrowerID != borrower.ID {
		return nil, ErrUnauthorizedBuyer
	}
	score, err := s.repo.GetCreditScoreByBorrower(ctx, borrower.ID)
	if err != nil {
		return nil, err
	}

	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, ErrClockUnavailable
	}

	totalRepayments, err := checkedAdd(borrower.TotalRepayments, req.Amount)
	if err != nil {
		return nil, err
	}
	nextDue, err := checkedAddI64(contract.LastPaymentDate, contract.FrequencySeconds())
	if err != nil {
		return nil, err
	}

	onTime := now.Unix() <= nextDue
	points := scaledCreditPoints(req.Amount, s.cfg.CreditPointScale)

	borrower.TotalRepayments = totalRepayments
	borrower.LastRepaymentDate = now.Unix()
	if onTime {
		score.OnTimePayments++
		newScore, err := checkedAdd(score.Score, points)
		if err != nil {
			return nil, err
		}
		score.Score = newScore
	} else {
		score.LatePayments++
		score.Score = saturatingSub(score.Score, points)
	}

	err = s.repo.Transact(ctx, func(tx Repository) error {
		if err := tx.SaveBorrower(ctx, borrower); err != nil {
			return err
		}
		return tx.SaveCreditScore(ctx, score)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("repayment tracked",
		zap.String("borrower_id", borrower.ID.String()),
		zap.Uint64("amount", req.Amount),
		zap.Bool("on_time", onTime),
		zap.Uint64("score", score.Score))
	s.publish(Event{
		Type:       EventRepaymentTracked,
		ContractID: contract.ID,
		BorrowerID: borrower.ID,
		Amount:     req.Amount,
		At:         now.Unix(),
	})
	return score, nil
}

func (s *service) GetCreditScore(ctx context.Context, authorityID uuid.UUID) (*CreditScore, error) {
	borrower, err := s.repo.GetBorrowerByAuthority(ctx, authorityID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetCreditScoreByBorrower(ctx, borrower.ID)
}

// scaledCreditPoints converts a monetary amount into credit points.
func scaledCreditPoints(amount, scale uint64) uint64 {
	if scale == 0 {
		return amount
	}
	return amount / scale
}
