package financing

import (
	"context"
	"math"

	"github.com/google/uuid"
)

// GetContractStatus projects a contract into its reporting view. Progress is
// the elapsed share of the financing window, rounded to the nearest percent
// and clamped to [0, 100]. A payment is overdue strictly after the due
// instant, never at it.
func (s *service) GetContractStatus(ctx context.Context, contractID uuid.UUID) (*ContractStatus, error) {
	contract, err := s.repo.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}

	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, ErrClockUnavailable
	}
	ts := now.Unix()

	elapsed, err := checkedSubI64(ts, contract.StartDate)
	if err != nil {
		return nil, err
	}
	totalDuration, err := checkedSubI64(contract.EndDate, contract.StartDate)
	if err != nil {
		return nil, err
	}

	totalDue := contract.TotalAmount
	if contract.IsInsured {
		totalDue, err = checkedAdd(contract.TotalAmount, premiumOrZero(contract.InsurancePremium))
		if err != nil {
			return nil, err
		}
	}
	remaining, err := checkedSub(totalDue, contract.AmountPaid)
	if err != nil {
		return nil, err
	}

	sinceLastPayment, err := checkedSubI64(ts, contract.LastPaymentDate)
	if err != nil {
		return nil, err
	}
	nextDue, err := checkedAddI64(contract.LastPaymentDate, contract.FrequencySeconds())
	if err != nil {
		return nil, err
	}

	return &ContractStatus{
		Progress:             progressPercent(elapsed, totalDuration),
		TotalDue:             totalDue,
		RemainingAmount:      remaining,
		TimeSinceLastPayment: sinceLastPayment,
		IsPaymentOverdue:     ts > nextDue,
		NextPaymentDue:       nextDue,
		InsurancePremium:     contract.InsurancePremium,
	}, nil
}

func progressPercent(elapsed, totalDuration int64) uint8 {
	if totalDuration <= 0 {
		return 100
	}
	pct := math.Round(float64(elapsed) / float64(totalDuration) * 100)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return uint8(pct)
}

func premiumOrZero(p *uint64) uint64 {
	if p == nil {
		return 0
	}
	return *p
}
