package financing

import (
	"context"

	"go.uber.org/zap"
)

// ScanOverdueContracts walks every open contract and records a default on the
// borrower's credit history for each contract whose next due date passed more
// than the configured grace period ago. A contract is defaulted at most once;
// later payments still count toward completion but the default stands.
func (s *service) ScanOverdueContracts(ctx context.Context) (int, error) {
	now, err := s.clock.Now(ctx)
	if err != nil {
		return 0, ErrClockUnavailable
	}

	contracts, err := s.repo.ListOpenContracts(ctx)
	if err != nil {
		return 0, err
	}

	defaulted := 0
	for i := range contracts {
		contract := &contracts[i]
		if contract.IsDefaulted {
			continue
		}

		nextDue, err := checkedAddI64(contract.LastPaymentDate, contract.FrequencySeconds())
		if err != nil {
			return defaulted, err
		}
		deadline, err := checkedAddI64(nextDue, s.cfg.OverdueGraceSeconds)
		if err != nil {
			return defaulted, err
		}
		if now.Unix() <= deadline {
			continue
		}

		score, err := s.repo.GetCreditScoreByBorrower(ctx, contract.BorrowerID)
		if err != nil {
			return defaulted, err
		}

		contract.IsDefaulted = true
		score.Defaults++

		err = s.repo.Transact(ctx, func(tx Repository) error {
			if err := tx.SaveContract(ctx, contract); err != nil {
				return err
			}
			return tx.SaveCreditScore(ctx, score)
		})
		if err != nil {
			return defaulted, err
		}

		defaulted++
		s.logger.Warn("contract defaulted",
			zap.String("contract_id", contract.ID.String()),
			zap.String("borrower_id", contract.BorrowerID.String()),
			zap.Int64("next_due", nextDue))
	}

	return defaulted, nil
}
