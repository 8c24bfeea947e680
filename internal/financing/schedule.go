package financing

import (
	"math"
	"time"
)

const (
	secondsPerDay   = 86_400
	secondsPerWeek  = 604_800
	secondsPerMonth = 2_592_000
)

func frequencySeconds(freq InstallmentFrequency, custom int64) int64 {
	switch freq {
	case FrequencyDaily:
		return secondsPerDay
	case FrequencyWeekly:
		return secondsPerWeek
	case FrequencyMonthly:
		return secondsPerMonth
	case FrequencyCustom:
		return custom
	default:
		return 0
	}
}

// installmentCount divides the financing duration by the payment cadence,
// truncating toward zero. The count must fit the contract's 8-bit counter.
func installmentCount(durationSeconds, freqSeconds int64) (uint8, error) {
	if freqSeconds <= 0 {
		return 0, ErrInvalidFrequency
	}
	count := durationSeconds / freqSeconds
	if count < 0 || count > math.MaxUint8 {
		return 0, ErrTooManyInstallments
	}
	return uint8(count), nil
}

// advanceLastPaymentDate computes the new last-payment anchor after a
// successful installment. Daily and weekly cadences re-anchor to the payment
// time; monthly advances to the same calendar day of the next month, clamped
// to the 28th when the target month is shorter; custom cadences advance by a
// fixed interval from the previous anchor.
func advanceLastPaymentDate(c *Contract, paidAt int64) (int64, error) {
	switch c.Frequency {
	case FrequencyDaily, FrequencyWeekly:
		return paidAt, nil
	case FrequencyMonthly:
		return sameDayNextMonth(c.LastPaymentDate)
	case FrequencyCustom:
		return checkedAddI64(c.LastPaymentDate, c.CustomFrequency)
	default:
		return 0, ErrInvalidFrequency
	}
}

// sameDayNextMonth keeps the payment day stable across months. A payment
// anchored to the 31st lands on the 28th of a shorter month rather than
// spilling into the month after.
func sameDayNextMonth(ts int64) (int64, error) {
	t := time.Unix(ts, 0).UTC()

	year, month := t.Year(), t.Month()+1
	if month > time.December {
		year, month = year+1, time.January
	}

	day := t.Day()
	if day > daysInMonth(year, month) {
		day = 28
	}

	next := time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	return next.Unix(), nil
}

func daysInMonth(year int, month time.Month) int {
	// day 0 of the following month normalizes to the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
