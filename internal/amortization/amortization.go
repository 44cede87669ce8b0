package amortization

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/peerfin/lending-engine/internal/domain"
	customError "github.com/peerfin/lending-engine/pkg/errors"
	"github.com/peerfin/lending-engine/pkg/utils"
)

// Terms is the subset of an offer that determines its repayment schedule.
type Terms struct {
	Amount             decimal.Decimal
	InterestRate       decimal.Decimal // annual percentage, 12 means 12%
	InterestType       domain.InterestType
	TenureValue        int
	TenureUnit         domain.TenureUnit
	RepaymentType      domain.RepaymentType
	RepaymentFrequency domain.RepaymentFrequency
}

// TermsFromOffer copies the schedule-relevant fields of an offer.
func TermsFromOffer(o *domain.Offer) Terms {
	return Terms{
		Amount:             o.Amount,
		InterestRate:       o.InterestRate,
		InterestType:       o.InterestType,
		TenureValue:        o.TenureValue,
		TenureUnit:         o.TenureUnit,
		RepaymentType:      o.RepaymentType,
		RepaymentFrequency: o.RepaymentFrequency,
	}
}

// ValidateTerms rejects terms that cannot produce a schedule.
func ValidateTerms(t Terms) error {
	if !t.Amount.IsPositive() {
		return customError.WrapInvalidTerms("amount must be greater than zero")
	}
	if t.InterestRate.IsNegative() {
		return customError.WrapInvalidTerms("interest rate cannot be negative")
	}
	if t.TenureValue <= 0 {
		return customError.WrapInvalidTerms("tenure must be greater than zero")
	}
	switch t.InterestType {
	case domain.InterestTypeReducing, domain.InterestTypeFixed:
	default:
		return customError.WrapInvalidTerms("unknown interest type " + string(t.InterestType))
	}
	switch t.TenureUnit {
	case domain.TenureUnitDays, domain.TenureUnitMonths, domain.TenureUnitYears:
	default:
		return customError.WrapInvalidTerms("unknown tenure unit " + string(t.TenureUnit))
	}
	switch t.RepaymentType {
	case domain.RepaymentTypeEMI, domain.RepaymentTypeFullPayment:
	default:
		return customError.WrapInvalidTerms("unknown repayment type " + string(t.RepaymentType))
	}
	if t.RepaymentType == domain.RepaymentTypeEMI {
		switch t.RepaymentFrequency {
		case domain.FrequencyMonthly, domain.FrequencyWeekly, domain.FrequencyQuarterly, "":
		default:
			return customError.WrapInvalidTerms("unknown repayment frequency " + string(t.RepaymentFrequency))
		}
	}
	return nil
}

// PeriodCount returns the number of installments the terms produce.
func PeriodCount(t Terms) (int, error) {
	if err := ValidateTerms(t); err != nil {
		return 0, err
	}
	if t.RepaymentType == domain.RepaymentTypeFullPayment {
		return 1, nil
	}
	return periodsFor(t.TenureValue, t.TenureUnit, frequencyOrDefault(t.RepaymentFrequency)), nil
}

// Compute derives the full repayment schedule for the given terms, with due
// dates stepped from the start date. It is pure: the same terms and start
// date always produce the same schedule.
//
// EMI uses the reducing-balance formula emi = P*r*(1+r)^n / ((1+r)^n - 1)
// with the per-period rate r, rounded half up to cents. The balance walk
// rounds per-period interest to cents and lets the final installment clear
// the remaining balance, absorbing accumulated rounding.
func Compute(t Terms, start time.Time) ([]*domain.ScheduleEntry, error) {
	if err := ValidateTerms(t); err != nil {
		return nil, err
	}
	if t.RepaymentType == domain.RepaymentTypeFullPayment {
		return fullPaymentSchedule(t, start)
	}
	return emiSchedule(t, start)
}

func emiSchedule(t Terms, start time.Time) ([]*domain.ScheduleEntry, error) {
	freq := frequencyOrDefault(t.RepaymentFrequency)
	n := periodsFor(t.TenureValue, t.TenureUnit, freq)
	rate := t.InterestRate.
		Div(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(periodsPerYear(freq)))

	emi := emiAmount(t.Amount, rate, n)

	entries := make([]*domain.ScheduleEntry, 0, n)
	balance := t.Amount
	for i := 1; i <= n; i++ {
		interest := balance.Mul(rate).Round(2)

		var principal decimal.Decimal
		if i == n {
			// Final installment clears whatever rounding left behind.
			principal = balance
		} else {
			principal = decimal.Min(emi.Sub(interest).Round(2), balance)
			if principal.IsNegative() {
				principal = decimal.Zero
			}
		}
		balance = decimal.Max(balance.Sub(principal), decimal.Zero)

		entries = append(entries, &domain.ScheduleEntry{
			InstallmentNumber:  i,
			DueDate:            dueDate(start, freq, i),
			PrincipalComponent: principal,
			InterestComponent:  interest,
			TotalAmount:        principal.Add(interest),
			RemainingBalance:   balance,
		})
	}
	return entries, verifySchedule(t.Amount, entries)
}

// emiAmount computes the per-period installment, rounded half up to cents.
// A zero rate degenerates to an even principal split.
func emiAmount(principal, rate decimal.Decimal, n int) decimal.Decimal {
	if rate.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(n))).Round(2)
	}
	r, _ := rate.Float64()
	factor := utils.DecimalFromFloat(math.Pow(1+r, float64(n)))
	numerator := principal.Mul(rate).Mul(factor)
	denominator := factor.Sub(decimal.NewFromInt(1))
	return numerator.Div(denominator).Round(2)
}

func fullPaymentSchedule(t Terms, start time.Time) ([]*domain.ScheduleEntry, error) {
	years := yearsFraction(t.TenureValue, t.TenureUnit)
	rate := t.InterestRate.Div(decimal.NewFromInt(100))

	var interest decimal.Decimal
	if t.InterestType == domain.InterestTypeFixed {
		// Simple interest over the whole tenure.
		interest = t.Amount.Mul(rate).Mul(years).Round(2)
	} else {
		// Reducing collapses to annual compounding for a single payoff.
		y, _ := years.Float64()
		r, _ := rate.Float64()
		factor := utils.DecimalFromFloat(math.Pow(1+r, y))
		interest = t.Amount.Mul(factor.Sub(decimal.NewFromInt(1))).Round(2)
	}

	entry := &domain.ScheduleEntry{
		InstallmentNumber:  1,
		DueDate:            fullPaymentDueDate(start, t.TenureValue, t.TenureUnit),
		PrincipalComponent: t.Amount,
		InterestComponent:  interest,
		TotalAmount:        t.Amount.Add(interest),
		RemainingBalance:   decimal.Zero,
	}
	return []*domain.ScheduleEntry{entry}, nil
}

// periodsFor converts a tenure to a count of repayment periods. Tenure
// normalization uses a 30-day month across all frequencies; days round up to
// whole periods.
func periodsFor(value int, unit domain.TenureUnit, freq domain.RepaymentFrequency) int {
	switch freq {
	case domain.FrequencyWeekly:
		switch unit {
		case domain.TenureUnitDays:
			return utils.CeilDiv(value, 7)
		case domain.TenureUnitMonths:
			return utils.CeilDiv(value*30, 7)
		default:
			return utils.CeilDiv(value*12*30, 7)
		}
	case domain.FrequencyQuarterly:
		switch unit {
		case domain.TenureUnitDays:
			return utils.CeilDiv(value, 90)
		case domain.TenureUnitMonths:
			return utils.CeilDiv(value, 3)
		default:
			return value * 4
		}
	default:
		switch unit {
		case domain.TenureUnitDays:
			return utils.CeilDiv(value, 30)
		case domain.TenureUnitMonths:
			return value
		default:
			return value * 12
		}
	}
}

func periodsPerYear(freq domain.RepaymentFrequency) int64 {
	switch freq {
	case domain.FrequencyWeekly:
		return 52
	case domain.FrequencyQuarterly:
		return 4
	default:
		return 12
	}
}

func dueDate(start time.Time, freq domain.RepaymentFrequency, i int) time.Time {
	switch freq {
	case domain.FrequencyWeekly:
		return start.AddDate(0, 0, 7*i)
	case domain.FrequencyQuarterly:
		return start.AddDate(0, 3*i, 0)
	default:
		return start.AddDate(0, i, 0)
	}
}

func frequencyOrDefault(f domain.RepaymentFrequency) domain.RepaymentFrequency {
	if f == "" {
		return domain.FrequencyMonthly
	}
	return f
}

func yearsFraction(value int, unit domain.TenureUnit) decimal.Decimal {
	v := decimal.NewFromInt(int64(value))
	switch unit {
	case domain.TenureUnitDays:
		return v.Div(decimal.NewFromInt(365))
	case domain.TenureUnitMonths:
		return v.Div(decimal.NewFromInt(12))
	default:
		return v
	}
}

func fullPaymentDueDate(start time.Time, value int, unit domain.TenureUnit) time.Time {
	switch unit {
	case domain.TenureUnitDays:
		return start.AddDate(0, 0, value)
	case domain.TenureUnitMonths:
		return start.AddDate(0, value, 0)
	default:
		return start.AddDate(value, 0, 0)
	}
}

// verifySchedule asserts principal conservation and a cleared final balance
// before a schedule leaves the engine.
func verifySchedule(amount decimal.Decimal, entries []*domain.ScheduleEntry) error {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.PrincipalComponent)
	}
	if total.Sub(amount).Abs().GreaterThan(decimal.NewFromFloat(0.01)) {
		return fmt.Errorf("schedule principal %s does not reconcile with amount %s", total, amount)
	}
	if last := entries[len(entries)-1]; !last.RemainingBalance.IsZero() {
		return fmt.Errorf("schedule leaves remaining balance %s", last.RemainingBalance)
	}
	return nil
}
