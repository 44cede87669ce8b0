package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/peerfin/lending-engine/internal/domain"
	"github.com/peerfin/lending-engine/pkg/utils"
)

// Summary is the derived repayment position of an offer. It is recomputed
// from the frozen terms and payment records on every read; nothing here is
// authoritative state.
type Summary struct {
	OfferID             uuid.UUID       `json:"offer_id"`
	TotalPaid           decimal.Decimal `json:"total_paid"`
	PendingAmount       decimal.Decimal `json:"pending_amount"`
	Outstanding         decimal.Decimal `json:"outstanding"`
	TotalPayable        decimal.Decimal `json:"total_payable"`
	CurrentInstallment  int             `json:"current_installment"`
	TotalInstallments   int             `json:"total_installments"`
	OverdueInstallments int             `json:"overdue_installments"`
	Settled             bool            `json:"settled"`
}

// Summarize folds approved and pending payments over the schedule.
// Outstanding tracks the principal: part-payments reduce the running balance
// directly, with no per-installment allocation.
func Summarize(offer *domain.Offer, schedule []*domain.ScheduleEntry, payments []*domain.Payment, now time.Time) Summary {
	totalPaid := decimal.Zero
	pending := decimal.Zero
	for _, p := range payments {
		switch p.Status {
		case domain.PaymentStatusApproved:
			totalPaid = totalPaid.Add(p.Amount)
		case domain.PaymentStatusPending:
			pending = pending.Add(p.Amount)
		}
	}

	totalPayable := decimal.Zero
	for _, e := range schedule {
		totalPayable = totalPayable.Add(e.TotalAmount)
	}

	outstanding := decimal.Max(offer.Amount.Sub(totalPaid), decimal.Zero)

	return Summary{
		OfferID:             offer.ID,
		TotalPaid:           totalPaid,
		PendingAmount:       pending,
		Outstanding:         outstanding,
		TotalPayable:        totalPayable,
		CurrentInstallment:  CurrentInstallment(schedule, totalPaid),
		TotalInstallments:   len(schedule),
		OverdueInstallments: countOverdue(schedule, totalPaid, now),
		Settled:             outstanding.IsZero(),
	}
}

// TotalApproved sums the approved payments of an offer.
func TotalApproved(payments []*domain.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Status == domain.PaymentStatusApproved {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// CurrentInstallment returns the first installment whose cumulative scheduled
// total is not yet covered by approved payments. Once every installment is
// covered it stays on the last one.
func CurrentInstallment(schedule []*domain.ScheduleEntry, totalPaid decimal.Decimal) int {
	cumulative := decimal.Zero
	for _, e := range schedule {
		cumulative = cumulative.Add(e.TotalAmount)
		if cumulative.GreaterThan(totalPaid) {
			return e.InstallmentNumber
		}
	}
	return len(schedule)
}

// IsOverdue reports whether the installment's due date has passed without
// approved payments covering the cumulative scheduled total through it.
func IsOverdue(schedule []*domain.ScheduleEntry, installment int, totalPaid decimal.Decimal, now time.Time) bool {
	cumulative := decimal.Zero
	for _, e := range schedule {
		cumulative = cumulative.Add(e.TotalAmount)
		if e.InstallmentNumber == installment {
			return utils.IsDateOverdue(e.DueDate, now) && cumulative.GreaterThan(totalPaid)
		}
	}
	return false
}

// DueWithin returns uncovered installments whose due date falls inside the
// window (now, now+days]. Used for payment reminders.
func DueWithin(schedule []*domain.ScheduleEntry, totalPaid decimal.Decimal, now time.Time, days int) []*domain.ScheduleEntry {
	end := now.AddDate(0, 0, days)
	var due []*domain.ScheduleEntry
	cumulative := decimal.Zero
	for _, e := range schedule {
		cumulative = cumulative.Add(e.TotalAmount)
		if cumulative.LessThanOrEqual(totalPaid) {
			continue
		}
		if e.DueDate.After(now) && !e.DueDate.After(end) {
			due = append(due, e)
		}
	}
	return due
}

func countOverdue(schedule []*domain.ScheduleEntry, totalPaid decimal.Decimal, now time.Time) int {
	count := 0
	cumulative := decimal.Zero
	for _, e := range schedule {
		cumulative = cumulative.Add(e.TotalAmount)
		if utils.IsDateOverdue(e.DueDate, now) && cumulative.GreaterThan(totalPaid) {
			count++
		}
	}
	return count
}
