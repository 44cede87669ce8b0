package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleEntry is one installment of a repayment schedule. Entries are
// derived from the offer's frozen terms and start date; they are cached but
// never stored as authoritative state.
type ScheduleEntry struct {
	InstallmentNumber  int             `json:"installment_number"`
	DueDate            time.Time       `json:"due_date"`
	PrincipalComponent decimal.Decimal `json:"principal_component"`
	InterestComponent  decimal.Decimal `json:"interest_component"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	RemainingBalance   decimal.Decimal `json:"remaining_balance"`
}

type ScheduleResponse struct {
	OfferID  string           `json:"offer_id"`
	Schedule []*ScheduleEntry `json:"schedule"`
}
