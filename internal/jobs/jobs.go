package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/peerfin/lending-engine/internal/amortization"
	"github.com/peerfin/lending-engine/internal/config"
	"github.com/peerfin/lending-engine/internal/domain"
	"github.com/peerfin/lending-engine/internal/event"
	"github.com/peerfin/lending-engine/internal/ledger"
	"github.com/peerfin/lending-engine/internal/logger"
	"github.com/peerfin/lending-engine/internal/repository"
)

// systemActor marks events emitted by scheduled sweeps rather than a user.
const systemActor = "system"

// Jobs holds the periodic sweeps run by the scheduler binary.
type Jobs struct {
	OfferRepo   repository.OfferRepository
	PaymentRepo repository.PaymentRepository

	publisher event.Publisher
	config    *config.Config
}

func NewJobs(offerRepo repository.OfferRepository, paymentRepo repository.PaymentRepository, publisher event.Publisher, cfg *config.Config) *Jobs {
	return &Jobs{
		OfferRepo:   offerRepo,
		PaymentRepo: paymentRepo,
		publisher:   publisher,
		config:      cfg,
	}
}

// RunOverdueSweep flags accepted offers whose installments are past due.
// The offer row itself is not mutated; downstream consumers react to the
// offer.overdue event.
func (j *Jobs) RunOverdueSweep(ctx context.Context) error {
	offers, err := j.OfferRepo.ListByStatus(ctx, domain.OfferStatusAccepted)
	if err != nil {
		return fmt.Errorf("list accepted offers: %w", err)
	}

	now := time.Now()
	flagged := 0
	for _, offer := range offers {
		summary, err := j.summarize(ctx, offer, now)
		if err != nil {
			logger.Error("overdue sweep failed for offer", "offer_id", offer.ID, "error", err)
			continue
		}
		if summary.OverdueInstallments == 0 {
			continue
		}

		flagged++
		logger.Warn("offer has overdue installments",
			"offer_id", offer.ID,
			"overdue_installments", summary.OverdueInstallments,
			"outstanding", summary.Outstanding)
		j.publish(ctx, event.Event{
			Type:       event.TypeOfferOverdue,
			OfferID:    offer.ID,
			ActorID:    systemActor,
			Amount:     &summary.Outstanding,
			OccurredAt: now,
		})
	}

	logger.Info("overdue sweep completed", "offers_checked", len(offers), "offers_overdue", flagged)
	return nil
}

// RunReminderSweep emits payment.reminder events for installments falling
// due within the configured lead window.
func (j *Jobs) RunReminderSweep(ctx context.Context) error {
	offers, err := j.OfferRepo.ListByStatus(ctx, domain.OfferStatusAccepted)
	if err != nil {
		return fmt.Errorf("list accepted offers: %w", err)
	}

	now := time.Now()
	reminders := 0
	for _, offer := range offers {
		schedule, payments, err := j.load(ctx, offer)
		if err != nil {
			logger.Error("reminder sweep failed for offer", "offer_id", offer.ID, "error", err)
			continue
		}

		totalPaid := ledger.TotalApproved(payments)
		for _, entry := range ledger.DueWithin(schedule, totalPaid, now, j.config.Business.ReminderLeadDays) {
			reminders++
			amount := entry.TotalAmount
			logger.Info("payment reminder due",
				"offer_id", offer.ID,
				"installment", entry.InstallmentNumber,
				"due_date", entry.DueDate,
				"amount", amount)
			j.publish(ctx, event.Event{
				Type:       event.TypePaymentReminder,
				OfferID:    offer.ID,
				ActorID:    systemActor,
				Amount:     &amount,
				OccurredAt: now,
			})
		}
	}

	logger.Info("reminder sweep completed", "offers_checked", len(offers), "reminders_sent", reminders)
	return nil
}

func (j *Jobs) summarize(ctx context.Context, offer *domain.Offer, now time.Time) (ledger.Summary, error) {
	schedule, payments, err := j.load(ctx, offer)
	if err != nil {
		return ledger.Summary{}, err
	}
	return ledger.Summarize(offer, schedule, payments, now), nil
}

func (j *Jobs) load(ctx context.Context, offer *domain.Offer) ([]*domain.ScheduleEntry, []*domain.Payment, error) {
	if offer.StartDate == nil {
		return nil, nil, fmt.Errorf("offer %s has no start date", offer.ID)
	}

	schedule, err := amortization.Compute(amortization.TermsFromOffer(offer), *offer.StartDate)
	if err != nil {
		return nil, nil, fmt.Errorf("compute schedule: %w", err)
	}

	payments, err := j.PaymentRepo.ListByOfferID(ctx, offer.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list payments: %w", err)
	}

	return schedule, payments, nil
}

func (j *Jobs) publish(ctx context.Context, evt event.Event) {
	if j.publisher == nil {
		return
	}
	if err := j.publisher.Publish(ctx, evt); err != nil {
		logger.Warn("failed to publish event", "type", evt.Type, "offer_id", evt.OfferID, "error", err)
	}
}
