package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/peerfin/lending-engine/internal/domain"
	"github.com/peerfin/lending-engine/internal/ledger"
	"github.com/peerfin/lending-engine/pkg/response"
)

// Service is the part of the lending service the HTTP layer consumes.
type Service interface {
	CreateOffer(ctx context.Context, actor domain.Actor, request *domain.CreateOfferRequest) (*domain.Offer, []*domain.ScheduleEntry, error)
	AcceptOffer(ctx context.Context, offerID uuid.UUID, actor domain.Actor) (*domain.Offer, error)
	DeclineOffer(ctx context.Context, offerID uuid.UUID, actor domain.Actor) (*domain.Offer, error)
	CancelOffer(ctx context.Context, offerID uuid.UUID, actor domain.Actor) (*domain.Offer, error)
	GetOffer(ctx context.Context, offerID uuid.UUID, actor domain.Actor) (*domain.Offer, error)
	ListOffers(ctx context.Context, actor domain.Actor) ([]*domain.Offer, error)
	GetSchedule(ctx context.Context, offerID uuid.UUID) ([]*domain.ScheduleEntry, error)
	SubmitPayment(ctx context.Context, offerID uuid.UUID, actor domain.Actor, request *domain.SubmitPaymentRequest) (*domain.Payment, error)
	ReviewPayment(ctx context.Context, paymentID uuid.UUID, actor domain.Actor, approve bool) (*domain.Payment, error)
	ListPayments(ctx context.Context, offerID uuid.UUID, actor domain.Actor) ([]*domain.Payment, error)
	GetLedgerSummary(ctx context.Context, offerID uuid.UUID) (*ledger.Summary, error)
}

type LendingHandler struct {
	service   Service
	validator *validator.Validate
}

func NewLendingHandler(service Service) *LendingHandler {
	return &LendingHandler{
		service:   service,
		validator: newValidator(),
	}
}

// newValidator wires the decimal comparison tags used by the request DTOs.
func newValidator() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("decimal_gt", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(decimal.Decimal)
		if !ok {
			return false
		}
		bound, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return value.GreaterThan(bound)
	})

	_ = v.RegisterValidation("decimal_gte", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(decimal.Decimal)
		if !ok {
			return false
		}
		bound, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return value.GreaterThanOrEqual(bound)
	})

	return v
}

// actorFrom reads the identity the gateway verified upstream.
func actorFrom(r *http.Request) domain.Actor {
	return domain.Actor{
		UserID: r.Header.Get("X-User-ID"),
		Phone:  r.Header.Get("X-User-Phone"),
	}
}

func (h *LendingHandler) requireActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor := actorFrom(r)
	if actor.UserID == "" {
		response.Unauthorized(w, "Missing authenticated user identity")
		return domain.Actor{}, false
	}
	return actor, true
}

func offerIDFrom(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["offerId"])
}

// CreateOffer handles POST /api/v1/offers
func (h *LendingHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	var request domain.CreateOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	offer, schedule, err := h.service.CreateOffer(r.Context(), actor, &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, domain.CreateOfferResponse{Offer: offer, Schedule: schedule})
}

// AcceptOffer handles POST /api/v1/offers/{offerId}/accept
func (h *LendingHandler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.AcceptOffer)
}

// DeclineOffer handles POST /api/v1/offers/{offerId}/decline
func (h *LendingHandler) DeclineOffer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.DeclineOffer)
}

// CancelOffer handles POST /api/v1/offers/{offerId}/cancel
func (h *LendingHandler) CancelOffer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.CancelOffer)
}

func (h *LendingHandler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID, domain.Actor) (*domain.Offer, error)) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	offerID, err := offerIDFrom(r)
	if err != nil {
		response.BadRequest(w, "Invalid offer ID", err)
		return
	}

	offer, err := op(r.Context(), offerID, actor)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, offer)
}

// GetOffer handles GET /api/v1/offers/{offerId}
func (h *LendingHandler) GetOffer(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	offerID, err := offerIDFrom(r)
	if err != nil {
		response.BadRequest(w, "Invalid offer ID", err)
		return
	}

	offer, err := h.service.GetOffer(r.Context(), offerID, actor)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, offer)
}

// ListOffers handles GET /api/v1/offers
func (h *LendingHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	offers, err := h.service.ListOffers(r.Context(), actor)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, domain.OfferListResponse{Offers: offers})
}

// GetSchedule handles GET /api/v1/offers/{offerId}/schedule
func (h *LendingHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	offerID, err := offerIDFrom(r)
	if err != nil {
		response.BadRequest(w, "Invalid offer ID", err)
		return
	}

	schedule, err := h.service.GetSchedule(r.Context(), offerID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, domain.ScheduleResponse{OfferID: offerID.String(), Schedule: schedule})
}

// GetSummary handles GET /api/v1/offers/{offerId}/summary
func (h *LendingHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	offerID, err := offerIDFrom(r)
	if err != nil {
		response.BadRequest(w, "Invalid offer ID", err)
		return
	}

	summary, err := h.service.GetLedgerSummary(r.Context(), offerID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, summary)
}

// SubmitPayment handles POST /api/v1/offers/{offerId}/payments
func (h *LendingHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	offerID, err := offerIDFrom(r)
	if err != nil {
		response.BadRequest(w, "Invalid offer ID", err)
		return
	}

	var request domain.SubmitPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	payment, err := h.service.SubmitPayment(r.Context(), offerID, actor, &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, payment)
}

// ListPayments handles GET /api/v1/offers/{offerId}/payments
func (h *LendingHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	offerID, err := offerIDFrom(r)
	if err != nil {
		response.BadRequest(w, "Invalid offer ID", err)
		return
	}

	payments, err := h.service.ListPayments(r.Context(), offerID, actor)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, domain.PaymentListResponse{OfferID: offerID.String(), Payments: payments})
}

// ReviewPayment handles POST /api/v1/payments/{paymentId}/review
func (h *LendingHandler) ReviewPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	paymentID, err := uuid.Parse(mux.Vars(r)["paymentId"])
	if err != nil {
		response.BadRequest(w, "Invalid payment ID", err)
		return
	}

	var request domain.ReviewPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	approve := request.Decision == string(domain.PaymentStatusApproved)
	payment, err := h.service.ReviewPayment(r.Context(), paymentID, actor, approve)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, payment)
}
