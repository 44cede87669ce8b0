package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/peerfin/lending-engine/internal/domain"
	"github.com/peerfin/lending-engine/internal/ledger"
	customError "github.com/peerfin/lending-engine/pkg/errors"
	"github.com/peerfin/lending-engine/pkg/response"
	"github.com/peerfin/lending-engine/tests/mocks"
)

const (
	testLenderID   = "user-lender"
	testBorrowerID = "user-borrower"
)

func testActor(userID string) domain.Actor {
	return domain.Actor{UserID: userID}
}

func sampleOffer(id uuid.UUID) *domain.Offer {
	to := testBorrowerID
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Offer{
		ID:                 id,
		FromUserID:         testLenderID,
		ToUserID:           &to,
		ToUserPhone:        "+919900112233",
		OfferType:          domain.OfferTypeLend,
		Amount:             decimal.RequireFromString("50000"),
		InterestRate:       decimal.RequireFromString("12"),
		InterestType:       domain.InterestTypeReducing,
		TenureValue:        12,
		TenureUnit:         domain.TenureUnitMonths,
		RepaymentType:      domain.RepaymentTypeEMI,
		RepaymentFrequency: domain.FrequencyMonthly,
		Status:             domain.OfferStatusPending,
		TotalInstallments:  12,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func sampleSchedule(start time.Time) []*domain.ScheduleEntry {
	entries := make([]*domain.ScheduleEntry, 0, 2)
	for i := 1; i <= 2; i++ {
		entries = append(entries, &domain.ScheduleEntry{
			InstallmentNumber:  i,
			DueDate:            start.AddDate(0, i, 0),
			PrincipalComponent: decimal.RequireFromString("3942.44"),
			InterestComponent:  decimal.RequireFromString("500.00"),
			TotalAmount:        decimal.RequireFromString("4442.44"),
		})
	}
	return entries
}

// decodeData re-decodes the envelope's data payload into the given target.
func decodeData(t *testing.T, body *bytes.Buffer, target interface{}) {
	var envelope response.Response
	require.NoError(t, json.Unmarshal(body.Bytes(), &envelope))
	assert.True(t, envelope.Success)

	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, target))
}

func decodeError(t *testing.T, body *bytes.Buffer) response.ErrorResponse {
	var envelope response.ErrorResponse
	require.NoError(t, json.Unmarshal(body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	return envelope
}

func TestCreateOfferEndpoint(t *testing.T) {
	validBody := map[string]interface{}{
		"to_user_phone":       "+919900112233",
		"offer_type":          "lend",
		"amount":              "50000",
		"interest_rate":       "12",
		"interest_type":       "reducing",
		"tenure_value":        12,
		"tenure_unit":         "months",
		"repayment_type":      "emi",
		"repayment_frequency": "monthly",
	}

	tests := []struct {
		name           string
		userID         string
		body           interface{}
		rawBody        string
		setupMocks     func(*mocks.MockLendingService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:   "Success - offer created with schedule preview",
			userID: testLenderID,
			body:   validBody,
			setupMocks: func(m *mocks.MockLendingService) {
				offer := sampleOffer(uuid.New())
				schedule := sampleSchedule(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
				m.On("CreateOffer", mock.Anything, testActor(testLenderID), mock.AnythingOfType("*domain.CreateOfferRequest")).
					Return(offer, schedule, nil).Once()
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Failure - missing identity header",
			userID:         "",
			body:           validBody,
			setupMocks:     func(*mocks.MockLendingService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Failure - malformed JSON body",
			userID:         testLenderID,
			rawBody:        "{not json",
			setupMocks:     func(*mocks.MockLendingService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Failure - validation rejects zero amount",
			userID: testLenderID,
			body: map[string]interface{}{
				"to_user_phone":  "+919900112233",
				"offer_type":     "lend",
				"amount":         "0",
				"interest_rate":  "12",
				"interest_type":  "reducing",
				"tenure_value":   12,
				"tenure_unit":    "months",
				"repayment_type": "emi",
			},
			setupMocks:     func(*mocks.MockLendingService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Failure - business error carries its code",
			userID: testLenderID,
			body:   validBody,
			setupMocks: func(m *mocks.MockLendingService) {
				m.On("CreateOffer", mock.Anything, testActor(testLenderID), mock.Anything).
					Return(nil, nil, customError.WrapInvalidTerms("offer cannot be addressed to the proposer")).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodeInvalidTerms,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			mockService := mocks.NewMockLendingService()
			tt.setupMocks(mockService)
			handler := NewLendingHandler(mockService)

			var payload []byte
			if tt.rawBody != "" {
				payload = []byte(tt.rawBody)
			} else {
				payload, _ = json.Marshal(tt.body)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/offers", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			if tt.userID != "" {
				req.Header.Set("X-User-ID", tt.userID)
			}
			recorder := httptest.NewRecorder()

			// Act
			handler.CreateOffer(recorder, req)

			// Assert
			assert.Equal(t, tt.expectedStatus, recorder.Code)
			if tt.expectedStatus == http.StatusCreated {
				var result domain.CreateOfferResponse
				decodeData(t, recorder.Body, &result)
				require.NotNil(t, result.Offer)
				assert.Equal(t, domain.OfferStatusPending, result.Offer.Status)
				assert.Len(t, result.Schedule, 2)
			} else if tt.expectedCode != "" {
				envelope := decodeError(t, recorder.Body)
				assert.Equal(t, tt.expectedCode, envelope.Code)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestAcceptOfferEndpoint(t *testing.T) {
	offerID := uuid.New()

	tests := []struct {
		name           string
		userID         string
		offerIDValue   string
		setupMocks     func(*mocks.MockLendingService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:         "Success - offer accepted",
			userID:       testBorrowerID,
			offerIDValue: offerID.String(),
			setupMocks: func(m *mocks.MockLendingService) {
				accepted := sampleOffer(offerID)
				accepted.Status = domain.OfferStatusAccepted
				m.On("AcceptOffer", mock.Anything, offerID, testActor(testBorrowerID)).Return(accepted, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Failure - invalid offer id",
			userID:         testBorrowerID,
			offerIDValue:   "not-a-uuid",
			setupMocks:     func(*mocks.MockLendingService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:         "Failure - offer not found maps to 404",
			userID:       testBorrowerID,
			offerIDValue: offerID.String(),
			setupMocks: func(m *mocks.MockLendingService) {
				m.On("AcceptOffer", mock.Anything, offerID, testActor(testBorrowerID)).
					Return(nil, customError.WrapOfferNotFound(offerID.String())).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   customError.ErrCodeOfferNotFound,
		},
		{
			name:         "Failure - stranger maps to 403",
			userID:       "user-stranger",
			offerIDValue: offerID.String(),
			setupMocks: func(m *mocks.MockLendingService) {
				m.On("AcceptOffer", mock.Anything, offerID, testActor("user-stranger")).
					Return(nil, customError.WrapUnauthorized("accept this offer")).Once()
			},
			expectedStatus: http.StatusForbidden,
			expectedCode:   customError.ErrCodeUnauthorized,
		},
		{
			name:         "Failure - terminal offer maps to 409",
			userID:       testBorrowerID,
			offerIDValue: offerID.String(),
			setupMocks: func(m *mocks.MockLendingService) {
				m.On("AcceptOffer", mock.Anything, offerID, testActor(testBorrowerID)).
					Return(nil, customError.WrapTerminalState(string(domain.OfferStatusDeclined), "accept")).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   customError.ErrCodeTerminalState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			mockService := mocks.NewMockLendingService()
			tt.setupMocks(mockService)
			handler := NewLendingHandler(mockService)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/offers/"+tt.offerIDValue+"/accept", nil)
			req.Header.Set("X-User-ID", tt.userID)
			req = mux.SetURLVars(req, map[string]string{"offerId": tt.offerIDValue})
			recorder := httptest.NewRecorder()

			// Act
			handler.AcceptOffer(recorder, req)

			// Assert
			assert.Equal(t, tt.expectedStatus, recorder.Code)
			if tt.expectedStatus == http.StatusOK {
				var offer domain.Offer
				decodeData(t, recorder.Body, &offer)
				assert.Equal(t, domain.OfferStatusAccepted, offer.Status)
			} else if tt.expectedCode != "" {
				envelope := decodeError(t, recorder.Body)
				assert.Equal(t, tt.expectedCode, envelope.Code)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestDeclineAndCancelEndpoints(t *testing.T) {
	offerID := uuid.New()

	t.Run("Success - decline routes to the decline operation", func(t *testing.T) {
		mockService := mocks.NewMockLendingService()
		declined := sampleOffer(offerID)
		declined.Status = domain.OfferStatusDeclined
		mockService.On("DeclineOffer", mock.Anything, offerID, testActor(testBorrowerID)).Return(declined, nil).Once()
		handler := NewLendingHandler(mockService)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/offers/"+offerID.String()+"/decline", nil)
		req.Header.Set("X-User-ID", testBorrowerID)
		req = mux.SetURLVars(req, map[string]string{"offerId": offerID.String()})
		recorder := httptest.NewRecorder()

		handler.DeclineOffer(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Success - cancel routes to the cancel operation", func(t *testing.T) {
		mockService := mocks.NewMockLendingService()
		cancelled := sampleOffer(offerID)
		cancelled.Status = domain.OfferStatusCancelled
		mockService.On("CancelOffer", mock.Anything, offerID, testActor(testLenderID)).Return(cancelled, nil).Once()
		handler := NewLendingHandler(mockService)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/offers/"+offerID.String()+"/cancel", nil)
		req.Header.Set("X-User-ID", testLenderID)
		req = mux.SetURLVars(req, map[string]string{"offerId": offerID.String()})
		recorder := httptest.NewRecorder()

		handler.CancelOffer(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		mockService.AssertExpectations(t)
	})
}

func TestGetScheduleEndpoint(t *testing.T) {
	offerID := uuid.New()

	t.Run("Success - schedule is readable without identity headers", func(t *testing.T) {
		mockService := mocks.NewMockLendingService()
		start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		mockService.On("GetSchedule", mock.Anything, offerID).Return(sampleSchedule(start), nil).Once()
		handler := NewLendingHandler(mockService)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/offers/"+offerID.String()+"/schedule", nil)
		req = mux.SetURLVars(req, map[string]string{"offerId": offerID.String()})
		recorder := httptest.NewRecorder()

		handler.GetSchedule(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		var result domain.ScheduleResponse
		decodeData(t, recorder.Body, &result)
		assert.Equal(t, offerID.String(), result.OfferID)
		require.Len(t, result.Schedule, 2)
		assert.Equal(t, 1, result.Schedule[0].InstallmentNumber)
		assert.Equal(t, "4442.44", result.Schedule[0].TotalAmount.StringFixed(2))
		mockService.AssertExpectations(t)
	})

	t.Run("Failure - invalid offer id", func(t *testing.T) {
		mockService := mocks.NewMockLendingService()
		handler := NewLendingHandler(mockService)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/offers/junk/schedule", nil)
		req = mux.SetURLVars(req, map[string]string{"offerId": "junk"})
		recorder := httptest.NewRecorder()

		handler.GetSchedule(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestGetSummaryEndpoint(t *testing.T) {
	offerID := uuid.New()

	t.Run("Success - summary returns the repayment position", func(t *testing.T) {
		mockService := mocks.NewMockLendingService()
		mockService.On("GetLedgerSummary", mock.Anything, offerID).Return(&ledger.Summary{
			OfferID:            offerID,
			TotalPaid:          decimal.RequireFromString("4442.44"),
			Outstanding:        decimal.RequireFromString("45557.56"),
			TotalPayable:       decimal.RequireFromString("53309.27"),
			CurrentInstallment: 2,
			TotalInstallments:  12,
		}, nil).Once()
		handler := NewLendingHandler(mockService)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/offers/"+offerID.String()+"/summary", nil)
		req = mux.SetURLVars(req, map[string]string{"offerId": offerID.String()})
		recorder := httptest.NewRecorder()

		handler.GetSummary(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		var summary ledger.Summary
		decodeData(t, recorder.Body, &summary)
		assert.Equal(t, "45557.56", summary.Outstanding.StringFixed(2))
		assert.Equal(t, 2, summary.CurrentInstallment)
		mockService.AssertExpectations(t)
	})
}

func TestSubmitPaymentEndpoint(t *testing.T) {
	offerID := uuid.New()

	t.Run("Success - payment submitted", func(t *testing.T) {
		mockService := mocks.NewMockLendingService()
		payment := &domain.Payment{
			ID:         uuid.New(),
			OfferID:    offerID,
			FromUserID: testBorrowerID,
			ToUserID:   testLenderID,
			Amount:     decimal.RequireFromString("4442.44"),
			Status:     domain.PaymentStatusPending,
			Version:    1,
		}
		mockService.On("SubmitPayment", mock.Anything, offerID, testActor(testBorrowerID), mock.MatchedBy(func(r *domain.SubmitPaymentRequest) bool {
			return r.Amount.Equal(decimal.RequireFromString("4442.44")) &&
				r.InstallmentNumber != nil && *r.InstallmentNumber == 1
		})).Return(payment, nil).Once()
		handler := NewLendingHandler(mockService)

		body := []byte(`{"amount": "4442.44", "installment_number": 1}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/offers/"+offerID.String()+"/payments", bytes.NewReader(body))
		req.Header.Set("X-User-ID", testBorrowerID)
		req = mux.SetURLVars(req, map[string]string{"offerId": offerID.String()})
		recorder := httptest.NewRecorder()

		handler.SubmitPayment(recorder, req)

		assert.Equal(t, http.StatusCreated, recorder.Code)
		var result domain.Payment
		decodeData(t, recorder.Body, &result)
		assert.Equal(t, domain.PaymentStatusPending, result.Status)
		mockService.AssertExpectations(t)
	})

	t.Run("Failure - negative amount fails validation", func(t *testing.T) {
		mockService := mocks.NewMockLendingService()
		handler := NewLendingHandler(mockService)

		body := []byte(`{"amount": "-5"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/offers/"+offerID.String()+"/payments", bytes.NewReader(body))
		req.Header.Set("X-User-ID", testBorrowerID)
		req = mux.SetURLVars(req, map[string]string{"offerId": offerID.String()})
		recorder := httptest.NewRecorder()

		handler.SubmitPayment(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestReviewPaymentEndpoint(t *testing.T) {
	paymentID := uuid.New()

	reviewed := func(status domain.PaymentStatus) *domain.Payment {
		now := time.Now()
		return &domain.Payment{
			ID:         paymentID,
			OfferID:    uuid.New(),
			FromUserID: testBorrowerID,
			ToUserID:   testLenderID,
			Amount:     decimal.RequireFromString("4442.44"),
			Status:     status,
			ReviewedAt: &now,
			Version:    1,
		}
	}

	tests := []struct {
		name           string
		decision       string
		approve        bool
		expectedStatus int
	}{
		{
			name:           "Success - approved decision",
			decision:       "approved",
			approve:        true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Success - rejected decision",
			decision:       "rejected",
			approve:        false,
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			mockService := mocks.NewMockLendingService()
			status := domain.PaymentStatusApproved
			if !tt.approve {
				status = domain.PaymentStatusRejected
			}
			mockService.On("ReviewPayment", mock.Anything, paymentID, testActor(testLenderID), tt.approve).
				Return(reviewed(status), nil).Once()
			handler := NewLendingHandler(mockService)

			body := []byte(`{"decision": "` + tt.decision + `"}`)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/"+paymentID.String()+"/review", bytes.NewReader(body))
			req.Header.Set("X-User-ID", testLenderID)
			req = mux.SetURLVars(req, map[string]string{"paymentId": paymentID.String()})
			recorder := httptest.NewRecorder()

			// Act
			handler.ReviewPayment(recorder, req)

			// Assert
			assert.Equal(t, tt.expectedStatus, recorder.Code)
			var result domain.Payment
			decodeData(t, recorder.Body, &result)
			assert.Equal(t, status, result.Status)
			mockService.AssertExpectations(t)
		})
	}

	t.Run("Failure - unknown decision fails validation", func(t *testing.T) {
		mockService := mocks.NewMockLendingService()
		handler := NewLendingHandler(mockService)

		body := []byte(`{"decision": "maybe"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/"+paymentID.String()+"/review", bytes.NewReader(body))
		req.Header.Set("X-User-ID", testLenderID)
		req = mux.SetURLVars(req, map[string]string{"paymentId": paymentID.String()})
		recorder := httptest.NewRecorder()

		handler.ReviewPayment(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestListEndpoints(t *testing.T) {
	offerID := uuid.New()

	t.Run("Success - list offers for the actor", func(t *testing.T) {
		mockService := mocks.NewMockLendingService()
		mockService.On("ListOffers", mock.Anything, testActor(testLenderID)).
			Return([]*domain.Offer{sampleOffer(offerID)}, nil).Once()
		handler := NewLendingHandler(mockService)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/offers", nil)
		req.Header.Set("X-User-ID", testLenderID)
		recorder := httptest.NewRecorder()

		handler.ListOffers(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		var result domain.OfferListResponse
		decodeData(t, recorder.Body, &result)
		assert.Len(t, result.Offers, 1)
		mockService.AssertExpectations(t)
	})

	t.Run("Success - list payments for a party", func(t *testing.T) {
		mockService := mocks.NewMockLendingService()
		mockService.On("ListPayments", mock.Anything, offerID, testActor(testBorrowerID)).
			Return([]*domain.Payment{}, nil).Once()
		handler := NewLendingHandler(mockService)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/offers/"+offerID.String()+"/payments", nil)
		req.Header.Set("X-User-ID", testBorrowerID)
		req = mux.SetURLVars(req, map[string]string{"offerId": offerID.String()})
		recorder := httptest.NewRecorder()

		handler.ListPayments(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Failure - list offers without identity", func(t *testing.T) {
		mockService := mocks.NewMockLendingService()
		handler := NewLendingHandler(mockService)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/offers", nil)
		recorder := httptest.NewRecorder()

		handler.ListOffers(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}
