package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/checkout"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/client"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/composer"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/service"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/middleware"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/response"
)

const testSessionID = "7f1c2a4e-0f6b-4d3a-9a57-2b8c1e5d9f10"

func init() {
	gin.SetMode(gin.TestMode)
}

// MockWizardService is a mock implementation of service.WizardService
type MockWizardService struct {
	SubmitFunc     func(ctx context.Context, sessionID string) (*service.SubmitResult, error)
	SelectDateFunc func(ctx context.Context, sessionID, dateID string) (composer.Snapshot, error)
}

func (m *MockWizardService) Load(ctx context.Context, sessionID, tour string) (*composer.PricingContext, composer.Snapshot, error) {
	return nil, composer.Snapshot{}, domain.ErrTourNotFound
}

func (m *MockWizardService) SelectDate(ctx context.Context, sessionID, dateID string) (composer.Snapshot, error) {
	if m.SelectDateFunc != nil {
		return m.SelectDateFunc(ctx, sessionID, dateID)
	}
	return composer.Snapshot{TourDateID: dateID}, nil
}

func (m *MockWizardService) SetFlightOption(ctx context.Context, sessionID string, opt domain.FlightOption) (composer.Snapshot, error) {
	return composer.Snapshot{FlightOption: opt}, nil
}

func (m *MockWizardService) SetHeadcount(ctx context.Context, sessionID string, adults, children, infants int) (composer.Snapshot, error) {
	return composer.Snapshot{Adults: adults, Children: children, Infants: infants}, nil
}

func (m *MockWizardService) ToggleAddOn(ctx context.Context, sessionID, addOnID string) (composer.Snapshot, error) {
	return composer.Snapshot{}, nil
}

func (m *MockWizardService) UpdateTravelers(ctx context.Context, sessionID string, updates []service.TravelerUpdate) (composer.Snapshot, error) {
	travelers := make([]domain.Traveler, 0, len(updates))
	for _, u := range updates {
		travelers = append(travelers, domain.Traveler{FullName: u.Patch.FullName})
	}
	return composer.Snapshot{Travelers: travelers}, nil
}

func (m *MockWizardService) SetOptions(ctx context.Context, sessionID string, opts service.WizardOptions) (composer.Snapshot, error) {
	return composer.Snapshot{}, nil
}

func (m *MockWizardService) Validate(ctx context.Context, sessionID string) (composer.ValidationResult, error) {
	return composer.ValidationResult{Valid: true}, nil
}

func (m *MockWizardService) Advance(ctx context.Context, sessionID string) (composer.Snapshot, error) {
	return composer.Snapshot{}, &domain.ValidationError{Errors: map[string]map[string]string{"ADULT-0": {"fullName": "required"}}}
}

func (m *MockWizardService) Back(ctx context.Context, sessionID string) (composer.Snapshot, error) {
	return composer.Snapshot{}, nil
}

func (m *MockWizardService) Snapshot(ctx context.Context, sessionID string) (composer.Snapshot, error) {
	return composer.Snapshot{DraftID: "draft-1"}, nil
}

func (m *MockWizardService) Submit(ctx context.Context, sessionID string) (*service.SubmitResult, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, sessionID)
	}
	return nil, nil
}

// MockCheckoutService is a mock implementation of service.CheckoutService
type MockCheckoutService struct {
	SelectMethodFunc  func(ctx context.Context, sessionID string, method domain.PaymentMethod) (checkout.Snapshot, error)
	SubmitReceiptFunc func(ctx context.Context, sessionID string, receipt domain.Receipt) (checkout.Snapshot, error)
	ConfirmCardFunc   func(ctx context.Context, sessionID, intentID string) (checkout.Snapshot, error)
}

func (m *MockCheckoutService) Begin(ctx context.Context, sess *service.Session, draft *domain.BookingDraft, auth *domain.AuthSession) (checkout.Snapshot, error) {
	return checkout.Snapshot{}, nil
}

func (m *MockCheckoutService) Start(ctx context.Context, sessionID string) (checkout.Snapshot, error) {
	return checkout.Snapshot{}, domain.ErrNoActiveCheckout
}

func (m *MockCheckoutService) RetryBooking(ctx context.Context, sessionID string) (checkout.Snapshot, error) {
	return checkout.Snapshot{}, nil
}

func (m *MockCheckoutService) SelectMethod(ctx context.Context, sessionID string, method domain.PaymentMethod) (checkout.Snapshot, error) {
	if m.SelectMethodFunc != nil {
		return m.SelectMethodFunc(ctx, sessionID, method)
	}
	return checkout.Snapshot{State: checkout.StateAwaitingBankReceipt, Method: method}, nil
}

func (m *MockCheckoutService) ConfirmCard(ctx context.Context, sessionID, intentID string) (checkout.Snapshot, error) {
	if m.ConfirmCardFunc != nil {
		return m.ConfirmCardFunc(ctx, sessionID, intentID)
	}
	return checkout.Snapshot{State: checkout.StateSucceeded}, nil
}

func (m *MockCheckoutService) SubmitReceipt(ctx context.Context, sessionID string, receipt domain.Receipt) (checkout.Snapshot, error) {
	if m.SubmitReceiptFunc != nil {
		return m.SubmitReceiptFunc(ctx, sessionID, receipt)
	}
	return checkout.Snapshot{State: checkout.StateSucceeded, Outcome: checkout.OutcomeAwaitingApproval}, nil
}

func (m *MockCheckoutService) Snapshot(ctx context.Context, sessionID string) (checkout.Snapshot, error) {
	return checkout.Snapshot{State: checkout.StateAwaitingCardPayment}, nil
}

// MockAuthService is a mock implementation of service.AuthService
type MockAuthService struct {
	LoginFunc func(ctx context.Context, sessionID string, creds domain.Credentials) (*service.AuthResult, error)
}

func (m *MockAuthService) Login(ctx context.Context, sessionID string, creds domain.Credentials) (*service.AuthResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, sessionID, creds)
	}
	return &service.AuthResult{User: &domain.User{ID: "user-1", Email: creds.Email}}, nil
}

func (m *MockAuthService) Signup(ctx context.Context, sessionID string, signup domain.Signup) (*service.AuthResult, error) {
	return &service.AuthResult{User: &domain.User{ID: "user-2", Email: signup.Email}}, nil
}

func (m *MockAuthService) Resume(ctx context.Context, sessionID string) (*service.AuthResult, error) {
	return &service.AuthResult{}, nil
}

func (m *MockAuthService) Logout(ctx context.Context, sessionID string) error { return nil }

func (m *MockAuthService) Me(ctx context.Context, sessionID string) (*domain.User, error) {
	return nil, domain.ErrUnauthorized
}

// MockBookingService is a mock implementation of service.BookingService
type MockBookingService struct {
	ListMineFunc func(ctx context.Context, sessionID string, filter domain.BookingFilter) ([]domain.Booking, error)
	CancelFunc   func(ctx context.Context, sessionID, bookingID, reason string) (*domain.Booking, error)
}

func (m *MockBookingService) ListMine(ctx context.Context, sessionID string, filter domain.BookingFilter) ([]domain.Booking, error) {
	if m.ListMineFunc != nil {
		return m.ListMineFunc(ctx, sessionID, filter)
	}
	return nil, nil
}

func (m *MockBookingService) Cancel(ctx context.Context, sessionID, bookingID, reason string) (*domain.Booking, error) {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, sessionID, bookingID, reason)
	}
	return &domain.Booking{ID: bookingID, Status: domain.BookingCancelled, CancellationReason: reason}, nil
}

func setupTestRouter(
	wizard service.WizardService,
	checkoutService service.CheckoutService,
	auth service.AuthService,
	bookings service.BookingService,
) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Session(middleware.SessionConfig{}))

	w := NewWizardHandler(wizard)
	router.GET("/wizard", w.Get)
	router.GET("/wizard/tours/:tour", w.Load)
	router.PUT("/wizard/date", w.SelectDate)
	router.PUT("/wizard/headcount", w.SetHeadcount)
	router.PUT("/wizard/travelers", w.UpdateTravelers)
	router.POST("/wizard/advance", w.Advance)
	router.POST("/wizard/submit", w.Submit)

	co := NewCheckoutHandler(checkoutService)
	router.GET("/checkout", co.Get)
	router.POST("/checkout/start", co.Start)
	router.PUT("/checkout/method", co.SelectMethod)
	router.POST("/checkout/card/confirm", co.ConfirmCard)
	router.POST("/checkout/bank-receipt", co.SubmitReceipt)

	a := NewAuthHandler(auth)
	router.POST("/auth/login", a.Login)
	router.GET("/auth/me", a.Me)

	b := NewBookingHandler(bookings)
	router.GET("/bookings", b.ListMine)
	router.POST("/bookings/:id/cancel", b.Cancel)
	return router
}

func defaultRouter() *gin.Engine {
	return setupTestRouter(&MockWizardService{}, &MockCheckoutService{}, &MockAuthService{}, &MockBookingService{})
}

func do(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.SessionIDHeader, testSessionID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestWizardHandler_Submit(t *testing.T) {
	tests := []struct {
		name           string
		submit         func(ctx context.Context, sessionID string) (*service.SubmitResult, error)
		expectedStatus int
		expectedCode   string
		checkBody      func(t *testing.T, resp response.Response)
	}{
		{
			name: "anonymous user is sent to login",
			submit: func(ctx context.Context, sessionID string) (*service.SubmitResult, error) {
				return &service.SubmitResult{RequiresLogin: true, RedirectTo: "/login?redirect=%2Fcheckout"}, nil
			},
			expectedStatus: http.StatusAccepted,
			checkBody: func(t *testing.T, resp response.Response) {
				data := resp.Data.(map[string]interface{})
				assert.Equal(t, true, data["requiresLogin"])
				assert.Equal(t, "/login?redirect=%2Fcheckout", data["redirectTo"])
			},
		},
		{
			name: "logged-in user starts checkout",
			submit: func(ctx context.Context, sessionID string) (*service.SubmitResult, error) {
				assert.Equal(t, testSessionID, sessionID)
				return &service.SubmitResult{Checkout: &checkout.Snapshot{State: checkout.StateAwaitingCardPayment, BookingID: "bk-1"}}, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "booking creation failure carries the checkout state",
			submit: func(ctx context.Context, sessionID string) (*service.SubmitResult, error) {
				snap := checkout.Snapshot{
					State:   checkout.StateFailed,
					Failure: &checkout.Failure{Kind: checkout.FailureBookingCreation, Message: "try again", Retryable: true},
				}
				return &service.SubmitResult{Checkout: &snap}, fmt.Errorf("failed to create booking: %w", &client.APIError{Status: 503, Message: "maintenance"})
			},
			expectedStatus: http.StatusBadGateway,
			expectedCode:   "UPSTREAM_ERROR",
			checkBody: func(t *testing.T, resp response.Response) {
				details := resp.Error.Details.(map[string]interface{})
				assert.Equal(t, "FAILED", details["state"])
			},
		},
		{
			name: "terms not accepted",
			submit: func(ctx context.Context, sessionID string) (*service.SubmitResult, error) {
				return nil, domain.ErrTermsNotAccepted
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter(&MockWizardService{SubmitFunc: tt.submit}, &MockCheckoutService{}, &MockAuthService{}, &MockBookingService{})
			w := do(router, http.MethodPost, "/wizard/submit", nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			resp := decode(t, w)
			if tt.expectedCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tt.expectedCode, resp.Error.Code)
			}
			if tt.checkBody != nil {
				tt.checkBody(t, resp)
			}
		})
	}
}

func TestWizardHandler_Operations(t *testing.T) {
	router := defaultRouter()

	w := do(router, http.MethodPut, "/wizard/date", map[string]string{"tourDateId": "date-1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodPut, "/wizard/date", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPut, "/wizard/headcount", map[string]int{"adults": 2, "children": 1})
	assert.Equal(t, http.StatusOK, w.Code)
	wizard := decode(t, w).Data.(map[string]interface{})["wizard"].(map[string]interface{})
	assert.Equal(t, float64(2), wizard["adults"])

	w = do(router, http.MethodPut, "/wizard/travelers", map[string]interface{}{
		"travelers": []map[string]string{{"key": "ADULT-0", "fullName": "Amal Haddad"}},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodPut, "/wizard/travelers", map[string]interface{}{"travelers": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/wizard/advance", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Details, "ADULT-0")

	w = do(router, http.MethodGet, "/wizard/tours/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "TOUR_NOT_FOUND", decode(t, w).Error.Code)
}

func TestCheckoutHandler_SelectMethod(t *testing.T) {
	router := defaultRouter()

	w := do(router, http.MethodPut, "/checkout/method", map[string]string{"method": "BANK_TRANSFER"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodPut, "/checkout/method", map[string]string{"method": "CRYPTO"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/checkout/start", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NO_ACTIVE_CHECKOUT", decode(t, w).Error.Code)
}

func TestCheckoutHandler_ConfirmCardFailures(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"declined", domain.ErrPaymentDeclined, http.StatusPaymentRequired, "PAYMENT_DECLINED"},
		{"captured not confirmed", fmt.Errorf("%w: %v", domain.ErrCapturedNotConfirmed, errors.New("timeout")), http.StatusBadGateway, "CAPTURED_NOT_CONFIRMED"},
		{"intent mismatch", domain.ErrPaymentIntentMismatch, http.StatusConflict, "PAYMENT_INTENT_MISMATCH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter(&MockWizardService{}, &MockCheckoutService{
				ConfirmCardFunc: func(ctx context.Context, sessionID, intentID string) (checkout.Snapshot, error) {
					return checkout.Snapshot{State: checkout.StateFailed}, tt.err
				},
			}, &MockAuthService{}, &MockBookingService{})

			w := do(router, http.MethodPost, "/checkout/card/confirm", map[string]string{"paymentIntentId": "pi_1"})
			assert.Equal(t, tt.expectedStatus, w.Code)
			resp := decode(t, w)
			assert.Equal(t, tt.expectedCode, resp.Error.Code)
			assert.NotNil(t, resp.Error.Details)
		})
	}
}

func multipartReceipt(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="receipt"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestCheckoutHandler_SubmitReceipt(t *testing.T) {
	var got domain.Receipt
	router := setupTestRouter(&MockWizardService{}, &MockCheckoutService{
		SubmitReceiptFunc: func(ctx context.Context, sessionID string, receipt domain.Receipt) (checkout.Snapshot, error) {
			got = receipt
			return checkout.Snapshot{State: checkout.StateSucceeded, Outcome: checkout.OutcomeAwaitingApproval}, nil
		},
	}, &MockAuthService{}, &MockBookingService{})

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	body, ct := multipartReceipt(t, "receipt.png", "image/png", png)
	req := httptest.NewRequest(http.MethodPost, "/checkout/bank-receipt", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set(middleware.SessionIDHeader, testSessionID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "receipt.png", got.Filename)
	assert.Equal(t, "image/png", got.ContentType)
	assert.Equal(t, png, got.Data)
}

func TestCheckoutHandler_SubmitReceiptRejected(t *testing.T) {
	router := defaultRouter()

	t.Run("missing file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/checkout/bank-receipt", nil)
		req.Header.Set(middleware.SessionIDHeader, testSessionID)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "RECEIPT_EMPTY", decode(t, w).Error.Code)
	})

	t.Run("over 5MB", func(t *testing.T) {
		body, ct := multipartReceipt(t, "big.png", "image/png", make([]byte, domain.MaxReceiptBytes+1))
		req := httptest.NewRequest(http.MethodPost, "/checkout/bank-receipt", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set(middleware.SessionIDHeader, testSessionID)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, "RECEIPT_TOO_LARGE", decode(t, w).Error.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	router := setupTestRouter(&MockWizardService{}, &MockCheckoutService{}, &MockAuthService{
		LoginFunc: func(ctx context.Context, sessionID string, creds domain.Credentials) (*service.AuthResult, error) {
			if creds.Password != "secret" {
				return nil, domain.ErrInvalidCredentials
			}
			return &service.AuthResult{
				User:     &domain.User{ID: "user-1", Email: creds.Email},
				Resumed:  true,
				Checkout: &checkout.Snapshot{State: checkout.StateAwaitingCardPayment},
			}, nil
		},
	}, &MockBookingService{})

	w := do(router, http.MethodPost, "/auth/login", map[string]string{"email": "amal@example.com", "password": "secret"})
	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, true, data["resumed"])

	w = do(router, http.MethodPost, "/auth/login", map[string]string{"email": "amal@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decode(t, w).Error.Code)

	w = do(router, http.MethodPost, "/auth/login", map[string]string{"email": "not-an-email", "password": "secret"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookingHandler_ListMine(t *testing.T) {
	upcoming := time.Now().Add(72 * time.Hour)
	var gotFilter domain.BookingFilter
	router := setupTestRouter(&MockWizardService{}, &MockCheckoutService{}, &MockAuthService{}, &MockBookingService{
		ListMineFunc: func(ctx context.Context, sessionID string, filter domain.BookingFilter) ([]domain.Booking, error) {
			gotFilter = filter
			return []domain.Booking{{ID: "bk-1", Status: domain.BookingConfirmed, StartDate: &upcoming}}, nil
		},
	})

	w := do(router, http.MethodGet, "/bookings?status=CONFIRMED", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.BookingConfirmed, gotFilter.Status)

	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])
	first := data["bookings"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, true, first["canCancel"])

	w = do(router, http.MethodGet, "/bookings?status=BOGUS", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandler_Cancel(t *testing.T) {
	router := setupTestRouter(&MockWizardService{}, &MockCheckoutService{}, &MockAuthService{}, &MockBookingService{
		CancelFunc: func(ctx context.Context, sessionID, bookingID, reason string) (*domain.Booking, error) {
			if bookingID == "bk-old" {
				return nil, domain.ErrBookingNotCancellable
			}
			return &domain.Booking{ID: bookingID, Status: domain.BookingCancelled, CancellationReason: reason}, nil
		},
	})

	w := do(router, http.MethodPost, "/bookings/bk-1/cancel", map[string]string{"reason": "sick"})
	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, "sick", data["cancellationReason"])

	w = do(router, http.MethodPost, "/bookings/bk-old/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "BOOKING_NOT_CANCELLABLE", decode(t, w).Error.Code)
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{domain.ErrBookingNotFound, http.StatusNotFound, "BOOKING_NOT_FOUND"},
		{domain.ErrDateNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrDateSoldOut, http.StatusConflict, "DATE_SOLD_OUT"},
		{domain.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
		{domain.ErrStaleResponse, http.StatusConflict, "STALE_RESPONSE"},
		{domain.ErrReceiptNotImage, http.StatusUnsupportedMediaType, "RECEIPT_NOT_IMAGE"},
		{domain.ErrInvalidPaymentMethod, http.StatusBadRequest, "VALIDATION_ERROR"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.expectedCode, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			handleError(c, tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedCode, decode(t, w).Error.Code)
		})
	}
}

func TestSessionID_Missing(t *testing.T) {
	router := gin.New()
	router.GET("/wizard", NewWizardHandler(&MockWizardService{}).Get)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/wizard", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_SESSION", decode(t, w).Error.Code)
}

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck(ctx context.Context) error { return s.err }

func TestHealthHandler_Ready(t *testing.T) {
	router := gin.New()
	healthy := NewHealthHandler(map[string]HealthChecker{"redis": stubChecker{}, "kafka": nil})
	unhealthy := NewHealthHandler(map[string]HealthChecker{"redis": stubChecker{err: errors.New("refused")}})
	router.GET("/health", healthy.Health)
	router.GET("/ready", healthy.Ready)
	router.GET("/ready-bad", unhealthy.Ready)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var ready ReadyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ready))
	assert.Equal(t, "not configured", ready.Components["kafka"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready-bad", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
