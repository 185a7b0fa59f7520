package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/weijianfa/ApolloOracle/internal/domain/errors"
	"github.com/weijianfa/ApolloOracle/internal/domain/model"
	"github.com/weijianfa/ApolloOracle/internal/pkg/signature"
	"github.com/weijianfa/ApolloOracle/internal/server/http/dto"
	"github.com/weijianfa/ApolloOracle/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// facadeStub provides controllable behaviour for the handlers under test.
type facadeStub struct {
	CreateOrderFn  func(context.Context, string, model.ProductKind, json.RawMessage, string) (*model.Order, string, error)
	OrderStatusFn  func(context.Context, string) (model.StatusSnapshot, error)
	ProcessEventFn func(context.Context, model.WebhookEvent) (usecase.WebhookOutcome, error)

	Events []model.WebhookEvent

	mu sync.Mutex
}

func (s *facadeStub) CreateOrder(ctx context.Context, userRef string, kind model.ProductKind, input json.RawMessage, affiliateCode string) (*model.Order, string, error) {
	if s.CreateOrderFn != nil {
		return s.CreateOrderFn(ctx, userRef, kind, input, affiliateCode)
	}
	order := &model.Order{
		ID:          "ORD-1-STUB",
		UserRef:     userRef,
		ProductKind: kind,
		Status:      model.OrderStatusPendingPayment,
		Amount:      29.99,
		Currency:    "USD",
	}
	return order, "https://pay.example/" + order.ID, nil
}

func (s *facadeStub) OrderStatus(ctx context.Context, orderID string) (model.StatusSnapshot, error) {
	if s.OrderStatusFn != nil {
		return s.OrderStatusFn(ctx, orderID)
	}
	return model.StatusSnapshot{}, domainErrors.ErrNotFound
}

func (s *facadeStub) ProcessPaymentEvent(ctx context.Context, evt model.WebhookEvent) (usecase.WebhookOutcome, error) {
	s.mu.Lock()
	s.Events = append(s.Events, evt)
	s.mu.Unlock()
	if s.ProcessEventFn != nil {
		return s.ProcessEventFn(ctx, evt)
	}
	return usecase.OutcomeApplied, nil
}

// RecordedEvents returns a copy of the events the stub has seen.
func (s *facadeStub) RecordedEvents() []model.WebhookEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.WebhookEvent, len(s.Events))
	copy(out, s.Events)
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func webhookRouter(facade WebhookFacade, verifier *signature.Verifier) *gin.Engine {
	engine := gin.New()
	handler := NewWebhookHandler(facade, verifier, discardLogger())
	engine.POST("/webhook/payment", handler.Receive)
	return engine
}

func orderRouter(facade OrderFacade) *gin.Engine {
	engine := gin.New()
	handler := NewOrderHandler(facade)
	engine.POST("/api/orders", handler.Create)
	engine.GET("/api/orders/:orderID", handler.Status)
	return engine
}

func signedWebhookRequest(t *testing.T, verifier *signature.Verifier, payload any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhook/payment", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, verifier.Sign(body))
	return req
}

func TestWebhookAppliesSignedEvent(t *testing.T) {
	verifier := signature.NewVerifier("secret")
	facade := &facadeStub{}
	router := webhookRouter(facade, verifier)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, signedWebhookRequest(t, verifier, dto.WebhookRequest{
		OrderID:          "ORD-1-A",
		EventID:          "evt-1",
		Status:           "paid",
		PaymentReference: "pay_123",
		Amount:           29.99,
		Currency:         "USD",
		Timestamp:        time.Now().Unix(),
	}))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var resp dto.WebhookResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Result != "applied" {
		t.Fatalf("unexpected result %q", resp.Result)
	}
	events := facade.RecordedEvents()
	if len(events) != 1 || events[0].Status != model.PaymentStatusPaid || events[0].PaymentReference != "pay_123" {
		t.Fatalf("unexpected recorded events %+v", events)
	}
}

func TestWebhookRejectsTamperedSignature(t *testing.T) {
	verifier := signature.NewVerifier("secret")
	facade := &facadeStub{}
	router := webhookRouter(facade, verifier)

	req := signedWebhookRequest(t, verifier, dto.WebhookRequest{OrderID: "ORD-1-A", Status: "paid", Amount: 29.99})
	tampered := []byte(`{"order_id":"ORD-1-A","status":"paid","amount":0.01}`)
	req.Body = io.NopCloser(bytes.NewReader(tampered))
	req.ContentLength = int64(len(tampered))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
	if len(facade.RecordedEvents()) != 0 {
		t.Fatal("tampered payload must never reach the facade")
	}
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	verifier := signature.NewVerifier("secret")
	router := webhookRouter(&facadeStub{}, verifier)

	req := httptest.NewRequest(http.MethodPost, "/webhook/payment", bytes.NewReader([]byte(`{"order_id":"ORD-1-A","status":"paid"}`)))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	verifier := signature.NewVerifier("secret")
	router := webhookRouter(&facadeStub{}, verifier)

	body := []byte(`{"order_id":`)
	req := httptest.NewRequest(http.MethodPost, "/webhook/payment", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, verifier.Sign(body))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestWebhookAcknowledgesDuplicate(t *testing.T) {
	verifier := signature.NewVerifier("secret")
	facade := &facadeStub{ProcessEventFn: func(context.Context, model.WebhookEvent) (usecase.WebhookOutcome, error) {
		return usecase.OutcomeDuplicate, nil
	}}
	router := webhookRouter(facade, verifier)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, signedWebhookRequest(t, verifier, dto.WebhookRequest{OrderID: "ORD-1-A", EventID: "evt-1", Status: "paid"}))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected duplicate to be acknowledged with 200, got %d", recorder.Code)
	}
	var resp dto.WebhookResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Result != "duplicate" {
		t.Fatalf("unexpected result %q", resp.Result)
	}
}

func TestWebhookAcknowledgesUnknownOrder(t *testing.T) {
	verifier := signature.NewVerifier("secret")
	facade := &facadeStub{ProcessEventFn: func(context.Context, model.WebhookEvent) (usecase.WebhookOutcome, error) {
		return "", domainErrors.ErrNotFound
	}}
	router := webhookRouter(facade, verifier)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, signedWebhookRequest(t, verifier, dto.WebhookRequest{OrderID: "ORD-GHOST", EventID: "evt-1", Status: "paid"}))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected unknown order to be acknowledged with 200, got %d", recorder.Code)
	}
}

func TestWebhookRejectsUnknownStatus(t *testing.T) {
	verifier := signature.NewVerifier("secret")
	facade := &facadeStub{ProcessEventFn: func(context.Context, model.WebhookEvent) (usecase.WebhookOutcome, error) {
		return "", usecase.ErrUnknownPaymentStatus
	}}
	router := webhookRouter(facade, verifier)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, signedWebhookRequest(t, verifier, dto.WebhookRequest{OrderID: "ORD-1-A", EventID: "evt-1", Status: "chargeback"}))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestCreateOrderReturnsCheckoutLink(t *testing.T) {
	router := orderRouter(&facadeStub{})

	body := []byte(`{"user_ref":"42","product":"natal_chart","user_input":{"birth_date":"1990-01-01"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", recorder.Code)
	}
	var resp dto.CreateOrderResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.PaymentURL == "" {
		t.Fatal("expected payment url in response")
	}
	if resp.Status != string(model.OrderStatusPendingPayment) {
		t.Fatalf("unexpected status %q", resp.Status)
	}
}

func TestCreateOrderRejectsUnknownProduct(t *testing.T) {
	facade := &facadeStub{CreateOrderFn: func(context.Context, string, model.ProductKind, json.RawMessage, string) (*model.Order, string, error) {
		return nil, "", domainErrors.ErrUnknownProduct
	}}
	router := orderRouter(facade)

	body := []byte(`{"user_ref":"42","product":"palm_reading"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", recorder.Code)
	}
}

func TestCreateOrderRejectsMissingFields(t *testing.T) {
	router := orderRouter(&facadeStub{})

	for name, body := range map[string]string{
		"no user":   `{"product":"natal_chart"}`,
		"no kind":   `{"user_ref":"42"}`,
		"malformed": `{"user_ref"`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader([]byte(body)))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, recorder.Code)
		}
	}
}

func TestOrderStatusReturnsSnapshot(t *testing.T) {
	facade := &facadeStub{OrderStatusFn: func(ctx context.Context, orderID string) (model.StatusSnapshot, error) {
		return model.StatusSnapshot{
			OrderID:          orderID,
			Status:           model.OrderStatusCompleted,
			ProductKind:      model.ProductNatalChart,
			Amount:           29.99,
			Currency:         "USD",
			GeneratedContent: "the stars align",
			UpdatedAt:        time.Now(),
		}, nil
	}}
	router := orderRouter(facade)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/ORD-1-A", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var resp dto.StatusResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.OrderID != "ORD-1-A" || resp.Status != "completed" || resp.Content != "the stars align" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestOrderStatusNotFound(t *testing.T) {
	router := orderRouter(&facadeStub{})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/missing", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}
