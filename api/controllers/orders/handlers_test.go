package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pos-backend/api/middleware"
	internalorders "github.com/angelmondragon/pos-backend/internal/orders"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
)

type stubOrdersService struct {
	sale    func(ctx context.Context, input internalorders.SaleInput) (*internalorders.OrderDetail, error)
	cancel  func(ctx context.Context, input internalorders.CancelInput) (*internalorders.OrderDetail, error)
	returns func(ctx context.Context, input internalorders.ReturnInput) (*internalorders.ReturnResult, error)
}

func (s *stubOrdersService) CreateSale(ctx context.Context, input internalorders.SaleInput) (*internalorders.OrderDetail, error) {
	return s.sale(ctx, input)
}

func (s *stubOrdersService) CreateQuote(ctx context.Context, input internalorders.QuoteInput) (*internalorders.OrderDetail, error) {
	panic("unimplemented")
}

func (s *stubOrdersService) ConfirmQuote(ctx context.Context, input internalorders.ConfirmQuoteInput) (*internalorders.OrderDetail, error) {
	panic("unimplemented")
}

func (s *stubOrdersService) CancelSale(ctx context.Context, input internalorders.CancelInput) (*internalorders.OrderDetail, error) {
	return s.cancel(ctx, input)
}

func (s *stubOrdersService) ReturnSale(ctx context.Context, input internalorders.ReturnInput) (*internalorders.ReturnResult, error) {
	return s.returns(ctx, input)
}

func (s *stubOrdersService) Get(ctx context.Context, businessID, orderID uuid.UUID) (*internalorders.OrderDetail, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func withActor(req *http.Request, actor middleware.Actor) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}

func withOrderID(req *http.Request, id uuid.UUID) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", id.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateSaleMapsRequestOntoInput(t *testing.T) {
	actor := middleware.Actor{ID: uuid.New(), Role: "cashier", BusinessID: uuid.New()}
	productID := uuid.New()
	var got internalorders.SaleInput
	svc := &stubOrdersService{sale: func(ctx context.Context, input internalorders.SaleInput) (*internalorders.OrderDetail, error) {
		got = input
		return &internalorders.OrderDetail{Order: models.Order{Number: "VTA-2026-00001"}}, nil
	}}

	body := `{"lines":[{"product_id":"` + productID.String() + `","quantity":2}],` +
		`"payments":[{"method":"cash","amount":"100.00"}],"notes":"  counter  "}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(body)), actor)
	resp := httptest.NewRecorder()
	CreateSale(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, actor.BusinessID, got.BusinessID)
	require.Equal(t, actor.ID, got.ActorID)
	require.Len(t, got.Lines, 1)
	require.Equal(t, productID, got.Lines[0].ProductID)
	require.Equal(t, 2, got.Lines[0].Quantity)
	require.Nil(t, got.Lines[0].UnitPrice)
	require.Equal(t, enums.PaymentMethodCash, got.Payments[0].Method)
	require.True(t, got.Payments[0].Amount.Equal(decimal.NewFromInt(100)))
	require.Equal(t, "counter", got.Notes)

	var envelope struct {
		Data internalorders.OrderDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Equal(t, "VTA-2026-00001", envelope.Data.Order.Number)
}

func TestCreateSaleRejectsBadPayloads(t *testing.T) {
	svc := &stubOrdersService{sale: func(ctx context.Context, input internalorders.SaleInput) (*internalorders.OrderDetail, error) {
		t.Fatalf("service must not be called")
		return nil, nil
	}}
	product := uuid.NewString()
	cases := map[string]string{
		"no lines":         `{"lines":[],"payments":[{"method":"cash","amount":"1"}]}`,
		"zero quantity":    `{"lines":[{"product_id":"` + product + `","quantity":0}],"payments":[{"method":"cash","amount":"1"}]}`,
		"mixed tender":     `{"lines":[{"product_id":"` + product + `","quantity":1}],"payments":[{"method":"mixed","amount":"1"}]}`,
		"unknown field":    `{"lines":[{"product_id":"` + product + `","quantity":1}],"payments":[{"method":"cash","amount":"1"}],"foo":1}`,
		"missing payments": `{"lines":[{"product_id":"` + product + `","quantity":1}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(body)), middleware.Actor{ID: uuid.New(), BusinessID: uuid.New()})
			resp := httptest.NewRecorder()
			CreateSale(svc, nil).ServeHTTP(resp, req)
			require.Equal(t, http.StatusBadRequest, resp.Code)
		})
	}
}

func TestCancelSurfacesBusinessRuleErrors(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{cancel: func(ctx context.Context, input internalorders.CancelInput) (*internalorders.OrderDetail, error) {
		require.Equal(t, orderID, input.OrderID)
		require.Equal(t, "wrong item", input.Reason)
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "order VTA-2026-00001 cannot be cancelled in status cancelled")
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel", strings.NewReader(`{"reason":"wrong item"}`))
	req = withOrderID(withActor(req, middleware.Actor{ID: uuid.New(), BusinessID: uuid.New()}), orderID)
	resp := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	require.Contains(t, resp.Body.String(), "cannot be cancelled")
}

func TestReturnRequiresItems(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{returns: func(ctx context.Context, input internalorders.ReturnInput) (*internalorders.ReturnResult, error) {
		t.Fatalf("service must not be called")
		return nil, nil
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/returns", strings.NewReader(`{"items":[]}`))
	req = withOrderID(withActor(req, middleware.Actor{ID: uuid.New(), BusinessID: uuid.New()}), orderID)
	resp := httptest.NewRecorder()
	Return(svc, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetRejectsMalformedOrderID(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", "nope")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/nope", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	resp := httptest.NewRecorder()
	Get(&stubOrdersService{}, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}
