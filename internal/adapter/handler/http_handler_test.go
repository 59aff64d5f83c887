package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rl1809/restopos/internal/core/domain"
	"github.com/rl1809/restopos/internal/core/service"
	"github.com/rl1809/restopos/internal/logger"
)

func serve(core OrderCore, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	NewHTTPHandler(core, logger.Discard()).Routes().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorHTTPResponse {
	t.Helper()
	var resp ErrorHTTPResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

func TestHealthCheck(t *testing.T) {
	rec := serve(newStubCore(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("expected a generated request id header")
	}
}

func TestSubmitOrder_UsesSessionCartWhenNoLines(t *testing.T) {
	core := newStubCore()
	core.carts["s1"] = domain.Cart{Lines: []domain.CartLine{{ItemID: "A", Quantity: 2, UnitPrice: 10000}}}

	var got service.SubmitOrderRequest
	core.submit = func(req service.SubmitOrderRequest) (*domain.Order, error) {
		got = req
		return &domain.Order{ID: "o-1", TableID: req.TableID, Status: domain.OrderStatusPending, Total: 20000}, nil
	}

	rec := serve(core, http.MethodPost, "/orders", SubmitOrderHTTPRequest{
		SessionID: "s1", TableID: "T1", CustomerName: "Budi",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(got.Cart.Lines) != 1 || got.Cart.Lines[0].ItemID != "A" {
		t.Errorf("expected the session cart to be submitted, got %+v", got.Cart)
	}

	var order domain.Order
	json.NewDecoder(rec.Body).Decode(&order)
	if order.ID != "o-1" || order.Total != 20000 {
		t.Errorf("unexpected order %+v", order)
	}
}

func TestSubmitOrder_InvalidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	NewHTTPHandler(newStubCore(), logger.Discard()).Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "invalid_body" {
		t.Errorf("expected invalid_body, got %s", resp.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", domain.ErrCustomerRequired, http.StatusBadRequest, domain.CodeCustomerRequired},
		{"table occupied", domain.ErrTableOccupied, http.StatusConflict, domain.CodeTableOccupied},
		{"not found", domain.ErrOrderNotFound, http.StatusNotFound, domain.CodeOrderNotFound},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, domain.CodeForbidden},
		{"invalid transition", domain.ErrInvalidTransition, http.StatusConflict, domain.CodeInvalidTransition},
		{"already paid", domain.ErrAlreadyPaid, http.StatusConflict, domain.CodeAlreadyPaid},
		{"insufficient", domain.ErrInsufficientFunds, http.StatusUnprocessableEntity, domain.CodeInsufficientFunds},
		{"store down", domain.DomainStoreFailure("load order", errors.New("timeout")), http.StatusServiceUnavailable, domain.CodeStoreFailure},
		{"consistency", &domain.ConsistencyError{Op: "rollback", OrderID: "o-1", Err: errors.New("boom")}, http.StatusInternalServerError, "consistency_failure"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core := newStubCore()
			core.getOrder = func(string) (*domain.Order, error) { return nil, tt.err }

			rec := serve(core, http.MethodGet, "/orders/o-1", nil)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if resp := decodeError(t, rec); resp.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, resp.Code)
			}
		})
	}
}

func TestAdvanceStatus_ConsistencyCarriesOrder(t *testing.T) {
	core := newStubCore()
	core.advance = func(id string, to domain.OrderStatus, role domain.Role) (*domain.Order, error) {
		if role != domain.RoleWaiter || to != domain.OrderStatusProses {
			t.Errorf("unexpected call %s %s", to, role)
		}
		return &domain.Order{ID: id, Status: to},
			&domain.ConsistencyError{Op: "mirror line status", OrderID: id, Err: errors.New("lines down")}
	}

	rec := serve(core, http.MethodPost, "/orders/o-9/status", AdvanceStatusHTTPRequest{
		Status: domain.OrderStatusProses, Role: domain.RoleWaiter,
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	resp := decodeError(t, rec)
	result, ok := resp.Result.(map[string]any)
	if !ok || result["status"] != string(domain.OrderStatusProses) {
		t.Errorf("expected committed order in result, got %#v", resp.Result)
	}
}

func TestPay(t *testing.T) {
	core := newStubCore()
	core.pay = func(req service.PayRequest) (*domain.Transaction, error) {
		if req.OrderID != "o-1" || req.Tendered != 50000 || req.Method != domain.PaymentCash {
			t.Errorf("unexpected request %+v", req)
		}
		return &domain.Transaction{ID: "tx-1", OrderID: req.OrderID, Total: 45000, Tendered: 50000, Change: 5000}, nil
	}

	rec := serve(core, http.MethodPost, "/orders/o-1/pay", PayHTTPRequest{
		Method: domain.PaymentCash, Tendered: 50000, OperatorID: "kasir-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var tx domain.Transaction
	json.NewDecoder(rec.Body).Decode(&tx)
	if tx.Change != 5000 {
		t.Errorf("expected change 5000, got %d", tx.Change)
	}
}

func TestRestoreAndOccupancy(t *testing.T) {
	core := newStubCore()
	core.restore = func(orderID, session string) (domain.Cart, error) {
		return domain.Cart{Lines: []domain.CartLine{{ItemID: "A", Quantity: 2}}}, nil
	}
	core.occupancy = func() (map[string]domain.Occupancy, error) {
		return map[string]domain.Occupancy{"T1": domain.TableOccupied, "T2": domain.TableAvailable}, nil
	}

	rec := serve(core, http.MethodPost, "/orders/o-1/restore", RestoreHTTPRequest{SessionID: "s1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("restore: expected 200, got %d", rec.Code)
	}

	rec = serve(core, http.MethodGet, "/tables/occupancy", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("occupancy: expected 200, got %d", rec.Code)
	}
	var occ map[string]domain.Occupancy
	json.NewDecoder(rec.Body).Decode(&occ)
	if occ["T1"] != domain.TableOccupied || occ["T2"] != domain.TableAvailable {
		t.Errorf("unexpected occupancy %v", occ)
	}
}

func TestCartRoutes(t *testing.T) {
	core := newStubCore()

	rec := serve(core, http.MethodPost, "/carts/s1/items", AddToCartHTTPRequest{ItemID: "A", Quantity: 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("add: expected 200, got %d", rec.Code)
	}

	rec = serve(core, http.MethodPost, "/carts/s1/items", AddToCartHTTPRequest{ItemID: "A", Quantity: 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("add zero: expected 400, got %d", rec.Code)
	}

	rec = serve(core, http.MethodDelete, "/carts/s1/items/A", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove: expected 200, got %d", rec.Code)
	}

	rec = serve(core, http.MethodGet, "/carts/s1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	var cart domain.Cart
	json.NewDecoder(rec.Body).Decode(&cart)
	if !cart.IsEmpty() {
		t.Errorf("expected empty cart, got %+v", cart)
	}
}
