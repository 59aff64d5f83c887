package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/rl1809/restopos/internal/core/domain"
	"github.com/rl1809/restopos/internal/core/service"
	"github.com/rl1809/restopos/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// OrderCore is the order lifecycle surface both transports serve.
type OrderCore interface {
	SubmitOrder(ctx context.Context, req service.SubmitOrderRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	AdvanceStatus(ctx context.Context, orderID string, target domain.OrderStatus, role domain.Role) (*domain.Order, error)
	Pay(ctx context.Context, req service.PayRequest) (*domain.Transaction, error)
	CancelAndRestore(ctx context.Context, orderID, sessionID string) (domain.Cart, error)
	GetTableOccupancy(ctx context.Context) (map[string]domain.Occupancy, error)
	GetCart(ctx context.Context, sessionID string) (domain.Cart, error)
	AddToCart(ctx context.Context, sessionID, itemID string, qty int) (domain.Cart, error)
	RemoveFromCart(ctx context.Context, sessionID, itemID string) (domain.Cart, error)
}

type HTTPHandler struct {
	core OrderCore
	log  *logger.Logger
}

type SubmitOrderHTTPRequest struct {
	SessionID    string            `json:"session_id"`
	TableID      string            `json:"table_id"`
	CustomerName string            `json:"customer_name"`
	Note         string            `json:"note"`
	Lines        []domain.CartLine `json:"lines"`
}

type AdvanceStatusHTTPRequest struct {
	Status domain.OrderStatus `json:"status"`
	Role   domain.Role        `json:"role"`
}

type PayHTTPRequest struct {
	Method     domain.PaymentMethod `json:"method"`
	Tendered   domain.Money         `json:"tendered"`
	OperatorID string               `json:"operator_id"`
}

type RestoreHTTPRequest struct {
	SessionID string `json:"session_id"`
}

type AddToCartHTTPRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type ErrorHTTPResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Result carries what was committed when a later step failed.
	Result any `json:"result,omitempty"`
}

func NewHTTPHandler(core OrderCore, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{core: core, log: log}
}

// Routes builds the REST router.
func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(h.requestID)
	r.Use(middleware.Recoverer)
	r.Use(h.accessLog)

	r.Get("/health", h.HealthCheck)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.SubmitOrder)
		r.Get("/{id}", h.GetOrder)
		r.Post("/{id}/status", h.AdvanceStatus)
		r.Post("/{id}/pay", h.Pay)
		r.Post("/{id}/restore", h.CancelAndRestore)
	})

	r.Get("/tables/occupancy", h.TableOccupancy)

	r.Route("/carts/{session}", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Post("/items", h.AddToCart)
		r.Delete("/items/{item}", h.RemoveFromCart)
	})

	return r
}

func (h *HTTPHandler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, rid)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), rid)))
	})
}

func (h *HTTPHandler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.log.Info(r.Context(), "http_request", r.Method+" "+r.URL.Path,
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)))
	})
}

// SubmitOrder places the posted lines, or the session cart when no lines are posted.
func (h *HTTPHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	cart := domain.Cart{Lines: req.Lines}
	if cart.IsEmpty() && req.SessionID != "" {
		stored, err := h.core.GetCart(r.Context(), req.SessionID)
		if err != nil {
			h.writeError(w, r, err, nil)
			return
		}
		cart = stored
	}

	order, err := h.core.SubmitOrder(r.Context(), service.SubmitOrderRequest{
		SessionID:    req.SessionID,
		Cart:         cart,
		TableID:      req.TableID,
		CustomerName: req.CustomerName,
		Note:         req.Note,
	})
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.core.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err, order)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	var req AdvanceStatusHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.core.AdvanceStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.Role)
	if err != nil {
		h.writeError(w, r, err, order)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req PayHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	tx, err := h.core.Pay(r.Context(), service.PayRequest{
		OrderID:    chi.URLParam(r, "id"),
		Method:     req.Method,
		Tendered:   req.Tendered,
		OperatorID: req.OperatorID,
	})
	if err != nil {
		h.writeError(w, r, err, tx)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *HTTPHandler) CancelAndRestore(w http.ResponseWriter, r *http.Request) {
	var req RestoreHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	cart, err := h.core.CancelAndRestore(r.Context(), chi.URLParam(r, "id"), req.SessionID)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *HTTPHandler) TableOccupancy(w http.ResponseWriter, r *http.Request) {
	occupancy, err := h.core.GetTableOccupancy(r.Context())
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, occupancy)
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.core.GetCart(r.Context(), chi.URLParam(r, "session"))
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *HTTPHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req AddToCartHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	cart, err := h.core.AddToCart(r.Context(), chi.URLParam(r, "session"), req.ItemID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *HTTPHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.core.RemoveFromCart(r.Context(), chi.URLParam(r, "session"), chi.URLParam(r, "item"))
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{
			Code:    "invalid_body",
			Message: "invalid request body",
		})
		return false
	}
	return true
}

// writeError answers with the mapped status. partial is included when the
// service committed something before failing.
func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error, partial any) {
	f := classify(err)
	if f.httpStatus >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "http_request_failed", f.message, err,
			slog.String("path", r.URL.Path), slog.String("code", f.code))
	}

	resp := ErrorHTTPResponse{Code: f.code, Message: f.message}
	switch v := partial.(type) {
	case *domain.Order:
		if v != nil {
			resp.Result = v
		}
	case *domain.Transaction:
		if v != nil {
			resp.Result = v
		}
	}
	writeJSON(w, f.httpStatus, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
