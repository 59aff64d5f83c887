package handler

import (
	"context"
	"encoding/json"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/restopos/internal/core/domain"
	"github.com/rl1809/restopos/internal/core/service"
	"github.com/rl1809/restopos/internal/logger"
)

// CodecName is the content subtype clients select with grpc.CallContentSubtype.
const CodecName = "json"

const serviceName = "restopos.OrderLifecycle"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type SubmitOrderRPCRequest struct {
	SessionID    string            `json:"session_id"`
	TableID      string            `json:"table_id"`
	CustomerName string            `json:"customer_name"`
	Note         string            `json:"note"`
	Lines        []domain.CartLine `json:"lines"`
}

type AdvanceStatusRPCRequest struct {
	OrderID string             `json:"order_id"`
	Status  domain.OrderStatus `json:"status"`
	Role    domain.Role        `json:"role"`
}

type PayRPCRequest struct {
	OrderID    string               `json:"order_id"`
	Method     domain.PaymentMethod `json:"method"`
	Tendered   domain.Money         `json:"tendered"`
	OperatorID string               `json:"operator_id"`
}

type CancelAndRestoreRPCRequest struct {
	OrderID   string `json:"order_id"`
	SessionID string `json:"session_id"`
}

type OccupancyRPCRequest struct{}

type OccupancyRPCResponse struct {
	Tables map[string]domain.Occupancy `json:"tables"`
}

// OrderLifecycleServer is implemented by GRPCHandler.
type OrderLifecycleServer interface {
	SubmitOrder(context.Context, *SubmitOrderRPCRequest) (*domain.Order, error)
	AdvanceStatus(context.Context, *AdvanceStatusRPCRequest) (*domain.Order, error)
	Pay(context.Context, *PayRPCRequest) (*domain.Transaction, error)
	CancelAndRestore(context.Context, *CancelAndRestoreRPCRequest) (*domain.Cart, error)
	GetTableOccupancy(context.Context, *OccupancyRPCRequest) (*OccupancyRPCResponse, error)
}

type GRPCHandler struct {
	core OrderCore
	log  *logger.Logger
}

var _ OrderLifecycleServer = (*GRPCHandler)(nil)

func NewGRPCHandler(core OrderCore, log *logger.Logger) *GRPCHandler {
	return &GRPCHandler{core: core, log: log}
}

// Register attaches the handler to s.
func (h *GRPCHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&orderLifecycleDesc, h)
}

func (h *GRPCHandler) SubmitOrder(ctx context.Context, req *SubmitOrderRPCRequest) (*domain.Order, error) {
	order, err := h.core.SubmitOrder(ctx, service.SubmitOrderRequest{
		SessionID:    req.SessionID,
		Cart:         domain.Cart{Lines: req.Lines},
		TableID:      req.TableID,
		CustomerName: req.CustomerName,
		Note:         req.Note,
	})
	if err != nil {
		return nil, h.toStatus(ctx, "SubmitOrder", err)
	}
	return order, nil
}

func (h *GRPCHandler) AdvanceStatus(ctx context.Context, req *AdvanceStatusRPCRequest) (*domain.Order, error) {
	order, err := h.core.AdvanceStatus(ctx, req.OrderID, req.Status, req.Role)
	if err != nil {
		return nil, h.toStatus(ctx, "AdvanceStatus", err)
	}
	return order, nil
}

func (h *GRPCHandler) Pay(ctx context.Context, req *PayRPCRequest) (*domain.Transaction, error) {
	tx, err := h.core.Pay(ctx, service.PayRequest{
		OrderID:    req.OrderID,
		Method:     req.Method,
		Tendered:   req.Tendered,
		OperatorID: req.OperatorID,
	})
	if err != nil {
		return nil, h.toStatus(ctx, "Pay", err)
	}
	return tx, nil
}

func (h *GRPCHandler) CancelAndRestore(ctx context.Context, req *CancelAndRestoreRPCRequest) (*domain.Cart, error) {
	cart, err := h.core.CancelAndRestore(ctx, req.OrderID, req.SessionID)
	if err != nil {
		return nil, h.toStatus(ctx, "CancelAndRestore", err)
	}
	return &cart, nil
}

func (h *GRPCHandler) GetTableOccupancy(ctx context.Context, _ *OccupancyRPCRequest) (*OccupancyRPCResponse, error) {
	tables, err := h.core.GetTableOccupancy(ctx)
	if err != nil {
		return nil, h.toStatus(ctx, "GetTableOccupancy", err)
	}
	return &OccupancyRPCResponse{Tables: tables}, nil
}

func (h *GRPCHandler) toStatus(ctx context.Context, method string, err error) error {
	f := classify(err)
	if f.httpStatus >= 500 {
		h.log.Error(ctx, "grpc_request_failed", f.message, err,
			slog.String("method", method), slog.String("code", f.code))
	}
	return status.Error(f.grpcCode, f.code+": "+f.message)
}

// RequestIDInterceptor copies x-request-id metadata into the context logger.
func RequestIDInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get("x-request-id"); len(ids) > 0 {
			ctx = logger.WithRequestID(ctx, ids[0])
		}
	}
	return next(ctx, req)
}

func unary[Req any, Resp any](method string, call func(OrderLifecycleServer, context.Context, *Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(OrderLifecycleServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(OrderLifecycleServer), ctx, req.(*Req))
			})
		},
	}
}

var orderLifecycleDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*OrderLifecycleServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("SubmitOrder", OrderLifecycleServer.SubmitOrder),
		unary("AdvanceStatus", OrderLifecycleServer.AdvanceStatus),
		unary("Pay", OrderLifecycleServer.Pay),
		unary("CancelAndRestore", OrderLifecycleServer.CancelAndRestore),
		unary("GetTableOccupancy", OrderLifecycleServer.GetTableOccupancy),
	},
	Streams: []grpc.StreamDesc{},
}

// OrderLifecycleClient calls the order lifecycle service with the JSON codec.
type OrderLifecycleClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderLifecycleClient(cc grpc.ClientConnInterface) *OrderLifecycleClient {
	return &OrderLifecycleClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderLifecycleClient) SubmitOrder(ctx context.Context, in *SubmitOrderRPCRequest, opts ...grpc.CallOption) (*domain.Order, error) {
	return invoke[domain.Order](ctx, c.cc, "SubmitOrder", in, opts)
}

func (c *OrderLifecycleClient) AdvanceStatus(ctx context.Context, in *AdvanceStatusRPCRequest, opts ...grpc.CallOption) (*domain.Order, error) {
	return invoke[domain.Order](ctx, c.cc, "AdvanceStatus", in, opts)
}

func (c *OrderLifecycleClient) Pay(ctx context.Context, in *PayRPCRequest, opts ...grpc.CallOption) (*domain.Transaction, error) {
	return invoke[domain.Transaction](ctx, c.cc, "Pay", in, opts)
}

func (c *OrderLifecycleClient) CancelAndRestore(ctx context.Context, in *CancelAndRestoreRPCRequest, opts ...grpc.CallOption) (*domain.Cart, error) {
	return invoke[domain.Cart](ctx, c.cc, "CancelAndRestore", in, opts)
}

func (c *OrderLifecycleClient) GetTableOccupancy(ctx context.Context, opts ...grpc.CallOption) (*OccupancyRPCResponse, error) {
	return invoke[OccupancyRPCResponse](ctx, c.cc, "GetTableOccupancy", &OccupancyRPCRequest{}, opts)
}
