package domain

import "fmt"

// Error codes are stable identifiers transports can hand to clients.
const (
	CodeCustomerRequired = "customer_required"
	CodeTableRequired    = "table_required"
	CodeTableUnknown     = "table_unknown"
	CodeTableOccupied    = "table_occupied"
	CodeCartEmpty        = "cart_empty"
	CodeItemUnknown      = "item_unknown"
	CodeItemUnavailable  = "item_unavailable"
	CodeQuantityInvalid  = "quantity_invalid"
	CodeMethodInvalid    = "method_invalid"
	CodeOperatorRequired = "operator_required"
	CodeRoleInvalid      = "role_invalid"
	CodeStatusInvalid    = "status_invalid"
	CodeOrderIDRequired  = "order_id_required"

	CodeOrderNotFound     = "order_not_found"
	CodeInvalidTransition = "invalid_transition"
	CodeForbidden         = "forbidden"
	CodeOrderPaid         = "order_paid"
	CodeOrderCancelled    = "order_cancelled"
	CodeNotPayable        = "not_payable"
	CodeStatusConflict    = "status_conflict"
	CodeNotReversible     = "not_reversible"

	CodeAlreadyPaid       = "already_paid"
	CodeInsufficientFunds = "insufficient_funds"
	CodePaymentInProgress = "payment_in_progress"

	CodeStoreFailure = "store_failure"
)

// ValidationError reports bad or missing input. It is raised before any write.
type ValidationError struct {
	Code  string
	Field string
	Msg   string
	Err   error
}

func (e *ValidationError) Error() string {
	s := "validation: "
	if e.Field != "" {
		s += e.Field + ": "
	}
	s += e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Is matches any ValidationError carrying the same code.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

// DomainError reports an operation the order's current state does not allow.
type DomainError struct {
	Code string
	Msg  string
	Err  error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return "domain: " + e.Msg + ": " + e.Err.Error()
	}
	return "domain: " + e.Msg
}

func (e *DomainError) Unwrap() error { return e.Err }

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// PaymentError reports a rejected payment.
type PaymentError struct {
	Code string
	Msg  string
	Err  error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return "payment: " + e.Msg + ": " + e.Err.Error()
	}
	return "payment: " + e.Msg
}

func (e *PaymentError) Unwrap() error { return e.Err }

func (e *PaymentError) Is(target error) bool {
	t, ok := target.(*PaymentError)
	return ok && t.Code == e.Code
}

// ConsistencyError means a multi-step write could not be completed or undone
// and the stores disagree. It is not recoverable by the caller.
type ConsistencyError struct {
	Op      string
	OrderID string
	Err     error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency: %s: order %s: %v", e.Op, e.OrderID, e.Err)
}

func (e *ConsistencyError) Unwrap() error { return e.Err }

var (
	ErrCustomerRequired = &ValidationError{Code: CodeCustomerRequired, Field: "customer_name", Msg: "customer name is required"}
	ErrTableRequired    = &ValidationError{Code: CodeTableRequired, Field: "table_id", Msg: "table is required"}
	ErrTableUnknown     = &ValidationError{Code: CodeTableUnknown, Field: "table_id", Msg: "table does not exist"}
	ErrTableOccupied    = &ValidationError{Code: CodeTableOccupied, Field: "table_id", Msg: "table is occupied"}
	ErrCartEmpty        = &ValidationError{Code: CodeCartEmpty, Field: "cart", Msg: "cart is empty"}
	ErrItemUnknown      = &ValidationError{Code: CodeItemUnknown, Field: "cart", Msg: "menu item does not exist"}
	ErrItemUnavailable  = &ValidationError{Code: CodeItemUnavailable, Field: "cart", Msg: "menu item is not available"}
	ErrQuantityInvalid  = &ValidationError{Code: CodeQuantityInvalid, Field: "quantity", Msg: "quantity must be at least 1"}
	ErrMethodInvalid    = &ValidationError{Code: CodeMethodInvalid, Field: "method", Msg: "payment method must be one of cash, card, qris"}
	ErrOperatorRequired = &ValidationError{Code: CodeOperatorRequired, Field: "operator_id", Msg: "operator is required"}
	ErrRoleInvalid      = &ValidationError{Code: CodeRoleInvalid, Field: "role", Msg: "unknown role"}
	ErrStatusInvalid    = &ValidationError{Code: CodeStatusInvalid, Field: "status", Msg: "unknown status"}
	ErrOrderIDRequired  = &ValidationError{Code: CodeOrderIDRequired, Field: "order_id", Msg: "order id is required"}

	ErrOrderNotFound     = &DomainError{Code: CodeOrderNotFound, Msg: "order not found"}
	ErrInvalidTransition = &DomainError{Code: CodeInvalidTransition, Msg: "status transition not allowed"}
	ErrForbidden         = &DomainError{Code: CodeForbidden, Msg: "role may not perform this transition"}
	ErrOrderPaid         = &DomainError{Code: CodeOrderPaid, Msg: "order already has a payment"}
	ErrOrderCancelled    = &DomainError{Code: CodeOrderCancelled, Msg: "order is cancelled"}
	ErrNotPayable        = &DomainError{Code: CodeNotPayable, Msg: "order is not ready for payment"}
	ErrStatusConflict    = &DomainError{Code: CodeStatusConflict, Msg: "order status changed concurrently"}
	ErrNotReversible     = &DomainError{Code: CodeNotReversible, Msg: "order can no longer be restored to the cart"}

	ErrAlreadyPaid       = &PaymentError{Code: CodeAlreadyPaid, Msg: "order already paid"}
	ErrInsufficientFunds = &PaymentError{Code: CodeInsufficientFunds, Msg: "tendered amount is less than total"}
	ErrPaymentInProgress = &PaymentError{Code: CodePaymentInProgress, Msg: "another payment for this order is in progress"}
)

// Store failures are reported in the error type of the operation that hit them.

func ValidationStoreFailure(msg string, err error) *ValidationError {
	return &ValidationError{Code: CodeStoreFailure, Msg: msg, Err: err}
}

func DomainStoreFailure(msg string, err error) *DomainError {
	return &DomainError{Code: CodeStoreFailure, Msg: msg, Err: err}
}

func PaymentStoreFailure(msg string, err error) *PaymentError {
	return &PaymentError{Code: CodeStoreFailure, Msg: msg, Err: err}
}
