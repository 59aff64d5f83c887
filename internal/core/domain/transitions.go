package domain

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOwner    Role = "owner"
	RoleWaiter   Role = "waiter"
	RoleCashier  Role = "cashier"
	RoleCustomer Role = "customer"
)

func (r Role) Valid() bool {
	_, ok := capabilities[r]
	return ok
}

type Transition struct {
	From OrderStatus
	To   OrderStatus
}

// machine lists every transition the order lifecycle knows about. Payment
// moves an order to selesai outside of this table.
var machine = map[Transition]bool{
	{OrderStatusPending, OrderStatusProses}:    true,
	{OrderStatusProses, OrderStatusSelesai}:    true,
	{OrderStatusPending, OrderStatusCancelled}: true,
	{OrderStatusProses, OrderStatusCancelled}:  true,
}

var staff = []Transition{
	{OrderStatusPending, OrderStatusProses},
	{OrderStatusProses, OrderStatusSelesai},
	{OrderStatusPending, OrderStatusCancelled},
	{OrderStatusProses, OrderStatusCancelled},
}

// capabilities is the role → allowed transitions table.
var capabilities = map[Role][]Transition{
	RoleAdmin:  staff,
	RoleOwner:  staff,
	RoleWaiter: staff,
	RoleCashier: {
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusProses, OrderStatusCancelled},
	},
	RoleCustomer: {
		{OrderStatusPending, OrderStatusCancelled},
	},
}

// CheckTransition validates from → to for role. It returns ErrRoleInvalid or
// ErrStatusInvalid for unknown inputs, ErrInvalidTransition when the lifecycle
// has no such edge and ErrForbidden when the role lacks the capability.
func CheckTransition(role Role, from, to OrderStatus) error {
	if !role.Valid() {
		return ErrRoleInvalid
	}
	if !to.Valid() {
		return ErrStatusInvalid
	}
	if !machine[Transition{from, to}] {
		return &DomainError{
			Code: CodeInvalidTransition,
			Msg:  "cannot move order from " + string(from) + " to " + string(to),
		}
	}
	for _, t := range capabilities[role] {
		if t.From == from && t.To == to {
			return nil
		}
	}
	return &DomainError{
		Code: CodeForbidden,
		Msg:  string(role) + " may not move order from " + string(from) + " to " + string(to),
	}
}

// Payable reports whether an order in status s may receive a payment.
func Payable(s OrderStatus) bool {
	return s == OrderStatusProses || s == OrderStatusSelesai
}
