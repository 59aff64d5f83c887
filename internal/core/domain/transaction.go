package domain

import "time"

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
	PaymentQRIS PaymentMethod = "qris"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentQRIS:
		return true
	}
	return false
}

// Transaction settles exactly one order. Tendered and Change are always set,
// for non-cash methods Tendered equals Total and Change is zero.
type Transaction struct {
	ID         string        `json:"id"`
	OrderID    string        `json:"order_id"`
	OperatorID string        `json:"operator_id"`
	Method     PaymentMethod `json:"method"`
	Total      Money         `json:"total"`
	Tendered   Money         `json:"tendered"`
	Change     Money         `json:"change"`
	PaidAt     time.Time     `json:"paid_at"`
}

// Settle computes tendered and change for a payment of total. Cash requires
// tendered >= total.
func Settle(method PaymentMethod, total, tendered Money) (Money, Money, error) {
	if method != PaymentCash {
		return total, 0, nil
	}
	if tendered < total {
		return 0, 0, &PaymentError{
			Code: CodeInsufficientFunds,
			Msg:  "tendered " + tendered.String() + " is less than total " + total.String(),
		}
	}
	return tendered, tendered - total, nil
}
