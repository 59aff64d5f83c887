package port

import (
	"context"
	"time"

	"github.com/rl1809/restopos/internal/core/domain"
)

type StatusChange struct {
	OrderID   string             `json:"order_id"`
	TableID   string             `json:"table_id"`
	OldStatus domain.OrderStatus `json:"old_status"`
	NewStatus domain.OrderStatus `json:"new_status"`
	ChangedBy string             `json:"changed_by"`
	Reason    string             `json:"reason"`
	Timestamp time.Time          `json:"timestamp"`
}

type EventPublisher interface {
	// PublishStatusChange announces a committed order status change
	PublishStatusChange(ctx context.Context, change StatusChange) error
}
