package ports

import (
	"context"

	"github.com/rbroggi/accountsvc/internal/core/model"
)

// UserEventHandler consumes user change events captured from the users table.
type UserEventHandler interface {
	// Handle processes one event. A non-nil error asks the caller to redeliver it.
	Handle(ctx context.Context, userEvent model.UserEvent) error
}

// Sender publishes public user events to downstream consumers.
type Sender interface {
	// Send blocks until the event is accepted by the broker.
	Send(ctx context.Context, event model.UserEvent) error
}
