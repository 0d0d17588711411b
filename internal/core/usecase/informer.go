package usecase

import (
	"context"
	"fmt"

	"github.com/rbroggi/accountsvc/internal/core/model"
	"github.com/rbroggi/accountsvc/internal/core/ports"
)

// NewInformer builds a new informer.
func NewInformer(sender ports.Sender) *Informer {
	return &Informer{sender: sender}
}

// Informer turns CDC events of the users table into public user events.
type Informer struct {
	sender ports.Sender
}

// Handle forwards the public images of the change. Changes that touch nothing public, such as a
// password rotation, are dropped.
func (i *Informer) Handle(ctx context.Context, userEvent model.UserEvent) error {
	public := model.UserEvent{
		ID:     userEvent.ID,
		Before: publicImage(userEvent.Before),
		After:  publicImage(userEvent.After),
	}
	if samePublicState(public.Before, public.After) {
		return nil
	}

	if err := i.sender.Send(ctx, public); err != nil {
		return fmt.Errorf("error sending user event ID [%s]: %w", public.ID, err)
	}
	return nil
}

// publicImage returns a copy of the row without its password hash.
func publicImage(user *model.User) *model.User {
	if user == nil {
		return nil
	}
	image := *user
	image.PasswordHash = ""
	return &image
}

// samePublicState ignores update_time, which moves on every write.
func samePublicState(before, after *model.User) bool {
	if before == nil || after == nil {
		return before == nil && after == nil
	}
	return before.ID == after.ID &&
		before.Name == after.Name &&
		before.Nickname == after.Nickname &&
		before.Email == after.Email &&
		before.Bio == after.Bio &&
		before.CreationTime.Equal(after.CreationTime)
}
