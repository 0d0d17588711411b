package subscriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"github.com/rbroggi/accountsvc/internal/core/model"
	"github.com/rbroggi/accountsvc/internal/core/ports"

	log "github.com/sirupsen/logrus"
)

const usersTable = "users"

// SubscriberArgs contain the mandatory arguments to build a subscriber.
type SubscriberArgs struct {
	// Subscription is a pubsub subscription
	Subscription *pubsub.Subscription

	// UserEventHandler is a event handler
	UserEventHandler ports.UserEventHandler
}

// Subscriber is a pubsub async subscriber
type Subscriber struct {
	subscription     *pubsub.Subscription
	userEventHandler ports.UserEventHandler
}

// NewSubscriber creates a subscriber
func NewSubscriber(args SubscriberArgs) (*Subscriber, error) {
	if args.Subscription == nil {
		return nil, errors.New("subscription is nil")
	}
	if args.UserEventHandler == nil {
		return nil, errors.New("user event handler is nil")
	}
	return &Subscriber{
		subscription:     args.Subscription,
		userEventHandler: args.UserEventHandler,
	}, nil
}

// Consume starts the subscriber. This is a blocking method and should be started in it's own go-routine.
// The way to terminate the method is to cancel the context in input.
func (s *Subscriber) Consume(ctx context.Context) error {
	if err := s.subscription.Receive(ctx, s.receive); err != nil {
		return fmt.Errorf("error receiving messages from subscription: %w", err)
	}
	return nil
}

func (s *Subscriber) receive(ctx context.Context, msg *pubsub.Message) {
	userEvent, err := decodeMsgIntoUserEvent(msg)
	if errors.Is(err, ErrIgnoreEvent) {
		msg.Ack()
		return
	} else if err != nil {
		log.WithError(err).WithField("msg-id", msg.ID).Error("error decoding message into user-event")
		msg.Nack()
		return
	}

	if err := s.userEventHandler.Handle(ctx, *userEvent); err != nil {
		log.WithError(err).WithField("msg-id", msg.ID).Error("error in user event handler")
		msg.Nack()
		return
	}
	msg.Ack()
}

// ErrIgnoreEvent is returned for change events of other tables.
var ErrIgnoreEvent = errors.New("event should be ignored")

func decodeMsgIntoUserEvent(msg *pubsub.Message) (*model.UserEvent, error) {
	if msg == nil {
		return nil, errors.New("cannot decode nil pubsub msg")
	}
	debeziumMsg := new(debeziumMessage)
	if err := json.Unmarshal(msg.Data, debeziumMsg); err != nil {
		return nil, fmt.Errorf("json unmarshal error: %w", err)
	}

	if debeziumMsg.Payload.Source.Table != usersTable {
		return nil, ErrIgnoreEvent
	}

	before, err := translateUserToModel(debeziumMsg.Payload.Before)
	if err != nil {
		return nil, fmt.Errorf("error decoding 'before' state: %w", err)
	}
	after, err := translateUserToModel(debeziumMsg.Payload.After)
	if err != nil {
		return nil, fmt.Errorf("error decoding 'after' state: %w", err)
	}

	return &model.UserEvent{ID: msg.ID, Before: before, After: after}, nil
}

func translateUserToModel(dbzUser *debeziumUser) (*model.User, error) {
	if dbzUser == nil {
		return nil, nil
	}
	id, err := uuid.Parse(dbzUser.ID)
	if err != nil {
		return nil, err
	}

	return &model.User{
		ID:           id,
		Name:         dbzUser.Name,
		Nickname:     dbzUser.Nickname,
		Email:        dbzUser.Email,
		PasswordHash: dbzUser.PasswordHash,
		Bio:          dbzUser.Bio,
		CreationTime: dbzUser.CreationTime.Time,
		UpdateTime:   dbzUser.UpdateTime.Time,
	}, nil
}

type debeziumMessage struct {
	// Payload is the debezium segment containing the change.
	Payload payload `json:"payload"`
}

type payload struct {
	Op     string        `json:"op"`
	Source source        `json:"source"`
	Before *debeziumUser `json:"before"`
	After  *debeziumUser `json:"after"`
}

type source struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

type debeziumUser struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Nickname     string       `json:"nickname"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"password"`
	Bio          string       `json:"bio"`
	CreationTime DebeziumTime `json:"creation_time"`
	UpdateTime   DebeziumTime `json:"update_time"`
}

// DebeziumTime decodes the temporal encodings debezium uses for postgres timestamps: microseconds
// from epoch for timestamp columns, ISO-8601 strings for timestamptz columns. null decodes as the
// zero time.
type DebeziumTime struct {
	time.Time
}

func (dt *DebeziumTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		dt.Time = time.Time{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		dt.Time = t.UTC()
		return nil
	}
	var micros int64
	if err := json.Unmarshal(b, &micros); err != nil {
		return err
	}
	dt.Time = time.UnixMicro(micros).UTC()
	return nil
}
