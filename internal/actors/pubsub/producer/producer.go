package producer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rbroggi/accountsvc/internal/core/model"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Event types carried in the eventType message attribute.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// NewProducer creates a new producer.
func NewProducer(topic *pubsub.Topic) (*Producer, error) {
	if topic == nil {
		return nil, errors.New("topic is nil")
	}
	return &Producer{topic: topic}, nil
}

// Producer is the pubsub producer of user events.
type Producer struct {
	topic *pubsub.Topic
}

// Send publishes the event as a protobuf-encoded google.protobuf.Struct and waits for the broker ack.
func (p *Producer) Send(ctx context.Context, event model.UserEvent) error {
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"eventType": eventType(event)},
	})
	// Block until the result is returned and a server-generated
	// ID is returned for the published message.
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("pubsub: result.Get: %w", err)
	}
	return nil
}

func eventType(event model.UserEvent) string {
	switch {
	case event.Before == nil:
		return EventCreated
	case event.After == nil:
		return EventDeleted
	default:
		return EventUpdated
	}
}

func encodeEvent(event model.UserEvent) ([]byte, error) {
	st, err := structpb.NewStruct(map[string]interface{}{
		"id":     event.ID,
		"before": userToMap(event.Before),
		"after":  userToMap(event.After),
	})
	if err != nil {
		return nil, fmt.Errorf("error building user-event struct: %w", err)
	}
	data, err := proto.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("error marshaling user-event proto message: %w", err)
	}
	return data, nil
}

// userToMap returns the public fields of the user. A nil user maps to a null value.
func userToMap(u *model.User) interface{} {
	if u == nil {
		return nil
	}
	m := map[string]interface{}{
		"id":           u.ID.String(),
		"nickname":     u.Nickname,
		"email":        u.Email,
		"creationTime": u.CreationTime.UTC().Format(time.RFC3339Nano),
	}
	if u.Name != "" {
		m["name"] = u.Name
	}
	if u.Bio != "" {
		m["bio"] = u.Bio
	}
	if !u.UpdateTime.IsZero() {
		m["updateTime"] = u.UpdateTime.UTC().Format(time.RFC3339Nano)
	}
	return m
}
