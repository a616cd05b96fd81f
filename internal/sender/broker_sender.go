package sender

import (
	"context"
	"encoding/json"
	"time"

	"github.com/unclebandit/outreach/internal/queue"
)

const CodePublishFailed = "publish_failed"

// OutboundMessage is the broker message consumed by the channel gateway.
type OutboundMessage struct {
	Delivery
	PublishedAt time.Time `json:"publishedAt"`
}

// BrokerSender hands deliveries to an external gateway through a broker.
// A successful publish counts as a successful send.
type BrokerSender struct {
	Publisher queue.Publisher
	Topic     string
	Now       func() time.Time
}

func (s *BrokerSender) Send(ctx context.Context, d Delivery) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if len(d.Payload) == 0 {
		d.Payload = json.RawMessage("{}")
	}
	body, err := json.Marshal(OutboundMessage{Delivery: d, PublishedAt: now().UTC()})
	if err != nil {
		return Failf(CodeSendError, "encode outbound message: %v", err)
	}
	if err := s.Publisher.Publish(ctx, s.Topic, body); err != nil {
		return Failf(CodePublishFailed, "%v", err)
	}
	return nil
}

var _ Sender = (*BrokerSender)(nil)
