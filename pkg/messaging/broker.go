package messaging

import (
	"context"
)

// Broker is the transport for security and operational events. The access
// middleware publishes denial events through it when permission auditing is
// enabled; consumers (monitoring, SIEM forwarders) subscribe out of process.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Channels used by the core.
const (
	ChannelAccessDenied   = "hms.access.denied"
	ChannelTransferEvents = "hms.pharmacy.transfers"
)

// AccessDeniedEvent is published on every 403 when auditing is enabled.
type AccessDeniedEvent struct {
	UserID     string `json:"user_id"`
	Path       string `json:"path"`
	Method     string `json:"method"`
	Permission string `json:"permission"`
	Reason     string `json:"reason"`
	ClientIP   string `json:"client_ip"`
	OccurredAt string `json:"occurred_at"`
}

// TransferEvent is published when a transfer reaches a terminal state.
type TransferEvent struct {
	TransferID string `json:"transfer_id"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	Medication string `json:"medication_id"`
	Quantity   int    `json:"quantity"`
	ActorID    string `json:"actor_id"`
}

// NopBroker discards everything. Used when Redis is not configured and in
// tests.
type NopBroker struct{}

func (NopBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	return nil
}

func (NopBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (NopBroker) Close() error { return nil }
