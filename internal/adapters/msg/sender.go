package msg

import "context"

// Status is the delivery outcome reported to callers. Notification dispatch
// is best effort, so StatusMocked still counts as success for the booking
// flow.
type Status string

const (
	StatusDelivered Status = "delivered"
	StatusMocked    Status = "mocked"
	StatusError     Status = "error"
)

type Message struct {
	To   string
	Body string
}

type Sender interface {
	Send(ctx context.Context, m Message) (Status, error)
}
