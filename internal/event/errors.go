package event

import "errors"

var (
	// ErrInvalidEvent is returned by Emit and Publish for an empty or
	// malformed event type.
	ErrInvalidEvent = errors.New("event: invalid event type")

	ErrInvalidTopic         = errors.New("event: invalid subscription type")
	ErrInvalidSubscription  = errors.New("event: nil subscription")
	ErrSubscriptionNotFound = errors.New("event: subscription not registered")
	ErrNilHandler           = errors.New("event: nil handler")
	ErrSubscriberClosed     = errors.New("event: subscriber closed")
)

// HandlerError describes a failed delivery. It is logged by the bus and
// never returned to publishers.
type HandlerError struct {
	SubscriptionID string
	EventType      string
	Err            error
}

func (e *HandlerError) Error() string {
	return "EventBus subscriber " + e.SubscriptionID + " on " + e.EventType + ": " + e.Err.Error()
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
