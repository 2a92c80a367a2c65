package eventbus

import (
	"context"
	"errors"

	"github.com/forecastnet/roundcast/internal/core"
)

// ErrClosed is returned by operations on a closed bus or subscription.
var ErrClosed = errors.New("eventbus: closed")

// Bus defines publish/subscribe semantics over named channels. A message
// published while nobody is subscribed to its channel is dropped.
type Bus interface {
	// Publish sends payload to channel and returns the number of
	// subscribers that received it.
	Publish(ctx context.Context, channel, payload string) (int64, error)
	// Subscribe opens a subscription, optionally attached to channels.
	Subscribe(ctx context.Context, channels ...string) (Subscription, error)
	Close() error
}

// Subscription is one listen stream whose channel set can change over time.
type Subscription interface {
	Subscribe(ctx context.Context, channels ...string) error
	// Unsubscribe detaches the given channels, or all channels when none
	// are given.
	Unsubscribe(ctx context.Context, channels ...string) error
	// Messages yields data messages and subscription confirmations in
	// arrival order. It is closed when the subscription is closed.
	Messages() <-chan core.Message
	Close() error
}
