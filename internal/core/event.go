package core

// MessageKind distinguishes data messages from subscription confirmations.
type MessageKind string

const (
	KindSubscribe   MessageKind = "subscribe"
	KindUnsubscribe MessageKind = "unsubscribe"
	KindMessage     MessageKind = "message"
)

// Message is one item read from a pub/sub listen stream.
type Message struct {
	Kind    MessageKind
	Channel string
	Payload string
	// Count is the number of channels still subscribed, for confirmations.
	Count int
}

// IsData reports whether the message carries a published payload.
func (m Message) IsData() bool { return m.Kind == KindMessage }
