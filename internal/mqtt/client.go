package mqtt

// MessageHandler receives every message matching a subscription.
type MessageHandler func(topic string, payload []byte)

// Client is the slice of an MQTT connection the bridge needs.
type Client interface {
	Publish(topic string, payload []byte, retained bool) error
	Subscribe(filter string, handler MessageHandler) error
	Close() error
}
