package events

// ProducerOption configures an EventProducer.
type ProducerOption func(ep *EventProducer)

// WithOutputTopic sets the topic handed to the writer with every envelope.
func WithOutputTopic(topic string) ProducerOption {
	return func(ep *EventProducer) {
		ep.topic = topic
	}
}

// WithSource sets the source stamped on every envelope.
func WithSource(source string) ProducerOption {
	return func(ep *EventProducer) {
		if source != "" {
			ep.source = source
		}
	}
}

// WithMaxPending bounds the envelopes waiting for the writer. Zero or less keeps them all.
func WithMaxPending(n int) ProducerOption {
	return func(ep *EventProducer) {
		ep.maxPending = n
	}
}
