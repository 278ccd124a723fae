package utils

import (
	"slices"

	"github.com/nats-io/nats.go"
)

// StreamConfigEqual compares the stream settings the engine provisions.
func StreamConfigEqual(a, b nats.StreamConfig) bool {
	return a.Name == b.Name &&
		a.Retention == b.Retention &&
		a.MaxMsgs == b.MaxMsgs &&
		a.MaxAge == b.MaxAge &&
		a.Storage == b.Storage &&
		a.Duplicates == b.Duplicates &&
		slices.Equal(a.Subjects, b.Subjects)
}

// ConsumerConfigEqual compares the consumer settings the engine provisions.
func ConsumerConfigEqual(a, b nats.ConsumerConfig) bool {
	return a.Durable == b.Durable &&
		a.AckPolicy == b.AckPolicy &&
		a.DeliverGroup == b.DeliverGroup &&
		a.MaxDeliver == b.MaxDeliver &&
		a.AckWait == b.AckWait &&
		slices.Equal(a.FilterSubjects, b.FilterSubjects)
}
