package outbox

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	msgs []kafka.Message
	err  error
}

func (p *fakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msgs...)
	return nil
}

type fakeStore struct {
	pending []Event
	sent    []int64
	failed  map[int64]string
}

func (s *fakeStore) LockBatch(_ context.Context, _ string, batchSize int, _ time.Duration) ([]Event, error) {
	if len(s.pending) == 0 {
		return nil, nil
	}
	n := min(batchSize, len(s.pending))
	batch := s.pending[:n]
	s.pending = s.pending[n:]
	return batch, nil
}

func (s *fakeStore) MarkSent(_ context.Context, ids []int64) error {
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id int64, errMsg string) error {
	if s.failed == nil {
		s.failed = map[int64]string{}
	}
	s.failed[id] = errMsg
	return nil
}

func (s *fakeStore) ExtendLease(context.Context, string, []int64, time.Duration) error { return nil }

func testRelay(store Store, producer Producer) *Relay {
	log := slog.New(slog.DiscardHandler)
	return &Relay{
		log:       log,
		store:     store,
		dispatch:  NewDispatcher(log, producer, "order.events"),
		relayID:   "test-relay",
		batchSize: 10,
		interval:  5 * time.Millisecond,
		lease:     time.Second,
	}
}

func TestRelay_DispatchesPendingEvents(t *testing.T) {
	store := &fakeStore{pending: []Event{
		{ID: 1, AggregateID: "order-1", Type: "OrderCreated", Payload: []byte(`{}`), Traceparent: "00-abc-def-01"},
		{ID: 2, AggregateID: "order-2", Type: "OrderCreated", Payload: []byte(`{}`)},
	}}
	producer := &fakeProducer{}
	relay := testRelay(store, producer)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, relay.Run(ctx))

	require.Len(t, producer.msgs, 2)
	assert.Equal(t, []int64{1, 2}, store.sent)
	assert.Equal(t, "order.events", producer.msgs[0].Topic)
	assert.Equal(t, []byte("order-1"), producer.msgs[0].Key)

	var eventType, traceparent string
	for _, h := range producer.msgs[0].Headers {
		switch h.Key {
		case "event_type":
			eventType = string(h.Value)
		case "traceparent":
			traceparent = string(h.Value)
		}
	}
	assert.Equal(t, "OrderCreated", eventType)
	assert.Equal(t, "00-abc-def-01", traceparent)
}

func TestRelay_MarksFailedOnProducerError(t *testing.T) {
	store := &fakeStore{pending: []Event{{ID: 7, AggregateID: "order-7", Type: "OrderCreated"}}}
	producer := &fakeProducer{err: errors.New("broker unreachable")}
	relay := testRelay(store, producer)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, relay.Run(ctx))

	assert.Empty(t, store.sent)
	assert.Equal(t, "broker unreachable", store.failed[7])
}
