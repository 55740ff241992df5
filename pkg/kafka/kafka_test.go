package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/resilience"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

// fakeReader serves queued messages, then blocks until ctx is done.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestProducerPublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "docs")

	err := p.Publish(context.Background(), Event{Key: "doc-1", Value: map[string]int{"uid": 7}})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "doc-1", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"uid":7}`, string(w.msgs[0].Value))
}

func TestProducerPublishWrapsWriteError(t *testing.T) {
	boom := errors.New("broker gone")
	p := NewProducerWithWriter(&fakeWriter{err: boom}, "docs")

	err := p.Publish(context.Background(), Event{Key: "k", Value: 1})
	assert.ErrorIs(t, err, boom)
}

func TestProducerRejectsUnencodableValue(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "docs")

	err := p.Publish(context.Background(), Event{Key: "k", Value: make(chan int)})
	assert.Error(t, err)
	assert.Empty(t, w.msgs)
}

func TestProducerPublishBatch(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "docs")

	require.NoError(t, p.PublishBatch(context.Background(), nil))
	require.NoError(t, p.PublishBatch(context.Background(), []Event{
		{Key: "a", Value: "x"},
		{Key: "b", Value: "y"},
	}))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "b", string(w.msgs[1].Key))
}

func TestConsumerCommitsHandledMessages(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{{Offset: 1}, {Offset: 2}}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen int
	c := NewConsumerWithReader(r, "pages", func(context.Context, []byte, []byte) error {
		seen++
		if seen == 2 {
			cancel()
		}
		return nil
	})
	c.SetRetry(fastRetry())

	require.NoError(t, c.Start(ctx))
	assert.Equal(t, []int64{1, 2}, r.committed)
	assert.True(t, r.closed)
}

func TestConsumerRetriesThenStops(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{{Offset: 5}, {Offset: 6}}}
	boom := errors.New("downstream failed")
	calls := 0
	c := NewConsumerWithReader(r, "pages", func(context.Context, []byte, []byte) error {
		calls++
		return boom
	})
	c.SetRetry(fastRetry())

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
	assert.Empty(t, r.committed)
}

func TestConsumerRecoversOnRetry(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{{Offset: 9}}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	c := NewConsumerWithReader(r, "pages", func(context.Context, []byte, []byte) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		cancel()
		return nil
	})
	c.SetRetry(fastRetry())

	require.NoError(t, c.Start(ctx))
	assert.Equal(t, 2, calls)
}

func TestDecodeJSON(t *testing.T) {
	type event struct {
		ID string `json:"id"`
	}
	got, err := DecodeJSON[event]([]byte(`{"id":"e1"}`))
	require.NoError(t, err)
	assert.Equal(t, "e1", got.ID)

	_, err = DecodeJSON[event]([]byte(`{`))
	assert.Error(t, err)
}
