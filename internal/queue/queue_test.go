package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemory_PublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	require.NoError(t, q.Publish(ctx, Message{Type: TypeAttendanceRecorded, Body: []byte("a")}))
	require.NoError(t, q.Publish(ctx, Message{Type: TypeAttendanceRecorded, Body: []byte("b")}))

	out, err := q.Consume(ctx)
	require.NoError(t, err)

	for _, want := range []string{"a", "b"} {
		select {
		case msg := <-out:
			assert.Equal(t, TypeAttendanceRecorded, msg.Type)
			assert.Equal(t, want, string(msg.Body))
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for message")
		}
	}

	cancel()
	select {
	case _, ok := <-out:
		assert.False(t, ok, "channel closes after cancel")
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestInMemory_PublishRespectsContext(t *testing.T) {
	q := NewInMemory(1)
	require.NoError(t, q.Publish(context.Background(), Message{Type: "x"}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Publish(ctx, Message{Type: "y"}), context.DeadlineExceeded)
}

func TestSerialize(t *testing.T) {
	msg := Message{Type: TypeAttendanceRecorded, Body: []byte(`{"note":"a|b"}`)}
	assert.Equal(t, msg, deserialize(serialize(msg)))

	assert.Equal(t, Message{Body: []byte("no-separator")}, deserialize("no-separator"))
}
