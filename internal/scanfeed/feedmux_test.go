package scanfeed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedMuxSubscribe(t *testing.T) {
	t.Parallel()

	mux := NewFeedMux(NewTestPort())

	id1, ch1 := mux.Subscribe()
	id2, ch2 := mux.Subscribe()

	assert.NotEmpty(t, id1)
	assert.NotEmpty(t, id2)
	assert.NotEqual(t, id1, id2)
	assert.NotNil(t, ch1)
	assert.NotNil(t, ch2)
}

func TestFeedMuxUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	mux := NewFeedMux(NewTestPort())
	id, ch := mux.Subscribe()

	done := make(chan bool)
	go func() {
		_, ok := <-ch
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)

	mux.Unsubscribe(id)

	select {
	case ok := <-done:
		assert.False(t, ok, "channel must be closed")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel closure")
	}

	// Unknown ids are a no-op.
	mux.Unsubscribe("nope")
}

func TestFeedMuxFanOut(t *testing.T) {
	t.Parallel()

	port := NewTestPort()
	mux := NewFeedMux(port)
	defer mux.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mux.Monitor(ctx)

	_, ch := mux.Subscribe()
	got := make(chan string, 1)
	go func() { got <- <-ch }()
	time.Sleep(10 * time.Millisecond)

	port.Feed([]byte("report line one\n"))

	select {
	case line := <-got:
		assert.Equal(t, "report line one", line)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for fan-out")
	}
}

func TestFeedMuxBufferedSubscriberQueuesBurst(t *testing.T) {
	t.Parallel()

	port := NewTestPort()
	mux := NewFeedMux(port)
	defer mux.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mux.Monitor(ctx)

	// No receiver yet: an unbuffered subscriber would drop every line,
	// a buffered one holds them until the consumer catches up.
	_, ch := mux.SubscribeBuffered(16)
	time.Sleep(10 * time.Millisecond)

	port.Feed([]byte("one\ntwo\nthree\n"))

	for _, want := range []string{"one", "two", "three"} {
		select {
		case line := <-ch:
			assert.Equal(t, want, line)
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for line %q", want)
		}
	}
}

func TestFeedMuxMonitorReturnsOnPortError(t *testing.T) {
	t.Parallel()

	port := NewTestPort()
	mux := NewFeedMux(port)

	boom := errors.New("port gone")
	errCh := make(chan error, 1)
	go func() { errCh <- mux.Monitor(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	port.SetReadError(boom)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return on port error")
	}
}

func TestFeedMuxMonitorReturnsOnCancel(t *testing.T) {
	t.Parallel()

	mux := NewFeedMux(NewTestPort())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- mux.Monitor(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return on cancellation")
	}
}

func TestFeedMuxSendCommand(t *testing.T) {
	t.Parallel()

	port := NewTestPort()
	mux := NewFeedMux(port)

	require.NoError(t, mux.SendCommand("scan on"))
	assert.Equal(t, "scan on\n", string(port.Written()), "newline is appended")

	require.NoError(t, mux.SendCommand("reset\n"))
	assert.Equal(t, "scan on\nreset\n", string(port.Written()), "existing newline kept")
}

func TestFeedMuxClose(t *testing.T) {
	t.Parallel()

	port := NewTestPort()
	mux := NewFeedMux(port)
	_, ch := mux.Subscribe()

	require.NoError(t, mux.Close())

	_, ok := <-ch
	assert.False(t, ok, "subscriber channels close with the mux")

	_, err := port.Write([]byte("x"))
	assert.Error(t, err, "underlying port is closed")
}

func TestMockFeedMuxReplaysFixture(t *testing.T) {
	t.Parallel()

	fixture := []byte("line a\nline b\n")
	mux := NewMockFeedMux(fixture, 20*time.Millisecond)
	defer mux.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mux.Monitor(ctx)

	_, ch := mux.Subscribe()
	got := make(chan string, 1)
	go func() { got <- <-ch }()

	select {
	case line := <-got:
		assert.Contains(t, []string{"line a", "line b"}, line)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for replayed fixture line")
	}
}
