package scanfeed

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"
)

// MockPort implements Porter for dev mode and tests, replaying fixture
// lines on a timer as if a bridge were reporting them.
type MockPort struct {
	io.Reader
	io.WriteCloser
}

// NewMockFeedMux creates a FeedMux that replays the given fixture bytes
// every interval. Used with -dev to run the service without hardware.
func NewMockFeedMux(fixture []byte, interval time.Duration) *FeedMux[*MockPort] {
	r, w := io.Pipe()

	port := &MockPort{
		Reader:      r,
		WriteCloser: w,
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := w.Write(fixture); err != nil {
				return
			}
		}
	}()

	return NewFeedMux(port)
}

// TestPort is a scriptable Porter for unit tests: reads drain a
// buffer, writes are captured, and errors can be injected.
type TestPort struct {
	mu sync.Mutex

	readBuf  bytes.Buffer
	writeBuf bytes.Buffer

	readErr  error
	writeErr error
	closed   bool

	readCond *sync.Cond
}

// NewTestPort creates an empty TestPort.
func NewTestPort() *TestPort {
	p := &TestPort{}
	p.readCond = sync.NewCond(&p.mu)
	return p
}

// Feed appends data for subsequent Read calls and wakes blocked readers.
func (p *TestPort) Feed(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readBuf.Write(data)
	p.readCond.Broadcast()
}

// SetReadError makes the next Read return err.
func (p *TestPort) SetReadError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
	p.readCond.Broadcast()
}

// Written returns everything written to the port so far.
func (p *TestPort) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.writeBuf.Bytes()...)
}

// Read blocks until data, an injected error, or Close.
func (p *TestPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for !p.closed && p.readErr == nil && p.readBuf.Len() == 0 {
		p.readCond.Wait()
	}
	if p.readErr != nil {
		err := p.readErr
		p.readErr = nil
		return 0, err
	}
	if p.closed && p.readBuf.Len() == 0 {
		return 0, io.EOF
	}
	return p.readBuf.Read(buf)
}

// Write captures data unless the port is closed or scripted to fail.
func (p *TestPort) Write(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, errors.New("port closed")
	}
	if p.writeErr != nil {
		err := p.writeErr
		p.writeErr = nil
		return 0, err
	}
	return p.writeBuf.Write(buf)
}

// Close marks the port closed and wakes blocked readers.
func (p *TestPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.readCond.Broadcast()
	return nil
}
