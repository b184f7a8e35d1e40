// Package scanfeed ingests sighting reports from BLE scanner bridges.
// Bridges (ESPHome-style proxies wired over UART, or anything else that
// can emit text lines) write one NDJSON report per sighting; FeedMux
// fans those lines out to subscribers, and Accumulator turns them into
// the per-tick advertisement snapshot the tracker consumes.
package scanfeed

import (
	"bufio"
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"tailscale.com/tsweb"
)

var ErrWriteFailed = fmt.Errorf("failed to write to feed port")

// Porter is the minimal interface for the underlying byte stream.
type Porter interface {
	io.ReadWriter
	io.Closer
}

// Muxer is the interface the rest of the service depends on.
type Muxer interface {
	// Subscribe creates an unbuffered channel receiving report lines
	// from the feed. A consumer that isn't ready misses lines; use
	// SubscribeBuffered for consumers that must see every line. The
	// returned id identifies the channel for Unsubscribe.
	Subscribe() (string, chan string)
	// SubscribeBuffered is Subscribe with a channel of the given
	// capacity, so bursts of lines queue instead of being dropped.
	SubscribeBuffered(int) (string, chan string)
	// Unsubscribe removes and closes a subscriber channel.
	Unsubscribe(string)
	// SendCommand writes a control command to the bridge.
	SendCommand(string) error
	// Monitor reads lines from the feed and delivers them to
	// subscribers until the context is cancelled or the port fails.
	Monitor(context.Context) error
	// Close closes all subscriber channels and the underlying port.
	Close() error

	// AttachAdminRoutes mounts debugging endpoints (live tail, command
	// injection) on the given mux under /debug/.
	AttachAdminRoutes(*http.ServeMux)
}

// FeedMux multiplexes one scanner-bridge byte stream to any number of
// line subscribers.
type FeedMux[T Porter] struct {
	port         T
	subscribers  map[string]chan string
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// NewFeedMux creates a FeedMux backed by the given port.
func NewFeedMux[T Porter](port T) *FeedMux[T] {
	return &FeedMux[T]{
		port:        port,
		subscribers: make(map[string]chan string),
	}
}

// randomID generates a random subscriber id (8 random bytes, hex).
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe registers a new unbuffered line channel. Lines that arrive
// while the consumer is busy are dropped, which suits the debug tail.
func (f *FeedMux[T]) Subscribe() (string, chan string) {
	return f.subscribe(0)
}

// SubscribeBuffered registers a line channel with the given capacity.
// Ingest paths use this so a burst of reports (a multi-line read, a
// fixture replay) queues instead of being dropped while the consumer
// parses the previous line.
func (f *FeedMux[T]) SubscribeBuffered(buffer int) (string, chan string) {
	return f.subscribe(buffer)
}

func (f *FeedMux[T]) subscribe(buffer int) (string, chan string) {
	id := randomID()
	ch := make(chan string, buffer)
	f.subscriberMu.Lock()
	defer f.subscriberMu.Unlock()
	f.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (f *FeedMux[T]) Unsubscribe(id string) {
	f.subscriberMu.Lock()
	defer f.subscriberMu.Unlock()
	if ch, ok := f.subscribers[id]; ok {
		close(ch)
		delete(f.subscribers, id)
	}
}

// SendCommand writes a control command to the bridge, terminating it
// with a newline if the caller didn't.
func (f *FeedMux[T]) SendCommand(command string) error {
	f.commandMu.Lock()
	defer f.commandMu.Unlock()
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}
	n, err := f.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Monitor reads report lines from the port and fans them out. A slow
// subscriber misses lines rather than stalling the feed.
func (f *FeedMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(f.port)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// Reader goroutine: the blocking scan.Scan must not prevent the
	// outer loop from observing context cancellation.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			if !ok {
				// Port reached EOF or failed.
				if err := scan.Err(); err != nil {
					return err
				}
				return nil
			}

			f.closingMu.Lock()
			if f.closing {
				f.closingMu.Unlock()
				return nil
			}
			f.closingMu.Unlock()

			f.subscriberMu.Lock()
			for _, ch := range f.subscribers {
				select {
				case ch <- line:
				default:
					// subscriber is full; drop rather than block the feed
				}
			}
			f.subscriberMu.Unlock()
		}
	}
}

// Close closes all subscriber channels and the underlying port.
func (f *FeedMux[T]) Close() error {
	f.closingMu.Lock()
	f.closing = true
	f.closingMu.Unlock()

	f.subscriberMu.Lock()
	defer f.subscriberMu.Unlock()
	for id, ch := range f.subscribers {
		close(ch)
		delete(f.subscribers, id)
	}
	return f.port.Close()
}

// AttachAdminRoutes mounts a live tail (SSE) and a command-injection
// endpoint for the bridge on the debug mux.
func (f *FeedMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleSilentFunc("feed-command", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		command := strings.TrimSpace(r.FormValue("command"))
		if command == "" {
			http.Error(w, "Missing command", http.StatusBadRequest)
			return
		}
		if err := f.SendCommand(command); err != nil {
			http.Error(w, "Failed to write command", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, fmt.Sprintf("Wrote command %q to scanner bridge", command))
	})

	debug.HandleSilentFunc("feed-tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // disable buffering for nginx

		id, c := f.Subscribe()
		defer f.Unsubscribe(id)

		// Initial ping establishes the stream.
		w.Write([]byte(": ping\n\n"))
		w.(http.Flusher).Flush()

		var buf bytes.Buffer
		for {
			select {
			case payload, ok := <-c:
				if !ok {
					return
				}
				buf.Reset()
				fmt.Fprintf(&buf, "data: %s\n\n", payload)
				if _, err := w.Write(buf.Bytes()); err != nil {
					return
				}
				w.(http.Flusher).Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}
