package scanfeed

import (
	"errors"
	"net"
	"sync"
)

// UDPPort adapts a UDP listener to the Porter interface for bridges
// that send report lines as datagrams instead of over UART. Each
// datagram should carry whole lines; Write sends commands back to the
// most recent sender.
type UDPPort struct {
	conn *net.UDPConn

	mu       sync.Mutex
	lastPeer *net.UDPAddr
}

// NewUDPFeedMux listens for report datagrams on addr (e.g. ":7856") and
// returns a FeedMux reading from it.
func NewUDPFeedMux(addr string) (*FeedMux[*UDPPort], error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	return NewFeedMux(&UDPPort{conn: conn}), nil
}

// Read receives one datagram and remembers its sender for command
// replies.
func (p *UDPPort) Read(buf []byte) (int, error) {
	n, peer, err := p.conn.ReadFromUDP(buf)
	if err != nil {
		return n, err
	}
	p.mu.Lock()
	p.lastPeer = peer
	p.mu.Unlock()
	return n, nil
}

// Write sends a command datagram to the bridge that most recently
// reported. Fails until at least one report has arrived.
func (p *UDPPort) Write(buf []byte) (int, error) {
	p.mu.Lock()
	peer := p.lastPeer
	p.mu.Unlock()
	if peer == nil {
		return 0, errors.New("no bridge has reported yet")
	}
	return p.conn.WriteToUDP(buf, peer)
}

// Close closes the underlying listener.
func (p *UDPPort) Close() error {
	return p.conn.Close()
}
