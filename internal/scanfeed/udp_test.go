package scanfeed

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUDPPortReadAndReply(t *testing.T) {
	t.Parallel()

	listenAddr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	require.NoError(t, err)
	conn, err := net.ListenUDP("udp", listenAddr)
	require.NoError(t, err)
	port := &UDPPort{conn: conn}
	defer port.Close()

	// No bridge has reported yet: commands have nowhere to go.
	_, err = port.Write([]byte("scan on\n"))
	assert.Error(t, err)

	bridge, err := net.DialUDP("udp", nil, conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer bridge.Close()

	payload := []byte(`{"scanner":"DC:54:75:C4:12:01","device":"aa:bb:cc:dd:ee:ff","rssi":-58}` + "\n")
	_, err = bridge.Write(payload)
	require.NoError(t, err)

	buf := make([]byte, 1024)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := port.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, payload, buf[:n])

	// The reply goes back to the reporting bridge.
	_, err = port.Write([]byte("scan off\n"))
	require.NoError(t, err)

	require.NoError(t, bridge.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err = bridge.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "scan off\n", string(buf[:n]))
}
