package scanfeed

import (
	"fmt"

	"go.bug.st/serial"
)

// PortOptions configures the serial link to a UART-attached scanner
// bridge.
type PortOptions struct {
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits StopBits
}

// Parity options for the serial link.
type Parity int

const (
	NoParity Parity = iota
	OddParity
	EvenParity
)

// StopBits options for the serial link.
type StopBits int

const (
	OneStopBit StopBits = iota
	TwoStopBits
)

// DefaultPortOptions returns the stock settings for ESP32-class scanner
// bridges (115200 8N1).
func DefaultPortOptions() PortOptions {
	return PortOptions{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   NoParity,
		StopBits: OneStopBit,
	}
}

func (o PortOptions) serialMode() (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: o.BaudRate,
		DataBits: o.DataBits,
	}

	switch o.Parity {
	case NoParity:
		mode.Parity = serial.NoParity
	case OddParity:
		mode.Parity = serial.OddParity
	case EvenParity:
		mode.Parity = serial.EvenParity
	default:
		return nil, fmt.Errorf("unknown parity option %d", o.Parity)
	}

	switch o.StopBits {
	case OneStopBit:
		mode.StopBits = serial.OneStopBit
	case TwoStopBits:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unknown stop bits option %d", o.StopBits)
	}

	return mode, nil
}

// NewSerialFeedMux opens the serial port at path and returns a FeedMux
// reading scanner reports from it.
func NewSerialFeedMux(path string, opts PortOptions) (*FeedMux[serial.Port], error) {
	mode, err := opts.serialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return NewFeedMux[serial.Port](port), nil
}
