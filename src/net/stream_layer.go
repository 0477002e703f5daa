package net

import (
	"errors"
	"net"
	"time"
)

// StreamLayer is used with the NetworkTransport to provide the low level stream
// abstraction.
type StreamLayer interface {
	net.Listener

	// Dial is used to create a new outgoing connection
	Dial(address string, timeout time.Duration) (net.Conn, error)

	// AdvertiseAddr returns the publicly-reachable address of the stream
	AdvertiseAddr() string
}

var errDialOnly = errors.New("stream layer does not accept connections")

// dialOnlyStreamLayer is a StreamLayer that never accepts connections. Accept
// blocks until Close.
type dialOnlyStreamLayer struct {
	closeCh chan struct{}
}

func newDialOnlyStreamLayer() *dialOnlyStreamLayer {
	return &dialOnlyStreamLayer{
		closeCh: make(chan struct{}),
	}
}

// Dial implements the StreamLayer interface.
func (d *dialOnlyStreamLayer) Dial(address string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", address, timeout)
}

// Accept implements the net.Listener interface.
func (d *dialOnlyStreamLayer) Accept() (net.Conn, error) {
	<-d.closeCh
	return nil, errDialOnly
}

// Close implements the net.Listener interface.
func (d *dialOnlyStreamLayer) Close() error {
	select {
	case <-d.closeCh:
	default:
		close(d.closeCh)
	}
	return nil
}

// Addr implements the net.Listener interface.
func (d *dialOnlyStreamLayer) Addr() net.Addr {
	return nil
}

// AdvertiseAddr implements the StreamLayer interface.
func (d *dialOnlyStreamLayer) AdvertiseAddr() string {
	return ""
}
