// Package port provides the serial channel used to talk to a controller.
//
// The channel is a thin layer over go.bug.st/serial which adds exact-length
// reads, terminated reads and a probe for bytes left unread on the wire.
package port

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

var (
	// ErrTimeout indicates no byte arrived within the read timeout.
	ErrTimeout = errors.New("read timeout")
	// ErrClosed indicates the port has been released.
	ErrClosed = errors.New("port closed")
	// ErrLineTooLong indicates no terminator within MaxLine bytes.
	ErrLineTooLong = errors.New("line too long")
)

// MaxLine bounds the reply read by ReadUntil.
const MaxLine = 64

// ProbeTimeout bounds how long Buffered waits for stray bytes.
var ProbeTimeout = 20 * time.Millisecond

// Port is an opened serial channel.
type Port interface {
	io.WriteCloser
	// ReadFull reads exactly n bytes.
	ReadFull(n int) ([]byte, error)
	// ReadUntil reads up to and including delim.
	ReadUntil(delim byte) ([]byte, error)
	// Buffered returns the number of received bytes not yet consumed.
	Buffered() (int, error)
}

// Raw is the subset of go.bug.st/serial.Port used by this package.
type Raw interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// Options configures an opened port.
type Options struct {
	BaudRate    int
	ReadTimeout time.Duration
}

// DefaultOptions are the settings of the controller's RS-232 interface.
var DefaultOptions = Options{
	BaudRate:    9600,
	ReadTimeout: 2 * time.Second,
}

// Open opens the named serial port.
func Open(name string, opts Options) (Port, error) {
	raw, err := serial.Open(name, &serial.Mode{BaudRate: opts.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	p, err := Wrap(raw, opts.ReadTimeout)
	if err != nil {
		raw.Close()
		return nil, err
	}
	return p, nil
}

// List returns the names of serial ports present on the system.
func List() ([]string, error) {
	return serial.GetPortsList()
}

// Wrap builds a Port on an opened raw serial port.
func Wrap(raw Raw, readTimeout time.Duration) (Port, error) {
	if err := raw.SetReadTimeout(readTimeout); err != nil {
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return &serialPort{raw: raw, timeout: readTimeout}, nil
}

type serialPort struct {
	raw     Raw
	timeout time.Duration
	buf     []byte
	closed  bool
}

// Write implements io.Writer.
func (p *serialPort) Write(b []byte) (int, error) {
	if p.closed {
		return 0, ErrClosed
	}
	return p.raw.Write(b)
}

// ReadFull implements Port.
func (p *serialPort) ReadFull(n int) ([]byte, error) {
	for len(p.buf) < n {
		if err := p.fill(); err != nil {
			return nil, err
		}
	}
	return p.take(n), nil
}

// ReadUntil implements Port.
func (p *serialPort) ReadUntil(delim byte) ([]byte, error) {
	for {
		if i := bytes.IndexByte(p.buf, delim); i >= 0 && i < MaxLine {
			return p.take(i + 1), nil
		}
		if len(p.buf) >= MaxLine {
			return nil, ErrLineTooLong
		}
		if err := p.fill(); err != nil {
			return nil, err
		}
	}
}

// Buffered implements Port. The raw port reports no input queue size,
// so pending input is pulled into the local buffer with a short timeout.
func (p *serialPort) Buffered() (n int, err error) {
	if p.closed {
		return 0, ErrClosed
	}
	if err = p.raw.SetReadTimeout(ProbeTimeout); err != nil {
		return 0, err
	}
	defer func() {
		if rerr := p.raw.SetReadTimeout(p.timeout); rerr != nil && err == nil {
			err = fmt.Errorf("restore read timeout: %w", rerr)
		}
	}()
	for {
		err = p.fill()
		if err == ErrTimeout {
			return len(p.buf), nil
		}
		if err != nil {
			return len(p.buf), err
		}
	}
}

// Close implements io.Closer.
func (p *serialPort) Close() error {
	if p.closed {
		return ErrClosed
	}
	p.closed = true
	p.buf = nil
	return p.raw.Close()
}

func (p *serialPort) fill() error {
	if p.closed {
		return ErrClosed
	}
	chunk := make([]byte, 64)
	n, err := p.raw.Read(chunk)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTimeout
	}
	p.buf = append(p.buf, chunk[:n]...)
	return nil
}

func (p *serialPort) take(n int) []byte {
	out := make([]byte, n)
	copy(out, p.buf[:n])
	p.buf = p.buf[n:]
	return out
}
