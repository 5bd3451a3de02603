package lambda

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/lambda.go/pkg/port"
)

// wheelState tracks a single wheel.
type wheelState struct {
	positionMax int
	position    int // -1 until the first move completes
	pending     *Command
}

// Controller drives one Lambda 10-3 over an exclusively owned port.
// It is not safe for concurrent use.
type Controller struct {
	Verbose bool

	port    port.Port
	locator string
	profile Profile
	wheels  []wheelState
	fault   error
}

// New identifies the controller on an opened port and parks all wheels
// at position 0. The port is owned by the Controller and closed if
// New fails.
func New(p port.Port, wheels int, verbose bool) (*Controller, error) {
	return newController(p, "", wheels, verbose)
}

func newController(p port.Port, locator string, wheels int, verbose bool) (*Controller, error) {
	profile, err := ProfileFor(wheels)
	if err != nil {
		p.Close()
		return nil, err
	}
	c := &Controller{
		Verbose: verbose,
		port:    p,
		locator: locator,
		profile: profile,
	}
	if err = c.identify(); err != nil {
		p.Close()
		return nil, err
	}
	c.wheels = make([]wheelState, profile.Wheels)
	for n := range c.wheels {
		c.wheels[n] = wheelState{positionMax: PositionCount, position: -1}
	}
	for n := range c.wheels {
		if err = c.MoveTo(0, n); err != nil {
			p.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *Controller) identify() error {
	c.logf("initializing Lambda 10-3 as %s", c.profile.Name)
	if err := c.write(CmdIdentify); err != nil {
		return err
	}
	response, err := c.port.ReadUntil(CR)
	if err != nil {
		return c.readErr("read identity", err)
	}
	glog.V(2).Infof("RCV % x", response)
	if !bytes.Equal(response, c.profile.Identity) {
		cerr := &ConfigurationError{Wheels: c.profile.Wheels, Response: response}
		if detected, ok := IdentifyProfile(response); ok {
			cerr.Detected = &detected
		}
		glog.Errorf("controller response = %q", response)
		return cerr
	}
	return nil
}

// Profile returns the matched hardware profile.
func (c *Controller) Profile() Profile {
	return c.profile
}

// Wheels returns the number of configured wheels.
func (c *Controller) Wheels() int {
	return len(c.wheels)
}

// Position returns the last confirmed position of the wheel.
// ok is false if it's unknown or the wheel doesn't exist.
func (c *Controller) Position(wheel int) (position int, ok bool) {
	if wheel < 0 || wheel >= len(c.wheels) || c.wheels[wheel].position < 0 {
		return 0, false
	}
	return c.wheels[wheel].position, true
}

// Pending tells if a command on the wheel is waiting for acknowledgment.
func (c *Controller) Pending(wheel int) bool {
	return wheel >= 0 && wheel < len(c.wheels) && c.wheels[wheel].pending != nil
}

// MoveTo moves a wheel at DefaultSpeed and waits for it to settle.
func (c *Controller) MoveTo(position, wheel int) error {
	return c.Move(position, wheel, DefaultSpeed, true)
}

// Move sends a move command. A command still pending on the same wheel
// is completed first. Unless block is set, Move returns once the command
// is sent, and the acknowledgment is consumed by FinishMoving or the
// next Move on the wheel.
func (c *Controller) Move(position, wheel, speed int, block bool) error {
	if err := checkRange("wheel", wheel, len(c.wheels)); err != nil {
		return err
	}
	state := &c.wheels[wheel]
	if err := checkRange("position", position, state.positionMax); err != nil {
		return err
	}
	cmd, err := EncodeCommand(position, wheel, speed)
	if err != nil {
		return err
	}
	if c.fault != nil {
		return c.faultErr()
	}
	for state.pending != nil {
		if err = c.FinishMoving(); err != nil {
			return err
		}
	}
	c.logf("moving wheel %d to position %d with speed %d", wheel, position, speed)
	if err = c.write(byte(cmd)); err != nil {
		c.fault = err
		return err
	}
	state.pending = &cmd
	if !block {
		return nil
	}
	for state.pending != nil {
		if err = c.FinishMoving(); err != nil {
			return err
		}
	}
	return nil
}

// FinishMoving consumes one acknowledgment and completes the matching
// pending command. It's a no-op if nothing is pending. With commands
// pending on both wheels, only the first acknowledgment is consumed.
func (c *Controller) FinishMoving() error {
	pending := c.pendingCommands()
	if len(pending) == 0 {
		return nil
	}
	if c.fault != nil {
		return c.faultErr()
	}
	response, err := c.port.ReadFull(2)
	if err != nil {
		return c.readErr("read acknowledgment", err)
	}
	glog.V(2).Infof("RCV % x", response)

	matched := -1
	for n := range c.wheels {
		if cmd := c.wheels[n].pending; cmd != nil && bytes.Equal(response, cmd.Ack()) {
			matched = n
			break
		}
	}
	if matched < 0 {
		return c.protocolFault(&ProtocolError{Response: response, Pending: pending})
	}

	state := &c.wheels[matched]
	state.position = state.pending.Position()
	state.pending = nil
	c.logf("wheel %d at position %d", matched, state.position)

	if len(pending) > 1 {
		return nil
	}
	leftover, err := c.port.Buffered()
	if err != nil {
		return c.readErr("check input", err)
	}
	if leftover > 0 {
		return c.protocolFault(&ProtocolError{Leftover: leftover})
	}
	return nil
}

// Close parks all wheels at position 0 and releases the port.
// A faulted controller can't be parked, the fault is reported and the
// port is still released. Calling Close again fails with a ConnectionError.
func (c *Controller) Close() error {
	if c.port == nil {
		return c.connErr(port.ErrClosed)
	}
	var errs MultiError
	if c.fault != nil {
		errs.Add(fmt.Errorf("park skipped: %w", c.faultErr()))
	} else {
		for n := range c.wheels {
			if err := c.MoveTo(0, n); err != nil {
				errs.Add(fmt.Errorf("park wheel %d: %w", n, err))
				break
			}
		}
	}
	if err := c.port.Close(); err != nil {
		errs.Add(c.connErr(err))
	} else {
		c.logf("closed Lambda 10-3 port")
	}
	return errs.Err()
}

func (c *Controller) pendingCommands() []Command {
	var cmds []Command
	for _, w := range c.wheels {
		if w.pending != nil {
			cmds = append(cmds, *w.pending)
		}
	}
	return cmds
}

func (c *Controller) write(b byte) error {
	glog.V(2).Infof("SND %02x", b)
	if _, err := c.port.Write([]byte{b}); err != nil {
		return c.connErr(err)
	}
	return nil
}

func (c *Controller) connErr(err error) error {
	return &ConnectionError{Locator: c.locator, Err: err}
}

func (c *Controller) readErr(op string, err error) error {
	if errors.Is(err, port.ErrClosed) {
		return c.connErr(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (c *Controller) protocolFault(err *ProtocolError) error {
	glog.Warningf("Lambda 10-3 out of sync: %v", err)
	c.fault = err
	return err
}

func (c *Controller) faultErr() error {
	return fmt.Errorf("%w: %w", ErrFaulted, c.fault)
}

func (c *Controller) logf(format string, args ...interface{}) {
	if c.Verbose || bool(glog.V(1)) {
		glog.Infof(format, args...)
	}
}
