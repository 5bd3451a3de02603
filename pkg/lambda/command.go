package lambda

// Protocol constants.
const (
	// CmdIdentify requests the controller type and configuration.
	CmdIdentify byte = 0xfd
	// CR terminates every reply.
	CR byte = '\r'

	// PositionCount is the number of positions on every supported wheel.
	PositionCount = 10
	// SpeedCount is the number of speed codes.
	SpeedCount = 8
	// DefaultSpeed is the fastest speed that moves reliably.
	DefaultSpeed = 6
	// MaxWheels is the number of wheels addressable by a command.
	MaxWheels = 2
)

// Command is an encoded move command.
type Command byte

// EncodeCommand packs a move into a command byte.
func EncodeCommand(position, wheel, speed int) (Command, error) {
	if err := checkRange("wheel", wheel, MaxWheels); err != nil {
		return 0, err
	}
	if err := checkRange("position", position, PositionCount); err != nil {
		return 0, err
	}
	if err := checkRange("speed", speed, SpeedCount); err != nil {
		return 0, err
	}
	return Command(wheel<<7 | speed<<4 | position), nil
}

// Wheel returns the addressed wheel.
func (c Command) Wheel() int {
	return int(c >> 7)
}

// Speed returns the speed code.
func (c Command) Speed() int {
	return int(c>>4) & 0x07
}

// Position returns the target position.
func (c Command) Position() int {
	return int(c) & 0x0f
}

// Ack returns the acknowledgment expected for the command.
func (c Command) Ack() []byte {
	return []byte{byte(c), CR}
}

func checkRange(name string, value, limit int) error {
	if value < 0 || value >= limit {
		return &ArgumentError{Name: name, Value: value, Max: limit}
	}
	return nil
}
