package lambda

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/robotalks/lambda.go/pkg/port"
)

// Config defines the options to open a controller.
type Config struct {
	// Port is the serial device, e.g. /dev/ttyUSB0 or COM5.
	Port     string
	BaudRate int
	// Timeout bounds every read from the controller.
	Timeout time.Duration
	// Wheels is the number of installed wheels, 1 or 2.
	Wheels  int
	Verbose bool
}

// Bounds of Config.Timeout.
const (
	MinTimeout = time.Second
	MaxTimeout = 5 * time.Second
)

var defaultConfig = Config{
	BaudRate: port.DefaultOptions.BaudRate,
	Timeout:  port.DefaultOptions.ReadTimeout,
	Wheels:   1,
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port of the Lambda 10-3.")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Serial baud rate.")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Read timeout, 1s to 5s.")
	flag.IntVar(&defaultConfig.Wheels, "wheels", defaultConfig.Wheels, "Number of installed filter wheels (1 or 2).")
	flag.BoolVar(&defaultConfig.Verbose, "verbose", defaultConfig.Verbose, "Log every command.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks the config before any port is opened.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("serial port must be specified")
	}
	if _, err := ProfileFor(c.Wheels); err != nil {
		return err
	}
	if c.Timeout < MinTimeout || c.Timeout > MaxTimeout {
		return fmt.Errorf("invalid timeout %v, expect %v to %v", c.Timeout, MinTimeout, MaxTimeout)
	}
	return nil
}

// Open opens the port and identifies the controller.
func (c *Config) Open() (*Controller, error) {
	return c.OpenWith(port.Open)
}

// OpenWith is Open using a custom port opener.
func (c *Config) OpenWith(open func(string, port.Options) (port.Port, error)) (*Controller, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	p, err := open(c.Port, port.Options{BaudRate: c.BaudRate, ReadTimeout: c.Timeout})
	if err != nil {
		return nil, &ConnectionError{Locator: c.Port, Err: err}
	}
	return newController(p, c.Port, c.Wheels, c.Verbose)
}

// MustOpen opens the controller and fails on error.
func (c *Config) MustOpen() *Controller {
	ctl, err := c.Open()
	if err != nil {
		log.Fatalln(err)
	}
	return ctl
}
