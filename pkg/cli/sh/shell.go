package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/lambda.go/pkg/lambda"
	"github.com/robotalks/lambda.go/pkg/port"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoOpen    bool

	Shell  *ishell.Shell
	Config *lambda.Config
	Ctl    *lambda.Controller

	// ListPorts enumerates serial ports, port.List by default.
	ListPorts func() ([]string, error)
}

const (
	shellKey     = "$shell"
	closedPrompt = "[closed] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	commands = []*ishell.Cmd{
		&PortsCmd,
		&OpenCmd,
		&CloseCmd,
		&MoveCmd,
		&FinishCmd,
		&PositionCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell.
func New(conf *lambda.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:     ishell.New(),
		Config:    conf,
		ListPorts: port.List,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps command func requires an opened controller.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Ctl == nil {
			c.Err(fmt.Errorf("not opened"))
			return
		}
		fn(c)
	}
}

// WithAutoOpen sets AutoOpen.
func (s *Shell) WithAutoOpen(en bool) *Shell {
	s.AutoOpen = en
	return s
}

// Open opens the controller on the configured port, closing the
// current one first.
func (s *Shell) Open() error {
	if err := s.Close(); err != nil {
		glog.Warningf("close %s: %v", s.Config.Port, err)
	}
	ctl, err := s.Config.Open()
	if err != nil {
		return err
	}
	s.Ctl = ctl
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", s.Config.Port))
	return nil
}

// Close parks the wheels and closes the current controller.
func (s *Shell) Close() error {
	if s.Ctl == nil {
		return nil
	}
	err := s.Ctl.Close()
	s.Ctl = nil
	s.Shell.SetPrompt(closedPrompt)
	return err
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer func() {
		if err := s.Close(); err != nil {
			log.Println(err)
		}
	}()
	if s.AutoOpen && s.Config.Port != "" {
		if s.Interactive {
			s.Shell.Printf("Opening %s ...\n", s.Config.Port)
		}
		if err := s.Open(); err != nil {
			log.Fatalf("open %q failed: %v", s.Config.Port, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

func (s *Shell) printPositions(c *ishell.Context) {
	type wheelPosition struct {
		Wheel    int  `json:"wheel"`
		Position *int `json:"position"`
		Pending  bool `json:"pending"`
	}
	positions := make([]wheelPosition, s.Ctl.Wheels())
	for n := range positions {
		positions[n] = wheelPosition{Wheel: n, Pending: s.Ctl.Pending(n)}
		if pos, ok := s.Ctl.Position(n); ok {
			positions[n].Position = &pos
		}
	}
	if s.OutputJSON {
		out, err := json.Marshal(positions)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	for _, p := range positions {
		line := fmt.Sprintf("wheel %d: ", p.Wheel)
		if p.Position != nil {
			line += strconv.Itoa(*p.Position)
		} else {
			line += "unknown"
		}
		if p.Pending {
			line += " (moving)"
		}
		c.Println(line)
	}
}

func parseArg(args []string, index int, name string, val *int) error {
	if len(args) <= index {
		return nil
	}
	n, err := strconv.Atoi(args[index])
	if err != nil {
		return fmt.Errorf("Invalid %s: %v", name, err)
	}
	*val = n
	return nil
}

// moveArgs are the parsed arguments of the move command.
type moveArgs struct {
	position, wheel, speed int
	block                  bool
}

func parseMoveArgs(args []string) (moveArgs, error) {
	a := moveArgs{speed: lambda.DefaultSpeed, block: true}
	if last := len(args) - 1; last >= 0 && args[last] == "-n" {
		a.block = false
		args = args[:last]
	}
	if len(args) < 1 {
		return a, fmt.Errorf("POSITION required")
	}
	if len(args) > 3 {
		return a, fmt.Errorf("too many arguments")
	}
	if err := parseArg(args, 0, "POSITION", &a.position); err != nil {
		return a, err
	}
	if err := parseArg(args, 1, "WHEEL", &a.wheel); err != nil {
		return a, err
	}
	if err := parseArg(args, 2, "SPEED", &a.speed); err != nil {
		return a, err
	}
	return a, nil
}

var (
	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			names, err := s.ListPorts()
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if len(names) == 0 {
					names = []string{}
				}
				out, err := json.Marshal(names)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(names) == 0 {
				c.Println("No serial ports found")
				return
			}
			for _, name := range names {
				c.Println(name)
			}
		},
	}

	// OpenCmd opens a controller.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "[PORT]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				s.Config.Port = c.Args[0]
			}
			if err := s.Open(); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd parks the wheels and closes the controller.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Help: "",
		Func: MustBeOpen(func(c *ishell.Context) {
			if err := ShellFrom(c).Close(); err != nil {
				c.Err(err)
			}
		}),
	}

	// MoveCmd moves a wheel.
	MoveCmd = ishell.Cmd{
		Name:    "move",
		Aliases: []string{"m"},
		Help:    "POSITION [WHEEL] [SPEED] [-n]",
		Func: MustBeOpen(func(c *ishell.Context) {
			a, err := parseMoveArgs(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			start := time.Now()
			if err := ShellFrom(c).Ctl.Move(a.position, a.wheel, a.speed, a.block); err != nil {
				c.Err(err)
				return
			}
			c.Printf("OK (time: %.4fs)\n", time.Since(start).Seconds())
		}),
	}

	// FinishCmd waits for one pending move.
	FinishCmd = ishell.Cmd{
		Name:    "finish",
		Aliases: []string{"f"},
		Help:    "",
		Func: MustBeOpen(func(c *ishell.Context) {
			start := time.Now()
			if err := ShellFrom(c).Ctl.FinishMoving(); err != nil {
				c.Err(err)
				return
			}
			c.Printf("OK (time: %.4fs)\n", time.Since(start).Seconds())
		}),
	}

	// PositionCmd prints wheel positions.
	PositionCmd = ishell.Cmd{
		Name:    "position",
		Aliases: []string{"pos", "p"},
		Help:    "",
		Func: MustBeOpen(func(c *ishell.Context) {
			ShellFrom(c).printPositions(c)
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	defer glog.Flush()
	New(lambda.Default()).WithAutoOpen(true).Run(flag.Args()...)
}
