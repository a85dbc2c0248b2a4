package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/abiosoft/readline"

	"github.com/drunlade/go-xmodem/console"
	"github.com/drunlade/go-xmodem/internal/transfer"
	"github.com/drunlade/go-xmodem/serialport"
	"github.com/drunlade/go-xmodem/xmodem"
)

const (
	shellKey      = "$shell"
	closedPrompt  = "[closed] > "
	promptPattern = "[%s] > "
)

// Shell holds the serial port shared by all commands.
type Shell struct {
	Shell    *ishell.Shell
	Settings serialport.Settings
	Port     *serialport.Port
	Logger   xmodem.Logger
	Verbose  bool

	input *console.Switch
}

var commands = []*ishell.Cmd{
	&OpenCmd,
	&CloseCmd,
	&StatusCmd,
	&SendCmd,
	&RecvCmd,
	&RawCmd,
	&ConsoleCmd,
	&PortsCmd,
	&TimeoutCmd,
}

// NewShell creates a shell reading commands from stdin.
func NewShell(settings serialport.Settings, logger xmodem.Logger, verbose bool) *Shell {
	input, stdin := console.NewSwitch(os.Stdin)
	s := &Shell{
		Shell:    ishell.NewWithConfig(&readline.Config{Prompt: closedPrompt, Stdin: stdin}),
		Settings: settings,
		Logger:   logger,
		Verbose:  verbose,
		input:    input,
	}
	s.Shell.Set(shellKey, s)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps a command that needs an open port.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Port == nil {
			c.Err(fmt.Errorf("no port open"))
			return
		}
		fn(c)
	}
}

// Open opens the configured device, closing any port already open.
func (s *Shell) Open(settings serialport.Settings) error {
	port, err := serialport.Open(settings)
	if err != nil {
		return err
	}
	s.Close()
	s.Port = port
	s.Settings = settings
	s.Shell.SetPrompt(fmt.Sprintf(promptPattern, filepath.Base(settings.Device)))
	return nil
}

// Close closes the open port, if any.
func (s *Shell) Close() {
	if s.Port != nil {
		s.Port.Close()
		s.Port = nil
		s.Shell.SetPrompt(closedPrompt)
	}
}

func (s *Shell) transport() xmodem.Transport {
	if s.Verbose {
		return xmodem.NewLoggingTransport(s.Port, s.Logger, s.Settings.Device)
	}
	return s.Port
}

// interruptible returns a context cancelled by Ctrl-C while a transfer runs.
func interruptible() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

// transferArgs splits "-z" and "--trim" switches from a file argument.
func transferArgs(args []string) (path string, opts transfer.Options, err error) {
	for _, arg := range args {
		switch arg {
		case "-z", "--lz4":
			opts.Compress = true
		case "--trim":
			opts.TrimPadding = true
		default:
			if strings.HasPrefix(arg, "-") || path != "" {
				return "", opts, fmt.Errorf("unexpected argument %q", arg)
			}
			path = arg
		}
	}
	if path == "" {
		return "", opts, fmt.Errorf("file expected")
	}
	return path, opts, nil
}

func (s *Shell) send(c *ishell.Context, path string, opts transfer.Options) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var printer *transfer.Printer
	if !opts.Raw {
		printer = transfer.NewPrinter(os.Stdout, filepath.Base(path), true)
		opts.Progress = printer.Func()
	}
	opts.Logger = s.Logger

	ctx, cancel := interruptible()
	defer cancel()
	n, err := transfer.Send(ctx, s.transport(), file, opts)
	if err != nil {
		s.dropIfClosed(ctx)
		return err
	}
	if printer != nil {
		printer.Done()
	}
	c.Printf("wrote %d bytes\n", n)
	return nil
}

func (s *Shell) recv(c *ishell.Context, path string, opts transfer.Options) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	printer := transfer.NewPrinter(os.Stdout, filepath.Base(path), true)
	opts.Progress = printer.Func()
	opts.Logger = s.Logger

	ctx, cancel := interruptible()
	defer cancel()
	n, err := transfer.Recv(ctx, s.transport(), file, opts)
	if err != nil {
		s.dropIfClosed(ctx)
		return err
	}
	printer.Done()
	c.Printf("read %d bytes\n", n)
	return nil
}

// dropIfClosed forgets a port that an interrupted transfer closed.
func (s *Shell) dropIfClosed(ctx context.Context) {
	if ctx.Err() != nil {
		s.Port = nil
		s.Shell.SetPrompt(closedPrompt)
	}
}

// Run runs the shell, or the single command given in args.
func (s *Shell) Run(args ...string) error {
	defer s.Close()
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	s.Shell.Println("XMODEM shell. Type help for commands.")
	s.Shell.Run()
	return nil
}

var (
	// OpenCmd opens a serial device.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "DEVICE [BAUD]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) < 1 || len(c.Args) > 2 {
				c.Err(fmt.Errorf("usage: open DEVICE [BAUD]"))
				return
			}
			settings := s.Settings
			settings.Device = c.Args[0]
			if len(c.Args) == 2 {
				rate, err := serialport.ParseBaudRate(c.Args[1])
				if err != nil {
					c.Err(err)
					return
				}
				if !serialport.IsStandardBaudRate(rate) {
					c.Printf("warning: %d is not a standard baud rate\n", rate)
				}
				settings.BaudRate = rate
			}
			if err := s.Open(settings); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes the open device.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Close()
		},
	}

	// StatusCmd shows the port and its settings.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			state := "closed"
			if s.Port != nil {
				state = "open"
			}
			st := s.Settings
			device := st.Device
			if device == "" {
				device = "-"
			}
			c.Printf("%s %s %d %dN%d flow=%s timeout=%v\n",
				device, state, st.BaudRate, st.CharWidth, st.StopBits, st.FlowControl, st.Timeout.Duration)
		},
	}

	// SendCmd transmits a file with XMODEM.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"sx"},
		Help:    "[-z] FILE",
		Func: MustBeOpen(func(c *ishell.Context) {
			path, opts, err := transferArgs(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if err := ShellFrom(c).send(c, path, opts); err != nil {
				c.Err(err)
			}
		}),
	}

	// RecvCmd receives a file with XMODEM.
	RecvCmd = ishell.Cmd{
		Name:    "recv",
		Aliases: []string{"rx"},
		Help:    "[-z] [--trim] FILE",
		Func: MustBeOpen(func(c *ishell.Context) {
			path, opts, err := transferArgs(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if err := ShellFrom(c).recv(c, path, opts); err != nil {
				c.Err(err)
			}
		}),
	}

	// RawCmd writes a file to the port as-is.
	RawCmd = ishell.Cmd{
		Name: "raw",
		Help: "FILE",
		Func: MustBeOpen(func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: raw FILE"))
				return
			}
			if err := ShellFrom(c).send(c, c.Args[0], transfer.Options{Raw: true}); err != nil {
				c.Err(err)
			}
		}),
	}

	// ConsoleCmd attaches the terminal to the port until Ctrl-].
	ConsoleCmd = ishell.Cmd{
		Name:    "console",
		Aliases: []string{"c"},
		Help:    "exit with Ctrl-]",
		Func: MustBeOpen(func(c *ishell.Context) {
			s := ShellFrom(c)
			c.Println("console attached, Ctrl-] to return")
			in := s.input.Attach()
			err := console.RunTerminal(context.Background(), s.Port, in, s.Logger)
			s.input.Detach()
			c.Println()
			if rerr := s.Port.SetReadTimeout(s.Settings.Timeout.Duration); rerr != nil && err == nil {
				err = rerr
			}
			if err != nil && err != io.EOF {
				c.Err(err)
			}
		}),
	}

	// PortsCmd lists serial devices.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"ls"},
		Func: func(c *ishell.Context) {
			ports, err := serialport.List()
			if err != nil {
				c.Err(err)
				return
			}
			if len(ports) == 0 {
				c.Println("No serial ports found")
				return
			}
			for _, p := range ports {
				c.Println(p)
			}
		},
	}

	// TimeoutCmd sets the read timeout in seconds.
	TimeoutCmd = ishell.Cmd{
		Name: "timeout",
		Help: "SECS",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) != 1 {
				c.Println(strconv.FormatFloat(s.Settings.Timeout.Seconds(), 'f', -1, 64))
				return
			}
			d, err := serialport.ParseTimeout(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			s.Settings.Timeout.Duration = d
			if s.Port != nil {
				if err := s.Port.SetReadTimeout(d); err != nil {
					c.Err(err)
				}
			}
		},
	}
)
