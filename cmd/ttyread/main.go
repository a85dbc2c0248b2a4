package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/akamensky/argparse"
	"golang.org/x/term"

	"github.com/drunlade/go-xmodem/internal/transfer"
	"github.com/drunlade/go-xmodem/serialport"
	"github.com/drunlade/go-xmodem/xmodem"
)

const versionString = "ttyread version 0.1.0"

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run returns the process exit code so deferred closes happen before exit.
func run(argv []string, stdout, stderr io.Writer) int {
	args := argparse.NewParser("ttyread", "Read from a serial device, optionally with XMODEM")

	tty := args.StringPositional(&argparse.Options{Help: "Serial device, e.g. /dev/ttyUSB0"})
	device := args.String("d", "device", &argparse.Options{Help: "Serial device (alternative to the positional argument)"})
	output := args.String("o", "output", &argparse.Options{Help: "Output file (default: stdout)"})
	baud := args.String("b", "baud", &argparse.Options{Help: "Baud rate (default: 115200)"})
	timeout := args.String("t", "timeout", &argparse.Options{Help: "Read timeout in seconds (default: 10)"})
	width := args.String("w", "width", &argparse.Options{Help: "Data character width in bits (default: 8)"})
	stopBits := args.String("s", "stop-bits", &argparse.Options{Help: "Stop bits, 1 or 2 (default: 1)"})
	flow := args.String("f", "flow-control", &argparse.Options{Help: "Flow control: none or hardware (default: none)"})
	config := args.String("c", "config", &argparse.Options{Help: "TOML file with serial settings; flags override it"})
	raw := args.Flag("r", "raw", &argparse.Options{Help: "Copy bytes as-is until the line goes quiet"})
	trim := args.Flag("", "trim", &argparse.Options{Help: "Strip trailing zero padding from the last packet"})
	compress := args.Flag("z", "lz4", &argparse.Options{Help: "Decompress an lz4 stream sent with ttywrite -z"})
	verbose := args.Flag("v", "verbose", &argparse.Options{Help: "Trace every byte on the wire"})
	quiet := args.Flag("q", "quiet", &argparse.Options{Help: "No progress output"})
	version := args.Flag("", "version", &argparse.Options{Help: "Show version"})

	if err := args.Parse(argv); err != nil {
		fmt.Fprint(stderr, args.Usage(err))
		return 1
	}

	if *version {
		fmt.Fprintln(stdout, versionString)
		return 0
	}

	dev, err := pickDevice(*tty, *device)
	if err != nil {
		return fail(stderr, err)
	}
	settings, err := serialport.Resolve(*config, serialport.Overrides{
		Device:      dev,
		BaudRate:    *baud,
		CharWidth:   *width,
		StopBits:    *stopBits,
		FlowControl: *flow,
		Timeout:     *timeout,
	})
	if err != nil {
		return fail(stderr, err)
	}

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	ctx, cancel := signalContext(sigChan)
	defer cancel()

	port, err := serialport.Open(settings)
	if err != nil {
		return fail(stderr, err)
	}
	defer port.Close()

	name := "stdout"
	out := stdout
	if *output != "" {
		file, err := os.Create(*output)
		if err != nil {
			return fail(stderr, err)
		}
		defer file.Close()
		out = file
		name = filepath.Base(*output)
	}

	logger := xmodem.NewLogger(stderr, *verbose)
	var t xmodem.Transport = port
	if *verbose {
		t = xmodem.NewLoggingTransport(port, logger, settings.Device)
	}

	opts := transfer.Options{
		Raw:         *raw,
		Compress:    *compress,
		TrimPadding: *trim,
		Logger:      logger,
	}
	var printer *transfer.Printer
	if !*quiet && !*raw {
		printer = transfer.NewPrinter(stderr, name, isTerminal(stderr))
		opts.Progress = printer.Func()
	}

	n, err := transfer.Recv(ctx, t, out, opts)
	if err != nil {
		return fail(stderr, err)
	}
	if printer != nil {
		printer.Done()
	}
	fmt.Fprintf(stderr, "read %d bytes\n", n)
	return 0
}

// pickDevice accepts the device either as the positional argument or as -d.
func pickDevice(positional, flag string) (string, error) {
	if positional != "" && flag != "" && positional != flag {
		return "", fmt.Errorf("device given twice: %s and %s", positional, flag)
	}
	if positional != "" {
		return positional, nil
	}
	return flag, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func fail(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func signalContext(sigChan chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
