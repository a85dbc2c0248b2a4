package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"

	"github.com/drunlade/go-xmodem/serialport"
	"github.com/drunlade/go-xmodem/xmodem"
)

func main() {
	args := argparse.NewParser("xshell", "Interactive XMODEM shell for serial devices")

	config := args.String("c", "config", &argparse.Options{Help: "TOML file with serial settings"})
	device := args.String("d", "device", &argparse.Options{Help: "Open this device on start"})
	verbose := args.Flag("v", "verbose", &argparse.Options{Help: "Trace every byte on the wire"})
	eval := args.StringList("e", "eval", &argparse.Options{Help: "Run one command and exit, e.g. -e send -e kernel8.img"})

	if err := args.Parse(os.Args); err != nil {
		fmt.Fprint(os.Stderr, args.Usage(err))
		os.Exit(1)
	}

	settings, err := serialport.Resolve(*config, serialport.Overrides{Device: *device})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	s := NewShell(settings, xmodem.NewLogger(os.Stderr, *verbose), *verbose)
	if settings.Device != "" {
		if err := s.Open(settings); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if err := s.Run(*eval...); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
