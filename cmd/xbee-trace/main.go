// Command xbee-trace shows radio frame captures written by xbee-home when
// trace.path is set.
//
// Usage:
//
//	xbee-trace <command> [flags] <file.cbor>
//
// Commands:
//
//	view     Print frames one per line
//	export   Write frames as JSON lines
//	stats    Count frames per session, direction and type
//
// Examples:
//
//	# Only frames sent to the radio
//	xbee-trace view -direction out capture.cbor
//
//	# Explicit RX and modem status frames of one session
//	xbee-trace export -session 3f2a -type 0x91,0x8A capture.cbor
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

const usage = `xbee-trace - XBee frame capture viewer

Usage:
  xbee-trace <command> [flags] <file.cbor>

Commands:
  view     Print frames one per line
  export   Write frames as JSON lines
  stats    Count frames per session, direction and type

Use "xbee-trace <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var run func(path string, f filterFlags, w io.Writer) error
	switch cmd {
	case "view":
		run = runView
	case "export":
		run = runExport
	case "stats":
		run = runStats
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  xbee-trace %s [flags] <file.cbor>\n\nFlags:\n", cmd)
		fs.PrintDefaults()
	}
	var f filterFlags
	fs.StringVar(&f.session, "session", "", "Session id or id prefix")
	fs.StringVar(&f.direction, "direction", "", "Direction (in, out)")
	fs.StringVar(&f.types, "type", "", "Comma separated frame types, e.g. 0x91,0x8A")
	fs.StringVar(&f.since, "since", "", "Only frames at or after this RFC 3339 time")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := run(fs.Arg(0), f, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
