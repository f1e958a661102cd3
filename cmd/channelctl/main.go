// Package main provides channelctl, a read-only operator TUI that
// connects to a running channeld's debug introspection endpoint
// (SPEC_FULL.md §4.16).
//
// Usage:
//
//	channelctl --addr 127.0.0.1:7580
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/channeld/internal/channelctl"
)

func main() {
	app := &cli.App{
		Name:  "channelctl",
		Usage: "read-only operator TUI for a running channeld",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: "127.0.0.1:7580",
				Usage: "channeld debug endpoint address",
			},
		},
		Action: func(c *cli.Context) error {
			return channelctl.Run(c.String("addr"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "channelctl: %v\n", err)
		os.Exit(1)
	}
}
