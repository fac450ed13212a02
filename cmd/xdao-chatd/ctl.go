package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"xdao.co/catchat/sessionrpc"
)

var (
	targetFlag = &cli.StringFlag{
		Name:  "target",
		Usage: "daemon gRPC address",
		Value: "127.0.0.1:7780",
	}
	timeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "per-call timeout",
		Value: 10 * time.Second,
	}
)

var ctlCommand = &cli.Command{
	Name:  "ctl",
	Usage: "drive a running daemon",
	Flags: []cli.Flag{targetFlag, timeoutFlag},
	Subcommands: []*cli.Command{
		{Name: "state", Usage: "print the session state", Action: withClient(ctlState)},
		{Name: "connect", Usage: "connect the wallet", Action: withClient(ctlConnect)},
		{Name: "name", Usage: "set the display name and sign the credential", ArgsUsage: "<name>", Action: withClient(ctlName)},
		{Name: "send", Usage: "send a text message", ArgsUsage: "<text>", Action: withClient(ctlSend)},
		{Name: "watch", Usage: "print room entries as JSON lines", ArgsUsage: "[topic]", Action: withClient(ctlWatch)},
	},
}

func withClient(fn func(*cli.Context, *sessionrpc.Client) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		client, err := sessionrpc.Dial(c.String(targetFlag.Name), sessionrpc.DialOptions{Timeout: c.Duration(timeoutFlag.Name)})
		if err != nil {
			return err
		}
		defer client.Close()
		client.Timeout = c.Duration(timeoutFlag.Name)
		return fn(c, client)
	}
}

func printJSON(c *cli.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(b))
	return err
}

func ctlState(c *cli.Context, client *sessionrpc.Client) error {
	v, err := client.State(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c, v)
}

func ctlConnect(c *cli.Context, client *sessionrpc.Client) error {
	return client.Connect(c.Context)
}

func ctlName(c *cli.Context, client *sessionrpc.Client) error {
	if c.NArg() != 1 {
		return errors.New("usage: xdao-chatd ctl name <name>")
	}
	if err := client.SetName(c.Context, c.Args().First()); err != nil {
		return err
	}
	return client.SubmitName(c.Context)
}

func ctlSend(c *cli.Context, client *sessionrpc.Client) error {
	if c.NArg() != 1 {
		return errors.New("usage: xdao-chatd ctl send <text>")
	}
	sent, err := client.Input(c.Context, c.Args().First()+"\n")
	if err != nil {
		return err
	}
	if !sent {
		return errors.New("not sent: no credential yet")
	}
	return nil
}

func ctlWatch(c *cli.Context, client *sessionrpc.Client) error {
	for entry, err := range client.Watch(c.Context, c.Args().First()) {
		if err != nil {
			return err
		}
		if err := printJSON(c, entry); err != nil {
			return err
		}
	}
	return nil
}
