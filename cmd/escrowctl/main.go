/*
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/internal/auction"
	"github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/internal/escrow"
	"github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/internal/log"
	"github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/internal/raffle"
)

// result is printed after every transition
type result struct {
	ExitCode escrow.ExitCode `json:"exitCode"`
	Error    string          `json:"error,omitempty"`
	State    interface{}     `json:"state"`
	Actions  []escrow.Action `json:"actions"`
}

var flags = []cli.Flag{
	&cli.StringFlag{Name: "state", Required: true, Usage: "JSON file holding the current state"},
	&cli.StringFlag{Name: "message", Required: true, Usage: "JSON file holding the inbound message"},
	&cli.Int64Flag{Name: "now", Usage: "unix time of the message (default: current time)"},
	&cli.BoolFlag{Name: "write", Usage: "store the new state back into the state file when accepted"},
}

func main() {
	if _, err := log.NewLogger(os.Getenv("LOG_FILE"), os.Getenv("DEBUG") == "true"); err != nil {
		fmt.Fprintf(os.Stderr, "Unable to init logger: %v\n", err)
		os.Exit(1)
	}

	if err := newApp().Run(os.Args); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to run escrowctl")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "escrowctl",
		Usage: "run one auction or raffle transition offline",
		Commands: []*cli.Command{
			{
				Name:   "auction",
				Usage:  "apply a message to an auction state",
				Flags:  flags,
				Action: runAuction,
			},
			{
				Name:   "raffle",
				Usage:  "apply a message to a raffle state",
				Flags:  flags,
				Action: runRaffle,
			},
		},
	}
}

func runAuction(c *cli.Context) error {
	var st auction.State
	msg, err := readInputs(c, &st)
	if err != nil {
		return err
	}
	next, actions, err := auction.Process(st, msg, now(c))
	return report(c, next, actions, err)
}

func runRaffle(c *cli.Context) error {
	var st raffle.State
	msg, err := readInputs(c, &st)
	if err != nil {
		return err
	}
	next, actions, err := raffle.Process(st, msg)
	return report(c, next, actions, err)
}

func readInputs(c *cli.Context, state interface{}) (escrow.Message, error) {
	if err := readJSON(c.String("state"), state); err != nil {
		return escrow.Message{}, err
	}
	var msg escrow.Message
	if err := readJSON(c.String("message"), &msg); err != nil {
		return escrow.Message{}, err
	}
	return msg, nil
}

func readJSON(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func now(c *cli.Context) time.Time {
	if c.IsSet("now") {
		return time.Unix(c.Int64("now"), 0)
	}
	return time.Now()
}

func report(c *cli.Context, state interface{}, actions []escrow.Action, procErr error) error {
	res := result{
		ExitCode: escrow.ExitCodeOf(procErr),
		State:    state,
		Actions:  actions,
	}
	if res.Actions == nil {
		res.Actions = []escrow.Action{}
	}
	if procErr != nil {
		res.Error = procErr.Error()
		zap.L().With(zap.Error(procErr)).Debug("message rejected")
	}

	if procErr == nil && c.Bool("write") {
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(c.String("state"), data, 0644); err != nil {
			return err
		}
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(out))
	return err
}
