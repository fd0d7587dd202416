// Command beaconctl inspects beacon campaigns, either from a running node's
// beacon API or, with the node stopped, from its data directory.
//
// Usage:
//
//	beaconctl [flags]
//
// Flags:
//
//	--rpc       Beacon API URL of a running node
//	--datadir   Data directory to open read-only when --rpc is empty
//	--height    Height to evaluate phases at (default: stored head)
//	--target    Also list the participants of this campaign (datadir only)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/quantum-metachain/qmc/core/rawdb"
	"github.com/quantum-metachain/qmc/log"
	"github.com/quantum-metachain/qmc/randao"
	"github.com/quantum-metachain/qmc/rpc"
)

type options struct {
	rpcURL  string
	datadir string
	height  uint64
	target  uint64
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	opts, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	pterm.SetDefaultOutput(out)

	var (
		head      uint64
		campaigns []rpc.CampaignResult
		members   pterm.TableData
	)
	if opts.rpcURL != "" {
		head, campaigns, err = fromNode(opts)
	} else {
		head, campaigns, members, err = fromDatadir(opts)
	}
	if err != nil {
		pterm.Error.Println(err)
		return 1
	}

	pterm.Info.Printfln("Campaigns at height %d", head)
	if len(campaigns) == 0 {
		pterm.Info.Println("No campaigns stored")
		return 0
	}
	if err := pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(campaignTable(campaigns)).Render(); err != nil {
		pterm.Error.Println(err)
		return 1
	}
	if members != nil {
		pterm.Info.Printfln("Participants of campaign %d", opts.target)
		if err := pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(members).Render(); err != nil {
			pterm.Error.Println(err)
			return 1
		}
	}
	return 0
}

func parseFlags(args []string) (options, error) {
	var (
		opts   options
		height string
	)
	fs := flag.NewFlagSet("beaconctl", flag.ContinueOnError)
	fs.StringVar(&opts.rpcURL, "rpc", "", "beacon API URL of a running node")
	fs.StringVar(&opts.datadir, "datadir", "qmc-data", "data directory to open read-only")
	fs.StringVar(&height, "height", "", "height to evaluate phases at (default: head)")
	fs.Uint64Var(&opts.target, "target", 0, "list participants of this campaign")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if height != "" {
		h, err := strconv.ParseUint(height, 10, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid height %q", height)
		}
		opts.height = h
	}
	if opts.target != 0 && opts.rpcURL != "" {
		return opts, errors.New("-target requires -datadir")
	}
	return opts, nil
}

func fromNode(opts options) (uint64, []rpc.CampaignResult, error) {
	if opts.height != 0 {
		return 0, nil, errors.New("-height requires -datadir")
	}
	c := rpc.NewBeaconClient(opts.rpcURL)
	ctx := context.Background()
	st, err := c.Status(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("beacon status: %w", err)
	}
	campaigns, err := c.Campaigns(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("beacon campaigns: %w", err)
	}
	return st.Head, campaigns, nil
}

func fromDatadir(opts options) (uint64, []rpc.CampaignResult, pterm.TableData, error) {
	db, err := rawdb.OpenLevelDB(filepath.Join(opts.datadir, "chaindata"), true)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("open datadir: %w", err)
	}
	defer db.Close()

	head := opts.height
	if head == 0 {
		if head, err = rawdb.ReadHeadHeight(db); err != nil {
			return 0, nil, nil, err
		}
	}
	ledger := randao.NewLedger(db, log.Discard())
	all, err := ledger.Campaigns()
	if err != nil {
		return 0, nil, nil, err
	}
	campaigns := make([]rpc.CampaignResult, 0, len(all))
	for _, c := range all {
		campaigns = append(campaigns, rpc.NewCampaignResult(c, head))
	}

	var members pterm.TableData
	if opts.target != 0 {
		entries, err := ledger.Participants(opts.target)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("campaign %d: %w", opts.target, err)
		}
		members = participantTable(entries)
	}
	return head, campaigns, members, nil
}

func campaignTable(campaigns []rpc.CampaignResult) pterm.TableData {
	data := pterm.TableData{{"Target", "Phase", "Window", "Commits", "Reveals", "Secret"}}
	for _, c := range campaigns {
		secret := "-"
		switch {
		case c.Secret != nil:
			secret = pterm.LightGreen(strconv.FormatUint(*c.Secret, 10))
		case c.Failed:
			secret = pterm.LightRed("failed")
		}
		data = append(data, []string{
			strconv.FormatUint(c.Target, 10),
			c.Phase,
			fmt.Sprintf("[%d, %d]", c.Target-c.Balkline, c.Target-c.Deadline),
			strconv.FormatUint(c.Commits, 10),
			strconv.FormatUint(c.Reveals, 10),
			secret,
		})
	}
	return data
}

func participantTable(entries []rawdb.ParticipantEntry) pterm.TableData {
	data := pterm.TableData{{"Peer", "Commitment", "Revealed", "Secret"}}
	for _, e := range entries {
		revealed, secret := "no", "-"
		if e.Participant.Revealed {
			revealed = "yes"
			secret = strconv.FormatUint(e.Participant.Secret, 10)
		}
		data = append(data, []string{e.ID.String(), e.Participant.Commitment.Hex(), revealed, secret})
	}
	return data
}
