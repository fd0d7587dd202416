package main

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pterm/pterm"

	"github.com/quantum-metachain/qmc/core/rawdb"
	"github.com/quantum-metachain/qmc/core/types"
	"github.com/quantum-metachain/qmc/crypto"
	"github.com/quantum-metachain/qmc/log"
	"github.com/quantum-metachain/qmc/randao"
	"github.com/quantum-metachain/qmc/rpc"
)

var peer = types.MustPeerID("12D3KooWHg3Xq65A8MpywPGsTgLhHQqfo9kBhibXouSzgJzCmhic")

func init() {
	pterm.DisableColor()
}

// writeDatadir stores a finalized and an open campaign under dir.
func writeDatadir(t *testing.T, dir string) {
	t.Helper()
	db, err := rawdb.OpenLevelDB(filepath.Join(dir, "chaindata"), false)
	if err != nil {
		t.Fatalf("OpenLevelDB: %v", err)
	}
	defer db.Close()
	l := randao.NewLedger(db, log.Discard())
	steps := []func() error{
		func() error { return l.Create(1, 11, 8, 4) },
		func() error { return l.Create(1, 20, 8, 4) },
		func() error { return l.Commit(3, peer, 11, crypto.HashSecret(77)) },
		func() error { return l.Reveal(9, peer, 11, 77) },
		func() error { return rawdb.WriteHeadHeight(db, 12) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-datadir", "/tmp/x", "-height", "30", "-target", "11"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.datadir != "/tmp/x" || opts.height != 30 || opts.target != 11 {
		t.Fatalf("opts = %+v", opts)
	}
	if _, err := parseFlags([]string{"-height", "abc"}); err == nil {
		t.Fatal("expected error for bad height")
	}
	if _, err := parseFlags([]string{"-rpc", "http://x", "-target", "5"}); err == nil {
		t.Fatal("expected error for -target with -rpc")
	}
}

func TestFromDatadir(t *testing.T) {
	dir := t.TempDir()
	writeDatadir(t, dir)

	head, campaigns, members, err := fromDatadir(options{datadir: dir, target: 11})
	if err != nil {
		t.Fatalf("fromDatadir: %v", err)
	}
	if head != 12 || len(campaigns) != 2 {
		t.Fatalf("head=%d campaigns=%d, want 12/2", head, len(campaigns))
	}
	if c := campaigns[0]; c.Secret == nil || *c.Secret != 77 {
		t.Fatalf("campaign 11 = %+v", c)
	}
	if len(members) != 2 || members[1][0] != peer.String() || members[1][3] != "77" {
		t.Fatalf("members = %v", members)
	}

	// Evaluated before the target, campaign 11 is still revealing.
	_, campaigns, _, err = fromDatadir(options{datadir: dir, height: 9})
	if err != nil {
		t.Fatalf("fromDatadir: %v", err)
	}
	if campaigns[0].Phase != "reveal" || campaigns[0].Secret != nil {
		t.Fatalf("campaign 11 at 9 = %+v", campaigns[0])
	}
}

func TestCampaignTable(t *testing.T) {
	secret := uint64(5)
	data := campaignTable([]rpc.CampaignResult{
		{Target: 11, Phase: "finalizable", Balkline: 8, Deadline: 4, Commits: 1, Reveals: 1, Secret: &secret},
		{Target: 12, Phase: "finalizable", Balkline: 8, Deadline: 4, Commits: 2, Failed: true},
	})
	if len(data) != 3 {
		t.Fatalf("rows = %d, want 3", len(data))
	}
	if data[1][2] != "[3, 7]" || !strings.Contains(data[1][5], "5") {
		t.Fatalf("row 1 = %v", data[1])
	}
	if !strings.Contains(data[2][5], "failed") {
		t.Fatalf("row 2 = %v", data[2])
	}
}

func TestRunAgainstNode(t *testing.T) {
	l := randao.NewLedger(rawdb.NewMemoryDB(), log.Discard())
	if err := l.Create(1, 11, 8, 4); err != nil {
		t.Fatalf("Create: %v", err)
	}
	srv := httptest.NewServer(rpc.NewServer(&nodeBackend{Ledger: l}).Handler())
	defer srv.Close()

	var out bytes.Buffer
	if code := run([]string{"-rpc", srv.URL}, &out); code != 0 {
		t.Fatalf("run = %d, output:\n%s", code, out.String())
	}
	if !strings.Contains(out.String(), "[3, 7]") {
		t.Fatalf("output missing campaign row:\n%s", out.String())
	}
	if _, _, err := fromNode(options{rpcURL: srv.URL, height: 4}); err == nil {
		t.Fatal("expected error for -height with -rpc")
	}
}

type nodeBackend struct {
	*randao.Ledger
}

func (b *nodeBackend) Head() uint64         { return 5 }
func (b *nodeBackend) PendingCommands() int { return 0 }
