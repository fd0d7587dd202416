package rawdb

import (
	"errors"
	"testing"

	"github.com/quantum-metachain/qmc/core/types"
	"github.com/quantum-metachain/qmc/crypto"
)

var (
	peerA = types.MustPeerID("12D3KooWQijTyPBAQcqZeSD1fh3Ep8iW6ZAogEwUwcAKgSouyusV")
	peerB = types.MustPeerID("12D3KooWHg3Xq65A8MpywPGsTgLhHQqfo9kBhibXouSzgJzCmhic")
)

func TestCampaignRoundTrip(t *testing.T) {
	db := NewMemoryDB()
	c := &types.Campaign{TargetHeight: 11, Secret: 7, CommitBalkline: 8, CommitDeadline: 4, CommitCount: 2, RevealCount: 1}
	if err := WriteCampaign(db, c); err != nil {
		t.Fatalf("WriteCampaign: %v", err)
	}
	got, err := ReadCampaign(db, 11)
	if err != nil {
		t.Fatalf("ReadCampaign: %v", err)
	}
	if *got != *c {
		t.Fatalf("ReadCampaign = %+v, want %+v", got, c)
	}
	if ok, _ := HasCampaign(db, 12); ok {
		t.Fatal("HasCampaign(12) = true for missing campaign")
	}
	if _, err := ReadCampaign(db, 12); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ReadCampaign(12) err = %v, want ErrNotFound", err)
	}
}

func TestReadAllCampaignsOrdered(t *testing.T) {
	db := NewMemoryDB()
	for _, target := range []uint64{300, 11, 256, 12} {
		if err := WriteCampaign(db, &types.Campaign{TargetHeight: target, CommitBalkline: 8, CommitDeadline: 4}); err != nil {
			t.Fatalf("WriteCampaign(%d): %v", target, err)
		}
	}
	// Participants share the iteration space but must not be decoded as campaigns.
	if err := WriteParticipant(db, 11, peerA, &types.Participant{Commitment: crypto.HashSecret(1)}); err != nil {
		t.Fatalf("WriteParticipant: %v", err)
	}

	all, err := ReadAllCampaigns(db)
	if err != nil {
		t.Fatalf("ReadAllCampaigns: %v", err)
	}
	want := []uint64{11, 12, 256, 300}
	if len(all) != len(want) {
		t.Fatalf("got %d campaigns, want %d", len(all), len(want))
	}
	for i, c := range all {
		if c.TargetHeight != want[i] {
			t.Fatalf("campaign[%d] = %d, want %d", i, c.TargetHeight, want[i])
		}
	}
}

func TestParticipants(t *testing.T) {
	db := NewMemoryDB()
	pa := &types.Participant{Commitment: crypto.HashSecret(5), Secret: 5, Revealed: true}
	pb := &types.Participant{Commitment: crypto.HashSecret(9)}
	if err := WriteParticipant(db, 11, peerA, pa); err != nil {
		t.Fatalf("WriteParticipant: %v", err)
	}
	if err := WriteParticipant(db, 11, peerB, pb); err != nil {
		t.Fatalf("WriteParticipant: %v", err)
	}
	if err := WriteParticipant(db, 12, peerA, pb); err != nil {
		t.Fatalf("WriteParticipant: %v", err)
	}

	got, err := ReadParticipant(db, 11, peerA)
	if err != nil {
		t.Fatalf("ReadParticipant: %v", err)
	}
	if *got != *pa {
		t.Fatalf("ReadParticipant = %+v, want %+v", got, pa)
	}
	if ok, _ := HasParticipant(db, 13, peerA); ok {
		t.Fatal("HasParticipant(13) = true for missing row")
	}

	entries, err := ReadParticipants(db, 11)
	if err != nil {
		t.Fatalf("ReadParticipants: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d participants, want 2", len(entries))
	}
	for _, e := range entries {
		if e.ID != peerA && e.ID != peerB {
			t.Fatalf("unexpected participant %s", e.ID)
		}
	}
}

func TestScratchRecords(t *testing.T) {
	type record struct {
		Height uint64
		Winner string
		Local  bool
	}
	db := NewMemoryDB()
	var got record
	if err := ReadScratch(db, "rotation", &got); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ReadScratch err = %v, want ErrNotFound", err)
	}
	want := record{Height: 70, Winner: peerB.String(), Local: true}
	if err := WriteScratch(db, "rotation", &want); err != nil {
		t.Fatalf("WriteScratch: %v", err)
	}
	if err := ReadScratch(db, "rotation", &got); err != nil {
		t.Fatalf("ReadScratch: %v", err)
	}
	if got != want {
		t.Fatalf("ReadScratch = %+v, want %+v", got, want)
	}
	if err := DeleteScratch(db, "rotation"); err != nil {
		t.Fatalf("DeleteScratch: %v", err)
	}
	if err := ReadScratch(db, "rotation", &got); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete err = %v, want ErrNotFound", err)
	}
}

func TestHeadHeight(t *testing.T) {
	db := NewMemoryDB()
	if h, err := ReadHeadHeight(db); err != nil || h != 0 {
		t.Fatalf("ReadHeadHeight = %d, %v; want 0, nil", h, err)
	}
	if err := WriteHeadHeight(db, 1234); err != nil {
		t.Fatalf("WriteHeadHeight: %v", err)
	}
	if h, err := ReadHeadHeight(db); err != nil || h != 1234 {
		t.Fatalf("ReadHeadHeight = %d, %v; want 1234, nil", h, err)
	}
}
