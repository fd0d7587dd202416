package randao

import (
	"errors"
	"testing"

	"github.com/quantum-metachain/qmc/core/types"
	"github.com/quantum-metachain/qmc/crypto"
)

func TestValidateCreate(t *testing.T) {
	tests := []struct {
		name                       string
		h                          uint64
		exists                     bool
		target, balkline, deadline uint64
		want                       error
	}{
		{"ok", 1, false, 11, 8, 4, nil},
		{"exists", 1, true, 11, 8, 4, ErrCampaignAlreadyExists},
		{"exists wins over timeline", 20, true, 11, 2, 10, ErrCampaignAlreadyExists},
		{"target reached", 11, false, 11, 8, 4, ErrTimeLineCheck},
		{"target passed", 12, false, 11, 8, 4, ErrTimeLineCheck},
		{"deadline above balkline", 1, false, 11, 2, 10, ErrTimeLineCheck},
		{"deadline equals balkline", 1, false, 11, 4, 4, ErrTimeLineCheck},
		{"commit window already open", 3, false, 11, 8, 4, ErrTimeLineCheck},
		{"balkline equals target", 0, false, 8, 8, 4, ErrTimeLineCheck},
		{"balkline above target", 0, false, 5, 8, 4, ErrTimeLineCheck},
		{"last valid height", 2, false, 11, 8, 4, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCreate(tt.h, tt.exists, tt.target, tt.balkline, tt.deadline)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateCommitWindow(t *testing.T) {
	c := &types.Campaign{TargetHeight: 11, CommitBalkline: 8, CommitDeadline: 4}
	for h := uint64(0); h < 14; h++ {
		err := ValidateCommit(h, false, c)
		inWindow := h >= 3 && h <= 7
		if inWindow && err != nil {
			t.Fatalf("h=%d: got %v, want nil", h, err)
		}
		if !inWindow && !errors.Is(err, ErrTimeLineCommitPhase) {
			t.Fatalf("h=%d: got %v, want ErrTimeLineCommitPhase", h, err)
		}
	}
	if err := ValidateCommit(4, true, c); !errors.Is(err, ErrParticipantAlreadyThere) {
		t.Fatalf("duplicate: got %v, want ErrParticipantAlreadyThere", err)
	}
	if err := ValidateCommit(4, false, nil); !errors.Is(err, ErrIncorrectID) {
		t.Fatalf("missing campaign: got %v, want ErrIncorrectID", err)
	}
}

func TestValidateRevealWindow(t *testing.T) {
	c := &types.Campaign{TargetHeight: 11, CommitBalkline: 8, CommitDeadline: 4}
	p := &types.Participant{Commitment: crypto.HashSecret(42)}
	for h := uint64(0); h < 14; h++ {
		err := ValidateReveal(h, p, c, 42)
		inWindow := h >= 8 && h <= 10
		if inWindow && err != nil {
			t.Fatalf("h=%d: got %v, want nil", h, err)
		}
		if !inWindow && !errors.Is(err, ErrTimeLineRevealPhase) {
			t.Fatalf("h=%d: got %v, want ErrTimeLineRevealPhase", h, err)
		}
	}
}

func TestValidateRevealOrder(t *testing.T) {
	c := &types.Campaign{TargetHeight: 11, CommitBalkline: 8, CommitDeadline: 4}
	p := &types.Participant{Commitment: crypto.HashSecret(42)}
	revealed := &types.Participant{Commitment: crypto.HashSecret(42), Secret: 42, Revealed: true}

	tests := []struct {
		name   string
		h      uint64
		p      *types.Participant
		c      *types.Campaign
		secret uint64
		want   error
	}{
		{"not a participant", 9, nil, c, 42, ErrIsNotAParticipant},
		{"not a participant beats missing campaign", 9, nil, nil, 42, ErrIsNotAParticipant},
		{"missing campaign", 9, p, nil, 42, ErrIncorrectID},
		{"window beats hash", 5, p, c, 41, ErrTimeLineRevealPhase},
		{"already revealed", 9, revealed, c, 42, ErrAlreadyRevealed},
		{"wrong secret", 9, p, c, 41, ErrSecretDoesNotMatchTheHash},
		{"ok", 9, p, c, 42, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateReveal(tt.h, tt.p, tt.c, tt.secret); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateFinalizedQuorum(t *testing.T) {
	tests := []struct {
		commits, reveals uint64
		want             error
	}{
		{0, 0, ErrFailedCampaign},
		{1, 0, ErrFailedCampaign},
		{1, 1, nil},
		{2, 1, nil},
		{3, 1, ErrFailedCampaign},
		{3, 2, nil},
		{4, 2, nil},
		{5, 2, ErrFailedCampaign},
		{5, 3, nil},
	}
	for _, tt := range tests {
		c := &types.Campaign{TargetHeight: 11, CommitBalkline: 8, CommitDeadline: 4, CommitCount: tt.commits, RevealCount: tt.reveals}
		if err := ValidateFinalized(11, c); !errors.Is(err, tt.want) {
			t.Fatalf("commits=%d reveals=%d: got %v, want %v", tt.commits, tt.reveals, err, tt.want)
		}
	}
	c := &types.Campaign{TargetHeight: 11, CommitBalkline: 8, CommitDeadline: 4, CommitCount: 1, RevealCount: 1}
	if err := ValidateFinalized(10, c); !errors.Is(err, ErrCampaignIsNotOver) {
		t.Fatalf("h<target: got %v, want ErrCampaignIsNotOver", err)
	}
	if err := ValidateFinalized(11, nil); !errors.Is(err, ErrIncorrectID) {
		t.Fatalf("missing: got %v, want ErrIncorrectID", err)
	}
}
