package randao

import "errors"

// Ledger errors. Every rejection leaves the stored state untouched.
var (
	ErrTimeLineCheck             = errors.New("randao: campaign timeline check failed")
	ErrCampaignAlreadyExists     = errors.New("randao: campaign already exists")
	ErrIncorrectID               = errors.New("randao: no campaign for target height")
	ErrParticipantAlreadyThere   = errors.New("randao: participant already committed")
	ErrIsNotAParticipant         = errors.New("randao: not a participant of the campaign")
	ErrTimeLineCommitPhase       = errors.New("randao: outside the commit window")
	ErrTimeLineRevealPhase       = errors.New("randao: outside the reveal window")
	ErrAlreadyRevealed           = errors.New("randao: participant already revealed")
	ErrSecretDoesNotMatchTheHash = errors.New("randao: secret does not match the commitment")
	ErrCampaignIsNotOver         = errors.New("randao: campaign is not over")
	ErrFailedCampaign            = errors.New("randao: campaign failed to reach reveal quorum")
	ErrUnknownCommand            = errors.New("randao: unknown command")
)
