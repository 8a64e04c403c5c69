package dao

import "errors"

var (
	ErrNotInitialized     = errors.New("dao not initialized")
	ErrProposalNotFound   = errors.New("proposal noexists")
	ErrProposalNotActive  = errors.New("proposal not active")
	ErrProposalExpired    = errors.New("proposal expired")
	ErrAlreadyFinalized   = errors.New("proposal already finalized")
	ErrVotePeriodNotOver  = errors.New("voting period not over")
	ErrInsufficientBond   = errors.New("insufficient bond")
	ErrBountyNotFound     = errors.New("bounty noexists")
	ErrNoSlotsAvailable   = errors.New("no bounty slots available")
	ErrAlreadyMaxClaims   = errors.New("max claims per account reached")
	ErrClaimNotFound      = errors.New("bounty claim noexists")
	ErrDeadlineTooLong    = errors.New("claim deadline exceeds bounty maximum")
	ErrActionNotSupported = errors.New("action not supported")
	ErrStakingContractSet = errors.New("staking contract already set")

	// ErrAccountingCorruption marks an unsigned underflow or overflow in
	// bond or balance arithmetic. It aborts the call and must never be
	// swallowed.
	ErrAccountingCorruption = errors.New("accounting corruption")
)
