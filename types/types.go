package types

import (
	"errors"
	"fmt"
	"math/big"
)

const (
	EventProposalType       = "proposal"
	EventVoteType           = "vote"
	EventBountyType         = "bounty"
	EventBountyClaimType    = "bounty_claim"
	EventTransferIntentType = "transfer_intent"
)

var (
	ErrUnsupportedConfigVersion = errors.New("unsupported config version")
)

type ProposalStatus uint64

const (
	ProposalStatusInProgress ProposalStatus = 1
	ProposalStatusApproved   ProposalStatus = 2
	ProposalStatusRejected   ProposalStatus = 3
	ProposalStatusRemoved    ProposalStatus = 4
	ProposalStatusExpired    ProposalStatus = 5
	ProposalStatusMoved      ProposalStatus = 6
	ProposalStatusFailed     ProposalStatus = 7
)

// Terminal reports whether the status accepts no further transitions.
func (s ProposalStatus) Terminal() bool {
	return s != ProposalStatusInProgress
}

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusInProgress:
		return "in_progress"
	case ProposalStatusApproved:
		return "approved"
	case ProposalStatusRejected:
		return "rejected"
	case ProposalStatusRemoved:
		return "removed"
	case ProposalStatusExpired:
		return "expired"
	case ProposalStatusMoved:
		return "moved"
	case ProposalStatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%v)", uint64(s))
	}
}

type Action string

const (
	ActionAddProposal    Action = "AddProposal"
	ActionVoteApprove    Action = "VoteApprove"
	ActionVoteReject     Action = "VoteReject"
	ActionVoteRemove     Action = "VoteRemove"
	ActionFinalize       Action = "Finalize"
	ActionRemoveProposal Action = "RemoveProposal"
	ActionMoveToHub      Action = "MoveToHub"
)

type Vote uint8

const (
	VoteApprove Vote = 0
	VoteReject  Vote = 1
	VoteRemove  Vote = 2
)

// VoteFromAction maps a voting action to its recorded choice.
func VoteFromAction(action Action) (Vote, bool) {
	switch action {
	case ActionVoteApprove:
		return VoteApprove, true
	case ActionVoteReject:
		return VoteReject, true
	case ActionVoteRemove:
		return VoteRemove, true
	default:
		return 0, false
	}
}

// VoteRecord keeps, next to the choice, the exact weight and matched roles
// contributed at vote time so a later re-vote can be subtracted precisely.
type VoteRecord struct {
	Choice Vote     `json:"choice"`
	Weight *big.Int `json:"weight"`
	Roles  []string `json:"roles"`
}

type Config struct {
	Name     string `json:"name"`
	Purpose  string `json:"purpose"`
	Metadata []byte `json:"metadata,omitempty"`

	ProposalBond   *big.Int `json:"proposal_bond"`
	ProposalPeriod uint64   `json:"proposal_period"`

	BountyBond                *big.Int `json:"bounty_bond"`
	BountyForgivenessPeriod   uint64   `json:"bounty_forgiveness_period"`
	MaxBountyClaimsPerAccount uint64   `json:"max_bounty_claims_per_account"`

	// BurnBondOnFail burns the proposer bond on Rejected/Expired outcomes
	// instead of returning it.
	BurnBondOnFail bool `json:"burn_bond_on_fail"`
}

const dayNanos = uint64(24) * 60 * 60 * 1_000_000_000

func DefaultConfig(name string) *Config {
	return &Config{
		Name:                      name,
		ProposalBond:              big.NewInt(1),
		ProposalPeriod:            7 * dayNanos,
		BountyBond:                big.NewInt(1),
		BountyForgivenessPeriod:   1 * dayNanos,
		MaxBountyClaimsPerAccount: 8,
	}
}

// Clone deep-copies the config so a holder cannot reach the live big.Int
// bond amounts.
func (c *Config) Clone() *Config {
	n := *c
	if c.Metadata != nil {
		n.Metadata = append([]byte(nil), c.Metadata...)
	}
	if c.ProposalBond != nil {
		n.ProposalBond = new(big.Int).Set(c.ProposalBond)
	}
	if c.BountyBond != nil {
		n.BountyBond = new(big.Int).Set(c.BountyBond)
	}
	return &n
}

func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("config name is empty")
	}
	if c.ProposalBond == nil || c.ProposalBond.Sign() < 0 {
		return errors.New("config proposal bond invalid")
	}
	if c.ProposalPeriod == 0 {
		return errors.New("config proposal period is zero")
	}
	if c.BountyBond == nil || c.BountyBond.Sign() < 0 {
		return errors.New("config bounty bond invalid")
	}
	return nil
}

// VersionedConfig wraps Config for forward-compatible storage. Older
// variants are converted once at load time by Upgrade, never in place.
type VersionedConfig struct {
	Version uint32  `json:"version"`
	V1      *Config `json:"v1,omitempty"`
}

func NewVersionedConfig(c *Config) VersionedConfig {
	return VersionedConfig{Version: 1, V1: c}
}

func (v VersionedConfig) Upgrade() (*Config, error) {
	switch v.Version {
	case 1:
		if v.V1 == nil {
			return nil, ErrUnsupportedConfigVersion
		}
		return v.V1, nil
	default:
		return nil, ErrUnsupportedConfigVersion
	}
}

type Event interface {
	Type() string
}

// EventSink receives engine events synchronously, in apply order.
type EventSink interface {
	Publish(ev Event)
}

type EventProposal struct {
	ProposalID     uint64 `json:"proposalId"`
	Proposer       string `json:"proposer"`
	Label          string `json:"label"`
	Description    string `json:"description"`
	Status         uint64 `json:"status"`
	SubmissionTime uint64 `json:"submissionTime"`
}

func (EventProposal) Type() string { return EventProposalType }

type EventVote struct {
	ProposalID uint64 `json:"proposalId"`
	Voter      string `json:"voter"`
	Choice     uint64 `json:"choice"`
	Status     uint64 `json:"status"`
}

func (EventVote) Type() string { return EventVoteType }

type EventBounty struct {
	BountyID uint64 `json:"bountyId"`
	Token    string `json:"token"`
	Amount   string `json:"amount"`
	Times    uint64 `json:"times"`
}

func (EventBounty) Type() string { return EventBountyType }

const (
	ClaimEventClaimed   = "claimed"
	ClaimEventGivenUp   = "given_up"
	ClaimEventCompleted = "completed"
	ClaimEventExpired   = "expired"
)

type EventBountyClaim struct {
	BountyID uint64 `json:"bountyId"`
	Claimer  string `json:"claimer"`
	Deadline uint64 `json:"deadline"`
	Kind     string `json:"kind"`
}

func (EventBountyClaim) Type() string { return EventBountyClaimType }

// EventTransferIntent is the engine's request for the host to move funds.
// Completion is asynchronous; the engine never rolls back on transfer
// failure.
type EventTransferIntent struct {
	ProposalID uint64 `json:"proposalId"`
	Token      string `json:"token"`
	Receiver   string `json:"receiver"`
	Amount     string `json:"amount"`
	Memo       string `json:"memo"`
}

func (EventTransferIntent) Type() string { return EventTransferIntentType }
