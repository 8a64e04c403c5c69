package types

import (
	"encoding/json"
	"errors"
	"math/big"
)

var (
	ErrUnsupportedKind = errors.New("unsupported proposal kind")
)

// ProposalKind is a closed set of payload variants; the engine switches
// exhaustively over the concrete types when an approved proposal executes.
type ProposalKind interface {
	Label() string
}

const (
	LabelChangeConfig         = "change_config"
	LabelChangePolicy         = "change_policy"
	LabelAddMemberToRole      = "add_member_to_role"
	LabelRemoveMemberFromRole = "remove_member_from_role"
	LabelFunctionCall         = "function_call"
	LabelUpgradeSelf          = "upgrade_self"
	LabelUpgradeRemote        = "upgrade_remote"
	LabelTransfer             = "transfer"
	LabelSetStakingContract   = "set_staking_contract"
	LabelAddBounty            = "add_bounty"
	LabelBountyDone           = "bounty_done"
	LabelVote                 = "vote"
)

type ChangeConfigKind struct {
	Config Config `json:"config"`
}

func (*ChangeConfigKind) Label() string { return LabelChangeConfig }

// ChangePolicyKind carries the replacement policy as raw JSON; the engine
// decodes it into a versioned policy at execution time.
type ChangePolicyKind struct {
	Policy json.RawMessage `json:"policy"`
}

func (*ChangePolicyKind) Label() string { return LabelChangePolicy }

type AddMemberToRoleKind struct {
	MemberID string `json:"memberId"`
	Role     string `json:"role"`
}

func (*AddMemberToRoleKind) Label() string { return LabelAddMemberToRole }

type RemoveMemberFromRoleKind struct {
	MemberID string `json:"memberId"`
	Role     string `json:"role"`
}

func (*RemoveMemberFromRoleKind) Label() string { return LabelRemoveMemberFromRole }

type ActionCall struct {
	MethodName string   `json:"methodName"`
	Args       []byte   `json:"args"`
	Deposit    *big.Int `json:"deposit"`
	Gas        uint64   `json:"gas"`
}

type FunctionCallKind struct {
	ReceiverID string       `json:"receiverId"`
	Actions    []ActionCall `json:"actions"`
}

func (*FunctionCallKind) Label() string { return LabelFunctionCall }

type UpgradeSelfKind struct {
	Hash string `json:"hash"`
}

func (*UpgradeSelfKind) Label() string { return LabelUpgradeSelf }

type UpgradeRemoteKind struct {
	ReceiverID string `json:"receiverId"`
	MethodName string `json:"methodName"`
	Hash       string `json:"hash"`
}

func (*UpgradeRemoteKind) Label() string { return LabelUpgradeRemote }

type TransferKind struct {
	TokenID    string   `json:"tokenId"`
	ReceiverID string   `json:"receiverId"`
	Amount     *big.Int `json:"amount"`
	Msg        string   `json:"msg,omitempty"`
}

func (*TransferKind) Label() string { return LabelTransfer }

type SetStakingContractKind struct {
	StakingID string `json:"stakingId"`
}

func (*SetStakingContractKind) Label() string { return LabelSetStakingContract }

type AddBountyKind struct {
	Bounty Bounty `json:"bounty"`
}

func (*AddBountyKind) Label() string { return LabelAddBounty }

type BountyDoneKind struct {
	BountyID   uint64 `json:"bountyId"`
	ReceiverID string `json:"receiverId"`
}

func (*BountyDoneKind) Label() string { return LabelBountyDone }

// VoteKind is a signaling poll with no side effect on approval.
type VoteKind struct{}

func (*VoteKind) Label() string { return LabelVote }

type kindEnvelope struct {
	Label string          `json:"label"`
	Kind  json.RawMessage `json:"kind,omitempty"`
}

func unmarshalKind[K any](dat []byte) (ProposalKind, error) {
	var k K
	if len(dat) > 0 {
		if err := json.Unmarshal(dat, &k); err != nil {
			return nil, err
		}
	}
	return any(&k).(ProposalKind), nil
}

func UnmarshalKind(dat []byte) (kind ProposalKind, err error) {
	var env kindEnvelope
	if err = json.Unmarshal(dat, &env); err != nil {
		return
	}
	switch env.Label {
	case LabelChangeConfig:
		return unmarshalKind[ChangeConfigKind](env.Kind)
	case LabelChangePolicy:
		return unmarshalKind[ChangePolicyKind](env.Kind)
	case LabelAddMemberToRole:
		return unmarshalKind[AddMemberToRoleKind](env.Kind)
	case LabelRemoveMemberFromRole:
		return unmarshalKind[RemoveMemberFromRoleKind](env.Kind)
	case LabelFunctionCall:
		return unmarshalKind[FunctionCallKind](env.Kind)
	case LabelUpgradeSelf:
		return unmarshalKind[UpgradeSelfKind](env.Kind)
	case LabelUpgradeRemote:
		return unmarshalKind[UpgradeRemoteKind](env.Kind)
	case LabelTransfer:
		return unmarshalKind[TransferKind](env.Kind)
	case LabelSetStakingContract:
		return unmarshalKind[SetStakingContractKind](env.Kind)
	case LabelAddBounty:
		return unmarshalKind[AddBountyKind](env.Kind)
	case LabelBountyDone:
		return unmarshalKind[BountyDoneKind](env.Kind)
	case LabelVote:
		return unmarshalKind[VoteKind](env.Kind)
	default:
		err = ErrUnsupportedKind
	}
	return
}

func MarshalKind(kind ProposalKind) (dat []byte, err error) {
	body, err := json.Marshal(kind)
	if err != nil {
		return
	}
	return json.Marshal(kindEnvelope{Label: kind.Label(), Kind: body})
}

// VoteCounts index by Vote: approve, reject, remove.
type VoteCount [3]*big.Int

func NewVoteCount() *VoteCount {
	return &VoteCount{big.NewInt(0), big.NewInt(0), big.NewInt(0)}
}

// Total is the weight cast across all three choices.
func (c *VoteCount) Total() *big.Int {
	t := new(big.Int).Add(c[0], c[1])
	return t.Add(t, c[2])
}

type Proposal struct {
	ID             uint64                `json:"id"`
	Proposer       string                `json:"proposer"`
	Description    string                `json:"description"`
	Kind           ProposalKind          `json:"-"`
	Status         ProposalStatus        `json:"status"`
	SubmissionTime uint64                `json:"submission_time"`
	// Bond is the amount locked at submission; settled when the proposal
	// reaches a terminal status.
	Bond  *big.Int              `json:"bond"`
	Votes map[string]VoteRecord `json:"votes"`
	// Per-role accumulated vote weight; kept current on every (re)vote.
	VoteCounts map[string]*VoteCount `json:"vote_counts"`
}

type proposalSt struct {
	ID             uint64                `json:"id"`
	Proposer       string                `json:"proposer"`
	Description    string                `json:"description"`
	Kind           json.RawMessage       `json:"kind"`
	Status         ProposalStatus        `json:"status"`
	SubmissionTime uint64                `json:"submission_time"`
	Bond           *big.Int              `json:"bond"`
	Votes          map[string]VoteRecord `json:"votes"`
	VoteCounts     map[string]*VoteCount `json:"vote_counts"`
}

func (p *Proposal) MarshalJSON() (dat []byte, err error) {
	kind, err := MarshalKind(p.Kind)
	if err != nil {
		return
	}
	o := proposalSt{
		ID:             p.ID,
		Proposer:       p.Proposer,
		Description:    p.Description,
		Kind:           kind,
		Status:         p.Status,
		SubmissionTime: p.SubmissionTime,
		Bond:           p.Bond,
		Votes:          p.Votes,
		VoteCounts:     p.VoteCounts,
	}
	return json.Marshal(o)
}

func (p *Proposal) UnmarshalJSON(dat []byte) (err error) {
	var o proposalSt
	if err = json.Unmarshal(dat, &o); err != nil {
		return
	}
	kind, err := UnmarshalKind(o.Kind)
	if err != nil {
		return
	}
	p.ID = o.ID
	p.Proposer = o.Proposer
	p.Description = o.Description
	p.Kind = kind
	p.Status = o.Status
	p.SubmissionTime = o.SubmissionTime
	p.Bond = o.Bond
	p.Votes = o.Votes
	p.VoteCounts = o.VoteCounts
	return
}

func (p *Proposal) Clone() *Proposal {
	dat, _ := json.Marshal(p)
	n := new(Proposal)
	_ = json.Unmarshal(dat, n)
	return n
}

// UpdateVote records the actor's vote, replacing any earlier one. The
// previous contribution is subtracted role by role, so a second vote
// overwrites and never double counts.
func (p *Proposal) UpdateVote(actor string, roles []string, choice Vote, weight *big.Int) {
	if p.Votes == nil {
		p.Votes = make(map[string]VoteRecord)
	}
	if p.VoteCounts == nil {
		p.VoteCounts = make(map[string]*VoteCount)
	}
	if prev, ok := p.Votes[actor]; ok {
		for _, role := range prev.Roles {
			if c, ok := p.VoteCounts[role]; ok {
				c[prev.Choice].Sub(c[prev.Choice], prev.Weight)
			}
		}
	}
	for _, role := range roles {
		c, ok := p.VoteCounts[role]
		if !ok {
			c = NewVoteCount()
			p.VoteCounts[role] = c
		}
		c[choice].Add(c[choice], weight)
	}
	p.Votes[actor] = VoteRecord{
		Choice: choice,
		Weight: new(big.Int).Set(weight),
		Roles:  append([]string(nil), roles...),
	}
}

// RoleVoteCount returns the number of distinct voters of the role who cast
// the given choice; fixed-count thresholds use raw counts, not weight.
func (p *Proposal) RoleVoteCount(role string, choice Vote) (n uint64) {
	for _, rec := range p.Votes {
		if rec.Choice != choice {
			continue
		}
		for _, r := range rec.Roles {
			if r == role {
				n++
				break
			}
		}
	}
	return
}
