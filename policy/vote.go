package policy

import (
	"errors"
	"math/big"

	"github.com/helixdao/dao-app/types"
)

type WeightKind string

const (
	// RoleWeight counts one unit per qualifying role member.
	RoleWeight WeightKind = "role_weight"
	// TokenWeight counts the voter's ledger balance at tally time.
	TokenWeight WeightKind = "token_weight"
)

// Threshold is either a ratio of the total eligible weight or a fixed raw
// vote count; exactly one side is set.
type Threshold struct {
	Ratio      *[2]uint64 `json:"ratio,omitempty"`
	FixedCount *uint64    `json:"fixed_count,omitempty"`
}

func RatioThreshold(num, den uint64) Threshold {
	return Threshold{Ratio: &[2]uint64{num, den}}
}

func FixedCountThreshold(count uint64) Threshold {
	c := count
	return Threshold{FixedCount: &c}
}

type VotePolicy struct {
	WeightKind WeightKind `json:"weight_kind"`
	// Quorum is the minimum total cast weight before any outcome resolves.
	Quorum    *big.Int  `json:"quorum,omitempty"`
	Threshold Threshold `json:"threshold"`
}

func DefaultVotePolicy() VotePolicy {
	return VotePolicy{
		WeightKind: RoleWeight,
		Threshold:  RatioThreshold(1, 2),
	}
}

func (vp VotePolicy) Validate() error {
	if vp.WeightKind != RoleWeight && vp.WeightKind != TokenWeight {
		return errors.New("vote policy weight kind invalid")
	}
	if (vp.Threshold.Ratio == nil) == (vp.Threshold.FixedCount == nil) {
		return errors.New("vote policy threshold must set exactly one of ratio, fixed count")
	}
	if r := vp.Threshold.Ratio; r != nil && (r[1] == 0 || r[0] > r[1]) {
		return errors.New("vote policy ratio invalid")
	}
	return nil
}

// satisfied checks one side of the tally. Ratio thresholds are measured
// against the total eligible weight, not just cast weight; fixed counts
// against the raw number of votes on that side.
func (vp VotePolicy) satisfied(p *types.Proposal, role string, counts *types.VoteCount, choice types.Vote, totalWeight *big.Int) bool {
	if r := vp.Threshold.Ratio; r != nil {
		// weight * den >= num * total
		lhs := new(big.Int).Mul(counts[choice], new(big.Int).SetUint64(r[1]))
		rhs := new(big.Int).Mul(totalWeight, new(big.Int).SetUint64(r[0]))
		if totalWeight.Sign() == 0 {
			return false
		}
		return lhs.Cmp(rhs) >= 0
	}
	return p.RoleVoteCount(role, choice) >= *vp.Threshold.FixedCount
}

// ProposalStatus re-tallies the proposal against every role that may vote
// on its kind. Reject and Remove are checked before Approve so that
// rejection wins if both thresholds are somehow satisfied at once.
func (p *Policy) ProposalStatus(proposal *types.Proposal, totalSupply *big.Int) types.ProposalStatus {
	label := proposal.Kind.Label()
	for i := range p.Roles {
		r := &p.Roles[i]
		if !r.permitsAnyVote(label) {
			continue
		}
		vp, ok := r.VotePolicy[label]
		if !ok {
			vp = p.DefaultVotePolicy
		}
		counts, ok := proposal.VoteCounts[r.Name]
		if !ok {
			counts = types.NewVoteCount()
		}
		if vp.Quorum != nil && counts.Total().Cmp(vp.Quorum) < 0 {
			continue
		}
		// Group roles under role weight tally against the group size; every
		// other combination tallies against the ledger's total supply.
		totalWeight := totalSupply
		if vp.WeightKind == RoleWeight && r.Kind.IsGroup() {
			totalWeight = big.NewInt(int64(r.Kind.GroupLen()))
		}
		switch {
		case vp.satisfied(proposal, r.Name, counts, types.VoteReject, totalWeight):
			return types.ProposalStatusRejected
		case vp.satisfied(proposal, r.Name, counts, types.VoteRemove, totalWeight):
			return types.ProposalStatusRemoved
		case vp.satisfied(proposal, r.Name, counts, types.VoteApprove, totalWeight):
			return types.ProposalStatusApproved
		}
	}
	return types.ProposalStatusInProgress
}
