package policy

import (
	"fmt"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helixdao/dao-app/types"
)

func newPollProposal() *types.Proposal {
	return &types.Proposal{
		ID:         1,
		Kind:       &types.VoteKind{},
		Status:     types.ProposalStatusInProgress,
		Votes:      make(map[string]types.VoteRecord),
		VoteCounts: make(map[string]*types.VoteCount),
	}
}

func castVote(p *types.Proposal, pol *Policy, actor string, choice types.Vote, weight int64) {
	roles, _, err := pol.Authorize(actor, p.Kind.Label(), types.ActionVoteApprove, nil)
	if err != nil {
		panic(err)
	}
	p.UpdateVote(actor, roles, choice, big.NewInt(weight))
}

func TestRatioAgainstFullElectorate(t *testing.T) {
	pol := DefaultPolicy([]string{"a", "b", "c"})
	p := newPollProposal()
	supply := big.NewInt(0)

	castVote(p, pol, "a", types.VoteApprove, 1)
	require.Equal(t, types.ProposalStatusInProgress, pol.ProposalStatus(p, supply))

	// 2 of 3 members: 2*2 >= 1*3.
	castVote(p, pol, "b", types.VoteApprove, 1)
	require.Equal(t, types.ProposalStatusApproved, pol.ProposalStatus(p, supply))
}

func TestRejectThreshold(t *testing.T) {
	pol := DefaultPolicy([]string{"a", "b", "c"})
	p := newPollProposal()

	castVote(p, pol, "a", types.VoteReject, 1)
	castVote(p, pol, "b", types.VoteReject, 1)
	require.Equal(t, types.ProposalStatusRejected, pol.ProposalStatus(p, big.NewInt(0)))
}

func TestRemoveThreshold(t *testing.T) {
	pol := DefaultPolicy([]string{"a", "b"})
	p := newPollProposal()

	castVote(p, pol, "a", types.VoteRemove, 1)
	require.Equal(t, types.ProposalStatusRemoved, pol.ProposalStatus(p, big.NewInt(0)))
}

// With a 1/2 ratio over a two-member group a single approve and a single
// reject satisfy both thresholds at once; rejection must win.
func TestRejectWinsOnSimultaneousSatisfaction(t *testing.T) {
	pol := DefaultPolicy([]string{"a", "b"})
	p := newPollProposal()

	castVote(p, pol, "a", types.VoteApprove, 1)
	castVote(p, pol, "b", types.VoteReject, 1)
	require.Equal(t, types.ProposalStatusRejected, pol.ProposalStatus(p, big.NewInt(0)))
}

func TestQuorumGatesOutcome(t *testing.T) {
	pol := DefaultPolicy([]string{"a", "b", "c", "d"})
	vp := DefaultVotePolicy()
	vp.Quorum = big.NewInt(3)
	pol.Roles[1].VotePolicy = map[string]VotePolicy{types.LabelVote: vp}
	p := newPollProposal()

	// 2 of 4 approvals meet the 1/2 ratio but not the quorum.
	castVote(p, pol, "a", types.VoteApprove, 1)
	castVote(p, pol, "b", types.VoteApprove, 1)
	require.Equal(t, types.ProposalStatusInProgress, pol.ProposalStatus(p, big.NewInt(0)))

	castVote(p, pol, "c", types.VoteApprove, 1)
	require.Equal(t, types.ProposalStatusApproved, pol.ProposalStatus(p, big.NewInt(0)))
}

func TestFixedCountThreshold(t *testing.T) {
	pol := DefaultPolicy([]string{"a", "b", "c", "d", "e"})
	vp := DefaultVotePolicy()
	vp.Threshold = FixedCountThreshold(2)
	pol.Roles[1].VotePolicy = map[string]VotePolicy{types.LabelVote: vp}
	p := newPollProposal()

	castVote(p, pol, "a", types.VoteApprove, 1)
	require.Equal(t, types.ProposalStatusInProgress, pol.ProposalStatus(p, big.NewInt(0)))

	castVote(p, pol, "b", types.VoteApprove, 1)
	require.Equal(t, types.ProposalStatusApproved, pol.ProposalStatus(p, big.NewInt(0)))
}

func TestTokenWeightAgainstTotalSupply(t *testing.T) {
	vp := VotePolicy{WeightKind: TokenWeight, Threshold: RatioThreshold(1, 2)}
	pol := &Policy{
		Roles: []Role{{
			Name:        "holders",
			Kind:        RoleKind{Everyone: true},
			Permissions: []string{"*:*"},
		}},
		DefaultVotePolicy: vp,
	}
	supply := big.NewInt(1000)
	p := newPollProposal()

	castVote(p, pol, "whale", types.VoteApprove, 499)
	require.Equal(t, types.ProposalStatusInProgress, pol.ProposalStatus(p, supply))

	castVote(p, pol, "fish", types.VoteApprove, 1)
	require.Equal(t, types.ProposalStatusApproved, pol.ProposalStatus(p, supply))
}

func TestEmptyElectorateNeverResolves(t *testing.T) {
	pol := DefaultPolicy([]string{})
	pol.Roles[1].Kind.Group = nil
	p := newPollProposal()
	require.Equal(t, types.ProposalStatusInProgress, pol.ProposalStatus(p, big.NewInt(0)))
}

// Voters approve one by one in random order; the tally must flip to
// Approved exactly when approvals*den >= num*electorate holds.
func TestRatioFlipPoint(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, tc := range []struct{ num, den uint64 }{{1, 2}, {2, 3}, {3, 4}} {
		n := 5 + rng.Intn(10)
		members := make([]string, n)
		for i := range members {
			members[i] = fmt.Sprintf("m%d", i)
		}
		pol := DefaultPolicy(members)
		vp := DefaultVotePolicy()
		vp.Threshold = RatioThreshold(tc.num, tc.den)
		pol.Roles[1].VotePolicy = map[string]VotePolicy{types.LabelVote: vp}

		p := newPollProposal()
		order := rng.Perm(n)
		for cast, i := range order {
			castVote(p, pol, members[i], types.VoteApprove, 1)
			status := pol.ProposalStatus(p, big.NewInt(0))
			reached := uint64(cast+1)*tc.den >= tc.num*uint64(n)
			if reached {
				require.Equal(t, types.ProposalStatusApproved, status,
					"ratio %d/%d with %d of %d votes", tc.num, tc.den, cast+1, n)
				break
			}
			require.Equal(t, types.ProposalStatusInProgress, status,
				"ratio %d/%d with %d of %d votes", tc.num, tc.den, cast+1, n)
		}
	}
}
