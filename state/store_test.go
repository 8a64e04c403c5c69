package state

import (
	"math/big"
	"testing"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/helixdao/dao-app/policy"
	"github.com/helixdao/dao-app/types"
)

func newTestStore(t *testing.T) *Store {
	s, err := NewStore(t.TempDir(), cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConfigAndPolicyRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.LoadConfig()
	require.NoError(t, err)
	require.False(t, ok)

	cfg := types.DefaultConfig("helix")
	pol := policy.DefaultPolicy([]string{"alice"})
	require.NoError(t, s.SaveConfig(cfg))
	require.NoError(t, s.SavePolicy(pol))
	_, err = s.Commit()
	require.NoError(t, err)

	got, ok, err := s.LoadConfig()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "helix", got.Name)

	gotPol, ok, err := s.LoadPolicy()
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, gotPol.Role("council"))
}

func TestProposalRoundTripKeepsKind(t *testing.T) {
	s := newTestStore(t)

	p := &types.Proposal{
		ID:       1,
		Proposer: "alice",
		Kind:     &types.TransferKind{ReceiverID: "bob", Amount: big.NewInt(42)},
		Status:   types.ProposalStatusInProgress,
		Bond:     big.NewInt(1),
	}
	p.UpdateVote("alice", []string{"council"}, types.VoteApprove, big.NewInt(1))
	require.NoError(t, s.SaveProposal(p))
	require.NoError(t, s.SetLastProposalID(1))
	_, err := s.Commit()
	require.NoError(t, err)

	got, err := s.GetProposal(1)
	require.NoError(t, err)
	kind, ok := got.Kind.(*types.TransferKind)
	require.True(t, ok)
	require.Equal(t, "bob", kind.ReceiverID)
	require.Equal(t, "42", kind.Amount.String())
	require.Equal(t, "1", got.VoteCounts["council"][types.VoteApprove].String())

	last, err := s.LastProposalID()
	require.NoError(t, err)
	require.Equal(t, uint64(1), last)

	_, err = s.GetProposal(2)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRollbackDiscardsUncommitted(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SetLastProposalID(5))
	s.Rollback()

	last, err := s.LastProposalID()
	require.NoError(t, err)
	require.Equal(t, uint64(0), last)
}

func TestClaimsPrefixScan(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveClaims("alice", []types.BountyClaim{
		{BountyID: 1, StartTime: 10, Deadline: 20},
		{BountyID: 2, StartTime: 11, Deadline: 30},
	}))
	require.NoError(t, s.SaveClaims("bob", []types.BountyClaim{
		{BountyID: 1, StartTime: 12, Deadline: 25},
	}))
	_, err := s.Commit()
	require.NoError(t, err)

	all, err := s.LoadAllClaims()
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Len(t, all["alice"], 2)
	require.Equal(t, uint64(1), all["bob"][0].BountyID)

	// Emptying a claimer removes the key entirely.
	require.NoError(t, s.SaveClaims("alice", nil))
	_, err = s.Commit()
	require.NoError(t, err)
	all, err = s.LoadAllClaims()
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestBountyDelete(t *testing.T) {
	s := newTestStore(t)

	b := &types.Bounty{ID: 1, Amount: big.NewInt(5), Times: 1, MaxDeadline: 100}
	require.NoError(t, s.SaveBounty(b))
	require.NoError(t, s.SetLastBountyID(1))
	_, err := s.Commit()
	require.NoError(t, err)

	require.NoError(t, s.DeleteBounty(1))
	_, err = s.Commit()
	require.NoError(t, err)

	_, err = s.GetBounty(1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCommitAdvancesRootHash(t *testing.T) {
	s := newTestStore(t)

	require.Equal(t, int64(0), s.Version())

	require.NoError(t, s.SaveConfig(types.DefaultConfig("helix")))
	h, err := s.Commit()
	require.NoError(t, err)
	require.NotEqual(t, common.Hash{}, h)
	require.Equal(t, h, s.Hash())
	require.Equal(t, int64(1), s.Version())

	require.NoError(t, s.SetLastProposalID(1))
	h2, err := s.Commit()
	require.NoError(t, err)
	require.NotEqual(t, h, h2)
	require.Equal(t, int64(2), s.Version())
}

func TestStakingContractRoundTrip(t *testing.T) {
	s := newTestStore(t)

	id, err := s.StakingContract()
	require.NoError(t, err)
	require.Empty(t, id)

	require.NoError(t, s.SetStakingContract("staking.pool"))
	_, err = s.Commit()
	require.NoError(t, err)

	id, err = s.StakingContract()
	require.NoError(t, err)
	require.Equal(t, "staking.pool", id)
}
