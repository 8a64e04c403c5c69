package dao_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helixdao/dao-app/dao"
	"github.com/helixdao/dao-app/policy"
	"github.com/helixdao/dao-app/types"
)

func (f *fixture) createBounty(t *testing.T, times, maxDeadline uint64) uint64 {
	t.Helper()
	id := f.submit(t, "a", &types.AddBountyKind{Bounty: types.Bounty{
		Description: "do the work",
		Amount:      big.NewInt(5),
		Times:       times,
		MaxDeadline: maxDeadline,
	}})
	f.approve(t, id)
	bountyID := f.d.LastBountyID()
	require.NotZero(t, bountyID)
	return bountyID
}

func TestBountySlotLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	id := f.createBounty(t, 1, 100)

	require.NoError(t, f.d.ClaimBounty("x", id, 50))
	require.Equal(t, uint64(1), f.d.BountyNumberOfClaims(id))
	require.Equal(t, "49", f.ledger.BalanceOf("x").String())

	// The single slot is taken.
	require.ErrorIs(t, f.d.ClaimBounty("y", id, 50), dao.ErrNoSlotsAvailable)

	// Once x's deadline passes the slot frees itself without any sweep.
	f.clock.now += 51
	require.Equal(t, uint64(0), f.d.BountyNumberOfClaims(id))
	require.NoError(t, f.d.ClaimBounty("y", id, 50))
	require.Equal(t, uint64(1), f.d.BountyNumberOfClaims(id))
}

func TestClaimValidation(t *testing.T) {
	f := newFixture(t, nil)
	id := f.createBounty(t, 2, 100)

	require.ErrorIs(t, f.d.ClaimBounty("x", id, 101), dao.ErrDeadlineTooLong)
	require.ErrorIs(t, f.d.ClaimBounty("x", id+1, 10), dao.ErrBountyNotFound)
}

func TestMaxClaimsPerAccount(t *testing.T) {
	f := newFixture(t, func(cfg *types.Config, pol *policy.Policy) {
		cfg.MaxBountyClaimsPerAccount = 1
	})
	id := f.createBounty(t, 2, 100)

	require.NoError(t, f.d.ClaimBounty("x", id, 50))
	require.ErrorIs(t, f.d.ClaimBounty("x", id, 50), dao.ErrAlreadyMaxClaims)

	// A dead claim no longer counts against the cap.
	f.clock.now += 51
	require.NoError(t, f.d.ClaimBounty("x", id, 50))
}

func TestStaleClaimPrunedOnNextClaim(t *testing.T) {
	f := newFixture(t, nil)
	id := f.createBounty(t, 2, 100)

	require.NoError(t, f.d.ClaimBounty("x", id, 30))
	f.clock.now += 31

	// The expired entry is still visible raw, but holds no slot.
	require.Len(t, f.d.BountyClaims("x"), 1)
	require.Equal(t, uint64(0), f.d.BountyNumberOfClaims(id))

	require.NoError(t, f.d.ClaimBounty("x", id, 30))
	claims := f.d.BountyClaims("x")
	require.Len(t, claims, 1)
	require.Equal(t, f.clock.now+30, claims[0].Deadline)

	var expired int
	for _, ev := range f.events.ofType(types.EventBountyClaimType) {
		if ev.(types.EventBountyClaim).Kind == types.ClaimEventExpired {
			expired++
		}
	}
	require.Equal(t, 1, expired)
}

func TestGiveupWithinForgiveness(t *testing.T) {
	f := newFixture(t, nil)
	id := f.createBounty(t, 1, f.d.GetConfig().BountyForgivenessPeriod*2)

	require.NoError(t, f.d.ClaimBounty("x", id, f.d.GetConfig().BountyForgivenessPeriod*2))
	require.Equal(t, "49", f.ledger.BalanceOf("x").String())

	f.clock.now += f.d.GetConfig().BountyForgivenessPeriod
	require.NoError(t, f.d.GiveupBounty("x", id))
	require.Equal(t, "50", f.ledger.BalanceOf("x").String())
	require.Empty(t, f.d.BountyClaims("x"))
}

func TestGiveupAfterForgivenessForfeitsBond(t *testing.T) {
	f := newFixture(t, nil)
	period := f.d.GetConfig().BountyForgivenessPeriod
	id := f.createBounty(t, 1, period*3)
	supply := f.ledger.TotalSupply()

	require.NoError(t, f.d.ClaimBounty("x", id, period*3))
	f.clock.now += period + 1
	require.NoError(t, f.d.GiveupBounty("x", id))

	require.Equal(t, "49", f.ledger.BalanceOf("x").String())
	require.Equal(t, new(big.Int).Sub(supply, big.NewInt(1)).String(), f.ledger.TotalSupply().String())

	require.ErrorIs(t, f.d.GiveupBounty("x", id), dao.ErrClaimNotFound)
}

func TestDoneBountyPaysOutOnApproval(t *testing.T) {
	f := newFixture(t, nil)
	id := f.createBounty(t, 1, 100)

	require.NoError(t, f.d.ClaimBounty("x", id, 80))
	proposalID, err := f.d.DoneBounty("x", id, big.NewInt(1))
	require.NoError(t, err)

	// Claim consumed and claim bond returned; proposal bond still locked.
	require.Empty(t, f.d.BountyClaims("x"))
	require.Equal(t, "49", f.ledger.BalanceOf("x").String())

	f.approve(t, proposalID)

	// Payout of 5 plus the returned proposal bond.
	require.Equal(t, "55", f.ledger.BalanceOf("x").String())
	require.Equal(t, "995", f.ledger.BalanceOf("org").String())

	// The last slot is spent; the bounty is gone, and its removal is
	// announced so read models drop the row too.
	_, err = f.d.GetBounty(id)
	require.ErrorIs(t, err, dao.ErrBountyNotFound)
	evs := f.events.ofType(types.EventBountyType)
	require.NotEmpty(t, evs)
	last := evs[len(evs)-1].(types.EventBounty)
	require.Equal(t, id, last.BountyID)
	require.Equal(t, uint64(0), last.Times)
}

func TestDoneBountyDecrementsTimes(t *testing.T) {
	f := newFixture(t, nil)
	id := f.createBounty(t, 2, 100)

	require.NoError(t, f.d.ClaimBounty("x", id, 80))
	proposalID, err := f.d.DoneBounty("x", id, big.NewInt(1))
	require.NoError(t, err)
	f.approve(t, proposalID)

	b, err := f.d.GetBounty(id)
	require.NoError(t, err)
	require.Equal(t, uint64(1), b.Times)

	// The consumed slot is announced with the remaining count.
	evs := f.events.ofType(types.EventBountyType)
	require.NotEmpty(t, evs)
	last := evs[len(evs)-1].(types.EventBounty)
	require.Equal(t, id, last.BountyID)
	require.Equal(t, uint64(1), last.Times)
}

func TestDoneBountyRequiresLiveClaim(t *testing.T) {
	f := newFixture(t, nil)
	id := f.createBounty(t, 1, 100)

	_, err := f.d.DoneBounty("x", id, big.NewInt(1))
	require.ErrorIs(t, err, dao.ErrClaimNotFound)

	require.NoError(t, f.d.ClaimBounty("x", id, 40))
	f.clock.now += 41
	_, err = f.d.DoneBounty("x", id, big.NewInt(1))
	require.ErrorIs(t, err, dao.ErrClaimNotFound)
}
