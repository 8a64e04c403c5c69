package policy

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helixdao/dao-app/types"
)

func balances(m map[string]int64) BalanceFn {
	return func(account string) *big.Int {
		return big.NewInt(m[account])
	}
}

func TestDefaultPolicyAuthorize(t *testing.T) {
	pol := DefaultPolicy([]string{"alice", "bob"})
	require.NoError(t, pol.Validate())

	// Anyone may submit.
	roles, _, err := pol.Authorize("stranger", types.LabelVote, types.ActionAddProposal, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"all"}, roles)

	// Only the council votes.
	_, _, err = pol.Authorize("stranger", types.LabelVote, types.ActionVoteApprove, nil)
	require.ErrorIs(t, err, ErrPermissionDenied)

	roles, _, err = pol.Authorize("alice", types.LabelVote, types.ActionVoteApprove, nil)
	require.NoError(t, err)
	require.Contains(t, roles, "council")
}

func TestAuthorizeRoleUnionAndFirstOverride(t *testing.T) {
	strict := VotePolicy{WeightKind: RoleWeight, Threshold: RatioThreshold(2, 3)}
	pol := &Policy{
		Roles: []Role{
			{
				Name:        "reviewers",
				Kind:        RoleKind{Group: []string{"alice"}},
				Permissions: []string{"transfer:Vote*"},
				VotePolicy:  map[string]VotePolicy{types.LabelTransfer: strict},
			},
			{
				Name:        "council",
				Kind:        RoleKind{Group: []string{"alice", "bob"}},
				Permissions: []string{"*:*"},
				VotePolicy: map[string]VotePolicy{
					types.LabelTransfer: {WeightKind: RoleWeight, Threshold: RatioThreshold(1, 2)},
				},
			},
		},
		DefaultVotePolicy: DefaultVotePolicy(),
	}
	require.NoError(t, pol.Validate())

	roles, vp, err := pol.Authorize("alice", types.LabelTransfer, types.ActionVoteApprove, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"reviewers", "council"}, roles)
	// First matching role's override governs.
	require.Equal(t, strict, vp)

	_, vp, err = pol.Authorize("bob", types.LabelTransfer, types.ActionVoteApprove, nil)
	require.NoError(t, err)
	require.Equal(t, RatioThreshold(1, 2), vp.Threshold)
}

func TestAuthorizeMemberWeightRole(t *testing.T) {
	pol := &Policy{
		Roles: []Role{{
			Name:        "holders",
			Kind:        RoleKind{Member: big.NewInt(100)},
			Permissions: []string{"*:*"},
		}},
		DefaultVotePolicy: DefaultVotePolicy(),
	}
	bal := balances(map[string]int64{"rich": 500, "poor": 10})

	_, _, err := pol.Authorize("rich", types.LabelVote, types.ActionVoteApprove, bal)
	require.NoError(t, err)

	_, _, err = pol.Authorize("poor", types.LabelVote, types.ActionVoteApprove, bal)
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestPermissionPatterns(t *testing.T) {
	r := Role{Permissions: []string{"add_*:AddProposal", "vote:Vote*"}}

	require.True(t, r.Permits(types.LabelAddBounty, types.ActionAddProposal))
	require.True(t, r.Permits(types.LabelAddMemberToRole, types.ActionAddProposal))
	require.False(t, r.Permits(types.LabelTransfer, types.ActionAddProposal))

	require.True(t, r.Permits(types.LabelVote, types.ActionVoteReject))
	require.False(t, r.Permits(types.LabelVote, types.ActionFinalize))
}

func TestAddRemoveMember(t *testing.T) {
	pol := DefaultPolicy([]string{"alice"})

	require.NoError(t, pol.AddMemberToRole("council", "bob"))
	// Idempotent.
	require.NoError(t, pol.AddMemberToRole("council", "bob"))
	require.Equal(t, []string{"alice", "bob"}, pol.Role("council").Kind.Group)

	require.NoError(t, pol.RemoveMemberFromRole("council", "alice"))
	require.Equal(t, []string{"bob"}, pol.Role("council").Kind.Group)

	require.ErrorIs(t, pol.AddMemberToRole("nope", "bob"), ErrRoleNotFound)
	require.ErrorIs(t, pol.AddMemberToRole("all", "bob"), ErrRoleNotGroup)
}

func TestVersionedPolicyUpgrade(t *testing.T) {
	v := VersionedPolicy{Council: []string{"alice"}}
	pol, err := v.Upgrade()
	require.NoError(t, err)
	require.NotNil(t, pol.Role("council"))

	_, err = VersionedPolicy{Version: 9}.Upgrade()
	require.ErrorIs(t, err, ErrUnsupportedPolicyVersion)
}

func TestPolicyValidate(t *testing.T) {
	pol := DefaultPolicy([]string{"alice"})
	pol.Roles = append(pol.Roles, Role{Name: "all"})
	require.Error(t, pol.Validate())

	bad := &Policy{
		Roles: []Role{{Name: "r", Permissions: []string{"*:*"}}},
		DefaultVotePolicy: VotePolicy{
			WeightKind: RoleWeight,
			Threshold:  Threshold{},
		},
	}
	require.Error(t, bad.Validate())
}
