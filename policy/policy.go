package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/helixdao/dao-app/types"
)

var (
	ErrPermissionDenied         = errors.New("permission denied")
	ErrRoleNotFound             = errors.New("role not found")
	ErrRoleNotGroup             = errors.New("role kind is not group")
	ErrUnsupportedPolicyVersion = errors.New("unsupported policy version")
)

// BalanceFn resolves an actor's weight in the external token ledger.
type BalanceFn func(account string) *big.Int

// RoleKind is the membership predicate of a role: everyone, an explicit
// group, or any holder of at least Member weight in the ledger.
type RoleKind struct {
	Everyone bool     `json:"everyone,omitempty"`
	Group    []string `json:"group,omitempty"`
	Member   *big.Int `json:"member,omitempty"`
}

func (k *RoleKind) Match(actor string, balanceOf BalanceFn) bool {
	switch {
	case k.Everyone:
		return true
	case k.Member != nil:
		if balanceOf == nil {
			return false
		}
		return balanceOf(actor).Cmp(k.Member) >= 0
	default:
		for _, member := range k.Group {
			if member == actor {
				return true
			}
		}
		return false
	}
}

// GroupLen is the electorate size for role-weight tallies; zero for
// non-group kinds.
func (k *RoleKind) GroupLen() int {
	return len(k.Group)
}

func (k *RoleKind) IsGroup() bool {
	return !k.Everyone && k.Member == nil
}

type Role struct {
	Name string   `json:"name"`
	Kind RoleKind `json:"kind"`
	// Permissions are "<kind-pattern>:<action-pattern>" grants; either side
	// may be "*" or a "prefix_*" family.
	Permissions []string `json:"permissions"`
	// VotePolicy overrides the policy default per proposal kind label.
	VotePolicy map[string]VotePolicy `json:"vote_policy,omitempty"`
}

func matchPattern(pattern, value string) bool {
	if pattern == "*" || pattern == value {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(value, prefix)
	}
	return false
}

func (r *Role) Permits(label string, action types.Action) bool {
	for _, perm := range r.Permissions {
		kindPat, actionPat, ok := strings.Cut(perm, ":")
		if !ok {
			continue
		}
		if matchPattern(kindPat, label) && matchPattern(actionPat, string(action)) {
			return true
		}
	}
	return false
}

func (r *Role) permitsAnyVote(label string) bool {
	return r.Permits(label, types.ActionVoteApprove) ||
		r.Permits(label, types.ActionVoteReject) ||
		r.Permits(label, types.ActionVoteRemove)
}

// Policy is an ordered role list plus the default vote policy. Role order
// is significant: the first matching role's vote-policy override governs.
type Policy struct {
	Roles             []Role     `json:"roles"`
	DefaultVotePolicy VotePolicy `json:"default_vote_policy"`
}

// DefaultPolicy gives every actor proposal submission and the council full
// control under simple majority.
func DefaultPolicy(council []string) *Policy {
	return &Policy{
		Roles: []Role{
			{
				Name:        "all",
				Kind:        RoleKind{Everyone: true},
				Permissions: []string{"*:AddProposal"},
			},
			{
				Name:        "council",
				Kind:        RoleKind{Group: append([]string(nil), council...)},
				Permissions: []string{"*:*"},
			},
		},
		DefaultVotePolicy: DefaultVotePolicy(),
	}
}

func (p *Policy) Validate() error {
	if len(p.Roles) == 0 {
		return errors.New("policy has no roles")
	}
	seen := make(map[string]bool, len(p.Roles))
	for i := range p.Roles {
		r := &p.Roles[i]
		if r.Name == "" {
			return errors.New("policy role name is empty")
		}
		if seen[r.Name] {
			return fmt.Errorf("policy role %q duplicated", r.Name)
		}
		seen[r.Name] = true
		if err := p.DefaultVotePolicy.Validate(); err != nil {
			return err
		}
		for label, vp := range r.VotePolicy {
			if err := vp.Validate(); err != nil {
				return fmt.Errorf("role %q vote policy for %q: %w", r.Name, label, err)
			}
		}
	}
	return nil
}

func (p *Policy) Clone() *Policy {
	dat, _ := json.Marshal(p)
	n := new(Policy)
	_ = json.Unmarshal(dat, n)
	return n
}

func (p *Policy) Role(name string) *Role {
	for i := range p.Roles {
		if p.Roles[i].Name == name {
			return &p.Roles[i]
		}
	}
	return nil
}

// Authorize resolves the actor's grant for (kind label, action). It returns
// the union of all matching roles; the vote policy comes from the first
// matching role carrying an override for the label, else the default.
func (p *Policy) Authorize(actor, label string, action types.Action, balanceOf BalanceFn) (roles []string, vp VotePolicy, err error) {
	vp = p.DefaultVotePolicy
	overridden := false
	for i := range p.Roles {
		r := &p.Roles[i]
		if !r.Kind.Match(actor, balanceOf) {
			continue
		}
		if !r.Permits(label, action) {
			continue
		}
		roles = append(roles, r.Name)
		if !overridden {
			if o, ok := r.VotePolicy[label]; ok {
				vp = o
				overridden = true
			}
		}
	}
	if len(roles) == 0 {
		err = ErrPermissionDenied
	}
	return
}

func (p *Policy) AddMemberToRole(name, member string) error {
	r := p.Role(name)
	if r == nil {
		return ErrRoleNotFound
	}
	if r.Kind.Everyone || r.Kind.Member != nil {
		return ErrRoleNotGroup
	}
	for _, m := range r.Kind.Group {
		if m == member {
			return nil
		}
	}
	r.Kind.Group = append(r.Kind.Group, member)
	return nil
}

func (p *Policy) RemoveMemberFromRole(name, member string) error {
	r := p.Role(name)
	if r == nil {
		return ErrRoleNotFound
	}
	if r.Kind.Everyone || r.Kind.Member != nil {
		return ErrRoleNotGroup
	}
	for i, m := range r.Kind.Group {
		if m == member {
			r.Kind.Group = append(r.Kind.Group[:i], r.Kind.Group[i+1:]...)
			return nil
		}
	}
	return nil
}

// VersionedPolicy wraps Policy for storage; Upgrade converts older variants
// to the latest exactly once at load time.
type VersionedPolicy struct {
	Version uint32  `json:"version"`
	V1      *Policy `json:"v1,omitempty"`
	// Council shorthand expands to DefaultPolicy on upgrade.
	Council []string `json:"council,omitempty"`
}

func NewVersionedPolicy(p *Policy) VersionedPolicy {
	return VersionedPolicy{Version: 1, V1: p}
}

func (v VersionedPolicy) Upgrade() (*Policy, error) {
	switch v.Version {
	case 0:
		if len(v.Council) == 0 {
			return nil, ErrUnsupportedPolicyVersion
		}
		return DefaultPolicy(v.Council), nil
	case 1:
		if v.V1 == nil {
			return nil, ErrUnsupportedPolicyVersion
		}
		return v.V1, nil
	default:
		return nil, ErrUnsupportedPolicyVersion
	}
}
