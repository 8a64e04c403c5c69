package dao

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/helixdao/dao-app/policy"
	"github.com/helixdao/dao-app/types"
)

type ProposalInput struct {
	Description string
	Kind        types.ProposalKind
}

// AddProposal locks the attached bond, checks the proposer's permission for
// the kind and opens a new in-progress proposal under the next id.
func (d *DAO) AddProposal(actor string, bond *big.Int, input ProposalInput) (id uint64, err error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.addProposal(actor, bond, input)
}

func (d *DAO) addProposal(actor string, bond *big.Int, input ProposalInput) (id uint64, err error) {
	if input.Kind == nil {
		return 0, types.ErrUnsupportedKind
	}
	if bond == nil || bond.Cmp(d.config.ProposalBond) < 0 {
		return 0, ErrInsufficientBond
	}
	label := input.Kind.Label()
	if k, ok := input.Kind.(*types.AddBountyKind); ok {
		if err = k.Bounty.Validate(); err != nil {
			return
		}
	}
	if _, _, err = d.policy.Authorize(actor, label, types.ActionAddProposal, d.balanceOf); err != nil {
		return
	}
	if err = d.custody.Lock(actor, bond); err != nil {
		return
	}
	id = d.lastProposalID + 1
	p := &types.Proposal{
		ID:             id,
		Proposer:       actor,
		Description:    input.Description,
		Kind:           input.Kind,
		Status:         types.ProposalStatusInProgress,
		SubmissionTime: d.clock.Now(),
		Bond:           new(big.Int).Set(bond),
		Votes:          make(map[string]types.VoteRecord),
		VoteCounts:     make(map[string]*types.VoteCount),
	}
	if err = d.store.SaveProposal(p); err == nil {
		err = d.store.SetLastProposalID(id)
	}
	if err == nil {
		_, err = d.store.Commit()
	}
	if err != nil {
		d.store.Rollback()
		if rerr := d.custody.Release(actor, bond); rerr != nil {
			d.logger.Error("bond release after failed submit", "err", rerr)
		}
		return 0, err
	}
	d.lastProposalID = id
	d.proposals[id] = p
	d.logger.Info("proposal added", "id", id, "proposer", actor, "kind", label)
	d.publish(types.EventProposal{
		ProposalID:     id,
		Proposer:       actor,
		Label:          label,
		Description:    input.Description,
		Status:         uint64(p.Status),
		SubmissionTime: p.SubmissionTime,
	})
	return
}

// ActProposal applies one action against a proposal and returns the status
// after the action took effect.
func (d *DAO) ActProposal(actor string, id uint64, action types.Action) (status types.ProposalStatus, err error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	p, err := d.getProposal(id)
	if err != nil {
		return
	}
	switch action {
	case types.ActionVoteApprove, types.ActionVoteReject, types.ActionVoteRemove:
		return d.vote(actor, p, action)
	case types.ActionFinalize:
		return d.finalize(actor, p)
	case types.ActionRemoveProposal:
		return d.removeProposal(actor, p)
	case types.ActionMoveToHub:
		return d.moveToHub(actor, p)
	default:
		return p.Status, ErrActionNotSupported
	}
}

func (d *DAO) votingOpen(p *types.Proposal, now uint64) bool {
	return now < p.SubmissionTime+d.config.ProposalPeriod
}

func (d *DAO) vote(actor string, p *types.Proposal, action types.Action) (status types.ProposalStatus, err error) {
	status = p.Status
	if p.Status.Terminal() {
		return status, ErrProposalNotActive
	}
	now := d.clock.Now()
	if !d.votingOpen(p, now) {
		return status, ErrProposalExpired
	}
	label := p.Kind.Label()
	roles, vp, err := d.policy.Authorize(actor, label, action, d.balanceOf)
	if err != nil {
		return
	}
	choice, _ := types.VoteFromAction(action)
	weight := big.NewInt(1)
	if vp.WeightKind == policy.TokenWeight {
		weight = d.balanceOf(actor)
	}
	if weight.Sign() < 0 {
		return status, ErrAccountingCorruption
	}

	next := p.Clone()
	next.UpdateVote(actor, roles, choice, weight)
	tallied := d.policy.ProposalStatus(next, d.ledger.TotalSupply())

	var apply []func()
	if tallied != types.ProposalStatusInProgress {
		next.Status = tallied
		if tallied == types.ProposalStatusApproved {
			apply, err = d.executeApproved(next)
			if err != nil {
				// Internal effect failure: the decision stands, the effect
				// does not. Recorded as Failed, bond still returned.
				d.logger.Error("proposal execution fail", "id", next.ID, "err", err)
				d.store.Rollback()
				next.Status = types.ProposalStatusFailed
				apply = nil
			}
		}
	}

	if err = d.store.SaveProposal(next); err == nil {
		_, err = d.store.Commit()
	}
	if err != nil {
		d.store.Rollback()
		return p.Status, err
	}
	// Funds move only once the decision is durable; a failed commit above
	// leaves both the proposal and the ledger untouched.
	for _, fn := range apply {
		fn()
	}
	if next.Status.Terminal() {
		d.settleBond(next)
	}
	d.proposals[next.ID] = next
	d.publish(types.EventVote{
		ProposalID: next.ID,
		Voter:      actor,
		Choice:     uint64(choice),
		Status:     uint64(next.Status),
	})
	if next.Status != p.Status {
		d.logger.Info("proposal settled", "id", next.ID, "status", next.Status.String())
	}
	return next.Status, nil
}

// finalize expires a proposal whose voting period elapsed. Callable by
// anyone; terminal proposals report AlreadyFinalized.
func (d *DAO) finalize(actor string, p *types.Proposal) (status types.ProposalStatus, err error) {
	status = p.Status
	if p.Status.Terminal() {
		return status, ErrAlreadyFinalized
	}
	if d.votingOpen(p, d.clock.Now()) {
		return status, ErrVotePeriodNotOver
	}
	next := p.Clone()
	next.Status = types.ProposalStatusExpired
	if err = d.store.SaveProposal(next); err == nil {
		_, err = d.store.Commit()
	}
	if err != nil {
		d.store.Rollback()
		return p.Status, err
	}
	d.settleBond(next)
	d.proposals[next.ID] = next
	d.logger.Info("proposal expired", "id", next.ID, "by", actor)
	d.publish(types.EventProposal{
		ProposalID:     next.ID,
		Proposer:       next.Proposer,
		Label:          next.Kind.Label(),
		Description:    next.Description,
		Status:         uint64(next.Status),
		SubmissionTime: next.SubmissionTime,
	})
	return next.Status, nil
}

func (d *DAO) removeProposal(actor string, p *types.Proposal) (status types.ProposalStatus, err error) {
	status = p.Status
	if p.Status.Terminal() {
		return status, ErrProposalNotActive
	}
	if actor != p.Proposer {
		if _, _, err = d.policy.Authorize(actor, p.Kind.Label(), types.ActionRemoveProposal, d.balanceOf); err != nil {
			return
		}
	}
	return d.forceTransition(actor, p, types.ProposalStatusRemoved)
}

func (d *DAO) moveToHub(actor string, p *types.Proposal) (status types.ProposalStatus, err error) {
	status = p.Status
	if p.Status.Terminal() {
		return status, ErrProposalNotActive
	}
	if _, _, err = d.policy.Authorize(actor, p.Kind.Label(), types.ActionMoveToHub, d.balanceOf); err != nil {
		return
	}
	return d.forceTransition(actor, p, types.ProposalStatusMoved)
}

func (d *DAO) forceTransition(actor string, p *types.Proposal, to types.ProposalStatus) (status types.ProposalStatus, err error) {
	next := p.Clone()
	next.Status = to
	if err = d.store.SaveProposal(next); err == nil {
		_, err = d.store.Commit()
	}
	if err != nil {
		d.store.Rollback()
		return p.Status, err
	}
	d.settleBond(next)
	d.proposals[next.ID] = next
	d.logger.Info("proposal transitioned", "id", next.ID, "status", to.String(), "by", actor)
	d.publish(types.EventProposal{
		ProposalID:     next.ID,
		Proposer:       next.Proposer,
		Label:          next.Kind.Label(),
		Description:    next.Description,
		Status:         uint64(next.Status),
		SubmissionTime: next.SubmissionTime,
	})
	return next.Status, nil
}

// settleBond releases or burns the proposer's bond for a terminal status.
// Rejected and Expired forfeit the bond when the config says so. Runs only
// after the terminal status is committed, so a failed commit never settles.
func (d *DAO) settleBond(p *types.Proposal) {
	if p.Bond == nil || p.Bond.Sign() == 0 {
		return
	}
	var err error
	switch p.Status {
	case types.ProposalStatusRejected, types.ProposalStatusExpired:
		if d.config.BurnBondOnFail {
			err = d.custody.Burn(p.Bond)
		} else {
			err = d.custody.Release(p.Proposer, p.Bond)
		}
	default:
		err = d.custody.Release(p.Proposer, p.Bond)
	}
	if err != nil {
		d.logger.Error("bond settle fail", "proposal", p.ID, "status", p.Status.String(), "err", err)
	}
}

// executeApproved applies the kind's side effect. Store writes stay
// uncommitted until the caller commits; in-memory swaps are returned as
// closures to run only after a successful commit.
func (d *DAO) executeApproved(p *types.Proposal) (apply []func(), err error) {
	switch kind := p.Kind.(type) {
	case *types.ChangeConfigKind:
		cfg := kind.Config
		if err = cfg.Validate(); err != nil {
			return
		}
		if err = d.store.SaveConfig(&cfg); err != nil {
			return
		}
		apply = append(apply, func() { d.config = &cfg })
	case *types.ChangePolicyKind:
		var vp policy.VersionedPolicy
		if err = json.Unmarshal(kind.Policy, &vp); err != nil {
			return
		}
		var pol *policy.Policy
		if pol, err = vp.Upgrade(); err != nil {
			return
		}
		if err = pol.Validate(); err != nil {
			return
		}
		if err = d.store.SavePolicy(pol); err != nil {
			return
		}
		apply = append(apply, func() { d.policy = pol })
	case *types.AddMemberToRoleKind:
		pol := d.policy.Clone()
		if err = pol.AddMemberToRole(kind.Role, kind.MemberID); err != nil {
			return
		}
		if err = d.store.SavePolicy(pol); err != nil {
			return
		}
		apply = append(apply, func() { d.policy = pol })
	case *types.RemoveMemberFromRoleKind:
		pol := d.policy.Clone()
		if err = pol.RemoveMemberFromRole(kind.Role, kind.MemberID); err != nil {
			return
		}
		if err = d.store.SavePolicy(pol); err != nil {
			return
		}
		apply = append(apply, func() { d.policy = pol })
	case *types.TransferKind:
		transfer := kind
		apply = append(apply, func() {
			d.dispatchTransfer(p.ID, transfer.TokenID, transfer.ReceiverID, transfer.Amount, transfer.Msg)
		})
	case *types.FunctionCallKind:
		// Host-executed call; the engine only records the intent.
		d.logger.Info("function call intent", "proposal", p.ID, "receiver", kind.ReceiverID, "actions", len(kind.Actions))
	case *types.UpgradeSelfKind:
		d.logger.Info("upgrade intent", "proposal", p.ID, "hash", kind.Hash)
	case *types.UpgradeRemoteKind:
		d.logger.Info("remote upgrade intent", "proposal", p.ID, "receiver", kind.ReceiverID, "hash", kind.Hash)
	case *types.SetStakingContractKind:
		if d.stakingContract != "" {
			return nil, ErrStakingContractSet
		}
		if err = d.store.SetStakingContract(kind.StakingID); err != nil {
			return
		}
		staking := kind.StakingID
		apply = append(apply, func() { d.stakingContract = staking })
	case *types.AddBountyKind:
		b := kind.Bounty
		if err = b.Validate(); err != nil {
			return
		}
		b.ID = d.lastBountyID + 1
		if err = d.store.SaveBounty(&b); err != nil {
			return
		}
		if err = d.store.SetLastBountyID(b.ID); err != nil {
			return
		}
		apply = append(apply, func() {
			d.lastBountyID = b.ID
			d.bounties[b.ID] = &b
			d.publish(types.EventBounty{
				BountyID: b.ID,
				Token:    b.Token,
				Amount:   b.Amount.String(),
				Times:    b.Times,
			})
		})
	case *types.BountyDoneKind:
		return d.executeBountyDone(p, kind)
	case *types.VoteKind:
		// Poll; no effect.
	default:
		return nil, types.ErrUnsupportedKind
	}
	return
}

func (d *DAO) executeBountyDone(p *types.Proposal, kind *types.BountyDoneKind) (apply []func(), err error) {
	b, err := d.getBounty(kind.BountyID)
	if err != nil {
		return
	}
	payout := *b
	apply = append(apply, func() {
		d.dispatchTransfer(p.ID, payout.Token, kind.ReceiverID, payout.Amount, fmt.Sprintf("bounty %v payout", payout.ID))
	})
	remaining := *b
	remaining.Times--
	if remaining.Times == 0 {
		if err = d.store.DeleteBounty(b.ID); err != nil {
			return
		}
		apply = append(apply, func() {
			delete(d.bounties, remaining.ID)
			d.publish(types.EventBounty{
				BountyID: remaining.ID,
				Token:    remaining.Token,
				Amount:   remaining.Amount.String(),
				Times:    0,
			})
		})
		return
	}
	if err = d.store.SaveBounty(&remaining); err != nil {
		return
	}
	apply = append(apply, func() {
		d.bounties[remaining.ID] = &remaining
		d.publish(types.EventBounty{
			BountyID: remaining.ID,
			Token:    remaining.Token,
			Amount:   remaining.Amount.String(),
			Times:    remaining.Times,
		})
	})
	return
}

// dispatchTransfer requests a payout from the ledger. The engine does not
// roll back an approved proposal when the transfer later fails; the failure
// is surfaced in the log and the intent event.
func (d *DAO) dispatchTransfer(proposalID uint64, token, receiver string, amount *big.Int, memo string) {
	if err := d.ledger.Transfer(token, receiver, amount); err != nil {
		d.logger.Error("transfer dispatch fail", "proposal", proposalID, "receiver", receiver, "err", err)
	}
	d.publish(types.EventTransferIntent{
		ProposalID: proposalID,
		Token:      token,
		Receiver:   receiver,
		Amount:     amount.String(),
		Memo:       memo,
	})
}
