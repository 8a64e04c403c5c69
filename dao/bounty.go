package dao

import (
	"fmt"
	"math/big"

	"github.com/helixdao/dao-app/types"
)

// liveClaimCount re-evaluates slot liveness at observation time; claims
// past their deadline never count, without any background sweep.
func (d *DAO) liveClaimCount(bountyID, now uint64) (n uint64) {
	for _, list := range d.claims {
		for i := range list {
			if list[i].BountyID == bountyID && list[i].Live(now) {
				n++
			}
		}
	}
	return
}

func liveCount(list []types.BountyClaim, now uint64) (n uint64) {
	for i := range list {
		if list[i].Live(now) {
			n++
		}
	}
	return
}

// pruneDead drops the actor's expired claims and reports them, so stale
// entries disappear the next time the list is touched.
func (d *DAO) pruneDead(actor string, now uint64) (pruned []types.BountyClaim) {
	list := d.claims[actor]
	kept := list[:0]
	for i := range list {
		if list[i].Live(now) {
			kept = append(kept, list[i])
		} else {
			pruned = append(pruned, list[i])
		}
	}
	if len(pruned) == 0 {
		return
	}
	d.claims[actor] = kept
	return
}

// ClaimBounty takes one slot of the bounty for the actor until
// now+deadline, locking the bounty bond.
func (d *DAO) ClaimBounty(actor string, id uint64, deadline uint64) (err error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	b, err := d.getBounty(id)
	if err != nil {
		return
	}
	if deadline > b.MaxDeadline {
		return ErrDeadlineTooLong
	}
	now := d.clock.Now()
	if liveCount(d.claims[actor], now) >= d.config.MaxBountyClaimsPerAccount {
		return ErrAlreadyMaxClaims
	}
	if d.liveClaimCount(id, now) >= b.Times {
		return ErrNoSlotsAvailable
	}
	if err = d.custody.Lock(actor, d.config.BountyBond); err != nil {
		return
	}
	pruned := d.pruneDead(actor, now)
	claim := types.BountyClaim{
		BountyID:  id,
		StartTime: now,
		Deadline:  now + deadline,
	}
	d.claims[actor] = append(d.claims[actor], claim)
	if err = d.store.SaveClaims(actor, d.claims[actor]); err == nil {
		_, err = d.store.Commit()
	}
	if err != nil {
		d.store.Rollback()
		d.restoreClaims(actor, pruned, claim)
		if rerr := d.custody.Release(actor, d.config.BountyBond); rerr != nil {
			d.logger.Error("bond release after failed claim", "err", rerr)
		}
		return
	}
	d.logger.Info("bounty claimed", "bounty", id, "claimer", actor, "deadline", claim.Deadline)
	for _, c := range pruned {
		d.publish(types.EventBountyClaim{BountyID: c.BountyID, Claimer: actor, Deadline: c.Deadline, Kind: types.ClaimEventExpired})
	}
	d.publish(types.EventBountyClaim{BountyID: id, Claimer: actor, Deadline: claim.Deadline, Kind: types.ClaimEventClaimed})
	return
}

func (d *DAO) restoreClaims(actor string, pruned []types.BountyClaim, added types.BountyClaim) {
	list := d.claims[actor]
	for i := range list {
		if list[i] == added {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	d.claims[actor] = append(list, pruned...)
}

func (d *DAO) findClaim(actor string, bountyID uint64) int {
	for i, c := range d.claims[actor] {
		if c.BountyID == bountyID {
			return i
		}
	}
	return -1
}

// GiveupBounty voluntarily releases the actor's claim. The bond comes back
// only inside the forgiveness period; afterwards it is forfeited.
func (d *DAO) GiveupBounty(actor string, id uint64) (err error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	idx := d.findClaim(actor, id)
	if idx < 0 {
		return ErrClaimNotFound
	}
	now := d.clock.Now()
	claim := d.claims[actor][idx]
	prev := append([]types.BountyClaim(nil), d.claims[actor]...)
	d.claims[actor] = append(d.claims[actor][:idx], d.claims[actor][idx+1:]...)
	if err = d.store.SaveClaims(actor, d.claims[actor]); err == nil {
		_, err = d.store.Commit()
	}
	if err != nil {
		d.store.Rollback()
		d.claims[actor] = prev
		return
	}
	if now <= claim.StartTime+d.config.BountyForgivenessPeriod {
		if berr := d.custody.Release(actor, d.config.BountyBond); berr != nil {
			d.logger.Error("claim bond release fail", "claimer", actor, "err", berr)
		}
	} else {
		if berr := d.custody.Burn(d.config.BountyBond); berr != nil {
			d.logger.Error("claim bond burn fail", "claimer", actor, "err", berr)
		}
	}
	d.logger.Info("bounty claim released", "bounty", id, "claimer", actor)
	d.publish(types.EventBountyClaim{BountyID: id, Claimer: actor, Deadline: claim.Deadline, Kind: types.ClaimEventGivenUp})
	return
}

// DoneBounty consumes the actor's live claim and submits a bounty_done
// proposal whose approval pays the claimer out.
func (d *DAO) DoneBounty(actor string, id uint64, bond *big.Int) (proposalID uint64, err error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	idx := d.findClaim(actor, id)
	if idx < 0 {
		return 0, ErrClaimNotFound
	}
	now := d.clock.Now()
	claim := d.claims[actor][idx]
	if !claim.Live(now) {
		return 0, ErrClaimNotFound
	}
	prev := append([]types.BountyClaim(nil), d.claims[actor]...)
	d.claims[actor] = append(d.claims[actor][:idx], d.claims[actor][idx+1:]...)
	if err = d.store.SaveClaims(actor, d.claims[actor]); err != nil {
		d.store.Rollback()
		d.claims[actor] = prev
		return
	}
	proposalID, err = d.addProposal(actor, bond, ProposalInput{
		Description: fmt.Sprintf("bounty %v done by %s", id, actor),
		Kind:        &types.BountyDoneKind{BountyID: id, ReceiverID: actor},
	})
	if err != nil {
		d.store.Rollback()
		d.claims[actor] = prev
		return
	}
	// Claim bond returns with the completion; forfeiting it here would
	// punish finished work.
	if berr := d.custody.Release(actor, d.config.BountyBond); berr != nil {
		d.logger.Error("claim bond release fail", "claimer", actor, "err", berr)
	}
	d.publish(types.EventBountyClaim{BountyID: id, Claimer: actor, Deadline: claim.Deadline, Kind: types.ClaimEventCompleted})
	return
}

// BountyClaims returns the actor's raw claim list, expired entries
// included; liveness is the caller's question to ask of each claim.
func (d *DAO) BountyClaims(actor string) []types.BountyClaim {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return append([]types.BountyClaim(nil), d.claims[actor]...)
}

// BountyNumberOfClaims counts the live claims holding slots of the bounty.
func (d *DAO) BountyNumberOfClaims(id uint64) uint64 {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.liveClaimCount(id, d.clock.Now())
}
