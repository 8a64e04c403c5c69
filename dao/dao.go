package dao

import (
	"math/big"
	"sync"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"

	"github.com/helixdao/dao-app/policy"
	"github.com/helixdao/dao-app/state"
	"github.com/helixdao/dao-app/types"
)

// DAO is the governance engine: it owns the organization's config, policy,
// proposals and bounties, and applies every external action atomically
// under a single lock. It never moves funds itself; transfers are dispatched
// to the ledger collaborator and treated as fire-and-forget.
type DAO struct {
	mtx    sync.Mutex
	logger cmtlog.Logger

	store   *state.Store
	clock   Clock
	ledger  TokenLedger
	custody BondCustody
	sink    types.EventSink

	config *types.Config
	policy *policy.Policy

	lastProposalID uint64
	lastBountyID   uint64

	proposals       map[uint64]*types.Proposal
	bounties        map[uint64]*types.Bounty
	claims          map[string][]types.BountyClaim
	stakingContract string
}

type sysClock struct{}

func (sysClock) Now() uint64 { return uint64(time.Now().UnixNano()) }

// SystemClock reads the host wall clock.
func SystemClock() Clock { return sysClock{} }

// Bootstrap writes the genesis config and policy into an empty store.
func Bootstrap(store *state.Store, cfg *types.Config, pol *policy.Policy) (err error) {
	if err = cfg.Validate(); err != nil {
		return
	}
	if err = pol.Validate(); err != nil {
		return
	}
	if err = store.SaveConfig(cfg); err != nil {
		return
	}
	if err = store.SavePolicy(pol); err != nil {
		return
	}
	_, err = store.Commit()
	return
}

func New(store *state.Store, clock Clock, ledger TokenLedger, custody BondCustody, sink types.EventSink, logger cmtlog.Logger) (d *DAO, err error) {
	logger = logger.With("module", "dao")
	cfg, ok, err := store.LoadConfig()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	pol, ok, err := store.LoadPolicy()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	lastProposalID, err := store.LastProposalID()
	if err != nil {
		return nil, err
	}
	lastBountyID, err := store.LastBountyID()
	if err != nil {
		return nil, err
	}
	claims, err := store.LoadAllClaims()
	if err != nil {
		return nil, err
	}
	stakingContract, err := store.StakingContract()
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock()
	}
	d = &DAO{
		logger:          logger,
		store:           store,
		clock:           clock,
		ledger:          ledger,
		custody:         custody,
		sink:            sink,
		config:          cfg,
		policy:          pol,
		lastProposalID:  lastProposalID,
		lastBountyID:    lastBountyID,
		proposals:       make(map[uint64]*types.Proposal),
		bounties:        make(map[uint64]*types.Bounty),
		claims:          claims,
		stakingContract: stakingContract,
	}
	logger.Info("dao loaded", "name", cfg.Name, "proposals", lastProposalID, "bounties", lastBountyID)
	return
}

func (d *DAO) publish(ev types.Event) {
	if d.sink != nil {
		d.sink.Publish(ev)
	}
}

func (d *DAO) balanceOf(account string) *big.Int {
	return d.ledger.BalanceOf(account)
}

func (d *DAO) getProposal(id uint64) (p *types.Proposal, err error) {
	if id == 0 || id > d.lastProposalID {
		return nil, ErrProposalNotFound
	}
	p, ok := d.proposals[id]
	if ok {
		return
	}
	p, err = d.store.GetProposal(id)
	if err != nil {
		if err == state.ErrNotFound {
			err = ErrProposalNotFound
		}
		return nil, err
	}
	d.proposals[id] = p
	return
}

func (d *DAO) getBounty(id uint64) (b *types.Bounty, err error) {
	if id == 0 || id > d.lastBountyID {
		return nil, ErrBountyNotFound
	}
	b, ok := d.bounties[id]
	if ok {
		return
	}
	b, err = d.store.GetBounty(id)
	if err != nil {
		if err == state.ErrNotFound {
			err = ErrBountyNotFound
		}
		return nil, err
	}
	d.bounties[id] = b
	return
}

func (d *DAO) GetConfig() *types.Config {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.config.Clone()
}

func (d *DAO) GetPolicy() *policy.Policy {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.policy.Clone()
}

// StateRoot is the keccak root of the last committed store version.
func (d *DAO) StateRoot() common.Hash {
	return d.store.Hash()
}

func (d *DAO) StateVersion() int64 {
	return d.store.Version()
}

func (d *DAO) StakingContract() string {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.stakingContract
}

func (d *DAO) LastProposalID() uint64 {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.lastProposalID
}

func (d *DAO) GetProposal(id uint64) (p *types.Proposal, err error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	p, err = d.getProposal(id)
	if err != nil {
		return
	}
	return p.Clone(), nil
}

// Proposals lists records with id in (from, from+limit]; terminal proposals
// remain queryable forever.
func (d *DAO) Proposals(from, limit uint64) (ps []*types.Proposal, err error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	ps = make([]*types.Proposal, 0, limit)
	for id := from + 1; id <= d.lastProposalID && uint64(len(ps)) < limit; id++ {
		p, err := d.getProposal(id)
		if err != nil {
			return nil, err
		}
		ps = append(ps, p.Clone())
	}
	return
}

func (d *DAO) LastBountyID() uint64 {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.lastBountyID
}

func (d *DAO) GetBounty(id uint64) (b *types.Bounty, err error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	b, err = d.getBounty(id)
	if err != nil {
		return
	}
	n := *b
	return &n, nil
}

// Bounties lists surviving bounties with id in (from, from+limit]; ids of
// fully completed bounties are skipped.
func (d *DAO) Bounties(from, limit uint64) (bs []*types.Bounty, err error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	bs = make([]*types.Bounty, 0, limit)
	for id := from + 1; id <= d.lastBountyID && uint64(len(bs)) < limit; id++ {
		b, err := d.getBounty(id)
		if err != nil {
			if err == ErrBountyNotFound {
				continue
			}
			return nil, err
		}
		n := *b
		bs = append(bs, &n)
	}
	return
}
