package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/helixdao/dao-app/policy"
	"github.com/helixdao/dao-app/types"
)

var (
	ErrNotFound = errors.New("not found")
)

var (
	KeyConfig          = "c"
	KeyPolicy          = "pol"
	KeyProposalBody    = "p%v"
	KeyProposalIndex   = "pi"
	KeyBountyBody      = "b%v"
	KeyBountyIndex     = "bi"
	KeyBountyClaims    = "u%s"
	KeyStakingContract = "sc"
)

// Store persists the organization's governance state in a merkleized iavl
// tree over goleveldb. Record bodies are JSON.
type Store struct {
	mtx sync.RWMutex

	dir    string
	logger cmtlog.Logger
	db     *iavl.MutableTree
	dbVer  int64
	hash   common.Hash
}

func NewStore(dir string, logger cmtlog.Logger) (s *Store, err error) {
	logger = logger.With("module", "daodb")
	ldb, err := dbm.NewDB("dao", "goleveldb", dir)
	if err != nil {
		return nil, err
	}
	tdb := iavl.NewMutableTree(ldb, 128, true, Cometbft2CosmosLogger(logger))
	version, err := tdb.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("load db success", "version", version)
	s = &Store{
		dir:    dir,
		logger: logger,
		db:     tdb,
		dbVer:  version,
	}
	if h := tdb.Hash(); h != nil {
		s.hash = crypto.Keccak256Hash(h)
	}
	return
}

func (s *Store) Close() (err error) {
	return s.db.Close()
}

func (s *Store) get(key string) (val []byte, err error) {
	val, err = s.db.Get([]byte(key))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return
}

func (s *Store) getJSON(key string, v any) (ok bool, err error) {
	val, err := s.get(key)
	if err != nil {
		return
	}
	if val == nil {
		return false, nil
	}
	if err = json.Unmarshal(val, v); err != nil {
		return
	}
	return true, nil
}

func (s *Store) setJSON(key string, v any) (err error) {
	val, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, err = s.db.Set([]byte(key), val)
	return
}

func (s *Store) getUint64(key string) (n uint64, err error) {
	val, err := s.get(key)
	if err != nil {
		return
	}
	n = new(big.Int).SetBytes(val).Uint64()
	return
}

func (s *Store) setUint64(key string, n uint64) (err error) {
	_, err = s.db.Set([]byte(key), new(big.Int).SetUint64(n).Bytes())
	return
}

func (s *Store) LoadConfig() (cfg *types.Config, ok bool, err error) {
	var vc types.VersionedConfig
	ok, err = s.getJSON(KeyConfig, &vc)
	if err != nil || !ok {
		return
	}
	cfg, err = vc.Upgrade()
	return
}

func (s *Store) SaveConfig(cfg *types.Config) error {
	return s.setJSON(KeyConfig, types.NewVersionedConfig(cfg))
}

func (s *Store) LoadPolicy() (pol *policy.Policy, ok bool, err error) {
	var vp policy.VersionedPolicy
	ok, err = s.getJSON(KeyPolicy, &vp)
	if err != nil || !ok {
		return
	}
	pol, err = vp.Upgrade()
	return
}

func (s *Store) SavePolicy(pol *policy.Policy) error {
	return s.setJSON(KeyPolicy, policy.NewVersionedPolicy(pol))
}

func (s *Store) GetProposal(id uint64) (p *types.Proposal, err error) {
	p = new(types.Proposal)
	ok, err := s.getJSON(fmt.Sprintf(KeyProposalBody, id), p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return
}

func (s *Store) SaveProposal(p *types.Proposal) error {
	return s.setJSON(fmt.Sprintf(KeyProposalBody, p.ID), p)
}

func (s *Store) LastProposalID() (uint64, error) {
	return s.getUint64(KeyProposalIndex)
}

func (s *Store) SetLastProposalID(id uint64) error {
	return s.setUint64(KeyProposalIndex, id)
}

func (s *Store) GetBounty(id uint64) (b *types.Bounty, err error) {
	b = new(types.Bounty)
	ok, err := s.getJSON(fmt.Sprintf(KeyBountyBody, id), b)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return
}

func (s *Store) SaveBounty(b *types.Bounty) error {
	return s.setJSON(fmt.Sprintf(KeyBountyBody, b.ID), b)
}

func (s *Store) DeleteBounty(id uint64) (err error) {
	_, _, err = s.db.Remove([]byte(fmt.Sprintf(KeyBountyBody, id)))
	return
}

func (s *Store) LastBountyID() (uint64, error) {
	return s.getUint64(KeyBountyIndex)
}

func (s *Store) SetLastBountyID(id uint64) error {
	return s.setUint64(KeyBountyIndex, id)
}

func (s *Store) SaveClaims(actor string, claims []types.BountyClaim) (err error) {
	key := fmt.Sprintf(KeyBountyClaims, actor)
	if len(claims) == 0 {
		_, _, err = s.db.Remove([]byte(key))
		return
	}
	return s.setJSON(key, claims)
}

// LoadAllClaims walks the claim prefix and returns every claimer's list.
func (s *Store) LoadAllClaims() (claims map[string][]types.BountyClaim, err error) {
	claims = make(map[string][]types.BountyClaim)
	start := []byte(fmt.Sprintf(KeyBountyClaims, ""))
	end := PrefixEndBytes(start)
	it, err := s.db.Iterator(start, end, false)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	for ; it.Valid(); it.Next() {
		actor := strings.TrimPrefix(string(it.Key()), string(start))
		var list []types.BountyClaim
		if err = json.Unmarshal(it.Value(), &list); err != nil {
			return nil, err
		}
		claims[actor] = list
	}
	return
}

func (s *Store) StakingContract() (id string, err error) {
	val, err := s.get(KeyStakingContract)
	if err != nil {
		return
	}
	return string(val), nil
}

func (s *Store) SetStakingContract(id string) (err error) {
	_, err = s.db.Set([]byte(KeyStakingContract), []byte(id))
	return
}

// Commit saves a new tree version and refreshes the keccak root hash.
func (s *Store) Commit() (h common.Hash, err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		s.db.Rollback()
		return
	}
	s.dbVer = ver
	s.hash = crypto.Keccak256Hash(hash)
	h = s.hash
	return
}

// Rollback discards uncommitted tree mutations.
func (s *Store) Rollback() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.db.Rollback()
}

func (s *Store) Hash() common.Hash {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.hash
}

func (s *Store) Version() int64 {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.dbVer
}

func PrefixEndBytes(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}

	end := make([]byte, len(prefix))
	copy(end, prefix)

	for {
		if end[len(end)-1] != byte(255) {
			end[len(end)-1]++
			break
		}

		end = end[:len(end)-1]

		if len(end) == 0 {
			end = nil
			break
		}
	}

	return end
}
