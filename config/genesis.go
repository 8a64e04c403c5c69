package config

import (
	"errors"
	"math/big"
	"os"
	"time"

	cmtjson "github.com/cometbft/cometbft/libs/json"

	"github.com/helixdao/dao-app/policy"
	"github.com/helixdao/dao-app/types"
)

// GenesisDoc defines the initial conditions of an organization: its config,
// its policy, and the token distribution the ledger starts from.
type GenesisDoc struct {
	GenesisTime time.Time              `json:"genesis_time"`
	OrgAccount  string                 `json:"org_account"`
	Config      types.VersionedConfig  `json:"config"`
	Policy      policy.VersionedPolicy `json:"policy"`
	Balances    map[string]*big.Int    `json:"balances"`
}

// DefaultGenesisDoc builds a genesis with the default config and a council
// policy over the given accounts, all funded equally.
func DefaultGenesisDoc(orgAccount string, council []string) *GenesisDoc {
	balances := map[string]*big.Int{
		orgAccount: big.NewInt(1_000_000_000),
	}
	for _, m := range council {
		balances[m] = big.NewInt(1_000_000)
	}
	cfg := types.DefaultConfig("helix")
	cfg.Purpose = "a helix organization"
	return &GenesisDoc{
		GenesisTime: time.Now().Round(0).UTC(),
		OrgAccount:  orgAccount,
		Config:      types.NewVersionedConfig(cfg),
		Policy:      policy.VersionedPolicy{Council: council},
		Balances:    balances,
	}
}

func (genDoc *GenesisDoc) ValidateAndComplete() error {
	if genDoc.OrgAccount == "" {
		return errors.New("genesis doc must include non-empty org_account")
	}
	if genDoc.GenesisTime.IsZero() {
		genDoc.GenesisTime = time.Now().Round(0).UTC()
	}
	for account, amount := range genDoc.Balances {
		if amount == nil || amount.Sign() < 0 {
			return errors.New("negative genesis balance for " + account)
		}
	}
	return nil
}

// SaveAs is a utility method for saving GenesisDoc as a JSON file.
func (genDoc *GenesisDoc) SaveAs(file string) error {
	genDocBytes, err := cmtjson.MarshalIndent(genDoc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, genDocBytes, 0o600)
}

func LoadGenesisDoc(file string) (*GenesisDoc, error) {
	dat, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	genDoc := &GenesisDoc{}
	if err := cmtjson.Unmarshal(dat, genDoc); err != nil {
		return nil, err
	}
	if err := genDoc.ValidateAndComplete(); err != nil {
		return nil, err
	}
	return genDoc, nil
}

func ExportGenesisFile(genesis *GenesisDoc, genFile string) error {
	if err := genesis.ValidateAndComplete(); err != nil {
		return err
	}
	return genesis.SaveAs(genFile)
}
