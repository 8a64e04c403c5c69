package ledger

import (
	"math/big"
	"testing"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/require"

	"github.com/helixdao/dao-app/dao"
)

func newTestLedger() *Ledger {
	return New("org", map[string]*big.Int{
		"org":   big.NewInt(1000),
		"alice": big.NewInt(100),
	}, cmtlog.NewNopLogger())
}

func TestTransferMovesFromOrgAccount(t *testing.T) {
	l := newTestLedger()

	require.NoError(t, l.Transfer(BaseToken, "bob", big.NewInt(300)))
	require.Equal(t, "700", l.BalanceOf("org").String())
	require.Equal(t, "300", l.BalanceOf("bob").String())
	require.Equal(t, "1100", l.TotalSupply().String())

	require.ErrorIs(t, l.Transfer(BaseToken, "bob", big.NewInt(10_000)), ErrInsufficientBalance)
}

func TestForeignTokenTransferIsDispatchOnly(t *testing.T) {
	l := newTestLedger()
	require.NoError(t, l.Transfer("usdc.token", "bob", big.NewInt(300)))
	require.Equal(t, "0", l.BalanceOf("bob").String())
}

func TestLockReleaseRoundTrip(t *testing.T) {
	l := newTestLedger()

	require.NoError(t, l.Lock("alice", big.NewInt(40)))
	require.Equal(t, "60", l.BalanceOf("alice").String())
	require.Equal(t, "40", l.LockedAmount().String())

	require.ErrorIs(t, l.Lock("alice", big.NewInt(100)), ErrInsufficientBalance)

	require.NoError(t, l.Release("alice", big.NewInt(40)))
	require.Equal(t, "100", l.BalanceOf("alice").String())
	require.Equal(t, "0", l.LockedAmount().String())
}

func TestBurnShrinksSupply(t *testing.T) {
	l := newTestLedger()

	require.NoError(t, l.Lock("alice", big.NewInt(40)))
	require.NoError(t, l.Burn(big.NewInt(40)))
	require.Equal(t, "0", l.LockedAmount().String())
	require.Equal(t, "1060", l.TotalSupply().String())

	// Releasing more than is locked means the books are corrupt.
	require.ErrorIs(t, l.Release("alice", big.NewInt(1)), dao.ErrAccountingCorruption)
}

func TestInvalidAmounts(t *testing.T) {
	l := newTestLedger()
	require.ErrorIs(t, l.Transfer(BaseToken, "bob", nil), ErrAmountInvalid)
	require.ErrorIs(t, l.Lock("alice", big.NewInt(-1)), ErrAmountInvalid)
}
