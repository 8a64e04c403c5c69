package ledger

import (
	"errors"
	"math/big"
	"sync"

	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/helixdao/dao-app/dao"
)

// BaseToken is the organization's own token id; transfers in any other
// token are out of this ledger's custody and only logged as dispatched.
const BaseToken = ""

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAmountInvalid       = errors.New("amount invalid")
)

// Ledger is an in-memory fungible-token ledger doubling as the bond
// custody: bonds move from an account into the locked pool and back.
type Ledger struct {
	mtx    sync.RWMutex
	logger cmtlog.Logger

	orgAccount string
	balances   map[string]*big.Int
	total      *big.Int
	locked     *big.Int
}

var _ dao.TokenLedger = (*Ledger)(nil)
var _ dao.BondCustody = (*Ledger)(nil)

func New(orgAccount string, genesis map[string]*big.Int, logger cmtlog.Logger) *Ledger {
	l := &Ledger{
		logger:     logger.With("module", "ledger"),
		orgAccount: orgAccount,
		balances:   make(map[string]*big.Int, len(genesis)),
		total:      big.NewInt(0),
		locked:     big.NewInt(0),
	}
	for account, amount := range genesis {
		l.balances[account] = new(big.Int).Set(amount)
		l.total.Add(l.total, amount)
	}
	return l
}

func (l *Ledger) BalanceOf(account string) *big.Int {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	if b, ok := l.balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

func (l *Ledger) TotalSupply() *big.Int {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return new(big.Int).Set(l.total)
}

func (l *Ledger) LockedAmount() *big.Int {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return new(big.Int).Set(l.locked)
}

// Transfer pays out of the organization account. Foreign-token transfers
// are acknowledged for the host to execute and not settled here.
func (l *Ledger) Transfer(token, receiver string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrAmountInvalid
	}
	if token != BaseToken {
		l.logger.Info("foreign token transfer dispatched", "token", token, "receiver", receiver, "amount", amount.String())
		return nil
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.move(l.orgAccount, receiver, amount)
}

func (l *Ledger) move(from, to string, amount *big.Int) error {
	src, ok := l.balances[from]
	if !ok || src.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	src.Sub(src, amount)
	if src.Sign() < 0 {
		// Unreachable after the compare above; a negative balance means the
		// books are corrupt.
		return dao.ErrAccountingCorruption
	}
	dst, ok := l.balances[to]
	if !ok {
		dst = big.NewInt(0)
		l.balances[to] = dst
	}
	dst.Add(dst, amount)
	return nil
}

func (l *Ledger) Lock(account string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrAmountInvalid
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	b, ok := l.balances[account]
	if !ok || b.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	b.Sub(b, amount)
	l.locked.Add(l.locked, amount)
	return nil
}

func (l *Ledger) Release(account string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrAmountInvalid
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.locked.Cmp(amount) < 0 {
		return dao.ErrAccountingCorruption
	}
	l.locked.Sub(l.locked, amount)
	b, ok := l.balances[account]
	if !ok {
		b = big.NewInt(0)
		l.balances[account] = b
	}
	b.Add(b, amount)
	return nil
}

// Burn removes forfeited bonds from the locked pool and the supply.
func (l *Ledger) Burn(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrAmountInvalid
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.locked.Cmp(amount) < 0 || l.total.Cmp(amount) < 0 {
		return dao.ErrAccountingCorruption
	}
	l.locked.Sub(l.locked, amount)
	l.total.Sub(l.total, amount)
	return nil
}
