package dao

import "math/big"

// Clock supplies the current timestamp as unix nanoseconds. The engine has
// no scheduler; every deadline is a comparison against Now.
type Clock interface {
	Now() uint64
}

// TokenLedger is the external fungible-token ledger. Transfer is
// fire-and-forget from the engine's perspective: a failure after dispatch
// is logged, never rolled back.
type TokenLedger interface {
	BalanceOf(account string) *big.Int
	TotalSupply() *big.Int
	Transfer(token, receiver string, amount *big.Int) error
}

// BondCustody escrows proposer and claimer bonds, one lock per submission.
type BondCustody interface {
	Lock(account string, amount *big.Int) error
	Release(account string, amount *big.Int) error
	Burn(amount *big.Int) error
}
