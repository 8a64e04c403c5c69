package types

import (
	"errors"
	"math/big"
)

type Bounty struct {
	ID          uint64   `json:"id"`
	Description string   `json:"description"`
	Token       string   `json:"token"`
	Amount      *big.Int `json:"amount"`
	// Times is the number of slots that may be claimed concurrently.
	Times       uint64 `json:"times"`
	MaxDeadline uint64 `json:"max_deadline"`
}

func (b *Bounty) Validate() error {
	if b.Amount == nil || b.Amount.Sign() <= 0 {
		return errors.New("bounty amount invalid")
	}
	if b.Times == 0 {
		return errors.New("bounty times is zero")
	}
	if b.MaxDeadline == 0 {
		return errors.New("bounty max deadline is zero")
	}
	return nil
}

// BountyClaim is one outstanding slot of work, owned per claimer. A claim
// past its deadline is void the moment it is observed; no sweep runs.
type BountyClaim struct {
	BountyID  uint64 `json:"bounty_id"`
	StartTime uint64 `json:"start_time"`
	Deadline  uint64 `json:"deadline"`
}

// Live reports whether the claim still holds its slot at the given time.
func (c *BountyClaim) Live(now uint64) bool {
	return now < c.Deadline
}
