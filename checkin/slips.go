// slips.go - Correction-slip account: a spendable credit permitting one
// retroactive fill of a missed day. Balances never go below zero.
package checkin

import (
	"context"
)

// CorrectionSlipAccount wraps the slip store for admin and reward paths.
type CorrectionSlipAccount struct {
	Store SlipStore
}

func NewCorrectionSlipAccount(store SlipStore) *CorrectionSlipAccount {
	return &CorrectionSlipAccount{Store: store}
}

// Amount returns the member's current slip count.
func (a *CorrectionSlipAccount) Amount(ctx context.Context, member MemberID) (int, error) {
	return a.Store.Slips(ctx, member)
}

// Give grants slips.
func (a *CorrectionSlipAccount) Give(ctx context.Context, member MemberID, amount int) error {
	return a.Store.AddSlips(ctx, member, amount)
}

// Decrease spends slips, clamped at zero.
func (a *CorrectionSlipAccount) Decrease(ctx context.Context, member MemberID, amount int) error {
	return a.Store.DecreaseSlips(ctx, member, amount)
}

// Clear zeroes the balance.
func (a *CorrectionSlipAccount) Clear(ctx context.Context, member MemberID) error {
	return a.Store.ClearSlips(ctx, member)
}
