/*
points.go - Per-member fixed-point balance

PURPOSE:
  One integer minor-unit balance per member (100 units = 1.00 displayed
  point). Keeping the stored value integral avoids float drift across
  thousands of small grants; display converts once at the edge.

MUTATION:
  Only the interpreter's point-grant action and the admin adjust path
  mutate balances. Grants arrive already scaled to minor units.
*/
package checkin

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// POINTS ACCOUNT
// =============================================================================

// PointsAccount wraps the store with display formatting.
type PointsAccount struct {
	Store PointsStore
}

func NewPointsAccount(store PointsStore) *PointsAccount {
	return &PointsAccount{Store: store}
}

// Balance returns the raw minor-unit balance.
func (p *PointsAccount) Balance(ctx context.Context, member MemberID) (int64, error) {
	return p.Store.Points(ctx, member)
}

// Add credits (or debits, for negative deltas) minor units and returns
// the new balance.
func (p *PointsAccount) Add(ctx context.Context, member MemberID, minorUnits int64) (int64, error) {
	return p.Store.AddPoints(ctx, member, minorUnits)
}

// Set overwrites the balance. Admin adjust only.
func (p *PointsAccount) Set(ctx context.Context, member MemberID, minorUnits int64) error {
	return p.Store.SetPoints(ctx, member, minorUnits)
}

// Display renders the member's balance as points with two decimals,
// e.g. a balance of 250 renders "2.50".
func (p *PointsAccount) Display(ctx context.Context, member MemberID) (string, error) {
	balance, err := p.Store.Points(ctx, member)
	if err != nil {
		return "", err
	}
	return FormatPoints(balance), nil
}

// FormatPoints renders a minor-unit balance with two decimals.
func FormatPoints(minorUnits int64) string {
	return decimal.NewFromInt(minorUnits).Div(decimal.NewFromInt(100)).StringFixed(2)
}
