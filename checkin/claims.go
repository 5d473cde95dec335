/*
claims.go - Idempotent reward-claim registry

PURPOSE:
  Records which (member, kind, threshold) milestone rewards have already
  been granted, and how many times each calendar-pattern rule has fired
  per member. The reward evaluator consults this registry so one-shot
  rewards fire exactly once and repeating calendar rules saturate at
  their configured limit.

PERMANENCE:
  Claims are written once and never removed. There is no un-claim
  operation. Force/debug evaluation skips both the check and the write.
*/
package checkin

import (
	"context"
)

// =============================================================================
// CLAIM REGISTRY
// =============================================================================

// ClaimRegistry gates one-shot and limited-repeat reward grants.
type ClaimRegistry struct {
	Store ClaimStore
	Clock Clock
}

func NewClaimRegistry(store ClaimStore, clock Clock) *ClaimRegistry {
	return &ClaimRegistry{Store: store, Clock: clock}
}

// HasClaimed reports whether the milestone was already granted.
func (r *ClaimRegistry) HasClaimed(ctx context.Context, member MemberID, kind ClaimKind, threshold int) (bool, error) {
	return r.Store.HasClaimed(ctx, member, kind, threshold)
}

// MarkClaimed permanently records a milestone grant. Idempotent.
func (r *ClaimRegistry) MarkClaimed(ctx context.Context, member MemberID, kind ClaimKind, threshold int) error {
	return r.Store.MarkClaimed(ctx, member, kind, threshold, r.Clock.Now())
}

// SpecialDateTimes returns how often a calendar-pattern rule has fired
// for the member.
func (r *ClaimRegistry) SpecialDateTimes(ctx context.Context, member MemberID, ruleKey string) (int, error) {
	return r.Store.SpecialDateTimes(ctx, member, ruleKey)
}

// IncrementSpecialDate bumps the pattern-rule counter.
func (r *ClaimRegistry) IncrementSpecialDate(ctx context.Context, member MemberID, ruleKey string) error {
	return r.Store.IncrementSpecialDate(ctx, member, ruleKey, r.Clock.Now())
}
