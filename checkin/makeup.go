/*
makeup.go - Retroactive fill ("correction slip") reconciliation

PURPOSE:
  Lets a member spend correction slips to fill missed days in the ledger.
  Candidates are every absent day from yesterday back to FirstLaunchDate,
  filled most-recent-first. Filling recent gaps first rewards recent
  engagement and bounds the scan to the engine's operational lifetime.

ALGORITHM (MakeUp):
  1. Not checked in today AND zero missed days: just check in today.
     No slips consumed, the whole request is refunded.
  2. Build the candidate set: absent days in [FirstLaunchDate, yesterday],
     most recent first.
  3. Empty candidates: check in today if needed, refund everything.
  4. slipsToSpend = force ? min(requested, |candidates|)
                          : min(owned, requested, |candidates|)
  5. Unless forced, decrement the slip account (clamped at zero).
  6. Fill the first slipsToSpend candidates.
  7. If today was unfilled, also check in today and include it.
  8. Return (filled days, requested - slipsToSpend).

SEE ALSO:
  - ledger.go: MissedDays uses the launch-anchored definition; the
    candidate set here deliberately ignores that anchor so any member can
    fill gaps, matching the reference behavior
*/
package checkin

import (
	"context"
)

// =============================================================================
// MAKE-UP ENGINE
// =============================================================================

// MakeUpEngine consumes correction slips to retroactively fill missed days.
type MakeUpEngine struct {
	Ledger *Ledger
	Slips  SlipStore
	Meta   MetaStore
	Clock  Clock
}

func NewMakeUpEngine(ledger *Ledger, slips SlipStore, meta MetaStore, clock Clock) *MakeUpEngine {
	return &MakeUpEngine{Ledger: ledger, Slips: slips, Meta: meta, Clock: clock}
}

// MakeUpResult reports which days were filled (today included when the
// call also checked the member in) and how many requested slips were not
// needed.
type MakeUpResult struct {
	Filled   []Day
	Refunded int
}

// MakeUp fills up to `requested` missed days for the member, most recent
// first. With force=true the slip balance is neither consulted nor
// decremented.
func (m *MakeUpEngine) MakeUp(ctx context.Context, member MemberID, requested int, force bool) (MakeUpResult, error) {
	today := m.Clock.Today()

	checkedIn, err := m.Ledger.IsCheckedIn(ctx, member)
	if err != nil {
		return MakeUpResult{}, err
	}
	missed, err := m.Ledger.MissedDays(ctx, member)
	if err != nil {
		return MakeUpResult{}, err
	}

	// Nothing to reconcile: a plain check-in, full refund.
	if !checkedIn && missed == 0 {
		if _, err := m.Ledger.Write(ctx, member); err != nil {
			return MakeUpResult{}, err
		}
		return MakeUpResult{Filled: []Day{today}, Refunded: requested}, nil
	}

	candidates, err := m.missedCandidates(ctx, member, today)
	if err != nil {
		return MakeUpResult{}, err
	}

	if len(candidates) == 0 {
		if !checkedIn {
			if _, err := m.Ledger.Write(ctx, member); err != nil {
				return MakeUpResult{}, err
			}
			return MakeUpResult{Filled: []Day{today}, Refunded: requested}, nil
		}
		return MakeUpResult{Refunded: requested}, nil
	}

	toSpend := min(requested, len(candidates))
	if !force {
		owned, err := m.Slips.Slips(ctx, member)
		if err != nil {
			return MakeUpResult{}, err
		}
		toSpend = min(toSpend, owned)
		if err := m.Slips.DecreaseSlips(ctx, member, toSpend); err != nil {
			return MakeUpResult{}, err
		}
	}

	filled := make([]Day, 0, toSpend+1)
	for _, d := range candidates[:toSpend] {
		if _, err := m.Ledger.WriteDay(ctx, member, d); err != nil {
			return MakeUpResult{}, err
		}
		filled = append(filled, d)
	}

	if !checkedIn {
		if _, err := m.Ledger.Write(ctx, member); err != nil {
			return MakeUpResult{}, err
		}
		filled = append(filled, today)
	}

	return MakeUpResult{Filled: filled, Refunded: requested - toSpend}, nil
}

// missedCandidates lists absent days from yesterday back to the launch
// day inclusive, most recent first.
func (m *MakeUpEngine) missedCandidates(ctx context.Context, member MemberID, today Day) ([]Day, error) {
	first, ok, err := m.Meta.FirstLaunchDate(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrFirstLaunchUnset
	}
	days, err := m.Ledger.SignedDates(ctx, member)
	if err != nil {
		return nil, err
	}
	set := make(map[Day]struct{}, len(days))
	for _, d := range days {
		set[d] = struct{}{}
	}
	var candidates []Day
	for d := today.Prev(); !d.Before(first); d = d.Prev() {
		if _, ok := set[d]; !ok {
			candidates = append(candidates, d)
		}
	}
	return candidates, nil
}
