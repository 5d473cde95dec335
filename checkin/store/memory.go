// Package store provides checkin.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/checkin-engine/checkin"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements checkin.Store with maps under one mutex. All writes
// serialize on the lock, satisfying the single-writer discipline.
type Memory struct {
	mu          sync.RWMutex
	checkins    map[checkin.MemberID]map[checkin.Day]time.Time
	points      map[checkin.MemberID]int64
	slips       map[checkin.MemberID]int
	claims      map[claimKey]struct{}
	specials    map[specialKey]specialClaim
	firstLaunch checkin.Day
	seeded      bool
}

type claimKey struct {
	Member    checkin.MemberID
	Kind      checkin.ClaimKind
	Threshold int
}

type specialKey struct {
	Member checkin.MemberID
	Rule   string
}

type specialClaim struct {
	Times       int
	LastClaimAt time.Time
}

func NewMemory() *Memory {
	return &Memory{
		checkins: make(map[checkin.MemberID]map[checkin.Day]time.Time),
		points:   make(map[checkin.MemberID]int64),
		slips:    make(map[checkin.MemberID]int),
		claims:   make(map[claimKey]struct{}),
		specials: make(map[specialKey]specialClaim),
	}
}

var _ checkin.Store = (*Memory)(nil)

// ---------------------------------------------------------------------------
// CheckinStore

func (m *Memory) InsertCheckin(_ context.Context, member checkin.MemberID, day checkin.Day, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	days := m.checkins[member]
	if days == nil {
		days = make(map[checkin.Day]time.Time)
		m.checkins[member] = days
	}
	if _, exists := days[day]; exists {
		return false, nil
	}
	days[day] = at
	return true, nil
}

func (m *Memory) HasCheckin(_ context.Context, member checkin.MemberID, day checkin.Day) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.checkins[member][day]
	return ok, nil
}

func (m *Memory) CheckinDays(_ context.Context, member checkin.MemberID) ([]checkin.Day, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	days := make([]checkin.Day, 0, len(m.checkins[member]))
	for d := range m.checkins[member] {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

func (m *Memory) CheckinsOn(_ context.Context, day checkin.Day) ([]checkin.CheckinRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var recs []checkin.CheckinRecord
	for member, days := range m.checkins {
		if at, ok := days[day]; ok {
			recs = append(recs, checkin.CheckinRecord{Member: member, Day: day, At: at})
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].At.Equal(recs[j].At) {
			return recs[i].At.Before(recs[j].At)
		}
		return recs[i].Member < recs[j].Member
	})
	return recs, nil
}

func (m *Memory) LastCheckin(_ context.Context, member checkin.MemberID) (checkin.CheckinRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var (
		best  checkin.CheckinRecord
		found bool
	)
	for d, at := range m.checkins[member] {
		if !found || at.After(best.At) {
			best = checkin.CheckinRecord{Member: member, Day: d, At: at}
			found = true
		}
	}
	return best, found, nil
}

func (m *Memory) TotalsTop(_ context.Context, n int) ([]checkin.RankedMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ranked := make([]checkin.RankedMember, 0, len(m.checkins))
	for member, days := range m.checkins {
		ranked = append(ranked, checkin.RankedMember{Member: member, Count: len(days)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Member < ranked[j].Member
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked, nil
}

func (m *Memory) DaysByMember(_ context.Context) (map[checkin.MemberID][]checkin.Day, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[checkin.MemberID][]checkin.Day, len(m.checkins))
	for member, days := range m.checkins {
		list := make([]checkin.Day, 0, len(days))
		for d := range days {
			list = append(list, d)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Before(list[j]) })
		out[member] = list
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// PointsStore

func (m *Memory) Points(_ context.Context, member checkin.MemberID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.points[member], nil
}

func (m *Memory) SetPoints(_ context.Context, member checkin.MemberID, balance int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[member] = balance
	return nil
}

func (m *Memory) AddPoints(_ context.Context, member checkin.MemberID, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[member] += delta
	return m.points[member], nil
}

// ---------------------------------------------------------------------------
// SlipStore

func (m *Memory) Slips(_ context.Context, member checkin.MemberID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.slips[member], nil
}

func (m *Memory) AddSlips(_ context.Context, member checkin.MemberID, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slips[member] += amount
	return nil
}

func (m *Memory) DecreaseSlips(_ context.Context, member checkin.MemberID, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.slips[member] - amount
	if next < 0 {
		next = 0
	}
	m.slips[member] = next
	return nil
}

func (m *Memory) ClearSlips(_ context.Context, member checkin.MemberID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slips[member] = 0
	return nil
}

// ---------------------------------------------------------------------------
// ClaimStore

func (m *Memory) HasClaimed(_ context.Context, member checkin.MemberID, kind checkin.ClaimKind, threshold int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.claims[claimKey{member, kind, threshold}]
	return ok, nil
}

func (m *Memory) MarkClaimed(_ context.Context, member checkin.MemberID, kind checkin.ClaimKind, threshold int, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[claimKey{member, kind, threshold}] = struct{}{}
	return nil
}

func (m *Memory) SpecialDateTimes(_ context.Context, member checkin.MemberID, ruleKey string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.specials[specialKey{member, ruleKey}].Times, nil
}

func (m *Memory) IncrementSpecialDate(_ context.Context, member checkin.MemberID, ruleKey string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := specialKey{member, ruleKey}
	c := m.specials[k]
	c.Times++
	c.LastClaimAt = at
	m.specials[k] = c
	return nil
}

// ---------------------------------------------------------------------------
// MetaStore

func (m *Memory) SeedFirstLaunch(_ context.Context, day checkin.Day) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.seeded {
		m.firstLaunch = day
		m.seeded = true
	}
	return nil
}

func (m *Memory) FirstLaunchDate(_ context.Context) (checkin.Day, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.firstLaunch, m.seeded, nil
}
