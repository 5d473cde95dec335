/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// MemberInfoDTO is the aggregate member view.
type MemberInfoDTO struct {
	Member         string   `json:"member"`
	CheckedInToday bool     `json:"checked_in_today"`
	Total          int      `json:"total"`
	Streak         int      `json:"streak"`
	MissedDays     int      `json:"missed_days"`
	RankToday      string   `json:"rank_today"`
	Points         string   `json:"points"`
	PointsMinor    int64    `json:"points_minor_units"`
	Slips          int      `json:"correction_slips"`
	LastCheckinAt  string   `json:"last_checkin_at,omitempty"` // RFC3339, empty when never
	SignedDates    []string `json:"signed_dates"`
}

// CheckinResultDTO is the response to a check-in attempt.
type CheckinResultDTO struct {
	Member  string `json:"member"`
	Day     string `json:"day"`
	Created bool   `json:"created"`
}

// MakeUpRequest asks to fill missed days with correction slips.
type MakeUpRequest struct {
	Credits int  `json:"credits"`
	Force   bool `json:"force,omitempty"`
}

// MakeUpResultDTO reports which days were filled and what was refunded.
type MakeUpResultDTO struct {
	Member   string   `json:"member"`
	Filled   []string `json:"filled"`
	Refunded int      `json:"refunded"`
}

// AmountTodayDTO is today's distinct check-in count.
type AmountTodayDTO struct {
	Day    string `json:"day"`
	Amount int    `json:"amount"`
}

// RankedMemberDTO is one leaderboard row.
type RankedMemberDTO struct {
	Rank   int    `json:"rank"`
	Member string `json:"member"`
	Count  int    `json:"count"`
}

// PointsAdminRequest adjusts a member's points balance.
type PointsAdminRequest struct {
	Member     string `json:"member"`
	Op         string `json:"op"` // add, set
	MinorUnits int64  `json:"minor_units"`
}

// PointsDTO is a points balance in both representations.
type PointsDTO struct {
	Member     string `json:"member"`
	Points     string `json:"points"`
	MinorUnits int64  `json:"minor_units"`
}

// SlipsAdminRequest adjusts a member's correction slips.
type SlipsAdminRequest struct {
	Member string `json:"member"`
	Op     string `json:"op"` // give, decrease, clear
	Amount int    `json:"amount,omitempty"`
}

// SlipsDTO is a correction-slip balance.
type SlipsDTO struct {
	Member string `json:"member"`
	Slips  int    `json:"correction_slips"`
}

// DebugTriggerRequest force-runs one reward category for a member.
type DebugTriggerRequest struct {
	Category string `json:"category"`        // default, cumulative, streak, top, special
	Member   string `json:"member"`
	Value    int    `json:"value,omitempty"` // threshold or rank
	Date     string `json:"date,omitempty"`  // YYYY-MM-DD, special only; empty means today
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}
