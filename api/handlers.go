/*
handlers.go - HTTP API handlers for the check-in engine

PURPOSE:
  Exposes the check-in ledger, points account, correction-slip
  reconciliation, and reward evaluator via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Members:
    GET    /api/members/{member}           Aggregate member info
    GET    /api/members/{member}/checkedin Checked in today?
    GET    /api/members/{member}/total     Total recorded days
    GET    /api/members/{member}/streak    Current streak
    GET    /api/members/{member}/missed    Missed days since launch
    GET    /api/members/{member}/rank      Today's rank (or "not checked in")
    GET    /api/members/{member}/points    Points balance
    GET    /api/members/{member}/slips     Correction slips
    GET    /api/members/{member}/dates     Every recorded day
    POST   /api/members/{member}/checkin   Check in now
    POST   /api/members/{member}/makeup    Fill missed days with slips

  Today:
    GET    /api/today/amount               Distinct members checked in today

  Leaderboards:
    GET    /api/top/total?n=10
    GET    /api/top/streak?n=10

  Admin:
    POST   /api/admin/points               Add to or set a points balance
    POST   /api/admin/slips                Give, decrease, or clear slips

  Debug:
    POST   /api/debug/trigger              Force one reward category

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (ledger, makeup engine, evaluator)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 500: Internal errors
  A successful check-in triggers reward evaluation; effects fire
  asynchronously and never delay the response.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/checkin-engine/checkin"
	"github.com/warp/checkin-engine/rewards"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger *checkin.Ledger
	MakeUp *checkin.MakeUpEngine
	Points *checkin.PointsAccount
	Slips  *checkin.CorrectionSlipAccount
	Eval   *rewards.Evaluator
	Clock  checkin.Clock
	Log    *zap.Logger
}

// NewHandler creates a new handler with the given dependencies.
func NewHandler(ledger *checkin.Ledger, makeup *checkin.MakeUpEngine, points *checkin.PointsAccount, slips *checkin.CorrectionSlipAccount, eval *rewards.Evaluator, clock checkin.Clock, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Ledger: ledger,
		MakeUp: makeup,
		Points: points,
		Slips:  slips,
		Eval:   eval,
		Clock:  clock,
		Log:    log,
	}
}

func memberParam(r *http.Request) checkin.MemberID {
	return checkin.MemberID(chi.URLParam(r, "member"))
}

// =============================================================================
// MEMBER HANDLERS
// =============================================================================

// GetMemberInfo returns the aggregate view of one member.
func (h *Handler) GetMemberInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	member := memberParam(r)

	info := MemberInfoDTO{Member: string(member)}

	var err error
	if info.CheckedInToday, err = h.Ledger.IsCheckedIn(ctx, member); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	if info.Total, err = h.Ledger.Total(ctx, member); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	if info.Streak, err = h.Ledger.Streak(ctx, member); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	if info.MissedDays, err = h.Ledger.MissedDays(ctx, member); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	if info.RankToday, err = h.Ledger.RankToday(ctx, member); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	if info.PointsMinor, err = h.Points.Balance(ctx, member); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read points", err)
		return
	}
	info.Points = checkin.FormatPoints(info.PointsMinor)
	if info.Slips, err = h.Slips.Amount(ctx, member); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read slips", err)
		return
	}
	if at, ok, err := h.Ledger.LastCheckinAt(ctx, member); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	} else if ok {
		info.LastCheckinAt = at.Format("2006-01-02T15:04:05Z07:00")
	}
	days, err := h.Ledger.SignedDates(ctx, member)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	info.SignedDates = formatDays(days)

	writeJSON(w, http.StatusOK, info)
}

// GetCheckedIn reports whether the member checked in today.
func (h *Handler) GetCheckedIn(w http.ResponseWriter, r *http.Request) {
	ok, err := h.Ledger.IsCheckedIn(r.Context(), memberParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"checked_in": ok})
}

// GetTotal returns the member's total recorded days.
func (h *Handler) GetTotal(w http.ResponseWriter, r *http.Request) {
	total, err := h.Ledger.Total(r.Context(), memberParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"total": total})
}

// GetStreak returns the member's current streak.
func (h *Handler) GetStreak(w http.ResponseWriter, r *http.Request) {
	streak, err := h.Ledger.Streak(r.Context(), memberParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"streak": streak})
}

// GetMissed returns the member's launch-anchored missed-day count.
func (h *Handler) GetMissed(w http.ResponseWriter, r *http.Request) {
	missed, err := h.Ledger.MissedDays(r.Context(), memberParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"missed_days": missed})
}

// GetRank returns the member's rank among today's check-ins.
func (h *Handler) GetRank(w http.ResponseWriter, r *http.Request) {
	rank, err := h.Ledger.RankToday(r.Context(), memberParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"rank": rank})
}

// GetPoints returns the member's points balance.
func (h *Handler) GetPoints(w http.ResponseWriter, r *http.Request) {
	member := memberParam(r)
	balance, err := h.Points.Balance(r.Context(), member)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read points", err)
		return
	}
	writeJSON(w, http.StatusOK, PointsDTO{
		Member:     string(member),
		Points:     checkin.FormatPoints(balance),
		MinorUnits: balance,
	})
}

// GetSlips returns the member's correction-slip balance.
func (h *Handler) GetSlips(w http.ResponseWriter, r *http.Request) {
	member := memberParam(r)
	amount, err := h.Slips.Amount(r.Context(), member)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read slips", err)
		return
	}
	writeJSON(w, http.StatusOK, SlipsDTO{Member: string(member), Slips: amount})
}

// GetDates returns every recorded day for the member, oldest first.
func (h *Handler) GetDates(w http.ResponseWriter, r *http.Request) {
	days, err := h.Ledger.SignedDates(r.Context(), memberParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"dates": formatDays(days)})
}

// CheckIn records today's check-in. A repeat call for the same day
// returns created=false and triggers nothing.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	member := memberParam(r)

	created, err := h.Ledger.Write(ctx, member)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record check-in", err)
		return
	}
	if created {
		h.Eval.OnCheckIn(ctx, member)
	}

	writeJSON(w, http.StatusOK, CheckinResultDTO{
		Member:  string(member),
		Day:     h.Clock.Today().String(),
		Created: created,
	})
}

// MakeUpDays spends correction slips to retroactively fill missed days.
func (h *Handler) MakeUpDays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	member := memberParam(r)

	var req MakeUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Credits < 1 {
		writeError(w, http.StatusBadRequest, "credits must be positive", nil)
		return
	}

	result, err := h.MakeUp.MakeUp(ctx, member, req.Credits, req.Force)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to make up days", err)
		return
	}
	if len(result.Filled) > 0 {
		h.Eval.OnCheckIn(ctx, member)
	}

	writeJSON(w, http.StatusOK, MakeUpResultDTO{
		Member:   string(member),
		Filled:   formatDays(result.Filled),
		Refunded: result.Refunded,
	})
}

// =============================================================================
// TODAY AND LEADERBOARD HANDLERS
// =============================================================================

// GetAmountToday returns today's distinct check-in count.
func (h *Handler) GetAmountToday(w http.ResponseWriter, r *http.Request) {
	amount, err := h.Ledger.AmountToday(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, AmountTodayDTO{
		Day:    h.Clock.Today().String(),
		Amount: amount,
	})
}

// GetTopTotal returns the all-time leaderboard.
func (h *Handler) GetTopTotal(w http.ResponseWriter, r *http.Request) {
	ranked, err := h.Ledger.TopTotal(r.Context(), limitParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, toRankedDTOs(ranked))
}

// GetTopStreak returns the current-streak leaderboard.
func (h *Handler) GetTopStreak(w http.ResponseWriter, r *http.Request) {
	ranked, err := h.Ledger.TopStreak(r.Context(), limitParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, toRankedDTOs(ranked))
}

// limitParam reads ?n= with a default of 10.
func limitParam(r *http.Request) int {
	if s := r.URL.Query().Get("n"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 10
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// AdminPoints adds to or sets a member's points balance.
func (h *Handler) AdminPoints(w http.ResponseWriter, r *http.Request) {
	var req PointsAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Member == "" {
		writeError(w, http.StatusBadRequest, "member is required", nil)
		return
	}

	ctx := r.Context()
	member := checkin.MemberID(req.Member)

	var balance int64
	switch req.Op {
	case "add":
		var err error
		if balance, err = h.Points.Add(ctx, member, req.MinorUnits); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to adjust points", err)
			return
		}
	case "set":
		if err := h.Points.Set(ctx, member, req.MinorUnits); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to set points", err)
			return
		}
		balance = req.MinorUnits
	default:
		writeError(w, http.StatusBadRequest, "op must be add or set", nil)
		return
	}

	writeJSON(w, http.StatusOK, PointsDTO{
		Member:     req.Member,
		Points:     checkin.FormatPoints(balance),
		MinorUnits: balance,
	})
}

// AdminSlips gives, decreases, or clears a member's correction slips.
func (h *Handler) AdminSlips(w http.ResponseWriter, r *http.Request) {
	var req SlipsAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Member == "" {
		writeError(w, http.StatusBadRequest, "member is required", nil)
		return
	}

	ctx := r.Context()
	member := checkin.MemberID(req.Member)

	switch req.Op {
	case "give":
		if req.Amount < 1 {
			writeError(w, http.StatusBadRequest, "amount must be positive", nil)
			return
		}
		if err := h.Slips.Give(ctx, member, req.Amount); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to give slips", err)
			return
		}
	case "decrease":
		if req.Amount < 1 {
			writeError(w, http.StatusBadRequest, "amount must be positive", nil)
			return
		}
		if err := h.Slips.Decrease(ctx, member, req.Amount); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to decrease slips", err)
			return
		}
	case "clear":
		if err := h.Slips.Clear(ctx, member); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to clear slips", err)
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "op must be give, decrease, or clear", nil)
		return
	}

	amount, err := h.Slips.Amount(ctx, member)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read slips", err)
		return
	}
	writeJSON(w, http.StatusOK, SlipsDTO{Member: req.Member, Slips: amount})
}

// =============================================================================
// DEBUG HANDLERS
// =============================================================================

// DebugTrigger force-runs one reward category for a member, bypassing
// enable flags and claim tracking.
func (h *Handler) DebugTrigger(w http.ResponseWriter, r *http.Request) {
	var req DebugTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Member == "" {
		writeError(w, http.StatusBadRequest, "member is required", nil)
		return
	}

	ctx := r.Context()
	member := checkin.MemberID(req.Member)

	day := h.Clock.Today()
	if req.Date != "" {
		var err error
		if day, err = checkin.ParseDay(req.Date); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
	}

	if err := h.runDebugCategory(ctx, member, req, day); err != nil {
		if errors.Is(err, checkin.ErrUnknownCategory) {
			writeError(w, http.StatusBadRequest, "Unknown reward category: "+req.Category, nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to trigger rewards", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "triggered", "category": req.Category})
}

func (h *Handler) runDebugCategory(ctx context.Context, member checkin.MemberID, req DebugTriggerRequest, day checkin.Day) error {
	switch strings.ToLower(req.Category) {
	case "default":
		h.Eval.RunDefault(member)
		return nil
	case "cumulative":
		return h.Eval.RunCumulative(ctx, member, req.Value, true)
	case "streak":
		return h.Eval.RunStreak(ctx, member, req.Value, true)
	case "top":
		h.Eval.RunTop(member, req.Value, true)
		return nil
	case "special":
		return h.Eval.DebugSpecialDates(ctx, member, day)
	default:
		return checkin.ErrUnknownCategory
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func formatDays(days []checkin.Day) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.String()
	}
	return out
}

func toRankedDTOs(ranked []checkin.RankedMember) []RankedMemberDTO {
	dtos := make([]RankedMemberDTO, len(ranked))
	for i, rm := range ranked {
		dtos[i] = RankedMemberDTO{Rank: i + 1, Member: string(rm.Member), Count: rm.Count}
	}
	return dtos
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
