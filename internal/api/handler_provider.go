package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fairwaygames/stakebook/internal/domain/booking"
	"github.com/fairwaygames/stakebook/internal/repos/bookings"
	"github.com/fairwaygames/stakebook/internal/repos/wallets"
	"github.com/fairwaygames/stakebook/internal/services/commit"
	"github.com/fairwaygames/stakebook/internal/services/verification"
)

// BookingService is the commit-service surface the handlers drive;
// *commit.Service satisfies it.
type BookingService interface {
	Commit(ctx context.Context, req commit.CommitRequest) (*booking.Booking, error)
	Edit(ctx context.Context, req commit.EditRequest) (*booking.Booking, error)
	Cancel(ctx context.Context, userID uint64, bookingID uuid.UUID) error
	GetBooking(ctx context.Context, userID uint64, bookingID uuid.UUID) (*booking.Booking, error)
	ListBookings(ctx context.Context, userID uint64) ([]booking.Booking, error)
	WalletBalance(ctx context.Context, userID uint64) (*wallets.Account, error)
	WalletHistory(ctx context.Context, userID uint64, limit int) ([]wallets.Entry, error)
}

// VerificationService issues and confirms email verification codes;
// *verification.Service satisfies it.
type VerificationService interface {
	Issue(ctx context.Context, email string) error
	Confirm(ctx context.Context, email, code string) error
}

// HandlerProvider wraps the services and exposes HTTP handlers.
type HandlerProvider struct {
	svc    BookingService
	verify VerificationService
}

// NewHandler returns a new handler provider. verify may be nil when no
// code store is configured; the router then skips those routes.
func NewHandler(svc BookingService, verify VerificationService) *HandlerProvider {
	return &HandlerProvider{svc: svc, verify: verify}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		http.Error(w, `{"error":"internal json encode failure"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseUserIDFromPath(r *http.Request) (uint64, error) {
	idStr := chi.URLParam(r, "userID")
	if idStr == "" {
		return 0, fmt.Errorf("missing userID")
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid userID: %w", err)
	}
	if id == 0 {
		return 0, fmt.Errorf("invalid userID: must be positive")
	}

	return id, nil
}

func parseBookingIDFromPath(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "bookingID"))
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB cap
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body")
		}

		return fmt.Errorf("invalid JSON")
	}

	return nil
}

func parseCompDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, booking.ErrInvalidDate
	}

	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, booking.ErrInvalidDate
	}

	return d, nil
}

// minorAsString renders a minor-unit amount as a 2-decimal string, the
// same wire shape the app uses everywhere for money.
func minorAsString(minor int64) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}

	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

type bookingResponse struct {
	ID              string `json:"id"`
	UserID          uint64 `json:"userId"`
	ClubID          string `json:"clubId"`
	GameType        string `json:"gameType"`
	TargetScore     int    `json:"targetScore"`
	Stake           string `json:"stake"`
	PotentialReturn string `json:"potentialReturn"`
	CompDate        string `json:"compDate"`
	Status          string `json:"status"`
	Result          string `json:"result"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

func toBookingResponse(b *booking.Booking) bookingResponse {
	return bookingResponse{
		ID:              b.ID.String(),
		UserID:          b.UserID,
		ClubID:          b.ClubID.String(),
		GameType:        string(b.GameType),
		TargetScore:     int(b.TargetScore),
		Stake:           minorAsString(b.StakeMinor),
		PotentialReturn: minorAsString(b.PotentialReturnMinor),
		CompDate:        b.CompDate.Format("2006-01-02"),
		Status:          string(b.Status),
		Result:          string(b.Result),
		CreatedAt:       b.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       b.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// mapServiceError translates the typed error kinds of the commit service
// into HTTP statuses so clients can branch deterministically.
func mapServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidStake),
		errors.Is(err, booking.ErrInvalidDate),
		errors.Is(err, booking.ErrInvalidGameType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, wallets.ErrInsufficientFunds):
		writeError(w, http.StatusConflict, "insufficient funds")
	case errors.Is(err, commit.ErrDeadlinePassed):
		writeError(w, http.StatusConflict, "cancellation deadline passed")
	case errors.Is(err, commit.ErrNotUpcoming):
		writeError(w, http.StatusConflict, "booking is no longer upcoming")
	case errors.Is(err, commit.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, bookings.ErrNotFound):
		writeError(w, http.StatusNotFound, "booking not found")
	case errors.Is(err, wallets.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "wallet account not found")
	case errors.Is(err, commit.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable, retry with the same idempotency key")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// --- Booking handlers ---

type commitRequest struct {
	ClubID         string `json:"clubId"`
	GameType       string `json:"gameType"`
	Stake          int64  `json:"stake"`
	CompDate       string `json:"compDate"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// CommitBookingHandler handles POST /user/{userID}/bookings
func (h *HandlerProvider) CommitBookingHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userID in path")
		return
	}

	var req commitRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, err := uuid.Parse(req.IdempotencyKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, "idempotencyKey must be a UUID")
		return
	}

	clubID, err := uuid.Parse(req.ClubID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "clubId must be a UUID")
		return
	}

	stakeMinor, err := booking.StakeFromUnits(req.Stake)
	if err != nil {
		writeError(w, http.StatusBadRequest, "stake must be one of 10, 20, 50")
		return
	}

	compDate, err := parseCompDate(req.CompDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "compDate must be YYYY-MM-DD")
		return
	}

	target, err := booking.TargetFor(booking.GameType(req.GameType))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown gameType")
		return
	}

	b, err := h.svc.Commit(r.Context(), commit.CommitRequest{
		UserID: userID,
		Draft: booking.Draft{
			ClubID:      clubID,
			GameType:    booking.GameType(req.GameType),
			TargetScore: target,
			StakeMinor:  stakeMinor,
			CompDate:    compDate,
		},
		IdempotencyKey: key,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBookingResponse(b))
}

type editRequest struct {
	Stake          int64  `json:"stake"`
	CompDate       string `json:"compDate"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// EditBookingHandler handles PATCH /user/{userID}/bookings/{bookingID}
func (h *HandlerProvider) EditBookingHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userID in path")
		return
	}

	bookingID, err := parseBookingIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bookingID in path")
		return
	}

	var req editRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, err := uuid.Parse(req.IdempotencyKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, "idempotencyKey must be a UUID")
		return
	}

	stakeMinor, err := booking.StakeFromUnits(req.Stake)
	if err != nil {
		writeError(w, http.StatusBadRequest, "stake must be one of 10, 20, 50")
		return
	}

	compDate, err := parseCompDate(req.CompDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "compDate must be YYYY-MM-DD")
		return
	}

	b, err := h.svc.Edit(r.Context(), commit.EditRequest{
		UserID:         userID,
		BookingID:      bookingID,
		StakeMinor:     stakeMinor,
		CompDate:       compDate,
		IdempotencyKey: key,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

// CancelBookingHandler handles POST /user/{userID}/bookings/{bookingID}/cancel
func (h *HandlerProvider) CancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userID in path")
		return
	}

	bookingID, err := parseBookingIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bookingID in path")
		return
	}

	err = h.svc.Cancel(r.Context(), userID, bookingID)
	if err != nil {
		mapServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// GetBookingHandler handles GET /user/{userID}/bookings/{bookingID}
func (h *HandlerProvider) GetBookingHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userID in path")
		return
	}

	bookingID, err := parseBookingIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bookingID in path")
		return
	}

	b, err := h.svc.GetBooking(r.Context(), userID, bookingID)
	if err != nil {
		mapServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

// ListBookingsHandler handles GET /user/{userID}/bookings
func (h *HandlerProvider) ListBookingsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userID in path")
		return
	}

	list, err := h.svc.ListBookings(r.Context(), userID)
	if err != nil {
		mapServiceError(w, err)
		return
	}

	resp := make([]bookingResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toBookingResponse(&list[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Wallet handlers ---

// GetWalletHandler handles GET /user/{userID}/wallet
func (h *HandlerProvider) GetWalletHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userID in path")
		return
	}

	acct, err := h.svc.WalletBalance(r.Context(), userID)
	if err != nil {
		mapServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId":  acct.UserID,
		"balance": minorAsString(acct.BalanceMinor),
	})
}

// ListWalletEntriesHandler handles GET /user/{userID}/wallet/entries
func (h *HandlerProvider) ListWalletEntriesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userID in path")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	entries, err := h.svc.WalletHistory(r.Context(), userID, limit)
	if err != nil {
		mapServiceError(w, err)
		return
	}

	type entryResponse struct {
		ID           string `json:"id"`
		BookingID    string `json:"bookingId"`
		Direction    string `json:"direction"`
		Amount       string `json:"amount"`
		BalanceAfter string `json:"balanceAfter"`
		CreatedAt    string `json:"createdAt"`
	}

	resp := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, entryResponse{
			ID:           e.ID.String(),
			BookingID:    e.BookingID.String(),
			Direction:    string(e.Direction),
			Amount:       minorAsString(e.AmountMinor),
			BalanceAfter: minorAsString(e.BalanceAfterMinor),
			CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Verification handlers ---

type issueCodeRequest struct {
	Email string `json:"email"`
}

// IssueCodeHandler handles POST /verification/codes
func (h *HandlerProvider) IssueCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req issueCodeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.verify.Issue(r.Context(), req.Email)
	if err != nil {
		mapVerificationError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

type confirmCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ConfirmCodeHandler handles POST /verification/confirm
func (h *HandlerProvider) ConfirmCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req confirmCodeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.verify.Confirm(r.Context(), req.Email, req.Code)
	if err != nil {
		mapVerificationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func mapVerificationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, verification.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid argument")
	case errors.Is(err, verification.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "code invalid or expired")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
