package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/auctionhq/auction-backend/internal/auth"
	"github.com/auctionhq/auction-backend/internal/engine"
	"github.com/auctionhq/auction-backend/internal/store"
	"github.com/auctionhq/auction-backend/pkg/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type API struct {
	engine *engine.Engine
	ledger store.Ledger
	log    *zap.Logger
}

func New(eng *engine.Engine, ledger store.Ledger, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{engine: eng, ledger: ledger, log: log}
}

func (a *API) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req types.CreateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	team, err := a.engine.CreateTeam(r.Context(), auth.FromContext(r.Context()), req.Name, req.Budget, req.TotalSlots)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (a *API) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := a.ledger.TeamsForOwner(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (a *API) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	err := a.engine.DeleteTeam(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "teamID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req types.CreatePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	player, err := a.engine.CreatePlayer(r.Context(), auth.FromContext(r.Context()), req.Name)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

func (a *API) ListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := a.ledger.PlayersForOwner(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (a *API) SellPlayer(w http.ResponseWriter, r *http.Request) {
	var req types.SellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	rcpt, err := a.engine.Sell(r.Context(), auth.FromContext(r.Context()),
		chi.URLParam(r, "playerID"), req.TeamID, req.Amount)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rcpt)
}

func (a *API) MarkUnsold(w http.ResponseWriter, r *http.Request) {
	rcpt, err := a.engine.MarkUnsold(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "playerID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rcpt)
}

func (a *API) RemoveFromTeam(w http.ResponseWriter, r *http.Request) {
	rcpt, err := a.engine.RemoveFromTeam(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "playerID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rcpt)
}

func (a *API) ChangeTeam(w http.ResponseWriter, r *http.Request) {
	var req types.ChangeTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	rcpt, err := a.engine.ChangeTeam(r.Context(), auth.FromContext(r.Context()),
		chi.URLParam(r, "playerID"), req.TeamID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rcpt)
}

func (a *API) Reset(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.Reset(r.Context(), auth.FromContext(r.Context())); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, types.ErrorResponse{
		Code:      engine.Code(err),
		Message:   err.Error(),
		Retryable: engine.Retryable(err),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrTenantMismatch):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrAlreadySold),
		errors.Is(err, engine.ErrInvalidState),
		errors.Is(err, engine.ErrSameTeam),
		errors.Is(err, engine.ErrTeamNotEmpty),
		errors.Is(err, engine.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInsufficientBudget),
		errors.Is(err, engine.ErrNoSlotsAvailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrOrphanedRecord):
		return http.StatusInternalServerError
	default:
		return http.StatusServiceUnavailable
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
