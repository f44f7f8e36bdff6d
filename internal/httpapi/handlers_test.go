package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auctionhq/auction-backend/internal/engine"
	"github.com/auctionhq/auction-backend/internal/hub"
	"github.com/auctionhq/auction-backend/internal/model"
	"github.com/auctionhq/auction-backend/internal/store"
	"github.com/auctionhq/auction-backend/pkg/types"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (http.Handler, *store.MemoryLedger) {
	t.Helper()
	ledger := store.NewMemoryLedger()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.NewHub(ctx, nil)
	eng := engine.New(ledger, h, nil)
	return SetupRoutes(New(eng, ledger, nil), h, nil), ledger
}

func doJSON(t *testing.T, handler http.Handler, method, path, ownerID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if ownerID != "" {
		req.Header.Set("X-Auctioneer-ID", ownerID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAPI_SellFlow(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/teams", "owner-a",
		types.CreateTeamRequest{Name: "Strikers", Budget: 100_000, TotalSlots: 5})
	require.Equal(t, http.StatusCreated, rec.Code)
	var team model.Team
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&team))

	rec = doJSON(t, handler, http.MethodPost, "/players", "owner-a",
		types.CreatePlayerRequest{Name: "Ace"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var player model.Player
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&player))

	rec = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/players/%s/sell", player.ID), "owner-a",
		types.SellRequest{TeamID: team.ID, Amount: 20_000})
	require.Equal(t, http.StatusOK, rec.Code)
	var rcpt engine.Receipt
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rcpt))
	require.Equal(t, int64(80_000), rcpt.Teams[0].RemainingBudget)
	require.Equal(t, model.StatusSold, rcpt.Player.Status)

	rec = doJSON(t, handler, http.MethodGet, "/teams", "owner-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var teams []model.Team
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&teams))
	require.Len(t, teams, 1)
	require.Equal(t, 1, teams[0].FilledSlots)
}

func TestAPI_ErrorMapping(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/teams", "owner-a",
		types.CreateTeamRequest{Name: "Strikers", Budget: 1_000, TotalSlots: 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	var team model.Team
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&team))

	rec = doJSON(t, handler, http.MethodPost, "/players", "owner-a",
		types.CreatePlayerRequest{Name: "Ace"})
	var player model.Player
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&player))

	// Budget too small: actionable failure with a machine-readable code.
	rec = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/players/%s/sell", player.ID), "owner-a",
		types.SellRequest{TeamID: team.ID, Amount: 5_000})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var apiErr types.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
	require.Equal(t, "insufficient_budget", apiErr.Code)
	require.False(t, apiErr.Retryable)

	// Unknown player.
	rec = doJSON(t, handler, http.MethodPost, "/players/ghost/sell", "owner-a",
		types.SellRequest{TeamID: team.ID, Amount: 100})
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Cross-tenant access.
	rec = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/players/%s/sell", player.ID), "owner-b",
		types.SellRequest{TeamID: team.ID, Amount: 100})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPI_MissingIdentityRejected(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodGet, "/teams", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Health stays public.
	rec = doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_TenantScopedLists(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/teams", "owner-a",
		types.CreateTeamRequest{Name: "A", Budget: 1_000, TotalSlots: 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, handler, http.MethodPost, "/teams", "owner-b",
		types.CreateTeamRequest{Name: "B", Budget: 1_000, TotalSlots: 1})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/teams", "owner-a", nil)
	var teams []model.Team
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&teams))
	require.Len(t, teams, 1)
	require.Equal(t, "A", teams[0].Name)
}
