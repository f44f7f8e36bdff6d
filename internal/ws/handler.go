package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/auctionhq/auction-backend/internal/auth"
	"github.com/auctionhq/auction-backend/internal/engine"
	"github.com/auctionhq/auction-backend/internal/hub"
	"github.com/auctionhq/auction-backend/pkg/types"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// Handler upgrades to a websocket and streams the caller's tenant events.
// The socket is one-way: transactions go over HTTP, the stream only tells
// clients something changed.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := auth.OwnerID(r)
		if ownerID == "" {
			http.Error(w, "missing auctioneer identity", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan engine.Event, 16)
		connID := uuid.NewString()
		if err := h.Join(ownerID, connID, out); err != nil {
			conn.Close(websocket.StatusInternalError, "bus unavailable")
			return
		}
		defer h.Leave(ownerID, connID)

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for evt := range out {
				payload, err := json.Marshal(toMessage(evt))
				if err != nil {
					log.Error("encode event", zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop: clients send nothing meaningful, but reading services
		// control frames and tells us when they hang up.
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}
		}
	}
}

func toMessage(evt engine.Event) types.ServerMessage {
	switch e := evt.(type) {
	case engine.PlayerSold:
		return types.ServerMessage{Type: string(e.Kind()), Player: &e.Player, Team: &e.Team}
	case engine.PlayerMarkedUnsold:
		return types.ServerMessage{Type: string(e.Kind()), Player: &e.Player}
	case engine.PlayerRemovedFromTeam:
		return types.ServerMessage{Type: string(e.Kind()), Player: &e.Player, Team: &e.Team}
	case engine.PlayerTeamChanged:
		return types.ServerMessage{Type: string(e.Kind()), Player: &e.Player, FromTeam: &e.FromTeam, ToTeam: &e.ToTeam}
	case engine.TeamUpdated:
		return types.ServerMessage{Type: string(e.Kind()), Team: &e.Team, Deleted: e.Deleted}
	case engine.DataReset:
		return types.ServerMessage{Type: string(e.Kind()), OwnerID: e.OwnerID}
	default:
		return types.ServerMessage{Type: string(evt.Kind())}
	}
}
