package httpapi

import (
	"net/http"

	"github.com/auctionhq/auction-backend/internal/auth"
	"github.com/auctionhq/auction-backend/internal/hub"
	"github.com/auctionhq/auction-backend/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func SetupRoutes(a *API, h *hub.Hub, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, log))

	// Tenant-scoped routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Route("/teams", func(r chi.Router) {
			r.Post("/", a.CreateTeam)
			r.Get("/", a.ListTeams)
			r.Delete("/{teamID}", a.DeleteTeam)
		})

		r.Route("/players", func(r chi.Router) {
			r.Post("/", a.CreatePlayer)
			r.Get("/", a.ListPlayers)
			r.Post("/{playerID}/sell", a.SellPlayer)
			r.Post("/{playerID}/unsold", a.MarkUnsold)
			r.Post("/{playerID}/remove", a.RemoveFromTeam)
			r.Post("/{playerID}/change-team", a.ChangeTeam)
		})

		r.Post("/admin/reset", a.Reset)
	})
	return r
}
