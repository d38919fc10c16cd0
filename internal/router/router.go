package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"script-backend/internal/handlers"
	"script-backend/internal/middleware"
	"script-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	chatHandler *handlers.ChatHandler,
	historyHandler *handlers.HistoryHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Append limiter (every append costs a generation call)
	sendLimiter := middleware.NewRateLimiter(20, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Chat Session Routes ────
		r.Route("/chat", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", chatHandler.GetChat)

			r.Group(func(r chi.Router) {
				r.Use(sendLimiter.Middleware)
				r.Post("/", chatHandler.SendMessage)
			})
		})

		// ──── History Routes ────
		r.Route("/history", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", historyHandler.List)
			r.Delete("/", historyHandler.Delete)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
