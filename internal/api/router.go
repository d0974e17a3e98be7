package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/speakify/internal/api/handlers"
	"github.com/nikhilbhutani/speakify/internal/api/middleware"
	"github.com/nikhilbhutani/speakify/internal/auth"
	"github.com/nikhilbhutani/speakify/internal/converter"
	"github.com/nikhilbhutani/speakify/internal/notify"
)

type Deps struct {
	Converter      *converter.Converter
	Session        *auth.Session
	History        handlers.HistorySource // optional
	Hub            *notify.Hub
	Checks         map[string]handlers.Pinger
	AllowedOrigins []string
	RequireAuth    bool   // gate /api on a signed-in session
	FilesDir       string // served under /files when set
}

type Router struct {
	mux  *chi.Mux
	deps Deps
	rl   *middleware.RateLimiter
}

func NewRouter(deps Deps) *Router {
	return &Router{
		mux:  chi.NewRouter(),
		deps: deps,
		rl:   middleware.NewRateLimiter(20, 40),
	}
}

// Close releases background resources held by middleware.
func (rt *Router) Close() {
	rt.rl.Stop()
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.deps.AllowedOrigins))

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.deps.Checks)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	if rt.deps.Hub != nil {
		r.Get("/ws", rt.deps.Hub.ServeHTTP)
	}
	if rt.deps.FilesDir != "" {
		r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(rt.deps.FilesDir))))
	}

	var publisher handlers.StatePublisher
	if rt.deps.Hub != nil {
		publisher = rt.deps.Hub
	}
	convH := handlers.NewConverterHandler(rt.deps.Converter, publisher)
	sessionH := handlers.NewSessionHandler(rt.deps.Session)

	r.Route("/api", func(r chi.Router) {
		r.Use(rt.rl.Limit)

		r.Post("/session/login", sessionH.Login)

		r.Group(func(r chi.Router) {
			if rt.deps.RequireAuth {
				r.Use(auth.RequireUser(rt.deps.Session))
			}

			r.Get("/me", sessionH.Me)
			r.Post("/logout", sessionH.Logout)

			r.Get("/voices", convH.Voices)

			r.Route("/converter", func(r chi.Router) {
				r.Get("/", convH.State)
				r.Put("/mode", convH.SelectMode)

				r.Patch("/tts", convH.UpdateTextToSpeech)
				r.Post("/tts/submit", convH.SubmitTextToSpeech)
				r.Post("/tts/download", convH.Download)

				r.Post("/asr/file", convH.SelectFile)
				r.Post("/asr/submit", convH.SubmitSpeechToText)
				r.Post("/asr/copy", convH.Copy)

				r.Get("/usage", convH.Usage)
				r.Post("/usage/refresh", convH.RefreshUsage)
			})

			if rt.deps.History != nil {
				historyH := handlers.NewHistoryHandler(rt.deps.History)
				r.Route("/history", func(r chi.Router) {
					r.Get("/", historyH.List)
					r.Delete("/{id}", historyH.Delete)
				})
			}
		})
	})

	return r
}
