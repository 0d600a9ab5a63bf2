package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) http.Handler {
	mw := NewMiddleware(h.log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(middleware.Recoverer)
	r.Use(mw.CORS(h.cfg.CORSOrigins))

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Login)
		r.Post("/auth/signup", h.Signup)

		r.Post("/drafts", h.CreateDraft)
		r.Route("/drafts/{draftId}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				h.GetDraft(w, r, chi.URLParam(r, "draftId"))
			})
			r.Put("/", func(w http.ResponseWriter, r *http.Request) {
				h.UpdateDraft(w, r, chi.URLParam(r, "draftId"))
			})
			r.With(mw.UploadRateLimit(h.cfg.UploadsPerMinute)).Post("/ticket", func(w http.ResponseWriter, r *http.Request) {
				h.UploadTicket(w, r, chi.URLParam(r, "draftId"))
			})
			r.Post("/submit", func(w http.ResponseWriter, r *http.Request) {
				h.SubmitDraft(w, r, chi.URLParam(r, "draftId"))
			})
		})

		r.Route("/claims/{reference}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				h.GetClaim(w, r, chi.URLParam(r, "reference"))
			})
			r.Post("/process", func(w http.ResponseWriter, r *http.Request) {
				h.ProcessClaim(w, r, chi.URLParam(r, "reference"))
			})
			r.Get("/history", func(w http.ResponseWriter, r *http.Request) {
				h.ClaimHistory(w, r, chi.URLParam(r, "reference"))
			})
		})

		r.Get("/users/{userId}/claims", func(w http.ResponseWriter, r *http.Request) {
			h.ListUserClaims(w, r, chi.URLParam(r, "userId"))
		})
	})

	return r
}
