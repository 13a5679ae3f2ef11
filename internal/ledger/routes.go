package ledger

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes wires the journal editor endpoints under a company scope.
// The import upload gets its own tighter rate limit since parsing a
// workbook is the most expensive request this surface serves.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/companies/{companyID}/ledger", func(r chi.Router) {
		r.Get("/drafts", h.List)
		r.Post("/drafts", h.Save)
		r.Get("/drafts/{id}", h.Open)
		r.Delete("/drafts/{id}", h.Delete)
		r.Post("/drafts/{id}/post", h.Post)
		r.Post("/post-batch", h.PostBatch)
		r.With(httprate.Limit(6, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))).
			Post("/import", h.Import)
		r.Post("/counterparties", h.CreateCounterparty)
		r.Post("/catalog/refresh", h.RefreshCatalog)
	})
}
