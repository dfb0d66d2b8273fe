package calculator

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts all calculator endpoints onto the given router
// under the /calculator prefix.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/calculator", func(r chi.Router) {
		r.Post("/sessions", a.CreateSession)

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", a.GetSession)
			r.Delete("/", a.DeleteSession)

			r.Post("/input", a.AppendToken)
			r.Delete("/input", a.DeleteLast)
			r.Post("/clear", a.Clear)
			r.Post("/keys", a.PressKey)

			r.Post("/calculate", a.Calculate)
			r.Post("/solve", a.Solve)
			r.Put("/mode", a.SetMode)

			r.Get("/history", a.GetHistory)
			r.Post("/history/{entryID}/restore", a.RestoreHistory)
			r.Delete("/history", a.ClearHistory)
		})
	})
}
