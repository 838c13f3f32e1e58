package httpapi

import (
	"net/http"

	"mediarelay/internal/http/handlers"
	mw "mediarelay/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Options carries the cross-cutting settings of the router.
type Options struct {
	Logger         zerolog.Logger
	AllowedOrigins []string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.RequestID,
		middleware.RealIP,
		mw.Logger(opts.Logger),
		middleware.Recoverer,
		mw.CORS(opts.AllowedOrigins),
	)

	r.Get("/healthz", app.Health)
	r.Method(http.MethodGet, "/metrics", app.MetricsHandler())
	r.Get("/openapi.json", app.OpenAPIJSON)
	r.Get("/docs", app.OpenAPIDocs)

	r.Post("/products/random", app.RandomProduct)
	r.Post("/generate", app.Generate)

	r.Route("/results/{jobId}", func(r chi.Router) {
		r.Post("/", app.StoreResult)
		r.Get("/", app.GetResult)
		r.Delete("/", app.DeleteResult)
	})
	r.Get("/status/{jobId}", app.PollStatus)
	r.Get("/jobs/{jobId}", app.JobStatus)

	return r
}
