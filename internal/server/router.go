package server

import (
	"net/http"

	"github.com/maruel/sheetgrid/internal/server/handlers"
	"github.com/maruel/sheetgrid/internal/storage"
)

// Options configures NewRouter.
type Options struct {
	Version           string
	DefaultWindowSize int
	// JWTSecret enables bearer token authentication when not empty.
	JWTSecret []byte
	Config
}

// NewRouter creates and configures the HTTP router.
func NewRouter(db *storage.DB, svc *storage.Services, opts *Options) http.Handler {
	mux := http.NewServeMux()
	cfg := &opts.Config

	gh := handlers.NewGridHandler(svc, opts.DefaultWindowSize)
	hh := handlers.NewHealthHandler(opts.Version, db.Driver())
	eh := handlers.NewExportHandler(svc)

	mux.Handle("GET /api/health", Wrap(hh.Health, cfg))
	mux.Handle("GET /api/schema", Wrap(handlers.Schema, cfg))

	mux.Handle("POST /api/tables", Wrap(gh.CreateTable, cfg))
	mux.Handle("GET /api/tables/{tableID}/columns", Wrap(gh.GetColumns, cfg))
	mux.Handle("POST /api/tables/{tableID}/columns", Wrap(gh.CreateColumn, cfg))
	mux.Handle("POST /api/tables/{tableID}/rows", Wrap(gh.CreateRow, cfg))
	mux.Handle("POST /api/tables/{tableID}/rows/query", Wrap(gh.QueryRows, cfg))
	mux.Handle("GET /api/tables/{tableID}/export.xlsx", WrapRaw(eh.ExportXLSX, cfg))
	mux.Handle("PUT /api/rows/{rowID}/cells/{columnID}", Wrap(gh.UpdateCell, cfg))

	var h http.Handler = mux
	if len(opts.JWTSecret) > 0 {
		h = AuthMiddleware(opts.JWTSecret)(h)
	}
	return LoggingMiddleware(h)
}
