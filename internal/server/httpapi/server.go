// Package httpapi exposes the ledger's operations over a thin JSON HTTP
// surface. It owns routing, bearer-token authentication, rate limiting and
// the error-kind to status-code mapping; all decisions live in the ledger.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/ledger"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// Ledger is the operation surface the transport needs from the account ledger.
type Ledger interface {
	Authenticate(ctx context.Context, rawIdentity string) (*ledger.AuthResult, error)
	RequestUpload(ctx context.Context, tenantID, mimeType string, sizeBytes int64) (*ledger.UploadGrant, error)
	CompleteUpload(ctx context.Context, tenantID, fileID string) (*models.Usage, error)
	RequestReplace(ctx context.Context, tenantID, fileID, mimeType string, sizeBytes int64) (*ledger.UploadGrant, error)
	CompleteReplace(ctx context.Context, tenantID, fileID string) (*models.Usage, error)
	ListFiles(ctx context.Context, tenantID string) ([]*models.File, error)
	RequestDownload(ctx context.Context, tenantID, fileID string) (string, error)
	DeleteFile(ctx context.Context, tenantID, fileID string) (*models.Usage, error)
}

type Server struct {
	address string
	ledger  Ledger
	db      *sql.DB
	logger  logging.Logger
	secret  []byte
	limiter Limiter

	now func() time.Time
}

func NewServer(address string, l Ledger, db *sql.DB, logger logging.Logger, secret []byte, limiter Limiter) *Server {
	if limiter == nil {
		limiter = NewMemoryLimiter(60, time.Minute)
	}
	return &Server{
		address: address,
		ledger:  l,
		db:      db,
		logger:  logger.With("module", "httpapi"),
		secret:  secret,
		limiter: limiter,
		now:     time.Now,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/healthz", s.handleHealthz)
	mux.HandleFunc("POST /api/login", s.rateLimited(s.handleLogin))

	mux.HandleFunc("POST /api/files", s.authenticated(s.handleRequestUpload))
	mux.HandleFunc("POST /api/files/{id}/complete", s.authenticated(s.handleCompleteUpload))
	mux.HandleFunc("GET /api/files", s.authenticated(s.handleListFiles))
	mux.HandleFunc("GET /api/files/{id}/url", s.authenticated(s.handleRequestDownload))
	mux.HandleFunc("PUT /api/files/{id}", s.authenticated(s.handleRequestReplace))
	mux.HandleFunc("POST /api/files/{id}/replace-complete", s.authenticated(s.handleCompleteReplace))
	mux.HandleFunc("DELETE /api/files/{id}", s.authenticated(s.handleDeleteFile))

	return mux
}

// Run serves until the context is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		http.Error(w, "db unreachable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
