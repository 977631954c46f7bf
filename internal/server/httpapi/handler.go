package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/ledger"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type loginRequest struct {
	Identity string `json:"identity"`
}

type uploadRequest struct {
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

type usageResponse struct {
	Usage models.Usage `json:"usage"`
}

type uploadResponse struct {
	Grant *ledger.UploadGrant `json:"grant"`
}

type downloadResponse struct {
	URL string `json:"url"`
}

type fileSummary struct {
	ID        string    `json:"id"`
	SizeBytes int64     `json:"size_bytes"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

type listResponse struct {
	Files []fileSummary `json:"files"`
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.NewError(common.KindValidation, "malformed request body")
	}
	return nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.ledger.Authenticate(r.Context(), req.Identity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRequestUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	grant, err := s.ledger.RequestUpload(r.Context(), tenantIdentity(r.Context()), req.MimeType, req.SizeBytes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{Grant: grant})
}

func (s *Server) handleCompleteUpload(w http.ResponseWriter, r *http.Request) {
	usage, err := s.ledger.CompleteUpload(r.Context(), tenantIdentity(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, usageResponse{Usage: *usage})
}

func (s *Server) handleRequestReplace(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	grant, err := s.ledger.RequestReplace(r.Context(), tenantIdentity(r.Context()), r.PathValue("id"), req.MimeType, req.SizeBytes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{Grant: grant})
}

func (s *Server) handleCompleteReplace(w http.ResponseWriter, r *http.Request) {
	usage, err := s.ledger.CompleteReplace(r.Context(), tenantIdentity(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, usageResponse{Usage: *usage})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	list, err := s.ledger.ListFiles(r.Context(), tenantIdentity(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]fileSummary, 0, len(list))
	for _, f := range list {
		out = append(out, fileSummary{
			ID:        f.ID,
			SizeBytes: f.SizeBytes,
			MimeType:  f.MimeType,
			CreatedAt: f.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, listResponse{Files: out})
}

func (s *Server) handleRequestDownload(w http.ResponseWriter, r *http.Request) {
	url, err := s.ledger.RequestDownload(r.Context(), tenantIdentity(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, downloadResponse{URL: url})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	usage, err := s.ledger.DeleteFile(r.Context(), tenantIdentity(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, usageResponse{Usage: *usage})
}
