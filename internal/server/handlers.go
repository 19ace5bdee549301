package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"slices"

	"github.com/gorilla/mux"

	"github.com/nao1215/fairhire/internal/model"
	"github.com/nao1215/fairhire/internal/pipeline"
	"github.com/nao1215/fairhire/internal/predictor"
)

// allowedContentTypes are accepted for the dataset upload. Browsers and
// curl label CSV files inconsistently, so the list is generous.
var allowedContentTypes = []string{
	"text/csv",
	"application/csv",
	"text/plain",
	"application/vnd.ms-excel",
	"application/octet-stream",
}

// AuditResponse is returned by POST /api/v1/audit.
type AuditResponse struct {
	AuditID string       `json:"audit_id"`
	Status  model.Status `json:"status"`
	Report  string       `json:"report"`
}

// ListResponse is returned by GET /api/v1/audits.
type ListResponse struct {
	AuditIDs []string `json:"audit_ids"`
}

// requestError is a client mistake in the upload itself.
type requestError struct {
	status int
	code   string
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) *requestError {
	return &requestError{status: http.StatusBadRequest, code: ErrCodeInvalidRequest, msg: fmt.Sprintf(format, args...)}
}

func (s *Server) createAudit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize+formOverhead)

	req, cleanup, err := s.parseAuditRequest(r)
	defer cleanup()
	if err != nil {
		var re *requestError
		if errors.As(err, &re) {
			respondError(w, re.status, re.code, re.msg)
			return
		}
		s.respondAuditError(w, r, err)
		return
	}

	rec, err := s.runner.Run(r.Context(), req)
	if err != nil {
		s.respondAuditError(w, r, err)
		return
	}

	if err := s.store.Save(r.Context(), req.ID, rec, s.ttl); err != nil {
		s.logger.Error("failed to store audit", "audit", req.ID, "error", err)
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to store audit")
		return
	}

	s.logger.Info("audit completed",
		"audit", req.ID,
		"findings", len(rec.Findings),
		"bias_count", rec.BiasCount(),
	)
	respondJSON(w, http.StatusOK, AuditResponse{
		AuditID: req.ID,
		Status:  rec.Status,
		Report:  rec.Report,
	})
}

// parseAuditRequest reads the multipart form and spools the dataset to a
// temporary file. cleanup is always safe to call.
func (s *Server) parseAuditRequest(r *http.Request) (pipeline.Request, func(), error) {
	cleanup := func() {}

	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return pipeline.Request{}, cleanup, &requestError{
				status: http.StatusRequestEntityTooLarge,
				code:   ErrCodePayloadTooLarge,
				msg:    fmt.Sprintf("upload exceeds %d bytes", s.maxUploadSize),
			}
		}
		return pipeline.Request{}, cleanup, badRequest("expected a multipart form: %v", err)
	}
	if r.MultipartForm != nil {
		cleanup = func() { _ = r.MultipartForm.RemoveAll() }
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return pipeline.Request{}, cleanup, badRequest("missing dataset file in form field \"file\"")
	}
	defer file.Close()

	if header.Size > s.maxUploadSize {
		return pipeline.Request{}, cleanup, &requestError{
			status: http.StatusRequestEntityTooLarge,
			code:   ErrCodePayloadTooLarge,
			msg:    fmt.Sprintf("dataset exceeds %d bytes", s.maxUploadSize),
		}
	}
	if err := checkContentType(header); err != nil {
		return pipeline.Request{}, cleanup, err
	}

	req := pipeline.Request{
		ID:                  s.newID(),
		ProtectedAttributes: s.defaults.ProtectedAttributes,
		PrivilegedGroups:    s.defaults.PrivilegedGroups,
		UnprivilegedGroups:  s.defaults.UnprivilegedGroups,
		LabelColumn:         s.defaults.LabelColumn,
	}
	if err := decodeFormJSON(r, "protected_attrs", &req.ProtectedAttributes); err != nil {
		return pipeline.Request{}, cleanup, err
	}
	if err := decodeFormJSON(r, "privileged_groups", &req.PrivilegedGroups); err != nil {
		return pipeline.Request{}, cleanup, err
	}
	if err := decodeFormJSON(r, "unprivileged_groups", &req.UnprivilegedGroups); err != nil {
		return pipeline.Request{}, cleanup, err
	}
	if v := r.FormValue("label_col"); v != "" {
		req.LabelColumn = v
	}

	if mf, _, err := r.FormFile("model"); err == nil {
		lm, perr := predictor.Parse(mf)
		_ = mf.Close()
		if perr != nil {
			return pipeline.Request{}, cleanup, badRequest("invalid model: %v", perr)
		}
		req.PredictFn = lm.PredictFunc()
	} else if !errors.Is(err, http.ErrMissingFile) {
		return pipeline.Request{}, cleanup, badRequest("invalid model upload: %v", err)
	}

	path, err := s.spool(file)
	if err != nil {
		return pipeline.Request{}, cleanup, err
	}
	prev := cleanup
	cleanup = func() {
		_ = os.Remove(path)
		prev()
	}
	req.DatasetLocation = path
	return req, cleanup, nil
}

func checkContentType(header *multipart.FileHeader) error {
	ct := header.Header.Get("Content-Type")
	if ct == "" {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil || !slices.Contains(allowedContentTypes, mediaType) {
		return &requestError{
			status: http.StatusUnsupportedMediaType,
			code:   ErrCodeUnsupportedMedia,
			msg:    fmt.Sprintf("unsupported dataset content type %q", ct),
		}
	}
	return nil
}

// decodeFormJSON replaces *dst with the decoded field when it is present.
// It decodes into a fresh value so shared defaults are never written to.
func decodeFormJSON[T any](r *http.Request, field string, dst *T) error {
	v := r.FormValue(field)
	if v == "" {
		return nil
	}
	var out T
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		return badRequest("invalid JSON in form field %q: %v", field, err)
	}
	*dst = out
	return nil
}

// spool copies the upload to a temporary CSV file the dataset loader can open.
func (s *Server) spool(src io.Reader) (string, error) {
	tmp, err := os.CreateTemp(s.tempDir, "fairhire-upload-*.csv")
	if err != nil {
		return "", fmt.Errorf("failed to create spool file: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to spool upload: %w", err)
	}
	return tmp.Name(), nil
}

func (s *Server) getAudit(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, found, err := s.store.Recall(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to recall audit", "audit", id, "error", err)
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to read audit")
		return
	}
	if !found {
		s.respondAuditError(w, r, model.RecordNotFound(id))
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteAudit(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	existed, err := s.store.Delete(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to delete audit", "audit", id, "error", err)
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to delete audit")
		return
	}
	if !existed {
		s.respondAuditError(w, r, model.RecordNotFound(id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listAudits(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.ListIDs(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		s.logger.Error("failed to list audits", "error", err)
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to list audits")
		return
	}
	slices.Sort(ids)
	respondJSON(w, http.StatusOK, ListResponse{AuditIDs: ids})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
