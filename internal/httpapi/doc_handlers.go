package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"docvault.org/internal/audit"
	"docvault.org/internal/blob"
	"docvault.org/internal/docstore"
	"docvault.org/internal/identity"
	"docvault.org/internal/registry"
	"docvault.org/internal/session"
)

type dashboardResponse struct {
	Owned  []docstore.Document       `json:"owned"`
	Shared []registry.SharedDocument `json:"shared"`
}

type shareRequest struct {
	Email      string `json:"email"`
	AccessType string `json:"access_type"`
}

type contentRequest struct {
	Content string `json:"content"`
}

func (a *API) handleDocumentsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.dashboard(w, r)
	case http.MethodPost:
		a.upload(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleDocumentResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	id, sub := path, ""
	if i := strings.Index(path, "/"); i >= 0 {
		id, sub = path[:i], path[i+1:]
	}
	if id == "" || strings.Contains(sub, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			a.getDocument(w, r, id)
		case http.MethodDelete:
			a.deleteDocument(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
		}
	case "download":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.download(w, r, id)
	case "content":
		switch r.Method {
		case http.MethodGet:
			a.getContent(w, r, id)
		case http.MethodPut:
			a.putContent(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
		}
	case "share":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.share(w, r, id)
	case "grants":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listGrants(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

// dashboard lists the caller's own documents and the ones shared to them.
func (a *API) dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := session.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	owned, err := a.registry.ListOwned(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	shared, err := a.registry.SharedWith(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{Owned: owned, Shared: shared})
}

func (a *API) upload(w http.ResponseWriter, r *http.Request) {
	actor, ok := session.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := r.ParseMultipartForm(a.opts.MaxBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, "multipart form is required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	title := r.FormValue("title")
	doc, err := a.registry.Upload(r.Context(), actor, title, header.Filename, file)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/documents/"+doc.ID)
	writeJSON(w, http.StatusCreated, doc)
}

func (a *API) getDocument(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := session.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	doc, err := a.registry.Get(r.Context(), actor, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (a *API) deleteDocument(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := session.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	if err := a.registry.Delete(r.Context(), actor, id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) download(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := session.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	doc, rc, err := a.registry.Download(r.Context(), actor, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	defer rc.Close()

	ct := mime.TypeByExtension(filepath.Ext(doc.StorageRef))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", `attachment; filename="`+sanitizeFilename(doc.Title)+`"`)
	_, _ = io.Copy(w, rc)
}

func (a *API) getContent(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := session.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	content, err := a.registry.Content(r.Context(), actor, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

func (a *API) putContent(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := session.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req contentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.registry.EditContent(r.Context(), actor, id, req.Content); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (a *API) share(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := session.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req shareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	detail, err := a.registry.Share(r.Context(), actor, id, req.Email, req.AccessType)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

func (a *API) listGrants(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := session.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	grants, err := a.registry.GrantsFor(r.Context(), actor, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": grants})
}

func sanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '"', '\\', '/', '\n', '\r':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		return "document"
	}
	return name
}

// --- helpers ---

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidCredential):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, registry.ErrAccessDenied):
		writeError(w, r, http.StatusForbidden, "access denied")
	case errors.Is(err, identity.ErrDuplicateEmail):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, registry.ErrUnsupportedOperation):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, identity.ErrNotFound),
		errors.Is(err, docstore.ErrNotFound),
		errors.Is(err, blob.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, identity.ErrInvalidInput),
		errors.Is(err, docstore.ErrInvalidInput),
		errors.Is(err, registry.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
