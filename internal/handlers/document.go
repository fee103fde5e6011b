package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/docflow/apiserver/internal/auth"
	"github.com/docflow/apiserver/internal/delivery"
	"github.com/docflow/apiserver/internal/services"
	"github.com/docflow/apiserver/internal/storage"
	"github.com/docflow/apiserver/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ArchiveReader fetches archived document snapshots.
type ArchiveReader interface {
	ReadAll(ctx context.Context, key string) ([]byte, error)
}

// DocumentHandler provides HTTP handlers for documents.
type DocumentHandler struct {
	documents *services.DocumentService
	archive   ArchiveReader
	logger    *zap.Logger
}

func NewDocumentHandler(documents *services.DocumentService, archive ArchiveReader, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		archive:   archive,
		logger:    logger,
	}
}

// DocumentRouter registers document routes. Every route requires a bearer
// token; role rules are enforced by the lifecycle service. archive may be nil.
func DocumentRouter(
	r chi.Router,
	documents *services.DocumentService,
	archive ArchiveReader,
	authMiddleware func(http.Handler) http.Handler,
	logger *zap.Logger,
) {
	handler := NewDocumentHandler(documents, archive, logger)

	r.Use(authMiddleware)
	r.Get("/", handler.ListDocuments)
	r.Post("/", handler.CreateDocument)
	r.Route("/{documentID}", func(r chi.Router) {
		r.Get("/", handler.GetDocument)
		r.Patch("/", handler.UpdateDocument)
		r.Delete("/", handler.DeleteDocument)
		r.Post("/send", handler.SendDocument)
		r.Get("/archive", handler.GetArchivedDocument)
	})
}

func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	filter, err := parseDocumentFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.documents.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []types.Document{}
	}

	writeJSON(w, http.StatusOK, DocumentListResponse{
		Items:  items,
		Total:  total,
		Limit:  services.EffectiveLimit(filter.Limit),
		Offset: filter.Offset,
	})
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := parseDocumentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	document, err := h.documents.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, document)
}

func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req services.CreateDocumentInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	document, err := h.documents.Create(r.Context(), identity, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateDocumentResponse{ID: document.ID, Status: document.Status})
}

func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, err := parseDocumentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UpdateDocumentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	document, err := h.documents.Update(r.Context(), identity, id, types.DocumentPatch{
		Code:    req.Code,
		Subject: req.Subject,
		Sender:  req.Sender,
		Message: req.Message,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, UpdateDocumentResponse{Message: "document updated", Document: document})
}

func (h *DocumentHandler) SendDocument(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, err := parseDocumentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.documents.Send(r.Context(), identity, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "document sent"})
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, err := parseDocumentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.documents.Delete(r.Context(), identity, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "document deleted"})
}

// GetArchivedDocument returns the snapshot stored when the document was sent.
func (h *DocumentHandler) GetArchivedDocument(w http.ResponseWriter, r *http.Request) {
	id, err := parseDocumentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.archive == nil {
		writeError(w, http.StatusNotFound, "document archive is disabled")
		return
	}

	document, err := h.documents.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if document.Status != types.StatusSent {
		writeError(w, http.StatusNotFound, "document has not been sent")
		return
	}

	body, err := h.archive.ReadAll(r.Context(), delivery.ArchiveKey(document.Code))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeError(w, http.StatusNotFound, "archived copy not found")
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *DocumentHandler) identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, h.logger, auth.ErrMissingToken)
	}
	return identity, ok
}

// UpdateDocumentRequest is the PATCH body. receiver is not accepted.
type UpdateDocumentRequest struct {
	Code    *int64  `json:"code"`
	Subject *string `json:"subject"`
	Sender  *string `json:"sender"`
	Message *string `json:"message"`
}

type CreateDocumentResponse struct {
	ID     int          `json:"id"`
	Status types.Status `json:"status"`
}

type UpdateDocumentResponse struct {
	Message  string         `json:"message"`
	Document types.Document `json:"document"`
}

type DocumentListResponse struct {
	Items  []types.Document `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

func parseDocumentID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "documentID")))
	if err != nil || id < 1 {
		return 0, errors.New("invalid document id")
	}
	return id, nil
}

func parseDocumentFilter(r *http.Request) (types.DocumentFilter, error) {
	query := r.URL.Query()
	filter := types.DocumentFilter{
		Status: types.Status(strings.TrimSpace(query.Get("status"))),
	}

	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return types.DocumentFilter{}, errors.New("invalid limit")
		}
		filter.Limit = limit
	}
	if raw := strings.TrimSpace(query.Get("offset")); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return types.DocumentFilter{}, errors.New("invalid offset")
		}
		filter.Offset = offset
	}
	return filter, nil
}
