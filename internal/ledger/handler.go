package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/austral-erp/austral-erp/internal/ledger/catalog"
	"github.com/austral-erp/austral-erp/internal/ledger/drafts"
	"github.com/austral-erp/austral-erp/internal/ledger/importer"
	"github.com/austral-erp/austral-erp/internal/ledger/posting"
	"github.com/austral-erp/austral-erp/internal/ledger/shared"
	"github.com/austral-erp/austral-erp/internal/observability"
	"github.com/austral-erp/austral-erp/internal/platform/httpx"
)

// maxImportSize caps uploaded workbooks at 8 MiB.
const maxImportSize = 8 << 20

type Handler struct {
	logger      *slog.Logger
	drafts      *drafts.Service
	coordinator *posting.Coordinator
	pipeline    *importer.Pipeline
	catalogs    *catalog.Service
	metrics     *observability.Metrics
	validate    *validator.Validate
}

func NewHandler(logger *slog.Logger, draftSvc *drafts.Service, coordinator *posting.Coordinator, pipeline *importer.Pipeline, catalogs *catalog.Service, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:      logger,
		drafts:      draftSvc,
		coordinator: coordinator,
		pipeline:    pipeline,
		catalogs:    catalogs,
		metrics:     metrics,
		validate:    validator.New(),
	}
}

func (h *Handler) companyID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "companyID"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) entryID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.companyID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid company id")
		return
	}
	headers, err := h.drafts.ListDrafts(r.Context(), companyID)
	if err != nil {
		h.logger.Error("list drafts", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	out := make([]draftResponse, 0, len(headers))
	for _, header := range headers {
		out = append(out, toDraftResponse(header, nil, nil))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"drafts": out})
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.companyID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid company id")
		return
	}
	id, ok := h.entryID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	header, lines, err := h.drafts.OpenDraft(r.Context(), companyID, id)
	if err != nil {
		if errors.Is(err, shared.ErrEntryNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "entry not found")
			return
		}
		h.logger.Error("open draft", slog.Any("error", err), slog.String("entry_id", id.String()))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, toDraftResponse(header, lines, nil))
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.companyID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid company id")
		return
	}
	var req saveDraftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	header, lines, err := req.toDomain(companyID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}

	id, issues, err := h.drafts.SaveDraft(r.Context(), header, lines)
	if err != nil {
		if errors.Is(err, shared.ErrValidationFailed) {
			httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{"issues": issues})
			return
		}
		if errors.Is(err, shared.ErrNotDraft) {
			httpx.Problem(w, http.StatusConflict, "Conflict", "entry is no longer editable")
			return
		}
		h.logger.Error("save draft", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "issues": issues})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.companyID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid company id")
		return
	}
	id, ok := h.entryID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	if err := h.drafts.DeleteDraft(r.Context(), companyID, id); err != nil {
		switch {
		case errors.Is(err, shared.ErrEntryNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", "entry not found")
		case errors.Is(err, shared.ErrNotDraft):
			httpx.Problem(w, http.StatusConflict, "Conflict", "posted entries cannot be deleted")
		default:
			h.logger.Error("delete draft", slog.Any("error", err), slog.String("entry_id", id.String()))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.companyID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid company id")
		return
	}
	id, ok := h.entryID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	posted, issues, err := h.coordinator.Post(r.Context(), companyID, id, actorFrom(r))
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrValidationFailed):
			httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{"issues": issues})
		case errors.Is(err, shared.ErrAlreadyPosted):
			httpx.Problem(w, http.StatusConflict, "Conflict", "entry is already posted")
		case errors.Is(err, shared.ErrEntryNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", "entry not found")
		default:
			h.logger.Error("post entry", slog.Any("error", err), slog.String("entry_id", id.String()))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	h.metrics.CountPosting("posted")
	httpx.JSON(w, http.StatusOK, toDraftResponse(posted, nil, nil))
}

func (h *Handler) PostBatch(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.companyID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid company id")
		return
	}
	var req postBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id "+raw)
			return
		}
		ids = append(ids, id)
	}

	result, err := h.coordinator.PostBatch(r.Context(), companyID, ids, actorFrom(r))
	if err != nil {
		h.logger.Error("batch post", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	for range result.Posted {
		h.metrics.CountPosting("posted")
	}
	for range result.Skipped {
		h.metrics.CountPosting("skipped")
	}
	for range result.Failed {
		h.metrics.CountPosting("failed")
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.companyID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid company id")
		return
	}
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "multipart form required")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "file field required")
		return
	}
	defer file.Close()

	result, err := h.pipeline.Run(r.Context(), companyID, file)
	if err != nil {
		if errors.Is(err, shared.ErrEmptyWorkbook) {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "workbook contains no importable rows")
			return
		}
		h.logger.Error("import workbook", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	h.metrics.CountImport(string(result.State))
	status := http.StatusOK
	if result.State == importer.StateRejected {
		status = http.StatusUnprocessableEntity
	}
	httpx.JSON(w, status, result)
}

func (h *Handler) CreateCounterparty(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.companyID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid company id")
		return
	}
	var req createCounterpartyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	cp, _, err := h.catalogs.CreateCounterparty(r.Context(), companyID, catalog.NewCounterpartyInput{
		Identifier: req.Identifier,
		Name:       req.Name,
		Type:       req.Type,
		Email:      req.Email,
	})
	if err != nil {
		if errors.Is(err, shared.ErrCounterpartyExists) {
			httpx.Problem(w, http.StatusConflict, "Conflict", "identifier already exists")
			return
		}
		h.logger.Error("create counterparty", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, cp)
}

func (h *Handler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.companyID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid company id")
		return
	}
	snap, err := h.catalogs.Refresh(r.Context(), companyID)
	if err != nil {
		h.logger.Error("refresh catalog", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"accounts":       len(snap.Accounts),
		"counterparties": len(snap.Counterparties),
	})
}

// actorFrom reads the acting user id from the gateway header. Auth lives in
// front of this service; a missing header just means an unattributed post.
func actorFrom(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
