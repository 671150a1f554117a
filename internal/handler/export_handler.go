package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/domain"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/service"
)

// ExportHandler serves the export API.
type ExportHandler struct {
	svc service.ExportService
}

// NewExportHandler creates an ExportHandler.
func NewExportHandler(svc service.ExportService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// createExportRequest is the wire shape of an export request. Either
// quarter+year or date_from/date_to select the issue-date window; omitted
// filters fall back to the configured defaults.
type createExportRequest struct {
	Direction    string                `json:"direction"`
	DocumentType string                `json:"document_type"`
	StateFilter  string                `json:"state_filter"`
	Quarter      string                `json:"quarter"`
	Year         int                   `json:"year"`
	DateFrom     string                `json:"date_from"`
	DateTo       string                `json:"date_to"`
	Clauses      []domain.FilterClause `json:"clauses"`
}

// Create runs an export for the posted filter specification.
func (h *ExportHandler) Create(c *gin.Context) {
	var req createExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	spec := domain.FilterSpec{
		Direction:    domain.Direction(req.Direction),
		DocumentType: domain.DocumentTypeFilter(req.DocumentType),
		StateFilter:  domain.StateFilter(req.StateFilter),
		Quarter:      req.Quarter,
		Year:         req.Year,
		DateFrom:     req.DateFrom,
		DateTo:       req.DateTo,
		Clauses:      req.Clauses,
	}

	result, err := h.svc.Run(c.Request.Context(), spec)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, result)
}

// List returns the archives currently held in object storage.
func (h *ExportHandler) List(c *gin.Context) {
	exports, err := h.svc.ListArchives(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, exports)
}

// Download redirects to a presigned URL for one stored archive.
func (h *ExportHandler) Download(c *gin.Context) {
	filename := c.Param("filename")
	url, err := h.svc.ArchiveDownloadURL(c.Request.Context(), filename)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

// Delete removes one stored archive from object storage.
func (h *ExportHandler) Delete(c *gin.Context) {
	filename := c.Param("filename")
	if err := h.svc.DeleteArchive(c.Request.Context(), filename); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": filename})
}

// GetRun returns one persisted export run by ID.
func (h *ExportHandler) GetRun(c *gin.Context) {
	run, err := h.svc.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, run)
}

// ListRuns returns the persisted export run history.
func (h *ExportHandler) ListRuns(c *gin.Context) {
	limit, offset := paginationParams(c)
	runs, total, err := h.svc.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, runs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

func paginationParams(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
