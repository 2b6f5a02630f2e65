package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medinsight/medinsight/constants"
	"github.com/medinsight/medinsight/internal/chat"
	"github.com/medinsight/medinsight/internal/common"
	"github.com/medinsight/medinsight/internal/export"
	"github.com/medinsight/medinsight/internal/reports"
)

// Handlers is the thin HTTP edge. Business rules live in the services; this
// layer only decodes requests and maps the error taxonomy onto status codes.
type Handlers struct {
	Reports *reports.Service
	Chat    *chat.Service
	Export  *export.Service
}

func (h *Handlers) uploadReport(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "no file uploaded"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "could not read uploaded file"})
		return
	}
	defer f.Close()

	// Read one byte past the ceiling so oversized uploads are rejected by
	// the classifier without buffering the whole payload.
	data, err := io.ReadAll(io.LimitReader(f, constants.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "could not read uploaded file"})
		return
	}

	view, err := h.Reports.Submit(c.Request.Context(), subjectFrom(c), reports.Upload{
		FileName: fh.Filename,
		MIMEType: fh.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "report uploaded and analyzed successfully", "report": view})
}

func (h *Handlers) listOwnReports(c *gin.Context) {
	views, err := h.Reports.ListOwn(c.Request.Context(), subjectFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": views})
}

func (h *Handlers) getReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "report not found"})
		return
	}
	view, err := h.Reports.Get(c.Request.Context(), subjectFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": view})
}

func (h *Handlers) listPendingReports(c *gin.Context) {
	views, err := h.Reports.ListPending(c.Request.Context(), subjectFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": views})
}

type reviewRequest struct {
	Status   string `json:"status" binding:"required"`
	Comments string `json:"comments"`
}

func (h *Handlers) reviewReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "report not found"})
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": `status must be either "approved" or "rejected"`})
		return
	}
	view, err := h.Reports.Review(c.Request.Context(), subjectFrom(c), id, req.Status, req.Comments)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "report reviewed successfully", "report": view})
}

func (h *Handlers) deleteReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "report not found"})
		return
	}
	if err := h.Reports.Delete(c.Request.Context(), subjectFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "report deleted successfully"})
}

type chatRequest struct {
	Message  string `json:"message" binding:"required"`
	ReportID string `json:"reportId"`
}

func (h *Handlers) chatTurn(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "message is required"})
		return
	}
	var reportID *uuid.UUID
	if req.ReportID != "" {
		id, err := uuid.Parse(req.ReportID)
		if err != nil {
			// An unparsable id behaves like an unknown one: context degrades
			// to empty rather than falling back to recent reports.
			id = uuid.Nil
		}
		reportID = &id
	}
	reply, err := h.Chat.Chat(c.Request.Context(), subjectFrom(c), req.Message, reportID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *Handlers) exportReports(c *gin.Context) {
	data, err := h.Export.ExportReportsXLSX(c.Request.Context(), subjectFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="reports.xlsx"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// respondError maps the error taxonomy to HTTP statuses. Messages come from
// the taxonomy and are caller-safe; internal causes never leak.
func respondError(c *gin.Context, err error) {
	var ae *common.AppError
	msg := "internal error"
	if errors.As(err, &ae) {
		msg = ae.Message
	}

	switch {
	case errors.Is(err, common.ErrUnsupportedFormat),
		errors.Is(err, common.ErrEmptyExtraction),
		errors.Is(err, common.ErrInvalidDecision),
		errors.Is(err, common.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"message": msg})
	case errors.Is(err, common.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": msg})
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": msg})
	case errors.Is(err, common.ErrAnalysisUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"message": msg})
	case errors.Is(err, common.ErrExtractionFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"message": msg})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": msg})
	}
}
