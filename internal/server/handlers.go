package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/anmicius0/unit-batch-station/internal/config"
	"github.com/anmicius0/unit-batch-station/internal/report"
	"github.com/anmicius0/unit-batch-station/internal/scan"
	"github.com/anmicius0/unit-batch-station/internal/service"
	"github.com/anmicius0/unit-batch-station/internal/utils"
	"github.com/anmicius0/unit-batch-station/internal/version"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var manifestTitles = map[service.Kind]string{
	service.KindStartIrradiation:     "Irradiation batch manifest",
	service.KindCloseIrradiation:     "Irradiation inspection manifest",
	service.KindShipmentVerification: "Shipment verification packing summary",
}

// Handler bundles request-time dependencies for the API routes.
type Handler struct {
	cfg        *config.Config
	sessions   *service.SessionStore
	jobStore   *config.JobStore
	imports    *ImportManager
	decoder    *scan.ImageDecoder
	normalizer *scan.Normalizer
}

// newHandler constructs a Handler with attached dependencies.
func newHandler(cfg *config.Config, sessions *service.SessionStore, jobStore *config.JobStore, imports *ImportManager, decoder *scan.ImageDecoder) *Handler {
	return &Handler{
		cfg:        cfg,
		sessions:   sessions,
		jobStore:   jobStore,
		imports:    imports,
		decoder:    decoder,
		normalizer: scan.MustNormalizer(scan.DefaultRules()),
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "status": StatusHealthy, "sessions": h.sessions.Len()})
}

func (h *Handler) version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Info())
}

func (h *Handler) createSession(c *gin.Context) {
	var req createSessionRequest
	if !h.bind(c, &req) {
		return
	}
	kind, err := service.ParseKind(req.Kind)
	if err != nil {
		h.fail(c, err)
		return
	}
	s, err := h.sessions.Create(kind)
	if err != nil {
		utils.Logger.Error("Failed to create session", zap.String(utils.FieldWorkflow, req.Kind), zap.Error(err))
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newResponseBuilder().BuildSessionResponse(s, nil, s.View()))
}

func (h *Handler) getSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newResponseBuilder().BuildSessionResponse(s, nil, s.View()))
}

func (h *Handler) deleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) input(c *gin.Context) {
	var req inputRequest
	if !h.bind(c, &req) {
		return
	}
	h.act(c, func(ctx context.Context, w service.Workflow) (service.Outcome, error) {
		return w.Input(ctx, req.scanInput())
	})
}

// scanImage decodes an uploaded label photo and feeds the text to the field its data identifier names.
func (h *Handler) scanImage(c *gin.Context) {
	data, ok := h.upload(c, formFieldImage)
	if !ok {
		return
	}
	decoded, err := h.decoder.DecodeBytes(data)
	if err != nil {
		utils.Logger.Info("Label image not decoded", zap.String(utils.FieldSessionID, c.Param("id")), zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, newResponseBuilder().BuildErrorResponse(
			ErrorCodeValidationFailed,
			MessageNoBarcode,
			err.Error(),
		))
		return
	}
	h.act(c, func(ctx context.Context, w service.Workflow) (service.Outcome, error) {
		return w.Input(ctx, service.ScanInput{Field: decoded.Field, Value: decoded.Text})
	})
}

func (h *Handler) selectProduct(c *gin.Context) {
	var req selectRequest
	if !h.bind(c, &req) {
		return
	}
	h.act(c, func(ctx context.Context, w service.Workflow) (service.Outcome, error) {
		return w.Select(ctx, req.ProductCode)
	})
}

func (h *Handler) toggle(c *gin.Context) {
	var req itemRequest
	if !h.bind(c, &req) {
		return
	}
	h.act(c, func(_ context.Context, w service.Workflow) (service.Outcome, error) {
		return w.Toggle(req.key())
	})
}

func (h *Handler) selectAll(c *gin.Context) {
	h.act(c, func(_ context.Context, w service.Workflow) (service.Outcome, error) {
		return w.SelectAll()
	})
}

func (h *Handler) removeSelected(c *gin.Context) {
	h.act(c, func(_ context.Context, w service.Workflow) (service.Outcome, error) {
		return w.RemoveSelected()
	})
}

func (h *Handler) inspect(c *gin.Context) {
	var req service.Inspection
	if !h.bind(c, &req) {
		return
	}
	h.act(c, func(ctx context.Context, w service.Workflow) (service.Outcome, error) {
		inspector, ok := w.(service.Inspector)
		if !ok {
			return service.Outcome{}, service.ErrUnsupported
		}
		return inspector.Inspect(ctx, req)
	})
}

func (h *Handler) filter(c *gin.Context) {
	var req filterRequest
	if !h.bind(c, &req) {
		return
	}
	h.act(c, func(_ context.Context, w service.Workflow) (service.Outcome, error) {
		inspector, ok := w.(service.Inspector)
		if !ok {
			return service.Outcome{}, service.ErrUnsupported
		}
		return inspector.SetFilter(req.Filter)
	})
}

func (h *Handler) removeItem(c *gin.Context) {
	var req itemRequest
	if !h.bind(c, &req) {
		return
	}
	h.act(c, func(ctx context.Context, w service.Workflow) (service.Outcome, error) {
		remover, ok := w.(service.Remover)
		if !ok {
			return service.Outcome{}, service.ErrUnsupported
		}
		return remover.RemoveItem(ctx, req.key())
	})
}

func (h *Handler) submit(c *gin.Context) {
	h.act(c, func(ctx context.Context, w service.Workflow) (service.Outcome, error) {
		return w.Submit(ctx)
	})
}

func (h *Handler) cancel(c *gin.Context) {
	h.act(c, func(ctx context.Context, w service.Workflow) (service.Outcome, error) {
		return w.Cancel(ctx)
	})
}

func (h *Handler) resolve(c *gin.Context) {
	var req resolveRequest
	if !h.bind(c, &req) {
		return
	}
	token := c.Param("token")
	h.act(c, func(ctx context.Context, w service.Workflow) (service.Outcome, error) {
		return w.Resolve(ctx, token, *req.Accepted)
	})
}

func (h *Handler) importUnits(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	file, err := c.FormFile(formFieldFile)
	if err != nil {
		h.invalidBody(c, err)
		return
	}
	f, err := file.Open()
	if err != nil {
		h.invalidBody(c, err)
		return
	}
	defer f.Close()

	rows, err := scan.ReadImport(io.LimitReader(f, maxUploadBytes))
	if err != nil && !errors.Is(err, scan.ErrEmptyImport) {
		h.invalidBody(c, err)
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusUnprocessableEntity, newResponseBuilder().BuildErrorResponse(
			ErrorCodeValidationFailed,
			MessageImportEmpty,
			nil,
		))
		return
	}

	jobID := h.imports.ProcessImportAsync(s, file.Filename, rows)
	c.JSON(http.StatusAccepted, newResponseBuilder().BuildAcceptedResponse(jobID, s.ID, len(rows)))
}

func (h *Handler) manifest(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var m report.Manifest
	_ = s.Do(func(w service.Workflow) error {
		view := w.View()
		m = report.Manifest{
			Title:     manifestTitles[s.Kind],
			Reference: w.Reference(),
			Facility:  h.cfg.FacilityCode,
			Items:     view.Items,
		}
		return nil
	})

	pdf, err := report.Render(m)
	if err != nil {
		utils.Logger.Error("Failed to render manifest", zap.String(utils.FieldSessionID, s.ID), zap.Error(err))
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", "manifest-"+s.ID+".pdf"))
	c.Data(http.StatusOK, contentTypePDF, pdf)
}

// label renders a printable unit number label, Code 128 by default or QR with ?format=qr.
func (h *Handler) label(c *gin.Context) {
	event, err := h.normalizer.UnitNumber(scan.UnitNumberPrefix+c.Param("unitNumber"), "")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, newResponseBuilder().BuildErrorResponse(
			ErrorCodeValidationFailed,
			MessageInvalidUnitNumber,
			err.Error(),
		))
		return
	}

	text := scan.LabelText(event.UnitNumber, c.Query("flags"))
	var png []byte
	if c.Query("format") == "qr" {
		png, err = scan.QRPNG(text, scan.DefaultQRSize)
	} else {
		png, err = scan.Code128PNG(text)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, contentTypePNG, png)
}

func (h *Handler) getJobStatus(c *gin.Context) {
	jobID := c.Param("id")
	job, exists := h.jobStore.GetJob(jobID)
	if !exists {
		utils.Logger.Debug("Job not found",
			zap.String(utils.FieldJobID, jobID))
		c.JSON(http.StatusNotFound, newResponseBuilder().BuildErrorResponse(
			ErrorCodeNotFound,
			fmt.Sprintf(JobNotFoundMessageFmt, jobID),
			nil,
		))
		return
	}

	respBuilder := newResponseBuilder()
	c.JSON(http.StatusOK, respBuilder.BuildJobResponse(job))
}

// act runs fn on the session's workflow and responds with the outcome and the new view.
func (h *Handler) act(c *gin.Context, fn func(ctx context.Context, w service.Workflow) (service.Outcome, error)) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var out service.Outcome
	var view service.View
	err := s.Do(func(w service.Workflow) error {
		var err error
		out, err = fn(c.Request.Context(), w)
		view = w.View()
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newResponseBuilder().BuildSessionResponse(s, &out, view))
}

func (h *Handler) session(c *gin.Context) (*service.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.invalidBody(c, err)
		return false
	}
	return true
}

func (h *Handler) upload(c *gin.Context, field string) ([]byte, bool) {
	file, err := c.FormFile(field)
	if err != nil {
		h.invalidBody(c, err)
		return nil, false
	}
	f, err := file.Open()
	if err != nil {
		h.invalidBody(c, err)
		return nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		h.invalidBody(c, err)
		return nil, false
	}
	return data, true
}

func (h *Handler) invalidBody(c *gin.Context, err error) {
	utils.Logger.Info("Invalid request body",
		zap.String(utils.FieldPath, c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusUnprocessableEntity, newResponseBuilder().BuildErrorResponse(
		ErrorCodeInvalidRequestBody,
		MessageInvalidRequestBody,
		err.Error(),
	))
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		utils.Logger.Error("Request failed", zap.String(utils.FieldPath, c.FullPath()), zap.Error(err))
	}
	c.JSON(status, newResponseBuilder().BuildErrorResponse(code, err.Error(), nil))
}

// errorStatus maps workflow errors to HTTP statuses.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrUnknownConfirmation):
		return http.StatusNotFound, ErrorCodeNotFound
	case errors.Is(err, service.ErrConfirmationPending),
		errors.Is(err, service.ErrSubmitDisabled),
		errors.Is(err, service.ErrFieldLocked),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict, ErrorCodeConflict
	case errors.Is(err, service.ErrUnknownChoice),
		errors.Is(err, service.ErrUnknownField),
		errors.Is(err, service.ErrUnknownFilter):
		return http.StatusUnprocessableEntity, ErrorCodeValidationFailed
	case errors.Is(err, service.ErrUnsupported):
		return http.StatusMethodNotAllowed, ErrorCodeUnsupported
	}
	return http.StatusInternalServerError, ErrorCodeInternal
}

func authMiddleware(expectedToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		expectedAuth := fmt.Sprintf("Bearer %s", expectedToken)
		if authHeader != expectedAuth {
			utils.Logger.Warn("Unauthorized access attempt",
				zap.String(utils.FieldPath, c.Request.URL.Path))
			c.JSON(http.StatusUnauthorized, gin.H{"error": MessageInvalidToken})
			c.Abort()
			return
		}
		c.Next()
	}
}
