package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"contahogar/internal/core"
	applog "contahogar/internal/log"
	"contahogar/internal/report"
)

const exportTimeout = 30 * time.Second

// User-facing messages.
const (
	msgExportOK         = "Datos exportados correctamente"
	msgExportConnection = "Error al exportar: no se pudo conectar con la hoja de cálculo"
	msgExportWrite      = "Error al exportar: no se pudieron escribir las filas"
	msgReportFailed     = "Error al generar PDF"
	msgInvalidAmount    = "Valor inválido: usa un número entero sin decimales"
	msgAmountTooLarge   = "Valor demasiado grande"
	msgUnknownField     = "Campo desconocido"
	msgUnknownPerson    = "Persona desconocida"
)

// appMetrics counts user actions since start.
type appMetrics struct {
	chargeUpdates  int64
	exports        int64
	exportFailures int64
	exportedRows   int64
	reports        int64
	reportFailures int64
	uptime         time.Time
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady checks templates and the storage backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.connector == nil:
		checks["backend"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	case s.ready != nil:
		if err := s.ready.Ping(ctx); err != nil {
			checks["backend"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	default:
		checks["backend"] = "ok"
	}

	checks["sessions"] = map[string]any{
		"active": s.sessions.Len(),
		"status": "ok",
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"backend":   s.backend,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	w.WriteHeader(http.StatusOK)
	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "Responses with a 5xx status", "counter", traceMetrics.ServerErrors)
	metric("charge_updates_total", "Accepted charge edits", "counter", atomic.LoadInt64(&s.appMetrics.chargeUpdates))
	metric("exports_total", "Successful spreadsheet exports", "counter", atomic.LoadInt64(&s.appMetrics.exports))
	metric("export_failures_total", "Failed spreadsheet exports", "counter", atomic.LoadInt64(&s.appMetrics.exportFailures))
	metric("exported_rows_total", "Data rows appended by exports", "counter", atomic.LoadInt64(&s.appMetrics.exportedRows))
	metric("reports_total", "PDF reports generated", "counter", atomic.LoadInt64(&s.appMetrics.reports))
	metric("report_failures_total", "Failed PDF generations", "counter", atomic.LoadInt64(&s.appMetrics.reportFailures))
	metric("active_sessions", "Sessions currently held", "gauge", s.sessions.Len())
	metric("rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", rateLimitMetrics.TotalHits)
	metric("suspicious_requests_total", "Requests rejected as hostile", "counter", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "Application uptime in seconds", "gauge", fmt.Sprintf("%.0f", time.Since(s.appMetrics.uptime).Seconds()))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Página no encontrada").Write(w)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		MethodNotAllowedError("GET, HEAD").Write(w)
		return
	}
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	sess := s.sessionFor(w, r)
	view := buildView(sess.Ledger(), s.now())
	s.render(w, r, http.StatusOK, "index.html", view, nil)
}

// handleSummary renders the sidebar partial.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	sess := s.sessionFor(w, r)
	view := buildView(sess.Ledger(), s.now())
	s.render(w, r, http.StatusOK, "summary", view, nil)
}

// handleUpdateCharge applies one edited input and answers with the fresh
// summary plus the edited person's subtotal swapped out of band.
func (s *Server) handleUpdateCharge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		BadRequestError("Formulario inválido").Write(w)
		return
	}
	name := sanitizeInput(r.PostFormValue("persona"))

	field, err := core.ParseField(r.PostFormValue("field"))
	if err != nil {
		UnprocessableEntityError(msgUnknownField).Retarget("#flash").Write(w)
		return
	}
	value, err := core.ParseAmount(r.PostFormValue("value"))
	if err != nil {
		msg := msgInvalidAmount
		if errors.Is(err, core.ErrAmountTooLarge) {
			msg = msgAmountTooLarge
		}
		logger.WarnContext(ctx, "Rejected charge value",
			applog.FieldParticipant, name,
			applog.FieldChargeField, string(field),
			applog.FieldErrorType, applog.ErrorTypeValidation)
		UnprocessableEntityError(msg).
			Retarget("#flash").
			TriggerErrorNotification(msg).
			Write(w)
		return
	}

	sess := s.sessionFor(w, r)
	ledger, err := sess.Update(name, field, value)
	if err != nil {
		msg := msgInvalidAmount
		switch {
		case errors.Is(err, core.ErrUnknownParticipant):
			msg = msgUnknownPerson
		case errors.Is(err, core.ErrAmountTooLarge):
			msg = msgAmountTooLarge
		}
		logger.WarnContext(ctx, "Charge update rejected",
			applog.NewFields().WithCharge(name, string(field), value).WithSession(sess.ID).WithError(err).ToSlice()...)
		UnprocessableEntityError(msg).Retarget("#flash").Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.chargeUpdates, 1)
	logger.DebugContext(ctx, "Charge updated",
		applog.NewFields().WithCharge(name, string(field), value).WithSession(sess.ID).ToSlice()...)

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	view := buildView(ledger, s.now())
	person, _ := view.personByName(name)
	s.render(w, r, http.StatusOK, "summary", view, func(b *HTMXResponseBuilder, buf *bytes.Buffer) error {
		b.TriggerLedgerUpdated(name, string(field))
		return s.templates.ExecuteTemplate(buf, "person-total-oob", person)
	})
}

// handleExport appends the session ledger to the configured sheet.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), exportTimeout)
	defer cancel()
	logger := applog.FromContext(ctx)

	sess := s.sessionFor(w, r)
	res, err := report.ExportRows(ctx, s.connector, sess.Ledger(), s.now())
	if err != nil {
		atomic.AddInt64(&s.appMetrics.exportFailures, 1)
		msg, errType := msgExportWrite, applog.ErrorTypeExportWrite
		if errors.Is(err, report.ErrExportConnection) {
			msg, errType = msgExportConnection, applog.ErrorTypeExportConnection
		}
		logger.ErrorContext(ctx, "Export failed",
			applog.FieldOperation, applog.OpExport,
			applog.FieldSessionID, sess.ID,
			applog.FieldErrorType, errType,
			applog.FieldError, err)
		BadGatewayError(msg).TriggerErrorNotification(msg).Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.exports, 1)
	atomic.AddInt64(&s.appMetrics.exportedRows, int64(res.Rows))
	logger.InfoContext(ctx, "Export completed",
		applog.FieldOperation, applog.OpExport,
		applog.FieldSessionID, sess.ID,
		applog.FieldRows, res.Rows,
		"header_written", res.HeaderWritten)
	SuccessResponse(msgExportOK).TriggerSuccessNotification(msgExportOK).Write(w)
}

// handleReport streams the PDF for the session ledger as a download.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	now := s.now()
	sess := s.sessionFor(w, r)
	pdf, err := report.GeneratePDF(sess.Ledger(), now)
	if err != nil {
		atomic.AddInt64(&s.appMetrics.reportFailures, 1)
		logger.ErrorContext(ctx, "PDF generation failed",
			applog.FieldOperation, applog.OpReport,
			applog.FieldSessionID, sess.ID,
			applog.FieldErrorType, applog.ErrorTypeReport,
			applog.FieldError, err)
		InternalServerError(msgReportFailed).TriggerErrorNotification(msgReportFailed).Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.reports, 1)
	logger.InfoContext(ctx, "PDF generated",
		applog.FieldOperation, applog.OpReport,
		applog.FieldSessionID, sess.ID,
		applog.FieldBytes, len(pdf))

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(now)))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// render executes name into a buffer so a template error never leaves a
// half-written page. extra may append more markup and set triggers.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any, extra func(*HTMXResponseBuilder, *bytes.Buffer) error) {
	ctx := r.Context()
	if s.templates == nil {
		InternalServerError("templates not loaded").Write(w)
		return
	}

	var buf bytes.Buffer
	b := NewHTMXResponse().Status(status)
	err := s.templates.ExecuteTemplate(&buf, name, data)
	if err == nil && extra != nil {
		err = extra(b, &buf)
	}
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Template execution failed",
			applog.FieldComponent, applog.ComponentTemplate,
			applog.FieldOperation, applog.OpRender,
			"template", name,
			applog.FieldError, err)
		InternalServerError("Error al mostrar la página").Write(w)
		return
	}
	b.Header("Content-Type", "text/html; charset=utf-8").Body(buf.Bytes()).Write(w)
}
