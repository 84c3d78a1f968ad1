package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/listcutter/internal/core"
	"github.com/JonMunkholm/listcutter/internal/logging"
	"github.com/JonMunkholm/listcutter/internal/store"
	"github.com/JonMunkholm/listcutter/internal/web/templates"
)

// outcome is what an analysis produced, in every form it can be sent.
type outcome struct {
	rowsScanned int
	matched     int

	json any
	html templ.Component

	// csv, when set, makes the response a download named filename.
	csv      func(io.Writer) error
	filename string
}

type analysisFunc func(ctx context.Context, e *core.Engine, req *analysisRequest) (*outcome, error)

// engine builds a per-request engine logging through the request logger.
func (s *Server) engine(ctx context.Context, kind store.RunKind) *core.Engine {
	logger := logging.WithFields(ctx, "operation", string(kind))
	opts := append([]core.Option{core.WithLogger(logger)}, s.engineOpts...)
	return core.NewEngine(s.limits, opts...)
}

// analyse runs one analysis: it takes a limiter slot (waiting only when all
// are busy), reads the request, runs fn, records the run when a metadata
// store is configured and writes the response.
func (s *Server) analyse(w http.ResponseWriter, r *http.Request, kind store.RunKind, fn analysisFunc) {
	ctx := r.Context()
	if !s.limiter.TryAcquire() {
		logging.FromContext(ctx).Debug("waiting for analysis slot", "kind", kind, "active", s.limiter.ActiveCount())
		if err := s.limiter.Acquire(ctx); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	defer s.limiter.Release()

	req, err := s.parseAnalysisRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	start := time.Now()
	out, err := fn(ctx, s.engine(ctx, kind), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.recordRun(ctx, kind, req, out, time.Since(start))

	switch {
	case out.csv != nil:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.filename))
		if err := out.csv(w); err != nil {
			logging.FromContext(ctx).Warn("csv export write failed", "error", err)
		}
	case wantsHTML(r):
		s.renderHTML(w, r, http.StatusOK, "Results", out.html)
	default:
		writeJSON(w, r, http.StatusOK, out.json)
	}
}

// recordRun stores run history. A failure is logged and does not fail the
// analysis, whose result is already computed.
func (s *Server) recordRun(ctx context.Context, kind store.RunKind, req *analysisRequest, out *outcome, d time.Duration) {
	if s.meta == nil {
		return
	}
	_, err := s.meta.RecordRun(ctx, store.RecordRunParams{
		FileID:      req.FileID,
		Kind:        kind,
		RowsScanned: out.rowsScanned,
		Matched:     out.matched,
		Duration:    d,
	})
	if err != nil {
		logging.FromContext(ctx).Warn("record analysis run failed", "kind", kind, "error", err)
	}
}

// renderHTML writes c alone for HTMX and inside the layout otherwise.
func (s *Server) renderHTML(w http.ResponseWriter, r *http.Request, status int, title string, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if !isHTMX(r) {
		c = templates.Page(title, c)
	}
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Warn("render failed", "error", err)
	}
}

// exportName derives a download name from the source file.
func exportName(source, suffix string) string {
	base := strings.TrimSuffix(path.Base(strings.ReplaceAll(source, "\\", "/")), path.Ext(source))
	if base == "" || base == "." || base == "/" {
		base = "export"
	}
	return base + "-" + suffix + ".csv"
}

// ----------------------------------------------------------------------------
// Handlers
// ----------------------------------------------------------------------------

// columnsResponse is the JSON body of POST /api/columns.
type columnsResponse struct {
	Columns []string `json:"columns"`
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	s.analyse(w, r, store.RunColumns, func(_ context.Context, e *core.Engine, req *analysisRequest) (*outcome, error) {
		cols, err := e.Columns(req.Text)
		if err != nil {
			return nil, err
		}
		return &outcome{
			json: columnsResponse{Columns: cols},
			html: templates.ColumnsList(req.Source, cols),
		}, nil
	})
}

func (s *Server) runCrosstab(ctx context.Context, e *core.Engine, req *analysisRequest) (*core.CrosstabResult, *outcome, error) {
	res, err := e.Crosstab(ctx, req.Text, req.RowVariable, req.ColumnVariable)
	if err != nil {
		return nil, nil, err
	}
	return res, &outcome{
		rowsScanned: res.RowsProcessed,
		matched:     res.GrandTotal,
		json:        res,
		html:        templates.CrosstabTable(req.Source, res),
	}, nil
}

func (s *Server) handleCrosstab(w http.ResponseWriter, r *http.Request) {
	s.analyse(w, r, store.RunCrosstab, func(ctx context.Context, e *core.Engine, req *analysisRequest) (*outcome, error) {
		_, out, err := s.runCrosstab(ctx, e, req)
		return out, err
	})
}

func (s *Server) handleCrosstabExport(w http.ResponseWriter, r *http.Request) {
	s.analyse(w, r, store.RunCrosstab, func(ctx context.Context, e *core.Engine, req *analysisRequest) (*outcome, error) {
		res, out, err := s.runCrosstab(ctx, e, req)
		if err != nil {
			return nil, err
		}
		out.csv = func(w io.Writer) error { return core.WriteCrosstabCSV(w, res) }
		out.filename = exportName(req.Source, string(res.Mode))
		return out, nil
	})
}

// profilesResponse is the JSON body of POST /api/detect-types.
type profilesResponse struct {
	Columns []core.ColumnProfile `json:"columns"`
}

func (s *Server) handleDetectTypes(w http.ResponseWriter, r *http.Request) {
	s.analyse(w, r, store.RunDetect, func(ctx context.Context, e *core.Engine, req *analysisRequest) (*outcome, error) {
		profiles, err := e.DetectTypes(ctx, req.Text)
		if err != nil {
			return nil, err
		}
		sampled := 0
		if len(profiles) > 0 {
			sampled = profiles[0].TotalSamples
		}
		return &outcome{
			rowsScanned: sampled,
			json:        profilesResponse{Columns: profiles},
			html:        templates.ProfilesTable(req.Source, profiles),
		}, nil
	})
}

func (s *Server) runFilter(ctx context.Context, e *core.Engine, req *analysisRequest) (*core.FilteredResult, *outcome, error) {
	res, err := e.Filter(ctx, req.Text, req.Filter)
	if err != nil {
		return nil, nil, err
	}
	return res, &outcome{
		rowsScanned: res.TotalRowsScanned,
		matched:     res.MatchedRowCount,
		json:        res,
		html:        templates.RowsTable(req.Source, res),
	}, nil
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	s.analyse(w, r, store.RunFilter, func(ctx context.Context, e *core.Engine, req *analysisRequest) (*outcome, error) {
		_, out, err := s.runFilter(ctx, e, req)
		return out, err
	})
}

func (s *Server) handleFilterExport(w http.ResponseWriter, r *http.Request) {
	s.analyse(w, r, store.RunFilter, func(ctx context.Context, e *core.Engine, req *analysisRequest) (*outcome, error) {
		res, out, err := s.runFilter(ctx, e, req)
		if err != nil {
			return nil, err
		}
		out.csv = func(w io.Writer) error { return core.WriteRowsCSV(w, res) }
		out.filename = exportName(req.Source, "filtered")
		return out, nil
	})
}
