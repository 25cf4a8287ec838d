package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/FaYMan2/terdel/pkg/diagram"
	"github.com/FaYMan2/terdel/pkg/errors"
	"github.com/FaYMan2/terdel/pkg/render"
)

// maxBodyBytes bounds POST bodies.
const maxBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	version, err := s.backend.Version(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"version": version})
}

func (s *Server) handleTableNames(w http.ResponseWriter, r *http.Request) {
	names, err := s.backend.TableNames(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"table_names": names})
}

func (s *Server) handleTableSchema(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cols, err := s.backend.Columns(r.Context(), table)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"table_schema": cols})
}

func (s *Server) handleConstraints(w http.ResponseWriter, r *http.Request) {
	cons, err := s.backend.Constraints(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"constraints": cons})
}

func (s *Server) handleTableData(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	limit := s.opts.DataLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = min(n, s.opts.DataLimit)
	}

	rows, err := s.backend.TableData(r.Context(), table, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (s *Server) handleInsertRow(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var values map[string]any
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&values); err != nil {
		writeError(w, r, errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid JSON body"))
		return
	}
	if len(values) == 0 {
		writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "request body cannot be empty"))
		return
	}

	row, err := s.backend.InsertRow(r.Context(), table, values)
	if err != nil {
		if code := errors.GetCode(err); code == errors.ErrCodeInvalidIdentifier || code == errors.ErrCodeInvalidInput {
			writeError(w, r, err)
			return
		}
		s.logger.Warn("insert failed", "table", table, "err", err, "request_id", RequestID(r.Context()))
		writeInsertError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "row inserted successfully",
		"row":     row,
	})
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	d, ok := s.buildDiagram(w, r)
	if !ok {
		return
	}
	data, err := diagram.Marshal(d)
	if err != nil {
		writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "encode diagram"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleDiagramArtifact(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, r, notFound(r.URL.Path))
		return
	}
	if format == render.FormatPDF || format == render.FormatPNG {
		// Raster output shells out to rsvg-convert; the CLI offers it.
		writeError(w, r, errors.New(errors.ErrCodeInvalidFormat, "format %s is only available from the CLI", format))
		return
	}

	d, ok := s.buildDiagram(w, r)
	if !ok {
		return
	}
	out, err := s.runner.Render(r.Context(), d, format, render.Options{
		Detailed: r.URL.Query().Get("detailed") == "true",
	})
	if err != nil {
		writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "render %s", format))
		return
	}
	w.Header().Set("Content-Type", render.ContentType(format))
	_, _ = w.Write(out)
}

// buildDiagram runs the pipeline for r, writing an error response on
// failure.
func (s *Server) buildDiagram(w http.ResponseWriter, r *http.Request) (*diagram.Diagram, bool) {
	opts := s.opts.Pipeline
	opts.Refresh = r.URL.Query().Get("refresh") == "true"

	d, hit, err := s.runner.Build(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if hit {
		w.Header().Set(CacheHeader, "hit")
	} else {
		w.Header().Set(CacheHeader, "miss")
	}
	return d, true
}

func tableParam(r *http.Request) (string, error) {
	table := chi.URLParam(r, "table-name")
	// chi routes on RawPath when the request carries one, leaving the
	// parameter escaped.
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(table)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid table name")
		}
		table = unescaped
	}
	if table == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "table name is required")
	}
	return table, nil
}
