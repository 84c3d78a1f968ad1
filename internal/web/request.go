package web

// request.go reads the analysis inputs from a request.
//
// Three encodings are accepted:
//
//   - multipart/form-data: a "file" part plus form fields (browser forms)
//   - application/json: a jsonRequest body, with either inline "csv" text or
//     a "fileId"
//   - application/x-www-form-urlencoded: the same fields as multipart, with
//     the CSV in a "csv" field
//
// The CSV itself is read through source.ReadAll, so the byte budget holds
// while the upload streams in.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/listcutter/internal/core"
	"github.com/JonMunkholm/listcutter/internal/source"
)

// maxFieldBytes caps each non-file form field.
const maxFieldBytes = 64 << 10

// analysisRequest holds everything an analysis handler needs.
type analysisRequest struct {
	Source         string // uploaded file name or saved file name, for display
	FileID         *uuid.UUID
	Text           string
	hasText        bool
	RowVariable    string
	ColumnVariable string
	Filter         core.FilterRequest
}

// jsonRequest is the JSON body accepted by every analysis endpoint.
type jsonRequest struct {
	FileID         string                `json:"fileId"`
	FileName       string                `json:"fileName"`
	CSV            *string               `json:"csv"`
	RowVariable    string                `json:"rowVariable"`
	ColumnVariable string                `json:"columnVariable"`
	Expression     core.FilterExpression `json:"expression"`
	Page           core.Pagination       `json:"page"`
	Columns        []string              `json:"columns"`
}

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalidRequest, fmt.Sprintf(format, args...))
}

// parseAnalysisRequest decodes r and loads the CSV text, either from the
// request itself or from the saved file store.
func (s *Server) parseAnalysisRequest(r *http.Request) (*analysisRequest, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil && r.Header.Get("Content-Type") != "" {
		return nil, invalidRequest("bad content type")
	}

	var req *analysisRequest
	switch mediaType {
	case "multipart/form-data":
		req, err = s.parseMultipart(r)
	case "application/json":
		req, err = s.parseJSON(r)
	default:
		req, err = s.parseURLEncoded(r)
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadText(r.Context(), req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Server) parseMultipart(r *http.Request) (*analysisRequest, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, invalidRequest("read multipart body: %v", err)
	}

	req := &analysisRequest{}
	values := url.Values{}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, invalidRequest("read multipart body: %v", err)
		}

		if part.FormName() == "file" && part.FileName() != "" {
			text, err := source.ReadAll(part, s.limits.MaxBytes)
			part.Close()
			if err != nil {
				return nil, err
			}
			req.Text, req.hasText = text, true
			req.Source = part.FileName()
			continue
		}

		value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
		part.Close()
		if err != nil {
			return nil, invalidRequest("read field %s: %v", part.FormName(), err)
		}
		if len(value) > maxFieldBytes {
			return nil, invalidRequest("field %s is too long", part.FormName())
		}
		values.Add(part.FormName(), string(value))
	}

	if err := applyForm(req, values); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Server) parseURLEncoded(r *http.Request) (*analysisRequest, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, s.limits.MaxBytes+maxFieldBytes)
	if err := r.ParseForm(); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, &core.BudgetExceededError{Kind: core.BudgetSize, Limit: s.limits.MaxBytes, Observed: tooBig.Limit}
		}
		return nil, invalidRequest("parse form: %v", err)
	}

	req := &analysisRequest{}
	if r.PostForm.Has("csv") {
		req.Text, req.hasText = r.PostForm.Get("csv"), true
		req.Source = "upload.csv"
	}
	if err := applyForm(req, r.Form); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Server) parseJSON(r *http.Request) (*analysisRequest, error) {
	var body jsonRequest
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, s.limits.MaxBytes+maxFieldBytes))
	if err := dec.Decode(&body); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, &core.BudgetExceededError{Kind: core.BudgetSize, Limit: s.limits.MaxBytes, Observed: tooBig.Limit}
		}
		return nil, invalidRequest("decode JSON body: %v", err)
	}

	req := &analysisRequest{
		RowVariable:    body.RowVariable,
		ColumnVariable: body.ColumnVariable,
		Filter: core.FilterRequest{
			Expression: body.Expression,
			Page:       body.Page,
			Columns:    body.Columns,
		},
	}
	if body.CSV != nil {
		req.Text, req.hasText = *body.CSV, true
		req.Source = body.FileName
		if req.Source == "" {
			req.Source = "upload.csv"
		}
	}
	if body.FileID != "" {
		id, err := uuid.Parse(body.FileID)
		if err != nil {
			return nil, invalidRequest("fileId %q is not a valid id", body.FileID)
		}
		req.FileID = &id
	}
	return req, nil
}

// applyForm fills req from form fields. A filter is given either as a JSON
// "expression" field or as parallel column/operator/value/negated fields,
// one entry per predicate.
func applyForm(req *analysisRequest, values url.Values) error {
	if id := strings.TrimSpace(values.Get("file_id")); id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return invalidRequest("file_id %q is not a valid id", id)
		}
		req.FileID = &parsed
	}
	req.RowVariable = values.Get("row_variable")
	req.ColumnVariable = values.Get("column_variable")

	if raw := strings.TrimSpace(values.Get("expression")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Filter.Expression); err != nil {
			return invalidRequest("expression is not valid JSON: %v", err)
		}
	} else {
		req.Filter.Expression = formExpression(values)
	}
	if logic := values.Get("logic"); logic != "" {
		req.Filter.Expression.Logic = core.LogicalOperator(logic)
	}

	var err error
	if req.Filter.Page.Limit, err = formInt(values, "limit"); err != nil {
		return err
	}
	if req.Filter.Page.Offset, err = formInt(values, "offset"); err != nil {
		return err
	}
	req.Filter.Columns = splitList(values.Get("columns"))
	return nil
}

func formExpression(values url.Values) core.FilterExpression {
	columns := values["column"]
	operators := values["operator"]
	vals := values["value"]
	negated := values["negated"]

	var expr core.FilterExpression
	for i, col := range columns {
		col = strings.TrimSpace(col)
		if col == "" {
			continue
		}
		p := core.FilterPredicate{Column: col, Operator: core.OpContains}
		if i < len(operators) && strings.TrimSpace(operators[i]) != "" {
			p.Operator = core.FilterOperator(strings.TrimSpace(operators[i]))
		}
		if i < len(vals) {
			p.Value = vals[i]
		}
		// Unchecked boxes are not submitted, so this lines up only for
		// single-predicate forms. Multi-predicate clients send expression.
		if i < len(negated) {
			p.Negated, _ = strconv.ParseBool(negated[i])
		}
		expr.Predicates = append(expr.Predicates, p)
	}
	return expr
}

func formInt(values url.Values, name string) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidRequest("%s must be a whole number", name)
	}
	return n, nil
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// loadText fetches the CSV for a saved file when the request did not carry
// one.
func (s *Server) loadText(ctx context.Context, req *analysisRequest) error {
	if req.hasText {
		// An upload wins over a file id sent alongside it.
		req.FileID = nil
		return nil
	}
	if req.FileID == nil {
		return errNoFile
	}
	if !s.savedEnabled() {
		return errSavedFilesDisabled
	}

	saved, err := s.meta.GetFile(ctx, *req.FileID)
	if err != nil {
		return err
	}
	rc, _, err := s.files.Open(ctx, saved.ObjectKey)
	if err != nil {
		return err
	}
	defer rc.Close()

	text, err := source.ReadAll(rc, s.limits.MaxBytes)
	if err != nil {
		return err
	}
	req.Text, req.hasText = text, true
	req.Source = saved.FileName
	return nil
}
