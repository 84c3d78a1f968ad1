package web

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/listcutter/internal/core"
	"github.com/JonMunkholm/listcutter/internal/logging"
	"github.com/JonMunkholm/listcutter/internal/source"
	"github.com/JonMunkholm/listcutter/internal/store"
	"github.com/JonMunkholm/listcutter/internal/web/templates"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var files []store.SavedFile
	if s.savedEnabled() {
		var err error
		files, err = s.meta.ListFiles(r.Context(), store.ListOptions{})
		if err != nil {
			logging.FromContext(r.Context()).Warn("list saved files failed", "error", err)
		}
	}
	s.renderHTML(w, r, http.StatusOK, "listcutter", templates.Index(files, s.savedEnabled()))
}

// registerRequest registers an object that already exists in the store.
type registerRequest struct {
	FileName  string   `json:"fileName"`
	ObjectKey string   `json:"objectKey"`
	Tags      []string `json:"tags"`
}

// handleCreateFile saves a CSV for later analysis. A multipart upload is
// streamed into the object store; a JSON body registers an existing key.
func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	if !s.savedEnabled() {
		s.respondError(w, r, errSavedFilesDisabled)
		return
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		saved   *store.SavedFile
		created = true
		err     error
	)
	if mediaType == "application/json" {
		saved, created, err = s.registerFile(r)
	} else {
		saved, err = s.uploadFile(r)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		logging.FromContext(r.Context()).Info("saved file created",
			"file_id", saved.ID, "object_key", saved.ObjectKey, "size_bytes", saved.SizeBytes)
	}

	if wantsHTML(r) {
		s.renderHTML(w, r, status, "Saved file", templates.FilesTable([]store.SavedFile{*saved}))
		return
	}
	writeJSON(w, r, status, saved)
}

func (s *Server) uploadFile(r *http.Request) (*store.SavedFile, error) {
	ctx := r.Context()
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, invalidRequest("read multipart body: %v", err)
	}

	var (
		params   store.CreateFileParams
		uploaded bool
	)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, invalidRequest("read multipart body: %v", err)
		}

		switch {
		case part.FormName() == "file" && part.FileName() != "":
			if uploaded {
				part.Close()
				return nil, invalidRequest("only one file may be uploaded")
			}
			params.FileName = part.FileName()
			params.ObjectKey = objectKey(part.FileName())
			params.SizeBytes, err = s.putUpload(r, params.ObjectKey, part)
			part.Close()
			if err != nil {
				return nil, err
			}
			uploaded = true
		case part.FormName() == "tags":
			value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			part.Close()
			if err != nil {
				return nil, invalidRequest("read tags: %v", err)
			}
			params.Tags = append(params.Tags, splitList(string(value))...)
		default:
			part.Close()
		}
	}
	if !uploaded {
		return nil, errNoFile
	}

	saved, err := s.meta.CreateFile(ctx, params)
	if err != nil {
		if delErr := s.files.Delete(ctx, params.ObjectKey); delErr != nil {
			logging.FromContext(ctx).Warn("remove orphaned upload failed", "object_key", params.ObjectKey, "error", delErr)
		}
		return nil, err
	}
	return saved, nil
}

// putUpload streams body into the store under the byte budget and returns
// the stored size. A partial object is removed on failure.
func (s *Server) putUpload(r *http.Request, key string, body io.Reader) (int64, error) {
	ctx := r.Context()
	// The request length bounds the part size, so progress is approximate.
	counter := source.NewCountingReader(body, s.limits.MaxBytes, r.ContentLength)

	err := s.files.Put(ctx, key, counter, -1)
	if err == nil && counter.BytesRead == 0 {
		err = errNoFile
	}
	if err != nil {
		logger := logging.FromContext(ctx)
		logger.Warn("upload failed", "object_key", key,
			"bytes_read", counter.BytesRead, "progress_pct", counter.Progress(), "error", err)
		if delErr := s.files.Delete(ctx, key); delErr != nil {
			logger.Warn("remove partial upload failed", "object_key", key, "error", delErr)
		}
		if counter.Exceeded() {
			return 0, &core.BudgetExceededError{Kind: core.BudgetSize, Limit: s.limits.MaxBytes, Observed: counter.BytesRead}
		}
		return 0, err
	}
	return counter.BytesRead, nil
}

// registerFile records an object already in the store. Registering the
// same key again returns the existing entry with created false.
func (s *Server) registerFile(r *http.Request) (saved *store.SavedFile, created bool, err error) {
	ctx := r.Context()
	var body registerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxFieldBytes)).Decode(&body); err != nil {
		return nil, false, invalidRequest("decode JSON body: %v", err)
	}
	if err := source.ValidateKey(body.ObjectKey); err != nil {
		return nil, false, invalidRequest("%v", err)
	}

	rc, size, err := s.files.Open(ctx, body.ObjectKey)
	if err != nil {
		return nil, false, err
	}
	rc.Close()
	if size > s.limits.MaxBytes {
		return nil, false, &core.BudgetExceededError{Kind: core.BudgetSize, Limit: s.limits.MaxBytes, Observed: size}
	}

	name := body.FileName
	if name == "" {
		name = body.ObjectKey[strings.LastIndex(body.ObjectKey, "/")+1:]
	}
	return s.meta.RegisterFile(ctx, store.CreateFileParams{
		FileName:  name,
		ObjectKey: body.ObjectKey,
		SizeBytes: size,
		Tags:      body.Tags,
	})
}

// objectKey builds a flat, unique key from an uploaded file name.
func objectKey(fileName string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, fileName[strings.LastIndexAny(fileName, `/\`)+1:])
	name = strings.TrimLeft(name, ".")
	if name == "" {
		name = "upload.csv"
	}
	return uuid.NewString() + "-" + name
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	if !s.savedEnabled() {
		s.respondError(w, r, errSavedFilesDisabled)
		return
	}

	q := r.URL.Query()
	limit, err := formInt(q, "limit")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	offset, err := formInt(q, "offset")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var latest bool
	if v := q.Get("latest"); v != "" {
		if latest, err = strconv.ParseBool(v); err != nil {
			s.respondError(w, r, invalidRequest("latest must be true or false, got %q", v))
			return
		}
	}

	files, err := s.meta.ListFiles(r.Context(), store.ListOptions{
		Tag:    q.Get("tag"),
		Name:   q.Get("name"),
		Latest: latest,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if wantsHTML(r) {
		s.renderHTML(w, r, http.StatusOK, "Saved files", templates.FilesTable(files))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"files": files})
}

// savedFile resolves the {id} route parameter.
func (s *Server) savedFile(r *http.Request) (*store.SavedFile, error) {
	if !s.savedEnabled() {
		return nil, errSavedFilesDisabled
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return nil, invalidRequest("file id %q is not a valid id", chi.URLParam(r, "id"))
	}
	return s.meta.GetFile(r.Context(), id)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	saved, err := s.savedFile(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, saved)
}

// handleDownloadFile streams a saved file's bytes back as an attachment.
func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	saved, err := s.savedFile(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rc, size, err := s.files.Open(r.Context(), saved.ObjectKey)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": saved.FileName}))
	if size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		logging.FromContext(r.Context()).Warn("download write failed", "file_id", saved.ID, "error", err)
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	saved, err := s.savedFile(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	limit, err := formInt(r.URL.Query(), "limit")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	runs, err := s.meta.ListRuns(r.Context(), saved.ID, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"file": saved, "runs": runs})
}

// statusResponse reports limiter occupancy.
type statusResponse struct {
	Analyses   LimiterStatus `json:"analyses"`
	SavedFiles bool          `json:"savedFiles"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, statusResponse{
		Analyses:   s.limiter.Status(),
		SavedFiles: s.savedEnabled(),
	})
}
