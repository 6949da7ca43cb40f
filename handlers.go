package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/tidwall/gjson"

	"iq-spectrogram/core"
	"iq-spectrogram/db"
	"iq-spectrogram/iq"
	"iq-spectrogram/render"
	"iq-spectrogram/spectrogram"
	"iq-spectrogram/utils"
)

var maxUploadSize = int64(utils.GetEnvInt("MAX_UPLOAD_MB", 256)) << 20

var errBadForm = errors.New("bad request")

type spectrogramResponse struct {
	ID           string  `json:"id,omitempty"`
	Spectrogram  string  `json:"spectrogram"`
	Samples      int     `json:"samples"`
	DroppedBytes int     `json:"droppedBytes"`
	Frames       int     `json:"frames"`
	Bins         int     `json:"bins"`
	SampleRate   float64 `json:"sampleRate"`
	MinDB        float64 `json:"minDb"`
	MaxDB        float64 `json:"maxDb"`
	ElapsedMs    int64   `json:"elapsedMs"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// server holds what every handler shares: the blob store and the defaults
// request overrides are applied to.
type server struct {
	store  db.BlobStore
	cfg    spectrogram.Config
	opts   render.Options
	logger *slog.Logger
}

func newServer(store db.BlobStore, cfg spectrogram.Config, opts render.Options) *server {
	return &server{store: store, cfg: cfg, opts: opts, logger: utils.GetLogger()}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/api/upload", s.handleUpload)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/blobs", s.handleBlobs)
	mux.HandleFunc("/api/blobs/{id}", s.handleBlob)
	mux.HandleFunc("/api/blobs/{id}/spectrogram", s.handleBlobSpectrogram)

	// the web client's production build is mounted from STATIC_DIR when present
	if dir := utils.GetEnv("STATIC_DIR"); dir != "" {
		mux.Handle("/", http.FileServer(http.Dir(dir)))
	}

	return requestLogger(corsMiddleware(mux))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Printf("[error] failed to encode response: %v", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	log.Printf("[error] %d: %s", status, msg)
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure maps err onto a status code and JSON error body.
func (s *server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	kind := core.ErrorKind(err)

	status := http.StatusInternalServerError
	switch {
	case kind != "":
		status = http.StatusUnprocessableEntity
	case errors.Is(err, errBadForm):
		status = http.StatusBadRequest
	case errors.Is(err, db.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("request_id", requestID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.Any("error", xerrors.New(err)),
		)
	} else {
		log.Printf("[error] %d: %v", status, err)
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func logMemUsage(label string) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	log.Printf("[mem] %s: alloc=%s, sys=%s, heap_in_use=%s",
		label, utils.FormatBytes(int64(m.Alloc)), utils.FormatBytes(int64(m.Sys)), utils.FormatBytes(int64(m.HeapInuse)))
}

// readUploadedFile returns the contents and client file name of the
// multipart field.
func readUploadedFile(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %v", field, err)
	}
	return data, header.Filename, nil
}

// params looks request settings up in the form or query first, then in the
// optional JSON "config" field.
type params struct {
	form   url.Values
	config gjson.Result
}

func newParams(form url.Values) (params, error) {
	p := params{form: form}
	if raw := form.Get("config"); raw != "" {
		if !gjson.Valid(raw) {
			return p, fmt.Errorf("%w: config is not valid JSON", errBadForm)
		}
		p.config = gjson.Parse(raw)
	}
	return p, nil
}

func (p params) get(key string) (string, bool) {
	if v := p.form.Get(key); v != "" {
		return v, true
	}
	if p.config.Exists() {
		if v := p.config.Get(key); v.Exists() {
			return v.String(), true
		}
	}
	return "", false
}

func (p params) floatValue(key string, dst *float64) error {
	v, ok := p.get(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a number", spectrogram.ErrInvalidConfig, key, v)
	}
	*dst = f
	return nil
}

func (p params) intValue(key string, dst *int) error {
	v, ok := p.get(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", spectrogram.ErrInvalidConfig, key, v)
	}
	*dst = n
	return nil
}

func (p params) boolValue(key string, dst *bool) error {
	v, ok := p.get(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a boolean", spectrogram.ErrInvalidConfig, key, v)
	}
	*dst = b
	return nil
}

// settings applies the request overrides to the server defaults. A SigMF
// sample rate is used unless sample_rate is given explicitly.
func (s *server) settings(p params, meta *iq.Meta) (spectrogram.Config, render.Options, bool, error) {
	cfg, opts := s.cfg, s.opts
	strict := false

	if meta != nil && meta.SampleRate > 0 {
		cfg.SampleRate = meta.SampleRate
	}

	if err := p.floatValue("sample_rate", &cfg.SampleRate); err != nil {
		return cfg, opts, strict, err
	}
	if err := p.intValue("frame_size", &cfg.FrameSize); err != nil {
		return cfg, opts, strict, err
	}
	if err := p.intValue("overlap", &cfg.Overlap); err != nil {
		return cfg, opts, strict, err
	}
	if v, ok := p.get("scaling"); ok {
		sc, err := spectrogram.ParseScaling(v)
		if err != nil {
			return cfg, opts, strict, err
		}
		cfg.Scaling = sc
	}
	if v, ok := p.get("backend"); ok {
		b, err := spectrogram.ParseBackend(v)
		if err != nil {
			return cfg, opts, strict, err
		}
		cfg.Backend = b
	}

	if v, ok := p.get("time_axis"); ok {
		axis, err := render.ParseTimeAxis(v)
		if err != nil {
			return cfg, opts, strict, err
		}
		opts.TimeAxis = axis
	}
	if v, ok := p.get("colormap"); ok {
		cmap, err := render.ParseColormap(v)
		if err != nil {
			return cfg, opts, strict, err
		}
		opts.Colormap = cmap
	}
	if err := p.boolValue("invert_frequency", &opts.InvertFrequency); err != nil {
		return cfg, opts, strict, err
	}
	if err := p.boolValue("invert_time", &opts.InvertTime); err != nil {
		return cfg, opts, strict, err
	}

	_, hasMin := p.get("min_db")
	_, hasMax := p.get("max_db")
	if hasMin != hasMax {
		return cfg, opts, strict, fmt.Errorf("%w: min_db and max_db must be given together", render.ErrInvalidOptions)
	}
	if hasMin {
		opts.Scale.Fixed = true
		if err := p.floatValue("min_db", &opts.Scale.MinDB); err != nil {
			return cfg, opts, strict, err
		}
		if err := p.floatValue("max_db", &opts.Scale.MaxDB); err != nil {
			return cfg, opts, strict, err
		}
	}

	if err := p.boolValue("strict", &strict); err != nil {
		return cfg, opts, strict, err
	}
	return cfg, opts, strict, nil
}

func newSpectrogramResponse(id string, res *core.Result, opts render.Options) spectrogramResponse {
	lo, hi := res.MinMax()
	if opts.Scale.Fixed {
		lo, hi = opts.Scale.MinDB, opts.Scale.MaxDB
	}
	return spectrogramResponse{
		ID:           id,
		Spectrogram:  render.Base64(res.PNG),
		Samples:      res.Samples,
		DroppedBytes: res.Dropped,
		Frames:       res.Matrix.Frames,
		Bins:         res.Matrix.Bins,
		SampleRate:   res.Matrix.SampleRate,
		MinDB:        lo,
		MaxDB:        hi,
		ElapsedMs:    res.Elapsed.Milliseconds(),
	}
}

func compute(data []byte, cfg spectrogram.Config, opts render.Options, strict bool) (*core.Result, error) {
	if strict {
		return core.ComputeStrict(data, cfg, opts)
	}
	return core.ComputeSpectrogram(data, cfg, opts)
}

func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reqStart := time.Now()
	log.Printf("[upload] received request from %s", r.RemoteAddr)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	data, filename, err := readUploadedFile(r, "file")
	if err != nil {
		s.writeFailure(w, r, fmt.Errorf("%w: no file provided: %v", errBadForm, err))
		return
	}
	log.Printf("[upload] received %s (%s)", filename, utils.FormatBytes(int64(len(data))))

	var meta *iq.Meta
	rawMeta, _, err := readUploadedFile(r, "meta")
	if err != nil && r.FormValue("meta") != "" {
		rawMeta, err = []byte(r.FormValue("meta")), nil
	}
	if err == nil {
		m, err := iq.ParseMeta(rawMeta)
		if err != nil {
			if !errors.Is(err, iq.ErrUnsupportedDatatype) {
				err = fmt.Errorf("%w: %v", errBadForm, err)
			}
			s.writeFailure(w, r, err)
			return
		}
		meta = &m
	}

	p, err := newParams(r.Form)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	cfg, opts, strict, err := s.settings(p, meta)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	logMemUsage("before compute")
	res, err := compute(data, cfg, opts, strict)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	logMemUsage("after compute")

	id, err := s.store.Store(data, filename)
	if err != nil {
		s.writeFailure(w, r, fmt.Errorf("failed to store upload: %w", err))
		return
	}

	log.Printf("[upload] completed %s as %s in %s", filename, id, time.Since(reqStart))
	writeJSON(w, http.StatusOK, newSpectrogramResponse(id, res, opts))
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleBlobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	blobs, err := s.store.List()
	if err != nil {
		s.writeFailure(w, r, fmt.Errorf("failed to list blobs: %w", err))
		return
	}
	if blobs == nil {
		blobs = []db.Blob{}
	}
	writeJSON(w, http.StatusOK, blobs)
}

func (s *server) handleBlob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		data, err := s.store.Fetch(id)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)

	case http.MethodDelete:
		if err := s.store.Delete(id); err != nil {
			s.writeFailure(w, r, err)
			return
		}
		log.Printf("[blobs] deleted %s", id)
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *server) handleBlobSpectrogram(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := r.PathValue("id")
	query := r.URL.Query()

	p, err := newParams(query)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	cfg, opts, strict, err := s.settings(p, nil)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	var res *core.Result
	if strict {
		data, ferr := s.store.Fetch(id)
		if ferr != nil {
			s.writeFailure(w, r, ferr)
			return
		}
		res, err = core.ComputeStrict(data, cfg, opts)
	} else {
		res, err = core.RenderBlob(s.store, id, cfg, opts)
	}
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	if strings.EqualFold(query.Get("format"), "png") {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(res.PNG)))
		w.Write(res.PNG)
		return
	}
	writeJSON(w, http.StatusOK, newSpectrogramResponse(id, res, opts))
}
