// Package server exposes a volume store over HTTP.
//
//	GET /api/health                           {status, available_samples}
//	GET /api/volumes                          {volumes: [info...]}
//	GET /api/volumes/:id/info                 info
//	GET /api/volumes/:id/low                  preview samples, f32 LE
//	GET /api/volumes/:id/full                 native samples, f32 LE
//	GET /api/volumes/:id/at/:resolution       resampled samples + X-Volume-Dims
//
// Every error is a JSON {"error": msg} body.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/zenazn/goji/web"
	"github.com/zenazn/goji/web/middleware"
	"github.com/zenazn/goji/web/mutil"

	"github.com/taigrr/voxlab/pkg/api"
	"github.com/taigrr/voxlab/pkg/logging"
	"github.com/taigrr/voxlab/pkg/store"
)

// WebAPIPath is the prefix of every route.
const WebAPIPath = "/api/"

// Server routes HTTP requests to a store.
type Server struct {
	store   *store.Store
	cfg     ServerConfig
	handler http.Handler
}

// New builds the handler chain: CORS, optional gzip, request logging, panic
// recovery and the goji mux.
func New(s *store.Store, cfg ServerConfig) *Server {
	srv := &Server{store: s, cfg: cfg}

	mux := web.New()
	mux.Use(middleware.Recoverer)
	mux.Use(logRequests)
	mux.Get(WebAPIPath+"health", srv.healthHandler)
	mux.Get(WebAPIPath+"volumes", srv.volumesHandler)
	mux.Get(WebAPIPath+"volumes/:id/info", srv.infoHandler)
	mux.Get(WebAPIPath+"volumes/:id/low", srv.lowHandler)
	mux.Get(WebAPIPath+"volumes/:id/full", srv.fullHandler)
	mux.Get(WebAPIPath+"volumes/:id/at/:resolution", srv.atHandler)
	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, r, http.StatusNotFound, "no route for %s %s", r.Method, r.URL.Path)
	})

	var h http.Handler = mux
	if cfg.Gzip {
		h = gzhttp.GzipHandler(h)
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	h = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{api.DimsHeader, "Content-Length"},
	}).Handler(h)
	srv.handler = h
	return srv
}

// ServeHTTP implements http.Handler.
func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	srv.handler.ServeHTTP(w, r)
}

// Serve listens on addr until ctx is done, then gives in-flight requests
// ShutdownDelay seconds to finish.
func (srv *Server) Serve(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logging.Infof("web server listening at %s, serving %d volumes", addr, srv.store.Len())
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	delay := srv.cfg.ShutdownDelay
	if delay <= 0 {
		delay = DefaultShutdownDelay
	}
	logging.Infof("shutting down web server, waiting up to %d seconds", delay)
	sctx, cancel := context.WithTimeout(context.Background(), time.Duration(delay)*time.Second)
	defer cancel()
	if err := hs.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// logRequests logs method, path, status, size and duration of each request.
func logRequests(h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := mutil.WrapWriter(w)
		h.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		msg := "%s %s -> %d, %s in %s"
		args := []any{r.Method, r.URL.Path, status, humanize.Bytes(uint64(ww.BytesWritten())), time.Since(start)}
		if status >= http.StatusInternalServerError {
			logging.Errorf(msg, args...)
		} else {
			logging.Infof(msg, args...)
		}
	}
	return http.HandlerFunc(fn)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Errorf("encoding JSON response: %v", err)
	}
}

func jsonError(w http.ResponseWriter, r *http.Request, status int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if status >= http.StatusInternalServerError {
		logging.Errorf("%s %s: %s", r.Method, r.URL.Path, msg)
	}
	writeJSON(w, status, api.Error{Error: msg})
}

// storeError maps store errors to HTTP statuses.
func storeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, r, http.StatusNotFound, "%v", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		jsonError(w, r, http.StatusServiceUnavailable, "request abandoned: %v", err)
	default:
		jsonError(w, r, http.StatusInternalServerError, "%v", err)
	}
}

func writeSamples(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.Debugf("writing %s response: %v", humanize.Bytes(uint64(len(data))), err)
	}
}

func (srv *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	samples := []string{}
	for _, id := range srv.store.IDs() {
		if strings.HasPrefix(id, srv.cfg.SamplePrefix) {
			samples = append(samples, id)
		}
	}
	writeJSON(w, http.StatusOK, api.Health{Status: "ok", AvailableSamples: samples})
}

func (srv *Server) volumesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.VolumeList{Volumes: srv.store.List()})
}

func (srv *Server) infoHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	info, err := srv.store.Info(c.URLParams["id"])
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (srv *Server) lowHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	data, err := srv.store.LowRes(c.URLParams["id"])
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeSamples(w, data)
}

func (srv *Server) fullHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	data, err := srv.store.FullRes(r.Context(), c.URLParams["id"])
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeSamples(w, data)
}

func (srv *Server) atHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	resStr := c.URLParams["resolution"]
	res, err := strconv.Atoi(resStr)
	if err != nil {
		jsonError(w, r, http.StatusBadRequest, "invalid resolution %q: must be an integer", resStr)
		return
	}
	data, dims, err := srv.store.AtResolution(r.Context(), c.URLParams["id"], res)
	if err != nil {
		storeError(w, r, err)
		return
	}
	w.Header().Set(api.DimsHeader, dims.String())
	writeSamples(w, data)
}
