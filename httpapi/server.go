// Package httpapi is the HTTP interface to a Seguid store.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/upsert"
)

// MaxBody is the largest request body the server reads.
const MaxBody = 64 << 20

// Config holds the optional settings of a Server.
type Config struct {
	// Key signs and checks write tokens.
	// When empty, no caller is authorized to submit by Seguid.
	Key []byte

	// Timeout, if positive, bounds the store work of each request.
	Timeout time.Duration

	Logger *zap.Logger
}

// Server serves the HTTP API.
type Server struct {
	store   seguid.Store
	coord   *upsert.Coordinator
	auth    *Authorizer
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics
	router  *mux.Router
}

// NewServer produces a new Server for s.
func NewServer(s seguid.Store, conf Config) *Server {
	logger := conf.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{
		store:   s,
		coord:   upsert.New(s, logger),
		auth:    NewAuthorizer(conf.Key),
		timeout: conf.Timeout,
		logger:  logger,
		metrics: newMetrics(),
	}

	// SkipClean keeps the "/" that may appear in a Seguid.
	router := mux.NewRouter().SkipClean(true)
	router.HandleFunc("/health", srv.getHealth).Methods("GET").Name("GetHealth")
	router.Handle("/metrics", promhttp.HandlerFor(srv.metrics.registry, promhttp.HandlerOpts{})).Methods("GET").Name("GetMetrics")
	router.HandleFunc("/seguid/", srv.malformed).Methods("GET").Name("GetSeguids")
	router.HandleFunc("/seguid/{seguids:.+}", srv.getSeguids).Methods("GET").Name("GetSeguids")
	router.HandleFunc("/id/", srv.malformed).Methods("GET").Name("GetIDs")
	router.HandleFunc("/id/{ids:.+}", srv.getIDs).Methods("GET").Name("GetIDs")
	router.HandleFunc("/seguid", srv.postBatch).Methods("POST").Name("PostBatch")
	router.HandleFunc("/seguid/{seguid:.+}", srv.postSeguid).Methods("POST").Name("PostSeguid")
	router.Use(srv.metrics.countRequests)
	srv.router = router

	return srv
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Registry is the registry of the server's metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.metrics.registry
}

func (s *Server) context(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(r.Context(), s.timeout)
	}
	return context.WithCancel(r.Context())
}

const (
	resultSuccess        = "success"
	resultSeguidsMissing = "seguids not found"
	resultIDsMissing     = "ids not found"
	resultFailure        = "failure"
)

// GET /health
func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) malformed(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, http.StatusBadRequest, seguid.ErrMalformed.Error())
}

// GET /seguid/{seguids}
func (s *Server) getSeguids(w http.ResponseWriter, r *http.Request) {
	fps, err := seguid.ParseSeguids(mux.Vars(r)["seguids"])
	if err != nil {
		s.writeErr(w, err)
		return
	}

	ctx, cancel := s.context(r)
	defer cancel()

	found, ok, err := seguid.Lookup(ctx, s.store, fps)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	out := make(map[string]interface{}, len(found)+1)
	for fp, ids := range found {
		out[string(fp)] = ids
	}
	code := http.StatusOK
	out["result"] = resultSuccess
	if !ok {
		code = http.StatusNotFound
		out["result"] = resultSeguidsMissing
	}
	s.writeJSON(w, code, out)
}

// GET /id/{ids}
func (s *Server) getIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := seguid.ParseIDs(mux.Vars(r)["ids"])
	if err != nil {
		s.writeErr(w, err)
		return
	}

	ctx, cancel := s.context(r)
	defer cancel()

	found, ok, err := seguid.LookupIDs(ctx, s.store, ids)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	out := make(map[string]interface{}, len(found)+1)
	for id, fp := range found {
		out[id] = string(fp)
	}
	code := http.StatusOK
	out["result"] = resultSuccess
	if !ok {
		code = http.StatusNotFound
		out["result"] = resultIDsMissing
	}
	s.writeJSON(w, code, out)
}

// POST /seguid
func (s *Server) postBatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBody))
	if err != nil {
		s.writeErr(w, errors.Wrapf(seguid.ErrMalformed, "reading body: %s", err))
		return
	}
	subs, err := upsert.ParseSubmissions(body)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if len(subs) == 0 {
		s.writeErr(w, errors.Wrap(seguid.ErrMalformed, "empty batch"))
		return
	}

	ctx, cancel := s.context(r)
	defer cancel()

	res, err := s.coord.Upsert(ctx, subs, s.auth.Authorized(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.metrics.observe(res)

	code := http.StatusOK
	if res.Status == upsert.Failure {
		code = http.StatusInternalServerError
	}
	s.writeJSON(w, code, res)
}

// POST /seguid/{seguid}
func (s *Server) postSeguid(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Authorized(r) {
		s.writeErr(w, upsert.ErrUnauthorized)
		return
	}

	fp := seguid.FromURL(mux.Vars(r)["seguid"])
	if !fp.Valid() {
		s.writeErr(w, errors.Wrapf(seguid.ErrMalformed, "seguid %s has length %d", fp, len(fp)))
		return
	}
	ids, err := seguid.ParseIDs(r.FormValue("ids"))
	if err != nil {
		s.writeErr(w, err)
		return
	}

	ctx, cancel := s.context(r)
	defer cancel()

	sub := upsert.FingerprintSubmission{Seguid: string(fp), IDs: ids}
	res, err := s.coord.Upsert(ctx, []upsert.Submission{sub}, true)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.metrics.observe(res)

	switch {
	case len(res.Created) > 0:
		w.WriteHeader(http.StatusCreated)
	case res.Succeeded() > 0:
		w.WriteHeader(http.StatusNoContent)
	default:
		s.writeResult(w, http.StatusInternalServerError, resultFailure)
	}
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, seguid.ErrMalformed):
		s.logger.Debug("malformed request", zap.Error(err))
		s.writeResult(w, http.StatusBadRequest, seguid.ErrMalformed.Error())
	case errors.Is(err, upsert.ErrUnauthorized):
		s.writeResult(w, http.StatusUnauthorized, upsert.ErrUnauthorized.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.writeResult(w, http.StatusInternalServerError, resultFailure)
	}
}

func (s *Server) writeResult(w http.ResponseWriter, code int, result string) {
	s.writeJSON(w, code, map[string]string{"result": result})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writing response", zap.Error(err))
	}
}
