// Package httpapi exposes the simulation kernel and scenario store over
// HTTP and streams live runs over a websocket.
package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/logging"
	"sanctum-sim/internal/metrics"
	"sanctum-sim/internal/model"
	"sanctum-sim/internal/observability"
	"sanctum-sim/internal/reporting"
	"sanctum-sim/internal/scenario"
	"sanctum-sim/internal/simulation"
	"sanctum-sim/internal/storage"
	"sanctum-sim/internal/verification"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Options configures a Server.
type Options struct {
	Scenarios      *scenario.Store
	Aggregator     *metrics.Aggregator
	RunStore       storage.RunRecordStore // optional; enables /api/runs
	MonteCarloRuns int                    // default replication count
	Workers        int                    // parallelism for run verification
	Logger         *slog.Logger
}

// Server serves the JSON API.
type Server struct {
	scenarios *scenario.Store
	agg       *metrics.Aggregator
	runStore  storage.RunRecordStore
	reports   *reporting.Generator
	verifier  verification.Verifier
	mcRuns    int
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

// New creates a Server.
func New(opts Options) *Server {
	s := &Server{
		scenarios: opts.Scenarios,
		agg:       opts.Aggregator,
		runStore:  opts.RunStore,
		reports:   reporting.NewGenerator(opts.RunStore),
		mcRuns:    opts.MonteCarloRuns,
		logger:    logging.OrDiscard(opts.Logger),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if s.mcRuns <= 0 {
		s.mcRuns = domain.DefaultMonteCarloRuns
	}
	if opts.RunStore != nil {
		s.verifier = verification.NewReplayVerifier(verification.ReplayVerifierOptions{
			RunStore: opts.RunStore,
			Workers:  opts.Workers,
			Logger:   s.logger,
		})
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("GET /api/models", s.handleModels)
	mux.HandleFunc("GET /api/shocks", s.handleShocks)
	mux.HandleFunc("GET /api/params", s.handleGetParams)
	mux.HandleFunc("PUT /api/params", s.handlePutParams)
	mux.HandleFunc("POST /api/run", s.handleRun)
	mux.HandleFunc("POST /api/montecarlo", s.handleMonteCarlo)
	mux.HandleFunc("GET /api/results", s.handleResults)

	mux.HandleFunc("GET /api/scenarios", s.handleListScenarios)
	mux.HandleFunc("POST /api/scenarios/fork", s.handleFork)
	mux.HandleFunc("POST /api/scenarios/commit", s.handleCommit)
	mux.HandleFunc("POST /api/scenarios/{id}/switch", s.handleSwitch)
	mux.HandleFunc("DELETE /api/scenarios/{id}", s.handleDeleteScenario)

	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}/verify", s.handleVerifyRun)
	mux.HandleFunc("GET /api/runs/{id}/report", s.handleRunReport)

	mux.HandleFunc("GET /ws/run", s.handleStreamRun)

	return s.withLogging(mux)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, model.All())
}

func (s *Server) handleShocks(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, domain.ShockCatalogue())
}

func (s *Server) handleGetParams(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, s.scenarios.Live())
}

// handlePutParams replaces the live parameters. Invalid parameters are
// rejected before they reach the store.
func (s *Server) handlePutParams(w http.ResponseWriter, r *http.Request) {
	var params domain.Parameters
	if err := decodeJSON(r, &params); err != nil {
		s.sendError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if params.ActiveShocks == nil {
		params.ActiveShocks = []domain.Shock{}
	}
	if err := simulation.Validate(params.Seed, params); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.scenarios.SetLive(params)
	s.sendJSON(w, http.StatusOK, s.scenarios.Live())
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRunRequest(w, r)
	if !ok {
		return
	}
	live := s.scenarios.LiveState()
	params, activeID := live.Params, live.ActiveID
	seed := seedOr(req.Seed, params.Seed)

	result, err := s.agg.RunSingle(metrics.WithScenarioID(r.Context(), activeID), seed, params)
	if err != nil {
		s.sendRunError(w, err)
		return
	}

	sensitivity := metrics.Sensitivity(result)
	if !s.scenarios.Record(live.Generation, result, nil, sensitivity) {
		s.logger.Info("live parameters changed during run, results not recorded", "scenario_id", activeID)
	}

	s.sendJSON(w, http.StatusOK, RunResponse{
		ScenarioID:   activeID,
		Mode:         domain.RunModeSingle,
		Seed:         seed,
		Result:       result,
		Sensitivity:  sensitivity,
		RiskCard:     reporting.NewRiskCard(result, params.ChaosMode),
		CostEstimate: reporting.CostEstimate(params.Iterations, domain.RunModeSingle),
	})
}

func (s *Server) handleMonteCarlo(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRunRequest(w, r)
	if !ok {
		return
	}
	live := s.scenarios.LiveState()
	params, activeID := live.Params, live.ActiveID
	seed := seedOr(req.Seed, params.Seed)
	runs := req.Runs
	if runs <= 0 {
		runs = s.mcRuns
	}

	stats, rep, err := s.agg.RunMonteCarlo(metrics.WithScenarioID(r.Context(), activeID), seed, params, runs)
	if err != nil {
		s.sendRunError(w, err)
		return
	}

	// Sensitivity is computed for single runs only; a batch keeps the last one.
	sensitivity, recorded := s.scenarios.RecordBatch(live.Generation, rep, stats)
	if !recorded {
		s.logger.Info("live parameters changed during batch, results not recorded", "scenario_id", activeID)
	}

	s.sendJSON(w, http.StatusOK, RunResponse{
		ScenarioID:   activeID,
		Mode:         domain.RunModeMonteCarlo,
		Seed:         seed,
		Result:       rep,
		Stats:        stats,
		Sensitivity:  sensitivity,
		RiskCard:     reporting.NewRiskCard(rep, params.ChaosMode),
		CostEstimate: reporting.CostEstimate(params.Iterations, domain.RunModeMonteCarlo),
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, s.scenarios.Results())
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, ScenarioListResponse{
		ActiveID:  s.scenarios.ActiveID(),
		Scenarios: s.scenarios.List(),
	})
}

func (s *Server) handleFork(w http.ResponseWriter, r *http.Request) {
	id, err := s.scenarios.Fork(r.Context(), s.scenarios.Live())
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.sendJSON(w, http.StatusCreated, ScenarioResponse{ID: id, ActiveID: id})
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	ok, err := s.scenarios.Commit(r.Context())
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		s.sendError(w, http.StatusConflict, "default scenario cannot be overwritten; fork it first")
		return
	}
	id := s.scenarios.ActiveID()
	s.sendJSON(w, http.StatusOK, ScenarioResponse{ID: id, ActiveID: id})
}

func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ok, err := s.scenarios.Switch(r.Context(), id)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		s.sendError(w, http.StatusNotFound, fmt.Sprintf("scenario %q not found", id))
		return
	}
	s.sendJSON(w, http.StatusOK, ScenarioResponse{ID: id, ActiveID: id})
}

func (s *Server) handleDeleteScenario(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == domain.DefaultScenarioID {
		s.sendError(w, http.StatusConflict, "default scenario cannot be deleted")
		return
	}
	ok, err := s.scenarios.Delete(r.Context(), id)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		s.sendError(w, http.StatusNotFound, fmt.Sprintf("scenario %q not found", id))
		return
	}
	s.sendJSON(w, http.StatusOK, ScenarioResponse{ID: id, ActiveID: s.scenarios.ActiveID()})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runStore == nil {
		s.sendError(w, http.StatusNotFound, "run archive not configured")
		return
	}

	var (
		recs []*domain.RunRecord
		err  error
	)
	if sc := r.URL.Query().Get("scenario"); sc != "" {
		recs, err = s.runStore.GetByScenario(r.Context(), sc)
	} else {
		recs, err = s.runStore.GetAll(r.Context())
	}
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []*domain.RunRecord{}
	}
	s.sendJSON(w, http.StatusOK, recs)
}

func (s *Server) handleVerifyRun(w http.ResponseWriter, r *http.Request) {
	if s.verifier == nil {
		s.sendError(w, http.StatusNotFound, "run archive not configured")
		return
	}
	result, err := s.verifier.VerifyRun(r.Context(), r.PathValue("id"))
	if errors.Is(err, verification.ErrRunNotFound) {
		s.sendError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.sendJSON(w, http.StatusOK, result)
}

// handleRunReport renders an archived run as markdown, csv or json (default).
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	if s.runStore == nil {
		s.sendError(w, http.StatusNotFound, "run archive not configured")
		return
	}
	report, err := s.reports.GenerateForRun(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		s.sendError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch r.URL.Query().Get("format") {
	case "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		io.WriteString(w, reporting.RenderMarkdown(report))
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		io.WriteString(w, reporting.RenderCSV(report.Result))
	case "", "json":
		s.sendJSON(w, http.StatusOK, report)
	default:
		s.sendError(w, http.StatusBadRequest, "format must be json, md or csv")
	}
}

func (s *Server) decodeRunRequest(w http.ResponseWriter, r *http.Request) (RunRequest, bool) {
	var req RunRequest
	if r.ContentLength == 0 {
		return req, true
	}
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.sendError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return req, false
	}
	if req.Runs < 0 || req.Runs > 10000 {
		s.sendError(w, http.StatusBadRequest, "runs must be in 0..10000 (0 = server default)")
		return req, false
	}
	return req, true
}

// sendRunError maps kernel errors: bad parameters are the caller's fault,
// cancellation means the client went away.
func (s *Server) sendRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.sendError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, simulation.ErrEmptySeed),
		errors.Is(err, simulation.ErrIterationsOutOfRange),
		errors.Is(err, simulation.ErrNonFiniteParam),
		errors.Is(err, model.ErrUnknownModel):
		s.sendError(w, http.StatusBadRequest, err.Error())
	default:
		s.sendError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) sendJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response failed", "error", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	s.sendJSON(w, code, ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes through to the underlying writer for websocket upgrades.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response does not implement http.Hijacker")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start),
		)
	})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func seedOr(seed, fallback string) string {
	if seed != "" {
		return seed
	}
	return fallback
}
