package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tourney/internal/exact"
	"tourney/internal/experiment"
	"tourney/internal/geo"
	"tourney/internal/metrics"
	"tourney/internal/model"
	"tourney/internal/moves"
	"tourney/internal/opt"
	"tourney/internal/schedule"
	"tourney/internal/validate"
)

const defaultSpreadKm = 200

// OptimizeHandler handles POST /v1/optimize
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.Limiter != nil && !s.Limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		writeProblem(w, http.StatusTooManyRequests, "Rate limited", "too many optimize requests", r.URL.Path)
		return
	}
	var req model.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateOptimizeRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
		return
	}
	alg, _ := experiment.ParseAlgorithm(req.Algorithm)
	in, spread, err := s.instance(req.TeamList, req.Teams, req.Seed, req.SpreadKm, req.Center, req.ByePolicy)
	if err != nil {
		writeError(w, r, "Invalid instance", err)
		return
	}
	if alg == experiment.Exact {
		if err := s.checkSolver(req.Solver, in.N); err != nil {
			writeError(w, r, "Exact solver rejected", err)
			return
		}
	}
	p := s.params(&req)

	s.Broker.Publish(TopicRuns, model.RunEvent{Type: model.EventRunStarted, Data: map[string]any{
		"algorithm": string(alg), "teams": in.N, "seed": req.Seed,
	}})
	res, err := in.Run(r.Context(), alg, p)
	if err != nil {
		metrics.ObserveRun(metrics.RunStats{Algorithm: string(alg), Outcome: "error"})
		s.Broker.Publish(TopicRuns, model.RunEvent{Type: model.EventRunFailed, Data: map[string]any{
			"algorithm": string(alg), "teams": in.N, "seed": req.Seed, "error": err.Error(),
		}})
		writeError(w, r, "Optimize failed", err)
		return
	}
	experiment.Observe(res)
	run, err := s.Store.SaveRun(r.Context(), res.Record(spread))
	if err != nil {
		writeError(w, r, "Save run failed", err)
		return
	}
	s.Logger.Info("run complete",
		"id", run.ID, "algorithm", run.Algorithm, "teams", run.Teams, "seed", run.Seed,
		"baseline", run.BaselineTotal, "best", run.BestTotal, "iterations", run.Iterations,
		"elapsed", res.Runtime)
	s.Broker.Publish(TopicRuns, model.RunEvent{Type: model.EventRunCompleted, Data: runSummary(run)})
	if !req.IncludeLog {
		run.Log = nil
	}
	writeJSON(w, http.StatusOK, run)
}

// instance builds the problem from an explicit team list or from a seed.
// It also returns the spread recorded with the run.
func (s *Server) instance(list []geo.Team, n int, seed int64, spread float64, center *geo.Point, bye string) (*experiment.Instance, float64, error) {
	policy := s.Config.ByePolicy
	if bye != "" {
		var err error
		if policy, err = schedule.ParseByePolicy(bye); err != nil {
			return nil, 0, err
		}
	}
	byeOpt := schedule.WithByePolicy(policy)
	if len(list) > 0 {
		in, err := experiment.FromTeams(list, byeOpt)
		if err != nil {
			return nil, 0, err
		}
		in.Seed = seed
		return in, 0, nil
	}
	if spread == 0 {
		spread = defaultSpreadKm
	}
	c := geo.DefaultCenter
	if center != nil {
		c = *center
	}
	in, err := experiment.NewInstance(n, seed, c, spread, byeOpt)
	return in, spread, err
}

func (s *Server) checkSolver(name string, n int) error {
	if name == "" {
		name = "enumerate"
	}
	sv, err := s.Solvers.Lookup(name)
	if err != nil {
		return err
	}
	if n > sv.MaxTeams() {
		return fmt.Errorf("%w: %s handles up to %d teams, got %d", exact.ErrTooLarge, name, sv.MaxTeams(), n)
	}
	return nil
}

// params maps request overrides onto the library defaults. The request
// seed drives both searches.
func (s *Server) params(req *model.OptimizeRequest) experiment.Params {
	p := experiment.DefaultParams()
	if req.Constraints != nil {
		p.Constraints = *req.Constraints
	}
	apply := func(o *opt.Options) {
		o.Seed = req.Seed
		if req.MaxIterations > 0 {
			o.MaxIters = req.MaxIterations
		}
		if req.MaxNoImprove != nil {
			o.MaxNoImprove = *req.MaxNoImprove
		}
		if req.TimeBudgetMs > 0 {
			o.TimeBudget = time.Duration(req.TimeBudgetMs) * time.Millisecond
		}
		if req.Validate != nil {
			o.Validate = *req.Validate
		}
		if len(req.Moves) > 0 {
			o.Moves = o.Moves[:0:0]
			for _, m := range req.Moves {
				k, _ := moves.ParseKind(m)
				o.Moves = append(o.Moves, k)
			}
		}
	}
	apply(&p.HillClimb)
	apply(&p.Anneal.Options)
	if req.InitTemp != nil {
		p.Anneal.T0 = *req.InitTemp
	}
	if req.Cooling != 0 {
		p.Anneal.Decay = req.Cooling
	}
	p.Solver = req.Solver
	p.Registry = s.Solvers
	return p
}

func runSummary(run model.Run) map[string]any {
	return map[string]any{
		"id":             run.ID,
		"algorithm":      run.Algorithm,
		"teams":          run.Teams,
		"seed":           run.Seed,
		"baselineTotal":  run.BaselineTotal,
		"bestTotal":      run.BestTotal,
		"improvementPct": run.ImprovementPct,
		"valid":          run.Valid,
		"createdAt":      run.CreatedAt.Format(time.RFC3339Nano),
	}
}

// EvaluateHandler handles POST /v1/evaluate
func (s *Server) EvaluateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateEvaluateRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid evaluate request", err.Error(), r.URL.Path)
		return
	}
	if ok, vs := validate.Structure(req.Schedule); !ok {
		writeJSON(w, http.StatusUnprocessableEntity, struct {
			Problem
			Violations []validate.Violation `json:"violations"`
		}{
			Problem:    Problem{Type: "about:blank", Title: "Malformed schedule", Status: http.StatusUnprocessableEntity, Instance: r.URL.Path},
			Violations: vs,
		})
		return
	}
	in, _, err := s.instance(req.TeamList, req.Schedule.NumTeams(), req.Seed, req.SpreadKm, req.Center, req.ByePolicy)
	if err != nil {
		writeError(w, r, "Invalid instance", err)
		return
	}
	cfg := validate.DefaultConfig()
	if req.Constraints != nil {
		cfg = *req.Constraints
	}
	suite, err := validate.NewSuite(cfg)
	if err != nil {
		writeError(w, r, "Invalid constraints", err)
		return
	}
	ev := in.Evaluator.Evaluate(req.Schedule)
	ok, vs := suite.Validate(req.Schedule)
	writeJSON(w, http.StatusOK, model.EvaluateResponse{PerTeam: ev.PerTeam, Total: ev.Total, Valid: ok, Violations: vs})
}

// OptimizerConfigHandler returns default optimizer configuration
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/optimizer/config" || r.Method != http.MethodGet {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	defaults := optimizerDefaults(s.Config.ByePolicy)
	cfg, err := s.Store.GetOptimizerConfig(r.Context())
	if err != nil {
		writeError(w, r, "Load config failed", err)
		return
	}
	// overlay stored config
	for k, v := range cfg {
		defaults[k] = v
	}
	writeJSON(w, http.StatusOK, map[string]any{"defaults": defaults})
}

func optimizerDefaults(bye schedule.ByePolicy) map[string]any {
	hc, sa := opt.DefaultOptions(), opt.DefaultAnnealOptions()
	mv := make([]string, 0, len(hc.Moves))
	for _, k := range hc.Moves {
		mv = append(mv, string(k))
	}
	return map[string]any{
		"algorithm":     string(experiment.HillClimb),
		"solver":        "enumerate",
		"maxIterations": hc.MaxIters,
		"maxNoImprove":  hc.MaxNoImprove,
		"timeBudgetMs":  0,
		"initTemp":      sa.T0,
		"cooling":       sa.Decay,
		"moves":         mv,
		"validate":      hc.Validate,
		"constraints":   hc.Constraints,
		"byePolicy":     bye.String(),
		"spreadKm":      defaultSpreadKm,
	}
}

// AdminOptimizerConfigHandler gets or replaces the stored optimizer config.
func (s *Server) AdminOptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/optimizer/config" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		cfg, err := s.Store.GetOptimizerConfig(r.Context())
		if err != nil {
			writeError(w, r, "Load config failed", err)
			return
		}
		if cfg == nil {
			cfg = map[string]any{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"config": cfg})
	case http.MethodPut:
		var body struct {
			Config map[string]any `json:"config"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if body.Config == nil {
			writeProblem(w, http.StatusBadRequest, "Missing config", "", r.URL.Path)
			return
		}
		if err := checkStoredConfig(body.Config); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid config", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.SaveOptimizerConfig(r.Context(), body.Config); err != nil {
			writeError(w, r, "Save failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// checkStoredConfig rejects unknown keys and values an optimize request
// would not accept.
func checkStoredConfig(cfg map[string]any) error {
	for k := range cfg {
		if _, ok := optimizerDefaults(schedule.ByeStay)[k]; !ok {
			return fmt.Errorf("unknown key %q", k)
		}
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	req := model.OptimizeRequest{Teams: 2}
	if err := json.Unmarshal(raw, &req); err != nil {
		return err
	}
	return validateOptimizeRequest(&req)
}

// SolversHandler lists exact-solver capabilities.
func (s *Server) SolversHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.Solvers.Capabilities()})
}

// RunsIndexHandler handles GET /v1/runs
func (s *Server) RunsIndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/runs" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	limit := 100
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", err.Error(), r.URL.Path)
			return
		}
		limit = n
	}
	items, next, err := s.Store.ListRuns(r.Context(), q.Get("algorithm"), q.Get("cursor"), limit)
	if err != nil {
		writeError(w, r, "List runs failed", err)
		return
	}
	if q.Get("full") != "true" {
		for i := range items {
			items[i].Log = nil
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id}, /v1/runs/stream and /v1/runs/ws
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	switch rest {
	case "":
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	case "stream":
		s.RunsStreamHandler(w, r)
		return
	case "ws":
		s.RunsWSHandler(w, r)
		return
	}
	if strings.Contains(rest, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	run, err := s.Store.GetRun(r.Context(), rest)
	if err != nil {
		writeError(w, r, "Run not found", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// heartbeatEvery is how often an idle SSE stream emits a heartbeat.
var heartbeatEvery = 15 * time.Second

// RunsStreamHandler streams run events as server-sent events.
func (s *Server) RunsStreamHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	ch := s.Broker.Subscribe(TopicRuns)
	defer s.Broker.Unsubscribe(TopicRuns, ch)
	clients := metrics.StreamClients.WithLabelValues("sse")
	clients.Inc()
	defer clients.Dec()

	heartbeat := func() {
		fmt.Fprintf(w, "event: heartbeat\n")
		fmt.Fprintf(w, "data: {\"ts\":%q}\n\n", time.Now().UTC().Format(time.RFC3339))
		flusher.Flush()
	}
	heartbeat()
	ticker := time.NewTicker(heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			b, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", string(b))
			flusher.Flush()
		case <-ticker.C:
			heartbeat()
		}
	}
}

// AdminRunStatsHandler returns per-algorithm aggregates.
func (s *Server) AdminRunStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	stats, err := s.Store.RunStats(r.Context())
	if err != nil {
		writeError(w, r, "Run stats failed", err)
		return
	}
	for i := range stats {
		stats[i].AvgImprovementPct = round2(stats[i].AvgImprovementPct)
		stats[i].AvgRuntimeMs = round2(stats[i].AvgRuntimeMs)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": stats})
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	type pinger interface{ Ping(ctx context.Context) error }
	if pb, ok := s.Broker.(pinger); ok {
		if err := pb.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", "broker: "+err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
