package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/atlas-desktop/forecast-backend/internal/montecarlo"
	"github.com/atlas-desktop/forecast-backend/internal/workers"
	"github.com/atlas-desktop/forecast-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SimulationResponse is the wire shape of a completed forecast. Scenario
// extremes travel as decimals rounded to cents; the statistical sections
// are passed through from the engine.
type SimulationResponse struct {
	Metadata      montecarlo.Metadata      `json:"metadata"`
	Scenarios     types.ScenarioSummary    `json:"scenarios"`
	Percentiles   map[string]float64       `json:"percentiles"`
	Statistics    montecarlo.Statistics    `json:"statistics"`
	Probabilities montecarlo.Probabilities `json:"probabilities"`
	RiskMetrics   montecarlo.RiskMetrics   `json:"risk_metrics"`
	TimeSeries    montecarlo.TimeSeries    `json:"time_series"`
}

func toResponse(result *montecarlo.Result) *SimulationResponse {
	money := func(v float64) decimal.Decimal {
		return decimal.NewFromFloat(v).Round(2)
	}
	return &SimulationResponse{
		Metadata: result.Metadata,
		Scenarios: types.ScenarioSummary{
			BestCase:  money(result.Scenarios.BestCase),
			WorstCase: money(result.Scenarios.WorstCase),
			Median:    money(result.Scenarios.Median),
			Mean:      money(result.Scenarios.Mean),
		},
		Percentiles:   result.Percentiles,
		Statistics:    result.Statistics,
		Probabilities: result.Probabilities,
		RiskMetrics:   result.RiskMetrics,
		TimeSeries:    result.TimeSeries,
	}
}

// engineConfig maps a wire request onto an engine configuration. Fields the
// request leaves unset keep the engine defaults.
func engineConfig(req *types.SimulationRequest) montecarlo.Config {
	cfg := montecarlo.DefaultConfig()
	cfg.NumSimulations = req.NumSimulations
	cfg.Years = req.Years
	cfg.MonthlyContribution = req.MonthlyContribution
	cfg.RandomSeed = req.RandomSeed
	if req.RiskFreeRate != nil {
		cfg.RiskFreeRate = *req.RiskFreeRate
	}
	if len(req.ConfidenceLevels) > 0 {
		cfg.ConfidenceLevels = req.ConfidenceLevels
	}
	if req.Distribution != "" {
		cfg.Distribution = montecarlo.Distribution(req.Distribution)
	}
	if req.Method != "" {
		cfg.Method = montecarlo.Method(req.Method)
	}
	return cfg
}

func engineHoldings(req *types.SimulationRequest) []montecarlo.Holding {
	holdings := make([]montecarlo.Holding, len(req.Holdings))
	for i, h := range req.Holdings {
		holdings[i] = montecarlo.Holding{
			Value:            h.Value.InexactFloat64(),
			AnnualReturn:     h.AnnualReturn,
			AnnualVolatility: h.AnnualVolatility,
		}
	}
	return holdings
}

// writeSimulationError maps engine errors onto HTTP statuses: bad
// parameters are the client's fault, compute failures are ours. Either way
// the body is a plain human-readable message.
func (s *Server) writeSimulationError(w http.ResponseWriter, err error) {
	var cfgErr *montecarlo.ConfigError
	if errors.As(err, &cfgErr) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Error("simulation failed", zap.Error(err))
	http.Error(w, "simulation failed: "+err.Error(), http.StatusInternalServerError)
}

// runSimulation executes one forecast and records metrics for it.
func (s *Server) runSimulation(req *types.SimulationRequest) (*SimulationResponse, error) {
	sim, err := montecarlo.NewSimulator(s.logger, engineConfig(req))
	if err != nil {
		s.metrics.observe("invalid", 0, 0)
		return nil, err
	}

	result, err := sim.Run(engineHoldings(req))
	if err != nil {
		s.metrics.observe("error", 0, 0)
		return nil, err
	}

	s.metrics.observe("ok", result.Metadata.DurationSeconds, result.Metadata.NumSimulations)
	return toResponse(result), nil
}

// handleSimulate runs a forecast synchronously and returns the full result.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req types.SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.CheckLimits(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	response, err := s.runSimulation(&req)
	if err != nil {
		s.writeSimulationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// QuickRequest is the wire shape for a reduced forecast.
type QuickRequest struct {
	Holdings []types.HoldingInput `json:"holdings"`
	Years    int                  `json:"years"`
}

// handleQuickForecast runs a reduced simulation and returns a condensed
// summary, suitable for previews while the user edits inputs.
func (s *Server) handleQuickForecast(w http.ResponseWriter, r *http.Request) {
	var req QuickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	full := types.SimulationRequest{Holdings: req.Holdings}
	if err := full.CheckLimits(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Years == 0 {
		req.Years = 10
	}

	summary, err := montecarlo.QuickForecast(s.logger, engineHoldings(&full), req.Years)
	if err != nil {
		s.writeSimulationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleCreateJob starts an asynchronous forecast on the worker pool and
// returns a job ID immediately. Progress events go out over the WebSocket
// hub on the "forecasts" channel and on "forecasts:<id>".
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req types.SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.CheckLimits(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Validate before accepting the job so parameter errors come back as
	// a 400 instead of a failed job.
	if _, err := montecarlo.NewSimulator(s.logger, engineConfig(&req)); err != nil {
		s.writeSimulationError(w, err)
		return
	}

	id := uuid.New().String()
	state := &jobState{
		job: types.SimulationJob{
			ID:        id,
			Status:    types.JobStatusRunning,
			StartedAt: time.Now().Unix(),
		},
	}

	s.mu.Lock()
	s.jobs[id] = state
	s.mu.Unlock()

	// The task mutates state.job once it runs; the 202 body is built from
	// this copy so the handler never reads the shared state after Submit.
	accepted := state.job

	task := workers.TaskFunc(func() error {
		s.metrics.JobsRunning.Inc()
		defer s.metrics.JobsRunning.Dec()

		s.hub.PublishJobEvent(id, MsgTypeForecastStarted, map[string]interface{}{
			"id": id,
		})

		response, err := s.runSimulation(&req)

		s.mu.Lock()
		if err != nil {
			state.job.Status = types.JobStatusFailed
			state.job.Error = err.Error()
		} else {
			state.job.Status = types.JobStatusCompleted
			state.result = response
		}
		job := state.job
		s.finished = append(s.finished, id)
		if len(s.finished) > maxFinishedJobs {
			evict := s.finished[0]
			s.finished = s.finished[1:]
			delete(s.jobs, evict)
		}
		s.mu.Unlock()

		if err != nil {
			s.logger.Error("forecast job failed", zap.String("id", id), zap.Error(err))
			s.hub.PublishJobEvent(id, MsgTypeForecastFailed, job)
			return err
		}
		s.hub.PublishJobEvent(id, MsgTypeForecastCompleted, map[string]interface{}{
			"id":        id,
			"scenarios": response.Scenarios,
		})
		return nil
	})

	if err := s.pool.Submit(task); err != nil {
		s.mu.Lock()
		delete(s.jobs, id)
		s.mu.Unlock()
		http.Error(w, "too many simulations in flight", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, accepted)
}

// handleGetJob returns job status, including the full result once the job
// has completed.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.RLock()
	state, ok := s.jobs[id]
	var job types.SimulationJob
	var result *SimulationResponse
	if ok {
		job = state.job
		result = state.result
	}
	s.mu.RUnlock()

	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"id":         job.ID,
		"status":     job.Status,
		"started_at": job.StartedAt,
	}
	if job.Error != "" {
		response["error"] = job.Error
	}
	if result != nil {
		response["result"] = result
	}

	writeJSON(w, http.StatusOK, response)
}
