package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/shardrisk/internal/api"
	"github.com/dreamware/shardrisk/internal/logging"
	"github.com/dreamware/shardrisk/internal/risk"
	"github.com/dreamware/shardrisk/internal/storage"
	"github.com/dreamware/shardrisk/internal/sweep"
)

const (
	// maxGridPoints bounds the work a single /sweep request may ask for.
	maxGridPoints = 10000

	// maxBodyBytes bounds every request body.
	maxBodyBytes = 1 << 20
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "riskd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	addr := getenv("RISKD_ADDR", ":8090")

	logger, err := logging.New(logging.Options{
		Level:  getenv("RISKD_LOG_LEVEL", "info"),
		File:   getenv("RISKD_LOG_FILE", ""),
		Fields: map[string]interface{}{"component": "riskd"},
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	workers, err := strconv.Atoi(getenv("RISKD_WORKERS", "0"))
	if err != nil {
		return fmt.Errorf("parse RISKD_WORKERS: %w", err)
	}

	store, err := openStore(getenv("RISKD_STORE", ""))
	if err != nil {
		return err
	}
	defer store.Close()

	srv := newServer(store, logger, workers)

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("riskd listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	logger.Info("riskd stopped")
	return nil
}

// openStore returns a bolt store at path, or an in-memory store when path is empty.
func openStore(path string) (storage.Store, error) {
	if path == "" {
		return storage.NewMemoryStore(), nil
	}
	return storage.OpenBoltStore(path)
}

type server struct {
	reports *storage.ReportStore
	logger  *zap.Logger
	workers int
}

func newServer(store storage.Store, logger *zap.Logger, workers int) *server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &server{
		reports: storage.NewReportStore(store),
		logger:  logger,
		workers: workers,
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/estimate", s.handleEstimate)
	mux.HandleFunc("/aggregate", s.handleAggregate)
	mux.HandleFunc("/sweep", s.handleSweep)
	mux.HandleFunc("/reports", s.handleReports)
	mux.HandleFunc("/reports/", s.handleReport)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// handleEstimate evaluates one plan and stores the report
func (s *server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var p risk.Params
	if !decodeBody(w, r, &p) {
		return
	}

	report, err := risk.Evaluate(p)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err = s.reports.Save(report)
	if err != nil {
		s.logger.Error("save report", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store report")
		return
	}

	s.logger.Info("estimated plan",
		zap.String("id", report.ID),
		zap.Int("population", p.Population),
		zap.Int("shards", p.Shards),
		zap.Float64("shard_probability", report.ShardProbability),
		zap.Float64("system_exact", report.SystemExact))
	writeJSON(w, http.StatusOK, report)
}

// handleAggregate combines a known shard probability over a shard count
func (s *server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req api.AggregateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	exact, approx, err := risk.SystemFailureProbability(req.Probability, req.Shards)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, api.AggregateResponse{
		Exact:            exact,
		Approx:           approx,
		ApproxExceedsOne: approx > 1,
	})
}

// handleSweep evaluates a parameter grid; reports are not stored
func (s *server) handleSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req api.SweepRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if n := req.Grid.Size(); n > maxGridPoints {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("grid has %d points, limit is %d", n, maxGridPoints))
		return
	}

	reports, err := sweep.Run(r.Context(), req.Grid, sweep.Options{
		Workers:   s.workers,
		Logger:    s.logger,
		MaxPoints: maxGridPoints,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := api.SweepResponse{Reports: reports}
	if req.Budget > 0 {
		if best, ok := sweep.MaxShardsWithin(reports, req.Budget); ok {
			resp.Best = &best
		}
	}

	s.logger.Info("swept grid", zap.Int("points", len(reports)), zap.Bool("budget_met", resp.Best != nil))
	writeJSON(w, http.StatusOK, resp)
}

// handleReports lists stored reports
func (s *server) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reports, err := s.reports.List()
	if err != nil {
		s.logger.Error("list reports", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	stats, err := s.reports.Stats()
	if err != nil {
		s.logger.Error("store stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read store stats")
		return
	}

	writeJSON(w, http.StatusOK, api.ReportsResponse{Reports: reports, Stats: stats})
}

// handleReport returns or deletes one stored report: /reports/{id}
func (s *server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path[len("/reports/"):]
	if id == "" {
		writeError(w, http.StatusBadRequest, "report id required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		report, err := s.reports.Load(id)
		if errors.Is(err, storage.ErrKeyNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		if err != nil {
			s.logger.Error("load report", zap.String("id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load report")
			return
		}
		writeJSON(w, http.StatusOK, report)
	case http.MethodDelete:
		if err := s.reports.Delete(id); err != nil {
			s.logger.Error("delete report", zap.String("id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to delete report")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// decodeBody reads a JSON body of at most maxBodyBytes into v. On failure it
// writes the error response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	writeError(w, http.StatusBadRequest, "bad json")
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, api.ErrorResponse{Error: msg})
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
