// Package service contains the service layer for the quote collector
package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nsvirk/nsequotes/internal/config"
	"github.com/nsvirk/nsequotes/internal/models"
	"github.com/nsvirk/nsequotes/internal/quote"
	"github.com/nsvirk/nsequotes/internal/storage"
	"github.com/nsvirk/nsequotes/internal/transport"
	"github.com/nsvirk/nsequotes/pkg/utils/zaplogger"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// CollectorState is the scheduler state
type CollectorState string

const (
	StateIdleWaitOpen CollectorState = "IDLE_WAIT_OPEN"
	StateRunningCycle CollectorState = "RUNNING_CYCLE"
	StateCooldown     CollectorState = "COOLDOWN"
	StateStopped      CollectorState = "STOPPED"
)

const (
	stageFetch = "fetch"
	stageParse = "parse"
	stageWrite = "write"
)

// ErrCollectorRunning is returned by Run when the loop is already running
var ErrCollectorRunning = errors.New("collector is already running")

// MarketCalendar reports whether the market is open at an instant
type MarketCalendar interface {
	IsOpen(now time.Time) bool
}

// QuoteWriter persists one parsed document for a symbol
type QuoteWriter interface {
	Write(symbol string, raw []byte, doc *models.QuoteDocument) (storage.WriteResult, error)
}

// CycleRecorder stores cycle summaries
type CycleRecorder interface {
	InsertCycleRun(run *models.CycleRunModel) error
}

// QuoteCache keeps the latest raw document per symbol and fans out cycle summaries
type QuoteCache interface {
	SetLatestQuote(ctx context.Context, symbol string, raw []byte) error
	PublishCycle(ctx context.Context, summary any) error
}

// CollectorConfig holds the scheduler settings
type CollectorConfig struct {
	Symbols       []string
	Workers       int
	CycleInterval time.Duration
	IdleInterval  time.Duration
	// TestMode forces the first market check open and stops at the first close
	TestMode bool

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// CycleSummary is the outcome of one collection cycle
type CycleSummary struct {
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	DurationMs        int64     `json:"duration_ms"`
	Symbols           int       `json:"symbols"`
	Succeeded         int       `json:"succeeded"`
	FailedSymbols     []string  `json:"failed_symbols"`
	FetchFailures     int       `json:"fetch_failures"`
	ParseFailures     int       `json:"parse_failures"`
	WriteFailures     int       `json:"write_failures"`
	RowsWritten       int       `json:"rows_written"`
	RowsFailed        int       `json:"rows_failed"`
	RejectedContracts int       `json:"rejected_contracts"`
}

// CollectorStatus is a point-in-time view of the scheduler
type CollectorStatus struct {
	State     CollectorState `json:"state"`
	Running   bool           `json:"running"`
	Cycles    int            `json:"cycles"`
	Symbols   int            `json:"symbols"`
	TestMode  bool           `json:"test_mode"`
	LastCycle *CycleSummary  `json:"last_cycle,omitempty"`
}

type symbolResult struct {
	symbol   string
	stage    string
	err      error
	written  int
	failed   int
	rejected int
}

// CollectorService polls the quote source for every symbol while the market is open
type CollectorService struct {
	cfg      CollectorConfig
	calendar MarketCalendar
	fetcher  transport.QuoteFetcher
	writer   QuoteWriter
	recorder CycleRecorder
	cache    QuoteCache

	running atomic.Bool

	mu          sync.RWMutex
	state       CollectorState
	cycles      int
	lastSummary *CycleSummary
}

// NewCollectorService creates a new CollectorService
func NewCollectorService(cfg CollectorConfig, calendar MarketCalendar, fetcher transport.QuoteFetcher, writer QuoteWriter) *CollectorService {
	if cfg.Workers <= 0 || cfg.Workers > config.MaxWorkers {
		cfg.Workers = config.MaxWorkers
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	return &CollectorService{
		cfg:      cfg,
		calendar: calendar,
		fetcher:  fetcher,
		writer:   writer,
		state:    StateIdleWaitOpen,
	}
}

// SetCycleRecorder enables persisting cycle summaries
func (s *CollectorService) SetCycleRecorder(recorder CycleRecorder) {
	s.recorder = recorder
}

// SetQuoteCache enables caching raw documents and publishing cycle summaries
func (s *CollectorService) SetQuoteCache(cache QuoteCache) {
	s.cache = cache
}

// Symbols returns the configured symbol list
func (s *CollectorService) Symbols() []string {
	return s.cfg.Symbols
}

// Status returns the current scheduler status
func (s *CollectorService) Status() CollectorStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := CollectorStatus{
		State:    s.state,
		Running:  s.running.Load(),
		Cycles:   s.cycles,
		Symbols:  len(s.cfg.Symbols),
		TestMode: s.cfg.TestMode,
	}
	if s.lastSummary != nil {
		last := *s.lastSummary
		last.FailedSymbols = append([]string(nil), s.lastSummary.FailedSymbols...)
		status.LastCycle = &last
	}
	return status
}

func (s *CollectorService) setState(state CollectorState) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()

	if prev != state {
		zaplogger.Debug("collector state changed", zaplogger.Fields{
			"from": string(prev),
			"to":   string(state),
		})
	}
}

// Run drives the scheduler until ctx is cancelled, or until the first market
// close in test mode. Cancellation is only observed while sleeping.
func (s *CollectorService) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrCollectorRunning
	}
	defer s.running.Store(false)

	zaplogger.Info("collector started", zaplogger.Fields{
		"symbols":   len(s.cfg.Symbols),
		"workers":   s.cfg.Workers,
		"test_mode": s.cfg.TestMode,
	})

	forceOpen := s.cfg.TestMode
	for {
		open := forceOpen || s.calendar.IsOpen(s.cfg.Now())
		forceOpen = false

		if !open {
			s.setState(StateIdleWaitOpen)
			if err := s.cfg.Sleep(ctx, s.cfg.IdleInterval); err != nil {
				return s.stop(err)
			}
			continue
		}

		for {
			s.setState(StateRunningCycle)
			s.RunCycle(ctx, s.cfg.Symbols)

			if !s.calendar.IsOpen(s.cfg.Now()) {
				zaplogger.Info("market closed")
				if s.cfg.TestMode {
					return s.stop(nil)
				}
				s.setState(StateIdleWaitOpen)
				break
			}

			s.setState(StateCooldown)
			if err := s.cfg.Sleep(ctx, s.cfg.CycleInterval); err != nil {
				return s.stop(err)
			}
		}
	}
}

func (s *CollectorService) stop(cause error) error {
	s.setState(StateStopped)
	fields := zaplogger.Fields{"cycles": s.Status().Cycles}
	if cause != nil {
		fields["reason"] = cause.Error()
	}
	zaplogger.Info("collector stopped", fields)
	return nil
}

// RunCycle fetches, parses and persists every symbol with at most Workers
// tasks in flight, and returns once all of them have finished.
func (s *CollectorService) RunCycle(ctx context.Context, symbols []string) CycleSummary {
	ctx = context.WithoutCancel(ctx)
	started := s.cfg.Now()

	results := make([]symbolResult, len(symbols))
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i, symbol := range symbols {
		g.Go(func() error {
			results[i] = s.collect(ctx, symbol)
			return nil
		})
	}
	_ = g.Wait()

	finished := s.cfg.Now()
	summary := CycleSummary{
		StartedAt:     started,
		FinishedAt:    finished,
		DurationMs:    finished.Sub(started).Milliseconds(),
		Symbols:       len(symbols),
		FailedSymbols: []string{},
	}
	for _, r := range results {
		summary.RowsWritten += r.written
		summary.RowsFailed += r.failed
		summary.RejectedContracts += r.rejected
		if r.err == nil {
			summary.Succeeded++
			continue
		}
		summary.FailedSymbols = append(summary.FailedSymbols, r.symbol)
		switch r.stage {
		case stageFetch:
			summary.FetchFailures++
		case stageParse:
			summary.ParseFailures++
		case stageWrite:
			summary.WriteFailures++
		}
	}

	s.mu.Lock()
	s.cycles++
	s.lastSummary = &summary
	s.mu.Unlock()

	zaplogger.Info("cycle completed", zaplogger.Fields{
		"symbols":        summary.Symbols,
		"succeeded":      summary.Succeeded,
		"failed_symbols": summary.FailedSymbols,
		"rows_written":   summary.RowsWritten,
		"duration_ms":    summary.DurationMs,
	})

	s.publish(ctx, summary)
	return summary
}

// collect runs the fetch, parse and write steps for one symbol
func (s *CollectorService) collect(ctx context.Context, symbol string) symbolResult {
	result := symbolResult{symbol: symbol}

	raw, err := s.fetcher.FetchQuote(ctx, symbol)
	if err != nil {
		zaplogger.Error("failed to fetch quote", zaplogger.Fields{
			"symbol": symbol,
			"error":  err,
		})
		result.stage, result.err = stageFetch, err
		return result
	}

	doc, err := quote.Parse(raw)
	if err != nil {
		zaplogger.Error("failed to parse quote", zaplogger.Fields{
			"symbol": symbol,
			"error":  err,
		})
		result.stage, result.err = stageParse, err
		return result
	}
	result.rejected = len(doc.Rejected)
	if result.rejected > 0 {
		zaplogger.Warn("rejected contracts", zaplogger.Fields{
			"symbol":   symbol,
			"rejected": result.rejected,
			"first":    doc.Rejected[0].Reason,
		})
	}

	written, err := s.writer.Write(symbol, raw, doc)
	result.written, result.failed = written.Written, written.Failed
	if err != nil {
		result.stage, result.err = stageWrite, err
		return result
	}

	if s.cache != nil {
		if err := s.cache.SetLatestQuote(ctx, symbol, raw); err != nil {
			zaplogger.Warn("failed to cache quote", zaplogger.Fields{
				"symbol": symbol,
				"error":  err,
			})
		}
	}

	zaplogger.Debug("quote collected", zaplogger.Fields{
		"symbol":  symbol,
		"written": written.Written,
		"skipped": written.Skipped,
		"archive": written.ArchivePath,
	})
	return result
}

func (s *CollectorService) publish(ctx context.Context, summary CycleSummary) {
	if s.recorder != nil {
		if err := s.recorder.InsertCycleRun(summary.Model()); err != nil {
			zaplogger.Error("failed to record cycle", zaplogger.Fields{
				"error": err,
			})
		}
	}
	if s.cache != nil {
		if err := s.cache.PublishCycle(ctx, summary); err != nil {
			zaplogger.Error("failed to publish cycle", zaplogger.Fields{
				"error": err,
			})
		}
	}
}

// Model converts the summary to its database row
func (c CycleSummary) Model() *models.CycleRunModel {
	failed, err := json.Marshal(c.FailedSymbols)
	if err != nil || c.FailedSymbols == nil {
		failed = []byte("[]")
	}
	return &models.CycleRunModel{
		StartedAt:     c.StartedAt,
		FinishedAt:    c.FinishedAt,
		DurationMs:    c.DurationMs,
		Symbols:       c.Symbols,
		Succeeded:     c.Succeeded,
		Failed:        len(c.FailedSymbols),
		RowsWritten:   c.RowsWritten,
		FailedSymbols: datatypes.JSON(failed),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
