package service

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/nsvirk/nsequotes/internal/config"
	"github.com/nsvirk/nsequotes/pkg/utils/zaplogger"
	"github.com/robfig/cron/v3"
)

// ErrCollectorShutdownTimeout is returned when an in-flight cycle does not
// finish within the shutdown timeout
var ErrCollectorShutdownTimeout = errors.New("collector did not stop in time")

// SessionRefresher renews the upstream cookie session
type SessionRefresher interface {
	RefreshSession(ctx context.Context) error
}

// CyclePruner deletes cycle history older than a cutoff
type CyclePruner interface {
	DeleteCycleRunsBefore(cutoff time.Time) (int64, error)
}

// CronService is the service for the cron jobs
type CronService struct {
	cfg       *config.Config
	c         *cron.Cron
	collector *CollectorService
	session   SessionRefresher
	pruner    CyclePruner
	now       func() time.Time

	startupDelay     time.Duration
	collectorStarted atomic.Bool
	collectorDone    chan error
}

// NewCronService creates a new CronService. pruner may be nil when no
// database is configured.
func NewCronService(cfg *config.Config, collector *CollectorService, session SessionRefresher, pruner CyclePruner) *CronService {
	return &CronService{
		cfg:           cfg,
		c:             cron.New(cron.WithLocation(cfg.Location())),
		collector:     collector,
		session:       session,
		pruner:        pruner,
		now:           time.Now,
		startupDelay:  time.Second,
		collectorDone: make(chan error, 1),
	}
}

// Start registers the jobs and starts the scheduler. The collector loop runs
// until ctx is cancelled; its result is delivered on CollectorDone.
func (cs *CronService) Start(ctx context.Context) {
	zaplogger.Info("Initializing CronService")

	// ------------------------------------------------------------
	// SCHEDULED jobs
	// ------------------------------------------------------------
	cs.registerScheduledJobs(ctx)

	// ------------------------------------------------------------
	// STARTUP jobs
	// ------------------------------------------------------------
	cs.addStartupJob("NSE Session REFRESH Job", func() { cs.sessionRefreshJob(ctx) }, cs.startupDelay)
	cs.addStartupJob("Collector START Job", func() { cs.collectorStartJob(ctx) }, 2*cs.startupDelay)
	// ------------------------------------------------------------

	cs.c.Start()
}

// Stop stops the scheduler and waits for running jobs
func (cs *CronService) Stop() {
	<-cs.c.Stop().Done()
	zaplogger.Info("CronService stopped")
}

// CollectorDone is signalled once the collector loop returns
func (cs *CronService) CollectorDone() <-chan error {
	return cs.collectorDone
}

// WaitCollector blocks until a started collector loop returns, so that a cycle
// in flight at shutdown finishes its writes. It returns at once when the
// collector was never started.
func (cs *CronService) WaitCollector(timeout time.Duration) error {
	if !cs.collectorStarted.Load() {
		return nil
	}
	select {
	case err := <-cs.collectorDone:
		return err
	case <-time.After(timeout):
		return ErrCollectorShutdownTimeout
	}
}

func (cs *CronService) registerScheduledJobs(ctx context.Context) {
	cs.addScheduledJob("NSE Session REFRESH Job", func() { cs.sessionRefreshJob(ctx) }, cs.cfg.SessionRefreshSchedule)
	if cs.pruner != nil {
		cs.addScheduledJob("CycleRuns PRUNE Job", cs.cyclePruneJob, cs.cfg.CyclePruneSchedule)
	}
}

// addStartupJob adds a startup job to the cron service
func (cs *CronService) addStartupJob(name string, job func(), delay time.Duration) {
	go func() {
		time.Sleep(delay)
		zaplogger.Info("STARTED STARTUP job", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED STARTUP job", zaplogger.Fields{
			"job": name,
		})
	}()
	zaplogger.Info("QUEUED STARTUP job", zaplogger.Fields{
		"job": name,
	})
}

func (cs *CronService) addScheduledJob(name string, job func(), schedule string) {
	_, err := cs.c.AddFunc(schedule, func() {
		zaplogger.Info("STARTED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
	})
	if err != nil {
		zaplogger.Error("FAILED TO QUEUE SCHEDULED JOB", zaplogger.Fields{
			"job":      name,
			"schedule": schedule,
			"error":    err.Error(),
		})
		return
	}
	zaplogger.Info("QUEUED SCHEDULED job", zaplogger.Fields{
		"job":      name,
		"schedule": schedule,
	})
}

// sessionRefreshJob renews the NSE cookie session
func (cs *CronService) sessionRefreshJob(ctx context.Context) {
	jobName := "NSE Session REFRESH Job "

	ctx, cancel := context.WithTimeout(ctx, cs.cfg.RequestTimeout)
	defer cancel()

	if err := cs.session.RefreshSession(ctx); err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info(jobName, zaplogger.Fields{
		"step": "RefreshSession",
	})
}

// cyclePruneJob deletes cycle runs outside the retention window
func (cs *CronService) cyclePruneJob() {
	jobName := "CycleRuns PRUNE Job "
	defer zaplogger.TimeTrack(time.Now(), jobName)

	cutoff := cs.now().AddDate(0, 0, -cs.cfg.CycleRetentionDays)
	deleted, err := cs.pruner.DeleteCycleRunsBefore(cutoff)
	if err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info(jobName, zaplogger.Fields{
		"cutoff":       cutoff.Format(time.DateOnly),
		"rows_deleted": strconv.FormatInt(deleted, 10),
	})
}

// collectorStartJob starts the collector loop in the background
func (cs *CronService) collectorStartJob(ctx context.Context) {
	if ctx.Err() != nil {
		zaplogger.Info("Collector START Job skipped, shutdown in progress")
		return
	}
	cs.collectorStarted.Store(true)
	go func() {
		err := cs.collector.Run(ctx)
		if err != nil && !errors.Is(err, ErrCollectorRunning) {
			zaplogger.Error("Collector START Job ", zaplogger.Fields{
				"error": err.Error(),
			})
		}
		cs.collectorDone <- err
	}()
}
