package chrono

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"elms-extractor/internal/components/telemetry"

	"github.com/robfig/cron/v3"
)

// CronAPI schedules callbacks on a cron spec ("@every 1m", "0 * * * *").
//
// note: fault injection point
type CronAPI interface {
	Cron(spec string, callback func()) error
}

// StandardCron runs jobs on a robfig/cron scheduler. A job that panics is
// reported as broken instead of crashing the process, and a job that is
// still running when it is due again is skipped.
type StandardCron struct {
	cron *cron.Cron
}

func NewStandardCron(tel telemetry.API) StandardCron {
	logger := cronLogger{tel: telemetry.NewScopedAPI("cron", tel)}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Start()
	return StandardCron{cron: c}
}

func (s StandardCron) Cron(spec string, callback func()) error {
	_, err := s.cron.AddFunc(spec, callback)
	return err
}

// Stop unschedules every job, the returned context is done once running
// jobs return.
func (s StandardCron) Stop() context.Context {
	return s.cron.Stop()
}

// ManualCron records scheduled jobs and only runs them when Run is called.
type ManualCron struct {
	mutex sync.Mutex
	specs []string
	jobs  []func()
}

func (m *ManualCron) Cron(spec string, callback func()) error {
	_, err := cron.ParseStandard(spec)
	if err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.specs = append(m.specs, spec)
	m.jobs = append(m.jobs, callback)
	return nil
}

func (m *ManualCron) Specs() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]string(nil), m.specs...)
}

// Run runs every scheduled job once, in the order they were scheduled.
func (m *ManualCron) Run() {
	m.mutex.Lock()
	jobs := append([]func(){}, m.jobs...)
	m.mutex.Unlock()
	for _, job := range jobs {
		job()
	}
}

// cronLogger adapts cron.Logger to telemetry.API.
type cronLogger struct {
	tel telemetry.API
}

func pairs(keysAndValues []any) string {
	parts := make([]string, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		parts = append(parts, fmt.Sprintf("%v=%v", keysAndValues[i], keysAndValues[i+1]))
	}
	return strings.Join(parts, " ")
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug(msg, pairs(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.tel.ReportBroken("job", fmt.Errorf("%s: %w", msg, err), pairs(keysAndValues))
}
