package jobs

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lukasbauer/callcontrol/internal/notifications"
	"github.com/lukasbauer/callcontrol/internal/pricing"
	"go.uber.org/zap"
)

// RuleSource provides the current pricing schedule.
type RuleSource interface {
	ListPricingRules(ctx context.Context) (pricing.Schedule, error)
}

// AuditReport is the outcome of one schedule audit.
type AuditReport struct {
	Rules    int
	Gaps     []pricing.Window
	Overlaps []pricing.RuleOverlap
}

// Clean reports whether the schedule covers the whole day without overlaps.
func (r AuditReport) Clean() bool {
	return len(r.Gaps) == 0 && len(r.Overlaps) == 0
}

func (r AuditReport) fingerprint() string {
	var b strings.Builder
	for _, g := range r.Gaps {
		b.WriteString(g.String())
		b.WriteByte(';')
	}
	for _, o := range r.Overlaps {
		fmt.Fprintf(&b, "%s/%s/%s;", o.First, o.Second, o.Shared)
	}
	return b.String()
}

// ScheduleAuditJob periodically checks the pricing schedule for stretches of
// the day no rule covers and for rules whose windows overlap. Calls starting
// in a gap cannot be priced, so gaps are logged as errors and sent to Discord.
// A notification goes out only when the findings change.
type ScheduleAuditJob struct {
	rules    RuleSource
	discord  *notifications.Discord
	logger   *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup

	mu   sync.Mutex
	last string
}

// NewScheduleAuditJob creates a new audit job.
func NewScheduleAuditJob(rules RuleSource, discord *notifications.Discord, logger *zap.Logger, interval time.Duration) *ScheduleAuditJob {
	if interval == 0 {
		interval = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleAuditJob{
		rules:    rules,
		discord:  discord,
		logger:   logger.Named("schedule_audit"),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background job.
func (j *ScheduleAuditJob) Start() {
	j.wg.Add(1)
	go j.run()
	j.logger.Info("started", zap.Duration("interval", j.interval))
}

// Stop gracefully stops the background job.
func (j *ScheduleAuditJob) Stop() {
	close(j.stopCh)
	j.wg.Wait()
	j.logger.Info("stopped")
}

func (j *ScheduleAuditJob) run() {
	defer j.wg.Done()

	// Run immediately on start
	j.tick()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.tick()
		case <-j.stopCh:
			return
		}
	}
}

func (j *ScheduleAuditJob) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := j.Audit(ctx); err != nil {
		j.logger.Warn("audit failed", zap.Error(err))
	}
}

// Audit loads the schedule once and reports what it finds.
func (j *ScheduleAuditJob) Audit(ctx context.Context) (AuditReport, error) {
	rules, err := j.rules.ListPricingRules(ctx)
	if err != nil {
		return AuditReport{}, fmt.Errorf("load pricing rules: %w", err)
	}

	report := AuditReport{
		Rules:    len(rules),
		Gaps:     pricing.CoverageGaps(rules),
		Overlaps: pricing.Overlaps(rules),
	}

	for _, g := range report.Gaps {
		j.logger.Error("pricing schedule gap", zap.Stringer("window", g))
	}
	for _, o := range report.Overlaps {
		j.logger.Warn("pricing rules overlap",
			zap.String("first", o.First),
			zap.String("second", o.Second),
			zap.Duration("shared", o.Shared))
	}

	fp := report.fingerprint()
	j.mu.Lock()
	changed := fp != j.last
	j.last = fp
	j.mu.Unlock()

	if changed && !report.Clean() {
		j.discord.NotifyScheduleIssues(ctx, report.Gaps, report.Overlaps)
	}
	return report, nil
}
