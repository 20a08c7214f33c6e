package monitoring

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	staleAfter       = 24 * time.Hour
	alertStaleAfter  = 25 * time.Hour
	warnErrorRate    = 10.0
	alertErrorRate   = 15.0
	reportTimeLayout = "2006-01-02 15:04:05"
)

type Metrics struct {
	ScrapeRuns      int                   `json:"scrape_runs"`
	SuccessfulRuns  int                   `json:"successful_runs"`
	FailedRuns      int                   `json:"failed_runs"`
	CommentsFetched int                   `json:"comments_fetched"`
	CommentsSaved   int                   `json:"comments_saved"`
	FailuresByKind  map[string]int        `json:"failures_by_kind"`
	LastRun         time.Time             `json:"last_run"`
	AverageRunTime  time.Duration         `json:"average_run_time"`
	ErrorRate       float64               `json:"error_rate"`
	PostMetrics     map[string]PostMetric `json:"post_metrics"`
}

type PostMetric struct {
	Runs            int           `json:"runs"`
	CommentsFetched int           `json:"comments_fetched"`
	LastScraped     time.Time     `json:"last_scraped"`
	AverageRunTime  time.Duration `json:"average_run_time"`
	ErrorCount      int           `json:"error_count"`
}

// ScrapeRun is the outcome of one scrape cycle. Failure is the failure kind
// name, empty for a run whose comments were fetched and stored.
type ScrapeRun struct {
	Shortcode string
	Fetched   int
	Saved     int
	Duration  time.Duration
	Failure   string
}

type HealthStatus struct {
	Status         string `json:"status"`
	LastRun        string `json:"last_run"`
	TotalRuns      int    `json:"total_runs"`
	ErrorRate      string `json:"error_rate"`
	AverageRuntime string `json:"average_runtime"`
	Warning        string `json:"warning,omitempty"`
}

// Monitor keeps run metrics in memory and mirrors them to a JSON file after
// every recorded run. It is safe for concurrent use.
type Monitor struct {
	mu          sync.Mutex
	metrics     *Metrics
	logger      *logrus.Logger
	metricsFile string
	now         func() time.Time
}

func NewMonitor(logger *logrus.Logger, metricsFile string) *Monitor {
	monitor := &Monitor{
		metrics:     newMetrics(),
		logger:      logger,
		metricsFile: metricsFile,
		now:         time.Now,
	}

	monitor.loadMetrics()
	return monitor
}

func newMetrics() *Metrics {
	return &Metrics{
		FailuresByKind: make(map[string]int),
		PostMetrics:    make(map[string]PostMetric),
	}
}

func (m *Monitor) RecordScrapeRun(run ScrapeRun) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	met := m.metrics
	met.ScrapeRuns++
	met.CommentsFetched += run.Fetched
	met.CommentsSaved += run.Saved
	met.LastRun = now

	if run.Failure == "" {
		met.SuccessfulRuns++
	} else {
		met.FailedRuns++
		met.FailuresByKind[run.Failure]++
	}
	met.ErrorRate = float64(met.FailedRuns) / float64(met.ScrapeRuns) * 100
	met.AverageRunTime = runningMean(met.AverageRunTime, run.Duration, met.ScrapeRuns)

	if run.Shortcode != "" {
		post := met.PostMetrics[run.Shortcode]
		post.Runs++
		post.CommentsFetched += run.Fetched
		post.LastScraped = now
		post.AverageRunTime = runningMean(post.AverageRunTime, run.Duration, post.Runs)
		if run.Failure != "" {
			post.ErrorCount++
		}
		met.PostMetrics[run.Shortcode] = post
	}

	m.saveMetrics()

	m.logger.WithFields(logrus.Fields{
		"shortcode": run.Shortcode,
		"failure":   run.Failure,
	}).Infof("Recorded scrape run: %d comments fetched, %d saved, %v duration",
		run.Fetched, run.Saved, run.Duration)
}

func runningMean(mean, sample time.Duration, n int) time.Duration {
	if n <= 1 {
		return sample
	}
	return mean + (sample-mean)/time.Duration(n)
}

// GetMetrics returns a copy of the current metrics.
func (m *Monitor) GetMetrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := *m.metrics
	snapshot.FailuresByKind = make(map[string]int, len(m.metrics.FailuresByKind))
	for k, v := range m.metrics.FailuresByKind {
		snapshot.FailuresByKind[k] = v
	}
	snapshot.PostMetrics = make(map[string]PostMetric, len(m.metrics.PostMetrics))
	for k, v := range m.metrics.PostMetrics {
		snapshot.PostMetrics[k] = v
	}
	return snapshot
}

func (m *Monitor) GetHealthStatus() HealthStatus {
	met := m.GetMetrics()

	status := HealthStatus{
		Status:         "healthy",
		LastRun:        met.LastRun.Format(time.RFC3339),
		TotalRuns:      met.ScrapeRuns,
		ErrorRate:      fmt.Sprintf("%.2f%%", met.ErrorRate),
		AverageRuntime: met.AverageRunTime.String(),
	}

	if m.now().Sub(met.LastRun) > staleAfter {
		status.Status = "warning"
		status.Warning = "No scrape runs in the last 24 hours"
	}
	if met.ErrorRate > warnErrorRate {
		status.Status = "warning"
		status.Warning = "High error rate detected"
	}

	return status
}

func (m *Monitor) GenerateReport() string {
	met := m.GetMetrics()

	var b strings.Builder
	fmt.Fprintf(&b, `
Instagram Comment Scraper Monitoring Report
===========================================
Generated: %s

Overall Statistics:
- Total Scrape Runs: %d
- Successful Runs: %d
- Failed Runs: %d
- Comments Fetched: %d
- Comments Saved: %d
- Error Rate: %.2f%%
- Average Run Time: %s
- Last Run: %s
`,
		m.now().Format(reportTimeLayout),
		met.ScrapeRuns,
		met.SuccessfulRuns,
		met.FailedRuns,
		met.CommentsFetched,
		met.CommentsSaved,
		met.ErrorRate,
		met.AverageRunTime,
		met.LastRun.Format(reportTimeLayout),
	)

	if len(met.FailuresByKind) > 0 {
		b.WriteString("\nFailures:\n")
		for _, kind := range sortedKeys(met.FailuresByKind) {
			fmt.Fprintf(&b, "- %s: %d\n", kind, met.FailuresByKind[kind])
		}
	}

	b.WriteString("\nPost Performance:\n")
	for _, shortcode := range sortedKeys(met.PostMetrics) {
		post := met.PostMetrics[shortcode]
		fmt.Fprintf(&b, `
- Post %s:
  Runs: %d
  Comments Fetched: %d
  Last Scraped: %s
  Average Runtime: %s
  Errors: %d
`,
			shortcode,
			post.Runs,
			post.CommentsFetched,
			post.LastScraped.Format(reportTimeLayout),
			post.AverageRunTime,
			post.ErrorCount,
		)
	}

	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Monitor) loadMetrics() {
	if _, err := os.Stat(m.metricsFile); os.IsNotExist(err) {
		m.logger.Info("No existing metrics file found, starting fresh")
		return
	}

	data, err := os.ReadFile(m.metricsFile)
	if err != nil {
		m.logger.Warnf("Failed to read metrics file: %v", err)
		return
	}

	loaded := newMetrics()
	if err := json.Unmarshal(data, loaded); err != nil {
		m.logger.Warnf("Failed to parse metrics file: %v", err)
		return
	}
	if loaded.FailuresByKind == nil {
		loaded.FailuresByKind = make(map[string]int)
	}
	if loaded.PostMetrics == nil {
		loaded.PostMetrics = make(map[string]PostMetric)
	}
	m.metrics = loaded

	m.logger.Info("Loaded existing metrics from file")
}

// saveMetrics must be called with m.mu held.
func (m *Monitor) saveMetrics() {
	if m.metricsFile == "" {
		return
	}

	data, err := json.MarshalIndent(m.metrics, "", "  ")
	if err != nil {
		m.logger.Errorf("Failed to marshal metrics: %v", err)
		return
	}

	if dir := filepath.Dir(m.metricsFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			m.logger.Errorf("Failed to create metrics directory: %v", err)
			return
		}
	}
	if err := os.WriteFile(m.metricsFile, data, 0o644); err != nil {
		m.logger.Errorf("Failed to save metrics: %v", err)
	}
}

// AlertManager handles alerting based on metrics
type AlertManager struct {
	monitor *Monitor
	logger  *logrus.Logger
}

func NewAlertManager(monitor *Monitor, logger *logrus.Logger) *AlertManager {
	return &AlertManager{
		monitor: monitor,
		logger:  logger,
	}
}

func (am *AlertManager) CheckAlerts() []string {
	var alerts []string
	met := am.monitor.GetMetrics()

	if am.monitor.now().Sub(met.LastRun) > alertStaleAfter {
		alerts = append(alerts, "ALERT: Scraper hasn't run in over 24 hours")
	}

	if met.ErrorRate > alertErrorRate {
		alerts = append(alerts, fmt.Sprintf("ALERT: High error rate: %.2f%%", met.ErrorRate))
	}

	if met.CommentsFetched == 0 {
		alerts = append(alerts, "ALERT: No comments have been fetched")
	}

	if n := met.FailuresByKind["auth_element_timeout"]; n > 0 {
		alerts = append(alerts, fmt.Sprintf("ALERT: %d sign-in attempts timed out; cookies may need a fresh login", n))
	}

	return alerts
}

func (am *AlertManager) SendAlerts(alerts []string) {
	for _, alert := range alerts {
		am.logger.Warn(alert)
	}
}
