package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driven"
	"github.com/custodia-labs/portal-sync/internal/logger"
)

// reportHistoryLimit is how many refresh reports are kept.
const reportHistoryLimit = 100

var executorLog = logger.For("executor")

// Evaluator turns freshly fetched data into notifications.
type Evaluator interface {
	Evaluate(ctx context.Context, now time.Time, fresh domain.FreshData) (*EvaluationResult, error)
}

// Ensure RefreshExecutor implements RefreshRunner.
var _ RefreshRunner = (*RefreshExecutor)(nil)

// RefreshExecutor fans out every gateway call of a refresh cycle and settles
// them all. One failing call never aborts the others.
type RefreshExecutor struct {
	gateway   driven.Gateway
	cache     *CacheService
	vault     *CredentialVault
	reports   driven.ReportStore
	evaluator Evaluator
	timeout   time.Duration
	now       func() time.Time
}

// NewRefreshExecutor creates an executor. reports and evaluator may be nil.
// Each gateway call is bounded by timeout; zero uses the default.
func NewRefreshExecutor(
	gateway driven.Gateway,
	cache *CacheService,
	vault *CredentialVault,
	reports driven.ReportStore,
	evaluator Evaluator,
	timeout time.Duration,
	opts ...Option,
) *RefreshExecutor {
	if timeout <= 0 {
		timeout = domain.DefaultSchedulerConfig().GatewayTimeout
	}
	o := applyOptions(opts)
	return &RefreshExecutor{
		gateway:   gateway,
		cache:     cache,
		vault:     vault,
		reports:   reports,
		evaluator: evaluator,
		timeout:   timeout,
		now:       o.now,
	}
}

// fetchCall is one gateway call of a refresh cycle.
type fetchCall struct {
	kind  domain.DataKind
	fetch func(ctx context.Context) (any, error)
}

func (e *RefreshExecutor) calls(creds domain.Credentials) []fetchCall {
	return []fetchCall{
		{kind: domain.KindAttendance, fetch: func(ctx context.Context) (any, error) {
			courses, err := e.gateway.FetchAttendance(ctx, creds)
			if courses == nil && err == nil {
				courses = []domain.Course{}
			}
			return courses, err
		}},
		{kind: domain.KindExamSchedule, fetch: func(ctx context.Context) (any, error) {
			exams, err := e.gateway.FetchExamSchedule(ctx, creds)
			if exams == nil && err == nil {
				exams = []domain.Exam{}
			}
			return exams, err
		}},
		{kind: domain.KindInternals, fetch: func(ctx context.Context) (any, error) {
			marks, err := e.gateway.FetchInternals(ctx, creds)
			if marks == nil && err == nil {
				marks = []domain.InternalMark{}
			}
			return marks, err
		}},
		{kind: domain.KindCGPA, fetch: func(ctx context.Context) (any, error) {
			return e.gateway.FetchCGPA(ctx, creds)
		}},
		{kind: domain.KindGreeting, fetch: func(ctx context.Context) (any, error) {
			return e.gateway.FetchGreeting(ctx, creds)
		}},
	}
}

// RunFullRefresh fetches every data kind concurrently, writes each success to
// the cache as soon as it arrives, and waits until every call has settled.
//
// The only hard error is missing credentials (domain.ErrCredentialsMissing).
// Per-call failures are recorded in the report and logged. If ctx ends while
// the calls are in flight, notifications are not evaluated; callers check
// ctx.Err to tell an interrupted cycle from a completed one.
func (e *RefreshExecutor) RunFullRefresh(ctx context.Context, trigger domain.Trigger) (*domain.RefreshReport, error) {
	creds, err := e.vault.Load(ctx)
	if err != nil {
		return nil, err
	}

	report := &domain.RefreshReport{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		StartedAt: e.now(),
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fresh domain.FreshData
	)
	for _, call := range e.calls(*creds) {
		wg.Add(1)
		go func(call fetchCall) {
			defer wg.Done()

			start := time.Now()
			value, err := e.fetchWithTimeout(ctx, call)
			if err == nil {
				if cacheErr := e.cache.Set(ctx, call.kind, value); cacheErr != nil {
					err = fmt.Errorf("cache %s: %w", call.kind, cacheErr)
				}
			}

			outcome := domain.FetchOutcome{Kind: call.kind, Err: err, Duration: time.Since(start)}
			if err != nil {
				outcome.Error = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			report.Outcomes = append(report.Outcomes, outcome)
			if err != nil {
				return
			}
			switch v := value.(type) {
			case []domain.Course:
				fresh.Attendance = v
			case []domain.Exam:
				fresh.Exams = v
			}
		}(call)
	}
	wg.Wait()

	report.EndedAt = e.now()
	sortOutcomes(report.Outcomes)

	for _, failed := range report.Failures() {
		executorLog.Warn("%s refresh: %s failed: %s", trigger, failed.Kind, failed.Error)
	}
	executorLog.Info("%s refresh finished: %d/%d succeeded", trigger, report.SuccessCount(), len(report.Outcomes))

	e.record(context.WithoutCancel(ctx), report)

	if err := ctx.Err(); err != nil {
		executorLog.Warn("%s refresh interrupted, skipping notifications: %v", trigger, err)
		return report, nil
	}
	if e.evaluator != nil && fresh.HasAny() {
		if _, err := e.evaluator.Evaluate(ctx, e.now(), fresh); err != nil {
			executorLog.Warn("notification evaluation failed: %v", err)
		}
	}

	return report, nil
}

// fetchWithTimeout runs call with a per-call deadline.
// The deadline is enforced even if the gateway ignores ctx.
func (e *RefreshExecutor) fetchWithTimeout(ctx context.Context, call fetchCall) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type result struct {
		value any
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := call.fetch(ctx)
		done <- result{value: value, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrNetwork, call.kind, ctx.Err())
	}
}

// record persists report history. Failures are logged, never returned.
func (e *RefreshExecutor) record(ctx context.Context, report *domain.RefreshReport) {
	if e.reports == nil {
		return
	}
	if err := e.reports.RecordReport(ctx, report); err != nil {
		executorLog.Warn("failed to record report %s: %v", report.ID, err)
		return
	}
	if err := e.reports.Prune(ctx, reportHistoryLimit); err != nil {
		executorLog.Warn("failed to prune report history: %v", err)
	}
}

// sortOutcomes orders outcomes like domain.AllKinds.
func sortOutcomes(outcomes []domain.FetchOutcome) {
	order := make(map[domain.DataKind]int, len(domain.AllKinds()))
	for i, kind := range domain.AllKinds() {
		order[kind] = i
	}
	sort.Slice(outcomes, func(i, j int) bool {
		return order[outcomes[i].Kind] < order[outcomes[j].Kind]
	})
}
