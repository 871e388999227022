package sweep

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/beautydesk/backoffice/pkg/logger"
	"github.com/beautydesk/backoffice/pkg/notify"
	"github.com/beautydesk/backoffice/pkg/organization"
	"github.com/beautydesk/backoffice/pkg/trigger"
)

const leaseKeyLayout = "2006-01-02"

// Report summarizes one sweep.
type Report struct {
	StartedAt         time.Time `json:"started_at"`
	Duration          string    `json:"duration"`
	LeaseHeld         bool      `json:"lease_held,omitempty"`
	DowngradesApplied int       `json:"downgrades_applied"`
	DowngradesFailed  int       `json:"downgrades_failed,omitempty"`
	Organizations     int       `json:"organizations"`
	Due               int       `json:"due"`
	Sent              int       `json:"sent"`
	Skipped           int       `json:"skipped"`
	Failed            int       `json:"failed"`
	Failures          []Failure `json:"failures,omitempty"`
}

// Failure is one organization the sweep could not fully process: an
// undelivered message, which stays due, a message sent without its audit
// entry, or a downgrade left pending. Key is empty for downgrades.
type Failure struct {
	OrganizationID uuid.UUID   `json:"organization_id"`
	Key            trigger.Key `json:"key,omitempty"`
	Error          string      `json:"error"`
}

// Sweeper runs the daily pass: due downgrades, trigger evaluation and
// dispatch. Running it twice for the same day sends nothing new.
type Sweeper struct {
	orgs        *organization.Service
	engine      *trigger.Engine
	dispatcher  *notify.Dispatcher
	locker      Locker
	leaseTTL    time.Duration
	concurrency int
	pageSize    int
	lang        language.Tag
	now         func() time.Time
	logger      *slog.Logger
}

// New creates a sweeper. Panics on nil dependencies.
func New(orgs *organization.Service, engine *trigger.Engine, dispatcher *notify.Dispatcher, opts ...Option) *Sweeper {
	if orgs == nil || engine == nil || dispatcher == nil {
		panic("sweep: organization service, trigger engine and dispatcher are required")
	}
	s := &Sweeper{
		orgs:        orgs,
		engine:      engine,
		dispatcher:  dispatcher,
		leaseTTL:    30 * time.Minute,
		concurrency: defaultConcurrency(),
		pageSize:    500,
		lang:        language.English,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one sweep at now. Downgrade and delivery failures are
// counted in the report and do not fail the run.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (Report, error) {
	start := time.Now()
	rep := Report{StartedAt: now.UTC()}
	log := s.logger.With(logger.Component("sweep"))

	if s.locker != nil {
		lease, ok, err := s.locker.Acquire(ctx, "sweep:"+now.UTC().Format(leaseKeyLayout), s.leaseTTL)
		switch {
		case err != nil:
			log.WarnContext(ctx, "sweep lease unavailable, running without it", logger.Error(err))
		case !ok:
			log.InfoContext(ctx, "another sweep holds today's lease")
			rep.LeaseHeld = true
			rep.Duration = time.Since(start).String()
			return rep, nil
		default:
			defer func() {
				if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
					log.WarnContext(ctx, "release sweep lease", logger.Error(err))
				}
			}()
		}
	}

	applied, failed, err := s.orgs.ApplyDueDowngrades(ctx, now)
	rep.DowngradesApplied = applied
	if err != nil {
		log.ErrorContext(ctx, "due downgrades not listed", logger.Error(err))
		rep.DowngradesFailed++
		rep.Failures = append(rep.Failures, Failure{Error: errors.Join(ErrDowngradesFailed, err).Error()})
	}
	for _, f := range failed {
		rep.DowngradesFailed++
		rep.Failures = append(rep.Failures, Failure{OrganizationID: f.OrganizationID, Error: errString(f.Err)})
	}

	orgs, err := s.candidates(ctx, now)
	if err != nil {
		return rep, errors.Join(ErrListFailed, err)
	}
	rep.Organizations = len(orgs)

	snapshots := make([]trigger.Snapshot, 0, len(orgs))
	for _, o := range orgs {
		snapshots = append(snapshots, trigger.SnapshotOf(o))
	}

	due, err := s.engine.EvaluateAll(ctx, now, snapshots)
	if err != nil {
		return rep, errors.Join(ErrEvaluateFailed, err)
	}
	rep.Due = len(due)

	s.dispatchAll(ctx, now, due, &rep)

	rep.Duration = time.Since(start).String()
	log.InfoContext(ctx, "sweep finished",
		slog.Int("organizations", rep.Organizations),
		slog.Int("due", rep.Due),
		slog.Int("sent", rep.Sent),
		slog.Int("skipped", rep.Skipped),
		slog.Int("failed", rep.Failed),
		slog.Int("downgrades", rep.DowngradesApplied),
		slog.Int("downgrades_failed", rep.DowngradesFailed),
		logger.Duration(time.Since(start)),
	)
	return rep, nil
}

// candidates lists every non-cancelled organization plus those cancelled
// within the farewell window.
func (s *Sweeper) candidates(ctx context.Context, now time.Time) ([]organization.Organization, error) {
	filter := organization.ListFilter{
		IncludeCancelledSince: now.Add(-trigger.FarewellWindow),
		Limit:                 s.pageSize,
	}
	var out []organization.Organization
	for {
		page, err := s.orgs.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < s.pageSize {
			return out, nil
		}
		filter.AfterID = page[len(page)-1].ID
	}
}

// dispatchAll sends each organization's messages in rule order, working on
// several organizations at once.
func (s *Sweeper) dispatchAll(ctx context.Context, now time.Time, due []trigger.Due, rep *Report) {
	var groups [][]trigger.Due
	for i, d := range due {
		if i == 0 || d.OrganizationID != due[i-1].OrganizationID {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], d)
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, group := range groups {
		g.Go(func() error {
			for _, d := range group {
				if ctx.Err() != nil {
					return nil
				}
				res := s.dispatchOne(ctx, now, d)

				mu.Lock()
				switch res.Status {
				case notify.StatusSent:
					rep.Sent++
					if res.Err != nil {
						rep.Failures = append(rep.Failures, Failure{OrganizationID: d.OrganizationID, Key: d.Key, Error: res.Err.Error()})
					}
				case notify.StatusSkipped:
					rep.Skipped++
				default:
					rep.Failed++
					rep.Failures = append(rep.Failures, Failure{OrganizationID: d.OrganizationID, Key: d.Key, Error: errString(res.Err)})
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
}

// dispatchOne reloads the organization and delivers d only if it is still
// due. Earlier messages of the same run may have triggered changes, such as
// a cancellation, that the evaluation snapshot does not show.
func (s *Sweeper) dispatchOne(ctx context.Context, now time.Time, d trigger.Due) notify.Result {
	cur, err := s.orgs.Get(ctx, d.OrganizationID)
	if err != nil {
		return notify.Result{Key: d.Key, Status: notify.StatusFailed, Err: err}
	}
	firings, err := s.engine.Store().Firings(ctx, d.OrganizationID)
	if err != nil {
		return notify.Result{Key: d.Key, Status: notify.StatusFailed, Err: errors.Join(trigger.ErrStoreFailed, err)}
	}
	if !trigger.IsDue(now, trigger.SnapshotOf(cur), d.Key, trigger.NewFiringSet(firings...)) {
		s.logger.DebugContext(ctx, "trigger no longer due",
			logger.OrganizationID(d.OrganizationID.String()),
			logger.TriggerKey(string(d.Key)),
		)
		return notify.Result{Key: d.Key, Status: notify.StatusSkipped}
	}
	return s.dispatcher.Dispatch(ctx, notify.RecipientOf(cur, s.orgs.Catalog(), now, s.lang), d)
}

// RunDaily runs the sweep on schedule until ctx is cancelled.
func (s *Sweeper) RunDaily(ctx context.Context, schedule Daily) error {
	if err := schedule.Validate(); err != nil {
		return err
	}
	log := s.logger.With(logger.Component("sweep"), slog.String("schedule", schedule.String()))

	for ctx.Err() == nil {
		now := s.now()
		next := schedule.Next(now)
		log.InfoContext(ctx, "next sweep scheduled", slog.Time("at", next))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if _, err := s.Run(ctx, s.now()); err != nil {
			log.ErrorContext(ctx, "sweep failed", logger.Error(err))
		}
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return "unknown failure"
	}
	return err.Error()
}
