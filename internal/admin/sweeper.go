package admin

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sudo-init-do/skillswap/internal/wallet"
)

// UserLister lists every user id.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}

// SweepResult summarises one reconciliation pass.
type SweepResult struct {
	Checked      int              `json:"checked"`
	Inconsistent []*wallet.Report `json:"inconsistent"`
	Errors       int              `json:"errors"`
}

// ReconcileAll checks every user's ledger and collects the ones that diverge.
func ReconcileAll(ctx context.Context, users UserLister, ledger *wallet.Ledger) (*SweepResult, error) {
	ids, err := users.ListUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	res := &SweepResult{Inconsistent: []*wallet.Report{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		report, err := ledger.Reconcile(ctx, id)
		if err != nil {
			log.Printf("[reconcile] %s: %v", id, err)
			res.Errors++
			continue
		}
		res.Checked++
		if !report.Consistent {
			res.Inconsistent = append(res.Inconsistent, report)
		}
	}
	return res, nil
}

// Sweeper runs ReconcileAll on a cron schedule.
type Sweeper struct {
	cron    *cron.Cron
	users   UserLister
	ledger  *wallet.Ledger
	timeout time.Duration
}

// NewSweeper schedules the sweep with a standard five-field cron spec.
func NewSweeper(schedule string, users UserLister, ledger *wallet.Ledger) (*Sweeper, error) {
	s := &Sweeper{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		users:   users,
		ledger:  ledger,
		timeout: 10 * time.Minute,
	}
	if _, err := s.cron.AddFunc(schedule, s.Sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Sweep runs one pass and logs what it found.
func (s *Sweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	res, err := ReconcileAll(ctx, s.users, s.ledger)
	if err != nil {
		log.Printf("[reconcile] sweep aborted: %v", err)
		return
	}
	log.Printf("[reconcile] checked %d users in %s: %d inconsistent, %d errors",
		res.Checked, time.Since(start).Round(time.Millisecond), len(res.Inconsistent), res.Errors)
	for _, r := range res.Inconsistent {
		log.Printf("[reconcile] %s cached=%d ledger=%d", r.UserID, r.CachedBalance, r.LedgerSum)
	}
}

func (s *Sweeper) Start() {
	s.cron.Start()
	log.Printf("[reconcile] sweep scheduled")
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
