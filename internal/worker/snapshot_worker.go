// Package worker turns ledger change events into exported dashboard snapshots.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	appErrors "fintrack/internal/errors"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	"fintrack/internal/summary"
)

// DashboardSource is satisfied by *summary.Service.
type DashboardSource interface {
	GetDashboard(ctx context.Context, p *auth.Principal, mode core.AccountMode, year, month int) (summary.Dashboard, error)
}

const (
	recentSnapshots   = 512
	recentSnapshotTTL = 10 * time.Minute
)

// SnapshotWorker recomputes an owner's dashboard from the store and hands
// it to a SnapshotWriter. Dashboards are never cached; the worker only
// remembers what it last wrote per period so redelivered or bursty events
// do not append identical rows.
type SnapshotWorker struct {
	reports DashboardSource
	writer  sheets.SnapshotWriter
	logger  *log.Logger
	now     func() time.Time
	recent  *cache.LRU[periodKey, string]
}

type periodKey struct {
	owner       string
	mode        core.AccountMode
	year, month int
}

func NewSnapshotWorker(reports DashboardSource, writer sheets.SnapshotWriter, logger *log.Logger) *SnapshotWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SnapshotWorker{
		reports: reports,
		writer:  writer,
		logger:  logger.WithComponent(log.ComponentWorker),
		now:     time.Now,
		recent:  cache.NewLRU[periodKey, string](recentSnapshots, recentSnapshotTTL),
	}
}

// HandleTransactionEvent exports the dashboard of the event's period.
// Events the report layer rejects as malformed are dropped; any other
// failure is returned so the broker redelivers the event.
func (w *SnapshotWorker) HandleTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	fields := log.NewFields().
		WithOperation(log.OpSnapshot).
		WithLedger(ev.OwnerID, string(ev.Mode), string(ev.Kind)).
		WithPeriod(ev.Year, ev.Month)
	fields[log.FieldTxID] = ev.ID

	snap, err := w.snapshot(ctx, ev.OwnerID, ev.Mode, ev.Year, ev.Month)
	if err != nil {
		if isPermanent(err) {
			w.logger.WarnContext(ctx, "Dropping unexportable event", fields.WithError(err).ToSlice()...)
			return nil
		}
		return err
	}

	key := periodKey{owner: ev.OwnerID, mode: ev.Mode, year: ev.Year, month: ev.Month}
	fp := fingerprint(snap)
	if last, ok := w.recent.Get(key); ok && last == fp {
		w.logger.DebugContext(ctx, "Dashboard unchanged, skipping export", fields.ToSlice()...)
		return nil
	}

	ref, err := w.write(ctx, snap)
	if err != nil {
		return err
	}
	w.recent.Set(key, fp)

	fields["sheets_ref"] = ref
	w.logger.InfoContext(ctx, "Snapshot exported for event", fields.ToSlice()...)
	return nil
}

// ExportMonth writes one snapshot of the owner's dashboard for year/month,
// whether or not it changed since the last export.
func (w *SnapshotWorker) ExportMonth(ctx context.Context, ownerID string, mode core.AccountMode, year, month int) (string, error) {
	snap, err := w.snapshot(ctx, ownerID, mode, year, month)
	if err != nil {
		return "", err
	}
	ref, err := w.write(ctx, snap)
	if err != nil {
		return "", err
	}
	w.recent.Set(periodKey{owner: ownerID, mode: mode, year: year, month: month}, fingerprint(snap))
	return ref, nil
}

func (w *SnapshotWorker) snapshot(ctx context.Context, ownerID string, mode core.AccountMode, year, month int) (sheets.Snapshot, error) {
	p := &auth.Principal{ID: ownerID, AccountType: mode}
	dash, err := w.reports.GetDashboard(ctx, p, mode, year, month)
	if err != nil {
		return sheets.Snapshot{}, fmt.Errorf("compute dashboard: %w", err)
	}
	return sheets.Snapshot{
		OwnerID:   ownerID,
		Mode:      mode,
		Year:      year,
		Month:     month,
		Dashboard: dash,
		TakenAt:   w.now(),
	}, nil
}

func (w *SnapshotWorker) write(ctx context.Context, snap sheets.Snapshot) (string, error) {
	ref, err := w.writer.WriteSnapshot(ctx, snap)
	if err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return ref, nil
}

// fingerprint covers every exported column except the timestamp.
func fingerprint(s sheets.Snapshot) string {
	return fmt.Sprintf("%q", s.Values()[1:])
}

// ExportYear writes a snapshot for every month of year and stops at the
// first failure. It returns how many months were written.
func (w *SnapshotWorker) ExportYear(ctx context.Context, ownerID string, mode core.AccountMode, year int) (int, error) {
	for month := 1; month <= 12; month++ {
		if err := ctx.Err(); err != nil {
			return month - 1, err
		}
		if _, err := w.ExportMonth(ctx, ownerID, mode, year, month); err != nil {
			return month - 1, fmt.Errorf("export %04d-%02d: %w", year, month, err)
		}
	}
	return 12, nil
}

func isPermanent(err error) bool {
	return errors.Is(err, appErrors.ErrInvalidParameter) || errors.Is(err, appErrors.ErrUnauthorized)
}
