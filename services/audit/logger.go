package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/upb/ep-records/models"
	"github.com/upb/ep-records/repositories"
	"github.com/upb/ep-records/utils"
)

const (
	// DefaultWriteTimeout bounds a single audit insert
	DefaultWriteTimeout = 5 * time.Second

	// maxFallbackDepth limits how many ERROR records a failure may cascade into
	maxFallbackDepth = 1
)

// Recorder is the surface domain code uses to report actions
type Recorder interface {
	Record(ctx context.Context, d Descriptor, credential string, network *NetworkContext) bool
}

// Logger persists audit records synchronously. Record never returns an
// error; the boolean reports whether the record was stored.
type Logger struct {
	repo         repositories.AuditRepository
	actors       *ActorIdentifier
	logger       *zap.Logger
	writeTimeout time.Duration
	now          func() time.Time
}

// Option configures a Logger
type Option func(*Logger)

// WithWriteTimeout overrides the per-insert timeout
func WithWriteTimeout(d time.Duration) Option {
	return func(l *Logger) {
		if d > 0 {
			l.writeTimeout = d
		}
	}
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		l.now = now
	}
}

// NewLogger creates a new audit logger
func NewLogger(repo repositories.AuditRepository, actors *ActorIdentifier, logger *zap.Logger, opts ...Option) *Logger {
	l := &Logger{
		repo:         repo,
		actors:       actors,
		logger:       logger,
		writeTimeout: DefaultWriteTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record validates d, attributes it to the actor behind credential and
// stores it with the client address taken from network. A failed insert
// triggers a single ERROR record describing the failure; Record still
// returns false in that case.
func (l *Logger) Record(ctx context.Context, d Descriptor, credential string, network *NetworkContext) bool {
	return l.record(ctx, d, credential, network, 0)
}

func (l *Logger) record(ctx context.Context, d Descriptor, credential string, network *NetworkContext, depth int) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("audit record panicked",
				zap.Any("panic", r),
				zap.String("action", d.Action))
			ok = false
		}
	}()

	d = d.normalized()
	if err := utils.ValidateStruct(d); err != nil {
		l.logger.Warn("audit descriptor rejected",
			zap.String("action", d.Action),
			zap.String("module", d.Module),
			zap.String("affected_table", d.AffectedTable),
			zap.Error(err))
		return false
	}

	entry, err := l.build(ctx, d, credential, network)
	if err == nil {
		err = l.insert(ctx, entry)
	}
	if err == nil {
		return true
	}

	l.logger.Error("failed to save audit log",
		zap.String("action", d.Action),
		zap.String("module", d.Module),
		zap.String("affected_table", d.AffectedTable),
		zap.Int("depth", depth),
		zap.Error(err))

	if depth < maxFallbackDepth && d.Action != string(models.AuditActionError) {
		l.record(ctx, failureDescriptor(d, err), "", nil, depth+1)
	}
	return false
}

func (l *Logger) build(ctx context.Context, d Descriptor, credential string, network *NetworkContext) (*models.AuditLog, error) {
	previous, next, err := d.snapshots()
	if err != nil {
		return nil, err
	}

	actor := SystemActor()
	if credential != "" && l.actors != nil {
		actor = l.actors.Identify(ctx, credential)
	}

	entry := models.NewAuditLog(models.AuditAction(d.Action), d.AffectedTable, models.AuditModule(d.Module)).
		WithRecord(d.AffectedRecordID).
		WithSnapshots(previous, next).
		WithActor(actor.Name, actor.ID).
		WithLevel(models.AuditLevel(d.Level)).
		WithDescription(d.Description).
		WithIPAddress(network.Resolve())
	entry.CreatedAt = l.now().UTC().Truncate(time.Microsecond)
	return entry.Seal(), nil
}

// insert detaches from the caller's cancellation so a client disconnect
// does not lose the record.
func (l *Logger) insert(ctx context.Context, entry *models.AuditLog) error {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.writeTimeout)
	defer cancel()

	if err := l.repo.Insert(writeCtx, entry); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("audit insert timed out after %s: %w", l.writeTimeout, err)
		}
		return err
	}
	return nil
}
