package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/librarium/librarium/internal/orchestrator/sagalog"
	"github.com/librarium/librarium/internal/orchestrator/users"
)

// Reconciler periodically repairs sagas that stalled mid-flight (a crash
// between steps, or a compensating removal that itself failed). Saga log
// writes are advisory, so a stale non-terminal record may describe a saga
// that actually finished; every destructive repair therefore cross-checks
// the user store and the library before touching either side.
type Reconciler struct {
	sagas      sagalog.SagaStore
	users      users.UserService
	library    LibraryClient
	staleAfter time.Duration
	interval   time.Duration
	logger     *zap.Logger
}

// NewReconciler creates a new reconciliation sweep
func NewReconciler(sagaStore sagalog.SagaStore, userService users.UserService, library LibraryClient, staleAfter, interval time.Duration, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		sagas:      sagaStore,
		users:      userService,
		library:    library,
		staleAfter: staleAfter,
		interval:   interval,
		logger:     logger,
	}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep repairs every stale non-terminal saga record once.
func (r *Reconciler) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.staleAfter)
	records, err := r.sagas.ListStale(ctx, cutoff)
	if err != nil {
		r.logger.Error("saga sweep failed to list stale records", zap.Error(err))
		return
	}

	for _, record := range records {
		r.repair(ctx, record)
	}
}

func (r *Reconciler) repair(ctx context.Context, record *sagalog.Record) {
	switch {
	case record.Kind == sagalog.KindCreate && record.State == sagalog.StateProvisioned:
		// Crash between provisioning and commit: both sides exist, so the
		// saga completes forward. Rolling back here would orphan a library.
		r.markState(ctx, record, sagalog.StateCommitted)
		r.logger.Warn("completed stuck create saga forward",
			zap.String("saga_id", record.ID.String()),
			zap.String("username", record.Username))

	case record.Kind == sagalog.KindCreate && record.State == sagalog.StateCompensatingRemoval:
		r.finishCompensation(ctx, record)

	case record.Kind == sagalog.KindCreate:
		r.repairPendingCreate(ctx, record)

	case record.Kind == sagalog.KindDelete && record.State == sagalog.StateProvisioned:
		// Library already deprovisioned; finish removing the user record.
		err := r.users.Remove(ctx, record.Username)
		if err != nil && !users.IsErrorType(err, users.UserErrorTypeNotFound) {
			r.logger.Error("saga sweep failed to finish delete saga",
				zap.String("saga_id", record.ID.String()),
				zap.String("username", record.Username),
				zap.Error(err))
			return
		}
		r.markState(ctx, record, sagalog.StateCommitted)
		r.logger.Warn("completed stuck delete saga forward",
			zap.String("saga_id", record.ID.String()),
			zap.String("username", record.Username))

	case record.Kind == sagalog.KindDelete:
		// The deprovision call never completed; the user record is kept on
		// purpose and the deletion can be retried by the client.
		r.markState(ctx, record, sagalog.StateFailed)
		r.logger.Warn("marked stuck delete saga failed, user record kept",
			zap.String("saga_id", record.ID.String()),
			zap.String("username", record.Username))
	}
}

// repairPendingCreate handles a create saga stuck in Pending. The state
// write that would have moved it on may simply have been lost after a
// successful registration, so reality decides the repair: the saga is
// completed forward when its own user record exists, and a user record is
// removed only when it provably belongs to this saga.
func (r *Reconciler) repairPendingCreate(ctx context.Context, record *sagalog.Record) {
	user, err := r.users.Get(ctx, record.Username)
	switch {
	case users.IsErrorType(err, users.UserErrorTypeNotFound):
		// No record to roll back. Clear any container the crashed saga may
		// have provisioned before it died.
		if record.UID != uuid.Nil {
			if derr := r.library.Deprovision(ctx, record.UID); derr != nil && !errors.Is(derr, ErrContainerNotFound) {
				r.logger.Error("saga sweep failed to remove orphaned container",
					zap.String("saga_id", record.ID.String()),
					zap.String("uid", record.UID.String()),
					zap.Error(derr))
				return // retried on the next sweep
			}
		}
		r.markState(ctx, record, sagalog.StateFailed)
		r.logger.Warn("rolled back stuck create saga",
			zap.String("saga_id", record.ID.String()),
			zap.String("username", record.Username))

	case err != nil:
		r.logger.Error("saga sweep failed to look up user record",
			zap.String("saga_id", record.ID.String()),
			zap.String("username", record.Username),
			zap.Error(err))

	case record.UID == uuid.Nil || user.UID != record.UID:
		// The record does not describe this user. A failed duplicate
		// registration leaves a pending row bearing an established
		// username; deleting by name here would destroy that account.
		r.markState(ctx, record, sagalog.StateFailed)
		r.logger.Warn("abandoned stale create saga for a user it did not create",
			zap.String("saga_id", record.ID.String()),
			zap.String("username", record.Username))

	default:
		// The saga's own user exists. Make sure the container does too,
		// then commit; ErrContainerExists means the original provision
		// landed and only the state write was lost.
		if perr := r.library.Provision(ctx, record.UID); perr != nil && !errors.Is(perr, ErrContainerExists) {
			r.logger.Error("saga sweep failed to provision container",
				zap.String("saga_id", record.ID.String()),
				zap.String("uid", record.UID.String()),
				zap.Error(perr))
			return
		}
		r.markState(ctx, record, sagalog.StateCommitted)
		r.logger.Warn("completed stuck create saga forward",
			zap.String("saga_id", record.ID.String()),
			zap.String("username", record.Username))
	}
}

// finishCompensation handles a create saga whose provisioning failed and
// whose compensating removal did not complete. The user record goes only
// when it matches the identifier the saga recorded.
func (r *Reconciler) finishCompensation(ctx context.Context, record *sagalog.Record) {
	user, err := r.users.Get(ctx, record.Username)
	switch {
	case users.IsErrorType(err, users.UserErrorTypeNotFound):
		// Already compensated, only the terminal state write was lost.
		r.markState(ctx, record, sagalog.StateFailed)
		r.logger.Warn("rolled back stuck create saga",
			zap.String("saga_id", record.ID.String()),
			zap.String("username", record.Username))

	case err != nil:
		r.logger.Error("saga sweep failed to look up user record",
			zap.String("saga_id", record.ID.String()),
			zap.String("username", record.Username),
			zap.Error(err))

	case record.UID != uuid.Nil && user.UID == record.UID:
		if rerr := r.users.Remove(ctx, record.Username); rerr != nil && !users.IsErrorType(rerr, users.UserErrorTypeNotFound) {
			r.logger.Error("saga sweep failed to remove orphaned user record",
				zap.String("saga_id", record.ID.String()),
				zap.String("username", record.Username),
				zap.Error(rerr))
			return
		}
		r.markState(ctx, record, sagalog.StateFailed)
		r.logger.Warn("rolled back stuck create saga",
			zap.String("saga_id", record.ID.String()),
			zap.String("username", record.Username))

	default:
		// Identifier unknown or mismatched. Removing a user the saga cannot
		// claim is worse than the leftover record, so the saga is only
		// flagged terminal.
		r.markState(ctx, record, sagalog.StateFailed)
		r.logger.Error("abandoned compensating removal, user record left in place",
			zap.String("saga_id", record.ID.String()),
			zap.String("username", record.Username))
	}
}

func (r *Reconciler) markState(ctx context.Context, record *sagalog.Record, state string) {
	if err := r.sagas.UpdateState(ctx, record.ID, state); err != nil {
		r.logger.Error("saga sweep failed to update state",
			zap.String("saga_id", record.ID.String()),
			zap.String("state", state),
			zap.Error(err))
	}
}
