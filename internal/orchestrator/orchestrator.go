// Package orchestrator drives the user lifecycle sagas: registration
// provisions a library after persisting the user record and compensates by
// removing the record when provisioning fails; deletion deprovisions the
// library first so the only reachable inconsistency is the less harmful one
// (user present, library already gone).
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/librarium/librarium/internal/orchestrator/sagalog"
	"github.com/librarium/librarium/internal/orchestrator/users"
	"github.com/librarium/librarium/internal/token"
)

// LibraryClient is the orchestrator's view of the library service's
// privileged lifecycle endpoints.
type LibraryClient interface {
	Provision(ctx context.Context, uid uuid.UUID) error
	Deprovision(ctx context.Context, uid uuid.UUID) error
}

// Sentinel errors implementations wrap so callers can tell a state conflict
// on the library side from a transport failure. The reconciliation sweep
// depends on this distinction before doing anything destructive.
var (
	ErrContainerExists   = errors.New("library container already exists")
	ErrContainerNotFound = errors.New("library container not found")
)

// Orchestrator coordinates the user store and the library service
type Orchestrator struct {
	users   users.UserService
	sagas   sagalog.SagaStore
	library LibraryClient
	scheme  *token.Scheme
	logger  *zap.Logger
}

// New creates a new orchestrator instance
func New(userService users.UserService, sagaStore sagalog.SagaStore, library LibraryClient, scheme *token.Scheme, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		users:   userService,
		sagas:   sagaStore,
		library: library,
		scheme:  scheme,
		logger:  logger,
	}
}

// Register runs the creation saga: persist the user record, provision the
// library, and on provisioning failure compensate by removing the record.
// The returned record carries the only copy of the raw token the client
// will ever see.
func (o *Orchestrator) Register(ctx context.Context, username, password string) (*users.User, error) {
	// The saga must run to completion even if the client disconnects.
	ctx = context.WithoutCancel(ctx)

	record := o.appendSaga(ctx, sagalog.KindCreate, username)

	user, err := o.users.Create(ctx, username, password)
	if err != nil {
		o.updateSaga(ctx, record, sagalog.StateFailed)
		return nil, err
	}
	o.setSagaUID(ctx, record, user.UID)

	if err := o.library.Provision(ctx, user.UID); err != nil {
		o.updateSaga(ctx, record, sagalog.StateCompensatingRemoval)
		o.logger.Warn("library provisioning failed, compensating",
			zap.String("username", username),
			zap.String("uid", user.UID.String()),
			zap.Error(err))

		if rerr := o.users.Remove(ctx, username); rerr != nil && !users.IsErrorType(rerr, users.UserErrorTypeNotFound) {
			// Best-effort compensation: on failure the record is orphaned
			// until the reconciliation sweep picks it up. Operators see
			// this, the client already has its error.
			o.logger.Error("compensating removal failed, user record orphaned",
				zap.String("username", username),
				zap.String("uid", user.UID.String()),
				zap.Error(rerr))
		} else {
			o.updateSaga(ctx, record, sagalog.StateFailed)
		}

		return nil, NewProvisionFailedError(username, err)
	}
	o.updateSaga(ctx, record, sagalog.StateProvisioned)

	o.updateSaga(ctx, record, sagalog.StateCommitted)
	o.logger.Info("user registered",
		zap.String("username", username),
		zap.String("uid", user.UID.String()))
	return user, nil
}

// Login is a pure read over the user store.
func (o *Orchestrator) Login(ctx context.Context, username, password string) (*users.User, error) {
	return o.users.Authenticate(ctx, username, password)
}

// Delete runs the deletion saga: verify the presented token, deprovision the
// library first, then remove the user record. A failed deprovisioning aborts
// with the record intact.
func (o *Orchestrator) Delete(ctx context.Context, username, presentedToken string) error {
	ctx = context.WithoutCancel(ctx)

	user, err := o.users.Get(ctx, username)
	if err != nil {
		return err
	}

	if !o.scheme.Verify(presentedToken, user.UID) {
		return NewUnauthorizedError(username)
	}

	record := o.appendSaga(ctx, sagalog.KindDelete, username)
	o.setSagaUID(ctx, record, user.UID)

	if err := o.library.Deprovision(ctx, user.UID); err != nil {
		o.updateSaga(ctx, record, sagalog.StateFailed)
		o.logger.Error("library deprovisioning failed, user record kept",
			zap.String("username", username),
			zap.String("uid", user.UID.String()),
			zap.Error(err))
		return NewDeprovisionFailedError(username, err)
	}
	o.updateSaga(ctx, record, sagalog.StateProvisioned)

	if err := o.users.Remove(ctx, username); err != nil {
		if users.IsErrorType(err, users.UserErrorTypeNotFound) {
			// Concurrently removed; both sides are gone, so the saga is
			// complete even though this caller reports the miss.
			o.updateSaga(ctx, record, sagalog.StateCommitted)
			return err
		}
		o.updateSaga(ctx, record, sagalog.StateFailed)
		return err
	}

	o.updateSaga(ctx, record, sagalog.StateCommitted)
	o.logger.Info("user deleted",
		zap.String("username", username),
		zap.String("uid", user.UID.String()))
	return nil
}

// Validate resolves a capability token presented to the library service.
// An empty identifier skips the ownership pin and asks only whether the
// token belongs to some registered user.
func (o *Orchestrator) Validate(ctx context.Context, identifier, accessToken string) (bool, error) {
	var expected *uuid.UUID
	if identifier != "" {
		uid, err := uuid.Parse(identifier)
		if err != nil {
			// Malformed identifiers fail closed.
			return false, nil
		}
		expected = &uid
	}
	return o.users.FindByToken(ctx, accessToken, expected)
}

// Scheme exposes the credential scheme for the HTTP layer's service
// credential checks.
func (o *Orchestrator) Scheme() *token.Scheme {
	return o.scheme
}

// Saga log writes are advisory recovery state: a failed write is logged and
// never blocks the user-facing operation.

func (o *Orchestrator) appendSaga(ctx context.Context, kind, username string) *sagalog.Record {
	record := &sagalog.Record{
		ID:        uuid.New(),
		Kind:      kind,
		Username:  username,
		State:     sagalog.StatePending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := o.sagas.Append(ctx, record); err != nil {
		o.logger.Warn("failed to append saga record", zap.String("username", username), zap.Error(err))
	}
	return record
}

func (o *Orchestrator) updateSaga(ctx context.Context, record *sagalog.Record, state string) {
	if err := o.sagas.UpdateState(ctx, record.ID, state); err != nil {
		o.logger.Warn("failed to update saga state",
			zap.String("saga_id", record.ID.String()),
			zap.String("state", state),
			zap.Error(err))
	}
	record.State = state
}

func (o *Orchestrator) setSagaUID(ctx context.Context, record *sagalog.Record, uid uuid.UUID) {
	if err := o.sagas.SetUID(ctx, record.ID, uid); err != nil {
		o.logger.Warn("failed to set saga uid",
			zap.String("saga_id", record.ID.String()),
			zap.Error(err))
	}
	record.UID = uid
}
