package library

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/librarium/librarium/internal/token"
)

// Service applies the library's authorization rules in front of a
// LibraryStore. Container lifecycle is privileged (service credential only);
// file operations require a user capability token, self-access for
// everything except single-file reads.
type Service struct {
	store     LibraryStore
	scheme    *token.Scheme
	validator TokenValidator
	logger    *zap.Logger
}

// NewService creates a new library service
func NewService(store LibraryStore, scheme *token.Scheme, validator TokenValidator, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		scheme:    scheme,
		validator: validator,
		logger:    logger,
	}
}

// Provision creates an empty container for uid. Only the inter-service
// credential may call this; a well-formed user token is rejected.
func (s *Service) Provision(ctx context.Context, credential string, uid uuid.UUID) error {
	if !s.scheme.IsServiceCredential(credential) {
		return NewPermissionDeniedError(uid.String())
	}
	if err := s.store.CreateContainer(ctx, uid); err != nil {
		return err
	}
	s.logger.Info("container provisioned", zap.String("uid", uid.String()))
	return nil
}

// Deprovision deletes uid's container and every file in it.
func (s *Service) Deprovision(ctx context.Context, credential string, uid uuid.UUID) error {
	if !s.scheme.IsServiceCredential(credential) {
		return NewPermissionDeniedError(uid.String())
	}
	if err := s.store.DeleteContainer(ctx, uid); err != nil {
		return err
	}
	s.logger.Info("container deprovisioned", zap.String("uid", uid.String()))
	return nil
}

// ListFiles returns the container's file names. Self-access only.
func (s *Service) ListFiles(ctx context.Context, bearer string, uid uuid.UUID) ([]string, error) {
	if err := s.authorizeSelf(bearer, uid); err != nil {
		return nil, err
	}
	return s.store.ListFiles(ctx, uid)
}

// PutFile writes content under name, replacing any prior content.
// Self-access only.
func (s *Service) PutFile(ctx context.Context, bearer string, uid uuid.UUID, name string, content []byte) error {
	if err := s.authorizeSelf(bearer, uid); err != nil {
		return err
	}
	return s.store.PutFile(ctx, uid, name, content)
}

// GetFile returns the content stored under name. Any registered user's
// token is accepted - the documented loose read policy - so the token is
// confirmed through the users service rather than against uid.
func (s *Service) GetFile(ctx context.Context, bearer string, uid uuid.UUID, name string) ([]byte, error) {
	userToken := rawToken(bearer)
	valid, err := s.validator.Validate(ctx, "", userToken)
	if err != nil {
		// Fail closed: an unreachable users service reads as unauthorized,
		// never as access granted.
		s.logger.Warn("token validation unavailable", zap.Error(err))
		return nil, NewUnauthorizedError(uid.String(), "token validation unavailable")
	}
	if !valid {
		return nil, NewUnauthorizedError(uid.String(), "token does not belong to a registered user")
	}
	return s.store.GetFile(ctx, uid, name)
}

// RemoveFile deletes the file under name. Self-access only.
func (s *Service) RemoveFile(ctx context.Context, bearer string, uid uuid.UUID, name string) error {
	if err := s.authorizeSelf(bearer, uid); err != nil {
		return err
	}
	return s.store.RemoveFile(ctx, uid, name)
}

// authorizeSelf accepts either the raw derived token or the compound
// "{identifier}.{token}" form; in both cases the token must verify against
// the path identifier.
func (s *Service) authorizeSelf(bearer string, uid uuid.UUID) error {
	userToken := bearer
	if embedded, tok, ok := token.SplitCompound(bearer); ok {
		if embedded != uid {
			return NewUnauthorizedError(uid.String(), "token identifier mismatch")
		}
		userToken = tok
	}
	if !s.scheme.Verify(userToken, uid) {
		return NewUnauthorizedError(uid.String(), "token does not verify against identifier")
	}
	return nil
}

func rawToken(bearer string) string {
	if _, tok, ok := token.SplitCompound(bearer); ok {
		return tok
	}
	return bearer
}
