package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/docflow/apiserver/internal/auth"
	"github.com/docflow/apiserver/internal/store"
	"github.com/docflow/apiserver/types"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// DocumentRepository defines persistence operations for documents.
type DocumentRepository interface {
	List(ctx context.Context, filter types.DocumentFilter) ([]types.Document, int, error)
	Get(ctx context.Context, id int) (types.Document, error)
	CodeTaken(ctx context.Context, code int64, excludeID int) (bool, error)
	Create(ctx context.Context, document types.Document) (types.Document, error)
	Update(ctx context.Context, document types.Document) (types.Document, error)
	MarkSent(ctx context.Context, id int) (types.Document, error)
	Delete(ctx context.Context, id int) error
}

// Deliverer receives documents right after they transition to sent.
type Deliverer interface {
	Deliver(ctx context.Context, document types.Document) error
}

// Recorder observes lifecycle operation outcomes.
type Recorder interface {
	DocumentOperation(operation, outcome string)
}

// Policy holds the role requirements that are configurable.
// Create and Delete are always administrator-only.
type Policy struct {
	// UpdateRole restricts Update when non-empty.
	UpdateRole types.Role
	// SendRole restricts Send when non-empty.
	SendRole types.Role
	// CyrillicOnly restricts subject, sender and receiver to Cyrillic letters and spaces.
	CyrillicOnly bool
}

// DocumentOption customizes a DocumentService.
type DocumentOption func(*DocumentService)

func WithDeliverer(deliverer Deliverer) DocumentOption {
	return func(s *DocumentService) {
		s.deliverer = deliverer
	}
}

func WithRecorder(recorder Recorder) DocumentOption {
	return func(s *DocumentService) {
		s.recorder = recorder
	}
}

func WithLogger(logger *zap.Logger) DocumentOption {
	return func(s *DocumentService) {
		s.logger = logger
	}
}

// DocumentService enforces the document lifecycle: creation rules, the
// one-way draft -> sent transition, and edit/delete restrictions on sent
// documents.
//
// Code uniqueness is pre-checked, but the store's unique constraint is the
// authority; its violation surfaces as store.ErrDuplicateCode even when the
// pre-check passed.
type DocumentService struct {
	repo      DocumentRepository
	policy    Policy
	validator *documentValidator
	deliverer Deliverer
	recorder  Recorder
	logger    *zap.Logger
}

func NewDocumentService(repo DocumentRepository, policy Policy, opts ...DocumentOption) *DocumentService {
	s := &DocumentService{
		repo:      repo,
		policy:    policy,
		validator: newDocumentValidator(policy.CyrillicOnly),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the active role policy.
func (s *DocumentService) Policy() Policy {
	return s.policy
}

func (s *DocumentService) List(ctx context.Context, filter types.DocumentFilter) ([]types.Document, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, newValidationError("status", "status must be draft or sent")
	}
	if filter.Offset < 0 {
		return nil, 0, newValidationError("offset", "offset must not be negative")
	}
	filter.Limit = EffectiveLimit(filter.Limit)
	return s.repo.List(ctx, filter)
}

// EffectiveLimit applies the default page size and the maximum to a requested limit.
func EffectiveLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}

func (s *DocumentService) Get(ctx context.Context, id int) (types.Document, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a new draft. Administrator only.
func (s *DocumentService) Create(ctx context.Context, actor auth.Identity, input CreateDocumentInput) (document types.Document, err error) {
	defer s.observe("create", &err)

	if err := auth.RequireRole(actor, types.RoleAdministrator); err != nil {
		return types.Document{}, err
	}

	input.Subject = strings.TrimSpace(input.Subject)
	input.Sender = strings.TrimSpace(input.Sender)
	input.Receiver = strings.TrimSpace(input.Receiver)
	if err := s.validator.create(input); err != nil {
		return types.Document{}, err
	}

	taken, err := s.repo.CodeTaken(ctx, input.Code, 0)
	if err != nil {
		return types.Document{}, fmt.Errorf("check code: %w", err)
	}
	if taken {
		return types.Document{}, store.ErrDuplicateCode
	}

	return s.repo.Create(ctx, types.Document{
		Code:     input.Code,
		Subject:  input.Subject,
		Sender:   input.Sender,
		Receiver: input.Receiver,
		Message:  input.Message,
	})
}

// Send performs the draft -> sent transition and hands the result to the deliverer.
func (s *DocumentService) Send(ctx context.Context, actor auth.Identity, id int) (document types.Document, err error) {
	defer s.observe("send", &err)

	if err := auth.RequireRole(actor, s.policy.SendRole); err != nil {
		return types.Document{}, err
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Document{}, err
	}
	if current.Status == types.StatusSent {
		return types.Document{}, ErrAlreadySent
	}

	sent, err := s.repo.MarkSent(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotDraft) {
			return types.Document{}, ErrAlreadySent
		}
		return types.Document{}, err
	}

	if s.deliverer != nil {
		if err := s.deliverer.Deliver(ctx, sent); err != nil {
			s.logger.Warn("document delivery failed",
				zap.Int("document_id", sent.ID),
				zap.Int64("code", sent.Code),
				zap.Error(err),
			)
		}
	}
	return sent, nil
}

// Update applies a partial patch to a draft. Nil fields keep their value, as
// do a zero code and empty subject or sender. A non-nil message always
// overwrites, so an empty string clears it.
func (s *DocumentService) Update(ctx context.Context, actor auth.Identity, id int, patch types.DocumentPatch) (document types.Document, err error) {
	defer s.observe("update", &err)

	if err := auth.RequireRole(actor, s.policy.UpdateRole); err != nil {
		return types.Document{}, err
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Document{}, err
	}
	if current.Status == types.StatusSent {
		return types.Document{}, ErrEditForbidden
	}

	next := current
	if patch.Code != nil && *patch.Code != 0 {
		if err := s.validator.field("code", *patch.Code, codeRules); err != nil {
			return types.Document{}, err
		}
		next.Code = *patch.Code
	}
	if patch.Subject != nil {
		if subject := strings.TrimSpace(*patch.Subject); subject != "" {
			if err := s.validator.field("subject", subject, subjectRules); err != nil {
				return types.Document{}, err
			}
			next.Subject = subject
		}
	}
	if patch.Sender != nil {
		if sender := strings.TrimSpace(*patch.Sender); sender != "" {
			if err := s.validator.field("sender", sender, partyRules); err != nil {
				return types.Document{}, err
			}
			next.Sender = sender
		}
	}
	if patch.Message != nil {
		if err := s.validator.field("message", *patch.Message, messageRules); err != nil {
			return types.Document{}, err
		}
		next.Message = *patch.Message
	}

	if next.Code != current.Code {
		taken, err := s.repo.CodeTaken(ctx, next.Code, id)
		if err != nil {
			return types.Document{}, fmt.Errorf("check code: %w", err)
		}
		if taken {
			return types.Document{}, store.ErrDuplicateCode
		}
	}

	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		if errors.Is(err, store.ErrNotDraft) {
			return types.Document{}, ErrEditForbidden
		}
		return types.Document{}, err
	}
	return updated, nil
}

// Delete physically removes a draft. Administrator only.
func (s *DocumentService) Delete(ctx context.Context, actor auth.Identity, id int) (err error) {
	defer s.observe("delete", &err)

	if err := auth.RequireRole(actor, types.RoleAdministrator); err != nil {
		return err
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == types.StatusSent {
		return ErrDeleteForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotDraft) {
			return ErrDeleteForbidden
		}
		return err
	}
	return nil
}

func (s *DocumentService) observe(operation string, errp *error) {
	if s.recorder == nil {
		return
	}
	s.recorder.DocumentOperation(operation, Outcome(*errp))
}

// Outcome classifies an operation result as "ok", "rejected" for business
// and client errors, or "error" for infrastructure failures.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrAlreadySent),
		errors.Is(err, ErrEditForbidden),
		errors.Is(err, ErrDeleteForbidden),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrDuplicateCode),
		errors.Is(err, auth.ErrForbidden):
		return "rejected"
	default:
		return "error"
	}
}
