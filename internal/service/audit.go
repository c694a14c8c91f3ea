package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mehedi-exx/Hr/internal/domain"
	"github.com/mehedi-exx/Hr/internal/repository"
)

// Auditor appends audit entries. A failed append is logged and never fails the action itself.
type Auditor struct {
	repo   repository.AuditRepository
	logger *zap.Logger
}

func NewAuditor(repo repository.AuditRepository, logger *zap.Logger) *Auditor {
	return &Auditor{repo: repo, logger: logger}
}

func (a *Auditor) Record(ctx context.Context, e *domain.AuditEntry) {
	if a == nil || a.repo == nil {
		return
	}
	if err := a.repo.AppendAudit(ctx, e); err != nil {
		a.logger.Error("Failed to append audit entry",
			zap.Int64("caller_id", e.CallerID),
			zap.String("command", e.Command),
			zap.Bool("success", e.Success),
			zap.Error(err),
		)
	}
}

// Support persists support messages.
type Support struct {
	repo   repository.AuditRepository
	logger *zap.Logger
}

func NewSupport(repo repository.AuditRepository, logger *zap.Logger) *Support {
	return &Support{repo: repo, logger: logger}
}

// MinSupportMessage minimum support message length in characters.
const MinSupportMessage = 10

func (s *Support) Submit(ctx context.Context, m *domain.SupportMessage) error {
	m.Message = strings.TrimSpace(m.Message)
	if len([]rune(m.Message)) < MinSupportMessage {
		return ErrSupportTooShort
	}
	if err := s.repo.CreateSupportMessage(ctx, m); err != nil {
		return err
	}
	s.logger.Info("Support message received", zap.Int64("caller_id", m.CallerID), zap.Int64("message_id", m.ID))
	return nil
}
