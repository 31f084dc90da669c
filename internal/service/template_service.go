// internal/service/template_service.go
package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/crm-campaigns/internal/errors"
	"github.com/unclebandit/crm-campaigns/internal/model"
	"github.com/unclebandit/crm-campaigns/internal/repository"
)

type TemplateService struct {
	TemplateRepo repository.TemplateRepositoryInterface
	CampaignRepo repository.CampaignRepositoryInterface
	Clock        Clock
	Log          *zap.Logger
}

func (s *TemplateService) CreateTemplate(ctx context.Context, name, subject, content string, segment model.Segment) (*model.Template, error) {
	now := resolveClock(s.Clock).Now()
	t := &model.Template{
		Name:      strings.TrimSpace(name),
		Subject:   strings.TrimSpace(subject),
		Content:   content,
		Segment:   segment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validateTemplate(*t); err != nil {
		return nil, err
	}
	if err := s.TemplateRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	resolveLogger(s.Log).Info("template created", zap.String("template_id", t.ID), zap.String("segment", string(t.Segment)))
	return t, nil
}

func (s *TemplateService) UpdateTemplate(ctx context.Context, id string, patch model.TemplatePatch) (*model.Template, error) {
	current, err := s.TemplateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := patch.Apply(*current)
	next.Name = strings.TrimSpace(next.Name)
	next.Subject = strings.TrimSpace(next.Subject)
	if err := validateTemplate(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = resolveClock(s.Clock).Now()
	if err := s.TemplateRepo.Update(ctx, &next); err != nil {
		return nil, err
	}
	if next.Segment != current.Segment {
		resolveLogger(s.Log).Warn("template segment changed",
			zap.String("template_id", id),
			zap.String("from", string(current.Segment)),
			zap.String("to", string(next.Segment)),
		)
	}
	return &next, nil
}

// DeleteTemplate refuses to delete a template that campaigns still reference
// and names them so the user can act.
func (s *TemplateService) DeleteTemplate(ctx context.Context, id string) error {
	if _, err := s.TemplateRepo.GetByID(ctx, id); err != nil {
		return err
	}

	campaigns, err := s.CampaignRepo.ListByTemplate(ctx, id)
	if err != nil {
		return err
	}
	if len(campaigns) > 0 {
		names := make([]string, len(campaigns))
		for i, c := range campaigns {
			names[i] = c.Name
		}
		return &appErrors.DependencyError{Entity: "template", ID: id, Blockers: names}
	}

	if err := s.TemplateRepo.Delete(ctx, id); err != nil {
		return err
	}
	resolveLogger(s.Log).Info("template deleted", zap.String("template_id", id))
	return nil
}

func (s *TemplateService) GetTemplate(ctx context.Context, id string) (*model.Template, error) {
	return s.TemplateRepo.GetByID(ctx, id)
}

func (s *TemplateService) ListTemplates(ctx context.Context) ([]model.Template, error) {
	return s.TemplateRepo.List(ctx)
}

func (s *TemplateService) ListTemplatesBySegment(ctx context.Context, segment model.Segment) ([]model.Template, error) {
	if !segment.Valid() {
		return nil, appErrors.NewValidation("segment", "must be one of "+segmentList())
	}
	return s.TemplateRepo.ListBySegment(ctx, segment)
}
