package plan

import (
	"context"

	"shapeup/internal/apperr"
)

type Service interface {
	GetMaxDays(ctx context.Context, serviceID string) (int, error)
	Get(ctx context.Context, serviceID string) (*Plan, error)
	List(ctx context.Context) ([]Plan, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetMaxDays(ctx context.Context, serviceID string) (int, error) {
	p, err := s.Get(ctx, serviceID)
	if err != nil {
		return 0, err
	}
	return p.MaxDays, nil
}

func (s *service) Get(ctx context.Context, serviceID string) (*Plan, error) {
	if serviceID == "" {
		return nil, apperr.NotFound("service", serviceID)
	}
	p, err := s.repo.GetByID(ctx, serviceID)
	if err != nil {
		return nil, apperr.Wrap("load service", err)
	}
	return p, nil
}

func (s *service) List(ctx context.Context) ([]Plan, error) {
	plans, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Wrap("list services", err)
	}
	return plans, nil
}
