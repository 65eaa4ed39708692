package medico

import (
	"context"
	"fmt"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ObtenerPorCMP looks up a physician by their CMP license code.
func (s *Service) ObtenerPorCMP(ctx context.Context, cmp string) (*Medico, error) {
	if cmp == "" {
		return nil, fmt.Errorf("cmp is required")
	}
	return s.repo.FindByCMP(ctx, cmp)
}

// Listar returns directory entries matching the filter.
func (s *Service) Listar(ctx context.Context, f Filter, limit, offset int) ([]*Medico, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// Registrar adds a physician to the directory.
func (s *Service) Registrar(ctx context.Context, m *Medico) error {
	if m.CMP == "" {
		return fmt.Errorf("cmp is required")
	}
	if m.Nombre == "" {
		return fmt.Errorf("nombre is required")
	}
	return s.repo.Insert(ctx, m)
}

// Cargar upserts a batch of physicians, keyed by CMP.
func (s *Service) Cargar(ctx context.Context, medicos []*Medico) error {
	for _, m := range medicos {
		if m.CMP == "" {
			return fmt.Errorf("cmp is required for %q", m.Nombre)
		}
		if err := s.repo.Upsert(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
