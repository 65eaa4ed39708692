package medico

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("medico not found")

// Filter narrows directory listings. Nombre and Especialidad match
// case-insensitively as substrings; Colegiatura filters on license
// validity when set.
type Filter struct {
	Nombre       string
	Especialidad string
	Colegiatura  *bool
}

type Repository interface {
	Insert(ctx context.Context, m *Medico) error
	FindByCMP(ctx context.Context, cmp string) (*Medico, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Medico, int, error)
	Upsert(ctx context.Context, m *Medico) error
}
