package receta

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/farmalink/recetas/pkg/pagination"
)

// Filter narrows prescription listings. DNI, CMP and Estado match
// exactly; FechaDesde/FechaHasta bound fechaEmision inclusively.
type Filter struct {
	PacienteDNI string
	MedicoCMP   string
	Estado      string
	FechaDesde  *time.Time
	FechaHasta  *time.Time
}

// Update describes a status change, optionally overwriting the
// prescription fields in the same write. Nil members are left untouched.
type Update struct {
	Estado        string
	PacienteDNI   *string
	MedicoCMP     *string
	FechaEmision  *time.Time
	Productos     []Producto
	TextoExtraido *string
}

type Repository interface {
	Insert(ctx context.Context, r *Receta) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Receta, error)
	List(ctx context.Context, f Filter, p pagination.Params, sort []pagination.SortField) ([]*Receta, int, error)
	UpdateEstado(ctx context.Context, id primitive.ObjectID, u Update) (*Receta, error)
	UnsetArchivo(ctx context.Context, id primitive.ObjectID) error
}
