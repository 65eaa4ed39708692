// Package medico maintains the directory of licensed physicians used to
// validate prescriptions.
package medico

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Medico is a physician registered in the directory, keyed by their CMP
// license code.
type Medico struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CMP               string             `bson:"cmp" json:"cmp"`
	Nombre            string             `bson:"nombre" json:"nombre"`
	Especialidad      string             `bson:"especialidad" json:"especialidad"`
	ColegiaturaValida bool               `bson:"colegiaturaValida" json:"colegiaturaValida"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}
