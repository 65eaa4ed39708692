// Package receta implements the prescription workflow: field extraction
// from OCR transcripts, domain validation against the physician
// directory, persistence, and the attachment lifecycle.
package receta

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Validation states for a prescription.
const (
	EstadoPendiente = "pendiente"
	EstadoValidada  = "validada"
	EstadoRechazada = "rechazada"
)

// ValidEstados lists the accepted estadoValidacion values.
var ValidEstados = map[string]bool{
	EstadoPendiente: true,
	EstadoValidada:  true,
	EstadoRechazada: true,
}

// Producto is one dispensed product line embedded in a prescription.
type Producto struct {
	CodigoProducto string  `bson:"codigoProducto" json:"codigoProducto"`
	Nombre         string  `bson:"nombre" json:"nombre"`
	Cantidad       float64 `bson:"cantidad" json:"cantidad"`
}

// Receta is a stored prescription. JSON and BSON field names keep the
// Spanish wire format the API clients already speak.
type Receta struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PacienteDNI      string             `bson:"pacienteDNI" json:"pacienteDNI"`
	MedicoCMP        string             `bson:"medicoCMP" json:"medicoCMP"`
	FechaEmision     time.Time          `bson:"fechaEmision" json:"fechaEmision"`
	Productos        []Producto         `bson:"productos" json:"productos"`
	ArchivoPDF       string             `bson:"archivoPDF,omitempty" json:"archivoPDF,omitempty"`
	EstadoValidacion string             `bson:"estadoValidacion" json:"estadoValidacion"`
	TextoExtraido    string             `bson:"textoExtraido,omitempty" json:"textoExtraido,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// CandidateFields holds prescription fields before validation, whether
// user-submitted or extracted from a transcript. Empty values mean the
// field was absent; the validator treats absence as its own failure, so
// nothing here fabricates defaults.
type CandidateFields struct {
	PacienteDNI  string     `json:"pacienteDNI"`
	MedicoCMP    string     `json:"medicoCMP"`
	FechaEmision string     `json:"fechaEmision"`
	Productos    []Producto `json:"productos"`
}
