package receta

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/farmalink/recetas/internal/platform/storage"
	"github.com/farmalink/recetas/internal/platform/textextract"
	"github.com/farmalink/recetas/pkg/pagination"
)

// sortAllowlist limits listing sort expressions to indexed or cheap
// fields.
var sortAllowlist = map[string]bool{
	"pacienteDNI":      true,
	"medicoCMP":        true,
	"estadoValidacion": true,
	"fechaEmision":     true,
	"createdAt":        true,
	"updatedAt":        true,
}

var defaultSort = []pagination.SortField{{Field: "createdAt", Descending: true}}

// RecetaConURL is a prescription plus a freshly minted download URL for
// its attachment, when one exists.
type RecetaConURL struct {
	*Receta
	ArchivoURL string `json:"archivoURL,omitempty"`
}

// UpdateEstadoRequest is the body of the status-update endpoint. Nil
// field pointers keep the stored values; Reextraer re-runs OCR over the
// stored attachment before validating.
type UpdateEstadoRequest struct {
	EstadoValidacion string     `json:"estadoValidacion"`
	PacienteDNI      *string    `json:"pacienteDNI"`
	MedicoCMP        *string    `json:"medicoCMP"`
	FechaEmision     *string    `json:"fechaEmision"`
	Productos        []Producto `json:"productos"`
	Reextraer        bool       `json:"reextraer"`
}

type Service struct {
	repo         Repository
	validator    *Validator
	store        storage.ObjectStore
	extractor    textextract.Extractor
	signedURLTTL time.Duration
}

func NewService(repo Repository, validator *Validator, store storage.ObjectStore, extractor textextract.Extractor, signedURLTTL time.Duration) *Service {
	if signedURLTTL <= 0 {
		signedURLTTL = 300 * time.Second
	}
	return &Service{
		repo:         repo,
		validator:    validator,
		store:        store,
		extractor:    extractor,
		signedURLTTL: signedURLTTL,
	}
}

// ParseID checks the 24-hex-char id format before touching the database.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, NewError(KindInvalidID, "id %q no es un identificador válido de 24 caracteres hexadecimales", hex)
	}
	return id, nil
}

// Listar returns prescriptions matching the filter, paginated and
// sorted. The sort expression accepts comma-separated fields with a "-"
// prefix for descending order; unknown fields fall back to newest-first.
func (s *Service) Listar(ctx context.Context, f Filter, p pagination.Params, sortExpr string) ([]*Receta, int, error) {
	sort := pagination.ParseSort(sortExpr, sortAllowlist, defaultSort)
	return s.repo.List(ctx, f, p, sort)
}

// ObtenerPorID fetches one prescription and, when it has an attachment,
// mints a signed download URL for it.
func (s *Service) ObtenerPorID(ctx context.Context, idHex string) (*RecetaConURL, error) {
	id, err := ParseID(idHex)
	if err != nil {
		return nil, err
	}

	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &RecetaConURL{Receta: rec}
	if rec.ArchivoPDF != "" {
		url, err := s.store.SignedURL(ctx, rec.ArchivoPDF, s.signedURLTTL)
		switch {
		case err == nil:
			out.ArchivoURL = url
		case errors.Is(err, storage.ErrObjectNotFound):
			// Blob vanished out of band; return the record without a URL.
		case errors.Is(err, storage.ErrBucketNotConfigured):
			return nil, WrapError(KindStorageMisconfigured, err, "almacenamiento de archivos no configurado")
		default:
			return nil, WrapError(KindUpstreamUnavailable, err, "generar URL firmada falló")
		}
	}
	return out, nil
}

// Subir stores the PDF, resolves candidate fields (user-submitted JSON
// or OCR extraction when submitted is nil), validates them, and persists
// the prescription as validada. The blob is written before validation
// runs, so a rejected upload leaves an orphaned object behind; no
// compensating cleanup is attempted.
func (s *Service) Subir(ctx context.Context, pdf []byte, submitted *CandidateFields) (*Receta, error) {
	if len(pdf) == 0 {
		return nil, NewError(KindMissingAttachment, "se requiere un archivo PDF")
	}

	key := fmt.Sprintf("recetas/%s.pdf", uuid.New().String())
	if err := s.store.Put(ctx, key, "application/pdf", pdf); err != nil {
		if errors.Is(err, storage.ErrBucketNotConfigured) {
			return nil, WrapError(KindStorageMisconfigured, err, "almacenamiento de archivos no configurado")
		}
		return nil, WrapError(KindUpstreamUnavailable, err, "guardar el archivo falló")
	}

	var cand CandidateFields
	var rctx ReextractionContext
	var transcript string

	if submitted != nil {
		cand = *submitted
	} else {
		text, err := s.extraerTexto(ctx, pdf)
		if err != nil {
			return nil, err
		}
		transcript = text
		cand = ExtractFields(text)
		rctx = ReextractionContext{IsReextraction: true, Transcript: text}
	}

	fecha, err := s.validator.Validar(ctx, cand, rctx)
	if err != nil {
		return nil, err
	}

	rec := &Receta{
		PacienteDNI:      cand.PacienteDNI,
		MedicoCMP:        cand.MedicoCMP,
		FechaEmision:     fecha,
		Productos:        cand.Productos,
		ArchivoPDF:       key,
		EstadoValidacion: EstadoValidada,
		TextoExtraido:    transcript,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ActualizarEstado changes the validation status and optionally
// overwrites prescription fields in the same call. Moving to validada
// re-runs the full validation over the merged candidate; with Reextraer
// set, the stored attachment is re-OCR'd and the transcript plausibility
// checks apply too.
func (s *Service) ActualizarEstado(ctx context.Context, idHex string, req UpdateEstadoRequest) (*Receta, error) {
	id, err := ParseID(idHex)
	if err != nil {
		return nil, err
	}
	if !ValidEstados[req.EstadoValidacion] {
		return nil, NewError(KindInvalidStatus, "estadoValidacion %q no es válido", req.EstadoValidacion)
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	u := Update{
		Estado:      req.EstadoValidacion,
		PacienteDNI: req.PacienteDNI,
		MedicoCMP:   req.MedicoCMP,
		Productos:   req.Productos,
	}

	if req.EstadoValidacion == EstadoValidada {
		cand := mergeCandidate(existing, req)

		var rctx ReextractionContext
		if req.Reextraer {
			if existing.ArchivoPDF == "" {
				return nil, NewError(KindMissingAttachment, "la receta no tiene archivo adjunto para reextraer")
			}
			pdf, err := s.store.Get(ctx, existing.ArchivoPDF)
			if err != nil {
				if errors.Is(err, storage.ErrObjectNotFound) {
					return nil, NewError(KindMissingAttachment, "el archivo adjunto ya no existe en el almacenamiento")
				}
				if errors.Is(err, storage.ErrBucketNotConfigured) {
					return nil, WrapError(KindStorageMisconfigured, err, "almacenamiento de archivos no configurado")
				}
				return nil, WrapError(KindUpstreamUnavailable, err, "leer el archivo falló")
			}
			text, err := s.extraerTexto(ctx, pdf)
			if err != nil {
				return nil, err
			}
			rctx = ReextractionContext{IsReextraction: true, Transcript: text}
			u.TextoExtraido = &text
		}

		fecha, err := s.validator.Validar(ctx, cand, rctx)
		if err != nil {
			return nil, err
		}
		u.FechaEmision = &fecha
	} else if req.FechaEmision != nil {
		fecha, err := parseFecha(*req.FechaEmision)
		if err != nil {
			return nil, NewError(KindInvalidIssueDate, "fechaEmision no es una fecha válida: %q", *req.FechaEmision)
		}
		u.FechaEmision = &fecha
	}

	return s.repo.UpdateEstado(ctx, id, u)
}

// ObtenerArchivoURL returns a download reference for the attachment:
// the raw storage key when direct is set, otherwise a signed URL with
// the given expiry (the configured default when zero).
func (s *Service) ObtenerArchivoURL(ctx context.Context, idHex string, direct bool, expiry time.Duration) (string, error) {
	id, err := ParseID(idHex)
	if err != nil {
		return "", err
	}

	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if rec.ArchivoPDF == "" {
		return "", NewError(KindMissingAttachment, "la receta no tiene archivo adjunto")
	}

	if direct {
		return rec.ArchivoPDF, nil
	}

	if expiry <= 0 {
		expiry = s.signedURLTTL
	}
	url, err := s.store.SignedURL(ctx, rec.ArchivoPDF, expiry)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return "", NewError(KindMissingAttachment, "el archivo adjunto ya no existe en el almacenamiento")
		}
		if errors.Is(err, storage.ErrBucketNotConfigured) {
			return "", WrapError(KindStorageMisconfigured, err, "almacenamiento de archivos no configurado")
		}
		return "", WrapError(KindUpstreamUnavailable, err, "generar URL firmada falló")
	}
	return url, nil
}

// EliminarArchivo deletes the stored blob and clears the prescription's
// attachment reference. The rest of the record, including an already
// granted validada status, is left untouched.
func (s *Service) EliminarArchivo(ctx context.Context, idHex string) error {
	id, err := ParseID(idHex)
	if err != nil {
		return err
	}

	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if rec.ArchivoPDF == "" {
		return NewError(KindMissingAttachment, "la receta no tiene archivo adjunto")
	}

	if err := s.store.Delete(ctx, rec.ArchivoPDF); err != nil {
		if errors.Is(err, storage.ErrBucketNotConfigured) {
			return WrapError(KindStorageMisconfigured, err, "almacenamiento de archivos no configurado")
		}
		if !errors.Is(err, storage.ErrObjectNotFound) {
			return WrapError(KindUpstreamUnavailable, err, "eliminar el archivo falló")
		}
	}

	return s.repo.UnsetArchivo(ctx, id)
}

func (s *Service) extraerTexto(ctx context.Context, pdf []byte) (string, error) {
	text, err := s.extractor.ExtractText(ctx, pdf)
	if err != nil {
		switch {
		case errors.Is(err, textextract.ErrInvalidPDF):
			return "", WrapError(KindInvalidAttachment, err, "el archivo no es un PDF válido")
		case errors.Is(err, textextract.ErrPDFTooLarge):
			return "", WrapError(KindInvalidAttachment, err, "el PDF excede el tamaño procesable")
		case errors.Is(err, textextract.ErrEmptyDocument):
			return "", WrapError(KindShortDocument, err, "el documento no contiene texto legible")
		default:
			return "", WrapError(KindUpstreamUnavailable, err, "extracción de texto falló")
		}
	}
	return text, nil
}

// mergeCandidate builds the candidate to validate from the update
// request, falling back to the stored record for any field the request
// leaves out.
func mergeCandidate(existing *Receta, req UpdateEstadoRequest) CandidateFields {
	cand := CandidateFields{
		PacienteDNI:  existing.PacienteDNI,
		MedicoCMP:    existing.MedicoCMP,
		FechaEmision: existing.FechaEmision.Format("2006-01-02"),
		Productos:    existing.Productos,
	}
	if req.PacienteDNI != nil {
		cand.PacienteDNI = *req.PacienteDNI
	}
	if req.MedicoCMP != nil {
		cand.MedicoCMP = *req.MedicoCMP
	}
	if req.FechaEmision != nil {
		cand.FechaEmision = *req.FechaEmision
	}
	if req.Productos != nil {
		cand.Productos = req.Productos
	}
	return cand
}
