package receta

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/farmalink/recetas/internal/platform/storage"
	"github.com/farmalink/recetas/internal/platform/textextract"
	"github.com/farmalink/recetas/pkg/pagination"
)

// memRepo is an in-memory Repository for service tests.
type memRepo struct {
	recetas map[primitive.ObjectID]*Receta
}

func newMemRepo() *memRepo {
	return &memRepo{recetas: make(map[primitive.ObjectID]*Receta)}
}

func (m *memRepo) Insert(ctx context.Context, r *Receta) error {
	r.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	stored := *r
	m.recetas[r.ID] = &stored
	return nil
}

func (m *memRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*Receta, error) {
	r, ok := m.recetas[id]
	if !ok {
		return nil, NewError(KindNotFound, "receta %s no encontrada", id.Hex())
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) List(ctx context.Context, f Filter, p pagination.Params, sort []pagination.SortField) ([]*Receta, int, error) {
	var matched []*Receta
	for _, r := range m.recetas {
		if f.PacienteDNI != "" && r.PacienteDNI != f.PacienteDNI {
			continue
		}
		if f.MedicoCMP != "" && r.MedicoCMP != f.MedicoCMP {
			continue
		}
		if f.Estado != "" && r.EstadoValidacion != f.Estado {
			continue
		}
		matched = append(matched, r)
	}
	total := len(matched)

	start := p.Offset()
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *memRepo) UpdateEstado(ctx context.Context, id primitive.ObjectID, u Update) (*Receta, error) {
	r, ok := m.recetas[id]
	if !ok {
		return nil, NewError(KindNotFound, "receta %s no encontrada", id.Hex())
	}
	r.EstadoValidacion = u.Estado
	if u.PacienteDNI != nil {
		r.PacienteDNI = *u.PacienteDNI
	}
	if u.MedicoCMP != nil {
		r.MedicoCMP = *u.MedicoCMP
	}
	if u.FechaEmision != nil {
		r.FechaEmision = *u.FechaEmision
	}
	if u.Productos != nil {
		r.Productos = u.Productos
	}
	if u.TextoExtraido != nil {
		r.TextoExtraido = *u.TextoExtraido
	}
	r.UpdatedAt = time.Now().UTC()
	cp := *r
	return &cp, nil
}

func (m *memRepo) UnsetArchivo(ctx context.Context, id primitive.ObjectID) error {
	r, ok := m.recetas[id]
	if !ok {
		return NewError(KindNotFound, "receta %s no encontrada", id.Hex())
	}
	r.ArchivoPDF = ""
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func newTestService(t *testing.T, extractor textextract.Extractor) (*Service, *memRepo, *storage.MemoryStore) {
	t.Helper()
	repo := newMemRepo()
	store := storage.NewMemoryStore()
	if extractor == nil {
		extractor = &textextract.FakeExtractor{Text: sampleTranscript}
	}
	svc := NewService(repo, newTestValidator(t), store, extractor, 5*time.Minute)
	return svc, repo, store
}

func pdfBytes() []byte {
	return []byte("%PDF-1.4 contenido de prueba")
}

func TestSubir_SubmittedFields(t *testing.T) {
	svc, repo, store := newTestService(t, nil)
	cand := validCandidate()

	rec, err := svc.Subir(context.Background(), pdfBytes(), &cand)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.EstadoValidacion != EstadoValidada {
		t.Errorf("estado = %s, want validada", rec.EstadoValidacion)
	}
	if !strings.HasPrefix(rec.ArchivoPDF, "recetas/") || !strings.HasSuffix(rec.ArchivoPDF, ".pdf") {
		t.Errorf("unexpected storage key: %s", rec.ArchivoPDF)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 stored blob, got %d", store.Len())
	}
	if len(repo.recetas) != 1 {
		t.Errorf("expected 1 persisted receta, got %d", len(repo.recetas))
	}
}

func TestSubir_ProductosRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	cand := validCandidate()
	cand.Productos = []Producto{
		{CodigoProducto: "001", Nombre: "Paracetamol", Cantidad: 20},
		{CodigoProducto: "002", Nombre: "Ibuprofeno", Cantidad: 10},
	}

	rec, err := svc.Subir(context.Background(), pdfBytes(), &cand)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fetched, err := svc.ObtenerPorID(context.Background(), rec.ID.Hex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fetched.Productos) != 2 {
		t.Fatalf("expected 2 productos, got %d", len(fetched.Productos))
	}
	for i, p := range cand.Productos {
		got := fetched.Productos[i]
		if got.CodigoProducto != p.CodigoProducto || got.Nombre != p.Nombre || got.Cantidad != p.Cantidad {
			t.Errorf("producto %d changed: %+v vs %+v", i, got, p)
		}
	}
}

func TestSubir_OCRPath(t *testing.T) {
	svc, _, _ := newTestService(t, &textextract.FakeExtractor{Text: strings.Replace(sampleTranscript, "2024-01-01", "2024-06-10", 1)})

	rec, err := svc.Subir(context.Background(), pdfBytes(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.PacienteDNI != "12345678" || rec.MedicoCMP != "9999" {
		t.Errorf("extracted fields not persisted: %+v", rec)
	}
	if rec.TextoExtraido == "" {
		t.Error("expected transcript to be stored")
	}
	if rec.EstadoValidacion != EstadoValidada {
		t.Errorf("estado = %s, want validada", rec.EstadoValidacion)
	}
}

func TestSubir_UnlicensedPhysicianNeverPersists(t *testing.T) {
	svc, repo, store := newTestService(t, nil)
	cand := validCandidate()
	cand.MedicoCMP = "0000"

	_, err := svc.Subir(context.Background(), pdfBytes(), &cand)
	if !IsKind(err, KindUnlicensedPhysician) {
		t.Fatalf("expected UnlicensedPhysician, got %v", err)
	}
	if len(repo.recetas) != 0 {
		t.Error("rejected upload must not persist a record")
	}
	// The blob is written before validation and stays orphaned.
	if store.Len() != 1 {
		t.Errorf("expected orphaned blob, got %d objects", store.Len())
	}
}

func TestSubir_EmptyFile(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	_, err := svc.Subir(context.Background(), nil, nil)
	if !IsKind(err, KindMissingAttachment) {
		t.Errorf("expected MissingAttachment, got %v", err)
	}
}

func TestObtenerPorID_InvalidID(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	_, err := svc.ObtenerPorID(context.Background(), "not-hex")
	if !IsKind(err, KindInvalidID) {
		t.Errorf("expected InvalidId, got %v", err)
	}
}

func TestObtenerPorID_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	_, err := svc.ObtenerPorID(context.Background(), primitive.NewObjectID().Hex())
	if !IsKind(err, KindNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestObtenerPorID_MintsSignedURL(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	cand := validCandidate()

	rec, err := svc.Subir(context.Background(), pdfBytes(), &cand)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fetched, err := svc.ObtenerPorID(context.Background(), rec.ID.Hex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetched.ArchivoURL == "" {
		t.Error("expected a signed URL for the attachment")
	}
}

func TestActualizarEstado_RevalidatesOnValidada(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	cand := validCandidate()

	rec, err := svc.Subir(context.Background(), pdfBytes(), &cand)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Flip to rechazada, then back to validada with a bad license.
	if _, err := svc.ActualizarEstado(context.Background(), rec.ID.Hex(), UpdateEstadoRequest{EstadoValidacion: EstadoRechazada}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	badCMP := "0000"
	_, err = svc.ActualizarEstado(context.Background(), rec.ID.Hex(), UpdateEstadoRequest{
		EstadoValidacion: EstadoValidada,
		MedicoCMP:        &badCMP,
	})
	if !IsKind(err, KindUnlicensedPhysician) {
		t.Errorf("expected UnlicensedPhysician on revalidation, got %v", err)
	}

	// Revalidation with the stored (valid) fields succeeds.
	updated, err := svc.ActualizarEstado(context.Background(), rec.ID.Hex(), UpdateEstadoRequest{EstadoValidacion: EstadoValidada})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.EstadoValidacion != EstadoValidada {
		t.Errorf("estado = %s, want validada", updated.EstadoValidacion)
	}
}

func TestActualizarEstado_InvalidStatus(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	_, err := svc.ActualizarEstado(context.Background(), primitive.NewObjectID().Hex(), UpdateEstadoRequest{EstadoValidacion: "aprobada"})
	if !IsKind(err, KindInvalidStatus) {
		t.Errorf("expected InvalidStatus, got %v", err)
	}
}

func TestActualizarEstado_Reextraction(t *testing.T) {
	transcript := "Paciente DNI: 12345678\nMédico CMP: 9999\nFecha de emisión: 2024-06-10\nProductos\n- Código: 001, Nombre: Paracetamol, Cantidad: 20\n"
	svc, _, _ := newTestService(t, &textextract.FakeExtractor{Text: transcript})
	cand := validCandidate()

	rec, err := svc.Subir(context.Background(), pdfBytes(), &cand)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := svc.ActualizarEstado(context.Background(), rec.ID.Hex(), UpdateEstadoRequest{
		EstadoValidacion: EstadoValidada,
		Reextraer:        true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.TextoExtraido != transcript {
		t.Error("expected refreshed transcript to be stored")
	}
}

func TestActualizarEstado_ReextractionMismatch(t *testing.T) {
	svc, _, _ := newTestService(t, &textextract.FakeExtractor{
		Text: "documento suficientemente largo pero sin los identificadores esperados",
	})
	cand := validCandidate()

	rec, err := svc.Subir(context.Background(), pdfBytes(), &cand)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.ActualizarEstado(context.Background(), rec.ID.Hex(), UpdateEstadoRequest{
		EstadoValidacion: EstadoValidada,
		Reextraer:        true,
	})
	if !IsKind(err, KindContentMismatch) {
		t.Errorf("expected ContentMismatch, got %v", err)
	}
}

func TestObtenerArchivoURL_DirectMode(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	cand := validCandidate()

	rec, err := svc.Subir(context.Background(), pdfBytes(), &cand)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ref, err := svc.ObtenerArchivoURL(context.Background(), rec.ID.Hex(), true, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != rec.ArchivoPDF {
		t.Errorf("direct mode should return the raw key, got %s", ref)
	}

	signed, err := svc.ObtenerArchivoURL(context.Background(), rec.ID.Hex(), false, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signed == rec.ArchivoPDF {
		t.Error("signed mode should not return the raw key")
	}
}

func TestEliminarArchivo(t *testing.T) {
	svc, repo, store := newTestService(t, nil)
	cand := validCandidate()

	rec, err := svc.Subir(context.Background(), pdfBytes(), &cand)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.EliminarArchivo(context.Background(), rec.ID.Hex()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected blob removed, %d objects remain", store.Len())
	}

	stored := repo.recetas[rec.ID]
	if stored.ArchivoPDF != "" {
		t.Error("expected archivoPDF cleared")
	}
	// Deletion must not touch the validation status.
	if stored.EstadoValidacion != EstadoValidada {
		t.Errorf("estado changed to %s", stored.EstadoValidacion)
	}

	// A second deletion finds no attachment.
	if err := svc.EliminarArchivo(context.Background(), rec.ID.Hex()); !IsKind(err, KindMissingAttachment) {
		t.Errorf("expected MissingAttachment, got %v", err)
	}
}

func TestListar_Pagination(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	for i := 0; i < 15; i++ {
		cand := validCandidate()
		if _, err := svc.Subir(context.Background(), pdfBytes(), &cand); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	items, total, err := svc.Listar(context.Background(), Filter{PacienteDNI: "12345678"}, pagination.Params{Page: 2, Limit: 10}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 15 {
		t.Errorf("total = %d, want 15", total)
	}
	if len(items) != 5 {
		t.Errorf("page 2 items = %d, want 5", len(items))
	}
}
