package receta

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	svc, _, _ := newTestService(t, nil)
	return NewHandler(svc, 5)
}

func TestGetReceta_InvalidID(t *testing.T) {
	h := newTestHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/recetas/zzz", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("zzz")

	if err := h.GetReceta(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body["kind"] != string(KindInvalidID) {
		t.Errorf("kind = %s, want %s", body["kind"], KindInvalidID)
	}
}

func TestUploadReceta_MissingFile(t *testing.T) {
	h := newTestHandler(t)
	e := echo.New()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/recetas/upload", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.UploadReceta(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestUploadReceta_RejectsNonPDFMime(t *testing.T) {
	h := newTestHandler(t)
	e := echo.New()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="archivoPDF"; filename="receta.png"`)
	hdr.Set("Content-Type", "image/png")
	part, _ := w.CreatePart(hdr)
	part.Write([]byte("not a pdf"))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/recetas/upload", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.UploadReceta(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["kind"] != string(KindInvalidAttachment) {
		t.Errorf("kind = %s, want %s", body["kind"], KindInvalidAttachment)
	}
}

func TestUploadReceta_SubmittedFields(t *testing.T) {
	h := newTestHandler(t)
	e := echo.New()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="archivoPDF"; filename="receta.pdf"`)
	hdr.Set("Content-Type", "application/pdf")
	part, _ := w.CreatePart(hdr)
	part.Write(pdfBytes())
	w.WriteField("pacienteDNI", "12345678")
	w.WriteField("medicoCMP", "9999")
	w.WriteField("fechaEmision", "2024-06-10")
	w.WriteField("productos", `[{"codigoProducto":"001","nombre":"Paracetamol","cantidad":20}]`)
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/recetas/upload", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.UploadReceta(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created Receta
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if created.EstadoValidacion != EstadoValidada {
		t.Errorf("estado = %s, want validada", created.EstadoValidacion)
	}
	if len(created.Productos) != 1 || created.Productos[0].Cantidad != 20 {
		t.Errorf("unexpected productos: %+v", created.Productos)
	}
}

func TestListRecetas_Envelope(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	cand := validCandidate()
	if _, err := svc.Subir(context.Background(), pdfBytes(), &cand); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h := NewHandler(svc, 5)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/recetas?dni=12345678&page=1&limit=10", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListRecetas(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Page  int             `json:"page"`
		Limit int             `json:"limit"`
		Total int             `json:"total"`
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body.Total != 1 || body.Page != 1 {
		t.Errorf("unexpected envelope: %+v", body)
	}
	if !strings.Contains(string(body.Items), "12345678") {
		t.Errorf("expected receta in items, got %s", body.Items)
	}
}

func TestDeleteArchivo_NotFound(t *testing.T) {
	h := newTestHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/recetas/archivo/000000000000000000000000", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("000000000000000000000000")

	if err := h.DeleteArchivo(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
