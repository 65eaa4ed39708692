package receta

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/farmalink/recetas/pkg/pagination"
)

type Handler struct {
	svc         *Service
	maxUploadMB int
}

func NewHandler(svc *Service, maxUploadMB int) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 5
	}
	return &Handler{svc: svc, maxUploadMB: maxUploadMB}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/recetas", h.ListRecetas)
	api.GET("/recetas/:id", h.GetReceta)
	api.POST("/recetas/upload", h.UploadReceta)
	api.PUT("/recetas/estado/:id", h.UpdateEstado)
	api.PATCH("/recetas/estado/:id", h.UpdateEstado)
	api.GET("/recetas/archivo/:id", h.GetArchivo)
	api.DELETE("/recetas/archivo/:id", h.DeleteArchivo)
}

func (h *Handler) ListRecetas(c echo.Context) error {
	p := pagination.FromContext(c)

	f := Filter{
		PacienteDNI: c.QueryParam("dni"),
		MedicoCMP:   c.QueryParam("cmp"),
		Estado:      c.QueryParam("estado"),
	}
	if raw := c.QueryParam("fechaDesde"); raw != "" {
		t, err := parseFecha(raw)
		if err != nil {
			return errorResponse(c, NewError(KindInvalidIssueDate, "fechaDesde no es una fecha válida: %q", raw))
		}
		f.FechaDesde = &t
	}
	if raw := c.QueryParam("fechaHasta"); raw != "" {
		t, err := parseFecha(raw)
		if err != nil {
			return errorResponse(c, NewError(KindInvalidIssueDate, "fechaHasta no es una fecha válida: %q", raw))
		}
		f.FechaHasta = &t
	}

	recetas, total, err := h.svc.Listar(c.Request().Context(), f, p, c.QueryParam("sort"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, pagination.NewResponse(recetas, total, p))
}

func (h *Handler) GetReceta(c echo.Context) error {
	rec, err := h.svc.ObtenerPorID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) UploadReceta(c echo.Context) error {
	fileHeader, err := c.FormFile("archivoPDF")
	if err != nil {
		return errorResponse(c, NewError(KindMissingAttachment, "se requiere el archivo 'archivoPDF'"))
	}
	if ct := fileHeader.Header.Get("Content-Type"); ct != "" && ct != "application/pdf" {
		return errorResponse(c, NewError(KindInvalidAttachment, "solo se permiten archivos PDF, se recibió %q", ct))
	}
	if fileHeader.Size > int64(h.maxUploadMB)<<20 {
		return errorResponse(c, NewError(KindInvalidAttachment, "el archivo excede el máximo de %d MB", h.maxUploadMB))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errorResponse(c, WrapError(KindUpstreamUnavailable, err, "leer el archivo subido falló"))
	}
	defer file.Close()

	pdf, err := io.ReadAll(file)
	if err != nil {
		return errorResponse(c, WrapError(KindUpstreamUnavailable, err, "leer el archivo subido falló"))
	}

	submitted, err := candidateFromForm(c)
	if err != nil {
		return errorResponse(c, err)
	}

	rec, err := h.svc.Subir(c.Request().Context(), pdf, submitted)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) UpdateEstado(c echo.Context) error {
	var req UpdateEstadoRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, NewError(KindInvalidStatus, "cuerpo de la solicitud inválido"))
	}

	rec, err := h.svc.ActualizarEstado(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) GetArchivo(c echo.Context) error {
	direct, _ := strconv.ParseBool(c.QueryParam("direct"))

	var expiry time.Duration
	if raw := c.QueryParam("expira"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "expira debe ser un número positivo de segundos",
			})
		}
		expiry = time.Duration(secs) * time.Second
	}

	url, err := h.svc.ObtenerArchivoURL(c.Request().Context(), c.Param("id"), direct, expiry)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"archivoURL": url})
}

func (h *Handler) DeleteArchivo(c echo.Context) error {
	if err := h.svc.EliminarArchivo(c.Request().Context(), c.Param("id")); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"mensaje": "archivo eliminado"})
}

// candidateFromForm reads the structured prescription fields submitted
// alongside the file. Returns nil when no field was provided, which
// switches the upload to the OCR extraction path.
func candidateFromForm(c echo.Context) (*CandidateFields, error) {
	dni := c.FormValue("pacienteDNI")
	cmp := c.FormValue("medicoCMP")
	fecha := c.FormValue("fechaEmision")
	productosRaw := c.FormValue("productos")

	if dni == "" && cmp == "" && fecha == "" && productosRaw == "" {
		return nil, nil
	}

	cand := &CandidateFields{
		PacienteDNI:  dni,
		MedicoCMP:    cmp,
		FechaEmision: fecha,
	}
	if productosRaw != "" {
		if err := json.Unmarshal([]byte(productosRaw), &cand.Productos); err != nil {
			return nil, NewError(KindInvalidProductLine, "productos debe ser un arreglo JSON válido")
		}
	}
	return cand, nil
}

// errorResponse writes the structured error body for a categorized
// error, or a generic 500 for anything else.
func errorResponse(c echo.Context, err error) error {
	kind := KindOf(err)
	if kind == "" {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	var e *Error
	msg := err.Error()
	if errors.As(err, &e) {
		msg = e.Message
	}
	return c.JSON(StatusCode(err), map[string]string{
		"error": msg,
		"kind":  string(kind),
	})
}
