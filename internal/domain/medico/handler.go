package medico

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/farmalink/recetas/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/medicos", h.ListMedicos)
	api.GET("/medicos/:cmp", h.GetMedico)
	api.POST("/medicos", h.CreateMedico)
}

func (h *Handler) ListMedicos(c echo.Context) error {
	p := pagination.FromContext(c)

	f := Filter{
		Nombre:       c.QueryParam("nombre"),
		Especialidad: c.QueryParam("especialidad"),
	}
	if raw := c.QueryParam("colegiaturaValida"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "colegiaturaValida must be true or false")
		}
		f.Colegiatura = &v
	}

	medicos, total, err := h.svc.Listar(c.Request().Context(), f, p.Limit, p.Offset())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, pagination.NewResponse(medicos, total, p))
}

func (h *Handler) GetMedico(c echo.Context) error {
	m, err := h.svc.ObtenerPorCMP(c.Request().Context(), c.Param("cmp"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "medico no encontrado")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) CreateMedico(c echo.Context) error {
	var m Medico
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Registrar(c.Request().Context(), &m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}
