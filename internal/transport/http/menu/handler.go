package menu

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/brigade/internal/dto"
	"github.com/Additional-Code/brigade/internal/presentation/http/response"
	repo "github.com/Additional-Code/brigade/internal/repository/menu"
	"github.com/Additional-Code/brigade/pkg/errorbank"
)

// Handler exposes the menu read path. Staff clients use it to populate draft
// order item pickers.
type Handler struct {
	repo *repo.Repository
}

// NewHandler constructs a menu Handler.
func NewHandler(r *repo.Repository) *Handler {
	return &Handler{repo: r}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/menu-items")
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	items, err := h.repo.List(c.Request().Context())
	if err != nil {
		return b.WithError(errorbank.Internal("failed to list menu items", errorbank.WithCause(err))).Build()
	}

	out := make([]dto.MenuItem, 0, len(items))
	for _, item := range items {
		out = append(out, dto.FromMenuItem(item))
	}
	return b.WithData(out).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	item, err := h.repo.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repo.ErrNotFound {
			return b.WithError(errorbank.NotFound("menu item not found")).Build()
		}
		return b.WithError(errorbank.Internal("failed to load menu item", errorbank.WithCause(err))).Build()
	}

	return b.WithData(dto.FromMenuItem(item)).Build()
}
