package order

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/brigade/internal/dto"
	"github.com/Additional-Code/brigade/internal/entity"
	"github.com/Additional-Code/brigade/internal/presentation/http/response"
	service "github.com/Additional-Code/brigade/internal/service/order"
	"github.com/Additional-Code/brigade/internal/status"
	"github.com/Additional-Code/brigade/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/brigade/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.GET("", h.list)
	g.POST("", h.create)
	g.POST("/bulk-status", h.bulkStatus)
	g.GET("/:id", h.getByID)
	g.PUT("/:id", h.update)
	g.PATCH("/:id/status", h.updateStatus)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/items", h.addItem)
	g.PUT("/:id/items/:itemId", h.updateItem)
	g.DELETE("/:id/items/:itemId", h.removeItem)
}

type createItemPayload struct {
	MenuItemID          int64  `json:"menuItemId"`
	Quantity            int    `json:"quantity"`
	SpecialInstructions string `json:"specialInstructions"`
}

type createPayload struct {
	TableNumber int                 `json:"tableNumber"`
	ServerName  string              `json:"serverName"`
	Items       []createItemPayload `json:"items"`
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list")
	defer span.End()

	orders, err := h.svc.List(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.Order, 0, len(orders))
	for _, order := range orders {
		out = append(out, dto.FromOrder(order))
	}
	return b.WithData(out).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := pathID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload createPayload
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	order := &entity.Order{
		TableNumber: payload.TableNumber,
		ServerName:  payload.ServerName,
	}
	for _, item := range payload.Items {
		order.Items = append(order.Items, &entity.OrderItem{
			MenuItemID:          item.MenuItemID,
			Quantity:            item.Quantity,
			SpecialInstructions: item.SpecialInstructions,
		})
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(attribute.Int("order.table", payload.TableNumber)))
	defer span.End()

	if err := h.svc.Create(ctx, order); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)

	id, err := pathID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		TableNumber *int    `json:"tableNumber"`
		ServerName  *string `json:"serverName"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.update", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Update(ctx, id, payload.TableNumber, payload.ServerName)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) updateStatus(c echo.Context) error {
	b := response.New(c)

	id, err := pathID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		Status status.Status `json:"status"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.updateStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", string(payload.Status)),
	))
	defer span.End()

	order, err := h.svc.UpdateStatus(ctx, id, payload.Status)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) bulkStatus(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		OrderIDs []int64       `json:"orderIds"`
		Status   status.Status `json:"status"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.bulkStatus", trace.WithAttributes(
		attribute.Int("order.count", len(payload.OrderIDs)),
		attribute.String("order.status", string(payload.Status)),
	))
	defer span.End()

	if err := h.svc.BulkUpdateStatus(ctx, payload.OrderIDs, payload.Status); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithMeta("updated", len(payload.OrderIDs)).Build()
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)

	id, err := pathID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Delete(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) addItem(c echo.Context) error {
	b := response.New(c)

	id, err := pathID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload createItemPayload
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.addItem", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	item := &entity.OrderItem{
		MenuItemID:          payload.MenuItemID,
		Quantity:            payload.Quantity,
		SpecialInstructions: payload.SpecialInstructions,
	}
	stored, err := h.svc.AddItem(ctx, id, item)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(dto.FromOrderItem(stored)).Build()
}

func (h *Handler) updateItem(c echo.Context) error {
	b := response.New(c)

	id, err := pathID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}
	itemID, err := pathID(c, "itemId")
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		Quantity            int    `json:"quantity"`
		SpecialInstructions string `json:"specialInstructions"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.updateItem", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.Int64("item.id", itemID),
	))
	defer span.End()

	item, err := h.svc.UpdateItem(ctx, id, itemID, payload.Quantity, payload.SpecialInstructions)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromOrderItem(item)).Build()
}

func (h *Handler) removeItem(c echo.Context) error {
	b := response.New(c)

	id, err := pathID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}
	itemID, err := pathID(c, "itemId")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.removeItem", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.Int64("item.id", itemID),
	))
	defer span.End()

	if err := h.svc.RemoveItem(ctx, id, itemID); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithMeta("removed", itemID).Build()
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, errorbank.BadRequest("invalid "+name, errorbank.WithCause(err))
	}
	return id, nil
}
