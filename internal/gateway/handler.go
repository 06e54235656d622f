package gateway

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vladislavdragonenkov/orders/internal/rpc"
	"github.com/vladislavdragonenkov/orders/internal/rpc/ordersv1"
)

// OrdersHandler переводит HTTP-запросы в вызовы orders.v1.OrdersService.
type OrdersHandler struct {
	client ordersv1.OrdersServiceClient
}

// NewOrdersHandler создаёт обработчик маршрутов /orders.
func NewOrdersHandler(client ordersv1.OrdersServiceClient) *OrdersHandler {
	return &OrdersHandler{client: client}
}

// CreateOrderResponse - созданный заказ вместе с платёжной сессией.
type CreateOrderResponse struct {
	Order          *ordersv1.Order `json:"order"`
	PaymentSession map[string]any  `json:"paymentSession"`
}

type changeStatusBody struct {
	Status string `json:"status"`
}

// Create создаёт заказ и сразу открывает для него платёжную сессию.
func (h *OrdersHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req ordersv1.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	order, err := h.client.CreateOrder(ctx, &req)
	if err != nil {
		return err
	}

	session, err := h.client.CreatePaymentSession(ctx, order)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, CreateOrderResponse{Order: order, PaymentSession: session.AsMap()})
}

// FindAll возвращает страницу заказов: ?page=&limit=&status=.
func (h *OrdersHandler) FindAll(c echo.Context) error {
	var req ordersv1.FindAllOrdersRequest
	if err := echo.QueryParamsBinder(c).
		Int32("page", &req.Page).
		Int32("limit", &req.Limit).
		String("status", &req.Status).
		BindError(); err != nil {
		return rpc.NewError(http.StatusBadRequest, "page and limit must be integers")
	}

	page, err := h.client.FindAllOrders(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// FindOne возвращает заказ с названиями товаров.
func (h *OrdersHandler) FindOne(c echo.Context) error {
	order, err := h.client.FindOneOrder(c.Request().Context(), &ordersv1.FindOneOrderRequest{ID: c.Param("id")})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

// ChangeStatus меняет статус заказа.
func (h *OrdersHandler) ChangeStatus(c echo.Context) error {
	var body changeStatusBody
	if err := c.Bind(&body); err != nil {
		return err
	}

	order, err := h.client.ChangeOrderStatus(c.Request().Context(), &ordersv1.ChangeOrderStatusRequest{
		ID:     c.Param("id"),
		Status: body.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

// Paid принимает уведомление об оплате.
func (h *OrdersHandler) Paid(c echo.Context) error {
	var req ordersv1.PaidOrderRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	order, err := h.client.PaidOrder(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}
