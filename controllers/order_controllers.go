package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/fnb-kiosk/models"
	"github.com/yeremiapane/fnb-kiosk/services"
	"github.com/yeremiapane/fnb-kiosk/utils"
)

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

// CreateOrder -> POST /api/orders
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var body models.OrderSubmission
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid order payload")
		return
	}

	res, err := oc.Orders.CreateOrder(c.Request.Context(), &body)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := models.CreateOrderResponse{
		Success: true,
		OrderID: res.Order.OrderID,
		Message: "Order placed successfully",
		Data:    res.Order,
	}
	if res.Mismatch != nil {
		resp.Warning = res.Mismatch.Error()
	}
	c.JSON(http.StatusCreated, resp)
}

// GetAllOrders -> newest first
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	orders, err := oc.Orders.ListOrders(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.JSONResponse{Success: true, Data: orders})
}

// GetOrderByID answers with the bare order object.
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	order, err := oc.Orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (oc *OrderController) UpdateStatus(c *gin.Context) {
	var body struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "status is required")
		return
	}

	order, err := oc.Orders.UpdateStatus(c.Request.Context(), c.Param("id"), body.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.JSONResponse{Success: true, Data: order})
}

func (oc *OrderController) UpdatePayment(c *gin.Context) {
	var body struct {
		PaymentStatus models.PaymentStatus `json:"paymentStatus" binding:"required"`
		PaymentMethod string               `json:"paymentMethod"`
		CustomerPhone string               `json:"customerPhone"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "paymentStatus is required")
		return
	}

	order, err := oc.Orders.UpdatePayment(c.Request.Context(), c.Param("id"), services.PaymentUpdate{
		Status:        body.PaymentStatus,
		Method:        body.PaymentMethod,
		CustomerPhone: body.CustomerPhone,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.JSONResponse{Success: true, Data: order})
}

func (oc *OrderController) DeleteOrder(c *gin.Context) {
	if err := oc.Orders.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order deleted", nil)
}

// ClearOrders -> DELETE /api/orders
func (oc *OrderController) ClearOrders(c *gin.Context) {
	n, err := oc.Orders.ClearOrders(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, fmt.Sprintf("Cleared %d orders", n), nil)
}
