package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/fnb-kiosk/services"
	"github.com/yeremiapane/fnb-kiosk/utils"
)

type AdminController struct {
	Orders *services.OrderService
}

func NewAdminController(orders *services.OrderService) *AdminController {
	return &AdminController{Orders: orders}
}

// GetDashboardStats recomputes the counters from the full order list.
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	stats, err := ac.Orders.DashboardStats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.JSONResponse{Success: true, Data: stats})
}

// ExportOrders sends every order as a JSON download.
func (ac *AdminController) ExportOrders(c *gin.Context) {
	export, err := ac.Orders.Export(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=orders-export.json")
	c.IndentedJSON(http.StatusOK, export)
}
