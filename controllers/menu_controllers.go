package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/fnb-kiosk/services"
	"github.com/yeremiapane/fnb-kiosk/utils"
)

type MenuController struct {
	Menu *services.MenuService
}

func NewMenuController(menu *services.MenuService) *MenuController {
	return &MenuController{Menu: menu}
}

// GetAllMenus never fails; without a usable menu file it serves the demo menu.
func (mc *MenuController) GetAllMenus(c *gin.Context) {
	items, source := mc.Menu.Items()
	c.Header("X-Menu-Source", source)
	c.JSON(http.StatusOK, utils.JSONResponse{Success: true, Data: items})
}
