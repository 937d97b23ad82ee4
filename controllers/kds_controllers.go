package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/fnb-kiosk/kds"
	"github.com/yeremiapane/fnb-kiosk/middlewares"
	"github.com/yeremiapane/fnb-kiosk/utils"
)

type KDSController struct {
	Hub      *kds.Hub
	upgrader websocket.Upgrader
}

// NewKDSController accepts upgrades from any origin; the admin token is what
// guards the stream.
func NewKDSController(hub *kds.Hub) *KDSController {
	return &KDSController{
		Hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// KDSHandler -> GET /ws/orders. The connection only receives; anything the
// dashboard sends is read and dropped until it disconnects.
func (kc *KDSController) KDSHandler(c *gin.Context) {
	role := c.GetString(middlewares.ContextRole)
	if role != RoleAdmin {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ws, err := kc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Warnf("Websocket upgrade failed: %v", err)
		return
	}

	kc.Hub.Register(ws, role)
	defer kc.Hub.Unregister(ws)

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
