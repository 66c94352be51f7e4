package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type KDSController struct {
	hub *kds.Hub
}

func NewKDSController(hub *kds.Hub) *KDSController {
	return &KDSController{hub: hub}
}

// Connect -> upgrade to websocket and stream lifecycle events to the
// display until it disconnects
func (kc *KDSController) Connect(c *gin.Context) {
	role, ok := c.Get("role")
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing role"))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("kds: websocket upgrade failed: %v", err)
		return
	}

	kc.hub.RegisterClient(conn, role.(string))
	utils.InfoLogger.Printf("kds: %s display connected (%d active)", role, kc.hub.ClientCount())

	// Displays only listen; reads just detect the close.
	go func() {
		defer kc.hub.UnregisterClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
