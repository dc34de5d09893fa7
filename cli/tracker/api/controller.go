package api

import (
	"github.com/gin-gonic/gin"
)

type Controller struct {
	router *gin.Engine
}

// NewController собирает маршруты сервиса. Обработчики постоянных
// соединений передаются снаружи, чтобы не тянуть websocket-слой в API.
func NewController(handler *Handler, driverChannel gin.HandlerFunc, passengerChannel gin.HandlerFunc) *Controller {
	router := gin.Default()

	api := router.Group("/api")
	{
		api.POST("/driver/update", handler.UpdatePosition)
		api.GET("/bus/:bus_id/last", handler.GetLast)
		api.POST("/token/driver", handler.IssueDriverToken)
		api.GET("/health", handler.Health)
	}

	ws := router.Group("/ws")
	{
		ws.GET("/driver", driverChannel)
		ws.GET("/passenger", passengerChannel)
	}

	return &Controller{router: router}
}

func (c *Controller) Run(addr string) error {
	return c.router.Run(addr)
}
