package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/controllers"
	"github.com/yeremiapane/restaurant-pos/middlewares"
)

// Controllers bundles everything the router wires up.
type Controllers struct {
	Tickets  *controllers.TicketController
	Tables   *controllers.TableController
	Products *controllers.ProductController
	Users    *controllers.UserController
	KDS      *controllers.KDSController
}

func SetupRouter(ctrl Controllers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.NewRateLimiter(50, 1).RateLimit())

	api := r.Group("/api/v1")

	// Public
	api.POST("/auth/register", ctrl.Users.Register)
	api.POST("/auth/login", ctrl.Users.Login)

	// Everything else needs an authenticated employee
	auth := api.Group("")
	auth.Use(middlewares.AuthMiddleware())

	auth.GET("/kds/ws", ctrl.KDS.Connect)

	tickets := auth.Group("/tickets")
	{
		tickets.POST("", ctrl.Tickets.CreateTicket)
		tickets.GET("/open", ctrl.Tickets.ListOpenTickets)
		tickets.GET("/:ticket_id", ctrl.Tickets.GetTicket)
		tickets.PATCH("/:ticket_id/status", ctrl.Tickets.ChangeState)
		tickets.POST("/:ticket_id/items", ctrl.Tickets.AddItem)
		tickets.PATCH("/:ticket_id/items/:item_id", ctrl.Tickets.UpdateItem)
		tickets.DELETE("/:ticket_id/items/:item_id", ctrl.Tickets.RemoveItem)
		tickets.PATCH("/:ticket_id/items/:item_id/prep", ctrl.Tickets.AdvanceItemPrep)
		tickets.POST("/:ticket_id/split/items", ctrl.Tickets.SplitByItems)
		tickets.POST("/:ticket_id/split/diners", ctrl.Tickets.SplitByDiners)
		tickets.POST("/:ticket_id/merge", ctrl.Tickets.MergeTickets)
	}

	tables := auth.Group("/tables")
	{
		tables.POST("", middlewares.RequireRole("admin", "staff"), ctrl.Tables.CreateTable)
		tables.GET("", ctrl.Tables.GetAllTables)
		tables.GET("/stats", ctrl.Tables.GetFloorStats)
		tables.GET("/search", ctrl.Tables.FindTablesByStatus)
		tables.GET("/:table_id", ctrl.Tables.GetTableByID)
		tables.PATCH("/:table_id/status", ctrl.Tables.UpdateTableStatus)
		tables.DELETE("/:table_id", middlewares.RequireRole("admin"), ctrl.Tables.DeleteTable)
	}

	products := auth.Group("/products")
	{
		products.POST("", ctrl.Products.CreateProduct)
		products.GET("", ctrl.Products.GetAllProducts)
		products.GET("/:product_id", ctrl.Products.GetProductByID)
		products.PATCH("/:product_id", ctrl.Products.UpdateProduct)
		products.DELETE("/:product_id", ctrl.Products.DeleteProduct)
	}

	return r
}
