package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"

	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/controllers"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/repository"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

func main() {
	utils.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("config: %v", err)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	autoMigrate(db)

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Event fan-out: kitchen/floor displays always, NATS when configured.
	hub := kds.NewHub(utils.ErrorLogger)
	notifiers := events.Fanout{hub}
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL, nats.Name("restaurant-pos"))
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to connect to NATS at %s: %v", cfg.NatsURL, err)
		}
		defer nc.Drain()
		notifiers = append(notifiers, events.NewNatsNotifier(nc, utils.ErrorLogger))
		utils.InfoLogger.Printf("Publishing lifecycle events to NATS at %s", cfg.NatsURL)
	}

	repo := repository.NewGormTicketRepository(db)
	registry := services.NewTableRegistry(db)
	totals := services.NewTotalsEngine(cfg.TaxRate, cfg.TipRate)
	stock := services.NewStockService(db, utils.ErrorLogger)
	ticketService := services.NewTicketService(repo, registry, totals, stock, notifiers, utils.InfoLogger)
	splitService := services.NewSplitMergeService(ticketService)

	r := router.SetupRouter(router.Controllers{
		Tickets:  controllers.NewTicketController(ticketService, splitService),
		Tables:   controllers.NewTableController(db, registry),
		Products: controllers.NewProductController(db),
		Users:    controllers.NewUserController(db),
		KDS:      controllers.NewKDSController(hub),
	})

	utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.User{},
		&models.Table{},
		&models.Product{},
		&models.Ticket{},
		&models.TicketItem{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
}
