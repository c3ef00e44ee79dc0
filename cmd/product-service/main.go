package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-mini-commerce/internal/broker"
	"go-mini-commerce/internal/event"
	"go-mini-commerce/internal/handler"
	"go-mini-commerce/internal/model"
	"go-mini-commerce/internal/repository"
	"go-mini-commerce/internal/service"
	"go-mini-commerce/internal/ws"
	"go-mini-commerce/pkg/database"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// 2. Setup Database
	db := database.ConnectDB()
	db.AutoMigrate(&model.Product{}, &model.StockAdjustment{})

	// 3. Setup WebSocket Hub (live stock feed)
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 4. Setup RabbitMQ
	conn, ch, err := broker.SetupConn(broker.URLFromEnv())
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()

	if err := broker.DeclareConsumerQueue(ch, event.QueueOrderCreated, event.ExchangeOrderEvents, event.KeyOrderCreated); err != nil {
		log.Fatalf("Failed to declare %s: %v", event.QueueOrderCreated, err)
	}

	// 5. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	ledgerRepo := repository.NewAdjustmentRepo(db)

	catalogService := service.NewCatalogService(productRepo, ledgerRepo, db, wsHub)
	productHandler := handler.NewProductHandler(catalogService)

	// 6. Order-created consumer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registryConsumer := service.NewRegistryConsumer(catalogService, broker.NewPublisher(ch))
	go func() {
		if err := broker.Consume(ctx, ch, event.QueueOrderCreated, "product-service", registryConsumer.HandleOrderCreated); err != nil {
			log.Printf("Consumer stopped: %v", err)
		}
	}()

	// 7. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Product Registry v1.0",
	})

	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// 8. Routes
	api := app.Group("/api/v1")

	api.Get("/products", productHandler.GetProducts)
	api.Post("/products", productHandler.CreateProduct)
	api.Get("/products/:id", productHandler.GetProduct)
	api.Put("/products/:id", productHandler.UpdateProduct)
	api.Delete("/products/:id", productHandler.DeleteProduct)
	api.Patch("/products/:id/stock", productHandler.AdjustStock)

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 9. Graceful Shutdown
	go func() {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8000"
		}
		if err := app.Listen(":" + port); err != nil {
			log.Panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down product service...")
	cancel()
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	log.Println("Product service exited")
}
