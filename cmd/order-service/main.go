package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go-mini-commerce/internal/broker"
	"go-mini-commerce/internal/event"
	"go-mini-commerce/internal/handler"
	"go-mini-commerce/internal/middleware"
	"go-mini-commerce/internal/model"
	"go-mini-commerce/internal/repository"
	"go-mini-commerce/internal/service"
	"go-mini-commerce/internal/stockclient"
	"go-mini-commerce/pkg/database"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// 2. Setup Database
	db := database.ConnectDB()
	db.AutoMigrate(&model.Customer{}, &model.Order{}, &model.OrderItem{})

	// 3. Stock client against the product registry
	productURL := os.Getenv("PRODUCT_SERVICE_URL")
	if productURL == "" {
		productURL = "http://localhost:8000"
	}
	timeout := 5 * time.Second
	if v := os.Getenv("STOCK_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}
	stock := stockclient.New(productURL, timeout)

	// 4. Stock-adjustment mode: sync calls the registry inline, async goes
	// through RabbitMQ and leaves created orders in PENDING_STOCK_CHECK.
	asyncMode := os.Getenv("ORDER_STOCK_MODE") == "async"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Dependency Injection (Wiring Layers)
	customerRepo := repository.NewCustomerRepo(db)
	orderRepo := repository.NewOrderRepo(db)

	var events service.EventPublisher
	var conn *amqp.Connection
	if asyncMode {
		var ch *amqp.Channel
		var err error
		conn, ch, err = broker.SetupConn(broker.URLFromEnv())
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer conn.Close()

		if err := broker.DeclareConsumerQueue(ch, event.QueueStockStatus, event.ExchangeStockEvents, event.KeyStockDeducted, event.KeyStockFailed); err != nil {
			log.Fatalf("Failed to declare %s: %v", event.QueueStockStatus, err)
		}
		events = broker.NewPublisher(ch)

		orderConsumer := service.NewOrderConsumer(orderRepo)
		go func() {
			if err := broker.Consume(ctx, ch, event.QueueStockStatus, "order-service", orderConsumer.HandleStockResult); err != nil {
				log.Printf("Consumer stopped: %v", err)
			}
		}()
	}

	orderService := service.NewOrderService(orderRepo, stock, events, asyncMode)
	customerService := service.NewCustomerService(customerRepo)

	orderHandler := handler.NewOrderHandler(orderService)
	customerHandler := handler.NewCustomerHandler(customerService)

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Order Coordinator v1.0",
	})

	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// 7. Routes
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", customerHandler.Login)
	api.Post("/customers", customerHandler.CreateCustomer)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(customerRepo))

	protected.Get("/customers", customerHandler.GetCustomers)
	protected.Get("/customers/:id", customerHandler.GetCustomer)
	protected.Put("/customers/:id", customerHandler.UpdateCustomer)
	protected.Delete("/customers/:id", customerHandler.DeleteCustomer)
	protected.Get("/customers/:id/orders", orderHandler.GetCustomerOrders)

	protected.Get("/orders", orderHandler.GetOrders)
	protected.Post("/orders", orderHandler.CreateOrder)
	protected.Get("/orders/:id", orderHandler.GetOrder)
	protected.Put("/orders/:id", orderHandler.UpdateOrder)
	protected.Delete("/orders/:id", orderHandler.DeleteOrder)
	protected.Post("/orders/:id/cancel", middleware.RequireAdmin(), orderHandler.CancelOrder)

	// 8. Graceful Shutdown
	go func() {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8001"
		}
		if err := app.Listen(":" + port); err != nil {
			log.Panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down order service...")
	cancel()
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	log.Println("Order service exited")
}
