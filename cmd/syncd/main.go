package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.mongodb.org/mongo-driver/mongo"
	gootelgin "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/kaneo-dev/kaneo-sync/config"
	"github.com/kaneo-dev/kaneo-sync/controllers"
	"github.com/kaneo-dev/kaneo-sync/internal/adapter"
	"github.com/kaneo-dev/kaneo-sync/internal/adapter/gitea"
	"github.com/kaneo-dev/kaneo-sync/internal/adapter/github"
	"github.com/kaneo-dev/kaneo-sync/internal/bus"
	"github.com/kaneo-dev/kaneo-sync/internal/metrics"
	"github.com/kaneo-dev/kaneo-sync/internal/middleware"
	"github.com/kaneo-dev/kaneo-sync/internal/migration"
	"github.com/kaneo-dev/kaneo-sync/pkg/mongodb"
	"github.com/kaneo-dev/kaneo-sync/pkg/opentelemetry"
	"github.com/kaneo-dev/kaneo-sync/routes"
	"github.com/kaneo-dev/kaneo-sync/services"
	"github.com/kaneo-dev/kaneo-sync/utils"
)

const serviceName = "kaneo-syncd"

type App struct {
	server *gin.Engine

	integrationCollection *mongo.Collection
	linkCollection        *mongo.Collection
	taskCollection        *mongo.Collection
	commentCollection     *mongo.Collection
	counterCollection     *mongo.Collection
	deliveryCollection    *mongo.Collection
	migrationCollection   *mongo.Collection

	integrationService services.IntegrationService
	linkService        services.LinkService
	taskService        services.TaskService
	deliveryService    services.DeliveryService

	bus         *bus.Bus
	registry    *adapter.Registry
	broadcaster *adapter.Broadcaster

	webhookController controllers.WebhookController
	eventsController  controllers.EventsController
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cnf, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to read config: %v", err)
	}

	logger, err := utils.NewLogger(cnf)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Close()

	shutdown := opentelemetry.SetupTracer(serviceName, cnf.Telemetry.OTLPEndpoint)
	defer shutdown()

	metrics.Register()

	mongoclient, err := mongodb.Connect(ctx, cnf.Database.MongoURI)
	if err != nil {
		log.Fatalf("Failed to setup MongoDB: %v", err)
	}
	defer mongoclient.Disconnect(ctx)

	db := mongoclient.Database(cnf.Database.Name)
	app := &App{
		server:                gin.New(),
		integrationCollection: db.Collection("integrations"),
		linkCollection:        db.Collection("external_links"),
		taskCollection:        db.Collection("tasks"),
		commentCollection:     db.Collection("task_comments"),
		counterCollection:     db.Collection("counters"),
		deliveryCollection:    db.Collection("webhook_deliveries"),
		migrationCollection:   db.Collection("migrations"),
	}

	if err := services.EnsureIntegrationIndexes(ctx, app.integrationCollection); err != nil {
		log.Fatalf("Failed to ensure integration indexes: %v", err)
	}
	if err := services.EnsureLinkIndexes(ctx, app.linkCollection); err != nil {
		log.Fatalf("Failed to ensure link indexes: %v", err)
	}

	app.integrationService = services.NewIntegrationService(app.integrationCollection)
	app.linkService = services.NewLinkService(app.linkCollection)
	app.taskService = services.NewTaskService(app.taskCollection, app.commentCollection, app.counterCollection)
	app.deliveryService = services.NewDeliveryService(app.deliveryCollection)

	app.registry = adapter.NewRegistry()
	githubAdapter := github.New(app.linkService, app.taskService, logger, cnf.Sync.ProviderTimeout)
	giteaAdapter := gitea.New(app.linkService, app.taskService, logger, cnf.Sync.ProviderTimeout)
	if err := app.registry.Register(githubAdapter); err != nil {
		log.Fatalf("Failed to register github adapter: %v", err)
	}
	if err := app.registry.Register(giteaAdapter); err != nil {
		log.Fatalf("Failed to register gitea adapter: %v", err)
	}

	app.bus, err = bus.New()
	if err != nil {
		log.Fatalf("Failed to build event bus: %v", err)
	}
	app.broadcaster = adapter.NewBroadcaster(app.registry, app.integrationService, logger)
	app.bus.Subscribe("provider-sync", app.broadcaster.Dispatch)
	go func() {
		if err := app.bus.Run(ctx); err != nil {
			log.Fatalf("Event bus stopped: %v", err)
		}
	}()
	<-app.bus.Running()

	if cnf.Sync.RunMigration {
		runner := migration.NewRunner(app.taskCollection, app.migrationCollection,
			app.linkService, app.integrationService, logger)
		if err := runner.Run(ctx); err != nil {
			log.Fatalf("Legacy link backfill failed: %v", err)
		}
	}

	app.webhookController = controllers.NewWebhookController(app.registry, app.integrationService, app.deliveryService, logger)
	app.eventsController = controllers.NewEventsController(app.bus, logger)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowCredentials = true

	app.server.Use(gin.Logger())
	app.server.Use(gin.Recovery())
	app.server.Use(cors.New(corsConfig))
	app.server.Use(gootelgin.Middleware(serviceName))
	app.server.Use(middleware.ServiceIdentityHeader(serviceName))

	p := ginprometheus.NewPrometheus("kaneo_sync")
	p.Use(app.server)

	app.server.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Kaneo sync engine running", "version": "1.0.0"})
	})
	app.server.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	group := app.server.Group("")
	webhookRouteController := routes.NewWebhookRouteController(app.webhookController)
	eventsRouteController := routes.NewEventsRouteController(app.eventsController)
	webhookRouteController.WebhookRoute(group)
	eventsRouteController.EventsRoute(group)

	srv := &http.Server{
		Addr:    cnf.App.HTTPAddr,
		Handler: app.server,
	}
	go func() {
		log.Printf("Starting sync engine on %s", cnf.App.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown failed: %v", err)
	}
	cancel()
	if err := app.bus.Close(); err != nil {
		log.Printf("Event bus shutdown failed: %v", err)
	}
	log.Println("Exited gracefully")
}
