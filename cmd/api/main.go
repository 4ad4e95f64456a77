package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fulfillment-platform/fulfillment-service/pkg/cloudevents"
	"github.com/fulfillment-platform/fulfillment-service/pkg/errors"
	"github.com/fulfillment-platform/fulfillment-service/pkg/idempotency"
	"github.com/fulfillment-platform/fulfillment-service/pkg/kafka"
	"github.com/fulfillment-platform/fulfillment-service/pkg/logging"
	"github.com/fulfillment-platform/fulfillment-service/pkg/metrics"
	"github.com/fulfillment-platform/fulfillment-service/pkg/middleware"
	"github.com/fulfillment-platform/fulfillment-service/pkg/mongodb"
	"github.com/fulfillment-platform/fulfillment-service/pkg/outbox"
	outboxMongo "github.com/fulfillment-platform/fulfillment-service/pkg/outbox/mongodb"
	temporalClient "github.com/fulfillment-platform/fulfillment-service/pkg/temporal"
	"github.com/fulfillment-platform/fulfillment-service/pkg/tracing"

	"github.com/fulfillment-platform/fulfillment-service/internal/application"
	"github.com/fulfillment-platform/fulfillment-service/internal/domain"
	"github.com/fulfillment-platform/fulfillment-service/internal/infrastructure/messaging"
	mongoRepo "github.com/fulfillment-platform/fulfillment-service/internal/infrastructure/mongodb"
	"github.com/fulfillment-platform/fulfillment-service/internal/workflows"
)

const serviceName = "fulfillment-service"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting fulfillment-service API")

	config := loadConfig()
	ctx := context.Background()

	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)

	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	kafkaProducer := kafka.NewProducer(config.Kafka)
	instrumentedProducer := kafka.NewInstrumentedProducer(kafkaProducer, m, logger)
	defer instrumentedProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	eventFactory := cloudevents.NewEventFactory("/fulfillment-service")

	db := mongoClient.Database()
	orderRepo := mongoRepo.NewOrderRepository(db, eventFactory)
	inventoryRepo := mongoRepo.NewInventoryRepository(db)
	allocationRepo := mongoRepo.NewAllocationRepository(db)
	taskRepo := mongoRepo.NewTaskRepository(db, eventFactory)
	binRepo := mongoRepo.NewBinRepository(db, eventFactory)
	eventRepo := mongoRepo.NewEventRepository(db)
	uow := mongoRepo.NewUnitOfWork(mongoClient)

	idempotencyKeyRepo := idempotency.NewMongoKeyRepository(db)
	if err := idempotencyKeyRepo.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("Failed to initialize idempotency indexes")
	}

	outboxPublisher := outbox.NewPublisher(
		outboxMongo.NewOutboxRepository(db),
		instrumentedProducer,
		logger,
		m,
		&outbox.PublisherConfig{PollInterval: 1 * time.Second, BatchSize: 100},
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	tc, err := temporalClient.NewClient(ctx, config.Temporal)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to Temporal")
		os.Exit(1)
	}
	defer tc.Close()
	logger.Info("Temporal client initialized", "hostPort", config.Temporal.HostPort)
	enqueuer := workflows.NewEnqueuer(tc)

	notifier := messaging.NewLiveNotifier(instrumentedProducer, eventFactory, logger)
	eventLog := application.NewEventLog(eventRepo, notifier, logger, m)

	allocationService := application.NewAllocationService(
		orderRepo, inventoryRepo, allocationRepo, uow, eventLog, enqueuer, logger, m)
	fulfillmentService := application.NewFulfillmentService(
		orderRepo, allocationRepo, inventoryRepo, taskRepo, binRepo, uow, eventLog, logger, m)

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.SimpleTracingMiddleware(serviceName))
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	idempotencyConfig := idempotency.DefaultConfig(serviceName, idempotencyKeyRepo)

	api := router.Group("/api/v1")
	api.GET("/orders/:orderId/fulfillment", getFulfillmentStatusHandler(fulfillmentService, logger))
	api.GET("/orders/:orderId/events", getEventsHandler(fulfillmentService, logger))

	mutating := api.Group("")
	mutating.Use(middleware.RequireActor())
	mutating.Use(idempotency.Middleware(idempotencyConfig))
	{
		mutating.POST("/orders/allocate-batch", allocateBatchHandler(allocationService, logger))
		mutating.POST("/orders/:orderId/allocate", allocateOrderHandler(allocationService, enqueuer, logger))
		mutating.POST("/orders/:orderId/release", releaseAllocationsHandler(allocationService, logger))
		mutating.POST("/inventory/:sku/recheck-backorders", recheckBackordersHandler(allocationService, logger))

		mutating.POST("/orders/:orderId/pick-list", generatePickListHandler(fulfillmentService, logger))
		mutating.POST("/pick-items/:itemId/confirm", confirmPickItemHandler(fulfillmentService, logger))
		mutating.POST("/orders/:orderId/pack-list", generatePackListHandler(fulfillmentService, logger))
		mutating.POST("/pack-items/:itemId/verify", verifyPackItemHandler(fulfillmentService, logger))
		mutating.POST("/orders/:orderId/bin", createPickBinHandler(fulfillmentService, logger))
		mutating.POST("/bins/:binId/verify-item", verifyBinItemHandler(fulfillmentService, logger))
		mutating.POST("/packing/:taskId/complete", completePackingHandler(fulfillmentService, logger))
		mutating.POST("/bins/:binId/complete", completeBinPackingHandler(fulfillmentService, logger))
		mutating.POST("/orders/:orderId/ship", markShippedHandler(fulfillmentService, logger))
	}

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
	Temporal   *temporalClient.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "fulfillment_db"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:       []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ConsumerGroup: serviceName,
			ClientID:      serviceName,
			BatchSize:     100,
			BatchTimeout:  10 * time.Millisecond,
			RequiredAcks:  -1,
		},
		Temporal: &temporalClient.Config{
			HostPort:  getEnv("TEMPORAL_HOST_PORT", "localhost:7233"),
			Namespace: getEnv("TEMPORAL_NAMESPACE", "default"),
			Identity:  serviceName + "-api",
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// respondDomainError translates a domain failure into the API error shape
func respondDomainError(c *gin.Context, logger *logging.Logger, err error) {
	responder := middleware.NewErrorResponder(c, logger.Logger)
	responder.RespondWithAppError(errors.MapDomainError(err))
}

// HTTP handlers

func allocateOrderHandler(service *application.AllocationService, enqueuer *workflows.Enqueuer, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			AllowPartial bool `json:"allowPartial"`
			Async        bool `json:"async"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				middleware.NewErrorResponder(c, logger.Logger).RespondBadRequest(err.Error())
				return
			}
		}

		cmd := application.AllocateOrderCommand{
			OrderID:      c.Param("orderId"),
			AllowPartial: req.AllowPartial,
			ActorID:      middleware.GetActorID(c),
		}
		if appErr := middleware.ValidateStruct(&cmd); appErr != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"order.id":      cmd.OrderID,
			"allow.partial": cmd.AllowPartial,
		})

		if req.Async {
			if err := enqueuer.EnqueueAllocation(c.Request.Context(), cmd.OrderID); err != nil {
				middleware.NewErrorResponder(c, logger.Logger).RespondInternalError(err)
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"orderId": cmd.OrderID, "enqueued": true})
			return
		}

		result, err := service.AllocateOrder(c.Request.Context(), cmd)
		if err != nil {
			respondDomainError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func allocateBatchHandler(service *application.AllocationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cmd application.AllocateOrdersCommand
		if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondWithAppError(appErr)
			return
		}
		cmd.ActorID = middleware.GetActorID(c)

		result, err := service.AllocateOrders(c.Request.Context(), cmd)
		if err != nil {
			respondDomainError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func releaseAllocationsHandler(service *application.AllocationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Reason string `json:"reason"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				middleware.NewErrorResponder(c, logger.Logger).RespondBadRequest(err.Error())
				return
			}
		}

		cmd := application.ReleaseAllocationsCommand{
			OrderID: c.Param("orderId"),
			Reason:  req.Reason,
			ActorID: middleware.GetActorID(c),
		}
		if appErr := middleware.ValidateStruct(&cmd); appErr != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondWithAppError(appErr)
			return
		}

		result, err := service.ReleaseAllocations(c.Request.Context(), cmd)
		if err != nil {
			respondDomainError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func recheckBackordersHandler(service *application.AllocationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cmd := application.CheckBackordersCommand{
			SKU:     c.Param("sku"),
			ActorID: middleware.GetActorID(c),
		}
		if appErr := middleware.ValidateStruct(&cmd); appErr != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondWithAppError(appErr)
			return
		}

		result, err := service.CheckBackorderedOrders(c.Request.Context(), cmd)
		if err != nil {
			respondDomainError(c, logger, err)
			return
		}
		c.JSON(http.StatusAccepted, result)
	}
}

func getFulfillmentStatusHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := application.GetFulfillmentStatusQuery{OrderID: c.Param("orderId")}

		status, err := service.GetFulfillmentStatus(c.Request.Context(), query)
		if err != nil {
			respondDomainError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

func getEventsHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := application.GetEventsSinceQuery{
			OrderID:      c.Param("orderId"),
			SinceEventID: c.Query("since"),
		}

		events, err := service.GetEventsSince(c.Request.Context(), query)
		if err != nil {
			respondDomainError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"orderId": query.OrderID, "events": events})
	}
}

func generatePickListHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cmd := application.GeneratePickListCommand{
			OrderID: c.Param("orderId"),
			ActorID: middleware.GetActorID(c),
		}
		if appErr := middleware.ValidateStruct(&cmd); appErr != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondWithAppError(appErr)
			return
		}

		task, err := service.GeneratePickList(c.Request.Context(), cmd)
		if err != nil {
			respondDomainError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, task)
	}
}

func confirmPickItemHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Quantity    *int   `json:"quantity"`
			ShortReason string `json:"shortReason"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				middleware.NewErrorResponder(c, logger.Logger).RespondBadRequest(err.Error())
				return
			}
		}

		cmd := application.ConfirmPickItemCommand{
			TaskItemID:  c.Param("itemId"),
			Quantity:    req.Quantity,
			ShortReason: req.ShortReason,
			ActorID:     middleware.GetActorID(c),
		}

		result, err := service.ConfirmPickItem(c.Request.Context(), cmd)
		if err != nil {
			respondDomainError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func generatePackListHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cmd := application.GeneratePackListCommand{
			OrderID: c.Param("orderId"),
			ActorID: middleware.GetActorID(c),
		}
		if appErr := middleware.ValidateStruct(&cmd); appErr != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondWithAppError(appErr)
			return
		}

		task, err := service.GeneratePackList(c.Request.Context(), cmd)
		if err != nil {
			respondDomainError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, task)
	}
}

func verifyPackItemHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cmd := application.VerifyPackItemCommand{
			TaskItemID: c.Param("itemId"),
			ActorID:    middleware.GetActorID(c),
		}

		task, err := service.VerifyPackItem(c.Request.Context(), cmd)
		if err != nil {
			respondDomainError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

func createPickBinHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Barcode string `json:"barcode"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				middleware.NewErrorResponder(c, logger.Logger).RespondBadRequest(err.Error())
				return
			}
		}

		cmd := application.CreatePickBinCommand{
			OrderID: c.Param("orderId"),
			Barcode: req.Barcode,
			ActorID: middleware.GetActorID(c),
		}
		if appErr := middleware.ValidateStruct(&cmd); appErr != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondWithAppError(appErr)
			return
		}

		bin, err := service.CreatePickBin(c.Request.Context(), cmd)
		if err != nil {
			respondDomainError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, bin)
	}
}

func verifyBinItemHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Barcode string `json:"barcode" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondBadRequest(err.Error())
			return
		}

		cmd := application.VerifyBinItemCommand{
			BinID:   c.Param("binId"),
			Barcode: req.Barcode,
			ActorID: middleware.GetActorID(c),
		}

		result, err := service.VerifyBinItem(c.Request.Context(), cmd)
		if err != nil {
			respondDomainError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func completePackingHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cmd, ok := bindCompletePacking(c, logger)
		if !ok {
			return
		}
		cmd.TaskID = c.Param("taskId")

		task, err := service.CompletePacking(c.Request.Context(), cmd)
		if err != nil {
			respondDomainError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

func completeBinPackingHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cmd, ok := bindCompletePacking(c, logger)
		if !ok {
			return
		}
		cmd.BinID = c.Param("binId")

		task, err := service.CompletePacking(c.Request.Context(), cmd)
		if err != nil {
			respondDomainError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

func bindCompletePacking(c *gin.Context, logger *logging.Logger) (application.CompletePackingCommand, bool) {
	var req struct {
		Weight     float64            `json:"weight" binding:"required,gt=0"`
		WeightUnit string             `json:"weightUnit"`
		Dimensions *domain.Dimensions `json:"dimensions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.NewErrorResponder(c, logger.Logger).RespondBadRequest(err.Error())
		return application.CompletePackingCommand{}, false
	}
	if req.WeightUnit == "" {
		req.WeightUnit = "kg"
	}

	return application.CompletePackingCommand{
		Weight:     req.Weight,
		WeightUnit: req.WeightUnit,
		Dimensions: req.Dimensions,
		ActorID:    middleware.GetActorID(c),
	}, true
}

func markShippedHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Carrier      string `json:"carrier" binding:"required"`
			TrackingCode string `json:"trackingCode" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondBadRequest(err.Error())
			return
		}

		cmd := application.MarkShippedCommand{
			OrderID:      c.Param("orderId"),
			Carrier:      req.Carrier,
			TrackingCode: req.TrackingCode,
			ActorID:      middleware.GetActorID(c),
		}
		if appErr := middleware.ValidateStruct(&cmd); appErr != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondWithAppError(appErr)
			return
		}

		order, err := service.MarkShipped(c.Request.Context(), cmd)
		if err != nil {
			respondDomainError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}
