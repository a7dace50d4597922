package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsgo_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/redis/go-redis/v9"

	"github.com/idiarso/linux-park-sub001/internal/api"
	"github.com/idiarso/linux-park-sub001/internal/api/handler"
	"github.com/idiarso/linux-park-sub001/internal/api/middleware"
	"github.com/idiarso/linux-park-sub001/internal/config"
	"github.com/idiarso/linux-park-sub001/internal/domain"
	"github.com/idiarso/linux-park-sub001/internal/hardware"
	"github.com/idiarso/linux-park-sub001/internal/iot"
	"github.com/idiarso/linux-park-sub001/internal/repository/postgresql"
	"github.com/idiarso/linux-park-sub001/internal/service"
)

func main() {
	cfg := config.Load()
	log.Println("Configuration loaded.")

	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connection established.")

	awsSDKCfg, err := awsgo_config.LoadDefaultConfig(context.TODO(), awsgo_config.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("Could not load AWS SDK config: %v", err)
	}

	sqsClient := sqs.NewFromConfig(awsSDKCfg)
	iotDataPlaneClient := iotdataplane.NewFromConfig(awsSDKCfg, func(o *iotdataplane.Options) {
		if endpoint := cfg.IoTMQTTEndpoint; endpoint != "" {
			if !strings.HasPrefix(endpoint, "https://") && !strings.HasPrefix(endpoint, "http://") {
				endpoint = "https://" + endpoint
			}
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	rekognitionClient := rekognition.NewFromConfig(awsSDKCfg)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		log.Println("Redis schedule cache enabled at", cfg.RedisAddr)
	} else {
		log.Println("REDIS_ADDR not set; schedule cache disabled.")
	}

	userRepo := postgresql.NewPgUserRepository(db)
	sessionRepo := postgresql.NewPgParkingSessionRepository(db)
	spaceRepo := postgresql.NewPgParkingSpaceRepository(db)
	scheduleRepo := postgresql.NewPgRateScheduleRepository(db)
	eventLogRepo := postgresql.NewPgHardwareEventLogRepository(db)

	webSocketManager := handler.NewWebSocketManager()
	go webSocketManager.Start()

	publisher := hardware.NewIoTDataPublisher(iotDataPlaneClient, cfg.IoTTopicPrefix)
	coordinator := hardware.NewCoordinator(publisher, webSocketManager, hardware.Options{
		AckWindow:        cfg.AckWindow,
		CaptureTimeout:   cfg.CaptureTimeout,
		SlotWaitTimeout:  cfg.SlotWaitTimeout,
		RetryCount:       cfg.HardwareRetries,
		RetryBackoff:     cfg.RetryBackoff,
		FailureThreshold: cfg.FailureThreshold,
		VerifyPollDelay:  cfg.VerifyPollDelay,
	})
	coordinator.Register(cfg.EntryCameraID, domain.FacilityImaging, "")
	coordinator.Register(cfg.EntryPrinterID, domain.FacilityPrinter, "")
	coordinator.Register("barrier-entry", domain.FacilityBarrier, cfg.EntryGateID)
	coordinator.Register("barrier-exit", domain.FacilityBarrier, cfg.ExitGateID)

	authService := service.NewAuthService(userRepo, cfg)
	scheduleService := service.NewRateScheduleService(scheduleRepo, redisClient)
	sessionService := service.NewSessionService(sessionRepo, spaceRepo, scheduleService, coordinator, webSocketManager, cfg)
	spaceService := service.NewParkingSpaceService(spaceRepo)
	lprService := service.NewLPRService(rekognitionClient)

	authMiddleware := middleware.NewAuthMiddleware(authService)

	var wg sync.WaitGroup
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())

	if cfg.SQSEventQueueURL == "" {
		log.Println("WARNING: SQS_EVENT_QUEUE_URL not set; device event consumer will not run.")
	} else {
		router := iot.NewEventRouter(coordinator, eventLogRepo)
		sqsConsumer := iot.NewSQSConsumer(sqsClient, cfg, router)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sqsConsumer.Start(consumerCtx)
		}()
	}

	// Bring the lane hardware up before accepting traffic. A failed
	// facility stays failed; the ops endpoint re-initializes it later.
	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := coordinator.InitializeAll(initCtx); err != nil {
		log.Printf("WARNING: hardware init incomplete: %v", err)
	}
	cancelInit()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runStuckSessionSweep(consumerCtx, sessionService, cfg.SweepInterval)
	}()

	ginRouter := api.SetupRouter(authService, sessionService, spaceService, scheduleService, lprService, coordinator, authMiddleware, webSocketManager)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: ginRouter,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	cancelConsumer()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Forced shutdown: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()
	select {
	case <-done:
		log.Println("Background workers stopped.")
	case <-time.After(5 * time.Second):
		log.Println("Background workers did not stop in time.")
	}

	log.Println("Server stopped.")
}

// runStuckSessionSweep cancels sessions parked mid-transition for too long,
// releasing the spaces they held.
func runStuckSessionSweep(ctx context.Context, sessions *service.SessionService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			sessions.CancelExpired(sweepCtx)
			cancel()
		}
	}
}
