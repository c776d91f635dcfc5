package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/membertown/mt-allocation/config"
	adminapp_allocation "github.com/membertown/mt-allocation/internal/module/adminapp/allocation"
	memberapp_allocation "github.com/membertown/mt-allocation/internal/module/memberapp/allocation"
	"github.com/membertown/mt-allocation/internal/module/memberapp/booking"
	"github.com/membertown/mt-allocation/internal/module/memberapp/cancellation"
	"github.com/membertown/mt-allocation/internal/module/memberapp/lottery"
	"github.com/membertown/mt-allocation/internal/module/memberapp/payment"
	"github.com/membertown/mt-allocation/internal/module/memberapp/pool"
	"github.com/membertown/mt-allocation/internal/pkg/counter"
	"github.com/membertown/mt-allocation/internal/pkg/jwt"
	internalMiddleare "github.com/membertown/mt-allocation/internal/pkg/middleware"
	"github.com/membertown/mt-allocation/internal/pkg/session"
	"github.com/membertown/mt-allocation/pkg/applogger"
	"github.com/membertown/mt-allocation/pkg/gctasks"
	"github.com/membertown/mt-allocation/pkg/kafka"
	"github.com/membertown/mt-allocation/pkg/middleware"
	"github.com/membertown/mt-allocation/pkg/monitoring"
	"github.com/membertown/mt-allocation/pkg/postgresql"
	"github.com/membertown/mt-allocation/pkg/pubsub"
	"github.com/membertown/mt-allocation/pkg/redis"
	"github.com/membertown/mt-allocation/pkg/server"
	"github.com/membertown/mt-allocation/pkg/validator"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

var c *config.Config

func init() {
	c = config.Get()
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := applogger.GetLogrus()

	mon := monitoring.NewOpenTelemetry(
		c.Application.Name,
		c.Application.Environment,
		c.GCP.ProjectID,
	)

	mon.Start(ctx)

	validate := validator.Get()

	hc := http.DefaultClient

	jsonWebToken := jwt.NewJSONWebToken(c.JWT.PrivateKey, c.JWT.PublicKey)

	psqldb := postgresql.GetDatabase()
	if err := psqldb.Ping(); err != nil {
		logger.WithContext(ctx).WithError(err).Error()
	}

	publisher := pubsub.PublisherFromConfluentKafkaProducer(logger, kafka.NewProducer())

	rc := redis.GetClient()
	if err := rc.Ping(context.Background()).Err(); err != nil {
		logger.WithContext(ctx).WithError(err).Error()
	}

	cloudTask := gctasks.NewGCTasks(logger, c.GCP.ProjectID, c.GCP.TasksLocation, c.GCP.ServiceAccount)

	sessionStore := session.NewRedisSessionStore(logger, rc)

	memberSessionMiddleware := internalMiddleare.NewMemberSessionMiddleware(jsonWebToken, sessionStore)
	adminSessionMiddleware := internalMiddleare.NewAdminSessionMiddleware(jsonWebToken, sessionStore)

	router := mux.NewRouter()
	router.Use(
		otelmux.Middleware(c.Application.Name),
		middleware.HTTPResponseTraceInjection,
		middleware.NewHTTPRequestLogger(logger, c.Application.Debug, http.StatusInternalServerError).Middleware,
	)

	poolRepo := pool.NewPoolRepository(logger, psqldb)
	policyTierRepo := pool.NewPolicyTierRepository(logger, psqldb)
	settingRepo := pool.NewSettingRepository(logger, psqldb)
	allocationRepo := memberapp_allocation.NewAllocationRepository(logger, psqldb)
	paymentRepo := payment.NewPaymentRepository(logger, psqldb)
	providerRepo := payment.NewProviderRepository(c.PaymentProvider.BaseURL, c.PaymentProvider.BasicAuthKey, logger, hc)
	prizeUnitRepo := lottery.NewPrizeUnitRepository(logger, psqldb)
	admissionCounter := counter.NewRedisCounter(logger, rc)

	// member's app
	lotteryUseCase := lottery.NewLotteryUseCase(lottery.LotteryUseCaseProperty{
		Logger:               logger,
		Timeout:              c.Application.Timeout,
		PoolRepository:       poolRepo,
		PrizeUnitRepository:  prizeUnitRepo,
		AllocationRepository: allocationRepo,
		Publisher:            publisher,
	})
	lottery.InitHTTPHandler(router, memberSessionMiddleware, validate, lotteryUseCase)

	bookingUseCase := booking.NewBookingUseCase(booking.BookingUseCaseProperty{
		Logger:               logger,
		Timeout:              c.Application.Timeout,
		DeadlineOffset:       c.Allocation.RegistrationDeadlineOffset,
		PoolRepository:       poolRepo,
		AllocationRepository: allocationRepo,
		PaymentRepository:    paymentRepo,
		AdmissionCounter:     admissionCounter,
		Publisher:            publisher,
	})
	booking.InitHTTPHandler(router, memberSessionMiddleware, validate, bookingUseCase)

	cancellationUseCase := cancellation.NewCancellationUseCase(cancellation.CancellationUseCaseProperty{
		Logger:               logger,
		Timeout:              c.Application.Timeout,
		BaseURL:              c.Application.BaseURL,
		RefundRetryDelay:     c.Allocation.RefundRetryDelay,
		PoolRepository:       poolRepo,
		PolicyTierRepository: policyTierRepo,
		SettingRepository:    settingRepo,
		AllocationRepository: allocationRepo,
		PaymentRepository:    paymentRepo,
		ProviderRepository:   providerRepo,
		PrizeUnitRepository:  prizeUnitRepo,
		AdmissionCounter:     admissionCounter,
		Publisher:            publisher,
		TasksClient:          cloudTask,
	})
	cancellation.InitHTTPHandler(router, memberSessionMiddleware, validate, cancellationUseCase)

	// admin's app
	adminapp_allocation.InitHTTPHandler(router, adminSessionMiddleware, validate, bookingUseCase, cancellationUseCase)

	handler := middleware.SetChain(
		router,
		cors.New(cors.Options{
			AllowedOrigins:   c.CORS.AllowedOrigins,
			AllowedMethods:   c.CORS.AllowedMethods,
			AllowedHeaders:   c.CORS.AllowedHeaders,
			ExposedHeaders:   c.CORS.ExposedHeaders,
			MaxAge:           c.CORS.MaxAge,
			AllowCredentials: c.CORS.AllowCredentials,
		}).Handler,
	)

	srv := &server.Server{
		Server: http.Server{
			Addr:    fmt.Sprintf(":%d", c.Application.Port),
			Handler: handler,
		},
		Logger: logger,
	}

	go func() {
		srv.ListenAndServe()
	}()

	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, syscall.SIGINT, syscall.SIGTERM)
	<-sigterm

	srv.Shutdown(ctx)
	publisher.Close()
	cloudTask.Close()
	psqldb.Close()
	rc.Close()
	mon.Stop(ctx)
}
