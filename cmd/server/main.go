package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/kmoroz/craft_shop/internal/cart"
	"github.com/kmoroz/craft_shop/internal/catalog"
	"github.com/kmoroz/craft_shop/internal/config"
	"github.com/kmoroz/craft_shop/internal/es"
	"github.com/kmoroz/craft_shop/internal/handlers"
	"github.com/kmoroz/craft_shop/internal/identity"
	"github.com/kmoroz/craft_shop/internal/logging"
	csrfmw "github.com/kmoroz/craft_shop/internal/middleware/csrf"
	loggingmw "github.com/kmoroz/craft_shop/internal/middleware/logging"
	"github.com/kmoroz/craft_shop/internal/mykafka"
	"github.com/kmoroz/craft_shop/internal/orders"
	httpserver "github.com/kmoroz/craft_shop/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	catalogStore := catalog.NewStore(configuration.CATALOG_PATH)
	cartStore := cart.NewStore(catalogStore)
	subscribers := &identity.Repo{DB: db}

	orderService := &orders.Service{
		DB:          db,
		Cart:        cartStore,
		Catalog:     catalogStore,
		Subscribers: subscribers,
	}

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	} else {
		logger.Warn("KAFKA_ADDRESS not set, events disabled")
	}

	jwtSecret := []byte(configuration.JWT_SECRET)

	deps := &httpserver.Deps{
		AuthHandler: &handlers.AuthHandler{
			Repo:      subscribers,
			Cart:      cartStore,
			JWTSecret: jwtSecret,
			Producer:  prod,
		},
		ProductHandler: &handlers.ProductHandler{
			Store:    catalogStore,
			Producer: prod,
			ESIndex:  "product",
		},
		CartHandler: &handlers.CartHandler{
			Cart:     cartStore,
			Producer: prod,
		},
		OrderHandler: &handlers.OrderHandler{
			Svc:         orderService,
			Subscribers: subscribers,
			Catalog:     catalogStore,
			Producer:    prod,
		},
		JWTSecret: jwtSecret,
	}

	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		deps.ProductHandler.ES = esClient
		deps.SearchHandler = &handlers.SearchHandler{ES: esClient, Index: "product"}
	} else {
		logger.Warn("ES_URL not set, search disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.Middleware(logger))
	e.Use(csrfmw.Middleware(csrfmw.Config{
		Secure: true,
		SkipPaths: []string{
			"/health/live", "/health/ready",
			"/api/v1/register", "/api/v1/login",
		},
	}))

	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:         ":" + configuration.SERVER_PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if prod != nil {
		if err := prod.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}
