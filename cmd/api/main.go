package main

import (
	"os"

	"freightops/internal/database"
	"freightops/internal/handler"
	"freightops/internal/middleware"
	"freightops/internal/repository"
	"freightops/internal/service"
	"freightops/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// @title           Freight Operations API
// @version         1.0
// @description     Trip lifecycle, payment workflow and ticketing for a road freight brokerage.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		logrus.Info("no configs/.env file found, relying on environment")
	}

	logrus.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(envOr("LOG_LEVEL", "info")); err == nil {
		logrus.SetLevel(lvl)
	}

	dsn := "postgres://" + envOr("DB_USER", "postgres") + ":" + envOr("DB_PASSWORD", "postgres") +
		"@" + envOr("DB_HOST", "localhost") + ":" + envOr("DB_PORT", "5432") +
		"/" + envOr("DB_NAME", "freightops") + "?sslmode=" + envOr("DB_SSLMODE", "disable")

	db, err := database.NewConnection(dsn)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	logrus.Info("connected to postgres")

	if err := database.SeedVehicleTypes(db); err != nil {
		logrus.WithError(err).Fatal("vehicle type seeding failed")
	}
	middleware.InitActorResolver(db)

	// Redis backs the loading-proof upload tokens. The API starts without it;
	// uploads fail with a dependency error until it is reachable.
	var rdb *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
	} else {
		logrus.Warn("REDIS_ADDR not set, loading-proof uploads disabled")
	}

	wsHub := websocket.NewHub()
	go wsHub.Run()

	baseURL := envOr("BASE_URL", "http://localhost:8080")

	// Dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	userService := service.NewUserService(userRepo, db)
	tripService := service.NewTripService(db, wsHub)
	paymentService := service.NewPaymentService(db, wsHub)
	ticketService := service.NewTicketService(db, wsHub)
	fleetService := service.NewFleetService(db)
	storageService := service.NewStorageService(db, rdb, wsHub, baseURL)
	auditService := service.NewAuditService(db)
	statsService := service.NewStatsService(db)

	userHandler := handler.NewUserHandler(userService)
	tripHandler := handler.NewTripHandler(tripService, storageService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	ticketHandler := handler.NewTicketHandler(ticketService)
	fleetHandler := handler.NewFleetHandler(fleetService)
	auditHandler := handler.NewAuditHandler(auditService)
	statsHandler := handler.NewStatsHandler(statsService)

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{envOr("FRONTEND_URL", "http://localhost:5173")}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	userHandler.RegisterRoutes(router.Group(""))
	tripHandler.RegisterRoutes(router.Group(""))
	paymentHandler.RegisterRoutes(router.Group(""))
	ticketHandler.RegisterRoutes(router.Group(""))
	fleetHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	statsHandler.RegisterRoutes(router.Group(""))

	port := envOr("PORT", "8080")
	logrus.WithField("port", port).Info("server listening")
	if err := router.Run(":" + port); err != nil {
		logrus.WithError(err).Fatal("server failed")
	}
}
