package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tarot-miniapp-backend/handlers"
	"tarot-miniapp-backend/middleware"
	"tarot-miniapp-backend/models"
	"tarot-miniapp-backend/services"
	"tarot-miniapp-backend/utils"
	"tarot-miniapp-backend/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	// TranslateError turns unique-constraint violations into
	// gorm.ErrDuplicatedKey, which the ref code allocator retries on
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.UserXP{},
		&models.UserTask{},
		&models.PromoCode{},
		&models.UserPromocode{},
		&models.Referral{},
		&models.MessagePurchase{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	promoService := services.NewPromoPoolService(db)
	taskService := services.NewTaskService(db, promoService)
	balanceService := services.NewBalanceService(db)
	referralService := services.NewReferralService(db, taskService, os.Getenv("BOT_USERNAME"))
	purchaseService := services.NewPurchaseService(db, taskService)
	userService := services.NewUserService(db)

	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("TASKS_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("TASKS_SERVICE_TOKEN environment variable not set")
	}
	authClient := services.NewAuthServiceClient(authServiceURL, serviceToken)

	botServiceURL := os.Getenv("BOT_SERVICE_URL")
	if botServiceURL == "" {
		log.Fatal("BOT_SERVICE_URL environment variable not set")
	}
	botClient := services.NewBotServiceClient(botServiceURL, serviceToken)
	activityService := services.NewActivityService(taskService, botClient)
	userSyncWorker := workers.NewBotUserSyncWorker(db, botServiceURL, "/api/v1/public/users", serviceToken)

	paymentSyncClient := workers.NewPaymentSyncClient(purchaseService)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go workers.PollPayments(ctx, paymentSyncClient, 10*time.Second)

	go func() {
		log.Println("Starting Bot User Sync Worker...")
		userSyncWorker.Start(ctx)
	}()

	services.StartMaintenanceScheduler(purchaseService, promoService)

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupTaskRoutes(app, taskService)
	handlers.SetupProfileRoutes(app, taskService, balanceService, activityService)
	handlers.SetupActivityRoutes(app, activityService)
	handlers.SetupPromoRoutes(app, promoService, authClient)
	handlers.SetupReferralRoutes(app, referralService)
	handlers.SetupPurchaseRoutes(app, purchaseService)
	handlers.SetupAdminRoutes(app, taskService, balanceService, promoService, userService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Bot User Sync Worker running")
	log.Println("✅ Payment polling running (every 10s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
