package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"strings"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/irfandhmahudi/backend-mern/internal/api"
	"github.com/irfandhmahudi/backend-mern/internal/config"
	"github.com/irfandhmahudi/backend-mern/internal/events"
	"github.com/irfandhmahudi/backend-mern/internal/jwt"
	"github.com/irfandhmahudi/backend-mern/internal/repository"
	"github.com/irfandhmahudi/backend-mern/internal/service"
	"github.com/irfandhmahudi/backend-mern/internal/storage"
	"github.com/irfandhmahudi/backend-mern/internal/tracing"
	_ "github.com/irfandhmahudi/backend-mern/migrations"
)

func main() {
	if err := godotenv.Load(".env.dev"); err != nil {
		log.Println("No .env.dev file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	api.SetupGlobalHandler("api-server")

	shutdownTracer, err := tracing.InitTracerProvider("api-server", cfg.OtelEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		}
	}()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		handleMigrations(cfg)
		return
	}

	db := connectDB(cfg)
	defer db.Close()

	mailer, err := events.NewNatsPublisher(cfg.NatsURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer mailer.Close()
	log.Println("Successfully connected to NATS.")

	store, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	issuer := jwt.NewIssuer(cfg.JWTSecret, cfg.IsProduction())

	userRepo := repository.NewPostgresUserRepository(db)
	productRepo := repository.NewPostgresProductRepository(db)

	accountService := service.NewAccountService(userRepo, issuer, mailer, store, cfg.FrontendURL)
	productService := service.NewProductService(productRepo, store)

	accountHandler := api.NewAccountHandler(accountService, issuer)
	productHandler := api.NewProductHandler(productService)

	app := fiber.New()
	app.Use(otelfiber.Middleware())
	app.Use(api.PrometheusMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowCredentials: true,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "api-server"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	authGate := api.AuthMiddleware(issuer, userRepo)

	userRoutes := app.Group("/api/user")
	userRoutes.Post("/register", accountHandler.Register)
	userRoutes.Post("/login", accountHandler.Login)
	userRoutes.Get("/me", authGate, accountHandler.GetMe)
	userRoutes.Post("/logout", accountHandler.Logout)
	userRoutes.Post("/verify-otp", accountHandler.VerifyOtp)
	userRoutes.Post("/forgot-password", accountHandler.ForgotPassword)
	userRoutes.Put("/reset-password/:token", accountHandler.ResetPassword)
	userRoutes.Post("/me/avatar", authGate, accountHandler.UploadAvatar)

	productRoutes := app.Group("/api/product")
	productRoutes.Post("/", authGate, productHandler.Create)
	productRoutes.Get("/", productHandler.List)
	productRoutes.Get("/:id", productHandler.Get)
	productRoutes.Patch("/:id", authGate, productHandler.Update)
	productRoutes.Delete("/:id", authGate, productHandler.Delete)

	log.Printf("Listening on port %s", cfg.AppPort)
	log.Fatal(app.Listen(":" + cfg.AppPort))
}

func connectDB(cfg *config.Config) *sqlx.DB {
	db, err := sqlx.Connect("pgx", cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Successfully connected to the database.")
	return db
}

func handleMigrations(cfg *config.Config) {
	log.Println("Running database migrations...")

	db, err := sql.Open("pgx", cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("failed to connect to database for migration: %v", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("failed to set goose dialect: %v", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		log.Fatalf("goose: failed to run migrations: %v", err)
	}

	log.Println("Migrations applied successfully!")
}
