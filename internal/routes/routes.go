package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/auth"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/config"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/directory"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/infra"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/messages"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/middleware"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/notification"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/otp"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/pairing"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/session"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

type stores struct {
	tx       infra.Transactor
	users    directory.Repository
	codes    otp.Repository
	chats    pairing.Repository
	messages messages.Repository
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDevelopment() && d.DB == nil {
		return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}, ","),
		AllowHeaders: "Content-Type, Authorization, Idempotency-Key, X-Request-ID",
	}))
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	st := newStores(d.DB)
	notifier, err := newNotifier(d)
	if err != nil {
		return err
	}

	users := directory.NewService(st.users)
	codes := otp.NewService(st.codes, users, st.tx, notifier, d.Logger, otp.Config{
		TTL:             d.Cfg.OTPTTL,
		DeliveryTimeout: d.Cfg.SMS.Timeout,
		ExposeCode:      !d.Cfg.DeliveryConfigured(),
		DigestKey:       d.Cfg.JWTSecret,
	})
	issuer := session.NewIssuer(d.Cfg.JWTSecret, d.Cfg.SessionTTL)
	pairs := pairing.NewService(st.chats, users, st.tx)
	msgs := messages.NewService(st.messages, pairs, users, st.tx)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterAuthRoutes(api, auth.NewHandler(auth.NewService(codes, issuer)))

	// Protected routes
	guard := []fiber.Handler{middleware.Session(issuer)}
	if d.Cache != nil {
		guard = append(guard, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterChatRoutes(api, guard, directory.NewHandler(users), pairing.NewHandler(pairs), messages.NewHandler(msgs))

	return nil
}

func newStores(db *pgxpool.Pool) stores {
	if db != nil {
		return stores{
			tx:       infra.NewPostgresTransactor(db),
			users:    directory.NewPostgresRepository(db),
			codes:    otp.NewPostgresRepository(db),
			chats:    pairing.NewPostgresRepository(db),
			messages: messages.NewPostgresRepository(db),
		}
	}
	users := directory.NewMemoryRepository()
	return stores{
		tx:       infra.NoopTransactor{},
		users:    users,
		codes:    otp.NewMemoryRepository(),
		chats:    pairing.NewMemoryRepository(users),
		messages: messages.NewMemoryRepository(users),
	}
}

func newNotifier(d Deps) (notification.Notifier, error) {
	if !d.Cfg.DeliveryConfigured() {
		return notification.NewLoggerNotifier(d.Logger), nil
	}
	n, err := notification.NewSMSCNotifier(d.Cfg.SMS.Endpoint, d.Cfg.SMS.APIKey, d.Cfg.SMS.Sender, d.Cfg.SMS.Timeout)
	if err != nil {
		return nil, fmt.Errorf("configure sms delivery: %w", err)
	}
	return n, nil
}
