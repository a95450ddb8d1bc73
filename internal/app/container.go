package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/plot-booking-backend/internal/api"
	"github.com/nekogravitycat/plot-booking-backend/internal/auth"
	"github.com/nekogravitycat/plot-booking-backend/internal/availability"
	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
	"github.com/nekogravitycat/plot-booking-backend/internal/completion"
	"github.com/nekogravitycat/plot-booking-backend/internal/events"
	"github.com/nekogravitycat/plot-booking-backend/internal/expiry"
	"github.com/nekogravitycat/plot-booking-backend/internal/file"
	"github.com/nekogravitycat/plot-booking-backend/internal/notify"
	"github.com/nekogravitycat/plot-booking-backend/internal/pkg/storage"
	"github.com/nekogravitycat/plot-booking-backend/internal/reservation"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration

	Storage       storage.Storage
	MaxProofBytes int64

	// Notifier delivers confirmations; the Completion Gate fails when it fails.
	Notifier      notify.Notifier
	NotifyTimeout time.Duration

	// Cache is optional. When nil the read side always queries the catalogs.
	Cache    availability.Cache
	CacheTTL time.Duration

	// Broker receives every lifecycle event. Optional.
	Broker events.Publisher

	PendingTTL time.Duration
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router       *gin.Engine
	JWTManager   *auth.JWTManager
	Catalog      *catalog.Registry
	Reservations reservation.Service
	Availability availability.Service
	Sweeper      *expiry.Sweeper
	// Events delivers to slow subscribers in the background; Wait on shutdown.
	Events *events.Async
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	// Init Components
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	// Catalog Module
	registry := catalog.NewRegistry(
		catalog.NewLotRepository(cfg.DBPool),
		catalog.NewColumbariumRepository(cfg.DBPool),
		catalog.NewGridRepositories(cfg.DBPool),
	)

	// File Module
	fileRepo := file.NewRepository(cfg.DBPool)
	fileService := file.NewService(fileRepo, cfg.Storage)

	// Lifecycle events: cache invalidation inline, mail and broker in the background
	background := events.Multi{notify.NewLifecycleMailer(cfg.Notifier, cfg.NotifyTimeout)}
	if cfg.Broker != nil {
		background = append(background, cfg.Broker)
	}
	async := events.NewAsync(background)
	publishers := events.Multi{async}
	if cfg.Cache != nil {
		publishers = append(events.Multi{availability.NewInvalidator(cfg.Cache)}, publishers...)
	}

	// Reservation Module
	reservationRepo := reservation.NewPgxRepository(cfg.DBPool)
	reservationService := reservation.NewService(reservationRepo, registry, publishers)

	// Completion Gate
	gate := completion.NewGate(reservationService, reservationRepo, registry, fileService, cfg.Notifier, publishers, cfg.NotifyTimeout)

	// Availability Module
	availabilityService := availability.NewService(registry, reservationRepo, cfg.Cache, cfg.CacheTTL)

	// Pending expiry
	var sweeper *expiry.Sweeper
	if cfg.PendingTTL > 0 {
		sweeper = expiry.NewSweeper(reservationRepo, reservationService, cfg.PendingTTL)
	}

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:        cfg.IsProduction,
		ProdOrigins:         cfg.ProdOrigins,
		JWTManager:          jwtManager,
		ReservationService:  reservationService,
		Gate:                gate,
		FileService:         fileService,
		AvailabilityService: availabilityService,
		MaxProofBytes:       cfg.MaxProofBytes,
		DB:                  cfg.DBPool,
	})

	return &Container{
		Router:       router,
		JWTManager:   jwtManager,
		Catalog:      registry,
		Reservations: reservationService,
		Availability: availabilityService,
		Sweeper:      sweeper,
		Events:       async,
	}
}
