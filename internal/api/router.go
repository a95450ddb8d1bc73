package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/plot-booking-backend/internal/auth"
	"github.com/nekogravitycat/plot-booking-backend/internal/availability"
	availabilityHttp "github.com/nekogravitycat/plot-booking-backend/internal/availability/http"
	"github.com/nekogravitycat/plot-booking-backend/internal/completion"
	"github.com/nekogravitycat/plot-booking-backend/internal/file"
	fileHttp "github.com/nekogravitycat/plot-booking-backend/internal/file/http"
	"github.com/nekogravitycat/plot-booking-backend/internal/reservation"
	reservationHttp "github.com/nekogravitycat/plot-booking-backend/internal/reservation/http"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the services the router exposes.
type Config struct {
	IsProduction bool
	ProdOrigins  string

	JWTManager          *auth.JWTManager
	ReservationService  reservation.Service
	Gate                *completion.Gate
	FileService         file.Service
	AvailabilityService availability.Service
	MaxProofBytes       int64
	DB                  Pinger
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global Middleware:
	// - RequestLogger: Logs one structured line per request.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(RequestLogger(), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction {
		corsConfig.AllowOrigins = splitOrigins(cfg.ProdOrigins)
	} else {
		corsConfig.AllowOrigins = []string{
			"http://localhost:3000", // Web client
			"http://localhost:8081", // Swagger
		}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		if cfg.DB != nil {
			if err := cfg.DB.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	authHandler := NewAuthHandler()
	fileHandler := fileHttp.NewHandler(cfg.FileService)
	reservationHandler := reservationHttp.NewHandler(cfg.ReservationService, cfg.Gate, fileHandler, cfg.MaxProofBytes)
	availabilityHandler := availabilityHttp.NewHandler(cfg.AvailabilityService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		v1.GET("/auth/me", authMiddleware, authHandler.Me)
		availabilityHttp.RegisterRoutes(v1, availabilityHandler)
		reservationHttp.RegisterRoutes(v1, reservationHandler, authMiddleware)
		fileHttp.RegisterRoutes(v1, fileHandler, authMiddleware)
	}

	return r
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
