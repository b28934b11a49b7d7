package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"barista/internal/config"
	"barista/internal/domain"
	"barista/internal/infra/auth/oidc"
	"barista/internal/infra/auth/policyopa"
	"barista/internal/infra/auth/rbac"
	"barista/internal/infra/db"
	"barista/internal/infra/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Permission required per protected route.
const (
	permDrinksDetail = "get:drinks-detail"
	permCreateDrinks = "post:drinks"
	permPatchDrinks  = "patch:drinks"
	permDeleteDrinks = "delete:drinks"
)

type DrinkStore interface {
	Create(ctx context.Context, drink *domain.Drink) error
	List(ctx context.Context) ([]domain.Drink, error)
	GetByID(ctx context.Context, id int64) (*domain.Drink, error)
	Update(ctx context.Context, drink domain.Drink) error
	Delete(ctx context.Context, id int64) error
}

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	drinks DrinkStore

	authenticator domain.Authenticator
	authorizer    domain.Authorizer
	authInitErr   error

	rateLimiter       domain.RateLimiter
	rateLimitRequests int
	rateLimitWindow   time.Duration
}

func NewServer(cfg config.Config, store *db.Store) *Server {
	s := &Server{cfg: cfg, store: store, r: newEngine()}
	s.initDeps()
	s.routes()
	return s
}

type ServerDeps struct {
	Drinks        DrinkStore
	Authenticator domain.Authenticator
	Authorizer    domain.Authorizer
	RateLimiter   domain.RateLimiter
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	s := &Server{
		cfg:           cfg,
		r:             newEngine(),
		drinks:        deps.Drinks,
		authenticator: deps.Authenticator,
		authorizer:    deps.Authorizer,
	}
	s.initRateLimit(deps.RateLimiter)
	s.initAuth()
	s.routes()
	return s
}

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())
	r.HandleMethodNotAllowed = true
	return r
}

func (s *Server) initDeps() {
	var gdb *gorm.DB
	if s.store != nil {
		gdb = s.store.DB
	}
	s.drinks = db.NewDrinkRepository(gdb)
	s.initRateLimit(nil)
	s.initAuth()
}

func (s *Server) initAuth() {
	if s.cfg.AuthMode == "" {
		s.authInitErr = errors.New("AUTH_MODE is required")
		return
	}
	switch s.cfg.AuthMode {
	case "none":
		return
	case "oidc":
		if s.authenticator == nil {
			authenticator, err := oidc.NewAuthenticator(s.cfg)
			if err != nil {
				s.authInitErr = err
				return
			}
			s.authenticator = authenticator
		}
		if s.authorizer == nil {
			if s.cfg.PolicyBundlePath != "" {
				authorizer, err := policyopa.NewAuthorizerFromBundlePath(context.Background(), s.cfg.PolicyBundlePath)
				if err != nil {
					s.authInitErr = err
					return
				}
				s.authorizer = authorizer
			} else {
				s.authorizer = rbac.NewAuthorizer()
			}
		}
	default:
		s.authInitErr = errors.New("unsupported auth mode")
	}
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			if limiter, err := ratelimit.NewRedisLimiter(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, nil); err == nil {
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
				MaxKeys: s.cfg.RateLimitMaxKeys,
			})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	if s.cfg.RateLimitWindowSeconds > 0 {
		s.rateLimitWindow = time.Duration(s.cfg.RateLimitWindowSeconds) * time.Second
	}
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store != nil && s.store.DB != nil {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})

	s.r.GET("/drinks", s.handleListDrinks)
	s.r.GET("/drinks-detail", s.handleListDrinksDetail)
	s.r.POST("/drinks", s.handleCreateDrink)
	s.r.PATCH("/drinks/:id", s.handleEditDrink)
	s.r.DELETE("/drinks/:id", s.handleDeleteDrink)

	s.r.NoMethod(func(c *gin.Context) {
		writeStatus(c, http.StatusMethodNotAllowed, "method not allowed")
	})
	s.r.NoRoute(func(c *gin.Context) {
		writeStatus(c, http.StatusNotFound, "resource not found")
	})
}

func (s *Server) Run() error {
	if s.authInitErr != nil {
		return s.authInitErr
	}
	return s.r.Run(s.cfg.HTTPAddr)
}
