package app

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/mollybeach/secure-user-api/internal/auth/credentials"
	"github.com/mollybeach/secure-user-api/internal/auth/handler"
	"github.com/mollybeach/secure-user-api/internal/auth/linker"
	"github.com/mollybeach/secure-user-api/internal/auth/provider"
	"github.com/mollybeach/secure-user-api/internal/auth/provider/github"
	"github.com/mollybeach/secure-user-api/internal/auth/provider/google"
	"github.com/mollybeach/secure-user-api/internal/auth/token"
	"github.com/mollybeach/secure-user-api/internal/config"
	"github.com/mollybeach/secure-user-api/internal/logger"
	"github.com/mollybeach/secure-user-api/internal/middleware"
	"github.com/mollybeach/secure-user-api/internal/user"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	store := user.NewPostgresStore(infra.DB)

	hasher, err := credentials.NewHasher(cfg.BcryptCost)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := token.NewService([]byte(cfg.JWTSecret))
	if err != nil {
		return nil, nil, err
	}

	var denylist *token.Denylist
	if infra.Redis != nil {
		denylist = token.NewDenylist(infra.Redis.Client)
	}

	creds, err := credentials.NewService(store, hasher, tokens, cfg.TokenTTL)
	if err != nil {
		return nil, nil, err
	}

	identityLinker := linker.New(store)

	providers, err := setupProviders(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	authHandler := handler.NewHandler(
		providers,
		creds,
		identityLinker,
		tokens,
		denylist,
		cfg.TokenTTL,
	)

	gate := middleware.NewAuthGate(tokens, store, denylist)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())

	// ----------------------------
	// Public routes
	// ----------------------------

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Protected routes
	// ----------------------------

	api := router.Group("/api/users")
	api.Use(middleware.GinRequireAuth(gate))

	api.GET("/profile", authHandler.Profile)

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, func() error {
		if infra.Redis != nil {
			_ = infra.Redis.Close()
		}
		return infra.DB.Close()
	}, nil
}

func setupProviders(ctx context.Context, cfg config.Config) (*provider.Registry, error) {
	var list []provider.OAuthProvider

	if cfg.GithubEnabled() {
		githubProvider, err := github.New(
			cfg.GithubClientID,
			cfg.GithubClientSecret,
			cfg.GithubRedirectURL,
			cfg.ProviderTimeout,
		)
		if err != nil {
			return nil, err
		}
		list = append(list, githubProvider)
	}

	if cfg.GoogleEnabled() {
		googleProvider, err := google.New(
			ctx,
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL,
		)
		if err != nil {
			return nil, err
		}
		list = append(list, googleProvider)
	}

	if len(list) == 0 {
		logger.Warn("no oauth providers configured, federated login disabled", nil)
	}

	return provider.NewRegistry(list...), nil
}
