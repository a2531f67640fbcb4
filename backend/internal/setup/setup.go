package setup

import (
	"github.com/goteo-dev/goteo/backend/internal/handler"
	"github.com/goteo-dev/goteo/backend/internal/service"
	"github.com/goteo-dev/goteo/backend/internal/storage/pg"
	"github.com/goteo-dev/goteo/shared/config"
	"github.com/goteo-dev/goteo/shared/jwt"
	mw "github.com/goteo-dev/goteo/shared/middleware"
	"github.com/goteo-dev/goteo/shared/text"
)

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Config         *config.Config
	Storage        *pg.Storage
	Handler        *handler.Handler
	AuthMiddleware *mw.Auth
}

// SetupDependencies initializes all dependencies required for the application.
func SetupDependencies(cfg *config.Config) (*Dependencies, error) {
	storage, err := pg.New(cfg)
	if err != nil {
		return nil, err
	}

	matcher := service.NewMatcher(storage, &cfg.Public)
	message := service.NewMessage(storage, text.New(), &cfg.Public)

	h := handler.New(matcher, message, storage, cfg)
	// Tokens are issued by the main site; only verification happens here.
	jwtService := jwt.New(cfg.JwtKey(), 0)

	return &Dependencies{
		Config:         cfg,
		Storage:        storage,
		Handler:        h,
		AuthMiddleware: mw.NewAuth(jwtService),
	}, nil
}
