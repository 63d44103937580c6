package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/susu3304/bbbot/internal/config"
	"github.com/susu3304/bbbot/internal/game"
	"golang.org/x/oauth2"
)

type Games interface {
	Session(group string) (game.Snapshot, bool)
	Cancel(ctx context.Context, group string) bool
}

type Registry interface {
	IsAdmin(actor, group string) bool
	ApproveLocation(ctx context.Context, group, location string) error
	RegisterMember(ctx context.Context, group, actor, location string) error
	Locations(group string) []string
	Members(group, location string) []string
}

type API struct {
	router      *mux.Router
	games       Games
	registry    Registry
	config      *config.Config
	oauthConfig *oauth2.Config
	jwtSecret   []byte
	discordAPI  string
}

func New(cfg *config.Config, games Games, registry Registry) *API {
	api := &API{
		router:     mux.NewRouter(),
		games:      games,
		registry:   registry,
		config:     cfg,
		jwtSecret:  []byte(cfg.JWTSecret),
		discordAPI: "https://discord.com/api",
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	a.router.HandleFunc("/healthz", a.handleHealth).Methods("GET")

	// Auth endpoints
	a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("GET")
	a.router.HandleFunc("/api/auth/callback", a.handleCallback).Methods("GET")
	a.router.HandleFunc("/api/auth/logout", a.handleLogout).Methods("POST")

	// Public endpoints
	a.router.HandleFunc("/api/public/groups/{group_id}/game", a.handleGetGame).Methods("GET")
	a.router.HandleFunc("/api/public/groups/{group_id}/locations", a.handleListLocations).Methods("GET")
	a.router.HandleFunc("/api/public/groups/{group_id}/locations/{location}/members", a.handleListMembers).Methods("GET")

	// Protected endpoints. Tokens only come from the OAuth callback, so
	// without OAuth there is nothing to authenticate against.
	if !a.config.OAuthEnabled() {
		log.Warn().Str("module", "api").Msg("Discord OAuth not configured, admin endpoints disabled")
		return
	}
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/me", a.handleMe).Methods("GET")
	protected.HandleFunc("/groups/{group_id}/locations", a.handleApproveLocation).Methods("POST")
	protected.HandleFunc("/groups/{group_id}/members", a.handleRegisterMember).Methods("POST")
	protected.HandleFunc("/groups/{group_id}/game", a.handleCancelGame).Methods("DELETE")
}

// Handler returns the router wrapped with CORS.
func (a *API) Handler() http.Handler {
	// Note: When AllowedOrigins is "*", AllowCredentials must be false
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	return cors.New(corsOptions).Handler(a.router)
}

// Start serves until ctx is cancelled.
func (a *API) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.config.WebBind,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("module", "api").Str("addr", a.config.WebBind).Msg("API server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
