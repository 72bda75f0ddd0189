// Package app assembles the registries, stores and HTTP routes into one
// process-wide object.
package app

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"phonestorage/internal/config"
	"phonestorage/internal/database"
	"phonestorage/internal/domain/events"
	"phonestorage/internal/domain/pairing"
	"phonestorage/internal/domain/permission"
	"phonestorage/internal/domain/qrcode"
	"phonestorage/internal/domain/session"
	"phonestorage/internal/domain/upload"
	"phonestorage/internal/metrics"
	"phonestorage/internal/middleware"
	"phonestorage/internal/pkg/clock"
	"phonestorage/internal/pkg/jwt"
	"phonestorage/internal/pkg/qr"
	"phonestorage/internal/pkg/response"
)

type App struct {
	Config   *config.Config
	Log      zerolog.Logger
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	Hub      *events.Hub
	QR       *qr.Renderer
	Uploads  *upload.Store
	Pairings *pairing.Registry
	Sessions *session.Registry
	Router   *gin.Engine

	closers []func() error
}

// New builds the registries and stores from cfg and loads the pairing
// snapshot. A snapshot that cannot be read leaves the registry empty.
func New(cfg *config.Config, log zerolog.Logger, clk clock.Clock) (*App, error) {
	if clk == nil {
		clk = clock.Real()
	}
	a := &App{
		Config:  cfg,
		Log:     log,
		Clock:   clk,
		Metrics: metrics.New(),
		Hub:     events.NewHub(clk, append(middleware.DevOrigins(), cfg.CORSAllowedOrigins...), log),
		QR:      qr.NewRenderer(),
	}

	uploads, err := upload.NewStore(cfg.UploadDir, cfg.MaxUploadSize, clk, log)
	if err != nil {
		return nil, err
	}
	a.Uploads = uploads

	store, err := a.pairingStore()
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Pairings = pairing.NewRegistry(store, uploads, clk, pairing.Policy{
		QRTTL:        cfg.QRTTL,
		PairingTTL:   cfg.PairingTTL,
		ActiveWindow: cfg.ActiveWindow,
	}, a.Metrics, log)
	// a failed load is logged by the registry; start empty
	_ = a.Pairings.Load()

	a.Sessions = session.New(uploads, clk, log)
	primary := a.Sessions.Create()
	log.Info().
		Str("session_url", fmt.Sprintf("%s/session/%s", a.BaseURL(), primary.Token)).
		Msg("primary session ready")

	a.Router = a.routes()
	return a, nil
}

// pairingStore picks the JSON file unless a database DSN is configured.
func (a *App) pairingStore() (pairing.Store, error) {
	dsn := a.Config.PairingStoreDSN
	if dsn == "" {
		fs := pairing.NewFileStore(a.Config.PairingFile)
		a.Log.Info().Str("path", fs.Path()).Msg("pairing snapshot: json file")
		return fs, nil
	}

	db, err := database.Connect(dsn, a.Log)
	if err != nil {
		return nil, fmt.Errorf("connect pairing store: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	store, err := pairing.NewSQLStore(db)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (a *App) routes() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorLogger(a.Log))
	if a.Config.AccessLog {
		r.Use(middleware.AccessLog(a.Log))
	}
	r.Use(middleware.CORS(a.Config.CORSAllowedOrigins))

	tickets := jwt.New(a.Config.TicketSecret).WithNow(a.Clock.Now)
	host := pairing.HostInfo{IP: a.Config.PublicHost, Port: a.Config.PublicPort}

	pairing.RegisterRoutes(r, pairing.NewHandler(a.Pairings, tickets, a.QR, host, a.Hub, a.Log))
	upload.RegisterRoutes(r, upload.NewHandler(a.Uploads, a.Sessions, a.Pairings, a.Hub, a.Metrics, a.Log))
	session.RegisterRoutes(r, session.NewHandler(a.Sessions, a.Uploads, a.Hub, a.Log))
	permission.RegisterRoutes(r, permission.NewHandler())
	qrcode.RegisterRoutes(r, qrcode.NewHandler(a.QR, a.Log))
	events.RegisterRoutes(r, a.Hub)

	r.GET("/metrics", gin.WrapH(a.Metrics.Handler()))
	r.GET("/healthz", a.health)

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "route not found")
	})
	return r
}

func (a *App) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"devices":     a.Pairings.Len(),
		"subscribers": a.Hub.Subscribers(),
		"qr_cached":   a.QR.Cached(),
	})
}

// BaseURL is the address phones use to reach this server.
func (a *App) BaseURL() string {
	scheme := "http"
	if a.Config.TLSEnabled() {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(a.Config.PublicHost, strconv.Itoa(a.Config.PublicPort)))
}

// Close releases the database handle, if any.
func (a *App) Close() error {
	var errs []error
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
