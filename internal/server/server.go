package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/eunhhu/carf-sub000/internal/action"
	"github.com/eunhhu/carf-sub000/internal/backend"
	"github.com/eunhhu/carf-sub000/internal/broker"
	"github.com/eunhhu/carf-sub000/internal/config"
	"github.com/eunhhu/carf-sub000/internal/consolelog"
	"github.com/eunhhu/carf-sub000/internal/library"
	"github.com/eunhhu/carf-sub000/internal/lifecycle"
	"github.com/eunhhu/carf-sub000/internal/logging"
	"github.com/eunhhu/carf-sub000/internal/menu"
	"github.com/eunhhu/carf-sub000/internal/storage"
)

// HTTPConfig holds HTTP-transport-level server configuration.
type HTTPConfig struct {
	Port         int
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultHTTPConfig returns default transport configuration.
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		Port:         8080,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // no write timeout, the event stream is long-lived
	}
}

// Server is the HTTP server fronting the control plane.
type Server struct {
	httpConfig *HTTPConfig
	appConfig  *config.Config
	router     *chi.Mux
	httpSrv    *http.Server

	storage *storage.Storage
	facade  backend.Facade
	broker  *broker.Broker
	owner   *lifecycle.Owner
	library *library.Store
	console *consolelog.Store
	actions *action.Router

	layoutMu   sync.Mutex
	layout     *menu.Layout
	layoutPath string
}

// New creates a Server wired to the given facade and stores. The broker
// and lifecycle owner are constructed here since the server is the one
// place that needs to hold them both.
func New(httpCfg *HTTPConfig, appCfg *config.Config, store *storage.Storage, facade backend.Facade, libStore *library.Store, logStore *consolelog.Store) *Server {
	r := chi.NewRouter()

	b := broker.New(backend.Poster{Facade: facade}, appCfg.RequestTimeout())
	owner := lifecycle.New(facade, b)
	actions := action.New(nil)

	layoutPath := appCfg.LayoutPath
	if layoutPath == "" {
		layoutPath = config.GetPaths().LayoutPath()
	}
	layout, err := menu.LoadLayout(layoutPath)
	if err != nil {
		logging.Warn().Err(err).Str("path", layoutPath).Msg("failed to load panel layout, starting empty")
		layout = menu.NewLayout()
	}

	s := &Server{
		httpConfig: httpCfg,
		appConfig:  appCfg,
		router:     r,
		storage:    store,
		facade:     facade,
		broker:     b,
		owner:      owner,
		library:    libStore,
		console:    logStore,
		actions:    actions,
		layout:     layout,
		layoutPath: layoutPath,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.httpConfig.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.httpConfig.Port),
		Handler:      s.router,
		ReadTimeout:  s.httpConfig.ReadTimeout,
		WriteTimeout: s.httpConfig.WriteTimeout,
	}

	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server, then detaches any active
// session so the broker and lifecycle owner leave no goroutines running.
func (s *Server) Shutdown(ctx context.Context) error {
	_ = s.owner.Detach(ctx)
	s.broker.Close()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
