// Package main provides the entry point for carfd, the control plane's
// HTTP+SSE server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eunhhu/carf-sub000/internal/backend"
	"github.com/eunhhu/carf-sub000/internal/config"
	"github.com/eunhhu/carf-sub000/internal/consolelog"
	"github.com/eunhhu/carf-sub000/internal/library"
	"github.com/eunhhu/carf-sub000/internal/logging"
	"github.com/eunhhu/carf-sub000/internal/server"
	"github.com/eunhhu/carf-sub000/internal/storage"
)

var (
	port      = flag.Int("port", 8080, "Server port")
	directory = flag.String("directory", "", "Working directory")
	useSim    = flag.Bool("sim", false, "Drive the in-process fixture agent instead of a real backend")
	version   = flag.Bool("version", false, "Print version and exit")
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("carfd %s (%s)\n", Version, BuildTime)
		os.Exit(0)
	}

	workDir := *directory
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to get working directory")
		}
	}

	logging.Info().Str("version", Version).Str("directory", workDir).Msg("starting carfd")

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		logging.Fatal().Err(err).Msg("failed to create data directories")
	}

	appConfig, err := config.Load(workDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	store := storage.New(paths.Data)

	ctx := context.Background()
	libStore, err := library.New(ctx, store)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load library document")
	}

	cancelWatch, err := libStore.WatchFile(ctx, paths.Data)
	if err != nil {
		logging.Warn().Err(err).Msg("library file watch disabled")
	}

	logStore := consolelog.New()
	logStore.StartEventListener()

	var facade backend.Facade
	if *useSim {
		facade = backend.NewSimFacade(nil, 0)
	} else {
		facade = backend.NewNullFacade()
	}

	httpConfig := server.DefaultHTTPConfig()
	httpConfig.Port = *port

	srv := server.New(httpConfig, appConfig, store, facade, libStore, logStore)

	go func() {
		logging.Info().Int("port", *port).Msg("server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down server")

	if cancelWatch != nil {
		cancelWatch()
	}
	logStore.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown error")
	}

	logging.Info().Msg("server stopped")
}
