package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	api "github.com/oshokin/noise-monitor/internal/api/grpc/monitor"
	"github.com/oshokin/noise-monitor/internal/config"
	"github.com/oshokin/noise-monitor/internal/logger"
	"github.com/oshokin/noise-monitor/internal/service/common"
)

// Options controls the noise-monitor process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// LogLevel overrides the configured log level.
	LogLevel string
	// Policy overrides the configured alert policy.
	Policy string
	// ListenAddress overrides the gRPC listen address.
	ListenAddress string
	// HTTPAddress overrides the metrics and status feed address.
	HTTPAddress string
	// StartDetection starts detection as soon as the daemon is up.
	StartDetection bool
	// SkipInstanceCheck allows several daemons on one host.
	SkipInstanceCheck bool
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no control address configured")

// readHeaderTimeout bounds slow HTTP clients.
const readHeaderTimeout = 10 * time.Second

// Run starts the daemon and blocks until ctx is canceled or a server fails.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "noise-monitor")

	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	if !opts.SkipInstanceCheck {
		configPath := opts.ConfigPath
		if configPath == "" {
			configPath = config.DefaultConfigFilename
		}

		release, lockErr := common.AcquireInstance(common.PIDPath(configPath), nil)
		if lockErr != nil {
			return lockErr
		}
		defer release()
	}

	listenAddress, err := resolveListenAddress(settings.Control.ListenAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	app, err := build(ctx, settings)
	if err != nil {
		return fmt.Errorf("initialise monitor: %w", err)
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	api.RegisterMonitorServiceServer(grpcServer, api.NewServer(app.service))

	var (
		httpServer *http.Server
		httpLis    net.Listener
	)

	if settings.HTTP.ListenAddress != "" {
		httpLis, err = lc.Listen(ctx, "tcp", settings.HTTP.ListenAddress)
		if err != nil {
			_ = lis.Close()
			return fmt.Errorf("listen on %s: %w", settings.HTTP.ListenAddress, err)
		}

		httpServer = &http.Server{
			Handler:           app.handler(),
			ReadHeaderTimeout: readHeaderTimeout,
		}
	}

	logger.InfoKV(ctx, "Noise monitor listening",
		"listen_address", lis.Addr().String(),
		"http_address", settings.HTTP.ListenAddress)

	// The loop outlives ctx so detection can be stopped on it during shutdown.
	loopCtx, cancelLoop := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelLoop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return app.loop.Run(loopCtx)
	})

	group.Go(func() error {
		if serveErr := grpcServer.Serve(lis); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", serveErr)
		}

		return nil
	})

	if httpServer != nil {
		group.Go(func() error {
			if serveErr := httpServer.Serve(httpLis); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				return fmt.Errorf("serve HTTP: %w", serveErr)
			}

			return nil
		})
	}

	if opts.StartDetection {
		group.Go(func() error {
			if _, startErr := app.service.Start(groupCtx); startErr != nil {
				logger.ErrorKV(ctx, "Initial detection start failed", "error", startErr)
			}

			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down noise monitor")

		grpcServer.GracefulStop()

		if httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settings.Control.Timeout)
			defer cancel()

			if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
				logger.WarnKV(ctx, "HTTP shutdown failed", "error", shutdownErr)
			}
		}

		app.shutdown(ctx, cancelLoop)

		return nil
	})

	if err = group.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "Noise monitor stopped")

	return nil
}

// loadSettings loads the configuration file and applies command line overrides.
func loadSettings(opts *Options) (*config.Config, error) {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.LogLevel != "" {
		settings.LogLevel = opts.LogLevel
	}

	if opts.Policy != "" {
		settings.Monitor.Policy = opts.Policy
	}

	if opts.HTTPAddress != "" {
		settings.HTTP.ListenAddress = opts.HTTPAddress
	}

	if err = config.Validate(settings); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	if err = logger.Configure(settings.LogLevel); err != nil {
		return nil, fmt.Errorf("configure logger: %w", err)
	}

	return settings, nil
}

// resolveListenAddress determines the listen address for the gRPC server.
// The override wins over the configured control address.
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	if _, _, err := net.SplitHostPort(configAddr); err != nil {
		return "", fmt.Errorf("invalid control address format %q: %w", configAddr, err)
	}

	return configAddr, nil
}
