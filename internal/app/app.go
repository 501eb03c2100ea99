package app

import (
	"context"
	"io"
	"sync"

	"github.com/xbklairith/aubit-poly/internal/alerts"
	"github.com/xbklairith/aubit-poly/internal/scanner"
	"github.com/xbklairith/aubit-poly/pkg/cache"
	"github.com/xbklairith/aubit-poly/pkg/config"
	"github.com/xbklairith/aubit-poly/pkg/healthprobe"
	"github.com/xbklairith/aubit-poly/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server // nil when disabled
	scanner       *scanner.Scanner
	dispatcher    *alerts.Dispatcher
	caches        []cache.Cache // owned caches not closed by another component
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	closeOnce     sync.Once
	noAlerts      bool
}

// Options holds application options.
type Options struct {
	// Demo replaces every venue with simulated markets and a static oracle,
	// alerts to the console only and skips the HTTP server.
	Demo bool
	// NoAlerts suppresses dispatch from ScanOnce regardless of its notify
	// argument.
	NoAlerts bool
	// Out receives console alerts; nil means stdout.
	Out io.Writer
}
