package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xbklairith/aubit-poly/internal/arbitrage"
	"go.uber.org/zap"
)

// Report is the outcome of a single scan.
type Report struct {
	ScanID        string                   `json:"scan_id"`
	Opportunities []*arbitrage.Opportunity `json:"opportunities"`
	Alerted       int                      `json:"alerted"`
}

// Run connects the sources, scans continuously and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.Strings("sources", a.cfg.MarketSources),
		zap.Duration("scan-interval", a.cfg.ScanInterval),
		zap.String("min-internal-profit", a.cfg.MinInternalProfit.String()),
		zap.String("min-cross-platform-profit", a.cfg.MinCrossPlatformProfit.String()),
		zap.String("min-hedging-profit", a.cfg.MinHedgingProfit.String()),
		zap.String("log-level", a.cfg.LogLevel))

	err := a.startComponents()
	if err != nil {
		_ = a.Shutdown()
		return err
	}

	// Mark as ready
	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.Bool("http-enabled", a.httpServer != nil),
		zap.String("http-addr", ":"+a.cfg.HTTPPort))

	// Wait for shutdown signal
	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	if a.httpServer != nil {
		a.wg.Add(1)
		go a.runHTTPServer()

		// Give HTTP server a moment to start
		time.Sleep(100 * time.Millisecond)
	}

	err := a.scanner.Connect(a.ctx)
	if err != nil {
		return fmt.Errorf("connect sources: %w", err)
	}

	a.wg.Add(1)
	go a.runScanner()

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runScanner() {
	defer a.wg.Done()
	err := a.scanner.RunContinuous(a.ctx, a.cfg.ScanInterval)
	if err != nil {
		a.logger.Error("scanner-error", zap.Error(err))
	}
}

// ScanOnce connects, runs one cycle, dispatches its alerts unless disabled
// and disconnects again.
func (a *App) ScanOnce(ctx context.Context, notify bool) (*Report, error) {
	err := a.scanner.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect sources: %w", err)
	}
	defer func() {
		closeErr := a.scanner.Close()
		if closeErr != nil {
			a.logger.Warn("source-disconnect-failed", zap.Error(closeErr))
		}
	}()

	opps, err := a.scanner.ScanOnce(ctx)
	a.healthChecker.RecordScan(time.Now(), err)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	report := &Report{Opportunities: opps}
	if latest := a.scanner.Latest(); latest != nil {
		report.ScanID = latest.ScanID
	}

	if notify && !a.noAlerts && len(opps) > 0 {
		report.Alerted = a.dispatcher.NotifyBatch(ctx, opps, a.cfg.MaxAlertsPerBatch)
	}

	return report, nil
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
