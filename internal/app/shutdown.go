package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application. The running cycle, if any,
// completes before sources are disconnected.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	// Cancel context to signal all components
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	if a.httpServer != nil {
		err := a.httpServer.Shutdown(shutdownCtx)
		if err != nil {
			a.logger.Error("http-server-shutdown-error", zap.Error(err))
		}
	}

	// Wait for the scan loop and server goroutines
	a.wg.Wait()

	err := a.scanner.Close()
	if err != nil {
		a.logger.Error("scanner-close-error", zap.Error(err))
	}

	a.closeResources()

	a.logger.Info("application-shutdown-complete")

	return nil
}

// Close releases resources without the shutdown sequence. Used after
// single scans.
func (a *App) Close() {
	a.cancel()
	a.closeResources()
}

// closeResources closes the dispatcher (its channels and seen store) and the
// caches the app owns. Safe to call more than once.
func (a *App) closeResources() {
	a.closeOnce.Do(func() {
		if a.dispatcher != nil {
			err := a.dispatcher.Close()
			if err != nil {
				a.logger.Error("dispatcher-close-error", zap.Error(err))
			}
		}

		for _, c := range a.caches {
			c.Close()
		}
	})
}
