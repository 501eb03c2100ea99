package app

import (
	"context"
	"fmt"

	"github.com/xbklairith/aubit-poly/pkg/config"
	"github.com/xbklairith/aubit-poly/pkg/types"
	"go.uber.org/zap"
)

// ListMarkets fetches normalized markets from one named source, connecting
// and disconnecting around the call.
func ListMarkets(ctx context.Context, cfg *config.Config, logger *zap.Logger, source string, limit int, filter types.MarketFilter) ([]*types.Market, error) {
	src, err := newSource(cfg, logger, source)
	if err != nil {
		return nil, err
	}

	err = src.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", source, err)
	}
	defer func() {
		disconnectErr := src.Disconnect()
		if disconnectErr != nil {
			logger.Warn("source-disconnect-failed",
				zap.String("source", source),
				zap.Error(disconnectErr))
		}
	}()

	markets, err := src.GetMarkets(ctx, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch markets from %s: %w", source, err)
	}

	logger.Debug("markets-listed",
		zap.String("source", source),
		zap.Int("count", len(markets)))

	return markets, nil
}
