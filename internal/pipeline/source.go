package pipeline

import (
	"fmt"

	"MomentumDashboard/internal/collector"
	"MomentumDashboard/internal/config"

	"github.com/phuslu/log"
)

// NewSource builds the price source selected in cfg.
func NewSource(cfg *config.Config, logger *log.Logger) (collector.Source, error) {
	s := cfg.Source
	switch s.Provider {
	case config.ProviderYahoo, "":
		return collector.NewYahooSource(collector.YahooOptions{
			BaseURL:   s.BaseURL,
			Proxy:     cfg.Proxy,
			Timeout:   s.Timeout,
			RateLimit: s.RateLimit,
			Logger:    logger,
		}), nil
	case config.ProviderEODHD:
		return collector.NewEODHDSource(collector.EODHDOptions{
			BaseURL:         s.BaseURL,
			APIKey:          s.APIKey,
			DefaultExchange: s.DefaultExchange,
			Proxy:           cfg.Proxy,
			Timeout:         s.Timeout,
			RateLimit:       s.RateLimit,
		}), nil
	case config.ProviderFinanceGo:
		return collector.NewFinanceGoSource(collector.FinanceGoOptions{
			BaseURL:   s.BaseURL,
			Proxy:     cfg.Proxy,
			Timeout:   s.Timeout,
			RateLimit: s.RateLimit,
		}), nil
	default:
		return nil, fmt.Errorf("unknown source provider %q", s.Provider)
	}
}
