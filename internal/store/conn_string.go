package store

import (
	"fmt"
	"net/url"

	"github.com/mkovacs/trading-bridge/internal/config"
)

// BuildConnString assembles a postgres connection URL from config, escaping
// credentials that contain URL metacharacters. pool_max_conns is read by
// pgxpool.ParseConfig, so the pool size knob rides along in the URL.
func BuildConnString(cfg config.DB) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	s := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
	if cfg.MaxConns > 0 {
		s += fmt.Sprintf("&pool_max_conns=%d", cfg.MaxConns)
	}
	return s
}
