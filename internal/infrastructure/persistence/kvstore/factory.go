package kvstore

import (
	"fmt"
)

// Options selects and configures a durable cache backend.
type Options struct {
	Backend     string // "sqlite", "libsql", "redis", "memory"
	SQLitePath  string
	LibsqlURL   string
	LibsqlToken string
	RedisAddr   string
}

// Build constructs a Store from options. The libsql backend is preferred
// over local SQLite when both are configured, matching how the engine's
// other database connections behave.
func Build(opts Options) (Store, error) {
	switch opts.Backend {
	case "", "sqlite":
		if opts.LibsqlURL != "" {
			if s, err := OpenLibsql(opts.LibsqlURL, opts.LibsqlToken); err == nil {
				return s, nil
			}
			// Remote cache unavailable; fall back to the local file.
		}
		return OpenSQLite(opts.SQLitePath)
	case "libsql":
		return OpenLibsql(opts.LibsqlURL, opts.LibsqlToken)
	case "redis":
		return OpenRedis(opts.RedisAddr)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", opts.Backend)
	}
}
