package db

import (
	"embed"
	"fmt"
	"net"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/rqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const defaultRqlitePort = "4001"

// ParseRqliteURL validates an http(s) rqlite URL and fills in the default
// port when none is given.
func ParseRqliteURL(s string) (u RqliteURL, err error) {
	parsed, err := url.Parse(s)
	if err != nil {
		return u, fmt.Errorf("db: invalid rqlite URL: %w", err)
	}
	switch parsed.Scheme {
	case "http", "https":
	default:
		return u, fmt.Errorf("db: invalid rqlite URL: scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Port() == "" {
		parsed.Host = net.JoinHostPort(parsed.Hostname(), defaultRqlitePort)
	}
	return RqliteURL{URL: parsed}, nil
}

type RqliteURL struct {
	URL *url.URL
}

func (ru RqliteURL) DataSourceName() string {
	return ru.URL.String()
}

// migrateURL rewrites the connection URL into the rqlite:// form the
// migration driver expects. Plain http connections need the insecure flag.
func (ru RqliteURL) migrateURL() string {
	mu := url.URL{
		Scheme: "rqlite",
		User:   ru.URL.User,
		Host:   ru.URL.Host,
	}
	if ru.URL.Scheme == "http" {
		mu.RawQuery = url.Values{"x-connect-insecure": []string{"true"}}.Encode()
	}
	return mu.String()
}

// Migrate applies the embedded schema migrations. Running against an
// up-to-date database is a no-op.
func Migrate(u RqliteURL) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("db: failed to load migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, u.migrateURL())
	if err != nil {
		return fmt.Errorf("db: failed to connect for migration: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("db: failed to apply migrations: %w", err)
	}
	return nil
}
