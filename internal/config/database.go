package config

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DefaultDatabaseHost = "localhost"
	DefaultDatabasePort = 5433

	// tlsRequiredMarker in a connection string switches on relaxed TLS.
	tlsRequiredMarker = "sslmode=require"
)

// TLSMode selects how the pool negotiates TLS with the server.
type TLSMode int

const (
	// TLSDisabled adds no TLS settings of its own. A DATABASE_URL keeps
	// whatever its sslmode asks for; the discrete target is built with
	// sslmode=disable.
	TLSDisabled TLSMode = iota
	// TLSRelaxed encrypts the connection without verifying the server
	// certificate, which is what hosted Postgres providers with
	// sslmode=require expect.
	TLSRelaxed
)

func (m TLSMode) String() string {
	switch m {
	case TLSRelaxed:
		return "relaxed"
	default:
		return "disabled"
	}
}

// Source tells where the connection target came from.
type Source string

const (
	SourceURL      Source = "url"
	SourceDiscrete Source = "discrete"
)

// Database is the fully resolved connection descriptor.
type Database struct {
	// URL is the connection target handed to pgx. For SourceURL it is
	// DATABASE_URL verbatim.
	URL    string
	Source Source

	Host     string
	Port     int
	User     string
	Password string
	Name     string

	TLS TLSMode

	// Synchronize is true outside production. The server never changes the
	// schema itself; this only decides whether pending migrations are a
	// warning (true) or a startup failure (false).
	Synchronize bool

	// LogQueries is on in every environment.
	LogQueries bool
}

func resolveDatabase(e Env, production bool) (Database, error) {
	db := Database{
		Synchronize: !production,
		LogQueries:  true,
	}

	if dbURL := strings.TrimSpace(e.DatabaseURL); dbURL != "" {
		db.URL = e.DatabaseURL
		db.Source = SourceURL
		if strings.Contains(e.DatabaseURL, tlsRequiredMarker) {
			db.TLS = TLSRelaxed
		}
		return db, nil
	}

	if production {
		return Database{}, ErrMissingConnection
	}

	port := DefaultDatabasePort
	if p := strings.TrimSpace(e.DatabasePort); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 65535 {
			return Database{}, fmt.Errorf("%w: DATABASE_PORT=%q", ErrInvalidPort, e.DatabasePort)
		}
		port = n
	}

	db.Source = SourceDiscrete
	db.Host = strings.TrimSpace(e.DatabaseHost)
	if db.Host == "" {
		db.Host = DefaultDatabaseHost
	}
	db.Port = port
	db.User = e.DatabaseUser
	db.Password = e.DatabasePassword
	db.Name = e.DatabaseName
	db.URL = discreteURL(db)

	return db, nil
}

func discreteURL(db Database) string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		RawQuery: "sslmode=disable",
	}
	if db.Name != "" {
		u.Path = "/" + db.Name
	}
	switch {
	case db.User != "" && db.Password != "":
		u.User = url.UserPassword(db.User, db.Password)
	case db.User != "":
		u.User = url.User(db.User)
	}
	return u.String()
}

// Redacted returns the connection target with the password masked, for logs.
func (d Database) Redacted() string {
	u, err := url.Parse(d.URL)
	if err != nil || u.Scheme == "" {
		return "<connection string>"
	}
	return u.Redacted()
}

// PoolConfig builds the pgxpool configuration for this descriptor. tracer is
// attached when query logging is on; it may be nil.
func (d Database) PoolConfig(tracer pgx.QueryTracer) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(d.URL)
	if err != nil {
		return nil, fmt.Errorf("config: parse database url: %w", err)
	}

	if d.TLS == TLSRelaxed {
		cfg.ConnConfig.TLSConfig = relaxedTLS(cfg.ConnConfig.Host)
		for _, fb := range cfg.ConnConfig.Fallbacks {
			fb.TLSConfig = relaxedTLS(fb.Host)
		}
	}

	if d.LogQueries && tracer != nil {
		cfg.ConnConfig.Tracer = tracer
	}

	return cfg, nil
}

func relaxedTLS(host string) *tls.Config {
	return &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: true, //nolint:gosec
	}
}
