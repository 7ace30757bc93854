package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/password"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	DatabaseURL string
	MaxConns    int32
	MinConns    int32
}

// NewPool builds a pgxpool and checks that a connection can be acquired.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns >= 0 {
		pcfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	if err := Ping(ctx, pool, 3*time.Second); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Ping checks that a connection can be acquired within timeout.
func Ping(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}

// Postgres keeps accounts in one table. The pool is owned by the caller.
type Postgres struct {
	pool   *pgxpool.Pool
	table  string
	hasher *password.PBKDF2
	logger *slog.Logger
}

// PostgresOption configures a Postgres store.
type PostgresOption func(*Postgres) error

// WithSchema places the accounts table in schema (default "public").
func WithSchema(schema string) PostgresOption {
	return func(p *Postgres) error {
		schema = strings.TrimSpace(schema)
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("accounts: invalid schema identifier %q", schema)
		}
		p.table = pgx.Identifier{schema, "accounts"}.Sanitize()
		return nil
	}
}

// WithLogger sets the logger used for hash upgrade failures.
func WithLogger(logger *slog.Logger) PostgresOption {
	return func(p *Postgres) error {
		if logger != nil {
			p.logger = logger
		}
		return nil
	}
}

// NewPostgres returns a Postgres store. hasher is used to upgrade stored
// hashes after a successful login.
func NewPostgres(pool *pgxpool.Pool, hasher *password.PBKDF2, opts ...PostgresOption) (*Postgres, error) {
	p := &Postgres{
		pool:   pool,
		table:  pgx.Identifier{"public", "accounts"}.Sanitize(),
		hasher: hasher,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.pool == nil {
		return nil, errors.New("accounts: nil pool")
	}
	if p.hasher == nil {
		return nil, errors.New("accounts: nil hasher")
	}
	return p, nil
}

// EnsureSchema creates the accounts table when it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+p.table+` (
		account       VARCHAR(64)  PRIMARY KEY,
		email         VARCHAR(254) NOT NULL,
		password_hash TEXT         NOT NULL,
		password_salt TEXT         NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
	)`)
	return err
}

// Create inserts a.
func (p *Postgres) Create(ctx context.Context, a Account) error {
	a, err := normalize(a)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO `+p.table+` (account, email, password_hash, password_salt, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.Email, a.PasswordHash, a.LegacySalt, a.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAccountExists
	}
	return err
}

// Get loads one account.
func (p *Postgres) Get(ctx context.Context, id string) (Account, bool, error) {
	var a Account
	err := p.pool.QueryRow(ctx,
		`SELECT account, email, password_hash, password_salt, created_at
		   FROM `+p.table+` WHERE account = $1`,
		id,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.LegacySalt, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, false, nil
	}
	if err != nil {
		return Account{}, false, err
	}
	return a, true, nil
}

// Authenticate checks password for account. A legacy or outdated hash is
// rewritten after a match; a failed rewrite does not fail the login.
func (p *Postgres) Authenticate(ctx context.Context, account, plain string) (bool, error) {
	if ValidateID(account) != nil {
		return false, nil
	}

	a, found, err := p.Get(ctx, account)
	if err != nil || !found {
		return false, err
	}

	ok, upgrade := checkPassword(p.hasher, a, plain)
	if ok && upgrade {
		if err := p.rehash(ctx, account, plain); err != nil {
			p.logger.WarnContext(ctx, "password hash upgrade failed",
				slog.String("account", account), slog.Any("error", err))
		}
	}
	return ok, nil
}

func (p *Postgres) rehash(ctx context.Context, account, plain string) error {
	encoded, err := p.hasher.Hash(plain)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`UPDATE `+p.table+` SET password_hash = $2, password_salt = '' WHERE account = $1`,
		account, encoded,
	)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" // unique_violation
}
