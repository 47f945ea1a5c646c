package warehouse

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cx-datamart/acreage-cli/internal/db"
)

// PostgresStore implements Uploader against a PostgreSQL warehouse.
type PostgresStore struct {
	pool    db.Pool
	log     *zap.Logger
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool and ensures the
// archive registry table exists.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "warehouse: ping")
	}

	s := &PostgresStore{
		pool:    pool,
		log:     zap.L().With(zap.String("component", "warehouse")),
		closeFn: pool.Close,
	}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

const archiveMigration = `
CREATE TABLE IF NOT EXISTS acreage_archives (
	id          TEXT PRIMARY KEY,
	remote_name TEXT NOT NULL UNIQUE,
	local_path  TEXT NOT NULL,
	size_bytes  BIGINT NOT NULL,
	sha256      TEXT NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_acreage_archives_uploaded_at ON acreage_archives(uploaded_at);
`

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, archiveMigration); err != nil {
		return eris.Wrap(err, "warehouse: migrate")
	}
	return nil
}

// UploadFile registers a downloaded archive under remoteName, recording its
// size and content digest. Re-uploading the same remote name overwrites the
// previous registration.
func (s *PostgresStore) UploadFile(ctx context.Context, localPath, remoteName string) error {
	size, digest, err := digestFile(localPath)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO acreage_archives (id, remote_name, local_path, size_bytes, sha256, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (remote_name) DO UPDATE SET
			local_path = EXCLUDED.local_path,
			size_bytes = EXCLUDED.size_bytes,
			sha256 = EXCLUDED.sha256,
			uploaded_at = EXCLUDED.uploaded_at`,
		uuid.New().String(), remoteName, localPath, size, digest, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "warehouse: register archive %s", remoteName)
	}

	s.log.Info("archive registered",
		zap.String("remote_name", remoteName),
		zap.Int64("size_bytes", size),
		zap.String("sha256", digest),
	)
	return nil
}

// UploadTable writes a table into destination honoring the write mode:
// Replace truncates first, Append adds rows, Fail refuses a non-empty
// destination. Rows go through the COPY protocol in a single transaction.
func (s *PostgresStore) UploadTable(ctx context.Context, t Table, destination string, mode WriteMode) error {
	if len(t.Columns) == 0 {
		return eris.Errorf("warehouse: upload %s: table has no columns", destination)
	}

	rows := toAnyRows(t.Rows)

	switch mode {
	case Append:
		n, err := db.CopyFrom(ctx, s.pool, destination, t.Columns, rows)
		if err != nil {
			return err
		}
		s.log.Info("table appended", zap.String("destination", destination), zap.Int64("rows", n))
		return nil

	case Fail:
		var occupied bool
		err := s.pool.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM "+db.Ident(destination).Sanitize()+")",
		).Scan(&occupied)
		if err != nil {
			return eris.Wrapf(err, "warehouse: check %s", destination)
		}
		if occupied {
			return eris.Errorf("warehouse: destination %s already has data", destination)
		}
		n, err := db.CopyFrom(ctx, s.pool, destination, t.Columns, rows)
		if err != nil {
			return err
		}
		s.log.Info("table written", zap.String("destination", destination), zap.Int64("rows", n))
		return nil

	case Replace:
		return s.replaceTable(ctx, t.Columns, rows, destination)

	default:
		return eris.Errorf("warehouse: unknown write mode %q", mode)
	}
}

// UpsertTable merges a table into destination keyed on conflictKeys, so
// loading the same workbook twice updates rows instead of duplicating them.
func (s *PostgresStore) UpsertTable(ctx context.Context, t Table, destination string, conflictKeys []string) error {
	if len(t.Columns) == 0 {
		return eris.Errorf("warehouse: upsert %s: table has no columns", destination)
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        destination,
		Columns:      t.Columns,
		ConflictKeys: conflictKeys,
	}, toAnyRows(t.Rows))
	if err != nil {
		return err
	}

	s.log.Info("table merged", zap.String("destination", destination), zap.Int64("rows", n))
	return nil
}

func (s *PostgresStore) replaceTable(ctx context.Context, columns []string, rows [][]any, destination string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrapf(err, "warehouse: replace %s: begin tx", destination)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "TRUNCATE "+db.Ident(destination).Sanitize()); err != nil {
		return eris.Wrapf(err, "warehouse: truncate %s", destination)
	}

	if len(rows) > 0 {
		if _, err := tx.CopyFrom(ctx, db.Ident(destination), columns, pgx.CopyFromRows(rows)); err != nil {
			return eris.Wrapf(err, "warehouse: COPY INTO %s", destination)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrapf(err, "warehouse: replace %s: commit tx", destination)
	}

	s.log.Info("table replaced", zap.String("destination", destination), zap.Int("rows", len(rows)))
	return nil
}

func toAnyRows(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		row := make([]any, len(r))
		for j, v := range r {
			row[j] = v
		}
		out[i] = row
	}
	return out
}

func digestFile(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", eris.Wrapf(err, "warehouse: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return 0, "", eris.Wrapf(err, "warehouse: digest %s", path)
	}

	return size, hex.EncodeToString(h.Sum(nil)), nil
}
