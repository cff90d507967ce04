package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/VectorBits/Reentry/src/internal/config"
	"github.com/VectorBits/Reentry/src/internal/logger"
)

const runsSchema = `
CREATE TABLE IF NOT EXISTS analysis_runs (
    id CHAR(36) PRIMARY KEY COMMENT 'Run ID',
    fingerprint VARCHAR(66) NOT NULL COMMENT 'Program Fingerprint',
    sources TEXT NOT NULL COMMENT 'Analysed Paths',
    contracts INT NOT NULL DEFAULT 0,
    functions INT NOT NULL DEFAULT 0,
    findings INT NOT NULL DEFAULT 0,
    critical INT NOT NULL DEFAULT 0,
    high INT NOT NULL DEFAULT 0,
    medium INT NOT NULL DEFAULT 0,
    low INT NOT NULL DEFAULT 0,
    result LONGTEXT NULL COMMENT 'Result JSON',
    created_at DATETIME(6) NOT NULL COMMENT 'Creation Time',
    INDEX idx_fingerprint (fingerprint),
    INDEX idx_created_at (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci COMMENT='Reentrancy Analysis Runs';
`

const runColumns = "id, fingerprint, sources, contracts, functions, findings, critical, high, medium, low, created_at"

// mysqlStore talks database/sql directly, like the contract tables it
// replaced.
type mysqlStore struct {
	db *sql.DB
}

// NewMySQLStore 初始化 MySQL 连接池, creating the database when missing.
func NewMySQLStore(ctx context.Context, cfg *config.AppConfig) (Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// 1. 尝试直接连接指定数据库
	dsn := cfg.Database.DSN
	if dsn == "" {
		dsn = cfg.GetDatabaseDSN(true)
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	ctxPing, cancelPing := context.WithTimeout(ctx, 2*time.Second)
	err = db.PingContext(ctxPing)
	cancelPing()

	if err != nil && cfg.Database.DSN == "" {
		// 2. 数据库可能不存在, 连接 server root 并创建
		logger.Warn("database ping failed for '%s': %v", cfg.Database.Name, err)

		dbRoot, errRoot := sql.Open("mysql", cfg.GetDatabaseDSN(false))
		if errRoot != nil {
			db.Close()
			return nil, fmt.Errorf("open mysql server: %w", errRoot)
		}
		defer dbRoot.Close()

		createDBSQL := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` DEFAULT CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", cfg.Database.Name)
		if _, errExec := dbRoot.ExecContext(ctx, createDBSQL); errExec != nil {
			db.Close()
			return nil, fmt.Errorf("create database %s: %w", cfg.Database.Name, errExec)
		}
		logger.Info("database '%s' created (or already exists)", cfg.Database.Name)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctxPing, cancelPing = context.WithTimeout(ctx, 5*time.Second)
	defer cancelPing()
	if err := db.PingContext(ctxPing); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql ping failed: %w", err)
	}

	// 3. 自动迁移表结构
	if _, err := db.ExecContext(ctx, runsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate analysis_runs: %w", err)
	}
	return &mysqlStore{db: db}, nil
}

func (s *mysqlStore) Save(ctx context.Context, run *Run) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO analysis_runs ("+runColumns+", result) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		run.ID, run.Fingerprint, run.Sources, run.Contracts, run.Functions, run.Findings,
		run.Critical, run.High, run.Medium, run.Low, run.CreatedAt, run.Result)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

func scanRun(row interface{ Scan(...any) error }, withResult bool) (*Run, error) {
	var r Run
	dest := []any{&r.ID, &r.Fingerprint, &r.Sources, &r.Contracts, &r.Functions, &r.Findings,
		&r.Critical, &r.High, &r.Medium, &r.Low, &r.CreatedAt}
	var result sql.NullString
	if withResult {
		dest = append(dest, &result)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if result.Valid {
		r.Result = result.String
	}
	return &r, nil
}

func (s *mysqlStore) one(ctx context.Context, query string, arg string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, query, arg), true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, arg)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *mysqlStore) Get(ctx context.Context, id string) (*Run, error) {
	return s.one(ctx, "SELECT "+runColumns+", result FROM analysis_runs WHERE id = ?", id)
}

func (s *mysqlStore) Latest(ctx context.Context, fingerprint string) (*Run, error) {
	return s.one(ctx, "SELECT "+runColumns+", result FROM analysis_runs WHERE fingerprint = ? ORDER BY created_at DESC LIMIT 1", fingerprint)
}

func (s *mysqlStore) List(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM analysis_runs ORDER BY created_at DESC"
	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *mysqlStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM analysis_runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func (s *mysqlStore) Close() error { return s.db.Close() }
