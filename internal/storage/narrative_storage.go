package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mohamedkhairy/market-intel/internal/config"
	"github.com/mohamedkhairy/market-intel/internal/models"
	"github.com/mohamedkhairy/market-intel/pkg/logger"
)

const createNarrativeTable = `
	CREATE TABLE IF NOT EXISTS narrative_history (
		id          TEXT PRIMARY KEY,
		symbol      TEXT NOT NULL,
		asset_class TEXT NOT NULL,
		rule_name   TEXT NOT NULL,
		priority    TEXT NOT NULL,
		narrative   TEXT NOT NULL,
		timestamp   TIMESTAMPTZ NOT NULL,
		metrics     JSONB
	);
	CREATE INDEX IF NOT EXISTS narrative_history_symbol_ts ON narrative_history (symbol, timestamp DESC);
`

const insertNarrative = `
	INSERT INTO narrative_history (id, symbol, asset_class, rule_name, priority, narrative, timestamp, metrics)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO NOTHING
`

// PostgresNarrativeStorage implements NarrativeStorage on PostgreSQL
type PostgresNarrativeStorage struct {
	db       *sql.DB
	dbConfig config.DatabaseConfig
}

// NewPostgresNarrativeStorage opens a connection pool, verifies it and makes
// sure the narrative_history table exists
func NewPostgresNarrativeStorage(dbConfig config.DatabaseConfig) (*PostgresNarrativeStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Database,
		dbConfig.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(dbConfig.MaxConnections)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, createNarrativeTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create narrative_history table: %w", err)
	}

	logger.Info("PostgreSQL narrative storage initialized",
		logger.String("host", dbConfig.Host),
		logger.Int("port", dbConfig.Port),
		logger.String("database", dbConfig.Database),
	)

	return &PostgresNarrativeStorage{db: db, dbConfig: dbConfig}, nil
}

// WriteNarratives inserts narratives in a single transaction. Narratives
// already stored under the same ID are left as they are.
func (s *PostgresNarrativeStorage) WriteNarratives(ctx context.Context, narratives []models.Narrative) error {
	if len(narratives) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertNarrative)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, n := range narratives {
		metricsJSON, err := json.Marshal(n.Metrics)
		if err != nil {
			return fmt.Errorf("failed to marshal metrics for narrative %s: %w", n.ID, err)
		}

		if _, err := stmt.ExecContext(ctx,
			n.ID,
			n.Symbol,
			string(n.AssetClass),
			n.RuleName,
			string(n.Priority),
			n.Narrative,
			n.Timestamp,
			string(metricsJSON),
		); err != nil {
			return fmt.Errorf("failed to insert narrative %s: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Debug("Wrote narratives", logger.Int("count", len(narratives)))
	return nil
}

// GetNarratives retrieves narratives with filtering options
func (s *PostgresNarrativeStorage) GetNarratives(ctx context.Context, filter NarrativeFilter) ([]models.Narrative, error) {
	query, args := buildNarrativeQuery(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query narratives: %w", err)
	}
	defer rows.Close()

	narratives := make([]models.Narrative, 0)
	for rows.Next() {
		var n models.Narrative
		var assetClass, priority string
		var metricsJSON sql.NullString

		if err := rows.Scan(
			&n.ID,
			&n.Symbol,
			&assetClass,
			&n.RuleName,
			&priority,
			&n.Narrative,
			&n.Timestamp,
			&metricsJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan narrative: %w", err)
		}
		n.AssetClass = models.AssetClass(assetClass)
		n.Priority = models.Priority(priority)

		if metricsJSON.Valid && metricsJSON.String != "" {
			if err := json.Unmarshal([]byte(metricsJSON.String), &n.Metrics); err != nil {
				logger.Warn("Failed to unmarshal narrative metrics",
					logger.ErrorField(err),
					logger.String("narrative_id", n.ID),
				)
			}
		}

		narratives = append(narratives, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return narratives, nil
}

// Close closes the database connection
func (s *PostgresNarrativeStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// buildNarrativeQuery renders filter as a parameterized SELECT
func buildNarrativeQuery(filter NarrativeFilter) (string, []interface{}) {
	query := `
		SELECT id, symbol, asset_class, rule_name, priority, narrative, timestamp, metrics
		FROM narrative_history
		WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	add := func(clause string, value interface{}) {
		query += fmt.Sprintf(clause, argIndex)
		args = append(args, value)
		argIndex++
	}

	if filter.Symbol != "" {
		add(" AND symbol = $%d", filter.Symbol)
	}
	if filter.AssetClass != "" {
		add(" AND asset_class = $%d", string(filter.AssetClass))
	}
	if filter.RuleName != "" {
		add(" AND rule_name = $%d", filter.RuleName)
	}
	if filter.Priority != "" {
		add(" AND priority = $%d", string(filter.Priority))
	}
	if !filter.StartTime.IsZero() {
		add(" AND timestamp >= $%d", filter.StartTime)
	}
	if !filter.EndTime.IsZero() {
		add(" AND timestamp <= $%d", filter.EndTime)
	}

	query += " ORDER BY timestamp DESC"

	if filter.Limit > 0 {
		add(" LIMIT $%d", filter.Limit)
	}
	if filter.Offset > 0 {
		add(" OFFSET $%d", filter.Offset)
	}

	return query, args
}
