// Package sqlite implements repository.Repository on an embedded SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"netboard/internal/domain"
	"netboard/internal/repository"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Repository using SQLite.
type Repository struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc's driver is not safe for concurrent writers on one file.
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS hosts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		data JSON NOT NULL,
		position_x REAL NOT NULL DEFAULT 0,
		position_y REAL NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value JSON NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := r.db.Exec(schema)
	return err
}

// LoadBoard loads the complete board from the database.
func (r *Repository) LoadBoard(ctx context.Context) (*domain.Board, error) {
	board := domain.NewBoard("")

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, address, data, position_x, position_y
		FROM hosts ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query hosts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, name, address string
			data              []byte
			posX, posY        float64
		)

		if err := rows.Scan(&id, &name, &address, &data, &posX, &posY); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}

		var host domain.Host
		if err := json.Unmarshal(data, &host); err != nil {
			return nil, fmt.Errorf("failed to unmarshal host data: %w", err)
		}

		// Indexed columns are the source of truth.
		host.ID = id
		host.Name = name
		host.Address = address
		host.X = posX
		host.Y = posY

		board.Hosts = append(board.Hosts, host)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hosts: %w", err)
	}

	if err := r.loadMeta(ctx, board); err != nil {
		return nil, err
	}

	return board, nil
}

func (r *Repository) loadMeta(ctx context.Context, board *domain.Board) error {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM metadata`)
	if err != nil {
		return fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	// The board blob embeds a monitoring struct of its own, so the
	// dedicated monitoring key must be applied after it regardless of
	// row order.
	var monitoringRaw []byte

	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("failed to scan metadata: %w", err)
		}

		switch key {
		case "board":
			if err := json.Unmarshal(value, &board.Meta); err != nil {
				return fmt.Errorf("failed to unmarshal board meta: %w", err)
			}
		case "monitoring":
			monitoringRaw = value
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if monitoringRaw != nil {
		if err := json.Unmarshal(monitoringRaw, &board.Meta.Monitoring); err != nil {
			return fmt.Errorf("failed to unmarshal monitoring settings: %w", err)
		}
	}

	return nil
}

// SaveBoard replaces the entire stored board in one transaction.
func (r *Repository) SaveBoard(ctx context.Context, board *domain.Board) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM hosts`); err != nil {
		return fmt.Errorf("failed to clear hosts: %w", err)
	}

	for _, host := range board.Hosts {
		if err := upsertHostTx(ctx, tx, host); err != nil {
			return err
		}
	}

	if err := saveMetaTx(ctx, tx, "board", board.Meta); err != nil {
		return err
	}
	if err := saveMetaTx(ctx, tx, "monitoring", board.Meta.Monitoring); err != nil {
		return err
	}

	return tx.Commit()
}

// UpsertHost inserts or updates a single host.
func (r *Repository) UpsertHost(ctx context.Context, host domain.Host) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertHostTx(ctx, tx, host); err != nil {
		return err
	}

	return tx.Commit()
}

func upsertHostTx(ctx context.Context, tx *sql.Tx, host domain.Host) error {
	data, err := json.Marshal(host)
	if err != nil {
		return fmt.Errorf("failed to marshal host %s: %w", host.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO hosts (id, name, address, data, position_x, position_y, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			data = excluded.data,
			position_x = excluded.position_x,
			position_y = excluded.position_y,
			updated_at = excluded.updated_at
	`, host.ID, host.Name, host.Address, data, host.X, host.Y, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert host %s: %w", host.ID, err)
	}

	return nil
}

func saveMetaTx(ctx context.Context, tx *sql.Tx, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata %s: %w", key, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO metadata (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save metadata %s: %w", key, err)
	}

	return nil
}

// DeleteHost removes a host by id.
func (r *Repository) DeleteHost(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM hosts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete host %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePosition moves a host without touching its other fields.
func (r *Repository) UpdatePosition(ctx context.Context, id string, x, y float64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE hosts SET position_x = ?, position_y = ?, updated_at = ?
		WHERE id = ?
	`, x, y, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update position for %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}

	// Keep the JSON blob coherent with the indexed columns.
	_, err = r.db.ExecContext(ctx, `
		UPDATE hosts SET data = json_set(data, '$.x', ?, '$.y', ?)
		WHERE id = ?
	`, x, y, id)
	if err != nil {
		return fmt.Errorf("failed to update host data for %s: %w", id, err)
	}

	return nil
}

// SaveSettings stores the board's monitoring settings.
func (r *Repository) SaveSettings(ctx context.Context, settings domain.MonitoringSettings) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := saveMetaTx(ctx, tx, "monitoring", settings); err != nil {
		return err
	}

	return tx.Commit()
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}
