package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"shoplist/internal/shopping"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Gateway and worker may start together; only one of them runs the DDL.
	const lockID = 582031447

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	if !acquired {
		time.Sleep(2 * time.Second)
		return nil
	}

	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS shopping_items (
			seq BIGSERIAL PRIMARY KEY,
			id BIGINT NOT NULL,
			name TEXT NOT NULL,
			quantity INT NOT NULL DEFAULT 1,
			category TEXT NOT NULL DEFAULT '',
			is_checked BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS shopping_items_id_idx ON shopping_items(id);`,
		`CREATE TABLE IF NOT EXISTS shopping_generation (
			id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			seq BIGINT NOT NULL,
			task_id UUID NOT NULL,
			event TEXT NOT NULL,
			state TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ DEFAULT now()
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, item shopping.Item) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shopping_items(id, name, quantity, category, is_checked)
		VALUES($1,$2,$3,$4,$5)`,
		item.ID, item.Name, item.Quantity, item.Category, item.Checked)
	return err
}

func (s *PostgresStore) Remove(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM shopping_items WHERE id=$1`, id)
	return err
}

func (s *PostgresStore) Update(ctx context.Context, id int64, patch shopping.Patch) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE shopping_items SET
			name = COALESCE($2, name),
			quantity = COALESCE($3, quantity),
			category = COALESCE($4, category),
			is_checked = COALESCE($5, is_checked)
		WHERE id=$1`,
		id, nullString(patch.Name), nullInt(patch.Quantity), nullString(patch.Category), nullBool(patch.Checked))
	if err != nil {
		return 0, fmt.Errorf("failed to update item %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrItemNotFound
	}
	return int(n), nil
}

func (s *PostgresStore) List(ctx context.Context) ([]shopping.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, quantity, category, is_checked
		FROM shopping_items
		ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []shopping.Item{}
	for rows.Next() {
		var it shopping.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Quantity, &it.Category, &it.Checked); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM shopping_items`)
	return err
}

func (s *PostgresStore) Replace(ctx context.Context, items []shopping.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := replaceTx(ctx, tx, items); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceTx(ctx context.Context, tx *sql.Tx, items []shopping.Item) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM shopping_items`); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	ids, names, quantities, categories, checked := columns(items)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO shopping_items(id, name, quantity, category, is_checked)
		SELECT id, name, quantity, category, is_checked
		FROM unnest($1::bigint[], $2::text[], $3::int[], $4::text[], $5::bool[])
			WITH ORDINALITY AS t(id, name, quantity, category, is_checked, ord)
		ORDER BY ord`,
		pq.Array(ids), pq.Array(names), pq.Array(quantities), pq.Array(categories), pq.Array(checked))
	if err != nil {
		return fmt.Errorf("failed to insert %d items: %w", len(items), err)
	}
	return nil
}

const generationColumns = `seq, task_id, event, state, error`

func scanGeneration(row *sql.Row) (Generation, error) {
	var gen Generation
	err := row.Scan(&gen.Seq, &gen.TaskID, &gen.Event, &gen.State, &gen.Error)
	return gen, err
}

func (s *PostgresStore) BeginGeneration(ctx context.Context, taskID uuid.UUID, event string) (Generation, error) {
	gen, err := scanGeneration(s.db.QueryRowContext(ctx, `
		INSERT INTO shopping_generation(id, seq, task_id, event, state)
		VALUES(1, 1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			seq = shopping_generation.seq + 1,
			task_id = EXCLUDED.task_id,
			event = EXCLUDED.event,
			state = EXCLUDED.state,
			error = '',
			updated_at = now()
		RETURNING `+generationColumns,
		taskID, event, GenerationSending))
	if err != nil {
		return Generation{}, fmt.Errorf("failed to begin generation: %w", err)
	}
	return gen, nil
}

func (s *PostgresStore) CommitGeneration(ctx context.Context, seq int64, items []shopping.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	latest, err := scanGeneration(tx.QueryRowContext(ctx,
		`SELECT `+generationColumns+` FROM shopping_generation WHERE id = 1 FOR UPDATE`))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err := checkCommit(latest, seq); err != nil {
		return err
	}
	if err := replaceTx(ctx, tx, items); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE shopping_generation SET state = $1, updated_at = now() WHERE id = 1`,
		GenerationSucceeded); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) FinishGeneration(ctx context.Context, seq int64, state, message string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE shopping_generation SET state = $2, error = $3, updated_at = now()
		WHERE id = 1 AND seq = $1 AND state = $4`,
		seq, state, message, GenerationSending)
	return err
}

func (s *PostgresStore) CancelGeneration(ctx context.Context) (Generation, bool, error) {
	gen, err := scanGeneration(s.db.QueryRowContext(ctx, `
		UPDATE shopping_generation SET state = $1, updated_at = now()
		WHERE id = 1 AND state = $2
		RETURNING `+generationColumns,
		GenerationCanceled, GenerationSending))
	if errors.Is(err, sql.ErrNoRows) {
		current, _, err := s.CurrentGeneration(ctx)
		return current, false, err
	}
	if err != nil {
		return Generation{}, false, err
	}
	return gen, true, nil
}

func (s *PostgresStore) CurrentGeneration(ctx context.Context) (Generation, bool, error) {
	gen, err := scanGeneration(s.db.QueryRowContext(ctx,
		`SELECT `+generationColumns+` FROM shopping_generation WHERE id = 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return Generation{}, false, nil
	}
	if err != nil {
		return Generation{}, false, err
	}
	return gen, true, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func columns(items []shopping.Item) ([]int64, []string, []int64, []string, []bool) {
	ids := make([]int64, len(items))
	names := make([]string, len(items))
	quantities := make([]int64, len(items))
	categories := make([]string, len(items))
	checked := make([]bool, len(items))
	for i, it := range items {
		ids[i] = it.ID
		names[i] = it.Name
		quantities[i] = int64(it.Quantity)
		categories[i] = it.Category
		checked[i] = it.Checked
	}
	return ids, names, quantities, categories, checked
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}
