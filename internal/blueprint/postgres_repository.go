package blueprint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new Repository backed by the given connection pool.
func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// allColumns is the ordered list of columns scanned from the blueprints table.
const allColumns = `id, name, fields, created_at, updated_at`

// fieldRecord is the JSONB representation of a Field inside blueprints.fields.
type fieldRecord struct {
	ID       uuid.UUID `json:"fieldId"`
	Type     FieldType `json:"type"`
	Label    string    `json:"label"`
	Position struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"position"`
}

func encodeFields(fields []Field) ([]byte, error) {
	records := make([]fieldRecord, len(fields))
	for i, f := range fields {
		records[i].ID = f.ID
		records[i].Type = f.Type
		records[i].Label = f.Label
		records[i].Position.X = f.Position.X
		records[i].Position.Y = f.Position.Y
	}
	return json.Marshal(records)
}

func decodeFields(raw []byte) ([]Field, error) {
	var records []fieldRecord
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("decoding blueprint fields: %w", err)
		}
	}
	fields := make([]Field, len(records))
	for i, r := range records {
		fields[i] = Field{
			ID:       r.ID,
			Type:     r.Type,
			Label:    r.Label,
			Position: Position{X: r.Position.X, Y: r.Position.Y},
		}
	}
	return fields, nil
}

// scanBlueprint scans a single Blueprint from a row.
func scanBlueprint(row pgx.Row) (*Blueprint, error) {
	var bp Blueprint
	var rawFields []byte
	err := row.Scan(&bp.ID, &bp.Name, &rawFields, &bp.CreatedAt, &bp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlueprintNotFound
		}
		return nil, fmt.Errorf("scanning blueprint row: %w", err)
	}

	bp.Fields, err = decodeFields(rawFields)
	if err != nil {
		return nil, err
	}
	return &bp, nil
}

// Create inserts a new blueprint record. Field IDs must already be assigned.
func (r *PostgresRepository) Create(ctx context.Context, bp *Blueprint) error {
	rawFields, err := encodeFields(bp.Fields)
	if err != nil {
		return fmt.Errorf("encoding blueprint fields: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO blueprints (name, fields)
		VALUES ($1, $2)
		RETURNING %s`, allColumns)

	created, err := scanBlueprint(r.pool.QueryRow(ctx, query, bp.Name, rawFields))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateBlueprintName
		}
		return fmt.Errorf("inserting blueprint: %w", err)
	}

	*bp = *created
	return nil
}

// GetByID retrieves a single blueprint by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Blueprint, error) {
	query := fmt.Sprintf(`SELECT %s FROM blueprints WHERE id = $1`, allColumns)
	return scanBlueprint(r.pool.QueryRow(ctx, query, id))
}

// GetByName retrieves a single blueprint by its name.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*Blueprint, error) {
	query := fmt.Sprintf(`SELECT %s FROM blueprints WHERE name = $1`, allColumns)
	return scanBlueprint(r.pool.QueryRow(ctx, query, name))
}

// List retrieves all blueprints, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]Blueprint, error) {
	query := fmt.Sprintf(`SELECT %s FROM blueprints ORDER BY created_at DESC, id DESC`, allColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing blueprints: %w", err)
	}
	defer rows.Close()

	var blueprints []Blueprint
	for rows.Next() {
		bp, err := scanBlueprint(rows)
		if err != nil {
			return nil, err
		}
		blueprints = append(blueprints, *bp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating blueprint rows: %w", err)
	}

	if blueprints == nil {
		blueprints = []Blueprint{}
	}

	return blueprints, nil
}
