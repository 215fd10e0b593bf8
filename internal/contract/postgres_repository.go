package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daap14/contractd/internal/blueprint"
	"github.com/daap14/contractd/internal/lifecycle"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new Repository backed by the given connection pool.
func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// allColumns is the ordered list of columns scanned for a full contract.
const allColumns = `id, name, blueprint_id, blueprint_name, status, field_values,
	version, created_at, updated_at`

// summaryColumns is allColumns without field_values, used by List.
const summaryColumns = `id, name, blueprint_id, blueprint_name, status,
	version, created_at, updated_at`

// fieldValueRecord is the JSONB representation of a FieldValue.
type fieldValueRecord struct {
	FieldID uuid.UUID           `json:"fieldId"`
	Type    blueprint.FieldType `json:"type"`
	Label   string              `json:"label"`
	Value   json.RawMessage     `json:"value"`
}

func encodeFieldValues(values []FieldValue) ([]byte, error) {
	records := make([]fieldValueRecord, len(values))
	for i, fv := range values {
		raw, err := EncodeValue(fv.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding value of field %s: %w", fv.FieldID, err)
		}
		records[i] = fieldValueRecord{
			FieldID: fv.FieldID,
			Type:    fv.Type(),
			Label:   fv.Label,
			Value:   raw,
		}
	}
	return json.Marshal(records)
}

func decodeFieldValues(raw []byte) ([]FieldValue, error) {
	var records []fieldValueRecord
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("decoding field values: %w", err)
		}
	}

	values := make([]FieldValue, len(records))
	for i, r := range records {
		v, err := DecodeValue(r.Type, r.Value)
		if err != nil {
			return nil, fmt.Errorf("decoding value of field %s: %w", r.FieldID, err)
		}
		values[i] = FieldValue{FieldID: r.FieldID, Label: r.Label, Value: v}
	}
	return values, nil
}

// scanContract scans a full Contract (allColumns) from a row.
func scanContract(row pgx.Row) (*Contract, error) {
	var c Contract
	var status string
	var rawValues []byte
	err := row.Scan(
		&c.ID, &c.Name, &c.BlueprintID, &c.BlueprintName, &status, &rawValues,
		&c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning contract row: %w", err)
	}
	c.Status = lifecycle.Status(status)

	c.FieldValues, err = decodeFieldValues(rawValues)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new contract record with version 1.
func (r *PostgresRepository) Create(ctx context.Context, c *Contract) error {
	if c.Status == "" {
		c.Status = lifecycle.StatusCreated
	}

	rawValues, err := encodeFieldValues(c.FieldValues)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO contracts (name, blueprint_id, blueprint_name, status, field_values)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, allColumns)

	created, err := scanContract(r.pool.QueryRow(ctx, query,
		c.Name,
		c.BlueprintID,
		c.BlueprintName,
		string(c.Status),
		rawValues,
	))
	if err != nil {
		return fmt.Errorf("inserting contract: %w", err)
	}

	*c = *created
	return nil
}

// GetByID retrieves a single contract, including field values.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Contract, error) {
	query := fmt.Sprintf(`SELECT %s FROM contracts WHERE id = $1`, allColumns)
	return scanContract(r.pool.QueryRow(ctx, query, id))
}

// List retrieves contracts matching filter, newest first. Field values are
// not loaded.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]Contract, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", argIdx))
		args = append(args, statuses)
		argIdx++
	}
	if filter.BlueprintID != nil {
		conditions = append(conditions, fmt.Sprintf("blueprint_id = $%d", argIdx))
		args = append(args, *filter.BlueprintID)
		argIdx++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM contracts
		%s
		ORDER BY created_at DESC, id DESC`, summaryColumns, whereClause)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing contracts: %w", err)
	}
	defer rows.Close()

	var contracts []Contract
	for rows.Next() {
		var c Contract
		var status string
		err := rows.Scan(
			&c.ID, &c.Name, &c.BlueprintID, &c.BlueprintName, &status,
			&c.Version, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning contract row: %w", err)
		}
		c.Status = lifecycle.Status(status)
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating contract rows: %w", err)
	}

	if contracts == nil {
		contracts = []Contract{}
	}

	return contracts, nil
}

// UpdateFields replaces field_values when the stored version matches.
func (r *PostgresRepository) UpdateFields(ctx context.Context, id uuid.UUID, version int, values []FieldValue) (*Contract, error) {
	rawValues, err := encodeFieldValues(values)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		UPDATE contracts
		SET field_values = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING %s`, allColumns)

	return r.compareAndSwap(ctx, id, r.pool.QueryRow(ctx, query, rawValues, id, version))
}

// UpdateStatus sets status when the stored version matches.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, version int, status lifecycle.Status) (*Contract, error) {
	query := fmt.Sprintf(`
		UPDATE contracts
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING %s`, allColumns)

	return r.compareAndSwap(ctx, id, r.pool.QueryRow(ctx, query, string(status), id, version))
}

// compareAndSwap scans the result of a versioned UPDATE. When no row was
// updated it distinguishes a missing contract from a stale version.
func (r *PostgresRepository) compareAndSwap(ctx context.Context, id uuid.UUID, row pgx.Row) (*Contract, error) {
	c, err := scanContract(row)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("updating contract: %w", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM contracts WHERE id = $1)", id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking contract existence: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrVersionConflict
}
