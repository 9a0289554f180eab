package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"bike-predict/internal/models"
	"bike-predict/internal/utils"
)

// DefaultListLimit caps ListRecent when no limit is given.
const DefaultListLimit = 50

// ValuationRepository handles valuation database operations.
type ValuationRepository struct {
	db *DB
}

// NewValuationRepository creates a new valuation repository.
func NewValuationRepository(db *DB) *ValuationRepository {
	return &ValuationRepository{db: db}
}

const valuationColumns = `id, session_id, brand_code, brand_name, model_code, model_name,
	location_code, location_name, year, kilometers, power, owner, price, created_at`

// Create inserts a valuation and sets its ID.
func (r *ValuationRepository) Create(ctx context.Context, v *models.Valuation) (int64, error) {
	query := `
		INSERT INTO valuations (
			session_id, brand_code, brand_name, model_code, model_name,
			location_code, location_name, year, kilometers, power, owner, price, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		v.SessionID,
		v.BrandCode,
		v.BrandName,
		v.ModelCode,
		v.ModelName,
		v.LocationCode,
		v.LocationName,
		v.Year,
		v.Kilometers,
		v.Power,
		string(v.Owner),
		v.Price,
		createdAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create valuation: %w", err)
	}

	v.ID = id
	v.CreatedAt = createdAt
	return id, nil
}

// RecordValuation stores a published prediction.
func (r *ValuationRepository) RecordValuation(ctx context.Context, v *models.Valuation) error {
	id, err := r.Create(ctx, v)
	if err != nil {
		return err
	}
	utils.GetLogger().Debug("Recorded valuation",
		utils.Int64("id", id),
		utils.String("session", v.SessionID),
		utils.Float64("price", v.Price),
	)
	return nil
}

// ListRecent returns the newest valuations first. An empty sessionID lists
// every session.
func (r *ValuationRepository) ListRecent(ctx context.Context, sessionID string, limit int) ([]*models.Valuation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var (
		rows pgx.Rows
		err  error
	)
	if sessionID == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+valuationColumns+` FROM valuations ORDER BY created_at DESC, id DESC LIMIT $1`,
			limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+valuationColumns+` FROM valuations WHERE session_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
			sessionID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list valuations: %w", err)
	}
	defer rows.Close()

	valuations := make([]*models.Valuation, 0)
	for rows.Next() {
		v, err := scanValuation(rows)
		if err != nil {
			return nil, err
		}
		valuations = append(valuations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate valuations: %w", err)
	}

	return valuations, nil
}

// Clear deletes the valuations of one session, or all of them when
// sessionID is empty.
func (r *ValuationRepository) Clear(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		n, err := r.db.ExecContext(ctx, `DELETE FROM valuations`)
		if err != nil {
			return 0, fmt.Errorf("failed to clear valuations: %w", err)
		}
		return n, nil
	}

	n, err := r.db.ExecContext(ctx, `DELETE FROM valuations WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear valuations: %w", err)
	}
	return n, nil
}

func scanValuation(row pgx.Row) (*models.Valuation, error) {
	var v models.Valuation
	var owner string
	err := row.Scan(
		&v.ID,
		&v.SessionID,
		&v.BrandCode,
		&v.BrandName,
		&v.ModelCode,
		&v.ModelName,
		&v.LocationCode,
		&v.LocationName,
		&v.Year,
		&v.Kilometers,
		&v.Power,
		&owner,
		&v.Price,
		&v.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan valuation: %w", err)
	}
	v.Owner = models.Owner(owner)
	return &v, nil
}
