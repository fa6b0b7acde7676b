package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"fitchallenge/internal/gateway"
	"fitchallenge/internal/models"
)

const proofColumns = `
	p.id, p.created_at, COALESCE(p.competitor_id, ''), p.event_type, p.points, p.photo_url,
	c.id, c.name`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProof(row rowScanner) (models.Proof, error) {
	var (
		p        models.Proof
		photo    sql.NullString
		compID   sql.NullString
		compName sql.NullString
	)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.CompetitorID, &p.EventType, &p.Points, &photo, &compID, &compName); err != nil {
		return p, err
	}
	if photo.Valid {
		p.PhotoURL = &photo.String
	}
	if compID.Valid {
		p.Competitor = &models.CompetitorRef{ID: compID.String, Name: compName.String}
	}
	return p, nil
}

func (d *DB) QueryProofs(ctx context.Context, q gateway.ProofQuery) ([]models.Proof, error) {
	var (
		where []string
		args  []any
	)
	if !q.From.IsZero() {
		args = append(args, q.From)
		where = append(where, fmt.Sprintf("p.created_at >= $%d", len(args)))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		where = append(where, fmt.Sprintf("p.created_at < $%d", len(args)))
	}

	query := `SELECT ` + proofColumns + ` FROM proofs p LEFT JOIN competitors c ON c.id = p.competitor_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if q.Newest {
		query += " ORDER BY p.created_at DESC, p.id"
	} else {
		query += " ORDER BY p.created_at ASC, p.id"
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying proofs: %w", err)
	}
	defer rows.Close()

	var list []models.Proof
	for rows.Next() {
		p, err := scanProof(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning proof: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (d *DB) GetProof(ctx context.Context, id string) (*models.Proof, error) {
	row := d.conn.QueryRowContext(ctx, `SELECT `+proofColumns+`
		FROM proofs p LEFT JOIN competitors c ON c.id = p.competitor_id
		WHERE p.id = $1`, id)
	p, err := scanProof(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gateway.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting proof: %w", err)
	}
	return &p, nil
}

func (d *DB) InsertProof(ctx context.Context, p models.Proof) (*models.Proof, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	var createdAt any
	if !p.CreatedAt.IsZero() {
		createdAt = p.CreatedAt
	}
	err := d.conn.QueryRowContext(ctx, `
		INSERT INTO proofs (id, created_at, competitor_id, event_type, points, photo_url)
		VALUES ($1, COALESCE($2::timestamptz, now()), $3, $4, $5, $6)
		RETURNING created_at
	`, p.ID, createdAt, p.CompetitorID, p.EventType, p.Points, p.PhotoURL).Scan(&p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting proof: %w", err)
	}
	return d.GetProof(ctx, p.ID)
}

func (d *DB) UpdateProof(ctx context.Context, id string, patch models.ProofPatch) error {
	err := notFound(d.conn.ExecContext(ctx, `
		UPDATE proofs SET event_type = $2, points = $3, photo_url = $4 WHERE id = $1
	`, id, patch.EventType, patch.Points, patch.PhotoURL))
	if err != nil {
		return fmt.Errorf("updating proof: %w", err)
	}
	return nil
}

func (d *DB) DeleteProof(ctx context.Context, id string) error {
	err := notFound(d.conn.ExecContext(ctx, `DELETE FROM proofs WHERE id = $1`, id))
	if err != nil {
		return fmt.Errorf("deleting proof: %w", err)
	}
	return nil
}
