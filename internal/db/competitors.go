package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fitchallenge/internal/gateway"
	"fitchallenge/internal/models"
)

func (d *DB) QueryCompetitors(ctx context.Context, q gateway.CompetitorQuery) ([]models.Competitor, error) {
	order := "name ASC"
	if q.OrderBy == gateway.ByScore {
		order = "score DESC, name ASC"
	}
	rows, err := d.conn.QueryContext(ctx, `SELECT id, name, score FROM competitors ORDER BY `+order)
	if err != nil {
		return nil, fmt.Errorf("querying competitors: %w", err)
	}
	defer rows.Close()

	var list []models.Competitor
	for rows.Next() {
		var c models.Competitor
		if err := rows.Scan(&c.ID, &c.Name, &c.Score); err != nil {
			return nil, fmt.Errorf("scanning competitor: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (d *DB) GetCompetitor(ctx context.Context, id string) (*models.Competitor, error) {
	var c models.Competitor
	err := d.conn.QueryRowContext(ctx, `
		SELECT id, name, score FROM competitors WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Score)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gateway.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting competitor: %w", err)
	}
	return &c, nil
}

func (d *DB) InsertCompetitor(ctx context.Context, name string) (*models.Competitor, error) {
	c := models.Competitor{ID: uuid.NewString(), Name: name}
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO competitors (id, name) VALUES ($1, $2)
	`, c.ID, c.Name)
	if err != nil {
		return nil, fmt.Errorf("inserting competitor: %w", err)
	}
	return &c, nil
}

func (d *DB) UpdateCompetitor(ctx context.Context, id, name string) error {
	err := notFound(d.conn.ExecContext(ctx, `
		UPDATE competitors SET name = $2 WHERE id = $1
	`, id, name))
	if err != nil {
		return fmt.Errorf("updating competitor: %w", err)
	}
	return nil
}

// DeleteCompetitor removes the competitor. Its proofs go with it through the
// foreign key cascade.
func (d *DB) DeleteCompetitor(ctx context.Context, id string) error {
	err := notFound(d.conn.ExecContext(ctx, `DELETE FROM competitors WHERE id = $1`, id))
	if err != nil {
		return fmt.Errorf("deleting competitor: %w", err)
	}
	return nil
}
