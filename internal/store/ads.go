package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/isdelr/adboard-be/internal/models"
)

const adColumns = "id, title, price, description, image, author_id"

// AdStore persists ads.
type AdStore struct {
	db *sql.DB
}

// NewAdStore creates a new AdStore.
func NewAdStore(db *sql.DB) *AdStore {
	return &AdStore{db: db}
}

func scanAd(scanner rowScanner) (models.Ad, error) {
	var ad models.Ad
	var image sql.NullString
	if err := scanner.Scan(&ad.ID, &ad.Title, &ad.Price, &ad.Description, &image, &ad.AuthorID); err != nil {
		return models.Ad{}, err
	}
	ad.Image = image.String
	return ad, nil
}

// Create inserts an ad and returns it with its assigned ID.
func (s *AdStore) Create(ctx context.Context, ad models.Ad) (models.Ad, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO ads (title, price, description, image, author_id) VALUES (?, ?, ?, ?, ?)",
		ad.Title, ad.Price, ad.Description, nullString(ad.Image), ad.AuthorID)
	if err != nil {
		return models.Ad{}, fmt.Errorf("inserting ad: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Ad{}, fmt.Errorf("reading ad id: %w", err)
	}
	ad.ID = id
	return ad, nil
}

// GetByID retrieves a single ad by its ID.
func (s *AdStore) GetByID(ctx context.Context, id int64) (models.Ad, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+adColumns+" FROM ads WHERE id = ?", id)
	ad, err := scanAd(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Ad{}, fmt.Errorf("ad with id %d: %w", id, ErrNotFound)
		}
		return models.Ad{}, err
	}
	return ad, nil
}

// List returns every ad in insertion order.
func (s *AdStore) List(ctx context.Context) ([]models.Ad, error) {
	return s.query(ctx, "SELECT "+adColumns+" FROM ads ORDER BY id")
}

// ListByAuthor returns the ads owned by a user in insertion order.
func (s *AdStore) ListByAuthor(ctx context.Context, authorID int64) ([]models.Ad, error) {
	return s.query(ctx, "SELECT "+adColumns+" FROM ads WHERE author_id = ? ORDER BY id", authorID)
}

func (s *AdStore) query(ctx context.Context, query string, args ...any) ([]models.Ad, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ads := []models.Ad{}
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, err
		}
		ads = append(ads, ad)
	}
	return ads, rows.Err()
}

// UpdateFields overwrites the title, price and description of an ad.
func (s *AdStore) UpdateFields(ctx context.Context, id int64, f models.AdFields) error {
	return s.exec(ctx, id, "UPDATE ads SET title = ?, price = ?, description = ? WHERE id = ?",
		f.Title, f.Price, f.Description, id)
}

// UpdateImage sets the image filename of an ad.
func (s *AdStore) UpdateImage(ctx context.Context, id int64, image string) error {
	return s.exec(ctx, id, "UPDATE ads SET image = ? WHERE id = ?", nullString(image), id)
}

// Delete removes an ad together with its comments.
func (s *AdStore) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM comments WHERE ad_id = ?", id); err != nil {
		return fmt.Errorf("deleting comments of ad %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM ads WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting ad %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("ad with id %d: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

// ImageRefs returns the set of image filenames referenced by ads.
func (s *AdStore) ImageRefs(ctx context.Context) (map[string]bool, error) {
	return imageRefs(ctx, s.db, "ads")
}

func (s *AdStore) exec(ctx context.Context, id int64, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("ad with id %d: %w", id, ErrNotFound)
	}
	return nil
}
