package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/isdelr/adboard-be/internal/models"
)

const commentColumns = "id, text, created_at, ad_id, author_id"

// CommentStore persists comments.
type CommentStore struct {
	db *sql.DB
}

// NewCommentStore creates a new CommentStore.
func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

func scanComment(scanner rowScanner) (models.Comment, error) {
	var c models.Comment
	if err := scanner.Scan(&c.ID, &c.Text, &c.CreatedAt, &c.AdID, &c.AuthorID); err != nil {
		return models.Comment{}, err
	}
	return c, nil
}

// Create inserts a comment and returns it with its assigned ID.
func (s *CommentStore) Create(ctx context.Context, c models.Comment) (models.Comment, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO comments (text, created_at, ad_id, author_id) VALUES (?, ?, ?, ?)",
		c.Text, c.CreatedAt.UTC(), c.AdID, c.AuthorID)
	if err != nil {
		return models.Comment{}, fmt.Errorf("inserting comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Comment{}, fmt.Errorf("reading comment id: %w", err)
	}
	c.ID = id
	return c, nil
}

// GetByID retrieves a single comment by its ID.
func (s *CommentStore) GetByID(ctx context.Context, id int64) (models.Comment, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+commentColumns+" FROM comments WHERE id = ?", id)
	c, err := scanComment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Comment{}, fmt.Errorf("comment with id %d: %w", id, ErrNotFound)
		}
		return models.Comment{}, err
	}
	return c, nil
}

// ListByAd returns the comments of an ad in insertion order.
func (s *CommentStore) ListByAd(ctx context.Context, adID int64) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+commentColumns+" FROM comments WHERE ad_id = ? ORDER BY id", adID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// UpdateText replaces the text of a comment. CreatedAt is never touched.
func (s *CommentStore) UpdateText(ctx context.Context, id int64, text string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE comments SET text = ? WHERE id = ?", text, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("comment with id %d: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes a comment.
func (s *CommentStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("comment with id %d: %w", id, ErrNotFound)
	}
	return nil
}
