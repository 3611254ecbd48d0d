package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/adboard-be/internal/auth"
	"github.com/isdelr/adboard-be/internal/mapper"
	"github.com/isdelr/adboard-be/internal/metrics"
	"github.com/isdelr/adboard-be/internal/models"
	"github.com/isdelr/adboard-be/internal/store"
	"github.com/isdelr/adboard-be/internal/websocket"
)

// CommentServiceProvider defines the interface for comment services.
type CommentServiceProvider interface {
	List(ctx context.Context, adID int64) (mapper.Comments, error)
	Create(ctx context.Context, adID int64, text string, actor models.User) (mapper.Comment, error)
	Update(ctx context.Context, adID, commentID int64, text string, actor models.User) (mapper.Comment, error)
	Delete(ctx context.Context, adID, commentID int64, actor models.User) error
}

// CommentService provides business logic for comments on ads.
type CommentService struct {
	comments CommentRepository
	ads      AdRepository
	users    UserRepository
	events   EventPublisher
	now      func() time.Time
}

// NewCommentService creates a new CommentService.
func NewCommentService(comments CommentRepository, ads AdRepository, users UserRepository) *CommentService {
	return &CommentService{comments: comments, ads: ads, users: users, events: noopPublisher{}, now: time.Now}
}

// SetEvents makes the service publish comment events to p.
func (s *CommentService) SetEvents(p EventPublisher) {
	s.events = p
}

// List returns the comments of an ad.
func (s *CommentService) List(ctx context.Context, adID int64) (mapper.Comments, error) {
	if _, err := s.ad(ctx, adID); err != nil {
		return mapper.Comments{}, err
	}
	comments, err := s.comments.ListByAd(ctx, adID)
	if err != nil {
		return mapper.Comments{}, fmt.Errorf("listing comments of ad %d: %w", adID, err)
	}

	// Authors are looked up once per distinct id.
	authors := make(map[int64]models.User)
	results := make([]mapper.Comment, 0, len(comments))
	for _, c := range comments {
		author, ok := authors[c.AuthorID]
		if !ok {
			author, err = s.users.GetByID(ctx, c.AuthorID)
			if err != nil {
				return mapper.Comments{}, fmt.Errorf("loading author of comment %d: %w", c.ID, err)
			}
			authors[c.AuthorID] = author
		}
		results = append(results, mapper.ToComment(c, author))
	}
	return mapper.Comments{Count: len(results), Results: results}, nil
}

// Create adds a comment by actor to an existing ad.
func (s *CommentService) Create(ctx context.Context, adID int64, text string, actor models.User) (mapper.Comment, error) {
	ad, err := s.ad(ctx, adID)
	if err != nil {
		return mapper.Comment{}, err
	}
	author, err := s.user(ctx, actor.ID)
	if err != nil {
		return mapper.Comment{}, err
	}

	c, err := s.comments.Create(ctx, models.Comment{
		Text:      text,
		CreatedAt: s.now(),
		AdID:      ad.ID,
		AuthorID:  author.ID,
	})
	if err != nil {
		return mapper.Comment{}, fmt.Errorf("creating comment: %w", err)
	}

	out := mapper.ToComment(c, author)
	metrics.CommentsCreatedTotal.Inc()
	s.events.Publish(websocket.AdTopic(adID), "comment.created", out)
	log.Info().Int64("comment_id", c.ID).Int64("ad_id", adID).Int64("author_id", author.ID).Msg("Comment created")
	return out, nil
}

// Update replaces the text of a comment.
func (s *CommentService) Update(ctx context.Context, adID, commentID int64, text string, actor models.User) (mapper.Comment, error) {
	c, err := s.mutable(ctx, adID, commentID, actor)
	if err != nil {
		return mapper.Comment{}, err
	}
	if err := s.comments.UpdateText(ctx, commentID, text); err != nil {
		return mapper.Comment{}, fmt.Errorf("updating comment: %w", err)
	}
	c.Text = text

	author, err := s.users.GetByID(ctx, c.AuthorID)
	if err != nil {
		return mapper.Comment{}, fmt.Errorf("loading author of comment %d: %w", c.ID, err)
	}

	out := mapper.ToComment(c, author)
	s.events.Publish(websocket.AdTopic(adID), "comment.updated", out)
	log.Info().Int64("comment_id", commentID).Int64("actor_id", actor.ID).Msg("Comment updated")
	return out, nil
}

// Delete removes a comment.
func (s *CommentService) Delete(ctx context.Context, adID, commentID int64, actor models.User) error {
	if _, err := s.mutable(ctx, adID, commentID, actor); err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}
	s.events.Publish(websocket.AdTopic(adID), "comment.deleted", map[string]int64{"pk": commentID})
	log.Info().Int64("comment_id", commentID).Int64("actor_id", actor.ID).Msg("Comment deleted")
	return nil
}

// mutable loads a comment, checks it belongs to adID and that actor may change it.
func (s *CommentService) mutable(ctx context.Context, adID, commentID int64, actor models.User) (models.Comment, error) {
	c, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Comment{}, notFound("comment with id %d not found", commentID)
		}
		return models.Comment{}, err
	}
	if c.AdID != adID {
		return models.Comment{}, notFound("comment %d does not belong to ad %d", commentID, adID)
	}
	current, err := s.user(ctx, actor.ID)
	if err != nil {
		return models.Comment{}, err
	}
	if !auth.CanMutate(current, c.AuthorID) {
		log.Warn().Int64("comment_id", commentID).Int64("actor_id", current.ID).Msg("Comment mutation denied")
		return models.Comment{}, forbidden("no permission to modify comment %d", commentID)
	}
	return c, nil
}

func (s *CommentService) ad(ctx context.Context, id int64) (models.Ad, error) {
	ad, err := s.ads.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Ad{}, notFound("ad with id %d not found", id)
		}
		return models.Ad{}, err
	}
	return ad, nil
}

func (s *CommentService) user(ctx context.Context, id int64) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, notFound("user with id %d not found", id)
		}
		return models.User{}, err
	}
	return user, nil
}
