package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/adboard-be/internal/auth"
	"github.com/isdelr/adboard-be/internal/mapper"
	"github.com/isdelr/adboard-be/internal/metrics"
	"github.com/isdelr/adboard-be/internal/models"
	"github.com/isdelr/adboard-be/internal/storage"
	"github.com/isdelr/adboard-be/internal/store"
	"github.com/isdelr/adboard-be/internal/websocket"
)

// AdServiceProvider defines the interface for ad services.
type AdServiceProvider interface {
	ListAll(ctx context.Context) (mapper.Ads, error)
	Create(ctx context.Context, fields models.AdFields, image *models.Image, actor models.User) (mapper.Ad, error)
	Get(ctx context.Context, id int64) (mapper.ExtendedAd, error)
	Update(ctx context.Context, id int64, fields models.AdFields, actor models.User) (mapper.Ad, error)
	Delete(ctx context.Context, id int64, actor models.User) error
	ListMine(ctx context.Context, actor models.User) (mapper.Ads, error)
	ReplaceImage(ctx context.Context, id int64, image *models.Image, actor models.User) error
	FetchImage(ctx context.Context, id int64) ([]byte, error)
}

// AdService provides business logic for ad management.
type AdService struct {
	ads    AdRepository
	users  UserRepository
	images ImageRepository
	events EventPublisher
}

// NewAdService creates a new AdService.
func NewAdService(ads AdRepository, users UserRepository, images ImageRepository) *AdService {
	return &AdService{ads: ads, users: users, images: images, events: noopPublisher{}}
}

// SetEvents makes the service publish ad lifecycle events to p.
func (s *AdService) SetEvents(p EventPublisher) {
	s.events = p
}

// ListAll returns every ad in storage order.
func (s *AdService) ListAll(ctx context.Context) (mapper.Ads, error) {
	ads, err := s.ads.List(ctx)
	if err != nil {
		return mapper.Ads{}, fmt.Errorf("listing ads: %w", err)
	}
	log.Debug().Int("count", len(ads)).Msg("Listed all ads")
	return mapper.ToAds(ads), nil
}

// Create stores the image and inserts a new ad authored by actor.
func (s *AdService) Create(ctx context.Context, fields models.AdFields, image *models.Image, actor models.User) (mapper.Ad, error) {
	author, err := s.user(ctx, actor.ID)
	if err != nil {
		return mapper.Ad{}, err
	}
	if image.Empty() {
		return mapper.Ad{}, invalid("ad image is required")
	}

	filename, err := s.images.Save(ctx, image.Data, storage.NamespaceAds, image.Filename)
	if err != nil {
		return mapper.Ad{}, fmt.Errorf("saving ad image: %w", err)
	}

	ad, err := s.ads.Create(ctx, models.Ad{
		Title:       fields.Title,
		Price:       fields.Price,
		Description: fields.Description,
		Image:       filename,
		AuthorID:    author.ID,
	})
	if err != nil {
		discardImage(s.images, storage.NamespaceAds, filename)
		return mapper.Ad{}, fmt.Errorf("creating ad: %w", err)
	}

	out := mapper.ToAd(ad)
	metrics.AdsCreatedTotal.Inc()
	s.events.Publish(websocket.TopicAds, "ad.created", out)
	log.Info().Int64("ad_id", ad.ID).Str("author", author.Email).Msg("Ad created")
	return out, nil
}

// Get returns an ad together with its author's contact details.
func (s *AdService) Get(ctx context.Context, id int64) (mapper.ExtendedAd, error) {
	ad, err := s.ad(ctx, id)
	if err != nil {
		return mapper.ExtendedAd{}, err
	}
	author, err := s.users.GetByID(ctx, ad.AuthorID)
	if err != nil {
		return mapper.ExtendedAd{}, fmt.Errorf("loading author of ad %d: %w", id, err)
	}
	return mapper.ToExtendedAd(ad, author), nil
}

// Update overwrites title, price and description. The image is left alone.
func (s *AdService) Update(ctx context.Context, id int64, fields models.AdFields, actor models.User) (mapper.Ad, error) {
	ad, err := s.mutable(ctx, id, actor)
	if err != nil {
		return mapper.Ad{}, err
	}

	if err := s.ads.UpdateFields(ctx, id, fields); err != nil {
		return mapper.Ad{}, fmt.Errorf("updating ad: %w", err)
	}
	ad.Title, ad.Price, ad.Description = fields.Title, fields.Price, fields.Description

	out := mapper.ToAd(ad)
	s.events.Publish(websocket.TopicAds, "ad.updated", out)
	log.Info().Int64("ad_id", id).Int64("actor_id", actor.ID).Msg("Ad updated")
	return out, nil
}

// Delete removes an ad with its comments, then its image. A failure to
// remove the image file is logged and does not fail the call.
func (s *AdService) Delete(ctx context.Context, id int64, actor models.User) error {
	ad, err := s.mutable(ctx, id, actor)
	if err != nil {
		return err
	}

	if err := s.ads.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting ad: %w", err)
	}
	discardImage(s.images, storage.NamespaceAds, ad.Image)

	metrics.AdsDeletedTotal.Inc()
	s.events.Publish(websocket.TopicAds, "ad.deleted", map[string]int64{"pk": id})
	log.Info().Int64("ad_id", id).Int64("actor_id", actor.ID).Msg("Ad deleted")
	return nil
}

// ListMine returns the ads authored by actor.
func (s *AdService) ListMine(ctx context.Context, actor models.User) (mapper.Ads, error) {
	user, err := s.user(ctx, actor.ID)
	if err != nil {
		return mapper.Ads{}, err
	}
	ads, err := s.ads.ListByAuthor(ctx, user.ID)
	if err != nil {
		return mapper.Ads{}, fmt.Errorf("listing ads of user %d: %w", user.ID, err)
	}
	return mapper.ToAds(ads), nil
}

// ReplaceImage swaps the image of an ad. The old file is removed first on a
// best-effort basis.
func (s *AdService) ReplaceImage(ctx context.Context, id int64, image *models.Image, actor models.User) error {
	ad, err := s.mutable(ctx, id, actor)
	if err != nil {
		return err
	}
	if image.Empty() {
		return invalid("image file is missing or empty")
	}

	discardImage(s.images, storage.NamespaceAds, ad.Image)

	filename, err := s.images.Save(ctx, image.Data, storage.NamespaceAds, image.Filename)
	if err != nil {
		return fmt.Errorf("saving ad image: %w", err)
	}
	if err := s.ads.UpdateImage(ctx, id, filename); err != nil {
		discardImage(s.images, storage.NamespaceAds, filename)
		return fmt.Errorf("updating ad image: %w", err)
	}

	s.events.Publish(websocket.TopicAds, "ad.image_updated", map[string]int64{"pk": id})
	log.Info().Int64("ad_id", id).Msg("Ad image updated")
	return nil
}

// FetchImage returns the image bytes of an ad, or an empty slice when the ad
// or its image does not exist.
func (s *AdService) FetchImage(ctx context.Context, id int64) ([]byte, error) {
	ad, err := s.ads.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []byte{}, nil
		}
		return nil, err
	}
	if ad.Image == "" {
		log.Warn().Int64("ad_id", id).Msg("Ad has no image")
		return []byte{}, nil
	}
	data, err := s.images.Load(storage.NamespaceAds, ad.Image)
	if err != nil {
		log.Error().Err(err).Int64("ad_id", id).Msg("Failed to read ad image")
		return []byte{}, nil
	}
	return data, nil
}

func (s *AdService) ad(ctx context.Context, id int64) (models.Ad, error) {
	ad, err := s.ads.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Ad{}, notFound("ad with id %d not found", id)
		}
		return models.Ad{}, err
	}
	return ad, nil
}

func (s *AdService) user(ctx context.Context, id int64) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, notFound("user with id %d not found", id)
		}
		return models.User{}, err
	}
	return user, nil
}

// mutable loads an ad and the acting user and checks that the actor may
// change the ad.
func (s *AdService) mutable(ctx context.Context, id int64, actor models.User) (models.Ad, error) {
	ad, err := s.ad(ctx, id)
	if err != nil {
		return models.Ad{}, err
	}
	current, err := s.user(ctx, actor.ID)
	if err != nil {
		return models.Ad{}, err
	}
	if !auth.CanMutate(current, ad.AuthorID) {
		log.Warn().Int64("ad_id", id).Int64("actor_id", current.ID).Msg("Ad mutation denied")
		return models.Ad{}, forbidden("no permission to modify ad %d", id)
	}
	return ad, nil
}

// discardImage deletes a stored image, logging instead of failing.
func discardImage(images ImageRepository, namespace, filename string) {
	if filename == "" {
		return
	}
	if err := images.Delete(namespace, filename); err != nil {
		metrics.ImageCleanupFailuresTotal.WithLabelValues(namespace).Inc()
		log.Warn().Err(err).Str("namespace", namespace).Str("filename", filename).Msg("Failed to delete image")
	}
}
