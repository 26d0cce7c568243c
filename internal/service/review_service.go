package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

const (
	minRating = 1
	maxRating = 5
)

// ReviewService отзывы покупателей о товарах
type ReviewService struct {
	reviews  repository.ReviewRepository
	products repository.ProductRepository
	users    repository.UserRepository
	log      zerolog.Logger
}

func NewReviewService(reviews repository.ReviewRepository, products repository.ProductRepository, users repository.UserRepository, log zerolog.Logger) *ReviewService {
	return &ReviewService{reviews: reviews, products: products, users: users, log: log.With().Str("component", "reviews").Logger()}
}

// Add сохраняет отзыв; имя автора копируется из профиля
func (s *ReviewService) Add(ctx context.Context, userID, productID string, rating int, comment string) (*domain.Review, error) {
	if !repository.ValidID(productID) {
		return nil, ErrInvalidID
	}
	if rating < minRating || rating > maxRating {
		return nil, fmt.Errorf("%w: rating must be between %d and %d", ErrInvalidInput, minRating, maxRating)
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	r := &domain.Review{
		UserID:    userID,
		ProductID: productID,
		UserName:  u.Name,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
	}
	if err := s.reviews.Create(ctx, r); err != nil {
		s.log.Error().Err(err).Str("product_id", productID).Msg("create review")
		return nil, err
	}
	return r, nil
}

func (s *ReviewService) ForProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	if !repository.ValidID(productID) {
		return nil, ErrInvalidID
	}
	return s.reviews.ListByProduct(ctx, productID)
}

func (s *ReviewService) List(ctx context.Context) ([]domain.Review, error) {
	return s.reviews.List(ctx)
}

func (s *ReviewService) Delete(ctx context.Context, id string) error {
	if !repository.ValidID(id) {
		return ErrInvalidID
	}
	return s.reviews.Delete(ctx, id)
}
