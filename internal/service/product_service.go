package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// ProductService инкапсулирует бизнес-логику вокруг каталога
type ProductService struct {
	repo repository.ProductRepository
	log  zerolog.Logger
}

func NewProductService(repo repository.ProductRepository, log zerolog.Logger) *ProductService {
	return &ProductService{repo: repo, log: log.With().Str("component", "products").Logger()}
}

func validProduct(p domain.Product) bool {
	return strings.TrimSpace(p.Name) != "" && strings.TrimSpace(p.Category) != "" && p.Price >= 0 && p.Stock >= 0
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if !validProduct(p) {
		return nil, ErrInvalidInput
	}
	cp := p
	if err := s.repo.Create(ctx, &cp); err != nil {
		s.log.Error().Err(err).Str("name", p.Name).Msg("create product")
		return nil, err
	}
	s.log.Info().Str("product_id", cp.ID).Int64("stock", cp.Stock).Msg("product added")
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if !repository.ValidID(id) {
		return nil, ErrInvalidID
	}
	return s.repo.GetByID(ctx, id)
}

// Update заменяет карточку товара; пустой список изображений сохраняет прежние
func (s *ProductService) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if !repository.ValidID(p.ID) {
		return nil, ErrInvalidID
	}
	if !validProduct(p) {
		return nil, ErrInvalidInput
	}
	current, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	cp := p
	cp.Date = current.Date
	if len(cp.Images) == 0 {
		cp.Images = current.Images
	}
	if err := s.repo.Update(ctx, &cp); err != nil {
		s.log.Error().Err(err).Str("product_id", p.ID).Msg("update product")
		return nil, err
	}
	return &cp, nil
}

// UpdateStock прямое изменение остатка администратором
func (s *ProductService) UpdateStock(ctx context.Context, id string, stock int64) (*domain.Product, error) {
	if !repository.ValidID(id) {
		return nil, ErrInvalidID
	}
	if stock < 0 {
		return nil, ErrInvalidInput
	}
	p, err := s.repo.SetStock(ctx, id, stock)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("product_id", id).Int64("stock", stock).Msg("stock set by admin")
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if !repository.ValidID(id) {
		return ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}

func (s *ProductService) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	return s.repo.List(ctx, f)
}
