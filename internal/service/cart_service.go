package service

import (
	"context"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// CartService корзина хранится в профиле пользователя
type CartService struct {
	users    repository.UserRepository
	products repository.ProductRepository
	tx       repository.TxManager
}

func NewCartService(users repository.UserRepository, products repository.ProductRepository, tx repository.TxManager) *CartService {
	return &CartService{users: users, products: products, tx: tx}
}

// Add увеличивает количество товара выбранного размера на единицу
func (s *CartService) Add(ctx context.Context, userID, productID, size string) (domain.Cart, error) {
	if !repository.ValidID(productID) {
		return nil, ErrInvalidID
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.modify(ctx, userID, func(c domain.Cart) {
		if c[productID] == nil {
			c[productID] = make(map[string]int64)
		}
		c[productID][size]++
	})
}

// Update задаёт количество; ноль удаляет позицию
func (s *CartService) Update(ctx context.Context, userID, productID, size string, quantity int64) (domain.Cart, error) {
	if !repository.ValidID(productID) {
		return nil, ErrInvalidID
	}
	if quantity < 0 {
		return nil, ErrInvalidInput
	}
	return s.modify(ctx, userID, func(c domain.Cart) {
		if quantity == 0 {
			delete(c[productID], size)
			if len(c[productID]) == 0 {
				delete(c, productID)
			}
			return
		}
		if c[productID] == nil {
			c[productID] = make(map[string]int64)
		}
		c[productID][size] = quantity
	})
}

func (s *CartService) Get(ctx context.Context, userID string) (domain.Cart, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.CartData == nil {
		return domain.Cart{}, nil
	}
	return u.CartData, nil
}

func (s *CartService) modify(ctx context.Context, userID string, fn func(domain.Cart)) (domain.Cart, error) {
	var cart domain.Cart
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		cart = u.CartData
		if cart == nil {
			cart = domain.Cart{}
		}
		fn(cart)
		return s.users.SetCart(ctx, userID, cart)
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}
