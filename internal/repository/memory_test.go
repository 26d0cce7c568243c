package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

func TestMemoryStore_ProductCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := domain.Product{Name: "A", Category: "Men", Price: 10, Stock: 5, Sizes: []string{"M"}}
	require.NoError(t, store.Create(ctx, &p))
	require.True(t, ValidID(p.ID), "bad id %q", p.ID)

	got, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)
	// returned copies do not alias stored slices
	got.Sizes[0] = "XL"
	again, _ := store.GetByID(ctx, p.ID)
	assert.Equal(t, "M", again.Sizes[0], "stored product mutated through copy")

	p.Price = 12
	require.NoError(t, store.Update(ctx, &p))

	require.NoError(t, store.Delete(ctx, p.ID))
	_, err = store.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_AdjustStock(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := domain.Product{Name: "A", Price: 10, Stock: 2}
	require.NoError(t, store.Create(ctx, &p))

	require.NoError(t, store.AdjustStock(ctx, p.ID, -2))
	err := store.AdjustStock(ctx, p.ID, -1)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	require.NoError(t, store.AdjustStock(ctx, p.ID, 3))

	got, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.Stock)

	assert.ErrorIs(t, store.AdjustStock(ctx, NewID(), 1), ErrNotFound)

	set, err := store.SetStock(ctx, p.ID, 40)
	require.NoError(t, err)
	assert.EqualValues(t, 40, set.Stock)
}

func TestMemoryTx_TransactionalUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	orders := NewMemoryOrders(store)

	// seed product
	p := domain.Product{Name: "A", Price: 10, Stock: 5}
	require.NoError(t, store.Create(ctx, &p))

	// emulate atomic create order with stock decrease
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		pp, err := store.GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		require.GreaterOrEqual(t, pp.Stock, int64(3), "stock precondition")
		if err := store.AdjustStock(ctx, p.ID, -3); err != nil {
			return err
		}
		// nested transactions reuse the held lock
		return tx.WithTransaction(ctx, func(ctx context.Context) error {
			o := domain.Order{UserID: NewID(), Items: []domain.LineItem{{ProductID: p.ID, Quantity: 3}}, Status: domain.StatusOrderPlaced}
			return orders.Create(ctx, &o)
		})
	})
	require.NoError(t, err)

	// check stock after
	pp, _ := store.GetByID(context.Background(), p.ID)
	assert.EqualValues(t, 2, pp.Stock)
	list, _ := orders.List(ctx)
	assert.Len(t, list, 1)
}

func TestMemoryOrders_ListByUser_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	orders := NewMemoryOrders(store)
	alice, bob := NewID(), NewID()

	for _, uid := range []string{alice, alice, bob} {
		o := domain.Order{UserID: uid, Status: domain.StatusOrderPlaced}
		require.NoError(t, orders.Create(ctx, &o))
	}
	mine, err := orders.ListByUser(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := orders.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	require.NoError(t, orders.Delete(ctx, all[0].ID))
	assert.ErrorIs(t, orders.Delete(ctx, all[0].ID), ErrNotFound)
}

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUsers(NewMemoryStore())

	u := domain.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "x"}
	require.NoError(t, users.Create(ctx, &u))
	dup := domain.User{Name: "Ann 2", Email: "ANN@example.com"}
	assert.ErrorIs(t, users.Create(ctx, &dup), ErrDuplicate)

	got, err := users.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, users.SetCart(ctx, u.ID, domain.Cart{"p1": {"M": 2}}))
	require.NoError(t, users.SetBanned(ctx, u.ID, true))
	got, err = users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsBanned)
	assert.EqualValues(t, 2, got.CartData["p1"]["M"])

	require.NoError(t, users.Delete(ctx, u.ID))
	_, err = users.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryReviews(t *testing.T) {
	ctx := context.Background()
	reviews := NewMemoryReviews(NewMemoryStore())
	p1, p2 := NewID(), NewID()
	for _, pid := range []string{p1, p1, p2} {
		r := domain.Review{ProductID: pid, UserID: NewID(), Rating: 4}
		require.NoError(t, reviews.Create(ctx, &r))
	}
	list, err := reviews.ListByProduct(ctx, p1)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, reviews.Delete(ctx, list[0].ID))
	all, err := reviews.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestList_Filtering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	add := func(n, category string, price float64, best bool) {
		p := domain.Product{Name: n, Category: category, Price: price, Stock: 1, Bestseller: best}
		require.NoError(t, store.Create(ctx, &p))
	}
	add("Cotton Shirt", "Men", 100, true)
	add("Linen Dress", "Women", 50, false)
	add("Denim Jacket", "Men", 150, false)

	// name contains
	list, _ := store.List(ctx, ProductFilter{NameSubstring: "en"})
	assert.Len(t, list, 2, "name filter")

	// category
	list, _ = store.List(ctx, ProductFilter{Category: "men"})
	assert.Len(t, list, 2, "category filter")

	// bestseller
	best := true
	list, _ = store.List(ctx, ProductFilter{Bestseller: &best})
	require.Len(t, list, 1)
	assert.Equal(t, "Cotton Shirt", list[0].Name)

	// min
	min := 100.0
	list, _ = store.List(ctx, ProductFilter{MinPrice: &min})
	assert.Len(t, list, 2)
	for _, p := range list {
		assert.GreaterOrEqual(t, p.Price, min)
	}

	// max
	max := 100.0
	list, _ = store.List(ctx, ProductFilter{MaxPrice: &max})
	assert.Len(t, list, 2)
	for _, p := range list {
		assert.LessOrEqual(t, p.Price, max)
	}
}
