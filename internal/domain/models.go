package domain

import "time"

// Product представляет товар витрины
type Product struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	SubCategory string    `json:"subCategory"`
	Sizes       []string  `json:"sizes"`
	Bestseller  bool      `json:"bestseller"`
	Images      []string  `json:"image"`
	Stock       int64     `json:"stock"`
	Date        time.Time `json:"date"`
}

// PaymentMethod способ оплаты заказа
type PaymentMethod string

const (
	PaymentCOD      PaymentMethod = "COD"
	PaymentStripe   PaymentMethod = "Stripe"
	PaymentRazorpay PaymentMethod = "Razorpay"
)

// IsGateway сообщает, проходит ли оплата через внешний шлюз
func (m PaymentMethod) IsGateway() bool {
	return m == PaymentStripe || m == PaymentRazorpay
}

// LineItem позиция в заказе
type LineItem struct {
	ProductID string  `json:"_id" binding:"required,objectid"`
	Name      string  `json:"name"`
	Quantity  int64   `json:"quantity" binding:"required,gt=0"`
	Price     float64 `json:"price" binding:"gte=0"`
	Size      string  `json:"size"`
}

// Address адрес доставки
type Address struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Country   string `json:"country"`
	Zipcode   string `json:"zipcode"`
	Phone     string `json:"phone"`
}

// Order сущность заказа
type Order struct {
	ID            string        `json:"_id"`
	UserID        string        `json:"userId"`
	Items         []LineItem    `json:"items"`
	Address       Address       `json:"address"`
	Amount        float64       `json:"amount"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Payment       bool          `json:"payment"`
	Status        OrderStatus   `json:"status"`
	GatewayRef    string        `json:"gatewayRef,omitempty"`
	Date          time.Time     `json:"date"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Quantities суммирует количество по товарам (разные размеры одного товара складываются)
func (o *Order) Quantities() map[string]int64 {
	return SumQuantities(o.Items)
}

func SumQuantities(items []LineItem) map[string]int64 {
	out := make(map[string]int64, len(items))
	for _, it := range items {
		out[it.ProductID] += it.Quantity
	}
	return out
}

// Cart корзина пользователя: товар -> размер -> количество
type Cart map[string]map[string]int64

// User покупатель или администратор
type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	IsBanned     bool      `json:"isBanned"`
	CartData     Cart      `json:"cartData"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Review отзыв о товаре
type Review struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	UserName  string    `json:"userName"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Date      time.Time `json:"date"`
}
