package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/domain"
)

const (
	productsCollection = "products"
	ordersCollection   = "orders"
	usersCollection    = "users"
	reviewsCollection  = "reviews"
)

// Connect открывает клиент MongoDB и проверяет соединение
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// EnsureIndexes создаёт индексы коллекций
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users index: %w", err)
	}
	if _, err := db.Collection(ordersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}},
	}); err != nil {
		return fmt.Errorf("orders index: %w", err)
	}
	if _, err := db.Collection(reviewsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "productId", Value: 1}},
	}); err != nil {
		return fmt.Errorf("reviews index: %w", err)
	}
	return nil
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// Products

type productDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	Price       float64            `bson:"price"`
	Category    string             `bson:"category"`
	SubCategory string             `bson:"subCategory"`
	Sizes       []string           `bson:"sizes"`
	Bestseller  bool               `bson:"bestseller"`
	Images      []string           `bson:"image"`
	Stock       int64              `bson:"stock"`
	Date        time.Time          `bson:"date"`
}

func toProductDoc(p *domain.Product, oid primitive.ObjectID) productDoc {
	return productDoc{
		ID: oid, Name: p.Name, Description: p.Description, Price: p.Price,
		Category: p.Category, SubCategory: p.SubCategory, Sizes: p.Sizes,
		Bestseller: p.Bestseller, Images: p.Images, Stock: p.Stock, Date: p.Date,
	}
}

func (d productDoc) domain() domain.Product {
	return domain.Product{
		ID: d.ID.Hex(), Name: d.Name, Description: d.Description, Price: d.Price,
		Category: d.Category, SubCategory: d.SubCategory, Sizes: d.Sizes,
		Bestseller: d.Bestseller, Images: d.Images, Stock: d.Stock, Date: d.Date,
	}
}

// MongoProducts реализация ProductRepository на MongoDB
type MongoProducts struct{ coll *mongo.Collection }

func NewMongoProducts(db *mongo.Database) *MongoProducts {
	return &MongoProducts{coll: db.Collection(productsCollection)}
}

var _ ProductRepository = (*MongoProducts)(nil)

func (r *MongoProducts) Create(ctx context.Context, p *domain.Product) error {
	oid := primitive.NewObjectID()
	if p.Date.IsZero() {
		p.Date = time.Now().UTC()
	}
	if _, err := r.coll.InsertOne(ctx, toProductDoc(p, oid)); err != nil {
		return err
	}
	p.ID = oid.Hex()
	return nil
}

func (r *MongoProducts) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc productDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	p := doc.domain()
	return &p, nil
}

func (r *MongoProducts) Update(ctx context.Context, p *domain.Product) error {
	oid, err := objectID(p.ID)
	if err != nil {
		return err
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid}, toProductDoc(p, oid))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProducts) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id)
}

func (r *MongoProducts) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	filter := bson.M{}
	if f.NameSubstring != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(f.NameSubstring), "$options": "i"}
	}
	if f.Category != "" {
		filter["category"] = bson.M{"$regex": "^" + regexp.QuoteMeta(f.Category) + "$", "$options": "i"}
	}
	if f.SubCategory != "" {
		filter["subCategory"] = bson.M{"$regex": "^" + regexp.QuoteMeta(f.SubCategory) + "$", "$options": "i"}
	}
	if f.Bestseller != nil {
		filter["bestseller"] = *f.Bestseller
	}
	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.domain())
	}
	return out, nil
}

func (r *MongoProducts) AdjustStock(ctx context.Context, id string, delta int64) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": oid}
	if delta < 0 {
		// conditional decrement: concurrent checkouts cannot push stock below zero
		filter["stock"] = bson.M{"$gte": -delta}
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"stock": delta}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrInsufficientStock
	}
	return nil
}

func (r *MongoProducts) SetStock(ctx context.Context, id string, stock int64) (*domain.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc productDoc
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"stock": stock}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return nil, notFound(err)
	}
	p := doc.domain()
	return &p, nil
}

// Orders

type lineItemDoc struct {
	ProductID primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Quantity  int64              `bson:"quantity"`
	Price     float64            `bson:"price"`
	Size      string             `bson:"size"`
}

type orderDoc struct {
	ID            primitive.ObjectID `bson:"_id"`
	UserID        primitive.ObjectID `bson:"userId"`
	Items         []lineItemDoc      `bson:"items"`
	Address       domain.Address     `bson:"address"`
	Amount        float64            `bson:"amount"`
	PaymentMethod string             `bson:"paymentMethod"`
	Payment       bool               `bson:"payment"`
	Status        string             `bson:"status"`
	GatewayRef    string             `bson:"gatewayRef,omitempty"`
	Date          time.Time          `bson:"date"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

func toOrderDoc(o *domain.Order, oid primitive.ObjectID) (orderDoc, error) {
	uid, err := primitive.ObjectIDFromHex(o.UserID)
	if err != nil {
		return orderDoc{}, fmt.Errorf("order user id %q: %w", o.UserID, err)
	}
	items := make([]lineItemDoc, 0, len(o.Items))
	for _, it := range o.Items {
		pid, err := primitive.ObjectIDFromHex(it.ProductID)
		if err != nil {
			return orderDoc{}, fmt.Errorf("line item product id %q: %w", it.ProductID, err)
		}
		items = append(items, lineItemDoc{ProductID: pid, Name: it.Name, Quantity: it.Quantity, Price: it.Price, Size: it.Size})
	}
	return orderDoc{
		ID: oid, UserID: uid, Items: items, Address: o.Address, Amount: o.Amount,
		PaymentMethod: string(o.PaymentMethod), Payment: o.Payment, Status: string(o.Status),
		GatewayRef: o.GatewayRef, Date: o.Date, UpdatedAt: o.UpdatedAt,
	}, nil
}

func (d orderDoc) domain() domain.Order {
	items := make([]domain.LineItem, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, domain.LineItem{ProductID: it.ProductID.Hex(), Name: it.Name, Quantity: it.Quantity, Price: it.Price, Size: it.Size})
	}
	return domain.Order{
		ID: d.ID.Hex(), UserID: d.UserID.Hex(), Items: items, Address: d.Address, Amount: d.Amount,
		PaymentMethod: domain.PaymentMethod(d.PaymentMethod), Payment: d.Payment,
		Status: domain.OrderStatus(d.Status), GatewayRef: d.GatewayRef, Date: d.Date, UpdatedAt: d.UpdatedAt,
	}
}

// MongoOrders реализация OrderRepository на MongoDB
type MongoOrders struct{ coll *mongo.Collection }

func NewMongoOrders(db *mongo.Database) *MongoOrders {
	return &MongoOrders{coll: db.Collection(ordersCollection)}
}

var _ OrderRepository = (*MongoOrders)(nil)

func (r *MongoOrders) Create(ctx context.Context, o *domain.Order) error {
	oid := primitive.NewObjectID()
	o.Date = time.Now().UTC()
	o.UpdatedAt = o.Date
	doc, err := toOrderDoc(o, oid)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return err
	}
	o.ID = oid.Hex()
	return nil
}

func (r *MongoOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc orderDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	o := doc.domain()
	return &o, nil
}

func (r *MongoOrders) Update(ctx context.Context, o *domain.Order) error {
	oid, err := objectID(o.ID)
	if err != nil {
		return err
	}
	o.UpdatedAt = time.Now().UTC()
	doc, err := toOrderDoc(o, oid)
	if err != nil {
		return err
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoOrders) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id)
}

func (r *MongoOrders) List(ctx context.Context) ([]domain.Order, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoOrders) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return []domain.Order{}, nil
	}
	return r.find(ctx, bson.M{"userId": uid})
}

func (r *MongoOrders) find(ctx context.Context, filter bson.M) ([]domain.Order, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.domain())
	}
	return out, nil
}

// Users

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	IsAdmin   bool               `bson:"isAdmin"`
	IsBanned  bool               `bson:"isBanned"`
	CartData  domain.Cart        `bson:"cartData"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d userDoc) domain() domain.User {
	cart := d.CartData
	if cart == nil {
		cart = domain.Cart{}
	}
	return domain.User{
		ID: d.ID.Hex(), Name: d.Name, Email: d.Email, PasswordHash: d.Password,
		IsAdmin: d.IsAdmin, IsBanned: d.IsBanned, CartData: cart, CreatedAt: d.CreatedAt,
	}
}

// MongoUsers реализация UserRepository на MongoDB
type MongoUsers struct{ coll *mongo.Collection }

func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{coll: db.Collection(usersCollection)}
}

var _ UserRepository = (*MongoUsers)(nil)

func (r *MongoUsers) Create(ctx context.Context, u *domain.User) error {
	oid := primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	if u.CartData == nil {
		u.CartData = domain.Cart{}
	}
	doc := userDoc{
		ID: oid, Name: u.Name, Email: u.Email, Password: u.PasswordHash,
		IsAdmin: u.IsAdmin, IsBanned: u.IsBanned, CartData: u.CartData, CreatedAt: u.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	u.ID = oid.Hex()
	return nil
}

func (r *MongoUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUsers) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	u := doc.domain()
	return &u, nil
}

func (r *MongoUsers) List(ctx context.Context) ([]domain.User, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"password": 0}))
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.domain())
	}
	return out, nil
}

func (r *MongoUsers) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id)
}

func (r *MongoUsers) SetBanned(ctx context.Context, id string, banned bool) error {
	return r.set(ctx, id, bson.M{"isBanned": banned})
}

func (r *MongoUsers) SetCart(ctx context.Context, id string, cart domain.Cart) error {
	if cart == nil {
		cart = domain.Cart{}
	}
	return r.set(ctx, id, bson.M{"cartData": cart})
}

func (r *MongoUsers) set(ctx context.Context, id string, fields bson.M) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Reviews

type reviewDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	UserID    primitive.ObjectID `bson:"userId"`
	ProductID primitive.ObjectID `bson:"productId"`
	UserName  string             `bson:"userName"`
	Rating    int                `bson:"rating"`
	Comment   string             `bson:"comment"`
	Date      time.Time          `bson:"date"`
}

func (d reviewDoc) domain() domain.Review {
	return domain.Review{
		ID: d.ID.Hex(), UserID: d.UserID.Hex(), ProductID: d.ProductID.Hex(),
		UserName: d.UserName, Rating: d.Rating, Comment: d.Comment, Date: d.Date,
	}
}

// MongoReviews реализация ReviewRepository на MongoDB
type MongoReviews struct{ coll *mongo.Collection }

func NewMongoReviews(db *mongo.Database) *MongoReviews {
	return &MongoReviews{coll: db.Collection(reviewsCollection)}
}

var _ ReviewRepository = (*MongoReviews)(nil)

func (r *MongoReviews) Create(ctx context.Context, rv *domain.Review) error {
	uid, err := primitive.ObjectIDFromHex(rv.UserID)
	if err != nil {
		return fmt.Errorf("review user id %q: %w", rv.UserID, err)
	}
	pid, err := primitive.ObjectIDFromHex(rv.ProductID)
	if err != nil {
		return fmt.Errorf("review product id %q: %w", rv.ProductID, err)
	}
	oid := primitive.NewObjectID()
	rv.Date = time.Now().UTC()
	doc := reviewDoc{ID: oid, UserID: uid, ProductID: pid, UserName: rv.UserName, Rating: rv.Rating, Comment: rv.Comment, Date: rv.Date}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return err
	}
	rv.ID = oid.Hex()
	return nil
}

func (r *MongoReviews) ListByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	pid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return []domain.Review{}, nil
	}
	return r.find(ctx, bson.M{"productId": pid})
}

func (r *MongoReviews) List(ctx context.Context) ([]domain.Review, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoReviews) find(ctx context.Context, filter bson.M) ([]domain.Review, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []reviewDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Review, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.domain())
	}
	return out, nil
}

func (r *MongoReviews) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id)
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoTx оборачивает fn в многодокументную транзакцию (нужен replica set)
type MongoTx struct{ client *mongo.Client }

func NewMongoTx(client *mongo.Client) *MongoTx { return &MongoTx{client: client} }

func (tx *MongoTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	sess, err := tx.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
