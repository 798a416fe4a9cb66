package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/bookstore-api/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

type orderDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	UserID     string             `bson:"userId"`
	Name       string             `bson:"name"`
	Email      string             `bson:"email"`
	Phone      string             `bson:"phone"`
	Address    addressDoc         `bson:"address"`
	Items      []itemDoc          `bson:"items"`
	TotalPrice decimal.Decimal    `bson:"totalPrice"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

type addressDoc struct {
	City    string `bson:"city"`
	Country string `bson:"country"`
	State   string `bson:"state"`
	Zipcode string `bson:"zipcode"`
}

type itemDoc struct {
	BookID   string          `bson:"bookId"`
	Title    string          `bson:"title"`
	Quantity int             `bson:"quantity"`
	Price    decimal.Decimal `bson:"price"`
}

// OrderRepository implements order.Repository backed by MongoDB.
type OrderRepository struct {
	coll *mongo.Collection
}

// NewOrderRepository returns an OrderRepository using c.
func NewOrderRepository(c *Client) *OrderRepository {
	return &OrderRepository{coll: c.db.Collection(ordersCollection)}
}

// Create inserts o and assigns its ID.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	doc := toOrderDoc(*o)
	doc.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}
	o.ID = doc.ID.Hex()
	return nil
}

// List returns orders matching q, newest first.
func (r *OrderRepository) List(ctx context.Context, q order.Query) ([]order.Order, error) {
	filter := bson.D{}
	if q.UserID != "" {
		filter = append(filter, bson.E{Key: "userId", Value: q.UserID})
	}
	if q.Email != "" {
		filter = append(filter, bson.E{Key: "email", Value: q.Email})
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("finding orders: %w", err)
	}

	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding orders: %w", err)
	}

	out := make([]order.Order, len(docs))
	for i, d := range docs {
		out[i] = mapOrder(d)
	}
	return out, nil
}

func toOrderDoc(o order.Order) orderDoc {
	items := make([]itemDoc, len(o.Items))
	for i, it := range o.Items {
		items[i] = itemDoc(it)
	}
	return orderDoc{
		UserID:     o.UserID,
		Name:       o.Name,
		Email:      o.Email,
		Phone:      o.Phone,
		Address:    addressDoc(o.Address),
		Items:      items,
		TotalPrice: o.TotalPrice,
		CreatedAt:  o.CreatedAt,
	}
}

func mapOrder(d orderDoc) order.Order {
	items := make([]order.Item, len(d.Items))
	for i, it := range d.Items {
		items[i] = order.Item(it)
	}
	return order.Order{
		ID:         d.ID.Hex(),
		UserID:     d.UserID,
		Name:       d.Name,
		Email:      d.Email,
		Phone:      d.Phone,
		Address:    order.Address(d.Address),
		Items:      items,
		TotalPrice: d.TotalPrice,
		CreatedAt:  d.CreatedAt.UTC(),
	}
}
