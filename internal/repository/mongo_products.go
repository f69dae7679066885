package repository

import (
	"context"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

type mongoProducts struct {
	coll *mongo.Collection
}

func (r *mongoProducts) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := bson.M{}

	if category := strings.TrimSpace(filter.Category); category != "" && !strings.EqualFold(category, "all") {
		query["category"] = bson.M{"$regex": "^" + regexp.QuoteMeta(category) + "$", "$options": "i"}
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query["name"] = bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
	}

	findOptions := options.Find().SetSort(productSort(filter.Sort))

	cursor, err := r.coll.Find(ctx, query, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return decodeAll(ctx, cursor, normalizeProductDocument)
}

// The top-level price mirrors the first variant, so price sorts use it.
func productSort(key string) bson.D {
	switch key {
	case SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}}
	case SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}}
	case SortNameAsc:
		return bson.D{{Key: "name", Value: 1}}
	case SortNameDesc:
		return bson.D{{Key: "name", Value: -1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}}
	}
}

func (r *mongoProducts) GetByID(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	return decodeOne(r.coll.FindOne(ctx, bson.M{"_id": id}), normalizeProductDocument)
}

func (r *mongoProducts) GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	out := make(map[primitive.ObjectID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products, err := decodeAll(ctx, cursor, normalizeProductDocument)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (r *mongoProducts) Create(ctx context.Context, product *models.Product) error {
	product.ID = primitive.NewObjectID()
	product.CreatedAt = now()
	product.UpdatedAt = product.CreatedAt
	product.Price = product.DisplayPrice()

	_, err := r.coll.InsertOne(ctx, product)
	return translateWriteError(err)
}

func (r *mongoProducts) Update(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = now()
	product.Price = product.DisplayPrice()

	res, err := r.coll.UpdateByID(ctx, product.ID, bson.M{"$set": bson.M{
		"name":        product.Name,
		"description": product.Description,
		"category":    product.Category,
		"baseImage":   product.BaseImage,
		"price":       product.Price,
		"variants":    product.Variants,
		"updatedAt":   product.UpdatedAt,
	}})
	if err != nil {
		return translateWriteError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoProducts) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoProducts) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{})
}

func (r *mongoProducts) DecrementStock(ctx context.Context, id primitive.ObjectID, size, color string, qty int) (bool, error) {
	size = strings.TrimSpace(size)
	color = strings.TrimSpace(color)

	filter := bson.M{
		"_id": id,
		"variants": bson.M{"$elemMatch": bson.M{
			"size":  bson.M{"$regex": "^" + regexp.QuoteMeta(size) + "$", "$options": "i"},
			"color": bson.M{"$regex": "^" + regexp.QuoteMeta(color) + "$", "$options": "i"},
		}},
	}

	// Single pipeline update: the floor at zero is applied server side so
	// concurrent checkouts cannot lose each other's decrement.
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"variants":  decrementFirstVariant(size, color, qty),
			"updatedAt": "$$NOW",
		}}},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// decrementFirstVariant rewrites the variants array with only the first
// size/color match decremented. Legacy documents can hold duplicates.
func decrementFirstVariant(size, color string, qty int) bson.M {
	matches := bson.M{"$and": bson.A{
		bson.M{"$eq": bson.A{bson.M{"$toLower": "$$v.size"}, strings.ToLower(size)}},
		bson.M{"$eq": bson.A{bson.M{"$toLower": "$$v.color"}, strings.ToLower(color)}},
	}}
	first := bson.M{"$indexOfArray": bson.A{
		bson.M{"$map": bson.M{"input": "$variants", "as": "v", "in": matches}},
		true,
	}}
	decremented := bson.M{"$mergeObjects": bson.A{
		"$$v",
		bson.M{"stock": bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$$v.stock", qty}}}}},
	}}
	return bson.M{"$let": bson.M{
		"vars": bson.M{"first": first},
		"in": bson.M{"$map": bson.M{
			"input": bson.M{"$range": bson.A{0, bson.M{"$size": "$variants"}}},
			"as":    "i",
			"in": bson.M{"$let": bson.M{
				"vars": bson.M{"v": bson.M{"$arrayElemAt": bson.A{"$variants", "$$i"}}},
				"in":   bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$$i", "$$first"}}, decremented, "$$v"}},
			}},
		}},
	}}
}
