package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

// Documents written by earlier versions of the store use a flat product shape
// (price/stock/image at the top level), numbers stored as strings and orders
// keyed by userId. They are reconciled here before decoding into models.

func normalizeProductDocument(raw bson.M) (models.Product, error) {
	if cat, ok := raw["category"]; ok {
		switch typed := cat.(type) {
		case string:
			if normalized, ok := models.NormalizeCategory(typed); ok {
				raw["category"] = normalized
			}
		case bson.A:
			raw["category"] = firstString(typed)
		case []interface{}:
			raw["category"] = firstString(typed)
		}
	}

	if _, ok := raw["baseImage"]; !ok {
		if image, ok := raw["image"].(string); ok {
			raw["baseImage"] = image
		}
	}
	delete(raw, "image")

	variants := asDocs(raw["variants"])
	if len(variants) == 0 {
		if _, hasPrice := raw["price"]; hasPrice {
			variants = []bson.M{{
				"size":  "Free Size",
				"color": "Standard",
				"type":  models.DefaultVariantType,
				"price": raw["price"],
				"stock": raw["stock"],
			}}
		}
	}
	for _, v := range variants {
		v["price"] = toFloat(v["price"])
		v["stock"] = toInt(v["stock"])
		if t, _ := v["type"].(string); strings.TrimSpace(t) == "" {
			v["type"] = models.DefaultVariantType
		}
	}
	raw["variants"] = variants
	delete(raw, "stock")

	raw["price"] = toFloat(raw["price"])
	if raw["price"] == 0.0 && len(variants) > 0 {
		raw["price"] = variants[0]["price"]
	}

	var p models.Product
	if err := remarshal(raw, &p); err != nil {
		return models.Product{}, err
	}
	if p.Variants == nil {
		p.Variants = []models.Variant{}
	}
	return p, nil
}

func normalizeOrderDocument(raw bson.M) (models.Order, error) {
	if _, ok := raw["user"]; !ok {
		if legacy, ok := raw["userId"]; ok {
			raw["user"] = legacy
		}
	}
	delete(raw, "userId")

	items := asDocs(raw["items"])
	total := 0.0
	for _, item := range items {
		if _, ok := item["product"]; !ok {
			if legacy, ok := item["productId"]; ok {
				item["product"] = legacy
			}
		}
		delete(item, "productId")
		item["price"] = toFloat(item["price"])
		item["quantity"] = toInt(item["quantity"])
		total += item["price"].(float64) * float64(item["quantity"].(int))
	}
	raw["items"] = items

	if _, ok := raw["total"]; !ok {
		if legacy, ok := raw["totalPrice"]; ok {
			raw["total"] = legacy
		} else {
			raw["total"] = total
		}
	}
	delete(raw, "totalPrice")
	raw["total"] = toFloat(raw["total"])

	if status, _ := raw["status"].(string); strings.TrimSpace(status) == "" {
		raw["status"] = models.OrderStatusProcessing
	}

	if _, ok := raw["expectedDelivery"]; !ok {
		if created, ok := raw["createdAt"].(primitive.DateTime); ok {
			raw["expectedDelivery"] = primitive.NewDateTimeFromTime(models.ExpectedDeliveryFrom(created.Time()))
		}
	}

	var o models.Order
	if err := remarshal(raw, &o); err != nil {
		return models.Order{}, err
	}
	if o.Items == nil {
		o.Items = []models.OrderLine{}
	}
	return o, nil
}

func normalizeUserDocument(raw bson.M) (models.User, error) {
	addresses := asDocs(raw["addresses"])
	for _, a := range addresses {
		if _, ok := a["id"]; ok {
			continue
		}
		if oid, ok := a["_id"].(primitive.ObjectID); ok {
			a["id"] = oid.Hex()
		}
		delete(a, "_id")
	}
	raw["addresses"] = addresses

	var u models.User
	if err := remarshal(raw, &u); err != nil {
		return models.User{}, err
	}
	if u.Addresses == nil {
		u.Addresses = []models.Address{}
	}
	if u.Wishlist == nil {
		u.Wishlist = []primitive.ObjectID{}
	}
	return u, nil
}

func remarshal(raw bson.M, out interface{}) error {
	data, err := bson.Marshal(raw)
	if err != nil {
		return err
	}
	return bson.Unmarshal(data, out)
}

func decodeAll[T any](ctx context.Context, cursor *mongo.Cursor, normalize func(bson.M) (T, error)) ([]T, error) {
	out := make([]T, 0)
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		doc, err := normalize(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeOne[T any](res *mongo.SingleResult, normalize func(bson.M) (T, error)) (T, error) {
	var zero T
	var raw bson.M
	if err := res.Decode(&raw); err != nil {
		if err == mongo.ErrNoDocuments {
			return zero, ErrNotFound
		}
		return zero, err
	}
	return normalize(raw)
}

func asDocs(val interface{}) []bson.M {
	var list []interface{}
	switch typed := val.(type) {
	case bson.A:
		list = typed
	case []interface{}:
		list = typed
	case []bson.M:
		return typed
	default:
		return []bson.M{}
	}
	out := make([]bson.M, 0, len(list))
	for _, item := range list {
		switch doc := item.(type) {
		case bson.M:
			out = append(out, doc)
		case bson.D:
			out = append(out, doc.Map())
		}
	}
	return out
}

func firstString(list []interface{}) string {
	for _, item := range list {
		if s, ok := item.(string); ok {
			if normalized, ok := models.NormalizeCategory(s); ok {
				return normalized
			}
			return s
		}
	}
	return ""
}

func toFloat(val interface{}) float64 {
	switch typed := val.(type) {
	case float64:
		return typed
	case float32:
		return float64(typed)
	case int:
		return float64(typed)
	case int32:
		return float64(typed)
	case int64:
		return float64(typed)
	case primitive.Decimal128:
		parsed, err := strconv.ParseFloat(typed.String(), 64)
		if err != nil {
			return 0
		}
		return parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func toInt(val interface{}) int {
	switch typed := val.(type) {
	case int:
		return typed
	case int32:
		return int(typed)
	case int64:
		return int(typed)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(typed))
		if err != nil {
			return int(toFloat(typed))
		}
		return parsed
	default:
		return int(toFloat(val))
	}
}

func now() time.Time {
	return time.Now().UTC()
}
