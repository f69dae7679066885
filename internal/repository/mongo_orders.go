package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

type mongoOrders struct {
	coll *mongo.Collection
}

func (r *mongoOrders) Create(ctx context.Context, order *models.Order) error {
	order.ID = primitive.NewObjectID()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now()
	}
	order.UpdatedAt = order.CreatedAt

	_, err := r.coll.InsertOne(ctx, order)
	return translateWriteError(err)
}

func (r *mongoOrders) GetByID(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	return decodeOne(r.coll.FindOne(ctx, bson.M{"_id": id}), normalizeOrderDocument)
}

func (r *mongoOrders) FindByPaymentSession(ctx context.Context, sessionID string) (models.Order, error) {
	return decodeOne(r.coll.FindOne(ctx, bson.M{"paymentSessionId": sessionID}), normalizeOrderDocument)
}

func (r *mongoOrders) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"user": userID},
		bson.M{"userId": userID},
	}}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return decodeAll(ctx, cursor, normalizeOrderDocument)
}

func (r *mongoOrders) List(ctx context.Context, query OrderQuery) ([]models.Order, int64, error) {
	filter := bson.M{}
	if query.Filtered {
		userIDs := query.UserIDs
		if userIDs == nil {
			userIDs = []primitive.ObjectID{}
		}
		or := bson.A{bson.M{"user": bson.M{"$in": userIDs}}}
		if query.OrderID != nil {
			or = append(or, bson.M{"_id": *query.OrderID})
		}
		filter["$or"] = or
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((query.Page - 1) * query.Limit).
		SetLimit(query.Limit)

	cursor, err := r.coll.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	orders, err := decodeAll(ctx, cursor, normalizeOrderDocument)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *mongoOrders) All(ctx context.Context) ([]models.Order, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return decodeAll(ctx, cursor, normalizeOrderDocument)
}

func (r *mongoOrders) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) (models.Order, error) {
	res := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updatedAt": now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	return decodeOne(res, normalizeOrderDocument)
}

func (r *mongoOrders) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{})
}
