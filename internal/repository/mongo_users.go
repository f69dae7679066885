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

type mongoUsers struct {
	coll *mongo.Collection
}

func (r *mongoUsers) Create(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = now()
	user.UpdatedAt = user.CreatedAt
	if user.Addresses == nil {
		user.Addresses = []models.Address{}
	}
	if user.Wishlist == nil {
		user.Wishlist = []primitive.ObjectID{}
	}

	_, err := r.coll.InsertOne(ctx, user)
	return translateWriteError(err)
}

func (r *mongoUsers) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	return decodeOne(r.coll.FindOne(ctx, bson.M{"_id": id}), normalizeUserDocument)
}

func (r *mongoUsers) GetByEmail(ctx context.Context, email string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return decodeOne(r.coll.FindOne(ctx, bson.M{"email": email}), normalizeUserDocument)
}

func (r *mongoUsers) GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	out := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users, err := decodeAll(ctx, cursor, normalizeUserDocument)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *mongoUsers) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = now()

	res, err := r.coll.UpdateByID(ctx, user.ID, bson.M{"$set": bson.M{
		"name":         user.Name,
		"email":        user.Email,
		"password":     user.PasswordHash,
		"isAdmin":      user.IsAdmin,
		"profileImage": user.ProfileImage,
		"addresses":    user.Addresses,
		"wishlist":     user.Wishlist,
		"updatedAt":    user.UpdatedAt,
	}})
	if err != nil {
		return translateWriteError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUsers) List(ctx context.Context) ([]models.User, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return decodeAll(ctx, cursor, normalizeUserDocument)
}

func (r *mongoUsers) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUsers) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{})
}

func (r *mongoUsers) SearchIDs(ctx context.Context, term string) ([]primitive.ObjectID, error) {
	pattern := bson.M{"$regex": regexp.QuoteMeta(strings.TrimSpace(term)), "$options": "i"}
	cursor, err := r.coll.Find(
		ctx,
		bson.M{"$or": bson.A{bson.M{"name": pattern}, bson.M{"email": pattern}}},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}
