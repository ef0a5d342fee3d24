package repositories

import (
	"context"
	"fmt"
	"time"

	"workhub-manager/server/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoNoticeRepository struct {
	collection *mongo.Collection
}

func NewMongoNoticeRepository(db *mongo.Database) *MongoNoticeRepository {
	return &MongoNoticeRepository{collection: db.Collection(NoticesCollection)}
}

func (r *MongoNoticeRepository) Create(ctx context.Context, notice *models.Notice) error {
	if notice.ID.IsZero() {
		notice.ID = primitive.NewObjectID()
	}
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = time.Now()
	}
	if notice.IsRead == nil {
		notice.IsRead = []primitive.ObjectID{}
	}

	if _, err := r.collection.InsertOne(ctx, notice); err != nil {
		return fmt.Errorf("failed to create notice: %w", err)
	}
	return nil
}

func unreadFilter(userID primitive.ObjectID) bson.M {
	return bson.M{
		"team":   userID,
		"isRead": bson.M{"$nin": []primitive.ObjectID{userID}},
	}
}

func (r *MongoNoticeRepository) FindUnread(ctx context.Context, userID primitive.ObjectID) ([]models.Notice, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, unreadFilter(userID), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve notices: %w", err)
	}
	defer cursor.Close(ctx)

	notices := []models.Notice{}
	if err := cursor.All(ctx, &notices); err != nil {
		return nil, fmt.Errorf("failed to decode notices: %w", err)
	}
	return notices, nil
}

func (r *MongoNoticeRepository) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := r.collection.UpdateMany(ctx, unreadFilter(userID),
		bson.M{"$addToSet": bson.M{"isRead": userID}})
	if err != nil {
		return 0, fmt.Errorf("failed to mark notices as read: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *MongoNoticeRepository) MarkRead(ctx context.Context, noticeID, userID primitive.ObjectID) (int64, error) {
	filter := unreadFilter(userID)
	filter["_id"] = noticeID
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$addToSet": bson.M{"isRead": userID}})
	if err != nil {
		return 0, fmt.Errorf("failed to mark notice as read: %w", err)
	}
	return res.ModifiedCount, nil
}
