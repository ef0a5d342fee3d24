package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"workhub-manager/server/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoTaskRepository struct {
	collection *mongo.Collection
}

func NewMongoTaskRepository(db *mongo.Database) *MongoTaskRepository {
	return &MongoTaskRepository{collection: db.Collection(TasksCollection)}
}

func (r *MongoTaskRepository) Insert(ctx context.Context, task *models.Task) error {
	now := time.Now()
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	task.CreatedAt = now
	task.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, task); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (r *MongoTaskRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var task models.Task
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return &task, nil
}

func (r *MongoTaskRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Task, error) {
	if len(ids) == 0 {
		return []models.Task{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *MongoTaskRepository) Find(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	return r.find(ctx, taskQuery(filter))
}

func taskQuery(filter TaskFilter) bson.M {
	query := bson.M{}
	if filter.IsTrashed != nil {
		query["isTrashed"] = *filter.IsTrashed
	}
	if filter.Stage != nil {
		query["stage"] = *filter.Stage
	}
	if filter.Member != nil {
		query["team"] = bson.M{"$all": []primitive.ObjectID{*filter.Member}}
	}
	return query
}

func (r *MongoTaskRepository) find(ctx context.Context, query bson.M) ([]models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

// Save replaces the stored document with task. Concurrent writers follow
// last-write-wins.
func (r *MongoTaskRepository) Save(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": task.ID}, task)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoTaskRepository) update(ctx context.Context, filter, set bson.M, extra bson.M) error {
	set["updatedAt"] = time.Now()
	update := bson.M{"$set": set}
	for k, v := range extra {
		update[k] = v
	}
	return notFoundIfNone(r.collection.UpdateOne(ctx, filter, update))
}

func (r *MongoTaskRepository) PushActivity(ctx context.Context, id primitive.ObjectID, activity models.Activity) error {
	return r.update(ctx, bson.M{"_id": id}, bson.M{}, bson.M{"$push": bson.M{"activities": activity}})
}

func (r *MongoTaskRepository) PushSubTask(ctx context.Context, id primitive.ObjectID, sub models.SubTask) error {
	return r.update(ctx, bson.M{"_id": id}, bson.M{}, bson.M{"$push": bson.M{"subTasks": sub}})
}

func (r *MongoTaskRepository) SetStage(ctx context.Context, id primitive.ObjectID, stage models.Stage) error {
	return r.update(ctx, bson.M{"_id": id}, bson.M{"stage": stage}, nil)
}

func (r *MongoTaskRepository) SetTrashed(ctx context.Context, id primitive.ObjectID, trashed bool) error {
	return r.update(ctx, bson.M{"_id": id}, bson.M{"isTrashed": trashed}, nil)
}

func (r *MongoTaskRepository) RestoreTrashed(ctx context.Context, id primitive.ObjectID) error {
	return r.update(ctx, bson.M{"_id": id, "isTrashed": true}, bson.M{"isTrashed": false}, nil)
}

func (r *MongoTaskRepository) RestoreAllTrashed(ctx context.Context) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"isTrashed": true},
		bson.M{"$set": bson.M{"isTrashed": false, "updatedAt": time.Now()}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to restore tasks: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *MongoTaskRepository) DeleteTrashed(ctx context.Context, id primitive.ObjectID) error {
	return r.deleteOne(ctx, bson.M{"_id": id, "isTrashed": true})
}

func (r *MongoTaskRepository) DeleteAllTrashed(ctx context.Context) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"isTrashed": true})
	if err != nil {
		return 0, fmt.Errorf("failed to delete tasks: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *MongoTaskRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.deleteOne(ctx, bson.M{"_id": id})
}

func (r *MongoTaskRepository) deleteOne(ctx context.Context, filter bson.M) error {
	res, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
