package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"workhub-manager/server/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoUserRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create assigns id and timestamps", func(mt *mtest.T) {
		repo := &MongoUserRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		user := &models.User{Name: "Ann", Email: "ann@example.com"}
		if err := repo.Create(context.Background(), user); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if user.ID.IsZero() || user.CreatedAt.IsZero() {
			t.Errorf("Expected id and createdAt to be set, got %+v", user)
		}
	})

	mt.Run("create maps duplicate email", func(mt *mtest.T) {
		repo := &MongoUserRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := repo.Create(context.Background(), &models.User{Email: "ann@example.com"})
		if !errors.Is(err, ErrDuplicate) {
			t.Errorf("Expected ErrDuplicate, got %v", err)
		}
	})

	mt.Run("find by email decodes user", func(mt *mtest.T) {
		repo := &MongoUserRepository{collection: mt.Coll}
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "workhub.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "name", Value: "Ann"},
			{Key: "email", Value: "ann@example.com"},
			{Key: "isActive", Value: true},
		}))

		user, err := repo.FindByEmail(context.Background(), "ann@example.com")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if user.ID != id || user.Name != "Ann" || !user.IsActive {
			t.Errorf("Unexpected user decoded: %+v", user)
		}
	})

	mt.Run("find by id reports missing user", func(mt *mtest.T) {
		repo := &MongoUserRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "workhub.users", mtest.FirstBatch))

		_, err := repo.FindByID(context.Background(), primitive.NewObjectID())
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("delete reports missing user", func(mt *mtest.T) {
		repo := &MongoUserRepository{collection: mt.Coll}
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}})

		err := repo.Delete(context.Background(), primitive.NewObjectID())
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestMongoTaskRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("find returns every batch", func(mt *mtest.T) {
		repo := &MongoTaskRepository{collection: mt.Coll}
		newer, older := primitive.NewObjectID(), primitive.NewObjectID()
		first := mtest.CreateCursorResponse(1, "workhub.tasks", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: newer},
			{Key: "title", Value: "Ship"},
			{Key: "stage", Value: "todo"},
		})
		second := mtest.CreateCursorResponse(0, "workhub.tasks", mtest.NextBatch, bson.D{
			{Key: "_id", Value: older},
			{Key: "title", Value: "Plan"},
			{Key: "stage", Value: "completed"},
		})
		mt.AddMockResponses(first, second)

		tasks, err := repo.Find(context.Background(), TaskFilter{})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(tasks) != 2 || tasks[0].ID != newer || tasks[1].Stage != models.StageCompleted {
			t.Errorf("Unexpected tasks decoded: %+v", tasks)
		}
	})

	mt.Run("save reports missing task", func(mt *mtest.T) {
		repo := &MongoTaskRepository{collection: mt.Coll}
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})

		err := repo.Save(context.Background(), &models.Task{ID: primitive.NewObjectID()})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("set stage succeeds on match", func(mt *mtest.T) {
		repo := &MongoTaskRepository{collection: mt.Coll}
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}})

		if err := repo.SetStage(context.Background(), primitive.NewObjectID(), models.StageCompleted); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	})

	mt.Run("delete all trashed returns count", func(mt *mtest.T) {
		repo := &MongoTaskRepository{collection: mt.Coll}
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 3}})

		n, err := repo.DeleteAllTrashed(context.Background())
		if err != nil || n != 3 {
			t.Errorf("Expected 3 deleted, got %d (%v)", n, err)
		}
	})

	mt.Run("delete trashed reports untrashed task", func(mt *mtest.T) {
		repo := &MongoTaskRepository{collection: mt.Coll}
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}})

		err := repo.DeleteTrashed(context.Background(), primitive.NewObjectID())
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestTaskQuery(t *testing.T) {
	trashed := false
	stage := models.StageInProgress
	member := primitive.NewObjectID()

	query := taskQuery(TaskFilter{IsTrashed: &trashed, Stage: &stage, Member: &member})
	if query["isTrashed"] != false {
		t.Errorf("Expected isTrashed filter, got %v", query["isTrashed"])
	}
	if query["stage"] != models.StageInProgress {
		t.Errorf("Expected stage filter, got %v", query["stage"])
	}
	if _, ok := query["team"]; !ok {
		t.Errorf("Expected team filter")
	}

	if len(taskQuery(TaskFilter{})) != 0 {
		t.Errorf("Expected empty query for empty filter")
	}
}

func TestMongoNoticeRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create defaults read markers", func(mt *mtest.T) {
		repo := &MongoNoticeRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		notice := &models.Notice{Team: []primitive.ObjectID{primitive.NewObjectID()}, Text: "hi"}
		if err := repo.Create(context.Background(), notice); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if notice.IsRead == nil || notice.ID.IsZero() {
			t.Errorf("Expected id and empty isRead, got %+v", notice)
		}
	})

	mt.Run("mark read reports modified count", func(mt *mtest.T) {
		repo := &MongoNoticeRepository{collection: mt.Coll}
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}})

		n, err := repo.MarkRead(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())
		if err != nil || n != 1 {
			t.Errorf("Expected 1 modified, got %d (%v)", n, err)
		}
	})

	mt.Run("find unread decodes notices", func(mt *mtest.T) {
		repo := &MongoNoticeRepository{collection: mt.Coll}
		user := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "workhub.notices", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "team", Value: bson.A{user}},
			{Key: "text", Value: "New task"},
			{Key: "notiType", Value: "alert"},
			{Key: "isRead", Value: bson.A{}},
			{Key: "createdAt", Value: time.Now()},
		}))

		notices, err := repo.FindUnread(context.Background(), user)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(notices) != 1 || !notices[0].UnreadBy(user) {
			t.Errorf("Expected one unread notice, got %+v", notices)
		}
	})
}

func TestNoticeFromRow(t *testing.T) {
	id, task, member := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	notice, err := noticeFromRow(id.Hex(), []string{member.Hex()}, "text", task.Hex(), "alert", time.Now())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if notice.ID != id || notice.Task != task || !notice.UnreadBy(member) {
		t.Errorf("Unexpected notice: %+v", notice)
	}
	if notice.IsRead == nil || len(notice.IsRead) != 0 {
		t.Errorf("Expected empty non-nil read list for a member row, got %v", notice.IsRead)
	}

	if _, err := noticeFromRow("bad", nil, "", task.Hex(), "alert", time.Now()); err == nil {
		t.Errorf("Expected error for malformed id")
	}
}
