package repositories

import (
	"context"
	"errors"

	"workhub-manager/server/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	FindAll(ctx context.Context) ([]models.User, error)
	FindActive(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

// TaskFilter narrows task queries. Nil fields are not filtered on.
type TaskFilter struct {
	IsTrashed *bool
	Stage     *models.Stage
	Member    *primitive.ObjectID
}

type TaskRepository interface {
	Insert(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Task, error)
	// Find returns matching tasks newest first.
	Find(ctx context.Context, filter TaskFilter) ([]models.Task, error)
	Save(ctx context.Context, task *models.Task) error
	PushActivity(ctx context.Context, id primitive.ObjectID, activity models.Activity) error
	PushSubTask(ctx context.Context, id primitive.ObjectID, sub models.SubTask) error
	SetStage(ctx context.Context, id primitive.ObjectID, stage models.Stage) error
	SetTrashed(ctx context.Context, id primitive.ObjectID, trashed bool) error
	RestoreTrashed(ctx context.Context, id primitive.ObjectID) error
	RestoreAllTrashed(ctx context.Context) (int64, error)
	DeleteTrashed(ctx context.Context, id primitive.ObjectID) error
	DeleteAllTrashed(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type NoticeRepository interface {
	Create(ctx context.Context, notice *models.Notice) error
	// FindUnread returns notices addressed to userID that it has not read,
	// newest first.
	FindUnread(ctx context.Context, userID primitive.ObjectID) ([]models.Notice, error)
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, noticeID, userID primitive.ObjectID) (int64, error)
}

// Transactor runs fn as one logical unit. Atomic reports whether a failure
// inside fn rolls back earlier writes; when it does not, callers compensate.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Atomic() bool
}
