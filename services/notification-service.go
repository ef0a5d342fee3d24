package services

import (
	"context"
	"strings"

	"workhub-manager/server/logging"
	"workhub-manager/server/models"
	"workhub-manager/server/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ReadAll    = "all"
	ReadSingle = "single"
)

type NotificationService struct {
	Notices repositories.NoticeRepository
	Tasks   repositories.TaskRepository
}

func NewNotificationService(notices repositories.NoticeRepository, tasks repositories.TaskRepository) *NotificationService {
	return &NotificationService{Notices: notices, Tasks: tasks}
}

// List returns the caller's unread notices, newest first, with task titles.
func (s *NotificationService) List(ctx context.Context, identity models.Identity) ([]models.NoticeView, error) {
	notices, err := s.Notices.FindUnread(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	var taskIDs []primitive.ObjectID
	seen := map[primitive.ObjectID]bool{}
	for _, n := range notices {
		if !seen[n.Task] {
			seen[n.Task] = true
			taskIDs = append(taskIDs, n.Task)
		}
	}
	tasks, err := s.Tasks.FindByIDs(ctx, taskIDs)
	if err != nil {
		return nil, err
	}
	titles := make(map[primitive.ObjectID]string, len(tasks))
	for _, t := range tasks {
		titles[t.ID] = t.Title
	}

	views := make([]models.NoticeView, 0, len(notices))
	for _, n := range notices {
		view := models.NoticeView{
			ID:        n.ID,
			Team:      n.Team,
			Text:      n.Text,
			NotiType:  n.NotiType,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		}
		if title, ok := titles[n.Task]; ok {
			view.Task = &models.TaskRef{ID: n.Task, Title: title}
		}
		views = append(views, view)
	}
	return views, nil
}

// MarkRead records that the caller has read one notice, or all of theirs when
// readType is "all". Notices already read or not addressed to the caller are
// left unchanged.
func (s *NotificationService) MarkRead(ctx context.Context, identity models.Identity, readType, noticeID string) error {
	var (
		n   int64
		err error
	)
	if strings.EqualFold(readType, ReadAll) {
		n, err = s.Notices.MarkAllRead(ctx, identity.UserID)
	} else {
		id, parseErr := models.ParseID(noticeID)
		if parseErr != nil {
			return Validation("%v", parseErr)
		}
		n, err = s.Notices.MarkRead(ctx, id, identity.UserID)
	}
	if err != nil {
		return err
	}

	logging.Logger.Debugf("Event ID: NOTICES_MARKED_READ, Description: %d notices marked read by %s", n, identity.UserID.Hex())
	return nil
}
