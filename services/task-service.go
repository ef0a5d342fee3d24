package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"workhub-manager/server/logging"
	"workhub-manager/server/models"
	"workhub-manager/server/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskService struct {
	Tasks      repositories.TaskRepository
	Users      repositories.UserRepository
	Dispatcher *NoticeDispatcher
	Tx         repositories.Transactor
}

func NewTaskService(
	tasks repositories.TaskRepository,
	users repositories.UserRepository,
	dispatcher *NoticeDispatcher,
	tx repositories.Transactor,
) *TaskService {
	return &TaskService{
		Tasks:      tasks,
		Users:      users,
		Dispatcher: dispatcher,
		Tx:         tx,
	}
}

// AssignmentText is the message recorded on the task and sent to its team when
// the task is assigned.
func AssignmentText(teamSize int, priority models.Priority, date time.Time) string {
	var b strings.Builder
	b.WriteString("New task has been assigned to you")
	if teamSize > 1 {
		fmt.Fprintf(&b, " and %d others.", teamSize-1)
	}
	fmt.Fprintf(&b, " The task priority is set at %s priority, so check and act accordingly. The task date is %s. Thank you!!!",
		priority, date.Format("Mon Jan 02 2006"))
	return b.String()
}

func (s *TaskService) CreateTask(ctx context.Context, identity models.Identity, req models.CreateTaskRequest) (*models.Task, error) {
	var missing []string
	if strings.TrimSpace(req.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(req.Date) == "" {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(req.Priority) == "" {
		missing = append(missing, "priority")
	}
	if len(req.Team) == 0 {
		missing = append(missing, "team")
	}
	if len(missing) > 0 {
		return nil, Validation("Missing required fields: %s", strings.Join(missing, ", "))
	}

	team, err := models.ParseIDs(req.Team)
	if err != nil {
		return nil, Validation("team: %v", err)
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, Validation("%v", err)
	}
	priority, err := models.ParsePriority(req.Priority)
	if err != nil {
		return nil, Validation("%v", err)
	}
	stage := models.StageTodo
	if strings.TrimSpace(req.Stage) != "" {
		if stage, err = models.ParseStage(req.Stage); err != nil {
			return nil, Validation("%v", err)
		}
	}

	assets := req.Assets
	if assets == nil {
		assets = []string{}
	}

	text := AssignmentText(len(team), priority, date)
	task := &models.Task{
		Title:      strings.TrimSpace(req.Title),
		Date:       date,
		Priority:   priority,
		Stage:      stage,
		Activities: []models.Activity{newActivity(models.ActivityAssigned, text, identity.UserID)},
		SubTasks:   []models.SubTask{},
		Assets:     assets,
		Team:       team,
	}

	if err := s.insertWithNotice(ctx, task, text); err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %s created by %s", task.ID.Hex(), identity.UserID.Hex())
	return task, nil
}

func (s *TaskService) DuplicateTask(ctx context.Context, identity models.Identity, id primitive.ObjectID) (*models.Task, error) {
	source, err := s.findTask(ctx, id)
	if err != nil {
		return nil, err
	}

	text := AssignmentText(len(source.Team), source.Priority, source.Date)
	clone := &models.Task{
		Title:      source.Title + " - Duplicate",
		Date:       source.Date,
		Priority:   source.Priority,
		Stage:      source.Stage,
		Activities: []models.Activity{newActivity(models.ActivityAssigned, text, identity.UserID)},
		SubTasks:   append([]models.SubTask{}, source.SubTasks...),
		Assets:     append([]string{}, source.Assets...),
		Team:       append([]primitive.ObjectID{}, source.Team...),
	}

	if err := s.insertWithNotice(ctx, clone, text); err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: TASK_DUPLICATED, Description: Task %s duplicated as %s", id.Hex(), clone.ID.Hex())
	return clone, nil
}

// insertWithNotice stores task and its assignment notice as one unit. Without
// transactions the task is removed again when the notice cannot be written.
func (s *TaskService) insertWithNotice(ctx context.Context, task *models.Task, text string) error {
	return s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.Tasks.Insert(ctx, task); err != nil {
			return err
		}

		notice := &models.Notice{
			Team:     task.Team,
			Text:     text,
			Task:     task.ID,
			NotiType: models.NoticeAlert,
		}
		if err := s.Dispatcher.Dispatch(ctx, notice); err != nil {
			if !s.Tx.Atomic() {
				if delErr := s.Tasks.Delete(context.WithoutCancel(ctx), task.ID); delErr != nil {
					logging.Logger.Errorf("Event ID: TASK_COMPENSATION_FAILED, Description: Task %s kept without notice: %v", task.ID.Hex(), delErr)
				} else {
					logging.Logger.Warnf("Event ID: TASK_COMPENSATED, Description: Task %s removed after notice failure", task.ID.Hex())
				}
			}
			return err
		}
		return nil
	})
}

func (s *TaskService) PostActivity(ctx context.Context, identity models.Identity, id primitive.ObjectID, req models.ActivityRequest) error {
	activityType, err := models.ParseActivityType(req.Type)
	if err != nil {
		return Validation("%v", err)
	}

	err = s.Tasks.PushActivity(ctx, id, newActivity(activityType, req.Activity, identity.UserID))
	if errors.Is(err, repositories.ErrNotFound) {
		return NotFound("Task not found")
	}
	return err
}

func (s *TaskService) CreateSubTask(ctx context.Context, id primitive.ObjectID, req models.SubTaskRequest) (*models.SubTask, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, Validation("Missing required fields: title")
	}

	sub := models.SubTask{ID: primitive.NewObjectID(), Title: title, Tag: req.Tag}
	if strings.TrimSpace(req.Date) != "" {
		date, err := models.ParseDate(req.Date)
		if err != nil {
			return nil, Validation("%v", err)
		}
		sub.Date = date
	}

	err := s.Tasks.PushSubTask(ctx, id, sub)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, NotFound("Task not found")
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpdateTask merges update into the stored task; absent fields are kept.
func (s *TaskService) UpdateTask(ctx context.Context, id primitive.ObjectID, update models.TaskUpdate) (*models.Task, error) {
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, Validation("title must not be empty")
		}
		update.Title = &title
	}
	if update.HasTeam && len(update.Team) == 0 {
		return nil, Validation("Missing required fields: team")
	}

	task, err := s.findTask(ctx, id)
	if err != nil {
		return nil, err
	}
	update.Apply(task)
	if task.Assets == nil {
		task.Assets = []string{}
	}
	if task.Team == nil {
		task.Team = []primitive.ObjectID{}
	}

	if err := s.Tasks.Save(ctx, task); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NotFound("Task not found")
		}
		return nil, err
	}
	logging.Logger.Infof("Event ID: TASK_UPDATED, Description: Task %s updated", id.Hex())
	return task, nil
}

func (s *TaskService) ChangeStage(ctx context.Context, id primitive.ObjectID, rawStage string) error {
	stage, err := models.ParseStage(rawStage)
	if err != nil {
		return Validation("%v", err)
	}

	err = s.Tasks.SetStage(ctx, id, stage)
	if errors.Is(err, repositories.ErrNotFound) {
		return NotFound("Task not found")
	}
	return err
}

func (s *TaskService) TrashTask(ctx context.Context, id primitive.ObjectID) error {
	err := s.Tasks.SetTrashed(ctx, id, true)
	if errors.Is(err, repositories.ErrNotFound) {
		return NotFound("Task not found")
	}
	if err != nil {
		return err
	}
	logging.Logger.Infof("Event ID: TASK_TRASHED, Description: Task %s moved to trash", id.Hex())
	return nil
}

// DeleteRestoreTask applies a trash action. Single-task actions need the id of
// a trashed task.
func (s *TaskService) DeleteRestoreTask(ctx context.Context, id *primitive.ObjectID, action models.TrashAction) error {
	var err error
	switch action {
	case models.ActionDelete, models.ActionRestore:
		if id == nil {
			return Validation("Task id is required for %s", action)
		}
		if action == models.ActionDelete {
			err = s.Tasks.DeleteTrashed(ctx, *id)
		} else {
			err = s.Tasks.RestoreTrashed(ctx, *id)
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return NotFound("Trashed task not found")
		}
	case models.ActionDeleteAll:
		var n int64
		n, err = s.Tasks.DeleteAllTrashed(ctx)
		logging.Logger.Infof("Event ID: TRASH_EMPTIED, Description: %d trashed tasks deleted", n)
	case models.ActionRestoreAll:
		var n int64
		n, err = s.Tasks.RestoreAllTrashed(ctx)
		logging.Logger.Infof("Event ID: TRASH_RESTORED, Description: %d trashed tasks restored", n)
	default:
		return Validation("Invalid action type %q: must be one of delete, deleteAll, restore, restoreAll", action)
	}
	return err
}

func (s *TaskService) ListTasks(ctx context.Context, stage string, isTrashed bool) ([]models.TaskView, error) {
	filter := repositories.TaskFilter{IsTrashed: &isTrashed}
	if strings.TrimSpace(stage) != "" {
		st, err := models.ParseStage(stage)
		if err != nil {
			return nil, Validation("%v", err)
		}
		filter.Stage = &st
	}

	tasks, err := s.Tasks.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	users, err := s.lookupUsers(ctx, tasks)
	if err != nil {
		return nil, err
	}

	views := make([]models.TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, taskView(t, users, listMember))
	}
	return views, nil
}

func (s *TaskService) GetTask(ctx context.Context, id primitive.ObjectID) (*models.TaskView, error) {
	task, err := s.findTask(ctx, id)
	if err != nil {
		return nil, err
	}

	users, err := s.lookupUsers(ctx, []models.Task{*task})
	if err != nil {
		return nil, err
	}

	view := taskView(*task, users, detailMember)
	return &view, nil
}

func (s *TaskService) findTask(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	task, err := s.Tasks.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, NotFound("Task not found")
	}
	return task, err
}

// lookupUsers loads every user referenced by the tasks' teams and activities.
func (s *TaskService) lookupUsers(ctx context.Context, tasks []models.Task) (map[primitive.ObjectID]models.User, error) {
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	add := func(id primitive.ObjectID) {
		if !id.IsZero() && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, t := range tasks {
		for _, id := range t.Team {
			add(id)
		}
		for _, a := range t.Activities {
			add(a.By)
		}
	}

	users, err := s.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

func listMember(u models.User) models.UserSummary {
	return models.UserSummary{ID: u.ID, Name: u.Name, Title: u.Title, Email: u.Email}
}

func detailMember(u models.User) models.UserSummary {
	return models.UserSummary{ID: u.ID, Name: u.Name, Title: u.Title, Role: u.Role, Email: u.Email}
}

// taskView populates user references. References to deleted users are dropped
// from the team and left null on activities.
func taskView(t models.Task, users map[primitive.ObjectID]models.User, member func(models.User) models.UserSummary) models.TaskView {
	team := make([]models.UserSummary, 0, len(t.Team))
	for _, id := range t.Team {
		if u, ok := users[id]; ok {
			team = append(team, member(u))
		}
	}

	activities := make([]models.ActivityView, 0, len(t.Activities))
	for _, a := range t.Activities {
		view := models.ActivityView{ID: a.ID, Type: a.Type, Activity: a.Activity, Date: a.Date}
		if u, ok := users[a.By]; ok {
			view.By = &models.UserSummary{ID: u.ID, Name: u.Name}
		}
		activities = append(activities, view)
	}

	subTasks := t.SubTasks
	if subTasks == nil {
		subTasks = []models.SubTask{}
	}
	assets := t.Assets
	if assets == nil {
		assets = []string{}
	}

	return models.TaskView{
		ID:         t.ID,
		Title:      t.Title,
		Date:       t.Date,
		Priority:   t.Priority,
		Stage:      t.Stage,
		Activities: activities,
		SubTasks:   subTasks,
		Assets:     assets,
		Team:       team,
		IsTrashed:  t.IsTrashed,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

func newActivity(activityType models.ActivityType, text string, by primitive.ObjectID) models.Activity {
	return models.Activity{
		ID:       primitive.NewObjectID(),
		Type:     activityType,
		Activity: text,
		Date:     time.Now(),
		By:       by,
	}
}
