// Package testutil provides an in-memory implementation of the repositories
// for service and handler tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"workhub-manager/server/models"
	"workhub-manager/server/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu      sync.Mutex
	users   []models.User
	tasks   []models.Task
	notices []models.Notice

	// NoticeErr, when set, is returned by every notice write.
	NoticeErr error
	// Transactional makes the store report atomic transactions.
	Transactional bool
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Users() *UserRepo     { return &UserRepo{s} }
func (s *Store) Tasks() *TaskRepo     { return &TaskRepo{s} }
func (s *Store) Notices() *NoticeRepo { return &NoticeRepo{s} }

func (s *Store) Atomic() bool { return s.Transactional }

// WithTransaction snapshots the tasks and notices and restores them when fn
// fails, if the store is transactional.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.Transactional {
		return fn(ctx)
	}
	s.mu.Lock()
	tasks := append([]models.Task{}, s.tasks...)
	notices := append([]models.Notice{}, s.notices...)
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.tasks, s.notices = tasks, notices
		s.mu.Unlock()
		return err
	}
	return nil
}

// TaskCount and the other snapshot helpers are for assertions.
func (s *Store) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *Store) AllNotices() []models.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notice, 0, len(s.notices))
	for _, n := range s.notices {
		out = append(out, cloneNotice(n))
	}
	return out
}

func (s *Store) AllTasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, cloneTask(t))
	}
	return out
}

type UserRepo struct{ s *Store }

func (r *UserRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users = append(r.s.users, *user)
	return nil
}

func (r *UserRepo) find(match func(models.User) bool) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *UserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.ID == id })
}

func (r *UserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r *UserRepo) filter(match func(models.User) bool) []models.User {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.User{}
	for _, u := range r.s.users {
		if match(u) {
			out = append(out, u)
		}
	}
	return out
}

func (r *UserRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	want := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	return r.filter(func(u models.User) bool { return want[u.ID] }), nil
}

func (r *UserRepo) FindAll(_ context.Context) ([]models.User, error) {
	return r.filter(func(models.User) bool { return true }), nil
}

func (r *UserRepo) FindActive(_ context.Context) ([]models.User, error) {
	return r.filter(func(u models.User) bool { return u.IsActive }), nil
}

func (r *UserRepo) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, u := range r.s.users {
		if u.ID == user.ID {
			user.UpdatedAt = time.Now()
			r.s.users[i] = *user
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (r *UserRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, u := range r.s.users {
		if u.ID == id {
			r.s.users = append(r.s.users[:i], r.s.users[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (r *UserRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.users)), nil
}

type TaskRepo struct{ s *Store }

func (r *TaskRepo) Insert(_ context.Context, task *models.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	now := time.Now()
	task.CreatedAt, task.UpdatedAt = now, now
	r.s.tasks = append(r.s.tasks, cloneTask(*task))
	return nil
}

func (r *TaskRepo) index(id primitive.ObjectID) int {
	for i, t := range r.s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (r *TaskRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, repositories.ErrNotFound
	}
	task := cloneTask(r.s.tasks[i])
	return &task, nil
}

func (r *TaskRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Task, error) {
	want := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	return r.find(func(t models.Task) bool { return want[t.ID] }), nil
}

func (r *TaskRepo) Find(_ context.Context, filter repositories.TaskFilter) ([]models.Task, error) {
	return r.find(func(t models.Task) bool {
		if filter.IsTrashed != nil && t.IsTrashed != *filter.IsTrashed {
			return false
		}
		if filter.Stage != nil && t.Stage != *filter.Stage {
			return false
		}
		if filter.Member != nil && !containsID(t.Team, *filter.Member) {
			return false
		}
		return true
	}), nil
}

// find returns matches newest first, like the Mongo repository.
func (r *TaskRepo) find(match func(models.Task) bool) []models.Task {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Task{}
	for _, t := range r.s.tasks {
		if match(t) {
			out = append(out, cloneTask(t))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out
}

func (r *TaskRepo) mutate(match func(models.Task) bool, fn func(*models.Task)) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for i := range r.s.tasks {
		if match(r.s.tasks[i]) {
			fn(&r.s.tasks[i])
			r.s.tasks[i].UpdatedAt = time.Now()
			n++
		}
	}
	return n
}

func (r *TaskRepo) mutateOne(id primitive.ObjectID, requireTrashed bool, fn func(*models.Task)) error {
	n := r.mutate(func(t models.Task) bool {
		return t.ID == id && (!requireTrashed || t.IsTrashed)
	}, fn)
	if n == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *TaskRepo) Save(_ context.Context, task *models.Task) error {
	saved := cloneTask(*task)
	return r.mutateOne(task.ID, false, func(t *models.Task) { *t = saved })
}

func (r *TaskRepo) PushActivity(_ context.Context, id primitive.ObjectID, activity models.Activity) error {
	return r.mutateOne(id, false, func(t *models.Task) { t.Activities = append(t.Activities, activity) })
}

func (r *TaskRepo) PushSubTask(_ context.Context, id primitive.ObjectID, sub models.SubTask) error {
	return r.mutateOne(id, false, func(t *models.Task) { t.SubTasks = append(t.SubTasks, sub) })
}

func (r *TaskRepo) SetStage(_ context.Context, id primitive.ObjectID, stage models.Stage) error {
	return r.mutateOne(id, false, func(t *models.Task) { t.Stage = stage })
}

func (r *TaskRepo) SetTrashed(_ context.Context, id primitive.ObjectID, trashed bool) error {
	return r.mutateOne(id, false, func(t *models.Task) { t.IsTrashed = trashed })
}

func (r *TaskRepo) RestoreTrashed(_ context.Context, id primitive.ObjectID) error {
	return r.mutateOne(id, true, func(t *models.Task) { t.IsTrashed = false })
}

func (r *TaskRepo) RestoreAllTrashed(_ context.Context) (int64, error) {
	return r.mutate(func(t models.Task) bool { return t.IsTrashed }, func(t *models.Task) { t.IsTrashed = false }), nil
}

func (r *TaskRepo) remove(match func(models.Task) bool) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.tasks[:0]
	var n int64
	for _, t := range r.s.tasks {
		if match(t) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	r.s.tasks = kept
	return n
}

func (r *TaskRepo) DeleteTrashed(_ context.Context, id primitive.ObjectID) error {
	if r.remove(func(t models.Task) bool { return t.ID == id && t.IsTrashed }) == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *TaskRepo) DeleteAllTrashed(_ context.Context) (int64, error) {
	return r.remove(func(t models.Task) bool { return t.IsTrashed }), nil
}

func (r *TaskRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	if r.remove(func(t models.Task) bool { return t.ID == id }) == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

type NoticeRepo struct{ s *Store }

func (r *NoticeRepo) Create(_ context.Context, notice *models.Notice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.NoticeErr != nil {
		return r.s.NoticeErr
	}
	if notice.ID.IsZero() {
		notice.ID = primitive.NewObjectID()
	}
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = time.Now()
	}
	if notice.IsRead == nil {
		notice.IsRead = []primitive.ObjectID{}
	}
	r.s.notices = append(r.s.notices, cloneNotice(*notice))
	return nil
}

func (r *NoticeRepo) FindUnread(_ context.Context, userID primitive.ObjectID) ([]models.Notice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Notice{}
	for i := len(r.s.notices) - 1; i >= 0; i-- {
		if n := r.s.notices[i]; n.UnreadBy(userID) {
			out = append(out, cloneNotice(n))
		}
	}
	return out, nil
}

func (r *NoticeRepo) MarkAllRead(_ context.Context, userID primitive.ObjectID) (int64, error) {
	return r.markRead(func(models.Notice) bool { return true }, userID), nil
}

func (r *NoticeRepo) MarkRead(_ context.Context, noticeID, userID primitive.ObjectID) (int64, error) {
	return r.markRead(func(n models.Notice) bool { return n.ID == noticeID }, userID), nil
}

func (r *NoticeRepo) markRead(match func(models.Notice) bool, userID primitive.ObjectID) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for i := range r.s.notices {
		if match(r.s.notices[i]) && r.s.notices[i].UnreadBy(userID) {
			r.s.notices[i].IsRead = append(r.s.notices[i].IsRead, userID)
			n++
		}
	}
	return n
}

func cloneTask(t models.Task) models.Task {
	t.Activities = append([]models.Activity{}, t.Activities...)
	t.SubTasks = append([]models.SubTask{}, t.SubTasks...)
	t.Assets = append([]string{}, t.Assets...)
	t.Team = append([]primitive.ObjectID{}, t.Team...)
	return t
}

func cloneNotice(n models.Notice) models.Notice {
	n.Team = append([]primitive.ObjectID{}, n.Team...)
	n.IsRead = append([]primitive.ObjectID{}, n.IsRead...)
	return n
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// SeedUser stores an active user with the given password hash and returns it.
func (s *Store) SeedUser(name, email, passwordHash string, isAdmin bool) models.User {
	user := models.User{
		Name:     name,
		Email:    email,
		Password: passwordHash,
		Title:    "Engineer",
		Role:     "Developer",
		IsAdmin:  isAdmin,
		IsActive: true,
	}
	if err := s.Users().Create(context.Background(), &user); err != nil {
		panic(err)
	}
	return user
}
