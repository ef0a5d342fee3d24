package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Stage string

const (
	StageTodo       Stage = "todo"
	StageInProgress Stage = "in progress"
	StageCompleted  Stage = "completed"
)

// ParseStage lowercases the input and rejects anything outside the stage set.
func ParseStage(s string) (Stage, error) {
	switch st := Stage(strings.ToLower(strings.TrimSpace(s))); st {
	case StageTodo, StageInProgress, StageCompleted:
		return st, nil
	}
	return "", fmt.Errorf("invalid stage %q: must be one of todo, in progress, completed", s)
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityHigh, PriorityMedium, PriorityNormal, PriorityLow:
		return p, nil
	}
	return "", fmt.Errorf("invalid priority %q: must be one of high, medium, normal, low", s)
}

type ActivityType string

const (
	ActivityAssigned   ActivityType = "assigned"
	ActivityStarted    ActivityType = "started"
	ActivityInProgress ActivityType = "in progress"
	ActivityBug        ActivityType = "bug"
	ActivityCompleted  ActivityType = "completed"
	ActivityCommented  ActivityType = "commented"
)

func ParseActivityType(s string) (ActivityType, error) {
	switch t := ActivityType(strings.ToLower(strings.TrimSpace(s))); t {
	case ActivityAssigned, ActivityStarted, ActivityInProgress, ActivityBug, ActivityCompleted, ActivityCommented:
		return t, nil
	}
	return "", fmt.Errorf("invalid activity type %q", s)
}

type Activity struct {
	ID       primitive.ObjectID `bson:"_id" json:"_id"`
	Type     ActivityType       `bson:"type" json:"type"`
	Activity string             `bson:"activity" json:"activity"`
	Date     time.Time          `bson:"date" json:"date"`
	By       primitive.ObjectID `bson:"by" json:"by"`
}

type SubTask struct {
	ID    primitive.ObjectID `bson:"_id" json:"_id"`
	Title string             `bson:"title" json:"title"`
	Date  time.Time          `bson:"date" json:"date"`
	Tag   string             `bson:"tag" json:"tag"`
}

type Task struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Title      string               `bson:"title" json:"title"`
	Date       time.Time            `bson:"date" json:"date"`
	Priority   Priority             `bson:"priority" json:"priority"`
	Stage      Stage                `bson:"stage" json:"stage"`
	Activities []Activity           `bson:"activities" json:"activities"`
	SubTasks   []SubTask            `bson:"subTasks" json:"subTasks"`
	Assets     []string             `bson:"assets" json:"assets"`
	Team       []primitive.ObjectID `bson:"team" json:"team"`
	IsTrashed  bool                 `bson:"isTrashed" json:"isTrashed"`
	CreatedAt  time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// ActivityView is an activity entry with its author populated.
type ActivityView struct {
	ID       primitive.ObjectID `json:"_id"`
	Type     ActivityType       `json:"type"`
	Activity string             `json:"activity"`
	Date     time.Time          `json:"date"`
	By       *UserSummary       `json:"by"`
}

// TaskView is a task with its user references populated.
type TaskView struct {
	ID         primitive.ObjectID `json:"_id"`
	Title      string             `json:"title"`
	Date       time.Time          `json:"date"`
	Priority   Priority           `json:"priority"`
	Stage      Stage              `json:"stage"`
	Activities []ActivityView     `json:"activities"`
	SubTasks   []SubTask          `json:"subTasks"`
	Assets     []string           `json:"assets"`
	Team       []UserSummary      `json:"team"`
	IsTrashed  bool               `json:"isTrashed"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

type CreateTaskRequest struct {
	Title    string   `json:"title"`
	Team     []string `json:"team"`
	Stage    string   `json:"stage"`
	Date     string   `json:"date"`
	Priority string   `json:"priority"`
	Assets   []string `json:"assets"`
}

// TaskUpdate carries only the fields a client sent; nil fields keep their
// stored value.
type TaskUpdate struct {
	Title    *string
	Date     *time.Time
	Team     []primitive.ObjectID
	Stage    *Stage
	Priority *Priority
	Assets   []string

	// Team and Assets are slices, so presence is tracked separately.
	HasTeam   bool
	HasAssets bool

	// Uploaded are appended after Assets is applied.
	Uploaded []string
}

// Apply merges the update into t field by field.
func (u TaskUpdate) Apply(t *Task) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Date != nil {
		t.Date = *u.Date
	}
	if u.HasTeam {
		t.Team = u.Team
	}
	if u.Stage != nil {
		t.Stage = *u.Stage
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.HasAssets {
		t.Assets = u.Assets
	}
	if len(u.Uploaded) > 0 {
		t.Assets = append(append([]string{}, t.Assets...), u.Uploaded...)
	}
}

type SubTaskRequest struct {
	Title string `json:"title"`
	Tag   string `json:"tag"`
	Date  string `json:"date"`
}

type ActivityRequest struct {
	Type     string `json:"type"`
	Activity string `json:"activity"`
}

type TrashAction string

const (
	ActionDelete     TrashAction = "delete"
	ActionDeleteAll  TrashAction = "deleteAll"
	ActionRestore    TrashAction = "restore"
	ActionRestoreAll TrashAction = "restoreAll"
)

type DashboardSummary struct {
	TotalTasks int           `json:"totalTasks"`
	Tasks      map[Stage]int `json:"tasks"`
	AllTasks   []Task        `json:"allTasks"`
	Users      []ActiveUser  `json:"users"`
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

// ParseDate accepts RFC 3339 timestamps and plain calendar dates.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
