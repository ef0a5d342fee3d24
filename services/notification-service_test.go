package services

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestListNotices(t *testing.T) {
	f := newFixture(t)
	admin, team := seedTeam(t, f, 2)
	ctx := context.Background()
	older := createTask(t, f, admin, team, "")
	newer := createTask(t, f, admin, team[:1], "")

	views, err := f.notices.List(ctx, identityOf(team[0]))
	if err != nil {
		t.Fatalf("Expected notices, got %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("Expected 2 notices, got %d", len(views))
	}
	if views[0].Task == nil || views[0].Task.ID != newer.ID || views[1].Task.ID != older.ID {
		t.Errorf("Expected newest first with task populated, got %+v", views)
	}
	if views[0].Task.Title != "Task" {
		t.Errorf("Expected task title, got %q", views[0].Task.Title)
	}

	views, _ = f.notices.List(ctx, identityOf(team[1]))
	if len(views) != 1 {
		t.Errorf("Expected only notices addressed to member, got %d", len(views))
	}
}

func TestMarkAllReadIsIdempotent(t *testing.T) {
	f := newFixture(t)
	admin, team := seedTeam(t, f, 2)
	ctx := context.Background()
	createTask(t, f, admin, team, "")
	createTask(t, f, admin, team, "")
	me := identityOf(team[0])

	if err := f.notices.MarkRead(ctx, me, ReadAll, ""); err != nil {
		t.Fatalf("Expected mark read, got %v", err)
	}
	once := f.store.AllNotices()
	if err := f.notices.MarkRead(ctx, me, ReadAll, ""); err != nil {
		t.Fatalf("Expected mark read, got %v", err)
	}
	twice := f.store.AllNotices()

	for i := range once {
		if len(once[i].IsRead) != 1 || len(twice[i].IsRead) != 1 || twice[i].IsRead[0] != me.UserID {
			t.Errorf("Expected exactly one read marker on notice %d, got %v then %v", i, once[i].IsRead, twice[i].IsRead)
		}
	}

	views, _ := f.notices.List(ctx, me)
	if len(views) != 0 {
		t.Errorf("Expected no unread notices, got %d", len(views))
	}
	views, _ = f.notices.List(ctx, identityOf(team[1]))
	if len(views) != 2 {
		t.Errorf("Expected teammate notices untouched, got %d", len(views))
	}
}

func TestMarkSingleRead(t *testing.T) {
	f := newFixture(t)
	admin, team := seedTeam(t, f, 1)
	ctx := context.Background()
	createTask(t, f, admin, team, "")
	notice := f.store.AllNotices()[0]

	if err := f.notices.MarkRead(ctx, identityOf(admin), ReadSingle, notice.ID.Hex()); err != nil {
		t.Fatalf("Expected no-op for non-recipient, got %v", err)
	}
	if len(f.store.AllNotices()[0].IsRead) != 0 {
		t.Errorf("Expected non-recipient not recorded")
	}

	if err := f.notices.MarkRead(ctx, identityOf(team[0]), ReadSingle, notice.ID.Hex()); err != nil {
		t.Fatalf("Expected mark read, got %v", err)
	}
	if got := f.store.AllNotices()[0].IsRead; len(got) != 1 || got[0] != team[0].ID {
		t.Errorf("Expected recipient recorded, got %v", got)
	}

	expectKind(t, f.notices.MarkRead(ctx, identityOf(team[0]), ReadSingle, "bogus"), KindValidation)
	if err := f.notices.MarkRead(ctx, identityOf(team[0]), ReadSingle, primitive.NewObjectID().Hex()); err != nil {
		t.Errorf("Expected unknown notice to be a no-op, got %v", err)
	}
}
