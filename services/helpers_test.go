package services

import (
	"testing"
	"time"

	"workhub-manager/server/models"
	"workhub-manager/server/testutil"

	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	store      *testutil.Store
	auth       *AuthService
	users      *UserService
	tasks      *TaskService
	notices    *NotificationService
	dashboard  *DashboardService
	dispatcher *NoticeDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewStore()

	auth := NewAuthService(store.Users(), NewJWTService("test-secret", 24*time.Hour), map[string]bool{"password": true})
	auth.HashCost = bcrypt.MinCost

	dispatcher := NewNoticeDispatcher(store.Notices(), NewNoticeBreaker(time.Minute))

	return &fixture{
		store:      store,
		auth:       auth,
		users:      NewUserService(store.Users(), auth),
		tasks:      NewTaskService(store.Tasks(), store.Users(), dispatcher, store),
		notices:    NewNotificationService(store.Notices(), store.Tasks()),
		dashboard:  NewDashboardService(store.Tasks(), store.Users()),
		dispatcher: dispatcher,
	}
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	return string(hash)
}

func identityOf(u models.User) models.Identity {
	return models.Identity{UserID: u.ID, IsAdmin: u.IsAdmin}
}

func expectKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected error of kind %d, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("Expected error kind %d, got %d (%v)", kind, got, err)
	}
}
