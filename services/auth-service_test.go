package services

import (
	"context"
	"testing"
	"time"

	"workhub-manager/server/models"
)

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := models.RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "secret1", Role: "dev", Title: "Engineer"}

	first, err := f.auth.Register(ctx, nil, req)
	if err != nil {
		t.Fatalf("Expected first registration to succeed, got %v", err)
	}
	if first.User.Password != "" {
		t.Errorf("Expected password to be stripped from result")
	}

	req.Name = "Impostor"
	_, err = f.auth.Register(ctx, nil, req)
	expectKind(t, err, KindConflict)

	stored, err := f.store.Users().FindByEmail(ctx, "ann@example.com")
	if err != nil {
		t.Fatalf("Expected stored user, got %v", err)
	}
	if stored.Name != "Ann" || stored.ID != first.User.ID {
		t.Errorf("Expected first user unaffected, got %+v", stored)
	}
}

func TestRegisterAdminRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	boot, err := f.auth.Register(ctx, nil, models.RegisterRequest{Name: "Root", Email: "root@example.com", Password: "secret1", IsAdmin: true})
	if err != nil {
		t.Fatalf("Expected bootstrap admin registration, got %v", err)
	}
	if !boot.User.IsAdmin || boot.Token == "" {
		t.Errorf("Expected bootstrap admin with session token, got %+v", boot)
	}

	member := f.store.SeedUser("Bob", "bob@example.com", hashPassword(t, "secret1"), false)
	_, err = f.auth.Register(ctx, &models.Identity{UserID: member.ID}, models.RegisterRequest{
		Name: "Eve", Email: "eve@example.com", Password: "secret1", IsAdmin: true,
	})
	expectKind(t, err, KindForbidden)

	admin := identityOf(boot.User)
	created, err := f.auth.Register(ctx, &admin, models.RegisterRequest{
		Name: "Second", Email: "second@example.com", Password: "secret1", IsAdmin: true,
	})
	if err != nil {
		t.Fatalf("Expected admin to create admin, got %v", err)
	}
	if !created.User.IsAdmin || created.Token != "" {
		t.Errorf("Expected admin account without session token, got %+v", created)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []models.RegisterRequest{
		{Email: "a@example.com", Password: "secret1"},
		{Name: "A", Email: "a@example.com", Password: "short"},
		{Name: "A", Email: "a@example.com", Password: "password"},
	}
	for _, req := range cases {
		_, err := f.auth.Register(ctx, nil, req)
		expectKind(t, err, KindValidation)
	}
}

func TestLoginDeactivatedAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.store.SeedUser("Ann", "ann@example.com", hashPassword(t, "secret1"), false)
	user.IsActive = false
	if err := f.store.Users().Update(ctx, &user); err != nil {
		t.Fatalf("Failed to deactivate: %v", err)
	}

	for _, password := range []string{"secret1", "wrong-password"} {
		_, _, err := f.auth.Login(ctx, "ann@example.com", password)
		expectKind(t, err, KindUnauthorized)
		if err.Error() != msgDeactivated {
			t.Errorf("Expected deactivated message for password %q, got %q", password, err.Error())
		}
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeded := f.store.SeedUser("Ann", "ann@example.com", hashPassword(t, "secret1"), true)

	user, token, err := f.auth.Login(ctx, "Ann@Example.com", "secret1")
	if err != nil {
		t.Fatalf("Expected login to succeed, got %v", err)
	}
	if user.Password != "" || token == "" {
		t.Errorf("Expected sanitized user and token, got %+v / %q", user, token)
	}

	identity, err := f.auth.ResolveIdentity(ctx, token)
	if err != nil {
		t.Fatalf("Expected token to resolve, got %v", err)
	}
	if identity.UserID != seeded.ID || !identity.IsAdmin {
		t.Errorf("Unexpected identity %+v", identity)
	}

	_, _, err = f.auth.Login(ctx, "ann@example.com", "nope-nope")
	expectKind(t, err, KindUnauthorized)
	_, _, err = f.auth.Login(ctx, "ghost@example.com", "secret1")
	expectKind(t, err, KindUnauthorized)
}

func TestResolveIdentityRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.store.SeedUser("Ann", "ann@example.com", hashPassword(t, "secret1"), false)

	_, err := f.auth.ResolveIdentity(ctx, "not-a-token")
	expectKind(t, err, KindUnauthorized)

	expired, err := NewJWTService("test-secret", -time.Minute).GenerateAuthToken(user.ID.Hex())
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	_, err = f.auth.ResolveIdentity(ctx, expired)
	expectKind(t, err, KindUnauthorized)

	forged, _ := NewJWTService("other-secret", time.Hour).GenerateAuthToken(user.ID.Hex())
	_, err = f.auth.ResolveIdentity(ctx, forged)
	expectKind(t, err, KindUnauthorized)

	token, _ := f.auth.JWTService.GenerateAuthToken(user.ID.Hex())
	user.IsActive = false
	_ = f.store.Users().Update(ctx, &user)
	_, err = f.auth.ResolveIdentity(ctx, token)
	expectKind(t, err, KindUnauthorized)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.store.SeedUser("Ann", "ann@example.com", hashPassword(t, "secret1"), false)
	identity := identityOf(user)

	err := f.auth.ChangePassword(ctx, identity, models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "secret2"})
	expectKind(t, err, KindValidation)
	if err.Error() != "Old password is incorrect" {
		t.Errorf("Unexpected message %q", err.Error())
	}

	if err := f.auth.ChangePassword(ctx, identity, models.ChangePasswordRequest{OldPassword: "secret1", NewPassword: "secret2"}); err != nil {
		t.Fatalf("Expected password change, got %v", err)
	}
	if _, _, err := f.auth.Login(ctx, "ann@example.com", "secret2"); err != nil {
		t.Errorf("Expected login with new password, got %v", err)
	}
}
