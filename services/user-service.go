package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"workhub-manager/server/logging"
	"workhub-manager/server/models"
	"workhub-manager/server/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	Users repositories.UserRepository
	Auth  *AuthService
}

func NewUserService(users repositories.UserRepository, auth *AuthService) *UserService {
	return &UserService{Users: users, Auth: auth}
}

func (s *UserService) GetTeam(ctx context.Context) ([]models.TeamMember, error) {
	users, err := s.Users.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	team := make([]models.TeamMember, 0, len(users))
	for _, u := range users {
		team = append(team, models.TeamMember{
			ID:       u.ID,
			Name:     u.Name,
			Title:    u.Title,
			Role:     u.Role,
			Email:    u.Email,
			MobileNo: u.MobileNo,
			IsActive: u.IsActive,
		})
	}
	return team, nil
}

// UpdateProfile applies the non-empty fields of req. Admins may target another
// account through req.ID; everyone else edits their own.
func (s *UserService) UpdateProfile(ctx context.Context, identity models.Identity, req models.ProfileUpdate) (*models.User, error) {
	target := identity.UserID
	if identity.IsAdmin && req.ID != "" {
		id, err := models.ParseID(req.ID)
		if err != nil {
			return nil, Validation("%v", err)
		}
		target = id
	}

	user, err := s.findUser(ctx, target)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if req.Title != "" {
		user.Title = req.Title
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	if req.MobileNo != "" {
		user.MobileNo = req.MobileNo
	}
	if req.Password != "" {
		if err := s.Auth.ValidatePassword(req.Password); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.Auth.HashCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hash)
	}

	if err := s.Users.Update(ctx, user); err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: PROFILE_UPDATED, Description: Profile %s updated by %s", user.ID.Hex(), identity.UserID.Hex())

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// SetActive sets the account's active flag, or toggles it when isActive is nil.
func (s *UserService) SetActive(ctx context.Context, id primitive.ObjectID, isActive *bool) (string, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return "", err
	}

	if isActive != nil {
		user.IsActive = *isActive
	} else {
		user.IsActive = !user.IsActive
	}
	if err := s.Users.Update(ctx, user); err != nil {
		return "", err
	}

	state := "disabled"
	if user.IsActive {
		state = "activated"
	}
	logging.Logger.Infof("Event ID: USER_ACTIVATION_CHANGED, Description: User %s %s", id.Hex(), state)
	return fmt.Sprintf("User account has been %s", state), nil
}

func (s *UserService) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	err := s.Users.Delete(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return NotFound("User not found")
	}
	if err != nil {
		return err
	}
	logging.Logger.Infof("Event ID: USER_DELETED, Description: User %s deleted", id.Hex())
	return nil
}

func (s *UserService) findUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.Users.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, NotFound("User not found")
	}
	return user, err
}
