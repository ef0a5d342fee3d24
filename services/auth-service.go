package services

import (
	"context"
	"errors"
	"strings"

	"workhub-manager/server/logging"
	"workhub-manager/server/models"
	"workhub-manager/server/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

const (
	msgInvalidCredentials = "Invalid email or password."
	msgDeactivated        = "User account has been deactivated, contact the administrator"
)

type AuthService struct {
	Users      repositories.UserRepository
	JWTService *JWTService
	BlackList  map[string]bool
	HashCost   int
}

func NewAuthService(users repositories.UserRepository, jwtService *JWTService, blackList map[string]bool) *AuthService {
	if blackList == nil {
		blackList = map[string]bool{}
	}
	return &AuthService{
		Users:      users,
		JWTService: jwtService,
		BlackList:  blackList,
		HashCost:   bcrypt.DefaultCost,
	}
}

// RegisterResult is the created account and, for a bootstrap admin, the
// session token that logs them in.
type RegisterResult struct {
	User  models.User
	Token string
}

// Register creates an account. isAdmin is honoured only for an admin caller or
// when no account exists yet.
func (s *AuthService) Register(ctx context.Context, caller *models.Identity, req models.RegisterRequest) (*RegisterResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var missing []string
	if req.Name == "" {
		missing = append(missing, "name")
	}
	if req.Email == "" {
		missing = append(missing, "email")
	}
	if req.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, Validation("Missing required fields: %s", strings.Join(missing, ", "))
	}
	if err := s.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	bootstrap := false
	if req.IsAdmin && (caller == nil || !caller.IsAdmin) {
		count, err := s.Users.Count(ctx)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, Forbidden("Only administrators can create admin accounts")
		}
		bootstrap = true
	}

	if _, err := s.Users.FindByEmail(ctx, req.Email); err == nil {
		return nil, Conflict("User already exists")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.HashCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hash),
		Title:    req.Title,
		Role:     req.Role,
		MobileNo: req.MobileNo,
		IsAdmin:  req.IsAdmin,
		IsActive: true,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, Conflict("User already exists")
		}
		return nil, err
	}
	logging.Logger.Infof("Event ID: USER_REGISTERED, Description: User %s registered (admin=%t)", user.ID.Hex(), user.IsAdmin)

	result := &RegisterResult{User: user.Sanitized()}
	if bootstrap {
		token, err := s.JWTService.GenerateAuthToken(user.ID.Hex())
		if err != nil {
			return nil, err
		}
		result.Token = token
	}
	return result, nil
}

func (s *AuthService) ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return Validation("Password must be at least %d characters long", minPasswordLength)
	}
	if s.BlackList[password] {
		return Validation("Password is too common. Please choose a stronger one")
	}
	return nil
}

// Login returns the account and a signed session token. A deactivated account
// is reported before the password is checked.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.Users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, "", Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return nil, "", err
	}

	if !user.IsActive {
		logging.Logger.Warnf("Event ID: LOGIN_DEACTIVATED, Description: Login attempt for deactivated user %s", user.ID.Hex())
		return nil, "", Unauthorized(msgDeactivated)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", Unauthorized(msgInvalidCredentials)
	}

	token, err := s.JWTService.GenerateAuthToken(user.ID.Hex())
	if err != nil {
		return nil, "", err
	}

	sanitized := user.Sanitized()
	return &sanitized, token, nil
}

// ResolveIdentity turns a session token into the caller's identity. Tokens of
// missing or deactivated accounts are rejected.
func (s *AuthService) ResolveIdentity(ctx context.Context, token string) (models.Identity, error) {
	claims, err := s.JWTService.ValidateToken(token)
	if err != nil {
		return models.Identity{}, Unauthorized("Not authorized. Try login again.")
	}

	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return models.Identity{}, Unauthorized("Not authorized. Try login again.")
	}

	user, err := s.Users.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.Identity{}, Unauthorized("Not authorized. Try login again.")
	}
	if err != nil {
		return models.Identity{}, err
	}
	if !user.IsActive {
		return models.Identity{}, Unauthorized(msgDeactivated)
	}

	return models.Identity{UserID: user.ID, IsAdmin: user.IsAdmin}, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, identity models.Identity, req models.ChangePasswordRequest) error {
	user, err := s.Users.FindByID(ctx, identity.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return NotFound("User not found")
	}
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		return Validation("Old password is incorrect")
	}
	if err := s.ValidatePassword(req.NewPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.HashCost)
	if err != nil {
		return err
	}
	user.Password = string(hash)
	if err := s.Users.Update(ctx, user); err != nil {
		return err
	}

	logging.Logger.Infof("Event ID: PASSWORD_CHANGED, Description: User %s changed password", user.ID.Hex())
	return nil
}
