package service

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"pgdash/internal/core"
)

type AuthService struct {
	userRepo  core.UserRepository
	groupRepo core.GroupRepository
}

func NewAuthService(userRepo core.UserRepository, groupRepo core.GroupRepository) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		groupRepo: groupRepo,
	}
}

// SetupAdmin creates the first superuser, only allowed if no users exist
func (s *AuthService) SetupAdmin(username, password string) error {
	count, err := s.userRepo.CountUsers()
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("setup already completed")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = s.userRepo.CreateUser(username, string(hashedPassword), true, true)
	return err
}

// CreateUser creates a user with the given role flags
func (s *AuthService) CreateUser(username, password string, isStaff, isSuperuser bool) (*core.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.userRepo.CreateUser(username, string(hashedPassword), isStaff, isSuperuser)
}

// Authenticate checks credentials and returns user if valid
func (s *AuthService) Authenticate(username, password string) (*core.User, error) {
	user, err := s.userRepo.GetUserByUsername(username)
	if err != nil {
		return nil, errors.New("invalid credentials") // Don't leak if user exists
	}
	if !user.IsActive {
		return nil, errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.New("invalid credentials")
	}

	return user, nil
}

// PrincipalFor builds the policy principal for a user, loading group
// memberships. A nil user yields the anonymous principal.
func (s *AuthService) PrincipalFor(user *core.User) core.Principal {
	if user == nil {
		return core.Principal{}
	}
	groups, err := s.groupRepo.GroupIDsForUser(user.ID)
	if err != nil {
		groups = nil
	}
	return core.Principal{
		UserID:        user.ID,
		Username:      user.Username,
		Authenticated: true,
		IsStaff:       user.IsStaff,
		IsSuperuser:   user.IsSuperuser,
		GroupIDs:      groups,
	}
}

// HasUsers checks if system is set up
func (s *AuthService) HasUsers() (bool, error) {
	count, err := s.userRepo.CountUsers()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ResetPassword resets a user's password by username
func (s *AuthService) ResetPassword(username, newPassword string) error {
	user, err := s.userRepo.GetUserByUsername(username)
	if err != nil {
		return errors.New("user not found: " + username)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hashedPassword)
	return s.userRepo.Update(user)
}
