package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"hotel_pms_backend/internal/models"
	"hotel_pms_backend/internal/policy"
	"hotel_pms_backend/internal/repositories"
	"hotel_pms_backend/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

// --- Custom Service Errors ---
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameExists     = errors.New("username already exists")
)

// --- Data Transfer Objects (DTOs) ---

// LoginRequest DTO
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterStaffRequest DTO
type RegisterStaffRequest struct {
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required,min=8"`
	FullName *string `json:"full_name"`
	Role     string  `json:"role" binding:"required"`
}

// AuthResponse DTO
type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
}

// --- AuthService Interface ---

type AuthService interface {
	LoginUser(req LoginRequest) (*AuthResponse, error)
	RegisterStaff(req RegisterStaffRequest) (*models.User, error)
	GetUserProfile(userID int64) (*models.User, error)
	EnsureDefaultAdmin(username, password string) error
}

type authService struct {
	staffRepo repositories.StaffRepository
	db        *sql.DB
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(staffRepo repositories.StaffRepository, db *sql.DB) AuthService {
	return &authService{staffRepo: staffRepo, db: db}
}

func (s *authService) LoginUser(req LoginRequest) (*AuthResponse, error) {
	user, storedHashedPassword, err := s.staffRepo.FindUserByUsername(req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login attempt failed: %w", err)
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(storedHashedPassword), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := utils.GenerateAccessToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := utils.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	user.PasswordHash = ""
	return &AuthResponse{User: user, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *authService) RegisterStaff(req RegisterStaffRequest) (*models.User, error) {
	if !policy.ValidRole(req.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, req.Role)
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username: req.Username,
		FullName: req.FullName,
		Role:     strings.ToLower(req.Role),
	}

	userID, err := s.staffRepo.CreateUser(s.db, user, string(hashedPasswordBytes))
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("failed to register staff member: %w", err)
	}

	return s.staffRepo.FindUserByID(userID)
}

func (s *authService) GetUserProfile(userID int64) (*models.User, error) {
	user, err := s.staffRepo.FindUserByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	return user, nil
}

// EnsureDefaultAdmin seeds the initial admin account on startup. Replaces the
// source system's run-by-hand admin-creation script with an idempotent step.
func (s *authService) EnsureDefaultAdmin(username, password string) error {
	if password == "" {
		utils.LogInfo("No admin password configured, skipping default admin seed")
		return nil
	}

	_, _, err := s.staffRepo.FindUserByUsername(username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("checking for existing admin: %w", err)
	}

	_, err = s.RegisterStaff(RegisterStaffRequest{
		Username: username,
		Password: password,
		Role:     policy.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("seeding default admin: %w", err)
	}
	utils.LogInfo("Seeded default admin account", map[string]interface{}{"username": username})
	return nil
}
