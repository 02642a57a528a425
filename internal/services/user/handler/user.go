package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"printfleet-system/internal/apperr"
	"printfleet-system/internal/cache"
	"printfleet-system/internal/database"
	"printfleet-system/internal/database/models"
	"printfleet-system/internal/logging"
	sysutils "printfleet-system/internal/utils"
)

const (
	USER_CACHE_PREFIX = "user:"
	ROLE_CACHE_KEY    = "roles:list"
)

// DefaultRoles are created by SeedRoles.
var DefaultRoles = []models.Role{
	{RoleName: "viewer", AccessLevel: models.AccessViewer},
	{RoleName: "staff", AccessLevel: models.AccessStaff},
	{RoleName: "technician", AccessLevel: models.AccessTechnician},
	{RoleName: "admin", AccessLevel: models.AccessAdmin},
}

type UserHandler struct {
	db     *gorm.DB
	cache  *cache.Cache
	tokens *sysutils.TokenIssuer
	log    *zap.Logger
}

func NewUserHandler(db *gorm.DB, redisClient *redis.Client, tokens *sysutils.TokenIssuer, logger *zap.Logger) *UserHandler {
	logger = logging.OrNop(logger)
	return &UserHandler{
		db:     db,
		cache:  cache.New(redisClient, logger),
		tokens: tokens,
		log:    logger,
	}
}

func (s *UserHandler) InvalidateUserCaches(ctx context.Context, userIDs ...int64) {
	keys := []string{ROLE_CACHE_KEY}
	for _, id := range userIDs {
		keys = append(keys, fmt.Sprintf("%s%d", USER_CACHE_PREFIX, id))
	}
	s.cache.Invalidate(ctx, keys...)
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	RoleID    int32  `json:"role_id"`
}

type UpdateUserRequest struct {
	Email     *string `json:"email,omitempty"`
	Firstname *string `json:"firstname,omitempty"`
	Lastname  *string `json:"lastname,omitempty"`
	Password  *string `json:"password,omitempty"`
	RoleID    *int32  `json:"role_id,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}

type UserFilter struct {
	IsActive *bool
	RoleID   *int32
	Page     database.Page
}

// Session is a signed-in user with its bearer token.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

func (s *UserHandler) issue(user models.User) (*Session, error) {
	token, exp, err := s.tokens.GenerateToken(user.ID, user.Username, user.Role.AccessLevel)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: exp, User: user}, nil
}

// CreateUser stores a user with a bcrypt password hash.
func (s *UserHandler) CreateUser(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, apperr.Validation("username, email, and password are required")
	}
	if len(req.Password) < 8 {
		return nil, apperr.Validation("password must be at least 8 characters")
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", req.Username, req.Email).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("database error while checking existing user: %w", err)
	}
	if existing > 0 {
		return nil, apperr.Conflict("username or email already exists")
	}

	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, req.RoleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Validation("invalid role specified")
		}
		return nil, fmt.Errorf("load role: %w", err)
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := models.User{
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(pwHash),
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		RoleID:    role.ID,
		IsActive:  true,
	}
	if err := s.db.WithContext(ctx).Omit("Role").Create(&user).Error; err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	user.Role = role

	s.InvalidateUserCaches(ctx)
	return &user, nil
}

// Register creates the user and signs them in.
func (s *UserHandler) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	user, err := s.CreateUser(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.issue(*user)
}

func (s *UserHandler) Login(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, apperr.Validation("username and password are required")
	}

	var user models.User
	if err := s.db.WithContext(ctx).Preload("Role").
		Where("username = ? AND is_active = ?", username, true).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Validation("invalid username or password")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperr.Validation("invalid username or password")
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).
		Update("last_login", now).Error; err != nil {
		s.log.Warn("Failed to record last login", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	user.LastLogin = &now

	s.InvalidateUserCaches(ctx, user.ID)
	return s.issue(user)
}

func (s *UserHandler) GetUser(ctx context.Context, id int64) (*models.User, error) {
	cacheKey := fmt.Sprintf("%s%d", USER_CACHE_PREFIX, id)

	var user models.User
	if s.cache.GetJSON(ctx, cacheKey, &user) {
		return &user, nil
	}

	if err := s.db.WithContext(ctx).Preload("Role").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user", id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	s.cache.SetJSON(ctx, cacheKey, user, cache.TTLShort)
	return &user, nil
}

func (s *UserHandler) UpdateUser(ctx context.Context, id int64, req UpdateUserRequest) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Role").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user", id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if req.Email != nil {
		user.Email = strings.TrimSpace(*req.Email)
	}
	if req.Firstname != nil {
		user.Firstname = *req.Firstname
	}
	if req.Lastname != nil {
		user.Lastname = *req.Lastname
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			return nil, apperr.Validation("password must be at least 8 characters")
		}
		pwHash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
		user.Password = string(pwHash)
	}
	if req.RoleID != nil {
		var role models.Role
		if err := s.db.WithContext(ctx).First(&role, *req.RoleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.Validation("invalid role specified")
			}
			return nil, fmt.Errorf("load role: %w", err)
		}
		user.RoleID = role.ID
		user.Role = role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.db.WithContext(ctx).Omit("Role").Save(&user).Error; err != nil {
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	s.InvalidateUserCaches(ctx, user.ID)
	return &user, nil
}

func (s *UserHandler) ListUsers(ctx context.Context, filter UserFilter) ([]models.User, database.PageResult, error) {
	query := s.db.WithContext(ctx).Model(&models.User{}).Joins("Role")

	if filter.IsActive != nil {
		query = query.Where("users.is_active = ?", *filter.IsActive)
	}
	if filter.RoleID != nil {
		query = query.Where("users.role_id = ?", *filter.RoleID)
	}

	users := []models.User{}
	page, err := database.Paginate(query.Order("users.id ASC"), filter.Page, &users)
	if err != nil {
		return nil, database.PageResult{}, fmt.Errorf("list users: %w", err)
	}
	return users, page, nil
}

// --- Role Management ---

func (s *UserHandler) CreateRole(ctx context.Context, name string, accessLevel int32, permissions string) (*models.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("role_name required")
	}
	if accessLevel <= 0 || accessLevel > models.AccessAdmin {
		return nil, apperr.Validation("access_level must be between 1 and %d", models.AccessAdmin)
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Role{}).Where("role_name = ?", name).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check role: %w", err)
	}
	if existing > 0 {
		return nil, apperr.Conflict("role %q already exists", name)
	}

	role := models.Role{RoleName: name, AccessLevel: accessLevel, Permissions: permissions}
	if err := s.db.WithContext(ctx).Create(&role).Error; err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}

	s.InvalidateUserCaches(ctx)
	return &role, nil
}

func (s *UserHandler) ListRoles(ctx context.Context) ([]models.Role, error) {
	roles := []models.Role{}
	if s.cache.GetJSON(ctx, ROLE_CACHE_KEY, &roles) {
		return roles, nil
	}

	if err := s.db.WithContext(ctx).Order("access_level ASC").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	s.cache.SetJSON(ctx, ROLE_CACHE_KEY, roles, cache.TTLLong)
	return roles, nil
}

// SeedRoles creates any missing default role and returns how many were added.
func (s *UserHandler) SeedRoles(ctx context.Context) (int, error) {
	created := 0
	for _, def := range DefaultRoles {
		var existing int64
		if err := s.db.WithContext(ctx).Model(&models.Role{}).Where("role_name = ?", def.RoleName).Count(&existing).Error; err != nil {
			return created, fmt.Errorf("check role %s: %w", def.RoleName, err)
		}
		if existing > 0 {
			continue
		}

		role := def
		if err := s.db.WithContext(ctx).Create(&role).Error; err != nil {
			return created, fmt.Errorf("seed role %s: %w", def.RoleName, err)
		}
		created++
	}

	if created > 0 {
		s.InvalidateUserCaches(ctx)
	}
	return created, nil
}

// RoleByName is used by the CLI to resolve role names.
func (s *UserHandler) RoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := s.db.WithContext(ctx).Where("role_name = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("role", name)
		}
		return nil, fmt.Errorf("get role: %w", err)
	}
	return &role, nil
}
