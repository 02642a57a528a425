package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printfleet-system/internal/apperr"
	"printfleet-system/internal/gateway/middleware"
	user "printfleet-system/internal/services/user/handler"
)

// SelfRegisterRole is the role given to accounts created through /auth/register.
const SelfRegisterRole = "viewer"

type UserHTTPHandler struct {
	responder
	users *user.UserHandler
}

func NewUserHTTPHandler(users *user.UserHandler, logger *zap.Logger) *UserHTTPHandler {
	return &UserHTTPHandler{
		responder: newResponder(logger),
		users:     users,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Firstname string `json:"firstname" binding:"required"`
	Lastname  string `json:"lastname" binding:"required"`
}

type CreateUserRequest struct {
	RegisterRequest
	RoleID int32 `json:"role_id" binding:"required"`
}

type CreateRoleRequest struct {
	RoleName    string `json:"role_name" binding:"required"`
	AccessLevel int32  `json:"access_level" binding:"required"`
	Permissions string `json:"permissions,omitempty"`
}

// --- Authentication ---

func (h *UserHTTPHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	session, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if apperr.HTTPStatus(err) == http.StatusInternalServerError {
			h.fail(c, err, "authenticate")
			return
		}
		h.error(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	h.success(c, session)
}

// Register creates a viewer account and signs it in. Other roles are granted by admins.
func (h *UserHTTPHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	role, err := h.users.RoleByName(c.Request.Context(), SelfRegisterRole)
	if err != nil {
		h.fail(c, err, "register")
		return
	}

	session, err := h.users.Register(c.Request.Context(), user.RegisterRequest{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		RoleID:    role.ID,
	})
	if err != nil {
		h.fail(c, err, "register")
		return
	}
	h.created(c, session)
}

func (h *UserHTTPHandler) Me(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		h.error(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	u, err := h.users.GetUser(c.Request.Context(), claims.UserId)
	if err != nil {
		h.fail(c, err, "get user")
		return
	}
	h.success(c, u)
}

// --- User Management ---

func (h *UserHTTPHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	u, err := h.users.CreateUser(c.Request.Context(), user.RegisterRequest{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		RoleID:    req.RoleID,
	})
	if err != nil {
		h.fail(c, err, "create user")
		return
	}
	h.created(c, u)
}

func (h *UserHTTPHandler) GetUser(c *gin.Context) {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		h.error(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	u, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "get user")
		return
	}
	h.success(c, u)
}

func (h *UserHTTPHandler) UpdateUser(c *gin.Context) {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		h.error(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req user.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	u, err := h.users.UpdateUser(c.Request.Context(), userID, req)
	if err != nil {
		h.fail(c, err, "update user")
		return
	}
	h.success(c, u)
}

func (h *UserHTTPHandler) ListUsers(c *gin.Context) {
	filter := user.UserFilter{
		IsActive: parseBoolQuery(c, "is_active"),
		Page:     buildPage(c),
	}
	if roleID := parseInt64Query(c, "role_id"); roleID != nil {
		id := int32(*roleID)
		filter.RoleID = &id
	}

	users, page, err := h.users.ListUsers(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err, "list users")
		return
	}
	h.successWithMeta(c, users, page)
}

// --- Role Management ---

func (h *UserHTTPHandler) CreateRole(c *gin.Context) {
	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	role, err := h.users.CreateRole(c.Request.Context(), req.RoleName, req.AccessLevel, req.Permissions)
	if err != nil {
		h.fail(c, err, "create role")
		return
	}
	h.created(c, role)
}

func (h *UserHTTPHandler) ListRoles(c *gin.Context) {
	roles, err := h.users.ListRoles(c.Request.Context())
	if err != nil {
		h.fail(c, err, "list roles")
		return
	}
	h.success(c, roles)
}
