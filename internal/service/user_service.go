package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService handles account management for HR and super admins.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated users.
func (s *UserService) List(ctx context.Context, query dto.UserQuery) ([]models.User, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err, "invalid user filters")
	}
	filter := models.UserFilter{
		Office:    query.Office,
		Search:    strings.TrimSpace(query.Search),
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	if query.Role != "" {
		role := models.UserRole(query.Role)
		filter.Role = &role
	}
	if query.Active != "" {
		active := query.Active == "true"
		filter.Active = &active
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list users")
	}
	return users, models.NewPagination(query.Page, query.PageSize, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}
	return user, nil
}

// Create adds a new account. Office accounts must name their office.
func (s *UserService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateUserRequest, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid create user payload")
	}
	if err := guardSuperAdmin(actor, req.Role); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check email uniqueness")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Office:       officeForRole(req.Role, req.Office),
		StudentNo:    req.StudentNo,
		Active:       req.Active,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, internalError(err, "failed to create user")
	}

	emitAudit(ctx, s.repo, s.logger, "user-service", &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionUserCreate,
		Resource:   "users",
		ResourceID: &user.ID,
		NewValues:  auditJSON(map[string]interface{}{"id": user.ID, "email": user.Email, "role": user.Role, "office": user.Office}),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return user, nil
}

// Update modifies the user attributes.
func (s *UserService) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateUserRequest, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid update payload")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}
	if err := guardSuperAdmin(actor, user.Role, req.Role); err != nil {
		return nil, err
	}

	before := auditJSON(map[string]interface{}{"role": user.Role, "office": user.Office, "active": user.Active})
	user.FullName = strings.TrimSpace(req.FullName)
	user.Role = req.Role
	user.Office = officeForRole(req.Role, req.Office)
	if req.StudentNo != nil {
		user.StudentNo = req.StudentNo
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, internalError(err, "failed to update user")
	}

	emitAudit(ctx, s.repo, s.logger, "user-service", &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionUserUpdate,
		Resource:   "users",
		ResourceID: &user.ID,
		OldValues:  before,
		NewValues:  auditJSON(map[string]interface{}{"role": user.Role, "office": user.Office, "active": user.Active}),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return user, nil
}

// Delete deactivates a user. Nobody can deactivate their own account.
func (s *UserService) Delete(ctx context.Context, actor *models.JWTClaims, id string, meta models.RequestMeta) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "missing authentication")
	}
	if id == actor.UserID {
		return appErrors.Clone(appErrors.ErrConflict, "cannot deactivate your own account")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "user not found", "failed to load user")
	}
	if err := guardSuperAdmin(actor, user.Role); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internalError(err, "failed to delete user")
	}

	emitAudit(ctx, s.repo, s.logger, "user-service", &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionUserDelete,
		Resource:   "users",
		ResourceID: &user.ID,
		OldValues:  auditJSON(map[string]interface{}{"active": user.Active}),
		NewValues:  []byte(`{"active":false}`),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return nil
}

// guardSuperAdmin lets only super admins grant or touch the SUPERADMIN role.
func guardSuperAdmin(actor *models.JWTClaims, roles ...models.UserRole) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "missing authentication")
	}
	if actor.Role == models.RoleSuperAdmin {
		return nil
	}
	for _, role := range roles {
		if role == models.RoleSuperAdmin {
			return appErrors.Clone(appErrors.ErrForbidden, "only a super admin can manage super admin accounts")
		}
	}
	return nil
}

// officeForRole keeps the office only on office accounts.
func officeForRole(role models.UserRole, office *string) *string {
	if role != models.RoleOffice || office == nil {
		return nil
	}
	return optionalString(*office)
}
