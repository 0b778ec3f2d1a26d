package service

import (
	"context"

	"go.uber.org/zap"

	"povertyline/internal/apperr"
	"povertyline/internal/domain"
	"povertyline/internal/models"
	"povertyline/internal/policy"
	"povertyline/internal/repository"
)

// UserService handles account management.
type UserService interface {
	ListUsers(ctx context.Context, actor policy.Actor, req ListUsersRequest) (*ListUsersResponse, error)
	GetUser(ctx context.Context, actor policy.Actor, userID string) (*domain.User, error)
	UpdateUser(ctx context.Context, actor policy.Actor, req UpdateUserRequest) (*domain.User, error)
	DeleteUser(ctx context.Context, actor policy.Actor, userID string) error
	VerifyUser(ctx context.Context, actor policy.Actor, userID, status string) (*domain.User, error)
}

type userService struct {
	usersRepo repository.UsersRepository
	logger    *zap.Logger
}

func NewUserService(usersRepo repository.UsersRepository, logger *zap.Logger) UserService {
	return &userService{usersRepo: usersRepo, logger: logger}
}

// ListUsersRequest narrows and paginates a user listing.
type ListUsersRequest struct {
	Role               string
	VerificationStatus string
	Search             string
	Page               models.PageParams
}

// ListUsersResponse carries one page of users.
type ListUsersResponse struct {
	Users []*domain.User
	Meta  models.PageMeta
}

// UpdateUserRequest carries a partial user update. Nil fields are untouched.
// Role, IsActive and VerificationStatus only apply when the actor is admin.
type UpdateUserRequest struct {
	UserID             string
	Username           *string
	Email              *string
	Role               *string
	IsActive           *bool
	VerificationStatus *string
}

func (s *userService) ListUsers(ctx context.Context, actor policy.Actor, req ListUsersRequest) (*ListUsersResponse, error) {
	if d := policy.CanManageUsers(actor); !d.Allow {
		return nil, apperr.New(apperr.CodeForbidden, d.Reason)
	}

	filters := repository.UserFilters{Search: req.Search}
	// Unknown filter values are dropped rather than failing the listing.
	if _, ok := domain.ParseUserRole(req.Role); ok {
		filters.Role = req.Role
	}
	if _, ok := domain.ParseVerificationStatus(req.VerificationStatus); ok {
		filters.VerificationStatus = req.VerificationStatus
	}

	page := req.Page.Normalize()
	users, total, err := s.usersRepo.List(ctx, filters, page)
	if err != nil {
		return nil, err
	}
	return &ListUsersResponse{
		Users: users,
		Meta:  models.NewPageMeta(page, total),
	}, nil
}

func (s *userService) GetUser(ctx context.Context, actor policy.Actor, userID string) (*domain.User, error) {
	if d := policy.CanViewUser(actor, userID); !d.Allow {
		return nil, apperr.New(apperr.CodeForbidden, d.Reason)
	}
	return s.usersRepo.GetByID(ctx, userID)
}

func (s *userService) UpdateUser(ctx context.Context, actor policy.Actor, req UpdateUserRequest) (*domain.User, error) {
	if d := policy.CanViewUser(actor, req.UserID); !d.Allow {
		return nil, apperr.New(apperr.CodeForbidden, d.Reason)
	}

	user, err := s.usersRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Email != nil {
		if !validateEmail(*req.Email) {
			return nil, apperr.Invalid("Invalid email format")
		}
		user.Email = *req.Email
	}

	if req.Role != nil || req.IsActive != nil || req.VerificationStatus != nil {
		if d := policy.CanSetAdminUserFields(actor); !d.Allow {
			return nil, apperr.New(apperr.CodeForbidden, d.Reason)
		}
		if req.Role != nil {
			role, ok := domain.ParseUserRole(*req.Role)
			if !ok {
				return nil, apperr.Invalid("Invalid role")
			}
			user.Role = role
		}
		if req.IsActive != nil {
			user.IsActive = *req.IsActive
		}
		if req.VerificationStatus != nil {
			status, ok := domain.ParseVerificationStatus(*req.VerificationStatus)
			if !ok {
				return nil, apperr.Invalid("Invalid verification status")
			}
			user.VerificationStatus = status
		}
	}

	if err := s.usersRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, actor policy.Actor, userID string) error {
	if d := policy.CanManageUsers(actor); !d.Allow {
		return apperr.New(apperr.CodeForbidden, d.Reason)
	}
	if err := s.usersRepo.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("User deleted",
		zap.String("user_id", userID),
		zap.String("deleted_by", actor.ID))
	return nil
}

func (s *userService) VerifyUser(ctx context.Context, actor policy.Actor, userID, status string) (*domain.User, error) {
	if d := policy.CanManageUsers(actor); !d.Allow {
		return nil, apperr.New(apperr.CodeForbidden, d.Reason)
	}

	parsed, ok := domain.ParseVerificationStatus(status)
	if !ok {
		return nil, apperr.Invalid("Invalid verification status")
	}

	user, err := s.usersRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.VerificationStatus = parsed
	if err := s.usersRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User verification updated",
		zap.String("user_id", userID),
		zap.String("status", status),
		zap.String("verified_by", actor.ID))
	return user, nil
}
