// internal/service/user_service.go
package service

import (
	"context"
	"errors"

	"quizcards/internal/middleware"
	"quizcards/internal/model"
	"quizcards/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error)
}

type userService struct {
	db       *gorm.DB
	userRepo repository.UserRepository
}

func NewUserService(db *gorm.DB, userRepo repository.UserRepository) UserService {
	return &userService{
		db:       db,
		userRepo: userRepo,
	}
}

func (s *userService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	logger := middleware.GetLogger(ctx)

	if req.Name == "" || req.Email == "" {
		return nil, model.ErrInvalidInput
	}

	var created *model.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.userRepo.CheckEmailExists(ctx, tx, req.Email)
		if err != nil {
			logger.Error("Error checking email existence in transaction", "error", err)
			return model.ErrInternalServer
		}
		if exists {
			return model.ErrConflict
		}

		user := &model.User{
			UserID: uuid.New(),
			Name:   req.Name,
			Email:  req.Email,
		}
		if err := s.userRepo.Create(ctx, tx, user); err != nil {
			logger.Error("Error creating user in transaction", "error", err)
			return model.ErrInternalServer
		}

		created = user
		return nil // コミット
	})
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, model.NewAppError("CONFLICT", "このメールアドレスは既に登録されています。", "email", model.ErrConflict)
		}
		return nil, model.ErrInternalServer
	}

	logger.Info("User registered", "user_id", created.UserID)
	return created, nil
}

func (s *userService) GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, model.ErrInternalServer
	}
	return user, nil
}
