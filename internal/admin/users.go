// Package admin exposes user management and the permission rules.
package admin

import (
	"context"
	"strings"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/auth"
	"cafe-backend/internal/models"

	"gorm.io/gorm"
)

type CreateUserRequest struct {
	Username string      `json:"username"`
	Name     string      `json:"name"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

type UpdateUserRequest struct {
	Name     *string      `json:"name"`
	Role     *models.Role `json:"role"`
	Password *string      `json:"password"`
}

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) Create(ctx context.Context, in CreateUserRequest) (models.User, error) {
	in.Username = auth.NormalizeUsername(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	if in.Username == "" || len(in.Username) > 50 {
		return models.User{}, apperr.InvalidInput("username must be 1-50 characters")
	}
	if in.Name == "" {
		in.Name = in.Username
	}
	if !in.Role.Valid() {
		return models.User{}, apperr.InvalidInput("unknown role %q", in.Role)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}

	u := models.User{Username: in.Username, Name: in.Name, PasswordHash: hash, Role: in.Role, Active: true}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("username = ?", in.Username).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("username %q is taken", in.Username)
		}
		return apperr.FromDB(tx.Create(&u).Error, "username")
	})
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, role models.Role, activeOnly bool) ([]models.User, error) {
	q := s.db.WithContext(ctx).Order("username")
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var out []models.User
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return models.User{}, apperr.FromDB(err, "user")
	}
	return u, nil
}

// lastOwner reports whether u is the only active owner left.
func (s *UserService) lastOwner(ctx context.Context, tx *gorm.DB, u models.User) (bool, error) {
	if u.Role != models.RoleOwner || !u.Active {
		return false, nil
	}
	var n int64
	err := tx.WithContext(ctx).Model(&models.User{}).
		Where("role = ? AND active = ? AND id <> ?", models.RoleOwner, true, u.ID).
		Count(&n).Error
	return n == 0, err
}

func (s *UserService) Update(ctx context.Context, id uint, in UpdateUserRequest) (before, after models.User, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&before, id).Error; err != nil {
			return apperr.FromDB(err, "user")
		}
		updates := map[string]any{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperr.InvalidInput("name must not be empty")
			}
			updates["name"] = name
		}
		if in.Role != nil && *in.Role != before.Role {
			if !in.Role.Valid() {
				return apperr.InvalidInput("unknown role %q", *in.Role)
			}
			last, err := s.lastOwner(ctx, tx, before)
			if err != nil {
				return err
			}
			if last {
				return apperr.Conflict("cannot change the role of the last owner")
			}
			updates["role"] = *in.Role
		}
		if in.Password != nil {
			hash, err := auth.HashPassword(*in.Password)
			if err != nil {
				return err
			}
			updates["password_hash"] = hash
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.First(&after, id).Error
	})
	return before, after, err
}

// SetActive deactivates or reactivates a user; the last active owner stays active.
func (s *UserService) SetActive(ctx context.Context, id uint, active bool) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&u, id).Error; err != nil {
			return apperr.FromDB(err, "user")
		}
		if !active {
			last, err := s.lastOwner(ctx, tx, u)
			if err != nil {
				return err
			}
			if last {
				return apperr.Conflict("cannot deactivate the last owner")
			}
		}
		if err := tx.Model(&models.User{}).Where("id = ?", id).Update("active", active).Error; err != nil {
			return err
		}
		u.Active = active
		return nil
	})
	return u, err
}
