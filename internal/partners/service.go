// Package partners keeps the café's clients and ingredient providers.
package partners

import (
	"context"
	"net/mail"
	"strings"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/models"

	"gorm.io/gorm"
)

type ClientInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Allergies string `json:"allergies"`
}

type ProviderInput struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

func checkContact(name, email, phone *string) error {
	*name = strings.TrimSpace(*name)
	*email = strings.TrimSpace(strings.ToLower(*email))
	*phone = strings.TrimSpace(*phone)
	if *name == "" {
		return apperr.InvalidInput("name is required")
	}
	if len(*name) > 100 {
		return apperr.InvalidInput("name too long")
	}
	if *email != "" {
		if _, err := mail.ParseAddress(*email); err != nil {
			return apperr.InvalidInput("invalid email %q", *email)
		}
	}
	if len(*phone) > 20 {
		return apperr.InvalidInput("phone too long")
	}
	return nil
}

func (in *ClientInput) validate() error {
	return checkContact(&in.Name, &in.Email, &in.Phone)
}

func (in *ProviderInput) validate() error {
	in.Company = strings.TrimSpace(in.Company)
	return checkContact(&in.Name, &in.Email, &in.Phone)
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func search(q *gorm.DB, term string, cols ...string) *gorm.DB {
	term = strings.TrimSpace(strings.ToLower(term))
	if term == "" {
		return q
	}
	like := "%" + term + "%"
	clauses := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for _, c := range cols {
		clauses = append(clauses, "LOWER("+c+") LIKE ?")
		args = append(args, like)
	}
	return q.Where(strings.Join(clauses, " OR "), args...)
}

func (s *Service) ListClients(ctx context.Context, term string) ([]models.Client, error) {
	var out []models.Client
	err := search(s.db.WithContext(ctx), term, "name", "email", "phone").Order("name").Find(&out).Error
	return out, err
}

func (s *Service) GetClient(ctx context.Context, id uint) (models.Client, error) {
	var c models.Client
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return models.Client{}, apperr.FromDB(err, "client")
	}
	return c, nil
}

func (s *Service) CreateClient(ctx context.Context, in ClientInput) (models.Client, error) {
	if err := in.validate(); err != nil {
		return models.Client{}, err
	}
	c := models.Client{Name: in.Name, Email: in.Email, Phone: in.Phone, Address: in.Address, Allergies: in.Allergies}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return models.Client{}, apperr.FromDB(err, "client")
	}
	return c, nil
}

func (s *Service) UpdateClient(ctx context.Context, id uint, in ClientInput) (before, after models.Client, err error) {
	if err := in.validate(); err != nil {
		return models.Client{}, models.Client{}, err
	}
	if before, err = s.GetClient(ctx, id); err != nil {
		return models.Client{}, models.Client{}, err
	}
	after = before
	after.Name, after.Email, after.Phone, after.Address, after.Allergies = in.Name, in.Email, in.Phone, in.Address, in.Allergies
	if err := s.db.WithContext(ctx).Save(&after).Error; err != nil {
		return models.Client{}, models.Client{}, apperr.FromDB(err, "client")
	}
	return before, after, nil
}

// DeleteClient keeps past sales; their client reference is cleared.
func (s *Service) DeleteClient(ctx context.Context, id uint) (models.Client, error) {
	c, err := s.GetClient(ctx, id)
	if err != nil {
		return models.Client{}, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Sale{}).Where("client_id = ?", id).Update("client_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Client{}, id).Error
	})
	return c, err
}

func (s *Service) ListProviders(ctx context.Context, term string) ([]models.Provider, error) {
	var out []models.Provider
	err := search(s.db.WithContext(ctx), term, "name", "company", "email").Order("name").Find(&out).Error
	return out, err
}

func (s *Service) GetProvider(ctx context.Context, id uint) (models.Provider, error) {
	var p models.Provider
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return models.Provider{}, apperr.FromDB(err, "provider")
	}
	return p, nil
}

func (s *Service) CreateProvider(ctx context.Context, in ProviderInput) (models.Provider, error) {
	if err := in.validate(); err != nil {
		return models.Provider{}, err
	}
	p := models.Provider{Name: in.Name, Company: in.Company, Email: in.Email, Phone: in.Phone, Address: in.Address, Notes: in.Notes}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return models.Provider{}, apperr.FromDB(err, "provider")
	}
	return p, nil
}

func (s *Service) UpdateProvider(ctx context.Context, id uint, in ProviderInput) (before, after models.Provider, err error) {
	if err := in.validate(); err != nil {
		return models.Provider{}, models.Provider{}, err
	}
	if before, err = s.GetProvider(ctx, id); err != nil {
		return models.Provider{}, models.Provider{}, err
	}
	after = before
	after.Name, after.Company, after.Email, after.Phone, after.Address, after.Notes = in.Name, in.Company, in.Email, in.Phone, in.Address, in.Notes
	if err := s.db.WithContext(ctx).Save(&after).Error; err != nil {
		return models.Provider{}, models.Provider{}, apperr.FromDB(err, "provider")
	}
	return before, after, nil
}

// DeleteProvider detaches the provider from its ingredients first.
func (s *Service) DeleteProvider(ctx context.Context, id uint) (models.Provider, error) {
	p, err := s.GetProvider(ctx, id)
	if err != nil {
		return models.Provider{}, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Model(&models.Ingredient{}).Where("provider_id = ?", id).Update("provider_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Provider{}, id).Error
	})
	return p, err
}
