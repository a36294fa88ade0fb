package addresses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Input carries a shipping address payload.
type Input struct {
	Address string `validate:"required"`
	City    string `validate:"required"`
	State   string `validate:"required"`
	Country string `validate:"required"`
	Pincode string `validate:"required"`
}

// Service exposes user-owned shipping address CRUD.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input Input) (*models.ShippingAddress, error)
	Update(ctx context.Context, userID, id uuid.UUID, input Input) (*models.ShippingAddress, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]models.ShippingAddress, error)
}

type service struct {
	db *gorm.DB
}

// NewService builds an addresses service bound to the provided DB.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &service{db: db}, nil
}

func validate(input Input) error {
	for field, value := range map[string]string{
		"address": input.Address,
		"city":    input.City,
		"state":   input.State,
		"country": input.Country,
		"pincode": input.Pincode,
	} {
		if strings.TrimSpace(value) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, field+" is required")
		}
	}
	return nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input Input) (*models.ShippingAddress, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	address := &models.ShippingAddress{
		ID:      uuid.New(),
		UserID:  userID,
		Address: input.Address,
		City:    input.City,
		State:   input.State,
		Country: input.Country,
		Pincode: input.Pincode,
	}
	if err := s.db.WithContext(ctx).Create(address).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
	}
	return address, nil
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, input Input) (*models.ShippingAddress, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).
		Model(&models.ShippingAddress{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{
			"address": input.Address,
			"city":    input.City,
			"state":   input.State,
			"country": input.Country,
			"pincode": input.Pincode,
		})
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update address")
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}

	var address models.ShippingAddress
	if err := s.db.WithContext(ctx).First(&address, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload address")
	}
	return &address, nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.ShippingAddress{})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete address")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.ShippingAddress, error) {
	var addresses []models.ShippingAddress
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&addresses).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return addresses, nil
}
