package marketplace

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrMarketplaceNotFound = errors.New("marketplace not found")
	ErrVendorNotFound      = errors.New("vendor not found")
)

type Repository interface {
	CreateMarketplace(ctx context.Context, m *Marketplace) error
	GetMarketplace(ctx context.Context, id uuid.UUID) (*Marketplace, error)
	ListMarketplaces(ctx context.Context) ([]Marketplace, error)

	CreateVendor(ctx context.Context, v *Vendor) error
	GetVendor(ctx context.Context, id uuid.UUID) (*Vendor, error)
	GetVendorByAuthority(ctx context.Context, authorityID uuid.UUID) (*Vendor, error)
	SaveVendor(ctx context.Context, v *Vendor) error
	ListVendors(ctx context.Context, marketplaceID *uuid.UUID) ([]Vendor, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates the gorm-backed repository and migrates the directory
// tables.
func NewRepository(db *gorm.DB) (Repository, error) {
	if err := db.AutoMigrate(&Marketplace{}, &Vendor{}); err != nil {
		return nil, fmt.Errorf("failed to migrate marketplace tables: %w", err)
	}
	return &gormRepository{db: db}, nil
}

func (r *gormRepository) CreateMarketplace(ctx context.Context, m *Marketplace) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *gormRepository) GetMarketplace(ctx context.Context, id uuid.UUID) (*Marketplace, error) {
	var m Marketplace
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMarketplaceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *gormRepository) ListMarketplaces(ctx context.Context) ([]Marketplace, error) {
	var out []Marketplace
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *gormRepository) CreateVendor(ctx context.Context, v *Vendor) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *gormRepository) GetVendor(ctx context.Context, id uuid.UUID) (*Vendor, error) {
	var v Vendor
	err := r.db.WithContext(ctx).First(&v, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVendorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *gormRepository) GetVendorByAuthority(ctx context.Context, authorityID uuid.UUID) (*Vendor, error) {
	var v Vendor
	err := r.db.WithContext(ctx).First(&v, "authority_id = ?", authorityID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVendorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *gormRepository) SaveVendor(ctx context.Context, v *Vendor) error {
	return r.db.WithContext(ctx).Save(v).Error
}

func (r *gormRepository) ListVendors(ctx context.Context, marketplaceID *uuid.UUID) ([]Vendor, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if marketplaceID != nil {
		q = q.Where("marketplace_id = ?", *marketplaceID)
	}
	var out []Vendor
	err := q.Find(&out).Error
	return out, err
}
