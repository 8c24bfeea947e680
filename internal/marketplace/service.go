package marketplace

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"partpay/financing-portal/financing-portal-backend/internal/financing"
	"partpay/financing-portal/financing-portal-backend/internal/registry"
	"partpay/financing-portal/financing-portal-backend/pkg/derive"
)

var ErrVendorNotActive = errors.New("vendor is not active")

// Service is the marketplace directory: marketplaces, vendor profiles and
// the listing flow that hands equipment to the financing core.
type Service interface {
	CreateMarketplace(ctx context.Context, req CreateMarketplaceRequest) (*Marketplace, error)
	GetMarketplace(ctx context.Context, id uuid.UUID) (*Marketplace, error)
	ListMarketplaces(ctx context.Context) ([]Marketplace, error)

	CreateVendor(ctx context.Context, req CreateVendorRequest) (*Vendor, error)
	GetVendor(ctx context.Context, id uuid.UUID) (*Vendor, error)
	ListVendors(ctx context.Context, marketplaceID *uuid.UUID) ([]Vendor, error)
	SetVendorStatus(ctx context.Context, vendorID uuid.UUID, status VendorStatus) (*Vendor, error)

	ListEquipment(ctx context.Context, req ListEquipmentRequest) (*financing.Equipment, error)
	VendorCatalog(ctx context.Context, vendorID uuid.UUID) ([]financing.Equipment, error)
}

type service struct {
	repo        Repository
	collections registry.CollectionRegistry
	financing   financing.Service
	logger      *zap.Logger
}

func NewService(repo Repository, collections registry.CollectionRegistry, fin financing.Service, logger *zap.Logger) Service {
	return &service{
		repo:        repo,
		collections: collections,
		financing:   fin,
		logger:      logger,
	}
}

// CreateMarketplaceRequest opens a marketplace directory entry.
type CreateMarketplaceRequest struct {
	AuthorityID uuid.UUID `json:"authority_id"`
	UniqueID    uuid.UUID `json:"unique_id"`
	Name        string    `json:"name"`
	URI         string    `json:"uri"`
}

func (s *service) CreateMarketplace(ctx context.Context, req CreateMarketplaceRequest) (*Marketplace, error) {
	if err := financing.ValidateName(req.Name); err != nil {
		return nil, err
	}
	if err := financing.ValidateURI(req.URI); err != nil {
		return nil, err
	}

	collectionID, err := s.collections.CreateCollection(ctx, registry.CreateCollectionRequest{
		Authority: req.AuthorityID,
		Name:      req.Name,
		URI:       req.URI,
	})
	if err != nil {
		return nil, err
	}

	m := &Marketplace{
		ID:           derive.Key(derive.SeedMarketplace, req.AuthorityID, req.UniqueID),
		AuthorityID:  req.AuthorityID,
		CollectionID: collectionID,
		Name:         req.Name,
		URI:          req.URI,
	}
	if err := s.repo.CreateMarketplace(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info("marketplace created",
		zap.String("marketplace_id", m.ID.String()),
		zap.String("name", m.Name))
	return m, nil
}

func (s *service) GetMarketplace(ctx context.Context, id uuid.UUID) (*Marketplace, error) {
	return s.repo.GetMarketplace(ctx, id)
}

func (s *service) ListMarketplaces(ctx context.Context) ([]Marketplace, error) {
	return s.repo.ListMarketplaces(ctx)
}

// CreateVendorRequest registers a seller profile, optionally under a
// marketplace.
type CreateVendorRequest struct {
	AuthorityID        uuid.UUID  `json:"authority_id"`
	MarketplaceID      *uuid.UUID `json:"marketplace_id,omitempty"`
	UniqueID           uuid.UUID  `json:"unique_id"`
	CollectionUniqueID uuid.UUID  `json:"collection_unique_id"`
	Name               string     `json:"name"`
	URI                string     `json:"uri"`
}

func (s *service) CreateVendor(ctx context.Context, req CreateVendorRequest) (*Vendor, error) {
	if err := financing.ValidateName(req.Name); err != nil {
		return nil, err
	}
	if err := financing.ValidateURI(req.URI); err != nil {
		return nil, err
	}
	if req.MarketplaceID != nil {
		if _, err := s.repo.GetMarketplace(ctx, *req.MarketplaceID); err != nil {
			return nil, err
		}
	}

	collectionID, err := s.collections.CreateCollection(ctx, registry.CreateCollectionRequest{
		Authority: req.AuthorityID,
		Name:      req.Name,
		URI:       req.URI,
	})
	if err != nil {
		return nil, err
	}

	v := &Vendor{
		ID:                 derive.Key(derive.SeedVendor, req.AuthorityID, req.UniqueID),
		AuthorityID:        req.AuthorityID,
		MarketplaceID:      req.MarketplaceID,
		CollectionID:       collectionID,
		UniqueID:           req.UniqueID,
		CollectionUniqueID: req.CollectionUniqueID,
		Name:               req.Name,
		URI:                req.URI,
		Status:             VendorStatusActive,
	}
	if err := s.repo.CreateVendor(ctx, v); err != nil {
		return nil, err
	}

	s.logger.Info("vendor created",
		zap.String("vendor_id", v.ID.String()),
		zap.String("name", v.Name))
	return v, nil
}

func (s *service) GetVendor(ctx context.Context, id uuid.UUID) (*Vendor, error) {
	return s.repo.GetVendor(ctx, id)
}

func (s *service) ListVendors(ctx context.Context, marketplaceID *uuid.UUID) ([]Vendor, error) {
	return s.repo.ListVendors(ctx, marketplaceID)
}

func (s *service) SetVendorStatus(ctx context.Context, vendorID uuid.UUID, status VendorStatus) (*Vendor, error) {
	vendor, err := s.repo.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	vendor.Status = status
	if err := s.repo.SaveVendor(ctx, vendor); err != nil {
		return nil, err
	}
	return vendor, nil
}

// ListEquipmentRequest puts equipment on sale under a vendor profile.
type ListEquipmentRequest struct {
	VendorAuthorityID  uuid.UUID                   `json:"vendor_authority_id"`
	UniqueID           uuid.UUID                   `json:"unique_id"`
	Name               string                      `json:"name"`
	URI                string                      `json:"uri"`
	Price              uint64                      `json:"price"`
	Quantity           uint64                      `json:"quantity"`
	MinimumDeposit     uint64                      `json:"minimum_deposit"`
	MaxDurationSeconds int64                       `json:"max_duration_seconds"`
	PaymentPreference  financing.PaymentPreference `json:"payment_preference"`
	PreferenceTimeout  int64                       `json:"preference_timeout_seconds"`
}

// ListEquipment resolves the vendor profile, hands the listing to the
// financing core and bumps the vendor's equipment counter. Suspended and
// deactivated vendors cannot list.
func (s *service) ListEquipment(ctx context.Context, req ListEquipmentRequest) (*financing.Equipment, error) {
	vendor, err := s.repo.GetVendorByAuthority(ctx, req.VendorAuthorityID)
	if err != nil {
		return nil, err
	}
	if vendor.Status != VendorStatusActive {
		return nil, ErrVendorNotActive
	}

	equipment, err := s.financing.UploadEquipment(ctx, financing.UploadEquipmentRequest{
		VendorID:           vendor.ID,
		CollectionID:       vendor.CollectionID,
		UniqueID:           req.UniqueID,
		Name:               req.Name,
		URI:                req.URI,
		Price:              req.Price,
		Quantity:           req.Quantity,
		MinimumDeposit:     req.MinimumDeposit,
		MaxDurationSeconds: req.MaxDurationSeconds,
		PaymentPreference:  req.PaymentPreference,
		PreferenceTimeout:  req.PreferenceTimeout,
	})
	if err != nil {
		return nil, err
	}

	vendor.EquipmentCount++
	if err := s.repo.SaveVendor(ctx, vendor); err != nil {
		return nil, err
	}
	return equipment, nil
}

// VendorCatalog returns every listing a vendor has on the market.
func (s *service) VendorCatalog(ctx context.Context, vendorID uuid.UUID) ([]financing.Equipment, error) {
	if _, err := s.repo.GetVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	return s.financing.ListVendorEquipment(ctx, vendorID)
}
