package financing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the keyed account store for financing entities. The service
// treats it as opaque load/store by identifier; Transact scopes a set of
// stores to one atomic commit.
type Repository interface {
	Transact(ctx context.Context, fn func(Repository) error) error

	CreateEquipment(ctx context.Context, equipment *Equipment) error
	GetEquipment(ctx context.Context, id uuid.UUID) (*Equipment, error)
	SaveEquipment(ctx context.Context, equipment *Equipment) error
	ListEquipmentByVendor(ctx context.Context, vendorID uuid.UUID) ([]Equipment, error)
	ListEquipmentByFunder(ctx context.Context, funderID uuid.UUID) ([]Equipment, error)

	CreateFunderOffer(ctx context.Context, offer *FunderOffer) error
	GetFunderOfferByEscrow(ctx context.Context, escrowID uuid.UUID) (*FunderOffer, error)

	CreateContract(ctx context.Context, contract *Contract) error
	GetContract(ctx context.Context, id uuid.UUID) (*Contract, error)
	SaveContract(ctx context.Context, contract *Contract) error
	ListContractsByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]Contract, error)
	ListOpenContracts(ctx context.Context) ([]Contract, error)

	CreateEscrow(ctx context.Context, escrow *Escrow) error
	GetEscrow(ctx context.Context, id uuid.UUID) (*Escrow, error)
	SaveEscrow(ctx context.Context, escrow *Escrow) error

	CreateBorrower(ctx context.Context, borrower *Borrower) error
	GetBorrower(ctx context.Context, id uuid.UUID) (*Borrower, error)
	GetBorrowerByAuthority(ctx context.Context, authorityID uuid.UUID) (*Borrower, error)
	SaveBorrower(ctx context.Context, borrower *Borrower) error

	CreateCreditScore(ctx context.Context, score *CreditScore) error
	GetCreditScoreByBorrower(ctx context.Context, borrowerID uuid.UUID) (*CreditScore, error)
	SaveCreditScore(ctx context.Context, score *CreditScore) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates the gorm-backed repository and migrates the financing
// tables.
func NewRepository(db *gorm.DB) (Repository, error) {
	if err := db.AutoMigrate(
		&Equipment{},
		&FunderOffer{},
		&Contract{},
		&Escrow{},
		&CreditScore{},
		&Borrower{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate financing tables: %w", err)
	}
	return &gormRepository{db: db}, nil
}

func (r *gormRepository) Transact(ctx context.Context, fn func(Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) CreateEquipment(ctx context.Context, equipment *Equipment) error {
	return r.db.WithContext(ctx).Create(equipment).Error
}

func (r *gormRepository) GetEquipment(ctx context.Context, id uuid.UUID) (*Equipment, error) {
	var equipment Equipment
	err := r.db.WithContext(ctx).
		Preload("Funders", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&equipment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEquipmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &equipment, nil
}

func (r *gormRepository) SaveEquipment(ctx context.Context, equipment *Equipment) error {
	return r.db.WithContext(ctx).Omit("Funders").Save(equipment).Error
}

func (r *gormRepository) ListEquipmentByVendor(ctx context.Context, vendorID uuid.UUID) ([]Equipment, error) {
	var out []Equipment
	err := r.db.WithContext(ctx).
		Preload("Funders", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("vendor_id = ?", vendorID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (r *gormRepository) ListEquipmentByFunder(ctx context.Context, funderID uuid.UUID) ([]Equipment, error) {
	var out []Equipment
	err := r.db.WithContext(ctx).
		Preload("Funders", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Joins("JOIN funder_offers ON funder_offers.equipment_id = equipment.id").
		Where("funder_offers.funder_id = ?", funderID).
		Group("equipment.id").
		Find(&out).Error
	return out, err
}

func (r *gormRepository) CreateFunderOffer(ctx context.Context, offer *FunderOffer) error {
	return r.db.WithContext(ctx).Create(offer).Error
}

func (r *gormRepository) GetFunderOfferByEscrow(ctx context.Context, escrowID uuid.UUID) (*FunderOffer, error) {
	var offer FunderOffer
	err := r.db.WithContext(ctx).First(&offer, "escrow_id = ?", escrowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidEscrow
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *gormRepository) CreateContract(ctx context.Context, contract *Contract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

func (r *gormRepository) GetContract(ctx context.Context, id uuid.UUID) (*Contract, error) {
	var contract Contract
	err := r.db.WithContext(ctx).First(&contract, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrContractNotFound
	}
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *gormRepository) SaveContract(ctx context.Context, contract *Contract) error {
	return r.db.WithContext(ctx).Save(contract).Error
}

func (r *gormRepository) ListContractsByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]Contract, error) {
	var out []Contract
	err := r.db.WithContext(ctx).
		Where("borrower_id = ?", borrowerID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *gormRepository) ListOpenContracts(ctx context.Context) ([]Contract, error) {
	var out []Contract
	err := r.db.WithContext(ctx).Where("is_completed = false").Find(&out).Error
	return out, err
}

func (r *gormRepository) CreateEscrow(ctx context.Context, escrow *Escrow) error {
	return r.db.WithContext(ctx).Create(escrow).Error
}

func (r *gormRepository) GetEscrow(ctx context.Context, id uuid.UUID) (*Escrow, error) {
	var escrow Escrow
	err := r.db.WithContext(ctx).First(&escrow, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEscrowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &escrow, nil
}

func (r *gormRepository) SaveEscrow(ctx context.Context, escrow *Escrow) error {
	return r.db.WithContext(ctx).Save(escrow).Error
}

func (r *gormRepository) CreateBorrower(ctx context.Context, borrower *Borrower) error {
	return r.db.WithContext(ctx).Create(borrower).Error
}

func (r *gormRepository) GetBorrower(ctx context.Context, id uuid.UUID) (*Borrower, error) {
	var borrower Borrower
	err := r.db.WithContext(ctx).First(&borrower, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBorrowerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &borrower, nil
}

func (r *gormRepository) GetBorrowerByAuthority(ctx context.Context, authorityID uuid.UUID) (*Borrower, error) {
	var borrower Borrower
	err := r.db.WithContext(ctx).First(&borrower, "authority_id = ?", authorityID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBorrowerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &borrower, nil
}

func (r *gormRepository) SaveBorrower(ctx context.Context, borrower *Borrower) error {
	return r.db.WithContext(ctx).Save(borrower).Error
}

func (r *gormRepository) CreateCreditScore(ctx context.Context, score *CreditScore) error {
	return r.db.WithContext(ctx).Create(score).Error
}

func (r *gormRepository) GetCreditScoreByBorrower(ctx context.Context, borrowerID uuid.UUID) (*CreditScore, error) {
	var score CreditScore
	err := r.db.WithContext(ctx).First(&score, "borrower_id = ?", borrowerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBorrowerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &score, nil
}

func (r *gormRepository) SaveCreditScore(ctx context.Context, score *CreditScore) error {
	return r.db.WithContext(ctx).Save(score).Error
}
