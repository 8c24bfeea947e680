package financing

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"partpay/financing-portal/financing-portal-backend/internal/registry"
	"partpay/financing-portal/financing-portal-backend/internal/treasury"
	"partpay/financing-portal/financing-portal-backend/pkg/derive"
	"partpay/financing-portal/financing-portal-backend/pkg/workflows"
)

// Service is the command surface of the financing core.
type Service interface {
	UploadEquipment(ctx context.Context, req UploadEquipmentRequest) (*Equipment, error)
	UpdateEquipment(ctx context.Context, req UpdateEquipmentRequest) (*Equipment, error)
	GetEquipment(ctx context.Context, id uuid.UUID) (*Equipment, error)
	ListVendorEquipment(ctx context.Context, vendorID uuid.UUID) ([]Equipment, error)
	ListFundedEquipment(ctx context.Context, funderID uuid.UUID) ([]Equipment, error)
	VerifyEquipmentAsset(ctx context.Context, equipmentID uuid.UUID) (bool, error)

	FundEquipment(ctx context.Context, req FundEquipmentRequest) (*Equipment, error)
	FundEquipmentForBorrower(ctx context.Context, req FundForBorrowerRequest) (*Equipment, error)
	FundEquipmentForListing(ctx context.Context, req FundForListingRequest) (*Equipment, error)

	CreateContract(ctx context.Context, req CreateContractRequest) (*Contract, error)
	MakePayment(ctx context.Context, req MakePaymentRequest) (*Contract, error)
	GetContractStatus(ctx context.Context, contractID uuid.UUID) (*ContractStatus, error)
	GetContract(ctx context.Context, id uuid.UUID) (*Contract, error)
	ListBorrowerContracts(ctx context.Context, authorityID uuid.UUID) ([]Contract, error)

	ConfirmDelivery(ctx context.Context, req ConfirmDeliveryRequest) error
	ConfirmFundedDelivery(ctx context.Context, req ConfirmFundedDeliveryRequest) error
	UpdateDeliveryStatus(ctx context.Context, req UpdateDeliveryStatusRequest) (*Equipment, error)

	InitializeBorrower(ctx context.Context, authorityID uuid.UUID) (*Borrower, error)
	TrackRepayment(ctx context.Context, req TrackRepaymentRequest) (*CreditScore, error)
	GetCreditScore(ctx context.Context, authorityID uuid.UUID) (*CreditScore, error)

	ScanOverdueContracts(ctx context.Context) (int, error)
}

// Config carries the program-wide constants. Passed explicitly into the
// service constructor; nothing here is ambient.
type Config struct {
	// StablecoinMint is the asset unit every transfer settles in.
	StablecoinMint uuid.UUID `json:"stablecoin_mint"`
	// StablecoinDecimals is informational for display layers.
	StablecoinDecimals int `json:"stablecoin_decimals"`
	// CreditPointScale divides payment amounts into credit points.
	CreditPointScale uint64 `json:"credit_point_scale"`
	// CompletionScoreDelta is credited to a contract on completion.
	CompletionScoreDelta int8 `json:"completion_score_delta"`
	// OverdueGraceSeconds is how long past the due date the overdue scan
	// waits before recording a default.
	OverdueGraceSeconds int64 `json:"overdue_grace_seconds"`
}

// DefaultConfig returns the production constants.
func DefaultConfig() Config {
	return Config{
		StablecoinDecimals:   6,
		CreditPointScale:     100,
		CompletionScoreDelta: 10,
		OverdueGraceSeconds:  3 * secondsPerDay,
	}
}

// Event is published after a state-changing operation commits.
type Event struct {
	Type        string    `json:"type"`
	EquipmentID uuid.UUID `json:"equipment_id,omitempty"`
	ContractID  uuid.UUID `json:"contract_id,omitempty"`
	BorrowerID  uuid.UUID `json:"borrower_id,omitempty"`
	Amount      uint64    `json:"amount,omitempty"`
	At          int64     `json:"at"`
}

// Event types emitted by the service.
const (
	EventContractCreated    = "contract.created"
	EventPaymentRecorded    = "payment.recorded"
	EventContractCompleted  = "contract.completed"
	EventDeliveryConfirmed  = "delivery.confirmed"
	EventEquipmentFunded    = "equipment.funded"
	EventRepaymentTracked   = "repayment.tracked"
)

// EventSink receives events best-effort; publishing never fails an operation.
type EventSink interface {
	Publish(event Event)
}

type service struct {
	repo     Repository
	transfer treasury.TransferClient
	clock    treasury.Clock
	assets   registry.AssetRegistry
	delivery *workflows.StateMachine
	events   EventSink
	logger   *zap.Logger
	cfg      Config
}

// NewService wires the financing core. The event sink may be nil.
func NewService(
	repo Repository,
	transfer treasury.TransferClient,
	clock treasury.Clock,
	assets registry.AssetRegistry,
	events EventSink,
	logger *zap.Logger,
	cfg Config,
) Service {
	return &service{
		repo:     repo,
		transfer: transfer,
		clock:    clock,
		assets:   assets,
		delivery: workflows.NewDeliveryStateMachine(),
		events:   events,
		logger:   logger,
		cfg:      cfg,
	}
}

func (s *service) publish(event Event) {
	if s.events != nil {
		s.events.Publish(event)
	}
}

// eventTime stamps events best-effort; a clock failure after the
// operation committed must not fail it.
func (s *service) eventTime(ctx context.Context) int64 {
	now, err := s.clock.Now(ctx)
	if err != nil {
		return 0
	}
	return now.Unix()
}

// UploadEquipmentRequest lists new equipment under a vendor.
type UploadEquipmentRequest struct {
	VendorID           uuid.UUID         `json:"vendor_id"`
	CollectionID       uuid.UUID         `json:"collection_id"`
	UniqueID           uuid.UUID         `json:"unique_id"`
	Name               string            `json:"name"`
	URI                string            `json:"uri"`
	Price              uint64            `json:"price"`
	Quantity           uint64            `json:"quantity"`
	MinimumDeposit     uint64            `json:"minimum_deposit"`
	MaxDurationSeconds int64             `json:"max_duration_seconds"`
	PaymentPreference  PaymentPreference `json:"payment_preference"`
	PreferenceTimeout  int64             `json:"preference_timeout_seconds"`
}

func (s *service) UploadEquipment(ctx context.Context, req UploadEquipmentRequest) (*Equipment, error) {
	if err := ValidateName(req.Name); err != nil {
		return nil, err
	}
	if err := ValidateURI(req.URI); err != nil {
		return nil, err
	}
	if err := ValidatePrice(req.Price); err != nil {
		return nil, err
	}
	if err := ValidatePrice(req.MinimumDeposit); err != nil {
		return nil, err
	}
	if err := ValidateDuration(req.MaxDurationSeconds); err != nil {
		return nil, err
	}
	if err := ValidateQuantity(req.Quantity); err != nil {
		return nil, err
	}

	assetID, err := s.assets.CreateAsset(ctx, registry.CreateAssetRequest{
		Owner:      req.VendorID,
		Collection: req.CollectionID,
		Name:       req.Name,
		URI:        req.URI,
	})
	if err != nil {
		return nil, err
	}

	metadata, _ := json.Marshal(map[string]any{
		"asset_id":   assetID,
		"collection": req.CollectionID,
		"uri":        req.URI,
	})

	preference := req.PaymentPreference
	if preference == "" {
		preference = PreferenceEither
	}

	equipment := &Equipment{
		ID:                 derive.Key(derive.SeedEquipment, req.VendorID, req.UniqueID),
		VendorID:           req.VendorID,
		AssetID:            assetID,
		UniqueID:           req.UniqueID,
		Name:               req.Name,
		URI:                req.URI,
		Price:              req.Price,
		MinimumDeposit:     req.MinimumDeposit,
		MaxDurationSeconds: req.MaxDurationSeconds,
		PaymentPreference:  preference,
		PreferenceTimeout:  req.PreferenceTimeout,
		TotalQuantity:      req.Quantity,
		Status:             EquipmentStatusAvailable,
		DeliveryStatus:     DeliveryStatusPending,
		AssetMetadata:      datatypes.JSON(metadata),
	}

	if err := s.repo.CreateEquipment(ctx, equipment); err != nil {
		return nil, err
	}

	s.logger.Info("equipment listed",
		zap.String("equipment_id", equipment.ID.String()),
		zap.String("vendor_id", req.VendorID.String()),
		zap.Uint64("quantity", req.Quantity))
	return equipment, nil
}

// UpdateEquipmentRequest changes mutable listing fields. Only the owning
// vendor may update a listing.
type UpdateEquipmentRequest struct {
	EquipmentID uuid.UUID `json:"equipment_id"`
	VendorID    uuid.UUID `json:"vendor_id"`
	Name        *string   `json:"name,omitempty"`
	URI         *string   `json:"uri,omitempty"`
	Price       *uint64   `json:"price,omitempty"`
}

func (s *service) UpdateEquipment(ctx context.Context, req UpdateEquipmentRequest) (*Equipment, error) {
	equipment, err := s.repo.GetEquipment(ctx, req.EquipmentID)
	if err != nil {
		return nil, err
	}
	if equipment.VendorID != req.VendorID {
		return nil, ErrUnauthorized
	}

	if req.Name != nil {
		if err := ValidateName(*req.Name); err != nil {
			return nil, err
		}
		equipment.Name = *req.Name
	}
	if req.URI != nil {
		if err := ValidateURI(*req.URI); err != nil {
			return nil, err
		}
		equipment.URI = *req.URI
	}
	if req.Price != nil {
		if err := ValidatePrice(*req.Price); err != nil {
			return nil, err
		}
		equipment.Price = *req.Price
	}

	if err := s.repo.SaveEquipment(ctx, equipment); err != nil {
		return nil, err
	}
	return equipment, nil
}

func (s *service) GetEquipment(ctx context.Context, id uuid.UUID) (*Equipment, error) {
	return s.repo.GetEquipment(ctx, id)
}

func (s *service) ListVendorEquipment(ctx context.Context, vendorID uuid.UUID) ([]Equipment, error) {
	return s.repo.ListEquipmentByVendor(ctx, vendorID)
}

func (s *service) ListFundedEquipment(ctx context.Context, funderID uuid.UUID) ([]Equipment, error) {
	return s.repo.ListEquipmentByFunder(ctx, funderID)
}

// VerifyEquipmentAsset checks the listing's digital asset against the
// registry, so buyers can confirm a listing is still backed before
// committing funds.
func (s *service) VerifyEquipmentAsset(ctx context.Context, equipmentID uuid.UUID) (bool, error) {
	equipment, err := s.repo.GetEquipment(ctx, equipmentID)
	if err != nil {
		return false, err
	}
	return s.assets.VerifyAsset(ctx, equipment.AssetID)
}

func (s *service) GetContract(ctx context.Context, id uuid.UUID) (*Contract, error) {
	return s.repo.GetContract(ctx, id)
}

func (s *service) ListBorrowerContracts(ctx context.Context, authorityID uuid.UUID) ([]Contract, error) {
	borrower, err := s.repo.GetBorrowerByAuthority(ctx, authorityID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListContractsByBorrower(ctx, borrower.ID)
}
