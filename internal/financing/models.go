package financing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EquipmentStatus represents the sale lifecycle of a listed equipment record
type EquipmentStatus string

const (
	EquipmentStatusAvailable     EquipmentStatus = "available"
	EquipmentStatusFunded        EquipmentStatus = "funded"
	EquipmentStatusPartiallySold EquipmentStatus = "partially_sold"
	EquipmentStatusSold          EquipmentStatus = "sold"
	EquipmentStatusReserved      EquipmentStatus = "reserved"
)

// DeliveryStatus tracks physical delivery of an equipment unit
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusShipped   DeliveryStatus = "shipped"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusDisputed  DeliveryStatus = "disputed"
)

// PaymentPreference controls which financing paths a vendor accepts
type PaymentPreference string

const (
	// PreferenceVendorOnly allows installment sales paid directly to the vendor
	PreferenceVendorOnly PaymentPreference = "vendor_only"
	// PreferenceFunderOnly requires a third-party funder to buy out the unit
	PreferenceFunderOnly PaymentPreference = "funder_only"
	// PreferenceEither accepts both until the configured timeout elapses
	PreferenceEither PaymentPreference = "either"
)

// InstallmentFrequency is the expected payment cadence of a contract
type InstallmentFrequency string

const (
	FrequencyDaily   InstallmentFrequency = "daily"
	FrequencyWeekly  InstallmentFrequency = "weekly"
	FrequencyMonthly InstallmentFrequency = "monthly"
	FrequencyCustom  InstallmentFrequency = "custom"
)

// PayeeType identifies which party a contract pays
type PayeeType string

const (
	PayeeVendor PayeeType = "vendor"
	PayeeFunder PayeeType = "funder"
)

// Equipment represents a vendor listing with partitioned inventory counters.
// SoldQuantity counts vendor-direct sales, FundedSoldQuantity counts sales
// against funder-committed units. Invariants:
//
//	SoldQuantity + FundedSoldQuantity <= TotalQuantity
//	FundedSoldQuantity <= FundedQuantity
type Equipment struct {
	ID                 uuid.UUID         `json:"id" gorm:"type:uuid;primary_key"`
	VendorID           uuid.UUID         `json:"vendor_id" gorm:"type:uuid;not null;index"`
	AssetID            uuid.UUID         `json:"asset_id" gorm:"type:uuid"`
	UniqueID           uuid.UUID         `json:"unique_id" gorm:"type:uuid;not null;uniqueIndex"`
	Name               string            `json:"name" gorm:"not null"`
	URI                string            `json:"uri" gorm:"not null"`
	Price              uint64            `json:"price" gorm:"not null"`
	MinimumDeposit     uint64            `json:"minimum_deposit" gorm:"not null"`
	MaxDurationSeconds int64             `json:"max_duration_seconds" gorm:"not null"`
	PaymentPreference  PaymentPreference `json:"payment_preference" gorm:"default:'either'"`
	PreferenceTimeout  int64             `json:"preference_timeout_seconds" gorm:"default:0"`
	TotalQuantity      uint64            `json:"total_quantity" gorm:"not null"`
	FundedQuantity     uint64            `json:"funded_quantity" gorm:"default:0"`
	SoldQuantity       uint64            `json:"sold_quantity" gorm:"default:0"`
	FundedSoldQuantity uint64            `json:"funded_sold_quantity" gorm:"default:0"`
	Status             EquipmentStatus   `json:"status" gorm:"default:'available';index"`
	DeliveryStatus     DeliveryStatus    `json:"delivery_status" gorm:"default:'pending'"`
	AssetMetadata      datatypes.JSON    `json:"asset_metadata" gorm:"default:'{}'"`
	CreatedAt          time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time         `json:"updated_at" gorm:"autoUpdateTime"`

	// Funders is the append-only ordered list of funding offers; matching is
	// first-match in insertion order.
	Funders []FunderOffer `json:"funders" gorm:"foreignKey:EquipmentID"`
}

// VendorAddressableQuantity is the portion of inventory the vendor may sell
// directly, i.e. units not committed to funders.
func (e *Equipment) VendorAddressableQuantity() uint64 {
	return e.TotalQuantity - e.FundedQuantity
}

// FunderOffer represents a third party's commitment to finance a quantity of
// units under its own deposit/duration terms. BorrowerID is set only for
// pre-arranged deals.
type FunderOffer struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	EquipmentID     uuid.UUID  `json:"equipment_id" gorm:"type:uuid;not null;index"`
	FunderID        uuid.UUID  `json:"funder_id" gorm:"type:uuid;not null;index"`
	Quantity        uint64     `json:"quantity" gorm:"not null"`
	MinimumDeposit  uint64     `json:"minimum_deposit" gorm:"not null"`
	DurationSeconds int64      `json:"duration_seconds" gorm:"not null"`
	FunderPrice     uint64     `json:"funder_price" gorm:"default:0"`
	BorrowerID      *uuid.UUID `json:"borrower_id,omitempty" gorm:"type:uuid"`
	EscrowID        *uuid.UUID `json:"escrow_id,omitempty" gorm:"type:uuid"`
	Position        int        `json:"position" gorm:"not null"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

// Contract is a BNPL installment agreement covering one equipment unit.
// The payee is resolved once at origination and stored; payment and delivery
// logic trust the stored fields rather than re-deriving them.
type Contract struct {
	ID                 uuid.UUID            `json:"id" gorm:"type:uuid;primary_key"`
	BorrowerID         uuid.UUID            `json:"borrower_id" gorm:"type:uuid;not null;index"`
	PayeeID            uuid.UUID            `json:"payee_id" gorm:"type:uuid;not null"`
	PayeeType          PayeeType            `json:"payee_type" gorm:"not null"`
	FunderOfferID      *uuid.UUID           `json:"funder_offer_id,omitempty" gorm:"type:uuid"`
	EquipmentID        uuid.UUID            `json:"equipment_id" gorm:"type:uuid;not null;index"`
	EquipmentUnitIndex uint64               `json:"equipment_unit_index"`
	TotalAmount        uint64               `json:"total_amount" gorm:"not null"`
	AmountPaid         uint64               `json:"amount_paid" gorm:"default:0"`
	Deposit            uint64               `json:"deposit" gorm:"not null"`
	StartDate          int64                `json:"start_date" gorm:"not null"`
	EndDate            int64                `json:"end_date" gorm:"not null"`
	UniqueID           uuid.UUID            `json:"unique_id" gorm:"type:uuid;not null;uniqueIndex"`
	LastPaymentDate    int64                `json:"last_payment_date"`
	InstallmentCount   uint8                `json:"installment_count"`
	PaidInstallments   uint8                `json:"paid_installments"`
	Frequency          InstallmentFrequency `json:"installment_frequency" gorm:"not null"`
	CustomFrequency    int64                `json:"custom_frequency_seconds" gorm:"default:0"`
	IsCompleted        bool                 `json:"is_completed" gorm:"default:false"`
	IsDefaulted        bool                 `json:"is_defaulted" gorm:"default:false"`
	InsurancePremium   *uint64              `json:"insurance_premium,omitempty"`
	IsInsured          bool                 `json:"is_insured" gorm:"default:false"`
	CreditScoreDelta   int8                 `json:"credit_score_delta" gorm:"default:0"`
	StablecoinMint     uuid.UUID            `json:"stablecoin_mint" gorm:"type:uuid"`
	EscrowID           uuid.UUID            `json:"escrow_id" gorm:"type:uuid;not null"`
	CreatedAt          time.Time            `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time            `json:"updated_at" gorm:"autoUpdateTime"`
}

// FrequencySeconds returns the cadence of the contract in seconds.
func (c *Contract) FrequencySeconds() int64 {
	return frequencySeconds(c.Frequency, c.CustomFrequency)
}

// Escrow holds funds in trust for one contract or funding reservation until
// delivery is confirmed. Exactly one release is permitted.
type Escrow struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	EquipmentID uuid.UUID `json:"equipment_id" gorm:"type:uuid;not null;index"`
	DepositorID uuid.UUID `json:"depositor_id" gorm:"type:uuid;not null"`
	VendorID    uuid.UUID `json:"vendor_id" gorm:"type:uuid;not null"`
	Amount      uint64    `json:"amount" gorm:"not null"`
	IsReleased  bool      `json:"is_released" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// CreditScore tracks a borrower's repayment history. Counters are monotonic;
// the score saturates at zero on the way down.
type CreditScore struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	BorrowerID     uuid.UUID `json:"borrower_id" gorm:"type:uuid;not null;uniqueIndex"`
	OnTimePayments uint32    `json:"on_time_payments" gorm:"default:0"`
	LatePayments   uint32    `json:"late_payments" gorm:"default:0"`
	Defaults       uint32    `json:"defaults" gorm:"default:0"`
	Score          uint64    `json:"score" gorm:"default:0"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Borrower is the onboarded buyer identity linked to a credit score record.
type Borrower struct {
	ID                uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	AuthorityID       uuid.UUID `json:"authority_id" gorm:"type:uuid;not null;uniqueIndex"`
	CreditScoreID     uuid.UUID `json:"credit_score_id" gorm:"type:uuid;not null"`
	TotalLoans        uint64    `json:"total_loans" gorm:"default:0"`
	TotalRepayments   uint64    `json:"total_repayments" gorm:"default:0"`
	LastRepaymentDate int64     `json:"last_repayment_date" gorm:"default:0"`
	CreatedAt         time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// ContractStatus is the read-only projection returned by GetContractStatus.
type ContractStatus struct {
	Progress             uint8   `json:"progress"`
	TotalDue             uint64  `json:"total_due"`
	RemainingAmount      uint64  `json:"remaining_amount"`
	TimeSinceLastPayment int64   `json:"time_since_last_payment"`
	IsPaymentOverdue     bool    `json:"is_payment_overdue"`
	NextPaymentDue       int64   `json:"next_payment_due"`
	InsurancePremium     *uint64 `json:"insurance_premium,omitempty"`
}
