package marketplace

import (
	"time"

	"github.com/google/uuid"
)

// VendorStatus gates a vendor's ability to list and sell
type VendorStatus string

const (
	VendorStatusActive      VendorStatus = "active"
	VendorStatusSuspended   VendorStatus = "suspended"
	VendorStatusDeactivated VendorStatus = "deactivated"
)

// Marketplace is a top-level directory under which vendors register. Each
// marketplace owns a registry collection its vendor assets roll up into.
type Marketplace struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	AuthorityID  uuid.UUID `json:"authority_id" gorm:"type:uuid;not null;index"`
	CollectionID uuid.UUID `json:"collection_id" gorm:"type:uuid"`
	Name         string    `json:"name" gorm:"not null"`
	URI          string    `json:"uri" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Vendor is a seller profile with its own registry collection.
type Vendor struct {
	ID                 uuid.UUID    `json:"id" gorm:"type:uuid;primary_key"`
	AuthorityID        uuid.UUID    `json:"authority_id" gorm:"type:uuid;not null;index"`
	MarketplaceID      *uuid.UUID   `json:"marketplace_id,omitempty" gorm:"type:uuid;index"`
	CollectionID       uuid.UUID    `json:"collection_id" gorm:"type:uuid"`
	UniqueID           uuid.UUID    `json:"unique_id" gorm:"type:uuid;not null;uniqueIndex"`
	CollectionUniqueID uuid.UUID    `json:"collection_unique_id" gorm:"type:uuid"`
	Name               string       `json:"name" gorm:"not null"`
	URI                string       `json:"uri" gorm:"not null"`
	Status             VendorStatus `json:"status" gorm:"default:'active'"`
	EquipmentCount     uint64       `json:"equipment_count" gorm:"default:0"`
	CreatedAt          time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
}
