// Package derive produces the deterministic storage keys the keyed account
// store is addressed by. Keys are UUIDv5 digests over (entity seed, owner,
// unique id), so the same tuple always resolves to the same record without
// the caller knowing anything about storage layout.
package derive

import "github.com/google/uuid"

// Entity seeds. Changing a seed re-keys every record of that entity type.
const (
	SeedMarketplace = "marketplace"
	SeedVendor      = "vendor"
	SeedEquipment   = "equipment"
	SeedContract    = "bnpl_contract"
	SeedEscrow      = "escrow"
	SeedBorrower    = "borrower"
	SeedCreditScore = "credit_score"
)

var namespace = uuid.MustParse("8f1f9c52-7a4e-4c7d-9b39-5a0d52f6f0aa")

// Key derives the storage key for an entity owned by owner with the given
// unique id.
func Key(seed string, owner, uniqueID uuid.UUID) uuid.UUID {
	buf := make([]byte, 0, len(seed)+32)
	buf = append(buf, seed...)
	buf = append(buf, owner[:]...)
	buf = append(buf, uniqueID[:]...)
	return uuid.NewSHA1(namespace, buf)
}

// ScopedKey derives a key with an extra scope component, used for records
// addressed by three identities (an escrow is scoped to equipment, depositor
// and contract unique id).
func ScopedKey(seed string, owner, scope, uniqueID uuid.UUID) uuid.UUID {
	buf := make([]byte, 0, len(seed)+48)
	buf = append(buf, seed...)
	buf = append(buf, owner[:]...)
	buf = append(buf, scope[:]...)
	buf = append(buf, uniqueID[:]...)
	return uuid.NewSHA1(namespace, buf)
}
