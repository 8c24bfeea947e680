package derive

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestKeyIsDeterministic(t *testing.T) {
	owner := uuid.New()
	uniqueID := uuid.New()

	first := Key(SeedEquipment, owner, uniqueID)
	second := Key(SeedEquipment, owner, uniqueID)

	assert.Equal(t, first, second)
	assert.NotEqual(t, uuid.Nil, first)
}

func TestKeySeedsDoNotCollide(t *testing.T) {
	owner := uuid.New()
	uniqueID := uuid.New()

	seeds := []string{
		SeedMarketplace, SeedVendor, SeedEquipment,
		SeedContract, SeedEscrow, SeedBorrower, SeedCreditScore,
	}

	seen := make(map[uuid.UUID]string, len(seeds))
	for _, seed := range seeds {
		key := Key(seed, owner, uniqueID)
		if prior, dup := seen[key]; dup {
			t.Fatalf("seed %q collides with %q", seed, prior)
		}
		seen[key] = seed
	}
}

func TestKeyVariesWithEveryComponent(t *testing.T) {
	owner := uuid.New()
	uniqueID := uuid.New()
	base := Key(SeedContract, owner, uniqueID)

	assert.NotEqual(t, base, Key(SeedContract, uuid.New(), uniqueID))
	assert.NotEqual(t, base, Key(SeedContract, owner, uuid.New()))
}

func TestScopedKeyIncludesScope(t *testing.T) {
	owner := uuid.New()
	scope := uuid.New()
	uniqueID := uuid.New()

	scoped := ScopedKey(SeedEscrow, owner, scope, uniqueID)

	assert.Equal(t, scoped, ScopedKey(SeedEscrow, owner, scope, uniqueID))
	assert.NotEqual(t, scoped, ScopedKey(SeedEscrow, owner, uuid.New(), uniqueID))
	assert.NotEqual(t, scoped, Key(SeedEscrow, owner, uniqueID))
}

func TestScopedKeyOrderMatters(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	uniqueID := uuid.New()

	assert.NotEqual(t,
		ScopedKey(SeedEscrow, a, b, uniqueID),
		ScopedKey(SeedEscrow, b, a, uniqueID))
}
