package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/expensehub/backend/internal/models"
)

func freeTenant(users, expenses, storageMB int) *models.Tenant {
	return &models.Tenant{
		Usage: models.TenantUsage{
			CurrentUsers:    users,
			CurrentExpenses: expenses,
			StorageUsedMB:   storageMB,
		},
		Settings: models.TenantSettings{
			MaxUsers:       5,
			MaxExpenses:    100,
			StorageLimitMB: 100,
		},
	}
}

func TestComputeReport(t *testing.T) {
	report := Compute(freeTenant(5, 40, 100))

	assert.Equal(t, ResourceUsage{Current: 5, Limit: 5, Pct: 100}, report.Users)
	assert.Equal(t, ResourceUsage{Current: 40, Limit: 100, Pct: 40}, report.Expenses)
	assert.Equal(t, ResourceUsage{Current: 100, Limit: 100, Pct: 100}, report.Storage)
}

func TestUnlimitedNeverOverLimit(t *testing.T) {
	tenant := &models.Tenant{
		Usage: models.TenantUsage{CurrentUsers: 100000, CurrentExpenses: 100000, StorageUsedMB: 100000},
		Settings: models.TenantSettings{
			MaxUsers:       models.Unlimited,
			MaxExpenses:    models.Unlimited,
			StorageLimitMB: models.Unlimited,
		},
	}

	assert.False(t, IsOverLimit(tenant, ResourceUsers))
	assert.False(t, IsOverLimit(tenant, ResourceExpenses))
	assert.False(t, IsOverLimit(tenant, ResourceStorage))

	report := Compute(tenant)
	assert.Equal(t, 0, report.Users.Pct)
	assert.Equal(t, 0, report.Expenses.Pct)
	assert.Equal(t, 0, report.Storage.Pct)
}

func TestUserLimitBlocksAtCap(t *testing.T) {
	// Five seats on the free plan: the fifth user fills the cap, so the
	// sixth must be rejected.
	assert.False(t, IsOverLimit(freeTenant(4, 0, 0), ResourceUsers))
	assert.True(t, IsOverLimit(freeTenant(5, 0, 0), ResourceUsers))
	assert.True(t, IsOverLimit(freeTenant(6, 0, 0), ResourceUsers))
}

func TestPctRoundingAndCap(t *testing.T) {
	cases := []struct {
		name    string
		current int
		limit   int
		want    int
	}{
		{"rounds down", 1, 3, 33},
		{"rounds up", 2, 3, 67},
		{"capped at 100", 10, 3, 100},
		{"zero usage", 0, 5, 0},
		{"zero limit", 3, 0, 0},
		{"unlimited", 3, models.Unlimited, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, pct(tc.current, tc.limit))
		})
	}
}
