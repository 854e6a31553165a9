package analytics

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTenantsCSV(t *testing.T) {
	created := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	rows := []TenantExportRow{
		{Name: "Acme Corp", Slug: "acme", Plan: "premium", Status: "active",
			CurrentUsers: 12, CurrentExpenses: 340, StorageUsedMB: 512, CreatedAt: created},
		{Name: "Globex, Inc", Slug: "globex", Plan: "free", Status: "trial",
			CurrentUsers: 1, CreatedAt: created.Add(24 * time.Hour)},
	}

	var buf bytes.Buffer
	require.NoError(t, writeTenantsCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"name", "slug", "plan", "status", "users", "expenses", "storage_mb", "created_at"}, records[0])
	assert.Equal(t, []string{"Acme Corp", "acme", "premium", "active", "12", "340", "512", "2026-03-15T10:30:00Z"}, records[1])
	// Comma in the name must survive the round trip via quoting.
	assert.Equal(t, "Globex, Inc", records[2][0])
	assert.Equal(t, "0", records[2][5])
}

func TestWriteTenantsCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTenantsCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1) // header only
}
