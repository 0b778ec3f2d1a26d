package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"povertyline/internal/domain"
	"povertyline/internal/repository"
)

func newExportFixture(t *testing.T) (ExportService, *repository.Memory) {
	t.Helper()
	mem := repository.NewMemory()
	return NewExportService(mem.Users, mem.Resources, zap.NewNop()), mem
}

func seedExportUsers(t *testing.T, mem *repository.Memory, n int) {
	t.Helper()
	now := time.Now().UTC()
	for i := 0; i < n; i++ {
		user := &domain.User{
			ID:                 uuid.NewString(),
			Username:           "user" + uuid.NewString()[:8],
			Email:              uuid.NewString()[:8] + "@example.com",
			PasswordHash:       "x",
			Role:               domain.RoleUser,
			VerificationStatus: domain.VerificationUnverified,
			IsActive:           true,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		require.NoError(t, mem.Users.Create(context.Background(), user))
	}
}

func TestExportUsersJSON(t *testing.T) {
	svc, mem := newExportFixture(t)
	seedExportUsers(t, mem, 3)

	result, err := svc.ExportUsers(context.Background(), adminActor, "json")
	require.NoError(t, err)
	require.NotNil(t, result.JSON)
	assert.Nil(t, result.Workbook)
	assert.Equal(t, 3, result.JSON["count"])
	assert.Len(t, result.JSON["data"], 3)
	assert.NotEmpty(t, result.JSON["timestamp"])

	// the export must not leak credential material
	rows := result.JSON["data"].([]map[string]any)
	_, leaked := rows[0]["password_hash"]
	assert.False(t, leaked)
}

func TestExportUsersXLSX(t *testing.T) {
	svc, mem := newExportFixture(t)
	seedExportUsers(t, mem, 2)

	result, err := svc.ExportUsers(context.Background(), adminActor, "xlsx")
	require.NoError(t, err)
	require.NotNil(t, result.Workbook)

	f, err := excelize.OpenReader(bytes.NewReader(result.Workbook))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("users")
	require.NoError(t, err)
	// header plus two data rows
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Username", rows[0][1])
}

func TestExportRequiresAdmin(t *testing.T) {
	svc, _ := newExportFixture(t)

	_, err := svc.ExportUsers(context.Background(), providerActor, "json")
	require.Error(t, err)
	_, err = svc.ExportResources(context.Background(), userActor, "json")
	require.Error(t, err)
}

func TestExportInvalidFormat(t *testing.T) {
	svc, _ := newExportFixture(t)

	_, err := svc.ExportUsers(context.Background(), adminActor, "csv")
	require.Error(t, err)
	assert.Equal(t, "Invalid export format", err.Error())
}
