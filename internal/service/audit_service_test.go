package service

import (
	"testing"
	"time"

	"retail-backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAuditLogsFilters(t *testing.T) {
	f := newFixture(t)
	saleID := uuid.NewString()
	entries := []model.AuditLog{
		{UserID: &f.owner.UserID, Action: model.ActionSaleVoid, EntityType: model.EntitySale, EntityID: saleID, CreatedAt: testDay},
		{UserID: &f.mgrA.UserID, Action: model.ActionStockAdjustment, EntityType: model.EntityStockEvent, EntityID: uuid.NewString(), CreatedAt: testDay.Add(time.Hour)},
		{UserID: &f.mgrA.UserID, Action: model.ActionApprovalCreated, EntityType: model.EntityApprovalRequest, EntityID: uuid.NewString(), CreatedAt: testDay.Add(2 * time.Hour)},
	}
	for i := range entries {
		require.NoError(t, f.repos.audit.Log(f.ctx, &entries[i]))
	}

	logs, total, err := f.audit.GetAuditLogs(f.ctx, f.owner, AuditLogQuery{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, model.ActionApprovalCreated, logs[0].Action)

	logs, total, err = f.audit.GetAuditLogs(f.ctx, f.owner, AuditLogQuery{Action: model.ActionSaleVoid}, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, saleID, logs[0].EntityID)

	_, total, err = f.audit.GetAuditLogs(f.ctx, f.owner, AuditLogQuery{EntityType: model.EntitySale, EntityID: saleID}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	logs, total, err = f.audit.GetAuditLogs(f.ctx, f.owner, AuditLogQuery{UserID: f.mgrA.UserID.String()}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, logs, 1)
	assert.Equal(t, model.ActionApprovalCreated, logs[0].Action)

	since := testDay.Add(30 * time.Minute)
	_, total, err = f.audit.GetAuditLogs(f.ctx, f.owner, AuditLogQuery{Since: &since}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	logs, total, err = f.audit.GetAuditLogs(f.ctx, f.owner, AuditLogQuery{Action: "NOPE"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, logs)

	_, _, err = f.audit.GetAuditLogs(f.ctx, f.owner, AuditLogQuery{UserID: "bob"}, 1, 10)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"user_id"}, ve.Fields)
}
