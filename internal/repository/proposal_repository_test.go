package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNextRentalSeq(t *testing.T) {
	dsn := fmt.Sprintf("file:proposal_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Rental{}))
	repo := NewProposalRepository(db)

	seq, err := repo.NextRentalSeq("RNT-2026-")
	require.NoError(t, err)
	assert.Equal(t, 1, seq)

	require.NoError(t, repo.CreateRental(&models.Rental{RentalNo: "RNT-2026-0009", ProposalID: 1, CustomerName: "ACME"}))
	require.NoError(t, repo.CreateRental(&models.Rental{RentalNo: "RNT-2025-0042", ProposalID: 2, CustomerName: "ACME"}))

	seq, err = repo.NextRentalSeq("RNT-2026-")
	require.NoError(t, err)
	assert.Equal(t, 10, seq)
}

func TestAssetSyncJobFailureThreshold(t *testing.T) {
	dsn := fmt.Sprintf("file:asset_sync_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.AssetSyncJob{}))
	repo := NewAssetSyncJobRepository(db)

	job := &models.AssetSyncJob{ItemID: 1, Direction: constants.DirectionDelivery, AssetID: 2, TargetStatus: constants.AssetStatusRented, State: constants.AssetSyncPending}
	require.NoError(t, repo.Create(job))

	require.NoError(t, repo.MarkAttemptFailed(job.ID, "boom", 2))
	due, err := repo.ListDue(10, 2)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].Attempts)

	require.NoError(t, repo.MarkAttemptFailed(job.ID, "boom again", 2))
	got, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.AssetSyncFailed, got.State)
	assert.Equal(t, "boom again", got.LastError)

	affected, err := repo.Reset(job.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
	due, err = repo.ListDue(10, 2)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}
