package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/messenger/internal/model"
)

func TestAddParticipants(t *testing.T) {
	db := setupTestDB(t)
	repo := NewParticipantRepository(db)
	ctx := context.Background()
	th := newThread(t, db, "chat")

	ps, err := repo.Add(ctx, th.ID, userRef("u1"), userRef("u2"), userRef("u3"))
	require.NoError(t, err)
	require.Len(t, ps, 3)

	var cnt int64
	require.NoError(t, db.Model(&model.Participant{}).Where("thread_id = ?", th.ID).Count(&cnt).Error)
	assert.EqualValues(t, 3, cnt)
}

func TestAddParticipantIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewParticipantRepository(db)
	ctx := context.Background()
	th := newThread(t, db, "chat")

	first, err := repo.Add(ctx, th.ID, userRef("u1"))
	require.NoError(t, err)
	second, err := repo.Add(ctx, th.ID, userRef("u1"))
	require.NoError(t, err)

	assert.Equal(t, first[0].ID, second[0].ID)

	// 含软删除在内也只有一行
	var cnt int64
	require.NoError(t, db.Unscoped().Model(&model.Participant{}).Where("thread_id = ?", th.ID).Count(&cnt).Error)
	assert.EqualValues(t, 1, cnt)
}

func TestAddAfterRemoveRestoresMembership(t *testing.T) {
	db := setupTestDB(t)
	repo := NewParticipantRepository(db)
	ctx := context.Background()
	th := newThread(t, db, "chat")

	orig, err := repo.Add(ctx, th.ID, userRef("u1"))
	require.NoError(t, err)
	require.NoError(t, repo.Remove(ctx, th.ID, userRef("u1")))

	ok, err := repo.ExistsForUser(ctx, th.ID, userRef("u1"))
	require.NoError(t, err)
	assert.False(t, ok)

	// 唯一键被软删除行占住，重新加入应复活同一行
	again, err := repo.Add(ctx, th.ID, userRef("u1"))
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, orig[0].ID, again[0].ID)

	ok, err = repo.ExistsForUser(ctx, th.ID, userRef("u1"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRemoveParticipantTolerant(t *testing.T) {
	db := setupTestDB(t)
	repo := NewParticipantRepository(db)
	ctx := context.Background()
	th := newThread(t, db, "chat")

	// 非成员移除不是错误
	require.NoError(t, repo.Remove(ctx, th.ID, userRef("ghost")))

	_, err := repo.Add(ctx, th.ID, userRef("u1"), userRef("u2"))
	require.NoError(t, err)
	require.NoError(t, repo.Remove(ctx, th.ID, userRef("u1"), userRef("u2")))

	ps, err := repo.ListActive(ctx, th.ID)
	require.NoError(t, err)
	assert.Empty(t, ps)
}

func TestFindByUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewParticipantRepository(db)
	ctx := context.Background()
	th := newThread(t, db, "chat")

	_, err := repo.Add(ctx, th.ID, userRef("u1"))
	require.NoError(t, err)

	p, err := repo.FindByUser(ctx, th.ID, userRef("u1"))
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "User", p.UserType)

	_, err = repo.FindByUser(ctx, th.ID, userRef("nobody"))
	assert.ErrorIs(t, err, ErrNotFound)

	// 软删除的成员对 FindByUser 不可见
	require.NoError(t, repo.Remove(ctx, th.ID, userRef("u1")))
	_, err = repo.FindByUser(ctx, th.ID, userRef("u1"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRestoreAllPreservesLastRead(t *testing.T) {
	db := setupTestDB(t)
	repo := NewParticipantRepository(db)
	ctx := context.Background()
	th := newThread(t, db, "chat")

	yesterday := time.Now().Add(-24 * time.Hour)
	_, err := repo.Add(ctx, th.ID, userRef("u1"), userRef("u2"))
	require.NoError(t, err)
	require.NoError(t, repo.MarkRead(ctx, th.ID, userRef("u1"), yesterday))

	require.NoError(t, repo.Remove(ctx, th.ID, userRef("u1"), userRef("u2")))
	ps, err := repo.ListActive(ctx, th.ID)
	require.NoError(t, err)
	require.Empty(t, ps)

	require.NoError(t, repo.RestoreAll(ctx, th.ID))

	ps, err = repo.ListActive(ctx, th.ID)
	require.NoError(t, err)
	require.Len(t, ps, 2)

	p, err := repo.FindByUser(ctx, th.ID, userRef("u1"))
	require.NoError(t, err)
	require.NotNil(t, p.LastRead)
	assert.WithinDuration(t, yesterday, *p.LastRead, time.Second)
}

func TestMarkReadNonMemberIsNoop(t *testing.T) {
	db := setupTestDB(t)
	repo := NewParticipantRepository(db)
	ctx := context.Background()
	th := newThread(t, db, "chat")

	require.NoError(t, repo.MarkRead(ctx, th.ID, userRef("ghost"), time.Now()))

	// 软删除的成员同样不更新
	_, err := repo.Add(ctx, th.ID, userRef("u1"))
	require.NoError(t, err)
	require.NoError(t, repo.Remove(ctx, th.ID, userRef("u1")))
	require.NoError(t, repo.MarkRead(ctx, th.ID, userRef("u1"), time.Now()))

	require.NoError(t, repo.RestoreAll(ctx, th.ID))
	p, err := repo.FindByUser(ctx, th.ID, userRef("u1"))
	require.NoError(t, err)
	assert.Nil(t, p.LastRead)
}
