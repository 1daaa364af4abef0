package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/messenger/internal/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Thread{}, &model.Participant{}, &model.Message{}))
	return db
}

func newThread(t *testing.T, db *gorm.DB, name string) *model.Thread {
	t.Helper()
	th := &model.Thread{ID: uuid.New().String(), Name: name}
	require.NoError(t, db.Create(th).Error)
	return th
}

func userRef(id string) model.Ref {
	return model.Ref{ID: id, Type: "User"}
}
