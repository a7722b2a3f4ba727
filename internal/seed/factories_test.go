package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"quill/internal/models"
	"quill/internal/validation"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Post{}))
	return db
}

func TestFactory_BuildUser(t *testing.T) {
	f, err := NewFactory(nil, Options{Seed: 42, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	user := f.BuildUser()
	assert.NoError(t, validation.ValidateUsername(user.Username))
	assert.NoError(t, validation.ValidateEmail(user.Email))
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(DefaultPassword)))

	admin := f.BuildUser(func(u *models.User) { u.Role = models.RoleAdmin })
	assert.Equal(t, models.RoleAdmin, admin.Role)
}

func TestRun(t *testing.T) {
	db := setupDB(t)

	summary, err := Run(context.Background(), db, Options{Users: 3, PostsPerUser: 4, Seed: 7, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	assert.Equal(t, Summary{Users: 3, Posts: 12}, summary)

	var users, posts int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Equal(t, int64(3), users)
	assert.Equal(t, int64(12), posts)

	var sample models.Post
	require.NoError(t, db.First(&sample).Error)
	assert.NotEmpty(t, sample.Slug)
	assert.Len(t, sample.Tags, 2)
}

func TestClear_KeepsAdmins(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)

	_, err := Run(ctx, db, Options{Users: 2, PostsPerUser: 2, Seed: 3, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	f, err := NewFactory(db, Options{Seed: 4, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	admin, err := f.CreateUser(ctx, func(u *models.User) { u.Role = models.RoleAdmin })
	require.NoError(t, err)

	require.NoError(t, Clear(ctx, db))

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, admin.ID, users[0].ID)

	var posts int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Zero(t, posts)
}
