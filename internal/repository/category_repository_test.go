package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
)

func TestCategoryListActiveOnly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCategoryRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "description", "is_active", "created_at", "course_count"}).
		AddRow(1, "Programming", nil, true, time.Now(), 3)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE cc.is_active = TRUE GROUP BY cc.id ORDER BY cc.name")).WillReturnRows(rows)

	categories, err := repo.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, 3, categories[0].CourseCount)
	assert.Nil(t, categories[0].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCategoryRepository(db)

	mock.ExpectQuery("INSERT INTO course_categories").
		WithArgs("Design", nil, true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	category := &models.CourseCategory{Name: "Design", IsActive: true}
	require.NoError(t, repo.Create(context.Background(), category))
	assert.Equal(t, int64(5), category.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
