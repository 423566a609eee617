package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyplan-api/internal/models"
	appErrors "github.com/noah-isme/studyplan-api/pkg/errors"
)

type stubCourseRepo struct {
	courses []models.Course
	pairs   []models.Incompatibility
	calls   int
}

func (s *stubCourseRepo) ListCourses(ctx context.Context) ([]models.Course, error) {
	s.calls++
	return s.courses, nil
}

func (s *stubCourseRepo) ListAllIncompatibilities(ctx context.Context) ([]models.Incompatibility, error) {
	return s.pairs, nil
}

func (s *stubCourseRepo) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	for _, c := range s.courses {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubCourseRepo) ListIncompatibilities(ctx context.Context, id string) ([]string, error) {
	var ids []string
	for _, p := range s.pairs {
		switch id {
		case p.Course1:
			ids = append(ids, p.Course2)
		case p.Course2:
			ids = append(ids, p.Course1)
		}
	}
	return ids, nil
}

type memoryCache struct {
	entries map[string][]models.CatalogCourse
	deleted []string
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	value, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*[]models.CatalogCourse)) = value
	return nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.entries[key] = value.([]models.CatalogCourse)
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	m.entries = map[string][]models.CatalogCourse{}
	return nil
}

func TestCourseServiceCatalogListsIncompatibles(t *testing.T) {
	courses, pairs := testCatalog()
	svc := NewCourseService(&stubCourseRepo{courses: courses, pairs: pairs}, nil, nil)

	catalog, err := svc.Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, len(courses))

	byID := map[string]models.CatalogCourse{}
	for _, entry := range catalog {
		byID[entry.ID] = entry
	}
	assert.Equal(t, []models.CourseSummary{{ID: "03CCCCC", Name: "Calcolatori"}}, byID["02BBBBB"].Incompatibles)
	assert.Equal(t, []models.CourseSummary{{ID: "02BBBBB", Name: "Basi di dati"}}, byID["03CCCCC"].Incompatibles)
	assert.Empty(t, byID["01AAAAA"].Incompatibles)
}

func TestCourseServiceCatalogUsesCache(t *testing.T) {
	courses, pairs := testCatalog()
	repo := &stubCourseRepo{courses: courses, pairs: pairs}
	store := &memoryCache{entries: map[string][]models.CatalogCourse{}}
	cache := NewCacheService(store, NewMetricsService(), time.Minute, nil, true)
	svc := NewCourseService(repo, cache, nil)

	_, err := svc.Catalog(context.Background())
	require.NoError(t, err)
	_, err = svc.Catalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)

	require.NoError(t, cache.Invalidate(context.Background(), CatalogCachePattern))
	_, err = svc.Catalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
	assert.Equal(t, []string{CatalogCachePattern}, store.deleted)
}

func TestCacheServiceDisabled(t *testing.T) {
	store := &memoryCache{entries: map[string][]models.CatalogCourse{}}
	cache := NewCacheService(store, nil, 0, nil, false)

	assert.False(t, cache.Enabled())
	var dest []models.CatalogCourse
	hit, err := cache.Get(context.Background(), CatalogCacheKey, &dest)
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, cache.Invalidate(context.Background(), CatalogCachePattern))
	assert.Empty(t, store.deleted)
}

func TestCourseServiceCourse(t *testing.T) {
	courses, pairs := testCatalog()
	svc := NewCourseService(&stubCourseRepo{courses: courses, pairs: pairs}, nil, nil)

	entry, err := svc.Course(context.Background(), "03CCCCC")
	require.NoError(t, err)
	assert.Equal(t, "Calcolatori", entry.Name)
	assert.Equal(t, []models.CourseSummary{{ID: "02BBBBB", Name: "Basi di dati"}}, entry.Incompatibles)

	entry, err = svc.Course(context.Background(), "01AAAAA")
	require.NoError(t, err)
	assert.NotNil(t, entry.Incompatibles)
	assert.Empty(t, entry.Incompatibles)

	_, err = svc.Course(context.Background(), "09ZZZZZ")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrCourseNotFound)
	assert.Equal(t, "Course 09ZZZZZ not found", appErrors.FromError(err).Message)
}
