package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/studyplan-api/internal/models"
	appErrors "github.com/noah-isme/studyplan-api/pkg/errors"
)

type courseRepository interface {
	ListCourses(ctx context.Context) ([]models.Course, error)
	ListAllIncompatibilities(ctx context.Context) ([]models.Incompatibility, error)
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	ListIncompatibilities(ctx context.Context, id string) ([]string, error)
}

// CourseService serves the public catalog.
type CourseService struct {
	repo   courseRepository
	cache  *CacheService
	logger *zap.Logger
}

// NewCourseService constructs a CourseService. cache may be nil.
func NewCourseService(repo courseRepository, cache *CacheService, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, logger: logger}
}

// Catalog returns every course ordered by name together with the courses it
// cannot be combined with.
func (s *CourseService) Catalog(ctx context.Context) ([]models.CatalogCourse, error) {
	var cached []models.CatalogCourse
	if hit, _ := s.cache.Get(ctx, CatalogCacheKey, &cached); hit {
		return cached, nil
	}

	courses, err := s.repo.ListCourses(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	pairs, err := s.repo.ListAllIncompatibilities(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list incompatibilities")
	}

	catalog := buildCatalog(courses, pairs)
	_ = s.cache.Set(ctx, CatalogCacheKey, catalog, 0)
	return catalog, nil
}

// Course returns one catalog entry read straight from the store.
func (s *CourseService) Course(ctx context.Context, id string) (*models.CatalogCourse, error) {
	course, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrCourseNotFound, "Course "+id+" not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	partners, err := s.repo.ListIncompatibilities(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list incompatibilities")
	}

	entry := &models.CatalogCourse{Course: *course, Incompatibles: make([]models.CourseSummary, 0, len(partners))}
	for _, pid := range partners {
		other, err := s.repo.GetCourse(ctx, pid)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incompatible course")
		}
		entry.Incompatibles = append(entry.Incompatibles, models.CourseSummary{ID: other.ID, Name: other.Name})
	}
	return entry, nil
}

func buildCatalog(courses []models.Course, pairs []models.Incompatibility) []models.CatalogCourse {
	snap := NewCatalogSnapshot(courses, pairs)

	catalog := make([]models.CatalogCourse, 0, len(courses))
	for _, c := range courses {
		entry := models.CatalogCourse{Course: c, Incompatibles: []models.CourseSummary{}}
		// keep catalog order for the partners too
		for _, other := range courses {
			if _, ok := snap.Incompatible[c.ID][other.ID]; ok {
				entry.Incompatibles = append(entry.Incompatibles, models.CourseSummary{ID: other.ID, Name: other.Name})
			}
		}
		catalog = append(catalog, entry)
	}
	return catalog
}

// snapshotFromCatalog rebuilds the validation view of a cached catalog.
func snapshotFromCatalog(catalog []models.CatalogCourse) CatalogSnapshot {
	courses := make([]models.Course, 0, len(catalog))
	var pairs []models.Incompatibility
	for _, entry := range catalog {
		courses = append(courses, entry.Course)
		for _, other := range entry.Incompatibles {
			pairs = append(pairs, models.Incompatibility{Course1: entry.ID, Course2: other.ID})
		}
	}
	return NewCatalogSnapshot(courses, pairs)
}
