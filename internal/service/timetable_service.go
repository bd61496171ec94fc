package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
	"github.com/noah-isme/uni-timetable-api/pkg/export"
)

type timetableRepository interface {
	ForGroup(ctx context.Context, groupID string, from, to time.Time) ([]dto.TimetableEntry, error)
	ForTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]dto.TimetableEntry, error)
	ForRoom(ctx context.Context, roomID string, from, to time.Time) ([]dto.TimetableEntry, error)
}

type timetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheObserver interface {
	RecordCacheOperation(hit bool, duration time.Duration)
}

// TimetableService serves read-side timetable views backed by a Redis cache
// and renders CSV and PDF exports.
type TimetableService struct {
	repo    timetableRepository
	cache   timetableCache
	metrics cacheObserver
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	ttl     time.Duration
	logger  *zap.Logger
}

// NewTimetableService constructs the service. A nil cache disables caching.
func NewTimetableService(repo timetableRepository, cache timetableCache, metrics cacheObserver, ttl time.Duration, logger *zap.Logger) *TimetableService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		repo:    repo,
		cache:   cache,
		metrics: metrics,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		ttl:     ttl,
		logger:  logger,
	}
}

func timetableCacheKey(scope, id string, from, to time.Time) string {
	return fmt.Sprintf("timetable:%s:%s:%s:%s", scope, id, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

func (s *TimetableService) cached(ctx context.Context, key string, load func() ([]dto.TimetableEntry, error)) ([]dto.TimetableEntry, error) {
	if s.cache != nil {
		start := time.Now()
		var entries []dto.TimetableEntry
		err := s.cache.Get(ctx, key, &entries)
		if err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true, time.Since(start))
			}
			return entries, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false, time.Since(start))
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("timetable cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	entries, err := load()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if entries == nil {
		entries = []dto.TimetableEntry{}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, entries, s.ttl); err != nil {
			s.logger.Warn("timetable cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return entries, nil
}

// ForGroup returns the group timetable over the window, ordered by date then
// start time.
func (s *TimetableService) ForGroup(ctx context.Context, groupID string, from, to time.Time) ([]dto.TimetableEntry, error) {
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must be on or after from")
	}
	key := timetableCacheKey("group", groupID, from, to)
	return s.cached(ctx, key, func() ([]dto.TimetableEntry, error) {
		return s.repo.ForGroup(ctx, groupID, from, to)
	})
}

// ForTeacher returns the teacher timetable over the window.
func (s *TimetableService) ForTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]dto.TimetableEntry, error) {
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must be on or after from")
	}
	key := timetableCacheKey("teacher", teacherID, from, to)
	return s.cached(ctx, key, func() ([]dto.TimetableEntry, error) {
		return s.repo.ForTeacher(ctx, teacherID, from, to)
	})
}

// ForRoom returns the room timetable over the window.
func (s *TimetableService) ForRoom(ctx context.Context, roomID string, from, to time.Time) ([]dto.TimetableEntry, error) {
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must be on or after from")
	}
	key := timetableCacheKey("room", roomID, from, to)
	return s.cached(ctx, key, func() ([]dto.TimetableEntry, error) {
		return s.repo.ForRoom(ctx, roomID, from, to)
	})
}

// Invalidate drops cached timetables touching any of the given scopes.
// Empty ids are skipped.
func (s *TimetableService) Invalidate(ctx context.Context, groupID, teacherID, roomID string) {
	if s.cache == nil {
		return
	}
	patterns := make([]string, 0, 3)
	if groupID != "" {
		patterns = append(patterns, fmt.Sprintf("timetable:group:%s:*", groupID))
	}
	if teacherID != "" {
		patterns = append(patterns, fmt.Sprintf("timetable:teacher:%s:*", teacherID))
	}
	if roomID != "" {
		patterns = append(patterns, fmt.Sprintf("timetable:room:%s:*", roomID))
	}
	for _, pattern := range patterns {
		if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
			s.logger.Warn("timetable cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}

// InvalidateAll drops every cached timetable. Used after bulk generation.
func (s *TimetableService) InvalidateAll(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "timetable:*"); err != nil {
		s.logger.Warn("timetable cache invalidation failed", zap.String("pattern", "timetable:*"), zap.Error(err))
	}
}

var timetableExportHeaders = []string{"Date", "Weekday", "Start", "End", "Course", "Group", "Teacher", "Room", "Status"}

func timetableDataset(entries []dto.TimetableEntry) export.Dataset {
	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, map[string]string{
			"Date":    entry.Date.Format("2006-01-02"),
			"Weekday": entry.Weekday,
			"Start":   entry.StartTime,
			"End":     entry.EndTime,
			"Course":  entry.CourseName,
			"Group":   entry.GroupName,
			"Teacher": entry.TeacherName,
			"Room":    entry.RoomName,
			"Status":  entry.Status,
		})
	}
	return export.Dataset{Headers: timetableExportHeaders, Rows: rows}
}

// ExportCSV renders timetable entries as CSV bytes.
func (s *TimetableService) ExportCSV(entries []dto.TimetableEntry) ([]byte, error) {
	data, err := s.csv.Render(timetableDataset(entries))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
	}
	return data, nil
}

// ExportPDF renders timetable entries as a PDF document.
func (s *TimetableService) ExportPDF(entries []dto.TimetableEntry, title string) ([]byte, error) {
	data, err := s.pdf.Render(timetableDataset(entries), title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
	}
	return data, nil
}
