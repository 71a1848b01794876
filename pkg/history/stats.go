package history

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/mangalife/mangalife-server/pkg/models"
	"github.com/pkg/errors"
)

const (
	DefaultStatsDays     = 30
	MaxStatsDays         = 365
	DefaultContinueLimit = 15
	MaxContinueLimit     = 50
	recentlyReadLimit    = 10
	dayLayout            = "2006-01-02"
)

type ActivityDay struct {
	Date               string  `json:"date"`
	ReadingTimeSeconds int     `json:"reading_time_seconds"`
	ReadingTimeMinutes float64 `json:"reading_time_minutes"`
}

type Stats struct {
	TotalMangaRead          int                      `json:"total_manga_read"`
	TotalChaptersRead       int                      `json:"total_chapters_read"`
	TotalReadingTimeSeconds int                      `json:"total_reading_time_seconds"`
	TotalReadingTimeHours   float64                  `json:"total_reading_time_hours"`
	ReadingStreakDays       int                      `json:"reading_streak_days"`
	RecentlyRead            []*models.ReadingHistory `json:"recently_read"`
	ReadingActivityChart    []*ActivityDay           `json:"reading_activity_chart"`
}

type readEvent struct {
	ReadAt             time.Time `bun:"read_at"`
	ReadingTimeSeconds int       `bun:"reading_time_seconds"`
}

// ReadingStats summarises the user's whole history. Only the activity chart
// is limited to the trailing window of days.
func (svc *Service) ReadingStats(ctx context.Context, userID, days int) (*Stats, error) {
	if days < 1 {
		days = DefaultStatsDays
	}
	if days > MaxStatsDays {
		days = MaxStatsDays
	}
	now := svc.now()
	since := now.AddDate(0, 0, -days)

	stats := &Stats{
		RecentlyRead:         []*models.ReadingHistory{},
		ReadingActivityChart: []*ActivityDay{},
	}

	var mangaIDs []string
	err := svc.db.NewSelect().
		Model((*models.ReadingHistory)(nil)).
		ColumnExpr("DISTINCT rh.manga_id").
		Where("rh.user_id = ?", userID).
		Scan(ctx, &mangaIDs)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	stats.TotalMangaRead = len(mangaIDs)

	events := []readEvent{}
	err = svc.db.NewSelect().
		Model((*models.ReadingHistory)(nil)).
		Column("rh.read_at", "rh.reading_time_seconds").
		Where("rh.user_id = ?", userID).
		Scan(ctx, &events)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	stats.TotalChaptersRead = len(events)

	perDay := map[string]int{}
	readTimes := make([]time.Time, 0, len(events))
	for _, e := range events {
		stats.TotalReadingTimeSeconds += e.ReadingTimeSeconds
		readTimes = append(readTimes, e.ReadAt)
		if !e.ReadAt.Before(since) {
			perDay[e.ReadAt.UTC().Format(dayLayout)] += e.ReadingTimeSeconds
		}
	}
	stats.TotalReadingTimeHours = round2(float64(stats.TotalReadingTimeSeconds) / 3600)
	stats.ReadingStreakDays = Streak(readTimes, now)

	dates := make([]string, 0, len(perDay))
	for d := range perDay {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		stats.ReadingActivityChart = append(stats.ReadingActivityChart, &ActivityDay{
			Date:               d,
			ReadingTimeSeconds: perDay[d],
			ReadingTimeMinutes: round2(float64(perDay[d]) / 60),
		})
	}

	err = svc.db.NewSelect().
		Model(&stats.RecentlyRead).
		Relation("Manga.BookDetail").
		Where("rh.user_id = ?", userID).
		Where(`rh.id = (
			SELECT r2.id FROM reading_history AS r2
			WHERE r2.user_id = rh.user_id AND r2.manga_id = rh.manga_id
			ORDER BY r2.read_at DESC, r2.id DESC
			LIMIT 1
		)`).
		Order("rh.read_at DESC", "rh.id DESC").
		Limit(recentlyReadLimit).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	for _, h := range stats.RecentlyRead {
		decorate(h)
	}

	return stats, nil
}

// Streak counts consecutive UTC calendar days with at least one read, walking
// back from the most recent active day. The streak is still alive when that
// day is yesterday; anything older yields zero.
func Streak(readTimes []time.Time, now time.Time) int {
	active := make(map[string]bool, len(readTimes))
	var latest time.Time
	for _, t := range readTimes {
		t = t.UTC()
		active[t.Format(dayLayout)] = true
		if t.After(latest) {
			latest = t
		}
	}
	if len(active) == 0 {
		return 0
	}

	today := truncateDay(now.UTC())
	day := truncateDay(latest)
	if today.Sub(day) > 24*time.Hour {
		return 0
	}

	streak := 0
	for active[day.Format(dayLayout)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// ContinueReading returns one resume point per manga: the numerically highest
// chapter read, skipped when it is known to be finished. Mangas are ordered by
// that chapter's read time, newest first.
func (svc *Service) ContinueReading(ctx context.Context, userID, limit int) ([]*models.ReadingHistory, error) {
	if limit < 1 {
		limit = DefaultContinueLimit
	}
	if limit > MaxContinueLimit {
		limit = MaxContinueLimit
	}

	rows := []*models.ReadingHistory{}
	err := svc.db.NewSelect().
		Model(&rows).
		Relation("Manga.BookDetail").
		Where("rh.user_id = ?", userID).
		Order("rh.read_at DESC", "rh.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	byManga := map[string][]*models.ReadingHistory{}
	var order []string
	for _, h := range rows {
		if _, ok := byManga[h.MangaID]; !ok {
			order = append(order, h.MangaID)
		}
		byManga[h.MangaID] = append(byManga[h.MangaID], h)
	}

	resume := []*models.ReadingHistory{}
	for _, mangaID := range order {
		h := furthestChapter(byManga[mangaID])
		if h.IsCompleted && h.TotalPages != nil {
			continue
		}
		decorate(h)
		resume = append(resume, h)
	}

	sort.SliceStable(resume, func(i, j int) bool {
		return resume[i].ReadAt.After(resume[j].ReadAt)
	})
	if len(resume) > limit {
		resume = resume[:limit]
	}
	return resume, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
