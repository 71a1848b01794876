package models

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	DeviceTypeMobile  = "mobile"
	DeviceTypeTablet  = "tablet"
	DeviceTypeDesktop = "desktop"
	DeviceTypeUnknown = "unknown"
)

var DeviceTypes = []string{DeviceTypeMobile, DeviceTypeTablet, DeviceTypeDesktop, DeviceTypeUnknown}

type ReadingHistory struct {
	bun.BaseModel `bun:"table:reading_history,alias:rh"`

	ID                 int       `bun:",pk,nullzero" json:"id"`
	CreatedAt          time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt          time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	UserID             int       `bun:",notnull" json:"user_id"`
	MangaID            string    `bun:",notnull" json:"manga_id"`
	ChapterNumber      string    `bun:",notnull" json:"chapter_number"`
	ChapterTitle       *string   `json:"chapter_title"`
	PageNumber         int       `bun:",notnull" json:"page_number"`
	TotalPages         *int      `json:"total_pages"`
	ReadingProgress    float64   `bun:",notnull" json:"reading_progress"`
	ReadingTimeSeconds int       `bun:",notnull" json:"reading_time_seconds"`
	ReadAt             time.Time `bun:",notnull" json:"read_at"`
	DeviceType         string    `bun:",notnull" json:"device_type"`
	IsCompleted        bool      `bun:",notnull" json:"is_completed"`

	Manga    *Book             `bun:"rel:belongs-to,join:manga_id=book_key" json:"manga,omitempty"`
	Sessions []*ReadingSession `bun:"rel:has-many,join:id=history_id" json:"sessions,omitempty"`

	ReadingTimeFormatted string `bun:"-" json:"reading_time_formatted"`
}

// ApplyProgress recomputes the derived fields from the page counts.
// Completion is sticky: once set it stays set even if the reader goes back.
func (h *ReadingHistory) ApplyProgress() {
	if h.TotalPages != nil && *h.TotalPages > 0 && h.PageNumber > 0 {
		h.ReadingProgress = CalculateProgress(h.PageNumber, *h.TotalPages)
		if h.PageNumber >= *h.TotalPages {
			h.IsCompleted = true
		}
	}
	h.ReadingTimeFormatted = FormatDuration(h.ReadingTimeSeconds)
}

// CalculateProgress returns min(100, page/total*100) rounded to two decimals.
func CalculateProgress(page, total int) float64 {
	if total <= 0 {
		return 0
	}
	p := math.Min(100, float64(page)/float64(total)*100)
	return math.Round(p*100) / 100
}

// FormatDuration renders seconds as "1h 5m", "5m 3s" or "3s".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// DetectDeviceType guesses the device class from a User-Agent header.
func DetectDeviceType(userAgent string) string {
	if userAgent == "" {
		return DeviceTypeUnknown
	}
	ua := strings.ToLower(userAgent)
	switch {
	case containsAny(ua, "mobile", "android", "iphone"):
		return DeviceTypeMobile
	case containsAny(ua, "tablet", "ipad"):
		return DeviceTypeTablet
	case containsAny(ua, "desktop", "windows", "macintosh", "linux"):
		return DeviceTypeDesktop
	}
	return DeviceTypeUnknown
}

// DetectBrowser returns a coarse browser family for a User-Agent header.
func DetectBrowser(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "edg/"):
		return "Edge"
	case strings.Contains(ua, "opr/"), strings.Contains(ua, "opera"):
		return "Opera"
	case strings.Contains(ua, "firefox"):
		return "Firefox"
	case strings.Contains(ua, "chrome"), strings.Contains(ua, "crios"):
		return "Chrome"
	case strings.Contains(ua, "safari"):
		return "Safari"
	}
	return "Unknown"
}

// DetectOS returns a coarse operating system name for a User-Agent header.
func DetectOS(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "android"):
		return "Android"
	case containsAny(ua, "iphone", "ipad", "ios"):
		return "iOS"
	case strings.Contains(ua, "windows"):
		return "Windows"
	case containsAny(ua, "macintosh", "mac os"):
		return "macOS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	}
	return "Unknown"
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// DeviceInfo is stored as JSON on the session row.
type DeviceInfo struct {
	UserAgent string    `json:"userAgent"`
	Timestamp time.Time `json:"timestamp"`
	Browser   string    `json:"browser"`
	OS        string    `json:"os"`
}

// NewDeviceInfo describes the client that sent userAgent at time at.
func NewDeviceInfo(userAgent string, at time.Time) *DeviceInfo {
	return &DeviceInfo{
		UserAgent: userAgent,
		Timestamp: at,
		Browser:   DetectBrowser(userAgent),
		OS:        DetectOS(userAgent),
	}
}

func (d *DeviceInfo) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return string(b), nil
}

func (d *DeviceInfo) Scan(src interface{}) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return errors.Errorf("unsupported device info type %T", src)
	}
	return errors.WithStack(json.Unmarshal(b, d))
}

type ReadingSession struct {
	bun.BaseModel `bun:"table:reading_sessions,alias:rs"`

	ID                     int         `bun:",pk,nullzero" json:"id"`
	CreatedAt              time.Time   `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt              time.Time   `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	HistoryID              int         `bun:",notnull" json:"history_id"`
	UserID                 int         `bun:",notnull" json:"user_id"`
	SessionStart           time.Time   `bun:",notnull" json:"session_start"`
	SessionEnd             *time.Time  `json:"session_end"`
	PagesRead              int         `bun:",notnull" json:"pages_read"`
	SessionDurationSeconds *int        `json:"session_duration_seconds"`
	DeviceInfo             *DeviceInfo `bun:"device_info,type:text" json:"device_info"`
	IPAddress              *string     `bun:"ip_address" json:"ip_address"`
	UserAgent              *string     `json:"user_agent"`

	History *ReadingHistory `bun:"rel:belongs-to,join:history_id=id" json:"history,omitempty"`

	DurationFormatted string `bun:"-" json:"duration_formatted,omitempty"`
}

// Close ends the session at end and derives its duration.
func (s *ReadingSession) Close(end time.Time) {
	s.SessionEnd = &end
	d := int(end.Sub(s.SessionStart).Seconds())
	if d < 0 {
		d = 0
	}
	s.SessionDurationSeconds = &d
	s.DurationFormatted = FormatDuration(d)
}
