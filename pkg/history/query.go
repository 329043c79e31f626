// Package history is the read side of the delivery ledger: the paginated,
// filterable view the account UI consumes. It never writes; ledger rows are
// append-only and owned by the delivery commit.
package history

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/db"
)

const (
	DefaultWindowDays = 90
	DefaultPerPage    = 20
	MaxPerPage        = 100
)

type Filter struct {
	UserID     int64
	CategoryID string
	From       time.Time
	To         time.Time
	Match      string
	Page       int
	PerPage    int
}

type Page struct {
	Records []db.DeliveryRecord `json:"records"`
	Total   int64               `json:"total"`
	Page    int                 `json:"page"`
	PerPage int                 `json:"per_page"`
}

// Query returns the user's delivery history, newest first. When no explicit
// range is given the window defaults to the last 90 days; older rows are
// retained but filtered out of the default view.
func Query(ctx context.Context, gdb *gorm.DB, f Filter) (Page, error) {
	if f.PerPage <= 0 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.From.IsZero() && f.To.IsZero() {
		f.To = time.Now().UTC()
		f.From = f.To.AddDate(0, 0, -DefaultWindowDays)
	}

	q := gdb.WithContext(ctx).Model(&db.DeliveryRecord{}).Where("user_id = ?", f.UserID)
	if f.CategoryID != "" {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if !f.From.IsZero() {
		q = q.Where("sent_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("sent_at < ?", f.To)
	}
	if f.Match != "" {
		q = q.Where("prompt_text LIKE ?", "%"+f.Match+"%")
	}

	page := Page{Page: f.Page, PerPage: f.PerPage, Records: []db.DeliveryRecord{}}
	if err := q.Count(&page.Total).Error; err != nil {
		return Page{}, err
	}
	err := q.Order("sent_at DESC, id DESC").
		Offset((f.Page - 1) * f.PerPage).
		Limit(f.PerPage).
		Find(&page.Records).Error
	if err != nil {
		return Page{}, err
	}
	return page, nil
}
