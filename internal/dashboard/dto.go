package dashboard

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DailyCount is one point of a per-day series. Date is YYYY-MM-DD in UTC.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// CommunityStats is the organizer dashboard for one community. Rates are
// percentages rounded to two decimals.
type CommunityStats struct {
	CommunityID        uuid.UUID       `json:"community_id"`
	Days               int             `json:"days"`
	TotalMembers       int64           `json:"total_members"`
	NewMembers         []DailyCount    `json:"new_members"`
	Visits             []DailyCount    `json:"visits"`
	UniqueVisitors     int64           `json:"unique_visitors"`
	Events             int64           `json:"events"`
	PublishedEvents    int64           `json:"published_events"`
	Registrations      int64           `json:"registrations"`
	ApprovedRegistered int64           `json:"approved_registrations"`
	Attended           int64           `json:"attended"`
	AttendanceRate     decimal.Decimal `json:"attendance_rate"`
	ApprovalRate       decimal.Decimal `json:"approval_rate"`
}
