// Package dashboard computes organizer-facing community analytics.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luhive/luhive-backend/pkg/db"
	"github.com/luhive/luhive-backend/pkg/db/models"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
	"github.com/luhive/luhive-backend/pkg/logger"
)

const (
	DefaultDays = 30
	MaxDays     = 90
	dayLayout   = "2006-01-02"
)

type Service interface {
	CommunityStats(ctx context.Context, actorID uuid.UUID, communitySlug string, days int) (*CommunityStats, error)
}

type statsRepository interface {
	CountMembers(ctx context.Context, communityID uuid.UUID) (int64, error)
	MemberJoins(ctx context.Context, communityID uuid.UUID, since time.Time) ([]time.Time, error)
	Visits(ctx context.Context, communityID uuid.UUID, since time.Time) ([]models.CommunityVisit, error)
	EventCounts(ctx context.Context, communityID uuid.UUID) (int64, int64, error)
	RegistrationCounts(ctx context.Context, communityID uuid.UUID) (RegistrationCounts, error)
}

type communityReader interface {
	FindBySlug(ctx context.Context, slug string) (*models.Community, error)
	GetMember(ctx context.Context, communityID, userID uuid.UUID) (*models.CommunityMember, error)
}

type ServiceParams struct {
	Repo        statsRepository
	Communities communityReader
	Logger      *logger.Logger
}

type service struct {
	repo        statsRepository
	communities communityReader
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("dashboard repository is required")
	}
	if params.Communities == nil {
		return nil, fmt.Errorf("community reader is required")
	}
	return &service{
		repo:        params.Repo,
		communities: params.Communities,
		logg:        params.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CommunityStats(ctx context.Context, actorID uuid.UUID, communitySlug string, days int) (*CommunityStats, error) {
	if days == 0 {
		days = DefaultDays
	}
	if days < 1 || days > MaxDays {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("days must be between 1 and %d", MaxDays))
	}

	community, err := s.communities.FindBySlug(ctx, strings.TrimSpace(communitySlug))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load community")
	}
	member, err := s.communities.GetMember(ctx, community.ID, actorID)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load membership")
	}
	if member == nil || !member.Role.CanManage() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only owners and admins can view the dashboard")
	}

	today := truncateDay(s.now())
	since := today.AddDate(0, 0, -(days - 1))

	stats := &CommunityStats{CommunityID: community.ID, Days: days}
	if stats.TotalMembers, err = s.repo.CountMembers(ctx, community.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count members")
	}
	joins, err := s.repo.MemberJoins(ctx, community.ID, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load member joins")
	}
	stats.NewMembers = bucket(since, days, joins)

	visits, err := s.repo.Visits(ctx, community.ID, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load visits")
	}
	visitDays := make([]time.Time, 0, len(visits))
	visitors := map[string]struct{}{}
	for _, v := range visits {
		visitDays = append(visitDays, v.VisitedOn)
		visitors[v.VisitorKey] = struct{}{}
	}
	stats.Visits = bucket(since, days, visitDays)
	stats.UniqueVisitors = int64(len(visitors))

	if stats.Events, stats.PublishedEvents, err = s.repo.EventCounts(ctx, community.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count events")
	}
	regs, err := s.repo.RegistrationCounts(ctx, community.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count registrations")
	}
	stats.Registrations = regs.Total
	stats.ApprovedRegistered = regs.ApprovedVerified
	stats.Attended = regs.Attended
	stats.AttendanceRate = percentage(regs.Attended, regs.ApprovedVerified)
	stats.ApprovalRate = percentage(regs.Approved, regs.Total)
	return stats, nil
}

// bucket counts timestamps per UTC day over [since, since+days).
func bucket(since time.Time, days int, stamps []time.Time) []DailyCount {
	counts := make(map[string]int64, days)
	for _, ts := range stamps {
		counts[ts.UTC().Format(dayLayout)]++
	}
	out := make([]DailyCount, 0, days)
	for i := 0; i < days; i++ {
		day := since.AddDate(0, 0, i).Format(dayLayout)
		out = append(out, DailyCount{Date: day, Count: counts[day]})
	}
	return out
}

// percentage returns part/whole*100 rounded to two decimals; zero when whole is zero.
func percentage(part, whole int64) decimal.Decimal {
	if whole <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(whole), 2)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
