package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luhive/luhive-backend/internal/communities"
	"github.com/luhive/luhive-backend/pkg/db/dbtest"
	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		part, whole int64
		want        string
	}{
		{0, 0, "0"},
		{1, 3, "33.33"},
		{2, 3, "66.67"},
		{3, 3, "100"},
	}
	for _, tc := range tests {
		got := percentage(tc.part, tc.whole)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("percentage(%d, %d) = %s, want %s", tc.part, tc.whole, got, tc.want)
		}
	}
}

func TestBucketFillsEmptyDays(t *testing.T) {
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	series := bucket(since, 3, []time.Time{
		since.Add(2 * time.Hour),
		since.Add(5 * time.Hour),
		since.AddDate(0, 0, 2).Add(time.Minute),
		since.AddDate(0, 0, 7),
	})
	assert.Equal(t, []DailyCount{
		{Date: "2026-03-01", Count: 2},
		{Date: "2026-03-02", Count: 0},
		{Date: "2026-03-03", Count: 1},
	}, series)
}

func TestCommunityStats(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	now := time.Now().UTC()

	owner := &models.Profile{Email: "owner@example.com", PasswordHash: "h", FullName: "Owner", Timezone: "UTC"}
	member := &models.Profile{Email: "member@example.com", PasswordHash: "h", FullName: "Member", Timezone: "UTC"}
	require.NoError(t, conn.Create(owner).Error)
	require.NoError(t, conn.Create(member).Error)
	community := &models.Community{Slug: "gophers", Name: "Gophers", CreatedBy: owner.ID, IsPublic: true}
	require.NoError(t, conn.Create(community).Error)
	require.NoError(t, conn.Create(&models.CommunityMember{CommunityID: community.ID, UserID: owner.ID, Role: enums.CommunityRoleOwner, JoinedAt: now.AddDate(0, 0, -40)}).Error)
	require.NoError(t, conn.Create(&models.CommunityMember{CommunityID: community.ID, UserID: member.ID, Role: enums.CommunityRoleMember, JoinedAt: now}).Error)

	today := truncateDay(now)
	for _, v := range []models.CommunityVisit{
		{CommunityID: community.ID, VisitorKey: "anon:a", VisitedOn: today},
		{CommunityID: community.ID, VisitorKey: "anon:b", VisitedOn: today},
		{CommunityID: community.ID, VisitorKey: "anon:a", VisitedOn: today.AddDate(0, 0, -1)},
		{CommunityID: community.ID, VisitorKey: "anon:old", VisitedOn: today.AddDate(0, 0, -60)},
	} {
		visit := v
		require.NoError(t, conn.Create(&visit).Error)
	}

	event := &models.Event{
		CommunityID: community.ID, Title: "Go Night", StartTime: now.Add(time.Hour), Timezone: "UTC",
		Status: enums.EventStatusPublished, RegistrationType: enums.RegistrationTypeNative, CreatedBy: owner.ID,
	}
	require.NoError(t, conn.Create(event).Error)
	require.NoError(t, conn.Create(&models.Event{
		CommunityID: community.ID, Title: "Draft", StartTime: now.Add(time.Hour), Timezone: "UTC",
		Status: enums.EventStatusDraft, RegistrationType: enums.RegistrationTypeNative, CreatedBy: owner.ID,
	}).Error)

	approved, rejected := enums.ApprovalStatusApproved, enums.ApprovalStatusRejected
	attended := now
	email := "guest@example.com"
	for _, reg := range []models.EventRegistration{
		{EventID: event.ID, UserID: &member.ID, RSVPStatus: enums.RSVPStatusGoing, ApprovalStatus: &approved, IsVerified: true, AttendedAt: &attended},
		{EventID: event.ID, AnonymousEmail: &email, RSVPStatus: enums.RSVPStatusGoing, ApprovalStatus: &approved, IsVerified: true},
		{EventID: event.ID, AnonymousEmail: &email, RSVPStatus: enums.RSVPStatusGoing, ApprovalStatus: &rejected, IsVerified: true},
	} {
		row := reg
		require.NoError(t, conn.Create(&row).Error)
	}

	svc, err := NewService(ServiceParams{Repo: NewRepository(conn), Communities: communities.NewRepository(conn)})
	require.NoError(t, err)

	_, err = svc.CommunityStats(ctx, member.ID, "gophers", 7)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = svc.CommunityStats(ctx, owner.ID, "gophers", 365)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	stats, err := svc.CommunityStats(ctx, owner.ID, "gophers", 7)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalMembers)
	require.Len(t, stats.NewMembers, 7)
	assert.EqualValues(t, 1, stats.NewMembers[6].Count)
	require.Len(t, stats.Visits, 7)
	assert.EqualValues(t, 2, stats.Visits[6].Count)
	assert.EqualValues(t, 1, stats.Visits[5].Count)
	assert.EqualValues(t, 2, stats.UniqueVisitors)
	assert.EqualValues(t, 2, stats.Events)
	assert.EqualValues(t, 1, stats.PublishedEvents)
	assert.EqualValues(t, 3, stats.Registrations)
	assert.EqualValues(t, 1, stats.Attended)
	assert.Equal(t, "50", stats.AttendanceRate.String())
	assert.Equal(t, "66.67", stats.ApprovalRate.String())
}
