package audience

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luhive/luhive-backend/pkg/db/dbtest"
	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
)

func ptr[T any](v T) *T { return &v }

func TestEventAttendeesFiltersAndResolves(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user := &models.Profile{Email: "member@example.com", PasswordHash: "h", FullName: "Mina", Timezone: "UTC"}
	require.NoError(t, conn.Create(user).Error)
	eventID := uuid.New()

	approved := enums.ApprovalStatusApproved
	pending := enums.ApprovalStatusPending
	rejected := enums.ApprovalStatusRejected
	rows := []models.EventRegistration{
		{EventID: eventID, UserID: &user.ID, RSVPStatus: enums.RSVPStatusGoing, ApprovalStatus: &approved, IsVerified: true},
		{EventID: eventID, AnonymousEmail: ptr("anon@example.com"), AnonymousName: ptr("Ana"), RSVPStatus: enums.RSVPStatusGoing, IsVerified: true},
		{EventID: eventID, AnonymousEmail: ptr("pending@example.com"), RSVPStatus: enums.RSVPStatusGoing, ApprovalStatus: &pending, IsVerified: true},
		{EventID: eventID, AnonymousEmail: ptr("rejected@example.com"), RSVPStatus: enums.RSVPStatusGoing, ApprovalStatus: &rejected, IsVerified: true},
		{EventID: eventID, AnonymousEmail: ptr("unverified@example.com"), RSVPStatus: enums.RSVPStatusGoing},
		{EventID: eventID, AnonymousEmail: ptr("maybe@example.com"), RSVPStatus: enums.RSVPStatusMaybe, IsVerified: true},
		{EventID: uuid.New(), AnonymousEmail: ptr("other@example.com"), RSVPStatus: enums.RSVPStatusGoing, IsVerified: true},
	}
	for i := range rows {
		require.NoError(t, conn.Create(&rows[i]).Error)
		time.Sleep(time.Millisecond)
	}

	strict, err := repo.EventAttendees(ctx, eventID, AttendeeFilter{ApprovedOnly: true})
	require.NoError(t, err)
	require.Len(t, strict, 2)
	assert.Equal(t, "member@example.com", strict[0].Email)
	assert.Equal(t, "Mina", strict[0].Name)
	assert.Equal(t, "anon@example.com", strict[1].Email)
	assert.Equal(t, "Ana", strict[1].Name)

	loose, err := repo.EventAttendees(ctx, eventID, AttendeeFilter{})
	require.NoError(t, err)
	var emails []string
	for _, r := range loose {
		emails = append(emails, r.Email)
	}
	assert.ElementsMatch(t, []string{"member@example.com", "anon@example.com", "pending@example.com"}, emails)
}

func TestCommunityMembersAndManagers(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	communityID := uuid.New()
	var ids []uuid.UUID
	for _, role := range []enums.CommunityRole{enums.CommunityRoleOwner, enums.CommunityRoleAdmin, enums.CommunityRoleMember} {
		p := &models.Profile{Email: string(role) + "@example.com", PasswordHash: "h", FullName: string(role), Timezone: "UTC"}
		require.NoError(t, conn.Create(p).Error)
		require.NoError(t, conn.Create(&models.CommunityMember{CommunityID: communityID, UserID: p.ID, Role: role}).Error)
		ids = append(ids, p.ID)
	}

	members, err := repo.CommunityMembers(ctx, communityID, &ids[0])
	require.NoError(t, err)
	assert.Len(t, members, 2)

	managers, err := repo.CommunityManagers(ctx, communityID)
	require.NoError(t, err)
	assert.Len(t, managers, 2)

	none, err := repo.CommunityManagers(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)
}
