package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/luhive/luhive-backend/internal/audience"
	"github.com/luhive/luhive-backend/internal/communities"
	"github.com/luhive/luhive-backend/internal/notifications"
	"github.com/luhive/luhive-backend/internal/platforms"
	"github.com/luhive/luhive-backend/pkg/db/dbtest"
	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
	"github.com/luhive/luhive-backend/pkg/mailer"
	"github.com/luhive/luhive-backend/pkg/pagination"
)

type syncBroadcaster struct {
	mu     sync.Mutex
	emails []mailer.Email
}

func (b *syncBroadcaster) Go(_ context.Context, emails []mailer.Email, done func(notifications.Result)) {
	b.mu.Lock()
	b.emails = append(b.emails, emails...)
	b.mu.Unlock()
	if done != nil {
		done(notifications.Result{Attempted: len(emails), Sent: len(emails)})
	}
}

func (b *syncBroadcaster) kinds() map[mailer.Kind]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := map[mailer.Kind]int{}
	for _, e := range b.emails {
		out[e.Kind()]++
	}
	return out
}

type eventsFixture struct {
	conn      *gorm.DB
	svc       Service
	cast      *syncBroadcaster
	owner     *models.Profile
	member    *models.Profile
	community *models.Community
}

func newEventsFixture(t *testing.T) *eventsFixture {
	t.Helper()
	conn := dbtest.Open(t)
	commRepo := communities.NewRepository(conn)
	ctx := context.Background()

	owner := &models.Profile{Email: "owner@example.com", PasswordHash: "h", FullName: "Owner", Timezone: "UTC"}
	member := &models.Profile{Email: "member@example.com", PasswordHash: "h", FullName: "Member", Timezone: "UTC"}
	require.NoError(t, conn.Create(owner).Error)
	require.NoError(t, conn.Create(member).Error)
	community := &models.Community{Slug: "gophers", Name: "Gophers", CreatedBy: owner.ID, IsPublic: true}
	require.NoError(t, commRepo.Create(ctx, community))
	_, err := commRepo.AddMember(ctx, community.ID, owner.ID, enums.CommunityRoleOwner)
	require.NoError(t, err)
	_, err = commRepo.AddMember(ctx, community.ID, member.ID, enums.CommunityRoleMember)
	require.NoError(t, err)

	cast := &syncBroadcaster{}
	svc, err := NewService(ServiceParams{
		Repo:        NewRepository(conn),
		Communities: commRepo,
		Audience:    audience.NewRepository(conn),
		Broadcaster: cast,
		BaseURL:     "https://luhive.test",
	})
	require.NoError(t, err)
	return &eventsFixture{conn: conn, svc: svc, cast: cast, owner: owner, member: member, community: community}
}

func validInput() CreateEventInput {
	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Minute)
	end := start.Add(2 * time.Hour)
	venue := "Impact Hub"
	return CreateEventInput{
		Title:        "Go Night",
		StartTime:    start,
		EndTime:      &end,
		Timezone:     "Asia/Baku",
		LocationName: &venue,
	}
}

func TestCreateEventValidation(t *testing.T) {
	f := newEventsFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.member.ID, "gophers", validInput())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	badTZ := validInput()
	badTZ.Timezone = "Mars/Olympus"
	_, err = f.svc.Create(ctx, f.owner.ID, "gophers", badTZ)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	backwards := validInput()
	early := backwards.StartTime.Add(-time.Hour)
	backwards.EndTime = &early
	_, err = f.svc.Create(ctx, f.owner.ID, "gophers", backwards)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	zeroCap := validInput()
	zero := 0
	zeroCap.Capacity = &zero
	_, err = f.svc.Create(ctx, f.owner.ID, "gophers", zeroCap)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	external := validInput()
	external.RegistrationType = enums.RegistrationTypeExternal
	_, err = f.svc.Create(ctx, f.owner.ID, "gophers", external)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	badQuestions := validInput()
	badQuestions.CustomQuestions = []Question{{ID: "q", Label: "Q", Type: enums.QuestionTypeSelect}}
	_, err = f.svc.Create(ctx, f.owner.ID, "gophers", badQuestions)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(ctx, f.owner.ID, "nope", validInput())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateExternalEventDetectsPlatform(t *testing.T) {
	f := newEventsFixture(t)
	in := validInput()
	in.RegistrationType = enums.RegistrationTypeExternal
	link := "https://lu.ma/go-night"
	chat := "https://chat.whatsapp.com/abc"
	in.ExternalURL = &link
	in.DiscussionURL = &chat

	created, err := f.svc.Create(context.Background(), f.owner.ID, "gophers", in)
	require.NoError(t, err)
	require.NotNil(t, created.ExternalPlatform)
	assert.Equal(t, string(platforms.Luma), *created.ExternalPlatform)
	assert.Equal(t, platforms.WhatsApp, created.DiscussionPlatform)
	assert.Equal(t, enums.EventStatusDraft, created.Status)
	assert.Equal(t, DefaultNotificationOffsets, created.NotificationOffsets)
}

func TestPublishBroadcastsToMembersAndHidesDrafts(t *testing.T) {
	f := newEventsFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.owner.ID, "gophers", validInput())
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, &f.member.ID, created.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	page, err := f.svc.ListByCommunity(ctx, nil, "gophers", pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Events)
	ownerPage, err := f.svc.ListByCommunity(ctx, &f.owner.ID, "gophers", pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, ownerPage.Events, 1)

	published, err := f.svc.Publish(ctx, f.owner.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.EventStatusPublished, published.Status)
	assert.Equal(t, 1, f.cast.kinds()[mailer.KindNewEvent])

	_, err = f.svc.Publish(ctx, f.owner.ID, created.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	got, err := f.svc.Get(ctx, nil, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RegistrationCount)
	assert.Zero(t, *got.RegistrationCount)

	_, err = f.svc.Unpublish(ctx, f.owner.ID, created.ID)
	require.NoError(t, err)
	_, err = f.svc.Unpublish(ctx, f.owner.ID, created.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestUpdateScheduleNotifiesAttendees(t *testing.T) {
	f := newEventsFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.owner.ID, "gophers", validInput())
	require.NoError(t, err)
	_, err = f.svc.Publish(ctx, f.owner.ID, created.ID)
	require.NoError(t, err)

	anon := "guest@example.com"
	require.NoError(t, f.conn.Create(&models.EventRegistration{
		EventID:        created.ID,
		AnonymousEmail: &anon,
		RSVPStatus:     enums.RSVPStatusGoing,
		IsVerified:     true,
	}).Error)

	title := "Go Night (renamed)"
	_, err = f.svc.Update(ctx, f.owner.ID, created.ID, UpdateEventInput{Title: &title})
	require.NoError(t, err)
	assert.Zero(t, f.cast.kinds()[mailer.KindScheduleUpdate])

	later := created.StartTime.Add(24 * time.Hour)
	laterEnd := later.Add(time.Hour)
	_, err = f.svc.Update(ctx, f.owner.ID, created.ID, UpdateEventInput{StartTime: &later, EndTime: &laterEnd})
	require.NoError(t, err)
	assert.Equal(t, 1, f.cast.kinds()[mailer.KindScheduleUpdate])

	invalid := created.StartTime.Add(-time.Hour)
	_, err = f.svc.Update(ctx, f.owner.ID, created.ID, UpdateEventInput{EndTime: &invalid})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Update(ctx, f.member.ID, uuid.New(), UpdateEventInput{Title: &title})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func countReminders(t *testing.T, conn *gorm.DB, eventID uuid.UUID, sent bool) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&models.EventReminder{}).Where("event_id = ? AND sent = ?", eventID, sent).Count(&n).Error)
	return n
}

func TestRescheduleDropsUnsentReminders(t *testing.T) {
	f := newEventsFixture(t)
	ctx := context.Background()

	input := validInput()
	input.NotificationOffsets = []string{"1d"}
	created, err := f.svc.Create(ctx, f.owner.ID, "gophers", input)
	require.NoError(t, err)
	_, err = f.svc.Publish(ctx, f.owner.ID, created.ID)
	require.NoError(t, err)

	sentAt := time.Now().UTC()
	require.NoError(t, f.conn.Create(&models.EventReminder{
		EventID: created.ID, SendAt: created.StartTime.Add(-24 * time.Hour), SendOffset: "1d",
	}).Error)
	require.NoError(t, f.conn.Create(&models.EventReminder{
		EventID: created.ID, SendAt: sentAt, SendOffset: "1h", Sent: true, SentAt: &sentAt,
	}).Error)

	title := "Go Night (renamed)"
	_, err = f.svc.Update(ctx, f.owner.ID, created.ID, UpdateEventInput{Title: &title})
	require.NoError(t, err)
	assert.EqualValues(t, 1, countReminders(t, f.conn, created.ID, false))

	later := created.StartTime.Add(10 * 24 * time.Hour)
	laterEnd := later.Add(time.Hour)
	_, err = f.svc.Update(ctx, f.owner.ID, created.ID, UpdateEventInput{StartTime: &later, EndTime: &laterEnd})
	require.NoError(t, err)
	assert.Zero(t, countReminders(t, f.conn, created.ID, false))
	assert.EqualValues(t, 1, countReminders(t, f.conn, created.ID, true))

	require.NoError(t, f.conn.Create(&models.EventReminder{
		EventID: created.ID, SendAt: later.Add(-24 * time.Hour), SendOffset: "1d",
	}).Error)
	offsets := []string{"2d"}
	_, err = f.svc.Update(ctx, f.owner.ID, created.ID, UpdateEventInput{NotificationOffsets: &offsets})
	require.NoError(t, err)
	assert.Zero(t, countReminders(t, f.conn, created.ID, false))
}

func TestUpdateRefusesToDropUnreadableQuestions(t *testing.T) {
	f := newEventsFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.owner.ID, "gophers", validInput())
	require.NoError(t, err)
	require.NoError(t, f.conn.Model(&models.Event{}).
		Where("id = ?", created.ID).
		Update("custom_questions", "{broken").Error)

	title := "Go Night (renamed)"
	_, err = f.svc.Update(ctx, f.owner.ID, created.ID, UpdateEventInput{Title: &title})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))

	var stored models.Event
	require.NoError(t, f.conn.First(&stored, "id = ?", created.ID).Error)
	assert.Equal(t, "{broken", string(stored.CustomQuestions))
	assert.Equal(t, "Go Night", stored.Title)

	questions := []Question{{ID: "team", Label: "Team", Type: enums.QuestionTypeText}}
	updated, err := f.svc.Update(ctx, f.owner.ID, created.ID, UpdateEventInput{Title: &title, CustomQuestions: &questions})
	require.NoError(t, err)
	assert.Equal(t, questions, updated.CustomQuestions)
}
