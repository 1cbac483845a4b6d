package mailer

import (
	"fmt"
	"strings"
	"time"
)

const fallbackName = "there"

// EventDetails is the event block shared by event-related emails. Date and
// time strings are preformatted in the event's timezone.
type EventDetails struct {
	Title    string
	Date     string
	Time     string
	Location string
	URL      string
}

// NewEventDetails formats start/end in loc.
func NewEventDetails(title string, start time.Time, end *time.Time, loc *time.Location, location, url string) EventDetails {
	if loc == nil {
		loc = time.UTC
	}
	local := start.In(loc)
	clock := local.Format("3:04 PM")
	if end != nil && !end.IsZero() {
		localEnd := end.In(loc)
		if sameDay(local, localEnd) {
			clock += " - " + localEnd.Format("3:04 PM")
		} else {
			clock += " - " + localEnd.Format("Jan 2, 3:04 PM")
		}
	}
	clock += " " + local.Format("MST")

	return EventDetails{
		Title:    title,
		Date:     local.Format("Monday, January 2, 2006"),
		Time:     clock,
		Location: strings.TrimSpace(location),
		URL:      url,
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func displayName(name string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return fallbackName
}

type VerificationEmail struct {
	To        string
	Name      string
	Event     EventDetails
	VerifyURL string
	ExpiresIn string
}

func (e VerificationEmail) Kind() Kind                  { return KindVerification }
func (e VerificationEmail) Recipient() (string, string) { return e.To, e.Name }
func (e VerificationEmail) Subject() string {
	return fmt.Sprintf("Confirm your registration for %s", e.Event.Title)
}

type RegistrationConfirmationEmail struct {
	To            string
	Name          string
	CommunityName string
	Event         EventDetails
}

func (e RegistrationConfirmationEmail) Kind() Kind                  { return KindRegistrationConfirmation }
func (e RegistrationConfirmationEmail) Recipient() (string, string) { return e.To, e.Name }
func (e RegistrationConfirmationEmail) Subject() string {
	return fmt.Sprintf("You're registered for %s", e.Event.Title)
}

type SubscriptionConfirmationEmail struct {
	To            string
	Name          string
	Event         EventDetails
	PlatformLabel string
	ExternalURL   string
}

func (e SubscriptionConfirmationEmail) Kind() Kind                  { return KindSubscriptionConfirmation }
func (e SubscriptionConfirmationEmail) Recipient() (string, string) { return e.To, e.Name }
func (e SubscriptionConfirmationEmail) Subject() string {
	return fmt.Sprintf("Next step for %s", e.Event.Title)
}

type StatusUpdateEmail struct {
	To       string
	Name     string
	Event    EventDetails
	Approved bool
}

func (e StatusUpdateEmail) Kind() Kind                  { return KindStatusUpdate }
func (e StatusUpdateEmail) Recipient() (string, string) { return e.To, e.Name }
func (e StatusUpdateEmail) Subject() string {
	if e.Approved {
		return fmt.Sprintf("You're approved for %s", e.Event.Title)
	}
	return fmt.Sprintf("Update on your registration for %s", e.Event.Title)
}

type ScheduleUpdateEmail struct {
	To    string
	Name  string
	Event EventDetails
}

func (e ScheduleUpdateEmail) Kind() Kind                  { return KindScheduleUpdate }
func (e ScheduleUpdateEmail) Recipient() (string, string) { return e.To, e.Name }
func (e ScheduleUpdateEmail) Subject() string {
	return fmt.Sprintf("%s has been updated", e.Event.Title)
}

type NewEventEmail struct {
	To            string
	Name          string
	CommunityName string
	Event         EventDetails
}

func (e NewEventEmail) Kind() Kind                  { return KindNewEvent }
func (e NewEventEmail) Recipient() (string, string) { return e.To, e.Name }
func (e NewEventEmail) Subject() string {
	return fmt.Sprintf("New event from %s: %s", e.CommunityName, e.Event.Title)
}

type ReminderEmail struct {
	To    string
	Name  string
	Body  string
	Event EventDetails
}

func (e ReminderEmail) Kind() Kind                  { return KindReminder }
func (e ReminderEmail) Recipient() (string, string) { return e.To, e.Name }
func (e ReminderEmail) Subject() string {
	return fmt.Sprintf("Reminder: %s", e.Event.Title)
}

type WaitlistEmail struct {
	To            string
	Name          string
	CommunityName string
	Status        string
	CommunityURL  string
}

func (e WaitlistEmail) Kind() Kind                  { return KindWaitlist }
func (e WaitlistEmail) Recipient() (string, string) { return e.To, e.Name }
func (e WaitlistEmail) Subject() string {
	switch e.Status {
	case "approved":
		return fmt.Sprintf("%s is live on Luhive", e.CommunityName)
	case "rejected":
		return fmt.Sprintf("Your request for %s", e.CommunityName)
	default:
		return "We received your community request"
	}
}

type JoinNotificationEmail struct {
	To            string
	Name          string
	MemberName    string
	CommunityName string
	CommunityURL  string
}

func (e JoinNotificationEmail) Kind() Kind                  { return KindJoinNotification }
func (e JoinNotificationEmail) Recipient() (string, string) { return e.To, e.Name }
func (e JoinNotificationEmail) Subject() string {
	return fmt.Sprintf("%s joined %s", displayName(e.MemberName), e.CommunityName)
}

type CollaborationInviteEmail struct {
	To                string
	Name              string
	HostCommunityName string
	CommunityName     string
	Event             EventDetails
}

func (e CollaborationInviteEmail) Kind() Kind                  { return KindCollaborationInvite }
func (e CollaborationInviteEmail) Recipient() (string, string) { return e.To, e.Name }
func (e CollaborationInviteEmail) Subject() string {
	return fmt.Sprintf("%s invited you to co-host %s", e.HostCommunityName, e.Event.Title)
}

type CollaborationAcceptedEmail struct {
	To            string
	Name          string
	CommunityName string
	Event         EventDetails
}

func (e CollaborationAcceptedEmail) Kind() Kind                  { return KindCollaborationAccepted }
func (e CollaborationAcceptedEmail) Recipient() (string, string) { return e.To, e.Name }
func (e CollaborationAcceptedEmail) Subject() string {
	return fmt.Sprintf("%s is now co-hosting %s", e.CommunityName, e.Event.Title)
}

type CommunityInviteEmail struct {
	To            string
	InviterName   string
	CommunityName string
	Role          string
	AcceptURL     string
	ExpiresOn     string
}

func (e CommunityInviteEmail) Kind() Kind                  { return KindCommunityInvite }
func (e CommunityInviteEmail) Recipient() (string, string) { return e.To, "" }
func (e CommunityInviteEmail) Subject() string {
	return fmt.Sprintf("You're invited to join %s", e.CommunityName)
}
