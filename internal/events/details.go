package events

import (
	"fmt"
	"strings"

	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/mailer"
)

// PublicURL is the event page under its community.
func PublicURL(baseURL, communitySlug, eventID string) string {
	return fmt.Sprintf("%s/c/%s/events/%s", strings.TrimRight(baseURL, "/"), communitySlug, eventID)
}

// Details formats the email event block in the event's own timezone.
func Details(e *models.Event, url string) mailer.EventDetails {
	return mailer.NewEventDetails(e.Title, e.StartTime, e.EndTime, e.Location(), e.LocationLabel(), url)
}
