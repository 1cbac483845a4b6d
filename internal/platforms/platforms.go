// Package platforms classifies third-party chat and registration links by host.
package platforms

import (
	"net/url"
	"strings"
)

// Platform identifies a known third-party service.
type Platform string

const (
	WhatsApp       Platform = "whatsapp"
	Discord        Platform = "discord"
	Telegram       Platform = "telegram"
	GoogleForms    Platform = "google_forms"
	MicrosoftForms Platform = "microsoft_forms"
	Luma           Platform = "luma"
	Eventbrite     Platform = "eventbrite"
	Other          Platform = "other"
)

var labels = map[Platform]string{
	WhatsApp:       "WhatsApp",
	Discord:        "Discord",
	Telegram:       "Telegram",
	GoogleForms:    "Google Forms",
	MicrosoftForms: "Microsoft Forms",
	Luma:           "Luma",
	Eventbrite:     "Eventbrite",
	Other:          "External link",
}

// Label returns a human readable name.
func (p Platform) Label() string {
	if l, ok := labels[p]; ok {
		return l
	}
	return labels[Other]
}

// String implements fmt.Stringer.
func (p Platform) String() string { return string(p) }

// DetectDiscussionPlatform classifies a community chat link.
func DetectDiscussionPlatform(raw string) Platform {
	host, _, ok := parse(raw)
	if !ok {
		return Other
	}
	switch {
	case hostIs(host, "whatsapp.com", "wa.me"):
		return WhatsApp
	case hostIs(host, "discord.gg", "discord.com", "discordapp.com"):
		return Discord
	case hostIs(host, "t.me", "telegram.me", "telegram.org"):
		return Telegram
	}
	return Other
}

// DetectRegistrationPlatform classifies an external registration link.
func DetectRegistrationPlatform(raw string) Platform {
	host, path, ok := parse(raw)
	if !ok {
		return Other
	}
	switch {
	case hostIs(host, "forms.gle"),
		hostIs(host, "docs.google.com") && strings.HasPrefix(path, "/forms"):
		return GoogleForms
	case hostIs(host, "forms.office.com", "forms.microsoft.com"):
		return MicrosoftForms
	case hostIs(host, "lu.ma", "luma.com"):
		return Luma
	case isEventbrite(host):
		return Eventbrite
	}
	return Other
}

func parse(raw string) (host, path string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "", "", false
	}
	return strings.ToLower(u.Hostname()), u.Path, true
}

// hostIs matches the domain itself or any subdomain of it.
func hostIs(host string, domains ...string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// isEventbrite also matches country sites such as eventbrite.co.uk.
func isEventbrite(host string) bool {
	parts := strings.Split(host, ".")
	for i, part := range parts {
		if part == "eventbrite" && i < len(parts)-1 {
			return true
		}
	}
	return false
}
