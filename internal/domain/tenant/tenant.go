// Package tenant defines the rental property (tenant) model.
package tenant

import "strings"

// placeholderCalendarID marks a calendar slot that exists in configuration
// but has no real calendar behind it yet.
const placeholderCalendarID = "not_configured"

// Tenant is one independently configured rental property. Tenants are loaded
// once at start-up and never mutated.
type Tenant struct {
	Slug            string         `json:"slug"`
	DisplayName     string         `json:"displayName"`
	LogoURL         string         `json:"logoUrl,omitempty"`
	AdminEmail      string         `json:"adminEmail,omitempty"`
	ReadCalendarIDs []string       `json:"-"`
	WriteCalendarID string         `json:"-"`
	CalendarAPIKey  string         `json:"-"`
	ServiceAccount  ServiceAccount `json:"-"`
	Sender          Sender         `json:"-"`
}

// ServiceAccount holds the credentials used to write to the tenant's calendar.
type ServiceAccount struct {
	Email      string
	PrivateKey string
}

// Sender is the mail identity used for the tenant's outgoing email.
type Sender struct {
	Name     string
	Username string
	Password string //nolint:gosec // credential field
}

// Configured reports whether the sender carries credentials of its own.
func (s Sender) Configured() bool {
	return s.Username != "" && s.Password != ""
}

// HasReadCalendars reports whether at least one read source is configured.
func (t *Tenant) HasReadCalendars() bool {
	return len(t.ReadCalendarIDs) > 0
}

// HasWriteCalendar reports whether the tenant has a usable write calendar.
func (t *Tenant) HasWriteCalendar() bool {
	return IsCalendarID(t.WriteCalendarID)
}

// HasServiceAccount reports whether calendar write credentials are present.
func (t *Tenant) HasServiceAccount() bool {
	return t.ServiceAccount.Email != "" && t.ServiceAccount.PrivateKey != ""
}

// IsCalendarID reports whether id names a real calendar.
func IsCalendarID(id string) bool {
	id = strings.TrimSpace(id)
	return id != "" && id != placeholderCalendarID
}

// NormalizeReadCalendars merges the single and multi calendar forms into one
// ordered list, dropping blanks, placeholders and duplicates.
func NormalizeReadCalendars(single string, many []string) []string {
	all := make([]string, 0, len(many)+1)
	if len(many) == 0 {
		all = append(all, single)
	} else {
		all = append(all, many...)
	}

	out := make([]string, 0, len(all))
	seen := make(map[string]struct{}, len(all))
	for _, id := range all {
		id = strings.TrimSpace(id)
		if !IsCalendarID(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// NormalizePrivateKey turns literal "\n" sequences, common when PEM keys are
// stored in environment variables, into real newlines.
func NormalizePrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}
