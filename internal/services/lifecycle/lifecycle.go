package lifecycle

import (
	"time"

	"ticket-tracker/models"
)

// DefaultGraceWindow is how long after its scheduled start an event may
// still be scraped.
const DefaultGraceWindow = 120 * time.Minute

// activeEventStatuses are the source statuses that keep an event tracked.
var activeEventStatuses = map[string]struct{}{
	"Active":     {},
	"Contingent": {},
	"Postponed":  {},
	"Scheduled":  {},
}

// DeriveScrapeStatus maps a source event status onto a scrape status. It is
// applied on every metadata refresh and never takes the previous value into
// account.
func DeriveScrapeStatus(eventStatus string) models.ScrapeStatus {
	if _, ok := activeEventStatuses[eventStatus]; ok {
		return models.ScrapeStatusActive
	}
	return models.ScrapeStatusInactive
}

type Reason string

const (
	ReasonEligible Reason = "eligible"
	ReasonInactive Reason = "inactive"
	ReasonExpired  Reason = "expired"
)

// Decision is the outcome of an eligibility check. Retire is set only for
// expired events, which must be persisted as Inactive with a fresh
// last-scraped timestamp.
type Decision struct {
	Scrape bool
	Retire bool
	Reason Reason
}

type Lifecycle struct {
	graceWindow time.Duration
}

func New(graceWindow time.Duration) *Lifecycle {
	if graceWindow <= 0 {
		graceWindow = DefaultGraceWindow
	}
	return &Lifecycle{graceWindow: graceWindow}
}

func (l *Lifecycle) GraceWindow() time.Duration {
	return l.graceWindow
}

// Check decides whether event should be scraped at now.
func (l *Lifecycle) Check(event *models.Event, now time.Time) Decision {
	if event.ScrapeStatus != models.ScrapeStatusActive {
		return Decision{Reason: ReasonInactive}
	}
	if l.Expired(event, now) {
		return Decision{Retire: true, Reason: ReasonExpired}
	}
	return Decision{Scrape: true, Reason: ReasonEligible}
}

// Expired reports whether the event started more than the grace window
// before now. Events without a scheduled time never expire.
func (l *Lifecycle) Expired(event *models.Event, now time.Time) bool {
	if event.DateTime == nil {
		return false
	}
	return now.Sub(event.DateTime.UTC()) > l.graceWindow
}

// Refresh applies source metadata to a stored event and derives its scrape
// status.
func Refresh(fromSource *models.Event, now time.Time) *models.Event {
	refreshed := *fromSource
	refreshed.ScrapeStatus = DeriveScrapeStatus(fromSource.EventStatus)
	refreshed.LastScrapedDateTime = &now
	return &refreshed
}

// ManualUpdate is an operator supplied replacement of every editable event
// field. It bypasses DeriveScrapeStatus: ScrapeStatus is written verbatim.
type ManualUpdate struct {
	EventID          int64
	PrimaryPerformer string
	Name             string
	VenueCity        string
	VenueName        string
	DateTime         *time.Time
	EventStatus      string
	ScrapeStatus     models.ScrapeStatus
}

// Apply overwrites the editable fields of event. ID and LastScrapedDateTime
// are left alone.
func (u ManualUpdate) Apply(event *models.Event) *models.Event {
	updated := *event
	updated.PrimaryPerformer = u.PrimaryPerformer
	updated.Name = u.Name
	updated.VenueCity = u.VenueCity
	updated.VenueName = u.VenueName
	updated.DateTime = u.DateTime
	updated.EventStatus = u.EventStatus
	updated.ScrapeStatus = u.ScrapeStatus
	return &updated
}
