package ical

import (
	"fmt"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"
)

/*
Responsibilities

- Collect meetings for one calendar
- Order events by start time, then meeting id
- Derive stable event UIDs so re-runs produce identical calendars
*/

type Meeting struct {
	ID        string
	Start     time.Time
	End       time.Time
	Committee string
	Name      string
	Location  string
	URL       string
}

// Summary is the event title shown in calendar clients.
func (m Meeting) Summary() string {
	if m.Name == "" {
		return m.Committee
	}
	return m.Committee + " - " + m.Name
}

// uidStamp is the fixed prefix of every event UID. Subscribed clients key
// events on it, so it never changes.
const uidStamp = "20220215T101010"

// UID is derived from the meeting id alone, so it survives re-harvests.
func (m Meeting) UID() string {
	return fmt.Sprintf("%s/%s@ms", uidStamp, m.ID)
}

type Organizer struct {
	Email string
	Name  string
}

type Calendar struct {
	prodID    string
	organizer *Organizer
	meetings  []Meeting
}

func NewCalendar(prodID string) *Calendar {
	return &Calendar{prodID: prodID}
}

func (c *Calendar) WithOrganizer(email, name string) *Calendar {
	c.organizer = &Organizer{Email: email, Name: name}
	return c
}

func (c *Calendar) AddMeeting(m Meeting) {
	c.meetings = append(c.meetings, m)
}

func (c *Calendar) Len() int {
	return len(c.meetings)
}

// Meetings returns a sorted copy.
func (c *Calendar) Meetings() []Meeting {
	out := make([]Meeting, len(c.meetings))
	copy(out, c.meetings)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Serialize renders an RFC 5545 calendar. stamp becomes every event's
// DTSTAMP.
func (c *Calendar) Serialize(stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	if c.prodID != "" {
		cal.SetProductId(c.prodID)
	}

	for _, m := range c.Meetings() {
		event := cal.AddEvent(m.UID())
		event.SetDtStampTime(stamp)
		event.SetStartAt(m.Start)
		event.SetEndAt(m.End)
		event.SetSummary(m.Summary())
		if m.Location != "" {
			event.SetLocation(m.Location)
		}
		if m.URL != "" {
			event.SetDescription(m.URL)
			event.SetURL(m.URL)
		}
		if c.organizer != nil {
			event.SetOrganizer("MAILTO:"+c.organizer.Email, ics.WithCN(c.organizer.Name))
		}
	}
	return cal.Serialize()
}
