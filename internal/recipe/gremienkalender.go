package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rohmanhakim/opendata-harvester/internal/fetcher"
	"github.com/rohmanhakim/opendata-harvester/internal/ical"
	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/internal/reshape"
	"github.com/rohmanhakim/opendata-harvester/internal/storage"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

const (
	oparlBaseURL     = "https://oparl.stadt-muenster.de/"
	oparlMeetingURL  = "https://www.stadt-muenster.de/sessionnet/sessionnetbi/si0057.php?__ksinr=%s"
	oparlMaxPages    = 300
	gremienProdID    = "-//Gremien Kalender//opendata.stadt-muenster.de//"
	gremienOrganizer = "opendata@citeq.de"
	gremienOrgName   = "Stadt Münster"
	// Layout of the published CSV: space separator, numeric zone offset.
	gremienCSVTime = "2006-01-02 15:04:05-07:00"
)

var (
	gremienCSVHeader = []string{"MeetingID", "Start", "Ende", "Gremium", "Veranstaltung", "Ort", "Weitere Information"}
	meetingIDPattern = regexp.MustCompile(`/(\d+)$`)
)

type oparlPage[T any] struct {
	Data []T `json:"data"`
}

type oparlOrganization struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
}

func (o oparlOrganization) displayName() string {
	if o.Name != "" {
		return o.Name
	}
	return o.ShortName
}

type oparlMeeting struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Start        string          `json:"start"`
	End          string          `json:"end"`
	Location     json.RawMessage `json:"location"`
	Organization []string        `json:"organization"`
}

// room tolerates a missing or oddly shaped location.
func (m oparlMeeting) room() string {
	var loc struct {
		Room string `json:"room"`
	}
	if len(m.Location) == 0 || json.Unmarshal(m.Location, &loc) != nil {
		return ""
	}
	return loc.Room
}

// Gremienkalender builds the council meeting calendar of one year from the
// OParl API.
type Gremienkalender struct{}

func NewGremienkalender() *Gremienkalender {
	return &Gremienkalender{}
}

func (g *Gremienkalender) Name() string    { return "gremienkalender" }
func (g *Gremienkalender) Version() string { return "2024.1" }
func (g *Gremienkalender) Description() string {
	return "Council meetings from OParl as iCalendar and CSV"
}

func (g *Gremienkalender) Run(ctx context.Context, env Env) (Outcome, failure.ClassifiedError) {
	base := env.source(g.Name(), "base", oparlBaseURL)
	year := strconv.Itoa(env.year())

	orgNames, err := g.organizations(ctx, env, base)
	if err != nil {
		return Outcome{}, err
	}

	calendar := ical.NewCalendar(gremienProdID).WithOrganizer(gremienOrganizer, gremienOrgName)
	seen := map[string]int{}
	var meetings []ical.Meeting
	total, skipped := 0, 0

	for page := 0; page < oparlMaxPages; page++ {
		var list oparlPage[oparlMeeting]
		pageURL := fmt.Sprintf("%sbodies/0001/meetings?page=%d", base, page)
		if _, err := env.Fetcher.FetchJSON(ctx, g.param(env, base, pageURL), &list); err != nil {
			return Outcome{}, err
		}
		if len(list.Data) == 0 {
			break
		}

		for _, m := range list.Data {
			total++
			if !strings.HasPrefix(m.Start, year) {
				skipped++
				continue
			}
			meeting, ok, err := g.meeting(ctx, env, base, m, orgNames)
			if err != nil {
				return Outcome{}, err
			}
			if !ok {
				skipped++
				continue
			}
			// The API lists some meetings on more than one page.
			key := m.Start + meeting.ID
			if i, dup := seen[key]; dup {
				meetings[i] = meeting
				continue
			}
			seen[key] = len(meetings)
			meetings = append(meetings, meeting)
		}
	}

	for _, m := range meetings {
		calendar.AddMeeting(m)
	}
	rows := make([][]string, 0, calendar.Len())
	for _, m := range calendar.Meetings() {
		rows = append(rows, []string{
			m.ID,
			m.Start.Format(gremienCSVTime),
			m.End.Format(gremienCSVTime),
			m.Committee,
			m.Name,
			m.Location,
			m.URL,
		})
	}

	outcome := Outcome{rows: total, buckets: 1, unknowns: skipped}
	if err := env.writeAll(&outcome,
		storage.NewArtifact("ratsinformation_termine.ics", metadata.ArtifactICal, []byte(calendar.Serialize(env.Clock.Now()))),
		storage.NewArtifact("ratsinformation_termine.csv", metadata.ArtifactCSV, csvBytes(reshape.Excel, gremienCSVHeader, rows)),
	); err != nil {
		return Outcome{}, err
	}
	return outcome, nil
}

func (g *Gremienkalender) param(env Env, base, url string) fetcher.FetchParam {
	return env.fetchParam(url).WithCacheKeyPrefix(base)
}

// organizations pages through the organization list. Its names stand in for
// organizations whose own URL answers "not found".
func (g *Gremienkalender) organizations(ctx context.Context, env Env, base string) (map[string]string, failure.ClassifiedError) {
	names := map[string]string{}
	for page := 0; page < oparlMaxPages; page++ {
		var list oparlPage[oparlOrganization]
		pageURL := fmt.Sprintf("%sbodies/0001/organizations?page=%d", base, page)
		if _, err := env.Fetcher.FetchJSON(ctx, g.param(env, base, pageURL), &list); err != nil {
			return nil, err
		}
		if len(list.Data) == 0 {
			break
		}
		for _, org := range list.Data {
			names[org.ID] = org.Name
		}
	}
	return names, nil
}

// meeting resolves the committee and converts one API meeting. ok is false
// for meetings that are skipped with a warning.
func (g *Gremienkalender) meeting(
	ctx context.Context,
	env Env,
	base string,
	m oparlMeeting,
	orgNames map[string]string,
) (ical.Meeting, bool, failure.ClassifiedError) {
	idMatch := meetingIDPattern.FindStringSubmatch(m.ID)
	if idMatch == nil {
		env.warn(g.Name(), "meeting without numeric id", metadata.NewAttr(metadata.AttrURL, m.ID))
		return ical.Meeting{}, false, nil
	}
	meetingID := idMatch[1]

	orgURL := ""
	if len(m.Organization) > 0 {
		orgURL = m.Organization[0]
	}

	committee := ""
	switch {
	case orgURL == "":
		env.warn(g.Name(), "empty organization field", metadata.NewAttr(metadata.AttrURL, m.ID))
	case !strings.HasPrefix(orgURL, base):
		env.warn(g.Name(), "invalid organization url", metadata.NewAttr(metadata.AttrURL, orgURL))
	default:
		var org oparlOrganization
		found, err := env.Fetcher.FetchJSON(ctx, g.param(env, base, orgURL), &org)
		if err != nil {
			return ical.Meeting{}, false, err
		}
		// Only a missing or empty organization falls back to the list.
		// A found one without a name is skipped below.
		if found && org != (oparlOrganization{}) {
			committee = org.displayName()
			break
		}
		env.warn(g.Name(), "organization url failed", metadata.NewAttr(metadata.AttrURL, orgURL))
		name, listed := orgNames[orgURL]
		if !listed {
			env.warn(g.Name(), "organization not in org list", metadata.NewAttr(metadata.AttrURL, orgURL))
		}
		committee = name
	}
	if committee == "" {
		env.warn(g.Name(), "skipping meeting with empty organization name", metadata.NewAttr(metadata.AttrURL, m.ID))
		return ical.Meeting{}, false, nil
	}

	start, startErr := time.Parse(time.RFC3339, m.Start)
	end, endErr := time.Parse(time.RFC3339, m.End)
	if startErr != nil || endErr != nil {
		env.warn(g.Name(), "skipping meeting with unparsable times",
			metadata.NewAttr(metadata.AttrURL, m.ID),
			metadata.NewAttr(metadata.AttrMessage, m.Start+" / "+m.End),
		)
		return ical.Meeting{}, false, nil
	}

	return ical.Meeting{
		ID:        meetingID,
		Start:     start,
		End:       end,
		Committee: committee,
		Name:      m.Name,
		Location:  m.room(),
		URL:       fmt.Sprintf(oparlMeetingURL, meetingID),
	}, true, nil
}
