package viewmodel

import (
	"fmt"
	"time"

	"github.com/abelbrown/delayboard/internal/model"
)

// bannerMaxRunes is the longest alert header shown on a card.
const bannerMaxRunes = 60

// SummaryKind is the state a card's one-line summary reports.
type SummaryKind int

const (
	// SummaryClear: no delays and no alerts.
	SummaryClear SummaryKind = iota
	// SummaryAlert: no delays but at least one active alert.
	SummaryAlert
	// SummaryDelays: at least one delay recorded today.
	SummaryDelays
)

func (k SummaryKind) String() string {
	switch k {
	case SummaryDelays:
		return "delays"
	case SummaryAlert:
		return "alert"
	default:
		return "clear"
	}
}

// Summary is a card's headline state.
type Summary struct {
	Kind   SummaryKind
	Delays int
	Alerts int
}

// Summarize picks the card headline. Delays outrank alerts, alerts outrank
// the all-clear state.
func Summarize(totalDelays, alertCount int) Summary {
	s := Summary{Delays: totalDelays, Alerts: alertCount}
	switch {
	case totalDelays > 0:
		s.Kind = SummaryDelays
	case alertCount > 0:
		s.Kind = SummaryAlert
	default:
		s.Kind = SummaryClear
	}
	return s
}

// Banner is the first active alert of a line, prepared for a card.
type Banner struct {
	Type   model.AlertType
	Icon   string
	Header string
}

func newBanner(a model.Alert, icon string) *Banner {
	return &Banner{
		Type:   a.AlertType,
		Icon:   icon,
		Header: Truncate(a.Header, bannerMaxRunes),
	}
}

// Truncate shortens s to max runes and appends "..." when it cut anything.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// TimeAgo renders the age of t relative to now in whole minutes. Anything
// under a minute, including timestamps slightly in the future, is "just now".
func TimeAgo(now, t time.Time) string {
	mins := int(now.Sub(t) / time.Minute)
	switch {
	case mins < 1:
		return "just now"
	case mins == 1:
		return "1 min ago"
	default:
		return fmt.Sprintf("%d mins ago", mins)
	}
}

// RushHour classifies a local time for the empty-ranking hint.
type RushHour int

const (
	Weekend RushHour = iota
	BeforeMorning
	MorningNow
	Midday
	EveningNow
	Night
)

func (r RushHour) String() string {
	switch r {
	case Weekend:
		return "weekend"
	case BeforeMorning:
		return "before-morning"
	case MorningNow:
		return "morning-now"
	case Midday:
		return "midday"
	case EveningNow:
		return "evening-now"
	default:
		return "night"
	}
}

// RushHourHint places t relative to the weekday rush hours (7-10 and 16-19).
func RushHourHint(t time.Time) RushHour {
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return Weekend
	}
	switch h := t.Hour(); {
	case h < 7:
		return BeforeMorning
	case h < 10:
		return MorningNow
	case h < 16:
		return Midday
	case h < 19:
		return EveningNow
	default:
		return Night
	}
}
