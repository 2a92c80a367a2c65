package protocol

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// ForecastMarker prefixes every moderator announcement.
	ForecastMarker = "Moderator: Forecast the likelihood of:"
	// ForecastKeyword is the content filter agents apply to payloads.
	ForecastKeyword = "Forecast"

	ReferenceKeyPrefix = "vectorized_info"
	// NoReferenceInfo replaces a missing reference entry in the prompt.
	NoReferenceInfo = "No specific info available."
)

// FormatAnnouncement builds the moderator payload for an event.
func FormatAnnouncement(event string) string {
	return ForecastMarker + "'" + event + "'"
}

// IsForecastRequest applies the agents' content filter.
func IsForecastRequest(payload string) bool {
	return strings.Contains(payload, ForecastKeyword)
}

// Extraction is the event text recovered from an announcement.
type Extraction struct {
	Event string
	// MarkerFound is false when the payload lacked ForecastMarker; Event is
	// then the whole payload, unchanged.
	MarkerFound bool
}

// ExtractEvent takes everything after the first ForecastMarker and strips a
// single apostrophe from each end. Without the marker the payload comes back
// as is.
func ExtractEvent(payload string) Extraction {
	_, rest, found := strings.Cut(payload, ForecastMarker)
	if !found {
		return Extraction{Event: payload}
	}
	rest = strings.TrimPrefix(rest, "'")
	rest = strings.TrimSuffix(rest, "'")
	return Extraction{Event: rest, MarkerFound: true}
}

// ReferenceKey is the key-value location of an agent's reference text.
func ReferenceKey(agentID, event string) string {
	return ReferenceKeyPrefix + ":" + agentID + ":" + event
}

// AgentLabel turns "agent_1" into "1". Identifiers without the agent_
// prefix are used verbatim.
func AgentLabel(agentID string) string {
	if label, ok := strings.CutPrefix(agentID, "agent_"); ok && label != "" {
		return label
	}
	return agentID
}

// FormatResult builds the payload an agent publishes on a results channel.
func FormatResult(label, forecast string) string {
	return "Agent " + label + ": " + forecast
}

// BuildPrompt is the user prompt sent to the oracle.
func BuildPrompt(event, info string) string {
	return "Based on the event: " + event + ", and the following related information: " + info +
		", provide the percentage likelihood that this event will be true."
}

var (
	closingSentence = regexp.MustCompile(`(?i)likelihood of this event happening is\s*(\d{1,3}(?:\.\d+)?)\s*%`)
	anyPercentage   = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)\s*%`)
)

// ParseLikelihood pulls the forecast percentage out of a result. The closing
// sentence wins; otherwise the last percentage in the text is used.
func ParseLikelihood(text string) (float64, bool) {
	if m := closingSentence.FindAllStringSubmatch(text, -1); len(m) > 0 {
		return parsePercent(m[len(m)-1][1])
	}
	if m := anyPercentage.FindAllStringSubmatch(text, -1); len(m) > 0 {
		return parsePercent(m[len(m)-1][1])
	}
	return 0, false
}

func parsePercent(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v > 100 {
		return 0, false
	}
	return v, true
}
