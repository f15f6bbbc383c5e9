// Package scoring computes heuristic relevance scores for trials,
// publications and researchers. Everything here is pure: the caller passes
// the clock reading in.
package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Provenance records where a candidate came from
type Provenance int

const (
	// Local records are stored on the platform and get no floor
	Local Provenance = iota
	// External records came from a live upstream API
	External
	// Fallback records were read locally because the upstream failed
	Fallback
)

const (
	MinScore = 0
	MaxScore = 100
	// Floor applies to External and Fallback candidates
	Floor = 50

	FallbackReason = "database result / API unavailable"
)

// Points per matched condition
const (
	queryTitlePoints       = 30
	queryDescriptionPoints = 15
	queryTagPoints         = 25
	termTitlePoints        = 30
	termTagPoints          = 25
	termDescriptionPoints  = 15
	statusPoints           = 15
	doiPoints              = 10
	maxRatingPoints        = 10
)

// Candidate is the scoring view of a trial, publication or researcher
type Candidate struct {
	Title       string
	Description string
	Tags        []string
	Status      string

	// Updated is the last update or publication date; zero means unknown
	Updated time.Time
	// YearOnly marks Updated as carrying only a publication year
	YearOnly bool

	HasDOI      bool
	Rating      float64
	ReviewCount int

	Provenance Provenance
	Source     string
}

type Result struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// Score evaluates candidate against the requester's terms and the query.
// Conditions are evaluated in a fixed order and each contributing condition
// appends one reason.
func Score(c Candidate, terms []string, query string, now time.Time) Result {
	var s scorer

	title := strings.ToLower(c.Title)
	description := strings.ToLower(c.Description)
	tags := lowerAll(c.Tags)

	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		if strings.Contains(title, q) {
			s.add(queryTitlePoints, fmt.Sprintf("Title matches %q", strings.TrimSpace(query)))
		}
		if strings.Contains(description, q) {
			s.add(queryDescriptionPoints, fmt.Sprintf("Description mentions %q", strings.TrimSpace(query)))
		}
		if i := matchTag(tags, q); i >= 0 {
			s.add(queryTagPoints, fmt.Sprintf("Matches %s", c.Tags[i]))
		}
	}

	for _, term := range terms {
		raw := strings.TrimSpace(term)
		t := strings.ToLower(raw)
		if t == "" {
			continue
		}

		inTitle := strings.Contains(title, t)
		if inTitle {
			s.add(termTitlePoints, fmt.Sprintf("Title mentions your interest in %s", raw))
		}

		// A term named in the title counts as a condition match even when
		// the candidate carries no tags.
		tagIdx := matchTag(tags, t)
		switch {
		case tagIdx >= 0:
			s.add(termTagPoints, fmt.Sprintf("Related to %s", c.Tags[tagIdx]))
		case inTitle:
			s.add(termTagPoints, fmt.Sprintf("Matches your condition %s", raw))
		}

		if !inTitle && tagIdx < 0 && strings.Contains(description, t) {
			s.add(termDescriptionPoints, fmt.Sprintf("Mentions %s", raw))
		}
	}

	switch normalizeStatus(c.Status) {
	case "RECRUITING", "NOT_YET_RECRUITING", "ENROLLING_BY_INVITATION":
		s.add(statusPoints, "Currently recruiting")
	case "ACTIVE", "ACTIVE_NOT_RECRUITING":
		s.add(statusPoints, "Study is active")
	}

	if points, reason := recency(c, now); points > 0 {
		s.add(points, reason)
	}

	switch {
	case c.HasDOI:
		s.add(doiPoints, "Peer-reviewed publication with DOI")
	case c.ReviewCount > 0 && c.Rating > 0:
		points := min(int(math.Round(c.Rating*2)), maxRatingPoints)
		s.add(points, fmt.Sprintf("Rated %.1f/5 by %d %s", c.Rating, c.ReviewCount, plural(c.ReviewCount, "patient", "patients")))
	}

	switch c.Provenance {
	case External:
		if s.score < Floor {
			s.score = Floor
			source := c.Source
			if source == "" {
				source = "external source"
			}
			s.reasons = append(s.reasons, "Live result from "+source)
		}
	case Fallback:
		s.score = max(s.score, Floor)
		s.reasons = []string{FallbackReason}
	}

	return Result{Score: Clamp(s.score), Reasons: s.nonNilReasons()}
}

// Clamp bounds a score to [MinScore, MaxScore]
func Clamp(score int) int {
	return min(max(score, MinScore), MaxScore)
}

type scorer struct {
	score   int
	reasons []string
}

func (s *scorer) add(points int, reason string) {
	s.score += points
	s.reasons = append(s.reasons, reason)
}

func (s *scorer) nonNilReasons() []string {
	if s.reasons == nil {
		return []string{}
	}
	return s.reasons
}

// matchTag returns the index of the first tag that contains term or is
// contained in it, or -1
func matchTag(tags []string, term string) int {
	for i, tag := range tags {
		if tag == "" {
			continue
		}
		if strings.Contains(tag, term) || strings.Contains(term, tag) {
			return i
		}
	}
	return -1
}

func recency(c Candidate, now time.Time) (int, string) {
	if c.Updated.IsZero() {
		return 0, ""
	}

	if c.YearOnly {
		years := now.Year() - c.Updated.Year()
		switch {
		case years < 0:
			return 0, ""
		case years <= 1:
			return 15, fmt.Sprintf("Published recently (%d)", c.Updated.Year())
		case years == 2:
			return 12, fmt.Sprintf("Published 2 years ago (%d)", c.Updated.Year())
		case years == 3:
			return 10, fmt.Sprintf("Published 3 years ago (%d)", c.Updated.Year())
		}
		return 0, ""
	}

	age := now.Sub(c.Updated)
	year := 365 * 24 * time.Hour
	switch {
	case age <= year:
		return 15, "Updated within the last year"
	case age <= 2*year:
		return 12, "Updated within the last 2 years"
	case age <= 3*year:
		return 10, "Updated within the last 3 years"
	}
	return 0, ""
}

func normalizeStatus(status string) string {
	s := strings.ToUpper(strings.TrimSpace(status))
	s = strings.ReplaceAll(s, ",", "")
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), "_")
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
