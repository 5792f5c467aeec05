package lyrics

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

var titleNoise = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*-\s*(remaster(ed)?(\s*\d{2,4})?|\d{2,4}\s*remaster(ed)?|single version|album version|radio edit|clean|explicit)\b.*`),
	regexp.MustCompile(`(?i)\s*\((feat|ft)\..*?\)`),
	regexp.MustCompile(`(?i)\s*\[.*?version.*?\]`),
	regexp.MustCompile(`(?i)\s*\([^()]*\b(remaster(ed)?|version|edit)\b[^()]*\)`),
}

// NormalizeTitle strips remaster, edit and version annotations and featured
// artist credits, which lyric indexes usually leave out.
func NormalizeTitle(title string) string {
	t := title
	for _, re := range titleNoise {
		t = re.ReplaceAllString(t, "")
	}
	return strings.TrimSpace(t)
}

// PrimaryArtist returns the first credited artist. A single comma separated
// entry is split as well.
func PrimaryArtist(artists []string) string {
	for _, a := range artists {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		first, _, _ := strings.Cut(a, ",")
		return strings.TrimSpace(first)
	}
	return ""
}

// JoinArtists is the display form of an artist list.
func JoinArtists(artists []string) string {
	parts := make([]string, 0, len(artists))
	for _, a := range artists {
		if a = strings.TrimSpace(a); a != "" {
			parts = append(parts, a)
		}
	}
	return strings.Join(parts, ", ")
}

type Request struct {
	Title        string
	Artists      []string
	DurationSecs int64
}

// Outcome is the result of a resolution. Found is false when no attempt
// produced a record; Degraded holds the last failure other than not-found.
type Outcome struct {
	Record   *Record
	Found    bool
	Attempts int
	Degraded error
}

type Resolver struct {
	source Source
}

func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

// Attempts lists the lookups Resolve issues for req, in order, without
// duplicates.
func Attempts(req Request) []Query {
	title := NormalizeTitle(req.Title)
	primary := PrimaryArtist(req.Artists)
	full := JoinArtists(req.Artists)
	if title == "" || primary == "" {
		return nil
	}

	candidates := []Query{
		{Artist: primary, Title: title, DurationSecs: req.DurationSecs},
		{Artist: primary, Title: title},
		{Artist: full, Title: title, DurationSecs: req.DurationSecs},
	}

	seen := make(map[string]bool, len(candidates))
	queries := make([]Query, 0, len(candidates))
	for _, q := range candidates {
		if seen[q.key()] {
			continue
		}
		seen[q.key()] = true
		queries = append(queries, q)
	}
	return queries
}

// Resolve runs the lookup attempts in order and stops at the first one
// that yields lyrics. It never returns an error; failures only show up in
// Outcome.Degraded.
func (r *Resolver) Resolve(ctx context.Context, req Request) Outcome {
	var outcome Outcome

	for _, q := range Attempts(req) {
		if err := ctx.Err(); err != nil {
			outcome.Degraded = err
			return outcome
		}

		outcome.Attempts++
		record, err := r.attempt(ctx, q)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				outcome.Degraded = err
			}
			continue
		}

		outcome.Record = record
		outcome.Found = true
		outcome.Degraded = nil
		return outcome
	}

	return outcome
}

func (r *Resolver) attempt(ctx context.Context, q Query) (*Record, error) {
	record, err := r.source.Get(ctx, q)
	if err == nil {
		if !record.HasLyrics() {
			return nil, ErrNotFound
		}
		return record, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	candidates, err := r.source.Search(ctx, q.Title, q.Artist)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNotFound
	}

	record, err = r.source.GetByID(ctx, candidates[0].ID)
	if err != nil {
		return nil, err
	}
	if !record.HasLyrics() {
		return nil, ErrNotFound
	}
	return record, nil
}
