package lyrics

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var timeTag = regexp.MustCompile(`\[(\d{1,2}):(\d{2})(?:\.(\d{1,2}))?\]`)

// Parse turns timestamp-tagged text into lines ordered by time. A physical
// line carrying several tags yields one Line per tag. Lines without a tag,
// or whose text is empty once tags are removed, are dropped. Malformed tags
// are left in the text.
func Parse(raw string) []Line {
	result := make([]Line, 0)
	if strings.TrimSpace(raw) == "" {
		return result
	}

	for _, physical := range strings.Split(raw, "\n") {
		physical = strings.TrimRight(physical, "\r")

		tags := timeTag.FindAllStringSubmatch(physical, -1)
		if len(tags) == 0 {
			continue
		}

		text := strings.TrimSpace(timeTag.ReplaceAllString(physical, ""))
		if text == "" {
			continue
		}

		for _, tag := range tags {
			result = append(result, Line{
				TimeSeconds: tagSeconds(tag[1], tag[2], tag[3]),
				Text:        text,
			})
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TimeSeconds < result[j].TimeSeconds
	})

	return result
}

// FromPlain builds untimed lines from plain lyrics, using each line's
// ordinal as its time.
func FromPlain(plain string) []Line {
	result := make([]Line, 0)
	ordinal := 0
	for _, physical := range strings.Split(plain, "\n") {
		text := strings.TrimSpace(physical)
		if text == "" {
			continue
		}
		result = append(result, Line{
			TimeSeconds: float64(ordinal),
			Text:        text,
		})
		ordinal++
	}
	return result
}

// the regex guarantees digits, so conversion errors cannot occur
func tagSeconds(minutes, seconds, fraction string) float64 {
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)
	total := float64(m*60 + s)

	switch len(fraction) {
	case 1:
		f, _ := strconv.Atoi(fraction)
		total += float64(f) / 10
	case 2:
		f, _ := strconv.Atoi(fraction)
		total += float64(f) / 100
	}
	return total
}
