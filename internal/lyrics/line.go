package lyrics

// AnnotationState records whether an enrichment field was computed.
type AnnotationState int

const (
	Pending AnnotationState = iota
	// Skipped marks lines outside the target script; no backend was asked.
	Skipped
	Done
	Failed
	Unavailable
)

func (s AnnotationState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Skipped:
		return "skipped"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

type Annotation struct {
	Text  string
	State AnnotationState
}

// Line is one displayable lyric line. TimeSeconds is an ordinal index for
// untimed lyrics.
type Line struct {
	TimeSeconds float64
	Text        string
	Phonetic    Annotation
	Translation Annotation
}

// Set is the lyric payload for one track. It is replaced wholesale on a
// track change and never mutated after publication.
type Set struct {
	Lines  []Line
	Plain  string
	Synced bool
}

func (s Set) IsEmpty() bool {
	return len(s.Lines) == 0 && s.Plain == ""
}

// Clone returns a copy whose Lines slice does not alias s.
func (s Set) Clone() Set {
	if s.Lines != nil {
		lines := make([]Line, len(s.Lines))
		copy(lines, s.Lines)
		s.Lines = lines
	}
	return s
}
