package enrich

import (
	"context"
	"errors"

	"golang.org/x/text/unicode/norm"

	"karolbroda.com/lyrelay/internal/logger"
	"karolbroda.com/lyrelay/internal/lyrics"
)

// ErrUnavailable means the translation backend cannot serve requests at all,
// as opposed to failing a single text.
var ErrUnavailable = errors.New("translation backend unavailable")

type Phoneticizer interface {
	Phonetic(text string) (string, error)
}

type Translator interface {
	// Available reports whether the configured language pair can be served.
	Available(ctx context.Context) error
	Translate(ctx context.Context, text string) (string, error)
}

// Converter rewrites text before annotation, e.g. traditional to simplified.
type Converter interface {
	Convert(text string) (string, error)
}

// Memo keeps translations across runs.
type Memo interface {
	Get(key string) (string, bool)
	Add(key, value string)
}

// Report summarizes one Enrich call.
type Report struct {
	Qualifying          int
	DistinctTexts       int
	TranslateCalls      int
	PhoneticFailures    int
	TranslationFailures int
	// TranslationUnavailable is set when the backend could not serve the
	// batch. It is advisory only.
	TranslationUnavailable error
}

type Pipeline struct {
	phonetic   Phoneticizer
	translator Translator
	converter  Converter
	memo       Memo
}

type Option func(*Pipeline)

// WithTranslator enables translation. Without it translations are skipped.
func WithTranslator(t Translator) Option {
	return func(p *Pipeline) { p.translator = t }
}

func WithConverter(c Converter) Option {
	return func(p *Pipeline) { p.converter = c }
}

func WithMemo(m Memo) Option {
	return func(p *Pipeline) { p.memo = m }
}

func NewPipeline(phonetic Phoneticizer, opts ...Option) *Pipeline {
	p := &Pipeline{phonetic: phonetic}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enrich returns a copy of lines with phonetic and translation annotations
// filled in for lines in the target script. Identical texts are translated
// once. Backend failures degrade individual fields and never abort the batch.
func (p *Pipeline) Enrich(ctx context.Context, lines []lyrics.Line) ([]lyrics.Line, Report) {
	var report Report
	out := make([]lyrics.Line, len(lines))
	copy(out, lines)

	phonetics := make(map[string]lyrics.Annotation)
	targets := make(map[string][]int)
	var order []string

	for i := range out {
		line := &out[i]
		if !HasTargetScript(line.Text) {
			line.Phonetic = lyrics.Annotation{State: lyrics.Skipped}
			line.Translation = lyrics.Annotation{State: lyrics.Skipped}
			continue
		}
		report.Qualifying++

		key := p.key(line.Text)

		ann, ok := phonetics[key]
		if !ok {
			ann = p.phoneticFor(key)
			if ann.State == lyrics.Failed {
				report.PhoneticFailures++
			}
			phonetics[key] = ann
		}
		line.Phonetic = ann

		line.Translation = lyrics.Annotation{State: lyrics.Pending}
		if _, seen := targets[key]; !seen {
			order = append(order, key)
		}
		targets[key] = append(targets[key], i)
	}
	report.DistinctTexts = len(order)

	if len(order) == 0 {
		return out, report
	}

	if p.translator == nil {
		for _, key := range order {
			assign(out, targets[key], lyrics.Annotation{State: lyrics.Skipped})
		}
		return out, report
	}

	if err := p.translator.Available(ctx); err != nil {
		report.TranslationUnavailable = err
	}

	for _, key := range order {
		if report.TranslationUnavailable != nil {
			assign(out, targets[key], lyrics.Annotation{State: lyrics.Unavailable})
			continue
		}

		if p.memo != nil {
			if text, ok := p.memo.Get(key); ok {
				assign(out, targets[key], lyrics.Annotation{Text: text, State: lyrics.Done})
				continue
			}
		}

		report.TranslateCalls++
		text, err := p.translator.Translate(ctx, key)
		switch {
		case errors.Is(err, ErrUnavailable):
			report.TranslationUnavailable = err
			assign(out, targets[key], lyrics.Annotation{State: lyrics.Unavailable})
		case err != nil:
			report.TranslationFailures++
			logger.Debug("translation failed", logger.String("text", key), logger.ErrorField(err))
			assign(out, targets[key], lyrics.Annotation{State: lyrics.Failed})
		default:
			if p.memo != nil {
				p.memo.Add(key, text)
			}
			assign(out, targets[key], lyrics.Annotation{Text: text, State: lyrics.Done})
		}
	}

	if report.TranslationUnavailable != nil {
		logger.Warn("translation unavailable", logger.ErrorField(report.TranslationUnavailable))
	}

	return out, report
}

func (p *Pipeline) key(text string) string {
	if p.converter != nil {
		if converted, err := p.converter.Convert(text); err == nil && converted != "" {
			text = converted
		}
	}
	return norm.NFC.String(text)
}

func (p *Pipeline) phoneticFor(text string) lyrics.Annotation {
	if p.phonetic == nil {
		return lyrics.Annotation{State: lyrics.Skipped}
	}
	value, err := p.phonetic.Phonetic(text)
	if err != nil {
		logger.Debug("phonetic failed", logger.String("text", text), logger.ErrorField(err))
		return lyrics.Annotation{State: lyrics.Failed}
	}
	return lyrics.Annotation{Text: value, State: lyrics.Done}
}

func assign(lines []lyrics.Line, idx []int, ann lyrics.Annotation) {
	for _, i := range idx {
		lines[i].Translation = ann
	}
}
