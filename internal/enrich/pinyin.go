package enrich

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/liuzl/gocc"
	"github.com/mozillazg/go-pinyin"
	"github.com/mozillazg/go-unidecode"
)

// Pinyin renders Han text as tone-marked pinyin. Runs of other scripts are
// transliterated to ASCII and kept in place.
type Pinyin struct {
	args pinyin.Args
}

func NewPinyin() *Pinyin {
	args := pinyin.NewArgs()
	args.Style = pinyin.Tone
	return &Pinyin{args: args}
}

func (p *Pinyin) Phonetic(text string) (string, error) {
	tokens := make([]string, 0, len(text))

	var run []rune
	han := false
	flush := func() {
		if len(run) == 0 {
			return
		}
		if han {
			tokens = append(tokens, pinyin.LazyPinyin(string(run), p.args)...)
		} else {
			tokens = append(tokens, strings.Fields(unidecode.Unidecode(string(run)))...)
		}
		run = run[:0]
	}

	for _, r := range text {
		isHan := unicode.Is(unicode.Han, r)
		if isHan != han {
			flush()
			han = isHan
		}
		run = append(run, r)
	}
	flush()

	kept := tokens[:0]
	for _, tok := range tokens {
		if strings.TrimSpace(tok) != "" {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " "), nil
}

// NewSimplifier loads the traditional to simplified Chinese dictionaries.
func NewSimplifier() (Converter, error) {
	conv, err := gocc.New("t2s")
	if err != nil {
		return nil, fmt.Errorf("failed to load t2s dictionaries: %w", err)
	}
	return conv, nil
}
