package parser

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"ai-companion-be/pkg/flow"
)

// LanguageDetector is a seam for plugging in a real detector. The built-in
// implementation counts character classes.
type LanguageDetector interface {
	Detect(text string) string
}

type patternSet struct {
	tag      string
	patterns []*regexp.Regexp
}

// Parser classifies raw text into intent, sentiment, entities and language.
// Parse never fails: malformed or empty input degrades to the unknown floor.
type Parser struct {
	intents    []patternSet
	sentiments []patternSet
	entities   []patternSet
	detector   LanguageDetector

	mu    sync.Mutex
	stats Stats
}

// Stats are rolling parse counters.
type Stats struct {
	TotalParsed           int            `json:"total_parsed"`
	SuccessfulParsed      int            `json:"successful_parsed"`
	LowConfidenceParsed   int            `json:"low_confidence_parsed"`
	IntentDistribution    map[string]int `json:"intent_distribution"`
	SentimentDistribution map[string]int `json:"sentiment_distribution"`
}

func New() *Parser {
	return &Parser{
		intents:    compileSets(intentPatterns),
		sentiments: compileSets(sentimentPatterns),
		entities:   compileSets(entityPatterns),
		detector:   charClassDetector{},
	}
}

// WithDetector swaps the language detector seam.
func (p *Parser) WithDetector(d LanguageDetector) *Parser {
	p.detector = d
	return p
}

// Parse classifies text. The returned input is immutable by convention.
func (p *Parser) Parse(text string) flow.ParsedInput {
	original := text
	processed := preprocess(text)

	if processed == "" {
		result := flow.ParsedInput{
			OriginalText: original,
			Intent:       flow.IntentUnknown,
			Entities:     []flow.ParsedEntity{},
			Sentiment:    flow.SentimentNeutral,
			Confidence:   0.1,
			Language:     "unknown",
		}
		p.record(result)
		return result
	}

	intent, intentConf := bestMatch(p.intents, processed, flow.IntentUnknown, 0.1)
	sentiment, sentimentConf := bestMatch(p.sentiments, processed, flow.SentimentNeutral, 0.5)
	entities := p.extractEntities(original)

	result := flow.ParsedInput{
		OriginalText: original,
		Intent:       intent,
		Entities:     entities,
		Sentiment:    sentiment,
		Confidence:   overallConfidence(intentConf, sentimentConf, len(entities)),
		Language:     p.detector.Detect(processed),
		Metadata: map[string]interface{}{
			"intent_confidence":    intentConf,
			"sentiment_confidence": sentimentConf,
			"entity_count":         len(entities),
			"text_length":          utf8.RuneCountInString(original),
		},
	}
	p.record(result)
	return result
}

// GetStats returns a copy of the rolling counters.
func (p *Parser) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.IntentDistribution = copyDist(p.stats.IntentDistribution)
	s.SentimentDistribution = copyDist(p.stats.SentimentDistribution)
	return s
}

func (p *Parser) record(in flow.ParsedInput) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stats.IntentDistribution == nil {
		p.stats.IntentDistribution = make(map[string]int)
		p.stats.SentimentDistribution = make(map[string]int)
	}
	p.stats.TotalParsed++
	if in.Confidence > 0.5 {
		p.stats.SuccessfulParsed++
	} else {
		p.stats.LowConfidenceParsed++
	}
	p.stats.IntentDistribution[in.Intent]++
	p.stats.SentimentDistribution[in.Sentiment]++
}

// bestMatch scores every tag's pattern set against the text and picks the
// highest scorer above zero. Ties keep the earlier tag in table order.
// Per-tag score is the mean over matched patterns of matchLen/textLen,
// capped at 1.0.
func bestMatch(sets []patternSet, text string, fallback string, fallbackConf float64) (string, float64) {
	textLen := float64(utf8.RuneCountInString(text))
	best := fallback
	bestScore := 0.0

	for _, set := range sets {
		sum := 0.0
		matched := 0
		for _, re := range set.patterns {
			if m := re.FindString(text); m != "" {
				sum += float64(utf8.RuneCountInString(m)) / textLen
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		score := sum / float64(matched)
		if score > 1.0 {
			score = 1.0
		}
		if score > bestScore {
			best = set.tag
			bestScore = score
		}
	}

	if bestScore == 0 {
		return fallback, fallbackConf
	}
	return best, bestScore
}

// extractEntities scans the original, unnormalized text so values keep
// their casing and spans index into what the user actually sent.
func (p *Parser) extractEntities(text string) []flow.ParsedEntity {
	// Extract per type, then de-duplicate keeping the highest-confidence
	// occurrence of each (type, value) pair, folding case on the value.
	type key struct{ typ, value string }
	seen := make(map[key]flow.ParsedEntity)
	order := make([]key, 0, 8)

	for _, set := range p.entities {
		for _, re := range set.patterns {
			for _, loc := range re.FindAllStringIndex(text, -1) {
				value := text[loc[0]:loc[1]]
				entity := flow.ParsedEntity{
					Type:       set.tag,
					Value:      value,
					Confidence: 0.8,
					Start:      loc[0],
					End:        loc[1],
				}
				k := key{set.tag, strings.ToLower(value)}
				prev, ok := seen[k]
				if !ok {
					order = append(order, k)
					seen[k] = entity
				} else if entity.Confidence > prev.Confidence {
					seen[k] = entity
				}
			}
		}
	}

	entities := make([]flow.ParsedEntity, 0, len(order))
	for _, k := range order {
		entities = append(entities, seen[k])
	}
	return entities
}

// overallConfidence = avg(intent, sentiment) + entity bonus, clamped to
// [0.1, 1.0].
func overallConfidence(intentConf, sentimentConf float64, entityCount int) float64 {
	bonus := 0.05 * float64(entityCount)
	if bonus > 0.2 {
		bonus = 0.2
	}
	conf := (intentConf+sentimentConf)/2 + bonus
	if conf > 1.0 {
		conf = 1.0
	}
	if conf < 0.1 {
		conf = 0.1
	}
	return conf
}

func preprocess(text string) string {
	text = strings.ToLower(text)
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

var spaceRe = regexp.MustCompile(`\s+`)

type charClassDetector struct{}

func (charClassDetector) Detect(text string) string {
	var chinese, latin int
	for _, r := range text {
		switch {
		case r >= 0x4E00 && r <= 0x9FFF:
			chinese++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		}
	}
	switch {
	case chinese > latin:
		return "chinese"
	case latin > 0:
		return "english"
	default:
		return "unknown"
	}
}

func compileSets(defs []tagPatterns) []patternSet {
	sets := make([]patternSet, len(defs))
	for i, def := range defs {
		compiled := make([]*regexp.Regexp, len(def.patterns))
		for j, p := range def.patterns {
			compiled[j] = regexp.MustCompile(`(?i)` + p)
		}
		sets[i] = patternSet{tag: def.tag, patterns: compiled}
	}
	return sets
}

func copyDist(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
