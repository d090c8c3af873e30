package validate

import (
	"regexp"
	"strings"

	"newslens/internal/core"
)

const (
	maxClaims       = 20
	maxPerKind      = 8
	contextWindow   = 60
	snippetMax      = 140
	subjectTokens   = 4
	statementTokens = 6
)

var (
	// The word boundary sits only on the word units: "%" has no word
	// character after it, so a trailing \b would reject "20%." and friends.
	numericRe = regexp.MustCompile(`(?i)\b(\d+(?:[,.]\d+)*)\s*(%|(?:percent|per cent|bps?|basis points?|billion|million|bn|mn|lkr|rupees|usd|dollars|mw|km|tonnes?|metric tons?|deaths?|injured|households?|jobs?)\b)`)

	accordingRe = regexp.MustCompile(`(?i)\baccording to (?:the )?([A-Za-z][\w .&'-]{2,48}?)(?:[,.;]|$)`)
	saidRe      = regexp.MustCompile(`\b([A-Z][\w.'-]*(?: [A-Z][\w.'-]*){0,4}) (?:said|says|stated|announced|confirmed|warned|denied|told reporters)\b`)

	eventDateRe = regexp.MustCompile(`(?i)\b(?:on|from|until|by|effective) ((?:monday|tuesday|wednesday|thursday|friday|saturday|sunday|january|february|march|april|may|june|july|august|september|october|november|december)(?: \d{1,2}(?:st|nd|rd|th)?)?|\d{1,2} (?:january|february|march|april|may|june|july|august|september|october|november|december))\b`)

	statusRe = regexp.MustCompile(`(?i)\b(suspended|resumed|closed|reopened|opened|cancelled|postponed|restored|imposed|lifted|halted)\b`)

	sentenceSplitRe = regexp.MustCompile(`[.!?]\s+`)
	nonAlnumRe      = regexp.MustCompile(`[^a-z0-9 ]+`)
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "from": {}, "with": {}, "that": {},
	"this": {}, "has": {}, "have": {}, "was": {}, "were": {}, "been": {},
	"will": {}, "would": {}, "are": {}, "its": {}, "their": {}, "after": {},
	"into": {}, "over": {}, "under": {}, "about": {}, "than": {}, "also": {},
}

// canonicalUnits folds unit spellings so the same figure fingerprints
// identically across outlets.
var canonicalUnits = map[string]string{
	"percent": "%", "per cent": "%",
	"bps": "bp", "basis point": "bp", "basis points": "bp",
	"bn": "billion", "mn": "million",
	"rupees": "lkr", "dollars": "usd",
	"tonne": "tonnes", "metric ton": "tonnes", "metric tons": "tonnes",
	"death": "deaths", "household": "households", "job": "jobs",
}

// statusStates folds status verbs onto open/closed style states so that
// antonyms can be detected as contradictions.
var statusStates = map[string]string{
	"opened": "open", "reopened": "open", "resumed": "open",
	"restored": "open", "lifted": "open",
	"closed": "closed", "suspended": "closed", "halted": "closed",
	"imposed":   "closed",
	"cancelled": "cancelled", "postponed": "postponed",
}

// statusOpposite pairs states that cannot both hold for one subject.
var statusOpposite = map[string]string{
	"open":   "closed",
	"closed": "open",
}

// Extractor pulls bounded typed claims out of article text with regex
// templates. It is stateless and safe for concurrent use.
type Extractor struct{}

func NewExtractor() *Extractor { return &Extractor{} }

// Extract returns at most maxClaims typed claims from the title and body.
func (e *Extractor) Extract(article *core.RawArticle) []core.Claim {
	text := article.Title + ". " + article.Body
	var claims []core.Claim

	claims = appendNumeric(claims, article.ArticleID, text)
	claims = appendAttributed(claims, article.ArticleID, text)
	claims = appendEventDates(claims, article.ArticleID, text)
	claims = appendStatus(claims, article.ArticleID, text)

	if len(claims) > maxClaims {
		claims = claims[:maxClaims]
	}
	return claims
}

func appendNumeric(claims []core.Claim, articleID, text string) []core.Claim {
	for i, m := range numericRe.FindAllStringSubmatchIndex(text, maxPerKind) {
		if i >= maxPerKind {
			break
		}
		value := strings.ReplaceAll(text[m[2]:m[3]], ",", "")
		unit := strings.ToLower(text[m[4]:m[5]])
		if c, ok := canonicalUnits[unit]; ok {
			unit = c
		}
		start := m[0] - contextWindow
		if start < 0 {
			start = 0
		}
		subject := stemKey(text[start:m[0]], subjectTokens)
		if subject == "" {
			continue
		}
		claims = append(claims, core.Claim{
			ArticleID: articleID,
			Type:      core.ClaimNumeric,
			Subject:   subject,
			Value:     value + " " + unit,
			Snippet:   snippet(text, m[0], m[1]),
		})
	}
	return claims
}

func appendAttributed(claims []core.Claim, articleID, text string) []core.Claim {
	added := 0
	for _, sentence := range sentenceSplitRe.Split(text, -1) {
		if added >= maxPerKind {
			break
		}
		var who string
		if m := accordingRe.FindStringSubmatch(sentence); m != nil {
			who = m[1]
		} else if m := saidRe.FindStringSubmatch(sentence); m != nil {
			who = m[1]
		} else {
			continue
		}
		statement := stemKey(sentence, statementTokens)
		if statement == "" {
			continue
		}
		claims = append(claims, core.Claim{
			ArticleID: articleID,
			Type:      core.ClaimAttributed,
			Subject:   stemKey(who, subjectTokens),
			Value:     statement,
			Snippet:   trimSnippet(sentence),
		})
		added++
	}
	return claims
}

func appendEventDates(claims []core.Claim, articleID, text string) []core.Claim {
	for i, m := range eventDateRe.FindAllStringSubmatchIndex(text, maxPerKind) {
		if i >= maxPerKind {
			break
		}
		start := m[0] - contextWindow
		if start < 0 {
			start = 0
		}
		subject := stemKey(text[start:m[0]], subjectTokens)
		if subject == "" {
			continue
		}
		claims = append(claims, core.Claim{
			ArticleID: articleID,
			Type:      core.ClaimEventDate,
			Subject:   subject,
			Value:     strings.ToLower(strings.TrimSpace(text[m[2]:m[3]])),
			Snippet:   snippet(text, m[0], m[1]),
		})
	}
	return claims
}

func appendStatus(claims []core.Claim, articleID, text string) []core.Claim {
	for i, m := range statusRe.FindAllStringSubmatchIndex(text, maxPerKind) {
		if i >= maxPerKind {
			break
		}
		verb := strings.ToLower(text[m[2]:m[3]])
		state, ok := statusStates[verb]
		if !ok {
			continue
		}
		start := m[0] - contextWindow
		if start < 0 {
			start = 0
		}
		subject := stemKey(text[start:m[0]], subjectTokens)
		if subject == "" {
			continue
		}
		claims = append(claims, core.Claim{
			ArticleID: articleID,
			Type:      core.ClaimStatus,
			Subject:   subject,
			Value:     state,
			Snippet:   snippet(text, m[0], m[1]),
		})
	}
	return claims
}

// stemKey lowercases, strips punctuation and stopwords, crudely stems and
// joins up to max tokens with underscores.
func stemKey(s string, max int) string {
	s = nonAlnumRe.ReplaceAllString(strings.ToLower(s), " ")
	fields := strings.Fields(s)
	tokens := make([]string, 0, max)
	// Walk backwards so the tokens nearest the match anchor the key.
	for i := len(fields) - 1; i >= 0 && len(tokens) < max; i-- {
		tok := stem(fields[i])
		if len(tok) < 3 {
			continue
		}
		if _, skip := stopwords[tok]; skip {
			continue
		}
		tokens = append(tokens, tok)
	}
	// Restore reading order.
	for i, j := 0, len(tokens)-1; i < j; i, j = i+1, j-1 {
		tokens[i], tokens[j] = tokens[j], tokens[i]
	}
	return strings.Join(tokens, "_")
}

func stem(tok string) string {
	switch {
	case len(tok) > 5 && strings.HasSuffix(tok, "ing"):
		return tok[:len(tok)-3]
	case len(tok) > 4 && strings.HasSuffix(tok, "ed"):
		return tok[:len(tok)-2]
	case len(tok) > 4 && strings.HasSuffix(tok, "es"):
		return tok[:len(tok)-2]
	case len(tok) > 3 && strings.HasSuffix(tok, "s"):
		return tok[:len(tok)-1]
	default:
		return tok
	}
}

func snippet(text string, start, end int) string {
	lo := start - contextWindow/2
	if lo < 0 {
		lo = 0
	}
	hi := end + contextWindow/2
	if hi > len(text) {
		hi = len(text)
	}
	return trimSnippet(text[lo:hi])
}

func trimSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > snippetMax {
		s = s[:snippetMax]
	}
	return s
}
