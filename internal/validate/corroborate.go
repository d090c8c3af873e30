package validate

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"newslens/internal/core"
)

const (
	defaultClaimWindow = 48 * time.Hour
	maxBucketRefs      = 512

	// A match needs one shared subject token plus an equal value; a
	// contradiction needs two shared tokens, since conflicting figures
	// about loosely related subjects are usually different facts.
	matchOverlapMin      = 1
	contradictOverlapMin = 2
	// Attributed statements match on loose wording, not equality.
	statementOverlapMin = 2
)

type claimRef struct {
	articleID string
	sourceID  string
	subject   string
	value     string
	at        time.Time
}

// Assessment is the corroboration verdict for one article.
type Assessment struct {
	Level                core.CorroborationLevel
	Matches              int      // Distinct (claim, other article) confirmations
	Sources              []string // Corroborating sources, earliest reporter first
	FirstReporter        string   // Source whose matching claim was cached earliest
	OfficialSeen         bool     // An official source is among the corroborators
	Contradictions       []string // Human-readable conflicts
	ContradictingSources []string // Distinct sources we conflict with
}

// Engine keeps a rolling cache of claim fingerprints and grades incoming
// articles against it. Claims are bucketed by type (numeric buckets also
// by unit, attributed by speaker); within a bucket two claims are compared
// only when their subject tokens overlap, which keeps a 6.5% GDP figure
// from corroborating a 6.5% inflation one.
type Engine struct {
	mu      sync.Mutex
	buckets map[string][]claimRef
	window  time.Duration
	tierOf  func(sourceID string) core.SourceTier
}

// NewEngine builds the rolling cache. tierOf may be nil.
func NewEngine(window time.Duration, tierOf func(string) core.SourceTier) *Engine {
	if window <= 0 {
		window = defaultClaimWindow
	}
	if tierOf == nil {
		tierOf = func(string) core.SourceTier { return core.TierUnknown }
	}
	return &Engine{
		buckets: make(map[string][]claimRef),
		window:  window,
		tierOf:  tierOf,
	}
}

// Assess compares an article's claims against the cached window, then
// registers them for future articles. Claims from the same article never
// corroborate each other.
func (e *Engine) Assess(article *core.RawArticle, claims []core.Claim, at time.Time) Assessment {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := at.Add(-e.window)
	matched := make(map[string]struct{}) // claim index + article id
	sourceEarliest := make(map[string]time.Time)
	contradicted := make(map[string]struct{})

	var a Assessment
	for i, claim := range claims {
		key := bucketKey(claim)
		refs := e.pruneBucket(key, cutoff)
		for _, ref := range refs {
			if ref.articleID == article.ArticleID {
				continue
			}
			match, contradict, note := compare(claim, ref)
			switch {
			case match:
				pair := fmt.Sprintf("%d|%s", i, ref.articleID)
				if _, dup := matched[pair]; dup {
					continue
				}
				matched[pair] = struct{}{}
				a.Matches++
				if first, ok := sourceEarliest[ref.sourceID]; !ok || ref.at.Before(first) {
					sourceEarliest[ref.sourceID] = ref.at
				}
				if e.tierOf(ref.sourceID) == core.TierOfficial {
					a.OfficialSeen = true
				}
			case contradict:
				a.Contradictions = append(a.Contradictions, note)
				contradicted[ref.sourceID] = struct{}{}
			}
		}
	}

	for _, claim := range claims {
		key := bucketKey(claim)
		refs := append(e.buckets[key], claimRef{
			articleID: claim.ArticleID,
			sourceID:  article.SourceID,
			subject:   claim.Subject,
			value:     claim.Value,
			at:        at,
		})
		if len(refs) > maxBucketRefs {
			refs = refs[len(refs)-maxBucketRefs:]
		}
		e.buckets[key] = refs
	}

	a.Sources = sortByEarliest(sourceEarliest)
	if len(a.Sources) > 0 {
		a.FirstReporter = a.Sources[0]
	}
	for src := range contradicted {
		a.ContradictingSources = append(a.ContradictingSources, src)
	}
	sort.Strings(a.ContradictingSources)
	a.Level = classify(a.Matches, len(a.Sources), a.OfficialSeen)
	return a
}

// Sweep drops cached claims older than the window.
func (e *Engine) Sweep(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cutoff := now.Add(-e.window)
	for key := range e.buckets {
		e.pruneBucket(key, cutoff)
	}
}

func (e *Engine) pruneBucket(key string, cutoff time.Time) []claimRef {
	refs := e.buckets[key]
	kept := refs[:0]
	for _, ref := range refs {
		if !ref.at.Before(cutoff) {
			kept = append(kept, ref)
		}
	}
	if len(kept) == 0 {
		delete(e.buckets, key)
		return nil
	}
	e.buckets[key] = kept
	return kept
}

func classify(matches, sources int, official bool) core.CorroborationLevel {
	switch {
	case matches == 0:
		return core.CorroborationNone
	case matches >= 4 && official:
		return core.CorroborationVerified
	case matches >= 4 && sources >= 3:
		return core.CorroborationStrong
	case matches >= 2 && sources >= 2:
		return core.CorroborationModerate
	default:
		return core.CorroborationWeak
	}
}

func bucketKey(c core.Claim) string {
	switch c.Type {
	case core.ClaimNumeric:
		return string(c.Type) + "|" + unitOf(c.Value)
	case core.ClaimAttributed:
		return string(c.Type) + "|" + c.Subject
	default:
		return string(c.Type)
	}
}

func unitOf(value string) string {
	if fields := strings.Fields(value); len(fields) > 1 {
		return fields[len(fields)-1]
	}
	return ""
}

// compare decides whether two claims in one bucket confirm or conflict.
func compare(c core.Claim, ref claimRef) (match, contradict bool, note string) {
	switch c.Type {
	case core.ClaimNumeric:
		overlap := tokenOverlap(c.Subject, ref.subject)
		if overlap >= matchOverlapMin && c.Value == ref.value {
			return true, false, ""
		}
		if overlap >= contradictOverlapMin && c.Value != ref.value {
			return false, true, fmt.Sprintf("%s: %s vs %s (%s)", c.Subject, c.Value, ref.value, ref.sourceID)
		}
		return false, false, ""
	case core.ClaimEventDate:
		if tokenOverlap(c.Subject, ref.subject) < matchOverlapMin {
			return false, false, ""
		}
		return c.Value == ref.value, false, ""
	case core.ClaimStatus:
		overlap := tokenOverlap(c.Subject, ref.subject)
		if overlap >= matchOverlapMin && c.Value == ref.value {
			return true, false, ""
		}
		if overlap >= contradictOverlapMin && statusOpposite[c.Value] == ref.value {
			return false, true, fmt.Sprintf("%s: %s vs %s (%s)", c.Subject, c.Value, ref.value, ref.sourceID)
		}
		return false, false, ""
	case core.ClaimAttributed:
		return tokenOverlap(c.Value, ref.value) >= statementOverlapMin, false, ""
	default:
		return false, false, ""
	}
}

func tokenOverlap(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	set := make(map[string]struct{})
	for _, tok := range strings.Split(a, "_") {
		set[tok] = struct{}{}
	}
	n := 0
	for _, tok := range strings.Split(b, "_") {
		if _, ok := set[tok]; ok {
			n++
			delete(set, tok)
		}
	}
	return n
}

func sortByEarliest(earliest map[string]time.Time) []string {
	out := make([]string, 0, len(earliest))
	for src := range earliest {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := earliest[out[i]], earliest[out[j]]
		if a.Equal(b) {
			return out[i] < out[j]
		}
		return a.Before(b)
	})
	return out
}
