// Package safety implements the hardcoded, non-bypassable task admission
// gate (spec C5): length bounds, category normalization, and the P1-P7
// pattern families. No configuration switch disables this filter; there is
// deliberately no dependency-injected "rule set" here, matching the spec's
// "hardcoded" requirement.
//
// There is no pack dependency for natural-language pattern classification,
// so this package is built directly on the standard library's regexp
// (RE2) engine — see DESIGN.md.
package safety

import (
	"regexp"
	"strings"
)

const (
	minDescriptionLen = 10
	maxDescriptionLen = 10000
)

// Severity is the severity tier of a violated pattern family.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
)

// PatternID identifies one of the seven hardcoded pattern families.
type PatternID string

const (
	P1IndividualTargeting  PatternID = "P1_individual_targeting"
	P2SystemTargeting      PatternID = "P2_system_targeting"
	P3DeceptiveContent     PatternID = "P3_deceptive_content"
	P4BulkAutomatedActions PatternID = "P4_bulk_automated_actions"
	P5CredentialHarvesting PatternID = "P5_credential_harvesting"
	P6IllegalContent       PatternID = "P6_illegal_content"
	P7Surveillance         PatternID = "P7_surveillance"
)

type patternFamily struct {
	id       PatternID
	severity Severity
	keywords []string
	regexes  []*regexp.Regexp
}

// families is the hardcoded P1-P7 pattern set. Every keyword match is a
// case-insensitive substring check; every regex is compiled
// case-insensitive and unanchored.
var families = []patternFamily{
	{
		id:       P1IndividualTargeting,
		severity: SeverityCritical,
		keywords: []string{
			"dox", "doxx", "home address", "where they live", "stalk",
			"track down", "find this person", "their phone number",
			"their real name", "swat",
		},
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)find\s+(his|her|their)\s+(home\s+)?address`),
			regexp.MustCompile(`(?i)locate\s+(this|that)\s+(person|individual|user)`),
			regexp.MustCompile(`(?i)dox\w*\b.*\baddress\b`),
		},
	},
	{
		id:       P2SystemTargeting,
		severity: SeverityCritical,
		keywords: []string{
			"ddos", "denial of service", "exploit this server", "botnet",
			"brute force", "sql injection", "bypass the firewall",
			"take down the server", "crash their system",
		},
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(attack|exploit|compromise)\s+(the\s+)?(server|system|network|infrastructure)`),
			regexp.MustCompile(`(?i)unauthorized\s+access`),
		},
	},
	{
		id:       P3DeceptiveContent,
		severity: SeverityHigh,
		keywords: []string{
			"fake news", "deepfake", "impersonate", "pretend to be",
			"misleading headline", "fabricate a quote", "astroturf",
		},
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(pose|pass)\s+as\s+(a|an|the)\s+\w+`),
			regexp.MustCompile(`(?i)fabricat(e|ed|ing)\s+(evidence|quotes?|statements?)`),
		},
	},
	{
		id:       P4BulkAutomatedActions,
		severity: SeverityHigh,
		keywords: []string{
			"mass follow", "mass dm", "spam", "bulk message", "fake accounts",
			"sockpuppet", "vote manipulation", "auto-upvote",
		},
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(create|generate)\s+\d{2,}\s*(fake\s+)?accounts`),
			regexp.MustCompile(`(?i)mass\s+(message|post|comment|follow|report)`),
		},
	},
	{
		id:       P5CredentialHarvesting,
		severity: SeverityCritical,
		keywords: []string{
			"phishing", "steal password", "fake login page", "harvest credentials",
			"keylogger", "capture 2fa", "seed phrase",
		},
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(steal|harvest|capture)\s+(passwords?|credentials?|cookies|tokens?)`),
			regexp.MustCompile(`(?i)fake\s+(login|sign[- ]?in)\s+(page|form|site)`),
		},
	},
	{
		id:       P6IllegalContent,
		severity: SeverityCritical,
		keywords: []string{
			"csam", "child exploitation", "illegal drugs for sale",
			"human trafficking", "counterfeit currency", "weapon schematics",
		},
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)sell(ing)?\s+(illegal\s+)?(drugs|weapons|firearms)`),
		},
	},
	{
		id:       P7Surveillance,
		severity: SeverityHigh,
		keywords: []string{
			"spy on", "secretly monitor", "covert surveillance",
			"track their location", "read their private messages",
			"without their knowledge", "without their consent",
		},
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(monitor|track|surveil)\s+(them|him|her|this person)\s+(secretly|covertly|without\s+(their|his|her)\s+knowledge)`),
		},
	},
}

// categoryAliases maps free-form input categories to the closed set the
// marketplace recognizes.
var categoryAliases = map[string]string{
	"research":      "research",
	"study":         "research",
	"analysis":      "research",
	"monitoring":    "monitoring",
	"watch":         "monitoring",
	"alerting":      "monitoring",
	"content":       "content",
	"writing":       "content",
	"creative":      "content",
	"code":          "code",
	"coding":        "code",
	"programming":   "code",
	"software":      "code",
	"data":          "data",
	"dataset":       "data",
	"etl":           "data",
	"automation":    "automation",
	"workflow":      "automation",
	"scripting":     "automation",
	"verification":  "verification",
	"audit":         "verification",
	"review":        "verification",
	"browsing":      "research",
}

// Request is the input to the safety filter.
type Request struct {
	Description  string
	Category     string
	Requirements []string
}

// PatternMatch records one hit of a pattern family.
type PatternMatch struct {
	Pattern       PatternID
	Severity      Severity
	KeywordHit    bool
	RegexHit      bool
	MatchedPhrase string
}

// Result is the safety filter's decision.
type Result struct {
	Safe              bool
	Violations        []PatternID
	Confidence        float64
	PatternMatches    []PatternMatch
	NormalizedCategory string
	LengthValid       bool
	CategoryValid     bool
}

// Evaluate runs the full P1-P7 pipeline over a task admission request. It
// always returns a Result; it never errors, matching the "never throws"
// posture the rest of the pipeline relies on.
func Evaluate(req Request) Result {
	result := Result{Safe: true}

	descLen := len(strings.TrimSpace(req.Description))
	result.LengthValid = descLen >= minDescriptionLen && descLen <= maxDescriptionLen
	if !result.LengthValid {
		result.Safe = false
	}

	normalized, ok := normalizeCategory(req.Category)
	result.NormalizedCategory = normalized
	result.CategoryValid = ok
	if !ok {
		result.Safe = false
	}

	reqText := strings.Join(req.Requirements, " ")
	matches := matchFamilies(req.Description, reqText)
	result.PatternMatches = matches

	seen := map[PatternID]bool{}
	maxConfidence := 0.0
	for _, m := range matches {
		if !seen[m.Pattern] {
			result.Violations = append(result.Violations, m.Pattern)
			seen[m.Pattern] = true
		}
		c := confidenceFor(m)
		if c > maxConfidence {
			maxConfidence = c
		}
	}

	if len(result.Violations) > 0 {
		result.Safe = false
		result.Confidence = maxConfidence
	}

	return result
}

func normalizeCategory(category string) (string, bool) {
	norm, ok := categoryAliases[strings.ToLower(strings.TrimSpace(category))]
	return norm, ok
}

func matchFamilies(description, requirementsText string) []PatternMatch {
	var matches []PatternMatch
	for _, f := range families {
		matches = append(matches, matchOneFamily(f, description)...)
		matches = append(matches, matchOneFamily(f, requirementsText)...)
	}
	return matches
}

func matchOneFamily(f patternFamily, text string) []PatternMatch {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)

	var keywordHit bool
	var keywordPhrase string
	for _, kw := range f.keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			keywordHit = true
			keywordPhrase = kw
			break
		}
	}

	var regexHit bool
	var regexPhrase string
	for _, re := range f.regexes {
		if loc := re.FindString(text); loc != "" {
			regexHit = true
			regexPhrase = loc
			break
		}
	}

	if !keywordHit && !regexHit {
		return nil
	}

	phrase := keywordPhrase
	if phrase == "" {
		phrase = regexPhrase
	}

	return []PatternMatch{{
		Pattern:       f.id,
		Severity:      f.severity,
		KeywordHit:    keywordHit,
		RegexHit:      regexHit,
		MatchedPhrase: phrase,
	}}
}

// confidenceFor implements spec C5's confidence formula: keyword only ->
// 0.7, regex only -> 0.85, both -> 0.95, +0.05 if severity is critical,
// capped at 1.0. The critical bonus lifts a single-signal match toward
// the both-signal ceiling; it does not apply on top of "both" itself, or
// a critical both-signal match would round-trip past the spec's named
// 0.95 (seed scenario 2) straight to the 1.0 cap.
func confidenceFor(m PatternMatch) float64 {
	if m.KeywordHit && m.RegexHit {
		return 0.95
	}

	var c float64
	if m.RegexHit {
		c = 0.85
	} else if m.KeywordHit {
		c = 0.7
	}
	if m.Severity == SeverityCritical {
		c += 0.05
	}
	if c > 1.0 {
		c = 1.0
	}
	return c
}
