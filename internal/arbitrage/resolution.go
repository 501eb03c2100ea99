package arbitrage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xbklairith/aubit-poly/pkg/types"
)

// ResolutionType is how a market's outcome gets decided.
type ResolutionType string

// Resolution types.
const (
	ResolutionCryptoPrice    ResolutionType = "crypto_price"
	ResolutionGovernmentData ResolutionType = "government_data"
	ResolutionSports         ResolutionType = "sports"
	ResolutionOracle         ResolutionType = "oracle"
	ResolutionCentralized    ResolutionType = "centralized"
	ResolutionSubjective     ResolutionType = "subjective"
	ResolutionUnknown        ResolutionType = "unknown"
)

const unspecified = "unspecified"

// ResolutionRule is what a market's name and description say about how it
// resolves.
type ResolutionRule struct {
	Type       ResolutionType
	Oracle     string
	DataSource string
	Time       string
	Threshold  string
}

//nolint:gochecknoglobals // vocabularies
var (
	directionalKeywords = newWordSet([]string{"up or down", "price up", "up in next", "15 min"})
	cryptoKeywords      = newWordSet([]string{"btc", "bitcoin", "eth", "ethereum", "sol", "solana", "price", "above", "below"})
	exchangeKeywords    = newWordSet([]string{"binance", "coinbase", "kraken", "exchange"})
	governmentKeywords  = newWordSet([]string{"fed", "federal reserve", "fomc", "interest rate", "cpi", "inflation", "gdp", "unemployment", "bls"})
	sportsKeywords      = newWordSet([]string{"super bowl", "nfl", "nba", "mlb", "world series", "championship", "finals"})
	umaKeywords         = newWordSet([]string{"uma", "optimistic oracle"})
	subjectiveKeywords  = newWordSet([]string{"judgment", "discretion", "may determine", "at its sole"})

	dataSources = []struct {
		name  string
		words wordSet
	}{
		{"binance", newWordSet([]string{"binance"})},
		{"coinbase", newWordSet([]string{"coinbase"})},
		{"kraken", newWordSet([]string{"kraken"})},
		{"bitstamp", newWordSet([]string{"bitstamp"})},
		{"gemini", newWordSet([]string{"gemini"})},
		{"federal reserve", newWordSet([]string{"federal reserve", "fed"})},
		{"bureau of labor statistics", newWordSet([]string{"bls", "bureau of labor"})},
		{"census", newWordSet([]string{"census"})},
	}

	thresholdNormalizer = strings.NewReplacer("$", "", ",", "")

	timePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{1,2}:\d{2}\s*[ap]m\s*[a-z]{2,4}`),
		regexp.MustCompile(`end of (?:day|trading)`),
		regexp.MustCompile(`market close`),
		regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`),
		regexp.MustCompile(`expiry|expiration`),
	}

	thresholdPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:above|over|exceeds?|reaches?)\s*\$?[\d,]+k?`),
		regexp.MustCompile(`(?:below|under|less than|falls?)\s*\$?[\d,]+k?`),
		regexp.MustCompile(`\$[\d,]+k?\s*or (?:more|higher|above|less|lower|below)`),
		regexp.MustCompile(`\d+\.?\d*%?\s*(?:or higher|or lower|basis points)`),
		regexp.MustCompile(`\b(?:cut|raise|hold|unchanged)\b`),
	}
)

// DefaultSafeResolutionTypes are objective enough to tolerate small rule
// differences between venues.
func DefaultSafeResolutionTypes() []ResolutionType {
	return []ResolutionType{ResolutionCryptoPrice, ResolutionSports, ResolutionGovernmentData}
}

// ResolutionValidator rejects cross-venue pairs whose resolution rules could
// disagree, e.g. one venue resolving on an announcement and the other on the
// event itself.
type ResolutionValidator struct {
	safe map[ResolutionType]bool
}

// NewResolutionValidator creates a validator. No types means
// DefaultSafeResolutionTypes.
func NewResolutionValidator(safeTypes ...ResolutionType) *ResolutionValidator {
	if len(safeTypes) == 0 {
		safeTypes = DefaultSafeResolutionTypes()
	}

	safe := make(map[ResolutionType]bool, len(safeTypes))
	for _, t := range safeTypes {
		safe[t] = true
	}

	return &ResolutionValidator{safe: safe}
}

// Compatible reports whether a and b resolve the same way. The reason
// explains a rejection.
func (v *ResolutionValidator) Compatible(a, b *types.Market) (bool, string) {
	ruleA, ruleB := ExtractResolutionRule(a), ExtractResolutionRule(b)

	if ruleA.Type != ruleB.Type {
		return false, fmt.Sprintf("resolution type mismatch: %s vs %s", ruleA.Type, ruleB.Type)
	}
	if ruleA.Type == ResolutionSubjective || ruleA.Type == ResolutionUnknown {
		return false, fmt.Sprintf("unsafe resolution type: %s", ruleA.Type)
	}

	confidence := 1.0
	if ruleA.Oracle != ruleB.Oracle && (ruleA.Oracle == "uma" || ruleB.Oracle == "uma") {
		confidence *= 0.7
	}
	if ruleA.DataSource != ruleB.DataSource {
		confidence *= 0.8
	}
	if differsWhenSpecified(ruleA.Time, ruleB.Time) {
		confidence *= 0.85
	}
	if differsWhenSpecified(ruleA.Threshold, ruleB.Threshold) {
		confidence *= 0.7
	}

	if confidence < 0.5 {
		return false, fmt.Sprintf("too many resolution rule differences (confidence %.2f)", confidence)
	}
	if !v.safe[ruleA.Type] && confidence < 0.8 {
		return false, fmt.Sprintf("unsafe resolution type %s with confidence %.2f", ruleA.Type, confidence)
	}

	return true, ""
}

func differsWhenSpecified(a, b string) bool {
	return a != b && a != unspecified && b != unspecified
}

// ExtractResolutionRule reads the resolution rule from a market's name and
// description.
func ExtractResolutionRule(m *types.Market) ResolutionRule {
	name := strings.ToLower(m.Name)
	rules := strings.ToLower(m.Description)
	combined := name + " " + rules

	return ResolutionRule{
		Type:       resolutionType(combined),
		Oracle:     resolutionOracle(m.Venue, rules),
		DataSource: dataSource(combined),
		Time:       firstMatch(timePatterns, rules),
		Threshold:  thresholdNormalizer.Replace(firstMatch(thresholdPatterns, combined)),
	}
}

func resolutionType(text string) ResolutionType {
	switch {
	case directionalKeywords.Any(text):
		return ResolutionCryptoPrice
	case cryptoKeywords.Any(text) && exchangeKeywords.Any(text):
		return ResolutionCryptoPrice
	case governmentKeywords.Any(text):
		return ResolutionGovernmentData
	case sportsKeywords.Any(text):
		return ResolutionSports
	case umaKeywords.Any(text):
		return ResolutionOracle
	case strings.Contains(text, "kalshi") && strings.Contains(text, "determine"):
		return ResolutionCentralized
	case subjectiveKeywords.Any(text):
		return ResolutionSubjective
	default:
		return ResolutionUnknown
	}
}

func resolutionOracle(venue types.Venue, rules string) string {
	switch {
	case venue == types.VenuePolymarket && umaKeywords.Any(rules):
		return "uma"
	case venue == types.VenueKalshi:
		return "kalshi_internal"
	}
	return dataSource(rules)
}

func dataSource(text string) string {
	for _, s := range dataSources {
		if s.words.Any(text) {
			return s.name
		}
	}
	return "unknown"
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return unspecified
}
