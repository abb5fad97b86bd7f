package analyzer

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"

	"smartscrape/smartscrape/utils/types"
)

// Rule is one entry of the fallback decision table. A rule matches when the
// lowercased query contains any of its keywords; a rule with no keywords
// matches every query and terminates the scan. Rule order and the URL
// templates are a compatibility contract: reordering changes classification.
type Rule struct {
	Keywords    []string        `yaml:"keywords"`
	Website     types.Website   `yaml:"website"`
	Strategy    types.Strategy  `yaml:"strategy"`
	URLTemplate string          `yaml:"url_template"`
	Selectors   types.Selectors `yaml:"selectors"`
}

// Matches reports whether the rule applies to the lowercased query.
func (r Rule) Matches(lowered string) bool {
	if len(r.Keywords) == 0 {
		return true
	}
	for _, kw := range r.Keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func (r Rule) build(query string) types.AnalysisResult {
	return types.AnalysisResult{
		Website:          r.Website,
		URL:              fmt.Sprintf(r.URLTemplate, url.QueryEscape(query)),
		ScrapingStrategy: r.Strategy,
		Selectors:        r.Selectors,
	}
}

// DefaultRules returns the built-in decision table, evaluated first match
// wins. The final keywordless entry is the general web-search default.
func DefaultRules() []Rule {
	return []Rule{
		{
			Keywords:    []string{"laptop", "phone", "product"},
			Website:     types.WebsiteAmazon,
			Strategy:    types.StrategyEcommerceSearch,
			URLTemplate: "https://www.amazon.in/s?k=%s",
			Selectors: types.Selectors{
				Primary:   `[data-component-type="s-search-result"]`,
				Secondary: ".a-price-whole",
			},
		},
		{
			Keywords:    []string{"flight", "travel"},
			Website:     types.WebsiteGoogleFlights,
			Strategy:    types.StrategyFlightSearch,
			URLTemplate: "https://www.google.com/travel/flights?q=%s",
			Selectors: types.Selectors{
				Primary:   ".pIav2d",
				Secondary: ".YMlIz",
			},
		},
		{
			Keywords:    []string{"track", "package"},
			Website:     types.WebsiteGoogle,
			Strategy:    types.StrategyTrackingInfo,
			URLTemplate: "https://www.google.com/search?q=%s",
			Selectors: types.Selectors{
				Primary:   "div.g",
				Secondary: ".VwiC3b",
			},
		},
		{
			Keywords:    []string{"restaurant", "food"},
			Website:     types.WebsiteZomato,
			Strategy:    types.StrategyRestaurantSearch,
			URLTemplate: "https://www.zomato.com/search?q=%s",
			Selectors: types.Selectors{
				Primary:   ".search-snippet-card",
				Secondary: ".rating-value",
			},
		},
		{
			Keywords:    nil,
			Website:     types.WebsiteGoogle,
			Strategy:    types.StrategyWebSearch,
			URLTemplate: "https://www.google.com/search?q=%s",
			Selectors: types.Selectors{
				Primary:   "div.g",
				Secondary: ".VwiC3b",
			},
		},
	}
}

// Fallback is the deterministic analyzer used when the model cannot be.
type Fallback struct {
	rules []Rule
}

func NewFallback(rules []Rule) *Fallback {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Fallback{rules: rules}
}

// Analyze resolves a query through the rule table. It always resolves: the
// table is validated to end in a keywordless default.
func (f *Fallback) Analyze(query string) types.AnalysisResult {
	lowered := strings.ToLower(query)
	for _, r := range f.rules {
		if r.Matches(lowered) {
			return r.build(query)
		}
	}
	// validated tables cannot get here; keep the last rule as a backstop
	return f.rules[len(f.rules)-1].build(query)
}

// LoadRules reads a replacement decision table from a YAML file and
// validates it. Callers keep the built-in table when this returns an error.
func LoadRules(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// ValidateRules checks a decision table for the invariants Analyze relies
// on: a non-empty table whose last rule matches everything, URL templates
// with exactly one substitution slot, and compilable primary selectors.
func ValidateRules(rules []Rule) error {
	if len(rules) == 0 {
		return fmt.Errorf("rule table is empty")
	}
	if len(rules[len(rules)-1].Keywords) != 0 {
		return fmt.Errorf("last rule must be the keywordless default")
	}
	for i, r := range rules {
		if r.Website == "" || r.Strategy == "" {
			return fmt.Errorf("rule %d: website and strategy are required", i)
		}
		if strings.Count(r.URLTemplate, "%s") != 1 {
			return fmt.Errorf("rule %d: url template needs exactly one %%s slot", i)
		}
		built := fmt.Sprintf(r.URLTemplate, "probe")
		if u, err := url.Parse(built); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("rule %d: url template does not produce an absolute url", i)
		}
		if r.Selectors.Primary == "" {
			return fmt.Errorf("rule %d: primary selector is required", i)
		}
		if _, err := cascadia.Parse(r.Selectors.Primary); err != nil {
			return fmt.Errorf("rule %d: invalid primary selector: %w", i, err)
		}
	}
	return nil
}
