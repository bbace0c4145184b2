// Package extract derives structured lead fields from free-text call
// transcriptions using a deterministic keyword rule table. Both the
// transcription callback and the NAME: command flow evaluate the same table,
// so the two call sites cannot diverge.
package extract

import (
	_ "embed"
	"fmt"
	"math"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

// Category names present in the rule table.
const (
	CategoryLeadType        = "lead_type"
	CategoryClassification  = "classification"
	CategoryRequirementType = "requirement_type"
	CategorySiteRegion      = "site_region"
	CategorySiteLocation    = "site_location"
	CategoryNextAction      = "next_action"
)

// extractableFields is the denominator of the confidence ratio.
const extractableFields = 8

// LeadInfo is the result of scanning one transcription.
type LeadInfo struct {
	Name            string
	Phone           string
	LeadType        string
	Classification  string
	RequirementType string
	SiteRegion      string
	SiteLocation    string
	NextAction      string
	Confidence      int
	MissingFields   []string
}

type bucket struct {
	Value    string   `yaml:"value"`
	Keywords []string `yaml:"keywords"`
}

type categoryRule struct {
	Name    string   `yaml:"name"`
	Default string   `yaml:"default"`
	Buckets []bucket `yaml:"buckets"`
}

type ruleTable struct {
	NamePatterns  []string       `yaml:"name_patterns"`
	NameStopwords []string       `yaml:"name_stopwords"`
	Categories    []categoryRule `yaml:"categories"`
}

var (
	rules         ruleTable
	namePatterns  []*regexp.Regexp
	nameStopwords map[string]bool
	categoryIndex map[string]categoryRule
)

func init() {
	if err := loadRules(rulesYAML); err != nil {
		panic("extract: invalid embedded rule table: " + err.Error())
	}
}

func loadRules(data []byte) error {
	var table ruleTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return err
	}
	if len(table.NamePatterns) == 0 || len(table.Categories) == 0 {
		return fmt.Errorf("rule table is empty")
	}

	compiled := make([]*regexp.Regexp, 0, len(table.NamePatterns))
	for _, pattern := range table.NamePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("name pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}

	stopwords := make(map[string]bool, len(table.NameStopwords))
	for _, word := range table.NameStopwords {
		stopwords[word] = true
	}

	index := make(map[string]categoryRule, len(table.Categories))
	for _, cat := range table.Categories {
		index[cat.Name] = cat
	}

	rules = table
	namePatterns = compiled
	nameStopwords = stopwords
	categoryIndex = index
	return nil
}

// Extract scans the transcription for every rule category. phoneNumber is the
// already-known caller number ("" when unknown); it feeds the confidence and
// missing-fields computation but is never parsed out of the text.
func Extract(transcription, phoneNumber string) LeadInfo {
	text := strings.ToLower(transcription)

	info := LeadInfo{
		Name:            ExtractName(text),
		Phone:           phoneNumber,
		LeadType:        MatchCategory(text, CategoryLeadType),
		Classification:  MatchCategory(text, CategoryClassification),
		RequirementType: MatchCategory(text, CategoryRequirementType),
		SiteRegion:      MatchCategory(text, CategorySiteRegion),
		SiteLocation:    MatchCategory(text, CategorySiteLocation),
		NextAction:      MatchCategory(text, CategoryNextAction),
	}

	if info.Name == "" {
		info.MissingFields = append(info.MissingFields, "name")
	}
	if info.Phone == "" {
		info.MissingFields = append(info.MissingFields, "contact")
	}

	info.Confidence = confidence(info)
	return info
}

// MatchCategory evaluates one category of the rule table against the text:
// the first bucket with a matching keyword wins. Returns the category's
// default (possibly "") when nothing matches.
func MatchCategory(text, category string) string {
	cat, ok := categoryIndex[category]
	if !ok {
		return ""
	}
	lowered := strings.ToLower(text)
	for _, b := range cat.Buckets {
		for _, keyword := range b.Keywords {
			if strings.Contains(lowered, keyword) {
				return b.Value
			}
		}
	}
	return cat.Default
}

// ExtractName looks for a self-introduction phrase. Patterns are tried in
// order; within one pattern every occurrence is considered so that stopword
// captures ("I am looking ...") do not mask a later real introduction.
func ExtractName(text string) string {
	lowered := strings.ToLower(text)
	for _, re := range namePatterns {
		for _, match := range re.FindAllStringSubmatch(lowered, -1) {
			candidate := match[1]
			if len(candidate) < 2 || nameStopwords[candidate] {
				continue
			}
			return capitalize(candidate)
		}
	}
	return ""
}

func confidence(info LeadInfo) int {
	count := 0
	for _, field := range []string{
		info.Name, info.LeadType, info.Classification, info.RequirementType,
		info.SiteRegion, info.SiteLocation, info.NextAction, info.Phone,
	} {
		if field != "" {
			count++
		}
	}
	return int(math.Round(100 * float64(count) / extractableFields))
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
