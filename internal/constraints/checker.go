// Package constraints decides whether resolved content is fit for a platform.
package constraints

import (
	_ "embed"
	"fmt"
	"unicode/utf8"

	"github.com/maheshrc27/contentloop/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

const (
	ReasonEmpty            = "content is empty"
	ReasonDangling         = "delegated content no longer exists"
	ReasonUnsupported      = "unsupported platform"
	ReasonMediaRequired    = "at least one media attachment is required"
	ReasonVideoUnsupported = "platform requires video, which cannot be published yet"
)

type Rule struct {
	MaxChars      int  `yaml:"max_chars"`
	RequiresMedia bool `yaml:"requires_media"`
	RequiresVideo bool `yaml:"requires_video"`
}

type ruleFile struct {
	Platforms map[models.Platform]Rule `yaml:"platforms"`
}

type Checker struct {
	rules map[models.Platform]Rule
}

// ParseRules reads a rules document in the rules.yaml layout.
func ParseRules(data []byte) (map[models.Platform]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse platform rules: %w", err)
	}
	if len(f.Platforms) == 0 {
		return nil, fmt.Errorf("parse platform rules: no platforms defined")
	}
	return f.Platforms, nil
}

func NewChecker(rules map[models.Platform]Rule) *Checker {
	return &Checker{rules: rules}
}

// Default returns a checker over the embedded rule table.
func Default() *Checker {
	rules, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(err)
	}
	return NewChecker(rules)
}

func (c *Checker) Rule(platform models.Platform) (Rule, bool) {
	r, ok := c.rules[platform]
	return r, ok
}

func (c *Checker) MeetsRequirements(view models.ContentView, platform models.Platform) bool {
	return len(c.ReasonsFailed(view, platform)) == 0
}

// ReasonsFailed lists every rule the content breaks on platform.
func (c *Checker) ReasonsFailed(view models.ContentView, platform models.Platform) []string {
	rule, ok := c.rules[platform]
	if !ok {
		return []string{ReasonUnsupported}
	}

	var reasons []string
	if view.Dangling {
		reasons = append(reasons, ReasonDangling)
	}
	if view.IsEmpty() {
		reasons = append(reasons, ReasonEmpty)
	}
	if rule.RequiresVideo {
		reasons = append(reasons, ReasonVideoUnsupported)
	}
	if rule.RequiresMedia && len(view.Media) == 0 {
		reasons = append(reasons, ReasonMediaRequired)
	}
	if rule.MaxChars > 0 {
		if n := utf8.RuneCountInString(view.Text()); n > rule.MaxChars {
			reasons = append(reasons, fmt.Sprintf("content is %d characters, limit is %d", n, rule.MaxChars))
		}
	}
	return reasons
}

// QualifiedPlatforms keeps the candidates the content qualifies for, in
// candidate order.
func (c *Checker) QualifiedPlatforms(view models.ContentView, candidates []models.Platform) []models.Platform {
	var out []models.Platform
	for _, p := range candidates {
		if c.MeetsRequirements(view, p) {
			out = append(out, p)
		}
	}
	return out
}

// DisqualifiedPlatforms maps each failing candidate to its first reason.
func (c *Checker) DisqualifiedPlatforms(view models.ContentView, candidates []models.Platform) map[models.Platform]string {
	out := make(map[models.Platform]string)
	for _, p := range candidates {
		if reasons := c.ReasonsFailed(view, p); len(reasons) > 0 {
			out[p] = reasons[0]
		}
	}
	return out
}
