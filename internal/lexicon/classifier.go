// internal/lexicon/classifier.go
package lexicon

import (
	"fmt"
	"regexp"

	"github.com/Corphon/SweetAffection/internal/models"
)

// ContentClassifier 不当内容审查
type ContentClassifier interface {
	Inspect(text string) models.ContentVerdict
}

type categoryRule struct {
	category models.ContentCategory
	words    *Matcher
	patterns []*regexp.Regexp
}

// PatternClassifier 字面词 + 正则的审查实现
type PatternClassifier struct {
	rules []categoryRule
}

// NewPatternClassifier 编译词典中的三类规则
func NewPatternClassifier(lex *Lexicon) (*PatternClassifier, error) {
	sets := []struct {
		category models.ContentCategory
		set      PatternSet
	}{
		{models.ContentInsult, lex.Content.Insult},
		{models.ContentSexualHint, lex.Content.SexualHint},
		{models.ContentDisrespect, lex.Content.Disrespect},
	}

	c := &PatternClassifier{}
	for _, s := range sets {
		patterns, err := compilePatterns(s.set.Patterns)
		if err != nil {
			return nil, err
		}
		c.rules = append(c.rules, categoryRule{
			category: s.category,
			words:    NewMatcher(s.set.Words),
			patterns: patterns,
		})
	}
	return c, nil
}

// Inspect 统计每个类别的命中次数
func (c *PatternClassifier) Inspect(text string) models.ContentVerdict {
	verdict := models.ContentVerdict{Categories: models.NewCategorySet()}
	for _, rule := range c.rules {
		hits := rule.words.Count(text)
		for _, re := range rule.patterns {
			hits += len(re.FindAllStringIndex(text, -1))
		}
		if hits > 0 {
			verdict.Categories[rule.category] = struct{}{}
			verdict.MatchCount += hits
		}
	}
	return verdict
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("编译正则 %q 失败: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
