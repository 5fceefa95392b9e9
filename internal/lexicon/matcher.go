// internal/lexicon/matcher.go
package lexicon

import (
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

// Match 一次词典命中，Start/End 为字节偏移
type Match struct {
	Start int
	End   int
	Word  string // 词典中的原始词条
}

// Matcher 基于 Aho-Corasick 的多模式扫描器，构建后只读
type Matcher struct {
	ac       ahocorasick.AhoCorasick
	patterns []string
	index    map[string]int
}

// NewMatcher 以最左最长语义构建自动机；重复或空词条被忽略
func NewMatcher(words []string) *Matcher {
	m := &Matcher{index: make(map[string]int, len(words))}
	for _, w := range words {
		key := strings.ToLower(strings.TrimSpace(w))
		if key == "" {
			continue
		}
		if _, exists := m.index[key]; exists {
			continue
		}
		m.index[key] = len(m.patterns)
		m.patterns = append(m.patterns, key)
	}

	if len(m.patterns) > 0 {
		builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
			AsciiCaseInsensitive: true,
			MatchOnlyWholeWords:  false,
			MatchKind:            ahocorasick.LeftMostLongestMatch,
			DFA:                  true,
		})
		m.ac = builder.Build(m.patterns)
	}
	return m
}

// FindAll 返回互不重叠的命中，按出现顺序排列
func (m *Matcher) FindAll(text string) []Match {
	if len(m.patterns) == 0 || text == "" {
		return nil
	}

	found := m.ac.FindAll(text)
	out := make([]Match, 0, len(found))
	last := 0
	for _, f := range found {
		// 自动机会报告嵌套在前一命中内的短词，只保留不重叠的部分
		if f.Start() < last {
			continue
		}
		last = f.End()
		out = append(out, Match{
			Start: f.Start(),
			End:   f.End(),
			Word:  m.patterns[f.Pattern()],
		})
	}
	return out
}

// Count 命中次数
func (m *Matcher) Count(text string) int {
	return len(m.FindAll(text))
}

// Has 词条是否在词典中
func (m *Matcher) Has(word string) bool {
	_, ok := m.index[strings.ToLower(word)]
	return ok
}

// Len 词条数量
func (m *Matcher) Len() int {
	return len(m.patterns)
}
