// internal/analyzer/analyzer.go
package analyzer

import (
	"context"
	"strings"

	"github.com/Corphon/SweetAffection/internal/lexicon"
)

// Analysis 情感与连贯性评分
type Analysis struct {
	Sentiment float64 `json:"sentiment"` // [-0.5, 0.5]
	Coherence float64 `json:"coherence"` // [0, 1]
}

// Neutral 分析器不可用时使用的中性结果
var Neutral = Analysis{Sentiment: 0, Coherence: 0.5}

// Analyzer 文本分析器
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Analysis, error)
}

const coherencePunct = "，。！？；："

// HeuristicAnalyzer 基于情感词表与简单规则的分析器
type HeuristicAnalyzer struct {
	tokenizer *lexicon.Tokenizer
	positive  map[string]struct{}
	negative  map[string]struct{}
	negations map[string]struct{}
}

// NewHeuristicAnalyzer 由词典构建
func NewHeuristicAnalyzer(lex *lexicon.Lexicon) *HeuristicAnalyzer {
	return &HeuristicAnalyzer{
		tokenizer: lexicon.NewTokenizer(append(lex.TokenizerVocabulary(), lex.Negations...)),
		positive:  toSet(lex.PositiveSentiment),
		negative:  toSet(lex.NegativeSentiment),
		negations: toSet(lex.Negations),
	}
}

// Analyze 实现 Analyzer
func (h *HeuristicAnalyzer) Analyze(ctx context.Context, text string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Neutral, err
	}
	return Analysis{
		Sentiment: h.Sentiment(text),
		Coherence: Coherence(text),
	}, nil
}

// Sentiment 正负情感词计数，前一个词为否定词时翻转极性
func (h *HeuristicAnalyzer) Sentiment(text string) float64 {
	tokens := h.tokenizer.Words(text)
	pos, neg := 0, 0
	for i, tok := range tokens {
		polarity := 0
		if _, ok := h.positive[tok]; ok {
			polarity = 1
		} else if _, ok := h.negative[tok]; ok {
			polarity = -1
		}
		if polarity == 0 {
			continue
		}
		if i > 0 {
			if _, negated := h.negations[tokens[i-1]]; negated {
				polarity = -polarity
			}
		}
		if polarity > 0 {
			pos++
		} else {
			neg++
		}
	}

	if pos+neg == 0 {
		return 0
	}
	// 映射到 [-0.5, 0.5]
	return float64(pos-neg) / float64(pos+neg) / 2
}

// Coherence 过短、无标点或相邻字符大量重复的文本得分较低
func Coherence(text string) float64 {
	runes := []rune(text)
	if len(runes) < 5 {
		return 0.3
	}
	if !strings.ContainsAny(text, coherencePunct) {
		return 0.4
	}

	repeats := 0
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			repeats++
		}
	}
	if float64(repeats) > float64(len(runes))*0.3 {
		return 0.3
	}
	return 0.8
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
