// internal/affection/keywords.go
package affection

import (
	"github.com/Corphon/SweetAffection/internal/config"
	"github.com/Corphon/SweetAffection/internal/lexicon"
	"github.com/Corphon/SweetAffection/internal/models"
)

const maxTopics = 3

// KeywordAnalysis 关键词对亲密度的影响
type KeywordAnalysis struct {
	Delta   float64  `json:"delta"`
	Matched []string `json:"matched"`
}

// KeywordClassifier 话题提取、关键词分类与使用频率衰减。
// 非并发安全，由所属会话串行调用
type KeywordClassifier struct {
	tokenizer  *lexicon.Tokenizer
	keywords   *lexicon.Matcher
	categories map[string]models.KeywordCategory
	stopwords  map[string]struct{}
	content    lexicon.ContentClassifier

	weights        config.KeywordWeights
	decayThreshold int
	usage          map[string]int
}

// NewKeywordClassifier content 为空时使用词典内置的正则审查
func NewKeywordClassifier(lex *lexicon.Lexicon, cfg *config.AffectionConfig, content lexicon.ContentClassifier) (*KeywordClassifier, error) {
	if content == nil {
		pc, err := lexicon.NewPatternClassifier(lex)
		if err != nil {
			return nil, err
		}
		content = pc
	}

	categories := make(map[string]models.KeywordCategory)
	for category, words := range lex.Keywords {
		for _, w := range words {
			categories[w] = category
		}
	}

	stopwords := make(map[string]struct{}, len(lex.Stopwords))
	for _, w := range lex.Stopwords {
		stopwords[w] = struct{}{}
	}

	return &KeywordClassifier{
		tokenizer:      lexicon.NewTokenizer(lex.TokenizerVocabulary()),
		keywords:       lexicon.NewMatcher(lex.AllKeywords()),
		categories:     categories,
		stopwords:      stopwords,
		content:        content,
		weights:        cfg.KeywordWeights,
		decayThreshold: cfg.KeywordDecayThreshold,
		usage:          make(map[string]int),
	}, nil
}

// Tokenizer 共享的分词器
func (k *KeywordClassifier) Tokenizer() *lexicon.Tokenizer {
	return k.tokenizer
}

// ExtractTopics 取前三个有效词作为话题
func (k *KeywordClassifier) ExtractTopics(text string) []string {
	var topics []string
	for _, tok := range k.tokenizer.Words(text) {
		if lexicon.RuneLen(tok) < 2 || lexicon.IsNumeric(tok) {
			continue
		}
		if _, stop := k.stopwords[tok]; stop {
			continue
		}
		topics = append(topics, tok)
		if len(topics) == maxTopics {
			break
		}
	}
	return topics
}

// CheckInappropriate 命中的不当内容类别
func (k *KeywordClassifier) CheckInappropriate(text string) models.CategorySet {
	return k.content.Inspect(text).Categories
}

// Inspect 完整的审查结果（含命中次数）
func (k *KeywordClassifier) Inspect(text string) models.ContentVerdict {
	return k.content.Inspect(text)
}

// Classify 查询关键词类别
func (k *KeywordClassifier) Classify(keyword string) (models.KeywordCategory, bool) {
	c, ok := k.categories[keyword]
	return c, ok
}

// ExtractKeywords 文本中出现的词典关键词，按出现顺序
func (k *KeywordClassifier) ExtractKeywords(text string) []string {
	matches := k.keywords.FindAll(text)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Word)
	}
	return out
}

// AnalyzeKeywords 每个类别在一次调用中只计一次；
// 使用次数达到衰减阈值的关键词不再产生任何贡献，也不再计数
func (k *KeywordClassifier) AnalyzeKeywords(keywords []string) KeywordAnalysis {
	var result KeywordAnalysis
	consumed := make(map[models.KeywordCategory]bool, 3)

	for _, kw := range keywords {
		if k.usage[kw] >= k.decayThreshold {
			continue
		}
		k.usage[kw]++

		category, ok := k.categories[kw]
		if !ok || consumed[category] {
			continue
		}
		consumed[category] = true
		result.Delta += k.weight(category)
		result.Matched = append(result.Matched, kw)
	}
	return result
}

func (k *KeywordClassifier) weight(c models.KeywordCategory) float64 {
	switch c {
	case models.KeywordPositive:
		return k.weights.Positive
	case models.KeywordNegative:
		return k.weights.Negative
	case models.KeywordInterest:
		return k.weights.Interest
	default:
		return 0
	}
}

// Usage 关键词使用次数的副本
func (k *KeywordClassifier) Usage() map[string]int {
	out := make(map[string]int, len(k.usage))
	for kw, n := range k.usage {
		out[kw] = n
	}
	return out
}

// RestoreUsage 从存档恢复
func (k *KeywordClassifier) RestoreUsage(usage map[string]int) {
	k.usage = make(map[string]int, len(usage))
	for kw, n := range usage {
		k.usage[kw] = n
	}
}
