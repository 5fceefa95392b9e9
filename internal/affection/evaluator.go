// internal/affection/evaluator.go
package affection

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Corphon/SweetAffection/internal/lexicon"
	"github.com/Corphon/SweetAffection/internal/models"
)

var (
	politeWords    = []string{"请", "谢谢", "抱歉", "打扰", "麻烦", "您好", "感谢"}
	respectPhrases = []string{"你觉得", "你认为", "你喜欢", "如果你", "你的想法"}

	commandPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^[给去]我`),
		regexp.MustCompile(`^告诉我`),
		regexp.MustCompile(`^快[点些]`),
		regexp.MustCompile(`^你[必须应该]`),
	}
	selfCenteredPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^我[想要需]`),
		regexp.MustCompile(`^我.*我.*我`),
	}

	simpleEmotionWords = []string{"哇", "哇哦", "棒", "好棒", "真棒", "厉害", "太好了", "呀", "哦", "嗯"}

	structurePatterns = []*regexp.Regexp{
		regexp.MustCompile(`我[^，。！？]+[了吗呢吧]`),
		regexp.MustCompile(`你[^，。！？]+[了吗呢吧]`),
		regexp.MustCompile(`.+是.+`),
	}
)

const (
	fillerChars      = "哈呵嘻嘿哦啊呀哇嗯额呃"
	qualityPunct     = "，。！？；：,.!?;:"
	repeatExclusions = ".,?!，。？！ "
	highAffection    = 80
)

// DialogueEvaluator 绅士风度、无聊度、上下文关联与输入质量评估。
// 所有方法只读，不修改关键词使用记录
type DialogueEvaluator struct {
	keywords *KeywordClassifier
}

// NewDialogueEvaluator 共享关键词分类器的分词与话题提取
func NewDialogueEvaluator(keywords *KeywordClassifier) *DialogueEvaluator {
	return &DialogueEvaluator{keywords: keywords}
}

func hasQuestion(s string) bool {
	return strings.ContainsAny(s, "?？")
}

// EvaluateGentlemanly 礼貌程度，正值更礼貌
func (d *DialogueEvaluator) EvaluateGentlemanly(text string, history []models.Message) (float64, []string) {
	score := 0.0
	var factors []string

	for _, w := range politeWords {
		if strings.Contains(text, w) {
			score += 1
			factors = append(factors, "礼貌用语: "+w)
			break
		}
	}

	for _, p := range respectPhrases {
		if strings.Contains(text, p) {
			score += 1.5
			factors = append(factors, "尊重对方的表达")
			break
		}
	}

	if len(history) >= 2 {
		last := history[len(history)-1]
		if last.Role == models.RoleAssistant && hasQuestion(last.Content) {
			if hasQuestion(text) || lexicon.RuneLen(text) > 15 {
				score += 2
				factors = append(factors, "回应了对方的提问")
			}
		}
	}

	for _, re := range commandPatterns {
		if re.MatchString(text) {
			score -= 3
			factors = append(factors, "命令式语气")
			break
		}
	}

	for _, re := range selfCenteredPatterns {
		if re.MatchString(text) {
			score -= 2
			factors = append(factors, "过于自我中心")
			break
		}
	}

	return score, factors
}

// EvaluateBoringness 无聊度 [0,10]，高亲密度时对简短回应更宽容
func (d *DialogueEvaluator) EvaluateBoringness(text string, history []models.Message, closeness float64) (float64, []string) {
	score := 0.0
	var factors []string
	high := closeness >= highAffection
	length := lexicon.RuneLen(text)

	if length < 8 {
		if high {
			score += 0.5
		} else {
			score += 2
		}
		factors = append(factors, "回复过短")
	}

	if length < 10 && containsAny(text, simpleEmotionWords) {
		if high {
			score -= 1
			factors = append(factors, "高好感下的亲昵简单回应")
		} else {
			score += 2
			factors = append(factors, "回复过于简单，仅为情绪词")
		}
	}

	if distinct(d.keywords.Tokenizer().Tokenize(text)) < 5 {
		score += 2
		factors = append(factors, "信息量不足")
	}

	if topics := d.keywords.ExtractTopics(text); len(topics) > 0 {
		recent := make(map[string]struct{})
		start := len(history) - 5
		if start < 0 {
			start = 0
		}
		for _, msg := range history[start:] {
			if msg.Role != models.RoleUser {
				continue
			}
			for _, t := range d.keywords.ExtractTopics(msg.Content) {
				recent[t] = struct{}{}
			}
		}
		if len(recent) > 0 {
			overlap := 0
			for _, t := range topics {
				if _, ok := recent[t]; ok {
					overlap++
				}
			}
			if float64(overlap)/float64(len(topics)) > 0.5 {
				score += 2
				factors = append(factors, "话题与近期重复度较高")
			}
		}
	}

	if length > 0 {
		filler := 0
		for _, r := range text {
			if strings.ContainsRune(fillerChars, r) {
				filler++
			}
		}
		if float64(filler)/float64(length) > 0.6 {
			score += 2
			factors = append(factors, "回复主要由语气词构成")
		}
	}

	if r, n := mostRepeatedRune(text); n > 3 {
		score += 2
		factors = append(factors, fmt.Sprintf("字符 '%c' 重复次数过多 (%d次)", r, n))
	}

	return clamp(score, 0, 10), factors
}

// EvaluateContextRelevance 与对方上一句话的话题关联度
func (d *DialogueEvaluator) EvaluateContextRelevance(text string, history []models.Message) float64 {
	lastAssistant := ""
	found := false
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleAssistant {
			lastAssistant = history[i].Content
			found = true
			break
		}
	}
	if !found || lastAssistant == "" {
		return 0
	}

	aiTopics := d.keywords.ExtractTopics(lastAssistant)
	userTopics := d.keywords.ExtractTopics(text)
	if len(aiTopics) == 0 || len(userTopics) == 0 {
		return 0
	}

	overlap := 0
	for _, u := range userTopics {
		for _, a := range aiTopics {
			if strings.Contains(u, a) || strings.Contains(a, u) {
				overlap++
				break
			}
		}
	}

	score := float64(overlap) / float64(len(userTopics))
	if hasQuestion(lastAssistant) && (lexicon.RuneLen(text) > 10 || score > 0) {
		score += 0.3
	}
	return score * 2
}

// EvaluateInputQuality 输入质量 [0,5]
func (d *DialogueEvaluator) EvaluateInputQuality(text string) float64 {
	score := 1.0
	length := lexicon.RuneLen(text)

	if length >= 15 {
		score += 0.5
		if length >= 30 {
			score += 0.5
		}
	}

	tokens := d.keywords.Tokenizer().Tokenize(text)
	unique := distinct(tokens)
	if unique >= 5 {
		score += 0.5
		if unique >= 10 {
			score += 0.5
		}
	}
	if len(tokens) > 0 && 1-float64(unique)/float64(len(tokens)) > 0.5 {
		score -= 0.5
	}

	if strings.ContainsAny(text, qualityPunct) {
		score += 0.5
	}

	for _, re := range structurePatterns {
		if re.MatchString(text) {
			score += 0.5
			break
		}
	}

	return clamp(score, 0, 5)
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func distinct(tokens []string) int {
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		seen[t] = struct{}{}
	}
	return len(seen)
}

// mostRepeatedRune 出现次数最多的非标点字符
func mostRepeatedRune(text string) (rune, int) {
	counts := make(map[rune]int)
	var best rune
	bestN := 0
	for _, r := range text {
		if strings.ContainsRune(repeatExclusions, r) {
			continue
		}
		counts[r]++
		if counts[r] > bestN {
			best, bestN = r, counts[r]
		}
	}
	return best, bestN
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
