// internal/lexicon/tokenizer.go
package lexicon

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenizer 词典正向最大匹配分词
//
// 词典命中的片段作为整词输出；其余片段中汉字逐字成词，
// 连续的拉丁字母与数字合并为一个小写词，标点单独成词，空白丢弃。
type Tokenizer struct {
	dict *Matcher
}

// NewTokenizer 由词表构建分词器
func NewTokenizer(vocabulary []string) *Tokenizer {
	return &Tokenizer{dict: NewMatcher(vocabulary)}
}

// Tokenize 切分文本
func (t *Tokenizer) Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var tokens []string
	pos := 0
	for _, m := range t.dict.FindAll(text) {
		if m.Start < pos {
			continue
		}
		tokens = appendGap(tokens, text[pos:m.Start])
		tokens = append(tokens, strings.ToLower(text[m.Start:m.End]))
		pos = m.End
	}
	return appendGap(tokens, text[pos:])
}

// Words 去掉标点后的词
func (t *Tokenizer) Words(text string) []string {
	tokens := t.Tokenize(text)
	out := tokens[:0:0]
	for _, tok := range tokens {
		if !IsPunctuation(tok) {
			out = append(out, tok)
		}
	}
	return out
}

func appendGap(tokens []string, gap string) []string {
	run := strings.Builder{}
	flush := func() {
		if run.Len() > 0 {
			tokens = append(tokens, strings.ToLower(run.String()))
			run.Reset()
		}
	}

	for len(gap) > 0 {
		r, size := utf8.DecodeRuneInString(gap)
		gap = gap[size:]

		switch {
		case unicode.IsSpace(r):
			flush()
		case isRunRune(r):
			run.WriteRune(r)
		default:
			flush()
			tokens = append(tokens, string(r))
		}
	}
	flush()
	return tokens
}

// isRunRune 拉丁字母、数字等可连写成词的字符
func isRunRune(r rune) bool {
	if unicode.Is(unicode.Han, r) {
		return false
	}
	return r == '_' || unicode.IsDigit(r) || (unicode.IsLetter(r) && r < 0x2E80)
}

// IsPunctuation 单个标点或符号
func IsPunctuation(tok string) bool {
	r, size := utf8.DecodeRuneInString(tok)
	if size != len(tok) {
		return false
	}
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// IsNumeric 纯数字词
func IsNumeric(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// RuneLen 字符数
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
