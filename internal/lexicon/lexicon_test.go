package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Corphon/SweetAffection/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcherLeftmostLongest(t *testing.T) {
	m := NewMatcher([]string{"烘焙", "烘焙社", "社团", "", "烘焙"})
	assert.Equal(t, 3, m.Len())

	matches := m.FindAll("我想加入烘焙社的社团")
	require.Len(t, matches, 2)
	assert.Equal(t, "烘焙社", matches[0].Word)
	assert.Equal(t, "社团", matches[1].Word)
	assert.True(t, m.Has("烘焙"))
	assert.False(t, m.Has("蛋糕"))
}

func TestMatcherDropsNestedMatches(t *testing.T) {
	tests := []struct {
		name  string
		words []string
		text  string
		want  []string
	}{
		{"question word", []string{"为什么", "什么", "喜欢", "烘焙"}, "为什么你喜欢烘焙呢", []string{"为什么", "喜欢", "烘焙"}},
		{"negated verb", []string{"喜欢", "不喜欢"}, "我不喜欢下雨，但喜欢你", []string{"不喜欢", "喜欢"}},
		{"suffix entry", []string{"喜欢", "喜欢你"}, "我喜欢你", []string{"喜欢你"}},
		{"repeated nesting", []string{"什么", "为什么"}, "为什么为什么什么", []string{"为什么", "为什么", "什么"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher(tt.words)
			matches := m.FindAll(tt.text)

			got := make([]string, 0, len(matches))
			last := 0
			for _, match := range matches {
				assert.GreaterOrEqual(t, match.Start, last, "命中不应重叠")
				assert.Equal(t, match.Word, tt.text[match.Start:match.End])
				last = match.End
				got = append(got, match.Word)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), m.Count(tt.text))
		})
	}
}

func TestMatcherEmpty(t *testing.T) {
	m := NewMatcher(nil)
	assert.Nil(t, m.FindAll("任何文本"))
	assert.Equal(t, 0, m.Count("任何文本"))
}

func TestTokenizerSplitsGaps(t *testing.T) {
	tok := NewTokenizer([]string{"你好", "烘焙社", "喜欢"})

	tokens := tok.Tokenize("你好！我喜欢烘焙社 Cake123，好")
	assert.Equal(t, []string{"你好", "！", "我", "喜欢", "烘焙社", "cake123", "，", "好"}, tokens)

	words := tok.Words("你好！我喜欢烘焙社")
	assert.Equal(t, []string{"你好", "我", "喜欢", "烘焙社"}, words)
	assert.Nil(t, tok.Tokenize(""))
}

func TestTokenizerHandlesOverlappingVocabulary(t *testing.T) {
	tok := NewTokenizer([]string{"为什么", "什么", "喜欢", "不喜欢", "烘焙"})

	require.NotPanics(t, func() { tok.Tokenize("为什么你喜欢烘焙呢？") })
	assert.Equal(t, []string{"为什么", "你", "喜欢", "烘焙", "呢", "？"}, tok.Tokenize("为什么你喜欢烘焙呢？"))
	assert.Equal(t, []string{"我", "不喜欢", "什么", "烘焙"}, tok.Words("我不喜欢什么烘焙"))
}

func TestTokenHelpers(t *testing.T) {
	assert.True(t, IsPunctuation("，"))
	assert.True(t, IsPunctuation("?"))
	assert.False(t, IsPunctuation("好"))
	assert.True(t, IsNumeric("2021"))
	assert.False(t, IsNumeric("20点"))
	assert.Equal(t, 2, RuneLen("你好"))
}

func TestPatternClassifierCountsMatches(t *testing.T) {
	c, err := NewPatternClassifier(Default())
	require.NoError(t, err)

	v := c.Inspect("你这个笨蛋，真是个笨蛋")
	assert.Equal(t, []models.ContentCategory{models.ContentInsult}, v.Categories.List())
	assert.Equal(t, 2, v.MatchCount)

	v = c.Inspect("闭嘴吧你这个傻逼")
	assert.True(t, v.Categories.Has(models.ContentInsult))
	assert.True(t, v.Categories.Has(models.ContentDisrespect))
	assert.Equal(t, 2, v.MatchCount)

	v = c.Inspect("今天天气真好，一起去图书馆吧")
	assert.True(t, v.Empty())
	assert.Equal(t, 0, v.MatchCount)
}

func TestPatternClassifierCountsNestedWordsOnce(t *testing.T) {
	lex := &Lexicon{Content: ContentRules{
		Insult: PatternSet{Words: []string{"笨蛋", "大笨蛋"}},
	}}
	c, err := NewPatternClassifier(lex)
	require.NoError(t, err)

	v := c.Inspect("你这个大笨蛋")
	assert.Equal(t, []models.ContentCategory{models.ContentInsult}, v.Categories.List())
	assert.Equal(t, 1, v.MatchCount)
}

func TestPatternClassifierAnchoredPatterns(t *testing.T) {
	c, err := NewPatternClassifier(Default())
	require.NoError(t, err)

	assert.True(t, c.Inspect("你敢这样说？").Categories.Has(models.ContentDisrespect))
	assert.False(t, c.Inspect("我觉得你敢于尝试").Categories.Has(models.ContentDisrespect))
}

func TestNewPatternClassifierRejectsBadRegex(t *testing.T) {
	lex := Default()
	lex.Content.Insult.Patterns = []string{"[unclosed"}
	_, err := NewPatternClassifier(lex)
	assert.Error(t, err)
	assert.Error(t, lex.Validate())
}

func TestLoadOverlayAndFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")
	content := `
keywords:
  interest: [滑板, 围棋]
stopwords: [什么]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	lex := Load(path)
	assert.Equal(t, []string{"滑板", "围棋"}, lex.Keywords[models.KeywordInterest])
	assert.NotEmpty(t, lex.Keywords[models.KeywordPositive])
	assert.Equal(t, []string{"什么"}, lex.Stopwords)

	missing := Load(filepath.Join(dir, "missing.json"))
	assert.Equal(t, Default(), missing)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"content":{"insult":{"patterns":["(("]}}}`), 0644))
	assert.Equal(t, Default(), Load(bad))
}
