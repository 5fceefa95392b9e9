package affection

import (
	"testing"

	"github.com/Corphon/SweetAffection/internal/config"
	"github.com/Corphon/SweetAffection/internal/lexicon"
	"github.com/Corphon/SweetAffection/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClassifier(t *testing.T) *KeywordClassifier {
	t.Helper()
	kc, err := NewKeywordClassifier(lexicon.Default(), config.DefaultAffectionConfig(), nil)
	require.NoError(t, err)
	return kc
}

func TestExtractKeywordsInOrder(t *testing.T) {
	kc := newTestClassifier(t)
	assert.Equal(t, []string{"喜欢", "烘焙", "蛋糕"}, kc.ExtractKeywords("我喜欢烘焙和蛋糕"))
	assert.Empty(t, kc.ExtractKeywords("今天下雨了"))
}

func TestExtractTopicsSkipsShortAndStopwords(t *testing.T) {
	kc := newTestClassifier(t)
	assert.Equal(t, []string{"喜欢", "烘焙", "蛋糕"}, kc.ExtractTopics("我喜欢烘焙和蛋糕"))
	assert.Equal(t, []string{"喜欢"}, kc.ExtractTopics("为什么你喜欢2021"))
	assert.Empty(t, kc.ExtractTopics("嗯"))
}

func TestAnalyzeKeywordsOnePerCategory(t *testing.T) {
	kc := newTestClassifier(t)

	res := kc.AnalyzeKeywords([]string{"喜欢", "烘焙", "蛋糕"})
	assert.InDelta(t, 3.5, res.Delta, 1e-9)
	assert.Equal(t, []string{"喜欢", "烘焙"}, res.Matched)

	usage := kc.Usage()
	assert.Equal(t, 1, usage["蛋糕"])
	assert.Equal(t, 1, usage["喜欢"])
}

func TestKeywordDecaysAfterThreshold(t *testing.T) {
	kc := newTestClassifier(t)

	for i := 0; i < 3; i++ {
		res := kc.AnalyzeKeywords([]string{"蛋糕"})
		assert.InDelta(t, 2.0, res.Delta, 1e-9, "use %d", i+1)
	}

	res := kc.AnalyzeKeywords([]string{"蛋糕"})
	assert.Zero(t, res.Delta)
	assert.Empty(t, res.Matched)
	assert.Equal(t, 3, kc.Usage()["蛋糕"])

	kc.RestoreUsage(map[string]int{"蛋糕": 0})
	assert.InDelta(t, 2.0, kc.AnalyzeKeywords([]string{"蛋糕"}).Delta, 1e-9)
}

func TestNegativeKeywordWeight(t *testing.T) {
	kc := newTestClassifier(t)
	res := kc.AnalyzeKeywords(kc.ExtractKeywords("这个电影好无聊"))
	assert.InDelta(t, 2.0-2.5, res.Delta, 1e-9)

	category, ok := kc.Classify("无聊")
	require.True(t, ok)
	assert.Equal(t, models.KeywordNegative, category)
}

func TestCheckInappropriate(t *testing.T) {
	kc := newTestClassifier(t)
	assert.True(t, kc.CheckInappropriate("你真是个笨蛋").Has(models.ContentInsult))
	assert.Empty(t, kc.CheckInappropriate("今天天气真好"))
}
