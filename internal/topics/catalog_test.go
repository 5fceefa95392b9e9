package topics

import (
	"testing"

	"github.com/Corphon/SweetAffection/internal/config"
	"github.com/Corphon/SweetAffection/internal/utils"
	"github.com/stretchr/testify/assert"
)

func newTestCatalog() *Catalog {
	cfg := config.DefaultAffectionConfig()
	return NewCatalog(cfg.Topics, cfg.Tips)
}

func TestAvailableUnionsTiers(t *testing.T) {
	c := newTestCatalog()

	assert.Len(t, c.Available(0), 8)
	assert.Contains(t, c.Available(30), "烘焙社活动")
	assert.NotContains(t, c.Available(39.9), "音乐")
	assert.Contains(t, c.Available(40), "音乐")
	assert.Len(t, c.Available(100), 32)
}

func TestTipNeverRepeatsImmediately(t *testing.T) {
	c := newTestCatalog()
	rng := utils.NewScriptedSource(nil, []int{3, 3, 3, 5, 5})

	prev := ""
	for i := 0; i < 10; i++ {
		tip := c.Tip(rng)
		assert.NotEmpty(t, tip)
		assert.NotEqual(t, prev, tip)
		prev = tip
	}
}

func TestTipEdgeCases(t *testing.T) {
	rng := utils.NewSeededSource(1)
	assert.Empty(t, NewCatalog(nil, nil).Tip(rng))

	single := NewCatalog(nil, []string{"唯一的提示"})
	assert.Equal(t, "唯一的提示", single.Tip(rng))
	assert.Equal(t, "唯一的提示", single.Tip(rng))

	c := newTestCatalog()
	c.RestoreLastTip(99)
	assert.Equal(t, -1, c.LastTip())
	c.RestoreLastTip(2)
	assert.Equal(t, 2, c.LastTip())
	assert.NotEqual(t, c.tips[2], c.Tip(utils.NewScriptedSource(nil, []int{2})))
}
