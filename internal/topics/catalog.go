// internal/topics/catalog.go
package topics

import (
	"github.com/Corphon/SweetAffection/internal/config"
	"github.com/Corphon/SweetAffection/internal/utils"
)

// Catalog 按亲密度开放的话题与恋爱小贴士
type Catalog struct {
	tiers   []config.TopicTier
	tips    []string
	lastTip int
}

// NewCatalog 由配置构建
func NewCatalog(tiers []config.TopicTier, tips []string) *Catalog {
	return &Catalog{
		tiers:   append([]config.TopicTier(nil), tiers...),
		tips:    append([]string(nil), tips...),
		lastTip: -1,
	}
}

// Available 阈值不高于当前亲密度的全部话题
func (c *Catalog) Available(closeness float64) []string {
	var out []string
	for _, tier := range c.tiers {
		if closeness >= tier.Threshold {
			out = append(out, tier.Topics...)
		}
	}
	return out
}

// Tip 随机一条小贴士，不与上一条重复
func (c *Catalog) Tip(rng utils.RandomSource) string {
	switch len(c.tips) {
	case 0:
		return ""
	case 1:
		c.lastTip = 0
		return c.tips[0]
	}

	i := rng.Intn(len(c.tips))
	if i == c.lastTip {
		i = (i + 1) % len(c.tips)
	}
	c.lastTip = i
	return c.tips[i]
}

// LastTip 上一条小贴士的下标，-1 表示尚未给出
func (c *Catalog) LastTip() int {
	return c.lastTip
}

// RestoreLastTip 从存档恢复
func (c *Catalog) RestoreLastTip(i int) {
	if i < -1 || i >= len(c.tips) {
		i = -1
	}
	c.lastTip = i
}
