// internal/storyline/registry.go
package storyline

import (
	"sort"

	"github.com/Corphon/SweetAffection/internal/config"
)

// Registry 按亲密度阈值触发剧情，每个剧情只触发一次
type Registry struct {
	thresholds []config.StorylineThreshold
	fired      map[string]bool
}

// NewRegistry 阈值按升序排列后保存
func NewRegistry(thresholds []config.StorylineThreshold) *Registry {
	sorted := append([]config.StorylineThreshold(nil), thresholds...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Threshold < sorted[j].Threshold
	})
	return &Registry{
		thresholds: sorted,
		fired:      make(map[string]bool),
	}
}

// CheckTriggers 返回第一个已达到且尚未触发的剧情并标记为已触发
func (r *Registry) CheckTriggers(closeness float64) (string, bool) {
	for _, t := range r.thresholds {
		if t.Threshold > closeness {
			break
		}
		if !r.fired[t.Label] {
			r.fired[t.Label] = true
			return t.Label, true
		}
	}
	return "", false
}

// IsFired 剧情是否已触发
func (r *Registry) IsFired(label string) bool {
	return r.fired[label]
}

// Fired 已触发的剧情，按阈值顺序
func (r *Registry) Fired() []string {
	out := make([]string, 0, len(r.fired))
	for _, t := range r.thresholds {
		if r.fired[t.Label] {
			out = append(out, t.Label)
		}
	}
	return out
}

// Restore 从存档恢复已触发集合
func (r *Registry) Restore(fired []string) {
	r.fired = make(map[string]bool, len(fired))
	for _, label := range fired {
		r.fired[label] = true
	}
}
