package storyline

import (
	"testing"

	"github.com/Corphon/SweetAffection/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestCheckTriggersAscending(t *testing.T) {
	r := NewRegistry(config.DefaultAffectionConfig().Storylines)

	label, ok := r.CheckTriggers(29)
	assert.False(t, ok)
	assert.Empty(t, label)

	label, ok = r.CheckTriggers(65)
	assert.True(t, ok)
	assert.Equal(t, "初始阶段", label)

	label, _ = r.CheckTriggers(65)
	assert.Equal(t, "渐渐熟悉", label)
	label, _ = r.CheckTriggers(65)
	assert.Equal(t, "成为朋友", label)

	_, ok = r.CheckTriggers(65)
	assert.False(t, ok)
	assert.Equal(t, []string{"初始阶段", "渐渐熟悉", "成为朋友"}, r.Fired())
}

func TestLabelFiresOnce(t *testing.T) {
	r := NewRegistry(config.DefaultAffectionConfig().Storylines)
	seen := make(map[string]int)
	for _, c := range []float64{30, 100, 40, 100, 100, 100, 100, 100, 100} {
		if label, ok := r.CheckTriggers(c); ok {
			seen[label]++
		}
	}
	assert.Len(t, seen, 6)
	for label, n := range seen {
		assert.Equal(t, 1, n, label)
	}
}

func TestUnsortedThresholdsAndRestore(t *testing.T) {
	r := NewRegistry([]config.StorylineThreshold{
		{Threshold: 80, Label: "b"},
		{Threshold: 10, Label: "a"},
	})
	label, _ := r.CheckTriggers(90)
	assert.Equal(t, "a", label)

	r.Restore([]string{"a", "b"})
	assert.True(t, r.IsFired("b"))
	_, ok := r.CheckTriggers(100)
	assert.False(t, ok)

	r.Restore(nil)
	assert.False(t, r.IsFired("a"))
	assert.Empty(t, r.Fired())
}
