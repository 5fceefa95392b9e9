// internal/utils/random.go
package utils

import (
	"math/rand"
	"sync"
	"time"
)

// RandomSource 引擎使用的随机数来源，测试中可替换为脚本化实现
type RandomSource interface {
	Float64() float64
	Intn(n int) int
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeededSource seed 为 0 时使用当前时间
func NewSeededSource(seed int64) RandomSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedSource{r: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

// Uniform 返回 [lo, hi) 区间内的均匀随机数
func Uniform(r RandomSource, lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

// Pick 从字符串列表中随机选择一项，空列表返回空串
func Pick(r RandomSource, items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[r.Intn(len(items))]
}

// ScriptedSource 按顺序循环返回预设值
type ScriptedSource struct {
	mu     sync.Mutex
	Floats []float64
	Ints   []int
	fi, ii int
}

// NewScriptedSource floats 为空时 Float64 恒返回 0.99，ints 为空时 Intn 恒返回 0
func NewScriptedSource(floats []float64, ints []int) *ScriptedSource {
	return &ScriptedSource{Floats: floats, Ints: ints}
}

func (s *ScriptedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Floats) == 0 {
		return 0.99
	}
	v := s.Floats[s.fi%len(s.Floats)]
	s.fi++
	return v
}

func (s *ScriptedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Ints) == 0 || n <= 0 {
		return 0
	}
	v := s.Ints[s.ii%len(s.Ints)]
	s.ii++
	if v < 0 {
		v = -v
	}
	return v % n
}
