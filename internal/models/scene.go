// internal/models/scene.go
package models

import (
	"fmt"
	"time"
)

// TimeOfDay 一天中的时段
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Noon      TimeOfDay = "noon"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Night     TimeOfDay = "night"
)

// AllTimesOfDay 按时间先后排列的全部时段
var AllTimesOfDay = []TimeOfDay{Morning, Noon, Afternoon, Evening, Night}

var timeLabels = map[TimeOfDay]string{
	Morning:   "上午",
	Noon:      "中午",
	Afternoon: "下午",
	Evening:   "傍晚",
	Night:     "晚上",
}

// Label 返回时段的中文名称
func (t TimeOfDay) Label() string {
	if label, ok := timeLabels[t]; ok {
		return label
	}
	return string(t)
}

// ParseTimeOfDay 同时接受英文标识与中文名称
func ParseTimeOfDay(s string) (TimeOfDay, bool) {
	for t, label := range timeLabels {
		if s == string(t) || s == label {
			return t, true
		}
	}
	return "", false
}

// UnmarshalText 配置文件中可直接写“下午”；空串为零值
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*t = ""
		return nil
	}
	parsed, ok := ParseTimeOfDay(string(text))
	if !ok {
		return fmt.Errorf("unknown time of day: %q", string(text))
	}
	*t = parsed
	return nil
}

// TransitionPlan 场景转换计划
type TransitionPlan struct {
	ShouldChange bool      `json:"should_change"`
	FromScene    string    `json:"from_scene,omitempty"`
	NewScene     string    `json:"new_scene"`
	NewDate      time.Time `json:"new_date"`
	NewTime      TimeOfDay `json:"new_time"`
	Keyword      string    `json:"keyword,omitempty"` // 触发日期推进的时间短语
	Score        float64   `json:"score"`
}

// SceneState 场景触发器持有的状态
type SceneState struct {
	CurrentScene      string          `json:"current_scene"`
	CurrentDate       time.Time       `json:"current_date"`
	CurrentTimeOfDay  TimeOfDay       `json:"current_time_of_day"`
	TurnCount         int             `json:"turn_count"`
	LastChangeTurn    int             `json:"last_change_turn"` // 0 表示尚未切换过
	PendingTransition *TransitionPlan `json:"pending_transition,omitempty"`
	PendingDelay      int             `json:"pending_delay"`
	LastTopic         string          `json:"last_topic,omitempty"`
	TopicDuration     int             `json:"topic_duration"`
}

// TurnsSinceLastChange 距上次场景切换经过的轮数
func (s SceneState) TurnsSinceLastChange() int {
	return s.TurnCount - s.LastChangeTurn
}
