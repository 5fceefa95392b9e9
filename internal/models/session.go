// internal/models/session.go
package models

import (
	"time"
)

// SessionSnapshot 存档记录
type SessionSnapshot struct {
	SessionID     string            `json:"session_id"`
	CharacterName string            `json:"character_name"`
	PlayerName    string            `json:"player_name"`
	Affection     AffectionSnapshot `json:"affection"`
	KeywordUsage  map[string]int    `json:"keyword_usage"`
	Scene         SceneState        `json:"scene"`
	Storylines    []string          `json:"storylines"`
	History       []Message         `json:"history"`
	LastTip       int               `json:"last_tip"` // 上一条小贴士下标，-1 表示无
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// SlotInfo 存档列表条目
type SlotInfo struct {
	Slot      string    `json:"slot"`
	SessionID string    `json:"session_id"`
	Closeness float64   `json:"closeness"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionState 会话当前状态的只读视图
type SessionState struct {
	SessionID       string            `json:"session_id"`
	CharacterName   string            `json:"character_name"`
	PlayerName      string            `json:"player_name"`
	Affection       AffectionSnapshot `json:"affection"`
	Phase           Phase             `json:"phase"`
	SocialRisk      SocialRisk        `json:"social_risk"`
	Scene           SceneState        `json:"scene"`
	Storylines      []string          `json:"storylines"`
	AvailableTopics []string          `json:"available_topics"`
	HistoryLength   int               `json:"history_length"`
	Greeting        string            `json:"greeting,omitempty"` // 仅新建会话时返回
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// TurnResult 一次完整聊天回合的结果
type TurnResult struct {
	SessionID       string          `json:"session_id"`
	Reply           string          `json:"reply"`
	ReplyFallback   bool            `json:"reply_fallback"`
	Affection       *DialogueResult `json:"affection"`
	Storyline       string          `json:"storyline,omitempty"`
	SceneTransition *TransitionPlan `json:"scene_transition,omitempty"`
	SceneNarration  string          `json:"scene_narration,omitempty"`
	Tip             string          `json:"tip,omitempty"`
	Phase           Phase           `json:"phase"`
}
