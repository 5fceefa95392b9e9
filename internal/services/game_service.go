// internal/services/game_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Corphon/SweetAffection/internal/affection"
	"github.com/Corphon/SweetAffection/internal/analyzer"
	"github.com/Corphon/SweetAffection/internal/config"
	apperrors "github.com/Corphon/SweetAffection/internal/errors"
	"github.com/Corphon/SweetAffection/internal/lexicon"
	"github.com/Corphon/SweetAffection/internal/models"
	"github.com/Corphon/SweetAffection/internal/scene"
	"github.com/Corphon/SweetAffection/internal/storage"
	"github.com/Corphon/SweetAffection/internal/storyline"
	"github.com/Corphon/SweetAffection/internal/topics"
	"github.com/Corphon/SweetAffection/internal/utils"
)

const (
	greeting       = "（正在整理烘焙社的宣传材料）有什么我可以帮你的吗？"
	maxHistorySize = 100
)

// 指标名称
const (
	metricTurns          = "turns_total"
	metricFallbacks      = "reply_fallbacks_total"
	metricConfessions    = "confessions_total"
	metricSceneChanges   = "scene_changes_total"
	metricStorylines     = "storylines_total"
	metricSaves          = "saves_total"
	metricLoads          = "loads_total"
	metricActiveSessions = "sessions_active"
	metricReplyLatency   = "reply_latency_ms"
	metricEventPrefix    = "events."
)

// GameSession 一局游戏的全部运行时状态
type GameSession struct {
	ID         string
	engine     *affection.Engine
	trigger    *scene.Trigger
	storylines *storyline.Registry
	catalog    *topics.Catalog
	rng        utils.RandomSource
	history    []models.Message
	createdAt  time.Time
	updatedAt  time.Time
}

// GameDeps 构建 GameService 所需依赖
type GameDeps struct {
	Config    *config.AffectionConfig
	Lexicon   *lexicon.Lexicon
	Analyzer  analyzer.Analyzer
	Generator TextGenerator
	Store     storage.SaveStore
	Metrics   *utils.MetricsCollector
	Logger    *utils.Logger

	// NewRandom 每个会话一个随机源；为空时按 Seed 创建
	NewRandom func() utils.RandomSource
	Seed      int64
}

// GameService 会话编排：情感引擎、回复生成、场景、剧情与存档
type GameService struct {
	cfg       *config.AffectionConfig
	lex       *lexicon.Lexicon
	analyzer  analyzer.Analyzer
	generator TextGenerator
	store     storage.SaveStore
	metrics   *utils.MetricsCollector
	logger    *utils.Logger
	newRandom func() utils.RandomSource

	locks    *LockManager
	sessions map[string]*GameSession
	mu       sync.RWMutex
}

// NewGameService 创建游戏服务
func NewGameService(deps GameDeps) *GameService {
	if deps.Config == nil {
		deps.Config = config.DefaultAffectionConfig()
	}
	if deps.Lexicon == nil {
		deps.Lexicon = lexicon.Default()
	}
	if deps.Analyzer == nil {
		deps.Analyzer = analyzer.NewHeuristicAnalyzer(deps.Lexicon)
	}
	if deps.Metrics == nil {
		deps.Metrics = utils.NewMetricsCollector()
	}
	if deps.Logger == nil {
		deps.Logger = utils.GetLogger()
	}
	if deps.NewRandom == nil {
		seed := deps.Seed
		deps.NewRandom = func() utils.RandomSource { return utils.NewSeededSource(seed) }
	}

	return &GameService{
		cfg:       deps.Config,
		lex:       deps.Lexicon,
		analyzer:  deps.Analyzer,
		generator: deps.Generator,
		store:     deps.Store,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		newRandom: deps.NewRandom,
		locks:     NewLockManager(),
		sessions:  make(map[string]*GameSession),
	}
}

// Metrics 运行指标
func (s *GameService) Metrics() *utils.MetricsCollector {
	return s.metrics
}

// Close 停止后台任务
func (s *GameService) Close() {
	s.locks.Stop()
}

func (s *GameService) buildSession(id string) (*GameSession, error) {
	keywords, err := affection.NewKeywordClassifier(s.lex, s.cfg, nil)
	if err != nil {
		return nil, apperrors.NewConfigError("构建关键词分类器失败", err)
	}

	rng := s.newRandom()
	logger := s.logger.WithFields(map[string]interface{}{"session_id": id})
	now := time.Now().UTC()

	return &GameSession{
		ID: id,
		engine: affection.NewEngine(s.cfg, keywords,
			affection.WithRandom(rng),
			affection.WithLogger(logger),
			affection.WithAnalyzer(s.analyzer)),
		trigger:    scene.NewTrigger(s.cfg.Scene, rng, logger),
		storylines: storyline.NewRegistry(s.cfg.Storylines),
		catalog:    topics.NewCatalog(s.cfg.Topics, s.cfg.Tips),
		rng:        rng,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

func (s *GameService) register(sess *GameSession) {
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	count := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetGauge(metricActiveSessions, int64(count))
}

func (s *GameService) session(id string) (*GameSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("会话不存在: %s", id), nil)
	}
	return sess, nil
}

// NewSession 开始新的一局
func (s *GameService) NewSession(ctx context.Context) (*models.SessionState, error) {
	sess, err := s.buildSession(uuid.NewString())
	if err != nil {
		return nil, err
	}
	sess.history = append(sess.history, models.Message{Role: RoleAssistant, Content: greeting})
	s.register(sess)

	s.logger.Info("新会话已创建", map[string]interface{}{"session_id": sess.ID})

	state := s.stateOf(sess)
	state.Greeting = greeting
	return state, nil
}

// CloseSession 丢弃内存中的会话
func (s *GameService) CloseSession(id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	count := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("会话不存在: %s", id), nil)
	}
	s.locks.Remove(id)
	s.metrics.SetGauge(metricActiveSessions, int64(count))
	return nil
}

// Chat 处理一轮玩家发言
func (s *GameService) Chat(ctx context.Context, id, message string) (*models.TurnResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	var result *models.TurnResult
	err = s.locks.ExecuteWithSessionLock(id, func() error {
		var err error
		result, err = s.chatLocked(ctx, sess, message)
		return err
	})
	return result, err
}

func (s *GameService) chatLocked(ctx context.Context, sess *GameSession, message string) (*models.TurnResult, error) {
	firstTurn := !hasUserMessage(sess.history)

	res, err := sess.engine.ProcessDialogue(ctx, message, sess.history)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementCounter(metricTurns)
	s.metrics.IncrementCounter(metricEventPrefix + string(res.Event))

	turn := &models.TurnResult{
		SessionID: sess.ID,
		Affection: res,
	}

	// 告白与结局由旁白代替角色回复
	if res.Narrative != "" {
		turn.Reply = res.Narrative
		if res.Event == models.EventConfession {
			s.metrics.IncrementCounter(metricConfessions)
		}
	} else {
		turn.Reply, turn.ReplyFallback = s.reply(ctx, sess, message, firstTurn)
	}

	sess.history = append(sess.history,
		models.Message{Role: RoleUser, Content: message},
		models.Message{Role: RoleAssistant, Content: turn.Reply})
	if len(sess.history) > maxHistorySize {
		sess.history = append([]models.Message(nil), sess.history[len(sess.history)-maxHistorySize:]...)
	}

	closeness := sess.engine.Closeness()
	if label, ok := sess.storylines.CheckTriggers(closeness); ok {
		turn.Storyline = label
		s.metrics.IncrementCounter(metricStorylines)
	}

	if found := sess.engine.Keywords().ExtractTopics(message); len(found) > 0 {
		sess.trigger.ObserveTopic(found[0])
	}
	if !res.Completed {
		if plan := sess.trigger.Observe(message, turn.Reply); plan != nil {
			turn.SceneTransition = plan
			turn.SceneNarration = sess.trigger.Describe(plan)
			s.metrics.IncrementCounter(metricSceneChanges)
		}
	}

	if res.Event == models.EventBoringTalk || res.Event == models.EventInvalidInput {
		turn.Tip = sess.catalog.Tip(sess.rng)
	}

	turn.Phase = affection.PhaseOf(closeness)
	sess.updatedAt = time.Now().UTC()

	s.logger.Debug("回合完成", map[string]interface{}{
		"session_id": sess.ID,
		"delta":      res.Delta,
		"closeness":  closeness,
		"event":      res.Event,
		"fallback":   turn.ReplyFallback,
	})
	return turn, nil
}

// reply 生成角色回复，失败时使用备用台词
func (s *GameService) reply(ctx context.Context, sess *GameSession, message string, firstTurn bool) (string, bool) {
	closeness := sess.engine.Closeness()
	if s.generator == nil {
		s.metrics.IncrementCounter(metricFallbacks)
		return FallbackReply(closeness, firstTurn), true
	}

	snap := sess.engine.Snapshot()
	st := sess.trigger.State()
	var recent []string
	if st.LastTopic != "" {
		recent = []string{st.LastTopic}
	}

	start := time.Now()
	text, err := s.generator.Generate(ctx, PromptContext{
		CharacterName: s.cfg.CharacterName,
		PlayerName:    s.cfg.PlayerName,
		Closeness:     closeness,
		Phase:         affection.PhaseOf(closeness),
		Mood:          snap.Mood,
		Scene:         st.CurrentScene,
		TimeOfDay:     st.CurrentTimeOfDay,
		Topics:        recent,
		History:       sess.history,
		UserInput:     message,
	})
	s.metrics.RecordHistogram(metricReplyLatency, time.Since(start).Milliseconds())
	if err != nil {
		if !errors.Is(err, ErrLLMNotReady) {
			s.logger.Warn("角色回复生成失败，使用备用台词", map[string]interface{}{
				"session_id": sess.ID,
				"error":      err.Error(),
			})
		}
		s.metrics.IncrementCounter(metricFallbacks)
		return FallbackReply(closeness, firstTurn), true
	}
	return text, false
}

func hasUserMessage(history []models.Message) bool {
	for _, m := range history {
		if m.Role == RoleUser {
			return true
		}
	}
	return false
}

// Confess 玩家主动告白
func (s *GameService) Confess(ctx context.Context, id string) (*models.ConfessionResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	var result models.ConfessionResult
	err = s.locks.ExecuteWithSessionLock(id, func() error {
		var err error
		result, err = sess.engine.Confess()
		if err != nil {
			return err
		}
		sess.updatedAt = time.Now().UTC()
		s.metrics.IncrementCounter(metricConfessions)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// State 会话当前状态
func (s *GameService) State(id string) (*models.SessionState, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	var state *models.SessionState
	_ = s.locks.ExecuteWithSessionReadLock(id, func() error {
		state = s.stateOf(sess)
		return nil
	})
	return state, nil
}

func (s *GameService) stateOf(sess *GameSession) *models.SessionState {
	snap := sess.engine.Snapshot()
	return &models.SessionState{
		SessionID:       sess.ID,
		CharacterName:   s.cfg.CharacterName,
		PlayerName:      s.cfg.PlayerName,
		Affection:       snap,
		Phase:           sess.engine.Phase(),
		SocialRisk:      sess.engine.SocialRisk(),
		Scene:           sess.trigger.State(),
		Storylines:      sess.storylines.Fired(),
		AvailableTopics: sess.catalog.Available(snap.Closeness),
		HistoryLength:   len(sess.history),
		CreatedAt:       sess.createdAt,
		UpdatedAt:       sess.updatedAt,
	}
}

// Topics 当前亲密度下可聊的话题
func (s *GameService) Topics(id string) ([]string, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	var out []string
	_ = s.locks.ExecuteWithSessionReadLock(id, func() error {
		out = sess.catalog.Available(sess.engine.Closeness())
		return nil
	})
	return out, nil
}

// DebugSetCloseness 调试用，直接设置亲密度
func (s *GameService) DebugSetCloseness(id string, value float64) (*models.SessionState, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	var state *models.SessionState
	err = s.locks.ExecuteWithSessionLock(id, func() error {
		sess.engine.SetCloseness(value)
		sess.updatedAt = time.Now().UTC()
		state = s.stateOf(sess)
		return nil
	})
	s.logger.Info("调试：亲密度已调整", map[string]interface{}{
		"session_id": id,
		"closeness":  state.Affection.Closeness,
	})
	return state, err
}

func (s *GameService) requireStore() error {
	if s.store == nil {
		return apperrors.NewConfigError("未配置存档后端", nil)
	}
	return nil
}

// Save 把会话写入存档槽位
func (s *GameService) Save(ctx context.Context, id, slot string) (*models.SlotInfo, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	if err := storage.ValidateSlot(slot); err != nil {
		return nil, err
	}
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	var snap *models.SessionSnapshot
	_ = s.locks.ExecuteWithSessionReadLock(id, func() error {
		snap = s.snapshotOf(sess)
		return nil
	})

	if err := s.store.Save(ctx, slot, snap); err != nil {
		return nil, err
	}
	s.metrics.IncrementCounter(metricSaves)
	s.logger.Info("存档已保存", map[string]interface{}{"session_id": id, "slot": slot})

	return &models.SlotInfo{
		Slot:      slot,
		SessionID: snap.SessionID,
		Closeness: snap.Affection.Closeness,
		UpdatedAt: snap.UpdatedAt,
	}, nil
}

func (s *GameService) snapshotOf(sess *GameSession) *models.SessionSnapshot {
	return &models.SessionSnapshot{
		SessionID:     sess.ID,
		CharacterName: s.cfg.CharacterName,
		PlayerName:    s.cfg.PlayerName,
		Affection:     sess.engine.Snapshot(),
		KeywordUsage:  sess.engine.Keywords().Usage(),
		Scene:         sess.trigger.State(),
		Storylines:    sess.storylines.Fired(),
		History:       append([]models.Message(nil), sess.history...),
		LastTip:       sess.catalog.LastTip(),
		CreatedAt:     sess.createdAt,
		UpdatedAt:     sess.updatedAt,
	}
}

// Load 从存档槽位恢复会话，同 id 的内存会话会被替换
func (s *GameService) Load(ctx context.Context, slot string) (*models.SessionState, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	snap, err := s.store.Load(ctx, slot)
	if err != nil {
		return nil, err
	}

	id := snap.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	sess, err := s.buildSession(id)
	if err != nil {
		return nil, err
	}

	sess.engine.Restore(snap.Affection)
	sess.engine.Keywords().RestoreUsage(snap.KeywordUsage)
	sess.trigger.Restore(snap.Scene)
	sess.storylines.Restore(snap.Storylines)
	sess.catalog.RestoreLastTip(snap.LastTip)
	sess.history = append([]models.Message(nil), snap.History...)
	if !snap.CreatedAt.IsZero() {
		sess.createdAt = snap.CreatedAt
	}
	if !snap.UpdatedAt.IsZero() {
		sess.updatedAt = snap.UpdatedAt
	}

	err = s.locks.ExecuteWithSessionLock(id, func() error {
		s.register(sess)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementCounter(metricLoads)
	s.logger.Info("存档已读取", map[string]interface{}{"session_id": id, "slot": slot})
	return s.State(id)
}

// ListSaves 所有存档
func (s *GameService) ListSaves(ctx context.Context) ([]models.SlotInfo, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	return s.store.List(ctx)
}

// DeleteSave 删除存档
func (s *GameService) DeleteSave(ctx context.Context, slot string) error {
	if err := s.requireStore(); err != nil {
		return err
	}
	return s.store.Delete(ctx, slot)
}

// SessionIDs 当前内存中的会话，按 id 排序
func (s *GameService) SessionIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
