// internal/affection/state.go
package affection

import (
	"github.com/Corphon/SweetAffection/internal/models"
)

// Confess 玩家主动告白
func (e *Engine) Confess() (models.ConfessionResult, error) {
	prev := e.st.closeness
	if e.st.completed {
		return models.ConfessionResult{
			Message:           confessFinished,
			Ending:            e.st.ending,
			PreviousAffection: prev,
			CurrentAffection:  prev,
			Completed:         true,
		}, ErrSessionCompleted
	}

	c := e.cfg.Confession
	res := models.ConfessionResult{PreviousAffection: prev}

	if prev >= c.SuccessCloseness && len(e.st.redFlags) <= c.MaxRedFlags {
		res.Success = true
		if prev >= c.PerfectCloseness {
			e.addCloseness(c.PerfectBonus)
			e.endWith(models.EndingPerfect)
			res.Message = e.say(confessPerfect)
		} else {
			e.addCloseness(c.GoodBonus)
			e.endWith(models.EndingGood)
			res.Message = e.say(confessGood)
		}
	} else {
		switch {
		case prev < c.BadEndingBelow:
			e.st.closeness = 0
			e.endWith(models.EndingBad)
			res.Message = e.say(confessCritical)
		case prev < c.HeavyPenaltyBelow:
			e.addCloseness(-c.HeavyPenalty)
			res.Message = e.say(confessHeavy)
		default:
			e.addCloseness(-c.LightPenalty)
			res.Message = e.say(confessLight)
		}
	}

	res.CurrentAffection = e.st.closeness
	res.Ending = e.st.ending
	res.Completed = e.st.completed

	e.logger.Info("玩家告白", map[string]interface{}{
		"success":   res.Success,
		"previous":  prev,
		"closeness": res.CurrentAffection,
		"ending":    res.Ending,
	})
	return res, nil
}

// SetCloseness 调试用，直接设置亲密度
func (e *Engine) SetCloseness(v float64) {
	e.st.closeness = clamp(v, 0, 100)
}

// SocialRisk 由连续无聊/失礼次数与耐心推导
func (e *Engine) SocialRisk() models.SocialRisk {
	switch {
	case e.st.boringStreak > 3 || e.st.rudeStreak > 1:
		return models.RiskHigh
	case e.st.boringStreak > 1 || e.st.patience < 50:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// Phase 关系阶段
func (e *Engine) Phase() models.Phase {
	return PhaseOf(e.st.closeness)
}

// PhaseOf 亲密度对应的关系阶段
func PhaseOf(closeness float64) models.Phase {
	switch {
	case closeness >= 90:
		return models.PhaseRomantic
	case closeness >= 75:
		return models.PhaseCloseFriend
	case closeness >= 50:
		return models.PhaseFriend
	case closeness >= 30:
		return models.PhaseAcquaintance
	default:
		return models.PhaseStranger
	}
}

// CheckEnding 亲密度到达边界时的结局，未到边界返回 EndingNone
func (e *Engine) CheckEnding() models.Ending {
	switch {
	case e.st.closeness <= 0:
		return models.EndingBad
	case e.st.closeness >= 100:
		return models.EndingGood
	default:
		return models.EndingNone
	}
}

// Snapshot 导出可持久化的状态
func (e *Engine) Snapshot() models.AffectionSnapshot {
	return models.AffectionSnapshot{
		Closeness:           e.st.closeness,
		Mood:                e.st.mood,
		Patience:            e.st.patience,
		SocialBalance:       e.st.socialBalance,
		RedFlags:            append([]string(nil), e.st.redFlags...),
		RecentInputs:        append([]string(nil), e.st.recentInputs...),
		BoringStreak:        e.st.boringStreak,
		RudeStreak:          e.st.rudeStreak,
		ConfessionTriggered: e.st.confessionTriggered,
		ConfessionResponse:  e.st.confessionResponse,
		Ending:              e.st.ending,
		Completed:           e.st.completed,
	}
}

// Restore 从快照恢复，数值越界时截断
func (e *Engine) Restore(s models.AffectionSnapshot) {
	recent := append([]string(nil), s.RecentInputs...)
	if over := len(recent) - e.cfg.RecentInputWindow; over > 0 {
		recent = recent[over:]
	}
	e.st = state{
		closeness:           clamp(s.Closeness, 0, 100),
		mood:                clamp(s.Mood, 0, 100),
		patience:            clamp(s.Patience, 0, 100),
		socialBalance:       clamp(s.SocialBalance, 0, 100),
		redFlags:            append([]string(nil), s.RedFlags...),
		recentInputs:        recent,
		boringStreak:        s.BoringStreak,
		rudeStreak:          s.RudeStreak,
		confessionTriggered: s.ConfessionTriggered,
		confessionResponse:  s.ConfessionResponse,
		ending:              s.Ending,
		completed:           s.Completed,
	}
}
