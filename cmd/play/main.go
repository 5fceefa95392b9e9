// cmd/play/main.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Corphon/SweetAffection/internal/app"
	"github.com/Corphon/SweetAffection/internal/config"
	"github.com/Corphon/SweetAffection/internal/models"
	"github.com/Corphon/SweetAffection/internal/services"
	"github.com/Corphon/SweetAffection/internal/utils"
)

const helpText = `可用命令：
  /confess        主动告白
  /topics         查看可聊话题
  /state          查看当前状态
  /save <存档名>   保存进度
  /load <存档名>   读取进度
  /saves          列出存档
  /help           显示帮助
  /quit           退出`

type console struct {
	game      *services.GameService
	sessionID string
	character string
	scanner   *bufio.Scanner
}

func main() {
	fmt.Println("🍰 SweetAffection 终端版")
	fmt.Println("=================================")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ 加载配置失败: %v", err)
	}

	// 终端模式下日志只写文件
	logger, closeLog := openLogger(cfg)
	defer closeLog()

	application, err := app.New(cfg, app.WithLogger(logger))
	if err != nil {
		log.Fatalf("❌ 初始化失败: %v", err)
	}
	defer application.Close()

	ctx := context.Background()
	state, err := application.Game().NewSession(ctx)
	if err != nil {
		log.Fatalf("❌ 创建会话失败: %v", err)
	}

	c := &console{
		game:      application.Game(),
		sessionID: state.SessionID,
		character: state.CharacterName,
		scanner:   bufio.NewScanner(os.Stdin),
	}
	fmt.Println(helpText)
	fmt.Println()
	fmt.Printf("%s：%s\n", c.character, state.Greeting)

	c.loop(ctx)
	fmt.Println("👋 再见！")
}

func openLogger(cfg *config.Config) (*utils.Logger, func()) {
	level := utils.ParseLevel(cfg.LogLevel)
	if cfg.LogDir == "" {
		return utils.NewLogger(nil, level), func() {}
	}
	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		log.Printf("⚠️ 无法创建日志目录: %v", err)
		return utils.NewLogger(nil, level), func() {}
	}
	path := filepath.Join(cfg.LogDir, fmt.Sprintf("play_%s.log", time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Printf("⚠️ 无法打开日志文件: %v", err)
		return utils.NewLogger(nil, level), func() {}
	}
	return utils.NewLogger(file, level), func() { file.Close() }
}

func (c *console) loop(ctx context.Context) {
	for {
		fmt.Print("\n你：")
		if !c.scanner.Scan() {
			return
		}
		input := strings.TrimSpace(c.scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := c.command(ctx, input); quit {
				return
			}
			continue
		}

		turn, err := c.game.Chat(ctx, c.sessionID, input)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			continue
		}
		c.printTurn(turn)
		if turn.Affection != nil && turn.Affection.Completed {
			fmt.Println("\n🎬 故事结束。可以 /load 读取存档，或 /quit 退出。")
		}
	}
}

func (c *console) command(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Println(helpText)
	case "/confess":
		res, err := c.game.Confess(ctx, c.sessionID)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return false
		}
		fmt.Println(res.Message)
		fmt.Printf("💗 亲密度 %.0f → %.0f\n", res.PreviousAffection, res.CurrentAffection)
	case "/topics":
		list, err := c.game.Topics(c.sessionID)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return false
		}
		fmt.Println("💬 " + strings.Join(list, "、"))
	case "/state":
		state, err := c.game.State(c.sessionID)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return false
		}
		printState(state)
	case "/save":
		info, err := c.game.Save(ctx, c.sessionID, arg)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return false
		}
		fmt.Printf("💾 已保存到 %s（亲密度 %.0f）\n", info.Slot, info.Closeness)
	case "/load":
		state, err := c.game.Load(ctx, arg)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return false
		}
		if state.SessionID != c.sessionID {
			_ = c.game.CloseSession(c.sessionID)
			c.sessionID = state.SessionID
		}
		fmt.Printf("📂 已读取 %s\n", arg)
		printState(state)
	case "/saves":
		saves, err := c.game.ListSaves(ctx)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return false
		}
		if len(saves) == 0 {
			fmt.Println("暂无存档")
		}
		for _, s := range saves {
			fmt.Printf("  %-16s 亲密度 %3.0f  %s\n", s.Slot, s.Closeness, s.UpdatedAt.Format("2006-01-02 15:04"))
		}
	default:
		fmt.Println("未知命令，输入 /help 查看帮助")
	}
	return false
}

func (c *console) printTurn(turn *models.TurnResult) {
	fmt.Printf("%s：%s\n", c.character, turn.Reply)
	if a := turn.Affection; a != nil {
		if a.Message != "" {
			fmt.Println("  " + a.Message)
		}
		fmt.Printf("  💗 亲密度 %.0f (%+.1f)\n", a.CurrentAffection, a.Delta)
	}
	if turn.Storyline != "" {
		fmt.Printf("  📖 剧情解锁：%s\n", turn.Storyline)
	}
	if turn.SceneNarration != "" {
		fmt.Println("  🌆 " + turn.SceneNarration)
	}
	if turn.Tip != "" {
		fmt.Println("  💡 " + turn.Tip)
	}
}

func printState(state *models.SessionState) {
	fmt.Printf("  💗 亲密度 %.0f  阶段 %s  心情 %.0f\n", state.Affection.Closeness, state.Phase, state.Affection.Mood)
	fmt.Printf("  🌆 %s（%s）\n", state.Scene.CurrentScene, state.Scene.CurrentTimeOfDay)
	if len(state.Storylines) > 0 {
		fmt.Printf("  📖 %s\n", strings.Join(state.Storylines, " → "))
	}
}
