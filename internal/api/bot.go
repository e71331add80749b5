package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vision-batch/internal/domain/entity"
	"vision-batch/internal/domain/port"
)

const (
	msgStart = `👋 Привет! Я присылаю итоги пакетной обработки изображений.

📋 Команды:
/runs — последние запуски
/run <id> — подробности запуска
/help — справка`

	msgHelp = `ℹ️ После каждого запуска бот отправляет сводку: число папок, изображений и найденных объектов.

📋 Команды:
/runs — последние запуски
/run <id> — подробности запуска`

	msgNoStorage      = "⚠️ Хранилище результатов не настроено."
	msgNoRuns         = "📭 Запусков пока нет."
	msgRunUsage       = "❓ Укажите номер запуска: /run <id>"
	msgRunNotFound    = "❓ Запуск не найден."
	msgUnknownCommand = "❓ Неизвестная команда. Используйте /help для справки."
	msgStorageError   = "⚠️ Не удалось прочитать результаты."
)

const (
	maxListedRuns    = 10
	maxListedFolders = 20
	maxListedClasses = 5
)

// Bot отправляет сводки запусков и отвечает на команды в Telegram
type Bot struct {
	api    *tgbotapi.BotAPI
	chatID int64
	repo   port.ResultRepository
	logger *slog.Logger
}

// NewBot создаёт бота; chatID получает сводки, repo может быть nil
func NewBot(token string, chatID int64, repo port.ResultRepository, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newBot(api, chatID, repo, logger), nil
}

func newBot(api *tgbotapi.BotAPI, chatID int64, repo port.ResultRepository, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("authorized on telegram", "account", api.Self.UserName)

	return &Bot{
		api:    api,
		chatID: chatID,
		repo:   repo,
		logger: logger,
	}
}

// Run обрабатывает входящие команды до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// NotifyCompleted отправляет сводку завершённого запуска
func (b *Bot) NotifyCompleted(ctx context.Context, run *entity.Run) error {
	if run == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(b.chatID, formatRun(run))
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send run summary: %w", err)
	}
	return nil
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
		return
	}

	switch msg.Command() {
	case "start":
		b.sendMessage(msg.Chat.ID, msgStart)

	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)

	case "runs":
		b.handleRuns(ctx, msg.Chat.ID)

	case "run":
		b.handleRun(ctx, msg.Chat.ID, msg.CommandArguments())

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

func (b *Bot) handleRuns(ctx context.Context, chatID int64) {
	if b.repo == nil {
		b.sendMessage(chatID, msgNoStorage)
		return
	}

	runs, err := b.repo.ListRuns(ctx)
	if err != nil {
		b.logger.Error("failed to list runs", "error", err)
		b.sendMessage(chatID, msgStorageError)
		return
	}
	if len(runs) == 0 {
		b.sendMessage(chatID, msgNoRuns)
		return
	}

	var sb strings.Builder
	sb.WriteString("🗂 Последние запуски:\n")
	for i, run := range runs {
		if i == maxListedRuns {
			break
		}
		fmt.Fprintf(&sb, "#%d %s: %d изобр., %d объектов\n",
			run.ID, run.RootPath, run.Stats.ProcessedImages, run.Stats.TotalDetections)
	}
	b.sendMessage(chatID, sb.String())
}

func (b *Bot) handleRun(ctx context.Context, chatID int64, args string) {
	if b.repo == nil {
		b.sendMessage(chatID, msgNoStorage)
		return
	}

	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		b.sendMessage(chatID, msgRunUsage)
		return
	}

	run, err := b.repo.GetRun(ctx, id)
	if err != nil {
		b.logger.Debug("run lookup failed", "id", id, "error", err)
		b.sendMessage(chatID, msgRunNotFound)
		return
	}
	b.sendMessage(chatID, formatRun(run))
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("error sending message", "error", err)
	}
}

// formatRun сводка запуска: итоговая строка, папки и самые частые классы
func formatRun(run *entity.Run) string {
	var sb strings.Builder

	if run.ID > 0 {
		fmt.Fprintf(&sb, "✅ Запуск #%d: %s\n", run.ID, run.RootPath)
	} else {
		fmt.Fprintf(&sb, "✅ Запуск: %s\n", run.RootPath)
	}
	sb.WriteString(run.Stats.Summary())
	sb.WriteString("\n")

	if len(run.Folders) > 0 {
		sb.WriteString("\n📁 Папки:\n")
		for i, folder := range run.Folders {
			if i == maxListedFolders {
				fmt.Fprintf(&sb, "… и ещё %d\n", len(run.Folders)-maxListedFolders)
				break
			}
			sb.WriteString(folder.Summary())
			sb.WriteString("\n")
		}
	}

	if classes := topClasses(run, maxListedClasses); len(classes) > 0 {
		sb.WriteString("\n🔎 Объекты:\n")
		for _, c := range classes {
			fmt.Fprintf(&sb, "%s: %d\n", c.name, c.count)
		}
	}

	return sb.String()
}

type classCount struct {
	name  string
	count int
}

func topClasses(run *entity.Run, limit int) []classCount {
	counts := make(map[string]int)
	for _, folder := range run.Folders {
		for _, img := range folder.Images {
			for _, det := range img.Detections {
				counts[det.ClassName]++
			}
		}
	}

	out := make([]classCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, classCount{name: name, count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

var _ port.RunNotifier = (*Bot)(nil)
