package reporter

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ds-job-scraper/internal/models"
)

// maxListedJobs caps the new postings listed in one summary
const maxListedJobs = 10

// Sender is the part of the bot API the reporter uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramReporter struct {
	bot    Sender
	chatID int64
}

func NewTelegramReporter(token string, chatID int64) (*TelegramReporter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return &TelegramReporter{bot: bot, chatID: chatID}, nil
}

func NewWithSender(bot Sender, chatID int64) *TelegramReporter {
	return &TelegramReporter{bot: bot, chatID: chatID}
}

type SourceSummary struct {
	Name  string
	Kind  models.Source
	Raw   int
	Kept  int
	Error string
}

// RunSummary is what a run reports once the archive is persisted
type RunSummary struct {
	SnapshotID  string
	CollectedAt time.Time
	Duration    time.Duration
	Sources     []SourceSummary
	BatchSize   int
	ArchiveSize int
	// New holds batch records whose URL was not in the archive before
	New []models.JobRecord
}

func (t *TelegramReporter) SendRunSummary(s RunSummary) error {
	return t.send(FormatSummary(s), true)
}

func (t *TelegramReporter) SendError(err error) error {
	return t.send("❌ Error: "+EscapeMarkdown(err.Error()), false)
}

func (t *TelegramReporter) send(text string, preview bool) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = !preview
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// FormatSummary renders a MarkdownV2 run summary
func FormatSummary(s RunSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 *Job scrape %s*\n", EscapeMarkdown(s.CollectedAt.UTC().Format("2006-01-02 15:04 MST")))
	fmt.Fprintf(&b, "📦 Batch: %d, new: %d, archive: %d\n", s.BatchSize, len(s.New), s.ArchiveSize)
	if s.Duration > 0 {
		fmt.Fprintf(&b, "⏱ %s\n", EscapeMarkdown(s.Duration.Round(time.Second).String()))
	}

	b.WriteString("\n")
	for _, src := range s.Sources {
		if src.Error != "" {
			fmt.Fprintf(&b, "❌ %s: %s\n", EscapeMarkdown(src.Name), EscapeMarkdown(truncate(src.Error, 120)))
			continue
		}
		fmt.Fprintf(&b, "✅ %s: %d/%d kept\n", EscapeMarkdown(src.Name), src.Kept, src.Raw)
	}

	if len(s.New) > 0 {
		b.WriteString("\n🆕 *New postings*\n")
		for i, r := range s.New {
			if i == maxListedJobs {
				fmt.Fprintf(&b, "…and %d more\n", len(s.New)-maxListedJobs)
				break
			}
			company := r.Company
			if company == "" {
				company = "N/A"
			}
			fmt.Fprintf(&b, "• [%s](%s) @ %s\n",
				EscapeMarkdown(r.JobTitle), escapeURL(r.URL), EscapeMarkdown(company))
		}
	}
	return b.String()
}

var markdownReplacer = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(",
	")", "\\)", "~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#",
	"+", "\\+", "-", "\\-", "=", "\\=", "|", "\\|", "{", "\\{",
	"}", "\\}", ".", "\\.", "!", "\\!",
)

// EscapeMarkdown escapes MarkdownV2 reserved characters
func EscapeMarkdown(text string) string {
	return markdownReplacer.Replace(text)
}

// inside (...) of a link only ) and \ need escaping
func escapeURL(u string) string {
	return strings.NewReplacer("\\", "\\\\", ")", "\\)").Replace(u)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
