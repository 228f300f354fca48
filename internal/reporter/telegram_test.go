package reporter

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ds-job-scraper/internal/models"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `Data Scientist \(NLP\) \- Tel\-Aviv\.`, EscapeMarkdown("Data Scientist (NLP) - Tel-Aviv."))
}

func TestFormatSummary(t *testing.T) {
	s := RunSummary{
		CollectedAt: time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC),
		Duration:    95 * time.Second,
		Sources: []SourceSummary{
			{Name: "greenhouse", Kind: models.SourceBoardAPI, Raw: 40, Kept: 3},
			{Name: "linkedin", Kind: models.SourceBrowser, Error: "no storage state"},
		},
		BatchSize:   3,
		ArchiveSize: 120,
		New: []models.JobRecord{
			{JobTitle: "Data Scientist", Company: "Acme", URL: "https://x/1"},
			{JobTitle: "ML Engineer", URL: "https://x/(2)"},
		},
	}
	text := FormatSummary(s)

	assert.Contains(t, text, "📦 Batch: 3, new: 2, archive: 120")
	assert.Contains(t, text, "✅ greenhouse: 3/40 kept")
	assert.Contains(t, text, "❌ linkedin: no storage state")
	assert.Contains(t, text, "• [Data Scientist](https://x/1) @ Acme")
	assert.Contains(t, text, `(https://x/(2\)) @ N/A`)
	assert.Contains(t, text, "2024\\-06\\-01 06:00 UTC")
}

func TestFormatSummary_CapsList(t *testing.T) {
	var recs []models.JobRecord
	for i := 0; i < maxListedJobs+5; i++ {
		recs = append(recs, models.JobRecord{JobTitle: "DS", Company: "C", URL: fmt.Sprintf("https://x/%d", i)})
	}
	text := FormatSummary(RunSummary{New: recs})
	assert.Equal(t, maxListedJobs, strings.Count(text, "• "))
	assert.Contains(t, text, "and 5 more")
}

func TestTelegramReporter_Send(t *testing.T) {
	fake := &fakeSender{}
	r := NewWithSender(fake, 42)

	require.NoError(t, r.SendRunSummary(RunSummary{BatchSize: 1}))
	require.NoError(t, r.SendError(errors.New("archive write failed.")))
	require.Len(t, fake.sent, 2)
	assert.Equal(t, int64(42), fake.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, fake.sent[0].ParseMode)
	assert.Equal(t, `❌ Error: archive write failed\.`, fake.sent[1].Text)

	fake.err = errors.New("429")
	assert.Error(t, r.SendRunSummary(RunSummary{}))
}
