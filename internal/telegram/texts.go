package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/renkagod/birthday-notifier-bot/internal/domain"
)

const (
	helpText = "👋 Hi! I remind you about birthdays.\n\n" +
		"/add Name DD.MM.YYYY — add a birthday (or just /add for step-by-step)\n" +
		"/list — show your birthdays\n" +
		"/edit — change a name or tag\n" +
		"/delete — remove a record\n" +
		"/settime HH:MM — when daily reminders arrive\n" +
		"/intervals — which reminders you get\n" +
		"/import — upload a list (Name;DD.MM.YYYY per line)\n" +
		"/cancel — abort the current step"

	promptName       = "Whose birthday is it? Send a name (optionally with a tag):\nDasha @dasha"
	promptDecade     = "Pick the birth decade:"
	promptYear       = "Pick the year:"
	promptMonth      = "Pick the month:"
	promptDay        = "Pick the day:"
	promptDelete     = "Which record should I remove? Send its number:"
	promptEdit       = "Which record do you want to edit? Send its number:"
	promptNotifyTime = "What time should daily reminders arrive? Send HH:MM, e.g. 09:30"
	promptIntervals  = "Toggle the reminders you want:"
	promptImport     = "Send a text file, one record per line:\nName;DD.MM.YYYY\nName;DD.MM.YYYY;@tag"

	errAddUsage  = "❌ Format: /add Name DD.MM.YYYY (e.g. /add Dasha 25.05.1990)"
	errBadDate   = "❌ That date doesn't look right. Use DD.MM.YYYY, e.g. 25.05.1990."
	errBadName   = "❌ Please send a name up to 64 characters."
	errBadTime   = "❌ Use HH:MM, e.g. 09:30."
	errBadIndex  = "❌ Send one of the numbers from the list, or /cancel."
	errNoSuchDay = "❌ That month has no such day — pick again."
	errStore     = "Something went wrong on my side. Please try again."
	errImport    = "Couldn't read that file. Please try again."
)

func decadeKeyboard() tgbotapi.InlineKeyboardMarkup {
	latest := time.Now().Year() / 10 * 10
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for decade := 1930; decade <= latest; decade += 10 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%ds", decade), fmt.Sprintf("decade:%d", decade)))
		if len(row) == 5 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func yearKeyboard(decade int) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for y := decade; y < decade+10 && y <= time.Now().Year(); y++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d", y), fmt.Sprintf("year:%d", y)))
		if len(row) == 5 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func monthKeyboard() tgbotapi.InlineKeyboardMarkup {
	names := []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < 12; i += 4 {
		var row []tgbotapi.InlineKeyboardButton
		for j := i; j < i+4; j++ {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(names[j], fmt.Sprintf("month:%d", j+1)))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func dayKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for d := 1; d <= 31; d++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d", d), fmt.Sprintf("day:%d", d)))
		if len(row) == 7 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// markerLabels in keyboard order, farthest lead first.
var markerLabels = []struct {
	m     domain.Marker
	label string
}{
	{domain.MarkerMonth, "a month before"},
	{domain.MarkerWeek, "a week before"},
	{domain.Marker3Days, "3 days before"},
	{domain.MarkerTomorrow, "the day before"},
	{domain.Marker30Min, "30 minutes before"},
	{domain.Marker5Min, "5 minutes before"},
	{domain.MarkerDayOf, "on the day"},
}

func intervalsKeyboard(st domain.Settings) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, ml := range markerLabels {
		mark := "▫️"
		if st.Has(ml.m) {
			mark = "✅"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(mark+" "+ml.label, "iv:"+ml.m.String()),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Done", "iv_done"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func describeMarkers(ms []domain.Marker) string {
	if len(ms) == 0 {
		return "none"
	}
	var parts []string
	for _, ml := range markerLabels {
		for _, m := range ms {
			if m == ml.m {
				parts = append(parts, ml.label)
			}
		}
	}
	return strings.Join(parts, ", ")
}
