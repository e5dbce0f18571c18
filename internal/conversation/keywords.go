package conversation

import (
	"strings"
)

// Button labels shared by the reply keyboards and the keyword matcher.
const (
	ButtonStart       = "Начать смену"
	ButtonSkip        = "Пропустить"
	ButtonConfirm     = "Подтвердить"
	ButtonClear       = "Очистить"
	ButtonCancel      = "❌ Отмена"
	ButtonCustomDate  = "Своя дата"
	ButtonCustomValue = "СВОЙ ВАРИАНТ"

	ButtonToday      = "Сегодня"
	ButtonTomorrow   = "Завтра"
	ButtonDayAfter   = "Послезавтра"
	ButtonYesterday  = "Вчера"
	ButtonMyShifts   = "Мои смены"
	ButtonExport     = "Экспорт данных"
	ButtonStatistics = "Статистика"
	ButtonProfile    = "👤 Профиль"
	ButtonHelp       = "Помощь"
)

type Keyword int

const (
	KeywordNone Keyword = iota
	KeywordStart
	KeywordCancel
	KeywordSkip
	KeywordConfirm
	KeywordClear
	KeywordCustom
)

var keywords = map[string]Keyword{
	"начать смену": KeywordStart,
	"/add":         KeywordStart,
	"/cancel":      KeywordCancel,
	"отмена":       KeywordCancel,
	"cancel":       KeywordCancel,
	"пропустить":   KeywordSkip,
	"skip":         KeywordSkip,
	"подтвердить":  KeywordConfirm,
	"confirm":      KeywordConfirm,
	"очистить":     KeywordClear,
	"clear":        KeywordClear,
	"своя дата":    KeywordCustom,
	"свой вариант": KeywordCustom,
	"custom":       KeywordCustom,
}

// MatchKeyword recognises control words case-insensitively. Anything carrying the cancel
// cross is a cancel regardless of the surrounding text.
func MatchKeyword(text string) Keyword {
	if strings.Contains(text, "❌") {
		return KeywordCancel
	}
	return keywords[strings.ToLower(strings.TrimSpace(text))]
}

// IsSkip reports whether text is the skip keyword.
func IsSkip(text string) bool {
	return MatchKeyword(text) == KeywordSkip
}

var (
	MainMenuKeyboard = [][]string{
		{ButtonStart, ButtonMyShifts},
		{ButtonExport, ButtonStatistics},
		{ButtonProfile, ButtonHelp},
	}

	dateKeyboard = [][]string{
		{ButtonToday, ButtonTomorrow},
		{ButtonDayAfter, ButtonYesterday},
		{ButtonCustomDate, ButtonSkip},
		{ButtonCancel},
	}

	cancelKeyboard = [][]string{{ButtonCancel}}

	skipCancelKeyboard = [][]string{{ButtonSkip, ButtonCancel}}

	timeKeyboard = [][]string{
		{"1", "2", "3"},
		{"4", "5", "6"},
		{"7", "8", "9"},
		{":", "0", "."},
		{ButtonSkip, ButtonConfirm},
		{ButtonCancel},
	}

	salaryKeyboard = [][]string{
		{"1", "2", "3"},
		{"4", "5", "6"},
		{"7", "8", "9"},
		{".", "0", ButtonClear},
		{ButtonSkip, ButtonConfirm},
		{ButtonCancel},
	}
)

// choiceKeyboard appends the custom value, skip and cancel rows to a preset grid.
func choiceKeyboard(presets [][]string) [][]string {
	rows := make([][]string, 0, len(presets)+2)
	for _, row := range presets {
		rows = append(rows, append([]string(nil), row...))
	}
	rows = append(rows, []string{ButtonCustomValue}, []string{ButtonSkip, ButtonCancel})
	return rows
}
