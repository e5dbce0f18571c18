package bot

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shift-tracker/backend/internal/conversation"
	"github.com/shift-tracker/backend/internal/domain"
	"github.com/shift-tracker/backend/internal/utils"
)

var monthNames = [...]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

// monthLabel turns "2024-03" into "Март 2024".
func monthLabel(month string) string {
	var year, m int
	if _, err := fmt.Sscanf(month, "%d-%d", &year, &m); err != nil || m < 1 || m > 12 {
		return month
	}
	return fmt.Sprintf("%s %d", monthNames[m-1], year)
}

func (b *Bot) welcome(user *domain.User) []domain.Outbound {
	text := utils.EmojiSuccess + " Добро пожаловать в бот учета смен!\n\n" +
		utils.EmojiUser + fmt.Sprintf(" Твой ID: %d\n\n", user.ID) +
		"Этот бот поможет тебе вести учет рабочих смен.\n\n" +
		"Доступные функции:\n" +
		"• Добавление новых смен\n" +
		"• Просмотр всех смен\n" +
		"• Редактирование и удаление\n" +
		"• Экспорт данных\n" +
		"• Статистика заработка\n" +
		"• Доступ к веб-версии\n\n" +
		"Используй кнопки меню для навигации."
	return reply(text)
}

func (b *Bot) help() []domain.Outbound {
	text := utils.EmojiInfo + " Помощь по использованию бота\n\n" +
		"Основные команды:\n" +
		"• Начать смену - добавить новую смену\n" +
		"• Мои смены - посмотреть все смены\n" +
		"• Экспорт данных - скачать данные в JSON\n" +
		"• Статистика - просмотр статистики\n" +
		"• 👤 Профиль - информация о профиле и API токен\n" +
		"• Помощь - это сообщение\n\n" +
		"Как добавить смену:\n" +
		"1. Выбери дату или введи свою\n" +
		"2. Выбери роль (можно пропустить)\n" +
		"3. Выбери программу\n" +
		"4. Введи время начала и окончания\n" +
		"5. Укажи гонорар\n\n" +
		"Форматы ввода:\n" +
		"• Время: 1830 или 18:30\n" +
		"• Дата: 1503 для 15.03\n" +
		"• Гонорар: в рублях (10000 или 7500)\n\n" +
		utils.EmojiCancel + " Кнопка «Отмена» доступна на каждом шаге добавления смены\n\n" +
		"По вопросам пиши " + b.support
	return reply(text)
}

func (b *Bot) profile(user *domain.User) []domain.Outbound {
	stats, err := b.store.GetUserStatistics(user.ID)
	if err != nil {
		slog.Error("failed to load statistics", "userID", user.ID, "error", err)
		return reply(utils.EmojiWarning + " Не удалось загрузить профиль.")
	}

	username := "Не указан"
	if user.Username != nil && *user.Username != "" {
		username = "@" + *user.Username
	}

	text := utils.EmojiUser + " Твой профиль\n\n" +
		fmt.Sprintf("ID: %d\n", user.ID) +
		"Имя: " + user.DisplayName() + "\n" +
		"Username: " + username + "\n\n" +
		"Статистика:\n" +
		fmt.Sprintf("• Всего смен: %d\n", stats.TotalShifts) +
		"• Общий заработок: " + utils.FormatAmount(stats.TotalSalary) + " ₽\n\n" +
		utils.EmojiLink + " Доступ к веб-версии:\n" +
		"Твой токен API:\n" + user.APIToken + "\n\n" +
		utils.EmojiWarning + " Не делись токеном с другими!"

	buttons := [][]domain.InlineButton{
		{{Text: "🔄 Сгенерировать новый токен", Data: callbackRegenerateToken}},
		{{Text: "📊 Подробная статистика", Data: callbackDetailedStats}},
	}
	if b.codes != nil {
		buttons = append(buttons, []domain.InlineButton{{Text: utils.EmojiLink + " Код для входа на сайт", Data: callbackLoginCode}})
	}

	return []domain.Outbound{{Text: text, Inline: buttons}}
}

func statisticsText(stats *domain.Statistics, title string, months int) string {
	var sb strings.Builder
	sb.WriteString("📊 " + title + "\n\n")
	sb.WriteString("Общие показатели:\n")
	sb.WriteString(fmt.Sprintf("• Всего смен: %d\n", stats.TotalShifts))
	sb.WriteString("• Общий заработок: " + utils.FormatAmount(stats.TotalSalary) + " ₽\n")
	sb.WriteString("• Средний заработок за смену: " + utils.FormatAmount(stats.AverageSalary()) + " ₽\n\n")
	sb.WriteString("По месяцам:")

	if len(stats.MonthlyStats) == 0 {
		sb.WriteString("\nнет смен с датой")
	}
	for i, m := range stats.MonthlyStats {
		if i == months {
			break
		}
		sb.WriteString(fmt.Sprintf("\n• %s: %d смен, %s ₽", monthLabel(m.Month), m.Count, utils.FormatAmount(m.Salary)))
	}
	return sb.String()
}

// statistics shows the last six months, or all twelve when detailed.
func (b *Bot) statistics(user *domain.User, detailed bool) []domain.Outbound {
	stats, err := b.store.GetUserStatistics(user.ID)
	if err != nil {
		slog.Error("failed to load statistics", "userID", user.ID, "error", err)
		return reply(utils.EmojiWarning + " Не удалось загрузить статистику.")
	}

	if detailed {
		return []domain.Outbound{{Text: statisticsText(stats, "Подробная статистика", len(stats.MonthlyStats)), Edit: true}}
	}
	return reply(statisticsText(stats, "Твоя статистика", 6))
}

func (b *Bot) export(user *domain.User) []domain.Outbound {
	shifts, err := b.store.GetShiftsByUser(user.ID)
	if err != nil {
		slog.Error("failed to load shifts for export", "userID", user.ID, "error", err)
		return reply(utils.EmojiWarning + " Произошла ошибка при экспорте данных.")
	}
	if len(shifts) == 0 {
		return reply(utils.EmojiInfo + " У тебя пока нет смен для экспорта.")
	}

	now := b.now()
	content, err := json.MarshalIndent(domain.NewExport(user.ID, shifts, now), "", "  ")
	if err != nil {
		slog.Error("failed to encode export", "userID", user.ID, "error", err)
		return reply(utils.EmojiWarning + " Произошла ошибка при экспорте данных.")
	}

	return []domain.Outbound{{
		Text:     utils.EmojiSuccess + " Экспорт данных о сменах\n" + utils.EmojiLink + " Войти в веб-версию можно по API токену из профиля",
		Keyboard: conversation.MainMenuKeyboard,
		Document: &domain.Document{
			Filename: domain.ExportFilename(user.ID, now),
			Content:  content,
		},
	}}
}
