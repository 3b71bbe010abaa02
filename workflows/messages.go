package workflows

import "github.com/qatools/qabot/engine"

// Protocol constants: button labels and the back-to-menu phrase are part of
// the micro text protocol and must match what the router expects exactly.
const (
	BackToken   = "Назад в меню"
	SkipToken   = "Пропустить"
	RepeatToken = "✨ Создать ещё"
	InfoButton  = "Информация"
)

const (
	welcomeMsg = "Привет!👋 Я QA Ai Assistant 🤖\n\nВыбери, что нужно сделать:"
	menuMsg    = "Выбери, что нужно сделать:"
	helpMsg    = "Доступные команды:\n" +
		"/file - 🗂 Создать файл\n" +
		"/pairwise - 🧪 Создать Pairwise тест\n" +
		"/datavalidator - 📑 Валидатор данных JSON/XML/YAML\n" +
		"/docs - 📝 Создать документацию (тест-кейс, чек-лист, баг-репорт)\n" +
		"/testdata - 👥 Создать тестовые данные\n" +
		"/timestamp - 🕐 Конвертировать Timestamp\n" +
		"/sql - 🗃 Сгенерировать SQL\n" +
		"/api - 🔍 Проверить API\n" +
		"/cancel - отмена текущей операции\n" +
		"/help - вызов справки\n\n" +
		"ℹ️ Или используй кнопки меню ниже 👇"

	cancelledMsg  = "✅ Операция отменена"
	failureMsg    = "❌ Что-то пошло не так. Попробуй ещё раз"
	useButtonsMsg = "Пожалуйста, используй кнопки"
	emptyInputMsg = "❌ Пустое сообщение. Введи значение или используй кнопки"
	assistDownMsg = "❌ AI-помощник сейчас недоступен. Введи текст вручную или попробуй позже"
	repeatPrompt  = "Хочешь создать ещё?"
)

func mainMenu() [][]string {
	return [][]string{
		{"🗂 Создать файл", "🧪 Создать Pairwise тест"},
		{"🔍 Проверить API", "📑 Проверить JSON XML YAML"},
		{"📝 Создать документацию", "👥 Создать тестовые данные"},
		{"🕐 Конвертировать Timestamp", "🗃 Сгенерировать SQL"},
		{InfoButton},
	}
}

func backRow() [][]string {
	return [][]string{{BackToken}}
}

func skipBackRows() [][]string {
	return [][]string{{SkipToken}, {BackToken}}
}

// Proto returns the text-protocol configuration the engine dispatches with.
func Proto() engine.Protocol {
	return engine.Protocol{
		Welcome:      welcomeMsg,
		Menu:         menuMsg,
		Help:         helpMsg,
		MenuKeyboard: mainMenu(),
		BackToken:    BackToken,
		SkipToken:    SkipToken,
		RepeatToken:  RepeatToken,
		InfoButton:   InfoButton,
		Cancelled:    cancelledMsg,
		Failure:      failureMsg,
		UseButtons:   useButtonsMsg,
		EmptyInput:   emptyInputMsg,
		AssistDown:   assistDownMsg,
		RepeatPrompt: repeatPrompt,
	}
}
