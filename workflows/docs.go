package workflows

import (
	"context"
	"fmt"
	"strings"

	"github.com/qatools/qabot/assist"
	"github.com/qatools/qabot/engine"
)

// Documentation kinds and choice buttons.
const (
	docKindTestCase  = "Тест-кейс"
	docKindBugReport = "Баг-репорт"
	docKindChecklist = "Чек-лист"

	aiDraftButton = "✨ Сгенерировать с AI"
)

var testCasePriorities = []string{"Критический", "Высокий", "Средний", "Низкий"}

var bugSeverities = []string{"Блокирующий", "Критический", "Значительный", "Незначительный", "Тривиальный"}

// Docs builds the documentation workflow: a kind choice routing into the
// test-case, bug-report or checklist sub-graph. gen powers the optional AI
// draft of the test-case description and may be nil.
func Docs(gen assist.Generator) *engine.Workflow {
	const (
		stType StateID = "docs.type"

		stTCTitle         StateID = "docs.tc_title"
		stTCDescription   StateID = "docs.tc_description"
		stTCPreconditions StateID = "docs.tc_preconditions"
		stTCSteps         StateID = "docs.tc_steps"
		stTCExpected      StateID = "docs.tc_expected"
		stTCPriority      StateID = "docs.tc_priority"

		stBugTitle       StateID = "docs.bug_title"
		stBugDescription StateID = "docs.bug_description"
		stBugSteps       StateID = "docs.bug_steps"
		stBugActual      StateID = "docs.bug_actual"
		stBugExpected    StateID = "docs.bug_expected"
		stBugEnvironment StateID = "docs.bug_environment"
		stBugSeverity    StateID = "docs.bug_severity"
		stBugLogs        StateID = "docs.bug_logs"
		stBugCurl        StateID = "docs.bug_curl"
		stBugLinks       StateID = "docs.bug_links"

		stCLTitle StateID = "docs.cl_title"
		stCLItems StateID = "docs.cl_items"
	)

	priorityKeyboard := [][]string{
		testCasePriorities[:2],
		testCasePriorities[2:],
		{SkipToken},
		{BackToken},
	}
	severityKeyboard := [][]string{
		bugSeverities[:2],
		bugSeverities[2:4],
		{bugSeverities[4]},
		{BackToken},
	}

	steps := map[StateID]engine.StepSpec{
		stType: {
			Prompt: "📝 *Создание документации*\n\nЧто нужно создать?",
			Keyboard: [][]string{
				{docKindTestCase, docKindBugReport},
				{docKindChecklist},
				{BackToken},
			},
			Field:    "doc_kind",
			Validate: oneOf("⚠️ Выбери тип документа из предложенных вариантов", docKindTestCase, docKindBugReport, docKindChecklist),
			Next: func(f engine.Fields) StateID {
				switch f.String("doc_kind") {
				case docKindBugReport:
					return stBugTitle
				case docKindChecklist:
					return stCLTitle
				default:
					return stTCTitle
				}
			},
		},

		// Тест-кейс
		stTCTitle: {
			Prompt:   "📋 *Создание тест-кейса*\n\nВведи название тест-кейса:",
			Keyboard: backRow(),
			Field:    "title",
			Next:     engine.To(stTCDescription),
		},
		stTCDescription: {
			Prompt: "📝 Введи описание тест-кейса:\n" +
				"(или нажми 'Пропустить', чтобы оставить пустым)",
			Keyboard: [][]string{{SkipToken}, {aiDraftButton}, {BackToken}},
			Field:    "description",
			Optional: true,
			Accept:   draftOrStore(gen, "description", "Напиши короткое описание тест-кейса с названием: %s"),
			Next:     engine.To(stTCPreconditions),
		},
		stTCPreconditions: {
			Prompt: "⚙️ Введи предусловия:\n" +
				"(или нажми 'Пропустить', чтобы оставить пустым)",
			Keyboard: skipBackRows(),
			Field:    "preconditions",
			Optional: true,
			Next:     engine.To(stTCSteps),
		},
		stTCSteps: {
			Prompt: "📌 Введи шаги тест-кейса:\n" +
				"(каждый шаг с новой строки или через точку с запятой)\n\n" +
				"Пример:\n" +
				"1. Открыть приложение\n" +
				"2. Ввести логин\n" +
				"3. Ввести пароль\n" +
				"4. Нажать 'Войти'",
			Keyboard: backRow(),
			Field:    "steps",
			Accept:   acceptSteps("steps", "❌ Пожалуйста, введи хотя бы один шаг тест-кейса"),
			Next:     engine.To(stTCExpected),
		},
		stTCExpected: {
			Prompt: "✅ Введи ожидаемый результат:\n" +
				"(или нажми 'Пропустить', чтобы оставить пустым)",
			Keyboard: skipBackRows(),
			Field:    "expected_result",
			Optional: true,
			Next:     engine.To(stTCPriority),
		},
		stTCPriority: {
			Prompt:   "🎯 Выбери приоритет тест-кейса:",
			Keyboard: priorityKeyboard,
			Field:    "priority",
			Optional: true,
			Validate: oneOf("⚠️ Выбери приоритет из предложенных вариантов", testCasePriorities...),
			Next:     engine.Done,
		},

		// Баг-репорт
		stBugTitle: {
			Prompt:   "🐞 *Создание баг-репорта*\n\nВведи название бага:",
			Keyboard: backRow(),
			Field:    "title",
			Next:     engine.To(stBugDescription),
		},
		stBugDescription: {
			Prompt: "📝 Введи описание бага:\n" +
				"(или нажми 'Пропустить', чтобы оставить пустым)",
			Keyboard: skipBackRows(),
			Field:    "description",
			Optional: true,
			Next:     engine.To(stBugSteps),
		},
		stBugSteps: {
			Prompt: "📌 Введи шаги воспроизведения:\n" +
				"(каждый шаг с новой строки или через точку с запятой)",
			Keyboard: backRow(),
			Field:    "steps",
			Accept:   acceptSteps("steps", "❌ Пожалуйста, введи хотя бы один шаг воспроизведения"),
			Next:     engine.To(stBugActual),
		},
		stBugActual: {
			Prompt:   "❗ Введи фактический результат:",
			Keyboard: backRow(),
			Field:    "actual_result",
			Next:     engine.To(stBugExpected),
		},
		stBugExpected: {
			Prompt:   "✅ Введи ожидаемый результат:",
			Keyboard: backRow(),
			Field:    "expected_result",
			Next:     engine.To(stBugEnvironment),
		},
		stBugEnvironment: {
			Prompt: "💻 Введи окружение (ОС, браузер, версия приложения):\n" +
				"(или нажми 'Пропустить', чтобы оставить пустым)",
			Keyboard: skipBackRows(),
			Field:    "environment",
			Optional: true,
			Next:     engine.To(stBugSeverity),
		},
		stBugSeverity: {
			Prompt:   "🚨 Выбери серьёзность бага:",
			Keyboard: severityKeyboard,
			Field:    "severity",
			Validate: oneOf("⚠️ Выбери серьёзность из предложенных вариантов", bugSeverities...),
			Next:     engine.To(stBugLogs),
		},
		stBugLogs: {
			Prompt: "📄 Вставь логи или сообщение об ошибке:\n" +
				"(или нажми 'Пропустить', чтобы оставить пустым)",
			Keyboard: skipBackRows(),
			Field:    "logs",
			Optional: true,
			Next:     engine.To(stBugCurl),
		},
		stBugCurl: {
			Prompt: "🌐 Вставь curl запроса, на котором воспроизводится баг:\n" +
				"(или нажми 'Пропустить', чтобы оставить пустым)",
			Keyboard: skipBackRows(),
			Field:    "curl",
			Optional: true,
			Next:     engine.To(stBugLinks),
		},
		stBugLinks: {
			Prompt: "🔗 Вставь ссылки на документацию или макеты:\n" +
				"(или нажми 'Пропустить', чтобы оставить пустым)",
			Keyboard: skipBackRows(),
			Field:    "links",
			Optional: true,
			Next:     engine.Done,
		},

		// Чек-лист
		stCLTitle: {
			Prompt:   "☑️ *Создание чек-листа*\n\nВведи название чек-листа:",
			Keyboard: backRow(),
			Field:    "title",
			Next:     engine.To(stCLItems),
		},
		stCLItems: {
			Prompt: "📌 Введи пункты чек-листа:\n" +
				"(каждый пункт с новой строки или через точку с запятой)",
			Keyboard: backRow(),
			Field:    "items",
			Accept:   acceptSteps("items", "❌ Пожалуйста, введи хотя бы один пункт чек-листа"),
			Next:     engine.Done,
		},
	}

	return &engine.Workflow{
		Name:         "docs",
		Command:      "/docs",
		Button:       "📝 Создать документацию",
		Entry:        stType,
		Steps:        steps,
		Render:       renderDoc,
		RepeatPrompt: "Хочешь создать ещё один документ?",
	}
}

// acceptSteps normalizes list input: split, strip enumeration, reject empty.
func acceptSteps(field, emptyReason string) func(context.Context, string, engine.Fields) (engine.Fields, error) {
	return func(_ context.Context, input string, _ engine.Fields) (engine.Fields, error) {
		items := splitItems(input)
		if len(items) == 0 {
			return nil, engine.Invalid("%s", emptyReason)
		}
		return engine.Fields{field: items}, nil
	}
}

// draftOrStore stores the input as-is, or drafts it with the assistant
// when the AI button is pressed. An unavailable assistant re-prompts the
// step without touching the session.
func draftOrStore(gen assist.Generator, field, promptFormat string) func(context.Context, string, engine.Fields) (engine.Fields, error) {
	return func(ctx context.Context, input string, f engine.Fields) (engine.Fields, error) {
		if input != aiDraftButton {
			return engine.Fields{field: input}, nil
		}
		if gen == nil {
			return nil, &engine.AssistError{Err: fmt.Errorf("generator not configured")}
		}
		draft, err := gen.Generate(ctx, fmt.Sprintf(promptFormat, f.String("title")))
		if err != nil {
			return nil, &engine.AssistError{Err: err}
		}
		return engine.Fields{field: strings.TrimSpace(draft)}, nil
	}
}

func renderDoc(f engine.Fields) (string, error) {
	switch f.String("doc_kind") {
	case docKindBugReport:
		return renderBugReport(f), nil
	case docKindChecklist:
		return renderChecklist(f), nil
	case docKindTestCase:
		return renderTestCase(f), nil
	default:
		return "", fmt.Errorf("unknown documentation kind %q", f.String("doc_kind"))
	}
}

func renderTestCase(f engine.Fields) string {
	var b strings.Builder
	b.WriteString("*📋 ТЕСТ-КЕЙС*\n\n")
	writeInlineSection(&b, "Название", f.String("title"), "Не указано")
	writeBlockSection(&b, "Описание", f.String("description"))
	writeBlockSection(&b, "Предусловия", f.String("preconditions"))
	writeListSection(&b, "Шаги выполнения", f.List("steps"), "Не указаны")
	writeBlockSection(&b, "Ожидаемый результат", f.String("expected_result"))
	writeInlineSection(&b, "Приоритет", f.String("priority"), "Не указан")
	b.WriteString("*Фактический результат:* _(заполняется при выполнении)_\n")
	b.WriteString("*Статус:* _(Не выполнен / Провален / Пропущен / Пройден)_")
	return b.String()
}

func renderBugReport(f engine.Fields) string {
	var b strings.Builder
	b.WriteString("*🐞 БАГ-РЕПОРТ*\n\n")
	writeInlineSection(&b, "Название", f.String("title"), "Не указано")
	writeBlockSection(&b, "Описание", f.String("description"))
	writeListSection(&b, "Шаги воспроизведения", f.List("steps"), "Не указаны")
	writeInlineSection(&b, "Фактический результат", f.String("actual_result"), "Не указан")
	writeInlineSection(&b, "Ожидаемый результат", f.String("expected_result"), "Не указан")
	writeBlockSection(&b, "Окружение", f.String("environment"))
	writeInlineSection(&b, "Серьёзность", f.String("severity"), "Не указана")
	if f.Has("logs") {
		b.WriteString("*Логи:*\n```\n" + engine.Escape(f.String("logs")) + "\n```\n\n")
	}
	writeBlockSection(&b, "Curl", f.String("curl"))
	writeBlockSection(&b, "Ссылки", f.String("links"))
	b.WriteString("*Статус:* _(Открыт)_")
	return b.String()
}

func renderChecklist(f engine.Fields) string {
	var b strings.Builder
	b.WriteString("*☑️ ЧЕК-ЛИСТ*\n\n")
	writeInlineSection(&b, "Название", f.String("title"), "Не указано")
	items := f.List("items")
	b.WriteString("*Пункты:*\n")
	for _, item := range items {
		b.WriteString("☐ " + engine.Escape(item) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// writeInlineSection always renders the label, falling back to the
// placeholder when the value is empty.
func writeInlineSection(b *strings.Builder, label, value, placeholder string) {
	if strings.TrimSpace(value) == "" {
		value = placeholder
		fmt.Fprintf(b, "*%s:* _%s_\n\n", label, value)
		return
	}
	fmt.Fprintf(b, "*%s:* %s\n\n", label, engine.Escape(value))
}

// writeBlockSection omits the whole labeled section for empty optional
// values.
func writeBlockSection(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "*%s:*\n%s\n\n", label, engine.Escape(value))
}

// writeListSection renders a 1-based enumeration; enumeration stripping
// happened at accept time.
func writeListSection(b *strings.Builder, label string, items []string, placeholder string) {
	fmt.Fprintf(b, "*%s:*\n", label)
	if len(items) == 0 {
		b.WriteString(placeholder + "\n\n")
		return
	}
	for i, item := range items {
		fmt.Fprintf(b, "%d. %s\n", i+1, engine.Escape(item))
	}
	b.WriteString("\n")
}
