package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qatools/qabot/engine"
)

type fakeGenerator struct {
	out  string
	err  error
	last string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.last = prompt
	return f.out, f.err
}

func TestQABot_Workflows_Docs_RenderTestCaseAllFields(t *testing.T) {
	t.Parallel()

	out, err := renderDoc(engine.Fields{
		"doc_kind":        docKindTestCase,
		"title":           "Авторизация",
		"description":     "Проверка входа",
		"preconditions":   "Пользователь зарегистрирован",
		"steps":           []string{"Открыть приложение", "Войти"},
		"expected_result": "Главный экран открыт",
		"priority":        "Критический",
	})

	require.NoError(t, err)
	require.Contains(t, out, "*📋 ТЕСТ-КЕЙС*")
	require.Contains(t, out, "*Название:* Авторизация")
	require.Contains(t, out, "*Описание:*\nПроверка входа")
	require.Contains(t, out, "*Предусловия:*\nПользователь зарегистрирован")
	require.Contains(t, out, "1. Открыть приложение")
	require.Contains(t, out, "2. Войти")
	require.Contains(t, out, "*Ожидаемый результат:*\nГлавный экран открыт")
	require.Contains(t, out, "*Приоритет:* Критический")
	require.Contains(t, out, "*Статус:* _(Не выполнен / Провален / Пропущен / Пройден)_")
}

func TestQABot_Workflows_Docs_RenderTestCasePlaceholders(t *testing.T) {
	t.Parallel()

	out, err := renderDoc(engine.Fields{"doc_kind": docKindTestCase})

	require.NoError(t, err)
	require.Contains(t, out, "*Название:* _Не указано_")
	require.Contains(t, out, "Не указаны")
	require.Contains(t, out, "*Приоритет:* _Не указан_")
}

func TestQABot_Workflows_Docs_BugSeverityChoices(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		[]string{"Блокирующий", "Критический", "Значительный", "Незначительный", "Тривиальный"},
		bugSeverities)

	validate := Docs(nil).Steps["docs.bug_severity"].Validate
	for _, s := range bugSeverities {
		require.NoError(t, validate(s, engine.Fields{}))
	}
	require.Error(t, validate("Средний", engine.Fields{}))
}

func TestQABot_Workflows_Docs_RenderBugReport(t *testing.T) {
	t.Parallel()

	out, err := renderDoc(engine.Fields{
		"doc_kind":        docKindBugReport,
		"title":           "Падение при логине",
		"steps":           []string{"Открыть форму", "Нажать 'Войти'"},
		"actual_result":   "Приложение падает",
		"expected_result": "Открывается главный экран",
		"severity":        "Блокирующий",
		"logs":            "panic: nil pointer <goroutine 1>",
	})

	require.NoError(t, err)
	require.Contains(t, out, "*🐞 БАГ-РЕПОРТ*")
	require.Contains(t, out, "*Серьёзность:* Блокирующий")
	require.Contains(t, out, "*Логи:*\n```\npanic: nil pointer &lt;goroutine 1&gt;\n```")
	require.Contains(t, out, "*Статус:* _(Открыт)_")
	// Skipped optional sections are absent.
	require.NotContains(t, out, "*Окружение:*")
	require.NotContains(t, out, "*Curl:*")
}

func TestQABot_Workflows_Docs_RenderChecklist(t *testing.T) {
	t.Parallel()

	out, err := renderDoc(engine.Fields{
		"doc_kind": docKindChecklist,
		"title":    "Регресс логина",
		"items":    []string{"Вход по паролю", "Вход по SSO", "Сброс пароля"},
	})

	require.NoError(t, err)
	require.Contains(t, out, "*☑️ ЧЕК-ЛИСТ*")
	require.Contains(t, out, "☐ Вход по паролю")
	require.Contains(t, out, "☐ Вход по SSO")
	require.Contains(t, out, "☐ Сброс пароля")
}

func TestQABot_Workflows_Docs_RenderUnknownKindFails(t *testing.T) {
	t.Parallel()

	_, err := renderDoc(engine.Fields{"doc_kind": "поэма"})
	require.Error(t, err)
}

func TestQABot_Workflows_Docs_UserValuesAreEscaped(t *testing.T) {
	t.Parallel()

	out, err := renderDoc(engine.Fields{
		"doc_kind": docKindTestCase,
		"title":    "проверка <script> & co",
	})

	require.NoError(t, err)
	require.Contains(t, out, "проверка &lt;script&gt; &amp; co")
	require.NotContains(t, out, "<script>")
}

func TestQABot_Workflows_Docs_AcceptStepsRejectsEmpty(t *testing.T) {
	t.Parallel()

	accept := acceptSteps("steps", "нужен хотя бы один шаг")

	_, err := accept(context.Background(), " \n ", engine.Fields{})
	var vErr *engine.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, "нужен хотя бы один шаг", vErr.Reason)

	update, err := accept(context.Background(), "1. раз\n2. два", engine.Fields{})
	require.NoError(t, err)
	require.Equal(t, []string{"раз", "два"}, update.List("steps"))
}

func TestQABot_Workflows_Docs_AIDraftUsesGenerator(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{out: "  Проверяет успешный вход пользователя.  "}
	accept := draftOrStore(gen, "description", "Напиши описание: %s")

	update, err := accept(context.Background(), aiDraftButton, engine.Fields{"title": "Логин"})

	require.NoError(t, err)
	require.Equal(t, "Проверяет успешный вход пользователя.", update.String("description"))
	require.Equal(t, "Напиши описание: Логин", gen.last)
}

func TestQABot_Workflows_Docs_AIDraftFailureIsAssistError(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{err: errors.New("overloaded")}
	accept := draftOrStore(gen, "description", "Напиши описание: %s")

	_, err := accept(context.Background(), aiDraftButton, engine.Fields{"title": "Логин"})

	var aErr *engine.AssistError
	require.ErrorAs(t, err, &aErr)
}

func TestQABot_Workflows_Docs_NoGeneratorIsAssistError(t *testing.T) {
	t.Parallel()

	accept := draftOrStore(nil, "description", "Напиши описание: %s")

	_, err := accept(context.Background(), aiDraftButton, engine.Fields{})

	var aErr *engine.AssistError
	require.ErrorAs(t, err, &aErr)
}

func TestQABot_Workflows_Docs_PlainTextBypassesGenerator(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{out: "should not be used"}
	accept := draftOrStore(gen, "description", "Напиши описание: %s")

	update, err := accept(context.Background(), "моё описание", engine.Fields{})

	require.NoError(t, err)
	require.Equal(t, "моё описание", update.String("description"))
	require.Empty(t, gen.last)
}

func TestQABot_Workflows_Docs_KindRouting(t *testing.T) {
	t.Parallel()

	wf := Docs(nil)
	next := wf.Steps["docs.type"].Next

	require.Equal(t, engine.StateID("docs.tc_title"), next(engine.Fields{"doc_kind": docKindTestCase}))
	require.Equal(t, engine.StateID("docs.bug_title"), next(engine.Fields{"doc_kind": docKindBugReport}))
	require.Equal(t, engine.StateID("docs.cl_title"), next(engine.Fields{"doc_kind": docKindChecklist}))
}
