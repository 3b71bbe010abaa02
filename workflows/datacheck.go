package workflows

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/qatools/qabot/engine"
)

// DataCheck builds the JSON/XML/YAML syntax validation workflow. The
// check runs at accept time; rendering only formats the stored verdict.
func DataCheck() *engine.Workflow {
	const (
		stFormat StateID = "datacheck.format"
		stData   StateID = "datacheck.data"
	)

	formats := []string{"JSON", "XML", "YAML"}

	steps := map[StateID]engine.StepSpec{
		stFormat: {
			Prompt: "📑 *Валидатор данных*\n\nВыбери формат:",
			Keyboard: [][]string{
				{"JSON", "XML"},
				{"YAML"},
				{BackToken},
			},
			Field:    "format",
			Validate: oneOf("⚠️ Выбери формат из предложенных вариантов", formats...),
			Next:     engine.To(stData),
		},
		stData: {
			Prompt:   "Вставь данные для проверки:",
			Keyboard: backRow(),
			Field:    "data",
			Accept: func(_ context.Context, input string, f engine.Fields) (engine.Fields, error) {
				verdict := ""
				if err := checkSyntax(f.String("format"), input); err != nil {
					verdict = err.Error()
				}
				return engine.Fields{"data": input, "verdict": verdict}, nil
			},
			Next: engine.Done,
		},
	}

	return &engine.Workflow{
		Name:         "datacheck",
		Command:      "/datavalidator",
		Button:       "📑 Проверить JSON XML YAML",
		Entry:        stFormat,
		Steps:        steps,
		Render:       renderDataCheck,
		RepeatPrompt: "Хочешь проверить ещё?",
	}
}

// checkSyntax returns nil for a well-formed document in the given format.
func checkSyntax(format, data string) error {
	switch format {
	case "JSON":
		var v any
		return json.Unmarshal([]byte(data), &v)
	case "XML":
		dec := xml.NewDecoder(strings.NewReader(data))
		depth := 0
		roots := 0
		for {
			tok, err := dec.Token()
			if err == io.EOF {
				if roots != 1 {
					return fmt.Errorf("ожидается ровно один корневой элемент")
				}
				return nil
			}
			if err != nil {
				return err
			}
			switch t := tok.(type) {
			case xml.StartElement:
				if depth == 0 {
					roots++
					if roots > 1 {
						return fmt.Errorf("больше одного корневого элемента")
					}
				}
				depth++
			case xml.EndElement:
				depth--
			case xml.CharData:
				// Character data is only valid inside the root element.
				if depth == 0 && strings.TrimSpace(string(t)) != "" {
					return fmt.Errorf("текст вне корневого элемента")
				}
			}
		}
	case "YAML":
		var v any
		return yaml.Unmarshal([]byte(data), &v)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func renderDataCheck(f engine.Fields) (string, error) {
	format := f.String("format")
	if verdict := f.String("verdict"); verdict != "" {
		return fmt.Sprintf("*📑 Результат проверки %s*\n\n❌ Невалидный %s:\n```\n%s\n```",
			format, format, engine.Escape(verdict)), nil
	}
	return fmt.Sprintf("*📑 Результат проверки %s*\n\n✅ Валидный %s", format, format), nil
}
