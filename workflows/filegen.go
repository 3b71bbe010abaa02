package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/qatools/qabot/engine"
)

const maxFileRows = 100

// FileGen builds the sample-file workflow: format, column names and row
// count produce a ready to paste file body with placeholder values.
func FileGen() *engine.Workflow {
	const (
		stFormat  StateID = "filegen.format"
		stColumns StateID = "filegen.columns"
		stCount   StateID = "filegen.count"
	)

	steps := map[StateID]engine.StepSpec{
		stFormat: {
			Prompt: "🗂 *Создание файла*\n\nВыбери формат файла:",
			Keyboard: [][]string{
				{"CSV", "JSON"},
				{"XML"},
				{BackToken},
			},
			Field:    "format",
			Validate: oneOf("⚠️ Выбери формат из предложенных вариантов", "CSV", "JSON", "XML"),
			Next:     engine.To(stColumns),
		},
		stColumns: {
			Prompt:   "Введи названия колонок через запятую:\n\nПример: id, name, email",
			Keyboard: backRow(),
			Field:    "columns",
			Accept: func(_ context.Context, input string, _ engine.Fields) (engine.Fields, error) {
				columns := splitComma(input)
				if len(columns) == 0 {
					return nil, engine.Invalid("❌ Введи хотя бы одну колонку")
				}
				return engine.Fields{"columns": columns}, nil
			},
			Next: engine.To(stCount),
		},
		stCount: {
			Prompt:   fmt.Sprintf("Сколько строк сгенерировать? (1-%d)", maxFileRows),
			Keyboard: backRow(),
			Field:    "count",
			Validate: func(input string, _ engine.Fields) error {
				n, err := strconv.Atoi(input)
				if err != nil || n < 1 || n > maxFileRows {
					return engine.Invalid("❌ Введи число от 1 до %d", maxFileRows)
				}
				return nil
			},
			Accept: func(_ context.Context, input string, f engine.Fields) (engine.Fields, error) {
				n, _ := strconv.Atoi(input)
				body, err := buildFileBody(f.String("format"), f.List("columns"), n)
				if err != nil {
					return nil, err
				}
				return engine.Fields{"count": input, "body": body}, nil
			},
			Next: engine.Done,
		},
	}

	return &engine.Workflow{
		Name:         "filegen",
		Command:      "/file",
		Button:       "🗂 Создать файл",
		Entry:        stFormat,
		Steps:        steps,
		Render:       renderFile,
		RepeatPrompt: "Хочешь создать ещё один файл?",
	}
}

func buildFileBody(format string, columns []string, rows int) (string, error) {
	switch format {
	case "CSV":
		var b strings.Builder
		b.WriteString(strings.Join(columns, ",") + "\n")
		for row := 1; row <= rows; row++ {
			values := make([]string, len(columns))
			for i, col := range columns {
				values[i] = fmt.Sprintf("%s_%d", col, row)
			}
			b.WriteString(strings.Join(values, ",") + "\n")
		}
		return strings.TrimRight(b.String(), "\n"), nil
	case "JSON":
		records := make([]map[string]string, rows)
		for row := 1; row <= rows; row++ {
			record := make(map[string]string, len(columns))
			for _, col := range columns {
				record[col] = fmt.Sprintf("%s_%d", col, row)
			}
			records[row-1] = record
		}
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal records: %w", err)
		}
		return string(data), nil
	case "XML":
		var b strings.Builder
		b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<records>\n")
		for row := 1; row <= rows; row++ {
			b.WriteString("  <record>\n")
			for _, col := range columns {
				fmt.Fprintf(&b, "    <%s>%s_%d</%s>\n", col, col, row, col)
			}
			b.WriteString("  </record>\n")
		}
		b.WriteString("</records>")
		return b.String(), nil
	default:
		return "", fmt.Errorf("unknown file format %q", format)
	}
}

func renderFile(f engine.Fields) (string, error) {
	return fmt.Sprintf("*🗂 Файл (%s, %s строк)*\n\n```\n%s\n```",
		f.String("format"), f.String("count"), f.String("body")), nil
}
