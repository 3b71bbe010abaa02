package workflows

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/qatools/qabot/engine"
)

var sqlIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

var sqlNumber = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// SQLGen builds the SQL statement workflow: statement kind, table,
// columns (or assignments), optional WHERE and LIMIT, rendered as a ready
// to paste statement.
func SQLGen() *engine.Workflow {
	const (
		stKind    StateID = "sql.kind"
		stTable   StateID = "sql.table"
		stColumns StateID = "sql.columns"
		stWhere   StateID = "sql.where"
		stLimit   StateID = "sql.limit"
	)

	kinds := []string{"SELECT", "INSERT", "UPDATE", "DELETE"}

	steps := map[StateID]engine.StepSpec{
		stKind: {
			Prompt: "🗃 *Генератор SQL*\n\nВыбери тип запроса:",
			Keyboard: [][]string{
				{"SELECT", "INSERT"},
				{"UPDATE", "DELETE"},
				{BackToken},
			},
			Field:    "sql_kind",
			Validate: oneOf("⚠️ Выбери тип запроса из предложенных вариантов", kinds...),
			Next:     engine.To(stTable),
		},
		stTable: {
			Prompt:   "Введи имя таблицы:",
			Keyboard: backRow(),
			Field:    "table",
			Validate: func(input string, _ engine.Fields) error {
				if !sqlIdentifier.MatchString(input) {
					return engine.Invalid("❌ Имя таблицы может содержать только буквы, цифры, '_' и '.'")
				}
				return nil
			},
			Next: func(f engine.Fields) StateID {
				if f.String("sql_kind") == "DELETE" {
					return stWhere
				}
				return stColumns
			},
		},
		stColumns: {
			Prompt: "Введи колонки:\n" +
				"- для SELECT: имена через запятую (или `*`)\n" +
				"- для INSERT и UPDATE: пары `колонка=значение` через запятую",
			Keyboard: backRow(),
			Field:    "columns",
			Accept:   acceptColumns,
			Next: func(f engine.Fields) StateID {
				if f.String("sql_kind") == "INSERT" {
					return engine.StateDone
				}
				return stWhere
			},
		},
		stWhere: {
			Prompt: "Введи условие WHERE (без слова WHERE):\n" +
				"(или нажми 'Пропустить', чтобы не добавлять условие)",
			Keyboard: skipBackRows(),
			Field:    "where",
			Optional: true,
			Next: func(f engine.Fields) StateID {
				if f.String("sql_kind") == "SELECT" {
					return stLimit
				}
				return engine.StateDone
			},
		},
		stLimit: {
			Prompt: "Введи LIMIT (число строк):\n" +
				"(или нажми 'Пропустить', чтобы не ограничивать)",
			Keyboard: skipBackRows(),
			Field:    "limit",
			Optional: true,
			Validate: func(input string, _ engine.Fields) error {
				n, err := strconv.Atoi(input)
				if err != nil || n <= 0 {
					return engine.Invalid("❌ LIMIT должен быть положительным числом")
				}
				return nil
			},
			Next: engine.Done,
		},
	}

	return &engine.Workflow{
		Name:         "sql",
		Command:      "/sql",
		Button:       "🗃 Сгенерировать SQL",
		Entry:        stKind,
		Steps:        steps,
		Render:       renderSQL,
		RepeatPrompt: "Хочешь сгенерировать ещё один запрос?",
	}
}

// acceptColumns validates the column spec against the statement kind and
// stores the parsed pieces.
func acceptColumns(_ context.Context, input string, f engine.Fields) (engine.Fields, error) {
	kind := f.String("sql_kind")
	parts := splitComma(input)
	if len(parts) == 0 {
		return nil, engine.Invalid("❌ Введи хотя бы одну колонку")
	}

	if kind == "SELECT" {
		for _, p := range parts {
			if p != "*" && !sqlIdentifier.MatchString(p) {
				return nil, engine.Invalid("❌ Недопустимое имя колонки: %s", p)
			}
		}
		return engine.Fields{"columns": parts}, nil
	}

	// INSERT / UPDATE take column=value pairs.
	for _, p := range parts {
		name, _, ok := strings.Cut(p, "=")
		if !ok || !sqlIdentifier.MatchString(strings.TrimSpace(name)) {
			return nil, engine.Invalid("❌ Ожидаю пары `колонка=значение`, например: name=Иван, age=30")
		}
	}
	return engine.Fields{"columns": parts}, nil
}

func splitComma(s string) []string {
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// quoteSQLValue quotes non-numeric values with single quotes, doubling any
// embedded quotes.
func quoteSQLValue(v string) string {
	v = strings.TrimSpace(v)
	if sqlNumber.MatchString(v) || strings.EqualFold(v, "NULL") {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func renderSQL(f engine.Fields) (string, error) {
	kind := f.String("sql_kind")
	table := f.String("table")
	columns := f.List("columns")
	where := strings.TrimSpace(f.String("where"))
	limit := strings.TrimSpace(f.String("limit"))

	var stmt string
	switch kind {
	case "SELECT":
		stmt = fmt.Sprintf("SELECT %s\nFROM %s", strings.Join(columns, ", "), table)
		if where != "" {
			stmt += "\nWHERE " + where
		}
		if limit != "" {
			stmt += "\nLIMIT " + limit
		}
	case "INSERT":
		names := make([]string, 0, len(columns))
		values := make([]string, 0, len(columns))
		for _, c := range columns {
			name, value, _ := strings.Cut(c, "=")
			names = append(names, strings.TrimSpace(name))
			values = append(values, quoteSQLValue(value))
		}
		stmt = fmt.Sprintf("INSERT INTO %s (%s)\nVALUES (%s)", table, strings.Join(names, ", "), strings.Join(values, ", "))
	case "UPDATE":
		assignments := make([]string, 0, len(columns))
		for _, c := range columns {
			name, value, _ := strings.Cut(c, "=")
			assignments = append(assignments, fmt.Sprintf("%s = %s", strings.TrimSpace(name), quoteSQLValue(value)))
		}
		stmt = fmt.Sprintf("UPDATE %s\nSET %s", table, strings.Join(assignments, ", "))
		if where != "" {
			stmt += "\nWHERE " + where
		}
	case "DELETE":
		stmt = "DELETE FROM " + table
		if where != "" {
			stmt += "\nWHERE " + where
		}
	default:
		return "", fmt.Errorf("unknown sql kind %q", kind)
	}

	return "*🗃 SQL запрос*\n\n```\n" + stmt + ";\n```", nil
}
