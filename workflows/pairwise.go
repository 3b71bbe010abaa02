package workflows

import (
	"context"
	"fmt"
	"strings"

	"github.com/qatools/qabot/engine"
)

// Pairwise builds the pairwise (all-pairs) test combination workflow.
// Rows are computed at accept time with a greedy cover so rendering stays
// a pure function of the fields.
func Pairwise() *engine.Workflow {
	const stParams StateID = "pairwise.params"

	steps := map[StateID]engine.StepSpec{
		stParams: {
			Prompt: "🧪 *Pairwise тест*\n\n" +
				"Введи параметры и их значения, каждый параметр с новой строки:\n\n" +
				"Пример:\n" +
				"Браузер: Chrome, Firefox, Safari\n" +
				"ОС: Windows, macOS\n" +
				"Язык: RU, EN",
			Keyboard: backRow(),
			Field:    "params",
			Accept: func(_ context.Context, input string, _ engine.Fields) (engine.Fields, error) {
				params, err := parsePairwiseParams(input)
				if err != nil {
					return nil, err
				}
				rows := allPairs(params)
				return engine.Fields{
					"names": paramNames(params),
					"table": formatPairwiseTable(params, rows),
					"total": fmt.Sprintf("%d", len(rows)),
				}, nil
			},
			Next: engine.Done,
		},
	}

	return &engine.Workflow{
		Name:         "pairwise",
		Command:      "/pairwise",
		Button:       "🧪 Создать Pairwise тест",
		Entry:        stParams,
		Steps:        steps,
		Render:       renderPairwise,
		RepeatPrompt: "Хочешь создать ещё один набор?",
	}
}

type pairwiseParam struct {
	Name   string
	Values []string
}

func parsePairwiseParams(input string) ([]pairwiseParam, error) {
	var params []pairwiseParam
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, rest, ok := strings.Cut(line, ":")
		if !ok {
			return nil, engine.Invalid("❌ Каждая строка должна иметь вид `Параметр: значение1, значение2`")
		}
		values := splitComma(rest)
		if len(values) < 2 {
			return nil, engine.Invalid("❌ У параметра %q должно быть минимум два значения", strings.TrimSpace(name))
		}
		params = append(params, pairwiseParam{Name: strings.TrimSpace(name), Values: values})
	}
	if len(params) < 2 {
		return nil, engine.Invalid("❌ Нужно минимум два параметра")
	}
	return params, nil
}

func paramNames(params []pairwiseParam) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}

// allPairs builds rows covering every value pair of every parameter pair:
// the cartesian product of the first two parameters, then each further
// parameter greedily assigned per row, with extra rows for pairs still
// uncovered.
func allPairs(params []pairwiseParam) [][]string {
	var rows [][]string
	for _, a := range params[0].Values {
		for _, b := range params[1].Values {
			rows = append(rows, []string{a, b})
		}
	}

	for pi := 2; pi < len(params); pi++ {
		values := params[pi].Values

		// Pairs (prevParam, prevValue, value) still to cover.
		uncovered := make(map[[3]string]bool)
		for prev := 0; prev < pi; prev++ {
			for _, pv := range params[prev].Values {
				for _, v := range values {
					uncovered[[3]string{params[prev].Name, pv, v}] = true
				}
			}
		}

		covers := func(row []string, v string) int {
			n := 0
			for prev := 0; prev < pi; prev++ {
				if uncovered[[3]string{params[prev].Name, row[prev], v}] {
					n++
				}
			}
			return n
		}
		markCovered := func(row []string, v string) {
			for prev := 0; prev < pi; prev++ {
				delete(uncovered, [3]string{params[prev].Name, row[prev], v})
			}
		}

		for i, row := range rows {
			best := values[i%len(values)]
			bestCover := covers(row, best)
			for _, v := range values {
				if c := covers(row, v); c > bestCover {
					best, bestCover = v, c
				}
			}
			rows[i] = append(row, best)
			markCovered(row, best)
		}

		// Any pair not placeable into existing rows gets its own row,
		// remaining cells filled with the first values.
		for len(uncovered) > 0 {
			var pair [3]string
			for p := range uncovered {
				pair = p
				break
			}
			row := make([]string, pi+1)
			for prev := 0; prev < pi; prev++ {
				if params[prev].Name == pair[0] {
					row[prev] = pair[1]
				} else {
					row[prev] = params[prev].Values[0]
				}
			}
			row[pi] = pair[2]
			markCovered(row[:pi], pair[2])
			rows = append(rows, row)
		}
	}
	return rows
}

func formatPairwiseTable(params []pairwiseParam, rows [][]string) string {
	widths := make([]int, len(params))
	for i, p := range params {
		widths[i] = len([]rune(p.Name))
		for _, v := range p.Values {
			if n := len([]rune(v)); n > widths[i] {
				widths[i] = n
			}
		}
	}

	pad := func(s string, w int) string {
		return s + strings.Repeat(" ", w-len([]rune(s)))
	}

	var b strings.Builder
	b.WriteString("№  ")
	for i, p := range params {
		b.WriteString(pad(p.Name, widths[i]) + "  ")
	}
	b.WriteString("\n")
	for i, row := range rows {
		fmt.Fprintf(&b, "%-2d ", i+1)
		for c, v := range row {
			b.WriteString(pad(v, widths[c]) + "  ")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderPairwise(f engine.Fields) (string, error) {
	return fmt.Sprintf("*🧪 Pairwise комбинации*\n\nПараметры: %s\nВсего комбинаций: %s\n\n```\n%s\n```",
		engine.Escape(strings.Join(f.List("names"), ", ")), f.String("total"), f.String("table")), nil
}
