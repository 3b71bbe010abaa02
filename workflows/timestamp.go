package workflows

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/qatools/qabot/engine"
)

// millisThreshold separates unix seconds from unix milliseconds: values
// this large can only be millisecond timestamps.
const millisThreshold = 1e12

var moscowTZ = time.FixedZone("MSK", 3*60*60)

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006",
}

// Timestamp builds the timestamp conversion workflow. clock supplies "now"
// so conversions stay testable.
func Timestamp(clock clockwork.Clock) *engine.Workflow {
	const stInput StateID = "timestamp.input"

	steps := map[StateID]engine.StepSpec{
		stInput: {
			Prompt: "🕐 *Конвертер Timestamp*\n\n" +
				"Введи unix timestamp (секунды или миллисекунды), дату\n" +
				"(`2024-01-15`, `2024-01-15 10:30:00`, `15.01.2024`)\n" +
				"или `now` для текущего времени:",
			Keyboard: backRow(),
			Field:    "input",
			Validate: func(input string, _ engine.Fields) error {
				if _, err := parseTimestamp(input, clock); err != nil {
					return engine.Invalid("❌ Не смог распознать дату или timestamp. Примеры: `1705312200`, `2024-01-15 10:30:00`, `now`")
				}
				return nil
			},
			Accept: func(_ context.Context, input string, _ engine.Fields) (engine.Fields, error) {
				t, err := parseTimestamp(input, clock)
				if err != nil {
					return nil, engine.Invalid("❌ Не смог распознать дату или timestamp")
				}
				return engine.Fields{
					"input":   input,
					"unix":    strconv.FormatInt(t.Unix(), 10),
					"unix_ms": strconv.FormatInt(t.UnixMilli(), 10),
					"utc":     t.UTC().Format("2006-01-02 15:04:05 MST"),
					"msk":     t.In(moscowTZ).Format("2006-01-02 15:04:05 MST"),
					"weekday": russianWeekday(t.UTC().Weekday()),
				}, nil
			},
			Next: engine.Done,
		},
	}

	return &engine.Workflow{
		Name:         "timestamp",
		Command:      "/timestamp",
		Button:       "🕐 Конвертировать Timestamp",
		Entry:        stInput,
		Steps:        steps,
		Render:       renderTimestamp,
		RepeatPrompt: "Хочешь конвертировать ещё?",
	}
}

func parseTimestamp(input string, clock clockwork.Clock) (time.Time, error) {
	input = strings.TrimSpace(input)
	if strings.EqualFold(input, "now") {
		return clock.Now(), nil
	}
	if n, err := strconv.ParseInt(input, 10, 64); err == nil {
		if n >= millisThreshold || n <= -millisThreshold {
			return time.UnixMilli(n), nil
		}
		return time.Unix(n, 0), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, input, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", input)
}

func russianWeekday(d time.Weekday) string {
	switch d {
	case time.Monday:
		return "понедельник"
	case time.Tuesday:
		return "вторник"
	case time.Wednesday:
		return "среда"
	case time.Thursday:
		return "четверг"
	case time.Friday:
		return "пятница"
	case time.Saturday:
		return "суббота"
	default:
		return "воскресенье"
	}
}

func renderTimestamp(f engine.Fields) (string, error) {
	var b strings.Builder
	b.WriteString("*🕐 Конвертация Timestamp*\n\n")
	fmt.Fprintf(&b, "*Ввод:* %s\n\n", engine.Escape(f.String("input")))
	fmt.Fprintf(&b, "*Unix (сек):* `%s`\n", f.String("unix"))
	fmt.Fprintf(&b, "*Unix (мс):* `%s`\n", f.String("unix_ms"))
	fmt.Fprintf(&b, "*UTC:* %s\n", f.String("utc"))
	fmt.Fprintf(&b, "*MSK:* %s\n", f.String("msk"))
	fmt.Fprintf(&b, "*День недели:* %s", f.String("weekday"))
	return b.String(), nil
}
