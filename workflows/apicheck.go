package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/qatools/qabot/engine"
)

// maxAPIBodyBytes caps how much of a response body the check reads.
const maxAPIBodyBytes = 1 << 20

// apiProbeTimeout bounds the whole GET when the caller supplies no client.
const apiProbeTimeout = 10 * time.Second

// APICheck builds the API probe workflow: a single URL input, a GET at
// accept time, and a report artifact. An unreachable endpoint is a check
// result, not a processing failure.
func APICheck(client *http.Client) *engine.Workflow {
	const stURL StateID = "apicheck.url"

	steps := map[StateID]engine.StepSpec{
		stURL: {
			Prompt: "🔍 *Проверка API*\n\n" +
				"Введи URL эндпоинта (http/https), я выполню GET и проверю ответ:",
			Keyboard: backRow(),
			Field:    "url",
			Validate: func(input string, _ engine.Fields) error {
				u, err := url.Parse(input)
				if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
					return engine.Invalid("❌ Введи корректный URL, например: https://api.example.com/health")
				}
				return nil
			},
			Accept: func(ctx context.Context, input string, _ engine.Fields) (engine.Fields, error) {
				return probeAPI(ctx, client, input), nil
			},
			Next: engine.Done,
		},
	}

	return &engine.Workflow{
		Name:         "apicheck",
		Command:      "/api",
		Button:       "🔍 Проверить API",
		Entry:        stURL,
		Steps:        steps,
		Render:       renderAPICheck,
		RepeatPrompt: "Хочешь проверить ещё один эндпоинт?",
	}
}

// probeAPI performs the GET and stores the outcome into fields. Errors
// are recorded as the check verdict; the engine performs no retries.
func probeAPI(ctx context.Context, client *http.Client, rawURL string) engine.Fields {
	fields := engine.Fields{"url": rawURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		fields["error"] = err.Error()
		return fields
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		fields["error"] = err.Error()
		return fields
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxAPIBodyBytes))
	fields["status"] = resp.Status
	fields["latency"] = time.Since(start).Round(time.Millisecond).String()
	fields["content_type"] = resp.Header.Get("Content-Type")
	fields["body_size"] = fmt.Sprintf("%d", len(body))

	if strings.Contains(fields.String("content_type"), "json") {
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			fields["json_verdict"] = "❌ тело ответа — невалидный JSON: " + err.Error()
		} else {
			fields["json_verdict"] = "✅ тело ответа — валидный JSON"
		}
	}
	return fields
}

func renderAPICheck(f engine.Fields) (string, error) {
	var b strings.Builder
	b.WriteString("*🔍 Результат проверки API*\n\n")
	fmt.Fprintf(&b, "*URL:* %s\n", engine.Escape(f.String("url")))

	if errText := f.String("error"); errText != "" {
		fmt.Fprintf(&b, "\n❌ Эндпоинт недоступен:\n```\n%s\n```", engine.Escape(errText))
		return b.String(), nil
	}

	fmt.Fprintf(&b, "*Статус:* %s\n", engine.Escape(f.String("status")))
	fmt.Fprintf(&b, "*Время ответа:* %s\n", f.String("latency"))
	fmt.Fprintf(&b, "*Content-Type:* %s\n", engine.Escape(f.String("content_type")))
	fmt.Fprintf(&b, "*Размер тела:* %s байт\n", f.String("body_size"))
	if verdict := f.String("json_verdict"); verdict != "" {
		fmt.Fprintf(&b, "*JSON:* %s\n", engine.Escape(verdict))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
