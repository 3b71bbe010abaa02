package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/qatools/qabot/engine"
)

const (
	testDataUsers = "👤 Пользователи"
	testDataCards = "💳 Банковские карты"

	maxTestDataCount = 50
	cardsPerBatch    = 5
)

var (
	firstNames = []string{"Иван", "Пётр", "Анна", "Мария", "Алексей", "Ольга", "Дмитрий", "Елена", "Сергей", "Наталья"}
	lastNames  = []string{"Иванов", "Петров", "Сидоров", "Кузнецов", "Смирнов", "Попов", "Волков", "Соколов", "Морозов", "Лебедев"}
	domains    = []string{"example.com", "test.ru", "mail.test", "qa.local"}
)

// Card number prefixes by payment system.
var cardPrefixes = map[string]string{
	"Visa":       "4",
	"Mastercard": "5",
	"МИР":        "2200",
}

// TestData builds the synthetic test-data workflow: user records in JSON
// or CSV, or Luhn-valid bank card numbers. Generation happens at accept
// time so rendering the same fields twice yields identical output.
func TestData() *engine.Workflow {
	const (
		stKind   StateID = "testdata.kind"
		stFormat StateID = "testdata.format"
		stCount  StateID = "testdata.count"
		stSystem StateID = "testdata.system"
	)

	steps := map[StateID]engine.StepSpec{
		stKind: {
			Prompt: "👥 *Генератор тестовых данных*\n\nЧто нужно сгенерировать?",
			Keyboard: [][]string{
				{testDataUsers, testDataCards},
				{BackToken},
			},
			Field:    "td_kind",
			Validate: oneOf("⚠️ Выбери вариант из предложенных кнопок", testDataUsers, testDataCards),
			Next: func(f engine.Fields) StateID {
				if f.String("td_kind") == testDataCards {
					return stSystem
				}
				return stFormat
			},
		},
		stFormat: {
			Prompt: "Выбери формат данных:",
			Keyboard: [][]string{
				{"JSON", "CSV"},
				{BackToken},
			},
			Field:    "format",
			Validate: oneOf("⚠️ Выбери формат из предложенных вариантов", "JSON", "CSV"),
			Next:     engine.To(stCount),
		},
		stCount: {
			Prompt:   fmt.Sprintf("Сколько пользователей сгенерировать? (1-%d)", maxTestDataCount),
			Keyboard: backRow(),
			Field:    "count",
			Validate: func(input string, _ engine.Fields) error {
				n, err := strconv.Atoi(input)
				if err != nil || n < 1 || n > maxTestDataCount {
					return engine.Invalid("❌ Введи число от 1 до %d", maxTestDataCount)
				}
				return nil
			},
			Accept: func(_ context.Context, input string, f engine.Fields) (engine.Fields, error) {
				n, _ := strconv.Atoi(input)
				payload, err := generateUsers(f.String("format"), n)
				if err != nil {
					return nil, err
				}
				return engine.Fields{"count": input, "payload": payload}, nil
			},
			Next: engine.Done,
		},
		stSystem: {
			Prompt: "Выбери платёжную систему:",
			Keyboard: [][]string{
				{"Visa", "Mastercard"},
				{"МИР"},
				{BackToken},
			},
			Field:    "system",
			Validate: oneOf("⚠️ Выбери платёжную систему из предложенных вариантов", "Visa", "Mastercard", "МИР"),
			Accept: func(_ context.Context, input string, _ engine.Fields) (engine.Fields, error) {
				return engine.Fields{"system": input, "payload": generateCards(input)}, nil
			},
			Next: engine.Done,
		},
	}

	return &engine.Workflow{
		Name:         "testdata",
		Command:      "/testdata",
		Button:       "👥 Создать тестовые данные",
		Entry:        stKind,
		Steps:        steps,
		Render:       renderTestData,
		RepeatPrompt: "Хочешь сгенерировать ещё?",
	}
}

type testUser struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func generateUsers(format string, count int) (string, error) {
	users := make([]testUser, count)
	for i := range users {
		first := firstNames[rand.IntN(len(firstNames))]
		last := lastNames[rand.IntN(len(lastNames))]
		users[i] = testUser{
			ID:    i + 1,
			Name:  first + " " + last,
			Email: fmt.Sprintf("user%d@%s", i+1, domains[rand.IntN(len(domains))]),
			Phone: fmt.Sprintf("+79%09d", rand.IntN(1_000_000_000)),
		}
	}

	switch format {
	case "CSV":
		var b strings.Builder
		b.WriteString("id,name,email,phone\n")
		for _, u := range users {
			fmt.Fprintf(&b, "%d,%s,%s,%s\n", u.ID, u.Name, u.Email, u.Phone)
		}
		return strings.TrimRight(b.String(), "\n"), nil
	case "JSON":
		data, err := json.MarshalIndent(users, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal users: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown test data format %q", format)
	}
}

func generateCards(system string) string {
	prefix := cardPrefixes[system]
	var b strings.Builder
	for i := 0; i < cardsPerBatch; i++ {
		number := luhnComplete(prefix, 16)
		expiry := fmt.Sprintf("%02d/%02d", 1+rand.IntN(12), 27+rand.IntN(5))
		cvv := fmt.Sprintf("%03d", rand.IntN(1000))
		fmt.Fprintf(&b, "%s  %s  CVV %s\n", formatCardNumber(number), expiry, cvv)
	}
	return strings.TrimRight(b.String(), "\n")
}

// luhnComplete extends prefix with random digits up to length-1 and
// appends the Luhn check digit.
func luhnComplete(prefix string, length int) string {
	digits := []byte(prefix)
	for len(digits) < length-1 {
		digits = append(digits, byte('0'+rand.IntN(10)))
	}
	return string(append(digits, luhnCheckDigit(digits)))
}

func luhnCheckDigit(digits []byte) byte {
	sum := 0
	// The check digit goes at the end, so the rightmost payload digit is
	// doubled.
	double := true
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		double = !double
		sum += d
	}
	return byte('0' + (10-sum%10)%10)
}

func formatCardNumber(number string) string {
	var groups []string
	for len(number) > 4 {
		groups = append(groups, number[:4])
		number = number[4:]
	}
	groups = append(groups, number)
	return strings.Join(groups, " ")
}

func renderTestData(f engine.Fields) (string, error) {
	if f.String("td_kind") == testDataCards {
		return fmt.Sprintf("*💳 Тестовые карты (%s)*\n\n```\n%s\n```\n\n_Номера валидны по алгоритму Луна, но не привязаны к реальным счетам_",
			f.String("system"), f.String("payload")), nil
	}
	return fmt.Sprintf("*👤 Тестовые пользователи (%s)*\n\n```\n%s\n```",
		f.String("format"), f.String("payload")), nil
}
