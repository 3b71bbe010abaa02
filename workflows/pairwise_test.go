package workflows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qatools/qabot/engine"
)

func TestQABot_Workflows_Pairwise_ParseParams(t *testing.T) {
	t.Parallel()

	params, err := parsePairwiseParams("Браузер: Chrome, Firefox, Safari\nОС: Windows, macOS\n\nЯзык: RU, EN")
	require.NoError(t, err)
	require.Len(t, params, 3)
	require.Equal(t, "Браузер", params[0].Name)
	require.Equal(t, []string{"Chrome", "Firefox", "Safari"}, params[0].Values)
	require.Equal(t, []string{"RU", "EN"}, params[2].Values)
}

func TestQABot_Workflows_Pairwise_ParseRejections(t *testing.T) {
	t.Parallel()

	var vErr *engine.ValidationError

	_, err := parsePairwiseParams("Браузер Chrome, Firefox")
	require.ErrorAs(t, err, &vErr, "line without colon")

	_, err = parsePairwiseParams("Браузер: Chrome\nОС: Windows, macOS")
	require.ErrorAs(t, err, &vErr, "single value parameter")

	_, err = parsePairwiseParams("Браузер: Chrome, Firefox")
	require.ErrorAs(t, err, &vErr, "single parameter")
}

// Every pair of values across every pair of parameters must appear in at
// least one generated row.
func assertAllPairsCovered(t *testing.T, params []pairwiseParam, rows [][]string) {
	t.Helper()
	for a := 0; a < len(params); a++ {
		for b := a + 1; b < len(params); b++ {
			for _, va := range params[a].Values {
				for _, vb := range params[b].Values {
					found := false
					for _, row := range rows {
						if row[a] == va && row[b] == vb {
							found = true
							break
						}
					}
					require.True(t, found, "pair (%s=%s, %s=%s) not covered",
						params[a].Name, va, params[b].Name, vb)
				}
			}
		}
	}
}

func TestQABot_Workflows_Pairwise_TwoParamsIsCartesianProduct(t *testing.T) {
	t.Parallel()

	params := []pairwiseParam{
		{Name: "Браузер", Values: []string{"Chrome", "Firefox"}},
		{Name: "ОС", Values: []string{"Windows", "macOS", "Linux"}},
	}

	rows := allPairs(params)
	require.Len(t, rows, 6)
	assertAllPairsCovered(t, params, rows)
}

func TestQABot_Workflows_Pairwise_ThreeParamsCoversAllPairs(t *testing.T) {
	t.Parallel()

	params := []pairwiseParam{
		{Name: "Браузер", Values: []string{"Chrome", "Firefox", "Safari"}},
		{Name: "ОС", Values: []string{"Windows", "macOS"}},
		{Name: "Язык", Values: []string{"RU", "EN"}},
	}

	rows := allPairs(params)
	assertAllPairsCovered(t, params, rows)

	for _, row := range rows {
		require.Len(t, row, 3)
	}
	// Pairwise needs far fewer rows than the full product would once the
	// parameter count grows, but never fewer than the largest sub-product.
	require.GreaterOrEqual(t, len(rows), 6)
}

func TestQABot_Workflows_Pairwise_FourParamsStaysBelowFullProduct(t *testing.T) {
	t.Parallel()

	params := []pairwiseParam{
		{Name: "A", Values: []string{"a1", "a2", "a3"}},
		{Name: "B", Values: []string{"b1", "b2", "b3"}},
		{Name: "C", Values: []string{"c1", "c2", "c3"}},
		{Name: "D", Values: []string{"d1", "d2", "d3"}},
	}

	rows := allPairs(params)
	assertAllPairsCovered(t, params, rows)
	require.Less(t, len(rows), 81, "should not degenerate into the full cartesian product")
}

func TestQABot_Workflows_Pairwise_TableFormat(t *testing.T) {
	t.Parallel()

	params := []pairwiseParam{
		{Name: "ОС", Values: []string{"Windows", "macOS"}},
		{Name: "Язык", Values: []string{"RU", "EN"}},
	}
	rows := [][]string{{"Windows", "RU"}, {"macOS", "EN"}}

	table := formatPairwiseTable(params, rows)
	lines := []string{
		"№  ОС       Язык",
		"1  Windows  RU",
		"2  macOS    EN",
	}
	for _, line := range lines {
		require.Contains(t, table, line)
	}
}

func TestQABot_Workflows_Pairwise_EndToEnd(t *testing.T) {
	t.Parallel()

	_, router := newBot(t, Deps{})
	ctx := context.Background()

	router.Dispatch(ctx, "U1", "/pairwise")
	replies := router.Dispatch(ctx, "U1", "Браузер: Chrome, Firefox\nОС: Windows, macOS")

	require.Len(t, replies, 2)
	artifact := replies[0].Text
	require.Contains(t, artifact, "*🧪 Pairwise комбинации*")
	require.Contains(t, artifact, "Параметры: Браузер, ОС")
	require.Contains(t, artifact, "Всего комбинаций: 4")
	require.Contains(t, artifact, "Chrome")
}
