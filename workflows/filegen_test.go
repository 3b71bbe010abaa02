package workflows

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qatools/qabot/engine"
)

func TestQABot_Workflows_FileGen_BuildCSV(t *testing.T) {
	t.Parallel()

	body, err := buildFileBody("CSV", []string{"id", "name"}, 2)
	require.NoError(t, err)
	require.Equal(t, "id,name\nid_1,name_1\nid_2,name_2", body)
}

func TestQABot_Workflows_FileGen_BuildJSON(t *testing.T) {
	t.Parallel()

	body, err := buildFileBody("JSON", []string{"id", "email"}, 3)
	require.NoError(t, err)

	var records []map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &records))
	require.Len(t, records, 3)
	require.Equal(t, "id_1", records[0]["id"])
	require.Equal(t, "email_3", records[2]["email"])
}

func TestQABot_Workflows_FileGen_BuildXML(t *testing.T) {
	t.Parallel()

	body, err := buildFileBody("XML", []string{"id"}, 2)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(body, "<?xml version=\"1.0\""))
	require.Contains(t, body, "<id>id_1</id>")
	require.Contains(t, body, "<id>id_2</id>")

	// The produced document must itself be well-formed.
	dec := xml.NewDecoder(strings.NewReader(body))
	for {
		_, err := dec.Token()
		if err != nil {
			require.Equal(t, "EOF", err.Error())
			break
		}
	}
}

func TestQABot_Workflows_FileGen_UnknownFormatFails(t *testing.T) {
	t.Parallel()

	_, err := buildFileBody("PDF", []string{"id"}, 1)
	require.Error(t, err)
}

func TestQABot_Workflows_FileGen_RowCountValidation(t *testing.T) {
	t.Parallel()

	validate := FileGen().Steps["filegen.count"].Validate

	require.NoError(t, validate("1", engine.Fields{}))
	require.NoError(t, validate("100", engine.Fields{}))
	require.Error(t, validate("0", engine.Fields{}))
	require.Error(t, validate("101", engine.Fields{}))
	require.Error(t, validate("-5", engine.Fields{}))
	require.Error(t, validate("пять", engine.Fields{}))
}

func TestQABot_Workflows_FileGen_EndToEnd(t *testing.T) {
	t.Parallel()

	_, router := newBot(t, Deps{})
	ctx := context.Background()

	router.Dispatch(ctx, "U1", "/file")
	router.Dispatch(ctx, "U1", "CSV")
	router.Dispatch(ctx, "U1", "id, name, email")
	replies := router.Dispatch(ctx, "U1", "2")

	require.Len(t, replies, 2)
	require.Contains(t, replies[0].Text, "*🗂 Файл (CSV, 2 строк)*")
	require.Contains(t, replies[0].Text, "id,name,email\nid_1,name_1,email_1")
}

func TestQABot_Workflows_FileGen_EmptyColumnsRejected(t *testing.T) {
	t.Parallel()

	accept := FileGen().Steps["filegen.columns"].Accept

	_, err := accept(context.Background(), " , , ", engine.Fields{})
	var vErr *engine.ValidationError
	require.ErrorAs(t, err, &vErr)
}
