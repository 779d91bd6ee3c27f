package reasoner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unikrew/internal/domain"
	"unikrew/internal/reasoner"
)

func TestDecodeFields_Valid(t *testing.T) {
	fields, raw, err := reasoner.DecodeFields(`{"company":"ACME","date":"","address":"1 Main St","total":"$9.99","agent_comment":"done","extra":1}`)

	require.NoError(t, err)
	assert.Equal(t, "ACME", fields.Company)
	assert.Equal(t, "", fields.Date)
	assert.Equal(t, "$9.99", fields.Total)
	assert.Equal(t, "{\n  \"company\": \"ACME\",\n  \"date\": \"\",\n  \"address\": \"1 Main St\",\n  \"total\": \"$9.99\",\n  \"agent_comment\": \"done\"\n}", string(raw))
}

func TestDecodeFields_KeepsHTMLCharacters(t *testing.T) {
	_, raw, err := reasoner.DecodeFields(`{"company":"A&W <KL>","date":"","address":"","total":"","agent_comment":""}`)

	require.NoError(t, err)
	assert.Contains(t, string(raw), `"company": "A&W <KL>"`)
	assert.NotContains(t, string(raw), `\u0026`)
}

func TestDecodeFields_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty content":    "",
		"empty object":     "{}",
		"missing comment":  `{"company":"A","date":"B","address":"C","total":"D"}`,
		"null field":       `{"company":null,"date":"B","address":"C","total":"D","agent_comment":"E"}`,
		"number for total": `{"company":"A","date":"B","address":"C","total":9.99,"agent_comment":"E"}`,
		"not an object":    `["A"]`,
		"not json":         "Sure! Here is the JSON",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := reasoner.DecodeFields(content)
			assert.ErrorIs(t, err, domain.ErrInvalidLLMOutput)
		})
	}
}

func TestSchema(t *testing.T) {
	schema := reasoner.Schema()

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []interface{}{"company", "date", "address", "total", "agent_comment"}, schema["required"])

	props := schema["properties"].(map[string]interface{})
	total := props["total"].(map[string]interface{})
	assert.Equal(t, "string", total["type"])
	assert.Equal(t, "Total amount on the receipt with currency if mentioned", total["description"])
	assert.Equal(t, "Agent Comment", props["agent_comment"].(map[string]interface{})["title"])
}
