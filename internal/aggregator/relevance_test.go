package aggregator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreContainment(t *testing.T) {
	// A short record containing the query ranks at the ceiling.
	assert.Equal(t, 1.0, Score("saude", "saude"))

	// Longer text with one occurrence scores below the ceiling.
	long := Score("saude", "relatorio anual de gastos com saude no municipio de campinas durante o exercicio")
	assert.Greater(t, long, 0.0)
	assert.Less(t, long, 1.0)

	// Density ordering: denser mention of the query ranks higher.
	dense := Score("saude", "secretaria de saude")
	assert.Greater(t, dense, long)
}

func TestScoreAccentFolding(t *testing.T) {
	assert.Equal(t, Score("saude", "Ministério da Saúde"), Score("saúde", "Ministerio da Saude"))
	assert.Greater(t, Score("saúde", "Ministério da Saúde"), 0.0)
}

func TestScorePartialWordMatch(t *testing.T) {
	// Two of three query words present, no full containment.
	score := Score("gastos com educacao", "gastos federais em educacao superior")
	assert.InDelta(t, 2.0/3.0*0.5, score, 0.001)

	score = Score("gastos com saude", "auditoria de gastos")
	assert.InDelta(t, 1.0/3.0*0.5, score, 0.001)
}

func TestScoreNoMatch(t *testing.T) {
	assert.Equal(t, 0.0, Score("dolar", "municipios do parana"))
	assert.Equal(t, 0.0, Score("", "qualquer texto"))
	assert.Equal(t, 0.0, Score("consulta", ""))
}

func TestNormalizeRecordFieldProbing(t *testing.T) {
	fetchedAt := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	raw := json.RawMessage(`{"id": 42, "ementa": "Dispõe sobre saúde pública", "uri": "https://example/prop/42"}`)
	result, ok := normalizeRecord("camara", "legislativo", raw, fetchedAt)
	require.True(t, ok)
	assert.Equal(t, "42", result.ID)
	assert.Equal(t, "Dispõe sobre saúde pública", result.Description)
	assert.Equal(t, result.Description, result.Title, "title falls back to description")
	assert.Equal(t, "https://example/prop/42", result.URL)
	assert.Equal(t, fetchedAt, result.Timestamp)
}

func TestNormalizeRecordCaseInsensitiveKeys(t *testing.T) {
	raw := json.RawMessage(`{"Codigo": "987", "Ementa": "texto da materia"}`)
	result, ok := normalizeRecord("senado", "", raw, time.Now())
	require.True(t, ok)
	assert.Equal(t, "987", result.ID)
	assert.Equal(t, "texto da materia", result.Description)
}

func TestNormalizeRecordRejectsNonObject(t *testing.T) {
	_, ok := normalizeRecord("ibge", "", json.RawMessage(`"uma string"`), time.Now())
	assert.False(t, ok)
}

func TestNormalizeRecordSynthesizesID(t *testing.T) {
	fetchedAt := time.Now()
	result, ok := normalizeRecord("brasilapi", "", json.RawMessage(`{"city": "Recife"}`), fetchedAt)
	require.True(t, ok)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "Recife", result.Title)
}
