package aggregator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dadosbr/agregador/internal/types"
)

// Upstream schemas differ per source, so normalization probes a ranked
// list of conventional field names instead of binding to any one schema.
var (
	idKeys          = []string{"id", "codigo", "codigoMateria", "cnpj", "cep", "uri"}
	titleKeys       = []string{"titulo", "nome", "nomeCivil", "descricaoTipo", "razao_social", "city", "sigla"}
	descriptionKeys = []string{"ementa", "descricao", "detalhamento", "objeto", "street", "nome_fantasia", "cotacaoCompra"}
	urlKeys         = []string{"uri", "url", "urlInteiroTeor", "href"}
)

// normalizeRecord flattens one raw upstream record into the common result
// shape. The raw payload is preserved under Data so callers never lose
// source-specific fields.
func normalizeRecord(source, category string, raw json.RawMessage, fetchedAt time.Time) (types.AggregatedResult, bool) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return types.AggregatedResult{}, false
	}

	result := types.AggregatedResult{
		Source:      source,
		Category:    category,
		ID:          pickString(fields, idKeys),
		Title:       pickString(fields, titleKeys),
		Description: pickString(fields, descriptionKeys),
		URL:         pickString(fields, urlKeys),
		Data:        fields,
		Timestamp:   fetchedAt,
	}
	if result.ID == "" {
		result.ID = fmt.Sprintf("%s-%d", source, fetchedAt.UnixNano())
	}
	if result.Title == "" {
		result.Title = result.Description
	}
	return result, true
}

// searchableText is the record projection relevance scoring runs over.
func searchableText(result types.AggregatedResult) string {
	return strings.TrimSpace(result.Title + " " + result.Description)
}

func pickString(fields map[string]any, candidates []string) string {
	for _, key := range candidates {
		value, ok := lookupFold(fields, key)
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return formatNumber(v)
		}
	}
	return ""
}

// lookupFold matches keys case-insensitively; the Senate API capitalizes
// field names while the rest of the sources use camelCase.
func lookupFold(fields map[string]any, key string) (any, bool) {
	if value, ok := fields[key]; ok {
		return value, true
	}
	for k, value := range fields {
		if strings.EqualFold(k, key) {
			return value, true
		}
	}
	return nil, false
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
