package sources

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/dadosbr/agregador/internal/httpclient"
	"github.com/dadosbr/agregador/internal/registry"
)

const senadoBaseURL = "https://legis.senado.leg.br/dadosabertos"

// SenadoAdapter queries the Federal Senate open-data API. The API nests
// its payload several envelope levels deep and the wrapper names vary by
// endpoint, so ParsePage walks the document for the first array of
// objects instead of binding to a fixed schema.
type SenadoAdapter struct {
	baseURL string
}

func NewSenadoAdapter(baseURL string) *SenadoAdapter {
	if baseURL == "" {
		baseURL = senadoBaseURL
	}
	return &SenadoAdapter{baseURL: baseURL}
}

func (a *SenadoAdapter) BuildRequest(params registry.FetchParams) (httpclient.Request, error) {
	query := url.Values{}

	endpoint := "/materia/pesquisa/lista"
	folded := registry.Normalize(params.Query)
	switch {
	case containsAny(folded, "senador", "senadores"):
		endpoint = "/senador/lista/atual"
		if uf := ExtractEntities(params.Query).UF; uf != "" {
			query.Set("uf", uf)
		}
	default:
		query.Set("palavraChave", params.Query)
	}

	if params.DateRange != nil && !params.DateRange.IsZero() {
		if !params.DateRange.Start.IsZero() {
			query.Set("dataInicioApresentacao", params.DateRange.Start.Format("20060102"))
		}
		if !params.DateRange.End.IsZero() {
			query.Set("dataFimApresentacao", params.DateRange.End.Format("20060102"))
		}
	}

	return httpclient.Request{
		Source:  "senado",
		URL:     a.baseURL + endpoint,
		Query:   query,
		Headers: http.Header{},
	}, nil
}

func (a *SenadoAdapter) ParsePage(body []byte) (*httpclient.Page, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}

	records := firstObjectArray(doc)
	page := &httpclient.Page{Records: make([]json.RawMessage, 0, len(records))}
	for _, record := range records {
		raw, err := json.Marshal(record)
		if err != nil {
			return nil, err
		}
		page.Records = append(page.Records, raw)
	}
	return page, nil
}

// firstObjectArray depth-first searches a decoded document for the first
// non-empty array whose elements are objects. Single-object leaves named
// like list wrappers are treated as one-element arrays, which matches how
// the Senate API flattens singleton results.
func firstObjectArray(doc any) []map[string]any {
	switch node := doc.(type) {
	case []any:
		out := make([]map[string]any, 0, len(node))
		for _, elem := range node {
			obj, ok := elem.(map[string]any)
			if !ok {
				return nil
			}
			out = append(out, obj)
		}
		if len(out) > 0 {
			return out
		}
	case map[string]any:
		for _, value := range node {
			if found := firstObjectArray(value); found != nil {
				return found
			}
		}
	}
	return nil
}
