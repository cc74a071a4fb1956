package sources

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/dadosbr/agregador/internal/httpclient"
	"github.com/dadosbr/agregador/internal/registry"
)

const camaraBaseURL = "https://dadosabertos.camara.leg.br/api/v2"

// CamaraAdapter queries the Chamber of Deputies open-data API. Responses
// come wrapped in a {"dados": [...], "links": [...]} envelope whose
// rel=next link drives pagination.
type CamaraAdapter struct {
	baseURL string
}

// NewCamaraAdapter constructs the adapter. An empty baseURL selects the
// production API.
func NewCamaraAdapter(baseURL string) *CamaraAdapter {
	if baseURL == "" {
		baseURL = camaraBaseURL
	}
	return &CamaraAdapter{baseURL: baseURL}
}

func (a *CamaraAdapter) BuildRequest(params registry.FetchParams) (httpclient.Request, error) {
	query := url.Values{}
	query.Set("ordem", "DESC")

	endpoint := "/proposicoes"
	folded := registry.Normalize(params.Query)
	switch {
	case containsAny(folded, "deputado", "parlamentar"):
		endpoint = "/deputados"
		query.Set("ordenarPor", "nome")
		if uf := ExtractEntities(params.Query).UF; uf != "" {
			query.Set("siglaUf", uf)
		}
	case containsAny(folded, "votacao", "votacoes"):
		endpoint = "/votacoes"
		query.Set("ordenarPor", "dataHoraRegistro")
	default:
		query.Set("ordenarPor", "id")
		query.Set("keywords", params.Query)
	}

	if params.DateRange != nil && !params.DateRange.IsZero() {
		if !params.DateRange.Start.IsZero() {
			query.Set("dataInicio", params.DateRange.Start.Format("2006-01-02"))
		}
		if !params.DateRange.End.IsZero() {
			query.Set("dataFim", params.DateRange.End.Format("2006-01-02"))
		}
	}

	return httpclient.Request{
		Source:  "camara",
		URL:     a.baseURL + endpoint,
		Query:   query,
		Headers: http.Header{},
	}, nil
}

func (a *CamaraAdapter) ParsePage(body []byte) (*httpclient.Page, error) {
	var envelope struct {
		Dados []json.RawMessage `json:"dados"`
		Links []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	page := &httpclient.Page{Records: envelope.Dados}
	for _, link := range envelope.Links {
		if link.Rel == "next" {
			page.Next = link.Href
			break
		}
	}
	return page, nil
}
