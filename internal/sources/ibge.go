package sources

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/dadosbr/agregador/internal/httpclient"
	"github.com/dadosbr/agregador/internal/registry"
)

const ibgeBaseURL = "https://servicodados.ibge.gov.br/api/v1"

// IBGEAdapter queries the IBGE locality API. Responses are bare JSON
// arrays with no envelope and no pagination.
type IBGEAdapter struct {
	baseURL string
}

func NewIBGEAdapter(baseURL string) *IBGEAdapter {
	if baseURL == "" {
		baseURL = ibgeBaseURL
	}
	return &IBGEAdapter{baseURL: baseURL}
}

func (a *IBGEAdapter) BuildRequest(params registry.FetchParams) (httpclient.Request, error) {
	endpoint := "/localidades/estados"
	query := url.Values{}
	query.Set("orderBy", "nome")

	folded := registry.Normalize(params.Query)
	if containsAny(folded, "municipio", "cidade") {
		if uf := ExtractEntities(params.Query).UF; uf != "" {
			endpoint = "/localidades/estados/" + uf + "/municipios"
		} else {
			endpoint = "/localidades/municipios"
		}
	}

	return httpclient.Request{
		Source:  "ibge",
		URL:     a.baseURL + endpoint,
		Query:   query,
		Headers: http.Header{},
	}, nil
}

func (a *IBGEAdapter) ParsePage(body []byte) (*httpclient.Page, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, err
	}
	return &httpclient.Page{Records: records}, nil
}
