package sources

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dadosbr/agregador/internal/httpclient"
	"github.com/dadosbr/agregador/internal/registry"
)

const brasilAPIBaseURL = "https://brasilapi.com.br/api"

// BrasilAPIAdapter queries BrasilAPI, a community mirror of Brazilian
// reference registries. Lookups are entity driven: a CEP or CNPJ found
// in the query selects the endpoint, and the response is a single object
// which ParsePage promotes to a one-record page.
type BrasilAPIAdapter struct {
	baseURL string
	now     func() time.Time
}

func NewBrasilAPIAdapter(baseURL string) *BrasilAPIAdapter {
	if baseURL == "" {
		baseURL = brasilAPIBaseURL
	}
	return &BrasilAPIAdapter{baseURL: baseURL, now: time.Now}
}

func (a *BrasilAPIAdapter) BuildRequest(params registry.FetchParams) (httpclient.Request, error) {
	entities := ExtractEntities(params.Query)
	folded := registry.Normalize(params.Query)

	endpoint := "/banks/v1"
	switch {
	case entities.CNPJ != "":
		endpoint = "/cnpj/v1/" + entities.CNPJ
	case entities.CEP != "":
		endpoint = "/cep/v2/" + entities.CEP
	case containsAny(folded, "ddd"):
		// Sao Paulo's area code when the query names none.
		ddd := entities.DDD
		if ddd == "" {
			ddd = "11"
		}
		endpoint = "/ddd/v1/" + ddd
	case containsAny(folded, "feriado"):
		year := entities.Year
		if year == "" {
			year = strconv.Itoa(a.now().Year())
		}
		endpoint = "/feriados/v1/" + year
	case containsAny(folded, "municipio", "cidade", "estado"):
		uf := entities.UF
		if uf == "" {
			uf = "SP"
		}
		endpoint = "/ibge/municipios/v1/" + uf
	}

	return httpclient.Request{
		Source:  "brasilapi",
		URL:     a.baseURL + endpoint,
		Query:   url.Values{},
		Headers: http.Header{},
	}, nil
}

func (a *BrasilAPIAdapter) ParsePage(body []byte) (*httpclient.Page, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err == nil {
		return &httpclient.Page{Records: records}, nil
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(body, &object); err != nil {
		return nil, err
	}
	return &httpclient.Page{Records: []json.RawMessage{json.RawMessage(body)}}, nil
}
