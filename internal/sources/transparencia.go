package sources

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dadosbr/agregador/internal/httpclient"
	"github.com/dadosbr/agregador/internal/registry"
)

const (
	transparenciaBaseURL  = "https://api.portaldatransparencia.gov.br/api-de-dados"
	transparenciaTokenHdr = "chave-api-dados"
	transparenciaPageSize = 20
)

// TransparenciaAdapter queries the Portal da Transparencia federal
// spending API. Every call requires an API token sent in the
// chave-api-dados header, and most endpoints demand a bounded date
// window in dd/MM/yyyy form.
type TransparenciaAdapter struct {
	baseURL string
	apiKey  string
}

func NewTransparenciaAdapter(baseURL, apiKey string) *TransparenciaAdapter {
	if baseURL == "" {
		baseURL = transparenciaBaseURL
	}
	return &TransparenciaAdapter{baseURL: baseURL, apiKey: apiKey}
}

func (a *TransparenciaAdapter) BuildRequest(params registry.FetchParams) (httpclient.Request, error) {
	query := url.Values{}
	query.Set("pagina", "1")

	endpoint := a.resolveEndpoint(registry.Normalize(params.Query))
	switch endpoint {
	case "/servidores":
		query.Set("nome", params.Query)
	case "/despesas/documentos", "/viagens", "/licitacoes", "/contratos":
		// These endpoints reject unbounded queries; the aggregator fills
		// the range from the source's default lookback when the caller
		// supplied none.
		query.Set("itensPorPagina", strconv.Itoa(transparenciaPageSize))
		if params.DateRange != nil && !params.DateRange.IsZero() {
			const layout = "02/01/2006"
			if !params.DateRange.Start.IsZero() {
				query.Set("dataInicio", params.DateRange.Start.Format(layout))
			}
			if !params.DateRange.End.IsZero() {
				query.Set("dataFim", params.DateRange.End.Format(layout))
			}
		}
	}

	headers := http.Header{}
	headers.Set(transparenciaTokenHdr, a.apiKey)

	return httpclient.Request{
		Source:  "transparencia",
		URL:     a.baseURL + endpoint,
		Query:   query,
		Headers: headers,
	}, nil
}

func (a *TransparenciaAdapter) resolveEndpoint(folded string) string {
	switch {
	case containsAny(folded, "servidor", "funcionario", "salario"):
		return "/servidores"
	case containsAny(folded, "licitacao", "licitacoes", "pregao"):
		return "/licitacoes"
	case containsAny(folded, "contrato", "contratos"):
		return "/contratos"
	case containsAny(folded, "viagem", "viagens", "diaria"):
		return "/viagens"
	default:
		return "/despesas/documentos"
	}
}

// ParsePage handles both envelope shapes the portal serves: a bare array
// for older endpoints and a {"data": [...]} wrapper for newer ones.
func (a *TransparenciaAdapter) ParsePage(body []byte) (*httpclient.Page, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err == nil {
		return &httpclient.Page{Records: records}, nil
	}

	var envelope struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	return &httpclient.Page{Records: envelope.Data}, nil
}
