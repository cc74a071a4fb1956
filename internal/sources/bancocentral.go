package sources

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dadosbr/agregador/internal/httpclient"
	"github.com/dadosbr/agregador/internal/registry"
)

const bancoCentralBaseURL = "https://olinda.bcb.gov.br/olinda/servico/PTAX/versao/v1/odata"

// BancoCentralAdapter queries the Central Bank's PTAX exchange-rate
// OData service. Queries are always date windowed; when the caller gave
// no range the aggregator fills one from the source's default lookback.
// Responses arrive in an OData {"value": [...]} envelope.
type BancoCentralAdapter struct {
	baseURL string
	now     func() time.Time
}

func NewBancoCentralAdapter(baseURL string) *BancoCentralAdapter {
	if baseURL == "" {
		baseURL = bancoCentralBaseURL
	}
	return &BancoCentralAdapter{baseURL: baseURL, now: time.Now}
}

func (a *BancoCentralAdapter) BuildRequest(params registry.FetchParams) (httpclient.Request, error) {
	start := a.now().AddDate(0, 0, -7)
	end := a.now()
	if params.DateRange != nil && !params.DateRange.IsZero() {
		if !params.DateRange.Start.IsZero() {
			start = params.DateRange.Start
		}
		if !params.DateRange.End.IsZero() {
			end = params.DateRange.End
		}
	}

	const layout = "01-02-2006" // the PTAX service expects MM-DD-YYYY
	query := url.Values{}
	query.Set("@dataInicial", fmt.Sprintf("'%s'", start.Format(layout)))
	query.Set("@dataFinalCotacao", fmt.Sprintf("'%s'", end.Format(layout)))
	query.Set("$format", "json")
	query.Set("$orderby", "dataHoraCotacao desc")

	return httpclient.Request{
		Source:  "bancocentral",
		URL:     a.baseURL + "/CotacaoDolarPeriodo(dataInicial=@dataInicial,dataFinalCotacao=@dataFinalCotacao)",
		Query:   query,
		Headers: http.Header{},
	}, nil
}

func (a *BancoCentralAdapter) ParsePage(body []byte) (*httpclient.Page, error) {
	var envelope struct {
		Value []json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	return &httpclient.Page{Records: envelope.Value}, nil
}
