package sources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dadosbr/agregador/internal/registry"
	"github.com/dadosbr/agregador/internal/types"
)

func TestCamaraBuildRequest(t *testing.T) {
	adapter := NewCamaraAdapter("")

	req, err := adapter.BuildRequest(registry.FetchParams{Query: "proposicoes sobre saude"})
	require.NoError(t, err)
	assert.Equal(t, camaraBaseURL+"/proposicoes", req.URL)
	assert.Equal(t, "proposicoes sobre saude", req.Query.Get("keywords"))

	req, err = adapter.BuildRequest(registry.FetchParams{Query: "deputados do RJ"})
	require.NoError(t, err)
	assert.Equal(t, camaraBaseURL+"/deputados", req.URL)
	assert.Equal(t, "RJ", req.Query.Get("siglaUf"))
}

func TestCamaraBuildRequestDateRange(t *testing.T) {
	adapter := NewCamaraAdapter("")
	dr := &types.DateRange{
		Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	req, err := adapter.BuildRequest(registry.FetchParams{Query: "lei", DateRange: dr})
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01", req.Query.Get("dataInicio"))
	assert.Equal(t, "2026-01-31", req.Query.Get("dataFim"))
}

func TestCamaraParsePage(t *testing.T) {
	body := `{
		"dados": [{"id": 1, "ementa": "a"}, {"id": 2, "ementa": "b"}],
		"links": [
			{"rel": "self", "href": "https://example/api?pagina=1"},
			{"rel": "next", "href": "https://example/api?pagina=2"}
		]
	}`
	page, err := NewCamaraAdapter("").ParsePage([]byte(body))
	require.NoError(t, err)
	assert.Len(t, page.Records, 2)
	assert.Equal(t, "https://example/api?pagina=2", page.Next)
}

func TestCamaraParsePageLastPage(t *testing.T) {
	body := `{"dados": [{"id": 3}], "links": [{"rel": "self", "href": "x"}]}`
	page, err := NewCamaraAdapter("").ParsePage([]byte(body))
	require.NoError(t, err)
	assert.Len(t, page.Records, 1)
	assert.Empty(t, page.Next)
}

func TestSenadoParsePageNestedEnvelope(t *testing.T) {
	body := `{
		"ListaMateriasPesquisa": {
			"Metadados": {"Versao": "1"},
			"Materias": {
				"Materia": [
					{"Codigo": "100", "Ementa": "primeira"},
					{"Codigo": "200", "Ementa": "segunda"}
				]
			}
		}
	}`
	page, err := NewSenadoAdapter("").ParsePage([]byte(body))
	require.NoError(t, err)
	assert.Len(t, page.Records, 2)
}

func TestSenadoParsePageNoList(t *testing.T) {
	page, err := NewSenadoAdapter("").ParsePage([]byte(`{"Metadados": {"Versao": "1"}}`))
	require.NoError(t, err)
	assert.Empty(t, page.Records)
}

func TestSenadoBuildRequest(t *testing.T) {
	adapter := NewSenadoAdapter("")

	req, err := adapter.BuildRequest(registry.FetchParams{Query: "senadores de MG"})
	require.NoError(t, err)
	assert.Equal(t, senadoBaseURL+"/senador/lista/atual", req.URL)
	assert.Equal(t, "MG", req.Query.Get("uf"))

	req, err = adapter.BuildRequest(registry.FetchParams{Query: "lei de acesso"})
	require.NoError(t, err)
	assert.Equal(t, senadoBaseURL+"/materia/pesquisa/lista", req.URL)
	assert.Equal(t, "lei de acesso", req.Query.Get("palavraChave"))
}

func TestIBGEBuildRequest(t *testing.T) {
	adapter := NewIBGEAdapter("")

	req, err := adapter.BuildRequest(registry.FetchParams{Query: "estados do brasil"})
	require.NoError(t, err)
	assert.Equal(t, ibgeBaseURL+"/localidades/estados", req.URL)

	req, err = adapter.BuildRequest(registry.FetchParams{Query: "municipios de SP"})
	require.NoError(t, err)
	assert.Equal(t, ibgeBaseURL+"/localidades/estados/SP/municipios", req.URL)

	req, err = adapter.BuildRequest(registry.FetchParams{Query: "cidades"})
	require.NoError(t, err)
	assert.Equal(t, ibgeBaseURL+"/localidades/municipios", req.URL)
}

func TestIBGEParsePage(t *testing.T) {
	page, err := NewIBGEAdapter("").ParsePage([]byte(`[{"id": 35, "nome": "São Paulo"}]`))
	require.NoError(t, err)
	assert.Len(t, page.Records, 1)
	assert.Empty(t, page.Next)
}

func TestTransparenciaBuildRequest(t *testing.T) {
	adapter := NewTransparenciaAdapter("", "test-key")

	req, err := adapter.BuildRequest(registry.FetchParams{Query: "gastos do ministerio"})
	require.NoError(t, err)
	assert.Equal(t, transparenciaBaseURL+"/despesas/documentos", req.URL)
	assert.Equal(t, "test-key", req.Headers.Get("chave-api-dados"))
	assert.Equal(t, "1", req.Query.Get("pagina"))
	assert.Equal(t, "20", req.Query.Get("itensPorPagina"))

	req, err = adapter.BuildRequest(registry.FetchParams{Query: "salario de servidor"})
	require.NoError(t, err)
	assert.Equal(t, transparenciaBaseURL+"/servidores", req.URL)
	assert.Equal(t, "salario de servidor", req.Query.Get("nome"))

	req, err = adapter.BuildRequest(registry.FetchParams{Query: "licitacoes abertas"})
	require.NoError(t, err)
	assert.Equal(t, transparenciaBaseURL+"/licitacoes", req.URL)
}

func TestTransparenciaDateWindowFormat(t *testing.T) {
	adapter := NewTransparenciaAdapter("", "k")
	dr := &types.DateRange{
		Start: time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
	}
	req, err := adapter.BuildRequest(registry.FetchParams{Query: "despesas", DateRange: dr})
	require.NoError(t, err)
	assert.Equal(t, "22/08/2026", req.Query.Get("dataInicio"))
	assert.Equal(t, "29/08/2026", req.Query.Get("dataFim"))
}

func TestTransparenciaParsePage(t *testing.T) {
	adapter := NewTransparenciaAdapter("", "k")

	page, err := adapter.ParsePage([]byte(`[{"id": 1}, {"id": 2}]`))
	require.NoError(t, err)
	assert.Len(t, page.Records, 2)

	page, err = adapter.ParsePage([]byte(`{"data": [{"id": 3}]}`))
	require.NoError(t, err)
	assert.Len(t, page.Records, 1)
}

func TestBrasilAPIBuildRequest(t *testing.T) {
	adapter := NewBrasilAPIAdapter("")

	req, err := adapter.BuildRequest(registry.FetchParams{Query: "cep 01310-100"})
	require.NoError(t, err)
	assert.Equal(t, brasilAPIBaseURL+"/cep/v2/01310100", req.URL)

	req, err = adapter.BuildRequest(registry.FetchParams{Query: "cnpj 00.000.000/0001-91"})
	require.NoError(t, err)
	assert.Equal(t, brasilAPIBaseURL+"/cnpj/v1/00000000000191", req.URL)

	req, err = adapter.BuildRequest(registry.FetchParams{Query: "lista de bancos"})
	require.NoError(t, err)
	assert.Equal(t, brasilAPIBaseURL+"/banks/v1", req.URL)
}

func TestBrasilAPIBuildRequestDDDAndHolidays(t *testing.T) {
	adapter := NewBrasilAPIAdapter("")
	adapter.now = func() time.Time {
		return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	}

	req, err := adapter.BuildRequest(registry.FetchParams{Query: "cidades do ddd 21"})
	require.NoError(t, err)
	assert.Equal(t, brasilAPIBaseURL+"/ddd/v1/21", req.URL)

	// No area code in the query falls back to Sao Paulo's.
	req, err = adapter.BuildRequest(registry.FetchParams{Query: "consulta de ddd"})
	require.NoError(t, err)
	assert.Equal(t, brasilAPIBaseURL+"/ddd/v1/11", req.URL)

	req, err = adapter.BuildRequest(registry.FetchParams{Query: "feriados de 2027"})
	require.NoError(t, err)
	assert.Equal(t, brasilAPIBaseURL+"/feriados/v1/2027", req.URL)

	// No year in the query uses the current one.
	req, err = adapter.BuildRequest(registry.FetchParams{Query: "feriados nacionais"})
	require.NoError(t, err)
	assert.Equal(t, brasilAPIBaseURL+"/feriados/v1/2026", req.URL)
}

func TestBrasilAPIParsePage(t *testing.T) {
	adapter := NewBrasilAPIAdapter("")

	// Single-object lookups become single-record pages.
	page, err := adapter.ParsePage([]byte(`{"cep": "01310100", "city": "São Paulo"}`))
	require.NoError(t, err)
	require.Len(t, page.Records, 1)

	page, err = adapter.ParsePage([]byte(`[{"code": 1}, {"code": 237}]`))
	require.NoError(t, err)
	assert.Len(t, page.Records, 2)
}

func TestBancoCentralBuildRequest(t *testing.T) {
	adapter := NewBancoCentralAdapter("")
	adapter.now = func() time.Time {
		return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	}

	req, err := adapter.BuildRequest(registry.FetchParams{Query: "cotacao do dolar"})
	require.NoError(t, err)
	assert.Contains(t, req.URL, "CotacaoDolarPeriodo")
	assert.Equal(t, "'08-22-2026'", req.Query.Get("@dataInicial"))
	assert.Equal(t, "'08-29-2026'", req.Query.Get("@dataFinalCotacao"))
	assert.Equal(t, "json", req.Query.Get("$format"))
}

func TestBancoCentralParsePage(t *testing.T) {
	body := `{"value": [{"cotacaoCompra": 5.43, "dataHoraCotacao": "2026-08-28 13:00:00"}]}`
	page, err := NewBancoCentralAdapter("").ParsePage([]byte(body))
	require.NoError(t, err)
	assert.Len(t, page.Records, 1)
}

func TestDefaultRegistry(t *testing.T) {
	cfg := &types.Config{TransparenciaAPIKey: "k", PageDelay: 100 * time.Millisecond}
	reg, err := DefaultRegistry(cfg)
	require.NoError(t, err)
	assert.Len(t, reg.All(), 6)

	resolved := reg.Resolve("gastos com educacao", nil, "")
	keys := make([]string, 0, len(resolved))
	for _, desc := range resolved {
		keys = append(keys, desc.Key)
	}
	assert.Contains(t, keys, "transparencia")
	assert.Contains(t, keys, "ibge")
}

func TestDefaultRegistryWithoutToken(t *testing.T) {
	// Without an API key the transparencia source registers disabled and
	// never resolves.
	reg, err := DefaultRegistry(&types.Config{})
	require.NoError(t, err)

	desc, ok := reg.Get("transparencia")
	require.True(t, ok)
	assert.False(t, desc.Enabled)

	for _, resolved := range reg.Resolve("gastos publicos", nil, "") {
		assert.NotEqual(t, "transparencia", resolved.Key)
	}
}
