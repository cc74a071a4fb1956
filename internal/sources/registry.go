package sources

import (
	"time"

	"github.com/dadosbr/agregador/internal/httpclient"
	"github.com/dadosbr/agregador/internal/registry"
	"github.com/dadosbr/agregador/internal/types"
)

// DefaultRegistry builds the production registry: all six upstream
// sources, the keyword routing table, and the fallback defaults used
// when no keyword matches.
func DefaultRegistry(cfg *types.Config) (*registry.Registry, error) {
	reg := registry.New()

	descriptors := []*registry.SourceDescriptor{
		{
			Key:             "transparencia",
			Name:            "Portal da Transparencia",
			BaseURL:         transparenciaBaseURL,
			Enabled:         cfg.TransparenciaAPIKey != "",
			TokenRequired:   true,
			TokenHeader:     transparenciaTokenHdr,
			RateLimit:       90,
			Pagination:      httpclient.PaginationPage,
			PageParam:       "pagina",
			CourtesyDelay:   cfg.PageDelay,
			DefaultLookback: 7 * 24 * time.Hour,
			Categories:      []string{"gastos", "servidores", "contratos"},
			Adapter:         NewTransparenciaAdapter("", cfg.TransparenciaAPIKey),
		},
		{
			Key:           "brasilapi",
			Name:          "Brasil API",
			BaseURL:       brasilAPIBaseURL,
			Enabled:       true,
			RateLimit:     200,
			Pagination:    httpclient.PaginationNone,
			Categories:    []string{"cadastro", "localidades"},
			Adapter:       NewBrasilAPIAdapter(""),
			CourtesyDelay: cfg.PageDelay,
		},
		{
			Key:           "camara",
			Name:          "Camara dos Deputados",
			BaseURL:       camaraBaseURL,
			Enabled:       true,
			RateLimit:     120,
			Pagination:    httpclient.PaginationLink,
			CourtesyDelay: cfg.PageDelay,
			Categories:    []string{"legislativo"},
			Adapter:       NewCamaraAdapter(""),
		},
		{
			Key:           "senado",
			Name:          "Senado Federal",
			BaseURL:       senadoBaseURL,
			Enabled:       true,
			RateLimit:     100,
			Pagination:    httpclient.PaginationNone,
			CourtesyDelay: cfg.PageDelay,
			Categories:    []string{"legislativo"},
			Adapter:       NewSenadoAdapter(""),
		},
		{
			Key:        "ibge",
			Name:       "IBGE",
			BaseURL:    ibgeBaseURL,
			Enabled:    true,
			RateLimit:  200,
			Pagination: httpclient.PaginationNone,
			Categories: []string{"localidades", "estatisticas"},
			Adapter:    NewIBGEAdapter(""),
		},
		{
			Key:             "bancocentral",
			Name:            "Banco Central",
			BaseURL:         bancoCentralBaseURL,
			Enabled:         true,
			RateLimit:       60,
			Pagination:      httpclient.PaginationNone,
			DefaultLookback: 7 * 24 * time.Hour,
			Categories:      []string{"financeiro"},
			Adapter:         NewBancoCentralAdapter(""),
		},
	}

	for _, desc := range descriptors {
		if err := reg.Register(desc); err != nil {
			return nil, err
		}
	}

	for keyword, keys := range keywordTable {
		reg.MapKeyword(keyword, keys...)
	}
	reg.SetDefaults("brasilapi", "ibge")

	return reg, nil
}

// keywordTable routes query terms to the sources most likely to have an
// answer. Keys must be accent folded.
var keywordTable = map[string][]string{
	"deputado":   {"camara"},
	"deputados":  {"camara"},
	"senador":    {"senado"},
	"senadores":  {"senado"},
	"congresso":  {"camara", "senado"},
	"lei":        {"camara", "senado"},
	"projeto":    {"camara", "senado"},
	"proposicao": {"camara", "senado"},
	"votacao":    {"camara", "senado"},

	"gastos":      {"transparencia"},
	"despesa":     {"transparencia"},
	"despesas":    {"transparencia"},
	"orcamento":   {"transparencia"},
	"servidor":    {"transparencia"},
	"servidores":  {"transparencia"},
	"salario":     {"transparencia"},
	"licitacao":   {"transparencia"},
	"licitacoes":  {"transparencia"},
	"contrato":    {"transparencia"},
	"contratos":   {"transparencia"},
	"viagem":      {"transparencia"},
	"ministerio":  {"transparencia"},
	"beneficio":   {"transparencia"},
	"bolsa":       {"transparencia"},

	"cnpj":    {"brasilapi"},
	"cep":     {"brasilapi"},
	"empresa": {"brasilapi"},
	"ddd":     {"brasilapi"},
	"banco":   {"brasilapi", "bancocentral"},
	"feriado": {"brasilapi"},

	"municipio":  {"ibge", "brasilapi"},
	"municipios": {"ibge", "brasilapi"},
	"cidade":     {"ibge", "brasilapi"},
	"cidades":    {"ibge", "brasilapi"},
	"estado":     {"ibge"},
	"estados":    {"ibge"},
	"populacao":  {"ibge"},
	"censo":      {"ibge"},

	"cotacao": {"bancocentral"},
	"dolar":   {"bancocentral"},
	"euro":    {"bancocentral"},
	"cambio":  {"bancocentral"},
	"selic":   {"bancocentral"},
	"ptax":    {"bancocentral"},

	"saude":    {"ibge", "transparencia"},
	"educacao": {"ibge", "transparencia"},
}
