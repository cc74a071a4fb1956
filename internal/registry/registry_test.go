package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dadosbr/agregador/internal/httpclient"
)

type noopAdapter struct{}

func (noopAdapter) BuildRequest(FetchParams) (httpclient.Request, error) {
	return httpclient.Request{}, nil
}

func (noopAdapter) ParsePage([]byte) (*httpclient.Page, error) {
	return &httpclient.Page{}, nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New()
	for _, key := range []string{"camara", "senado", "transparencia", "ibge", "brasilapi"} {
		require.NoError(t, r.Register(&SourceDescriptor{
			Key:     key,
			Name:    key,
			BaseURL: "https://" + key + ".example",
			Enabled: true,
			Adapter: noopAdapter{},
		}))
	}
	require.NoError(t, r.Register(&SourceDescriptor{
		Key:     "desligada",
		Name:    "desligada",
		BaseURL: "https://desligada.example",
		Enabled: false,
		Adapter: noopAdapter{},
	}))

	r.MapKeyword("deputado", "camara")
	r.MapKeyword("senador", "senado")
	r.MapKeyword("congresso", "camara", "senado")
	r.MapKeyword("gastos", "transparencia")
	r.MapKeyword("educacao", "transparencia", "ibge")
	r.MapKeyword("saude", "ibge")
	r.MapKeyword("cep", "brasilapi")
	r.SetDefaults("ibge", "brasilapi")
	return r
}

func keysOf(descs []*SourceDescriptor) []string {
	out := make([]string, len(descs))
	for i, d := range descs {
		out[i] = d.Key
	}
	return out
}

func TestResolveExplicitSources(t *testing.T) {
	r := newTestRegistry(t)
	got := r.Resolve("qualquer coisa", []string{"senado", "camara"}, "")
	assert.Equal(t, []string{"senado", "camara"}, keysOf(got))
}

func TestResolveExplicitFiltersDisabled(t *testing.T) {
	r := newTestRegistry(t)
	got := r.Resolve("", []string{"desligada", "camara"}, "")
	assert.Equal(t, []string{"camara"}, keysOf(got))
}

func TestResolveUnionsAllMatchingKeywords(t *testing.T) {
	r := newTestRegistry(t)
	got := r.Resolve("gastos do ministério da educação", nil, "")
	// "gastos" -> transparencia, "educacao" -> transparencia + ibge;
	// transparencia appears exactly once.
	assert.ElementsMatch(t, []string{"transparencia", "ibge"}, keysOf(got))
}

func TestResolveFoldsAccents(t *testing.T) {
	r := newTestRegistry(t)
	got := r.Resolve("dados de Saúde pública", nil, "")
	assert.Equal(t, []string{"ibge"}, keysOf(got))
}

func TestResolveFallsBackToDefaults(t *testing.T) {
	r := newTestRegistry(t)
	got := r.Resolve("zzz nada reconhecível", nil, "")
	assert.Equal(t, []string{"ibge", "brasilapi"}, keysOf(got))
}

func TestResolveDeduplicates(t *testing.T) {
	r := newTestRegistry(t)
	got := r.Resolve("congresso deputado senador", nil, "")
	assert.ElementsMatch(t, []string{"camara", "senado"}, keysOf(got))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := New()
	desc := &SourceDescriptor{Key: "ibge", BaseURL: "https://x", Adapter: noopAdapter{}}
	require.NoError(t, r.Register(desc))
	assert.Error(t, r.Register(desc))
}

func TestRegisterValidates(t *testing.T) {
	r := New()
	assert.Error(t, r.Register(&SourceDescriptor{Key: "", BaseURL: "https://x", Adapter: noopAdapter{}}))
	assert.Error(t, r.Register(&SourceDescriptor{Key: "x", Adapter: noopAdapter{}}))
	assert.Error(t, r.Register(&SourceDescriptor{Key: "x", BaseURL: "https://x"}))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "saude", Normalize("Saúde"))
	assert.Equal(t, "educacao", Normalize("EDUCAÇÃO"))
	assert.Equal(t, "transporte rodoviario", Normalize("Transporte Rodoviário"))
}

func TestRateBudgets(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&SourceDescriptor{
		Key: "camara", BaseURL: "https://x", Enabled: true, RateLimit: 120, Adapter: noopAdapter{},
	}))
	assert.Equal(t, map[string]int{"camara": 120}, r.RateBudgets())
}
