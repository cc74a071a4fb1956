package sources

import (
	"regexp"
	"strings"
)

// Entities are structured values recognized inside free-text query input.
// Several sources take them as path or query parameters (CEP and CNPJ
// lookups, area-code and holiday queries, per-state municipality
// listings).
type Entities struct {
	CEP  string
	CNPJ string
	UF   string
	DDD  string
	Year string
}

var (
	cepPattern  = regexp.MustCompile(`\b(\d{5})-?(\d{3})\b`)
	cnpjPattern = regexp.MustCompile(`\b(\d{2})\.?(\d{3})\.?(\d{3})/?(\d{4})-?(\d{2})\b`)
	ufPattern   = regexp.MustCompile(`\b([A-Za-z]{2})\b`)
	dddPattern  = regexp.MustCompile(`(?i)\bddd\s*:?\s*(\d{2})\b`)
	yearPattern = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
)

var brazilianStates = map[string]bool{
	"AC": true, "AL": true, "AP": true, "AM": true, "BA": true, "CE": true,
	"DF": true, "ES": true, "GO": true, "MA": true, "MT": true, "MS": true,
	"MG": true, "PA": true, "PB": true, "PR": true, "PE": true, "PI": true,
	"RJ": true, "RN": true, "RS": true, "RO": true, "RR": true, "SC": true,
	"SP": true, "SE": true, "TO": true,
}

// ExtractEntities scans query text for CEP, CNPJ and UF tokens.
func ExtractEntities(query string) Entities {
	var entities Entities

	// CNPJ first: a bare CNPJ digit run contains a CEP-shaped substring.
	if m := cnpjPattern.FindStringSubmatch(query); m != nil {
		entities.CNPJ = m[1] + m[2] + m[3] + m[4] + m[5]
	} else if m := cepPattern.FindStringSubmatch(query); m != nil {
		entities.CEP = m[1] + m[2]
	}

	for _, m := range ufPattern.FindAllStringSubmatch(query, -1) {
		candidate := strings.ToUpper(m[1])
		// Only accept tokens the author wrote as a state sigla.
		if m[1] == candidate && brazilianStates[candidate] {
			entities.UF = candidate
			break
		}
	}

	if m := dddPattern.FindStringSubmatch(query); m != nil {
		entities.DDD = m[1]
	}
	if m := yearPattern.FindStringSubmatch(query); m != nil {
		entities.Year = m[1]
	}

	return entities
}
