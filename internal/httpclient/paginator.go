package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/dadosbr/agregador/internal/types"
)

// PaginationStyle selects how a source exposes additional pages.
type PaginationStyle string

const (
	// PaginationNone fetches a single page.
	PaginationNone PaginationStyle = "none"
	// PaginationLink follows a "next" URL found in the response envelope.
	PaginationLink PaginationStyle = "link-header"
	// PaginationPage increments a page-number query parameter.
	PaginationPage PaginationStyle = "page-number"
)

// Page is one parsed page of upstream records. Next carries the follow-up
// URL for link-style pagination and is ignored otherwise.
type Page struct {
	Records []json.RawMessage
	Next    string
}

// PageParser extracts records and the next-page indicator from a raw body.
// Implementations are the per-source adapters.
type PageParser interface {
	ParsePage(body []byte) (*Page, error)
}

// PageRequest bounds one paginated fetch.
type PageRequest struct {
	Request
	Style     PaginationStyle
	PageParam string        // query parameter name for page-number style
	StartPage int           // first page number, defaults to 1
	MaxPages  int           // page cap, defaults to 1
	Delay     time.Duration // courtesy delay between pages
}

// Paginator drives a Client across a source's pagination mechanism,
// assembling a bounded record sequence. A failure mid-iteration halts
// pagination but the pages fetched so far are returned alongside it.
type Paginator struct {
	client *Client
	logger *log.Logger
}

// NewPaginator constructs a Paginator on top of the given client.
func NewPaginator(client *Client, logger *log.Logger) *Paginator {
	if logger == nil {
		logger = log.New(os.Stdout, "paginator ", log.LstdFlags)
	}
	return &Paginator{client: client, logger: logger}
}

// FetchAll fetches up to req.MaxPages pages and concatenates their records.
// Partial results collected before a failure are preserved, not discarded.
func (p *Paginator) FetchAll(ctx context.Context, req PageRequest, parser PageParser) ([]json.RawMessage, error) {
	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	pageNumber := req.StartPage
	if pageNumber <= 0 {
		pageNumber = 1
	}

	current := req.Request
	if req.Style == PaginationPage {
		// Work on a copy so the page counter never leaks into the
		// url.Values the adapter handed us.
		cloned := make(url.Values, len(current.Query)+1)
		for key, values := range current.Query {
			cloned[key] = append([]string(nil), values...)
		}
		current.Query = cloned
	}
	var records []json.RawMessage

	for fetched := 0; fetched < maxPages; fetched++ {
		if fetched > 0 {
			if err := sleepCtx(ctx, req.Delay); err != nil {
				return records, err
			}
		}

		if req.Style == PaginationPage {
			current.Query.Set(pageParamName(req), strconv.Itoa(pageNumber))
		}

		resp, err := p.client.Get(ctx, current)
		if err != nil {
			p.logger.Printf("pagination for %s halted at page %d with %d records: %v",
				req.Source, fetched+1, len(records), err)
			return records, err
		}
		if resp.Empty {
			break
		}

		page, err := parser.ParsePage(resp.Body)
		if err != nil {
			return records, &FetchError{
				Type:    types.ErrorTypeMalformedPayload,
				Message: fmt.Sprintf("parse page %d: %v", fetched+1, err),
				Source:  req.Source,
				Err:     err,
			}
		}
		if len(page.Records) == 0 {
			break
		}
		records = append(records, page.Records...)

		switch req.Style {
		case PaginationLink:
			if page.Next == "" {
				return records, nil
			}
			// The next link already carries its own query string.
			current = Request{Source: req.Source, URL: page.Next, Headers: req.Headers}
		case PaginationPage:
			pageNumber++
		default:
			return records, nil
		}
	}

	return records, nil
}

func pageParamName(req PageRequest) string {
	if req.PageParam != "" {
		return req.PageParam
	}
	return "pagina"
}
