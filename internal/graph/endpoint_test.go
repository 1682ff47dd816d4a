package graph_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/nedindex/internal/graph"
	"github.com/scrypster/nedindex/internal/vocab"
)

const resultsJSON = `{
  "head": {"vars": ["alias"]},
  "results": {"bindings": [
    {"alias": {"type": "typed-literal", "value": "AAPL", "datatype": "http://www.w3.org/2001/XMLSchema#string"}},
    {"alias": {"type": "literal", "value": "Apple", "xml:lang": "en"}},
    {"alias": {"type": "uri", "value": "http://yago-knowledge.org/resource/Apple_Inc."}},
    {"alias": {"type": "bnode", "value": "b0"}}
  ]}
}`

func aliasQuery() graph.Query {
	return graph.Query{
		Select: []string{"alias"},
		Where: []graph.Pattern{
			graph.Triple(graph.Var("e"), graph.IRI(vocab.RDFSLabel), graph.Var("alias")),
		},
	}
}

func TestEndpointSelect(t *testing.T) {
	var gotQuery, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotQuery = r.PostForm.Get("query")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = w.Write([]byte(resultsJSON))
	}))
	defer srv.Close()

	ep, err := graph.NewEndpoint(srv.URL, graph.EndpointOptions{})
	require.NoError(t, err)

	rows, err := ep.Select(context.Background(), aliasQuery())
	require.NoError(t, err)

	assert.Equal(t, aliasQuery().String(), gotQuery)
	assert.Equal(t, "application/sparql-results+json", gotAccept)
	require.Len(t, rows, 4)
	assert.Equal(t, graph.LiteralValue("AAPL", vocab.XSDString), rows[0]["alias"])
	assert.Equal(t, graph.LangLiteralValue("Apple", "en"), rows[1]["alias"])
	assert.Equal(t, graph.IRIValue("http://yago-knowledge.org/resource/Apple_Inc."), rows[2]["alias"])
	assert.Equal(t, graph.BlankValue("b0"), rows[3]["alias"])
}

func TestEndpointSelect_BadRequestIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "parse error", http.StatusBadRequest)
	}))
	defer srv.Close()

	ep, err := graph.NewEndpoint(srv.URL, graph.EndpointOptions{})
	require.NoError(t, err)

	_, err = ep.Select(context.Background(), aliasQuery())
	assert.ErrorIs(t, err, graph.ErrMalformedQuery)
}

func TestEndpointSelect_ServerErrorOpensBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ep, err := graph.NewEndpoint(srv.URL, graph.EndpointOptions{MaxFailures: 2, BreakerTimeout: time.Minute})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := ep.Select(context.Background(), aliasQuery())
		assert.ErrorIs(t, err, graph.ErrSourceUnavailable)
	}
	assert.Equal(t, int32(2), calls.Load(), "open circuit must stop reaching the server")
	assert.Equal(t, "open", ep.BreakerState())
}

func TestEndpointSelect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ep, err := graph.NewEndpoint(url, graph.EndpointOptions{Timeout: time.Second})
	require.NoError(t, err)

	_, err = ep.Select(context.Background(), aliasQuery())
	assert.ErrorIs(t, err, graph.ErrSourceUnavailable)
}

func TestEndpointSelect_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	ep, err := graph.NewEndpoint(srv.URL, graph.EndpointOptions{})
	require.NoError(t, err)

	_, err = ep.Select(context.Background(), aliasQuery())
	assert.ErrorIs(t, err, graph.ErrSourceUnavailable)
}

func TestNewEndpoint_InvalidURL(t *testing.T) {
	for _, u := range []string{"", "lod.openlinksw.com/sparql", "ftp://example.com/sparql"} {
		_, err := graph.NewEndpoint(u, graph.EndpointOptions{})
		assert.ErrorIs(t, err, graph.ErrSourceUnavailable, u)
	}
}

func TestEndpointSelect_MalformedQueryNotSent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	ep, err := graph.NewEndpoint(srv.URL, graph.EndpointOptions{})
	require.NoError(t, err)

	_, err = ep.Select(context.Background(), graph.Query{})
	assert.ErrorIs(t, err, graph.ErrMalformedQuery)
	assert.Zero(t, calls.Load())
}
