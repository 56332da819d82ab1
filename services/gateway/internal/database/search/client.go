package search

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
)

// response is the part of an SDK response the adapter reads.
type response struct {
	status int
	body   []byte
}

func (r *response) isError() bool {
	return r.status > 299
}

// client covers the four endpoints the adapter uses. Both SDKs share the
// same functional-option API, so each implementation is a thin shim.
type client interface {
	info(ctx context.Context) (*response, error)
	catIndices(ctx context.Context) (*response, error)
	mapping(ctx context.Context, index string) (*response, error)
	search(ctx context.Context, index string, body io.Reader) (*response, error)
}

func readResponse(status int, body io.ReadCloser) (*response, error) {
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	return &response{status: status, body: data}, nil
}

// endpoint describes where and how to reach a cluster.
type endpoint struct {
	address  string
	username string
	password string
	insecure bool
}

func newEndpoint(details *dbcapabilities.ConnectionDetails) endpoint {
	scheme := "http"
	if details.SSL {
		scheme = "https"
	}
	return endpoint{
		address:  fmt.Sprintf("%s://%s:%d", scheme, details.Host, details.Port),
		username: details.Username,
		password: details.Password,
		insecure: strings.EqualFold(details.Parameters["insecure"], "true"),
	}
}

func (e endpoint) transport() http.RoundTripper {
	if !e.insecure {
		return nil
	}
	return &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
}

type openSearchClient struct {
	c *opensearch.Client
}

func newOpenSearchClient(e endpoint) (client, error) {
	c, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{e.address},
		Username:  e.username,
		Password:  e.password,
		Transport: e.transport(),
	})
	if err != nil {
		return nil, err
	}
	return &openSearchClient{c: c}, nil
}

func (o *openSearchClient) info(ctx context.Context) (*response, error) {
	res, err := o.c.Info(o.c.Info.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return readResponse(res.StatusCode, res.Body)
}

func (o *openSearchClient) catIndices(ctx context.Context) (*response, error) {
	res, err := o.c.Cat.Indices(o.c.Cat.Indices.WithContext(ctx), o.c.Cat.Indices.WithFormat("json"))
	if err != nil {
		return nil, err
	}
	return readResponse(res.StatusCode, res.Body)
}

func (o *openSearchClient) mapping(ctx context.Context, index string) (*response, error) {
	res, err := o.c.Indices.GetMapping(o.c.Indices.GetMapping.WithContext(ctx), o.c.Indices.GetMapping.WithIndex(index))
	if err != nil {
		return nil, err
	}
	return readResponse(res.StatusCode, res.Body)
}

func (o *openSearchClient) search(ctx context.Context, index string, body io.Reader) (*response, error) {
	opts := []func(*opensearchapi.SearchRequest){
		o.c.Search.WithContext(ctx),
		o.c.Search.WithBody(body),
	}
	if index != "" {
		opts = append(opts, o.c.Search.WithIndex(index))
	}
	res, err := o.c.Search(opts...)
	if err != nil {
		return nil, err
	}
	return readResponse(res.StatusCode, res.Body)
}

type elasticClient struct {
	c *elasticsearch.Client
}

func newElasticClient(e endpoint) (client, error) {
	c, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{e.address},
		Username:  e.username,
		Password:  e.password,
		Transport: e.transport(),
	})
	if err != nil {
		return nil, err
	}
	return &elasticClient{c: c}, nil
}

func (el *elasticClient) info(ctx context.Context) (*response, error) {
	res, err := el.c.Info(el.c.Info.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return readResponse(res.StatusCode, res.Body)
}

func (el *elasticClient) catIndices(ctx context.Context) (*response, error) {
	res, err := el.c.Cat.Indices(el.c.Cat.Indices.WithContext(ctx), el.c.Cat.Indices.WithFormat("json"))
	if err != nil {
		return nil, err
	}
	return readResponse(res.StatusCode, res.Body)
}

func (el *elasticClient) mapping(ctx context.Context, index string) (*response, error) {
	res, err := el.c.Indices.GetMapping(el.c.Indices.GetMapping.WithContext(ctx), el.c.Indices.GetMapping.WithIndex(index))
	if err != nil {
		return nil, err
	}
	return readResponse(res.StatusCode, res.Body)
}

func (el *elasticClient) search(ctx context.Context, index string, body io.Reader) (*response, error) {
	opts := []func(*esapi.SearchRequest){
		el.c.Search.WithContext(ctx),
		el.c.Search.WithBody(body),
	}
	if index != "" {
		opts = append(opts, el.c.Search.WithIndex(index))
	}
	res, err := el.c.Search(opts...)
	if err != nil {
		return nil, err
	}
	return readResponse(res.StatusCode, res.Body)
}
