package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/unifiedmodel"
)

// Sanitize accepts any JSON body unchanged. Search bodies carry their own
// size, so no limit is injected.
func (c *Connection) Sanitize(_ context.Context, raw string, _ int) (string, error) {
	if !json.Valid([]byte(raw)) {
		return "", adapter.BadRequest("query must be a JSON search body")
	}
	return raw, nil
}

// splitEnvelope lifts an optional "index" member out of the body. The rest
// of the object is the search request itself.
func splitEnvelope(raw string) (string, []byte, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		// Not an object: let the cluster judge it.
		return "", []byte(raw), nil
	}

	indexRaw, ok := envelope["index"]
	if !ok {
		return "", []byte(raw), nil
	}
	var index string
	if err := json.Unmarshal(indexRaw, &index); err != nil {
		return "", nil, adapter.BadRequest("index must be a string")
	}
	delete(envelope, "index")

	body, err := json.Marshal(envelope)
	if err != nil {
		return "", nil, err
	}
	return index, body, nil
}

// Execute runs a _search and returns the cluster's response verbatim.
func (c *Connection) Execute(ctx context.Context, raw string, _ *int) (*unifiedmodel.QueryResult, error) {
	body, err := c.Sanitize(ctx, raw, 0)
	if err != nil {
		return nil, err
	}
	index, request, err := splitEnvelope(body)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout())
	defer cancel()

	start := time.Now()
	res, err := c.client.search(ctx, index, bytes.NewReader(request))
	elapsed := time.Since(start)
	if err != nil {
		return nil, adapter.QueryFailed(c.kind, "execute", err)
	}
	if res.isError() {
		return nil, adapter.QueryFailed(c.kind, "execute", fmt.Errorf("status %d: %s", res.status, res.body))
	}

	c.logger.Debugf("%s %s: search finished in %s", c.kind, c.config.Name, elapsed)

	data := json.RawMessage(res.body)
	if !json.Valid(data) {
		return nil, adapter.ConversionFailed(c.kind, "search response is not JSON")
	}
	return &unifiedmodel.QueryResult{Data: data, ExecutionTime: elapsed}, nil
}
