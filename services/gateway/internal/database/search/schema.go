package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/unifiedmodel"
)

// ListRelations returns every user index as a table.
func (c *Connection) ListRelations(ctx context.Context) ([]unifiedmodel.RelationDescriptor, error) {
	res, err := c.client.catIndices(ctx)
	if err != nil {
		return nil, adapter.QueryFailed(c.kind, "list_relations", err)
	}
	if res.isError() {
		return nil, adapter.QueryFailed(c.kind, "list_relations", fmt.Errorf("status %d: %s", res.status, res.body))
	}

	names, err := parseIndices(res.body)
	if err != nil {
		return nil, adapter.ConversionFailed(c.kind, "error decoding index list: %v", err)
	}

	relations := make([]unifiedmodel.RelationDescriptor, 0, len(names))
	for _, name := range names {
		relations = append(relations, unifiedmodel.RelationDescriptor{Name: name, Type: unifiedmodel.RelationTable})
	}
	return relations, nil
}

// parseIndices reads the index names of a _cat/indices?format=json body,
// dropping system and underscore names.
func parseIndices(body []byte) ([]string, error) {
	var rows []struct {
		Index string `json:"index"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Index == "" || strings.HasPrefix(row.Index, ".") || strings.HasPrefix(row.Index, "_") {
			continue
		}
		names = append(names, row.Index)
	}
	sort.Strings(names)
	return names, nil
}

// Introspect reads the top-level properties of an index mapping.
func (c *Connection) Introspect(ctx context.Context, relation string) (*unifiedmodel.RelationSchema, error) {
	res, err := c.client.mapping(ctx, relation)
	if err != nil {
		return nil, adapter.QueryFailed(c.kind, "introspect", err)
	}
	if res.status == 404 {
		return nil, adapter.NewNotFoundError("index", relation)
	}
	if res.isError() {
		return nil, adapter.QueryFailed(c.kind, "introspect", fmt.Errorf("status %d: %s", res.status, res.body))
	}

	columns, err := c.mappingColumns(relation, res.body)
	if err != nil {
		return nil, err
	}
	return unifiedmodel.NewRelationSchema(relation, columns), nil
}

type indexMapping struct {
	Mappings struct {
		Properties map[string]struct {
			Type string `json:"type"`
		} `json:"properties"`
	} `json:"mappings"`
}

func (c *Connection) mappingColumns(index string, body []byte) ([]unifiedmodel.ColumnDescriptor, error) {
	var doc map[string]indexMapping
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, adapter.ConversionFailed(c.kind, "error decoding mapping: %v", err)
	}

	// An alias answers under the concrete index name.
	mapping, ok := doc[index]
	if !ok && len(doc) == 1 {
		for _, m := range doc {
			mapping = m
		}
		ok = true
	}
	if !ok || mapping.Mappings.Properties == nil {
		return nil, adapter.QueryFailed(c.kind, "introspect", fmt.Errorf("mapping for %s has no properties", index))
	}

	names := make([]string, 0, len(mapping.Mappings.Properties))
	for name := range mapping.Mappings.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	columns := make([]unifiedmodel.ColumnDescriptor, 0, len(names))
	for _, name := range names {
		native := mapping.Mappings.Properties[name].Type
		if native == "" {
			native = "object"
		}
		columns = append(columns, unifiedmodel.ColumnDescriptor{
			Name:       name,
			DataType:   unifiedmodel.ToColumnType(c.kind, native),
			IsNullable: true,
		})
	}
	return columns, nil
}
