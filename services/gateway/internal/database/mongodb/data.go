package mongodb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/unifiedmodel"
)

// findRequest is the body accepted by Execute.
type findRequest struct {
	Collection string          `json:"collection"`
	Filter     json.RawMessage `json:"filter,omitempty"`
	Projection json.RawMessage `json:"projection,omitempty"`
	Sort       json.RawMessage `json:"sort,omitempty"`
}

// parseFindRequest validates the body shape. Filter, projection and sort
// are kept as extended JSON until they are decoded into bson.D.
func parseFindRequest(raw string) (*findRequest, error) {
	var req findRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return nil, adapter.BadRequest("query must be a JSON object: %v", err)
	}
	if strings.TrimSpace(req.Collection) == "" {
		return nil, adapter.BadRequest("query must name a collection")
	}
	for name, part := range map[string]json.RawMessage{
		"filter":     req.Filter,
		"projection": req.Projection,
		"sort":       req.Sort,
	} {
		if len(part) == 0 || string(part) == "null" {
			continue
		}
		if !strings.HasPrefix(strings.TrimSpace(string(part)), "{") {
			return nil, adapter.BadRequest("%s must be a JSON object", name)
		}
		if _, err := decodeDocument(part); err != nil {
			return nil, adapter.BadRequest("%s must be a JSON object", name)
		}
	}
	return &req, nil
}

func decodeDocument(raw json.RawMessage) (bson.D, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return bson.D{}, nil
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Sanitize validates the find request and returns it unchanged.
func (c *Connection) Sanitize(_ context.Context, raw string, _ int) (string, error) {
	if _, err := parseFindRequest(raw); err != nil {
		return "", err
	}
	return raw, nil
}

// Execute runs a find with the effective limit and returns the documents as
// a JSON array.
func (c *Connection) Execute(ctx context.Context, raw string, limit *int) (*unifiedmodel.QueryResult, error) {
	req, err := parseFindRequest(raw)
	if err != nil {
		return nil, err
	}
	filter, _ := decodeDocument(req.Filter)

	findOptions := options.Find().SetLimit(int64(c.config.EffectiveLimit(limit)))
	if len(req.Projection) > 0 {
		projection, _ := decodeDocument(req.Projection)
		findOptions.SetProjection(projection)
	}
	if len(req.Sort) > 0 {
		sort, _ := decodeDocument(req.Sort)
		findOptions.SetSort(sort)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout())
	defer cancel()

	start := time.Now()
	cursor, err := c.db.Collection(req.Collection).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.MongoDB, "execute", err)
	}
	var docs []bson.D
	err = cursor.All(ctx, &docs)
	elapsed := time.Since(start)
	if err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.MongoDB, "execute", err)
	}

	rows := make([]interface{}, len(docs))
	for i, doc := range docs {
		rows[i] = convertBSONValue(doc)
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, adapter.ConversionFailed(dbcapabilities.MongoDB, "error encoding documents: %v", err)
	}

	c.logger.Debugf("mongodb %s: %d documents in %s", c.config.Name, len(docs), elapsed)

	return &unifiedmodel.QueryResult{Data: data, ExecutionTime: elapsed}, nil
}

// convertBSONValue converts BSON values to plain Go values for JSON
// serialization. Documents keep no key order once converted.
func convertBSONValue(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.ObjectID:
		return val.Hex()
	case bson.DateTime:
		return val.Time().UTC().Format(time.RFC3339Nano)
	case bson.Decimal128:
		return val.String()
	case bson.Binary:
		if val.Subtype == binarySubtypeUUID {
			if id, err := uuid.FromBytes(val.Data); err == nil {
				return id.String()
			}
		}
		return base64.StdEncoding.EncodeToString(val.Data)
	case bson.Timestamp:
		return map[string]interface{}{"t": val.T, "i": val.I}
	case bson.Regex:
		return "/" + val.Pattern + "/" + val.Options
	case bson.D:
		doc := make(map[string]interface{}, len(val))
		for _, elem := range val {
			doc[elem.Key] = convertBSONValue(elem.Value)
		}
		return doc
	case bson.M:
		doc := make(map[string]interface{}, len(val))
		for k, elem := range val {
			doc[k] = convertBSONValue(elem)
		}
		return doc
	case bson.A:
		arr := make([]interface{}, len(val))
		for i, item := range val {
			arr[i] = convertBSONValue(item)
		}
		return arr
	default:
		return val
	}
}
