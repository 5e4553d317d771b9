package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/wire"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// Collection implements [domain.Collection] over the REST backend.
//
// Endpoints, relative to /api/{name}:
//
//	GET    ?filter=             find
//	GET    /one?filter=         findOne
//	GET    /count?filter=       countDocuments
//	POST   (document)           insertOne
//	POST   /bulk (documents)    insertMany
//	PATCH  ?filter=&many=       updateOne, updateMany
//	DELETE ?filter=&many=       deleteOne, deleteMany
//	POST   /aggregate           aggregate
//	GET    /indexes             listIndexes
//	DELETE /all                 drop
type Collection struct {
	db   *Database
	name string
}

// Name implements [domain.Collection].
func (c *Collection) Name() string {
	return c.name
}

// Find implements [domain.Collection]. The cursor is built over the documents
// returned by the backend, so sort, skip and limit run locally.
func (c *Collection) Find(ctx context.Context, filter any) (domain.Cursor, error) {
	res, err := c.get(ctx, domain.OpFind, "", filter)
	if err != nil {
		return nil, err
	}
	docs, err := wire.DecodeDocuments(ctx, res)
	if err != nil {
		return nil, err
	}
	return c.db.cursorFactory(ctx, docs)
}

// FindOne implements [domain.Collection].
func (c *Collection) FindOne(ctx context.Context, filter any) (domain.Document, error) {
	res, err := c.get(ctx, domain.OpFindOne, "/one", filter)
	if err != nil {
		return nil, err
	}
	return wire.DecodeDocument(ctx, res)
}

// InsertOne implements [domain.Collection].
func (c *Collection) InsertOne(ctx context.Context, doc any) (domain.InsertOneResult, error) {
	var out domain.InsertOneResult
	err := c.send(ctx, domain.OpInsertOne, http.MethodPost, "", nil, doc, &out)
	return out, err
}

// InsertMany implements [domain.Collection].
func (c *Collection) InsertMany(ctx context.Context, docs []any) (domain.InsertManyResult, error) {
	var out domain.InsertManyResult
	err := c.send(ctx, domain.OpInsertMany, http.MethodPost, "/bulk", nil, docs, &out)
	return out, err
}

// UpdateOne implements [domain.Collection].
func (c *Collection) UpdateOne(ctx context.Context, filter any, update any) (domain.UpdateResult, error) {
	return c.update(ctx, domain.OpUpdateOne, filter, update, false)
}

// UpdateMany implements [domain.Collection].
func (c *Collection) UpdateMany(ctx context.Context, filter any, update any) (domain.UpdateResult, error) {
	return c.update(ctx, domain.OpUpdateMany, filter, update, true)
}

func (c *Collection) update(ctx context.Context, op domain.Operation, filter any, update any, many bool) (domain.UpdateResult, error) {
	var out domain.UpdateResult
	if err := c.check(op); err != nil {
		return out, err
	}
	query, err := c.query(filter, many)
	if err != nil {
		return out, err
	}
	err = c.send(ctx, op, http.MethodPatch, "", query, update, &out)
	return out, err
}

// DeleteOne implements [domain.Collection].
func (c *Collection) DeleteOne(ctx context.Context, filter any) (domain.DeleteResult, error) {
	return c.delete(ctx, domain.OpDeleteOne, filter, false)
}

// DeleteMany implements [domain.Collection].
func (c *Collection) DeleteMany(ctx context.Context, filter any) (domain.DeleteResult, error) {
	return c.delete(ctx, domain.OpDeleteMany, filter, true)
}

func (c *Collection) delete(ctx context.Context, op domain.Operation, filter any, many bool) (domain.DeleteResult, error) {
	var out domain.DeleteResult
	if err := c.check(op); err != nil {
		return out, err
	}
	query, err := c.query(filter, many)
	if err != nil {
		return out, err
	}
	err = c.send(ctx, op, http.MethodDelete, "", query, nil, &out)
	return out, err
}

// CountDocuments implements [domain.Collection].
func (c *Collection) CountDocuments(ctx context.Context, filter any) (int64, error) {
	res, err := c.get(ctx, domain.OpCountDocuments, "/count", filter)
	if err != nil {
		return 0, err
	}
	var out struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(res, &out); err != nil {
		return 0, c.db.invalid(http.StatusOK, err)
	}
	return out.Count, nil
}

// Aggregate implements [domain.Collection].
func (c *Collection) Aggregate(ctx context.Context, pipeline []domain.Document) ([]domain.Document, error) {
	if err := c.check(domain.OpAggregate); err != nil {
		return nil, err
	}
	body, err := wire.Encode(pipeline)
	if err != nil {
		return nil, err
	}
	res, err := c.db.call(ctx, http.MethodPost, c.path("/aggregate"), nil, body)
	if err != nil {
		return nil, err
	}
	return wire.DecodeDocuments(ctx, res)
}

// ListIndexes implements [domain.Collection].
func (c *Collection) ListIndexes(ctx context.Context) ([]domain.IndexInfo, error) {
	if err := c.check(domain.OpListIndexes); err != nil {
		return nil, err
	}
	res, err := c.db.call(ctx, http.MethodGet, c.path("/indexes"), nil, nil)
	if err != nil {
		return nil, err
	}
	var out []domain.IndexInfo
	if err := json.Unmarshal(res, &out); err != nil {
		return nil, c.db.invalid(http.StatusOK, err)
	}
	return out, nil
}

// Drop implements [domain.Collection].
func (c *Collection) Drop(ctx context.Context) error {
	if err := c.check(domain.OpDrop); err != nil {
		return err
	}
	_, err := c.db.call(ctx, http.MethodDelete, c.path("/all"), nil, nil)
	return err
}

func (c *Collection) check(op domain.Operation) error {
	if !c.db.wiring.Allows(c.name, op) {
		return domain.ErrNotImplemented{Collection: c.name, Operation: op}
	}
	return nil
}

func (c *Collection) path(suffix string) string {
	return wire.APIPrefix + url.PathEscape(c.name) + suffix
}

func (c *Collection) query(filter any, many bool) (url.Values, error) {
	query := url.Values{}
	if filter != nil {
		b, err := wire.Encode(filter)
		if err != nil {
			return nil, err
		}
		query.Set("filter", string(b))
	}
	if many {
		query.Set("many", "true")
	}
	return query, nil
}

func (c *Collection) get(ctx context.Context, op domain.Operation, suffix string, filter any) (json.RawMessage, error) {
	if err := c.check(op); err != nil {
		return nil, err
	}
	query, err := c.query(filter, false)
	if err != nil {
		return nil, err
	}
	return c.db.call(ctx, http.MethodGet, c.path(suffix), query, nil)
}

// send encodes body, calls the backend and decodes the result into out.
func (c *Collection) send(ctx context.Context, op domain.Operation, method, suffix string, query url.Values, body any, out any) error {
	if err := c.check(op); err != nil {
		return err
	}
	var payload []byte
	if body != nil {
		b, err := wire.Encode(body)
		if err != nil {
			return err
		}
		payload = b
	}
	res, err := c.db.call(ctx, method, c.path(suffix), query, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(res, out); err != nil {
		return c.db.invalid(http.StatusOK, err)
	}
	return nil
}
