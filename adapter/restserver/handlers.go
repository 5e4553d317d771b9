package restserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/deserializer"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/serializer"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/wire"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

func (s *Server) health(c *gin.Context) {
	if err := s.db.Ping(c.Request.Context()); err != nil {
		s.fail(c, http.StatusServiceUnavailable, err)
		return
	}
	s.json(c, gin.H{"status": "up", "database": s.db.Name(), "mode": s.db.Mode()})
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.db.Stats(c.Request.Context())
	if err != nil {
		s.abort(c, err)
		return
	}
	s.json(c, stats)
}

func (s *Server) find(c *gin.Context) {
	coll, filter, ok := s.prepare(c, domain.OpFind)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	cur, err := coll.Find(ctx, filter)
	if err != nil {
		s.abort(c, err)
		return
	}
	defer cur.Close()
	docs, err := cur.ToArray(ctx)
	if err != nil {
		s.abort(c, err)
		return
	}
	s.docs(c, http.StatusOK, docs)
}

func (s *Server) findOne(c *gin.Context) {
	coll, filter, ok := s.prepare(c, domain.OpFindOne)
	if !ok {
		return
	}
	doc, err := coll.FindOne(c.Request.Context(), filter)
	if err != nil {
		s.abort(c, err)
		return
	}
	if doc == nil {
		s.json(c, nil)
		return
	}
	s.docs(c, http.StatusOK, doc)
}

func (s *Server) count(c *gin.Context) {
	coll, filter, ok := s.prepare(c, domain.OpCountDocuments)
	if !ok {
		return
	}
	n, err := coll.CountDocuments(c.Request.Context(), filter)
	if err != nil {
		s.abort(c, err)
		return
	}
	s.json(c, gin.H{"count": n})
}

func (s *Server) indexes(c *gin.Context) {
	coll, _, ok := s.prepare(c, domain.OpListIndexes)
	if !ok {
		return
	}
	idx, err := coll.ListIndexes(c.Request.Context())
	if err != nil {
		s.abort(c, err)
		return
	}
	s.json(c, idx)
}

func (s *Server) insertOne(c *gin.Context) {
	coll, _, ok := s.prepare(c, domain.OpInsertOne)
	if !ok {
		return
	}
	doc, ok := s.bodyDocument(c)
	if !ok {
		return
	}
	res, err := coll.InsertOne(c.Request.Context(), doc)
	if err != nil {
		s.abort(c, err)
		return
	}
	s.jsonStatus(c, http.StatusCreated, res)
}

func (s *Server) insertMany(c *gin.Context) {
	coll, _, ok := s.prepare(c, domain.OpInsertMany)
	if !ok {
		return
	}
	docs, ok := s.bodyDocuments(c)
	if !ok {
		return
	}
	items := make([]any, len(docs))
	for n, doc := range docs {
		items[n] = doc
	}
	res, err := coll.InsertMany(c.Request.Context(), items)
	if err != nil {
		s.abort(c, err)
		return
	}
	s.jsonStatus(c, http.StatusCreated, res)
}

func (s *Server) aggregate(c *gin.Context) {
	coll, _, ok := s.prepare(c, domain.OpAggregate)
	if !ok {
		return
	}
	pipeline, ok := s.bodyDocuments(c)
	if !ok {
		return
	}
	res, err := coll.Aggregate(c.Request.Context(), pipeline)
	if err != nil {
		s.abort(c, err)
		return
	}
	s.docs(c, http.StatusOK, res)
}

func (s *Server) update(c *gin.Context) {
	many := c.Query("many") == "true"
	op := domain.OpUpdateOne
	if many {
		op = domain.OpUpdateMany
	}
	coll, filter, ok := s.prepare(c, op)
	if !ok {
		return
	}
	upd, ok := s.bodyDocument(c)
	if !ok {
		return
	}

	var (
		res domain.UpdateResult
		err error
	)
	if many {
		res, err = coll.UpdateMany(c.Request.Context(), filter, upd)
	} else {
		res, err = coll.UpdateOne(c.Request.Context(), filter, upd)
	}
	if err != nil {
		s.abort(c, err)
		return
	}
	s.json(c, res)
}

func (s *Server) delete(c *gin.Context) {
	many := c.Query("many") == "true"
	op := domain.OpDeleteOne
	if many {
		op = domain.OpDeleteMany
	}
	coll, filter, ok := s.prepare(c, op)
	if !ok {
		return
	}

	var (
		res domain.DeleteResult
		err error
	)
	if many {
		res, err = coll.DeleteMany(c.Request.Context(), filter)
	} else {
		res, err = coll.DeleteOne(c.Request.Context(), filter)
	}
	if err != nil {
		s.abort(c, err)
		return
	}
	s.json(c, res)
}

func (s *Server) drop(c *gin.Context) {
	coll, _, ok := s.prepare(c, domain.OpDrop)
	if !ok {
		return
	}
	if err := coll.Drop(c.Request.Context()); err != nil {
		s.abort(c, err)
		return
	}
	s.json(c, nil)
}

// prepare records op and returns the collection and the decoded filter. A nil
// document filter is returned as an untyped nil.
func (s *Server) prepare(c *gin.Context, op domain.Operation) (domain.Collection, any, bool) {
	c.Set(opKey, string(op))
	coll := s.db.Collection(c.Param(collParam))

	raw := c.Query("filter")
	if raw == "" {
		return coll, nil, true
	}
	filter, err := wire.DecodeDocument(c.Request.Context(), []byte(raw))
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return nil, nil, false
	}
	if filter == nil {
		return coll, nil, true
	}
	return coll, filter, true
}

func (s *Server) bodyDocument(c *gin.Context) (domain.Document, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return nil, false
	}
	doc, err := wire.DecodeDocument(c.Request.Context(), raw)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return nil, false
	}
	if doc == nil {
		s.fail(c, http.StatusBadRequest, errors.New("missing request body"))
		return nil, false
	}
	return doc, true
}

func (s *Server) bodyDocuments(c *gin.Context) ([]domain.Document, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return nil, false
	}
	docs, err := wire.DecodeDocuments(c.Request.Context(), raw)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return nil, false
	}
	return docs, true
}

// docs replies with documents in their stored form.
func (s *Server) docs(c *gin.Context, status int, v any) {
	b, err := wire.Encode(v)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(status, wire.Envelope{OK: true, Data: b})
}

func (s *Server) json(c *gin.Context, v any) {
	s.jsonStatus(c, http.StatusOK, v)
}

func (s *Server) jsonStatus(c *gin.Context, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(status, wire.Envelope{OK: true, Data: b})
}

func (s *Server) abort(c *gin.Context, err error) {
	s.fail(c, statusOf(err), err)
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, wire.Envelope{OK: false, Error: err.Error()})
}

func statusOf(err error) int {
	var (
		notImpl  domain.ErrNotImplemented
		unknown  domain.ErrUnknownOperator
		argType  domain.ErrCompArgType
		modifier domain.ErrUnsupportedModifier
		stage    domain.ErrUnknownStage
		docType  domain.ErrDocumentType
		corrupt  deserializer.ErrCorrupt
	)
	switch {
	case errors.As(err, &notImpl):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrMixedOperators),
		errors.Is(err, serializer.ErrDottedField),
		errors.Is(err, serializer.ErrDollarField),
		errors.As(err, &unknown),
		errors.As(err, &argType),
		errors.As(err, &modifier),
		errors.As(err, &stage),
		errors.As(err, &docType),
		errors.As(err, &corrupt):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
