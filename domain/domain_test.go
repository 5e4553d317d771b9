package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

type stringer struct{}

func (stringer) String() string { return "from stringer" }

type DomainTestSuite struct {
	suite.Suite
}

func (s *DomainTestSuite) TestID() {
	id := domain.ID("abc")
	s.Equal("abc", id.String())

	b, err := json.Marshal(map[string]any{"_id": id})
	s.NoError(err)
	s.JSONEq(`{"_id":"abc"}`, string(b))
}

func (s *DomainTestSuite) TestAsID() {
	id, ok := domain.AsID("x")
	s.True(ok)
	s.Equal(domain.ID("x"), id)

	id, ok = domain.AsID(domain.ID("y"))
	s.True(ok)
	s.Equal(domain.ID("y"), id)

	id, ok = domain.AsID(12)
	s.True(ok)
	s.Equal(domain.ID("12"), id)

	id, ok = domain.AsID(stringer{})
	s.True(ok)
	s.Equal(domain.ID("from stringer"), id)

	_, ok = domain.AsID(nil)
	s.False(ok)

	_, ok = domain.AsID(map[string]any{"a": 1})
	s.False(ok)
}

func (s *DomainTestSuite) TestMode() {
	s.True(domain.ModeLocal.Valid())
	s.True(domain.ModeRemote.Valid())
	s.False(domain.Mode("sql").Valid())
}

func (s *DomainTestSuite) TestErrorMessages() {
	var e error

	e = domain.ErrNotImplemented{Collection: "orders", Operation: domain.OpUpdateOne}
	s.Equal(`updateOne on collection "orders" is not implemented in REST API mode`, e.Error())

	cause := errors.New("refused")
	e = domain.ErrConnection{URI: "http://x", Reason: "unreachable", Err: cause}
	s.Equal(`connection to "http://x" failed: unreachable: refused`, e.Error())
	s.ErrorIs(e, cause)

	e = domain.ErrConnection{URI: "foo", Reason: "bad prefix"}
	s.Equal(`connection to "foo" failed: bad prefix`, e.Error())

	e = domain.ErrRemote{Status: 500, Message: "boom"}
	s.Equal("backend replied 500: boom", e.Error())

	e = domain.ErrUnknownOperator{Operator: "$foo"}
	s.Equal(`unknown operator "$foo"`, e.Error())

	e = domain.ErrCompArgType{Comp: "$in", Want: "list", Actual: 1}
	s.Equal("$in value should be of type list, got int", e.Error())

	e = domain.ErrUnsupportedModifier{Modifier: "$inc"}
	s.Equal(`unsupported update operator "$inc"`, e.Error())

	e = domain.ErrUnknownStage{Stage: "$facet"}
	s.Equal(`unknown aggregation stage "$facet"`, e.Error())

	e = domain.ErrInvalidMode{Mode: "sql"}
	s.Equal(`invalid storage mode "sql"`, e.Error())

	e = domain.ErrDocumentType{Reason: "nah"}
	s.Equal("invalid document: nah", e.Error())

	e = domain.ErrCannotCompare{A: "a", B: 2}
	s.Equal("cannot compare string and int", e.Error())

	e = domain.ErrDecode{Source: 123, Target: "a"}
	s.Equal("cannot decode int into string", e.Error())
}

func TestDomainTestSuite(t *testing.T) {
	suite.Run(t, new(DomainTestSuite))
}
