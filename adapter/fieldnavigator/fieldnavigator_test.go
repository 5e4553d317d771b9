package fieldnavigator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/data"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

type M = domain.Document

type FieldNavigatorTestSuite struct {
	suite.Suite
	fn *FieldNavigator
}

func (s *FieldNavigatorTestSuite) SetupTest() {
	s.fn = NewFieldNavigator(data.NewDocument).(*FieldNavigator)
}

func (s *FieldNavigatorTestSuite) TestGetAddress() {
	s.Equal([]string{"a"}, s.fn.GetAddress("a"))
	s.Equal([]string{"loc", "bin", "0"}, s.fn.GetAddress("loc.bin.0"))
}

func (s *FieldNavigatorTestSuite) TestFirstLevel() {
	doc := M{"hello": "world", "type": M{"planet": true}}

	v, ok := s.fn.GetField(doc, "hello")
	s.True(ok)
	s.Equal("world", v)

	v, ok = s.fn.GetField(doc, "type", "planet")
	s.True(ok)
	s.Equal(true, v)
}

func (s *FieldNavigatorTestSuite) TestNilValueIsSet() {
	v, ok := s.fn.GetField(M{"a": nil}, "a")
	s.True(ok)
	s.Nil(v)
}

func (s *FieldNavigatorTestSuite) TestMissing() {
	doc := M{"hello": "world", "type": M{"planet": true}}

	_, ok := s.fn.GetField(doc, "helloo")
	s.False(ok)

	_, ok = s.fn.GetField(doc, "type", "blue")
	s.False(ok)

	_, ok = s.fn.GetField(doc, "hello", "length")
	s.False(ok)

	_, ok = s.fn.GetField(nil, "a")
	s.False(ok)

	_, ok = s.fn.GetField(doc)
	s.False(ok)
}

func (s *FieldNavigatorTestSuite) TestArrayIndex() {
	doc := M{"items": []any{M{"sku": "A1"}, M{"sku": "B2"}}}

	v, ok := s.fn.GetField(doc, "items", "1", "sku")
	s.True(ok)
	s.Equal("B2", v)

	_, ok = s.fn.GetField(doc, "items", "2", "sku")
	s.False(ok)

	_, ok = s.fn.GetField(doc, "items", "-1")
	s.False(ok)

	_, ok = s.fn.GetField(doc, "items", "sku")
	s.False(ok)
}

func (s *FieldNavigatorTestSuite) TestSetField() {
	doc := M{"a": 1, "loc": "flat"}

	s.NoError(s.fn.SetField(doc, 2, "a"))
	s.NoError(s.fn.SetField(doc, "A-01", "loc", "bin"))
	s.NoError(s.fn.SetField(doc, true, "x", "y", "z"))

	s.Equal(M{
		"a":   2,
		"loc": M{"bin": "A-01"},
		"x":   M{"y": M{"z": true}},
	}, doc)
}

func (s *FieldNavigatorTestSuite) TestSetFieldKeepsSiblings() {
	doc := M{"loc": M{"bin": "A", "zone": "Z"}}
	s.NoError(s.fn.SetField(doc, "B", "loc", "bin"))
	s.Equal(M{"loc": M{"bin": "B", "zone": "Z"}}, doc)
}

func (s *FieldNavigatorTestSuite) TestSetFieldErrors() {
	s.ErrorAs(s.fn.SetField(nil, 1, "a"), &domain.ErrDocumentType{})
	s.ErrorAs(s.fn.SetField(M{}, 1), &domain.ErrDocumentType{})
	s.ErrorAs(s.fn.SetField(M{}, 1, "", "a"), &domain.ErrDocumentType{})

	errFac := errors.New("no docs")
	fn := NewFieldNavigator(func(any) (domain.Document, error) {
		return nil, errFac
	})
	s.ErrorIs(fn.SetField(M{}, 1, "a", "b"), errFac)
}

func TestFieldNavigatorTestSuite(t *testing.T) {
	suite.Run(t, new(FieldNavigatorTestSuite))
}
