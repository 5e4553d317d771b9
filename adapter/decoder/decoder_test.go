package decoder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

type M = domain.Document

type DecoderTestSuite struct {
	suite.Suite
	d *Decoder
}

func (s *DecoderTestSuite) SetupTest() {
	s.d = NewDecoder().(*Decoder)
}

func (s *DecoderTestSuite) TestSimpleStruct() {
	type SimpleStruct struct {
		Name  string
		Age   int
		Human bool
	}

	var tgt SimpleStruct
	err := s.d.Decode(M{"name": "Jonathan", "age": 18, "human": true}, &tgt)
	s.NoError(err)
	s.Equal(SimpleStruct{Name: "Jonathan", Age: 18, Human: true}, tgt)
}

func (s *DecoderTestSuite) TestTags() {
	type Product struct {
		ID  string    `ledger:"_id"`
		SKU string    `ledger:"sku"`
		Qty float64   `ledger:"qty"`
		At  time.Time `ledger:"at"`
	}

	at := time.UnixMilli(1700000000000)
	var tgt Product
	err := s.d.Decode(M{"_id": domain.ID("1-abc"), "sku": "A1", "qty": 5, "at": at}, &tgt)
	s.NoError(err)
	s.Equal(Product{ID: "1-abc", SKU: "A1", Qty: 5, At: at}, tgt)
}

func (s *DecoderTestSuite) TestLists() {
	type ListStruct struct {
		Strings []string
		Numbers []int
	}

	var tgt ListStruct
	err := s.d.Decode(M{
		"strings": []any{"one", "two"},
		"numbers": []any{1, uint(2), 3.0},
	}, &tgt)
	s.NoError(err)
	s.Equal([]string{"one", "two"}, tgt.Strings)
	s.Equal([]int{1, 2, 3}, tgt.Numbers)
}

func (s *DecoderTestSuite) TestDocuments() {
	docs := []M{{"a": 1}, {"a": 2}}

	var tgt []struct{ A int }
	s.NoError(s.d.Decode(docs, &tgt))
	s.Len(tgt, 2)
	s.Equal(2, tgt[1].A)
}

func (s *DecoderTestSuite) TestMapTargetIsDetached() {
	src := M{"loc": M{"bin": "A"}}

	var tgt map[string]any
	s.NoError(s.d.Decode(src, &tgt))
	tgt["loc"].(M)["bin"] = "B"

	s.Equal(M{"loc": M{"bin": "A"}}, src)
}

func (s *DecoderTestSuite) TestInvalidTargets() {
	s.ErrorIs(s.d.Decode(M{}, nil), domain.ErrTargetNil)

	var tgt struct{}
	s.ErrorIs(s.d.Decode(M{}, tgt), domain.ErrNonPointer)

	var nilPtr *struct{}
	s.ErrorIs(s.d.Decode(M{}, nilPtr), domain.ErrTargetNil)
}

func (s *DecoderTestSuite) TestDecodeError() {
	var tgt struct{ Age int }
	err := s.d.Decode(M{"age": "old"}, &tgt)
	s.ErrorAs(err, &domain.ErrDecode{})
}

func TestDecoderTestSuite(t *testing.T) {
	suite.Run(t, new(DecoderTestSuite))
}
