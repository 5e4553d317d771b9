package domain

import "fmt"

// IDField is the name of the identity field every stored [Document] carries.
const IDField = "_id"

// Document represents a record stored in a collection. Values are expected to
// be JSON-compatible (nil, numbers, strings, booleans, nested documents and
// lists) or an [ID].
type Document = map[string]any

// ID is the opaque identity of a stored [Document]. It is a string underneath,
// and any comparison against it should be done with its string form.
type ID string

// String implements [fmt.Stringer].
func (i ID) String() string {
	return string(i)
}

// AsID converts a caller-provided identity value to an [ID]. Strings and
// stringers are used as they are, other scalar values are formatted.
func AsID(v any) (ID, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case ID:
		return t, true
	case string:
		return ID(t), true
	case fmt.Stringer:
		return ID(t.String()), true
	case map[string]any, []any:
		return "", false
	default:
		return ID(fmt.Sprint(t)), true
	}
}

// Sort represents an ordered list of fields which should be used to sort query
// results, applied in sequence.
type Sort = []SortName

// SortName represents a single field and the order which should be used to sort
// it. A positive Order value means ascending order and a negative value means
// descending order.
type SortName struct {
	Key   string
	Order int64
}

// Mode identifies which backend a router serves.
type Mode string

const (
	// ModeLocal keeps every collection in the local ledger.
	ModeLocal Mode = "mock"
	// ModeRemote proxies wired operations to a REST backend.
	ModeRemote Mode = "api"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m == ModeLocal || m == ModeRemote
}

// Operation names a collection operation. They are used to describe which
// operations are wired in remote mode and to build error messages.
type Operation string

// Operations supported by [Collection].
const (
	OpFind           Operation = "find"
	OpFindOne        Operation = "findOne"
	OpInsertOne      Operation = "insertOne"
	OpInsertMany     Operation = "insertMany"
	OpUpdateOne      Operation = "updateOne"
	OpUpdateMany     Operation = "updateMany"
	OpDeleteOne      Operation = "deleteOne"
	OpDeleteMany     Operation = "deleteMany"
	OpCountDocuments Operation = "countDocuments"
	OpAggregate      Operation = "aggregate"
	OpListIndexes    Operation = "listIndexes"
	OpDrop           Operation = "drop"
)

// Stats describes the size of a database.
type Stats struct {
	Collections int   `json:"collections" mapstructure:"collections"`
	DataSize    int64 `json:"dataSize" mapstructure:"dataSize"`
	StorageSize int64 `json:"storageSize" mapstructure:"storageSize"`
	Indexes     int   `json:"indexes" mapstructure:"indexes"`
}

// ConnectionStatus is the outcome of a connection test.
type ConnectionStatus struct {
	OK      bool   `json:"ok"`
	Mode    Mode   `json:"mode"`
	Message string `json:"message,omitempty"`
}

// IndexInfo is descriptive index metadata. It does not back any lookup
// structure.
type IndexInfo struct {
	Name   string `json:"name" mapstructure:"name"`
	Key    Sort   `json:"-" mapstructure:"-"`
	Unique bool   `json:"unique,omitempty" mapstructure:"unique"`
}

// InsertOneResult is returned by [Collection.InsertOne].
type InsertOneResult struct {
	InsertedID string `json:"insertedId" mapstructure:"insertedId"`
}

// InsertManyResult is returned by [Collection.InsertMany].
type InsertManyResult struct {
	InsertedIDs []string `json:"insertedIds" mapstructure:"insertedIds"`
}

// UpdateResult is returned by [Collection.UpdateOne] and
// [Collection.UpdateMany].
type UpdateResult struct {
	MatchedCount  int64 `json:"matchedCount" mapstructure:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount" mapstructure:"modifiedCount"`
}

// DeleteResult is returned by [Collection.DeleteOne] and
// [Collection.DeleteMany].
type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount" mapstructure:"deletedCount"`
}

// Undefined stands for a field missing from a [Document]. [Comparer] orders it
// before every other value, nil included.
type Undefined struct{}
