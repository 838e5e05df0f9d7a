package repository

import "time"

// Op is a comparison operator usable in a Cond.
type Op string

const (
	OpEq      Op = "="
	OpNe      Op = "<>"
	OpGt      Op = ">"
	OpGte     Op = ">="
	OpLt      Op = "<"
	OpLte     Op = "<="
	OpFold    Op = "fold"
	OpNotNull Op = "notnull"
	OpIn      Op = "in"
)

// Cond filters a collection on one field. Time values compare against the
// stored epoch-millisecond columns.
type Cond struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, v any) Cond    { return Cond{Field: field, Op: OpEq, Value: v} }
func Ne(field string, v any) Cond    { return Cond{Field: field, Op: OpNe, Value: v} }
func Gte(field string, v any) Cond   { return Cond{Field: field, Op: OpGte, Value: v} }
func Lte(field string, v any) Cond   { return Cond{Field: field, Op: OpLte, Value: v} }
func Lt(field string, v any) Cond    { return Cond{Field: field, Op: OpLt, Value: v} }
func NotNull(field string) Cond      { return Cond{Field: field, Op: OpNotNull} }
func In(field string, vs []any) Cond { return Cond{Field: field, Op: OpIn, Value: vs} }

// Fold matches field case-insensitively against s.
func Fold(field, s string) Cond { return Cond{Field: field, Op: OpFold, Value: s} }

// Between bounds field to the inclusive range [from, to].
func Between(field string, from, to time.Time) []Cond {
	return []Cond{Gte(field, from), Lte(field, to)}
}

// Query selects records from one collection.
type Query struct {
	Where   []Cond
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// GroupQuery groups a collection by one field. With Sum empty each group
// carries a row count; otherwise Sum names the numeric field to total.
type GroupQuery struct {
	By    string
	Sum   string
	Where []Cond
}

// Group is one bucket of a GroupBy result. Groups come back in natural
// collection order: the bucket whose first record is oldest comes first.
type Group struct {
	Key   string  `json:"key"`
	Count int64   `json:"count"`
	Sum   float64 `json:"sum,omitempty"`
}
