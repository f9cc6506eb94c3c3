package types

// ValueType enumerates the scalar encodings the value-scan and watch
// engines understand.
type ValueType string

const (
	ValueS8    ValueType = "s8"
	ValueU8    ValueType = "u8"
	ValueS16   ValueType = "s16"
	ValueU16   ValueType = "u16"
	ValueS32   ValueType = "s32"
	ValueU32   ValueType = "u32"
	ValueS64   ValueType = "s64"
	ValueU64   ValueType = "u64"
	ValueFloat ValueType = "float"
	ValueDouble ValueType = "double"
	ValueUTF8  ValueType = "utf8"
)

// NextCondition enumerates the refinement conditions for
// memory_value_scan_next.
type NextCondition string

const (
	CondEq        NextCondition = "eq"
	CondChanged   NextCondition = "changed"
	CondUnchanged NextCondition = "unchanged"
	CondIncreased NextCondition = "increased"
	CondDecreased NextCondition = "decreased"
)

// Watch is a periodic read-and-diff task owned by the agent runtime.
type Watch struct {
	WatchID    string    `json:"watchId"`
	Address    uint64    `json:"address"`
	ValueType  ValueType `json:"valueType"`
	IntervalMs int       `json:"intervalMs"`
	LastValue  any       `json:"lastValue"`
}
