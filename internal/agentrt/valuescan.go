package agentrt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/eunhhu/carf-sub000/pkg/types"
)

// valueScanSession holds the strict-refinement address/value pairs for
// one progressive scan. len(addresses) == len(values) == len(diffs) is
// maintained as an invariant across every memory_value_scan_next call:
// entries are only ever dropped, never added back.
type valueScanSession struct {
	mu        sync.Mutex
	valueType types.ValueType
	addresses []uint64
	values    [][]byte
	diffs     []string
}

var dmp = diffmatchpatch.New()

// highlightChange renders the byte-level diff between two utf8 values as
// inline +/- markup, so a client watching memory_value_scan_next can
// show exactly which bytes changed instead of just the new value.
func highlightChange(oldVal, newVal []byte) string {
	diffs := dmp.DiffMain(string(oldVal), string(newVal), false)
	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			b.WriteString("+[" + d.Text + "]")
		case diffmatchpatch.DiffDelete:
			b.WriteString("-[" + d.Text + "]")
		default:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}

func sizeOf(vt types.ValueType) (int, error) {
	switch vt {
	case types.ValueS8, types.ValueU8:
		return 1, nil
	case types.ValueS16, types.ValueU16:
		return 2, nil
	case types.ValueS32, types.ValueU32, types.ValueFloat:
		return 4, nil
	case types.ValueS64, types.ValueU64, types.ValueDouble:
		return 8, nil
	default:
		return 0, fmt.Errorf("value type %q has no fixed size", vt)
	}
}

// decodeNumeric interprets little-endian raw bytes as a float64 for
// ordering comparisons (increased/decreased) regardless of the
// underlying scalar type.
func decodeNumeric(vt types.ValueType, raw []byte) (float64, error) {
	switch vt {
	case types.ValueS8:
		return float64(int8(raw[0])), nil
	case types.ValueU8:
		return float64(raw[0]), nil
	case types.ValueS16:
		return float64(int16(binary.LittleEndian.Uint16(raw))), nil
	case types.ValueU16:
		return float64(binary.LittleEndian.Uint16(raw)), nil
	case types.ValueS32:
		return float64(int32(binary.LittleEndian.Uint32(raw))), nil
	case types.ValueU32:
		return float64(binary.LittleEndian.Uint32(raw)), nil
	case types.ValueS64:
		return float64(int64(binary.LittleEndian.Uint64(raw))), nil
	case types.ValueU64:
		return float64(binary.LittleEndian.Uint64(raw)), nil
	case types.ValueFloat:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(raw))), nil
	case types.ValueDouble:
		return math.Float64frombits(binary.LittleEndian.Uint64(raw)), nil
	default:
		return 0, fmt.Errorf("value type %q is not numeric", vt)
	}
}

func encodeNumeric(vt types.ValueType, value float64) ([]byte, error) {
	buf := make([]byte, 8)
	switch vt {
	case types.ValueS8:
		return []byte{byte(int8(value))}, nil
	case types.ValueU8:
		return []byte{byte(uint8(value))}, nil
	case types.ValueS16:
		binary.LittleEndian.PutUint16(buf, uint16(int16(value)))
		return buf[:2], nil
	case types.ValueU16:
		binary.LittleEndian.PutUint16(buf, uint16(value))
		return buf[:2], nil
	case types.ValueS32:
		binary.LittleEndian.PutUint32(buf, uint32(int32(value)))
		return buf[:4], nil
	case types.ValueU32:
		binary.LittleEndian.PutUint32(buf, uint32(value))
		return buf[:4], nil
	case types.ValueS64:
		binary.LittleEndian.PutUint64(buf, uint64(int64(value)))
		return buf[:8], nil
	case types.ValueU64:
		binary.LittleEndian.PutUint64(buf, uint64(value))
		return buf[:8], nil
	case types.ValueFloat:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(value)))
		return buf[:4], nil
	case types.ValueDouble:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(value))
		return buf[:8], nil
	default:
		return nil, fmt.Errorf("value type %q is not numeric", vt)
	}
}

type valueScanStartParams struct {
	ValueType  types.ValueType `json:"valueType"`
	Value      json.RawMessage `json:"value,omitempty"`
	Protection string          `json:"protection,omitempty"`
	Limit      int             `json:"limit,omitempty"`
}

type valueScanNextParams struct {
	ScanID    string          `json:"scanId"`
	Condition types.NextCondition `json:"condition"`
	Value     json.RawMessage `json:"value,omitempty"`
}

type valueScanGetParams struct {
	ScanID string `json:"scanId"`
}

type valueScanClearParams struct {
	ScanID string `json:"scanId"`
}

type scanMatch struct {
	Address uint64 `json:"address"`
	Value   any    `json:"value"`
	Diff    string `json:"diff,omitempty"`
}

// handleValueScanStart implements memory_value_scan_start: it generates
// the scan id, then for utf8 scans every range (optionally narrowed to an
// exact protection string) for an exact byte match of the seed string;
// for numeric types it scans for an exact encoded match. The resulting
// address set seeds strict refinement for subsequent next calls.
func handleValueScanStart(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	var p valueScanStartParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	var needle []byte
	var err error
	if p.ValueType == types.ValueUTF8 {
		var s string
		if err := json.Unmarshal(p.Value, &s); err != nil {
			return nil, fmt.Errorf("invalid utf8 seed value: %w", err)
		}
		needle = []byte(s)
	} else {
		var f float64
		if err := json.Unmarshal(p.Value, &f); err != nil {
			return nil, fmt.Errorf("invalid numeric seed value: %w", err)
		}
		needle, err = encodeNumeric(p.ValueType, f)
		if err != nil {
			return nil, err
		}
	}

	var addresses []uint64
	var values [][]byte
	for _, r := range filterByProtection(rt.memory.Ranges(), p.Protection) {
		if p.Limit > 0 && len(addresses) >= p.Limit {
			break
		}
		data, ok := rt.memory.Read(r.Base, int(r.Size))
		if !ok {
			continue
		}
		for offset := 0; offset <= len(data)-len(needle); offset++ {
			if p.Limit > 0 && len(addresses) >= p.Limit {
				break
			}
			if bytesEqual(data[offset:offset+len(needle)], needle) {
				addresses = append(addresses, r.Base+uint64(offset))
				v := make([]byte, len(needle))
				copy(v, needle)
				values = append(values, v)
			}
		}
	}

	scanID := newID()
	session := &valueScanSession{valueType: p.ValueType, addresses: addresses, values: values, diffs: make([]string, len(addresses))}
	rt.valueMu.Lock()
	rt.values[scanID] = session
	rt.valueMu.Unlock()

	return map[string]any{"scanId": scanID, "totalMatches": len(addresses)}, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// handleValueScanNext implements memory_value_scan_next: it re-reads
// every currently-tracked address and keeps only those whose new value
// satisfies condition, maintaining the invariant len(addresses) ==
// len(values) by dropping both entries together. Addresses that no
// longer read successfully (e.g. the range was unmapped) are dropped.
func handleValueScanNext(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	var p valueScanNextParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	session, err := rt.lookupValueScan(p.ScanID)
	if err != nil {
		return nil, err
	}

	var target []byte
	if p.Condition == types.CondEq {
		if session.valueType == types.ValueUTF8 {
			var s string
			if err := json.Unmarshal(p.Value, &s); err != nil {
				return nil, fmt.Errorf("invalid utf8 value: %w", err)
			}
			target = []byte(s)
		} else {
			var f float64
			if err := json.Unmarshal(p.Value, &f); err != nil {
				return nil, fmt.Errorf("invalid numeric value: %w", err)
			}
			target, err = encodeNumeric(session.valueType, f)
			if err != nil {
				return nil, err
			}
		}
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	var keptAddrs []uint64
	var keptValues [][]byte
	var keptDiffs []string
	for i, addr := range session.addresses {
		size := len(session.values[i])
		data, ok := rt.memory.Read(addr, size)
		if !ok {
			continue
		}
		if satisfiesCondition(session.valueType, p.Condition, session.values[i], data, target) {
			diff := session.diffs[i]
			if session.valueType == types.ValueUTF8 && !bytesEqual(session.values[i], data) {
				diff = highlightChange(session.values[i], data)
			}
			keptAddrs = append(keptAddrs, addr)
			keptValues = append(keptValues, data)
			keptDiffs = append(keptDiffs, diff)
		}
	}
	session.addresses = keptAddrs
	session.values = keptValues
	session.diffs = keptDiffs

	return map[string]any{"scanId": p.ScanID, "matchCount": len(keptAddrs)}, nil
}

func satisfiesCondition(vt types.ValueType, cond types.NextCondition, oldVal, newVal, target []byte) bool {
	switch cond {
	case types.CondEq:
		return bytesEqual(newVal, target)
	case types.CondChanged:
		return !bytesEqual(newVal, oldVal)
	case types.CondUnchanged:
		return bytesEqual(newVal, oldVal)
	case types.CondIncreased, types.CondDecreased:
		if vt == types.ValueUTF8 {
			return false
		}
		oldN, err1 := decodeNumeric(vt, oldVal)
		newN, err2 := decodeNumeric(vt, newVal)
		if err1 != nil || err2 != nil {
			return false
		}
		if cond == types.CondIncreased {
			return newN > oldN
		}
		return newN < oldN
	default:
		return false
	}
}

// handleValueScanGet implements memory_value_scan_get: it returns the
// current address/value set without mutating it.
func handleValueScanGet(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	var p valueScanGetParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	session, err := rt.lookupValueScan(p.ScanID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	matches := make([]scanMatch, len(session.addresses))
	for i, addr := range session.addresses {
		matches[i] = scanMatch{
			Address: addr,
			Value:   decodeForDisplay(session.valueType, session.values[i]),
			Diff:    session.diffs[i],
		}
	}
	return map[string]any{"scanId": p.ScanID, "matches": matches}, nil
}

func decodeForDisplay(vt types.ValueType, raw []byte) any {
	if vt == types.ValueUTF8 {
		return strings.TrimRight(string(raw), "\x00")
	}
	v, err := decodeNumeric(vt, raw)
	if err != nil {
		return nil
	}
	return v
}

// handleValueScanClear implements memory_value_scan_clear: it discards
// the session entirely.
func handleValueScanClear(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	var p valueScanClearParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	rt.valueMu.Lock()
	delete(rt.values, p.ScanID)
	rt.valueMu.Unlock()

	return map[string]any{"cleared": true}, nil
}

func (rt *Runtime) lookupValueScan(scanID string) (*valueScanSession, error) {
	rt.valueMu.Lock()
	defer rt.valueMu.Unlock()
	session, ok := rt.values[scanID]
	if !ok {
		return nil, fmt.Errorf("no value scan session %q", scanID)
	}
	return session, nil
}
