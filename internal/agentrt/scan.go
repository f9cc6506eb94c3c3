package agentrt

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// scanState tracks the single in-flight async pattern scan. Only one may
// run at a time; starting a second while one is active is rejected rather
// than queued or silently replacing the first.
type scanState struct {
	scanID  string
	aborted atomic.Bool
	done    atomic.Bool
}

type patternScanStartParams struct {
	Pattern    string `json:"pattern"` // hex bytes with "??" wildcard bytes, space-separated
	Protection string `json:"protection,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type patternScanAbortParams struct {
	ScanID string `json:"scanId"`
}

type scanMatchEvent struct {
	ScanID  string `json:"scanId"`
	Address uint64 `json:"address"`
}

type scanProgressEvent struct {
	ScanID        string `json:"scanId"`
	RangesScanned int    `json:"rangesScanned"`
	TotalRanges   int    `json:"totalRanges"`
}

type scanCompleteEvent struct {
	ScanID   string `json:"scanId"`
	Aborted  bool   `json:"aborted"`
	Matches  int    `json:"matchCount"`
}

// patternToken is one byte of a parsed pattern: either a fixed value or a
// wildcard that matches anything.
type patternToken struct {
	value    byte
	wildcard bool
}

func parsePattern(pattern string) ([]patternToken, error) {
	var tokens []patternToken
	i := 0
	for i < len(pattern) {
		if pattern[i] == ' ' {
			i++
			continue
		}
		if i+1 >= len(pattern) {
			return nil, fmt.Errorf("malformed pattern byte at offset %d", i)
		}
		chunk := pattern[i : i+2]
		if chunk == "??" {
			tokens = append(tokens, patternToken{wildcard: true})
		} else {
			b, err := hex.DecodeString(chunk)
			if err != nil {
				return nil, fmt.Errorf("malformed pattern byte %q: %w", chunk, err)
			}
			tokens = append(tokens, patternToken{value: b[0]})
		}
		i += 2
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty pattern")
	}
	return tokens, nil
}

func matchAt(data []byte, offset int, tokens []patternToken) bool {
	if offset+len(tokens) > len(data) {
		return false
	}
	for i, t := range tokens {
		if !t.wildcard && data[offset+i] != t.value {
			return false
		}
	}
	return true
}

// handleScanStart implements memory_scan_async: it generates the scan id,
// enumerates every readable range (optionally narrowed to an exact
// protection string), matches the pattern byte-by-byte (wildcards
// excepted), and streams memory_scan_match events as it finds hits, a
// memory_scan_progress event every rt.cadence ranges, and exactly one
// memory_scan_complete event when it finishes, hits limit, or is aborted.
// Ranges that fail to read are skipped silently, not treated as an error.
func handleScanStart(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	var p patternScanStartParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	tokens, err := parsePattern(p.Pattern)
	if err != nil {
		return nil, err
	}

	scanID := newID()

	rt.scanMu.Lock()
	if rt.activeScan != nil && !rt.activeScan.done.Load() {
		rt.scanMu.Unlock()
		return nil, fmt.Errorf("a scan is already in progress")
	}
	state := &scanState{scanID: scanID}
	rt.activeScan = state
	rt.scanMu.Unlock()

	go rt.runScan(ctx, state, tokens, p.Protection, p.Limit)

	return map[string]any{"scanId": scanID}, nil
}

func (rt *Runtime) runScan(ctx context.Context, state *scanState, tokens []patternToken, protection string, limit int) {
	defer state.done.Store(true)

	ranges := filterByProtection(rt.memory.Ranges(), protection)
	matches := 0

	for i, r := range ranges {
		if state.aborted.Load() {
			break
		}
		if limit > 0 && matches >= limit {
			break
		}
		select {
		case <-ctx.Done():
			state.aborted.Store(true)
		default:
		}
		if state.aborted.Load() {
			break
		}

		data, ok := rt.memory.Read(r.Base, int(r.Size))
		if !ok {
			continue
		}
		for offset := 0; offset <= len(data)-len(tokens); offset++ {
			if limit > 0 && matches >= limit {
				break
			}
			if matchAt(data, offset, tokens) {
				matches++
				rt.emitEvent("memory_scan_match", scanMatchEvent{ScanID: state.scanID, Address: r.Base + uint64(offset)})
			}
		}

		if (i+1)%rt.cadence == 0 {
			rt.emitEvent("memory_scan_progress", scanProgressEvent{ScanID: state.scanID, RangesScanned: i + 1, TotalRanges: len(ranges)})
		}
	}

	rt.emitEvent("memory_scan_complete", scanCompleteEvent{ScanID: state.scanID, Aborted: state.aborted.Load(), Matches: matches})
}

// handleScanAbort implements memory_scan_abort: it cooperatively signals
// the active scan to stop. It is a no-op, not an error, if no scan with
// the given id is running (it may have just completed).
func handleScanAbort(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	var p patternScanAbortParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	rt.scanMu.Lock()
	state := rt.activeScan
	rt.scanMu.Unlock()

	if state == nil || state.scanID != p.ScanID || state.done.Load() {
		return map[string]any{"aborted": false}, nil
	}
	state.aborted.Store(true)
	return map[string]any{"aborted": true}, nil
}
