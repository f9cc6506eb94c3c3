package agentrt

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// registerBuiltins wires up the fixed method catalogue. Everything here
// is backed by Memory and is intentionally simple: the real semantics of
// talking to a target process (symbol resolution, module enumeration,
// stack walking) are outside what this repository models, so these
// return fixture-shaped data rather than attempting the real thing.
func (rt *Runtime) registerBuiltins() {
	rt.handlers["ping"] = handlePing
	rt.handlers["get_arch"] = handleGetArch
	rt.handlers["get_process_info"] = handleGetProcessInfo
	rt.handlers["enumerate_modules"] = handleEnumerateModules
	rt.handlers["enumerate_exports"] = handleEnumerateExports
	rt.handlers["enumerate_imports"] = handleEnumerateImports
	rt.handlers["read_memory"] = handleReadMemory
	rt.handlers["write_memory"] = handleWriteMemory
	rt.handlers["search_memory"] = handleSearchMemory
	rt.handlers["enumerate_ranges"] = handleEnumerateRanges
	rt.handlers["enumerate_threads"] = handleEnumerateThreads
	rt.handlers["get_backtrace"] = handleGetBacktrace
	rt.handlers["interceptor_attach"] = handleInterceptorAttach
	rt.handlers["interceptor_detach"] = handleInterceptorDetach
	rt.handlers["interceptor_detach_all"] = handleInterceptorDetachAll
	rt.handlers["interceptor_list"] = handleInterceptorList

	rt.handlers["memory_scan_async"] = handleScanStart
	rt.handlers["memory_scan_abort"] = handleScanAbort
	rt.handlers["memory_value_scan_start"] = handleValueScanStart
	rt.handlers["memory_value_scan_next"] = handleValueScanNext
	rt.handlers["memory_value_scan_get"] = handleValueScanGet
	rt.handlers["memory_value_scan_clear"] = handleValueScanClear
	rt.handlers["memory_watch_add"] = handleWatchAdd
	rt.handlers["memory_watch_list"] = handleWatchList
	rt.handlers["memory_watch_remove"] = handleWatchRemove
}

func handlePing(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	return map[string]any{"pong": true}, nil
}

func handleGetArch(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	return map[string]any{"arch": "arm64", "pointerSize": 8}, nil
}

func handleGetProcessInfo(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	return map[string]any{"pid": 0, "name": "fixture-target"}, nil
}

func handleEnumerateModules(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	return map[string]any{"modules": []any{}}, nil
}

func handleEnumerateExports(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	return map[string]any{"exports": []any{}}, nil
}

func handleEnumerateImports(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	return map[string]any{"imports": []any{}}, nil
}

type readMemoryParams struct {
	Address uint64 `json:"address"`
	Size    int    `json:"size"`
}

func handleReadMemory(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	var p readMemoryParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	data, ok := rt.memory.Read(p.Address, p.Size)
	if !ok {
		return nil, fmt.Errorf("address range [0x%x, 0x%x) is not mapped", p.Address, p.Address+uint64(p.Size))
	}
	return map[string]any{"bytes": hex.EncodeToString(data)}, nil
}

type writeMemoryParams struct {
	Address uint64 `json:"address"`
	Bytes   string `json:"bytes"`
}

func handleWriteMemory(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	var p writeMemoryParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	data, err := hex.DecodeString(p.Bytes)
	if err != nil {
		return nil, fmt.Errorf("invalid hex bytes: %w", err)
	}
	if !rt.memory.Write(p.Address, data) {
		return nil, fmt.Errorf("address range [0x%x, 0x%x) is not mapped", p.Address, p.Address+uint64(len(data)))
	}
	return map[string]any{"written": len(data)}, nil
}

type searchMemoryParams struct {
	Pattern string `json:"pattern"`
}

func handleSearchMemory(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	var p searchMemoryParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	tokens, err := parsePattern(p.Pattern)
	if err != nil {
		return nil, err
	}

	var addresses []uint64
	for _, r := range rt.memory.Ranges() {
		data, ok := rt.memory.Read(r.Base, int(r.Size))
		if !ok {
			continue
		}
		for offset := 0; offset <= len(data)-len(tokens); offset++ {
			if matchAt(data, offset, tokens) {
				addresses = append(addresses, r.Base+uint64(offset))
			}
		}
	}
	return map[string]any{"addresses": addresses}, nil
}

func handleEnumerateRanges(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	return map[string]any{"ranges": rt.memory.Ranges()}, nil
}

func handleEnumerateThreads(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	return map[string]any{"threads": []any{}}, nil
}

func handleGetBacktrace(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	return map[string]any{"frames": []any{}}, nil
}

type interceptorAttachParams struct {
	Address uint64 `json:"address"`
}

type interceptorDetachParams struct {
	HookID string `json:"hookId"`
}

func handleInterceptorAttach(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	var p interceptorAttachParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	hookID := fmt.Sprintf("hook-%x", p.Address)
	rt.mu.Lock()
	rt.hooks[hookID] = p.Address
	rt.mu.Unlock()
	return map[string]any{"hookId": hookID}, nil
}

func handleInterceptorDetach(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	var p interceptorDetachParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	rt.mu.Lock()
	_, ok := rt.hooks[p.HookID]
	delete(rt.hooks, p.HookID)
	rt.mu.Unlock()
	return map[string]any{"detached": ok}, nil
}

func handleInterceptorDetachAll(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	rt.mu.Lock()
	count := len(rt.hooks)
	rt.hooks = make(map[string]uint64)
	rt.mu.Unlock()
	return map[string]any{"detached": count}, nil
}

func handleInterceptorList(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	hooks := make([]map[string]any, 0, len(rt.hooks))
	for id, addr := range rt.hooks {
		hooks = append(hooks, map[string]any{"hookId": id, "address": addr})
	}
	return map[string]any{"hooks": hooks}, nil
}
