package timeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// NoiseFields are bookkeeping keys excluded from every delta. Kept as a
// named set so the exclusion policy is visible and testable rather than
// scattered string literals.
var NoiseFields = map[string]struct{}{
	"createdAt": {},
	"updatedAt": {},
}

// internalPrefix marks reserved keys that never appear in deltas.
const internalPrefix = "_"

// noOpFields are additionally ignored when deciding whether an update is
// worth an event. "version" and the last-modified marker change on every
// write, so a delta containing only these is metadata noise.
var noOpFields = map[string]struct{}{
	"updatedAt":     {},
	"version":       {},
	"_lastModified": {},
}

func isNoise(key string) bool {
	if strings.HasPrefix(key, internalPrefix) {
		return true
	}
	_, ok := NoiseFields[key]
	return ok
}

// encodeValue produces a stable serialization for value comparison.
// encoding/json sorts map keys, so object and array fields compare by
// value rather than by reference or field order.
func encodeValue(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(raw)
}

// ComputeDelta returns the set of changed non-noise fields and, for
// updates, an old/new diff. Fields is sorted lexicographically so the
// result is deterministic.
func ComputeDelta(before, after Snapshot) Delta {
	changed := make(map[string]struct{})
	diff := make(map[string][2]any)

	switch {
	case before == nil && after != nil:
		// Created: every field is new, no diff needed.
		for key := range after {
			if !isNoise(key) {
				changed[key] = struct{}{}
			}
		}
	case before != nil && after != nil:
		allKeys := make(map[string]struct{}, len(before)+len(after))
		for key := range before {
			allKeys[key] = struct{}{}
		}
		for key := range after {
			allKeys[key] = struct{}{}
		}
		for key := range allKeys {
			if isNoise(key) {
				continue
			}
			if encodeValue(before[key]) != encodeValue(after[key]) {
				changed[key] = struct{}{}
				diff[key] = [2]any{before[key], after[key]}
			}
		}
	case before != nil && after == nil:
		// Deleted: every field is removed.
		for key := range before {
			if !isNoise(key) {
				changed[key] = struct{}{}
			}
		}
	}

	fields := make([]string, 0, len(changed))
	for key := range changed {
		fields = append(fields, key)
	}
	sort.Strings(fields)

	delta := Delta{Fields: fields}
	if len(diff) > 0 {
		delta.Diff = diff
	}
	return delta
}

// ShouldCreateEvent reports whether a snapshot pair represents a change
// worth recording. Creates and deletes always qualify; updates qualify
// only when something beyond write bookkeeping changed.
func ShouldCreateEvent(before, after Snapshot) bool {
	if before == nil || after == nil {
		return true
	}

	delta := ComputeDelta(before, after)
	for _, field := range delta.Fields {
		if _, ok := noOpFields[field]; !ok {
			return true
		}
	}
	return false
}
