package sampling

import (
	"encoding/json"
	"fmt"
)

// Merge folds per-sample metrics into one map. Each key is merged by the
// variant of its first present value: Number by mean, Flag by strict
// majority (ties are false), Text by most frequent value (ties go to the
// first seen), List by order-preserving deduplicated union and Map
// recursively. Absent values are ignored, as are values whose variant
// differs from the first one seen for that key.
func Merge(samples []Map) Map {
	switch len(samples) {
	case 0:
		return Map{}
	case 1:
		return samples[0]
	}

	var order []string
	seen := make(map[string]bool)
	for _, s := range samples {
		for _, k := range s.Keys() {
			if !seen[k] {
				seen[k] = true
				order = append(order, k)
			}
		}
	}

	out := make(Map, len(order))
	for _, k := range order {
		vals := make([]Value, 0, len(samples))
		for _, s := range samples {
			if v := s[k]; v != nil {
				vals = append(vals, v)
			}
		}
		if merged := mergeValues(vals); merged != nil {
			out[k] = merged
		}
	}
	return out
}

func mergeValues(vals []Value) Value {
	if len(vals) == 0 {
		return nil
	}
	switch vals[0].(type) {
	case Number:
		return mergeNumbers(vals)
	case Flag:
		return mergeFlags(vals)
	case Text:
		return mergeTexts(vals)
	case List:
		return mergeLists(vals)
	case Map:
		maps := make([]Map, 0, len(vals))
		for _, v := range vals {
			if m, ok := v.(Map); ok {
				maps = append(maps, m)
			}
		}
		return Merge(maps)
	default:
		return nil
	}
}

func mergeNumbers(vals []Value) Value {
	var sum float64
	var n int
	for _, v := range vals {
		if num, ok := v.(Number); ok {
			sum += float64(num)
			n++
		}
	}
	return Number(sum / float64(n))
}

func mergeFlags(vals []Value) Value {
	var yes, n int
	for _, v := range vals {
		if f, ok := v.(Flag); ok {
			n++
			if f {
				yes++
			}
		}
	}
	return Flag(yes*2 > n)
}

func mergeTexts(vals []Value) Value {
	counts := make(map[Text]int)
	var order []Text
	for _, v := range vals {
		t, ok := v.(Text)
		if !ok {
			continue
		}
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}
	best := order[0]
	for _, t := range order[1:] {
		if counts[t] > counts[best] {
			best = t
		}
	}
	return best
}

func mergeLists(vals []Value) Value {
	out := List{}
	seen := make(map[string]bool)
	for _, v := range vals {
		l, ok := v.(List)
		if !ok {
			continue
		}
		for _, item := range l {
			if item == nil {
				continue
			}
			k := valueKey(item)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, item)
		}
	}
	return out
}

// valueKey gives structurally equal values the same key. Nested maps
// encode with sorted keys so equal maps compare equal.
func valueKey(v Value) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return fmt.Sprintf("%T:%s", v, b)
}
