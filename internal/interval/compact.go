package interval

import "sort"

// Observation is a single year sighting for a key. The key is an owner
// identity for ownership timelines and an exemption code for exemption
// timelines; the engine does not care which.
type Observation struct {
	Key  string
	Year int
}

// Range is a maximal run of consecutive observed years for one key.
type Range struct {
	Key       string
	StartYear int
	EndYear   int
}

// Compact collapses per-year observations into maximal contiguous year
// ranges. For every key, the union of the produced ranges' years equals
// the set of observed years, ranges never overlap, and no two adjacent
// ranges can be merged. Duplicate (key, year) pairs count once.
//
// Ranges are returned grouped by key in ascending key order; within a key
// they are ordered newest first, matching the descending scan.
func Compact(obs []Observation) []Range {
	byKey := make(map[string]map[int]struct{})
	for _, o := range obs {
		years, ok := byKey[o.Key]
		if !ok {
			years = make(map[int]struct{})
			byKey[o.Key] = years
		}
		years[o.Year] = struct{}{}
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var ranges []Range
	for _, key := range keys {
		years := make([]int, 0, len(byKey[key]))
		for y := range byKey[key] {
			years = append(years, y)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(years)))

		start, end := years[0], years[0]
		for _, y := range years[1:] {
			if y == start-1 {
				start = y
				continue
			}
			ranges = append(ranges, Range{Key: key, StartYear: start, EndYear: end})
			start, end = y, y
		}
		ranges = append(ranges, Range{Key: key, StartYear: start, EndYear: end})
	}

	return ranges
}
