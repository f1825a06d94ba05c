package oddsfeed

// Merge combines a main-markets response with an additional-markets response
// for the same league and window. Output holds one record per distinct fixture
// id, in primary order followed by ids only secondary knows.
//
// For a fixture in both inputs, bookmakers present in both get their market
// lists concatenated and bookmakers only in secondary are appended. A
// bookmaker without a key or with a non-list markets field is skipped; it
// never fails the merge. Inputs are not modified.
func Merge(primary, secondary []FixtureRecord) []FixtureRecord {
	out := make([]FixtureRecord, 0, len(primary)+len(secondary))
	index := make(map[string]int, len(primary)+len(secondary))

	add := func(rec FixtureRecord) {
		id := rec.ID()
		if id == "" {
			out = append(out, rec.clone())
			return
		}
		if i, ok := index[id]; ok {
			out[i] = mergeFixture(out[i], rec)
			return
		}
		index[id] = len(out)
		out = append(out, rec.clone())
	}

	for _, rec := range primary {
		add(rec)
	}
	for _, rec := range secondary {
		add(rec)
	}
	return out
}

// mergeFixture unions extra's bookmakers into base. base must be a clone owned by Merge.
func mergeFixture(base, extra FixtureRecord) FixtureRecord {
	baseBooks, ok := listField(base.fields, fieldBookmakers)
	if !ok {
		return base
	}
	extraBooks, ok := listField(extra.fields, fieldBookmakers)
	if !ok || len(extraBooks) == 0 {
		return base
	}

	merged := make([]any, 0, len(baseBooks)+len(extraBooks))
	byKey := make(map[string]map[string]any, len(baseBooks))
	for _, item := range baseBooks {
		bm, ok := item.(map[string]any)
		if !ok {
			merged = append(merged, item)
			continue
		}
		bm = cloneMap(bm)
		if key := getString(bm, fieldKey); key != "" {
			if _, dup := byKey[key]; !dup {
				byKey[key] = bm
			}
		}
		merged = append(merged, bm)
	}

	for _, item := range extraBooks {
		bm, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key := getString(bm, fieldKey)
		if key == "" {
			continue
		}

		existing, ok := byKey[key]
		if !ok {
			added := cloneMap(bm)
			byKey[key] = added
			merged = append(merged, added)
			continue
		}

		extraMarkets, ok := listField(bm, fieldMarkets)
		if !ok {
			continue
		}
		baseMarkets, ok := listField(existing, fieldMarkets)
		if !ok {
			continue
		}
		markets := make([]any, 0, len(baseMarkets)+len(extraMarkets))
		markets = append(markets, baseMarkets...)
		markets = append(markets, extraMarkets...)
		existing[fieldMarkets] = markets
	}

	base.fields[fieldBookmakers] = merged
	return base
}

// listField returns m[key] as a list. An absent or null field is an empty list;
// any other non-list value reports false.
func listField(m map[string]any, key string) ([]any, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, true
	}
	list, ok := v.([]any)
	return list, ok
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
