package orchestrator

import "sort"

// WarmStrategy selects which projects a Warm call loads, per spec §4.5's
// explicit (never automatic-at-startup) cache-warming operation.
type WarmStrategy uint8

const (
	WarmAll           WarmStrategy = iota // every known project root
	WarmPDGOnly                           // load PDG, leave vector index cold
	WarmSearchOnly                        // load vector index, leave PDG cold
	WarmRecentFirst                       // only the most-recently-indexed N
)

// Warm loads projects into memory ahead of their first request, per
// strategy. limit bounds WarmRecentFirst; it is ignored by the other
// strategies. It never runs implicitly: a caller (CLI verb or RPC op)
// must invoke it.
func (o *Orchestrator) Warm(strategy WarmStrategy, limit int) (int, error) {
	recs, err := o.store.ListProjects()
	if err != nil {
		return 0, err
	}

	switch strategy {
	case WarmRecentFirst:
		sort.Slice(recs, func(i, j int) bool { return recs[i].LastIndexed > recs[j].LastIndexed })
		if limit > 0 && limit < len(recs) {
			recs = recs[:limit]
		}
	}

	warmed := 0
	for _, rec := range recs {
		p, err := o.registry.Ensure(rec.RootPath)
		if err != nil {
			return warmed, err
		}
		switch strategy {
		case WarmPDGOnly:
			p.spillVector()
		case WarmSearchOnly:
			p.spillPDG()
		}
		warmed++
	}
	return warmed, nil
}
