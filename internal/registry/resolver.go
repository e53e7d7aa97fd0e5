package registry

import (
	"sort"

	"windfarm-finance-lab/internal/domain"
)

// resolveOrder topologically sorts metrics over their DependsOn edges.
// Ties break by category (foundational before analytical, even when no edge
// forces it), then ascending priority, then id, so the order is fully
// deterministic. A cycle is fatal and reports the offending metric ids; the
// resolver never silently drops a metric.
func resolveOrder(metrics []MetricDef) ([]string, error) {
	index := make(map[string]MetricDef, len(metrics))
	indegree := make(map[string]int, len(metrics))
	dependents := make(map[string][]string)

	for _, def := range metrics {
		index[def.ID] = def
		indegree[def.ID] += 0
	}
	for _, def := range metrics {
		for _, dep := range def.DependsOn {
			indegree[def.ID]++
			dependents[dep] = append(dependents[dep], def.ID)
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	less := func(a, b string) bool {
		da, db := index[a], index[b]
		ra, rb := categoryRank(da.Category), categoryRank(db.Category)
		if ra != rb {
			return ra < rb
		}
		if da.Priority != db.Priority {
			return da.Priority < db.Priority
		}
		return a < b
	}
	sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })

	order := make([]string, 0, len(metrics))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, dep := range dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
				sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
			}
		}
	}

	if len(order) != len(metrics) {
		var cycle []string
		for id, deg := range indegree {
			if deg > 0 {
				cycle = append(cycle, id)
			}
		}
		sort.Strings(cycle)
		return nil, domain.DependencyCycleError(cycle)
	}
	return order, nil
}

func categoryRank(c domain.MetricCategory) int {
	if c == domain.MetricFoundational {
		return 0
	}
	return 1
}
