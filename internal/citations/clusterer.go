// -----------------------------------------------------------------------
// Clusterer - Groups parallel citations of the same case
// -----------------------------------------------------------------------

package citations

import (
	"sort"

	"github.com/ternarybob/casestrainer/internal/models"
)

// ClusterOptions bound the merge tests. Zero values are replaced by the
// production defaults so a zero options struct behaves sensibly in tests.
type ClusterOptions struct {
	SimilarityThreshold float64 // Minimum name similarity to merge (default 0.6)
	YearTolerance       int     // Maximum year spread within a cluster (default 2)
	MaxSpanChars        int     // Maximum cluster span before splitting (default 2000)
	ProximityChars      int     // Maximum inter-member gap for proximity merges (default 200)
}

func (o ClusterOptions) withDefaults() ClusterOptions {
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = 0.6
	}
	if o.YearTolerance <= 0 {
		o.YearTolerance = 2
	}
	if o.MaxSpanChars <= 0 {
		o.MaxSpanChars = 2000
	}
	if o.ProximityChars <= 0 {
		o.ProximityChars = 200
	}
	return o
}

// workingCluster accumulates member indexes during the greedy pass.
type workingCluster struct {
	members  []int // Indexes into the citation slice, document order
	repName  string
	repYear  *int
	minStart int
	maxEnd   int
}

// BuildClusters partitions citations into parallel-citation clusters using
// only document-extracted fields. It runs before verification; canonical
// data must not exist yet. Citations must be in document order. Each
// citation's ClusterID is set to its cluster index.
//
// Greedy pass: each citation joins the best cluster passing the name, year,
// and proximity tests, or opens a new one. Clusters whose span exceeds the
// limit afterwards are split on the largest proximity gaps.
func BuildClusters(citations []models.Citation, opts ClusterOptions) []models.Cluster {
	opts = opts.withDefaults()

	var working []*workingCluster
	for i := range citations {
		c := &citations[i]

		var candidates []*workingCluster
		for _, k := range working {
			if shouldMerge(c, k, citations, opts) {
				candidates = append(candidates, k)
			}
		}

		var chosen *workingCluster
		switch len(candidates) {
		case 0:
		case 1:
			chosen = candidates[0]
		default:
			chosen = bestCandidate(c, candidates, citations)
		}

		if chosen == nil {
			chosen = &workingCluster{minStart: c.Start, maxEnd: c.End}
			working = append(working, chosen)
		}
		chosen.add(i, c)
	}

	// Oversized clusters split on their largest internal gaps until every
	// sub-span fits.
	var final []*workingCluster
	for _, k := range working {
		final = append(final, splitBySpan(k, citations, opts.MaxSpanChars)...)
	}

	clusters := make([]models.Cluster, 0, len(final))
	for id, k := range final {
		cluster := models.Cluster{
			ID:            id,
			MemberIndexes: append([]int{}, k.members...),
		}
		cluster.ClusterCaseName, cluster.ClusterYear = representative(k.members, citations)
		for _, m := range k.members {
			citations[m].ClusterID = id
			cluster.Citations = append(cluster.Citations, citations[m].Text)
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

func (k *workingCluster) add(idx int, c *models.Citation) {
	k.members = append(k.members, idx)
	if c.Start < k.minStart {
		k.minStart = c.Start
	}
	if c.End > k.maxEnd {
		k.maxEnd = c.End
	}
	if k.repName == "" && c.HasName() {
		k.repName = c.ExtractedCaseName
	}
	if k.repYear == nil && c.HasYear() {
		y := *c.ExtractedYear
		k.repYear = &y
	}
}

// shouldMerge applies the three merge tests: name, year, proximity.
func shouldMerge(c *models.Citation, k *workingCluster, citations []models.Citation, opts ClusterOptions) bool {
	prox := proximity(c, k, citations)

	// Name test. A missing name on either side passes only under the
	// shared-sentence proximity heuristic.
	if c.HasName() && k.repName != "" {
		if NameSimilarity(c.ExtractedCaseName, k.repName) < opts.SimilarityThreshold {
			return false
		}
	} else if prox > opts.ProximityChars {
		return false
	}

	// Year test passes when either year is absent.
	if c.HasYear() && k.repYear != nil {
		if absInt(*c.ExtractedYear-*k.repYear) > opts.YearTolerance {
			return false
		}
	}

	// Proximity test. Exactly matching names may bridge a larger gap, but
	// never beyond the span limit enforced afterwards.
	if prox > opts.ProximityChars {
		if !c.HasName() || k.repName == "" {
			return false
		}
		if NameSimilarity(c.ExtractedCaseName, k.repName) < 0.95 {
			return false
		}
	}

	return true
}

// proximity is the minimum character distance between c and any member.
func proximity(c *models.Citation, k *workingCluster, citations []models.Citation) int {
	best := -1
	for _, m := range k.members {
		d := gap(&citations[m], c)
		if best < 0 || d < best {
			best = d
		}
	}
	if best < 0 {
		return 0
	}
	return best
}

// gap returns the character distance between two non-overlapping spans.
func gap(a, b *models.Citation) int {
	if a.End <= b.Start {
		return b.Start - a.End
	}
	if b.End <= a.Start {
		return a.Start - b.End
	}
	return 0
}

// bestCandidate resolves multi-cluster matches: most similar representative
// name first, then closest by proximity.
func bestCandidate(c *models.Citation, candidates []*workingCluster, citations []models.Citation) *workingCluster {
	best := candidates[0]
	bestSim := -1.0
	bestProx := proximity(c, best, citations)
	if c.HasName() && best.repName != "" {
		bestSim = NameSimilarity(c.ExtractedCaseName, best.repName)
	}
	for _, k := range candidates[1:] {
		sim := -1.0
		if c.HasName() && k.repName != "" {
			sim = NameSimilarity(c.ExtractedCaseName, k.repName)
		}
		prox := proximity(c, k, citations)
		if sim > bestSim || (sim == bestSim && prox < bestProx) {
			best, bestSim, bestProx = k, sim, prox
		}
	}
	return best
}

// splitBySpan recursively splits an oversized cluster at its largest
// inter-member gap. Members are in document order, so the split point is
// the widest adjacent gap.
func splitBySpan(k *workingCluster, citations []models.Citation, maxSpan int) []*workingCluster {
	if k.maxEnd-k.minStart <= maxSpan || len(k.members) < 2 {
		return []*workingCluster{k}
	}

	widest, at := -1, 0
	for i := 1; i < len(k.members); i++ {
		g := citations[k.members[i]].Start - citations[k.members[i-1]].End
		if g > widest {
			widest, at = g, i
		}
	}

	left := rebuild(k.members[:at], citations)
	right := rebuild(k.members[at:], citations)
	out := splitBySpan(left, citations, maxSpan)
	return append(out, splitBySpan(right, citations, maxSpan)...)
}

func rebuild(members []int, citations []models.Citation) *workingCluster {
	k := &workingCluster{minStart: citations[members[0]].Start, maxEnd: citations[members[0]].End}
	for _, m := range members {
		k.add(m, &citations[m])
	}
	return k
}

// representative returns the most frequent extracted name and year among
// members; nil/empty when every member lacks the field. Frequency ties go
// to the earliest member, which keeps output deterministic.
func representative(members []int, citations []models.Citation) (string, *int) {
	nameCount := make(map[string]int)
	yearCount := make(map[int]int)
	var nameOrder []string
	var yearOrder []int

	for _, m := range members {
		c := &citations[m]
		if c.HasName() {
			if nameCount[c.ExtractedCaseName] == 0 {
				nameOrder = append(nameOrder, c.ExtractedCaseName)
			}
			nameCount[c.ExtractedCaseName]++
		}
		if c.HasYear() {
			if yearCount[*c.ExtractedYear] == 0 {
				yearOrder = append(yearOrder, *c.ExtractedYear)
			}
			yearCount[*c.ExtractedYear]++
		}
	}

	name := mostFrequent(nameOrder, nameCount)
	var year *int
	if len(yearOrder) > 0 {
		sort.SliceStable(yearOrder, func(i, j int) bool {
			return yearCount[yearOrder[i]] > yearCount[yearOrder[j]]
		})
		y := yearOrder[0]
		year = &y
	}
	return name, year
}

func mostFrequent(order []string, counts map[string]int) string {
	best := ""
	bestCount := 0
	for _, name := range order {
		if counts[name] > bestCount {
			best, bestCount = name, counts[name]
		}
	}
	return best
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
