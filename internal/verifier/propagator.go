// -----------------------------------------------------------------------
// Propagator - Spreads verification across parallel-citation clusters
// -----------------------------------------------------------------------

package verifier

import (
	"github.com/ternarybob/casestrainer/internal/models"
)

// PropagateClusters copies verification outcomes to cluster peers. One
// verified member verifies the whole cluster; peers are marked
// true_by_parallel and inherit the producer's canonical fields and
// verification source. The producing member keeps true_by_parallel=false.
// A cluster never ends up with a mix of verified and unverified members.
//
// Cluster display fields are overwritten from the canonical record here.
// This is the only place canonical data replaces document-extracted data.
func PropagateClusters(cits []models.Citation, clusters []models.Cluster) {
	for ki := range clusters {
		cluster := &clusters[ki]

		producer := pickProducer(cits, cluster)
		if producer < 0 {
			continue
		}
		src := &cits[producer]

		cluster.CanonicalName = src.CanonicalName
		cluster.CanonicalDate = src.CanonicalDate
		cluster.CanonicalURL = src.CanonicalURL
		cluster.VerificationSource = src.VerificationSource
		if src.CanonicalName != "" {
			cluster.ClusterCaseName = src.CanonicalName
		}
		if year := candidateYear(src.CanonicalDate); year > 0 {
			y := year
			cluster.ClusterYear = &y
		}

		for _, idx := range cluster.MemberIndexes {
			member := &cits[idx]
			if idx == producer || member.Verified {
				continue
			}
			member.Verified = true
			member.TrueByParallel = true
			member.CanonicalName = src.CanonicalName
			member.CanonicalDate = src.CanonicalDate
			member.CanonicalURL = src.CanonicalURL
			member.VerificationSource = src.VerificationSource
			member.VerificationError = ""
		}
	}
}

// pickProducer selects the member whose verification the cluster inherits:
// structured-API sources beat HTML fallbacks, then the closest year to the
// cluster's extracted year, then document order. Returns -1 when no member
// verified directly.
func pickProducer(cits []models.Citation, cluster *models.Cluster) int {
	best := -1
	for _, idx := range cluster.MemberIndexes {
		c := &cits[idx]
		if !c.Verified || c.TrueByParallel {
			continue
		}
		if best < 0 || beats(c, &cits[best], cluster) {
			best = idx
		}
	}
	return best
}

func beats(challenger, incumbent *models.Citation, cluster *models.Cluster) bool {
	cAPI := isAPISource(challenger.VerificationSource)
	iAPI := isAPISource(incumbent.VerificationSource)
	if cAPI != iAPI {
		return cAPI
	}
	if cluster.ClusterYear != nil {
		cGap := yearGap(challenger.CanonicalDate, *cluster.ClusterYear)
		iGap := yearGap(incumbent.CanonicalDate, *cluster.ClusterYear)
		if cGap != iGap {
			return cGap < iGap
		}
	}
	return false
}

func isAPISource(s models.VerificationSource) bool {
	return s == models.SourceAPI || s == models.SourceAPISearch
}

func yearGap(date string, target int) int {
	year := candidateYear(date)
	if year == 0 {
		return 1 << 20
	}
	gap := year - target
	if gap < 0 {
		gap = -gap
	}
	return gap
}
