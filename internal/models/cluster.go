// -----------------------------------------------------------------------
// Cluster - Parallel citations of the same underlying case
// -----------------------------------------------------------------------

package models

// Cluster groups citations judged to reference the same case, typically a
// regional reporter citation printed alongside a neutral or official one.
// Citations reference their cluster by index; the cluster holds member
// indexes into the result's citation list. IDs are stable within one
// request only.
type Cluster struct {
	ID              int    `json:"id"`
	ClusterCaseName string `json:"cluster_case_name"` // Best extracted name among members
	ClusterYear     *int   `json:"cluster_year"`      // Representative year when known

	CanonicalName      string             `json:"canonical_name,omitempty"`
	CanonicalDate      string             `json:"canonical_date,omitempty"`
	CanonicalURL       string             `json:"canonical_url,omitempty"`
	VerificationSource VerificationSource `json:"verification_source"`

	Citations []string `json:"citations"` // Member citation texts in document order

	MemberIndexes []int `json:"-"` // Indexes into the result citation list
}

// Size returns the number of member citations.
func (k *Cluster) Size() int {
	return len(k.MemberIndexes)
}

// Contains reports whether the citation at index i belongs to this cluster.
func (k *Cluster) Contains(i int) bool {
	for _, m := range k.MemberIndexes {
		if m == i {
			return true
		}
	}
	return false
}
