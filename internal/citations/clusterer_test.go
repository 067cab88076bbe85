package citations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/casestrainer/internal/models"
)

func intPtr(y int) *int { return &y }

func cite(text string, start int, name string, year *int) models.Citation {
	return models.Citation{
		Text:              text,
		RawText:           text,
		Start:             start,
		End:               start + len(text),
		ExtractedCaseName: name,
		ExtractedYear:     year,
		ClusterID:         -1,
	}
}

func TestBuildClusters_ParallelCitationsMerge(t *testing.T) {
	citations := []models.Citation{
		cite("388 P.3d 977", 60, "Flying T Ranch, Inc. v. Stillaguamish Tribe of Indians", intPtr(2017)),
		cite("2017-NM-007", 80, "", intPtr(2017)),
	}

	clusters := BuildClusters(citations, ClusterOptions{})
	require.Len(t, clusters, 1)
	assert.Equal(t, []int{0, 1}, clusters[0].MemberIndexes)
	assert.Equal(t, "Flying T Ranch, Inc. v. Stillaguamish Tribe of Indians", clusters[0].ClusterCaseName)
	require.NotNil(t, clusters[0].ClusterYear)
	assert.Equal(t, 2017, *clusters[0].ClusterYear)
	assert.Equal(t, 0, citations[0].ClusterID)
	assert.Equal(t, 0, citations[1].ClusterID)
}

func TestBuildClusters_TripleParallelSupremeCourt(t *testing.T) {
	citations := []models.Citation{
		cite("584 U.S. 554", 50, "Upper Skagit Indian Tribe v. Lundgren", intPtr(2018)),
		cite("138 S. Ct. 1649", 65, "", nil),
		cite("200 L. Ed. 2d 931", 83, "", nil),
	}

	clusters := BuildClusters(citations, ClusterOptions{})
	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0].MemberIndexes, 3)
	assert.Equal(t, "Upper Skagit Indian Tribe v. Lundgren", clusters[0].ClusterCaseName)
}

func TestBuildClusters_DistantCitationsStayApart(t *testing.T) {
	citations := []models.Citation{
		cite("100 P.2d 200", 0, "Smith v. Jones", intPtr(1940)),
		cite("300 F.3d 400", 5000, "Brown v. Davis", intPtr(2002)),
	}

	clusters := BuildClusters(citations, ClusterOptions{})
	require.Len(t, clusters, 2)
	assert.NotEqual(t, citations[0].ClusterID, citations[1].ClusterID)
}

func TestBuildClusters_DissimilarNamesDoNotMerge(t *testing.T) {
	// Close together but clearly different cases.
	citations := []models.Citation{
		cite("100 P.2d 200", 0, "Smith v. Jones", intPtr(2001)),
		cite("101 P.2d 300", 30, "Pacific Gas & Electric Co. v. Oakland", intPtr(2001)),
	}

	clusters := BuildClusters(citations, ClusterOptions{})
	assert.Len(t, clusters, 2)
}

func TestBuildClusters_YearSpreadBound(t *testing.T) {
	citations := []models.Citation{
		cite("100 P.2d 200", 0, "Smith v. Jones", intPtr(1990)),
		cite("101 P.2d 300", 30, "Smith v. Jones", intPtr(1999)),
	}

	clusters := BuildClusters(citations, ClusterOptions{})
	require.Len(t, clusters, 2, "years nine apart must not share a cluster")

	// Within tolerance they merge.
	citations = []models.Citation{
		cite("100 P.2d 200", 0, "Smith v. Jones", intPtr(1990)),
		cite("101 P.2d 300", 30, "Smith v. Jones", intPtr(1992)),
	}
	clusters = BuildClusters(citations, ClusterOptions{})
	assert.Len(t, clusters, 1)
}

func TestBuildClusters_MissingNameNeedsProximity(t *testing.T) {
	// A nameless citation 250 chars away must not join on name alone.
	citations := []models.Citation{
		cite("100 P.2d 200", 0, "Smith v. Jones", intPtr(2001)),
		cite("2001-NM-100", 300, "", intPtr(2001)),
	}

	clusters := BuildClusters(citations, ClusterOptions{})
	assert.Len(t, clusters, 2)
}

func TestBuildClusters_OversizedClusterSplits(t *testing.T) {
	// Same name repeated across a long span; identical names bridge the
	// proximity gap, then the span rule forces a split.
	citations := []models.Citation{
		cite("100 P.2d 200", 0, "Smith v. Jones", intPtr(2001)),
		cite("100 P.2d 200", 1500, "Smith v. Jones", intPtr(2001)),
		cite("100 P.2d 200", 3100, "Smith v. Jones", intPtr(2001)),
	}

	clusters := BuildClusters(citations, ClusterOptions{})
	for _, k := range clusters {
		minStart, maxEnd := -1, 0
		for _, m := range k.MemberIndexes {
			if minStart < 0 || citations[m].Start < minStart {
				minStart = citations[m].Start
			}
			if citations[m].End > maxEnd {
				maxEnd = citations[m].End
			}
		}
		assert.LessOrEqual(t, maxEnd-minStart, 2000, "cluster span must stay bounded")
	}
}

func TestBuildClusters_Idempotent(t *testing.T) {
	build := func() []models.Citation {
		return []models.Citation{
			cite("584 U.S. 554", 50, "Upper Skagit Indian Tribe v. Lundgren", intPtr(2018)),
			cite("138 S. Ct. 1649", 65, "", nil),
			cite("100 P.2d 200", 900, "Smith v. Jones", intPtr(1940)),
		}
	}

	first := build()
	second := build()
	c1 := BuildClusters(first, ClusterOptions{})
	c2 := BuildClusters(second, ClusterOptions{})
	assert.Equal(t, c1, c2)
	assert.Equal(t, first, second)
}
