package blast

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOutput = "WP_072607337.1\t64.52\t98\talkene reductase [Aquibium oceanicum]\tMKLV-NTAHE\n" +
	"WP_013170314.1\t99.80\t100\tMULTISPECIES: alkene reductase [Mesorhizobium]\tMKLVNTAHE\n" +
	"\n" +
	"WP_000000001.1\t22.10\t45\thypothetical protein\tMKL\n"

func TestParse(t *testing.T) {
	t.Parallel()

	hits, err := Parse(strings.NewReader(sampleOutput))
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "WP_072607337.1", hits[0].Accession)
	assert.Equal(t, 64.52, hits[0].Identity)
	assert.Equal(t, 98.0, hits[0].Coverage)
	assert.Equal(t, "alkene reductase [Aquibium oceanicum]", hits[0].Title)
	// Gaps are stripped from the aligned subject sequence.
	assert.Equal(t, "MKLVNTAHE", hits[0].Seq)
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	t.Run("too few fields", func(t *testing.T) {
		_, err := Parse(strings.NewReader("WP_1\t50.0\n"))
		assert.ErrorContains(t, err, "expected 5 tab-separated fields")
	})

	t.Run("bad identity", func(t *testing.T) {
		_, err := Parse(strings.NewReader("WP_1\tabc\t90\ttitle\tMK\n"))
		assert.ErrorContains(t, err, "bad identity")
	})
}

func TestFilter(t *testing.T) {
	t.Parallel()

	hits := []Hit{
		{Accession: "dup", Identity: 99.8, Seq: strings.Repeat("A", 100)},
		{Accession: "good1", Identity: 60, Seq: strings.Repeat("A", 100)},
		{Accession: "low1", Identity: 20, Seq: strings.Repeat("A", 100)},
		{Accession: "low2", Identity: 21, Seq: strings.Repeat("A", 100)},
		{Accession: "frag", Identity: 60, Seq: strings.Repeat("A", 30)},
		{Accession: "good2", Identity: 40, Seq: strings.Repeat("A", 90)},
	}
	opts := FilterOptions{
		MinIdentity:     0.35,
		MaxIdentity:     0.95,
		MaxLowIdentity:  1,
		RemoveFragments: true,
		FragmentRatio:   0.5,
		QueryLen:        100,
	}

	res := Filter(hits, opts)

	var kept []string
	for _, h := range res.Kept {
		kept = append(kept, h.Accession)
	}
	assert.Equal(t, []string{"good1", "low1", "good2"}, kept)
	assert.Equal(t, 1, res.LowIdentity)
	assert.Equal(t, 1, res.Fragments)
	assert.Equal(t, 1, res.TooSimilar)
}

func TestFilter_NoFragmentRemoval(t *testing.T) {
	t.Parallel()

	hits := []Hit{{Accession: "short", Identity: 60, Seq: "MK"}}
	res := Filter(hits, FilterOptions{
		MinIdentity: 0.35, MaxIdentity: 0.95, QueryLen: 100,
	})
	require.Len(t, res.Kept, 1)
	assert.Zero(t, res.Fragments)
}
