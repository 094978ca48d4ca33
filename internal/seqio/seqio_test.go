package seqio

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/biogo/biogo/seq/linear"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seqs.fasta")
	s1 := NewProtein("WP_072607337.1", "alkene reductase [Aquibium oceanicum]", "MKLVNTAHE")
	s2 := NewProtein("WP_041365644.1", "", "GSSGSSGAV")
	require.NoError(t, WriteFile(path, []*linear.Seq{s1, s2}))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "WP_072607337.1", got[0].ID)
	assert.Equal(t, "alkene reductase [Aquibium oceanicum]", got[0].Desc)
	assert.Equal(t, "MKLVNTAHE", got[0].Seq.String())
	assert.Equal(t, "GSSGSSGAV", got[1].Seq.String())
}

func TestDescription(t *testing.T) {
	t.Parallel()

	withDesc := NewProtein("WP_072607337.1", "alkene reductase", "MK")
	assert.Equal(t, "WP_072607337.1 alkene reductase", Description(withDesc))

	bare := NewProtein("WP_041365644.1", "", "MK")
	assert.Equal(t, "WP_041365644.1", Description(bare))
}

func TestReadAll_Empty(t *testing.T) {
	t.Parallel()

	got, err := ReadAll(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSanitizeLabel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name, in, want string
	}{
		{"spaces and brackets", "alkene reductase [Aquibium oceanicum]", "alkene_reductase_Aquibium_oceanicum"},
		{"already clean", "WP_072607337.1", "WP_072607337.1"},
		{"collapses runs", "a   b___c", "a_b_c"},
		{"trims edges", " [weird] ", "weird"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizeLabel(tc.in))
		})
	}
}
