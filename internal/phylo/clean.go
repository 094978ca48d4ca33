// Package phylo post-processes phylogenetic trees: it parses Newick output
// from MEGA-CC, rewrites the machine-generated taxa labels into readable
// species names that keep their cluster marker, and serializes the cleaned
// tree back out.
package phylo

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/TuftsBCB/io/newick"
)

var (
	wpCode       = regexp.MustCompile(`WP[\s_]\d{9}\.\d`)
	multiSpecies = regexp.MustCompile(`(?i)MULTISPECIES:\s*`)
	unclassified = regexp.MustCompile(`(?i)[_\s]?unclassified[_\s]?`)
	sameDomains  = regexp.MustCompile(`(?i)[-_\s]*Same[-_\s]*Domains`)

	// speciesCluster extracts the species name and the trailing cluster
	// marker ("---C<n>") from whatever is left of a label after stripping.
	speciesCluster = regexp.MustCompile(
		`(?i)(?P<species>[A-Za-z0-9]+(?:[_\s][A-Za-z0-9.]+)*)[\s_-]+(?P<cluster>---C\d+)`)
)

// CleanLabel rewrites a single taxa label: RefSeq WP codes, the
// "MULTISPECIES:" prefix, the protein name, "unclassified", and "Same
// Domains" variants are removed, then only the species name and cluster
// marker are kept. Labels without a cluster marker come back stripped but
// otherwise unchanged.
//
// For example, from
//
//	WP_072607337.1_alkene_reductase_Aquibium_oceanicum_---C51---Same_Domains
//
// it returns
//
//	Aquibium_oceanicum_---C51
func CleanLabel(label, proteinName string) string {
	label = strings.Trim(label, `'"`)
	label = wpCode.ReplaceAllString(label, "")
	label = multiSpecies.ReplaceAllString(label, "")
	if proteinName != "" {
		label = proteinNamePattern(proteinName).ReplaceAllString(label, "")
	}
	label = unclassified.ReplaceAllString(label, "")
	label = sameDomains.ReplaceAllString(label, "")
	label = strings.Trim(label, " _")

	m := speciesCluster.FindStringSubmatch(label)
	if m == nil {
		return label
	}
	species := strings.ReplaceAll(strings.TrimSpace(m[1]), " ", "_")
	return species + "_" + strings.TrimSpace(m[2])
}

// proteinNamePattern matches the protein name case-insensitively with
// underscores and spaces treated as interchangeable separators.
func proteinNamePattern(name string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(name)
	quoted = strings.NewReplacer("_", `[\s_]+`, " ", `[\s_]+`).Replace(quoted)
	return regexp.MustCompile(`(?i)` + quoted)
}

// CleanTree rewrites every labeled clade of the tree in place.
func CleanTree(t *newick.Tree, proteinName string) {
	if t.Label != "" {
		t.Label = CleanLabel(t.Label, proteinName)
	}
	for i := range t.Children {
		CleanTree(&t.Children[i], proteinName)
	}
}

// Characters that force a label to be quoted when written.
const needsQuoting = " ()[]':;,"

// WriteNewick serializes a tree back to single-line Newick notation,
// terminated with a semicolon.
func WriteNewick(t *newick.Tree) string {
	var sb strings.Builder
	writeSubtree(&sb, t)
	sb.WriteByte(';')
	return sb.String()
}

func writeSubtree(sb *strings.Builder, t *newick.Tree) {
	if len(t.Children) > 0 {
		sb.WriteByte('(')
		for i := range t.Children {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeSubtree(sb, &t.Children[i])
		}
		sb.WriteByte(')')
	}
	label := t.Label
	if strings.ContainsAny(label, needsQuoting) {
		label = "'" + strings.ReplaceAll(label, "'", "''") + "'"
	}
	sb.WriteString(label)
	if t.Length != nil {
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatFloat(*t.Length, 'g', -1, 64))
	}
}

// CleanFile parses the Newick file at path, cleans every taxa label, and
// writes the result back to the same file. Files with multiple trees keep
// one tree per line.
func CleanFile(path, proteinName string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open tree file %s: %w", path, err)
	}
	trees, err := newick.NewReader(f).ReadAll()
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to parse tree file %s: %w", path, err)
	}
	if len(trees) == 0 {
		return fmt.Errorf("tree file %s contains no trees", path)
	}

	var sb strings.Builder
	for _, t := range trees {
		CleanTree(t, proteinName)
		sb.WriteString(WriteNewick(t))
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write cleaned tree file %s: %w", path, err)
	}
	return nil
}
