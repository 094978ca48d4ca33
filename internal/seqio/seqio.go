// Package seqio provides small helpers over the biogo FASTA reader and
// writer for the protein sequence files the pipeline moves between stages.
package seqio

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
)

// fastaWidth is the residue line width for written FASTA files.
const fastaWidth = 60

// NewProtein builds a protein sequence record from raw residues.
func NewProtein(id, desc, residues string) *linear.Seq {
	s := linear.NewSeq(id, alphabet.BytesToLetters([]byte(residues)), alphabet.Protein)
	s.Desc = desc
	return s
}

// ReadAll parses every FASTA record from r as a protein sequence.
func ReadAll(r io.Reader) ([]*linear.Seq, error) {
	reader := fasta.NewReader(r, linear.NewSeq("", nil, alphabet.Protein))
	var seqs []*linear.Seq
	for {
		s, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read FASTA record: %w", err)
		}
		seqs = append(seqs, s.(*linear.Seq))
	}
	return seqs, nil
}

// ReadFile parses every FASTA record from the file at path.
func ReadFile(path string) ([]*linear.Seq, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FASTA file %s: %w", path, err)
	}
	defer f.Close()

	seqs, err := ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seqs, nil
}

// WriteAll writes the sequences to w in FASTA format.
func WriteAll(w io.Writer, seqs []*linear.Seq) error {
	writer := fasta.NewWriter(w, fastaWidth)
	for _, s := range seqs {
		if _, err := writer.Write(s); err != nil {
			return fmt.Errorf("failed to write FASTA record %s: %w", s.ID, err)
		}
	}
	return nil
}

// WriteFile writes the sequences to the file at path, replacing it.
func WriteFile(path string, seqs []*linear.Seq) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create FASTA file %s: %w", path, err)
	}
	defer f.Close()
	if err := WriteAll(f, seqs); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Description returns the full header line of a record: ID plus description.
func Description(s *linear.Seq) string {
	if s.Desc == "" {
		return s.ID
	}
	return s.ID + " " + s.Desc
}

var (
	unsafeLabel  = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	repeatedRuns = regexp.MustCompile(`_{2,}`)
)

// SanitizeLabel rewrites a free-form description into a label that is safe
// in file names and Newick taxa: banned characters become underscores and
// runs collapse to one.
func SanitizeLabel(label string) string {
	label = unsafeLabel.ReplaceAllString(strings.TrimSpace(label), "_")
	label = repeatedRuns.ReplaceAllString(label, "_")
	return strings.Trim(label, "_")
}
