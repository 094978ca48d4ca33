package blast

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Hit is one row of blastp tabular output.
type Hit struct {
	// Accession of the subject sequence.
	Accession string

	// Identity is the percent identity of the alignment, 0-100.
	Identity float64

	// Coverage is the query coverage per subject, 0-100.
	Coverage float64

	// Title is the subject description line.
	Title string

	// Seq is the aligned part of the subject sequence, gaps removed.
	Seq string
}

// Parse reads blastp tabular output (outfmt 6 with the package's column
// layout) into hits. Blank lines are skipped.
func Parse(r io.Reader) ([]Hit, error) {
	var hits []Hit
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 5)
		if len(fields) != 5 {
			return nil, fmt.Errorf("line %d: expected 5 tab-separated fields, got %d", lineNo, len(fields))
		}
		identity, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad identity %q: %w", lineNo, fields[1], err)
		}
		coverage, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad coverage %q: %w", lineNo, fields[2], err)
		}
		hits = append(hits, Hit{
			Accession: fields[0],
			Identity:  identity,
			Coverage:  coverage,
			Title:     fields[3],
			Seq:       strings.ReplaceAll(fields[4], "-", ""),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}

// FilterOptions control which hits survive Filter.
type FilterOptions struct {
	// MinIdentity and MaxIdentity bound the expected identity window as
	// fractions. Hits above the window are dropped as near-duplicates of
	// the query; hits below it count against MaxLowIdentity.
	MinIdentity float64
	MaxIdentity float64

	// MaxLowIdentity caps how many below-window hits are kept. Low-identity
	// hits widen the sampled sequence space, so a bounded number is useful.
	MaxLowIdentity int

	// RemoveFragments drops hits shorter than FragmentRatio of the query
	// length.
	RemoveFragments bool
	FragmentRatio   float64
	QueryLen        int
}

// FilterResult summarizes what Filter kept and why.
type FilterResult struct {
	Kept        []Hit
	LowIdentity int
	Fragments   int
	TooSimilar  int
}

// Filter applies the identity window and fragment rules to the hits,
// preserving their input order.
func Filter(hits []Hit, opts FilterOptions) FilterResult {
	var res FilterResult
	for _, h := range hits {
		if opts.RemoveFragments && opts.QueryLen > 0 &&
			float64(len(h.Seq)) < opts.FragmentRatio*float64(opts.QueryLen) {
			res.Fragments++
			continue
		}
		frac := h.Identity / 100
		switch {
		case frac > opts.MaxIdentity:
			res.TooSimilar++
		case frac < opts.MinIdentity:
			if res.LowIdentity < opts.MaxLowIdentity {
				res.LowIdentity++
				res.Kept = append(res.Kept, h)
			}
		default:
			res.Kept = append(res.Kept, h)
		}
	}
	return res
}
