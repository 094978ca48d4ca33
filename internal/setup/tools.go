// Package setup bootstraps the run environment: it downloads the external
// bioinformatics tools the pipeline shells out to, installs them under a
// managed directory, extends PATH, points BLASTDB at the local database
// directory, and can fetch BLAST database volumes from the NCBI mirror.
package setup

// ArchiveKind says how a downloaded tool artifact is unpacked.
type ArchiveKind int

const (
	// TarGz artifacts are gzip-compressed tarballs holding the binaries.
	TarGz ArchiveKind = iota
	// RawBinary artifacts are a single executable downloaded as-is.
	RawBinary
)

// Tool describes one managed external dependency.
type Tool struct {
	// Name identifies the tool in logs and cache paths.
	Name string

	// URL is where the release artifact is downloaded from.
	URL string

	// Kind says how the artifact is unpacked.
	Kind ArchiveKind

	// Binaries are the executables expected on PATH after installation.
	// The first one doubles as the RawBinary install name.
	Binaries []string
}

// Tools is the set of external programs the pipeline invokes.
var Tools = []Tool{
	{
		Name:     "blast",
		URL:      "https://ftp.ncbi.nlm.nih.gov/blast/executables/blast+/2.16.0/ncbi-blast-2.16.0+-x64-linux.tar.gz",
		Kind:     TarGz,
		Binaries: []string{"blastp", "blastdbcmd"},
	},
	{
		Name:     "muscle",
		URL:      "https://github.com/rcedgar/muscle/releases/download/v5.3/muscle-linux-x86.v5.3",
		Kind:     RawBinary,
		Binaries: []string{"muscle"},
	},
	{
		Name:     "mmseqs",
		URL:      "https://mmseqs.com/latest/mmseqs-linux-avx2.tar.gz",
		Kind:     TarGz,
		Binaries: []string{"mmseqs"},
	},
	{
		Name:     "megacc",
		URL:      "https://www.megasoftware.net/releases/megacc_11.0.13_amd64.tar.gz",
		Kind:     TarGz,
		Binaries: []string{"megacc"},
	},
}

// RequiredBinaries flattens the tool table into the executables Verify
// checks for.
func RequiredBinaries() []string {
	var bins []string
	for _, tool := range Tools {
		bins = append(bins, tool.Binaries...)
	}
	return bins
}
