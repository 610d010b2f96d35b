// Package fasta reads FASTA-formatted sequence files
// and extracts database identifiers from their header lines.
package fasta

import (
	"bufio"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Record is a single FASTA record.
type Record struct {
	// Header is the header line without its leading '>'.
	Header string

	// Seq is the concatenation of the record's sequence lines,
	// each trimmed of surrounding whitespace.
	Seq string
}

// Reader reads FASTA records from an input stream.
// Lines before the first header are ignored.
type Reader struct {
	sc     *bufio.Scanner
	header string
	seen   bool
	done   bool
}

// MaxLine is the longest line a Reader accepts.
const MaxLine = 16 * 1024 * 1024

// NewReader produces a new Reader on r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), MaxLine)
	return &Reader{sc: sc}
}

// Read reads the next record.
// It returns io.EOF after the last one.
func (r *Reader) Read() (Record, error) {
	if r.done {
		return Record{}, io.EOF
	}

	var seq strings.Builder
	for r.sc.Scan() {
		line := r.sc.Text()
		if strings.HasPrefix(line, ">") {
			header := strings.TrimSpace(line[1:])
			if !r.seen {
				r.seen = true
				r.header = header
				seq.Reset()
				continue
			}
			rec := Record{Header: r.header, Seq: seq.String()}
			r.header = header
			return rec, nil
		}
		seq.WriteString(strings.TrimSpace(line))
	}
	if err := r.sc.Err(); err != nil {
		return Record{}, errors.Wrap(err, "scanning input")
	}

	r.done = true
	if !r.seen {
		return Record{}, io.EOF
	}
	return Record{Header: r.header, Seq: seq.String()}, nil
}

// ReadAll reads all the records from r.
func ReadAll(r io.Reader) ([]Record, error) {
	var (
		fr   = NewReader(r)
		recs []Record
	)
	for {
		rec, err := fr.Read()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}

// Dialect is a style of FASTA header.
type Dialect int

const (
	// NCBI headers are |-separated database/accession pairs,
	// as in "gi|50908635|ref|XP_465806.1|".
	NCBI Dialect = iota

	// UniProt headers are pairs followed by a mnemonic and a description,
	// as in "sp|B1X797|6PGL_ECODH 6-phosphogluconolactonase".
	UniProt
)

// MnemonicKey is the ParseHeader key for a UniProt mnemonic.
const MnemonicKey = "mnemonic"

// ParseHeader maps database names to accessions for a FASTA header.
// The header is split on '|' and the final field is dropped.
// The rest are taken two at a time as (database, accession) pairs;
// an unpaired field at the end is ignored.
// In the UniProt dialect,
// the first word of the final field is added under MnemonicKey.
func ParseHeader(h string, d Dialect) map[string]string {
	var (
		fields = strings.Split(strings.TrimSpace(h), "|")
		out    = make(map[string]string)
	)
	pairs := fields[:len(fields)-1]
	for i := 0; i+1 < len(pairs); i += 2 {
		out[pairs[i]] = pairs[i+1]
	}
	if d == UniProt {
		if words := strings.Fields(fields[len(fields)-1]); len(words) > 0 {
			out[MnemonicKey] = words[0]
		}
	}
	return out
}

// IDs renders the result of ParseHeader as sorted identifiers of the form "db|accession".
func IDs(fields map[string]string) []string {
	out := make([]string, 0, len(fields))
	for db, acc := range fields {
		out = append(out, db+"|"+acc)
	}
	sort.Strings(out)
	return out
}
