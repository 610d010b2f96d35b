// Package seguid maps sequence fingerprints to database identifiers.
//
// A SEGUID is the "sequence globally unique identifier" of a biological sequence:
// the SHA-1 hash of the sequence's bytes,
// encoded in base64 with the trailing padding removed.
// The result is always 27 characters long.
//
// Because the key is computed from a sequence's content,
// rather than assigned by whichever database happened to publish it,
// the same sequence submitted by UniProt, by GenBank,
// and by anyone else who has a copy,
// lands on the same SEGUID.
// That makes a SEGUID a good meeting point for the accession numbers
// (sp|P14693, gb|AAB68885.1, ref|NP_011951.1, and so on)
// that various sources use to refer to one sequence.
//
// A Store holds one Record per SEGUID.
// A Record's set of identifiers only ever grows:
// Merge adds identifiers and reports whether the record was created,
// updated,
// or unchanged,
// and there is no operation for removing one.
// Store implementations make Merge atomic,
// so that two callers merging into the same SEGUID at the same time
// never lose each other's identifiers.
//
// Implementations live beneath the store subdirectory.
// The upsert package turns batches of submissions into Merge calls,
// the ingest package feeds FASTA files through that in bounded batches,
// and the httpapi package puts it all on the network.
package seguid
