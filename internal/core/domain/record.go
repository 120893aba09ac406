package domain

import "time"

// CandidateKey identifies one collectable record without materialising it.
// Keys are cheap: listing yields keys, resolution yields records.
type CandidateKey struct {
	// Seq is the source's native ordering value (an mtime, an offset).
	Seq int64

	// Ref is the source-local reference (a path, a message filename).
	Ref string

	// Timestamp is the record's canonical timestamp, the one fences and
	// ordering are defined over.
	Timestamp time.Time
}

// Less orders keys by canonical timestamp, breaking ties on the source's
// native order so the composed order is total and deterministic.
func (k CandidateKey) Less(o CandidateKey) bool {
	if !k.Timestamp.Equal(o.Timestamp) {
		return k.Timestamp.Before(o.Timestamp)
	}
	if k.Seq != o.Seq {
		return k.Seq < o.Seq
	}
	return k.Ref < o.Ref
}

// Attachment is a binary part carried alongside a record's text content.
type Attachment struct {
	Filename  string
	MediaType string
	Content   []byte
}

// CandidateRecord is one fully resolved record ready for enrichment.
type CandidateRecord struct {
	Key         CandidateKey
	Timestamp   time.Time
	Content     string
	Attachments []Attachment
	Metadata    map[string]string
}

// Enrichment is one piece of derived text for a record part.
type Enrichment struct {
	// Part indexes the attachment this enrichment belongs to; -1 means
	// the record body.
	Part int

	// Text is the derived text.
	Text string
}

// EnrichedRecord is a candidate record with its enrichment output attached.
// A record whose enrichment failed travels with no enrichments at all.
type EnrichedRecord struct {
	CandidateRecord

	Enrichments []Enrichment
}

// Batch accumulates enriched records between flushes.
type Batch struct {
	Records []EnrichedRecord
}

// Append adds a record to the batch.
func (b *Batch) Append(rec EnrichedRecord) {
	b.Records = append(b.Records, rec)
}

// Len returns the number of buffered records.
func (b *Batch) Len() int {
	return len(b.Records)
}

// Truncate drops buffered records beyond n.
func (b *Batch) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if len(b.Records) > n {
		b.Records = b.Records[:n]
	}
}

// Reset empties the batch, keeping capacity.
func (b *Batch) Reset() {
	b.Records = b.Records[:0]
}
