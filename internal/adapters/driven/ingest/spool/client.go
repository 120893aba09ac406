// Package spool implements driven.IngestClient as a local JSONL outbox.
// Accepted records are appended one JSON object per line to a day-keyed
// file; delivery to a real ingestion gateway happens out of band. The CLI
// uses this as its default client.
package spool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.IngestClient = (*Client)(nil)

// Client appends enriched records to JSONL files under a spool directory.
type Client struct {
	dir string

	mu sync.Mutex

	// now is swappable for tests.
	now func() time.Time
}

// New creates a spool client writing under dir.
func New(dir string) *Client {
	return &Client{dir: dir, now: time.Now}
}

// DefaultDir returns ~/.haven/outbox.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".haven", "outbox"), nil
}

type spoolAttachment struct {
	Filename  string `json:"filename"`
	MediaType string `json:"media_type"`
	Content   []byte `json:"content,omitempty"`
}

type spoolLine struct {
	Ref         string              `json:"ref"`
	Seq         int64               `json:"seq"`
	Timestamp   time.Time           `json:"timestamp"`
	Content     string              `json:"content,omitempty"`
	Metadata    map[string]string   `json:"metadata,omitempty"`
	Attachments []spoolAttachment   `json:"attachments,omitempty"`
	Enrichments []domain.Enrichment `json:"enrichments,omitempty"`
	WrittenAt   time.Time           `json:"written_at"`
}

// SubmitBatch appends all records to today's outbox file. Writes are
// all-or-nothing per call: an I/O failure reports the whole batch failed.
func (c *Client) SubmitBatch(ctx context.Context, recs []domain.EnrichedRecord) ([]driven.PerRecordOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}

	now := c.now().UTC()
	path := filepath.Join(c.dir, now.Format("2006-01-02")+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open spool file: %w", err)
	}

	enc := json.NewEncoder(f)
	for i := range recs {
		if err := enc.Encode(toLine(&recs[i], now)); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to write spool record: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close spool file: %w", err)
	}

	outcomes := make([]driven.PerRecordOutcome, len(recs))
	for i := range recs {
		outcomes[i] = driven.PerRecordOutcome{Key: recs[i].Key, Success: true}
	}
	return outcomes, nil
}

// Submit appends a single record.
func (c *Client) Submit(ctx context.Context, rec domain.EnrichedRecord) (driven.PerRecordOutcome, error) {
	outcomes, err := c.SubmitBatch(ctx, []domain.EnrichedRecord{rec})
	if err != nil {
		return driven.PerRecordOutcome{}, err
	}
	return outcomes[0], nil
}

func toLine(rec *domain.EnrichedRecord, now time.Time) spoolLine {
	line := spoolLine{
		Ref:         rec.Key.Ref,
		Seq:         rec.Key.Seq,
		Timestamp:   rec.Timestamp.UTC(),
		Content:     rec.Content,
		Metadata:    rec.Metadata,
		Enrichments: rec.Enrichments,
		WrittenAt:   now,
	}
	for _, att := range rec.Attachments {
		line.Attachments = append(line.Attachments, spoolAttachment{
			Filename:  att.Filename,
			MediaType: att.MediaType,
			Content:   att.Content,
		})
	}
	return line
}
