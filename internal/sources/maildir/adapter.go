// Package maildir collects candidate records from a local maildir tree.
// Message files under cur/ and new/ are listed by their delivery timestamp
// (the leading seconds in a maildir filename) and resolved through RFC 5322
// parsing, preferring the Date header as the canonical timestamp.
package maildir

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driven"
	"github.com/ChrisPatten/haven-sub000/internal/logger"
)

// maxMessageSize caps how much of a message file is read.
const maxMessageSize = 10 * 1024 * 1024 // 10 MiB

// Ensure Adapter implements the interface.
var _ driven.SourceAdapter = (*Adapter)(nil)

// Adapter is the maildir source adapter for one scope.
type Adapter struct {
	scopeKey string
	opts     domain.MaildirOptions
}

// New creates a maildir adapter. The path must exist and be a directory.
func New(scopeKey string, opts domain.MaildirOptions) (*Adapter, error) {
	info, err := os.Stat(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("maildir %s: %w", opts.Path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: maildir %s is not a directory", domain.ErrInvalidInput, opts.Path)
	}

	return &Adapter{scopeKey: scopeKey, opts: opts}, nil
}

// Kind returns the source kind identifier.
func (a *Adapter) Kind() string {
	return string(domain.ScopeKindMaildir)
}

// ScopeKey returns the configured scope ID.
func (a *Adapter) ScopeKey() string {
	return a.scopeKey
}

// folders returns the folder names to collect: the root folder plus any
// configured subfolders.
func (a *Adapter) folders() []string {
	return append([]string{""}, a.opts.Folders...)
}

// ListCandidateKeys lists message files across cur/ and new/ of every
// folder whose delivery timestamp falls inside the window.
func (a *Adapter) ListCandidateKeys(ctx context.Context, window domain.Fence) ([]domain.CandidateKey, error) {
	var keys []domain.CandidateKey

	for _, folder := range a.folders() {
		for _, sub := range []string{"cur", "new"} {
			dir := filepath.Join(a.opts.Path, folder, sub)
			entries, err := os.ReadDir(dir)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return nil, fmt.Errorf("reading %s: %w", dir, err)
			}

			for _, entry := range entries {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
					continue
				}

				info, err := entry.Info()
				if err != nil {
					logger.Debug("stat %s: %v", entry.Name(), err)
					continue
				}

				// Maildir filenames lead with delivery seconds;
				// fall back to mtime for foreign names.
				ts := info.ModTime().UTC()
				if secs, ok := deliverySeconds(entry.Name()); ok {
					ts = secs
				}
				if !window.Contains(ts) {
					continue
				}

				keys = append(keys, domain.CandidateKey{
					Seq:       info.ModTime().UTC().UnixNano(),
					Ref:       filepath.Join(folder, sub, entry.Name()),
					Timestamp: ts,
				})
			}
		}
	}

	return keys, nil
}

// Resolve parses the message behind a key. The Date header, when present
// and sane, overrides the delivery timestamp.
func (a *Adapter) Resolve(ctx context.Context, key domain.CandidateKey) (*domain.CandidateRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(a.opts.Path, key.Ref)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRecordUnresolvable, key.Ref)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > maxMessageSize {
		return nil, fmt.Errorf("%w: %s exceeds size limit", domain.ErrRecordUnresolvable, key.Ref)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrRecordUnresolvable, key.Ref, err)
	}

	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrRecordUnresolvable, key.Ref, err)
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	from := decodeHeader(msg.Header.Get("From"))
	to := decodeHeader(msg.Header.Get("To"))

	ts := key.Timestamp
	if date, dateErr := msg.Header.Date(); dateErr == nil && saneHeaderDate(date.UTC(), key.Timestamp) {
		ts = date.UTC()
	}

	body, attachments := extractParts(msg)

	var content strings.Builder
	if from != "" {
		fmt.Fprintf(&content, "From: %s\n", from)
	}
	if to != "" {
		fmt.Fprintf(&content, "To: %s\n", to)
	}
	if subject != "" {
		fmt.Fprintf(&content, "Subject: %s\n", subject)
	}
	content.WriteString("\n")
	content.WriteString(body)

	folder := filepath.Dir(filepath.Dir(key.Ref))
	if folder == "." {
		folder = ""
	}
	rec := &domain.CandidateRecord{
		Key:         key,
		Timestamp:   ts,
		Content:     strings.TrimSpace(content.String()),
		Attachments: attachments,
		Metadata: map[string]string{
			"folder":  folder,
			"subject": subject,
			"from":    from,
			"to":      to,
		},
	}
	if id := msg.Header.Get("Message-ID"); id != "" {
		rec.Metadata["message_id"] = id
	}
	return rec, nil
}

// Close releases resources.
func (a *Adapter) Close() error {
	return nil
}

// deliverySeconds parses the leading unix seconds of a maildir filename.
func deliverySeconds(name string) (time.Time, bool) {
	head, _, found := strings.Cut(name, ".")
	if !found {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(head, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}, false
	}
	return time.Unix(secs, 0).UTC(), true
}

// headerDateFloor rejects epoch-ish Date headers written by broken MUAs.
var headerDateFloor = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

// headerDateSlack bounds how far past the delivery time a Date header may
// claim before it is treated as clock garbage.
const headerDateSlack = 48 * time.Hour

// saneHeaderDate reports whether a Date header is plausible enough to
// override the delivery timestamp. An implausible Date must never become
// the canonical timestamp: it would anchor fence coverage to a bogus era.
func saneHeaderDate(date, delivery time.Time) bool {
	if date.Before(headerDateFloor) {
		return false
	}
	if !delivery.IsZero() && date.After(delivery.Add(headerDateSlack)) {
		return false
	}
	return true
}

// decodeHeader decodes RFC 2047 encoded headers.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// extractParts pulls the text body and any attachments out of a message.
func extractParts(msg *mail.Message) (string, []domain.Attachment) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		body, readErr := io.ReadAll(io.LimitReader(msg.Body, maxMessageSize))
		if readErr != nil {
			return "", nil
		}
		return string(body), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipart(msg.Body, params["boundary"])
	}

	body, err := io.ReadAll(io.LimitReader(msg.Body, maxMessageSize))
	if err != nil {
		return "", nil
	}
	if mediaType == "text/html" {
		return stripHTMLTags(string(body)), nil
	}
	return string(body), nil
}

// extractMultipart walks the parts, collecting text and attachments.
// Plain text is preferred over stripped HTML for the body.
func extractMultipart(r io.Reader, boundary string) (string, []domain.Attachment) {
	if boundary == "" {
		return "", nil
	}

	mr := multipart.NewReader(r, boundary)
	var textParts []string
	var htmlParts []string
	var attachments []domain.Attachment

	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		partType := part.Header.Get("Content-Type")
		mediaType, params, parseErr := mime.ParseMediaType(partType)
		if parseErr != nil {
			mediaType = "application/octet-stream"
		}

		content, readErr := io.ReadAll(io.LimitReader(part, maxMessageSize))
		filename := part.FileName()
		part.Close()
		if readErr != nil {
			continue
		}

		switch {
		case filename != "":
			attachments = append(attachments, domain.Attachment{
				Filename:  filename,
				MediaType: mediaType,
				Content:   content,
			})
		case mediaType == "text/plain":
			textParts = append(textParts, string(content))
		case mediaType == "text/html":
			htmlParts = append(htmlParts, stripHTMLTags(string(content)))
		case strings.HasPrefix(mediaType, "multipart/"):
			nested, nestedAtt := extractMultipart(bytes.NewReader(content), params["boundary"])
			if nested != "" {
				textParts = append(textParts, nested)
			}
			attachments = append(attachments, nestedAtt...)
		}
	}

	body := strings.Join(textParts, "\n")
	if body == "" {
		body = strings.Join(htmlParts, "\n")
	}
	return body, attachments
}

// stripHTMLTags removes HTML tags for basic text extraction.
func stripHTMLTags(html string) string {
	var result strings.Builder
	inTag := false

	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}

	lines := strings.Split(result.String(), "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
