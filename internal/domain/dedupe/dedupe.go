// Package dedupe defines the interface for duplicate-row tracking.
//
// The cleaner uses a Deduper to drop exact-duplicate transaction rows:
// two rows with identical business fields (ignoring ingest order) are the
// same row loaded twice, not two transactions.
package dedupe

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/okian/finsift/internal/domain/model"
)

// Deduper records seen row fingerprints.
type Deduper interface {
	// SeenAndRecord atomically checks if fp was seen and records it if not.
	// Returns true if fp was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, fp string) bool

	Size() int64
}

// Fingerprint derives the duplicate-detection key for a transaction row.
// Seq and the derived Hour/Day fields are excluded: they are bookkeeping,
// not business content.
func Fingerprint(t model.Transaction) string {
	var b strings.Builder
	b.Grow(64)
	b.WriteString(strconv.Itoa(t.Step))
	b.WriteByte('|')
	b.WriteString(string(t.Type))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(t.Amount, 'g', -1, 64))
	b.WriteByte('|')
	b.WriteString(t.Origin)
	b.WriteByte('|')
	b.WriteString(t.Dest)
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(t.OrigBefore, 'g', -1, 64))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(t.OrigAfter, 'g', -1, 64))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(t.DestBefore, 'g', -1, 64))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(t.DestAfter, 'g', -1, 64))
	return b.String()
}

// inMemoryDeduper implements Deduper with a plain map. A batch run sees each
// fingerprint at most a handful of times, so no eviction is needed; the map
// lives only as long as the cleaning stage.
type inMemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}

	for _, opt := range opts {
		opt(d)
	}

	if d.seen == nil {
		d.seen = make(map[string]struct{})
	}
	return d
}

// SeenAndRecord atomically checks if fp was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, fp string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[fp]; exists {
		return true
	}
	d.seen[fp] = struct{}{}
	return false
}

// Size returns the current number of recorded fingerprints.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
