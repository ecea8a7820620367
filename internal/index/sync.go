package index

import (
	"log/slog"
	"time"

	"github.com/starford/thoughtmap/internal/checksum"
	"github.com/starford/thoughtmap/internal/codec"
	"github.com/starford/thoughtmap/internal/storage"
	"github.com/starford/thoughtmap/internal/thought"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed documents are decoded and upserted
//   - documents removed from disk are deleted from the index
//
// Documents that fail to decode are logged and skipped.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile decodes data and upserts it into the DB. A zero updated time means now.
func IndexFile(db *DB, path string, data []byte, updated time.Time) error {
	doc, err := codec.Decode(data)
	if err != nil {
		return err
	}
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	row := DocumentRow{
		Path:      path,
		Title:     doc.Title,
		Checksum:  checksum.Sum(data),
		UpdatedAt: updated,
	}
	return db.UpsertDocument(row, Rows(doc.Roots))
}

// Rows flattens a document's thought trees into index rows, pre-order.
func Rows(roots []*thought.Node) []ThoughtRow {
	var out []ThoughtRow
	var walk func(n *thought.Node, parent string)
	walk = func(n *thought.Node, parent string) {
		out = append(out, ThoughtRow{
			ID:       n.ID,
			ParentID: parent,
			AliasID:  n.AliasID,
			Type:     string(n.Type),
			Status:   string(n.Metadata.EvaluationStatus),
			Depth:    n.Metadata.RecursionDepth,
			Content:  n.Content,
		})
		for _, c := range n.SubThoughts {
			walk(c, n.ID)
		}
	}
	for _, r := range roots {
		walk(r, "")
	}
	return out
}
