package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/pawkat/vrcroster/internal/config"
)

// FileSink writes the snapshot document to a fixed filename inside Dir.
type FileSink struct {
	Dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

// Write serializes doc and writes it to Dir. The document is written whole
// or not at all: marshaling happens before the file is touched.
func (s *FileSink) Write(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(s.Dir, config.SnapshotFilename)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"path":  path,
		"bytes": len(payload),
		"users": len(doc.VRCUserDisplayNames),
	}).Info("Snapshot written")
	return nil
}
