package ops

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Avenger11764/duo-learning/internal/feed"
	"github.com/Avenger11764/duo-learning/internal/profile"
	"github.com/Avenger11764/duo-learning/internal/store"
)

// Collections covered by export and reset.
var Collections = []string{profile.Collection, feed.Collection}

// ExportArchive snapshots every collection into a tar.gz of one JSON file
// per collection. The snapshot is not atomic across collections: a write
// that lands between the two List calls shows up in only one file.
func ExportArchive(ctx context.Context, st store.Store, archivePath string) error {
	archivePath = filepath.Clean(strings.TrimSpace(archivePath))
	if archivePath == "" || archivePath == "." {
		return fmt.Errorf("archivePath is required")
	}
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()

	tw := tar.NewWriter(gz)
	defer tw.Close()

	now := st.Now(ctx)
	for _, collection := range Collections {
		snap, err := st.List(ctx, collection)
		if err != nil {
			return fmt.Errorf("list %s: %w", collection, err)
		}
		b, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		hdr := &tar.Header{
			Name:    collection + ".json",
			Mode:    0o644,
			Size:    int64(len(b)),
			ModTime: now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := tw.Write(b); err != nil {
			return err
		}
	}
	return nil
}

// ImportArchive loads an export archive back into the store, overwriting
// documents id by id. Documents absent from the archive are left alone;
// run Reset first for a clean restore.
func ImportArchive(ctx context.Context, st store.Store, archivePath string) error {
	f, err := os.Open(filepath.Clean(strings.TrimSpace(archivePath)))
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		collection := strings.TrimSuffix(filepath.Base(hdr.Name), ".json")
		if !knownCollection(collection) {
			continue
		}
		b, err := io.ReadAll(tr)
		if err != nil {
			return err
		}
		var snap store.Snapshot
		if err := json.Unmarshal(b, &snap); err != nil {
			return fmt.Errorf("decode %s: %w", hdr.Name, err)
		}
		for id, doc := range snap {
			if err := st.Set(ctx, collection, id, doc); err != nil {
				return fmt.Errorf("restore %s/%s: %w", collection, id, err)
			}
		}
	}
}

func knownCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}

// timestamp for default archive names, e.g. duolearn-20260310-140000.tar.gz.
func DefaultArchiveName(now time.Time) string {
	return "duolearn-" + now.UTC().Format("20060102-150405") + ".tar.gz"
}
