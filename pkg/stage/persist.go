package stage

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidemark/keel/pkg/model"
	"github.com/tidemark/keel/pkg/storage"
)

// The index record is line oriented and path keyed, one staged entry
// per line:
//
//	<path>\t<hash>\t<size>\t<mtime RFC3339Nano>\n

// Save persists the current entries to the metadata store.
func (i *Index) Save(ctx context.Context) error {
	var buf bytes.Buffer
	for _, e := range i.List() {
		fmt.Fprintf(&buf, "%s\t%s\t%d\t%s\n",
			e.Path, e.Hash, e.Size, e.Mtime.UTC().Format(time.RFC3339Nano))
	}
	if err := i.meta.Put(ctx, model.IndexPath(), &buf); err != nil {
		return model.ErrFilesystem.Wrap(err)
	}
	return nil
}

// Load replaces the in-memory entries with the persisted record. A
// missing record leaves the index empty.
func (i *Index) Load(ctx context.Context) error {
	rdr, err := i.meta.Get(ctx, model.IndexPath())
	if err != nil {
		if err == storage.ErrNotFound {
			i.entries = make(map[string]model.IndexEntry)
			return nil
		}
		return model.ErrFilesystem.Wrap(err)
	}
	defer rdr.Close()

	entries := make(map[string]model.IndexEntry)
	scanner := bufio.NewScanner(rdr)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 4 {
			return model.ErrCorrupted.Wrap(fmt.Errorf("index record %q has %d fields, expected 4", line, len(fields)))
		}
		size, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return model.ErrCorrupted.Wrap(fmt.Errorf("index record %q has a bad size", line))
		}
		mtime, err := time.Parse(time.RFC3339Nano, fields[3])
		if err != nil {
			return model.ErrCorrupted.Wrap(fmt.Errorf("index record %q has a bad mtime", line))
		}
		entries[fields[0]] = model.IndexEntry{
			Path:   fields[0],
			Hash:   fields[1],
			Size:   size,
			Mtime:  mtime,
			Staged: true,
		}
	}
	if err := scanner.Err(); err != nil {
		return model.ErrFilesystem.Wrap(err)
	}
	i.entries = entries
	return nil
}
