// Package blob implements the on-disk store shared by the project and
// version services: per-namespace JSON records plus an optional binary
// thumbnail under the same entity id.
//
// Layout beneath the root directory:
//
//	projects/{project_id}.json
//	projects/{project_id}.png
//	versions/{project_id}/{version_id}.json
//	versions/{project_id}/{version_id}.png
//
// Record writes are atomic: the new content is written to a temp file and
// renamed over the target, so a crash leaves either the old or the new
// record, never a partial one.
package blob

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dstepanenko/dreamhouse/internal/common"
	"github.com/dstepanenko/dreamhouse/internal/filex"
)

const (
	recordExt = ".json"
	blobExt   = ".png"
)

// ProjectsNamespace holds the live project records.
const ProjectsNamespace = "projects"

// VersionsNamespace returns the namespace holding the version history of
// one project.
func VersionsNamespace(projectID string) string {
	return path.Join("versions", projectID)
}

// Record is one listed JSON record together with its storage id and
// modification time.
type Record struct {
	ID      string
	Data    json.RawMessage
	ModTime time.Time
}

// Store is a file-based record/blob store rooted at a single directory.
type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) dir(namespace string) string {
	return filepath.Join(s.root, filepath.FromSlash(namespace))
}

func (s *Store) recordPath(namespace, id string) string {
	return filepath.Join(s.dir(namespace), id+recordExt)
}

func (s *Store) blobPath(namespace, id string) string {
	return filepath.Join(s.dir(namespace), id+blobExt)
}

func checkID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("%w: bad entity id %q", common.ErrorInvalidInput, id)
	}
	return nil
}

// PutRecord serializes v and writes it as the record for id, replacing any
// prior value.
func (s *Store) PutRecord(namespace, id string, v any) error {
	if err := checkID(id); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshaling record %s: %v", common.ErrorStorage, id, err)
	}
	if _, err := filex.EnsureDir(s.dir(namespace)); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}
	if err := filex.WriteFileAtomic(s.recordPath(namespace, id), data, 0o660); err != nil {
		return fmt.Errorf("%w: writing record %s: %v", common.ErrorStorage, id, err)
	}
	return nil
}

// GetRecord reads the record for id into v and returns the record's
// modification time. A missing record yields common.ErrorNotFound.
func (s *Store) GetRecord(namespace, id string, v any) (time.Time, error) {
	if err := checkID(id); err != nil {
		return time.Time{}, err
	}
	p := s.recordPath(namespace, id)
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return time.Time{}, common.ErrorNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: reading %s: %v", common.ErrorStorage, p, err)
	}
	fi, err := os.Stat(p)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: stat %s: %v", common.ErrorStorage, p, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return time.Time{}, fmt.Errorf("%w: decoding %s: %v", common.ErrorStorage, p, err)
	}
	return fi.ModTime(), nil
}

// DeleteRecord removes the JSON record for id. It does not touch the blob;
// the caller decides whether and when to delete it.
func (s *Store) DeleteRecord(namespace, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	err := os.Remove(s.recordPath(namespace, id))
	if os.IsNotExist(err) {
		return common.ErrorNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: deleting record %s: %v", common.ErrorStorage, id, err)
	}
	return nil
}

// ListRecords returns every record in the namespace, ordered by
// modification time, newest first. Unreadable entries are skipped.
func (s *Store) ListRecords(namespace string) ([]Record, error) {
	entries, err := os.ReadDir(s.dir(namespace))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %v", common.ErrorStorage, namespace, err)
	}

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir(namespace), name))
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		records = append(records, Record{
			ID:      strings.TrimSuffix(name, recordExt),
			Data:    data,
			ModTime: info.ModTime(),
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ModTime.After(records[j].ModTime)
	})
	return records, nil
}

// PutBlob writes the binary artifact for id, replacing any prior one.
func (s *Store) PutBlob(namespace, id string, data []byte) error {
	if err := checkID(id); err != nil {
		return err
	}
	if _, err := filex.EnsureDir(s.dir(namespace)); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}
	if err := filex.WriteFileAtomic(s.blobPath(namespace, id), data, 0o660); err != nil {
		return fmt.Errorf("%w: writing blob %s: %v", common.ErrorStorage, id, err)
	}
	return nil
}

// GetBlob returns the binary artifact for id, or common.ErrorNotFound.
func (s *Store) GetBlob(namespace, id string) ([]byte, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.blobPath(namespace, id))
	if os.IsNotExist(err) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading blob %s: %v", common.ErrorStorage, id, err)
	}
	return data, nil
}

// HasBlob reports whether a binary artifact exists for id.
func (s *Store) HasBlob(namespace, id string) bool {
	if checkID(id) != nil {
		return false
	}
	_, err := os.Stat(s.blobPath(namespace, id))
	return err == nil
}

// DeleteBlob removes the binary artifact for id. Deleting an absent blob
// is not an error: the artifact is optional.
func (s *Store) DeleteBlob(namespace, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	err := os.Remove(s.blobPath(namespace, id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: deleting blob %s: %v", common.ErrorStorage, id, err)
	}
	return nil
}

// RemoveNamespace deletes the whole namespace directory and everything in
// it. Used to cascade-delete a project's version history.
func (s *Store) RemoveNamespace(namespace string) error {
	if err := os.RemoveAll(s.dir(namespace)); err != nil {
		return fmt.Errorf("%w: removing %s: %v", common.ErrorStorage, namespace, err)
	}
	return nil
}
