// Package versions manages the per-project history of snapshots. A
// snapshot captures the persisted project record and thumbnail exactly as
// they are on disk; it is created once, right before a project update
// supersedes that state, and never mutated afterwards.
package versions

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dstepanenko/dreamhouse/internal/common"
	"github.com/dstepanenko/dreamhouse/internal/logging"
	"github.com/dstepanenko/dreamhouse/internal/server/blob"
	"github.com/dstepanenko/dreamhouse/internal/syncx"
)

// Meta describes one snapshot.
type Meta struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
	Name    string    `json:"name"`
}

// Version is the persisted snapshot record: meta plus the full project
// record as it was at capture time.
type Version struct {
	Meta    Meta            `json:"meta"`
	Project json.RawMessage `json:"project"`
}

// Summary is the listing view of a snapshot.
type Summary struct {
	ID           string    `json:"id"`
	Created      time.Time `json:"created"`
	Name         string    `json:"name"`
	HasThumbnail bool      `json:"has_thumbnail"`
}

// projectRecord mirrors the persisted shape of a live project record, as
// far as this package needs to read or rewrite it.
type projectRecord struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Layout json.RawMessage `json:"layout"`
	Owner  string          `json:"owner,omitempty"`
}

type Service struct {
	store  *blob.Store
	locks  *syncx.KeyedMutex
	logger logging.Logger
}

// NewService constructs the version service. The locks table must be the
// same instance the project service uses, so that updates, reverts, and
// deletes on one project id serialize.
func NewService(store *blob.Store, locks *syncx.KeyedMutex, logger logging.Logger) *Service {
	return &Service{
		store:  store,
		locks:  locks,
		logger: logger.With("module", "versions"),
	}
}

// Snapshot captures the currently persisted record and thumbnail of the
// project and returns the new version id. It takes no caller-supplied
// data. The caller must already hold the project's lock: Snapshot is the
// first step of the locked update sequence and does not lock itself.
func (s *Service) Snapshot(ctx context.Context, projectID string) (string, error) {
	var raw json.RawMessage
	if _, err := s.store.GetRecord(blob.ProjectsNamespace, projectID, &raw); err != nil {
		return "", err
	}

	var current projectRecord
	if err := json.Unmarshal(raw, &current); err != nil {
		return "", fmt.Errorf("%w: corrupt project record %s: %v", common.ErrorStorage, projectID, err)
	}

	ns := blob.VersionsNamespace(projectID)
	versionID := uuid.NewString()
	v := Version{
		Meta:    Meta{ID: versionID, Created: time.Now().UTC(), Name: current.Name},
		Project: raw,
	}
	if err := s.store.PutRecord(ns, versionID, v); err != nil {
		return "", err
	}

	if thumb, err := s.store.GetBlob(blob.ProjectsNamespace, projectID); err == nil {
		if err := s.store.PutBlob(ns, versionID, thumb); err != nil {
			// the record snapshot stands; the thumbnail copy is best effort
			s.logger.Warn(ctx, "thumbnail snapshot failed", "project", projectID, "version", versionID, "error", err)
		}
	}

	s.logger.Info(ctx, "snapshot created", "project", projectID, "version", versionID)
	return versionID, nil
}

// List returns the project's snapshot summaries, newest first.
func (s *Service) List(ctx context.Context, projectID string) ([]Summary, error) {
	if _, err := s.store.GetRecord(blob.ProjectsNamespace, projectID, &json.RawMessage{}); err != nil {
		return nil, err
	}

	ns := blob.VersionsNamespace(projectID)
	records, err := s.store.ListRecords(ns)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(records))
	for _, rec := range records {
		var v Version
		if err := json.Unmarshal(rec.Data, &v); err != nil {
			s.logger.Warn(ctx, "skipping corrupt version record", "project", projectID, "version", rec.ID)
			continue
		}
		summaries = append(summaries, Summary{
			ID:           v.Meta.ID,
			Created:      v.Meta.Created,
			Name:         v.Meta.Name,
			HasThumbnail: s.store.HasBlob(ns, v.Meta.ID),
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Created.After(summaries[j].Created)
	})
	return summaries, nil
}

// Get returns one full snapshot.
func (s *Service) Get(ctx context.Context, projectID, versionID string) (*Version, error) {
	var v Version
	if _, err := s.store.GetRecord(blob.VersionsNamespace(projectID), versionID, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Thumbnail returns the snapshot's thumbnail bytes, or ErrorNotFound.
func (s *Service) Thumbnail(ctx context.Context, projectID, versionID string) ([]byte, error) {
	return s.store.GetBlob(blob.VersionsNamespace(projectID), versionID)
}

// Revert overwrites the live project record with the snapshot's project
// data. The record keeps the project's *current* owner, not the owner
// recorded inside the snapshot, so ownership cannot drift backward through
// history. The snapshot's thumbnail, when present, replaces the current
// one. Reverting does not create a new version.
func (s *Service) Revert(ctx context.Context, projectID, versionID, actingUser string) error {
	if actingUser == "" {
		return common.ErrorUnauthorized
	}

	s.locks.Lock(projectID)
	defer s.locks.Unlock(projectID)

	var current projectRecord
	if _, err := s.store.GetRecord(blob.ProjectsNamespace, projectID, &current); err != nil {
		return err
	}
	if current.Owner != "" && current.Owner != actingUser {
		return common.ErrorForbidden
	}

	v, err := s.Get(ctx, projectID, versionID)
	if err != nil {
		return err
	}

	var restored projectRecord
	if err := json.Unmarshal(v.Project, &restored); err != nil {
		return fmt.Errorf("%w: corrupt snapshot %s: %v", common.ErrorStorage, versionID, err)
	}
	restored.ID = projectID
	restored.Owner = current.Owner

	ns := blob.VersionsNamespace(projectID)
	if thumb, err := s.store.GetBlob(ns, versionID); err == nil {
		if err := s.store.PutBlob(blob.ProjectsNamespace, projectID, thumb); err != nil {
			s.logger.Warn(ctx, "thumbnail restore failed", "project", projectID, "version", versionID, "error", err)
		}
	}

	if err := s.store.PutRecord(blob.ProjectsNamespace, projectID, restored); err != nil {
		return err
	}

	s.logger.Info(ctx, "project reverted", "project", projectID, "version", versionID)
	return nil
}

// Delete removes one snapshot's record and thumbnail. Other snapshots and
// the live project are untouched. A thumbnail that cannot be removed after
// the record is already gone surfaces as ErrorPartialDelete.
func (s *Service) Delete(ctx context.Context, projectID, versionID, actingUser string) error {
	if actingUser == "" {
		return common.ErrorUnauthorized
	}

	s.locks.Lock(projectID)
	defer s.locks.Unlock(projectID)

	var current projectRecord
	if _, err := s.store.GetRecord(blob.ProjectsNamespace, projectID, &current); err != nil {
		return err
	}
	if current.Owner != "" && current.Owner != actingUser {
		return common.ErrorForbidden
	}

	ns := blob.VersionsNamespace(projectID)
	if err := s.store.DeleteRecord(ns, versionID); err != nil {
		return err
	}
	if err := s.store.DeleteBlob(ns, versionID); err != nil {
		return fmt.Errorf("%w: version %s record removed, thumbnail remains: %v", common.ErrorPartialDelete, versionID, err)
	}

	s.logger.Info(ctx, "version deleted", "project", projectID, "version", versionID)
	return nil
}

// RemoveAll drops the project's whole version namespace. Called when the
// project itself is deleted, so history does not leak on disk.
func (s *Service) RemoveAll(ctx context.Context, projectID string) error {
	return s.store.RemoveNamespace(blob.VersionsNamespace(projectID))
}
