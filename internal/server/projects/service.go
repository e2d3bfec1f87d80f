// Package projects implements CRUD over project records: ownership
// enforcement, filtered and paginated listing, duplication, and the
// snapshot-before-update discipline that feeds the version history.
package projects

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dstepanenko/dreamhouse/internal/common"
	"github.com/dstepanenko/dreamhouse/internal/logging"
	"github.com/dstepanenko/dreamhouse/internal/server/blob"
	"github.com/dstepanenko/dreamhouse/internal/server/versions"
	"github.com/dstepanenko/dreamhouse/internal/syncx"
)

// CopySuffix marks a duplicated project's name.
const CopySuffix = " (copy)"

type Service struct {
	store           *blob.Store
	versions        *versions.Service
	locks           *syncx.KeyedMutex
	logger          logging.Logger
	defaultPageSize int
	maxPageSize     int
}

// NewService constructs the project service. The locks table must be
// shared with the version service so that update, revert, and delete on
// one project id serialize.
func NewService(store *blob.Store, vs *versions.Service, locks *syncx.KeyedMutex,
	defaultPageSize, maxPageSize int, logger logging.Logger) *Service {
	return &Service{
		store:           store,
		versions:        vs,
		locks:           locks,
		logger:          logger.With("module", "projects"),
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// decodeThumbnail decodes a data-URI-style thumbnail string: everything up
// to the first comma is a header and is discarded, the remainder is
// base64.
func decodeThumbnail(dataURI string) ([]byte, error) {
	_, payload, found := strings.Cut(dataURI, ",")
	if !found {
		return nil, fmt.Errorf("%w: thumbnail is not a data URI", common.ErrorInvalidInput)
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: thumbnail base64: %v", common.ErrorInvalidInput, err)
	}
	return data, nil
}

// writeThumbnail decodes and stores a thumbnail for id. Failures never
// fail the surrounding record operation; they are returned so the caller
// can surface them in the SaveResult.
func (s *Service) writeThumbnail(ctx context.Context, id, dataURI string) error {
	data, err := decodeThumbnail(dataURI)
	if err == nil {
		err = s.store.PutBlob(blob.ProjectsNamespace, id, data)
	}
	if err != nil {
		s.logger.Warn(ctx, "thumbnail skipped", "id", id, "error", err)
	}
	return err
}

func (s *Service) project(rec record, updated time.Time) *Project {
	return &Project{
		ID:           rec.ID,
		Name:         rec.Name,
		Layout:       rec.Layout,
		Owner:        rec.Owner,
		Updated:      updated,
		HasThumbnail: s.store.HasBlob(blob.ProjectsNamespace, rec.ID),
	}
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: project name is required", common.ErrorInvalidInput)
	}
	return name, nil
}

// checkOwner authorizes a mutation. Legacy records without an owner are
// open to any authenticated user.
func checkOwner(rec record, actingUser string) error {
	if actingUser == "" {
		return common.ErrorUnauthorized
	}
	if rec.Owner != "" && rec.Owner != actingUser {
		return common.ErrorForbidden
	}
	return nil
}

// Create allocates a fresh id and persists the project. A supplied
// thumbnail is written before the record; its failure only surfaces in
// the result's ThumbnailErr.
func (s *Service) Create(ctx context.Context, name string, layout json.RawMessage, owner, thumbnail string) (*SaveResult, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if len(layout) == 0 {
		return nil, fmt.Errorf("%w: layout is required", common.ErrorInvalidInput)
	}

	rec := record{
		ID:     uuid.NewString(),
		Name:   name,
		Layout: layout,
		Owner:  owner,
	}

	var thumbErr error
	if thumbnail != "" {
		thumbErr = s.writeThumbnail(ctx, rec.ID, thumbnail)
	}
	if err := s.store.PutRecord(blob.ProjectsNamespace, rec.ID, rec); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "project created", "id", rec.ID, "owner", owner)
	return &SaveResult{Project: s.project(rec, time.Now().UTC()), ThumbnailErr: thumbErr}, nil
}

// Get returns one project, its Updated time derived from the record's
// modification time.
func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	var rec record
	mod, err := s.store.GetRecord(blob.ProjectsNamespace, id, &rec)
	if err != nil {
		return nil, err
	}
	return s.project(rec, mod), nil
}

// Thumbnail returns the project's thumbnail bytes, or ErrorNotFound.
func (s *Service) Thumbnail(ctx context.Context, id string) ([]byte, error) {
	return s.store.GetBlob(blob.ProjectsNamespace, id)
}

func matchesQuery(rec record, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(rec.Name), q) ||
		strings.Contains(strings.ToLower(rec.ID), q) ||
		strings.Contains(strings.ToLower(string(rec.Layout)), q)
}

// List returns a page of projects, newest first. Query filters by
// case-insensitive substring over name, id, and the serialized layout;
// OwnerOnly restricts to exact owner match. Total counts the filtered set
// before pagination.
func (s *Service) List(ctx context.Context, req ListRequest) (*ListResult, error) {
	if req.OwnerOnly && req.Owner == "" {
		return nil, common.ErrorUnauthorized
	}

	records, err := s.store.ListRecords(blob.ProjectsNamespace)
	if err != nil {
		return nil, err
	}

	filtered := make([]Project, 0, len(records))
	for _, r := range records {
		var rec record
		if err := json.Unmarshal(r.Data, &rec); err != nil {
			s.logger.Warn(ctx, "skipping corrupt project record", "id", r.ID)
			continue
		}
		if req.OwnerOnly && rec.Owner != req.Owner {
			continue
		}
		if !matchesQuery(rec, req.Query) {
			continue
		}
		filtered = append(filtered, *s.project(rec, r.ModTime))
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}

	start := (page - 1) * limit
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + limit
	if end > len(filtered) {
		end = len(filtered)
	}

	return &ListResult{Items: filtered[start:end], Total: len(filtered)}, nil
}

// Update replaces the project's name and layout. The pre-update state is
// snapshotted into the version history first, then the thumbnail is
// written, then the record — so history is preserved even if the update
// fails partway. Id and owner never change.
func (s *Service) Update(ctx context.Context, id, name string, layout json.RawMessage, actingUser, thumbnail string) (*SaveResult, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if len(layout) == 0 {
		return nil, fmt.Errorf("%w: layout is required", common.ErrorInvalidInput)
	}

	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	var current record
	if _, err := s.store.GetRecord(blob.ProjectsNamespace, id, &current); err != nil {
		return nil, err
	}
	if err := checkOwner(current, actingUser); err != nil {
		return nil, err
	}

	if _, err := s.versions.Snapshot(ctx, id); err != nil {
		return nil, fmt.Errorf("snapshotting before update: %w", err)
	}

	var thumbErr error
	if thumbnail != "" {
		thumbErr = s.writeThumbnail(ctx, id, thumbnail)
	}

	updated := record{ID: id, Name: name, Layout: layout, Owner: current.Owner}
	if err := s.store.PutRecord(blob.ProjectsNamespace, id, updated); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "project updated", "id", id)
	return &SaveResult{Project: s.project(updated, time.Now().UTC()), ThumbnailErr: thumbErr}, nil
}

// Delete removes the record, then the thumbnail, then the version
// history. Once the record is gone the deletion is not rolled back: a
// failure removing the dependents surfaces as ErrorPartialDelete.
func (s *Service) Delete(ctx context.Context, id, actingUser string) error {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	var current record
	if _, err := s.store.GetRecord(blob.ProjectsNamespace, id, &current); err != nil {
		return err
	}
	if err := checkOwner(current, actingUser); err != nil {
		return err
	}

	if err := s.store.DeleteRecord(blob.ProjectsNamespace, id); err != nil {
		return err
	}
	if err := s.store.DeleteBlob(blob.ProjectsNamespace, id); err != nil {
		return fmt.Errorf("%w: project %s record removed, thumbnail remains: %v", common.ErrorPartialDelete, id, err)
	}
	if err := s.versions.RemoveAll(ctx, id); err != nil {
		return fmt.Errorf("%w: project %s removed, version history remains: %v", common.ErrorPartialDelete, id, err)
	}

	s.logger.Info(ctx, "project deleted", "id", id)
	return nil
}

// Duplicate copies name, layout, and thumbnail under a new id owned by the
// acting user. The copy marker is appended to the name. Like update and
// delete, duplication is restricted to the owner.
func (s *Service) Duplicate(ctx context.Context, id, actingUser string) (*SaveResult, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	var src record
	if _, err := s.store.GetRecord(blob.ProjectsNamespace, id, &src); err != nil {
		return nil, err
	}
	if err := checkOwner(src, actingUser); err != nil {
		return nil, err
	}

	copyRec := record{
		ID:     uuid.NewString(),
		Name:   src.Name + CopySuffix,
		Layout: src.Layout,
		Owner:  actingUser,
	}

	var thumbErr error
	if thumb, err := s.store.GetBlob(blob.ProjectsNamespace, id); err == nil {
		if thumbErr = s.store.PutBlob(blob.ProjectsNamespace, copyRec.ID, thumb); thumbErr != nil {
			s.logger.Warn(ctx, "thumbnail copy failed", "id", copyRec.ID, "error", thumbErr)
		}
	}
	if err := s.store.PutRecord(blob.ProjectsNamespace, copyRec.ID, copyRec); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "project duplicated", "source", id, "copy", copyRec.ID)
	return &SaveResult{Project: s.project(copyRec, time.Now().UTC()), ThumbnailErr: thumbErr}, nil
}
