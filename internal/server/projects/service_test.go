package projects

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dstepanenko/dreamhouse/internal/common"
	"github.com/dstepanenko/dreamhouse/internal/logging"
	"github.com/dstepanenko/dreamhouse/internal/server/blob"
	"github.com/dstepanenko/dreamhouse/internal/server/versions"
	"github.com/dstepanenko/dreamhouse/internal/syncx"
)

var testLayout = json.RawMessage(`{"rooms":[{"name":"Living Room","size":5,"x":0,"y":0}],"meta":{}}`)

func pngDataURI(payload string) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte(payload))
}

func newService(t *testing.T) (*Service, *versions.Service, *blob.Store) {
	t.Helper()
	store := blob.New(t.TempDir())
	log := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	locks := syncx.NewKeyedMutex()
	vs := versions.NewService(store, locks, log)
	ps := NewService(store, vs, locks, 20, 100, log)
	return ps, vs, store
}

func TestCreateGet_RoundTrip(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	res, err := s.Create(ctx, "My House", testLayout, "alice", "")
	require.NoError(t, err)
	require.NoError(t, res.ThumbnailErr)
	require.NotEmpty(t, res.Project.ID)

	got, err := s.Get(ctx, res.Project.ID)
	require.NoError(t, err)
	require.Equal(t, "My House", got.Name)
	require.Equal(t, "alice", got.Owner)
	require.JSONEq(t, string(testLayout), string(got.Layout))
	require.False(t, got.HasThumbnail)
	require.False(t, got.Updated.IsZero())
}

func TestCreate_Validation(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "   ", testLayout, "alice", "")
	require.ErrorIs(t, err, common.ErrorInvalidInput)

	_, err = s.Create(ctx, "ok", nil, "alice", "")
	require.ErrorIs(t, err, common.ErrorInvalidInput)
}

func TestCreate_WithThumbnail(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	res, err := s.Create(ctx, "House", testLayout, "alice", pngDataURI("fake-png"))
	require.NoError(t, err)
	require.NoError(t, res.ThumbnailErr)
	require.True(t, res.Project.HasThumbnail)

	thumb, err := s.Thumbnail(ctx, res.Project.ID)
	require.NoError(t, err)
	require.Equal(t, []byte("fake-png"), thumb)
}

func TestCreate_BadThumbnailIsSoftFailure(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	for _, uri := range []string{"no-comma-here", "data:image/png;base64,!!!not-base64!!!"} {
		res, err := s.Create(ctx, "House", testLayout, "alice", uri)
		require.NoError(t, err, "record write must survive thumbnail %q", uri)
		require.ErrorIs(t, res.ThumbnailErr, common.ErrorInvalidInput)
		require.False(t, res.Project.HasThumbnail)

		got, err := s.Get(ctx, res.Project.ID)
		require.NoError(t, err)
		require.False(t, got.HasThumbnail)
	}
}

func TestGet_NotFound(t *testing.T) {
	s, _, _ := newService(t)
	_, err := s.Get(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdate_SnapshotsPriorState(t *testing.T) {
	s, vs, _ := newService(t)
	ctx := context.Background()

	res, err := s.Create(ctx, "v1 name", testLayout, "alice", "")
	require.NoError(t, err)
	id := res.Project.ID

	newLayout := json.RawMessage(`{"rooms":[],"meta":{"mood":"modern"}}`)
	for i := 1; i <= 3; i++ {
		_, err := s.Update(ctx, id, fmt.Sprintf("v%d name", i+1), newLayout, "alice", "")
		require.NoError(t, err)

		history, err := vs.List(ctx, id)
		require.NoError(t, err)
		require.Len(t, history, i, "each update adds exactly one version")
		// newest snapshot holds the name the project had before this update
		require.Equal(t, fmt.Sprintf("v%d name", i), history[0].Name)
	}
}

func TestUpdate_PreservesIDAndOwner(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	res, err := s.Create(ctx, "House", testLayout, "alice", "")
	require.NoError(t, err)
	id := res.Project.ID

	upd, err := s.Update(ctx, id, "Renamed", testLayout, "alice", "")
	require.NoError(t, err)
	require.Equal(t, id, upd.Project.ID)
	require.Equal(t, "alice", upd.Project.Owner)
}

func TestUpdate_AuthFailures(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	res, err := s.Create(ctx, "House", testLayout, "alice", "")
	require.NoError(t, err)
	id := res.Project.ID

	_, err = s.Update(ctx, id, "X", testLayout, "mallory", "")
	require.ErrorIs(t, err, common.ErrorForbidden)

	_, err = s.Update(ctx, id, "X", testLayout, "", "")
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = s.Update(ctx, "ghost", "X", testLayout, "alice", "")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdate_LegacyUnownedRecord(t *testing.T) {
	s, _, store := newService(t)
	ctx := context.Background()

	// record predating ownership: no owner field on disk
	require.NoError(t, store.PutRecord(blob.ProjectsNamespace, "legacy1", record{
		ID: "legacy1", Name: "Old House", Layout: testLayout,
	}))

	res, err := s.Update(ctx, "legacy1", "Adopted", testLayout, "bob", "")
	require.NoError(t, err)
	require.Empty(t, res.Project.Owner, "update never assigns ownership")
}

func TestDelete(t *testing.T) {
	s, vs, store := newService(t)
	ctx := context.Background()

	res, err := s.Create(ctx, "House", testLayout, "alice", pngDataURI("png"))
	require.NoError(t, err)
	id := res.Project.ID

	_, err = s.Update(ctx, id, "House 2", testLayout, "alice", "")
	require.NoError(t, err)

	require.ErrorIs(t, s.Delete(ctx, id, "mallory"), common.ErrorForbidden)
	require.NoError(t, s.Delete(ctx, id, "alice"))

	_, err = s.Get(ctx, id)
	require.ErrorIs(t, err, common.ErrorNotFound)
	require.False(t, store.HasBlob(blob.ProjectsNamespace, id))

	// history is cascade-deleted with the project
	_, err = vs.List(ctx, id)
	require.ErrorIs(t, err, common.ErrorNotFound)

	// second delete, and deletes of never-created ids, are NotFound
	require.ErrorIs(t, s.Delete(ctx, id, "alice"), common.ErrorNotFound)
	require.ErrorIs(t, s.Delete(ctx, "never-created", "alice"), common.ErrorNotFound)
}

func TestDuplicate(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	res, err := s.Create(ctx, "House", testLayout, "alice", pngDataURI("png"))
	require.NoError(t, err)
	id := res.Project.ID

	_, err = s.Duplicate(ctx, id, "mallory")
	require.ErrorIs(t, err, common.ErrorForbidden)

	dup, err := s.Duplicate(ctx, id, "alice")
	require.NoError(t, err)
	require.NotEqual(t, id, dup.Project.ID)
	require.Equal(t, "House (copy)", dup.Project.Name)
	require.Equal(t, "alice", dup.Project.Owner)
	require.True(t, dup.Project.HasThumbnail)

	thumb, err := s.Thumbnail(ctx, dup.Project.ID)
	require.NoError(t, err)
	require.Equal(t, []byte("png"), thumb)

	// the source is untouched
	src, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "House", src.Name)
}

func TestList_QueryAndPagination(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Create(ctx, fmt.Sprintf("Kitchen remodel %d", i), testLayout, "alice", "")
		require.NoError(t, err)
	}
	_, err := s.Create(ctx, "Garage", json.RawMessage(`{"rooms":[],"meta":{}}`), "alice", "")
	require.NoError(t, err)

	res, err := s.List(ctx, ListRequest{Page: 1, Limit: 2, Query: "kitchen"})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	require.Equal(t, 5, res.Total)

	res, err = s.List(ctx, ListRequest{Page: 3, Limit: 2, Query: "kitchen"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	require.Equal(t, 5, res.Total)

	res, err = s.List(ctx, ListRequest{Page: 9, Limit: 2, Query: "kitchen"})
	require.NoError(t, err)
	require.Empty(t, res.Items)
	require.Equal(t, 5, res.Total)
}

func TestList_QueryMatchesLayoutAndID(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	res, err := s.Create(ctx, "Plain name", json.RawMessage(`{"rooms":[{"name":"Sauna"}],"meta":{}}`), "alice", "")
	require.NoError(t, err)

	byLayout, err := s.List(ctx, ListRequest{Query: "sauna"})
	require.NoError(t, err)
	require.Equal(t, 1, byLayout.Total)

	byID, err := s.List(ctx, ListRequest{Query: res.Project.ID})
	require.NoError(t, err)
	require.Equal(t, 1, byID.Total)
}

func TestList_OwnerScoping(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "Alices", testLayout, "alice", "")
	require.NoError(t, err)
	_, err = s.Create(ctx, "Bobs", testLayout, "bob", "")
	require.NoError(t, err)

	res, err := s.List(ctx, ListRequest{Owner: "alice", OwnerOnly: true})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	require.Equal(t, "Alices", res.Items[0].Name)

	// owner-scoped view without an authenticated identity
	_, err = s.List(ctx, ListRequest{OwnerOnly: true})
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestConcurrentUpdates_NoDanglingThumbnail(t *testing.T) {
	s, _, store := newService(t)
	ctx := context.Background()

	res, err := s.Create(ctx, "House", testLayout, "alice", pngDataURI("initial"))
	require.NoError(t, err)
	id := res.Project.ID

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Update(ctx, id, fmt.Sprintf("House %d", i), testLayout, "alice", pngDataURI(fmt.Sprintf("thumb-%d", i)))
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	if got.HasThumbnail {
		_, err := store.GetBlob(blob.ProjectsNamespace, id)
		require.NoError(t, err, "record must never reference a missing blob")
	}
}
