package minio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ForestRights-DSS/internal/config"
	"github.com/turtacn/ForestRights-DSS/internal/intelligence/claim_dss"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

var _ claim_dss.BlobStore = (*ObjectStore)(nil)

func testMinIOConfig(endpoint string) config.MinIOConfig {
	return config.MinIOConfig{Endpoint: endpoint, AccessKeyID: "k", SecretAccessKey: "s"}
}

func newTestStore() (*ObjectStore, *MockMinIOAPI) {
	api := newMockMinIOAPI()
	return NewObjectStore(NewClientWithAPI(api, "fra-models", "", nil), nil), api
}

func TestObjectStore_PutGet(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.PutObject(ctx, "dss/CURRENT", []byte(`{"generation":"g1"}`)))
	got, err := s.GetObject(ctx, "dss/CURRENT")
	require.NoError(t, err)
	assert.JSONEq(t, `{"generation":"g1"}`, string(got))
}

func TestObjectStore_GetMissing(t *testing.T) {
	s, _ := newTestStore()
	_, err := s.GetObject(context.Background(), "dss/CURRENT")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsCode(err, errors.ErrCodeObjectNotFound))
}

func TestObjectStore_EmptyKey(t *testing.T) {
	s, _ := newTestStore()
	err := s.PutObject(context.Background(), "", []byte("x"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestObjectStore_DeletePrefix(t *testing.T) {
	s, api := newTestStore()
	ctx := context.Background()
	for _, k := range []string{"dss/generations/a/x.json", "dss/generations/a/y.json", "dss/generations/b/x.json", "dss/CURRENT"} {
		require.NoError(t, s.PutObject(ctx, k, []byte("{}")))
	}

	require.NoError(t, s.DeletePrefix(ctx, "dss/generations/a/"))
	assert.Equal(t, []string{"dss/CURRENT", "dss/generations/b/x.json"}, api.keys())

	require.NoError(t, s.DeletePrefix(ctx, "dss/nothing/"))
}

func TestObjectStore_DeletePrefixReportsFailures(t *testing.T) {
	s, api := newTestStore()
	ctx := context.Background()
	require.NoError(t, s.PutObject(ctx, "dss/a", []byte("{}")))
	api.removeErr = assert.AnError

	err := s.DeletePrefix(ctx, "dss/")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStorageError))
}

func TestObjectStore_Closed(t *testing.T) {
	s, _ := newTestStore()
	require.NoError(t, s.client.Close())
	assert.ErrorIs(t, s.PutObject(context.Background(), "k", nil), ErrMinIOClientClosed)
}

func TestObjectStore_BacksArtifactStore(t *testing.T) {
	s, _ := newTestStore()
	store := claim_dss.NewArtifactStore(s, "dss", nil)
	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeArtifactsNotFound))
}
