package s3

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/matchengine/blobstore"
)

// fakeDDBClient is an in-memory DynamoDB fake honoring the conditional write
// the commit store relies on.
type fakeDDBClient struct {
	mu    sync.RWMutex
	items map[string]map[string]types.AttributeValue // base_uri:version -> item
}

func newFakeDDBClient() *fakeDDBClient {
	return &fakeDDBClient{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(item map[string]types.AttributeValue) string {
	uri := item["base_uri"].(*types.AttributeValueMemberS).Value
	version := item["version"].(*types.AttributeValueMemberN).Value
	return uri + ":" + version
}

func (f *fakeDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := itemKey(params.Item)
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(version)" {
		if _, exists := f.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}
	f.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDDBClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	uri := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value

	var items []map[string]types.AttributeValue
	for _, item := range f.items {
		if item["base_uri"].(*types.AttributeValueMemberS).Value == uri {
			items = append(items, item)
		}
	}
	// Descending by version, like ScanIndexForward=false.
	sort.Slice(items, func(i, j int) bool {
		vi, _ := strconv.ParseUint(items[i]["version"].(*types.AttributeValueMemberN).Value, 10, 64)
		vj, _ := strconv.ParseUint(items[j]["version"].(*types.AttributeValueMemberN).Value, 10, 64)
		return vi > vj
	})
	if params.Limit != nil && len(items) > int(*params.Limit) {
		items = items[:*params.Limit]
	}
	return &dynamodb.QueryOutput{Items: items}, nil
}

func (f *fakeDDBClient) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.items, itemKey(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func newTestCommitStore() (*DDBCommitStore, *fakeDDBClient) {
	ddb := newFakeDDBClient()
	inner := NewStore(newFakeS3Client(), "test-bucket", "matchengine")
	return NewDDBCommitStore(inner, ddb, "matchengine-commits", "s3://test-bucket/matchengine"), ddb
}

func TestDDBCommitStore_CommitRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestCommitStore()

	// No commit yet.
	_, err := store.Get(ctx, CommitMarkerName)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, store.Put(ctx, CommitMarkerName, []byte(`{"index":"index.bin","meta":"records.json"}`)))

	got, err := store.Get(ctx, CommitMarkerName)
	require.NoError(t, err)
	assert.JSONEq(t, `{"index":"index.bin","meta":"records.json"}`, string(got))
}

func TestDDBCommitStore_VersionsAdvance(t *testing.T) {
	ctx := context.Background()
	store, ddb := newTestCommitStore()

	require.NoError(t, store.Put(ctx, CommitMarkerName, []byte("v1")))
	require.NoError(t, store.Put(ctx, CommitMarkerName, []byte("v2")))

	got, err := store.Get(ctx, CommitMarkerName)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	ddb.mu.RLock()
	assert.Len(t, ddb.items, 2)
	ddb.mu.RUnlock()
}

// staleQueryDDB always reports an empty commit log, simulating a committer
// racing on a stale view.
type staleQueryDDB struct {
	*fakeDDBClient
}

func (s *staleQueryDDB) Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{}, nil
}

func TestDDBCommitStore_ConcurrentModification(t *testing.T) {
	ctx := context.Background()
	ddb := &staleQueryDDB{fakeDDBClient: newFakeDDBClient()}
	inner := NewStore(newFakeS3Client(), "test-bucket", "matchengine")
	store := NewDDBCommitStore(inner, ddb, "matchengine-commits", "s3://test-bucket/matchengine")

	// Both writers see "no commits yet" and race for version 1.
	require.NoError(t, store.Put(ctx, CommitMarkerName, []byte("winner")))
	err := store.Put(ctx, CommitMarkerName, []byte("loser"))
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestDDBCommitStore_DeleteMarker(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestCommitStore()

	require.NoError(t, store.Put(ctx, CommitMarkerName, []byte("v1")))
	require.NoError(t, store.Put(ctx, CommitMarkerName, []byte("v2")))

	// Deleting the marker removes the latest version, exposing the previous.
	require.NoError(t, store.Delete(ctx, CommitMarkerName))
	got, err := store.Get(ctx, CommitMarkerName)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, store.Delete(ctx, CommitMarkerName))
	_, err = store.Get(ctx, CommitMarkerName)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	// Deleting with no commits is a no-op.
	assert.NoError(t, store.Delete(ctx, CommitMarkerName))
}

func TestDDBCommitStore_PassThrough(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestCommitStore()

	require.NoError(t, store.Put(ctx, "index.bin", []byte("data")))
	got, err := store.Get(ctx, "index.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"index.bin"}, names)

	require.NoError(t, store.Delete(ctx, "index.bin"))
	_, err = store.Get(ctx, "index.bin")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
