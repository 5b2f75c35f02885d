package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hirewire/matchengine/blobstore"
)

// CommitMarkerName is the reserved blob name routed through DynamoDB. A flush
// writes its index and sidecar artifacts to S3 first, then puts the marker;
// a loader that finds artifacts without a matching marker knows the pair may
// be torn.
const CommitMarkerName = "COMMIT"

// ErrConcurrentModification is returned when a concurrent committer wins the
// conditional write.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// DDBClient is the subset of the DynamoDB API the commit store uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DDBCommitStore implements blobstore.Store backed by S3 plus a DynamoDB
// commit marker. S3 has no multi-object atomicity, so the marker provides the
// compare-and-swap the artifact pair needs: reads of CommitMarkerName return
// the most recently committed descriptor, writes append a new version with a
// conditional put.
//
// Table schema:
//   - Partition key: base_uri (string) - the S3 bucket/prefix
//   - Sort key: version (number) - monotonically increasing commit version
type DDBCommitStore struct {
	inner     *Store
	ddbClient DDBClient
	tableName string
	baseURI   string
}

// NewDDBCommitStore creates a commit store over the given S3 store.
// baseURI (e.g. "s3://bucket/prefix") is the DynamoDB partition key.
func NewDDBCommitStore(inner *Store, ddbClient DDBClient, tableName, baseURI string) *DDBCommitStore {
	return &DDBCommitStore{
		inner:     inner,
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

// Get returns the blob content. The commit marker is served from DynamoDB.
func (s *DDBCommitStore) Get(ctx context.Context, name string) ([]byte, error) {
	if name == CommitMarkerName {
		version, descriptor, err := s.latestCommit(ctx)
		if err != nil {
			return nil, err
		}
		if version == 0 {
			return nil, blobstore.ErrNotFound
		}
		return []byte(descriptor), nil
	}
	return s.inner.Get(ctx, name)
}

// Put writes the blob. The commit marker goes through a DynamoDB conditional
// write so concurrent committers cannot silently overwrite each other.
func (s *DDBCommitStore) Put(ctx context.Context, name string, data []byte) error {
	if name == CommitMarkerName {
		return s.commit(ctx, string(data))
	}
	return s.inner.Put(ctx, name, data)
}

// Delete removes the blob. Deleting the commit marker removes the latest
// committed version.
func (s *DDBCommitStore) Delete(ctx context.Context, name string) error {
	if name == CommitMarkerName {
		version, _, err := s.latestCommit(ctx)
		if err != nil {
			return err
		}
		if version == 0 {
			return nil
		}
		_, err = s.ddbClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key: map[string]types.AttributeValue{
				"base_uri": &types.AttributeValueMemberS{Value: s.baseURI},
				"version":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", version)},
			},
		})
		return err
	}
	return s.inner.Delete(ctx, name)
}

// List delegates to the underlying S3 store.
func (s *DDBCommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// latestCommit queries DynamoDB for the most recent committed version.
func (s *DDBCommitStore) latestCommit(ctx context.Context) (uint64, string, error) {
	resp, err := s.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("query commit table: %w", err)
	}

	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("invalid version attribute in commit table")
	}
	descAttr, ok := item["descriptor"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("invalid descriptor attribute in commit table")
	}

	var version uint64
	if _, err := fmt.Sscanf(versionAttr.Value, "%d", &version); err != nil {
		return 0, "", fmt.Errorf("parse commit version: %w", err)
	}

	return version, descAttr.Value, nil
}

// commit appends a new version with a conditional put. Only one writer can
// claim a given version number.
func (s *DDBCommitStore) commit(ctx context.Context, descriptor string) error {
	currentVersion, _, err := s.latestCommit(ctx)
	if err != nil {
		return err
	}

	newVersion := currentVersion + 1

	_, err = s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri":   &types.AttributeValueMemberS{Value: s.baseURI},
			"version":    &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", newVersion)},
			"descriptor": &types.AttributeValueMemberS{Value: descriptor},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("commit version: %w", err)
	}

	return nil
}
