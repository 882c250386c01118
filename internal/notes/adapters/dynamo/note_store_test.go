package dynamo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notecache/internal/notes/adapters/dynamo"
	"notecache/internal/notes/domain/entities"
	"notecache/internal/notes/ports/repositories"
)

var errThrottled = errors.New("throttled")

type fakeClient struct {
	putInputs    []*dynamodb.PutItemInput
	updateInputs []*dynamodb.UpdateItemInput
	queryInputs  []dynamodb.QueryInput

	putErr    error
	getOut    *dynamodb.GetItemOutput
	getErr    error
	updateOut *dynamodb.UpdateItemOutput
	updateErr error
	pages     []*dynamodb.QueryOutput
	queryErr  error
	pingErr   error
}

func (f *fakeClient) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putInputs = append(f.putInputs, in)
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeClient) GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeClient) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updateInputs = append(f.updateInputs, in)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updateOut, nil
}

func (f *fakeClient) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queryInputs = append(f.queryInputs, *in)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *fakeClient) DescribeTable(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return &dynamodb.DescribeTableOutput{}, f.pingErr
}

var base = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func note(id string, updatedAt time.Time) *entities.Note {
	return &entities.Note{
		ID:        id,
		UserID:    "user-1",
		Title:     "title " + id,
		Content:   "content",
		Format:    entities.FormatText,
		Color:     entities.ColorPrimary,
		CreatedAt: base,
		UpdatedAt: updatedAt,
	}
}

func item(t *testing.T, n *entities.Note) map[string]types.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMap(map[string]any{
		"PK":         "USER#" + n.UserID,
		"SK":         "NOTE#" + n.ID,
		"id":         n.ID,
		"user_id":    n.UserID,
		"title":      n.Title,
		"content":    n.Content,
		"format":     string(n.Format),
		"color":      string(n.Color),
		"is_pinned":  n.IsPinned,
		"is_deleted": n.IsDeleted,
		"created_at": n.CreatedAt,
		"updated_at": n.UpdatedAt,
	})
	require.NoError(t, err)
	return av
}

func TestNoteStore_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("writes single-table keys", func(t *testing.T) {
		client := &fakeClient{}
		n := note("n1", base)

		created, err := dynamo.NewNoteStore(client, "notes").Create(ctx, n)
		require.NoError(t, err)
		assert.Equal(t, n, created)

		require.Len(t, client.putInputs, 1)
		in := client.putInputs[0]
		assert.Equal(t, "notes", *in.TableName)
		assert.Equal(t, &types.AttributeValueMemberS{Value: "USER#user-1"}, in.Item["PK"])
		assert.Equal(t, &types.AttributeValueMemberS{Value: "NOTE#n1"}, in.Item["SK"])
		assert.Contains(t, *in.ConditionExpression, "attribute_not_exists")
	})

	t.Run("duplicate", func(t *testing.T) {
		client := &fakeClient{putErr: &types.ConditionalCheckFailedException{}}

		_, err := dynamo.NewNoteStore(client, "notes").Create(ctx, note("n1", base))
		assert.ErrorIs(t, err, dynamo.ErrDuplicateNote)
	})

	t.Run("client error", func(t *testing.T) {
		client := &fakeClient{putErr: errThrottled}

		_, err := dynamo.NewNoteStore(client, "notes").Create(ctx, note("n1", base))
		assert.ErrorIs(t, err, errThrottled)
	})
}

func TestNoteStore_Get(t *testing.T) {
	ctx := context.Background()
	n := note("n1", base.Add(time.Minute))

	found, err := dynamo.NewNoteStore(&fakeClient{getOut: &dynamodb.GetItemOutput{Item: item(t, n)}}, "notes").
		Get(ctx, "user-1", "n1")
	require.NoError(t, err)
	assert.Equal(t, n, found)

	absent, err := dynamo.NewNoteStore(&fakeClient{getOut: &dynamodb.GetItemOutput{}}, "notes").
		Get(ctx, "user-1", "n1")
	require.NoError(t, err)
	assert.Nil(t, absent)

	_, err = dynamo.NewNoteStore(&fakeClient{getErr: errThrottled}, "notes").Get(ctx, "user-1", "n1")
	assert.ErrorIs(t, err, errThrottled)
}

func TestNoteStore_Update(t *testing.T) {
	ctx := context.Background()
	later := base.Add(time.Hour)

	t.Run("returns new image", func(t *testing.T) {
		n := note("n1", later)
		n.IsDeleted = true
		client := &fakeClient{updateOut: &dynamodb.UpdateItemOutput{Attributes: item(t, n)}}

		deleted := true
		got, err := dynamo.NewNoteStore(client, "notes").Update(ctx, "user-1", "n1", repositories.NoteChanges{
			IsDeleted: &deleted,
			UpdatedAt: later,
		})
		require.NoError(t, err)
		assert.Equal(t, n, got)

		require.Len(t, client.updateInputs, 1)
		in := client.updateInputs[0]
		assert.Equal(t, types.ReturnValueAllNew, in.ReturnValues)
		assert.Contains(t, *in.UpdateExpression, "SET")
		assert.Contains(t, *in.ConditionExpression, "attribute_exists")
		assert.Equal(t, &types.AttributeValueMemberS{Value: "NOTE#n1"}, in.Key["SK"])
	})

	t.Run("absent", func(t *testing.T) {
		client := &fakeClient{updateErr: &types.ConditionalCheckFailedException{}}

		got, err := dynamo.NewNoteStore(client, "notes").Update(ctx, "user-1", "missing", repositories.NoteChanges{UpdatedAt: later})
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestNoteStore_Query(t *testing.T) {
	ctx := context.Background()

	t.Run("pages, sorts and truncates", func(t *testing.T) {
		lastKey := map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: "USER#user-1"}}
		client := &fakeClient{pages: []*dynamodb.QueryOutput{
			{
				Items:            []map[string]types.AttributeValue{item(t, note("a", base)), item(t, note("b", base.Add(2*time.Minute)))},
				LastEvaluatedKey: lastKey,
			},
			{
				Items: []map[string]types.AttributeValue{item(t, note("c", base.Add(time.Minute)))},
			},
		}}

		notes, err := dynamo.NewNoteStore(client, "notes").Query(ctx, "user-1",
			[]repositories.Filter{{Field: repositories.FieldIsDeleted, Op: repositories.OpEqual, Value: false}},
			repositories.QueryOptions{Limit: 2, Order: repositories.OrderUpdatedAtDesc})
		require.NoError(t, err)

		require.Len(t, notes, 2)
		assert.Equal(t, "b", notes[0].ID)
		assert.Equal(t, "c", notes[1].ID)

		require.Len(t, client.queryInputs, 2)
		assert.Nil(t, client.queryInputs[0].ExclusiveStartKey)
		assert.Equal(t, lastKey, client.queryInputs[1].ExclusiveStartKey)
		assert.NotNil(t, client.queryInputs[0].FilterExpression)
		assert.Nil(t, client.queryInputs[0].Limit)
	})

	t.Run("unordered stops early", func(t *testing.T) {
		lastKey := map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: "USER#user-1"}}
		client := &fakeClient{pages: []*dynamodb.QueryOutput{
			{Items: []map[string]types.AttributeValue{item(t, note("a", base))}, LastEvaluatedKey: lastKey},
			{Items: []map[string]types.AttributeValue{item(t, note("b", base))}},
		}}

		notes, err := dynamo.NewNoteStore(client, "notes").Query(ctx, "user-1", nil, repositories.QueryOptions{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, notes, 1)
		assert.Len(t, client.queryInputs, 1)
		assert.Nil(t, client.queryInputs[0].FilterExpression)
	})

	t.Run("unsupported filter", func(t *testing.T) {
		_, err := dynamo.NewNoteStore(&fakeClient{}, "notes").Query(ctx, "user-1",
			[]repositories.Filter{{Field: "title", Op: repositories.OpEqual, Value: "x"}},
			repositories.QueryOptions{})
		assert.ErrorIs(t, err, dynamo.ErrUnsupportedFilter)
	})

	t.Run("client error", func(t *testing.T) {
		_, err := dynamo.NewNoteStore(&fakeClient{queryErr: errThrottled}, "notes").Query(ctx, "user-1", nil, repositories.QueryOptions{})
		assert.ErrorIs(t, err, errThrottled)
	})
}

func TestNoteStore_Ping(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, dynamo.NewNoteStore(&fakeClient{}, "notes").Ping(ctx))
	assert.ErrorIs(t, dynamo.NewNoteStore(&fakeClient{pingErr: errThrottled}, "notes").Ping(ctx), errThrottled)
}
