// Package dynamo содержит хранилище заметок в единой таблице DynamoDB.
package dynamo

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"notecache/internal/notes/config"
	"notecache/internal/notes/domain/entities"
	"notecache/internal/notes/ports/repositories"
	"notecache/pkg/logger"
)

// Константы для сообщений об ошибках.
const (
	ErrLoadAWSConfig   = "failed to load AWS config"
	ErrBuildExpression = "failed to build expression"
	ErrMarshalNote     = "failed to marshal note"
	ErrUnmarshalNote   = "failed to unmarshal note"
	ErrPutNote         = "failed to put note"
	ErrGetNote         = "failed to get note"
	ErrUpdateNote      = "failed to update note"
	ErrQueryNotes      = "failed to query notes"
	ErrDescribeTable   = "failed to describe notes table"
)

// Ошибки хранилища.
var (
	ErrDuplicateNote     = errors.New("note already exists")
	ErrUnsupportedFilter = errors.New("unsupported filter")
)

const (
	entityType = "NOTE"
	userPrefix = "USER#"
	notePrefix = "NOTE#"
)

// Client - подмножество dynamodb.Client, нужное хранилищу.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// NewClient создает клиента DynamoDB из цепочки учетных данных AWS по умолчанию.
func NewClient(ctx context.Context, cfg config.DynamoDBConfig) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrLoadAWSConfig, err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

type noteItem struct {
	PK         string    `dynamodbav:"PK"`
	SK         string    `dynamodbav:"SK"`
	EntityType string    `dynamodbav:"entity_type"`
	ID         string    `dynamodbav:"id"`
	UserID     string    `dynamodbav:"user_id"`
	Title      string    `dynamodbav:"title"`
	Content    string    `dynamodbav:"content"`
	Format     string    `dynamodbav:"format"`
	Color      string    `dynamodbav:"color"`
	IsPinned   bool      `dynamodbav:"is_pinned"`
	IsDeleted  bool      `dynamodbav:"is_deleted"`
	CreatedAt  time.Time `dynamodbav:"created_at"`
	UpdatedAt  time.Time `dynamodbav:"updated_at"`
}

func toItem(n *entities.Note) noteItem {
	return noteItem{
		PK:         userPrefix + n.UserID,
		SK:         notePrefix + n.ID,
		EntityType: entityType,
		ID:         n.ID,
		UserID:     n.UserID,
		Title:      n.Title,
		Content:    n.Content,
		Format:     string(n.Format),
		Color:      string(n.Color),
		IsPinned:   n.IsPinned,
		IsDeleted:  n.IsDeleted,
		CreatedAt:  n.CreatedAt.UTC(),
		UpdatedAt:  n.UpdatedAt.UTC(),
	}
}

func (i noteItem) toNote() *entities.Note {
	return &entities.Note{
		ID:        i.ID,
		UserID:    i.UserID,
		Title:     i.Title,
		Content:   i.Content,
		Format:    entities.NoteFormat(i.Format),
		Color:     entities.NoteColor(i.Color),
		IsPinned:  i.IsPinned,
		IsDeleted: i.IsDeleted,
		CreatedAt: i.CreatedAt.UTC(),
		UpdatedAt: i.UpdatedAt.UTC(),
	}
}

func noteKey(ownerID, noteID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: userPrefix + ownerID},
		"SK": &types.AttributeValueMemberS{Value: notePrefix + noteID},
	}
}

// NoteStore хранит заметки с ключами PK=USER#{owner}, SK=NOTE#{id}.
type NoteStore struct {
	client Client
	table  string
}

var _ repositories.NoteStore = (*NoteStore)(nil)

// NewNoteStore создает хранилище поверх таблицы.
func NewNoteStore(client Client, table string) *NoteStore {
	return &NoteStore{client: client, table: table}
}

// Create сохраняет заметку, если ее еще нет.
func (s *NoteStore) Create(ctx context.Context, note *entities.Note) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteStore.Create"))

	item, err := attributevalue.MarshalMap(toItem(note))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMarshalNote, err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrBuildExpression, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.table),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNote, note.ID)
		}
		log.Error(ctx, ErrPutNote, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrPutNote, err)
	}

	log.Debug(ctx, "note created", zap.String("note_id", note.ID))
	return note.Clone(), nil
}

// Get читает заметку владельца; отсутствие возвращает (nil, nil).
func (s *NoteStore) Get(ctx context.Context, ownerID, noteID string) (*entities.Note, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            noteKey(ownerID, noteID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		logger.Log(ctx).Error(ctx, ErrGetNote, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrGetNote, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var item noteItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrUnmarshalNote, err)
	}
	return item.toNote(), nil
}

// Update применяет изменения к существующей заметке; отсутствие возвращает (nil, nil).
func (s *NoteStore) Update(ctx context.Context, ownerID, noteID string, changes repositories.NoteChanges) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteStore.Update"))

	update := expression.Set(expression.Name("updated_at"), expression.Value(changes.UpdatedAt.UTC()))
	if changes.Title != nil {
		update = update.Set(expression.Name("title"), expression.Value(*changes.Title))
	}
	if changes.Content != nil {
		update = update.Set(expression.Name("content"), expression.Value(*changes.Content))
	}
	if changes.Format != nil {
		update = update.Set(expression.Name("format"), expression.Value(string(*changes.Format)))
	}
	if changes.Color != nil {
		update = update.Set(expression.Name("color"), expression.Value(string(*changes.Color)))
	}
	if changes.IsPinned != nil {
		update = update.Set(expression.Name("is_pinned"), expression.Value(*changes.IsPinned))
	}
	if changes.IsDeleted != nil {
		update = update.Set(expression.Name("is_deleted"), expression.Value(*changes.IsDeleted))
	}

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrBuildExpression, err)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       noteKey(ownerID, noteID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			log.Debug(ctx, "note not found", zap.String("note_id", noteID))
			return nil, nil
		}
		log.Error(ctx, ErrUpdateNote, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrUpdateNote, err)
	}

	var item noteItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrUnmarshalNote, err)
	}
	return item.toNote(), nil
}

// Query читает раздел владельца постранично по LastEvaluatedKey.
// Limit в DynamoDB применяется до фильтра, поэтому ограничение выполняется на клиенте.
func (s *NoteStore) Query(ctx context.Context, ownerID string, filters []repositories.Filter, opts repositories.QueryOptions) ([]*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteStore.Query"))

	keyCond := expression.Key("PK").Equal(expression.Value(userPrefix + ownerID)).
		And(expression.Key("SK").BeginsWith(notePrefix))
	builder := expression.NewBuilder().WithKeyCondition(keyCond)

	filter, ok, err := filterCondition(filters)
	if err != nil {
		return nil, err
	}
	if ok {
		builder = builder.WithFilter(filter)
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrBuildExpression, err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	// Без сортировки можно остановиться на первых Limit записях.
	early := opts.Order == repositories.OrderNone && opts.Limit > 0

	notes := make([]*entities.Note, 0)
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			log.Error(ctx, ErrQueryNotes, zap.Error(err))
			return nil, fmt.Errorf("%s: %w", ErrQueryNotes, err)
		}

		var items []noteItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrUnmarshalNote, err)
		}
		for _, item := range items {
			notes = append(notes, item.toNote())
		}

		if len(out.LastEvaluatedKey) == 0 || (early && len(notes) >= opts.Limit) {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	if opts.Order == repositories.OrderUpdatedAtDesc {
		slices.SortStableFunc(notes, func(a, b *entities.Note) int {
			return cmp.Compare(b.UpdatedAt.UnixNano(), a.UpdatedAt.UnixNano())
		})
	}
	if opts.Limit > 0 && len(notes) > opts.Limit {
		notes = notes[:opts.Limit]
	}

	log.Debug(ctx, "notes queried", zap.Int("count", len(notes)))
	return notes, nil
}

// Ping проверяет доступность таблицы.
func (s *NoteStore) Ping(ctx context.Context) error {
	if _, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}); err != nil {
		return fmt.Errorf("%s: %w", ErrDescribeTable, err)
	}
	return nil
}

func filterCondition(filters []repositories.Filter) (expression.ConditionBuilder, bool, error) {
	var combined expression.ConditionBuilder
	for i, f := range filters {
		switch f.Field {
		case repositories.FieldIsDeleted, repositories.FieldIsPinned, repositories.FieldFormat, repositories.FieldColor:
		default:
			return combined, false, fmt.Errorf("%w: field %q", ErrUnsupportedFilter, f.Field)
		}

		value := f.Value
		switch v := value.(type) {
		case entities.NoteFormat:
			value = string(v)
		case entities.NoteColor:
			value = string(v)
		}

		var cond expression.ConditionBuilder
		switch f.Op {
		case repositories.OpEqual:
			cond = expression.Name(string(f.Field)).Equal(expression.Value(value))
		case repositories.OpNotEqual:
			cond = expression.Name(string(f.Field)).NotEqual(expression.Value(value))
		default:
			return combined, false, fmt.Errorf("%w: operator %q", ErrUnsupportedFilter, f.Op)
		}

		if i == 0 {
			combined = cond
		} else {
			combined = combined.And(cond)
		}
	}
	return combined, len(filters) > 0, nil
}
