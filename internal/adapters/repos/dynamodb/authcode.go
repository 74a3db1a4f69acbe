package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/ucmsv2/authcode-service/internal/adapters/repos"
	"gitlab.com/ucmsv2/authcode-service/internal/domain/authcode"
	"gitlab.com/ucmsv2/authcode-service/pkg/logging"
	"gitlab.com/ucmsv2/authcode-service/pkg/otelx"
)

const scope = "authcode/internal/adapters/repos/dynamodb"

var (
	tracer = otel.Tracer(scope)
	logger = logging.NewLogger(scope)
)

var ErrNilAuthCode = errors.New("auth code cannot be nil")

// AuthCodeRepo stores auth codes in a single DynamoDB table keyed by id.
// Lookups scan with a filter expression.
type AuthCodeRepo struct {
	tracer trace.Tracer
	logger *slog.Logger
	client Client
	table  string
}

// NewAuthCodeRepo creates a new instance of AuthCodeRepo.
//
//	WARNING; panics if client is nil or table is empty
func NewAuthCodeRepo(client Client, table string, t trace.Tracer, l *slog.Logger) *AuthCodeRepo {
	if client == nil {
		panic("dynamodb client cannot be nil")
	}
	if table == "" {
		panic("dynamodb table cannot be empty")
	}
	if t == nil {
		t = tracer
	}
	if l == nil {
		l = logger
	}

	return &AuthCodeRepo{
		tracer: t,
		logger: l,
		client: client,
		table:  table,
	}
}

func (r *AuthCodeRepo) FindLive(ctx context.Context, filter authcode.LiveFilter) ([]*authcode.AuthCode, error) {
	ctx, span := r.tracer.Start(ctx, "AuthCodeRepo.FindLive",
		trace.WithAttributes(
			attribute.String("aws.dynamodb.table_names", r.table),
			attribute.String("authcode.site_id", filter.SiteID),
			attribute.String("authcode.user_id", filter.UserID),
			attribute.Bool("authcode.with_code", filter.Code != ""),
		))
	defer span.End()

	cond := expression.Name("siteId").Equal(expression.Value(filter.SiteID)).
		And(expression.Name("userId").Equal(expression.Value(filter.UserID))).
		And(expression.Name("ttl").GreaterThan(expression.Value(filter.Now.UnixMilli())))
	if filter.Code != "" {
		cond = cond.And(expression.Name("authCode").Equal(expression.Value(filter.Code)))
	}

	expr, err := expression.NewBuilder().WithFilter(cond).Build()
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to build filter expression")
		return nil, fmt.Errorf("build filter expression: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.table),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var codes []*authcode.AuthCode
	pages := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			err = r.wrapError(ctx, "scan auth codes", err)
			otelx.RecordSpanError(span, err, "failed to scan auth codes")
			return nil, err
		}
		pages++

		var items []item
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			otelx.RecordSpanError(span, err, "failed to unmarshal auth codes")
			return nil, fmt.Errorf("unmarshal auth codes: %w", err)
		}
		for _, it := range items {
			codes = append(codes, toDomain(it))
		}
	}

	span.SetAttributes(
		attribute.Int("authcode.found", len(codes)),
		attribute.Int("aws.dynamodb.scan_pages", pages),
	)
	return codes, nil
}

func (r *AuthCodeRepo) Insert(ctx context.Context, a *authcode.AuthCode) error {
	ctx, span := r.tracer.Start(ctx, "AuthCodeRepo.Insert",
		trace.WithAttributes(attribute.String("aws.dynamodb.table_names", r.table)))
	defer span.End()

	if a == nil {
		return ErrNilAuthCode
	}

	av, err := attributevalue.MarshalMap(toItem(a))
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to marshal auth code")
		return fmt.Errorf("marshal auth code: %w", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("id"))).
		Build()
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to build condition expression")
		return fmt.Errorf("build condition expression: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.table),
		Item:                     av,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		err = r.wrapError(ctx, "put auth code", err)
		otelx.RecordSpanError(span, err, "failed to put auth code")
		return err
	}
	return nil
}

func (r *AuthCodeRepo) Ping(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "AuthCodeRepo.Ping")
	defer span.End()

	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.table)})
	if err != nil {
		err = r.wrapError(ctx, "describe table", err)
		otelx.RecordSpanError(span, err, "failed to describe table")
		return err
	}
	return nil
}

// wrapError keeps the SDK error in the chain so its HTTP status travels up
// to the caller.
func (r *AuthCodeRepo) wrapError(ctx context.Context, op string, err error) error {
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return fmt.Errorf("%s: %w: %w", op, repos.ErrAlreadyExists, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		r.logger.WarnContext(ctx, "dynamodb request failed",
			slog.String("op", op),
			slog.String("code", apiErr.ErrorCode()),
			slog.String("fault", apiErr.ErrorFault().String()),
		)
	}
	return fmt.Errorf("%s: %w", op, err)
}
