package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Client is the subset of the DynamoDB API the repo uses.
type Client interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type ClientArgs struct {
	Region string
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// NewClient loads the default AWS configuration chain and applies the
// overrides set in args.
func NewClient(ctx context.Context, args ClientArgs) (*dynamodb.Client, error) {
	var opts []func(*config.LoadOptions) error
	if args.Region != "" {
		opts = append(opts, config.WithRegion(args.Region))
	}
	if args.AccessKeyID != "" && args.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(args.AccessKeyID, args.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if args.Endpoint != "" {
			o.BaseEndpoint = aws.String(args.Endpoint)
		}
	}), nil
}
