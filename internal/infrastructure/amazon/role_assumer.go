package amazon

import (
	"context"
	"errors"
	"fmt"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/google/uuid"
)

const (
	defaultRegion          = "us-east-1"
	defaultSessionDuration = int32(3600)
)

// RoleConfig identifies the IAM role SP-API calls are made under
type RoleConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	RoleARN         string
	SessionPrefix   string
}

type stsAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// RoleAssumer obtains temporary credentials through STS AssumeRole
type RoleAssumer struct {
	client  stsAPI
	roleARN string
	prefix  string
}

// NewRoleAssumer builds an STS client from static IAM user credentials
func NewRoleAssumer(ctx context.Context, cfg RoleConfig) (*RoleAssumer, error) {
	if cfg.RoleARN == "" {
		return nil, fmt.Errorf("failed to create role assumer: %w", domain.ErrNotConfigured)
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return newRoleAssumer(sts.NewFromConfig(awsCfg), cfg), nil
}

func newRoleAssumer(client stsAPI, cfg RoleConfig) *RoleAssumer {
	prefix := cfg.SessionPrefix
	if prefix == "" {
		prefix = "commerce-import"
	}
	return &RoleAssumer{client: client, roleARN: cfg.RoleARN, prefix: prefix}
}

// AssumeRole returns fresh role credentials under a unique session name
func (r *RoleAssumer) AssumeRole(ctx context.Context) (*ports.RoleCredentials, error) {
	out, err := r.client.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(r.roleARN),
		RoleSessionName: aws.String(r.prefix + "-" + uuid.NewString()),
		DurationSeconds: aws.Int32(defaultSessionDuration),
	})
	if err != nil {
		var re *awshttp.ResponseError
		if errors.As(err, &re) {
			return nil, fmt.Errorf("failed to assume role: %w", domain.NewHTTPError(re.HTTPStatusCode(), "", re.Error()))
		}
		return nil, fmt.Errorf("failed to assume role: %w", err)
	}
	if out.Credentials == nil {
		return nil, fmt.Errorf("failed to assume role: response has no credentials")
	}

	creds := &ports.RoleCredentials{
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
	}
	if out.Credentials.Expiration != nil {
		creds.Expires = *out.Credentials.Expiration
	}
	return creds, nil
}

var _ ports.RoleAssumer = (*RoleAssumer)(nil)
