package amazon

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSTS struct {
	inputs []*sts.AssumeRoleInput
	err    error
}

func (f *fakeSTS) AssumeRole(_ context.Context, in *sts.AssumeRoleInput, _ ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sts.AssumeRoleOutput{Credentials: &types.Credentials{
		AccessKeyId:     aws.String("ASIA123"),
		SecretAccessKey: aws.String("secret"),
		SessionToken:    aws.String("session"),
		Expiration:      aws.Time(time.Date(2024, 6, 3, 13, 0, 0, 0, time.UTC)),
	}}, nil
}

func TestRoleAssumer_UsesUniqueSessionNames(t *testing.T) {
	client := &fakeSTS{}
	r := newRoleAssumer(client, RoleConfig{RoleARN: "arn:aws:iam::123456789012:role/sp-api"})

	creds, err := r.AssumeRole(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ASIA123", creds.AccessKeyID)
	assert.Equal(t, "session", creds.SessionToken)
	assert.Equal(t, time.Date(2024, 6, 3, 13, 0, 0, 0, time.UTC), creds.Expires)

	_, err = r.AssumeRole(context.Background())
	require.NoError(t, err)

	require.Len(t, client.inputs, 2)
	assert.Equal(t, "arn:aws:iam::123456789012:role/sp-api", aws.ToString(client.inputs[0].RoleArn))
	first, second := aws.ToString(client.inputs[0].RoleSessionName), aws.ToString(client.inputs[1].RoleSessionName)
	assert.True(t, strings.HasPrefix(first, "commerce-import-"))
	assert.NotEqual(t, first, second)
}

func TestRoleAssumer_WrapsFailures(t *testing.T) {
	r := newRoleAssumer(&fakeSTS{err: errors.New("network down")}, RoleConfig{RoleARN: "arn", SessionPrefix: "test"})

	_, err := r.AssumeRole(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to assume role")
}

func TestNewRoleAssumer_RequiresRole(t *testing.T) {
	_, err := NewRoleAssumer(context.Background(), RoleConfig{})
	assert.Error(t, err)
}
