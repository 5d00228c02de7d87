package credentials

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials/ec2rolecreds"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/tendant/simple-presign/pkg/simplepresign"
)

// IMDSFetcher reads the credentials of the IAM role attached to an EC2
// instance through the SDK's metadata client. Retries are disabled so every
// lookup contacts the endpoint at most once per step.
type IMDSFetcher struct {
	provider *ec2rolecreds.Provider
}

// NewIMDSFetcher builds a fetcher for the given endpoint. An empty endpoint
// uses the SDK default (http://169.254.169.254).
func NewIMDSFetcher(endpoint string) *IMDSFetcher {
	client := imds.New(imds.Options{
		Endpoint: endpoint,
		Retryer:  aws.NopRetryer{},
	})
	return &IMDSFetcher{
		provider: ec2rolecreds.New(func(o *ec2rolecreds.Options) {
			o.Client = client
		}),
	}
}

func (f *IMDSFetcher) Fetch(ctx context.Context) (*simplepresign.Credential, error) {
	creds, err := f.provider.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("ec2 role credentials: %w", err)
	}
	return &simplepresign.Credential{
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
		Source:          simplepresign.CredentialSourceMetadata,
	}, nil
}
