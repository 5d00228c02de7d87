package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tendant/simple-presign/pkg/simplepresign"
)

// DefaultRAMMetadataEndpoint is the link-local metadata address of Alibaba Cloud instances.
const DefaultRAMMetadataEndpoint = "http://100.100.100.200"

const ramCredentialsPath = "/latest/meta-data/ram/security-credentials/"

// RAMRoleFetcher reads the credentials of the RAM role attached to the
// instance: first the role name, then that role's current STS triple.
type RAMRoleFetcher struct {
	Endpoint   string
	HTTPClient *http.Client
}

func NewRAMRoleFetcher(endpoint string) *RAMRoleFetcher {
	if endpoint == "" {
		endpoint = DefaultRAMMetadataEndpoint
	}
	return &RAMRoleFetcher{
		Endpoint:   strings.TrimRight(endpoint, "/"),
		HTTPClient: &http.Client{},
	}
}

type ramCredentialBody struct {
	Code            string `json:"Code"`
	AccessKeyID     string `json:"AccessKeyId"`
	AccessKeySecret string `json:"AccessKeySecret"`
	SecurityToken   string `json:"SecurityToken"`
	Expiration      string `json:"Expiration"`
}

func (f *RAMRoleFetcher) Fetch(ctx context.Context) (*simplepresign.Credential, error) {
	base := f.Endpoint + ramCredentialsPath

	roleName, err := f.get(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("ram role name: %w", err)
	}
	roleName = strings.TrimSpace(roleName)
	if roleName == "" {
		return nil, fmt.Errorf("ram role name: no role attached to instance")
	}

	raw, err := f.get(ctx, base+roleName)
	if err != nil {
		return nil, fmt.Errorf("ram role %s credentials: %w", roleName, err)
	}

	var body ramCredentialBody
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return nil, fmt.Errorf("ram role %s credentials: decode: %w", roleName, err)
	}
	if body.Code != "" && body.Code != "Success" {
		return nil, fmt.Errorf("ram role %s credentials: metadata returned code %s", roleName, body.Code)
	}
	if body.AccessKeyID == "" || body.AccessKeySecret == "" || body.SecurityToken == "" {
		return nil, ErrIncompleteCredential
	}

	return &simplepresign.Credential{
		AccessKeyID:     body.AccessKeyID,
		SecretAccessKey: body.AccessKeySecret,
		SessionToken:    body.SecurityToken,
		Source:          simplepresign.CredentialSourceMetadata,
	}, nil
}

func (f *RAMRoleFetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	client := f.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("metadata service returned %d", resp.StatusCode)
	}
	return string(body), nil
}
