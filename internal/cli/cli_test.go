package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-presign/pkg/simplepresign"
)

var envKeys = []string{
	"STORAGE_BACKEND", "S3_BUCKET", "AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
	"AWS_SESSION_TOKEN", "INSTANCE_METADATA_DISABLED", "PRESIGN_TTL_SECONDS", "PORT",
}

// writeEnvFile isolates the test from the host environment. Reading a .env
// file exports its values, so every key is registered with t.Setenv first to
// be restored afterwards.
func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	path := filepath.Join(t.TempDir(), "presign.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommandWithOptions(&GlobalOptions{IOStreams: IOStreams{Out: &out, ErrOut: &errOut}})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const staticKeysEnv = `S3_BUCKET=birdtag-uploads
AWS_ACCESS_KEY_ID=AKIAEXAMPLE
AWS_SECRET_ACCESS_KEY=long-lived-secret
INSTANCE_METADATA_DISABLED=true
`

func TestSignCommand(t *testing.T) {
	path := writeEnvFile(t, staticKeysEnv)

	out, err := run(t, "sign", "bird.jpg", "--content-type", "image/jpeg", "--env-file", path)
	require.NoError(t, err)

	var resp simplepresign.PresignResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Regexp(t, `^uploads/[0-9a-f-]{36}_bird\.jpg$`, resp.Key)
	assert.Contains(t, resp.UploadURL, "birdtag-uploads")
	assert.NotEmpty(t, resp.GetURL)
	assert.Equal(t, "image/jpeg", resp.ContentType)
	assert.False(t, resp.ViaSTS)
}

func TestSignCommand_UploadOnly(t *testing.T) {
	path := writeEnvFile(t, staticKeysEnv)

	out, err := run(t, "sign", "notes.txt", "--upload-only", "--env-file", path)
	require.NoError(t, err)

	var resp simplepresign.PresignResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Empty(t, resp.GetURL)
	assert.Equal(t, simplepresign.DefaultContentType, resp.ContentType)
}

func TestSignCommand_NoCredentials(t *testing.T) {
	path := writeEnvFile(t, "S3_BUCKET=birdtag-uploads\nINSTANCE_METADATA_DISABLED=true\n")

	_, err := run(t, "sign", "bird.jpg", "--env-file", path)
	assert.ErrorIs(t, err, simplepresign.ErrCredentialUnavailable)
}

func TestSignCommand_Args(t *testing.T) {
	_, err := run(t, "sign")
	assert.Error(t, err)

	_, err = run(t, "sign", "")
	assert.Error(t, err)
}

func TestSignCommand_KeepsFileNameVerbatim(t *testing.T) {
	path := writeEnvFile(t, staticKeysEnv)

	out, err := run(t, "sign", " bird.jpg", "--env-file", path)
	require.NoError(t, err)

	var resp simplepresign.PresignResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Regexp(t, `^uploads/[0-9a-f-]{36}_ bird\.jpg$`, resp.Key)
}

func TestCredentialsCommand(t *testing.T) {
	path := writeEnvFile(t, staticKeysEnv)

	out, err := run(t, "credentials", "--env-file", path)
	require.NoError(t, err)

	var report credentialReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "s3", report.Backend)
	assert.Equal(t, []string{"env", "static"}, report.Sources)
	assert.Equal(t, "static", report.Source)
	assert.False(t, report.Temporary)
	assert.Equal(t, "****MPLE", report.AccessKeyID)
	assert.NotContains(t, out, "long-lived-secret")
}

func TestServeCommand_ConfigError(t *testing.T) {
	path := writeEnvFile(t, "INSTANCE_METADATA_DISABLED=true\n")

	_, err := run(t, "serve", "--env-file", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET")
}
