package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-presign/pkg/simplepresign/credentials"
)

// CredentialsOptions configures `presign credentials`
type CredentialsOptions struct {
	*GlobalOptions
}

func NewCredentialsOptions(g *GlobalOptions) *CredentialsOptions {
	return &CredentialsOptions{GlobalOptions: g}
}

func NewCredentialsCommand(o *CredentialsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "credentials",
		Short: "Walk the credential chain once and report which source answered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Run(cmd.Context())
		},
	}
}

// credentialReport never carries the secret or the session token
type credentialReport struct {
	Backend     string   `json:"backend"`
	Sources     []string `json:"sources"`
	Source      string   `json:"source"`
	Temporary   bool     `json:"temporary"`
	AccessKeyID string   `json:"accessKeyId"`
}

func (o *CredentialsOptions) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := o.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	chain := cfg.CredentialChain()
	report, err := resolveReport(ctx, cfg.Backend, chain)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(o.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func resolveReport(ctx context.Context, backend string, chain *credentials.Chain) (*credentialReport, error) {
	report := &credentialReport{Backend: backend}
	for _, p := range chain.Providers() {
		report.Sources = append(report.Sources, p.Name())
	}

	cred, err := chain.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", backend, err)
	}

	report.Source = string(cred.Source)
	report.Temporary = cred.IsTemporary()
	report.AccessKeyID = credentials.MaskKey(cred.AccessKeyID)
	return report, nil
}
