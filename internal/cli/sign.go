package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-presign/pkg/simplepresign"
)

// SignOptions configures `presign sign`
type SignOptions struct {
	*GlobalOptions

	FileName    string
	ContentType string
	UploadOnly  bool
}

func NewSignOptions(g *GlobalOptions) *SignOptions {
	return &SignOptions{GlobalOptions: g}
}

func NewSignCommand(o *SignOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign FILE_NAME",
		Short: "Issue one presigned upload URL and print it as JSON",
		Example: `  # Sign an upload for a JPEG
  presign sign bird.jpg --content-type image/jpeg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(args); err != nil {
				return err
			}
			return o.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&o.ContentType, "content-type", "t", "", "Content-Type the uploader will send (default application/octet-stream)")
	cmd.Flags().BoolVar(&o.UploadOnly, "upload-only", false, "Skip the download URL")

	return cmd
}

func (o *SignOptions) Complete(args []string) error {
	o.FileName = args[0]
	if o.FileName == "" {
		return errors.New("file name cannot be empty")
	}
	return nil
}

func (o *SignOptions) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := o.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	svc, err := cfg.BuildService(ctx, simplepresign.WithDownloadURL(!o.UploadOnly))
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}

	resp, err := svc.Presign(ctx, simplepresign.PresignRequest{
		FileName:    o.FileName,
		ContentType: o.ContentType,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(o.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
