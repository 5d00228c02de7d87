// Package cli holds the cobra commands of the presign binary.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-presign/pkg/simplepresign/config"
)

var (
	// Injected at build time using ldflags.
	version = ""
	commit  = ""
)

// IOStreams are the standard streams a command writes to
type IOStreams struct {
	Out    io.Writer
	ErrOut io.Writer
}

// GlobalOptions are shared by every subcommand
type GlobalOptions struct {
	IOStreams
	EnvFile string
}

// LoadConfig reads the configuration from the env file when one was given,
// otherwise from the process environment. Extra options run last.
func (o *GlobalOptions) LoadConfig(extra ...config.Option) (*config.ServerConfig, error) {
	opts := []config.Option{config.WithEnv()}
	if o.EnvFile != "" {
		opts = []config.Option{config.WithEnvFile(o.EnvFile)}
	}
	return config.Load(append(opts, extra...)...)
}

// NewRootCommand creates the `presign` command with default streams.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&GlobalOptions{
		IOStreams: IOStreams{Out: os.Stdout, ErrOut: os.Stderr},
	})
}

// NewRootCommandWithOptions creates the `presign` command and its children.
func NewRootCommandWithOptions(o *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "presign [command]",
		Version:       versionInfo(),
		Short:         "Issue presigned object storage URLs",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(o.Out)
	cmd.SetErr(o.ErrOut)

	cmd.PersistentFlags().StringVar(&o.EnvFile, "env-file", "", "Read configuration from a .env file before the environment")

	cmd.AddCommand(NewServeCommand(NewServeOptions(o)))
	cmd.AddCommand(NewSignCommand(NewSignOptions(o)))
	cmd.AddCommand(NewCredentialsCommand(NewCredentialsOptions(o)))

	return cmd
}

func versionInfo() string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}
