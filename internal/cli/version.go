package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/seguridad-santander/crimestats/pkg/api"
)

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runVersion()
		},
	}
}

// VersionInfo represents version information for structured output.
type VersionInfo struct {
	Version    string `json:"version" yaml:"version"`
	APIVersion string `json:"api_version" yaml:"api_version"`
	GitCommit  string `json:"git_commit" yaml:"git_commit"`
	BuildDate  string `json:"build_date" yaml:"build_date"`
	GoVersion  string `json:"go_version" yaml:"go_version"`
	OS         string `json:"os" yaml:"os"`
	Arch       string `json:"arch" yaml:"arch"`
}

func currentVersion() VersionInfo {
	return VersionInfo{
		Version:    Version,
		APIVersion: api.Version,
		GitCommit:  GitCommit,
		BuildDate:  BuildDate,
		GoVersion:  runtime.Version(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
	}
}

func (c *CLI) runVersion() error {
	info := currentVersion()
	if done, err := c.outputStructured(info); done {
		return err
	}

	c.println("crimestats")
	c.printf("  Version:     %s\n", info.Version)
	c.printf("  API Version: %s\n", info.APIVersion)
	c.printf("  Git Commit:  %s\n", info.GitCommit)
	c.printf("  Build Date:  %s\n", info.BuildDate)
	c.printf("  Go Version:  %s\n", info.GoVersion)
	c.printf("  OS/Arch:     %s/%s\n", info.OS, info.Arch)
	return nil
}

// SetVersionInfo sets the version information (called from main).
func SetVersionInfo(version, commit, date string) {
	if version != "" {
		Version = version
	}
	if commit != "" {
		GitCommit = commit
	}
	if date != "" {
		BuildDate = date
	}
}

// GetVersionString returns a formatted version string.
func GetVersionString() string {
	return fmt.Sprintf("crimestats version %s (commit: %s, built: %s)",
		Version, GitCommit, BuildDate)
}
