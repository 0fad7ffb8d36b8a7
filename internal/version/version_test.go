package version

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestFull embeds the release tag, commit and build time.
func TestFull(t *testing.T) {
	t.Parallel()

	require.Equal(t, Version, Short())
	require.Equal(t, Version+" (commit "+Commit+", built "+BuildTime+")", Full())
}

// TestAttachCobraVersionCommand prints the binary name for both executables.
func TestAttachCobraVersionCommand(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"gmpublish", "workshop-gateway"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ran := false
			root := &cobra.Command{
				Use: name,
				Run: func(*cobra.Command, []string) { ran = true },
			}
			AttachCobraVersionCommand(root)

			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs([]string{"version"})

			require.NoError(t, root.Execute())
			require.False(t, ran)
			require.Equal(t, name+" "+Full()+"\n", out.String())
		})
	}
}

// TestAttachCobraVersionCommand_RejectsArgs keeps the subcommand argument-free.
func TestAttachCobraVersionCommand_RejectsArgs(t *testing.T) {
	t.Parallel()

	root := &cobra.Command{Use: "gmpublish"}
	AttachCobraVersionCommand(root)
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"version", "extra"})

	require.Error(t, root.Execute())
}
