package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := RootCmd()
	for _, name := range []string{"units", "judge", "acquire", "dispatch", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestRootCmd_DispatchRequiresFlags(t *testing.T) {
	root := RootCmd()
	root.SetArgs([]string{"dispatch", "job.yaml"})
	root.SilenceErrors = true
	assert.Error(t, root.Execute())
}
