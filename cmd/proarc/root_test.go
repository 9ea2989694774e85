package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"worker", "export", "import", "migrate", "report"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}

	export, _, err := root.Find([]string{"export"})
	require.NoError(t, err)
	for _, flag := range []string{"profile", "pid", "hierarchy", "dry-run", "bagit", "ltp-upload", "ndk-variant", "run"} {
		assert.NotNil(t, export.Flags().Lookup(flag), flag)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("env-file"))
}

func TestExportRequiresProfile(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"export", "--pid", "uuid:1"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile")
}

func TestImportRequiresFolder(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"import"})

	assert.Error(t, root.Execute())
}
