package configbinder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type s3Props struct {
	Bucket       string        `yaml:"bucket"`
	UsePathStyle bool          `yaml:"use_path_style"`
	Timeout      time.Duration `yaml:"timeout"`
	Retries      int           `yaml:"retries"`
	Tags         []string      `yaml:"tags"`
}

func TestBindProperties_WeakTypes(t *testing.T) {
	var p s3Props
	err := BindStringProperties(map[string]string{
		"bucket":         "ltp",
		"use_path_style": "true",
		"timeout":        "30s",
		"retries":        "3",
		"tags":           "ndk,psp",
	}, &p)
	require.NoError(t, err)
	assert.Equal(t, "ltp", p.Bucket)
	assert.True(t, p.UsePathStyle)
	assert.Equal(t, 30*time.Second, p.Timeout)
	assert.Equal(t, 3, p.Retries)
	assert.Equal(t, []string{"ndk", "psp"}, p.Tags)
}

func TestBindProperties_EmptyIsNoop(t *testing.T) {
	p := s3Props{Bucket: "keep"}
	require.NoError(t, BindProperties(nil, &p))
	assert.Equal(t, "keep", p.Bucket)
}

func TestBindProperties_Invalid(t *testing.T) {
	var p s3Props
	err := BindProperties(map[string]interface{}{"retries": "many"}, &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3Props")
}
