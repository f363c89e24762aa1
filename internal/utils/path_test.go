package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidVaultPath(t *testing.T) {
	valid := []string{
		"notes/daily.md",
		"assets/photo.png",
		"a/b/c/d.txt",
		"single",
	}
	for _, p := range valid {
		assert.True(t, IsValidVaultPath(p), "expected %q to be valid", p)
	}

	invalid := []string{
		"",
		"/etc/passwd",
		"\\windows\\system32",
		"../secret.md",
		"notes/../../secret.md",
		"notes/..",
		"notes/\x00.md",
		"..",
	}
	for _, p := range invalid {
		assert.False(t, IsValidVaultPath(p), "expected %q to be invalid", p)
	}
}

func TestNormalizeDocID(t *testing.T) {
	assert.Equal(t, "notes/daily", NormalizeDocID("notes/daily.md"))
	assert.Equal(t, "notes/daily", NormalizeDocID("notes\\daily.md"))
	assert.Equal(t, "assets/photo.png", NormalizeDocID("assets/photo.png"))
	assert.Equal(t, "notes/daily.md", DocIDToPath("notes/daily"))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "*****", MaskSecret("abc"))
	assert.Equal(t, "supe*****", MaskSecret("supersecretkey"))
}
