package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Foto Sala.JPG", "foto-sala.jpg"},
		{"Ação São João.png", "acao-sao-joao.png"},
		{"  --weird   name!!--.jpeg", "weird-name-.jpeg"},
		{"already-clean_name.webp", "already-clean_name.webp"},
		{"über/../../etc/passwd", "uber-..-..-etc-passwd"},
		{"日本.jpg", ".jpg"},
		{"写真", "file"},
		{"", "file"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFileName(tt.in))
		})
	}
}

func TestSanitizeFileName_Idempotent(t *testing.T) {
	inputs := []string{
		"Foto Sala.JPG",
		"Ação São João.png",
		"  --weird   name!!--.jpeg",
		"Ñandú -- casa (1).HEIC",
		"写真",
		"a--b",
	}

	for _, in := range inputs {
		once := SanitizeFileName(in)
		assert.Equal(t, once, SanitizeFileName(once), "input %q", in)
		assert.Regexp(t, `^[a-z0-9._]([a-z0-9._-]*[a-z0-9._])?$`, once)
		assert.NotContains(t, once, "--")
	}
}

func TestPathFromURL(t *testing.T) {
	const bucket = "property-images"

	path, ok := PathFromURL("https://x.supabase.co/storage/v1/object/public/property-images/u1/l1/1700-a.jpg", bucket)
	assert.True(t, ok)
	assert.Equal(t, "u1/l1/1700-a.jpg", path)

	path, ok = PathFromURL("http://minio:9000/property-images/u1/property-images/b.jpg", bucket)
	assert.True(t, ok)
	assert.Equal(t, "u1/property-images/b.jpg", path)

	_, ok = PathFromURL("https://elsewhere.example.com/img/a.jpg", bucket)
	assert.False(t, ok)

	_, ok = PathFromURL("http://minio:9000/property-images/", bucket)
	assert.False(t, ok)
}
