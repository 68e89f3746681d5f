package provider

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRename(t *testing.T) {
	got := Rename("test.jpg")

	assert.True(t, strings.HasPrefix(got, "test-"), "renamed file should keep the base name: %q", got)
	assert.True(t, strings.HasSuffix(got, ".jpg"), "renamed file should keep the extension: %q", got)
	assert.NotEqual(t, "test.jpg", got, "renamed file must differ from the original")
	assert.Len(t, got, len("test-")+DefaultSuffixLength+len(".jpg"))
}

func TestRenameWithoutExtension(t *testing.T) {
	got := Rename("README")

	assert.True(t, strings.HasPrefix(got, "README-"))
	assert.NotContains(t, got, ".")
}

func TestRenameWithSuffixLength(t *testing.T) {
	got := RenameWithSuffix("report.pdf", 12)

	require.True(t, strings.HasSuffix(got, ".pdf"))
	assert.Len(t, got, len("report-")+12+len(".pdf"))
}

func TestRenameSuffixAlphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		got := Rename("a.txt")
		suffix := strings.TrimSuffix(strings.TrimPrefix(got, "a-"), ".txt")
		for _, r := range suffix {
			assert.Contains(t, renameAlphabet, string(r))
		}
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    ID
		wantErr bool
	}{
		{in: "minio", want: Minio},
		{in: "s3", want: S3},
		{in: "gcs", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseID(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "ParseID(%q)", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestDetectMimetype(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		want     string
	}{
		{name: "photo.jpg", want: "image/jpeg"},
		{name: "doc.pdf", want: "application/pdf"},
		{name: "notes.txt", want: "text/plain"},
		{name: "blob", declared: "application/x-custom", want: "application/x-custom"},
		{name: "blob", want: "application/octet-stream"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectMimetype(tt.name, tt.declared), "DetectMimetype(%q, %q)", tt.name, tt.declared)
	}
}
