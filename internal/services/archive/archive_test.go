package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/garmindl/internal/export"
	"github.com/j-veylop/garmindl/internal/models"
)

type MockUploader struct {
	mock.Mock
	body []byte
}

func (m *MockUploader) Upload(ctx context.Context, key string, body io.Reader) error {
	m.body, _ = io.ReadAll(body)
	args := m.Called(ctx, key, body)
	return args.Error(0)
}

func writeFile(t *testing.T, content string) *export.File {
	t.Helper()
	p := filepath.Join(t.TempDir(), "hr202405.csv")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return &export.File{Path: p, Bytes: int64(len(content))}
}

func TestArchiver_Publish(t *testing.T) {
	uploader := &MockUploader{}
	uploader.On("Upload", mock.Anything, "garmin/hr/hr202405.csv", mock.AnythingOfType("*os.File")).Return(nil)

	a := New(uploader, DefaultPrefix)
	batch := models.Batch{Kind: models.KindHeartRate, Filename: "hr202405.csv"}

	err := a.Publish(context.Background(), batch, writeFile(t, "timestamp,heartrate\n"))
	require.NoError(t, err)

	uploader.AssertExpectations(t)
	assert.Equal(t, "timestamp,heartrate\n", string(uploader.body))
	assert.Equal(t, "s3", a.Name())
}

func TestArchiver_PublishUploadError(t *testing.T) {
	uploader := &MockUploader{}
	uploader.On("Upload", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(errors.New("denied"))

	a := New(uploader, "backup")
	err := a.Publish(context.Background(), models.Batch{Kind: models.KindBodyBattery, Filename: "bb202405.csv"}, writeFile(t, "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}

func TestArchiver_PublishMissingFile(t *testing.T) {
	uploader := &MockUploader{}
	a := New(uploader, DefaultPrefix)

	err := a.Publish(context.Background(), models.Batch{Kind: models.KindHeartRate}, &export.File{Path: filepath.Join(t.TempDir(), "gone.csv")})
	require.Error(t, err)
	uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestArchiver_Key(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{DefaultPrefix, "garmin/bb/bb202405.csv"},
		{"", "bb/bb202405.csv"},
		{"archive/garmin/", "archive/garmin/bb/bb202405.csv"},
	}
	for _, tt := range tests {
		a := New(nil, tt.prefix)
		assert.Equal(t, tt.want, a.Key(models.Batch{Kind: models.KindBodyBattery, Filename: "bb202405.csv"}))
	}
}

func TestNewS3Uploader_Validation(t *testing.T) {
	_, err := NewS3Uploader(nil, "bucket")
	assert.Error(t, err)
}
