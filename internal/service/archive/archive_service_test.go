// 归档服务的单元测试
// 覆盖ZIP打包、重名处理、部分失败清单和全无效场景
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/picvault/config"
	"github.com/weiwangfds/picvault/internal/database"
	apperrors "github.com/weiwangfds/picvault/internal/errors"
	"github.com/weiwangfds/picvault/internal/service/ai"
	"github.com/weiwangfds/picvault/internal/service/file"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeStorage 内存对象存储，支持按对象注入下载失败或中途断流
type fakeStorage struct {
	mu          sync.Mutex
	objects     map[string][]byte
	failKeys    map[string]bool
	partialKeys map[string]bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		objects:     map[string][]byte{},
		failKeys:    map[string]bool{},
		partialKeys: map[string]bool{},
	}
}

// brokenReader 先吐出部分数据再报错，模拟下载中途断流
type brokenReader struct {
	data []byte
	done bool
}

func (r *brokenReader) Read(p []byte) (int, error) {
	if !r.done {
		r.done = true
		return copy(p, r.data), nil
	}
	return 0, errors.New("connection reset")
}

func (f *fakeStorage) UploadFile(objectKey string, reader io.Reader, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectKey] = data
	return nil
}

func (f *fakeStorage) DownloadFile(objectKey string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failKeys[objectKey] {
		return nil, errors.New("download failed")
	}
	if f.partialKeys[objectKey] {
		return io.NopCloser(&brokenReader{data: []byte("part")}), nil
	}
	data, ok := f.objects[objectKey]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) DeleteFile(objectKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectKey)
	return nil
}

func (f *fakeStorage) DeleteFiles(objectKeys []string) error {
	for _, key := range objectKeys {
		_ = f.DeleteFile(key)
	}
	return nil
}

func (f *fakeStorage) SignedURL(objectKey string, expires time.Duration) (string, error) {
	return "https://storage.example.com/" + objectKey, nil
}

func (f *fakeStorage) SignedURLTTL() time.Duration {
	return time.Hour
}

// fakeAnalyzer 总是成功的分析器
type fakeAnalyzer struct{}

func (fakeAnalyzer) Analyze(ctx context.Context, imageURL string, style ai.TagStyle) (*ai.Analysis, error) {
	return &ai.Analysis{Description: "测试", Tags: []string{"测试"}}, nil
}

// setupArchiveService 构建归档服务及其依赖
func setupArchiveService(t *testing.T) (Service, file.FileService, *fakeStorage) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// 内存SQLite下每个连接是独立的数据库，必须限制为单连接
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&database.FileRecord{}, &database.StorageConfig{}))

	storage := newFakeStorage()
	fileService := file.NewFileService(db, config.FileConfig{
		MaxFileSize:       1024 * 1024,
		AllowedExtensions: []string{".jpg", ".png"},
	}, storage, fakeAnalyzer{})

	return NewService(fileService), fileService, storage
}

// readZip 解析ZIP内容为文件名到内容的映射
func readZip(t *testing.T, data []byte) map[string][]byte {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := map[string][]byte{}
	for _, f := range reader.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		entries[f.Name] = content
	}
	return entries
}

// TestBuildArchive 测试归档构建
func TestBuildArchive(t *testing.T) {
	ctx := context.Background()

	t.Run("打包多个文件内容一致", func(t *testing.T) {
		svc, fileService, _ := setupArchiveService(t)

		r1, _, err := fileService.UploadAndProcess(ctx, "cat.jpg", []byte("cat-data"), "user1", file.UploadOptions{})
		require.NoError(t, err)
		r2, _, err := fileService.UploadAndProcess(ctx, "dog.png", []byte("dog-data"), "user1", file.UploadOptions{})
		require.NoError(t, err)

		var buf bytes.Buffer
		summary, err := svc.BuildArchive(ctx, []string{r1.FileID, r2.FileID}, "user1", &buf)
		require.NoError(t, err)

		assert.Equal(t, 2, summary.Requested)
		assert.Equal(t, 2, summary.Archived)
		assert.Equal(t, 0, summary.Skipped)

		entries := readZip(t, buf.Bytes())
		assert.Equal(t, []byte("cat-data"), entries["cat.jpg"])
		assert.Equal(t, []byte("dog-data"), entries["dog.png"])
		assert.NotContains(t, entries, "manifest.txt")
	})

	t.Run("重名文件追加序号后缀", func(t *testing.T) {
		svc, fileService, _ := setupArchiveService(t)

		r1, _, err := fileService.UploadAndProcess(ctx, "photo.jpg", []byte("first"), "user1", file.UploadOptions{})
		require.NoError(t, err)
		r2, _, err := fileService.UploadAndProcess(ctx, "photo.jpg", []byte("second"), "user1", file.UploadOptions{})
		require.NoError(t, err)
		r3, _, err := fileService.UploadAndProcess(ctx, "photo.jpg", []byte("third"), "user1", file.UploadOptions{})
		require.NoError(t, err)

		var buf bytes.Buffer
		_, err = svc.BuildArchive(ctx, []string{r1.FileID, r2.FileID, r3.FileID}, "user1", &buf)
		require.NoError(t, err)

		entries := readZip(t, buf.Bytes())
		assert.Equal(t, []byte("first"), entries["photo.jpg"])
		assert.Equal(t, []byte("second"), entries["photo-1.jpg"])
		assert.Equal(t, []byte("third"), entries["photo-2.jpg"])
	})

	t.Run("部分失败附带清单", func(t *testing.T) {
		svc, fileService, storage := setupArchiveService(t)

		r1, _, err := fileService.UploadAndProcess(ctx, "good.jpg", []byte("good"), "user1", file.UploadOptions{})
		require.NoError(t, err)
		r2, _, err := fileService.UploadAndProcess(ctx, "broken.jpg", []byte("broken"), "user1", file.UploadOptions{})
		require.NoError(t, err)

		storage.failKeys[r2.StoragePath] = true

		var buf bytes.Buffer
		summary, err := svc.BuildArchive(ctx, []string{r1.FileID, r2.FileID}, "user1", &buf)
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Archived)
		assert.Equal(t, 1, summary.Skipped)

		entries := readZip(t, buf.Bytes())
		assert.Contains(t, entries, "good.jpg")
		require.Contains(t, entries, "manifest.txt")
		manifest := string(entries["manifest.txt"])
		assert.Contains(t, manifest, "broken.jpg")
		assert.Contains(t, manifest, "archived: 1")
	})

	t.Run("下载中途断流不留下截断条目", func(t *testing.T) {
		svc, fileService, storage := setupArchiveService(t)

		r1, _, err := fileService.UploadAndProcess(ctx, "good.jpg", []byte("good"), "user1", file.UploadOptions{})
		require.NoError(t, err)
		r2, _, err := fileService.UploadAndProcess(ctx, "flaky.jpg", []byte("flaky"), "user1", file.UploadOptions{})
		require.NoError(t, err)

		storage.partialKeys[r2.StoragePath] = true

		var buf bytes.Buffer
		summary, err := svc.BuildArchive(ctx, []string{r1.FileID, r2.FileID}, "user1", &buf)
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Archived)
		assert.Equal(t, 1, summary.Skipped)

		entries := readZip(t, buf.Bytes())
		assert.Contains(t, entries, "good.jpg")
		// 中途断流的文件不能以半截内容出现在归档里
		assert.NotContains(t, entries, "flaky.jpg")
		require.Contains(t, entries, "manifest.txt")
		assert.Contains(t, string(entries["manifest.txt"]), "flaky.jpg")
	})

	t.Run("越权文件被静默排除", func(t *testing.T) {
		svc, fileService, _ := setupArchiveService(t)

		mine, _, err := fileService.UploadAndProcess(ctx, "mine.jpg", []byte("mine"), "user1", file.UploadOptions{})
		require.NoError(t, err)
		other, _, err := fileService.UploadAndProcess(ctx, "other.jpg", []byte("other"), "user2", file.UploadOptions{})
		require.NoError(t, err)

		var buf bytes.Buffer
		summary, err := svc.BuildArchive(ctx, []string{mine.FileID, other.FileID}, "user1", &buf)
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Archived)
		entries := readZip(t, buf.Bytes())
		assert.Contains(t, entries, "mine.jpg")
		assert.NotContains(t, entries, "other.jpg")
	})

	t.Run("全部无效时返回错误", func(t *testing.T) {
		svc, _, _ := setupArchiveService(t)

		var buf bytes.Buffer
		_, err := svc.BuildArchive(ctx, []string{"no-1", "no-2"}, "user1", &buf)
		require.Error(t, err)

		appErr, ok := apperrors.GetAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrArchiveNoFiles, appErr.Code)
	})

	t.Run("空列表被拒绝", func(t *testing.T) {
		svc, _, _ := setupArchiveService(t)

		var buf bytes.Buffer
		_, err := svc.BuildArchive(ctx, nil, "user1", &buf)
		require.Error(t, err)

		appErr, _ := apperrors.GetAppError(err)
		assert.Equal(t, apperrors.ErrBatchEmpty, appErr.Code)
	})
}
