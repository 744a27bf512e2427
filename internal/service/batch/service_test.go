// 批量操作服务的单元测试
// 覆盖并发编排的顺序保证、单项隔离和结果分类
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
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

// fakeStorage 内存对象存储
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
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

func (f *fakeStorage) objectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// fakeAnalyzer 按URL关键字决定成败的分析器
type fakeAnalyzer struct {
	failSubstring string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, imageURL string, style ai.TagStyle) (*ai.Analysis, error) {
	if f.failSubstring != "" && strings.Contains(imageURL, f.failSubstring) {
		return nil, errors.New("analysis rejected")
	}
	return &ai.Analysis{Description: "测试描述", Tags: []string{"测试"}}, nil
}

// setupBatchService 构建批量服务及其依赖
func setupBatchService(t *testing.T) (Service, file.FileService, *fakeStorage) {
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
	}, storage, &fakeAnalyzer{})

	return NewService(fileService, storage), fileService, storage
}

// TestRun 测试通用并发执行器
func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("结果保持输入顺序", func(t *testing.T) {
		// 让靠前的项睡得更久，完成顺序与输入顺序相反
		outcome := Run(ctx, 5, 5, func(ctx context.Context, i int) (int, error) {
			time.Sleep(time.Duration(5-i) * 10 * time.Millisecond)
			return i * 100, nil
		})

		require.Len(t, outcome.Results, 5)
		for i, r := range outcome.Results {
			assert.Equal(t, i, r.Index)
			assert.Equal(t, i*100, r.Value)
			assert.NoError(t, r.Err)
		}
		assert.Equal(t, ClassAllSucceeded, outcome.Classification)
	})

	t.Run("单项panic不影响其他项", func(t *testing.T) {
		outcome := Run(ctx, 5, 2, func(ctx context.Context, i int) (string, error) {
			if i == 2 {
				panic("boom")
			}
			return fmt.Sprintf("ok-%d", i), nil
		})

		assert.Equal(t, 4, outcome.Succeeded)
		assert.Equal(t, 1, outcome.Failed)
		assert.Equal(t, ClassPartial, outcome.Classification)

		require.Error(t, outcome.Results[2].Err)
		assert.Contains(t, outcome.Results[2].Err.Error(), "panic")
		assert.Equal(t, "ok-4", outcome.Results[4].Value)
	})

	t.Run("全部失败分类为none", func(t *testing.T) {
		outcome := Run(ctx, 3, 3, func(ctx context.Context, i int) (int, error) {
			return 0, errors.New("nope")
		})

		assert.Equal(t, ClassNoneSucceeded, outcome.Classification)
		assert.Equal(t, 0, outcome.Succeeded)
		assert.Equal(t, 3, outcome.Failed)
	})

	t.Run("成功与失败计数之和等于请求数", func(t *testing.T) {
		outcome := Run(ctx, 10, 4, func(ctx context.Context, i int) (int, error) {
			if i%3 == 0 {
				return 0, errors.New("fail")
			}
			return i, nil
		})

		assert.Equal(t, 10, outcome.Requested)
		assert.Equal(t, outcome.Requested, outcome.Succeeded+outcome.Failed)
		assert.NotZero(t, outcome.Duration)
	})

	t.Run("上下文取消后未开始的项记为失败", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()

		outcome := Run(cancelCtx, 3, 1, func(ctx context.Context, i int) (int, error) {
			return i, nil
		})
		// 取消已生效，各项以上下文错误结束
		assert.Equal(t, ClassNoneSucceeded, outcome.Classification)
	})
}

// TestUploadMany 测试批量上传
func TestUploadMany(t *testing.T) {
	ctx := context.Background()

	t.Run("全部成功", func(t *testing.T) {
		svc, _, storage := setupBatchService(t)

		items := []UploadItem{
			{FileName: "a.jpg", Data: []byte("aaa")},
			{FileName: "b.png", Data: []byte("bbb")},
		}
		outcome, err := svc.UploadMany(ctx, items, "user1", file.UploadOptions{})
		require.NoError(t, err)

		assert.Equal(t, ClassAllSucceeded, outcome.Classification)
		assert.Equal(t, 2, storage.objectCount())
		// 结果顺序与输入一致，每项携带原始文件名
		assert.Equal(t, "a.jpg", outcome.Results[0].Value.Record.FileName)
		assert.Equal(t, "b.png", outcome.Results[1].Value.Record.FileName)
		assert.Equal(t, "a.jpg", outcome.Results[0].Key)
		assert.Equal(t, "b.png", outcome.Results[1].Key)
	})

	t.Run("部分失败互不影响", func(t *testing.T) {
		svc, _, _ := setupBatchService(t)

		items := []UploadItem{
			{FileName: "ok.jpg", Data: []byte("aaa")},
			{FileName: "bad.exe", Data: []byte("bbb")},
			{FileName: "also-ok.png", Data: []byte("ccc")},
		}
		outcome, err := svc.UploadMany(ctx, items, "user1", file.UploadOptions{})
		require.NoError(t, err)

		assert.Equal(t, ClassPartial, outcome.Classification)
		assert.Equal(t, 2, outcome.Succeeded)
		assert.Equal(t, 1, outcome.Failed)
		assert.NoError(t, outcome.Results[0].Err)
		assert.Error(t, outcome.Results[1].Err)
		assert.NoError(t, outcome.Results[2].Err)
		// 失败条目必须携带原始文件名，调用方不能只靠位置定位
		assert.Equal(t, "bad.exe", outcome.Results[1].Key)
	})

	t.Run("空批次被拒绝", func(t *testing.T) {
		svc, _, _ := setupBatchService(t)

		_, err := svc.UploadMany(ctx, nil, "user1", file.UploadOptions{})
		require.Error(t, err)
		appErr, _ := apperrors.GetAppError(err)
		assert.Equal(t, apperrors.ErrBatchEmpty, appErr.Code)
	})

	t.Run("超过规模上限被拒绝", func(t *testing.T) {
		svc, _, _ := setupBatchService(t)

		items := make([]UploadItem, MaxUploadBatch+1)
		for i := range items {
			items[i] = UploadItem{FileName: fmt.Sprintf("f%d.jpg", i), Data: []byte("x")}
		}
		_, err := svc.UploadMany(ctx, items, "user1", file.UploadOptions{})
		require.Error(t, err)
		appErr, _ := apperrors.GetAppError(err)
		assert.Equal(t, apperrors.ErrBatchTooLarge, appErr.Code)
	})
}

// TestRegenerateMany 测试批量重新分析
func TestRegenerateMany(t *testing.T) {
	ctx := context.Background()
	svc, fileService, _ := setupBatchService(t)

	r1, _, err := fileService.UploadAndProcess(ctx, "a.jpg", []byte("aaa"), "user1", file.UploadOptions{})
	require.NoError(t, err)
	r2, _, err := fileService.UploadAndProcess(ctx, "b.jpg", []byte("bbb"), "user1", file.UploadOptions{})
	require.NoError(t, err)

	t.Run("存在的文件分析成功且未知ID失败", func(t *testing.T) {
		outcome, err := svc.RegenerateMany(ctx, []string{r1.FileID, "no-such-id", r2.FileID}, "user1", ai.StyleNeutral)
		require.NoError(t, err)

		assert.Equal(t, ClassPartial, outcome.Classification)
		assert.Equal(t, 2, outcome.Succeeded)
		assert.Equal(t, 1, outcome.Failed)

		assert.Equal(t, database.StatusCompleted, outcome.Results[0].Value.Status)
		assert.Error(t, outcome.Results[1].Err)
		assert.Equal(t, database.StatusCompleted, outcome.Results[2].Value.Status)
		// 每项结果携带原始文件ID
		assert.Equal(t, r1.FileID, outcome.Results[0].Key)
		assert.Equal(t, "no-such-id", outcome.Results[1].Key)
		assert.Equal(t, r2.FileID, outcome.Results[2].Key)
	})
}

// TestUpdateMany 测试批量更新元数据
func TestUpdateMany(t *testing.T) {
	ctx := context.Background()
	svc, fileService, _ := setupBatchService(t)

	record, _, err := fileService.UploadAndProcess(ctx, "a.jpg", []byte("aaa"), "user1", file.UploadOptions{})
	require.NoError(t, err)

	newName := "renamed.jpg"
	badName := ""
	items := []UpdateItem{
		{FileID: record.FileID, Patch: file.MetadataPatch{FileName: &newName}},
		{FileID: record.FileID, Patch: file.MetadataPatch{FileName: &badName}},
	}

	outcome, err := svc.UpdateMany(ctx, items, "user1")
	require.NoError(t, err)

	assert.Equal(t, ClassPartial, outcome.Classification)
	assert.Equal(t, "renamed.jpg", outcome.Results[0].Value.FileName)
	assert.Error(t, outcome.Results[1].Err)
	assert.Equal(t, record.FileID, outcome.Results[1].Key)
}

// TestDeleteMany 测试批量删除
func TestDeleteMany(t *testing.T) {
	ctx := context.Background()

	t.Run("未知ID只影响自身且存储被清理", func(t *testing.T) {
		svc, fileService, storage := setupBatchService(t)

		r1, _, err := fileService.UploadAndProcess(ctx, "a.jpg", []byte("aaa"), "user1", file.UploadOptions{})
		require.NoError(t, err)
		r2, _, err := fileService.UploadAndProcess(ctx, "b.jpg", []byte("bbb"), "user1", file.UploadOptions{})
		require.NoError(t, err)

		outcome, err := svc.DeleteMany(ctx, []string{r1.FileID, "no-such-id", r2.FileID}, "user1")
		require.NoError(t, err)

		assert.Equal(t, ClassPartial, outcome.Classification)
		assert.Equal(t, 2, outcome.Succeeded)
		assert.Equal(t, 1, outcome.Failed)
		// 失败条目携带原始文件ID
		assert.Equal(t, "no-such-id", outcome.Results[1].Key)

		// 成功删除的记录不再可见
		_, err = fileService.GetFileByID(r1.FileID, "user1")
		assert.True(t, apperrors.IsNotFound(err))
		// 对应的存储对象也已批量清理
		assert.Equal(t, 0, storage.objectCount())
	})

	t.Run("全部失败返回none分类", func(t *testing.T) {
		svc, _, _ := setupBatchService(t)

		outcome, err := svc.DeleteMany(ctx, []string{"x", "y"}, "user1")
		require.NoError(t, err)
		assert.Equal(t, ClassNoneSucceeded, outcome.Classification)
	})
}
