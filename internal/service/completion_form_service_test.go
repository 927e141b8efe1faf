package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/models"
	"github.com/renthportal/renthportal-sub001/internal/queue"
	"github.com/renthportal/renthportal-sub001/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedStorage 包装本地存储，可在第 N 次写入时失败或执行钩子
type scriptedStorage struct {
	*storage.LocalStorage
	mu      sync.Mutex
	puts    int
	failAt  int
	onPut   func()
	deleted []string
}

func (s *scriptedStorage) Put(ctx context.Context, key, contentType string, body io.Reader) (storage.StoredObject, error) {
	s.mu.Lock()
	s.puts++
	n := s.puts
	s.mu.Unlock()
	if s.failAt > 0 && n == s.failAt {
		return storage.StoredObject{}, errors.New("bucket unreachable")
	}
	if s.onPut != nil {
		s.onPut()
	}
	return s.LocalStorage.Put(ctx, key, contentType, body)
}

func (s *scriptedStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	s.deleted = append(s.deleted, key)
	s.mu.Unlock()
	return s.LocalStorage.Delete(ctx, key)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func setupCompletionFormTest(t *testing.T) (*deliveryFixture, *CompletionFormService, *scriptedStorage, *models.DeliveryItem) {
	t.Helper()
	f := setupDeliveryServiceTest(t, nil)
	store := &scriptedStorage{LocalStorage: storage.NewLocalStorage(t.TempDir(), "/uploads")}
	policy := storage.ImagePolicy{MaxSize: 1 << 20, AllowedTypes: []string{"image/png", "image/jpeg", "image/webp"}}
	form := NewCompletionFormService(f.svc, store, queue.NewClient(nil), policy, 3, 5*time.Second)
	form.now = func() time.Time { return f.now }

	asset := f.seedAsset(t, constants.AssetStatusReserved)
	item := f.seedItem(t, func(item *models.DeliveryItem) {
		f.plannedForDriver(asset)(item)
		item.Delivery.Status = constants.DeliveryStatusInTransit
	})
	return f, form, store, item
}

func validSubmission(t *testing.T, itemID uint) FormSubmission {
	return FormSubmission{
		ItemID:     itemID,
		Direction:  DirectionDelivery,
		HourMeter:  "1250,5",
		PersonName: "Ali Veli",
		Conditions: []string{constants.ConditionNoDamage},
		Photos: []PhotoUpload{
			{Filename: "front.png", Data: testPNG(t)},
			{Filename: "back.png", Data: testPNG(t)},
		},
		Signature: testPNG(t),
	}
}

func listFiles(t *testing.T, root string) []string {
	t.Helper()
	files := make([]string, 0)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			rel, _ := filepath.Rel(root, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestCompletionFormSubmitUploadsThenCompletes(t *testing.T) {
	f, form, store, item := setupCompletionFormTest(t)

	result, err := form.Submit(context.Background(), f.driver, validSubmission(t, item.ID))
	require.NoError(t, err)
	require.True(t, result.AssetSynced)

	leg := result.Item.Delivery
	assert.Equal(t, constants.DeliveryStatusDelivered, leg.Status)
	assert.Equal(t, "1250.5", leg.HourMeter.String())
	stamp := f.now.UnixMilli()
	assert.Equal(t, []string{
		fmt.Sprintf("/uploads/delivery/%d/%d_0.png", item.ID, stamp),
		fmt.Sprintf("/uploads/delivery/%d/%d_1.png", item.ID, stamp),
	}, []string(leg.Photos))
	assert.Equal(t, fmt.Sprintf("/uploads/delivery/%d/%d_signature.png", item.ID, stamp), leg.SignatureURL)
	assert.Len(t, listFiles(t, store.Root()), 3)
	assert.Empty(t, store.deleted)
}

func TestCompletionFormUploadFailureLeavesNoTrace(t *testing.T) {
	f, form, store, item := setupCompletionFormTest(t)
	store.failAt = 3 // 签名上传失败

	_, err := form.Submit(context.Background(), f.driver, validSubmission(t, item.ID))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUploadFailed)
	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "signature", uploadErr.Target)

	reloaded := f.reload(t, item.ID)
	assert.Equal(t, constants.DeliveryStatusInTransit, reloaded.Delivery.Status)
	assert.Nil(t, reloaded.Delivery.CompletedAt)
	assert.Empty(t, listFiles(t, store.Root()))
	assert.Len(t, store.deleted, 2)
}

func TestCompletionFormCleansUploadsWhenCompletionRejected(t *testing.T) {
	f, form, store, item := setupCompletionFormTest(t)
	var once sync.Once
	store.onPut = func() {
		once.Do(func() {
			// 上传期间状态被其它请求推进
			f.db.Model(&models.DeliveryItem{}).Where("id = ?", item.ID).
				Update("delivery_status", constants.DeliveryStatusDelivered)
		})
	}

	_, err := form.Submit(context.Background(), f.driver, validSubmission(t, item.ID))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, listFiles(t, store.Root()))
	assert.Len(t, store.deleted, 3)

	var jobs int64
	require.NoError(t, f.db.Model(&models.AssetSyncJob{}).Count(&jobs).Error)
	assert.Zero(t, jobs)
}

func TestCompletionFormValidatesBeforeUploading(t *testing.T) {
	f, form, store, item := setupCompletionFormTest(t)

	sub := validSubmission(t, item.ID)
	sub.HourMeter = ""
	_, err := form.Submit(context.Background(), f.driver, sub)
	assert.ErrorIs(t, err, ErrMissingHourMeter)

	sub = validSubmission(t, item.ID)
	sub.HourMeter = "bin iki yuz"
	_, err = form.Submit(context.Background(), f.driver, sub)
	assert.ErrorIs(t, err, ErrInvalidHourMeter)

	sub = validSubmission(t, item.ID)
	sub.Photos = append(sub.Photos, sub.Photos...)
	_, err = form.Submit(context.Background(), f.driver, sub)
	assert.ErrorIs(t, err, ErrTooManyPhotos)

	sub = validSubmission(t, item.ID)
	sub.Photos[1].Data = []byte("not an image at all")
	_, err = form.Submit(context.Background(), f.driver, sub)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, storage.ErrImageType)

	sub = validSubmission(t, item.ID)
	_, err = form.Submit(context.Background(), Session{UserID: 9999, Role: constants.RoleDriver}, sub)
	assert.ErrorIs(t, err, ErrNotAssignedDriver)

	assert.Zero(t, store.puts)
	assert.Equal(t, constants.DeliveryStatusInTransit, f.reload(t, item.ID).Delivery.Status)
}

func TestCompletionFormWithoutAttachments(t *testing.T) {
	f, form, store, item := setupCompletionFormTest(t)
	sub := validSubmission(t, item.ID)
	sub.Photos = nil
	sub.Signature = nil
	sub.GPS = &GPSFix{Lat: 0, Lng: 0}

	result, err := form.Submit(context.Background(), f.driver, sub)
	require.NoError(t, err)
	assert.Empty(t, result.Item.Delivery.Photos)
	assert.Empty(t, result.Item.Delivery.SignatureURL)
	assert.Nil(t, result.Item.Delivery.GPSLat)
	assert.Zero(t, store.puts)
}

func TestCompletionFormDiscardsUploadsWhenPersistFails(t *testing.T) {
	f, form, store, item := setupCompletionFormTest(t)
	injectWriteFailures(t, f.db, "delivery_items", true, -1)

	_, err := form.Submit(context.Background(), f.driver, validSubmission(t, item.ID))
	assert.ErrorIs(t, err, ErrPersistenceFailed)
	assert.Empty(t, listFiles(t, store.Root()))
	assert.Len(t, store.deleted, 3)
	assert.Equal(t, constants.DeliveryStatusInTransit, f.reload(t, item.ID).Delivery.Status)
}
