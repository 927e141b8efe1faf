package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/logger"
	"github.com/renthportal/renthportal-sub001/internal/models"
	"github.com/renthportal/renthportal-sub001/internal/queue"
	"github.com/renthportal/renthportal-sub001/internal/storage"

	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxPhotos       = 12
	photoUploadParallel    = 4
	cleanupDetachedTimeout = 30 * time.Second
)

// PhotoUpload 一张待上传的照片
type PhotoUpload struct {
	Filename string
	Data     []byte
}

// FormSubmission 司机提交的完工表单（原始字段）
type FormSubmission struct {
	ItemID         uint
	Direction      Direction
	HourMeter      string
	FuelLevel      *int
	PersonName     string
	Notes          string
	Conditions     []string
	ConditionNotes string
	Photos         []PhotoUpload
	Signature      []byte
	GPS            *GPSFix
}

// CompletionFormService 完工表单：先上传照片与签名，再写完工记录，最后同步设备状态
type CompletionFormService struct {
	delivery    *DeliveryService
	store       storage.ObjectStorage
	queueClient *queue.Client
	policy      storage.ImagePolicy
	maxPhotos   int
	timeout     time.Duration
	now         func() time.Time
}

// NewCompletionFormService 创建完工表单服务
func NewCompletionFormService(delivery *DeliveryService, store storage.ObjectStorage, queueClient *queue.Client, policy storage.ImagePolicy, maxPhotos int, timeout time.Duration) *CompletionFormService {
	if maxPhotos <= 0 {
		maxPhotos = defaultMaxPhotos
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &CompletionFormService{
		delivery:    delivery,
		store:       store,
		queueClient: queueClient,
		policy:      policy,
		maxPhotos:   maxPhotos,
		timeout:     timeout,
		now:         time.Now,
	}
}

// ParseInput 解析并校验表单字段（不含文件）
func (s *CompletionFormService) ParseInput(sub FormSubmission) (CompletionInput, error) {
	input := CompletionInput{
		FuelLevel:      sub.FuelLevel,
		PersonName:     sub.PersonName,
		Notes:          sub.Notes,
		Conditions:     sub.Conditions,
		ConditionNotes: sub.ConditionNotes,
		GPS:            sub.GPS,
	}
	if raw := strings.TrimSpace(sub.HourMeter); raw != "" {
		hm, err := models.ParseHourMeter(raw)
		if err != nil {
			return input, ErrInvalidHourMeter
		}
		input.HourMeter = &hm
	}
	return ValidateCompletion(input)
}

// Submit 执行完整的完工流程
func (s *CompletionFormService) Submit(ctx context.Context, actor Session, sub FormSubmission) (*CompletionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	input, err := s.ParseInput(sub)
	if err != nil {
		return nil, err
	}
	if _, err := s.delivery.PrecheckCompletion(actor, sub.ItemID, sub.Direction); err != nil {
		return nil, err
	}
	if len(sub.Photos) > s.maxPhotos {
		return nil, ErrTooManyPhotos
	}
	photos := make([]storage.ImageInfo, len(sub.Photos))
	for i, p := range sub.Photos {
		info, err := storage.InspectImage(p.Data, s.policy)
		if err != nil {
			return nil, &ValidationError{Code: "invalid_photo", Field: fmt.Sprintf("photos[%d]", i), Cause: err}
		}
		photos[i] = info
	}
	if len(sub.Signature) > 0 {
		info, err := storage.InspectImage(sub.Signature, s.policy)
		if err != nil || info.ContentType != "image/png" {
			return nil, ErrInvalidSignature
		}
	}

	uploaded := newUploadSet()
	stamp := s.now().UnixMilli()
	prefix := fmt.Sprintf("%s/%d", sub.Direction.String(), sub.ItemID)

	urls, err := s.uploadPhotos(ctx, prefix, stamp, sub.Photos, photos, uploaded)
	if err != nil {
		s.discard(sub, uploaded.keys())
		return nil, err
	}
	input.PhotoURLs = urls

	if len(sub.Signature) > 0 {
		key := fmt.Sprintf("%s/%d_signature.png", prefix, stamp)
		obj, err := s.store.Put(ctx, key, "image/png", bytes.NewReader(sub.Signature))
		if err != nil {
			s.discard(sub, uploaded.keys())
			return nil, &UploadError{Target: "signature", Err: err}
		}
		uploaded.add(obj.Key)
		input.SignatureURL = obj.URL
	}

	result, err := s.delivery.CompleteDirection(ctx, actor, sub.ItemID, sub.Direction, input)
	if err != nil {
		s.discard(sub, uploaded.keys())
		return nil, err
	}
	return result, nil
}

func (s *CompletionFormService) uploadPhotos(ctx context.Context, prefix string, stamp int64, photos []PhotoUpload, infos []storage.ImageInfo, uploaded *uploadSet) ([]string, error) {
	urls := make([]string, len(photos))
	if len(photos) == 0 {
		return urls, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(photoUploadParallel)
	for i := range photos {
		i := i
		g.Go(func() error {
			key := fmt.Sprintf("%s/%d_%d.%s", prefix, stamp, i, infos[i].Ext)
			obj, err := s.store.Put(gctx, key, infos[i].ContentType, bytes.NewReader(photos[i].Data))
			if err != nil {
				return &UploadError{Target: fmt.Sprintf("photos[%d]", i), Err: err}
			}
			uploaded.add(obj.Key)
			urls[i] = obj.URL
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

// discard 完工未生效时清理已上传对象；队列可用时异步清理
func (s *CompletionFormService) discard(sub FormSubmission, keys []string) {
	if len(keys) == 0 {
		return
	}
	payload := queue.UploadCleanupPayload{ItemID: sub.ItemID, Direction: sub.Direction.String(), Keys: keys}
	if s.queueClient.Enabled() {
		err := s.queueClient.EnqueueUploadCleanup(payload)
		if err == nil {
			return
		}
		logger.Warnw("completion_cleanup_enqueue_failed", "item_id", sub.ItemID, "keys", len(keys), "error", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupDetachedTimeout)
	defer cancel()
	if err := s.CleanupUploads(ctx, payload); err != nil {
		logger.Warnw("completion_cleanup_failed", "item_id", sub.ItemID, "keys", len(keys), "error", err)
	}
}

// CleanupUploads 删除孤立上传（worker 与同步路径共用）
func (s *CompletionFormService) CleanupUploads(ctx context.Context, payload queue.UploadCleanupPayload) error {
	var errs []error
	for _, key := range payload.Keys {
		if err := s.store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	logger.Infow("completion_uploads_cleaned", "item_id", payload.ItemID, "direction", payload.Direction, "keys", len(payload.Keys))
	return nil
}

type uploadSet struct {
	mu   sync.Mutex
	list []string
}

func newUploadSet() *uploadSet {
	return &uploadSet{}
}

func (u *uploadSet) add(key string) {
	u.mu.Lock()
	u.list = append(u.list, key)
	u.mu.Unlock()
}

func (u *uploadSet) keys() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.list...)
}
