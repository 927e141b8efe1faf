package storage

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	_ "image/jpeg"
	_ "image/png"
)

// ImagePolicy 上传图片限制
type ImagePolicy struct {
	MaxSize      int64
	AllowedTypes []string
	MaxWidth     int
	MaxHeight    int
}

// ImageInfo 图片检查结果
type ImageInfo struct {
	ContentType string
	Ext         string
	Width       int
	Height      int
}

var (
	ErrImageTooLarge   = errors.New("image exceeds size limit")
	ErrImageType       = errors.New("image type not allowed")
	ErrImageDimensions = errors.New("image dimensions exceed limit")
	ErrImageEmpty      = errors.New("image is empty")
	ErrDataURL         = errors.New("invalid data url")
)

var extByContentType = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// InspectImage 按内容嗅探类型并校验大小与尺寸
func InspectImage(data []byte, policy ImagePolicy) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, ErrImageEmpty
	}
	if policy.MaxSize > 0 && int64(len(data)) > policy.MaxSize {
		return ImageInfo{}, fmt.Errorf("%w: %d bytes", ErrImageTooLarge, len(data))
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	contentType := http.DetectContentType(head)
	ext, known := extByContentType[contentType]
	if !known || !typeAllowed(contentType, policy.AllowedTypes) {
		return ImageInfo{}, fmt.Errorf("%w: %s", ErrImageType, contentType)
	}

	width, height, err := decodeImageDimensions(bytes.NewReader(data), contentType)
	if err != nil {
		return ImageInfo{}, err
	}
	if (policy.MaxWidth > 0 && width > policy.MaxWidth) || (policy.MaxHeight > 0 && height > policy.MaxHeight) {
		return ImageInfo{}, fmt.Errorf("%w: %dx%d", ErrImageDimensions, width, height)
	}
	return ImageInfo{ContentType: contentType, Ext: ext, Width: width, Height: height}, nil
}

// DecodeDataURL 解析 data:image/png;base64,... 形式的签名图片
func DecodeDataURL(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "data:") {
		return nil, ErrDataURL
	}
	comma := strings.IndexByte(raw, ',')
	if comma < 0 || !strings.HasSuffix(raw[:comma], ";base64") {
		return nil, ErrDataURL
	}
	data, err := base64.StdEncoding.DecodeString(raw[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataURL, err)
	}
	return data, nil
}

func typeAllowed(contentType string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, t := range allowed {
		if strings.EqualFold(strings.TrimSpace(t), contentType) {
			return true
		}
	}
	return false
}

func decodeImageDimensions(src io.ReadSeeker, contentType string) (int, int, error) {
	if contentType == "image/webp" {
		w, h, err := decodeWebPDimensions(src)
		if err != nil {
			return 0, 0, fmt.Errorf("decode webp: %w", err)
		}
		return w, h, nil
	}
	cfg, _, err := image.DecodeConfig(src)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// decodeWebPDimensions 解析 RIFF 容器中的 VP8/VP8L/VP8X 头
func decodeWebPDimensions(src io.ReadSeeker) (int, int, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(src, header); err != nil {
		return 0, 0, err
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WEBP" {
		return 0, 0, errors.New("bad webp header")
	}

	chunkHeader := make([]byte, 8)
	for {
		if _, err := io.ReadFull(src, chunkHeader); err != nil {
			return 0, 0, err
		}
		kind := string(chunkHeader[0:4])
		size := int64(binary.LittleEndian.Uint32(chunkHeader[4:8]))

		switch kind {
		case "VP8X", "VP8 ", "VP8L":
			data := make([]byte, 10)
			n, err := io.ReadFull(src, data[:min(int64(len(data)), size)])
			if err != nil {
				return 0, 0, err
			}
			return webpChunkDimensions(kind, data[:n])
		}

		if size%2 == 1 {
			size++
		}
		if _, err := src.Seek(size, io.SeekCurrent); err != nil {
			return 0, 0, err
		}
	}
}

func webpChunkDimensions(kind string, data []byte) (int, int, error) {
	switch kind {
	case "VP8X":
		if len(data) < 10 {
			return 0, 0, errors.New("short VP8X chunk")
		}
		w := 1 + (int(data[4]) | int(data[5])<<8 | int(data[6])<<16)
		h := 1 + (int(data[7]) | int(data[8])<<8 | int(data[9])<<16)
		return w, h, nil
	case "VP8 ":
		if len(data) < 10 {
			return 0, 0, errors.New("short VP8 chunk")
		}
		return int(binary.LittleEndian.Uint16(data[6:8]) & 0x3FFF), int(binary.LittleEndian.Uint16(data[8:10]) & 0x3FFF), nil
	default:
		if len(data) < 5 || data[0] != 0x2f {
			return 0, 0, errors.New("bad VP8L chunk")
		}
		bits := binary.LittleEndian.Uint32(data[1:5])
		return int(bits&0x3FFF) + 1, int((bits>>14)&0x3FFF) + 1, nil
	}
}
