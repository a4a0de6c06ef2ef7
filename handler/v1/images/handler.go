package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"net/url"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/mux"

	"github.com/zeecrown/imager/model"
	"github.com/zeecrown/imager/normalizer"
	"github.com/zeecrown/imager/web/downloader"
	"github.com/zeecrown/imager/web/uploader"
)

const (
	maxTargetKB  = 10 * 1024
	formFileName = "file"
	noStorageMsg = "image storage is not configured"

	defaultTimeout        = 30 * time.Second
	defaultMaxUploadBytes = 32 << 20
)

// Options configures handler service.
type Options struct {
	// Folders lists storage folders images may be uploaded to.
	Folders []string
	// Timeout bounds a single normalization.
	Timeout        time.Duration
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Service represents handler service. A nil uploader disables the endpoints
// that store images.
type Service struct {
	processor  model.ImageProcessor
	uploader   uploader.Service
	downloader downloader.Service

	folders        map[string]bool
	timeout        time.Duration
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewService returns new handler service.
func NewService(processor model.ImageProcessor, uploader uploader.Service, downloader downloader.Service, opts Options) *Service {
	s := &Service{
		processor:      processor,
		uploader:       uploader,
		downloader:     downloader,
		folders:        make(map[string]bool, len(opts.Folders)),
		timeout:        opts.Timeout,
		maxUploadBytes: opts.MaxUploadBytes,
		logger:         opts.Logger,
	}
	for _, f := range opts.Folders {
		s.folders[f] = true
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = defaultMaxUploadBytes
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Normalize converts request body and writes the encoded image back.
func (s *Service) Normalize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	targetBytes, err := validateTargetParam(r)
	if err != nil {
		response(w, []byte(fmt.Sprintf("error validating target param: %v", err)), "text/plain", http.StatusBadRequest)
		return
	}

	src, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUploadBytes))
	if err != nil {
		response(w, []byte(fmt.Sprintf("error reading body with error: %v", err)), "text/plain", readStatus(err))
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "image"
	}

	out, err := s.process(ctx, name, src, targetBytes)
	if err != nil {
		response(w, []byte(fmt.Sprintf("error normalizing %s: %v", name, err)), "text/plain", processStatus(err))
		return
	}

	h := w.Header()
	h.Set("X-Image-Width", strconv.Itoa(out.Width))
	h.Set("X-Image-Height", strconv.Itoa(out.Height))
	h.Set("X-Image-Quality", strconv.Itoa(out.Quality))
	h.Set("X-Source-Type", mimetype.Detect(src).String())
	h.Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", out.FileName))
	response(w, out.Data, out.ContentType, http.StatusOK)
}

// Upload normalizes multipart file and stores it inside requested folder.
func (s *Service) Upload(w http.ResponseWriter, r *http.Request) {
	data, statusCode := func(w http.ResponseWriter, r *http.Request) ([]byte, int) {
		ctx := r.Context()
		if s.uploader == nil {
			return []byte(noStorageMsg), http.StatusServiceUnavailable
		}
		folder := mux.Vars(r)["folder"]
		if !s.folders[folder] {
			return []byte(fmt.Sprintf("unknown folder %q", folder)),
				http.StatusNotFound
		}
		targetBytes, err := validateTargetParam(r)
		if err != nil {
			return []byte(fmt.Sprintf("error validating target param: %v", err)),
				http.StatusBadRequest
		}
		replaceKey, err := validateReplaceParam(r, folder)
		if err != nil {
			return []byte(fmt.Sprintf("error validating replace param: %v", err)),
				http.StatusBadRequest
		}

		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
		file, h, err := r.FormFile(formFileName)
		if err != nil {
			return []byte(fmt.Sprintf("error reading form file %q: %v", formFileName, err)),
				readStatus(err)
		}
		defer file.Close()

		src, err := io.ReadAll(file)
		if err != nil {
			return []byte(fmt.Sprintf("error reading file %s with error: %v", h.Filename, err)),
				readStatus(err)
		}
		if len(src) == 0 {
			return []byte(fmt.Sprintf("file %s is empty", h.Filename)),
				http.StatusBadRequest
		}

		return s.normalizeAndStore(ctx, folder, h.Filename, src, targetBytes, replaceKey)
	}(w, r)
	response(w, data, "application/json", statusCode)
}

// UploadRemote downloads already hosted image, normalizes it and stores it
// inside requested folder.
func (s *Service) UploadRemote(w http.ResponseWriter, r *http.Request) {
	data, statusCode := func(r *http.Request) ([]byte, int) {
		ctx := r.Context()
		if s.uploader == nil {
			return []byte(noStorageMsg), http.StatusServiceUnavailable
		}
		folder := mux.Vars(r)["folder"]
		if !s.folders[folder] {
			return []byte(fmt.Sprintf("unknown folder %q", folder)),
				http.StatusNotFound
		}
		targetBytes, err := validateTargetParam(r)
		if err != nil {
			return []byte(fmt.Sprintf("error validating target param: %v", err)),
				http.StatusBadRequest
		}
		replaceKey, err := validateReplaceParam(r, folder)
		if err != nil {
			return []byte(fmt.Sprintf("error validating replace param: %v", err)),
				http.StatusBadRequest
		}
		imageURL := r.URL.Query().Get("url")
		if imageURL == "" {
			return []byte("url param is required"),
				http.StatusBadRequest
		}

		src, err := s.downloader.Download(ctx, imageURL)
		if err != nil {
			return []byte(fmt.Sprintf("couldn't download image by url: %s with error: %v", imageURL, err)),
				http.StatusBadGateway
		}

		return s.normalizeAndStore(ctx, folder, path.Base(imageURL), src, targetBytes, replaceKey)
	}(r)
	response(w, data, "application/json", statusCode)
}

// Delete removes stored image from requested folder.
func (s *Service) Delete(w http.ResponseWriter, r *http.Request) {
	data, statusCode := func(r *http.Request) ([]byte, int) {
		ctx := r.Context()
		if s.uploader == nil {
			return []byte(noStorageMsg), http.StatusServiceUnavailable
		}
		vars := mux.Vars(r)
		folder, name := vars["folder"], vars["name"]
		if !s.folders[folder] {
			return []byte(fmt.Sprintf("unknown folder %q", folder)),
				http.StatusNotFound
		}
		if !validFileName(name) {
			return []byte(fmt.Sprintf("invalid file name %q", name)),
				http.StatusBadRequest
		}

		key := path.Join(folder, name)
		if err := s.uploader.Delete(ctx, key); err != nil {
			return []byte(fmt.Sprintf("error deleting image %s: %v", key, err)),
				http.StatusInternalServerError
		}
		s.logger.InfoContext(ctx, "image deleted", "request_id", RequestID(ctx), "key", key)
		return nil, http.StatusNoContent
	}(r)
	response(w, data, "text/plain", statusCode)
}

// normalizeAndStore uploads the normalized image and, when replaceKey is set,
// removes the image it replaces. A failed removal leaves the old object behind
// and is only logged.
func (s *Service) normalizeAndStore(ctx context.Context, folder, name string, src []byte, targetBytes int, replaceKey string) ([]byte, int) {
	sourceType := mimetype.Detect(src).String()
	s.logger.InfoContext(ctx, "normalizing image",
		"request_id", RequestID(ctx), "folder", folder, "name", name,
		"bytes", len(src), "source_type", sourceType)

	out, err := s.process(ctx, name, src, targetBytes)
	if err != nil {
		return []byte(fmt.Sprintf("error normalizing %s: %v", name, err)),
			processStatus(err)
	}

	key := path.Join(folder, out.FileName)
	location, err := s.uploader.Upload(ctx, key, bytes.NewReader(out.Data), out.ContentType)
	if err != nil {
		return []byte(fmt.Sprintf("error uploading image %s: %v", key, err)),
			http.StatusInternalServerError
	}

	img := model.Image{
		URL:              location,
		Folder:           folder,
		FileName:         out.FileName,
		ContentType:      out.ContentType,
		Resolution:       fmt.Sprintf("%dx%d", out.Width, out.Height),
		Bytes:            len(out.Data),
		Quality:          out.Quality,
		SourceType:       sourceType,
		SourceResolution: fmt.Sprintf("%dx%d", out.SourceWidth, out.SourceHeight),
	}
	s.logger.InfoContext(ctx, "image stored",
		"request_id", RequestID(ctx), "url", location, "resolution", img.Resolution,
		"bytes", img.Bytes, "quality", img.Quality)

	if replaceKey != "" && replaceKey != key {
		if err := s.uploader.Delete(ctx, replaceKey); err != nil {
			s.logger.WarnContext(ctx, "error deleting replaced image",
				"request_id", RequestID(ctx), "key", replaceKey, "error", err)
		} else {
			img.Replaced = replaceKey
		}
	}

	b, err := json.Marshal(img)
	if err != nil {
		return []byte(fmt.Sprintf("error marshaling result: %v", err)),
			http.StatusInternalServerError
	}
	return b, http.StatusCreated
}

type processResult struct {
	out normalizer.Output
	err error
}

// process runs normalization bounded by the service timeout. On timeout the
// normalization is abandoned, not interrupted.
func (s *Service) process(ctx context.Context, name string, src []byte, targetBytes int) (normalizer.Output, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resCh := make(chan processResult, 1)
	go func() {
		out, err := s.processor.Process(name, src, targetBytes)
		resCh <- processResult{out: out, err: err}
	}()

	select {
	case res := <-resCh:
		return res.out, res.err
	case <-ctx.Done():
		return normalizer.Output{}, ctx.Err()
	}
}

func processStatus(err error) int {
	var decodeErr *normalizer.DecodeError
	switch {
	case errors.As(err, &decodeErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// readStatus maps request body read errors, oversized bodies are rejected
// with 413.
func readStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func response(w http.ResponseWriter, data []byte, contentType string, statusCode int) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(statusCode)
	w.Write(data)
}

// validateTargetParam returns target size in bytes, zero if not set.
func validateTargetParam(r *http.Request) (int, error) {
	v := r.URL.Query().Get("target_kb")
	if v == "" {
		return 0, nil
	}
	kb, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid target_kb param")
	}
	if kb <= 0 || kb > maxTargetKB {
		return 0, fmt.Errorf("target_kb is not in range [1-%d]", maxTargetKB)
	}
	return kb * 1024, nil
}

// validateReplaceParam returns storage key of the image being replaced, empty
// if not set. The param is either a stored image url or its file name, the
// image has to live in folder.
func validateReplaceParam(r *http.Request, folder string) (string, error) {
	v := r.URL.Query().Get("replace")
	if v == "" {
		return "", nil
	}
	u, err := url.Parse(v)
	if err != nil {
		return "", fmt.Errorf("invalid replace param")
	}
	name := path.Base(u.Path)
	if !validFileName(name) {
		return "", fmt.Errorf("replace param %q has no file name", v)
	}
	return path.Join(folder, name), nil
}

func validFileName(name string) bool {
	return name != "" && name != "." && name != ".." && name != "/"
}
