package router

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	handler "github.com/zeecrown/imager/handler/v1/images"
	mock_downloader "github.com/zeecrown/imager/mock/downloader"
	mock_model "github.com/zeecrown/imager/mock/model"
	mock_uploader "github.com/zeecrown/imager/mock/uploader"
	"github.com/zeecrown/imager/normalizer"
)

func TestRoutes(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	processor := mock_model.NewMockImageProcessor(mockCtrl)
	downloadSvc := mock_downloader.NewMockService(mockCtrl)
	uploadSvc := mock_uploader.NewMockService(mockCtrl)
	opts := handler.Options{
		Folders: []string{"banners"},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	router := New(processor, uploadSvc, downloadSvc, opts)

	processor.EXPECT().Process("image", []byte("x"), 0).Return(normalizer.Output{}, &normalizer.DecodeError{Err: errors.New("error")})
	downloadSvc.EXPECT().Download(gomock.Any(), "https://cdn/a.png").Return(nil, errors.New("error"))
	uploadSvc.EXPECT().Delete(gomock.Any(), "banners/1_a.webp").Return(nil)

	type tc struct {
		name               string
		method             string
		target             string
		expectedStatusCode int
		routed             bool
	}

	tcs := []tc{
		{name: "normalize", method: http.MethodPost, target: "/api/v1/images/normalize", expectedStatusCode: http.StatusUnprocessableEntity, routed: true},
		{name: "upload to unknown folder", method: http.MethodPost, target: "/api/v1/images/orders", expectedStatusCode: http.StatusNotFound, routed: true},
		{name: "upload without file", method: http.MethodPost, target: "/api/v1/images/banners", expectedStatusCode: http.StatusBadRequest, routed: true},
		{name: "remote", method: http.MethodPost, target: "/api/v1/images/banners/remote?url=https://cdn/a.png", expectedStatusCode: http.StatusBadGateway, routed: true},
		{name: "remote without url", method: http.MethodPost, target: "/api/v1/images/banners/remote", expectedStatusCode: http.StatusMethodNotAllowed},
		{name: "delete", method: http.MethodDelete, target: "/api/v1/images/banners/1_a.webp", expectedStatusCode: http.StatusNoContent, routed: true},
		{name: "delete from unknown folder", method: http.MethodDelete, target: "/api/v1/images/orders/1_a.webp", expectedStatusCode: http.StatusNotFound, routed: true},
		{name: "wrong method", method: http.MethodGet, target: "/api/v1/images/banners", expectedStatusCode: http.StatusMethodNotAllowed},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			wr := httptest.NewRecorder()
			router.ServeHTTP(wr, httptest.NewRequest(tc.method, tc.target, bytes.NewReader([]byte("x"))))
			assert.Equal(t, tc.expectedStatusCode, wr.Code)
			if tc.routed {
				assert.NotEmpty(t, wr.Header().Get("X-Request-Id"))
			}
		})
	}
}

func TestRoutesWithoutStorage(t *testing.T) {
	opts := handler.Options{
		Folders: []string{"banners"},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	router := New(nil, nil, nil, opts)

	for _, r := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/v1/images/banners", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/images/banners/remote?url=https://cdn/a.png", nil),
		httptest.NewRequest(http.MethodDelete, "/api/v1/images/banners/1_a.webp", nil),
	} {
		wr := httptest.NewRecorder()
		router.ServeHTTP(wr, r)
		assert.Equal(t, http.StatusServiceUnavailable, wr.Code, r.Method+" "+r.URL.String())
	}
}
