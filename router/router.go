package router

import (
	"log/slog"

	"github.com/gorilla/mux"

	handler "github.com/zeecrown/imager/handler/v1/images"
	"github.com/zeecrown/imager/model"
	"github.com/zeecrown/imager/web/downloader"
	"github.com/zeecrown/imager/web/uploader"
)

// New returns new router. A nil uploadSvc disables the endpoints storing
// images, they answer 503.
func New(processor model.ImageProcessor, uploadSvc uploader.Service, downloadSvc downloader.Service, opts handler.Options) *mux.Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := mux.NewRouter()
	router.Use(handler.RequestLogger(logger))
	imgSvcV1 := handler.NewService(processor, uploadSvc, downloadSvc, opts)

	apiV1 := router.PathPrefix("/api/v1").Subrouter()

	apiV1.HandleFunc("/images/normalize", imgSvcV1.Normalize).Methods("POST")
	apiV1.HandleFunc("/images/{folder}", imgSvcV1.Upload).Methods("POST")
	apiV1.HandleFunc("/images/{folder}/remote", imgSvcV1.UploadRemote).Methods("POST").Queries("url", "")
	apiV1.HandleFunc("/images/{folder}/{name}", imgSvcV1.Delete).Methods("DELETE")
	return router
}
