package handlers

import (
	"net/http"

	"SecondChance/internal/config"
	"SecondChance/internal/middleware"
	"SecondChance/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	itemService *service.ItemService,
	uploadDir string,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithGzip)

	itemHandler := NewItemHandler(itemService, logger, config)

	// Item routes
	r.Route(config.MountPath, func(r chi.Router) {
		r.Get("/", itemHandler.List)
		r.Post("/", itemHandler.Create)
		r.Get("/{id}", itemHandler.Get)
		r.Put("/{id}", itemHandler.Update)
		r.Delete("/{id}", itemHandler.Delete)
	})

	// Uploaded images
	r.Handle("/images/*", http.StripPrefix("/images/", http.FileServer(http.Dir(uploadDir))))

	r.Get("/healthz", itemHandler.Health)

	return &Handler{Router: r}
}
