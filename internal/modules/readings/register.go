package readings

import (
	"net/http"

	"github.com/frieda566/plant-watering-system/internal/modules/readings/controller"
	"github.com/frieda566/plant-watering-system/internal/modules/readings/repository"
)

func RegisterFeature(mux *http.ServeMux, repo repository.ReadingRepository, latest controller.LatestSource, connection controller.ConnectionSource) {
	readingsController := controller.NewReadingsController(repo, latest, connection)
	readingsController.RegisterRoutes(mux)
}
