package routes

import (
	"pact_server/controllers"
	"pact_server/services"

	"github.com/gorilla/mux"
)

// RegisterPopulationRoutes sets up routes for population-learning priors under /api/population
func RegisterPopulationRoutes(r *mux.Router, populationService *services.PopulationService) {
	// Initialize the controller with the PopulationService
	controller := controllers.NewPopulationController(populationService)

	// Create a subrouter for /api/population
	populationRouter := r.PathPrefix("/api/population").Subrouter()

	// Define routes and their corresponding handlers
	populationRouter.HandleFunc("/sync", controller.HandleSync).Methods("POST")
	populationRouter.HandleFunc("/priors", controller.HandleFetch).Methods("GET")
}
