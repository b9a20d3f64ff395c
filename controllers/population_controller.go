package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"pact_server/models"
	"pact_server/services"
)

// PopulationController handles HTTP requests for population-learning priors
type PopulationController struct {
	PopulationService *services.PopulationService
}

// NewPopulationController creates a new PopulationController instance
func NewPopulationController(populationService *services.PopulationService) *PopulationController {
	return &PopulationController{PopulationService: populationService}
}

// HandleSync ingests a batch of per-arm outcomes from one client
func (pc *PopulationController) HandleSync(w http.ResponseWriter, r *http.Request) {
	var request models.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		log.Println("Invalid request payload:", err)
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		return
	}

	response, err := pc.PopulationService.SyncOutcomes(r.Context(), &request)
	if err != nil {
		pc.writeError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, response)
}

// HandleFetch returns the aggregated priors for one archetype
func (pc *PopulationController) HandleFetch(w http.ResponseWriter, r *http.Request) {
	archetype := r.URL.Query().Get("archetype")

	response, err := pc.PopulationService.FetchPriors(r.Context(), archetype)
	if err != nil {
		pc.writeError(w, err)
		return
	}

	// Priors drift slowly; let clients and CDNs cache briefly
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", models.PriorsCacheMaxAge))
	WriteJSON(w, http.StatusOK, response)
}

// writeError maps service errors onto the endpoint's error contract.
// Internal failures stay opaque to the caller and are logged with detail.
func (pc *PopulationController) writeError(w http.ResponseWriter, err error) {
	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &validationErr):
		body := map[string]interface{}{"error": validationErr.Message}
		if len(validationErr.ValidArchetypes) > 0 {
			body["validArchetypes"] = validationErr.ValidArchetypes
		}
		WriteJSON(w, http.StatusBadRequest, body)
	case errors.Is(err, models.ErrRateLimited):
		WriteJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"success": false,
			"error":   "rate_limited",
			"message": "Already contributed for this archetype in the last 24 hours",
		})
	default:
		log.Println("Population request failed:", err)
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Println("Error encoding response:", err)
	}
}
