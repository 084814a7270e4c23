package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/xximjasonxx/image-search-example/internal/index"
	"github.com/xximjasonxx/image-search-example/internal/logging"
)

// handleSearch answers POST /api/search: embed the query text and return
// the k most similar indexed images.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.searchRequestsTotal.WithLabelValues("client_error").Inc()
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		s.metrics.searchRequestsTotal.WithLabelValues("client_error").Inc()
		http.Error(w, "missing required field: query", http.StatusBadRequest)
		return
	}

	hits, err := s.searcher.Search(r.Context(), req.Query, req.K)
	if err != nil {
		if errors.Is(err, index.ErrUnavailable) {
			// The index being down should read as "no matches", not as an
			// outage, so the caller's experience degrades instead of breaking.
			log.Warn("index unavailable, serving empty result", "query", req.Query, "error", err)
			s.metrics.searchRequestsTotal.WithLabelValues("degraded").Inc()
			writeJSON(w, http.StatusOK, searchResponse{
				Message:       "no similar images found",
				Query:         req.Query,
				SimilarImages: []similarImage{},
			})
			return
		}

		log.Error("search failed", "query", req.Query, "error", err)
		s.metrics.searchRequestsTotal.WithLabelValues("error").Inc()
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	images := make([]similarImage, 0, len(hits))
	for _, h := range hits {
		images = append(images, similarImage{
			ID:        h.ID,
			ImageName: h.Name,
			ImageURL:  h.URL,
			Score:     h.Score,
		})
	}

	message := fmt.Sprintf("found %d similar images", len(images))
	if len(images) == 0 {
		message = "no similar images found"
	}

	s.metrics.searchRequestsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, searchResponse{
		Message:       message,
		Query:         req.Query,
		SimilarImages: images,
	})
}
