package server

import (
	"encoding/json"
	"net/http"

	"github.com/xximjasonxx/image-search-example/internal/logging"
	"github.com/xximjasonxx/image-search-example/internal/pipeline"
)

// eventTypeSubscriptionValidation is the handshake EventGrid sends when a
// webhook subscription is created. The endpoint must echo the validation
// code back or the subscription is never activated.
const eventTypeSubscriptionValidation = "Microsoft.EventGrid.SubscriptionValidationEvent"

// handleEvents accepts an EventGrid delivery: a JSON array of events.
// Validation handshakes are answered immediately; every other event is
// handed to the pipeline. Per-event failures are logged and absorbed so
// the dispatcher never redelivers a batch because one blob misbehaved.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var events []gridEvent
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		log.Warn("undecodable event delivery", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	for _, ev := range events {
		if ev.EventType == eventTypeSubscriptionValidation {
			code, _ := ev.Data["validationCode"].(string)
			log.Info("answering subscription validation handshake", "event_id", ev.ID)
			writeJSON(w, http.StatusOK, validationResponse{ValidationResponse: code})
			return
		}
	}

	for _, ev := range events {
		outcome, err := s.processor.Process(r.Context(), pipeline.Event{
			ID:        ev.ID,
			Subject:   ev.Subject,
			EventType: ev.EventType,
		})
		if err != nil {
			// Absorbed on purpose. The pipeline has already journaled the
			// failure; surfacing it here would only trigger redelivery of
			// events that will fail the same way again.
			log.Error("event processing failed",
				"event_id", ev.ID,
				"subject", ev.Subject,
				"outcome", string(outcome),
				"error", err,
			)
			continue
		}
		log.Info("event processed",
			"event_id", ev.ID,
			"subject", ev.Subject,
			"outcome", string(outcome),
		)
	}

	writeJSON(w, http.StatusOK, eventsResponse{Received: len(events)})
}
