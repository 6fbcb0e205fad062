package stubapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"StrategyDesk/internal/model"
)

// Errors are reported inside the envelope with status 200, as the real
// backend does.
func (s *Server) writeOK(w http.ResponseWriter, message string, data any) {
	s.writeJSON(w, model.Envelope[any]{
		IsError:   false,
		IsSuccess: true,
		Message:   message,
		Data:      data,
	})
}

func (s *Server) writeError(w http.ResponseWriter, message string) {
	s.writeJSON(w, model.Envelope[any]{
		IsError:   true,
		IsSuccess: false,
		Message:   message,
		Data:      nil,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("write response", zap.Error(err))
	}
}
