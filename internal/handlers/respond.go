package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/novastream/gateway/internal/logging"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// envelope is the {success, ...} body shared by the JSON endpoints.
type envelope map[string]any

func success(fields ...any) envelope {
	body := envelope{"success": true}
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			body[key] = fields[i+1]
		}
	}
	return body
}

func failureMessage(message string) envelope {
	return envelope{"success": false, "message": message}
}

func failureError(message string) envelope {
	return envelope{"success": false, "error": message}
}
