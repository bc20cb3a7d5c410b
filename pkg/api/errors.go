package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"game-hunter/pkg/models"
)

// follows RFC 7807: Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

func (pd *ProblemDetails) Error() string {
	return fmt.Sprintf("%d %s: %s", pd.Status, pd.Title, pd.Detail)
}

func WriteError(w http.ResponseWriter, status int, title, detail, instance string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)

	pd := &ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}

	if err := json.NewEncoder(w).Encode(pd); err != nil {
		logrus.WithError(err).WithField("instance", instance).Error("Error encoding problem details")
	}
}

func WriteInternalServerError(w http.ResponseWriter, err error, instance string) {
	WriteError(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), instance)
}

func WriteBadRequest(w http.ResponseWriter, detail, instance string) {
	WriteError(w, http.StatusBadRequest, "Bad Request", detail, instance)
}

func WriteNotFound(w http.ResponseWriter, detail, instance string) {
	WriteError(w, http.StatusNotFound, "Not Found", detail, instance)
}

func WriteBadGateway(w http.ResponseWriter, detail, instance string) {
	WriteError(w, http.StatusBadGateway, "Bad Gateway", detail, instance)
}

// WriteSearchError maps a search failure to its problem response: nothing
// matched is a 404, an unreachable store a 502 and an upstream timeout a 504.
func WriteSearchError(w http.ResponseWriter, err error, instance string) {
	log := logrus.WithError(err).WithField("instance", instance)

	switch {
	case errors.Is(err, models.ErrNoResults):
		WriteNotFound(w, "No results found.", instance)
	case errors.Is(err, models.ErrSourceUnavailable):
		log.Warn("Upstream store unavailable")
		WriteBadGateway(w, "Upstream store could not be reached.", instance)
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("Upstream store timed out")
		WriteError(w, http.StatusGatewayTimeout, "Gateway Timeout", "Upstream service timed out: "+err.Error(), instance)
	default:
		log.Error("Search failed")
		WriteInternalServerError(w, err, instance)
	}
}
