package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/enrell/alpine-wifi-bridge/pkg/wifibridge-api/types"

	"github.com/rs/zerolog/log"
)

// maxRequestBody caps hook payloads; they are a couple of short strings.
const maxRequestBody = 4 << 10

func WriteJson(w http.ResponseWriter, httpCode int, data any) {
	buf, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode response")
		WriteError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(httpCode)
	if _, err := w.Write(buf); err != nil {
		log.Debug().Err(err).Msg("failed to write response")
	}
}

func WriteError(w http.ResponseWriter, httpCode int, e string) {
	WriteJson(w, httpCode, types.ErrorRes{Error: e})
}

// ReadJson decodes a size-limited body into T. Unknown fields are errors;
// an empty body yields the zero value.
func ReadJson[T any](r *http.Request) (T, error) {
	var req T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}
