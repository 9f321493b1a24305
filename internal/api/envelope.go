package api

import (
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/devoverflow/overflow-server/internal/http/response"
)

// EnvelopeVersion is sent as "v" in every response body.
const EnvelopeVersion = response.Version

// APIEnvelope wraps successful responses.
type APIEnvelope = response.Envelope

// APIErrorEnvelope wraps error responses.
type APIErrorEnvelope = response.ErrorEnvelope

// EnvelopeTransformer is a huma transformer that wraps every response body
// in the standard envelope. Errors keep their code, message and details.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if strings.HasPrefix(status, "2") {
		return APIEnvelope{Version: EnvelopeVersion, Success: true, Data: v}, nil
	}

	switch e := v.(type) {
	case *APIError:
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Code:    e.Code,
			Message: e.Message,
			Details: e.Details,
		}, nil
	case error:
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Code:    statusCode(status),
			Message: e.Error(),
		}, nil
	default:
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Code:    statusCode(status),
			Message: "request failed",
			Details: v,
		}, nil
	}
}

func statusCode(status string) string {
	n, _ := strconv.Atoi(status)
	return statusToCode(n)
}
