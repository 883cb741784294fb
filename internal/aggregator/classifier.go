// internal/aggregator/classifier.go
package aggregator

import (
	"encoding/json"

	apperrors "aggregation-gateway/internal/common/errors"
	"aggregation-gateway/internal/models"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Classify maps a failure to the value written under "error".
//
// For internal targets the response is always an object with a message: a
// body that already is such an object passes through, anything else is
// wrapped as {"message": text}. For external targets a JSON body passes
// through raw and anything else is emitted as a string.
func Classify(f *models.Failure, isInternal bool) models.ErrorMember {
	if f == nil {
		f = &models.Failure{Message: apperrors.InternalErrorText, Code: apperrors.ErrCodeInternalFault}
	}
	member := models.ErrorMember{Status: f.Status}

	if isInternal {
		if len(f.Body) > 0 && gjson.ValidBytes(f.Body) {
			parsed := gjson.ParseBytes(f.Body)
			if parsed.IsObject() && parsed.Get("message").Exists() {
				member.Response = json.RawMessage(f.Body)
				return member
			}
		}
		member.Response = wrapMessage(failureText(f))
		return member
	}

	if len(f.Body) > 0 && gjson.ValidBytes(f.Body) {
		member.Response = json.RawMessage(f.Body)
		return member
	}
	member.Response = jsonString(failureText(f))
	return member
}

func failureText(f *models.Failure) string {
	if len(f.Body) > 0 {
		return string(f.Body)
	}
	return f.Message
}

func wrapMessage(text string) json.RawMessage {
	wrapped, err := sjson.SetBytes([]byte(`{}`), "message", text)
	if err != nil {
		return json.RawMessage(`{"message":"` + apperrors.InternalErrorText + `"}`)
	}
	return json.RawMessage(wrapped)
}

func jsonString(text string) json.RawMessage {
	encoded, err := json.Marshal(text)
	if err != nil {
		return json.RawMessage(`""`)
	}
	return json.RawMessage(encoded)
}

// faultFailure is the failure recorded for an entry whose processing panicked
// before any of its bytes were written.
func faultFailure() *models.Failure {
	return &models.Failure{
		Message: apperrors.InternalErrorText,
		Code:    apperrors.ErrCodeInternalFault,
	}
}
