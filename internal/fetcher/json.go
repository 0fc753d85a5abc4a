package fetcher

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

// absentStatus is what OParl-style APIs put into a 200 body for a missing resource.
const absentStatus = 404

// FetchJSON fetches like Fetch and decodes the body into out.
//
// A top-level object carrying "status": 404 means the resource is absent:
// found is false, out is left untouched and no error is returned.
func (f *CachedFetcher) FetchJSON(
	ctx context.Context,
	fetchParam FetchParam,
	out any,
) (bool, failure.ClassifiedError) {
	result, err := f.Fetch(ctx, fetchParam)
	if err != nil {
		return false, err
	}

	found, decodeErr := decodeJSONBody(result.Body(), out)
	if decodeErr != nil {
		decodeErr.URL = fetchParam.fetchUrl
		f.recordFetchError("CachedFetcher.FetchJSON", fetchParam.fetchUrl, decodeErr)
		return false, decodeErr
	}
	if !found {
		f.metadataSink.RecordWarning("fetcher", "missing url", []metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, fetchParam.fetchUrl),
		})
	}
	return found, nil
}

func decodeJSONBody(body []byte, out any) (bool, *FetchError) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Status any `json:"status"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err == nil {
			if status, ok := envelope.Status.(float64); ok && status == absentStatus {
				return false, nil
			}
		}
	}

	if err := json.Unmarshal(trimmed, out); err != nil {
		return false, &FetchError{
			Message: err.Error(),
			Cause:   ErrCauseDecodeFailed,
		}
	}
	return true, nil
}
