package extract

import (
	"errors"
	"time"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

/*
Responsibilities
- Turn one HTML page into one typed record
- Fail loudly when the expected markup is gone

Extractors are deliberately narrow: each one knows a single page layout.
They never fetch and never write.
*/

type Extractor[T any] interface {
	Extract(htmlByte []byte) (T, failure.ClassifiedError)
}

func recordExtractionError(
	sink metadata.MetadataSink,
	action string,
	err error,
	attrs []metadata.Attribute,
) {
	cause := metadata.CauseUnknown
	var extractionError *ExtractionError
	if errors.As(err, &extractionError) {
		cause = mapExtractionErrorToMetadataCause(extractionError)
	}
	sink.RecordError(
		time.Now(),
		"extract",
		action,
		cause,
		err.Error(),
		attrs,
	)
}
