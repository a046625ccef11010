package explain

import (
	"fmt"

	"github.com/fyrsmithlabs/clinicd/internal/vectorstore"
)

// ScoreConfidence derives a confidence tier from the retrieval distances of
// the records backing a response.
//
// The score depends only on the multiset of distances, so record order does
// not matter. An empty input gets a fixed floor rather than a computed value:
// no records means the response was generated without patient context.
func ScoreConfidence(records []vectorstore.RetrievedRecord) Confidence {
	if len(records) == 0 {
		return Confidence{
			Level:      ConfidenceLow,
			Percentage: 30,
			Reason:     "Limited patient data available",
		}
	}

	var sum float64
	for _, r := range records {
		sum += r.Distance
	}
	avg := sum / float64(len(records))

	// Maps distance in [0, inf) monotonically onto (0, 1].
	similarity := 1 / (1 + avg)
	percentage := int(similarity * 100)

	switch {
	case similarity > 0.7:
		return Confidence{
			Level:      ConfidenceHigh,
			Percentage: percentage,
			Reason:     fmt.Sprintf("Strong match with %d relevant medical records", len(records)),
		}
	case similarity > 0.5:
		return Confidence{
			Level:      ConfidenceMedium,
			Percentage: percentage,
			Reason:     fmt.Sprintf("Moderate match with patient data (%d records)", len(records)),
		}
	default:
		return Confidence{
			Level:      ConfidenceLow,
			Percentage: percentage,
			Reason:     "Limited relevance to available patient data",
		}
	}
}
