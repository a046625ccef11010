package explain

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clinicd/internal/patients"
	"github.com/fyrsmithlabs/clinicd/internal/vectorstore"
)

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

// defaultExplainResults is how many records are retrieved as evidence.
const defaultExplainResults = 5

// Composer assembles full explanations. It holds no per-request state; every
// Explain call is a deterministic reduction over the registry, the index,
// and the given query/response pair.
type Composer struct {
	registry patients.Repository
	index    *vectorstore.Index
	logger   *zap.Logger
}

// NewComposer creates a Composer over the given registry and record index.
func NewComposer(registry patients.Repository, index *vectorstore.Index, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{
		registry: registry,
		index:    index,
		logger:   logger.Named("explain"),
	}
}

// Explain produces the auditable breakdown for one response: data sources,
// detected patterns, risk factors, recommendation logic, and confidence.
//
// A missing profile is not an error here: the explanation degrades to what
// the retrieved records alone support. Callers that require the patient to
// exist check the registry first.
func (c *Composer) Explain(ctx context.Context, patientID, messageID, userQuery, botResponse string) (*Explanation, error) {
	profile, err := c.registry.Get(patientID)
	if err != nil {
		if !errors.Is(err, patients.ErrNotFound) {
			return nil, err
		}
		profile = nil
	}

	records, err := c.index.Query(ctx, patientID, userQuery, defaultExplainResults)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("composing explanation",
		zap.String("patient_id", patientID),
		zap.String("message_id", messageID),
		zap.Int("records", len(records)),
	)

	return &Explanation{
		MessageID:           messageID,
		UserQuery:           userQuery,
		DataSources:         BuildDataSources(profile, records),
		PatternsDetected:    DetectPatterns(userQuery, profile, records),
		RiskFactors:         ExtractRiskFactors(profile, records),
		RecommendationLogic: BuildLogic(userQuery, botResponse, profile),
		Confidence:          ScoreConfidence(records),
		Timestamp:           timeNow().UTC(),
	}, nil
}
