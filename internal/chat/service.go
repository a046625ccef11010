package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clinicd/internal/conversation"
	"github.com/fyrsmithlabs/clinicd/internal/patients"
	"github.com/fyrsmithlabs/clinicd/internal/vectorstore"
)

// ErrEmptyMessage is returned when the patient message is blank.
var ErrEmptyMessage = errors.New("message is required")

// Config holds chat service tunables.
type Config struct {
	// QueryResults is how many records semantic search retrieves per message.
	// Default: 5.
	QueryResults int

	// ContextRecords is how many of those records enter the context block.
	// Default: 3.
	ContextRecords int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.QueryResults == 0 {
		c.QueryResults = 5
	}
	if c.ContextRecords == 0 {
		c.ContextRecords = 3
	}
}

// Reply is the outcome of processing one patient message.
type Reply struct {
	Response    string `json:"response"`
	MessageID   string `json:"message_id"`
	ContextUsed int    `json:"context_used"`
}

// Service answers patient messages with history-aware responses.
type Service struct {
	registry  patients.Repository
	index     *vectorstore.Index
	log       *conversation.Log
	generator Generator
	fallback  TemplateGenerator
	config    Config
	logger    *zap.Logger
}

// NewService creates a chat service. A nil generator means responses come
// straight from the deterministic template generator.
func NewService(
	registry patients.Repository,
	index *vectorstore.Index,
	log *conversation.Log,
	generator Generator,
	config Config,
	logger *zap.Logger,
) *Service {
	config.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if generator == nil {
		generator = TemplateGenerator{}
	}
	return &Service{
		registry:  registry,
		index:     index,
		log:       log,
		generator: generator,
		config:    config,
		logger:    logger.Named("chat"),
	}
}

// ProcessMessage answers one patient question.
//
// Unknown patients surface patients.ErrNotFound; they are never answered
// from another patient's context. Retrieval failures degrade to an empty
// context, and generator failures fall back to the template generator, so a
// registered patient always gets a well-formed reply.
func (s *Service) ProcessMessage(ctx context.Context, patientID, message string) (*Reply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	if !s.registry.Exists(patientID) {
		return nil, fmt.Errorf("%w: %s", patients.ErrNotFound, patientID)
	}

	profile, err := s.registry.Get(patientID)
	if err != nil {
		return nil, err
	}

	records, err := s.index.Query(ctx, patientID, message, s.config.QueryResults)
	if err != nil {
		return nil, err
	}

	medicalContext := BuildContext(profile, records, s.config.ContextRecords)

	response, err := s.generator.Generate(ctx, Request{Message: message, Context: medicalContext})
	if err != nil {
		s.logger.Warn("generator failed, using template fallback",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
		response, _ = s.fallback.Generate(ctx, Request{Message: message, Context: medicalContext})
	}

	turn := s.log.Append(patientID, message, response)

	s.logger.Debug("processed chat message",
		zap.String("patient_id", patientID),
		zap.String("message_id", turn.ID),
		zap.Int("context_used", len(records)),
	)

	return &Reply{
		Response:    response,
		MessageID:   turn.ID,
		ContextUsed: len(records),
	}, nil
}
