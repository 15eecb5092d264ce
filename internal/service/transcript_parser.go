package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/malla-api/internal/models"
	"github.com/noah-isme/malla-api/pkg/llm"
)

// TranscriptParser turns extracted transcript text into course records.
// Implementations may fail or return no records; callers treat both as a
// recoverable ingestion error.
type TranscriptParser interface {
	ParseTranscript(ctx context.Context, text string) ([]models.StudentCourseRecord, error)
}

// jsonGenerator is the part of llm.Client the parser needs.
type jsonGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, schema *llm.Schema, out interface{}, opts ...llm.Option) error
}

// transcriptRow mirrors the JSON the model is asked to produce.
type transcriptRow struct {
	Code    string   `json:"codigo"`
	Name    string   `json:"nombre"`
	Status  string   `json:"estado"`
	Credits float64  `json:"creditos"`
	Grade   *float64 `json:"nota,omitempty"`
	Term    string   `json:"periodoReal,omitempty"`
}

var transcriptSchema = &llm.Schema{
	Type: "ARRAY",
	Items: &llm.Schema{
		Type: "OBJECT",
		Properties: map[string]*llm.Schema{
			"codigo":      {Type: "STRING"},
			"nombre":      {Type: "STRING"},
			"estado":      {Type: "STRING", Enum: []string{"Aprobado", "En curso", "Reprobado", "Homologado", "Pendiente"}},
			"creditos":    {Type: "NUMBER"},
			"nota":        {Type: "NUMBER", Nullable: true},
			"periodoReal": {Type: "STRING", Nullable: true},
		},
		Required: []string{"codigo", "nombre", "estado", "creditos"},
	},
}

const transcriptPrompt = `Eres un asistente que estructura historiales académicos de la UNAD (Registro de Avance Individual).
Lista cada curso que aparece en el texto con su código, nombre, número de créditos y estado.
Usa solo estos estados: Aprobado, En curso, Reprobado, Homologado, Pendiente.
Un curso marcado como MATR está matriculado y debe reportarse como En curso.
Si el texto incluye la nota o el periodo académico en que se cursó, inclúyelos.

Texto del documento:
%s`

// LLMTranscriptParser asks a language model to structure transcript text.
type LLMTranscriptParser struct {
	client jsonGenerator
	logger *zap.Logger
}

// NewLLMTranscriptParser constructs the model-backed parser.
func NewLLMTranscriptParser(client jsonGenerator, logger *zap.Logger) *LLMTranscriptParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMTranscriptParser{client: client, logger: logger}
}

// ParseTranscript implements TranscriptParser.
func (p *LLMTranscriptParser) ParseTranscript(ctx context.Context, text string) ([]models.StudentCourseRecord, error) {
	var rows []transcriptRow
	prompt := fmt.Sprintf(transcriptPrompt, text)
	if err := p.client.GenerateJSON(ctx, prompt, transcriptSchema, &rows, llm.WithTemperature(0)); err != nil {
		return nil, fmt.Errorf("structure transcript: %w", err)
	}
	return normaliseRows(rows, p.logger), nil
}

// normaliseRows maps model output onto records. Rows without a code are
// dropped; unknown statuses become pending.
func normaliseRows(rows []transcriptRow, logger *zap.Logger) []models.StudentCourseRecord {
	out := make([]models.StudentCourseRecord, 0, len(rows))
	for _, row := range rows {
		code := strings.TrimSpace(row.Code)
		if code == "" {
			continue
		}
		status, ok := models.ParseCourseStatus(row.Status)
		if !ok {
			logger.Warn("unrecognised course status", zap.String("code", code), zap.String("status", row.Status))
		}
		credits := int(math.Round(row.Credits))
		if credits < 0 {
			credits = 0
		}
		out = append(out, models.StudentCourseRecord{
			Code:         code,
			Name:         strings.TrimSpace(row.Name),
			Status:       status,
			Credits:      credits,
			Grade:        row.Grade,
			RecordedTerm: strings.TrimSpace(row.Term),
		})
	}
	return out
}

// StaticTranscriptParser returns a fixed set of records. It backs local runs
// without model credentials and tests.
type StaticTranscriptParser struct {
	Records []models.StudentCourseRecord
	Err     error
}

// ParseTranscript implements TranscriptParser.
func (p StaticTranscriptParser) ParseTranscript(context.Context, string) ([]models.StudentCourseRecord, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return append([]models.StudentCourseRecord(nil), p.Records...), nil
}
