package probe

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"schemadoctor/internal/dataapi"
)

// Outcome classifies a single probe run.
type Outcome string

const (
	OutcomeSchemaOK         Outcome = "schema_ok"
	OutcomeSchemaMismatch   Outcome = "schema_needs_fix"
	OutcomeAccessDenied     Outcome = "access_denied"
	OutcomeTransportFailure Outcome = "transport_failure"
)

// Report is the result of one probe. StatusCode is 0 when no response was
// obtained. Detail carries the server's error message, the raw response body,
// or the transport error text.
type Report struct {
	Outcome    Outcome `json:"outcome"`
	StatusCode int     `json:"status_code"`
	Detail     string  `json:"detail,omitempty"`
}

// OK reports whether the schema accepted the probe record.
func (r Report) OK() bool {
	return r.Outcome == OutcomeSchemaOK
}

// Record is the default probe fixture: the minimal valid insert for the
// project table. An ill-formed record would make schema_needs_fix ambiguous
// with a malformed probe, so every field carries a well-formed literal.
type Record struct {
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	Completed   bool   `json:"completed"`
}

// DefaultRecord builds a throwaway candidate record with a fresh project id.
func DefaultRecord() Record {
	return Record{
		ProjectID:   uuid.NewString(),
		Name:        "schemadoctor probe",
		Description: "synthetic record inserted to verify the table schema",
		Priority:    "medium",
		Status:      "planned",
		Completed:   false,
	}
}

type creator interface {
	CreateRecord(ctx context.Context, table string, record any) ([]byte, int, error)
}

type logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Prober submits one candidate record per Run and classifies the response.
// It is a diagnostic snapshot, not a repair mechanism: exactly one network
// call, no retries. An accepted record becomes a real row on the server.
type Prober struct {
	client creator
	logger logger
	table  string
}

func New(client creator, logger logger, table string) *Prober {
	return &Prober{client: client, logger: logger, table: table}
}

// Run submits the given record, or the default fixture when record is nil.
// All failures fold into the report; Run never returns an error for a
// rejected or unreachable server.
func (p *Prober) Run(ctx context.Context, record any) Report {
	if record == nil {
		record = DefaultRecord()
	}

	_, status, err := p.client.CreateRecord(ctx, p.table, record)
	if err == nil {
		p.logger.Info("schema probe passed, table accepts inserts", "table", p.table, "status", status)
		return Report{Outcome: OutcomeSchemaOK, StatusCode: status}
	}

	var apiErr *dataapi.APIError
	if errors.As(err, &apiErr) {
		report := Report{StatusCode: apiErr.StatusCode, Detail: apiErr.Detail()}
		switch apiErr.StatusCode {
		case 401, 403:
			report.Outcome = OutcomeAccessDenied
			p.logger.Warn("schema probe denied, credentials lack insert access",
				"table", p.table, "status", apiErr.StatusCode, "detail", report.Detail)
		default:
			report.Outcome = OutcomeSchemaMismatch
			p.logger.Warn("schema probe rejected, migration needed",
				"table", p.table, "status", apiErr.StatusCode, "detail", report.Detail)
		}
		return report
	}

	p.logger.Error("schema probe could not reach the data api", "table", p.table, "error", err)
	return Report{Outcome: OutcomeTransportFailure, Detail: err.Error()}
}
