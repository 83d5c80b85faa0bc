package checkin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// zerologAuditor writes check-in audit events as structured log lines.
type zerologAuditor struct {
	log zerolog.Logger
}

// NewZerologAuditor returns an Auditor backed by the given logger.
func NewZerologAuditor(log zerolog.Logger) Auditor {
	return &zerologAuditor{log: log}
}

func (a *zerologAuditor) RecordCheckIn(_ context.Context, patientID uuid.UUID, appointmentID *uuid.UUID, actor string, at time.Time) error {
	evt := a.log.Info().
		Str("event", "patient_checked_in").
		Str("patient_id", patientID.String()).
		Str("actor", actor).
		Time("arrival_time", at)
	if appointmentID != nil {
		evt = evt.Str("appointment_id", appointmentID.String())
	}
	evt.Msg("check-in recorded")
	return nil
}
