// Package scope carries the clinic/workspace tenancy filter that every
// patient-data-bearing repository call must include.
package scope

import (
	"fmt"

	"github.com/google/uuid"
)

// Scope identifies the tenancy of a record. Exactly one of ClinicID or
// WorkspaceID must be set.
type Scope struct {
	ClinicID    *uuid.UUID `json:"clinic_id,omitempty"`
	WorkspaceID *uuid.UUID `json:"workspace_id,omitempty"`
}

// ForClinic returns a clinic-scoped filter.
func ForClinic(id uuid.UUID) Scope { return Scope{ClinicID: &id} }

// ForWorkspace returns a workspace-scoped filter.
func ForWorkspace(id uuid.UUID) Scope { return Scope{WorkspaceID: &id} }

// IsZero reports whether neither tenancy id is set.
func (s Scope) IsZero() bool { return s.ClinicID == nil && s.WorkspaceID == nil }

// Validate enforces the clinic-xor-workspace rule.
func (s Scope) Validate() error {
	if s.ClinicID == nil && s.WorkspaceID == nil {
		return fmt.Errorf("scope requires a clinic_id or a workspace_id")
	}
	if s.ClinicID != nil && s.WorkspaceID != nil {
		return fmt.Errorf("scope cannot carry both a clinic_id and a workspace_id")
	}
	return nil
}

// Matches reports whether the given record tenancy falls inside the filter.
func (s Scope) Matches(clinicID, workspaceID *uuid.UUID) bool {
	if s.ClinicID != nil {
		return clinicID != nil && *clinicID == *s.ClinicID
	}
	if s.WorkspaceID != nil {
		return workspaceID != nil && *workspaceID == *s.WorkspaceID
	}
	return true
}
