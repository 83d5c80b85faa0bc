package scope

import (
	"testing"

	"github.com/google/uuid"
)

func TestValidate(t *testing.T) {
	if err := ForClinic(uuid.New()).Validate(); err != nil {
		t.Errorf("clinic scope should be valid: %v", err)
	}
	if err := ForWorkspace(uuid.New()).Validate(); err != nil {
		t.Errorf("workspace scope should be valid: %v", err)
	}
	if err := (Scope{}).Validate(); err == nil {
		t.Error("empty scope must be invalid")
	}

	clinicID := uuid.New()
	wsID := uuid.New()
	both := Scope{ClinicID: &clinicID, WorkspaceID: &wsID}
	if err := both.Validate(); err == nil {
		t.Error("clinic and workspace together must be invalid")
	}
}

func TestMatches(t *testing.T) {
	clinicID := uuid.New()
	sc := ForClinic(clinicID)
	if !sc.Matches(&clinicID, nil) {
		t.Error("expected a match on the same clinic")
	}
	otherID := uuid.New()
	if sc.Matches(&otherID, nil) {
		t.Error("expected no match on a different clinic")
	}
	if sc.Matches(nil, &clinicID) {
		t.Error("a clinic scope must not match a workspace id")
	}
}
