package models

import (
	"errors"
	"testing"
)

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		expected bool
	}{
		{name: "patient", role: "patient", expected: true},
		{name: "researcher", role: "researcher", expected: true},
		{name: "admin is not assignable", role: "admin", expected: false},
		{name: "case sensitive", role: "Patient", expected: false},
		{name: "empty", role: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidRole(tt.role)
			if result != tt.expected {
				t.Errorf("IsValidRole(%q) = %v, want %v", tt.role, result, tt.expected)
			}
		})
	}
}

func TestHasAnyRole(t *testing.T) {
	tests := []struct {
		name     string
		roles    []Role
		allowed  []Role
		expected bool
	}{
		{name: "no roles", roles: nil, allowed: []Role{RolePatient}, expected: false},
		{name: "matching role", roles: []Role{RolePatient}, allowed: []Role{RolePatient}, expected: true},
		{name: "other role", roles: []Role{RoleResearcher}, allowed: []Role{RolePatient}, expected: false},
		{name: "both roles", roles: []Role{RolePatient, RoleResearcher}, allowed: []Role{RoleResearcher}, expected: true},
		{name: "any of allowed", roles: []Role{RoleResearcher}, allowed: []Role{RolePatient, RoleResearcher}, expected: true},
		{name: "empty allowed set", roles: []Role{RolePatient}, allowed: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasAnyRole(tt.roles, tt.allowed...); got != tt.expected {
				t.Errorf("HasAnyRole(%v, %v) = %v, want %v", tt.roles, tt.allowed, got, tt.expected)
			}
		})
	}
}

func TestAddRole(t *testing.T) {
	roles, changed := AddRole(nil, RolePatient)
	if !changed || len(roles) != 1 {
		t.Fatalf("expected patient to be added, got %v changed=%v", roles, changed)
	}

	roles, changed = AddRole(roles, RoleResearcher)
	if !changed || len(roles) != 2 {
		t.Fatalf("expected researcher to accumulate, got %v changed=%v", roles, changed)
	}

	again, changed := AddRole(roles, RolePatient)
	if changed || len(again) != 2 {
		t.Errorf("re-adding a held role should be a no-op, got %v changed=%v", again, changed)
	}
}

func TestForbiddenError(t *testing.T) {
	err := &ForbiddenError{Required: []Role{RolePatient, RoleResearcher}}

	if !errors.Is(err, ErrForbidden) {
		t.Error("ForbiddenError should match ErrForbidden")
	}
	if got, want := err.Error(), "requires patient or researcher role"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestExpertSpecialty(t *testing.T) {
	tests := []struct {
		name     string
		profile  ResearcherProfile
		expected string
	}{
		{
			name:     "first specialty and sector",
			profile:  ResearcherProfile{Specialties: []string{"Oncology", "Immunology"}, Sector: "Academia"},
			expected: "Oncology - Academia",
		},
		{
			name:     "sector when no specialties",
			profile:  ResearcherProfile{Sector: "Industry"},
			expected: "Industry - Industry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpertSpecialty(&tt.profile); got != tt.expected {
				t.Errorf("ExpertSpecialty() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExpertFromProfile(t *testing.T) {
	p := &ResearcherProfile{
		UserID:            "user-1",
		Name:              "Dr. Ada",
		Specialties:       []string{"Oncology"},
		ResearchInterests: []string{"immunotherapy"},
		Sector:            "Academia",
		YearsExperience:   12,
		AvailableHours:    "Flexible",
		Bio:               "bio",
	}

	e := ExpertFromProfile(p, "ada@example.com")

	if !e.IsPlatformMember || e.Location != "Global" {
		t.Errorf("unexpected directory flags: member=%v location=%q", e.IsPlatformMember, e.Location)
	}
	if e.UserID == nil || *e.UserID != "user-1" {
		t.Errorf("expected user id user-1, got %v", e.UserID)
	}
	if e.Specialty != "Oncology - Academia" {
		t.Errorf("unexpected specialty %q", e.Specialty)
	}
	if len(e.ResearchAreas) != 1 || e.ResearchAreas[0] != "immunotherapy" {
		t.Errorf("unexpected research areas %v", e.ResearchAreas)
	}
}
