package plugins

import (
	"fmt"
	"regexp"
)

var guidRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// Declaration is the raw, unvalidated form of a plugin unit as read from a source
// directive or a manifest. Pointer fields distinguish "absent" from "empty".
type Declaration struct {
	TypeName          string
	HasMetadata       bool
	GUID              string
	Name              *string
	Version           *string
	Processes         []string
	Dependencies      []DeclaredDependency
	Incompatibilities []string
}

// DeclaredDependency is a raw dependency declaration
type DeclaredDependency struct {
	GUID       string
	MinVersion string
	Soft       bool
}

// ValidationError explains why a declaration was rejected
type ValidationError struct {
	TypeName string `json:"type_name"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidGUID checks a GUID against the allowed identifier pattern
func IsValidGUID(guid string) bool {
	return guid != "" && guidRegex.MatchString(guid)
}

// ValidateDeclaration applies the metadata rules and builds a candidate.
// The caller fills in location fields.
func ValidateDeclaration(decl *Declaration) (*Candidate, error) {
	typeName := decl.TypeName

	if !decl.HasMetadata {
		return nil, &ValidationError{
			TypeName: typeName,
			Field:    "metadata",
			Message:  fmt.Sprintf("Skipping over type [%s] as no metadata attribute is specified", typeName),
		}
	}

	if !IsValidGUID(decl.GUID) {
		return nil, &ValidationError{
			TypeName: typeName,
			Field:    "guid",
			Message:  fmt.Sprintf("Skipping type [%s] because its GUID [%s] is of an illegal format.", typeName, decl.GUID),
		}
	}

	if decl.Version == nil {
		return nil, &ValidationError{
			TypeName: typeName,
			Field:    "version",
			Message:  fmt.Sprintf("Skipping type [%s] because its version is invalid.", typeName),
		}
	}
	version, err := ParseVersion(*decl.Version)
	if err != nil {
		return nil, &ValidationError{
			TypeName: typeName,
			Field:    "version",
			Message:  fmt.Sprintf("Skipping type [%s] because its version is invalid.", typeName),
		}
	}

	if decl.Name == nil {
		return nil, &ValidationError{
			TypeName: typeName,
			Field:    "name",
			Message:  fmt.Sprintf("Skipping type [%s] because its name is null.", typeName),
		}
	}

	candidate := &Candidate{
		Metadata: Metadata{
			GUID:    decl.GUID,
			Name:    *decl.Name,
			Version: version,
		},
		TypeName: typeName,
	}

	for _, p := range decl.Processes {
		candidate.Processes = append(candidate.Processes, ProcessFilter{ProcessName: p})
	}

	for _, dep := range decl.Dependencies {
		ref, err := validateDependency(typeName, dep)
		if err != nil {
			return nil, err
		}
		candidate.Dependencies = append(candidate.Dependencies, ref)
	}

	for _, guid := range decl.Incompatibilities {
		if guid == "" {
			continue
		}
		candidate.Incompatibilities = append(candidate.Incompatibilities, IncompatibilityRef{GUID: guid})
	}

	return candidate, nil
}

func validateDependency(typeName string, dep DeclaredDependency) (DependencyRef, error) {
	if dep.GUID == "" {
		return DependencyRef{}, &ValidationError{
			TypeName: typeName,
			Field:    "dependencies",
			Message:  fmt.Sprintf("Skipping type [%s] because it declares a dependency without a GUID.", typeName),
		}
	}

	var minVersion Version
	if dep.MinVersion != "" {
		v, err := ParseVersion(dep.MinVersion)
		if err != nil {
			return DependencyRef{}, &ValidationError{
				TypeName: typeName,
				Field:    "dependencies",
				Message: fmt.Sprintf("Skipping type [%s] because dependency [%s] has an invalid minimum version [%s].",
					typeName, dep.GUID, dep.MinVersion),
			}
		}
		minVersion = v
	}

	flags := HardDependency
	if dep.Soft {
		flags = SoftDependency
	}

	return DependencyRef{GUID: dep.GUID, MinimumVersion: minVersion, Flags: flags}, nil
}
