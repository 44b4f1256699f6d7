package extractor

import (
	"fmt"
	"strings"
	"unicode"

	shlex "github.com/anmitsu/go-shlex"

	"github.com/platinummonkey/chainload/pkg/plugins"
)

// DirectivePrefix starts every metadata comment on a plugin type
const DirectivePrefix = "//chainload:"

const (
	directivePlugin       = "plugin"
	directiveProcess      = "process"
	directiveDependency   = "dependency"
	directiveIncompatible = "incompatible"
)

// parseDirectives fills decl from the //chainload: comment lines of a type's doc
func parseDirectives(decl *plugins.Declaration, lines []string) error {
	for _, line := range lines {
		if !strings.HasPrefix(line, DirectivePrefix) {
			continue
		}
		name, rest := splitDirective(strings.TrimPrefix(line, DirectivePrefix))

		args, err := shlex.Split(rest, true)
		if err != nil {
			return fmt.Errorf("malformed %s directive %q: %w", name, line, err)
		}

		switch name {
		case directivePlugin:
			if decl.HasMetadata {
				return fmt.Errorf("duplicate %s directive", directivePlugin)
			}
			if err := parsePluginDirective(decl, args); err != nil {
				return err
			}
		case directiveProcess:
			if len(args) == 0 {
				return fmt.Errorf("%s directive needs at least one process name", directiveProcess)
			}
			decl.Processes = append(decl.Processes, args...)
		case directiveDependency:
			dep, err := parseDependencyDirective(args)
			if err != nil {
				return err
			}
			decl.Dependencies = append(decl.Dependencies, dep)
		case directiveIncompatible:
			if len(args) == 0 {
				return fmt.Errorf("%s directive needs at least one GUID", directiveIncompatible)
			}
			decl.Incompatibilities = append(decl.Incompatibilities, args...)
		default:
			return fmt.Errorf("unknown directive %q", DirectivePrefix+name)
		}
	}
	return nil
}

// splitDirective separates the directive name from its arguments at the first
// run of whitespace
func splitDirective(body string) (name, rest string) {
	i := strings.IndexFunc(body, unicode.IsSpace)
	if i < 0 {
		return body, ""
	}
	return body[:i], strings.TrimLeftFunc(body[i:], unicode.IsSpace)
}

// parsePluginDirective reads guid=, name= and version= pairs. A missing name or
// version stays nil so validation can report it.
func parsePluginDirective(decl *plugins.Declaration, args []string) error {
	decl.HasMetadata = true

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("%s directive argument %q is not key=value", directivePlugin, arg)
		}
		switch key {
		case "guid":
			decl.GUID = value
		case "name":
			v := value
			decl.Name = &v
		case "version":
			v := value
			decl.Version = &v
		default:
			return fmt.Errorf("%s directive has unknown key %q", directivePlugin, key)
		}
	}
	return nil
}

// parseDependencyDirective reads "<guid> [min-version] [hard|soft]"
func parseDependencyDirective(args []string) (plugins.DeclaredDependency, error) {
	var dep plugins.DeclaredDependency

	if len(args) == 0 || len(args) > 3 {
		return dep, fmt.Errorf("%s directive wants <guid> [min-version] [hard|soft], got %d arguments",
			directiveDependency, len(args))
	}
	dep.GUID = args[0]

	for _, arg := range args[1:] {
		switch strings.ToLower(arg) {
		case "hard":
			dep.Soft = false
		case "soft":
			dep.Soft = true
		default:
			if dep.MinVersion != "" {
				return dep, fmt.Errorf("%s directive for %s has two versions", directiveDependency, dep.GUID)
			}
			dep.MinVersion = arg
		}
	}
	return dep, nil
}
