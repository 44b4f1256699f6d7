// Package plugins holds the data model shared by every chainloader stage.
//
// # Overview
//
// A Candidate is a plugin unit found by static inspection. Its identity is a
// Metadata triple (GUID, Name, Version). GUIDs compare case-insensitively through
// GUIDKey. Everything on a Candidate is fixed once extraction produced it, except
// the instance, which SetInstance records at most once after a successful load.
//
// # Versions
//
// Version is a four component tuple (major, minor, build, revision) compared
// component by component. Missing components parse as zero, so "1.2" equals
// "1.2.0.0". The zero version means "any" when used as a minimum.
//
// # Declarations
//
// A Declaration is what a unit claims about itself before validation, read from
// source directives or from a plugin.yaml manifest:
//
//	binary: greeter.so
//	host_version: 1.0.0
//	units:
//	  - type: Greeter
//	    metadata:
//	      guid: com.example.greeter
//	      name: Greeter
//	      version: 1.2.0
//	    dependencies:
//	      - guid: com.example.core
//	        min_version: "1.0"
//
// ValidateDeclaration turns a Declaration into a Candidate or rejects it with a
// *ValidationError.
//
// # Diagnostics
//
// Diagnostics is the append-only log of one run. Every entry carries a kind and a
// severity. Errors returns the entries that describe problems, leaving out
// expected skips such as a process filter mismatch.
package plugins
