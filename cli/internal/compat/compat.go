// Package compat inspects the server version string reported by MySQL.
package compat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-version"
)

var (
	// ForShareSince is the first MySQL release accepting SELECT ... FOR SHARE
	ForShareSince = version.Must(version.NewVersion("8.0.1"))

	leadingVersion = regexp.MustCompile(`^\d+(\.\d+){0,2}`)
)

// Server describes a database server by its reported version
type Server struct {
	Raw     string
	Version *version.Version
	MariaDB bool
}

// Parse parses the output of SELECT VERSION(), e.g. "8.0.36-0ubuntu0.22.04.1"
// or "10.11.6-MariaDB-1:10.11.6+maria~ubu2204".
func Parse(raw string) (*Server, error) {
	trimmed := strings.TrimSpace(raw)
	// MariaDB 10.x used to report a fake 5.5.5- prefix
	trimmed = strings.TrimPrefix(trimmed, "5.5.5-")

	match := leadingVersion.FindString(trimmed)
	if match == "" {
		return nil, fmt.Errorf("invalid server version %q", raw)
	}
	v, err := version.NewVersion(match)
	if err != nil {
		return nil, fmt.Errorf("invalid server version %q: %w", raw, err)
	}

	return &Server{
		Raw:     raw,
		Version: v,
		MariaDB: strings.Contains(strings.ToLower(raw), "mariadb"),
	}, nil
}

// SupportsForShare reports whether the server accepts FOR SHARE.
// MariaDB only understands LOCK IN SHARE MODE.
func (s *Server) SupportsForShare() bool {
	return !s.MariaDB && s.Version.GreaterThanOrEqual(ForShareSince)
}

// Flavor returns "MariaDB" or "MySQL"
func (s *Server) Flavor() string {
	if s.MariaDB {
		return "MariaDB"
	}
	return "MySQL"
}

func (s *Server) String() string {
	return fmt.Sprintf("%s %s", s.Flavor(), s.Version)
}
