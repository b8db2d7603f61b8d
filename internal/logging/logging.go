// Package logging sets up the root logger and the per-component subsystems.
package logging

import (
	"context"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/terraform-plugin-log/tflog"
	"github.com/hashicorp/terraform-plugin-log/tfsdklog"

	"github.com/isometry/ldap-collector/internal/harvest"
	"github.com/isometry/ldap-collector/internal/ldap"
)

// Name is the root logger name.
const Name = "ldap-collector"

// HTTPSubsystem is the subsystem used by the HTTP surface.
const HTTPSubsystem = "http"

// Subsystems lists every subsystem registered by New.
var Subsystems = []string{ldap.LogSubsystem, harvest.LogSubsystem, HTTPSubsystem}

// ParseLevel maps a level name to an hclog level. Unknown names map to info.
func ParseLevel(name string) hclog.Level {
	level := hclog.LevelFromString(strings.TrimSpace(name))
	if level == hclog.NoLevel {
		return hclog.Info
	}
	return level
}

// New returns a context carrying a JSON root logger on stderr and every
// subsystem at the named level.
func New(ctx context.Context, level string) context.Context {
	lvl := ParseLevel(level)

	ctx = tfsdklog.NewRootProviderLogger(ctx,
		tfsdklog.WithLogName(Name),
		tfsdklog.WithLevel(lvl))

	return WithSubsystems(ctx, lvl)
}

// WithSubsystems registers every subsystem on the root logger carried by ctx.
func WithSubsystems(ctx context.Context, level hclog.Level) context.Context {
	for _, name := range Subsystems {
		ctx = tflog.NewSubsystem(ctx, name, tflog.WithLevel(level))
	}
	return ctx
}
