// Package routing decides which teams must act on an observed equipment issue.
package routing

import (
	"io"
	"log/slog"

	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/rpggio/siteflow/internal/domain/team"
)

// Engine evaluates the routing table. It is immutable and safe for concurrent
// use.
type Engine struct {
	rules  compiledRules
	logger *slog.Logger
}

// NewEngine compiles rules into an engine.
func NewEngine(rules Rules, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{rules: compile(rules), logger: logger}
}

// Classify returns the rule class of an issue type.
func (e *Engine) Classify(issue string) IssueClass {
	if class, ok := e.rules.classes[issueKey(issue)]; ok {
		return class
	}
	return ClassUnrouted
}

// Route maps an issue at a site to its destinations.
func (e *Engine) Route(issue, deviceType, circle, siteCode string) DestinationSet {
	return e.RouteSite(issue, site.SiteRecord{
		SiteCode:   siteCode,
		DeviceType: deviceType,
		Circle:     circle,
	})
}

// RouteSite is Route with the full row available, so a missing circle can be
// recovered from the division.
func (e *Engine) RouteSite(issue string, rec site.SiteRecord) DestinationSet {
	switch e.Classify(issue) {
	case ClassCommunication:
		return DestinationSet{{Role: team.RoleRTU}}
	case ClassFieldOnly:
		return DestinationSet{{Role: team.RoleOM}}
	case ClassRepair:
		dests := DestinationSet{{Role: team.RoleOM}}
		if vendor, ok := e.rules.vendorOverrides[site.NormalizeCode(rec.SiteCode)]; ok {
			return append(dests, Destination{Role: team.RoleAMC, Vendor: vendor})
		}
		if !e.rules.amcDeviceTypes[upper(rec.DeviceType)] {
			return dests
		}
		return append(dests, Destination{Role: team.RoleAMC, Vendor: e.vendorFor(rec)})
	default:
		return nil
	}
}

// VendorOverride reports the vendor pinned to a site code, if any.
func (e *Engine) VendorOverride(siteCode string) (string, bool) {
	vendor, ok := e.rules.vendorOverrides[site.NormalizeCode(siteCode)]
	return vendor, ok
}

// ResolveCircle returns the row's circle, falling back to the division table.
func (e *Engine) ResolveCircle(circle, division string) (string, bool) {
	if c := upper(circle); c != "" {
		return c, true
	}
	c, ok := e.rules.divisionCircles[upper(division)]
	return c, ok
}

func (e *Engine) vendorFor(rec site.SiteRecord) string {
	circle, ok := e.ResolveCircle(rec.Circle, rec.Division)
	if !ok {
		e.logger.Warn("no circle for AMC routing, vendor left unassigned",
			"site_code", rec.SiteCode, "division", rec.Division)
		return ""
	}
	if rec.Circle == "" {
		e.logger.Warn("circle missing, resolved from division",
			"site_code", rec.SiteCode, "division", rec.Division, "circle", circle)
	}
	vendor, ok := e.rules.circleVendors[circle]
	if !ok {
		e.logger.Warn("no AMC vendor for circle", "site_code", rec.SiteCode, "circle", circle)
		return ""
	}
	return vendor
}
