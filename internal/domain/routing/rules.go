package routing

import (
	"strings"

	"github.com/rpggio/siteflow/internal/domain/site"
)

// Default vendor names.
const (
	VendorSouth = "VendorSouth"
	VendorNorth = "VendorNorth"
)

// Rules is the routing table. Keys of the lookup maps are matched after
// normalisation, so callers may supply them in any case.
type Rules struct {
	// CommunicationIssues route to the RTU/Communication team only.
	CommunicationIssues []string `yaml:"communication_issues"`
	// RepairIssues always route to O&M and may add an AMC vendor.
	RepairIssues []string `yaml:"repair_issues"`
	// FieldIssues route to O&M only.
	FieldIssues []string `yaml:"field_issues"`
	// AMCDeviceTypes are device types whose repair issues also go to AMC.
	AMCDeviceTypes []string `yaml:"amc_device_types"`
	// VendorOverrides maps a site code to the vendor that always serves it.
	VendorOverrides map[string]string `yaml:"vendor_overrides"`
	// CircleVendors maps a circle to the AMC vendor serving it.
	CircleVendors map[string]string `yaml:"circle_vendors"`
	// DivisionCircles is the fallback when a row carries no circle.
	DivisionCircles map[string]string `yaml:"division_circles"`
}

// DefaultRules returns the built-in routing table.
func DefaultRules() Rules {
	return Rules{
		CommunicationIssues: []string{"RTU Issue", "CS Issue"},
		RepairIssues:        []string{"Faulty", "Spare Required"},
		FieldIssues: []string{
			"Bipassed",
			"Line Idle",
			"AT Jump Cut",
			"Dismantled",
			"Replaced",
			"Equipment Idle",
			"AT-PT Chamber Flashover",
		},
		AMCDeviceTypes: []string{"RMU"},
		VendorOverrides: map[string]string{
			"BLR017": VendorNorth,
			"HBL042": VendorNorth,
			"DEL108": VendorSouth,
		},
		CircleVendors: map[string]string{
			"SOUTH": VendorSouth,
			"WEST":  VendorSouth,
			"NORTH": VendorNorth,
			"EAST":  VendorNorth,
		},
		DivisionCircles: map[string]string{
			"BANGALORE":   "SOUTH",
			"MYSORE":      "SOUTH",
			"CHENNAI":     "SOUTH",
			"MUMBAI":      "WEST",
			"PUNE":        "WEST",
			"AHMEDABAD":   "WEST",
			"DELHI":       "NORTH",
			"LUCKNOW":     "NORTH",
			"CHANDIGARH":  "NORTH",
			"KOLKATA":     "EAST",
			"PATNA":       "EAST",
			"BHUBANESWAR": "EAST",
		},
	}
}

type compiledRules struct {
	classes         map[string]IssueClass
	amcDeviceTypes  map[string]bool
	vendorOverrides map[string]string
	circleVendors   map[string]string
	divisionCircles map[string]string
}

func compile(r Rules) compiledRules {
	c := compiledRules{
		classes:         make(map[string]IssueClass),
		amcDeviceTypes:  make(map[string]bool),
		vendorOverrides: make(map[string]string, len(r.VendorOverrides)),
		circleVendors:   make(map[string]string, len(r.CircleVendors)),
		divisionCircles: make(map[string]string, len(r.DivisionCircles)),
	}
	// Earlier classes win when an issue is listed twice.
	for _, group := range []struct {
		class  IssueClass
		issues []string
	}{
		{ClassCommunication, r.CommunicationIssues},
		{ClassRepair, r.RepairIssues},
		{ClassFieldOnly, r.FieldIssues},
	} {
		for _, issue := range group.issues {
			key := issueKey(issue)
			if _, ok := c.classes[key]; !ok {
				c.classes[key] = group.class
			}
		}
	}
	for _, dt := range r.AMCDeviceTypes {
		c.amcDeviceTypes[upper(dt)] = true
	}
	for code, vendor := range r.VendorOverrides {
		c.vendorOverrides[site.NormalizeCode(code)] = vendor
	}
	for circle, vendor := range r.CircleVendors {
		c.circleVendors[upper(circle)] = vendor
	}
	for division, circle := range r.DivisionCircles {
		c.divisionCircles[upper(division)] = upper(circle)
	}
	return c
}

func issueKey(issue string) string {
	return strings.ToLower(strings.Join(strings.Fields(issue), " "))
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
