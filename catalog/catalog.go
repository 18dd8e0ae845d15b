/*
Package catalog provides the built-in shared inspection catalog.

PURPOSE:
  Defines the system types every organization starts with: each system
  type maps to an ordered list of required entity definitions (field
  sets). The engine seeds these per organization on first use and uses
  them to generate draft form templates.

SYSTEM TYPES:
  PSS - Pre-Action Sprinkler System
  SDS - Smoke Detection System
  FDS - Fire Door Survey
  DSI - Dry Standpipe Installation

REPEAT-PER-ASSET:
  Entities marked RepeatPerAsset are instantiated once per asset on the
  job (device tests, head checks). The rest are filled once per
  submission (general info, final verdict).

USAGE:
  engine := forms.NewEngine(store, jobs, catalog.BuiltIn(), policy)

SEE ALSO:
  - forms/generator.go: Template generation from these definitions
  - forms/engine.go: Per-organization catalog seeding
*/
package catalog

import "github.com/warp/inspection-engine/forms"

// BuiltIn returns the built-in system type definitions in catalog
// order. Callers must not mutate the returned slices.
func BuiltIn() []forms.SystemTypeDef {
	return []forms.SystemTypeDef{
		preActionSprinkler(),
		smokeDetection(),
		fireDoorSurvey(),
		dryStandpipe(),
	}
}

func preActionSprinkler() forms.SystemTypeDef {
	return forms.SystemTypeDef{
		Code: "PSS",
		Name: "Pre-Action Sprinkler System",
		Entities: []forms.EntityInput{
			{
				Title:     "General Information",
				SortOrder: 0,
				Fields: []forms.FieldInput{
					{Label: "Building name", Type: forms.FieldText, Required: true},
					{Label: "System location", Type: forms.FieldText, Required: true},
					{Label: "System accessible", Type: forms.FieldBoolean, Required: true},
				},
			},
			{
				Title:     "Control Valve Inspection",
				SortOrder: 1,
				Fields: []forms.FieldInput{
					{Label: "Valve position", Type: forms.FieldChoice, Required: true, Options: []string{"open", "closed", "partially open"}},
					{Label: "Valve supervised", Type: forms.FieldBoolean, Required: true},
					{Label: "Supervision method", Type: forms.FieldChoice, Required: false, Options: []string{"locked", "sealed", "electrical", "none"}},
				},
			},
			{
				Title:          "Sprinkler Head Check",
				SortOrder:      2,
				RepeatPerAsset: true,
				Fields: []forms.FieldInput{
					{Label: "Head condition", Type: forms.FieldChoice, Required: true, Options: []string{"good", "corroded", "painted", "damaged", "obstructed"}},
					{Label: "Clearance maintained", Type: forms.FieldBoolean, Required: true},
					{Label: "Notes", Type: forms.FieldText, Required: false},
				},
			},
			{
				Title:          "Air Pressure Reading",
				SortOrder:      3,
				RepeatPerAsset: true,
				Fields: []forms.FieldInput{
					{Label: "Supervisory air pressure (psi)", Type: forms.FieldNumber, Required: true},
					{Label: "Low pressure alarm tested", Type: forms.FieldBoolean, Required: true},
				},
			},
			{
				Title:     "Final Verdict",
				SortOrder: 4,
				Fields: []forms.FieldInput{
					{Label: "Overall result", Type: forms.FieldChoice, Required: true, Options: []string{"pass", "fail", "pass with deficiencies"}},
					{Label: "Deficiencies", Type: forms.FieldText, Required: false},
				},
			},
		},
	}
}

func smokeDetection() forms.SystemTypeDef {
	return forms.SystemTypeDef{
		Code: "SDS",
		Name: "Smoke Detection System",
		Entities: []forms.EntityInput{
			{
				Title:     "General Information",
				SortOrder: 0,
				Fields: []forms.FieldInput{
					{Label: "Panel manufacturer", Type: forms.FieldText, Required: true},
					{Label: "Panel model", Type: forms.FieldText, Required: false},
					{Label: "Panel in normal condition", Type: forms.FieldBoolean, Required: true},
				},
			},
			{
				Title:          "Detector Test",
				SortOrder:      1,
				RepeatPerAsset: true,
				Fields: []forms.FieldInput{
					{Label: "Detector type", Type: forms.FieldChoice, Required: true, Options: []string{"ionization", "photoelectric", "beam", "aspirating", "heat"}},
					{Label: "Functional test result", Type: forms.FieldChoice, Required: true, Options: []string{"pass", "fail"}},
					{Label: "Sensitivity (%/ft)", Type: forms.FieldNumber, Required: false},
					{Label: "Panel annunciation correct", Type: forms.FieldBoolean, Required: true},
				},
			},
			{
				Title:     "Notification Appliances",
				SortOrder: 2,
				Fields: []forms.FieldInput{
					{Label: "Audible devices operational", Type: forms.FieldBoolean, Required: true},
					{Label: "Visual devices operational", Type: forms.FieldBoolean, Required: true},
					{Label: "Measured sound level (dBA)", Type: forms.FieldNumber, Required: false},
				},
			},
			{
				Title:     "Final Verdict",
				SortOrder: 3,
				Fields: []forms.FieldInput{
					{Label: "Overall result", Type: forms.FieldChoice, Required: true, Options: []string{"pass", "fail", "pass with deficiencies"}},
					{Label: "Deficiencies", Type: forms.FieldText, Required: false},
				},
			},
		},
	}
}

func fireDoorSurvey() forms.SystemTypeDef {
	return forms.SystemTypeDef{
		Code: "FDS",
		Name: "Fire Door Survey",
		Entities: []forms.EntityInput{
			{
				Title:     "General Information",
				SortOrder: 0,
				Fields: []forms.FieldInput{
					{Label: "Building name", Type: forms.FieldText, Required: true},
					{Label: "Floor levels surveyed", Type: forms.FieldNumber, Required: true},
				},
			},
			{
				Title:          "Door Inspection",
				SortOrder:      1,
				RepeatPerAsset: true,
				Fields: []forms.FieldInput{
					{Label: "Label legible", Type: forms.FieldBoolean, Required: true},
					{Label: "Door closes and latches", Type: forms.FieldBoolean, Required: true},
					{Label: "Clearance under door (inches)", Type: forms.FieldNumber, Required: false},
					{Label: "Condition", Type: forms.FieldChoice, Required: true, Options: []string{"good", "minor damage", "major damage", "blocked open"}},
				},
			},
			{
				Title:     "Final Verdict",
				SortOrder: 2,
				Fields: []forms.FieldInput{
					{Label: "Overall result", Type: forms.FieldChoice, Required: true, Options: []string{"pass", "fail", "pass with deficiencies"}},
					{Label: "Deficiencies", Type: forms.FieldText, Required: false},
				},
			},
		},
	}
}

func dryStandpipe() forms.SystemTypeDef {
	return forms.SystemTypeDef{
		Code: "DSI",
		Name: "Dry Standpipe Installation",
		Entities: []forms.EntityInput{
			{
				Title:     "General Information",
				SortOrder: 0,
				Fields: []forms.FieldInput{
					{Label: "Standpipe class", Type: forms.FieldChoice, Required: true, Options: []string{"Class I", "Class II", "Class III"}},
					{Label: "Fire department connection accessible", Type: forms.FieldBoolean, Required: true},
				},
			},
			{
				Title:          "Hose Valve Check",
				SortOrder:      1,
				RepeatPerAsset: true,
				Fields: []forms.FieldInput{
					{Label: "Valve operates freely", Type: forms.FieldBoolean, Required: true},
					{Label: "Cap and chain present", Type: forms.FieldBoolean, Required: true},
					{Label: "Threads condition", Type: forms.FieldChoice, Required: true, Options: []string{"good", "damaged", "obstructed"}},
				},
			},
			{
				Title:     "Hydrostatic Test",
				SortOrder: 2,
				Fields: []forms.FieldInput{
					{Label: "Test pressure (psi)", Type: forms.FieldNumber, Required: true},
					{Label: "Pressure held for required duration", Type: forms.FieldBoolean, Required: true},
					{Label: "Pressure drop (psi)", Type: forms.FieldNumber, Required: false},
				},
			},
			{
				Title:     "Final Verdict",
				SortOrder: 3,
				Fields: []forms.FieldInput{
					{Label: "Overall result", Type: forms.FieldChoice, Required: true, Options: []string{"pass", "fail", "pass with deficiencies"}},
					{Label: "Deficiencies", Type: forms.FieldText, Required: false},
				},
			},
		},
	}
}
