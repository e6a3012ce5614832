// Package config loads simulation scenarios from a directory.
//
// A scenario file is JSON (.json) or YAML (.yaml, .yml) and describes a
// field, an ordered list of vehicles and, optionally, the result lines a
// run is expected to produce. The scenario ID is the file name without its
// extension.
//
// Example scenario (scenarios/default.json):
//
//	{
//	  "name": "default",
//	  "field": {"width": 10, "height": 10},
//	  "vehicles": [
//	    {"name": "A", "x": 1, "y": 2, "heading": "N", "commands": "FFRFFFFRRL"},
//	    {"name": "B", "x": 7, "y": 8, "heading": "W", "commands": "FFLFFFFFFF"}
//	  ],
//	  "expected": [
//	    "- A, collides with B at (5,4) at step 7",
//	    "- B, collides with A at (5,4) at step 7"
//	  ]
//	}
//
// Loaded scenarios are validated and cached. The default scenario is
// default.* from the directory, or the built-in engine.DefaultScenario when
// the directory has none.
package config
