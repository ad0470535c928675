/*
Package form holds the static, ordered definition of the fields the wizard collects.

A Definition is pure data: the engine only asks it for the step at an index,
the number of steps and whether an index is the last one. Definitions are
loaded from YAML (see Load/Parse) or taken from the embedded default.

Example YAML:

	cancel_keyword: "❌ Cancel"
	completed_text: "Thanks!"
	cancelled_text: "Cancelled."
	steps:
	  - field: firstname
	    label: "👤 Name"
	    prompt: "Please enter your name:"
*/
package form
