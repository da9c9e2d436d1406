package director

import (
	"fmt"
	"strings"

	"github.com/mertkiray/promptvfx/internal/splat"
	"github.com/mertkiray/promptvfx/internal/timefn"
)

const summarySystemTemplate = `You are a world-class animation designer that converts an abstract description of an animation into a structured breakdown of its phases.
The animation plays for %d second(s).
The animation can be applied to any object.
Do not prescribe the object new textures.
Do not insert any new assets or particles.
Do not concern yourself with sound.`

var behaviorSubject = map[splat.Role]string{
	splat.Position: "the center positions",
	splat.Color:    "the colors",
	splat.Opacity:  "the opacities",
}

const behaviorSystemTemplate = `You are an expert in animating a 3D point cloud object made of N elements.
From an abstract breakdown of an animation you will extract the behavior of %[1]s of the elements.

**Goal**:
- Decide for each phase of the breakdown which points can be realized by changing %[1]s only.
- If a phase cannot be implemented that way, state that %[1]s stay the same as in the previous phase.
- For the phases that can be implemented, state clearly and simply how %[1]s of all elements behave.
- Do not justify your analysis.`

const codeSystemTemplate = `You are an expert coding assistant. Implement a behavior breakdown of an animation as a Tengo function.
Use this template (delimited with triple backticks):

` + "```" + `
math := import("math")

%[1]s := func(t, %[2]s) {
	// t: current time in seconds, from 0.0 to %[3]d.0
	// %[2]s: array of N rows, each row an array of %[4]d floats
	out := []
	for row in %[2]s {
		out = append(out, copy(row))
	}
	// Your code goes here
	return out
}
` + "```" + `

**Coding Notes**:
- %[5]s
- Only the "math" and "rand" modules may be imported.
- Each phase should last until t <= end_of_phase.
- For each phase after the first, you may call %[1]s recursively with the end time of the previous phase.
- Always return an array of N rows with %[4]d numbers each, with no NaN or infinite values.

**Only output your final code in a code block. Do not add text outside the code block.**`

var roleNotes = map[splat.Role]string{
	splat.Position: "Rows are (x, y, z) with +X forward, +Y left and +Z up.",
	splat.Color:    "Rows are (r, g, b) in [0.0, 1.0].",
	splat.Opacity:  "Rows are (opacity) in [0.0, 1.0], 0 fully transparent.",
}

const feedbackSystemTemplate = `Enhance a given Tengo function so a 3D point cloud animation better matches its description, by changing %s only.
Review the animation description, the existing function code and the feedback, then revise the code.
Keep the function name and signature. Return rows of %d numbers.

**Only output your final code in a code block. Do not add text outside the code block.**`

const feedbackUserTemplate = `**Animation Description**: "%s"

**Function Code**:
` + "```" + `
%s
` + "```" + `

**Feedback**: "%s"`

const retryTemplate = "The function was rejected: %v\nReturn a corrected version of the whole function in a single code block."

func summarySystem(duration int) string {
	return fmt.Sprintf(summarySystemTemplate, duration)
}

func behaviorSystem(role splat.Role) string {
	return fmt.Sprintf(behaviorSystemTemplate, behaviorSubject[role])
}

func codeSystem(role splat.Role, duration int) string {
	name := timefn.FunctionName(role)
	arg := strings.TrimPrefix(name, "compute_")
	return fmt.Sprintf(codeSystemTemplate, name, arg, duration, role.Width(), roleNotes[role])
}

func feedbackSystem(role splat.Role) string {
	return fmt.Sprintf(feedbackSystemTemplate, behaviorSubject[role], role.Width())
}

func feedbackUser(description, code, feedback string) string {
	return fmt.Sprintf(feedbackUserTemplate, description, code, feedback)
}
