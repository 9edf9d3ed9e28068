package pipeline

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentstudio/core"
)

// agentInput composes the prompt an agent receives, weaving in upstream
// outputs from earlier stages by role. The hard stage barrier guarantees
// every referenced output is complete by the time it is read.
func (r *run) agentInput(desc core.AgentDescriptor) string {
	prompt := r.req.Prompt

	switch desc.Role {
	case core.RoleRouter:
		return prompt

	case core.RoleCoder:
		return fmt.Sprintf("Task: %s\n\nRouter decision:\n%s", prompt, r.outputByRole(core.RoleRouter))

	case core.RoleAnalyzer:
		return fmt.Sprintf("Task: %s\n\nRouter analysis:\n%s", prompt, r.outputByRole(core.RoleRouter))

	case core.RoleValidator:
		return fmt.Sprintf("Review this code:\n%s", r.outputByRole(core.RoleCoder))

	case core.RoleSynthesizer:
		parts := []string{fmt.Sprintf("Original task: %s", prompt)}
		upstream := []struct {
			role  core.Role
			label string
		}{
			{core.RoleRouter, "Router"},
			{core.RoleCoder, "Coder"},
			{core.RoleAnalyzer, "Analyzer"},
			{core.RoleValidator, "Validator"},
		}
		for _, u := range upstream {
			if out, ok := r.outputByRoleOK(u.role); ok {
				parts = append(parts, fmt.Sprintf("\n--- %s ---\n%s", u.label, out))
			}
		}
		return strings.Join(parts, "\n")

	default:
		return prompt
	}
}

func (r *run) outputByRole(role core.Role) string {
	out, _ := r.outputByRoleOK(role)
	return out
}

func (r *run) outputByRoleOK(role core.Role) (string, bool) {
	id, ok := r.byRole[role]
	if !ok {
		return "", false
	}
	return r.state.Output(id)
}
