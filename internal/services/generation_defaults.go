package services

import (
	"fmt"
	"strings"

	"github.com/huangang/ideaforge/backend/internal/models"
)

func defaultQuestions() []GeneratedQuestion {
	return []GeneratedQuestion{
		{Section: "Users", Question: "Who are the primary users of this project and what do they need most?", InputType: "textarea", Required: true},
		{Section: "Problem", Question: "What problem does this project solve, and how is it solved today?", InputType: "textarea", Required: true},
		{Section: "Workflow", Question: "Describe the main workflow a user goes through from start to finish.", InputType: "textarea", Required: true},
		{Section: "Constraints", Question: "Are there technical, budget or timeline constraints we should know about?", InputType: "textarea"},
		{Section: "Success", Question: "How will you measure whether the project is successful?", InputType: "text"},
	}
}

func defaultFeatures() []GeneratedFeature {
	return []GeneratedFeature{
		{
			Title:              "User accounts",
			Description:        "Sign up, sign in and manage a basic profile.",
			Priority:           "High",
			Effort:             "Medium",
			Category:           "Core",
			AcceptanceCriteria: "A visitor can create an account, log in and log out.",
		},
		{
			Title:              "Dashboard",
			Description:        "A home screen summarising the user's data and recent activity.",
			Priority:           "Medium",
			Effort:             "Medium",
			Category:           "UI/UX",
			AcceptanceCriteria: "A logged-in user sees their recent items on the home screen.",
		},
		{
			Title:       "Notifications",
			Description: "Email notifications for important events.",
			Priority:    "Low",
			Effort:      "Small",
			Category:    "Integration",
		},
	}
}

func defaultProjectPrompt(in *GenerationInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Build %s\n\n%s\n", in.Name, in.Description)
	if in.TechStack != "" {
		fmt.Fprintf(&b, "\nUse this stack: %s.\n", in.TechStack)
	}
	if len(in.Features) > 0 {
		b.WriteString("\nImplement these features in order:\n")
		for i, f := range in.Features {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, f.Title, f.Description)
		}
	}
	return b.String()
}

func defaultFeaturePrompt(in *GenerationInput, f *models.Feature) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Implement \"%s\" in %s\n\n%s\n", f.Title, in.Name, f.Description)
	if f.AcceptanceCriteria != "" {
		fmt.Fprintf(&b, "\nDone when: %s\n", f.AcceptanceCriteria)
	}
	if f.TechnicalNotes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", f.TechnicalNotes)
	}
	return b.String()
}

func defaultSummary(in *GenerationInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n%s\n", in.Name, in.Description)
	if len(in.Features) > 0 {
		fmt.Fprintf(&b, "\nPlanned features (%d):\n", len(in.Features))
		for _, f := range in.Features {
			fmt.Fprintf(&b, "- %s (%s)\n", f.Title, f.Priority)
		}
	}
	return b.String()
}
