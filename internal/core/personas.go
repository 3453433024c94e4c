package core

import (
	"fmt"
	"strings"

	"gwi.com/testcase-dashboard/internal/config"
)

// DefaultChatContext is the context the dashboard chat sends along with every message.
const DefaultChatContext = "Generate comprehensive test cases for the following feature or user story"

// Persona bundles the prompts and the offline fallback for one generation mode.
type Persona struct {
	Name         string
	SystemPrompt string
	// Advisory is returned next to mock content so the UI can flag it.
	Advisory string

	prompt func(message, context string) string
	mock   func(message string) string
}

func (p Persona) Prompt(message, context string) string {
	return p.prompt(message, context)
}

// Mock renders the deterministic offline answer for message.
func (p Persona) Mock(message string) string {
	return p.mock(message)
}

const qaSupportSystemPrompt = `You are an expert QA engineer and software testing consultant. Your role is to provide guidance, best practices, and answers to questions about software testing, quality assurance processes, and testing methodologies.

You should NOT generate test cases. Instead, focus on:
- Explaining testing concepts and methodologies
- Providing best practices for QA processes
- Answering questions about testing tools and frameworks
- Giving advice on test planning and strategy
- Explaining different types of testing (unit, integration, system, etc.)
- Discussing test automation approaches
- Providing guidance on bug reporting and tracking
- Explaining quality metrics and KPIs

Keep your responses professional, informative, and focused on QA/software testing topics. If someone asks for test case generation, politely redirect them to use the RAG mode instead.`

const testCaseGeneratorSystemPrompt = `You are an expert QA engineer who writes thorough, executable test cases.

For the feature or user story you are given, write test cases in Markdown. For each test case include:
- Test Case ID (TC-001, TC-002, ...)
- Test Case Title
- Objective
- Preconditions
- Test Steps (numbered)
- Expected Results
- Priority (High, Medium or Low)
- Test Type (Functional, Validation, Error Handling, Performance, UI/Compatibility, Security)

Cover the main success path, input validation, error handling, edge cases and non-functional concerns where relevant. Do not invent requirements that contradict the user story.`

var personas = map[string]Persona{
	config.PersonaQASupport: {
		Name:         config.PersonaQASupport,
		SystemPrompt: qaSupportSystemPrompt,
		Advisory:     "API key missing or error occurred. Using mock QA support for demonstration.",
		prompt: func(message, _ string) string {
			return fmt.Sprintf("User Question: %s\n\nPlease provide a helpful answer about software testing, QA processes, or best practices. Do NOT generate test cases - focus on providing guidance and information.", message)
		},
		mock: mockQASupport,
	},
	config.PersonaTestCaseGenerator: {
		Name:         config.PersonaTestCaseGenerator,
		SystemPrompt: testCaseGeneratorSystemPrompt,
		Advisory:     "API key missing or error occurred. Using mock test cases for demonstration.",
		prompt: func(message, context string) string {
			context = strings.TrimSpace(context)
			if context == "" {
				context = DefaultChatContext
			}
			return fmt.Sprintf("%s:\n\n%s", context, message)
		},
		mock: mockTestCases,
	},
}

// PersonaFor returns the persona registered under name, falling back to QA support.
func PersonaFor(name string) Persona {
	if p, ok := personas[name]; ok {
		return p
	}
	return personas[config.PersonaQASupport]
}
