package core

import "fmt"

const snippetLimit = 30

// TruncateSnippet shortens s to its first 30 runes followed by "..." when it
// is longer than that.
func TruncateSnippet(s string) string {
	runes := []rune(s)
	if len(runes) > snippetLimit {
		return string(runes[:snippetLimit]) + "..."
	}
	return s
}

func mockTestCases(feature string) string {
	return fmt.Sprintf(mockTestCasesTemplate, TruncateSnippet(feature))
}

func mockQASupport(question string) string {
	return fmt.Sprintf(mockQASupportTemplate, TruncateSnippet(question))
}

const mockTestCasesTemplate = `# Test Cases for: %s

## Test Case ID: TC-001
**Test Case Title**: Verify Basic Functionality
**Objective**: Ensure the core functionality works as expected
**Preconditions**: User is logged in with valid credentials
**Test Steps**:
1. Navigate to the feature page
2. Enter valid input data
3. Submit the form
4. Verify the results
**Expected Results**: Feature performs the primary function correctly
**Priority**: High
**Test Type**: Functional

## Test Case ID: TC-002
**Test Case Title**: Validate Input Validation
**Objective**: Ensure the system properly validates user inputs
**Preconditions**: User has access to the feature
**Test Steps**:
1. Navigate to the feature page
2. Enter invalid data (e.g., special characters, extremely long text)
3. Submit the form
4. Observe system response
**Expected Results**: System should display appropriate error messages and prevent submission
**Priority**: Medium
**Test Type**: Validation

## Test Case ID: TC-003
**Test Case Title**: Test Error Handling
**Objective**: Verify the system handles errors gracefully
**Preconditions**: System is in a state where errors can occur
**Test Steps**:
1. Create conditions that would trigger an error
2. Execute the feature under these conditions
3. Observe how the system responds
**Expected Results**: System should display user-friendly error messages and recover gracefully
**Priority**: High
**Test Type**: Error Handling

## Test Case ID: TC-004
**Test Case Title**: Performance Under Load
**Objective**: Ensure the feature performs well under heavy usage
**Preconditions**: Test environment capable of simulating load
**Test Steps**:
1. Set up load testing tools
2. Simulate multiple concurrent users
3. Monitor system performance
**Expected Results**: System maintains acceptable response times and doesn't crash
**Priority**: Medium
**Test Type**: Performance

## Test Case ID: TC-005
**Test Case Title**: Mobile Responsiveness
**Objective**: Verify the feature works correctly on mobile devices
**Preconditions**: Access to mobile devices or emulators
**Test Steps**:
1. Access the feature on various mobile devices/screen sizes
2. Test all functionality
3. Check UI layout and usability
**Expected Results**: Feature is fully functional and visually correct on all tested devices
**Priority**: Medium
**Test Type**: UI/Compatibility

Note: These are mock test cases generated for demonstration purposes. In a production environment, the AI would generate more specific test cases tailored to your exact feature requirements.`

const mockQASupportTemplate = `# QA Support Response

## Question: %s

## Answer:

I'm here to help with software testing and QA-related questions! Here are some common topics I can assist with:

### 🧪 **Testing Methodologies**
- Unit Testing, Integration Testing, System Testing
- Manual vs Automated Testing approaches
- Test-Driven Development (TDD) and Behavior-Driven Development (BDD)

### 🛠️ **Testing Tools & Frameworks**
- Popular testing frameworks (JUnit, TestNG, PyTest, etc.)
- Test automation tools (Selenium, Cypress, Playwright)
- Performance testing tools (JMeter, LoadRunner)

### 📋 **QA Processes**
- Test planning and strategy
- Bug reporting and tracking
- Test case design and management
- Quality metrics and KPIs

### 🔍 **Best Practices**
- Test case writing guidelines
- Test data management
- Environment setup and management
- Continuous Integration/Continuous Testing

**Note**: For test case generation based on your specific user stories, please use the RAG mode instead. I'm here to provide guidance and answer questions about QA processes and methodologies.

What specific aspect of software testing would you like to learn more about?`
