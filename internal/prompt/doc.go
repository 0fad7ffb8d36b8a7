// Package prompt asks the operator for guard codes and acknowledgments.
//
// On a terminal the questions are rendered with huh; otherwise plain lines
// are read from the input, which keeps the prompter scriptable and testable.
package prompt
