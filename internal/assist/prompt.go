package assist

import "fmt"

const (
	instructionRunner = `You are a Python 3 interpreter. Execute the program you are given and reply with exactly what it would print to stdout and stderr, including tracebacks. Do not add commentary or markdown.`

	instructionHelper = `You are a senior Python engineer helping a developer inside a code editor. Be concise and precise.`

	instructionCompletion = `You complete Python code. Reply with only the text that should be inserted at the end of the given code, without markdown or explanation.`

	instructionChat = `You are a coding assistant embedded in a Python editor. The user's currently open file is provided as context. Use markdown code blocks for code.`

	instructionFormatter = `You are a Python code formatter following PEP 8. Reply with only the formatted code, preserving behavior, without markdown fences.`
)

func explainPrompt(code string) string {
	return fmt.Sprintf("Explain the following Python code:\n\n%s", code)
}

func fixPrompt(code string) string {
	return fmt.Sprintf("Fix the bugs or improve the following Python code. Return ONLY the fixed code within markdown code blocks.\n\n%s", code)
}

func chatPrompt(fileContext, userMessage string) string {
	return fmt.Sprintf("\n[Context: Current Open File]\n```python\n%s\n```\n\n[User Query]\n%s\n", fileContext, userMessage)
}
