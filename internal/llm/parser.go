package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// cleanMarkdownWrapper strips a markdown code fence some providers wrap
// around JSON output despite instructions not to.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	return content
}

// parseExpenseResponse enforces the strict output contract: the content must
// be a JSON object, and amount must be positive.
func parseExpenseResponse(content string) (ExpenseResponse, error) {
	content = cleanMarkdownWrapper(content)

	var resp ExpenseResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return ExpenseResponse{}, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if !resp.Amount.IsPositive() {
		return ExpenseResponse{}, fmt.Errorf("no valid amount in response")
	}

	return resp, nil
}
