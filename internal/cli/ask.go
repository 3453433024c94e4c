package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"gwi.com/testcase-dashboard/internal/core"
)

type askResult struct {
	Response  string          `json:"response"`
	TestCases json.RawMessage `json:"testCases"`
	Error     string          `json:"error"`
}

func newAskCommand(opts *options) *cobra.Command {
	var (
		useRAG      bool
		userContext string
	)

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send a message to the dashboard's test case generator",
		Long: `Send a feature description or QA question to a running dashboard.

By default the dashboard answers with its configured LLM persona, or with
mock content when no API key is set. With --rag the message goes to the
story service's RAG endpoint and the generated test cases are printed.`,
		Example: `  qactl ask "Users can reset their password by email"
  qactl ask --rag "Checkout with saved card"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := core.GenerateRequest{Message: args[0], Context: userContext}
			if useRAG {
				req.Model = core.ModeRAG
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			result, err := ask(ctx, opts.dashboardURL, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, result)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, headerStyle.Render("Answer:"))
			fmt.Fprintln(out)
			if useRAG {
				fmt.Fprintln(out, textStyle.Render(core.FormatTestCases(result.TestCases)))
			} else {
				fmt.Fprintln(out, textStyle.Render(strings.TrimSpace(result.Response)))
			}
			if result.Error != "" {
				fmt.Fprintln(out)
				fmt.Fprintln(out, warnStyle.Render(result.Error))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&useRAG, "rag", false, "Generate test cases through the story service's RAG endpoint")
	cmd.Flags().StringVar(&userContext, "context", "", "Instruction placed before the message in the LLM prompt")
	return cmd
}

// ask posts req to the dashboard's generation endpoint.
func ask(ctx context.Context, dashboardURL string, req core.GenerateRequest) (*askResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	endpoint := strings.TrimRight(dashboardURL, "/") + "/api/generate-test-cases"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("dashboard unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read dashboard response: %w", err)
	}

	var result askResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unexpected dashboard response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if result.Error == "" {
			result.Error = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("generation failed (status %d): %s", resp.StatusCode, result.Error)
	}
	return &result, nil
}
