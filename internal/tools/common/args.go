package common

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/mcp-calendar/internal/errs"
)

// DecodeArguments copies the request's arguments into dst, which is usually a
// pointer to a struct with json tags. Unknown fields are ignored.
func DecodeArguments(request mcp.CallToolRequest, dst any) error {
	args := request.GetArguments()
	if args == nil {
		return errs.New(errs.Validation, "No arguments provided")
	}

	data, err := json.Marshal(args)
	if err != nil {
		return errs.Wrap(errs.Validation, fmt.Sprintf("Invalid arguments: %v", err), err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errs.Wrap(errs.Validation, fmt.Sprintf("Invalid arguments: %v", err), err)
	}
	return nil
}

// StringSliceArg returns args[key] as a string slice, skipping non-string items.
func StringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
