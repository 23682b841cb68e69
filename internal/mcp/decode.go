package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/relicdex/internal/errors"
)

// decode unmarshals tool arguments into T. Arguments that do not fit T, such
// as a string where kb_search expects a number, are an INVALID_REQUEST.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, errors.NewInvalidRequest(fmt.Sprintf("arguments are not valid JSON: %v", err))
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, errors.NewInvalidRequest(fmt.Sprintf("invalid arguments for %s: %v", req.Params.Name, err))
	}
	return result, nil
}
