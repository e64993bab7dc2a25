package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultGraphQLPath is where the backend serves GraphQL.
const DefaultGraphQLPath = "/graphql"

// GraphQLError is returned when the backend answers with an `errors` array.
type GraphQLError struct {
	Operation string
	Messages  []string
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("graphql %s: %s", e.Operation, strings.Join(e.Messages, "; "))
}

type graphQLRequest struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// GraphQL posts one named operation and decodes `data.<field>` into out.
func (c *HTTPClient) GraphQL(ctx context.Context, path, operation, field, query string, variables map[string]any, out any) error {
	if path == "" {
		path = DefaultGraphQLPath
	}
	response, err := c.DoReq(ctx, "POST", path, graphQLRequest{
		OperationName: operation,
		Query:         query,
		Variables:     variables,
	}, nil)
	if err != nil {
		return err
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(response.Bytes(), &envelope); err != nil {
		return fmt.Errorf("graphql %s: failed to unmarshal response: %w", operation, err)
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
		}
		return &GraphQLError{Operation: operation, Messages: messages}
	}
	if out == nil {
		return nil
	}
	raw, ok := envelope.Data[field]
	if !ok {
		return fmt.Errorf("graphql %s: response has no '%s' field", operation, field)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("graphql %s: failed to unmarshal '%s': %w", operation, field, err)
	}
	return nil
}
