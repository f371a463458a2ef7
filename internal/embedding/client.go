package embedding

import (
	"errors"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps the OpenAI client shared by the embedding and completion
// collaborators.
type Client struct {
	client *openai.Client
}

// NewClient creates the shared OpenAI client from OPENAI_API_KEY. A
// missing key fails here, not at the first API call.
func NewClient() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{client: &client}, nil
}

// Client exposes the underlying OpenAI client to the completion
// collaborator.
func (c *Client) Client() *openai.Client {
	return c.client
}
