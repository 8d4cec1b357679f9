package clients

import "github.com/jomei/notionapi"

// NewNotionClient creates a Notion API client authenticated with an integration token.
func NewNotionClient(token string) *notionapi.Client {
	return notionapi.NewClient(notionapi.Token(token))
}
