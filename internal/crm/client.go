package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/P3dr7/SDR-IA/pkg/logging"
)

const (
	defaultGraphQLEndpoint = "https://api.pipefy.com/graphql"
	defaultTimeout         = 20 * time.Second

	// searchPageSize bounds one page of the card search; the adapter pages
	// through the full result set.
	searchPageSize = 50

	queryPipeFields = `query GetPipeFields($pipeId: ID!) {
  pipe(id: $pipeId) {
    id
    name
    start_form_fields {
      id
      label
      type
    }
  }
}`

	querySearchCards = `query SearchCards($pipeId: ID!, $first: Int!, $after: String) {
  cards(pipe_id: $pipeId, first: $first, after: $after) {
    pageInfo {
      hasNextPage
      endCursor
    }
    edges {
      node {
        id
        title
        fields {
          name
          value
          field {
            id
          }
        }
      }
    }
  }
}`

	mutationCreateCard = `mutation CreateCard($pipeId: ID!, $fields: [FieldValueInput!]!) {
  createCard(input: { pipe_id: $pipeId, fields_attributes: $fields }) {
    card {
      id
      title
      created_at
    }
  }
}`

	mutationUpdateCard = `mutation UpdateCard($cardId: ID!, $fields: [NodeFieldValueInput!]!) {
  updateFieldsValues(input: { nodeId: $cardId, values: $fields }) {
    success
  }
}`
)

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse[T any] struct {
	Data   T              `json:"data"`
	Errors []graphQLError `json:"errors,omitempty"`
}

type pipeFieldsData struct {
	Pipe struct {
		ID              string      `json:"id"`
		Name            string      `json:"name"`
		StartFormFields []PipeField `json:"start_form_fields"`
	} `json:"pipe"`
}

type cardsPageData struct {
	Cards struct {
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
		Edges []struct {
			Node Card `json:"node"`
		} `json:"edges"`
	} `json:"cards"`
}

type createCardData struct {
	CreateCard struct {
		Card Card `json:"card"`
	} `json:"createCard"`
}

type updateCardData struct {
	UpdateFieldsValues struct {
		Success bool `json:"success"`
	} `json:"updateFieldsValues"`
}

// CardsPage is one page of a card search.
type CardsPage struct {
	Cards       []Card
	HasNextPage bool
	EndCursor   string
}

// Client is a lightweight GraphQL client for the Pipefy CRM.
type Client struct {
	endpoint   string
	httpClient *http.Client
	token      string
	pipeID     string
	logger     *logging.Logger
}

// NewClient creates a new Pipefy GraphQL client. An empty token or pipe id
// leaves the client unconfigured; callers use Configured to decide whether to
// operate in simulated mode.
func NewClient(token, pipeID string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		endpoint: defaultGraphQLEndpoint,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		token:  strings.TrimSpace(token),
		pipeID: strings.TrimSpace(pipeID),
		logger: logger,
	}
}

// Configured reports whether credentials and a pipe id are present.
func (c *Client) Configured() bool {
	return c.token != "" && c.pipeID != ""
}

// PipeFields returns the start form fields of the configured pipe.
func (c *Client) PipeFields(ctx context.Context) ([]PipeField, error) {
	var out graphQLResponse[pipeFieldsData]
	if err := c.do(ctx, "GetPipeFields", queryPipeFields, map[string]interface{}{"pipeId": c.pipeID}, &out); err != nil {
		return nil, err
	}
	return out.Data.Pipe.StartFormFields, nil
}

// SearchCardsPage returns one page of cards in the pipe. Pass an empty cursor
// for the first page.
func (c *Client) SearchCardsPage(ctx context.Context, after string) (*CardsPage, error) {
	vars := map[string]interface{}{
		"pipeId": c.pipeID,
		"first":  searchPageSize,
	}
	if after != "" {
		vars["after"] = after
	}

	var out graphQLResponse[cardsPageData]
	if err := c.do(ctx, "SearchCards", querySearchCards, vars, &out); err != nil {
		return nil, err
	}

	page := &CardsPage{
		HasNextPage: out.Data.Cards.PageInfo.HasNextPage,
		EndCursor:   out.Data.Cards.PageInfo.EndCursor,
	}
	for _, edge := range out.Data.Cards.Edges {
		page.Cards = append(page.Cards, edge.Node)
	}
	return page, nil
}

// CreateCard creates a new card with the supplied field values.
func (c *Client) CreateCard(ctx context.Context, fields []FieldInput) (*Card, error) {
	var out graphQLResponse[createCardData]
	if err := c.do(ctx, "CreateCard", mutationCreateCard, map[string]interface{}{
		"pipeId": c.pipeID,
		"fields": fields,
	}, &out); err != nil {
		return nil, err
	}
	if out.Data.CreateCard.Card.ID == "" {
		return nil, fmt.Errorf("%w: create card returned empty id", ErrUpstream)
	}
	card := out.Data.CreateCard.Card
	return &card, nil
}

// UpdateCardFields updates the supplied field values on an existing card.
func (c *Client) UpdateCardFields(ctx context.Context, cardID string, fields []FieldInput) error {
	values := make([]map[string]interface{}, 0, len(fields))
	for _, f := range fields {
		values = append(values, map[string]interface{}{
			"fieldId": f.FieldID,
			"value":   f.FieldValue,
		})
	}

	var out graphQLResponse[updateCardData]
	if err := c.do(ctx, "UpdateCard", mutationUpdateCard, map[string]interface{}{
		"cardId": cardID,
		"fields": values,
	}, &out); err != nil {
		return err
	}
	if !out.Data.UpdateFieldsValues.Success {
		return fmt.Errorf("%w: update card %s was not applied", ErrUpstream, cardID)
	}
	return nil
}

func (c *Client) do(ctx context.Context, opName, query string, vars map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(map[string]interface{}{
		"query":     query,
		"variables": vars,
	})
	if err != nil {
		return fmt.Errorf("crm: marshal %s request: %w", opName, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("crm: build %s request: %w", opName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUpstream, opName, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %v", ErrUpstream, opName, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("crm request failed", "operation", opName, "status", resp.StatusCode)
		return fmt.Errorf("%w: %s: status %d", ErrUpstream, opName, resp.StatusCode)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %v", ErrUpstream, opName, err)
	}

	// GraphQL errors arrive with HTTP 200.
	if errs := graphQLErrorsOf(out); len(errs) > 0 {
		c.logger.Error("crm graphql error", "operation", opName, "message", errs[0].Message)
		return fmt.Errorf("%w: %s: %s", ErrUpstream, opName, errs[0].Message)
	}
	return nil
}

type erroredResponse interface {
	graphQLErrors() []graphQLError
}

func (r graphQLResponse[T]) graphQLErrors() []graphQLError { return r.Errors }

func graphQLErrorsOf(out interface{}) []graphQLError {
	if er, ok := out.(erroredResponse); ok {
		return er.graphQLErrors()
	}
	return nil
}
