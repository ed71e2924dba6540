package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
)

const defaultMondayAPIURL = "https://api.monday.com/v2"
const mondayAPIVersion = "2024-01"

// Items are fetched with cursor pagination; the column catalog comes back
// per value so tables survive boards whose columns were renamed mid-stream.
const mondayBoardQuery = `
query ($boardId: [ID!], $cursor: String) {
  boards(ids: $boardId) {
    name
    items_page(limit: 100, cursor: $cursor) {
      cursor
      items {
        id
        name
        column_values {
          id
          text
          type
          column {
            title
          }
        }
      }
    }
  }
}`

type mondayRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type mondayResponse struct {
	Data struct {
		Boards []struct {
			Name      string `json:"name"`
			ItemsPage struct {
				Cursor string       `json:"cursor"`
				Items  []mondayItem `json:"items"`
			} `json:"items_page"`
		} `json:"boards"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type mondayItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ColumnValues []struct {
		ID     string  `json:"id"`
		Text   *string `json:"text"`
		Type   string  `json:"type"`
		Column struct {
			Title string `json:"title"`
		} `json:"column"`
	} `json:"column_values"`
}

// FetchBoard pulls every item from one Monday.com board, following the
// items_page cursor until exhausted, and assembles a raw table keyed by
// column title. Reserved columns come first; the remaining columns keep
// their first-appearance order. Cells whose text is missing are filled with
// the sentinel at fetch time, matching what the boards' own API explorer
// shows for empty cells.
func FetchBoard(cfg Config, boardID string) (Table, error) {
	table := Table{Columns: []string{ColItemID, ColItemName}}
	seenCols := map[string]bool{ColItemID: true, ColItemName: true}

	cursor := ""
	page := 0
	for {
		variables := map[string]any{"boardId": []string{boardID}}
		if cursor != "" {
			variables["cursor"] = cursor
		}

		resp, err := postMondayQuery(cfg, mondayBoardQuery, variables)
		if err != nil {
			return Table{}, err
		}
		page++

		if len(resp.Data.Boards) == 0 {
			break
		}
		itemsPage := resp.Data.Boards[0].ItemsPage
		log.Printf("monday fetch board=%s page=%d items=%d", boardID, page, len(itemsPage.Items))

		for _, item := range itemsPage.Items {
			row := Row{ColItemID: item.ID, ColItemName: item.Name}
			for _, cv := range item.ColumnValues {
				title := cv.Column.Title
				if title == "" {
					continue
				}
				if !seenCols[title] {
					seenCols[title] = true
					table.Columns = append(table.Columns, title)
				}
				if cv.Text == nil || *cv.Text == "" {
					row[title] = Sentinel
				} else {
					row[title] = *cv.Text
				}
			}
			table.Rows = append(table.Rows, row)
		}

		cursor = itemsPage.Cursor
		if cursor == "" || len(itemsPage.Items) == 0 {
			break
		}
	}

	log.Printf("monday fetch done board=%s rows=%d cols=%d", boardID, len(table.Rows), len(table.Columns))
	return table, nil
}

func postMondayQuery(cfg Config, query string, variables map[string]any) (*mondayResponse, error) {
	payload, err := json.Marshal(mondayRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	apiURL := cfg.MondayAPIURL
	if apiURL == "" {
		apiURL = defaultMondayAPIURL
	}

	req, err := http.NewRequest("POST", apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", cfg.MondayAPIToken)
	req.Header.Set("API-Version", mondayAPIVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := externalHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("Monday API returned %d: %s", resp.StatusCode, string(body))
	}

	var result mondayResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("GraphQL error: %s", result.Errors[0].Message)
	}

	return &result, nil
}
