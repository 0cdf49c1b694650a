package ctfd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dimasma0305/ctfscrape/function/client"
	"github.com/dimasma0305/ctfscrape/function/log"
)

// Parse information from ctfd and get data response
func (cs *ctfdScraper) getData(ctx context.Context, url string, data any) error {
	var tmp struct {
		Message string
		Success *bool
		Data    json.RawMessage `json:"data"`
	}
	if err := cs.client.GetJSON(ctx, url, &tmp); err != nil {
		return err
	}
	if tmp.Success != nil && !*tmp.Success {
		// permission-related messages mean the session is not good enough
		message := strings.ToLower(tmp.Message)
		if strings.Contains(message, "permission") ||
			strings.Contains(message, "access") ||
			strings.Contains(message, "readable") ||
			strings.Contains(message, "protected") ||
			strings.Contains(message, "forbidden") {
			log.ErrorH2("permission error: %s", tmp.Message)
			return &client.AuthError{URL: url, Status: 200}
		}
		return fmt.Errorf("request end with %s status", tmp.Message)
	}
	if len(tmp.Data) == 0 {
		return client.Malformed(url, fmt.Errorf("no data in response"))
	}
	if err := json.Unmarshal(tmp.Data, data); err != nil {
		return client.Malformed(url, err)
	}
	return nil
}
