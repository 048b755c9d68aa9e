package fx

import (
	"context"
	"fmt"
	"strings"

	"github.com/macrohuang/invest-log/internal/application"
	"github.com/macrohuang/invest-log/internal/infrastructure/httpx"
)

// Ensure OpenERAPI implements application.FXRateProvider.
var _ application.FXRateProvider = (*OpenERAPI)(nil)

// OpenERAPI fetches rates from open.er-api.com, the fallback when
// frankfurter is down or does not carry the pair.
type OpenERAPI struct {
	BaseURL string
	Client  *httpx.Client
}

func NewOpenERAPI(client *httpx.Client) *OpenERAPI {
	return &OpenERAPI{BaseURL: "https://open.er-api.com", Client: client}
}

func (o *OpenERAPI) Name() string { return "open_er_api" }

func (o *OpenERAPI) Rate(ctx context.Context, from, to string) (float64, error) {
	url := fmt.Sprintf("%s/v6/latest/%s", o.BaseURL, from)
	var payload struct {
		Result string             `json:"result"`
		Rates  map[string]float64 `json:"rates"`
	}
	if err := o.Client.GetJSON(ctx, url, &payload); err != nil {
		return 0, fmt.Errorf("open_er_api: %w", err)
	}
	if payload.Result != "" && strings.ToLower(payload.Result) != "success" {
		return 0, fmt.Errorf("open_er_api: provider status %s", payload.Result)
	}
	rate := payload.Rates[to]
	if rate <= 0 {
		return 0, fmt.Errorf("open_er_api: rate %s/%s missing in response", from, to)
	}
	return rate, nil
}
