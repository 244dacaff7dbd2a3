// Package mfds wraps the Korean drug registry API
// (DrugPrdtPrmsnInfoService07 / getDrugPrdtMcpnDtlInq07), the external
// fallback behind the drug cache.
//
// Quirks the endpoint imposes: serviceKey is passed verbatim (never
// re-encoded), Korean search terms get exactly one round of URL encoding, and
// responses come back as JSON only when &type=json is appended.
package mfds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/retry"
)

const defaultBaseURL = "https://apis.data.go.kr/1471000/DrugPrdtPrmsnInfoService07/getDrugPrdtMcpnDtlInq07"

// Item is one product row: product name, main ingredient, company.
type Item struct {
	ProductName    string `json:"productName"`    // PRDUCT
	IngredientName string `json:"ingredientName"` // MTRAL_NM
	CompanyName    string `json:"companyName"`    // ENTRPS
}

type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{APIKey: apiKey, HTTPClient: &http.Client{Timeout: 10 * time.Second}}
}

// Well-known brand name -> ingredient fallbacks for when the product search
// finds nothing.
var productToIngredient = map[string]string{
	"타이레놀":  "아세트아미노펜",
	"페북트":   "페북소스타트",
	"페북스타트": "페북소스타트",
	"콜킨":    "콜치친",
	"울로릭":   "페북소스타트",
	"자일로릭":  "알로푸리놀",
}

type apiRow map[string]string

func (r apiRow) pick(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r[k]); v != "" {
			return v
		}
	}
	return ""
}

type apiResponse struct {
	Response struct {
		Header struct {
			ResultCode string `json:"resultCode"`
			ResultMsg  string `json:"resultMsg"`
		} `json:"header"`
		Body struct {
			TotalCount int             `json:"totalCount"`
			Items      json.RawMessage `json:"items"`
		} `json:"body"`
	} `json:"response"`
}

// items may arrive as an object or an array depending on result count.
func normalizeItems(raw json.RawMessage) []apiRow {
	if len(raw) == 0 {
		return nil
	}
	var many []apiRow
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	var one apiRow
	if err := json.Unmarshal(raw, &one); err == nil && len(one) > 0 {
		return []apiRow{one}
	}
	return nil
}

func parseResponse(body []byte) ([]Item, int, error) {
	var data apiResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, 0, fmt.Errorf("mfds: invalid JSON: %s", clip(body, 200))
	}
	code := data.Response.Header.ResultCode
	if code != "" && code != "00" {
		return nil, 0, fmt.Errorf("mfds: api error %s - %s", code, data.Response.Header.ResultMsg)
	}
	rows := normalizeItems(data.Response.Body.Items)
	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, Item{
			ProductName:    r.pick("PRDUCT", "prduct"),
			IngredientName: r.pick("MTRAL_NM", "mtral_nm"),
			CompanyName:    r.pick("ENTRPS", "entrps"),
		})
	}
	return items, data.Response.Body.TotalCount, nil
}

type queryParams struct {
	Product    string
	Ingredient string
}

func (c *Client) buildURL(p queryParams, pageNo, numOfRows int) string {
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	parts := []string{"serviceKey=" + c.APIKey}
	if p.Product != "" {
		parts = append(parts, "Prduct="+url.QueryEscape(p.Product))
	}
	if p.Ingredient != "" {
		parts = append(parts, "MTRAL_NM="+url.QueryEscape(p.Ingredient))
	}
	parts = append(parts, fmt.Sprintf("pageNo=%d", pageNo), fmt.Sprintf("numOfRows=%d", numOfRows))
	return base + "?" + strings.Join(parts, "&") + "&type=json"
}

func (c *Client) request(ctx context.Context, p queryParams, pageNo, numOfRows int) ([]Item, int, error) {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	reqURL := c.buildURL(p, pageNo, numOfRows)
	log.Printf("[MFDS] GET %s", MaskedURL(reqURL, c.APIKey))
	type result struct {
		items []Item
		total int
	}
	out, err := retry.Do(ctx, retry.Options{}, func() (result, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return result{}, err
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return result{}, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return result{}, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return result{}, fmt.Errorf("mfds: HTTP %d: %s", resp.StatusCode, clip(body, 200))
		}
		items, total, err := parseResponse(body)
		if err != nil {
			return result{}, err
		}
		return result{items: items, total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out.items, out.total, nil
}

// SearchProduct resolves a free-text drug name through the search ladder the
// registry needs for decent recall: wildcard, exact, prefix, then the
// ingredient column (with the brand-name fallback table).
func (c *Client) SearchProduct(ctx context.Context, itemName string, pageNo, numOfRows int) ([]Item, int, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, 0, fmt.Errorf("MFDS_DRUG_INFO_API_KEY is required")
	}
	name := strings.TrimSpace(itemName)
	if name == "" {
		return nil, 0, fmt.Errorf("itemName is required")
	}
	if pageNo <= 0 {
		pageNo = 1
	}
	if numOfRows <= 0 {
		numOfRows = 10
	}

	ladder := []queryParams{
		{Product: "%" + name + "%"},
		{Product: name},
		{Product: name + "%"},
	}
	ingredient := name
	if mapped, ok := productToIngredient[name]; ok {
		ingredient = mapped
	}
	ladder = append(ladder, queryParams{Ingredient: ingredient}, queryParams{Ingredient: ingredient + "%"})

	var lastErr error
	for i, p := range ladder {
		items, total, err := c.request(ctx, p, pageNo, numOfRows)
		if err != nil {
			lastErr = err
			continue
		}
		if len(items) > 0 || i == len(ladder)-1 {
			return items, total, nil
		}
	}
	if lastErr != nil {
		return nil, 0, lastErr
	}
	return nil, 0, nil
}

// MaskedURL hides all but a key prefix for logging.
func MaskedURL(rawURL, apiKey string) string {
	prefix := ""
	if len(apiKey) >= 4 {
		prefix = apiKey[:4]
	}
	return strings.Replace(rawURL, "serviceKey="+apiKey, "serviceKey="+prefix+"...", 1)
}

func clip(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n]
	}
	return s
}
