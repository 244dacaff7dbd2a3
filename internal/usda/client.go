// Package usda queries the USDA FoodData Central API and normalizes food
// nutrient data to a per-100g profile.
package usda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/retry"
)

const defaultBaseURL = "https://api.nal.usda.gov/fdc/v1"

// NutrientsPer100g carries the nutrient values DNI matching and prompt
// formatting care about, normalized to 100g of food.
type NutrientsPer100g struct {
	EnergyKcal     float64  `json:"energy_kcal"`
	ProteinG       float64  `json:"protein_g"`
	CarbohydrateG  float64  `json:"carbohydrate_g"`
	FatG           float64  `json:"fat_g"`
	FiberG         *float64 `json:"fiber_g"`
	SugarG         *float64 `json:"sugar_g"`
	SodiumMg       *float64 `json:"sodium_mg"`
	CalciumMg      *float64 `json:"calcium_mg"`
	IronMg         *float64 `json:"iron_mg"`
	PotassiumMg    *float64 `json:"potassium_mg"`
	VitaminCMg     *float64 `json:"vitamin_c_mg"`
	VitaminAIU     *float64 `json:"vitamin_a_iu"`
	VitaminDUg     *float64 `json:"vitamin_d_ug"`
	VitaminARaeUg  *float64 `json:"vitamin_a_rae_ug"`
	MagnesiumMg    *float64 `json:"magnesium_mg"`
	VitaminKUg     *float64 `json:"vitamin_k_ug"`
	CholineMg      *float64 `json:"choline_mg"`
}

// FoodProfile is one searched food with its normalized nutrients.
type FoodProfile struct {
	Description string           `json:"description"`
	Nutrients   NutrientsPer100g `json:"nutrients"`
}

type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{APIKey: apiKey, HTTPClient: &http.Client{Timeout: 12 * time.Second}}
}

// FDC nutrient ids mapped onto per-100g keys.
var nutrientSetters = map[int]func(*NutrientsPer100g, float64){
	1008: func(n *NutrientsPer100g, v float64) { n.EnergyKcal = v },
	1003: func(n *NutrientsPer100g, v float64) { n.ProteinG = v },
	1005: func(n *NutrientsPer100g, v float64) { n.CarbohydrateG = v },
	1004: func(n *NutrientsPer100g, v float64) { n.FatG = v },
	1079: func(n *NutrientsPer100g, v float64) { n.FiberG = &v },
	2000: func(n *NutrientsPer100g, v float64) { n.SugarG = &v },
	1093: func(n *NutrientsPer100g, v float64) { n.SodiumMg = &v },
	1087: func(n *NutrientsPer100g, v float64) { n.CalciumMg = &v },
	1089: func(n *NutrientsPer100g, v float64) { n.IronMg = &v },
	1092: func(n *NutrientsPer100g, v float64) { n.PotassiumMg = &v },
	1162: func(n *NutrientsPer100g, v float64) { n.VitaminCMg = &v },
	1104: func(n *NutrientsPer100g, v float64) { n.VitaminAIU = &v },
	1114: func(n *NutrientsPer100g, v float64) { n.VitaminDUg = &v },
	1106: func(n *NutrientsPer100g, v float64) { n.VitaminARaeUg = &v },
	1090: func(n *NutrientsPer100g, v float64) { n.MagnesiumMg = &v },
	1180: func(n *NutrientsPer100g, v float64) { n.CholineMg = &v },
	1185: func(n *NutrientsPer100g, v float64) { n.VitaminKUg = &v },
}

type searchResponse struct {
	TotalHits int        `json:"totalHits"`
	Foods     []foodItem `json:"foods"`
}

type foodNutrient struct {
	NutrientID   int     `json:"nutrientId"`
	NutrientName string  `json:"nutrientName"`
	UnitName     string  `json:"unitName"`
	Value        float64 `json:"value"`
}

type foodItem struct {
	FDCID           int64          `json:"fdcId"`
	Description     string         `json:"description"`
	DataType        string         `json:"dataType"`
	ServingSize     float64        `json:"servingSize"`
	ServingSizeUnit string         `json:"servingSizeUnit"`
	FoodNutrients   []foodNutrient `json:"foodNutrients"`
}

// SearchAndGetNutrients searches foods by keyword and returns up to maxFoods
// per-100g profiles for prompt injection and DNI matching.
func (c *Client) SearchAndGetNutrients(ctx context.Context, query string, maxFoods int) ([]FoodProfile, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("USDA_API_KEY is required")
	}
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("query is required")
	}
	if maxFoods <= 0 {
		maxFoods = 2
	}
	pageSize := maxFoods
	if pageSize < 5 {
		pageSize = 5
	}
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	reqURL := fmt.Sprintf("%s/foods/search?api_key=%s&query=%s&pageSize=%d",
		baseURL, url.QueryEscape(c.APIKey), url.QueryEscape(q), pageSize)

	parsed, err := retry.Do(ctx, retry.Options{}, func() (searchResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return searchResponse{}, fmt.Errorf("create USDA request: %w", err)
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return searchResponse{}, fmt.Errorf("execute USDA request: %w", err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return searchResponse{}, fmt.Errorf("read USDA response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return searchResponse{}, fmt.Errorf("USDA search failed: %d %s", resp.StatusCode, clipBody(body))
		}
		var out searchResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return searchResponse{}, fmt.Errorf("decode USDA response: %w", err)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	profiles := make([]FoodProfile, 0, maxFoods)
	for _, food := range parsed.Foods {
		if len(profiles) >= maxFoods {
			break
		}
		profiles = append(profiles, FoodProfile{
			Description: food.Description,
			Nutrients:   nutrientsPer100g(food),
		})
	}
	return profiles, nil
}

// nutrientsPer100g rescales a food's nutrient values to a 100g basis when the
// serving size is known in grams.
func nutrientsPer100g(food foodItem) NutrientsPer100g {
	servingG := 100.0
	if strings.EqualFold(food.ServingSizeUnit, "g") && food.ServingSize > 0 {
		servingG = food.ServingSize
	}
	ratio := 100 / servingG
	var out NutrientsPer100g
	for _, n := range food.FoodNutrients {
		set, ok := nutrientSetters[n.NutrientID]
		if !ok {
			continue
		}
		set(&out, math.Round(n.Value*ratio*100)/100)
	}
	return out
}

func clipBody(b []byte) string {
	s := string(b)
	if len(s) > 200 {
		return s[:200]
	}
	return s
}

// FormatContextForPrompt renders food profiles as Korean prompt text (g, mg,
// kcal units).
func FormatContextForPrompt(items []FoodProfile) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		n := item.Nutrients
		lines := []string{
			fmt.Sprintf("[%s] 100g당:", item.Description),
			fmt.Sprintf("  에너지 %g kcal, 단백질 %g g, 탄수화물 %g g, 지방 %g g", n.EnergyKcal, n.ProteinG, n.CarbohydrateG, n.FatG),
		}
		appendIf := func(label, unit string, v *float64) {
			if v != nil {
				lines = append(lines, fmt.Sprintf("  %s %g %s", label, *v, unit))
			}
		}
		appendIf("식이섬유", "g", n.FiberG)
		appendIf("당류", "g", n.SugarG)
		appendIf("나트륨", "mg", n.SodiumMg)
		appendIf("칼슘", "mg", n.CalciumMg)
		appendIf("칼륨", "mg", n.PotassiumMg)
		appendIf("철", "mg", n.IronMg)
		appendIf("비타민 C", "mg", n.VitaminCMg)
		appendIf("비타민 A", "IU", n.VitaminAIU)
		appendIf("비타민 D", "µg", n.VitaminDUg)
		appendIf("비타민 K", "µg", n.VitaminKUg)
		parts = append(parts, strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n")
}
