package services

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/models"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/usda"
)

// DniCaution is one triggered drug-nutrient caution.
type DniCaution struct {
	IngredientName string  `json:"ingredient_name"`
	Nutrient       string  `json:"nutrient"`
	NutrientValue  float64 `json:"nutrient_value"`
	NutrientUnit   string  `json:"nutrient_unit"`
	WarningLevel   string  `json:"warning_level,omitempty"`
	Message        string  `json:"message"`
}

type DniResult struct {
	HasCautions bool         `json:"hasCautions"`
	Cautions    []DniCaution `json:"cautions"`
	Guide       string       `json:"guide"`
}

// DniService cross-references a user's active medication ingredients against
// static caution rules and the nutrient profile of the foods being discussed.
// It produces a reference guide, never a diagnosis, and it fails open: any
// storage error yields an empty result so food analysis keeps working.
type DniService struct {
	DB *gorm.DB
}

func NewDniService(db *gorm.DB) *DniService {
	return &DniService{DB: db}
}

// Check runs the inference for one user and the foods resolved from their meal.
func (s *DniService) Check(userID uint, foods []usda.FoodProfile) DniResult {
	empty := DniResult{Cautions: []DniCaution{}}
	if len(foods) == 0 {
		return empty
	}

	ingredients := s.activeIngredients(userID)
	if len(ingredients) == 0 {
		return empty
	}

	var rules []models.DniRule
	if err := s.DB.Where("ingredient_name IN ?", ingredients).Find(&rules).Error; err != nil {
		log.Printf("[DNI] rule lookup failed: %v", err)
		return empty
	}
	if len(rules) == 0 {
		return empty
	}

	// highest value of each nutrient across all foods; presence means >0
	maxByKey := map[string]float64{}
	for _, f := range foods {
		for _, alias := range usda.DefaultNutrientAliases {
			if v := f.Nutrients.ValueByKey(alias.Key); v > maxByKey[alias.Key] {
				maxByKey[alias.Key] = v
			}
		}
	}

	var cautions []DniCaution
	seen := map[string]bool{}
	for _, rule := range rules {
		var alias usda.NutrientAlias
		value := 0.0
		for _, cand := range matchNutrientAliases(rule.TargetNutrient) {
			if v := maxByKey[cand.Key]; v > value {
				alias, value = cand, v
			}
		}
		if value <= 0 {
			continue
		}
		dedupKey := rule.IngredientName + "|" + alias.Key
		if seen[dedupKey] {
			continue
		}
		seen[dedupKey] = true

		msg := strings.TrimSpace(rule.Message)
		if msg == "" {
			msg = fmt.Sprintf("%s 함유 음식과 %s 복용 시 주의가 권장될 수 있습니다.", alias.Labels[0], rule.IngredientName)
		}
		cautions = append(cautions, DniCaution{
			IngredientName: rule.IngredientName,
			Nutrient:       alias.Labels[0],
			NutrientValue:  value,
			NutrientUnit:   alias.Unit,
			WarningLevel:   rule.WarningLevel,
			Message:        msg,
		})
	}
	if len(cautions) == 0 {
		return empty
	}
	return DniResult{HasCautions: true, Cautions: cautions, Guide: formatDniGuide(cautions)}
}

// activeIngredients resolves the distinct main ingredients behind a user's
// active medications. Errors degrade to an empty list.
func (s *DniService) activeIngredients(userID uint) []string {
	var meds []models.UserMedication
	if err := s.DB.Preload("Drug").
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&meds).Error; err != nil {
		log.Printf("[DNI] medication lookup failed: %v", err)
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, m := range meds {
		name := strings.TrimSpace(m.Drug.MainIngredient)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// matchNutrientAliases maps a rule's free-text nutrient label onto every
// canonical alias sharing that label. Some labels cover more than one key
// (비타민A reports as IU or as RAE µg depending on the food), so the caller
// folds the candidates by value. Exact normalized matches win; containment in
// either direction is the second pass, so "비타민 K1" still lands on vitamin K.
func matchNutrientAliases(target string) []usda.NutrientAlias {
	norm := normalizeLabel(target)
	if norm == "" {
		return nil
	}
	var exact, partial []usda.NutrientAlias
	for _, alias := range usda.DefaultNutrientAliases {
		matched, contained := false, false
		for _, label := range alias.Labels {
			ln := normalizeLabel(label)
			if ln == norm {
				matched = true
				break
			}
			if strings.Contains(norm, ln) || strings.Contains(ln, norm) {
				contained = true
			}
		}
		switch {
		case matched:
			exact = append(exact, alias)
		case contained:
			partial = append(partial, alias)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return partial
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// formatDniGuide renders the cautions as a Korean reference block. The wording
// stays deliberately non-diagnostic.
func formatDniGuide(cautions []DniCaution) string {
	var b strings.Builder
	b.WriteString("【데이터 기반 주의 가이드】\n")
	b.WriteString("복용 중인 약과 이 음식의 영양 성분 데이터를 비교한 결과, 아래 내용은 참고용으로만 활용해 주세요. 진단이나 확정적 결론이 아니며, 개인별 상담이 필요하면 의료진·약사에게 문의하시기 바랍니다.\n")
	for _, c := range cautions {
		fmt.Fprintf(&b, "- [%s ↔ %s] %s", c.IngredientName, c.Nutrient, c.Message)
		if c.NutrientValue > 0 {
			fmt.Fprintf(&b, " (함량: %.1f%s/100g)", c.NutrientValue, c.NutrientUnit)
		}
		b.WriteString("\n")
	}
	b.WriteString("위 내용은 참고용 가이드이며, 확진이 아닙니다.")
	return b.String()
}
