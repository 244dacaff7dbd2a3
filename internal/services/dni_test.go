package services

import (
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/models"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/usda"
)

func f64(v float64) *float64 { return &v }

func seedMedication(t *testing.T, gdb *gorm.DB, userID uint, product, ingredient string, active bool) {
	t.Helper()
	drug := models.DrugMaster{ProductName: product, MainIngredient: ingredient}
	if err := gdb.Create(&drug).Error; err != nil {
		t.Fatalf("create drug: %v", err)
	}
	if err := gdb.Create(&models.UserMedication{UserID: userID, DrugID: drug.ID, IsActive: active}).Error; err != nil {
		t.Fatalf("create medication: %v", err)
	}
}

func TestDniCheckTriggersCaution(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewDniService(gdb)

	seedMedication(t, gdb, 1, "쿠마딘정", "와파린", true)
	rule := models.DniRule{
		IngredientName: "와파린",
		TargetNutrient: "비타민K",
		WarningLevel:   "high",
		Message:        "비타민 K가 많은 음식은 와파린의 효과를 떨어뜨릴 수 있습니다.",
	}
	if err := gdb.Create(&rule).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}

	foods := []usda.FoodProfile{
		{Description: "Spinach, raw", Nutrients: usda.NutrientsPer100g{VitaminKUg: f64(482.9)}},
		{Description: "Rice, cooked", Nutrients: usda.NutrientsPer100g{}},
	}
	res := svc.Check(1, foods)
	if !res.HasCautions || len(res.Cautions) != 1 {
		t.Fatalf("res = %+v, want one caution", res)
	}
	c := res.Cautions[0]
	if c.IngredientName != "와파린" || c.Nutrient != "비타민K" {
		t.Errorf("caution = %+v", c)
	}
	if c.NutrientValue != 482.9 || c.NutrientUnit != "µg" {
		t.Errorf("value = %v %s", c.NutrientValue, c.NutrientUnit)
	}
	if c.Message != rule.Message {
		t.Errorf("message = %q", c.Message)
	}
	if !strings.HasPrefix(res.Guide, "【데이터 기반 주의 가이드】") {
		t.Errorf("guide missing header: %q", res.Guide)
	}
	if !strings.Contains(res.Guide, "진단이나 확정적 결론이 아니며") {
		t.Errorf("guide missing reference-only disclaimer line: %q", res.Guide)
	}
	if !strings.HasSuffix(res.Guide, "위 내용은 참고용 가이드이며, 확진이 아닙니다.") {
		t.Errorf("guide missing footer: %q", res.Guide)
	}
}

func TestDniCheckFallbackMessage(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewDniService(gdb)

	seedMedication(t, gdb, 1, "리시노프릴정", "리시노프릴", true)
	if err := gdb.Create(&models.DniRule{IngredientName: "리시노프릴", TargetNutrient: "칼륨"}).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}

	foods := []usda.FoodProfile{{Description: "Banana", Nutrients: usda.NutrientsPer100g{PotassiumMg: f64(358)}}}
	res := svc.Check(1, foods)
	if len(res.Cautions) != 1 {
		t.Fatalf("cautions = %+v", res.Cautions)
	}
	want := "칼륨 함유 음식과 리시노프릴 복용 시 주의가 권장될 수 있습니다."
	if res.Cautions[0].Message != want {
		t.Errorf("message = %q, want %q", res.Cautions[0].Message, want)
	}
}

func TestDniCheckAliasMatching(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewDniService(gdb)

	seedMedication(t, gdb, 1, "쿠마딘정", "와파린", true)
	// spacing and case variants must still resolve to vitamin K
	if err := gdb.Create(&models.DniRule{IngredientName: "와파린", TargetNutrient: "Vitamin k"}).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}

	foods := []usda.FoodProfile{{Description: "Kale", Nutrients: usda.NutrientsPer100g{VitaminKUg: f64(390)}}}
	res := svc.Check(1, foods)
	if len(res.Cautions) != 1 || res.Cautions[0].Nutrient != "비타민K" {
		t.Fatalf("res = %+v, want vitamin K caution", res)
	}
}

func TestDniCheckVitaminARaeOnly(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewDniService(gdb)

	seedMedication(t, gdb, 1, "아큐탄", "이소트레티노인", true)
	if err := gdb.Create(&models.DniRule{IngredientName: "이소트레티노인", TargetNutrient: "비타민A"}).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}

	// Foundation foods often report vitamin A only as RAE, never as IU
	foods := []usda.FoodProfile{{Description: "Beef liver", Nutrients: usda.NutrientsPer100g{VitaminARaeUg: f64(950)}}}
	res := svc.Check(1, foods)
	if !res.HasCautions || len(res.Cautions) != 1 {
		t.Fatalf("res = %+v, want one caution from the RAE value", res)
	}
	c := res.Cautions[0]
	if c.NutrientValue != 950 || c.NutrientUnit != "µg" {
		t.Errorf("value = %v %s, want 950 µg", c.NutrientValue, c.NutrientUnit)
	}

	// with both forms present the larger value wins
	foods = []usda.FoodProfile{{Description: "Beef liver", Nutrients: usda.NutrientsPer100g{
		VitaminARaeUg: f64(950),
		VitaminAIU:    f64(31718),
	}}}
	res = svc.Check(1, foods)
	if len(res.Cautions) != 1 || res.Cautions[0].NutrientValue != 31718 {
		t.Fatalf("res = %+v, want the higher IU value", res)
	}
}

func TestDniCheckNutrientAbsent(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewDniService(gdb)

	seedMedication(t, gdb, 1, "쿠마딘정", "와파린", true)
	if err := gdb.Create(&models.DniRule{IngredientName: "와파린", TargetNutrient: "비타민K"}).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}

	// the discussed food carries no vitamin K at all
	foods := []usda.FoodProfile{{Description: "Rice", Nutrients: usda.NutrientsPer100g{SodiumMg: f64(1)}}}
	res := svc.Check(1, foods)
	if res.HasCautions {
		t.Errorf("res = %+v, want no caution when the nutrient is absent", res)
	}
}

func TestDniCheckShortCircuits(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewDniService(gdb)

	foods := []usda.FoodProfile{{Description: "Banana", Nutrients: usda.NutrientsPer100g{PotassiumMg: f64(358)}}}

	// no medications at all
	if res := svc.Check(1, foods); res.HasCautions {
		t.Errorf("no meds: %+v", res)
	}

	// only an inactive medication
	seedMedication(t, gdb, 1, "리시노프릴정", "리시노프릴", false)
	if err := gdb.Create(&models.DniRule{IngredientName: "리시노프릴", TargetNutrient: "칼륨"}).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}
	if res := svc.Check(1, foods); res.HasCautions {
		t.Errorf("inactive med: %+v", res)
	}

	// no foods
	if res := svc.Check(1, nil); res.HasCautions {
		t.Errorf("no foods: %+v", res)
	}
}

func TestDniCheckDeduplicatesPairs(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewDniService(gdb)

	// two products sharing one ingredient, two rules landing on the same nutrient
	seedMedication(t, gdb, 1, "쿠마딘정", "와파린", true)
	seedMedication(t, gdb, 1, "와파린나트륨정", "와파린", true)
	rules := []models.DniRule{
		{IngredientName: "와파린", TargetNutrient: "비타민K"},
		{IngredientName: "와파린", TargetNutrient: "비타민 K"},
	}
	if err := gdb.Create(&rules).Error; err != nil {
		t.Fatalf("create rules: %v", err)
	}

	foods := []usda.FoodProfile{{Description: "Kale", Nutrients: usda.NutrientsPer100g{VitaminKUg: f64(390)}}}
	res := svc.Check(1, foods)
	if len(res.Cautions) != 1 {
		t.Fatalf("cautions = %+v, want one deduplicated pair", res.Cautions)
	}
}

func TestMatchNutrientAliases(t *testing.T) {
	if got := matchNutrientAliases("아연"); len(got) != 0 {
		t.Errorf("unknown nutrient matched %+v", got)
	}
	if got := matchNutrientAliases("  "); len(got) != 0 {
		t.Errorf("blank nutrient matched %+v", got)
	}
	// labels shared across keys return every candidate
	got := matchNutrientAliases("비타민A")
	keys := map[string]bool{}
	for _, a := range got {
		keys[a.Key] = true
	}
	if !keys["vitamin_a_iu"] || !keys["vitamin_a_rae_ug"] {
		t.Errorf("vitamin A aliases = %+v, want both IU and RAE keys", got)
	}
}
