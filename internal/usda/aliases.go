package usda

// NutrientAlias maps one canonical nutrient key to the display unit and every
// label (Korean and English synonyms) the caution-rule table may use for it.
// This is data, not code: adding an alias or a locale never touches matching
// logic. The first label of each entry is the canonical display label.
type NutrientAlias struct {
	Key    string
	Unit   string
	Labels []string
}

// DefaultNutrientAliases covers the nutrient keys DNI rules target.
var DefaultNutrientAliases = []NutrientAlias{
	{Key: "potassium_mg", Unit: "mg", Labels: []string{"칼륨", "포타슘", "potassium"}},
	{Key: "sodium_mg", Unit: "mg", Labels: []string{"나트륨", "소듐", "sodium"}},
	{Key: "calcium_mg", Unit: "mg", Labels: []string{"칼슘", "calcium"}},
	{Key: "magnesium_mg", Unit: "mg", Labels: []string{"마그네슘", "magnesium"}},
	{Key: "iron_mg", Unit: "mg", Labels: []string{"철", "철분", "iron"}},
	{Key: "vitamin_k_ug", Unit: "µg", Labels: []string{"비타민K", "비타민 K", "비타민K1", "vitamin K"}},
	{Key: "vitamin_d_ug", Unit: "µg", Labels: []string{"비타민D", "비타민 D", "vitamin D"}},
	{Key: "vitamin_c_mg", Unit: "mg", Labels: []string{"비타민C", "비타민 C", "vitamin C"}},
	{Key: "vitamin_a_iu", Unit: "IU", Labels: []string{"비타민A", "비타민 A", "vitamin A"}},
	{Key: "vitamin_a_rae_ug", Unit: "µg", Labels: []string{"비타민A", "비타민 A"}},
	{Key: "fiber_g", Unit: "g", Labels: []string{"식이섬유", "섬유질", "fiber"}},
	{Key: "sugar_g", Unit: "g", Labels: []string{"당", "당류", "sugar"}},
}

// ValueByKey returns the nutrient value for a canonical key, or 0 when absent.
func (n NutrientsPer100g) ValueByKey(key string) float64 {
	deref := func(p *float64) float64 {
		if p == nil {
			return 0
		}
		return *p
	}
	switch key {
	case "potassium_mg":
		return deref(n.PotassiumMg)
	case "sodium_mg":
		return deref(n.SodiumMg)
	case "calcium_mg":
		return deref(n.CalciumMg)
	case "magnesium_mg":
		return deref(n.MagnesiumMg)
	case "iron_mg":
		return deref(n.IronMg)
	case "vitamin_k_ug":
		return deref(n.VitaminKUg)
	case "vitamin_d_ug":
		return deref(n.VitaminDUg)
	case "vitamin_c_mg":
		return deref(n.VitaminCMg)
	case "vitamin_a_iu":
		return deref(n.VitaminAIU)
	case "vitamin_a_rae_ug":
		return deref(n.VitaminARaeUg)
	case "fiber_g":
		return deref(n.FiberG)
	case "sugar_g":
		return deref(n.SugarG)
	}
	return 0
}
