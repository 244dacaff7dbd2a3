package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/mfds"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/models"
)

// promoteThreshold gates cache promotion: externally-fetched drug data is only
// persisted once a keyword has been searched this many times, trading a few
// redundant API calls against unbounded cache bloat from one-off searches.
const promoteThreshold = 5

const drugContextMaxItems = 20

// DrugSearcher is the external registry surface DrugRAGService needs; satisfied
// by *mfds.Client and stubbed in tests.
type DrugSearcher interface {
	SearchProduct(ctx context.Context, itemName string, pageNo, numOfRows int) ([]mfds.Item, int, error)
}

type DrugRAGResult struct {
	DrugContext string       `json:"drugContext"`
	APIUsed     bool         `json:"apiUsed"`
	ItemCount   int          `json:"itemCount"`
	CallCount   int          `json:"callCount"`
	Items       []DrugRecord `json:"items"`
}

// DrugRecord is one resolved drug row, from cache or API.
type DrugRecord struct {
	ProductName    string `json:"product_name"`
	MainIngredient string `json:"main_ingredient"`
	CompanyName    string `json:"company_name"`
	EeDocData      string `json:"ee_doc_data,omitempty"`
	NbDocData      string `json:"nb_doc_data,omitempty"`
}

// DrugRAGService resolves a free-text drug query through the learning hybrid
// pipeline: search-count bookkeeping, local cache probe, external API fallback
// with popularity-gated promotion. Run never returns an error: every failure
// degrades to an empty result so chat generation keeps working without drug
// context.
type DrugRAGService struct {
	DB  *gorm.DB
	API DrugSearcher
}

func NewDrugRAGService(db *gorm.DB, api DrugSearcher) *DrugRAGService {
	return &DrugRAGService{DB: db, API: api}
}

// Run executes the three-tier lookup for one keyword. requestID is only used
// for log correlation.
func (s *DrugRAGService) Run(ctx context.Context, requestID, query string) DrugRAGResult {
	q := strings.TrimSpace(query)
	if q == "" {
		return DrugRAGResult{}
	}

	// 1) bookkeeping first, independent of hit/miss
	callCount := s.incrementSearchLog(q)
	if callCount > 0 {
		log.Printf("[DrugRAG %s] search_logs %q call_count=%d", requestID, q, callCount)
	}

	// 2) cache probe: substring match on product_name, case-insensitive
	cached := s.cachedRows(q)
	if len(cached) > 0 {
		log.Printf("[DrugRAG %s] drug_master cache hit: %d rows", requestID, len(cached))
		items := recordsFromCache(cached)
		return DrugRAGResult{
			DrugContext: formatDrugContext(items),
			APIUsed:     false,
			ItemCount:   len(items),
			CallCount:   callCount,
			Items:       items,
		}
	}

	// 3) external fallback
	if s.API == nil {
		log.Printf("[DrugRAG %s] no registry client configured, returning empty", requestID)
		return DrugRAGResult{CallCount: callCount}
	}
	apiItems, total, err := s.API.SearchProduct(ctx, q, 1, drugContextMaxItems)
	if err != nil {
		// degrade to "no data": a drug lookup failure must never break the caller
		log.Printf("[DrugRAG %s] registry call failed: %v", requestID, err)
		return DrugRAGResult{CallCount: callCount}
	}
	log.Printf("[DrugRAG %s] registry returned %d items (total %d)", requestID, len(apiItems), total)
	if len(apiItems) == 0 {
		return DrugRAGResult{APIUsed: true, CallCount: callCount}
	}

	items := recordsFromAPI(apiItems)

	// 4) conditional promotion: persist only keywords proven popular
	if callCount >= promoteThreshold {
		if err := s.upsertDrugMaster(items); err != nil {
			log.Printf("[DrugRAG %s] drug_master upsert failed: %v", requestID, err)
		} else {
			log.Printf("[DrugRAG %s] promoted %d rows to drug_master (call_count=%d)", requestID, len(items), callCount)
		}
	}

	return DrugRAGResult{
		DrugContext: formatDrugContext(items),
		APIUsed:     true,
		ItemCount:   len(items),
		CallCount:   callCount,
		Items:       items,
	}
}

// incrementSearchLog bumps the keyword counter with a single atomic upsert and
// reads back the new count. Never read-then-write: concurrent identical
// searches must not lose updates.
func (s *DrugRAGService) incrementSearchLog(keyword string) int {
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "keyword"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"call_count": gorm.Expr("call_count + 1")}),
	}).Create(&models.SearchLog{Keyword: keyword, CallCount: 1}).Error
	if err != nil {
		log.Printf("[DrugRAG] search_logs increment failed: %v", err)
		return 0
	}
	var row models.SearchLog
	if err := s.DB.Where("keyword = ?", keyword).First(&row).Error; err != nil {
		return 0
	}
	return row.CallCount
}

func (s *DrugRAGService) cachedRows(query string) []models.DrugMaster {
	pattern := "%" + escapeLikePattern(query) + "%"
	var rows []models.DrugMaster
	if err := s.DB.Where(`LOWER(product_name) LIKE LOWER(?) ESCAPE '\'`, pattern).
		Order("product_name asc").
		Limit(drugContextMaxItems).
		Find(&rows).Error; err != nil {
		log.Printf("[DrugRAG] drug_master query failed: %v", err)
		return nil
	}
	return rows
}

// upsertDrugMaster persists API rows keyed by product_name. Idempotent: later
// calls refresh the ingredient and doc fields without duplicating rows.
func (s *DrugRAGService) upsertDrugMaster(items []DrugRecord) error {
	rows := make([]models.DrugMaster, 0, len(items))
	for _, it := range items {
		if it.ProductName == "" {
			continue
		}
		rows = append(rows, models.DrugMaster{
			ProductName:    it.ProductName,
			MainIngredient: it.MainIngredient,
			CompanyName:    it.CompanyName,
			EeDocData:      it.EeDocData,
			NbDocData:      it.NbDocData,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"main_ingredient", "company_name", "ee_doc_data", "nb_doc_data"}),
	}).Create(&rows).Error
}

// escapeLikePattern makes % and _ in user input match literally.
func escapeLikePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func recordsFromCache(rows []models.DrugMaster) []DrugRecord {
	out := make([]DrugRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, DrugRecord{
			ProductName:    r.ProductName,
			MainIngredient: r.MainIngredient,
			CompanyName:    r.CompanyName,
			EeDocData:      r.EeDocData,
			NbDocData:      r.NbDocData,
		})
	}
	return out
}

func recordsFromAPI(items []mfds.Item) []DrugRecord {
	out := make([]DrugRecord, 0, len(items))
	for _, it := range items {
		out = append(out, DrugRecord{
			ProductName:    it.ProductName,
			MainIngredient: it.IngredientName,
			CompanyName:    it.CompanyName,
		})
	}
	return out
}

// IngredientKeywords extracts the de-duplicated ingredient names from a result,
// used downstream as literature search keywords.
func (r DrugRAGResult) IngredientKeywords() []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range r.Items {
		name := strings.TrimSpace(it.MainIngredient)
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// formatDrugContext renders drug rows as prompt text: product, ingredient,
// company, clipped efficacy and caution sections.
func formatDrugContext(items []DrugRecord) string {
	var b strings.Builder
	for i, item := range items {
		if i >= drugContextMaxItems {
			break
		}
		name := item.ProductName
		if name == "" {
			name = "(정보 없음)"
		}
		fmt.Fprintf(&b, "■ 제품명: %s\n", name)
		if item.MainIngredient != "" {
			fmt.Fprintf(&b, "  성분명: %s\n", clipText(item.MainIngredient, 300))
		}
		if item.CompanyName != "" {
			fmt.Fprintf(&b, "  업체명: %s\n", item.CompanyName)
		}
		if item.EeDocData != "" {
			fmt.Fprintf(&b, "  효능: %s\n", clipText(item.EeDocData, 600))
		}
		if item.NbDocData != "" {
			fmt.Fprintf(&b, "  주의사항: %s\n", clipText(item.NbDocData, 600))
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func clipText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
