package services

import (
	"fmt"
	"log"
	"strings"

	"tarot-miniapp-backend/models"
	"tarot-miniapp-backend/utils"

	"gorm.io/gorm/clause"
)

// promoPoolObjects maps each discount tier to its code-list object in R2
// (one code per line, maintained by the promo team).
var promoPoolObjects = func() map[int]string {
	objects := make(map[int]string, len(models.PromoPoolPercents))
	for _, percent := range models.PromoPoolPercents {
		objects[percent] = fmt.Sprintf("promo_pools/pool_%d.txt", percent)
	}
	return objects
}()

// ImportPoolsFromR2 downloads every tier's code list and upserts it into
// promo_codes. Existing rows are left untouched, so issued codes keep their
// state; a missing object skips the tier instead of failing the import.
func (s *PromoPoolService) ImportPoolsFromR2() (int64, error) {
	var total int64
	for _, percent := range models.PromoPoolPercents {
		key := promoPoolObjects[percent]
		data, err := utils.FetchObjectFromR2(key)
		if err != nil {
			log.Printf("⚠️ [PromoImport] tier %d%%: cannot fetch %s: %v — skipping", percent, key, err)
			continue
		}
		added, err := s.importCodes(percent, data)
		if err != nil {
			return total, fmt.Errorf("import tier %d%%: %w", percent, err)
		}
		log.Printf("[PromoImport] tier %d%%: %d new code(s) from %s", percent, added, key)
		total += added
	}
	return total, nil
}

func (s *PromoPoolService) importCodes(discountPercent int, data []byte) (int64, error) {
	var rows []models.PromoCode
	for _, line := range strings.Split(string(data), "\n") {
		code := strings.TrimSpace(line)
		if code == "" || strings.HasPrefix(code, "#") {
			continue
		}
		rows = append(rows, models.PromoCode{
			Code:            code,
			DiscountPercent: discountPercent,
			ExpiresAt:       models.PromoCodeDefaultExpiry,
			IsActive:        true,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
