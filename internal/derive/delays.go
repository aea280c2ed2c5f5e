package derive

import (
	"strings"

	"tms-dashboard/internal/models"
)

// ClassifyDelays counts every known phrase found in each delay reason. One
// reason may match several phrases; unmatched text is ignored.
func ClassifyDelays(table *models.TimingTable) models.DelayBreakdown {
	out := models.DelayBreakdown{
		Reasons:    make([]models.ReasonCount, len(models.DelayReasons)),
		Categories: make(map[models.DelayCategory]int, len(models.DelayCategories)),
	}
	for i, r := range models.DelayReasons {
		out.Reasons[i] = models.ReasonCount{Phrase: r.Phrase, Category: r.Category}
	}
	for _, c := range models.DelayCategories {
		out.Categories[c] = 0
	}
	if table == nil {
		return out
	}

	for _, rec := range table.Records {
		text := strings.ToLower(rec.DelayReason)
		if text == "" {
			continue
		}
		for i, r := range models.DelayReasons {
			if strings.Contains(text, strings.ToLower(r.Phrase)) {
				out.Reasons[i].Count++
				out.Categories[r.Category]++
			}
		}
	}
	return out
}
