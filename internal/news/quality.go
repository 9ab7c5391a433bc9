package news

import "math"

// Length thresholds used by the quality heuristic, in runes.
const (
	descShortLen = 50
	descLongLen  = 150
	titleMinLen  = 20
	titleMaxLen  = 200
)

// QualityWeights are the independent contributions summed into a quality
// score. The total is capped at 1.0.
type QualityWeights struct {
	Description     float64 // description longer than 50
	LongDescription float64 // additionally, longer than 150
	Author          float64
	Image           float64
	Published       float64 // explicit published timestamp
	Title           float64 // title length strictly within (20, 200)
}

func DefaultQualityWeights() QualityWeights {
	return QualityWeights{
		Description:     0.3,
		LongDescription: 0.2,
		Author:          0.2,
		Image:           0.1,
		Published:       0.1,
		Title:           0.1,
	}
}

// Score rates a normalized article. The result is rounded to 4 decimals so
// threshold comparisons are not thrown off by float summation.
func (w QualityWeights) Score(a Article, explicitPublished bool) float64 {
	var score float64
	descLen := runeLen(a.Description)
	if descLen > descShortLen {
		score += w.Description
	}
	if descLen > descLongLen {
		score += w.LongDescription
	}
	if a.Author != "" {
		score += w.Author
	}
	if a.ImageURL != "" {
		score += w.Image
	}
	if explicitPublished {
		score += w.Published
	}
	if tl := runeLen(a.Title); tl > titleMinLen && tl < titleMaxLen {
		score += w.Title
	}

	score = math.Round(score*1e4) / 1e4
	return math.Max(0, math.Min(1, score))
}
