package setgraph

import (
	"github.com/claude/liftlog/internal/match"
	"github.com/claude/liftlog/internal/models"
)

// Match sources reported on a proposal.
const (
	SourceSaved = "saved"
	SourceAlias = "alias"
	SourceExact = "exact"
	SourceFuzzy = "fuzzy"
	SourceNone  = "none"
)

// aliases maps normalized Setgraph names to catalog ids. An empty id means
// the name is never matched and always becomes a new custom exercise.
var aliases = map[string]string{
	"bench press":               "barbell-bench-press",
	"flat bench press":          "barbell-bench-press",
	"bb bench":                  "barbell-bench-press",
	"db bench":                  "dumbbell-bench-press",
	"db bench press":            "dumbbell-bench-press",
	"incline bench":             "incline-barbell-bench-press",
	"incline db press":          "incline-dumbbell-press",
	"pec deck":                  "chest-fly-machine",
	"cable fly":                 "cable-crossover",
	"pushups":                   "push-up",
	"dips":                      "dip",
	"ohp":                       "overhead-press",
	"military press":            "overhead-press",
	"shoulder press":            "dumbbell-shoulder-press",
	"side raise":                "lateral-raise",
	"lateral raises":            "lateral-raise",
	"squat":                     "barbell-back-squat",
	"back squat":                "barbell-back-squat",
	"squats":                    "barbell-back-squat",
	"deadlift":                  "barbell-deadlift",
	"rdl":                       "romanian-deadlift",
	"leg curl":                  "lying-leg-curl",
	"hamstring curl":            "lying-leg-curl",
	"lunges":                    "walking-lunge",
	"split squat":               "bulgarian-split-squat",
	"calf raise":                "standing-calf-raise",
	"pullups":                   "pull-up",
	"chinups":                   "chin-up",
	"lat pull down":             "lat-pulldown",
	"bent over row":             "barbell-row",
	"bb row":                    "barbell-row",
	"db row":                    "dumbbell-row",
	"one arm row":               "dumbbell-row",
	"cable row":                 "seated-cable-row",
	"bicep curl":                "dumbbell-curl",
	"biceps curl":               "dumbbell-curl",
	"ez bar curl":               "barbell-curl",
	"tricep pushdown":           "triceps-pushdown",
	"rope pushdown":             "triceps-pushdown",
	"skullcrusher":              "skull-crusher",
	"french press":              "overhead-triceps-extension",
	"leg raise":                 "hanging-leg-raise",
	"farmer carry":              "farmers-walk",
	"shrugs":                    "barbell-shrug",
	"running":                   "",
	"treadmill":                 "",
	"cycling":                   "",
	"stretching":                "",
	"warm up":                   "",
	"rowing machine":            "",
}

// Proposal is a suggested mapping for one distinct Setgraph exercise name.
type Proposal struct {
	models.SetgraphExerciseMapping
	Source      string `json:"source"`
	MatchedName string `json:"matched_name,omitempty"`
	SetCount    int    `json:"set_count"`
}

// ProposeMappings suggests a catalog exercise for each distinct name in rows,
// in order of first appearance. exercises is the full catalog (seed and
// custom) in catalog order; saved holds mappings confirmed by earlier imports.
func ProposeMappings(rows []models.SetgraphRow, exercises []models.Exercise, saved []models.SetgraphExerciseMapping) []Proposal {
	byID := make(map[string]models.Exercise, len(exercises))
	for _, ex := range exercises {
		byID[ex.ID] = ex
	}
	savedByName := make(map[string]string, len(saved))
	for _, m := range saved {
		if m.ExerciseID != nil && *m.ExerciseID != "" {
			savedByName[m.SetgraphName] = *m.ExerciseID
		}
	}

	index := make(map[string]int)
	var out []Proposal
	for _, row := range rows {
		if i, ok := index[row.ExerciseName]; ok {
			out[i].SetCount++
			continue
		}
		p := propose(row.ExerciseName, byID, savedByName, exercises)
		p.SetCount = 1
		index[row.ExerciseName] = len(out)
		out = append(out, p)
	}
	return out
}

func propose(name string, byID map[string]models.Exercise, saved map[string]string, exercises []models.Exercise) Proposal {
	resolved := func(ex models.Exercise, source string) Proposal {
		id := ex.ID
		return Proposal{
			SetgraphExerciseMapping: models.SetgraphExerciseMapping{SetgraphName: name, ExerciseID: &id},
			Source:                  source,
			MatchedName:             ex.Name,
		}
	}

	if id, ok := saved[name]; ok {
		if ex, ok := byID[id]; ok {
			return resolved(ex, SourceSaved)
		}
	}

	normalized := match.Normalize(name)
	if id, ok := aliases[normalized]; ok {
		if id == "" {
			return Proposal{
				SetgraphExerciseMapping: models.SetgraphExerciseMapping{SetgraphName: name},
				Source:                  SourceAlias,
			}
		}
		if ex, ok := byID[id]; ok {
			return resolved(ex, SourceAlias)
		}
	}

	if ex, ok := match.FindExact(normalized, exercises); ok {
		return resolved(ex, SourceExact)
	}
	if ex, ok := match.FindFuzzyMatch(normalized, exercises); ok {
		return resolved(ex, SourceFuzzy)
	}

	return Proposal{
		SetgraphExerciseMapping: models.SetgraphExerciseMapping{SetgraphName: name, NeedsMapping: true},
		Source:                  SourceNone,
	}
}

// Confirmed strips the review metadata from proposals.
func Confirmed(proposals []Proposal) []models.SetgraphExerciseMapping {
	out := make([]models.SetgraphExerciseMapping, len(proposals))
	for i, p := range proposals {
		out[i] = p.SetgraphExerciseMapping
	}
	return out
}
