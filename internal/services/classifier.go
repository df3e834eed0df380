package services

import (
	"fmt"
	"strconv"

	"eph-processor/internal/models"
)

// Rule is one (predicate, label) branch of an ordered rule table.
type Rule[T any] struct {
	Name  string
	Match func(T) bool
	Label func(T) string
}

// Fixed returns a label function that ignores its record.
func Fixed[T any](label string) func(T) string {
	return func(T) string { return label }
}

// RuleSet is evaluated top-down; the first matching rule wins and later rules
// are never consulted. Fallback applies when nothing matches.
type RuleSet[T any] struct {
	Rules    []Rule[T]
	Fallback string
}

// Apply returns the label of the first matching rule.
func (rs RuleSet[T]) Apply(rec T) string {
	for _, r := range rs.Rules {
		if r.Match(rec) {
			return r.Label(rec)
		}
	}
	return rs.Fallback
}

// Labels produced by the classifier.
const (
	SexMale    = "Male"
	SexFemale  = "Female"
	SexMissing = "Missing"

	EduIncompletePrimary   = "Incomplete primary"
	EduCompletePrimary     = "Complete primary"
	EduIncompleteSecondary = "Incomplete secondary"
	EduCompleteSecondary   = "Complete secondary"
	EduHigher              = "Higher/university"
	EduMissing             = "Missing"
	EduNoInformation       = "No information"

	LaborSelfEmployed  = "Self-employed"
	LaborDependent     = "Dependent employed"
	LaborUnemployed    = "Unemployed"
	LaborInactive      = "Inactive"
	LaborUncategorized = "Uncategorized"

	HouseholdSingle   = "Single-person"
	HouseholdNuclear  = "Nuclear"
	HouseholdExtended = "Extended"
	NotApplicable     = "Not applicable"

	DensityLow    = "Low"
	DensityMedium = "Medium"
	DensityHigh   = "High"

	RoofDurable    = "Durable"
	RoofPrecarious = "Precarious"

	HabitabilityInsufficient = "insufficient"
	HabitabilityRegular      = "regular"
	HabitabilityHealthy      = "healthy"
	HabitabilityGood         = "good"
	HabitabilityUnclassified = "unclassified"
)

// University flag values.
const (
	UniversityYes           = 1
	UniversityNo            = 0
	UniversityNotApplicable = 2
)

var sexRules = RuleSet[models.Code]{
	Rules: []Rule[models.Code]{
		{Name: "male", Match: func(c models.Code) bool { return c.Is(1) }, Label: Fixed[models.Code](SexMale)},
		{Name: "female", Match: func(c models.Code) bool { return c.Is(2) }, Label: Fixed[models.Code](SexFemale)},
		{Name: "missing", Match: models.Code.Empty, Label: Fixed[models.Code](SexMissing)},
		{Name: "unknown", Match: func(models.Code) bool { return true }, Label: func(c models.Code) string {
			return fmt.Sprintf("Unknown (%s)", c.Raw)
		}},
	},
}

// Codes outside every branch keep an empty label.
var educationRules = RuleSet[models.Code]{
	Rules: []Rule[models.Code]{
		{Name: "primary-incomplete", Match: func(c models.Code) bool { return c.Is(1) }, Label: Fixed[models.Code](EduIncompletePrimary)},
		{Name: "primary-complete", Match: func(c models.Code) bool { return c.Is(2) }, Label: Fixed[models.Code](EduCompletePrimary)},
		{Name: "secondary-incomplete", Match: func(c models.Code) bool { return c.Is(3) }, Label: Fixed[models.Code](EduIncompleteSecondary)},
		{Name: "secondary-complete", Match: func(c models.Code) bool { return c.Is(4) }, Label: Fixed[models.Code](EduCompleteSecondary)},
		{Name: "higher", Match: func(c models.Code) bool { return c.Is(5, 6) }, Label: Fixed[models.Code](EduHigher)},
		{Name: "missing", Match: models.Code.Empty, Label: Fixed[models.Code](EduMissing)},
		{Name: "no-information", Match: func(c models.Code) bool { return c.Is(7, 9) }, Label: Fixed[models.Code](EduNoInformation)},
	},
}

var laborRules = RuleSet[models.Individual]{
	Rules: []Rule[models.Individual]{
		{
			Name:  "self-employed",
			Match: func(in models.Individual) bool { return in.Status.Is(1) && in.Occupation.Is(1, 2) },
			Label: Fixed[models.Individual](LaborSelfEmployed),
		},
		{
			Name:  "dependent",
			Match: func(in models.Individual) bool { return in.Status.Is(1) && in.Occupation.Is(3, 4, 9) },
			Label: Fixed[models.Individual](LaborDependent),
		},
		{Name: "unemployed", Match: func(in models.Individual) bool { return in.Status.Is(2) }, Label: Fixed[models.Individual](LaborUnemployed)},
		{Name: "inactive", Match: func(in models.Individual) bool { return in.Status.Is(3) }, Label: Fixed[models.Individual](LaborInactive)},
	},
	Fallback: LaborUncategorized,
}

var householdTypeRules = RuleSet[models.Number]{
	Rules: []Rule[models.Number]{
		{Name: "missing", Match: func(n models.Number) bool { return !n.Valid }, Label: Fixed[models.Number](NotApplicable)},
		{Name: "single", Match: func(n models.Number) bool { return n.Value == 1 }, Label: Fixed[models.Number](HouseholdSingle)},
		{Name: "nuclear", Match: func(n models.Number) bool { return n.Value == 2 || n.Value == 3 || n.Value == 4 }, Label: Fixed[models.Number](HouseholdNuclear)},
	},
	Fallback: HouseholdExtended,
}

var densityRules = RuleSet[models.Household]{
	Rules: []Rule[models.Household]{
		{
			Name:  "not-applicable",
			Match: func(h models.Household) bool { return !h.Members.Valid || !h.Rooms.Valid || h.Rooms.Value <= 0 },
			Label: Fixed[models.Household](NotApplicable),
		},
		{Name: "low", Match: func(h models.Household) bool { return density(h) < 1 }, Label: Fixed[models.Household](DensityLow)},
		{Name: "medium", Match: func(h models.Household) bool { return density(h) <= 2 }, Label: Fixed[models.Household](DensityMedium)},
	},
	Fallback: DensityHigh,
}

func density(h models.Household) float64 {
	return h.Members.Value / h.Rooms.Value
}

// Codes outside every branch keep an empty label.
var roofRules = RuleSet[models.Code]{
	Rules: []Rule[models.Code]{
		{Name: "durable", Match: func(c models.Code) bool { return c.Is(1, 2, 3, 4) }, Label: Fixed[models.Code](RoofDurable)},
		{Name: "precarious", Match: func(c models.Code) bool { return c.Is(5, 6, 7) }, Label: Fixed[models.Code](RoofPrecarious)},
		{Name: "not-applicable", Match: func(c models.Code) bool { return c.Is(9) }, Label: Fixed[models.Code](NotApplicable)},
	},
}

// habitabilityRules reads the roof label from h.Derived, so the roof rule
// must run first. Branch order matters: a dwelling matching an earlier tier
// never reaches a later one.
var habitabilityRules = RuleSet[models.Household]{
	Rules: []Rule[models.Household]{
		{
			Name: HabitabilityInsufficient,
			Match: func(h models.Household) bool {
				return h.Kitchen.Is(2) && h.Water.Is(3) && h.BathTenure.Is(3, 4) && h.Floor.Is(3) &&
					h.Derived.RoofMaterial == RoofPrecarious
			},
			Label: Fixed[models.Household](HabitabilityInsufficient),
		},
		{
			Name: HabitabilityRegular,
			Match: func(h models.Household) bool {
				return h.Kitchen.Is(1) && h.Water.Is(3) && h.BathTenure.Is(2) && h.Floor.Is(2) &&
					h.Derived.RoofMaterial == RoofPrecarious
			},
			Label: Fixed[models.Household](HabitabilityRegular),
		},
		{
			Name: HabitabilityHealthy,
			Match: func(h models.Household) bool {
				return h.Kitchen.Is(1) && h.Water.Is(2) && h.Bathroom.Is(1) && h.Floor.Is(2, 3) &&
					h.Derived.RoofMaterial == RoofDurable
			},
			Label: Fixed[models.Household](HabitabilityHealthy),
		},
		{
			Name: HabitabilityGood,
			Match: func(h models.Household) bool {
				return h.Kitchen.Is(1) && h.Water.Is(1) && h.Bathroom.Is(1) && h.Floor.Is(2, 3) &&
					h.Derived.RoofMaterial == RoofDurable
			},
			Label: Fixed[models.Household](HabitabilityGood),
		},
	},
	Fallback: HabitabilityUnclassified,
}

// ClassifyIndividual derives the labels of one person. It reads only raw
// fields, so applying it to an already classified record gives the same result.
func ClassifyIndividual(in models.Individual) models.IndividualDerived {
	return models.IndividualDerived{
		SexLabel:       sexRules.Apply(in.Sex),
		EducationLabel: educationRules.Apply(in.Education),
		LaborCondition: laborRules.Apply(in),
		University:     universityFlag(in),
	}
}

func universityFlag(in models.Individual) int {
	if !in.Age.Valid || in.Age.Value < 18 {
		return UniversityNotApplicable
	}
	if in.Education.Is(6) {
		return UniversityYes
	}
	return UniversityNo
}

// ClassifyHousehold derives the labels of one dwelling.
func ClassifyHousehold(h models.Household) models.HouseholdDerived {
	h.Derived = models.HouseholdDerived{
		Type:         householdTypeRules.Apply(h.Members),
		Density:      densityRules.Apply(h),
		RoofMaterial: roofRules.Apply(h.Roof),
	}
	h.Derived.Habitability = habitabilityRules.Apply(h)
	return h.Derived
}

// Source columns each classifier reads.
var (
	individualClassifierColumns = []string{models.ColSex, models.ColEducation, models.ColStatus, models.ColOccupation, models.ColAge}
	householdClassifierColumns  = []string{models.ColMembers, models.ColRooms, models.ColRoof, models.ColKitchen, models.ColWater, models.ColBathTenure, models.ColBathroom, models.ColFloor}
)

// ClassifyIndividuals returns a copy of the individual table with the
// derived columns filled in for every row.
func ClassifyIndividuals(t *Table) (*Table, error) {
	if missing := t.Missing(individualClassifierColumns...); len(missing) > 0 {
		return nil, missingColumns(missing)
	}
	return t.WithColumns(models.IndividualDerivedColumns, func(row []string) []string {
		d := ClassifyIndividual(individualFromRow(t.Getter(row)))
		return []string{d.SexLabel, d.EducationLabel, d.LaborCondition, strconv.Itoa(d.University)}
	}), nil
}

// ClassifyHouseholds returns a copy of the household table with the derived
// columns filled in for every row.
func ClassifyHouseholds(t *Table) (*Table, error) {
	if missing := t.Missing(householdClassifierColumns...); len(missing) > 0 {
		return nil, missingColumns(missing)
	}
	return t.WithColumns(models.HouseholdDerivedColumns, func(row []string) []string {
		return ClassifyHousehold(householdFromRow(t.Getter(row))).Values()
	}), nil
}
