package models

// Result rows of the aggregator. Field tags document the column names the
// report surfaces expose; weighted counts are sums of PONDERA.

// LaborRate is the employment/unemployment split of one period.
type LaborRate struct {
	Year             int     `json:"year" csv:"year"`
	Quarter          int     `json:"quarter" csv:"quarter"`
	Period           string  `json:"period" csv:"period"`
	Employed         float64 `json:"employed" csv:"employed"`
	Unemployed       float64 `json:"unemployed" csv:"unemployed"`
	EmploymentRate   float64 `json:"employment_rate" csv:"employment_rate"`
	UnemploymentRate float64 `json:"unemployment_rate" csv:"unemployment_rate"`
}

// DependencyRatio compares the dependent and working-age population.
type DependencyRatio struct {
	Year       int     `json:"year" csv:"year"`
	Quarter    int     `json:"quarter" csv:"quarter"`
	Period     string  `json:"period" csv:"period"`
	WorkingAge float64 `json:"working_age" csv:"working_age"`
	Dependent  float64 `json:"dependent" csv:"dependent"`
	Ratio      float64 `json:"dependency" csv:"dependency"`
}

// AgeStats holds the weighted age summary of one period.
type AgeStats struct {
	Year       int     `json:"year" csv:"year"`
	Quarter    int     `json:"quarter" csv:"quarter"`
	MeanAge    float64 `json:"mean_age" csv:"mean_age"`
	MedianAge  float64 `json:"median_age" csv:"median_age"`
	Population int64   `json:"population" csv:"population"`
}

// Literacy is the reading/writing split of persons older than six.
type Literacy struct {
	Year         int     `json:"year" csv:"year"`
	Quarter      int     `json:"quarter" csv:"quarter"`
	Capable      float64 `json:"capable" csv:"capable"`
	Incapable    float64 `json:"incapable" csv:"incapable"`
	CapablePct   float64 `json:"capable_pct" csv:"capable_pct"`
	IncapablePct float64 `json:"incapable_pct" csv:"incapable_pct"`
}

// PovertyHeadroom compares four-member households with the reference lines.
type PovertyHeadroom struct {
	Year              int     `json:"year" csv:"year"`
	Quarter           int     `json:"quarter" csv:"quarter"`
	PovertyLine       float64 `json:"poverty_line" csv:"poverty_line"`
	IndigenceLine     float64 `json:"indigence_line" csv:"indigence_line"`
	Households        float64 `json:"households" csv:"households"`
	BelowPoverty      float64 `json:"below_poverty" csv:"below_poverty"`
	BelowIndigence    float64 `json:"below_indigence" csv:"below_indigence"`
	BelowPovertyPct   float64 `json:"below_poverty_pct" csv:"below_poverty_pct"`
	BelowIndigencePct float64 `json:"below_indigence_pct" csv:"below_indigence_pct"`
}

// EducationCount is a weighted person count for one education label.
type EducationCount struct {
	Year      int     `json:"year" csv:"year"`
	Quarter   int     `json:"quarter,omitempty" csv:"quarter"`
	Education string  `json:"education" csv:"education"`
	Persons   float64 `json:"persons" csv:"persons"`
}

// AglomeradoValue is a single value attached to an aglomerado.
type AglomeradoValue struct {
	Aglomerado int     `json:"aglomerado" csv:"aglomerado"`
	Name       string  `json:"name" csv:"name"`
	Value      float64 `json:"value" csv:"value"`
}

// PyramidBand is one 10-year age band split by sex.
type PyramidBand struct {
	AgeGroup string  `json:"age_group" csv:"age_group"`
	Male     float64 `json:"male" csv:"male"`
	Female   float64 `json:"female" csv:"female"`
}

// AgeRangeEducation is the most common CH12 level inside an age range.
type AgeRangeEducation struct {
	Range string `json:"range" csv:"range"`
	Level string `json:"level" csv:"level"`
}

// AglomeradoShare is a weighted subgroup over a weighted aglomerado total.
type AglomeradoShare struct {
	Aglomerado int     `json:"aglomerado" csv:"aglomerado"`
	Name       string  `json:"name" csv:"name"`
	Total      float64 `json:"total" csv:"total"`
	Count      float64 `json:"count" csv:"count"`
	Percentage float64 `json:"percentage" csv:"percentage"`
}

// RegionShare is AglomeradoShare keyed by survey region.
type RegionShare struct {
	Region     int     `json:"region" csv:"region"`
	Name       string  `json:"name" csv:"name"`
	Total      float64 `json:"total" csv:"total"`
	Count      float64 `json:"count" csv:"count"`
	Percentage float64 `json:"percentage" csv:"percentage"`
}

// PeriodValue is a single value attached to a period.
type PeriodValue struct {
	Year    int     `json:"year" csv:"year"`
	Quarter int     `json:"quarter" csv:"quarter"`
	Value   float64 `json:"value" csv:"value"`
}

// SectorEmployment splits employed persons by PP04A sector.
type SectorEmployment struct {
	Aglomerado int     `json:"aglomerado" csv:"aglomerado"`
	Name       string  `json:"name" csv:"name"`
	Total      float64 `json:"total" csv:"total"`
	StatePct   float64 `json:"state_pct" csv:"state_pct"`
	PrivatePct float64 `json:"private_pct" csv:"private_pct"`
	OtherPct   float64 `json:"other_pct" csv:"other_pct"`
}

// RateEvolution compares an aglomerado's labor rates between two periods.
type RateEvolution struct {
	Aglomerado         int     `json:"aglomerado" csv:"aglomerado"`
	Name               string  `json:"name" csv:"name"`
	From               string  `json:"from" csv:"from"`
	To                 string  `json:"to" csv:"to"`
	EmploymentBefore   float64 `json:"employment_before" csv:"employment_before"`
	UnemploymentBefore float64 `json:"unemployment_before" csv:"unemployment_before"`
	EmploymentAfter    float64 `json:"employment_after" csv:"employment_after"`
	UnemploymentAfter  float64 `json:"unemployment_after" csv:"unemployment_after"`
	EmploymentChange   float64 `json:"employment_change" csv:"employment_change"`
	UnemploymentChange float64 `json:"unemployment_change" csv:"unemployment_change"`
	EmploymentTrend    string  `json:"employment_trend" csv:"employment_trend"`
	UnemploymentTrend  string  `json:"unemployment_trend" csv:"unemployment_trend"`
}

// SeniorEducation is the share of persons aged 60+ with incomplete secondary.
type SeniorEducation struct {
	Year       int     `json:"year" csv:"year"`
	Quarter    int     `json:"quarter" csv:"quarter"`
	Aglomerado int     `json:"aglomerado" csv:"aglomerado"`
	Name       string  `json:"name" csv:"name"`
	Seniors    float64 `json:"seniors" csv:"seniors"`
	Incomplete float64 `json:"incomplete_secondary" csv:"incomplete_secondary"`
	Percentage float64 `json:"percentage" csv:"percentage"`
}

// CategoryShare is a weighted category count and its share of the total.
type CategoryShare struct {
	Category   string  `json:"category" csv:"category"`
	Weighted   float64 `json:"weighted" csv:"weighted"`
	Percentage float64 `json:"percentage" csv:"percentage"`
}

// AglomeradoCategory is a weighted count of one category in an aglomerado.
type AglomeradoCategory struct {
	Aglomerado int     `json:"aglomerado" csv:"aglomerado"`
	Name       string  `json:"name" csv:"name"`
	Category   string  `json:"category" csv:"category"`
	Weighted   float64 `json:"weighted" csv:"weighted"`
	Percentage float64 `json:"percentage" csv:"percentage"`
}

// BathroomShare is the proportion of dwellings with a bathroom.
type BathroomShare struct {
	Aglomerado   int     `json:"aglomerado" csv:"aglomerado"`
	Name         string  `json:"name" csv:"name"`
	Total        float64 `json:"total" csv:"total"`
	WithBathroom float64 `json:"with_bathroom" csv:"with_bathroom"`
	Proportion   float64 `json:"proportion" csv:"proportion"`
}

// TenureCount is the weighted count of one tenure type in one year.
type TenureCount struct {
	Year     int     `json:"year" csv:"year"`
	Tenure   string  `json:"tenure" csv:"tenure"`
	Weighted float64 `json:"weighted" csv:"weighted"`
}

// RoofExtreme marks the aglomerado with the highest or lowest precarious share.
type RoofExtreme struct {
	Kind       string  `json:"kind" csv:"kind"`
	Aglomerado int     `json:"aglomerado" csv:"aglomerado"`
	Name       string  `json:"name" csv:"name"`
	Percentage float64 `json:"percentage" csv:"percentage"`
}

// RankingEntry is one position of the university-household ranking.
type RankingEntry struct {
	Rank           int     `json:"rank" csv:"rank"`
	Aglomerado     int     `json:"aglomerado" csv:"aglomerado"`
	Name           string  `json:"name" csv:"name"`
	Households     float64 `json:"households" csv:"households"`
	WithUniversity float64 `json:"with_university" csv:"with_university"`
	Percentage     float64 `json:"percentage" csv:"percentage"`
}

// Coverage describes the span of periods held by a fused file.
type Coverage struct {
	From      string `json:"from" csv:"from"`
	To        string `json:"to" csv:"to"`
	FirstDate string `json:"first_month" csv:"first_month"`
	LastDate  string `json:"last_month" csv:"last_month"`
	Rows      int    `json:"rows" csv:"rows"`
}
