package models

// Labels of raw EPH codes used by the household and education reports.

var FloorMaterials = map[int]string{
	1: "Mosaic/tile/wood/ceramic/carpet",
	2: "Cement/fixed brick",
	3: "Loose brick/dirt",
	4: "Other",
	9: "Not specified",
}

var TenureTypes = map[int]string{
	1: "Owner of dwelling and land",
	2: "Owner of dwelling only",
	3: "Tenant",
	4: "Occupant paying taxes/fees",
	5: "Occupant by employment",
	6: "Occupant free of charge (with permission)",
	7: "De facto occupant (without permission)",
	8: "In succession",
	9: "Other",
}

// EducationLevels labels CH12, the highest level attended.
var EducationLevels = map[int]string{
	1: "Kindergarten/preschool",
	2: "Primary",
	3: "EGB",
	4: "Secondary",
	5: "Polimodal",
	6: "Tertiary",
	7: "University",
	8: "Postgraduate",
	9: "Special education",
}

// LabelOr returns the label of code in table, or fallback when absent.
func LabelOr(table map[int]string, c Code, fallback string) string {
	if c.Valid {
		if label, ok := table[c.Value]; ok {
			return label
		}
	}
	return fallback
}
