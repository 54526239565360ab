package models

// Plan is a derived snapshot computed from a Profile. It is never stored.
type Plan struct {
	BMR             float64  `json:"bmr"`
	TDEE            float64  `json:"tdee"`
	MaintenanceKcal int      `json:"maintenance_kcal"`
	TargetKcal      int      `json:"target_kcal"`
	DeltaKcal       int      `json:"delta_kcal"`
	Mode            Mode     `json:"mode"`
	ProteinG        int      `json:"protein_g"`
	FatG            int      `json:"fat_g"`
	CarbG           int      `json:"carb_g"`
	Notes           []string `json:"notes"`
}
